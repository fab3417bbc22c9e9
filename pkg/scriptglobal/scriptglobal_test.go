package scriptglobal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSetGetDottedNames(t *testing.T) {
	r := NewRegistry()

	if err := r.Set("Constants.DbCatConfig", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := r.Get("Constants.DbCatConfig")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != 1 {
		t.Errorf("expected 1, got %v", value)
	}

	if _, err := r.Get("Constants.Missing"); err == nil {
		t.Error("expected an error for an undefined variable")
	}

	if got := r.GetOrDefault("Constants.Missing", 42); got != 42 {
		t.Errorf("expected the default, got %v", got)
	}

	if !r.Exists("Constants") {
		t.Error("expected the intermediate dictionary to exist")
	}
}

func TestSetRejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Set("", 1); err == nil {
		t.Fatal("expected an error for an empty name")
	}
}

func TestRegisterBuiltinConstants(t *testing.T) {
	r := NewRegistry()
	if err := RegisterBuiltinConstants(r); err != nil {
		t.Fatalf("RegisterBuiltinConstants failed: %v", err)
	}

	cases := []struct {
		name string
		want int
	}{
		{"Constants.DbCatConfig", DbCatConfig},
		{"Constants.DbCatState", DbCatState},
		{"Constants.DbCatEverything", DbCatEverything},
		{"Constants.ServiceOK", ServiceOK},
		{"Constants.ServiceCritical", ServiceCritical},
		{"Constants.HostDown", HostDown},
	}

	for _, tc := range cases {
		value, err := r.Get(tc.name)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", tc.name, err)
		}
		if value != tc.want {
			t.Errorf("expected %s=%d, got %v", tc.name, tc.want, value)
		}
	}
}

func TestCategoryFilterMapCoversEverything(t *testing.T) {
	combined := 0
	for name, value := range CategoryFilterMap {
		if name == "DbCatEverything" {
			continue
		}
		combined |= value
	}

	if combined != DbCatEverything {
		t.Errorf("expected the category bits to combine to DbCatEverything, got %#x", combined)
	}
}

func TestWriteToFile(t *testing.T) {
	r := NewRegistry()
	r.Set("NodeName", "icinga-master")
	r.Set("MaxConcurrentChecks", 512)

	path := filepath.Join(t.TempDir(), "vars")
	if err := r.WriteToFile(path); err != nil {
		t.Fatalf("WriteToFile failed: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open dump: %v", err)
	}
	defer file.Close()

	found := make(map[string]interface{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var record map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("invalid JSON line: %v", err)
		}
		name, _ := record["name"].(string)
		found[name] = record["value"]
	}

	if found["NodeName"] != "icinga-master" {
		t.Errorf("expected NodeName in the dump, got %v", found)
	}
	if found["MaxConcurrentChecks"] != float64(512) {
		t.Errorf("expected MaxConcurrentChecks in the dump, got %v", found)
	}
}
