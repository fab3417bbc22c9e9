package objects

import "fmt"

// DebugInfo records the source location a config item was declared at.
type DebugInfo struct {
	Path        string `json:"path"`
	FirstLine   int    `json:"first_line"`
	FirstColumn int    `json:"first_column"`
	LastLine    int    `json:"last_line"`
	LastColumn  int    `json:"last_column"`
}

// IsEmpty reports whether no source location has been recorded.
func (di DebugInfo) IsEmpty() bool {
	return di.Path == ""
}

// String renders the location the way it appears in error messages.
func (di DebugInfo) String() string {
	if di.IsEmpty() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s: %d:%d-%d:%d", di.Path, di.FirstLine, di.FirstColumn, di.LastLine, di.LastColumn)
}

// Tuple returns the 5-tuple form used by persisted snapshot records.
func (di DebugInfo) Tuple() []interface{} {
	return []interface{}{di.Path, di.FirstLine, di.FirstColumn, di.LastLine, di.LastColumn}
}
