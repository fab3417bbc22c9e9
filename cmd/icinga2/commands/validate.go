package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gunnarbeutner/icinga2/pkg/compiler"
	"github.com/gunnarbeutner/icinga2/pkg/config"
	"github.com/gunnarbeutner/icinga2/pkg/icinga"
	"github.com/gunnarbeutner/icinga2/pkg/objects"
	"github.com/gunnarbeutner/icinga2/pkg/stores"
	"github.com/gunnarbeutner/icinga2/pkg/telemetry"
	"github.com/gunnarbeutner/icinga2/pkg/workqueue"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate config item declaration files",
		Long: `Validate config item declaration files without activating anything.

This command checks:
  - CUE syntax validity of the declarations
  - Starlark syntax of the object expressions
  - Duplicate definitions
  - Expression evaluation, field validation and cross-references`,
		Example: `  # Validate configs in current directory
  icinga2 validate

  # Validate a specific directory
  icinga2 validate ./conf.d`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			log, settings, err := loadEnvironment()
			if err != nil {
				return err
			}

			engine := config.NewEngine(config.EngineOptions{
				Store:    stores.NewMemoryStore(),
				Settings: settings,
				Logger:   log,
			})

			if err := icinga.RegisterTypes(engine.Types); err != nil {
				return err
			}

			scope := engine.OpenScope()
			defer scope.Close()

			comp := compiler.New(engine, log)
			if _, err := comp.CompilePath(path); err != nil {
				return err
			}

			upq := workqueue.NewWorkQueue(settings.WorkQueueDepth, settings.Concurrency)
			upq.SetName("validate")
			defer upq.Close()

			var newItems []*config.Item
			if err := engine.CommitItems(scope.Context(), upq, &newItems, true); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			counts := make(map[*objects.Type]int)
			for _, item := range newItems {
				if item.Object() == nil {
					continue
				}
				counts[item.Type()]++
			}

			for _, t := range engine.Types.GetAllTypes() {
				if counts[t] == 0 {
					continue
				}
				name := t.Name()
				if counts[t] != 1 {
					name = t.PluralName()
				}
				fmt.Printf("Instantiated %d %s.\n", counts[t], name)
			}

			fmt.Println("Configuration is valid.")
			return nil
		},
	}

	return cmd
}

// loadEnvironment builds the logger and settings shared by commands.
func loadEnvironment() (*telemetry.Logger, config.Settings, error) {
	logCfg := telemetry.DefaultConfig().Logging
	if verbose {
		logCfg.Level = "debug"
	}

	log, err := telemetry.NewLogger(logCfg)
	if err != nil {
		return nil, config.Settings{}, err
	}

	settings := config.DefaultSettings()
	if settingsPath != "" {
		settings, err = config.LoadSettings(settingsPath)
		if err != nil {
			return nil, config.Settings{}, err
		}
	}

	return log, settings, nil
}
