package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gunnarbeutner/icinga2/pkg/compiler"
	"github.com/gunnarbeutner/icinga2/pkg/config"
	"github.com/gunnarbeutner/icinga2/pkg/icinga"
	"github.com/gunnarbeutner/icinga2/pkg/scriptglobal"
	"github.com/gunnarbeutner/icinga2/pkg/stores"
	"github.com/gunnarbeutner/icinga2/pkg/telemetry"
	"github.com/gunnarbeutner/icinga2/pkg/workqueue"
)

func newRunCommand() *cobra.Command {
	var (
		snapshotPath string
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Load, commit and activate config items",
		Long: `Load config item declarations, commit them and activate the
resulting objects. The process then keeps running, watching the
modified-attributes file (when configured) and serving metrics.`,
		Example: `  # Run with configs from ./conf.d
  icinga2 run ./conf.d

  # Run with a persistent snapshot store
  icinga2 run --snapshots /var/lib/icinga2/snapshots.db ./conf.d`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			ctx := cmd.Context()

			log, settings, err := loadEnvironment()
			if err != nil {
				return err
			}

			if snapshotPath != "" {
				settings.SnapshotPath = snapshotPath
			}

			var store stores.SnapshotStore
			if settings.SnapshotPath != "" {
				sqliteStore, err := stores.NewSQLiteStore(stores.Config{Path: settings.SnapshotPath})
				if err != nil {
					return err
				}
				if err := sqliteStore.Init(ctx); err != nil {
					return err
				}
				if err := sqliteStore.Migrate(ctx); err != nil {
					return err
				}
				store = sqliteStore
			} else {
				store = stores.NewMemoryStore()
			}
			defer func() { _ = store.Close() }()

			metricsCfg := telemetry.DefaultConfig().Metrics
			if metricsAddr != "" {
				metricsCfg.ListenAddress = metricsAddr
			}
			metrics, err := telemetry.NewMetrics(metricsCfg)
			if err != nil {
				return err
			}

			engine := config.NewEngine(config.EngineOptions{
				Store:    store,
				Settings: settings,
				Logger:   log,
				Metrics:  metrics,
			})

			if err := icinga.RegisterTypes(engine.Types); err != nil {
				return err
			}

			globals := scriptglobal.NewRegistry()
			if err := scriptglobal.RegisterBuiltinConstants(globals); err != nil {
				return err
			}

			scope := engine.OpenScope()
			defer scope.Close()

			comp := compiler.New(engine, log)
			if _, err := comp.CompilePath(path); err != nil {
				return err
			}

			upq := workqueue.NewWorkQueue(settings.WorkQueueDepth, settings.Concurrency)
			upq.SetName("run")
			defer upq.Close()

			var newItems []*config.Item
			if err := engine.CommitItems(scope.Context(), upq, &newItems, false); err != nil {
				return fmt.Errorf("commit failed: %w", err)
			}

			if err := engine.ActivateItems(upq, newItems, false, false, true); err != nil {
				return fmt.Errorf("activation failed: %w", err)
			}

			if err := engine.WatchModAttrs(ctx); err != nil {
				return err
			}

			if err := metrics.StartMetricsServer(); err != nil {
				return err
			}

			log.Info("Engine is running. Press Ctrl+C to stop.")
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshotPath, "snapshots", "", "SQLite snapshot store path (defaults to in-memory)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-listen", "", "metrics listen address")

	return cmd
}
