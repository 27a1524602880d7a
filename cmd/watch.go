package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/sectionforge/sectionforge/internal/builder"
	"github.com/sectionforge/sectionforge/internal/config"
	"github.com/sectionforge/sectionforge/internal/devserver"
	"github.com/sectionforge/sectionforge/internal/section"
	"github.com/sectionforge/sectionforge/internal/watch"
)

var watchDebounceFlag int
var watchServeFlag bool
var watchPortFlag int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build, then rebuild on file changes",
	Long: `Run a full build, then watch <source>/sections and rebuild or remove
outputs as files change, until interrupted. With --serve, a websocket
live-reload endpoint announces every dispatched batch.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		b := builder.New(cfg.Source, cfg.Dist,
			section.Compiler{MinifyScripts: cfg.MinifyScripts}, log)

		// Failed sections are already logged per-section; keep watching
		// so the next change can fix them.
		if err := b.FullBuild(); err != nil {
			log.Warn("initial build finished with failures", "error", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(),
			syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eg, ctx := errgroup.WithContext(ctx)

		var notifier watch.Notifier
		if cfg.ServeEnabled {
			srv := devserver.New(cfg.ServePort, log)
			notifier = srv
			eg.Go(func() error {
				return srv.Run(ctx)
			})
		}

		eg.Go(func() error {
			return watch.Run(ctx, b, watch.Config{
				Root:     cfg.Source,
				Exclude:  cfg.Exclude,
				Debounce: cfg.Debounce,
				Notifier: notifier,
			}, log)
		})

		return eg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	configureWatchFlags(watchCmd)
}

func configureWatchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&watchDebounceFlag, "debounce",
		int(watch.DefaultDebounce/time.Millisecond), "event settle window in milliseconds")
	bindFlagToConfig(cmd.Flags().Lookup("debounce"), config.DebounceMSKey)

	cmd.Flags().BoolVar(&watchServeFlag, "serve",
		viper.GetBool(config.ServeEnabledKey), "run the websocket live-reload server")
	bindFlagToConfig(cmd.Flags().Lookup("serve"), config.ServeEnabledKey)

	cmd.Flags().IntVarP(&watchPortFlag, "port", "p",
		viper.GetInt(config.ServePortKey), "live-reload server port")
	bindFlagToConfig(cmd.Flags().Lookup("port"), config.ServePortKey)
}
