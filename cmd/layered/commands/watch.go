package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jmolner/layered/internal/logging"
	"github.com/jmolner/layered/settings"
)

var watchMetricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the document chain and log every reload",
	Long: `Load the settings, watch every document in the extends chain, and log
each successful reload. A reload that fails to load keeps the previous
settings live. With --metrics-addr, reload counters are served on
/metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		log := logging.GetLogger("cli.watch")

		metrics := settings.NewWatcherMetrics(prometheus.DefaultRegisterer, fileFlag)
		watcher, err := settings.NewWatcher(settings.WatcherConfig{
			FilePath: fileFlag,
			Options:  opts,
			Metrics:  metrics,
		}, func(s *settings.Settings) error {
			log.Info().
				Str("profile", s.Profile()).
				Strs("sources", s.Sources()).
				Bool("debug", s.Debug()).
				Msg("settings active")
			return nil
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return watcher.Stop()
		})
		if watchMetricsAddr != "" {
			srv := &http.Server{
				Addr:              watchMetricsAddr,
				Handler:           promhttp.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			g.Go(func() error {
				log.Info().Str("addr", watchMetricsAddr).Msg("serving metrics")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "",
		"Address to serve Prometheus metrics on (empty disables)")
}
