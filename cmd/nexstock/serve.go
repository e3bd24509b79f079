package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"NexStock/internal/inventory"
	"NexStock/pkg/kit"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the inventory API and dashboard server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := inventory.NewMetrics(reg)

			e, err := loadEnv(cmd.Context(), opts, metrics)
			if err != nil {
				return err
			}
			defer e.close()

			svc := inventory.NewService(e.store, metrics)
			if err := svc.RefreshMetrics(cmd.Context()); err != nil {
				e.log.Warn("initial metrics refresh failed", zap.Error(err))
			}

			s := &inventory.Server{
				Service: svc,
				Log:     e.log,
				Static:  inventory.NewStatic(e.cfg.Frontend.Dir),
			}
			if rl := e.cfg.RateLimit; rl.WritesPerMinute > 0 {
				s.WriteLimiter = kit.NewIPRateLimiter(rl.WritesPerMinute, rl.Burst)
			}

			h := inventory.NewHandler(s, inventory.HTTPDeps{
				Log:            e.log,
				Service:        e.cfg.App.Name,
				Registry:       reg,
				MetricsEnabled: e.cfg.Metrics.Enabled,
				MetricsToken:   e.cfg.Metrics.Token,
			})

			e.log.Info("inventory store ready",
				zap.String("driver", e.cfg.Store.Driver),
				zap.String("frontend", e.cfg.Frontend.Dir),
			)

			return kit.RunHTTPServer(e.cfg.Server.Addr(), h, e.log, kit.ServerOptions{
				ReadHeaderTimeout: e.cfg.Server.ReadHeaderTimeout,
				ShutdownTimeout:   e.cfg.Server.ShutdownTimeout,
			})
		},
	}
}
