package main

import (
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/ssehub/ssehub"
	"github.com/ssehub/ssehub/admin"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		heartbeat time.Duration
		cors      string
		emitRate  time.Duration
		emitBurst int64
		noAdmin   bool
		metrics   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the push hub",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []ssehub.ServerOption{
				ssehub.WithHeartbeatInterval(heartbeat),
			}
			if cors != "" {
				opts = append(opts, ssehub.WithCORSAllowOrigin(cors))
			}
			if emitRate > 0 {
				opts = append(opts, ssehub.WithEmitRateLimit(emitRate, emitBurst))
			}
			if noAdmin {
				opts = append(opts, ssehub.WithDisableAdminEndpoints())
			}
			if metrics {
				opts = append(opts, ssehub.WithMetrics(nil))
			}

			s, err := ssehub.NewServer(opts...)
			if err != nil {
				return err
			}
			defer s.Shutdown()

			mux := http.NewServeMux()
			mux.Handle("/admin/", admin.AdminHandler(s))
			mux.Handle("/", s)

			srv := &http.Server{
				Addr:    addr,
				Handler: mux,
				// streams are long-lived on purpose; no write timeout
				ReadHeaderTimeout: 10 * time.Second,
			}
			log.Printf("ssehubd listening on %s", addr)
			return srv.ListenAndServe()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8111", "listen address")
	cmd.Flags().DurationVar(&heartbeat, "heartbeat", 15*time.Second, "keep-alive ping interval for streams")
	cmd.Flags().StringVar(&cors, "cors-origin", "", "Access-Control-Allow-Origin header value (empty disables)")
	cmd.Flags().DurationVar(&emitRate, "emit-fill", 0, "emit throttle token refill interval (0 disables)")
	cmd.Flags().Int64Var(&emitBurst, "emit-burst", 100, "emit throttle bucket capacity")
	cmd.Flags().BoolVar(&noAdmin, "no-admin", false, "disable the /admin monitoring surface")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "expose Prometheus metrics at /metrics")

	return cmd
}
