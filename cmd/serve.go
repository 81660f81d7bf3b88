package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/editorbridge/cli"
	"github.com/grovetools/editorbridge/config"
	"github.com/grovetools/editorbridge/logging"
	"github.com/grovetools/editorbridge/tui/toolbar"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the `serve` command
func NewServeCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"serve",
		"Host an editor surface and log its state changes",
	)
	cmd.Long = `Starts a session on the configured transport and keeps it open until
interrupted. With the websocket transport the surface page is served at "/",
the page shim at /editorbridge.js, the surface socket at transport.websocket.path
and Prometheus metrics at transport.websocket.metrics_path.

Every change of the style state under the cursor is logged. Edits to the
configuration file are picked up without a restart.

Examples:
  # Serve the configured surface on another port
  editorbridge serve --listen 127.0.0.1:9000

  # Use a specific configuration file
  editorbridge serve -c ./editorbridge.yml`

	cmd.Flags().String("listen", "", "Override transport.websocket.listen")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, path, err := cli.LoadConfig(cmd)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Transport.WebSocket.Listen = listen
		}
		logging.Configure(cfg)
		log := cli.GetLogger(cmd, "serve")

		tracker := toolbar.NewTracker()
		tracker.OnChange = func(s toolbar.Snapshot) {
			fields := logrus.Fields{"cursor": s.Cursor, "style": toolbar.Describe(s.State)}
			if s.LastLink != nil {
				fields["link"] = s.LastLink.URL
				fields["navigate"] = s.LastLink.Navigate
			}
			log.WithFields(fields).Info("Editor state changed")
		}

		b, err := openBridge(cfg, tracker, log)
		if err != nil {
			return err
		}
		defer b.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if path != "" {
			watcher, err := config.NewWatcher(path, 250*time.Millisecond, log, func(next *config.Config) {
				logging.Configure(next)
				b.Session.SetEvaluateTimeout(next.Session.EvaluateTimeout.Std())
				log.WithField("evaluate_timeout", next.Session.EvaluateTimeout.String()).Info("Applied configuration")
			})
			if err != nil {
				log.WithError(err).Warn("Cannot watch configuration file")
			} else {
				go watcher.Run(ctx)
			}
		}

		// A browser surface may attach at any time, so only the in-process
		// transports must be ready up front.
		if b.Server == nil {
			if err := b.waitReady(ctx, cfg); err != nil {
				return err
			}
			log.WithField("transport", cfg.Transport.Kind).Info("Editor surface ready")
		}

		<-ctx.Done()
		log.Info("Shutting down")
		return nil
	}

	return cmd
}

