package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/grovetools/editorbridge/config"
	"github.com/grovetools/editorbridge/editor"
	"github.com/grovetools/editorbridge/errors"
	"github.com/grovetools/editorbridge/transport/luasurface"
	"github.com/grovetools/editorbridge/transport/nvim"
	"github.com/grovetools/editorbridge/transport/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// bridge is a session together with whatever serves its surface.
type bridge struct {
	Session *editor.Session
	// Transport carries raw scripts typed at the REPL.
	Transport editor.Transport
	// Server is set for the websocket transport.
	Server *websocket.Server
	http   *http.Server
	log    *logrus.Entry
}

// openBridge builds the transport selected by cfg and binds a session to it.
// The websocket transport also starts the HTTP listener the page dials.
func openBridge(cfg *config.Config, listener editor.Listener, log *logrus.Entry) (*bridge, error) {
	dialect, err := editor.ParseDialect(cfg.Surface.Dialect)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid surface dialect")
	}

	b := &bridge{log: log}
	var transport editor.Transport

	switch cfg.Transport.Kind {
	case config.TransportLua:
		script, err := surfaceScript(cfg)
		if err != nil {
			return nil, err
		}
		transport, err = luasurface.New(luasurface.Options{
			Script: script,
			Logger: log.WithField("transport", "lua"),
		})
		if err != nil {
			return nil, err
		}

	case config.TransportNvim:
		script, err := surfaceScript(cfg)
		if err != nil {
			return nil, err
		}
		transport, err = nvim.New(nvim.Options{
			Address: cfg.Transport.Nvim.Address,
			Args:    cfg.Transport.Nvim.Args,
			Script:  script,
			Logger:  log.WithField("transport", "nvim"),
		})
		if err != nil {
			return nil, err
		}

	case config.TransportWebSocket:
		b.Server = websocket.NewServer(websocket.Options{Logger: log.WithField("transport", "websocket")})
		transport = b.Server

	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unknown transport kind %q", cfg.Transport.Kind))
	}

	b.Transport = transport
	b.Session = editor.NewSession(transport, listener,
		editor.WithDialect(dialect),
		editor.WithEvaluateTimeout(cfg.Session.EvaluateTimeout.Std()),
		editor.WithLogger(log),
	)

	if b.Server != nil {
		if err := b.listen(cfg); err != nil {
			_ = b.Session.Close()
			return nil, err
		}
	}
	return b, nil
}

// surfaceScript returns the Lua surface named by the locator, or "" for the
// built-in one.
func surfaceScript(cfg *config.Config) (string, error) {
	if cfg.Surface.Locator == "" {
		return "", nil
	}
	data, err := os.ReadFile(cfg.Surface.Locator)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeConfigInvalid, "cannot read surface script").
			WithDetail("locator", cfg.Surface.Locator)
	}
	return string(data), nil
}

func (b *bridge) listen(cfg *config.Config) error {
	ws := cfg.Transport.WebSocket

	mux := http.NewServeMux()
	mux.Handle(ws.Path, b.Server)
	mux.Handle("/editorbridge.js", websocket.ShimHandler())
	mux.Handle(ws.MetricsPath, promhttp.Handler())
	if cfg.Surface.Locator != "" {
		locator := cfg.Surface.Locator
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			http.ServeFile(w, r, locator)
		})
	}

	b.http = &http.Server{
		Addr:              ws.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := b.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, errors.ErrCodeTransportUnavailable, "cannot listen").
			WithDetail("listen", ws.Listen)
	case <-time.After(100 * time.Millisecond):
	}

	b.log.WithFields(logrus.Fields{
		"listen":  ws.Listen,
		"socket":  ws.Path,
		"metrics": ws.MetricsPath,
	}).Info("Listening for editor surface")
	return nil
}

// waitReady waits for the surface to load within the configured bound.
func (b *bridge) waitReady(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Session.ReadyTimeout.Std())
	defer cancel()
	if err := b.Session.WaitReady(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeTransportUnavailable, "editor surface did not load").
			WithDetail("timeout", cfg.Session.ReadyTimeout.String())
	}
	return nil
}

// Close ends the session and stops the HTTP listener.
func (b *bridge) Close() error {
	err := b.Session.Close()
	if b.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := b.http.Shutdown(ctx); err == nil {
			err = shutdownErr
		}
	}
	return err
}
