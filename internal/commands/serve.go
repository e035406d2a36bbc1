package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"aicore/internal/app"
	"aicore/internal/config"
	"aicore/internal/utils"
)

const shutdownTimeout = 30 * time.Second

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and maintenance jobs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Listen port (overrides HTTP_PORT)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port := cmd.String("port"); port != "" {
				cfg.HTTPPort = port
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.Build(ctx, cfg)
			if err != nil {
				return err
			}
			logger := utils.NewLogger("server", utils.ParseLogLevel(cfg.LogLevel))

			server := &http.Server{
				Addr:         ":" + cfg.HTTPPort,
				Handler:      a.Router,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: cfg.AI.RequestTimeout + 30*time.Second,
				IdleTimeout:  120 * time.Second,
			}

			a.Jobs.Start()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("AI core listening", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			var serveErr error
			select {
			case <-ctx.Done():
			case serveErr = <-errCh:
			}

			logger.Info("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", "error", err.Error())
			}
			a.Close(shutdownCtx)

			logger.Info("Server exited")
			return serveErr
		},
	}
}
