package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/warpcall/warpcall/internal/config"
	"github.com/warpcall/warpcall/internal/logging"
	"github.com/warpcall/warpcall/internal/registry"
	"github.com/warpcall/warpcall/internal/relay"
	"github.com/warpcall/warpcall/internal/server"
)

const shutdownTimeout = 10 * time.Second

var (
	flagAddr       string
	flagConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	Long: `Run the signaling relay. Clients connect to /ws; /health and /rooms
expose the current rooms for diagnostics.

Examples:
  warpcall serve
  warpcall serve --addr :8080
  warpcall serve --config relay.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.InitServer()
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	log := logging.Component("relay")

	cfg, err := config.LoadServer(config.ServerOptions{Addr: flagAddr, ConfigPath: flagConfigPath})
	if err != nil {
		return err
	}

	reg := registry.New()
	rl := relay.New(reg, log, relay.Options{
		ReadLimit:  cfg.WebSocket.ReadLimit,
		PongWait:   cfg.WebSocket.PongWait,
		WriteWait:  cfg.WebSocket.WriteWait,
		SendBuffer: cfg.WebSocket.SendBuffer,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(rl, reg, cfg, logging.Component("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("relay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not tracked by the http server.
	rl.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("relay stopped")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagAddr, "addr", "a", "", "Listen address (default :3001)")
	serveCmd.Flags().StringVarP(&flagConfigPath, "config", "c", "", "Path to a YAML config file")
}
