package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/moments/internal/client"
	"github.com/jon4hz/moments/internal/router"
	"github.com/jon4hz/moments/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the moments web front end",
	Long:  `Start the moments web front end. The persisted session is restored before the first page is served.`,
	Example: `moments serve --config config.yml
moments serve -c /path/to/config.yml --log-level debug
`,
	Run: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, store, st := openSession(ctx)
	defer st.Close() //nolint:errcheck

	if user := store.CurrentUser(); user != nil {
		log.Info("restored session", "user_id", user.ID, "username", user.Username)
	}

	paths := router.PathsFromConfig(cfg.Routes)
	r := router.New(router.DefaultRoutes(paths))
	router.NewGuard(store, paths).Register(r)

	c := client.New(cfg.API, store, r, paths.Login, nil)

	server, err := web.New(cfg.Listen, r, c, paths, log.GetLevel() == log.DebugLevel)
	if err != nil {
		log.Fatalf("failed to create web server: %v", err)
	}

	go func() {
		log.Info("starting web server", "listen", cfg.Listen, "api", cfg.API.BaseURL)
		if err := server.Run(); err != nil {
			log.Error("web server error", "error", err)
			cancel()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	log.Info("moments started successfully")
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down web server", "error", err)
	}
}
