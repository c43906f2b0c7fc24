package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsdash/bonus-engine/internal/api"
	"github.com/opsdash/bonus-engine/internal/config"
	"github.com/opsdash/bonus-engine/internal/service"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bonus HTTP API",
	Long: `Starts the HTTP server exposing bonus queries, cache statistics and
admin cache invalidation. Configuration comes from config.yaml and BONUS_*
environment variables; flags override both.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}

	svc, err := service.NewBonusService(
		service.WithRedisConfig(cfg.RedisAddr()),
		service.WithSourceConfig(cfg.Source.Backend, cfg.Source.DSN),
		service.WithLogging(cfg.Logging),
	)
	if err != nil {
		return fmt.Errorf("failed to create bonus service: %w", err)
	}
	if err := svc.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize bonus service: %w", err)
	}
	defer svc.Stop()

	router := api.NewRouter(api.NewHandler(svc))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on http://%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}
