package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MegaGrindStone/gemini-web-ui/internal/handlers"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; plain environment variables work too.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatal(err)
	}

	llm, err := cfg.llm(logger)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Mock {
		logger.Info("Mock mode enabled; upstream provider is ignored")
	}

	m := handlers.NewMain(llm, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           m.Handler(cfg.AllowedOrigin),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("Server error", slog.String("err", err.Error()))

	case sig := <-shutdown:
		logger.Info("Start shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String("err", err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String("err", err.Error()))
			}
		}
	}
}
