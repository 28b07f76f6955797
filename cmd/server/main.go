package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/coop-ledger/internal/app"
	"github.com/segyhp/coop-ledger/internal/config"
	"github.com/segyhp/coop-ledger/internal/handler"
	"github.com/segyhp/coop-ledger/internal/logging"
	"github.com/segyhp/coop-ledger/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.Logging)
	logger.Info("Configuration loaded", "env", cfg.Server.Env, "distribution_basis", cfg.Business.DistributionBasis)

	if cfg.IsProduction() && cfg.Business.ConfirmationPhrase == service.DefaultConfirmationPhrase {
		logger.Warn("YEAR_END_CONFIRMATION_PHRASE is the default; set a deployment-specific phrase")
	}
	if !cfg.IsDevelopment() && !cfg.RateLimit.Enabled {
		logger.Warn("Year-end clear endpoint is not rate limited")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.Any("error", err))
		os.Exit(1)
	}
	defer application.Close()

	router := handler.NewRouter(handler.Handlers{
		Member:      handler.NewMemberHandler(application.Members, logger),
		Loan:        handler.NewLoanHandler(application.Loans, logger),
		Ledger:      handler.NewLedgerHandler(application.Dashboard, application.YearEnd, logger),
		Health:      handler.NewHealthHandler(application.DB, application.RedisPing(), cfg.GetHealthTimeout()),
		RateLimiter: handler.NewRateLimiter(cfg.RateLimit, logger),
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("Server exited")
}
