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

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/petermazzocco/beauty-advisor/internal/analysis"
	"github.com/petermazzocco/beauty-advisor/internal/auth"
	"github.com/petermazzocco/beauty-advisor/internal/config"
	"github.com/petermazzocco/beauty-advisor/internal/database"
	"github.com/petermazzocco/beauty-advisor/internal/feedback"
	"github.com/petermazzocco/beauty-advisor/internal/handlers"
	"github.com/petermazzocco/beauty-advisor/internal/imaging"
	"github.com/petermazzocco/beauty-advisor/internal/logger"
	"github.com/petermazzocco/beauty-advisor/internal/metrics"
	"github.com/petermazzocco/beauty-advisor/internal/photos"
	"github.com/petermazzocco/beauty-advisor/internal/recommendations"
	"github.com/petermazzocco/beauty-advisor/internal/respond"
	"github.com/petermazzocco/beauty-advisor/internal/server"
	"github.com/petermazzocco/beauty-advisor/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("Starting Beauty Advisor API", cfg.LogFields()...)

	// Database connection
	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	store, uploadDir, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	m := metrics.New(cfg.ServiceName)
	inspector := imaging.Inspector{MaxDimension: cfg.Analyzer.MaxDimension}
	analyzer, err := newAnalyzer(cfg.Analyzer, inspector)
	if err != nil {
		return err
	}
	analyzer = analysis.WithObserver(analyzer, cfg.Analyzer.Mode, m.ObserveAnalysis)

	// OAUTH
	if cfg.OAuth.Enabled() {
		auth.SetupOAuth(auth.OAuthConfig{
			GoogleKey:     cfg.OAuth.GoogleKey,
			GoogleSecret:  cfg.OAuth.GoogleSecret,
			CallbackURL:   cfg.OAuth.CallbackURL,
			SessionSecret: cfg.JWT.Secret,
			Secure:        !cfg.Development(),
		})
	}

	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationHours)*time.Hour)
	env := &handlers.Env{
		Auth:            auth.NewService(db, tokens),
		Photos:          photos.NewService(db, store, inspector, cfg.Storage.MaxUploadBytes),
		Recommendations: recommendations.NewService(db, store, analyzer),
		Feedback:        feedback.NewService(db),
		Respond:         respond.Writer{Development: cfg.Development()},
	}

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: server.NewRouter(server.Deps{
			Env:                env,
			DB:                 db,
			Logger:             zapLogger,
			Metrics:            m,
			FrontendURL:        cfg.Server.FrontendURL,
			RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
			UploadDir:          uploadDir,
			OAuth:              cfg.OAuth.Enabled(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info(fmt.Sprintf("Starting API server on :%s", cfg.Server.Port))
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

	zapLogger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	zapLogger.Info("Server exited")
	return nil
}

// openStore returns the photo store and, for the disk backend, the
// directory to serve under /uploads.
func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, string, error) {
	switch cfg.Backend {
	case config.StorageS3:
		s, err := storage.NewS3(ctx, storage.S3Config{
			AccountID:       cfg.AccountID,
			AccessKeyID:     cfg.AccessKeyID,
			AccessKeySecret: cfg.AccessKeySecret,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			Bucket:          cfg.Bucket,
			PublicURL:       cfg.PublicURL,
		})
		return s, "", err
	default:
		d, err := storage.NewDisk(cfg.UploadDir, "/uploads")
		if err != nil {
			return nil, "", err
		}
		return d, cfg.UploadDir, nil
	}
}

func newAnalyzer(cfg config.AnalyzerConfig, resizer analysis.Resizer) (analysis.Analyzer, error) {
	switch cfg.Mode {
	case config.AnalyzerHTTP:
		return analysis.NewHTTPAnalyzer(cfg.URL, cfg.Timeout, resizer), nil
	default:
		return analysis.NewProcessAnalyzer(cfg.Interpreter, cfg.Script, cfg.WorkDir, cfg.Timeout)
	}
}
