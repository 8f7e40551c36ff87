package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"pos-billing/internal/billing"
	"pos-billing/internal/config"
	apphttp "pos-billing/internal/http"
	"pos-billing/internal/metrics"
	"pos-billing/internal/repository/sqlite"
	"pos-billing/internal/service"
	"pos-billing/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()
	logger.Infof("using database %s", cfg.Database.Path)

	productRepo := sqlite.NewProductRepository(db)
	userRepo := sqlite.NewUserRepository(db)

	if err := productRepo.Init(ctx); err != nil {
		logger.Fatalf("init product repository: %v", err)
	}
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	images, staticDir, staticPrefix, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	if !cfg.Inventory.AllowNegative {
		logger.Info("stock decrements are guarded against negative quantities")
	}

	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost)
	productService := service.NewProductService(productRepo, images, service.ProductOptions{
		AllowNegativeStock: cfg.Inventory.AllowNegative,
		Metrics:            m,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(apphttp.Options{
		Users:          userService,
		Products:       productService,
		Bills:          billing.NewRegistry(cfg.Billing.MaxSessions, cfg.Billing.SessionTTL),
		Metrics:        m,
		Logger:         logger,
		AllowedOrigin:  cfg.Server.AllowedOrigin,
		StaticDir:      staticDir,
		StaticPrefix:   staticPrefix,
		MaxUploadBytes: cfg.Uploads.MaxBytes,
		Currency:       cfg.Billing.Currency,
		AuthRateLimit:  rate.Limit(cfg.Auth.RateLimit),
		AuthRateBurst:  cfg.Auth.RateBurst,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

// buildStorage picks the image store. The local store also returns the
// directory and prefix the router should serve images from.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, string, string, error) {
	if cfg.Storage.Driver != "s3" {
		local, err := storage.NewLocalService(cfg.Uploads.Dir, cfg.Uploads.URLPrefix)
		if err != nil {
			return nil, "", "", err
		}
		logger.Infof("storing images in %s, served under /%s", local.Root(), local.URLPrefix())
		return local, local.Root(), local.URLPrefix(), nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, "", "", fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	svc, err := storage.NewS3Service(client, storage.S3Options{
		Bucket:        cfg.Storage.Bucket,
		KeyPrefix:     cfg.Storage.KeyPrefix,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		return nil, "", "", err
	}
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return svc, "", "", nil
}
