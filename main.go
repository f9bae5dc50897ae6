package main

import (
	"context"
	"time"

	"github.com/RigelNana/docvault/config"
	"github.com/RigelNana/docvault/database"
	"github.com/RigelNana/docvault/events"
	"github.com/RigelNana/docvault/handler"
	"github.com/RigelNana/docvault/models"
	"github.com/RigelNana/docvault/pkg/metrics"
	"github.com/RigelNana/docvault/repository"
	"github.com/RigelNana/docvault/router"
	"github.com/RigelNana/docvault/service"
	"github.com/RigelNana/docvault/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const staleReservationAge = 24 * time.Hour

func autoMigrate(db *gorm.DB) {
	if err := db.AutoMigrate(
		&models.Document{},
		&models.DocumentVersion{},
		&models.Permission{},
		&models.DownloadToken{},
	); err != nil {
		logrus.Fatalf("auto migrate failed: %v", err)
	}
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig()
	db := database.InitDB(cfg)
	autoMigrate(db)

	documentRepo := repository.NewDocumentRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	var blobs storage.BlobStore
	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinioStore(cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to init MinIO store: %v", err)
		}
		blobs = store
	} else {
		log.Warn("MinIO endpoint not configured, presigned staging/download URLs disabled")
	}

	publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer publisher.Close()

	permissionService := service.NewPermissionService(permissionRepo, documentRepo)
	ledgerService := service.NewLedgerService(versionRepo, documentRepo)
	catalogService := service.NewCatalogService(documentRepo, versionRepo, permissionService, publisher)
	tokenService := service.NewTokenService(tokenRepo, versionRepo, catalogService, permissionService, cfg.Token.MaxTTL, cfg.Token.DefaultTTL)
	uploadService := service.NewUploadService(ledgerService, catalogService, permissionService, versionRepo, blobs, publisher)

	metrics.StartMetricsServer(cfg.Server.MetricsPort)
	log.Infof("metrics server listening on :%s", cfg.Server.MetricsPort)

	go runSweeper(log, tokenService, ledgerService, cfg.Token.SweepInterval)

	r := router.Setup(
		handler.NewUploadHandler(uploadService),
		handler.NewDocumentHandler(catalogService, ledgerService, permissionService),
		handler.NewPermissionHandler(permissionService),
		handler.NewTokenHandler(tokenService, versionRepo, blobs, cfg.Server.BaseURL),
		cfg.Server.JWTSecret,
	)

	log.Infof("docvault listening on :%s", cfg.Server.HTTPPort)
	if err := r.Run(":" + cfg.Server.HTTPPort); err != nil {
		log.Fatalf("serve error: %v", err)
	}
}

// runSweeper 周期清理过期凭证和被放弃的上传预留;
// 删除可交换,和自身并发执行也安全
func runSweeper(log *logrus.Logger, tokens service.TokenService, ledger service.LedgerService, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

		if count, err := tokens.CleanupExpired(ctx, time.Now()); err != nil {
			log.Errorf("token sweep failed: %v", err)
		} else if count > 0 {
			log.WithField("deleted", count).Info("expired download tokens removed")
		}

		if count, err := ledger.CleanupStaleReservations(ctx, staleReservationAge); err != nil {
			log.Errorf("stale reservation sweep failed: %v", err)
		} else if count > 0 {
			log.WithField("deleted", count).Info("stale upload reservations removed")
		}

		cancel()
	}
}
