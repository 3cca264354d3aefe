package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	httpctx "github.com/envpass/envpass-server/internal/api/http/context"
	"github.com/envpass/envpass-server/internal/api/http/router"
	httpServer "github.com/envpass/envpass-server/internal/api/http/server"
	"github.com/envpass/envpass-server/internal/config"
	"github.com/envpass/envpass-server/internal/jobs"
	"github.com/envpass/envpass-server/internal/logger"
	"github.com/envpass/envpass-server/internal/model"
	"github.com/envpass/envpass-server/internal/repository/postgres"
	"github.com/envpass/envpass-server/internal/server"
	"github.com/envpass/envpass-server/internal/service"
	"github.com/envpass/envpass-server/internal/token"
	vault "github.com/envpass/envpass-server/internal/vault/minio"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	roomRepo := postgres.NewRoomRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	secretRepo := postgres.NewSecretRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	minioClient, err := minio.New(cfg.Vault.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Vault.AccessKey, cfg.Vault.SecretKey, ""),
		Secure: cfg.Vault.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	vaultClient, err := vault.NewClient(ctx, minioClient, cfg.Vault.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize vault client", "error", err)
	}

	roomTTL := time.Duration(cfg.Rooms.TTLHours) * time.Hour

	identityService := service.NewIdentity(userRepo, logger)
	roomService := service.NewRoom(roomRepo, membershipRepo, secretRepo, auditRepo, db, roomTTL, logger)
	membershipService := service.NewMembership(membershipRepo, roomRepo, auditRepo, db, logger)
	secretService := service.NewSecret(secretRepo, roomRepo, auditRepo, db, logger)
	auditService := service.NewAudit(auditRepo, logger)
	cleanupService := service.NewCleanup(roomRepo, secretRepo, roomService, logger)

	sessions := token.NewParser(cfg.Identity.SessionSecret)
	ctxMgr := httpctx.NewManager()

	r := router.New(identityService, roomService, membershipService, secretService, auditService, sessions, vaultClient, ctxMgr, logger)
	apiServer := httpServer.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	sweeper := jobs.NewCleanupSweeper(cleanupService, vaultClient, cfg.Cleanup.IntervalMinutes, logger.With("component", "cleanup"))

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(apiServer)

	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	sweeper.Stop()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", apiServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
