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

	"github.com/joho/godotenv"

	restctx "github.com/classhub/classhub-server/internal/api/rest/context"
	"github.com/classhub/classhub-server/internal/api/rest/router"
	httpserver "github.com/classhub/classhub-server/internal/api/rest/server"
	"github.com/classhub/classhub-server/internal/config"
	"github.com/classhub/classhub-server/internal/logger"
	"github.com/classhub/classhub-server/internal/mailer"
	"github.com/classhub/classhub-server/internal/model"
	"github.com/classhub/classhub-server/internal/repository/postgres"
	"github.com/classhub/classhub-server/internal/server"
	"github.com/classhub/classhub-server/internal/service"
	"github.com/classhub/classhub-server/internal/token"
)

// auditBufferSize bounds the queue of informational audit events awaiting
// the background writer.
const auditBufferSize = 256

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	// A local .env overrides nothing in the real environment; absence is fine.
	_ = godotenv.Load()

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

	accountRepo := postgres.NewAccountRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL)

	var mail model.Mailer
	if cfg.SMTP.Enabled {
		smtp, err := mailer.NewSMTP(cfg.SMTP, logger)
		if err != nil {
			logger.Fatal("failed to create mail client", "error", err)
		}
		mail = smtp
	} else {
		mail = mailer.NewNoop(logger)
	}

	auditService := service.NewAudit(auditRepo, logger, auditBufferSize)
	authService := service.NewAuth(accountRepo, auditService, tokenManager, mail, logger, cfg.Auth)
	usersService := service.NewUsers(accountRepo, auditService, logger)
	ctxMgr := restctx.NewManager()

	httpServer := registerHTTPServer(authService, usersService, auditService, accountRepo, tokenManager, db, ctxMgr, cfg, logger)

	var sl model.SecurityLayer

	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()

	// Drain queued audit events after the last request has finished.
	auditService.Close()

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

func registerHTTPServer(
	authService *service.Auth,
	usersService *service.Users,
	auditService *service.Audit,
	accounts model.AccountStore,
	tokens model.TokenManager,
	db *postgres.Connection,
	ctxMgr model.ContextManager,
	cfg *config.Config,
	logger *logger.Logger,
) *httpserver.HTTPServer {
	r := router.New(authService, usersService, auditService, accounts, tokens, db, ctxMgr, cfg.Rate, logger)
	h := r.Register()

	return httpserver.NewHTTPServer(h, fmt.Sprintf(":%s", cfg.HTTP.Port), cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
}
