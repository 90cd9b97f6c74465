package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/svdberg/tapwacht/internal/backup"
	"github.com/svdberg/tapwacht/internal/database"
	"github.com/svdberg/tapwacht/internal/email"
	"github.com/svdberg/tapwacht/internal/logging"
	"github.com/svdberg/tapwacht/internal/middleware"
	"github.com/svdberg/tapwacht/internal/push"
	"github.com/svdberg/tapwacht/internal/server"
)

func main() {
	genKeys := flag.Bool("generate-vapid-keys", false, "print a fresh VAPID key pair and exit")
	terminal := flag.String("issue-terminal-token", "", "print a token for the named bar terminal and exit")
	terminalLocation := flag.Int64("terminal-location", 0, "location id for -issue-terminal-token")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if *genKeys {
		public, private, err := push.GenerateVAPIDKeys()
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate VAPID keys:", err)
			os.Exit(1)
		}
		fmt.Printf("TAPWACHT_VAPID_PUBLIC_KEY=%s\nTAPWACHT_VAPID_PRIVATE_KEY=%s\n", public, private)
		return
	}
	if *terminal != "" {
		secret := os.Getenv("TAPWACHT_TERMINAL_SECRET")
		if secret == "" {
			fmt.Fprintln(os.Stderr, "TAPWACHT_TERMINAL_SECRET is not set")
			os.Exit(1)
		}
		token, err := middleware.IssueTerminalToken([]byte(secret), *terminal, *terminalLocation, 365*24*time.Hour)
		if err != nil {
			fmt.Fprintln(os.Stderr, "issue terminal token:", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	logger := logging.Setup(envOr("TAPWACHT_LOG_LEVEL", "info"), envOr("TAPWACHT_LOG_FORMAT", "text"))

	port := envOr("TAPWACHT_PORT", "8080")
	dbPath := envOr("TAPWACHT_DB_PATH", "tapwacht.db")

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", dbPath)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		Domain:          envOr("TAPWACHT_DOMAIN", "localhost"),
		SecureCookies:   envBool("TAPWACHT_SECURE_COOKIES"),
		TerminalSecret:  []byte(os.Getenv("TAPWACHT_TERMINAL_SECRET")),
		VAPIDPublicKey:  os.Getenv("TAPWACHT_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("TAPWACHT_VAPID_PRIVATE_KEY"),
		PushSubscriber:  envOr("TAPWACHT_VAPID_SUBSCRIBER", "mailto:beheer@vestingbar.nl"),
	}

	var emailClient *email.Client
	if token := os.Getenv("POSTMARK_SERVER_TOKEN"); token != "" {
		emailClient = email.NewClient(token, envOr("POSTMARK_FROM_EMAIL", "noreply@vestingbar.nl"))
	}

	backupCfg := backup.Config{
		S3: backup.S3Config{
			Endpoint:  os.Getenv("TAPWACHT_S3_ENDPOINT"),
			Bucket:    os.Getenv("TAPWACHT_S3_BUCKET"),
			Region:    envOr("TAPWACHT_S3_REGION", "auto"),
			AccessKey: os.Getenv("TAPWACHT_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("TAPWACHT_S3_SECRET_KEY"),
		},
		DBPath:        dbPath,
		Passphrase:    os.Getenv("TAPWACHT_BACKUP_PASSPHRASE"),
		ScheduleHour:  envInt("TAPWACHT_BACKUP_HOUR", 3),
		RetentionDays: envInt("TAPWACHT_BACKUP_RETENTION_DAYS", 30),
	}

	srv := server.New(db, cfg, emailClient, backupCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.BackupManager().Start(ctx)
	if sched := srv.PushScheduler(); sched != nil {
		sched.Start(ctx)
	}

	go cleanupLoop(ctx, srv, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	cancel()
	srv.BackupManager().Stop()
	if sched := srv.PushScheduler(); sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}

// cleanupLoop prunes expired sessions and stale rate limiter entries hourly.
func cleanupLoop(ctx context.Context, srv *server.Server, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := srv.SessionStore().DeleteExpired(ctx)
			if err != nil {
				logger.Error("session cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("expired sessions removed", "count", n)
			}
			srv.RateLimiter().Cleanup()
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
