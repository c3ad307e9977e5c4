// application-service
//
// Application lifecycle engine for the job portal. Serves:
//   - HTTP (chi) for the gateway and admin tooling
//   - gRPC for service-to-service calls
//
// Applications are persisted in postgres, sqlite or memory; resumes on local
// disk or S3. Status changes mail the applicant and, when Redis is configured,
// publish EVENT_APPLICATION_* messages for the gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"jobportal/application-service/internal/blob"
	"jobportal/application-service/internal/config"
	"jobportal/application-service/internal/db"
	"jobportal/application-service/internal/events"
	"jobportal/application-service/internal/grpcserver"
	"jobportal/application-service/internal/httpapi"
	"jobportal/application-service/internal/lifecycle"
	"jobportal/application-service/internal/notify"
	"jobportal/application-service/internal/ratelimit"
	"jobportal/application-service/internal/store/memory"
	"jobportal/application-service/internal/store/postgres"
	"jobportal/application-service/internal/store/seed"
	"jobportal/application-service/internal/store/sqlite"
	"jobportal/application-service/internal/sweeper"
)

const version = "1.0.0"

// backend is what every store driver provides.
type backend interface {
	lifecycle.Store
	lifecycle.Directory
	sweeper.References
	seed.Target
}

type resumeBackend interface {
	lifecycle.ResumeStore
	sweeper.Blobs
}

func main() {
	loadDotEnv()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	logger := slog.Default()

	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[portal] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Store ────────────────────────────────────────────────────────────────
	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[portal] Store: %v", err)
	}
	defer closeStore()
	log.Printf("[portal] Store %s ready ✓", cfg.StoreDriver)

	if cfg.SeedFile != "" {
		n, err := seed.LoadFile(ctx, st, cfg.SeedFile)
		if err != nil {
			log.Fatalf("[portal] Seed: %v", err)
		}
		log.Printf("[portal] Seeded %d users, %d jobs from %s", n.Users, n.Jobs, cfg.SeedFile)
	}

	// ── Resumes ──────────────────────────────────────────────────────────────
	resumes, err := openResumes(ctx, cfg)
	if err != nil {
		log.Fatalf("[portal] Resume storage: %v", err)
	}
	log.Printf("[portal] Resume storage %s ready ✓", cfg.BlobBackend)

	// ── Mail ─────────────────────────────────────────────────────────────────
	var sender notify.Sender = notify.LogSender{Logger: logger}
	if cfg.SMTP.Host != "" {
		sender = &notify.SMTPSender{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}
		log.Printf("[portal] Mail via %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	} else {
		log.Println("[portal] SMTP_HOST not set, mail will be logged only")
	}
	var overrides map[string]notify.Template
	if cfg.TemplatesFile != "" {
		if overrides, err = notify.LoadOverrides(cfg.TemplatesFile); err != nil {
			log.Fatalf("[portal] Templates: %v", err)
		}
	}
	gateway, err := notify.NewGateway(sender, overrides)
	if err != nil {
		log.Fatalf("[portal] Templates: %v", err)
	}

	// ── Redis (optional) ─────────────────────────────────────────────────────
	var (
		publisher lifecycle.EventPublisher
		limiter   lifecycle.Limiter = ratelimit.NewMemory()
		rdb       *redis.Client
	)
	if cfg.RedisURL != "" {
		log.Println("[portal] Connecting to Redis…")
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[portal] Redis: %v", err)
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb)
		limiter = ratelimit.NewRedis(rdb)
		log.Println("[portal] Redis connected ✓")
	}

	svc := lifecycle.NewService(lifecycle.Deps{
		Store:     st,
		Directory: st,
		Resumes:   resumes,
		Notifier:  gateway,
		Events:    publisher,
		Limiter:   limiter,
		Logger:    logger,
	})

	// ── Sweeper ──────────────────────────────────────────────────────────────
	var sw *sweeper.Sweeper
	if cfg.SweepIntervalHours > 0 {
		sw = sweeper.New(resumes, st, cfg.SweepIntervalHours, cfg.SweepGrace)
		if err := sw.Start(ctx); err != nil {
			log.Fatalf("[portal] Sweeper: %v", err)
		}
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: httpapi.NewRouter(httpapi.Deps{
			Service:        svc,
			Directory:      st,
			Logger:         logger,
			RequestTimeout: cfg.RequestTimeout,
			Version:        version,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[portal] v%s HTTP listening on :%s", version, cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[portal] HTTP server error: %v", err)
		}
	}()

	// ── gRPC server ──────────────────────────────────────────────────────────
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatalf("[portal] gRPC listen: %v", err)
	}
	gs := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(logger)))
	grpcserver.Register(gs, grpcserver.NewServer(svc, st))

	go func() {
		log.Printf("[portal] gRPC listening on :%s", cfg.GRPCPort)
		if err := gs.Serve(lis); err != nil {
			log.Fatalf("[portal] gRPC server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[portal] Shutting down…")
	if sw != nil {
		sw.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[portal] Shutdown error: %v", err)
	}
	stopped := make(chan struct{})
	go func() {
		gs.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		gs.Stop()
	}
	cancel()
	log.Println("[portal] Stopped.")
}

func openStore(ctx context.Context, cfg *config.Config) (backend, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		log.Println("[portal] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		st := postgres.New(pool)
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return st, pool.Close, nil
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	default:
		return memory.New(), func() {}, nil
	}
}

func openResumes(ctx context.Context, cfg *config.Config) (resumeBackend, error) {
	if cfg.BlobBackend == config.BlobS3 {
		s3, err := blob.NewS3(ctx, blob.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
	local, err := blob.NewLocalFS(cfg.ResumeDir)
	if err != nil {
		return nil, err
	}
	return local, nil
}

// loadDotEnv loads the nearest .env walking up from the working directory.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for range 5 {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				log.Printf("[portal] .env: %v", err)
			}
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
