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

	"golang.org/x/crypto/bcrypt"

	"scanpos/internal/cache"
	"scanpos/internal/config"
	"scanpos/internal/domain"
	"scanpos/internal/httpapi"
	"scanpos/internal/images"
	"scanpos/internal/records"
	"scanpos/internal/service"
	"scanpos/internal/share"
	"scanpos/internal/store"
	filestore "scanpos/internal/store/file"
	"scanpos/internal/store/memory"
	pgstore "scanpos/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var blobs store.Blobs
	closers := make([]func() error, 0, 2)

	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		blobs = pg
		closers = append(closers, pg.Close)
		log.Println("store: postgres")
	case cfg.DataDir != "":
		fs, err := filestore.New(cfg.DataDir)
		if err != nil {
			log.Fatalf("file store at %s: %v", cfg.DataDir, err)
		}
		blobs = fs
		log.Printf("store: file (%s)", cfg.DataDir)
	default:
		blobs = memory.New()
		log.Println("store: in-memory")
	}

	reportCache := cache.ReportCache(cache.NoopReportCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			reportCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("report cache: redis")
		}
	} else {
		log.Println("report cache: noop")
	}

	imageStore, err := images.New(cfg.ImageDir)
	if err != nil {
		log.Fatalf("image store at %s: %v", cfg.ImageDir, err)
	}
	sink, err := share.NewSink(cfg.ShareDir)
	if err != nil {
		log.Fatalf("share sink at %s: %v", cfg.ShareDir, err)
	}

	recs := records.New(blobs)
	if err := seedUsers(ctx, recs, cfg); err != nil {
		log.Fatalf("seed users: %v", err)
	}

	svc := service.New(recs, imageStore, reportCache, time.Duration(cfg.ReportCacheTTLSeconds)*time.Second)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, recs)
	api := httpapi.New(svc, auth, sink, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}

// seedUsers creates the bootstrap accounts on an empty user store so a fresh
// deployment has a way to log in. Existing stores are never touched.
func seedUsers(ctx context.Context, recs *records.Records, cfg config.Config) error {
	existing, err := recs.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	seeds := []struct {
		username, password, role string
	}{
		{"admin", cfg.SeedAdminPassword, "admin"},
		{"cashier", cfg.SeedCashierPassword, "cashier"},
	}
	for _, seed := range seeds {
		if seed.password == "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if err := recs.CreateUser(ctx, domain.UserAccount{
			Username:  seed.username,
			Password:  string(hash),
			Role:      seed.role,
			Active:    true,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		log.Printf("seeded %s account %q", seed.role, seed.username)
	}
	return nil
}
