package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"karton/pkg/bootstrap"
	"karton/pkg/config"
	"karton/pkg/scan"
	"karton/process/retention"
)

var (
	cfg       *config.Config
	jwtSecret []byte
	app       *bootstrap.Components
	hub       *scan.Hub
)

func main() {
	// Auto-load ./.env if present before reading vars
	loadDotEnv()
	var err error
	cfg, err = config.Load(os.Getenv("KARTON_CONFIG"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Source() != "" {
		log.Printf("config loaded from %s", cfg.Source())
	}
	jwtSecret = []byte(cfg.Auth.JWTSecret)

	// `./karton migrate` runs AutoMigrate and seeding then exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub = scan.NewHub()
	app, err = bootstrap.Build(ctx, cfg, db, nil, hub)
	if err != nil {
		log.Fatalf("build scanner: %v", err)
	}
	go app.Scanner.RunRollover(ctx, time.Second)
	go retention.Run(ctx, app.Store, cfg.Storage.RetentionDays, 6*time.Hour)

	gin.SetMode(cfg.Server.Mode)
	r := gin.Default()
	setupRoutes(r)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}
	go func() {
		<-ctx.Done()
		app.Scanner.Stop()
		app.Scanner.Wait()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("listening addr=%s preset=%s", cfg.Server.Addr, cfg.Scan.Preset)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
