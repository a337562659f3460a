// Command rowpage is the entry point for the row-driven HTML page server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"rowpage/config"
	"rowpage/database"
	"rowpage/internal/httpapi"
	"rowpage/internal/obs"
	"rowpage/internal/render"
)

func main() {
	if err := obs.SetupLogger(obs.DefaultLogConfig()); err != nil {
		fmt.Fprintln(os.Stderr, "failed to set up logger:", err)
		os.Exit(1)
	}

	projectRoot := findProjectRoot()
	log.Info().Str("project_root", projectRoot).Msg("starting rowpage server")

	configPath := filepath.Join(projectRoot, "config.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Bool("debug", cfg.Server.Debug).
		Msg("configuration loaded")

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close()

	db := database.GetDB()

	store, err := render.NewStore(db, cfg.Render.CompiledCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build template store")
	}

	ctx := context.Background()
	log.Info().Msg("loading all templates into the store...")
	if err := store.LoadAll(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load templates")
	}

	scheduler := obs.NewTemplateReloadScheduler(store)
	if err := scheduler.Start(ctx, cfg.Render.ReloadIntervalSec); err != nil {
		log.Warn().Err(err).Msg("failed to start template reload scheduler")
	}

	templateDir := config.TemplateDirPath(projectRoot)
	watcher := render.NewWatcher(store, templateDir)
	if err := watcher.Start(ctx); err != nil {
		log.Warn().Err(err).Str("dir", templateDir).Msg("template directory watcher not started")
		watcher = nil
	}

	adminUser := getEnvOr("ADMIN_USER", "admin")
	adminPasswordHash := os.Getenv("ADMIN_PASSWORD_HASH")
	if adminPasswordHash == "" {
		log.Warn().Msg("ADMIN_PASSWORD_HASH not set; the admin API is unreachable until it is configured")
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("auth.jwt_secret not set; admin tokens cannot be issued or verified")
	}

	resolver := httpapi.NewDBQueryResolver(db)

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(cfg, db, store, resolver, adminUser, adminPasswordHash)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	scheduler.Stop()
	if watcher != nil {
		watcher.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func getEnvOr(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// findProjectRoot looks for the directory holding config.yaml: first the
// parent of the executable's directory, then the working directory's
// parent, then the working directory itself.
func findProjectRoot() string {
	const configFile = "config.yaml"

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Dir(filepath.Dir(execPath))
		if fileExists(filepath.Join(candidate, configFile)) {
			return candidate
		}
	}

	cwd, _ := os.Getwd()
	candidates := []string{filepath.Dir(cwd), cwd}
	for _, candidate := range candidates {
		if fileExists(filepath.Join(candidate, configFile)) {
			return candidate
		}
	}

	return cwd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
