package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"github.com/voicelog/product-identity/app/catalog"
	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/app/patterns"
	"github.com/voicelog/product-identity/app/registry"
	"github.com/voicelog/product-identity/app/templates"
	"github.com/voicelog/product-identity/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Server.Port
		}

		db, err := openDB()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var cache registry.Cache
		if cfg.Redis.Enabled {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			defer client.Close()
			if err := client.Ping(ctx).Err(); err != nil {
				common.LogWarn("redis unavailable, registry cache disabled", zap.Error(err))
			} else {
				cache = registry.NewRedisCache(client, cfg.Registry.CacheTTL)
			}
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      newMux(db, cache),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				common.LogError("server shutdown failed", zap.Error(err))
			}
		}()

		common.LogInfo("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		common.LogInfo("server stopped")
		return nil
	},
}

func newMux(db *gorm.DB, cache registry.Cache) *http.ServeMux {
	catalogRepo := models.NewCatalogRepository(db)
	registryRepo := models.NewRegistryRepository(db)
	eventsRepo := models.NewEventsRepository(db)
	templatesRepo := models.NewTemplatesRepository(db)

	catalogMatcher := catalog.NewMatcher(catalogRepo, cfg)
	registryMatcher := registry.NewMatcher(registryRepo, cache, cfg.Registry)
	detector := patterns.NewDetector(eventsRepo, templatesRepo, cfg.Patterns)
	voice := templates.NewVoiceMatcher(templatesRepo, cfg.Templates)

	catalogHandler := catalog.NewCatalogHandler(catalogMatcher, catalogMatcher.Conflicts())
	registryHandler := registry.NewRegistryHandler(registryMatcher)
	patternHandler := patterns.NewPatternHandler(detector)
	templateHandler := templates.NewTemplateHandler(templatesRepo, detector, voice)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /catalog/match", catalogHandler.HandleMatch)
	mux.HandleFunc("GET /barcodes/{code}/validate", catalogHandler.HandleValidateBarcode)
	mux.HandleFunc("GET /barcodes/{code}/conflict", catalogHandler.HandleConflict)
	mux.HandleFunc("POST /barcodes/{code}", catalogHandler.HandleLinkBarcode)

	mux.HandleFunc("POST /users/{user}/registry", registryHandler.HandleRecord)
	mux.HandleFunc("POST /users/{user}/registry/lookup", registryHandler.HandleLookup)

	mux.HandleFunc("GET /users/{user}/patterns", patternHandler.HandleGet)

	mux.HandleFunc("GET /users/{user}/templates", templateHandler.HandleGetAll)
	mux.HandleFunc("GET /users/{user}/templates/{id}", templateHandler.HandleGet)
	mux.HandleFunc("POST /users/{user}/templates", templateHandler.HandleCreate)
	mux.HandleFunc("POST /users/{user}/templates/match", templateHandler.HandleMatch)

	return mux
}

func init() {
	serveCmd.Flags().Int("port", 0, "Listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
