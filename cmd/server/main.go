package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jhcramos/urbix-api/internal/aggregator"
	"github.com/jhcramos/urbix-api/internal/arcgis"
	"github.com/jhcramos/urbix-api/internal/buildability"
	"github.com/jhcramos/urbix-api/internal/cache"
	"github.com/jhcramos/urbix-api/internal/config"
	"github.com/jhcramos/urbix-api/internal/database"
	"github.com/jhcramos/urbix-api/internal/handlers"
	"github.com/jhcramos/urbix-api/internal/logger"
	"github.com/jhcramos/urbix-api/internal/metrics"
	"github.com/jhcramos/urbix-api/internal/middleware"
	"github.com/jhcramos/urbix-api/internal/providers"
	"github.com/jhcramos/urbix-api/internal/report"
	"github.com/jhcramos/urbix-api/internal/repository"
	"github.com/jhcramos/urbix-api/internal/resolver"
	"github.com/jhcramos/urbix-api/internal/rules"
	"github.com/jhcramos/urbix-api/internal/scoring"
	"github.com/jhcramos/urbix-api/internal/services"
	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second
	startupTimeout  = 10 * time.Second
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.NewWithLevel(cfg.Server.Env, cfg.Server.LogLevel)
	log.Info("Starting Urbix API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	tables, err := rules.Load()
	if err != nil {
		log.Fatal("Failed to load rule tables", err, nil)
	}

	db := openIndex(cfg.Database, log)
	if db != nil {
		defer db.Close()
	}

	rc := cache.Open(cfg.Redis)
	if rc != nil {
		defer rc.Close()
		log.Info("Provider cache enabled", map[string]interface{}{
			"addr": cfg.Redis.Addr(),
			"ttl":  cfg.Redis.TTL.String(),
		})
	}

	// Remote data providers
	client := arcgis.NewClient(&http.Client{Timeout: cfg.Providers.AuthorityTimeout}, rc, log)
	ep := providers.DefaultEndpoints()
	cadastre := providers.NewCadastre(client, ep)
	agg := aggregator.New(aggregator.Providers{
		Zoning:         providers.NewZoning(client, ep, tables.Overlays.HeightLayer, log),
		Overlays:       providers.NewOverlays(client, ep, tables.Overlays, cfg.Providers.OverlayBatchSize, log),
		Infrastructure: providers.NewInfrastructure(client, ep),
		Applications:   providers.NewApplications(client, ep),
		Flood:          providers.NewFlood(client, ep),
		Constraints:    providers.NewConstraints(client, ep),
		Transport:      providers.NewTransport(client, ep),
	}, cfg.Providers.Timeout, log)

	// Local index tiers. Interfaces stay nil without one so the resolver,
	// rule lookup and stats fall back cleanly.
	var (
		local       resolver.Index
		ruleTable   buildability.RuleTable
		index       services.IndexStats
		dbPinger    handlers.Pinger
		cachePinger handlers.Pinger
	)
	if db != nil {
		repo := repository.NewParcelRepository(db)
		local, ruleTable, index = repo, repo, repo
		dbPinger = db
	}
	if rc != nil {
		cachePinger = rc
	}

	res := resolver.New(local, cadastre, cfg.Providers.AuthorityTimeout, log)

	siteService := services.NewSiteService(services.Deps{
		Resolver:   res,
		Aggregator: agg,
		Rules:      buildability.NewRuleResolver(tables.Zones, ruleTable, cfg.Jurisdiction.DefaultLGA, log),
		Calculator: buildability.NewCalculator(tables.Scoring, log),
		Scorer:     scoring.New(tables.Scoring),
		Composer:   report.NewComposer(tables.Zones, tables.Scoring, providers.NewMapBuilder(ep, tables.Overlays)),
		Index:      index,
	}, log)

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> Metrics -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(dbPinger, cachePinger, res.HasLocalIndex(), cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	siteHandler := handlers.NewSiteHandler(siteService)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", healthHandler.Info)
		v1.GET("/site-report", siteHandler.Report)
		v1.GET("/lookup", siteHandler.Lookup)
		v1.GET("/search", siteHandler.Search)
		v1.GET("/buildability", siteHandler.Buildability)
		v1.GET("/stats", siteHandler.Stats)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port":        cfg.Server.Port,
			"addr":        srv.Addr,
			"local_index": res.HasLocalIndex(),
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}

// openIndex connects to the local parcel index. It returns nil when the
// database is disabled, unreachable or not yet synced; the service then runs
// against the remote authorities alone.
func openIndex(cfg config.DatabaseConfig, log *logger.Logger) *database.Database {
	if !cfg.Enabled {
		log.Info("Local index disabled", nil)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	db, err := database.NewPostgresPool(ctx, cfg)
	if err != nil {
		log.Warn("Local index unavailable, using remote authorities only", map[string]interface{}{
			"host":  cfg.Host,
			"port":  cfg.Port,
			"name":  cfg.Name,
			"error": err.Error(),
		})
		return nil
	}

	ok, err := db.HasParcels(ctx)
	if err != nil || !ok {
		fields := map[string]interface{}{"database": cfg.Name}
		if err != nil {
			fields["error"] = err.Error()
		}
		log.Warn("Local index is empty, using remote authorities only", fields)
		db.Close()
		return nil
	}

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Host,
		"port":     cfg.Port,
		"database": cfg.Name,
		"pool_min": cfg.PoolMin,
		"pool_max": cfg.PoolMax,
	})
	return db
}
