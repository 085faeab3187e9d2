package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/tiltmaze/backend/internal/api"
	"github.com/tiltmaze/backend/internal/config"
	"github.com/tiltmaze/backend/internal/database"
	"github.com/tiltmaze/backend/internal/game"
	"github.com/tiltmaze/backend/internal/migrations"
	"github.com/tiltmaze/backend/internal/redis"
	"github.com/tiltmaze/backend/internal/ws"
)

func setupLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
}

func main() {
	// Initialize configuration (.env is optional)
	cfg := config.Load()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres is optional; without it win history is not kept
	var db *sqlx.DB
	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			log.Println("[MIGRATE] Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL, migrations.DefaultDir); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
		conn, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer conn.Close()
		db = conn
	} else {
		log.Println("[DB] DATABASE_URL not set; win history disabled")
	}

	// Redis is optional; without it there are no snapshots or cross-instance relay
	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()
		rdb = client
	} else {
		log.Println("[REDIS] REDIS_URL not set; snapshots and relay disabled")
	}

	recorder := game.NewRecorder(db, rdb, cfg)
	hub := ws.NewHub(ctx, cfg, recorder)
	if rdb != nil {
		bridge := ws.NewBridge(rdb, hub)
		hub.SetBridge(bridge)
		bridge.Start(ctx)
	}

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	api.SetupRoutes(router, db, rdb, cfg, hub, recorder)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithFields(log.Fields{
			"port":   cfg.Port,
			"mode":   cfg.AuthorityMode,
			"tickHz": cfg.TickHz,
		}).Info("Starting tilt maze server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// requestLogger logs each request through logrus.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("[HTTP] request")
	}
}
