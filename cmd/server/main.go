package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"

	"github.com/nikhathmuzawar/pickplace-app/api/handlers"
	"github.com/nikhathmuzawar/pickplace-app/internal/buffer"
	"github.com/nikhathmuzawar/pickplace-app/internal/command"
	"github.com/nikhathmuzawar/pickplace-app/internal/config"
	"github.com/nikhathmuzawar/pickplace-app/internal/db"
	"github.com/nikhathmuzawar/pickplace-app/internal/inventory"
	"github.com/nikhathmuzawar/pickplace-app/internal/repository"
	"github.com/nikhathmuzawar/pickplace-app/internal/stream"
	"github.com/nikhathmuzawar/pickplace-app/internal/ws"
)

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "config.yaml"), "path to the YAML config file")
	port := flag.Int("port", 0, "listen port (overrides config and PORT)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Initialize database
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Initialize inventory
	deviceRepo := repository.NewDeviceRepository(database)
	inventoryManager := inventory.NewManager(deviceRepo, inventory.Config{
		MaxDevices: cfg.Database.MaxDevices,
	})

	// Initialize relay
	cache := ws.NewStateCache()
	registry := ws.NewRegistry(cache)
	relay := ws.NewRelay(registry, cache)
	frames := buffer.NewFrameBuffer()

	wsHandler := ws.NewHandler(relay, frames, ws.Options{
		WriteWait:            cfg.WebSocket.WriteTimeout,
		PongWait:             cfg.WebSocket.PongTimeout,
		MaxMessageSize:       cfg.WebSocket.MaxMessageSize,
		MaxClientMessageSize: cfg.WebSocket.MaxClientMessageSize,
		SendQueue:            cfg.WebSocket.ClientSendQueue,
		CheckOrigin: func(r *http.Request) bool {
			return cfg.OriginAllowed(r.Header.Get("Origin"))
		},
	})

	gateway := command.NewGateway(relay, cache)
	wsHandler.SetCommandHandler(gateway)

	streamer := stream.NewStreamer(frames, cfg.Stream.Interval)

	// Initialize handlers
	commandHandler := handlers.NewCommandHandler(gateway, frames, streamer)
	deviceHandler := handlers.NewDeviceHandler(inventoryManager)
	socketHandler := handlers.NewWebSocketHandler(wsHandler)

	r := newRouter(cfg, registry, database)
	socketHandler.RegisterRoutes(r)

	api := r.Group("/api")
	{
		commandHandler.RegisterRoutes(api)
		deviceHandler.RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")

		// Hijacked sockets are not tracked by Shutdown, so close them first
		registry.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on %s", cfg.Addr())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newRouter(cfg *config.Config, registry *ws.Registry, database *sql.DB) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(cfg))

	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := database.PingContext(c.Request.Context()); err != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":          status,
			"deviceConnected": registry.HasDevice(),
			"clients":         registry.ClientCount(),
		})
	})

	return r
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// corsMiddleware allows the configured origins.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case cfg.AllowAllOrigins():
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && cfg.OriginAllowed(origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
			"Content-Type", "Content-Length", "Accept-Encoding", "Authorization",
			"accept", "origin", "Cache-Control", "X-Requested-With",
		}, ", "))
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
