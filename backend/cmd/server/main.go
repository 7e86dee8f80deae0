package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"attendtrack/backend/internal/assistant"
	"attendtrack/backend/internal/cache"
	"attendtrack/backend/internal/gateway"
	"attendtrack/backend/internal/identity"
	"attendtrack/backend/internal/notify"
	"attendtrack/backend/internal/records"
	"attendtrack/backend/internal/shared"
	"attendtrack/backend/internal/teacher"
)

func main() {
	log.Println("INFO: Starting attendtrack service...")

	shared.LoadEnv("")
	config, err := shared.LoadAppConfig()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}
	config.PrintConfig()

	// 1. Stores
	var (
		recordStore  records.Store
		profileStore teacher.ProfileStore
		mongoClient  *mongo.Client
	)
	switch config.StoreBackend {
	case "memory":
		log.Println("WARNING: using in-memory stores; data is lost on restart")
		recordStore = records.NewMemoryStore()
		profileStore = teacher.NewMemoryProfileStore()
	default:
		client, db, err := shared.ConnectMongoDB(&config.MongoDB)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		mongoClient = client

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := shared.EnsureIndexes(ctx, db); err != nil {
			log.Printf("WARNING: index creation failed: %v", err)
		}
		cancel()

		recordStore = records.NewMongoStore(db)
		profileStore = teacher.NewMongoProfileStore(db)
	}

	// 2. Services
	recordService := records.NewService(recordStore)
	teacherService := teacher.NewService(profileStore, recordService)

	deps := &gateway.Deps{
		Config:   config,
		Verifier: identity.NewJWTVerifier(config.Security.JWTSecret, config.Security.JWTIssuer),
		Teachers: teacherService,
		Records:  recordService,
		Notify: notify.NewClient(notify.Config{
			APIURL:             config.WhatsApp.APIURL,
			APIToken:           config.WhatsApp.APIToken,
			DefaultCountryCode: config.WhatsApp.DefaultCountryCode,
			RequestTimeout:     config.WhatsApp.RequestTimeout,
			MaxRetries:         config.WhatsApp.MaxRetries,
			BulkSendDelay:      config.WhatsApp.BulkSendDelay,
		}),
		Assistant: assistant.NewClient(assistant.Config{
			APIURL:         config.Gemini.APIURL,
			APIKey:         config.Gemini.APIKey,
			RequestTimeout: config.Gemini.RequestTimeout,
			MaxRetries:     config.Gemini.MaxRetries,
		}),
		Cache: cache.NewSummaryCache(config.Redis.Addr, config.Redis.SummaryCacheTTL),
	}
	if mongoClient != nil {
		deps.HealthCheck = func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		}
	}

	// 3. Router and Server
	router := gateway.SetupRoutes(deps)
	server := &http.Server{
		Addr:         ":" + config.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. Start Server in a Goroutine
	go func() {
		log.Printf("INFO: listening on port %s", config.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	// 5. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARNING: server shutdown: %v", err)
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Printf("WARNING: mongo disconnect: %v", err)
		}
	}
	log.Println("INFO: stopped.")
}
