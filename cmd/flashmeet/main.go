package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"flashmeet/internal/alert"
	"flashmeet/internal/chat"
	"flashmeet/internal/config"
	"flashmeet/internal/crash"
	"flashmeet/internal/handler"
	"flashmeet/internal/logger"
	"flashmeet/internal/push"
	"flashmeet/internal/queue"
	"flashmeet/internal/service"
	"flashmeet/internal/storage"
)

func main() {
	// Define command line flags
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging first
	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	// Initialize database
	if err := storage.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("Database connection established")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services and repositories
	service.Initialize(cfg)
	service.InitRepositories()
	handler.Initialize(cfg)

	// Push gateway client
	service.SetPushSender(push.NewClient(cfg.Push.Endpoint, cfg.Push.Timeout))

	// Moderation alert channel (optional)
	notifier, err := alert.NewNotifier(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize alert notifier: %v", err)
	}
	service.SetAlertNotifier(notifier)

	// Redis backs the chat backplane and the task queue
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warningf("Redis unreachable at startup: %v", err)
	}

	// Chat hub
	hub := chat.NewHub(rdb)
	crash.SafeGoroutine("chat-hub", func() {
		hub.Run(ctx)
	})

	// Background queue: the window-opener enqueues fan-out tasks, the
	// worker executes them as the system caller.
	queueClient := queue.NewClient(cfg)
	defer queueClient.Close()
	service.SetNotifyQueue(queueClient)

	worker := queue.NewServer(cfg)
	worker.Register(queue.TaskChatOpenNotify, func(ctx context.Context, payload []byte) error {
		var p queue.ChatOpenPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		_, _, err := service.NotifyChatOpen(ctx, p.MeetupID, "")
		if errors.Is(err, service.ErrNotFound) {
			// deleted before the task ran, nothing to notify
			return nil
		}
		return err
	})
	if err := worker.Start(); err != nil {
		log.Fatalf("Failed to start queue worker: %v", err)
	}

	// Periodic lifecycle jobs
	service.StartReconciler(ctx)

	// HTTP server
	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: handler.NewRouter(hub),
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.Server.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Create a channel for receiving OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for signal
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down...", sig)

	cancel()
	worker.Shutdown()

	// Gracefully shutdown server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Server gracefully stopped")
}
