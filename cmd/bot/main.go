package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/lumivoice/chat-attention/internal/adapters"
	"github.com/lumivoice/chat-attention/internal/config"
	"github.com/lumivoice/chat-attention/internal/models"
	"github.com/lumivoice/chat-attention/internal/pipeline"
	"github.com/lumivoice/chat-attention/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting chat attention bot")

	// Pick the response pipeline: webhook when configured, otherwise an
	// in-process channel drained by a logging consumer
	var pipe pipeline.ResponsePipeline
	var channelPipe *pipeline.ChannelPipeline
	if cfg.WebhookURL != "" {
		pipe = pipeline.NewWebhookPipeline(cfg.WebhookURL)
	} else {
		channelPipe = pipeline.NewChannelPipeline(64)
		pipe = channelPipe
	}

	// Initialize the aggregation service
	aggregationService := service.New(cfg, pipe)

	// Register inbound adapters
	aggregationService.RegisterAdapter(adapters.NewStreamRelayAdapter(cfg.RelayURL))
	if cfg.EnableSimulatedAdapter {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		aggregationService.RegisterAdapter(adapters.NewSimulatedAdapter(cfg.SimulatedMessageInterval, rng))
	}

	if err := aggregationService.Start(); err != nil {
		logrus.Fatalf("Failed to start aggregation service: %v", err)
	}
	defer aggregationService.Stop()

	// Without a webhook target, log emitted decisions locally
	if channelPipe != nil {
		go func() {
			for decision := range channelPipe.Decisions() {
				logrus.Infof("Decision %s: respond to %s@%s (%s, total %.2f)",
					decision.ID, decision.Message.Author.Username,
					decision.Message.Platform, decision.Score.Level, decision.Score.Total)
			}
		}()
	}

	// Set up HTTP server for health checks, status, and ingestion
	router := mux.NewRouter()

	// Health check endpoint
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Observability endpoint
	router.HandleFunc("/status", statusHandler(aggregationService)).Methods("GET")

	// Inbound ingestion for adapters that speak HTTP instead of the relay
	router.HandleFunc("/ingest", ingestHandler(aggregationService)).Methods("POST")

	// Manual processing-cycle trigger (for testing)
	router.HandleFunc("/trigger", triggerHandler(aggregationService)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func statusHandler(aggregationService *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(aggregationService.Status()); err != nil {
			logrus.Errorf("Failed to encode status: %v", err)
		}
	}
}

func ingestHandler(aggregationService *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg models.ChatMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			http.Error(w, `{"error":"invalid message payload"}`, http.StatusBadRequest)
			return
		}

		if err := aggregationService.Ingest(msg); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusUnprocessableEntity)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"accepted"}`))
	}
}

func triggerHandler(aggregationService *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go aggregationService.RunCycle()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"processing cycle triggered"}`))
	}
}
