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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/voxhire/interviewd/api"
	"github.com/voxhire/interviewd/config"
	"github.com/voxhire/interviewd/hub"
	"github.com/voxhire/interviewd/llm"
	"github.com/voxhire/interviewd/policy"
	"github.com/voxhire/interviewd/store"
	"github.com/voxhire/interviewd/tts"
	"github.com/voxhire/interviewd/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting interviewd...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize LLM client; without a gateway fall back to the mock so
	// the service can run end-to-end locally.
	var interviewer llm.Interviewer
	if cfg.LLMGatewayURL != "" {
		interviewer = llm.NewClient(cfg.LLMGatewayURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
		log.Printf("LLM gateway: %s (%s)", cfg.LLMGatewayURL, cfg.LLMModel)
	} else {
		interviewer = llm.NewMockClient()
		log.Printf("WARN: LLM_GATEWAY_URL not set, using mock interviewer")
	}

	// Initialize speech synthesis, optional
	var synthesizer tts.Synthesizer
	if cfg.TTSURL != "" {
		synthesizer = tts.NewClient(cfg.TTSURL, cfg.TTSAPIKey, cfg.TTSVoice, cfg.TTSTimeout)
		log.Printf("TTS: %s (voice %s)", cfg.TTSURL, cfg.TTSVoice)
	} else {
		log.Printf("WARN: TTS_URL not set, questions are text-only")
	}

	// Initialize admission policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize session hub and servers
	sessionHub := hub.NewHub()
	wsServer := ws.NewServer(cfg, sessionHub, interviewer, synthesizer, policyEngine, db)
	apiHandler := api.NewHandler(sessionHub, db)

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Routes
	apiHandler.Register(e)
	e.GET("/ws/interview/:session_id", wsServer.HandleWebSocket)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("interviewd started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down interviewd...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("interviewd stopped")
}
