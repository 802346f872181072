package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poems/internal/config"
	"github.com/snappy-loop/poems/internal/handlers"
	"github.com/snappy-loop/poems/internal/kafka"
	"github.com/snappy-loop/poems/internal/llm"
	"github.com/snappy-loop/poems/internal/orchestrator"
	"github.com/snappy-loop/poems/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting Poems API")

	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; every generation will fail")
	}
	llmClient := llm.NewClient(
		cfg.GeminiAPIKey, cfg.GeminiAPIEndpoint,
		cfg.GeminiModelText, cfg.GeminiModelImage, cfg.GeminiModelTTS, cfg.GeminiTTSVoice,
		cfg.GeminiCallTimeout,
	)
	defer llmClient.Close()

	var events orchestrator.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicEvents)
		defer producer.Close()
		events = producer
	} else {
		log.Info().Msg("KAFKA_BROKERS not set; lifecycle events disabled")
	}

	var h *handlers.Handler
	orch := orchestrator.New(llmClient, events, cfg.MaxIdeaLength)
	if cfg.S3Bucket != "" {
		storageClient, err := storage.NewClient(
			cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket,
			cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3PublicURL, cfg.S3URLExpiry,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize storage client")
		}
		h = handlers.NewHandler(orch, storageClient)
	} else {
		log.Info().Msg("S3_BUCKET not set; card publishing disabled")
		h = handlers.NewHandler(orch, nil)
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/catalog", h.Catalog).Methods("GET")
	api.HandleFunc("/poems", h.SubmitPoem).Methods("POST")
	api.HandleFunc("/poems/ws", h.PoemsWS).Methods("GET")
	api.HandleFunc("/poems/current", h.CurrentPoem).Methods("GET")
	api.HandleFunc("/poems/current/narration", h.RequestNarration).Methods("POST")
	api.HandleFunc("/poems/current/narration/pause", h.PauseNarration).Methods("POST")
	api.HandleFunc("/poems/current/narration/ended", h.NarrationEnded).Methods("POST")
	api.HandleFunc("/poems/current/export", h.ExportCard).Methods("GET")
	api.HandleFunc("/poems/current/export", h.PublishCard).Methods("POST")

	// WriteTimeout does not apply to hijacked websocket connections.
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API...")
	// Closing the orchestrator first ends websocket streams, which Shutdown does not wait for.
	orch.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("API exited")
}
