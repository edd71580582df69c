package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"secondbrain/internal/config"
	"secondbrain/internal/db"
	"secondbrain/internal/embedding"
	"secondbrain/internal/llmservice"
	"secondbrain/internal/rag"
	"secondbrain/internal/server"
	"secondbrain/internal/vectorindex"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the configuration file")
	reset := flag.Bool("reset", false, "Delete all documents and chunks, then exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing document store")
	}

	embedder, err := embedding.FromConfig(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating embedder")
	}

	index, err := vectorindex.New(embedder, &cfg.VectorDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector index")
	}

	model, err := llmservice.NewModel(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating LLM client")
	}

	r := rag.NewRAG(store, index, model, &cfg.RAG)

	if *reset {
		res, err := r.ResetAll(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Error resetting storage")
		}
		log.Info().Int("documents", res.Documents).Int("chunks", res.Chunks).Msg("Storage reset")
		return
	}

	srv := server.NewServer(r)
	log.Info().Str("address", cfg.Server.Address).Msg("Starting server")
	if err := http.ListenAndServe(cfg.Server.Address, srv.Handler()); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (db.DocumentStore, error) {
	if cfg.Database.InMemory {
		log.Info().Msg("Using in-memory document store")
		return db.NewMemoryStore(), nil
	}

	sqldb, err := db.ConnectDB(cfg.Database.DSN, cfg.Database.Password)
	if err != nil {
		return nil, err
	}
	bunDB := db.NewDB(sqldb, cfg.Database.Debug)
	if err := db.InitDB(ctx, bunDB); err != nil {
		return nil, err
	}
	return db.NewStore(bunDB), nil
}
