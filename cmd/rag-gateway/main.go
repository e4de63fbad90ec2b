package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/andrew/topic-rag/pkg/classify"
	"github.com/andrew/topic-rag/pkg/config"
	"github.com/andrew/topic-rag/pkg/embedding"
	"github.com/andrew/topic-rag/pkg/index"
	"github.com/andrew/topic-rag/pkg/invoke"
	"github.com/andrew/topic-rag/pkg/llm"
	"github.com/andrew/topic-rag/pkg/query"
	"github.com/andrew/topic-rag/pkg/retrieve"
	"github.com/andrew/topic-rag/pkg/server"
	"github.com/andrew/topic-rag/pkg/storage"
	"github.com/andrew/topic-rag/pkg/synth"
	"github.com/andrew/topic-rag/pkg/vector"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to the bootstrap config file")
	initParams = flag.Bool("init", false, "Seed default pipeline parameters and exit")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

// defaultParameters seed a working configuration for a fresh deployment. The
// prompts carry every placeholder the stages substitute.
var defaultParameters = map[string]string{
	config.ParamClassificationPrompt: "You are a topic classifier. Given the question: {question}\n" +
		"Choose the single best matching topic from: {topics}.\n" +
		"Answer with JSON in exactly this form: {string}",
	config.ParamResponsePrompt: "Answer the question using only the documents below.\n\n" +
		"<documents>{documents}\n</documents>\n\nQuestion: {question}",
	config.ParamTopics:         "[general]",
	config.ParamChunkSize:      "1000",
	config.ParamChunkOverlap:   "100",
	config.ParamEmbedBatchSize: "8",
	config.ParamDocumentsCount: "3",
	config.ParamTemperature:    "0",
	config.ParamMaxTokens:      "512",
}

func main() {
	flag.Parse()
	_ = godotenv.Load()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.LoadBootstrap(*configPath)
	if err != nil {
		logger.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	params := config.NewRedisStore(redisClient, cfg.AppName)

	if *initParams {
		for name, value := range defaultParameters {
			if err := params.Put(ctx, name, value); err != nil {
				logger.Fatalf("seeding parameter %s: %v", name, err)
			}
		}
		logger.Infof("seeded %d default parameters for app %s", len(defaultParameters), cfg.AppName)
		return
	}

	settings, err := config.LoadSettings(ctx, params)
	if err != nil {
		logger.Fatalf("loading settings: %v (run with -init to seed defaults)", err)
	}

	store, err := vector.NewQdrantStore(cfg.Qdrant.Host, cfg.Qdrant.Port)
	if err != nil {
		logger.Fatalf("connecting to vector store: %v", err)
	}
	defer store.Close()

	timeout := time.Duration(cfg.Ollama.TimeoutSecs) * time.Second
	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.URL, cfg.Ollama.EmbedModel, timeout)
	if err != nil {
		logger.Fatalf("creating embedder: %v", err)
	}
	model := llm.NewOllamaClient(cfg.Ollama.GenerateModel, cfg.Ollama.URL+"/api", timeout)

	storageClient, err := storage.NewClient(cfg.Storage, logger)
	if err != nil {
		logger.Fatalf("connecting to object storage: %v", err)
	}

	pipeline, err := index.NewPipeline(store, embedder, storageClient, settings, cfg.Ollama.EmbedDimension, logger)
	if err != nil {
		logger.Fatalf("building pipeline: %v", err)
	}

	classifier := classify.NewClassifier(model, settings, logger)

	// The retrieval and synthesis stages run in-process unless the config
	// points them at remote deployments.
	invoker := invoke.NewInvoker(timeout)
	var retriever query.RetrieverStage = retrieve.NewRetriever(store, embedder, settings, logger)
	if cfg.Functions.Retriever != "" {
		retriever = invoke.NewRemoteRetriever(invoker, cfg.Functions.Retriever)
	}
	var synthesizer query.SynthesizerStage = synth.NewSynthesizer(model, settings, logger)
	if cfg.Functions.Response != "" {
		synthesizer = invoke.NewRemoteSynthesizer(invoker, cfg.Functions.Response)
	}

	srv := server.New(server.Config{
		Orchestrator: query.NewOrchestrator(classifier, retriever, synthesizer, logger),
		Retriever:    retriever,
		Synthesizer:  synthesizer,
		Params:       params,
		Pipeline:     pipeline,
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Infof("rag gateway listening on %s", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("server shutdown failed: %v", err)
	}
}
