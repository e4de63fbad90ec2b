package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/andrew/topic-rag/pkg/config"
	"github.com/andrew/topic-rag/pkg/embedding"
	"github.com/andrew/topic-rag/pkg/index"
	"github.com/andrew/topic-rag/pkg/models"
	"github.com/andrew/topic-rag/pkg/storage"
	"github.com/andrew/topic-rag/pkg/vector"
)

var (
	configPath = flag.String("config", "config.yaml", "Path to the bootstrap config file")
	replay     = flag.Bool("replay", false, "Re-index the bucket contents and exit instead of watching for changes")
	prefix     = flag.String("prefix", "", "Key prefix to replay (with -replay)")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
)

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

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		fmt.Println("\nShutting down...")
		cancel()
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	settings, err := config.LoadSettings(ctx, config.NewRedisStore(redisClient, cfg.AppName))
	if err != nil {
		logger.Fatalf("loading settings: %v (seed parameters with rag-gateway -init)", err)
	}

	store, err := vector.NewQdrantStore(cfg.Qdrant.Host, cfg.Qdrant.Port)
	if err != nil {
		logger.Fatalf("connecting to vector store: %v", err)
	}
	defer store.Close()

	embedder, err := embedding.NewOllamaEmbedder(cfg.Ollama.URL, cfg.Ollama.EmbedModel, time.Duration(cfg.Ollama.TimeoutSecs)*time.Second)
	if err != nil {
		logger.Fatalf("creating embedder: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.Storage, logger)
	if err != nil {
		logger.Fatalf("connecting to object storage: %v", err)
	}

	pipeline, err := index.NewPipeline(store, embedder, storageClient, settings, cfg.Ollama.EmbedDimension, logger)
	if err != nil {
		logger.Fatalf("building pipeline: %v", err)
	}

	if *replay {
		if err := replayBucket(ctx, pipeline, storageClient, cfg.Storage.Bucket, *prefix); err != nil {
			logger.Fatalf("replay failed: %v", err)
		}
		return
	}

	watchBucket(ctx, pipeline, storageClient, cfg.Storage.Bucket, logger)
}

// replayBucket feeds every existing object under the prefix through the
// pipeline as if it had just been created.
func replayBucket(ctx context.Context, pipeline *index.Pipeline, client *storage.Client, bucket, prefix string) error {
	keys, err := client.ListKeys(ctx, bucket, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No objects to index.")
		return nil
	}

	events := make([]models.StorageEvent, len(keys))
	for i, key := range keys {
		events[i] = models.StorageEvent{Kind: models.EventCreated, Bucket: bucket, Key: key}
	}

	outcomes := pipeline.ProcessBatch(ctx, events)
	printOutcomes(outcomes)
	return nil
}

// watchBucket processes change notifications until interrupted.
func watchBucket(ctx context.Context, pipeline *index.Pipeline, client *storage.Client, bucket string, logger *logrus.Logger) {
	fmt.Printf("Watching bucket %s for changes...\n", bucket)
	for batch := range client.Listen(ctx, bucket) {
		logger.WithField("events", len(batch)).Info("processing notification batch")
		printOutcomes(pipeline.ProcessBatch(ctx, batch))
	}
}

func printOutcomes(outcomes []index.Outcome) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	for _, outcome := range outcomes {
		switch {
		case outcome.Error != "":
			fmt.Printf("%s %s: %s\n", red("✗"), outcome.Error, outcome.Message)
		case outcome.Action == index.ActionDeleteIndex:
			fmt.Printf("%s removed index %s\n", green("✓"), outcome.Topic)
		case outcome.Action == index.ActionDeleteDocument:
			fmt.Printf("%s removed %d chunks of %s from %s\n", green("✓"), outcome.Count, outcome.URL, outcome.Topic)
		default:
			fmt.Printf("%s indexed %s/%s into %s (%d chunks)\n", green("✓"), outcome.Bucket, outcome.Key, outcome.Topic, outcome.Indexed)
		}
	}
}
