package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"orderflow/batch"
	"orderflow/config"
	"orderflow/enricher"
	"orderflow/generator"
	"orderflow/internal/metrics"
	"orderflow/internal/platform"
	"orderflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	mode := flag.String("mode", "stream", "Run mode: generate, stream or batch")
	records := flag.Int("records", 0, "Number of records to generate (generate mode)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Orderflow.Name,
		"version": cfg.Orderflow.Version,
		"mode":    *mode,
	}).Info("starting orderflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}
	if cfg.Metrics.Region != "" {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace, cfg.Metrics.Dashboard)
	}

	awsConfig, err := platform.NewAWSConfig(ctx, cfg)
	if err != nil {
		log.WithError(err).Error("failed to load AWS configuration")
		os.Exit(1)
	}

	var points platform.PointStore
	if cfg.Stores.DynamoDB.Enabled {
		points = platform.NewDynamoPointStore(cfg, awsConfig)
	}
	var objects platform.ObjectStore
	if cfg.Stores.S3.Enabled {
		objects = platform.NewS3ObjectStore(cfg, awsConfig)
	}

	switch *mode {
	case "generate":
		channel := platform.NewKinesisChannel(cfg, awsConfig)
		gen := generator.New(cfg, channel, points)
		resp := gen.Generate(ctx, *records)
		printJSON(resp)
		if resp.StatusCode != 200 {
			os.Exit(1)
		}

	case "stream":
		if objects == nil {
			log.Error("stream mode requires the object store to be enabled")
			os.Exit(1)
		}
		channel := platform.NewKinesisChannel(cfg, awsConfig)
		enr := enricher.New(cfg, points, objects)
		consumer := enricher.NewConsumer(cfg, channel, enr)
		consumer.Start(ctx)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

		log.Info("starting graceful shutdown")
		cancel()
		consumer.Stop()

	case "batch":
		if objects == nil {
			log.Error("batch mode requires the object store to be enabled")
			os.Exit(1)
		}
		sink := metrics.NewCloudWatchSink(awsConfig, cfg.Metrics.Namespace)
		transformer := batch.New(cfg, objects, sink)
		runMetrics, err := transformer.Run(ctx)
		if err != nil {
			log.WithError(err).Error("batch transformation failed")
			printJSON(runMetrics)
			os.Exit(1)
		}
		printJSON(runMetrics)

	default:
		log.WithFields(logger.Fields{"mode": *mode}).Error("unknown run mode")
		os.Exit(1)
	}

	log.Info("orderflow finished")
}

func printJSON(v interface{}) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(body))
}
