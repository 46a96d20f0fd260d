// Package main is the prediction service's daemon entry point: it wires
// every collaborator explicitly (no DI framework, no reflection), starts
// the training dispatcher consumer, the staleness-sweep ticker, and the
// order-event consumer as background goroutines, and waits for SIGINT or
// SIGTERM to shut down, grounded on cli/root.go's runServer startup and
// graceful-shutdown sequence.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"eve.evalgo.org/api"
	"eve.evalgo.org/internal/audit"
	"eve.evalgo.org/internal/cache"
	"eve.evalgo.org/internal/config"
	"eve.evalgo.org/internal/datasetstore"
	"eve.evalgo.org/internal/dispatcher"
	"eve.evalgo.org/internal/events"
	"eve.evalgo.org/internal/features"
	"eve.evalgo.org/internal/lifecycle"
	"eve.evalgo.org/internal/lineage"
	"eve.evalgo.org/internal/modelstore"
	"eve.evalgo.org/internal/obslog"
	"eve.evalgo.org/internal/obsmetrics"
	"eve.evalgo.org/internal/pipeline"
	"eve.evalgo.org/internal/registry"
	"eve.evalgo.org/security"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := obsmetrics.New("mlsvc")

	registryDB, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("connect model registry database: %v", err)
	}
	registryStore := registry.NewStore(registryDB)
	if err := registryStore.Migrate(); err != nil {
		log.Fatalf("migrate model registry: %v", err)
	}

	auditPool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("connect audit log database: %v", err)
	}
	defer auditPool.Close()
	auditLog := audit.NewLog(auditPool)
	if err := auditLog.Migrate(ctx); err != nil {
		log.Fatalf("migrate audit log: %v", err)
	}

	cacheAdapter, err := cache.NewRedisCache(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
	if err != nil {
		log.Fatalf("connect cache: %v", err)
	}

	artifactStore, err := modelstore.NewS3Store(ctx, modelstore.S3Config{
		Endpoint:     cfg.S3.Endpoint,
		Region:       cfg.S3.Region,
		Bucket:       cfg.S3.Bucket,
		AccessKey:    cfg.S3.AccessKey,
		SecretKey:    cfg.S3.SecretKey,
		UsePathStyle: cfg.S3.UsePathStyle,
	})
	if err != nil {
		log.Fatalf("connect artifact store: %v", err)
	}

	datasetStore, err := datasetstore.NewStore(ctx, datasetstore.Config{
		URL:      cfg.Couch.URL,
		Database: cfg.Couch.Database,
		Username: cfg.Couch.Username,
		Password: cfg.Couch.Password,
	})
	if err != nil {
		log.Fatalf("connect dataset store: %v", err)
	}
	defer datasetStore.Close()

	lineageGraph, err := lineage.NewGraph(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
	if err != nil {
		obslog.Logger.WithError(err).Warn("lineage graph unavailable, provenance recording disabled")
		lineageGraph = nil
	} else {
		defer lineageGraph.Close(ctx)
	}

	printTimeHandler := pipeline.PrintTimeHandler{}
	demandForecastHandler := pipeline.DemandForecastHandler{}
	modelCache := modelstore.NewModelCache(artifactStore, dispatchingDeserializer(printTimeHandler, demandForecastHandler))

	predictionPipeline := pipeline.New(registryStore, cacheAdapter, modelCache, auditLog, config.FamilyTTLs(), metrics)
	predictionPipeline.Register(printTimeHandler)
	predictionPipeline.Register(demandForecastHandler)

	dispatchQueue, err := dispatcher.NewQueue(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
	if err != nil {
		log.Fatalf("connect dispatcher queue: %v", err)
	}
	defer dispatchQueue.Close()

	lifecycleManager := lifecycle.New(registryStore, cacheAdapter, dispatchQueue, metrics)
	trainer := newStubTrainer()
	var lineageRecorder dispatcher.LineageRecorder
	if lineageGraph != nil {
		lineageRecorder = lineageGraph
	}
	dispatchConsumer := dispatcher.NewConsumer(dispatchQueue, registryStore, datasetStore, trainer, artifactStore, lifecycleManager, lineageRecorder, metrics)
	go dispatchConsumer.Run(ctx)
	go lifecycleManager.RunSweepForever(ctx, cfg.Dispatcher.SweepInterval)
	go pollQueueDepth(ctx, dispatchQueue, metrics, 30*time.Second)

	amqpConn, err := (events.RealAMQPDialer{}).Dial(cfg.AMQP.URL)
	if err != nil {
		log.Fatalf("connect to broker: %v", err)
	}
	defer amqpConn.Close()
	amqpChannel, err := amqpConn.Channel()
	if err != nil {
		log.Fatalf("open broker channel: %v", err)
	}
	if _, err := amqpChannel.QueueDeclare(cfg.AMQP.QueueName, true, false, false, false, nil); err != nil {
		log.Fatalf("declare order queue: %v", err)
	}

	eventConsumer, err := events.NewConsumer(
		amqpChannel,
		cfg.AMQP.QueueName,
		datasetStore,
		dispatchQueue,
		registryStore,
		productFamilyResolver,
		parseHolidays(cfg.Events.Holidays),
		cfg.Events.RetrainThreshold,
		metrics,
	)
	if err != nil {
		log.Fatalf("construct event consumer: %v", err)
	}
	go func() {
		if err := eventConsumer.Run(ctx); err != nil {
			obslog.Logger.WithError(err).Error("event consumer stopped")
		}
	}()

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	api.SetupRoutes(e, &api.Handlers{
		Pipeline:  predictionPipeline,
		JWT:       security.NewJWTService(cfg.HTTP.JWTSecret),
		JWTSecret: cfg.HTTP.JWTSecret,
	})
	go func() {
		if err := e.Start(":" + cfg.HTTP.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	obslog.Logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		obslog.Logger.WithError(err).Error("HTTP server shutdown error")
	}
	cancel()
}

// dispatchingDeserializer builds the single modelstore.Deserializer the
// ModelCache requires, switching on family to each handler's own
// deserializer.
func dispatchingDeserializer(printTime pipeline.PrintTimeHandler, demandForecast pipeline.DemandForecastHandler) modelstore.Deserializer {
	printTimeDeserialize := printTime.Deserializer()
	demandForecastDeserialize := demandForecast.Deserializer()
	return func(artifact []byte, family string) (any, error) {
		switch family {
		case printTime.Family():
			return printTimeDeserialize(artifact, family)
		case demandForecast.Family():
			return demandForecastDeserialize(artifact, family)
		default:
			return nil, fmt.Errorf("no deserializer registered for family %q", family)
		}
	}
}

// productFamilyResolver maps a line item's product id to a prediction
// family by prefix. "PT-" products are 3D-printed parts billed by print
// time; everything else falls back to demand forecasting, which applies
// to every product regardless of manufacturing process.
func productFamilyResolver(productID string) string {
	if strings.HasPrefix(productID, "PT-") {
		return "PrintTime"
	}
	return "DemandForecast"
}

func parseHolidays(dates []string) features.Holidays {
	h := make(features.Holidays, len(dates))
	for _, d := range dates {
		h[d] = true
	}
	return h
}

// pollQueueDepth samples the training job queue's depth on a fixed
// interval and reports it as a gauge; the dispatcher consumer loop only
// sees one job at a time and has no natural point to report depth from.
func pollQueueDepth(ctx context.Context, queue *dispatcher.Queue, metrics *obsmetrics.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := queue.Depth(ctx)
			if err != nil {
				obslog.Logger.WithError(err).Warn("failed to sample dispatcher queue depth")
				continue
			}
			metrics.SetDispatcherQueueDepth(int(depth))
		}
	}
}
