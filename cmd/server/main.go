package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"liyu1981.xyz/plant-care-service/pkg/common"
	"liyu1981.xyz/plant-care-service/pkg/config"
	"liyu1981.xyz/plant-care-service/pkg/db"
	"liyu1981.xyz/plant-care-service/pkg/engine"
	"liyu1981.xyz/plant-care-service/pkg/events"
	plantGrpc "liyu1981.xyz/plant-care-service/pkg/grpc"
	plantHttp "liyu1981.xyz/plant-care-service/pkg/http"
	"liyu1981.xyz/plant-care-service/pkg/influx"
	"liyu1981.xyz/plant-care-service/pkg/metrics"
	"liyu1981.xyz/plant-care-service/pkg/mqtt"
	"liyu1981.xyz/plant-care-service/pkg/species"
)

const defaultTickInterval = time.Minute

func main() {
	var err error

	err = godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file, copy .env.example to .env first if in development")
	}

	plantDbType := os.Getenv(common.EnvKeyPlantDBType)
	if plantDbType != "file" && plantDbType != "memory" {
		log.Fatal("Unknown PLANT_DB_TYPE: " + plantDbType)
	}
	dbInstance := db.GetInstance(db.UseDialectorFromEnv())

	grpcHostPort := strings.TrimSpace(os.Getenv(common.EnvKeyPlantGrpcHostPort))
	httpHostPort := strings.TrimSpace(os.Getenv(common.EnvKeyPlantHttpHostPort))

	var defaultRate float64
	var defaultBurst int64

	if defaultRate, err = strconv.ParseFloat(os.Getenv(common.EnvKeyPlantDefaultRate), 64); err != nil {
		log.Fatal("Invalid PLANT_DEFAULT_RATE, or not set in .env, should be a float64 value")
	}

	if defaultBurst, err = strconv.ParseInt(os.Getenv(common.EnvKeyPlantDefaultBurst), 10, 64); err != nil {
		log.Fatal("Invalid PLANT_DEFAULT_BURST, or not set in .env, should be an int value")
	}

	tickInterval := defaultTickInterval
	if v := strings.TrimSpace(os.Getenv(common.EnvKeyPlantTickInterval)); v != "" {
		if tickInterval, err = time.ParseDuration(v); err != nil || tickInterval <= 0 {
			log.Fatal("Invalid PLANT_TICK_INTERVAL, should be a positive duration like 1m")
		}
	}

	logger := common.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector("plantcare", nil)
	dispatcher := events.NewDispatcher()
	opts := engine.Options{
		Dispatcher:   dispatcher,
		Metrics:      collector,
		KeepReadings: true,
	}

	var sinks []*events.AsyncSink
	subscribe := func(sink events.Sink) {
		async := events.NewAsyncSink(sink, 0, collector.RecordDrop)
		dispatcher.SubscribeAll(async.Handler())
		sinks = append(sinks, async)
	}
	subscribe(collector)

	if host := strings.TrimSpace(os.Getenv(common.EnvKeyPlantMqttHost)); host != "" {
		port, err := strconv.Atoi(os.Getenv(common.EnvKeyPlantMqttPort))
		if err != nil {
			log.Fatal("Invalid PLANT_MQTT_PORT, should be an int value")
		}
		client, err := mqtt.Connect(ctx, mqtt.Config{
			Host:     host,
			Port:     port,
			User:     os.Getenv(common.EnvKeyPlantMqttUser),
			Password: os.Getenv(common.EnvKeyPlantMqttPassword),
			ClientID: os.Getenv(common.EnvKeyPlantMqttClientID),
		})
		if err != nil {
			// irrigation events are still logged, nothing is actuated
			logger.Error("MQTT unavailable, running without actuator", zap.Error(err))
		} else {
			publisher := mqtt.NewPublisher(client, "")
			opts.Actuator = publisher
			subscribe(publisher)
		}
	}

	if url := strings.TrimSpace(os.Getenv(common.EnvKeyPlantInfluxURL)); url != "" {
		influxClient, sink := influx.Open(influx.Config{
			URL:           url,
			Token:         os.Getenv(common.EnvKeyPlantInfluxToken),
			Org:           os.Getenv(common.EnvKeyPlantInfluxOrg),
			Bucket:        os.Getenv(common.EnvKeyPlantInfluxBucket),
			FlushInterval: 5 * time.Second,
		})
		defer influxClient.Close()
		defer sink.Flush()
		subscribe(sink)
	}

	if url := strings.TrimSpace(os.Getenv(common.EnvKeyPlantSpeciesURL)); url != "" {
		opts.Species = species.NewHTTPSource(species.HTTPSourceOptions{BaseURL: url, Retries: 2})
	}

	core := engine.New(dbInstance, opts)
	core.WithServices(engine.ServiceOpts{
		Reading:    core.GetIReading(),
		Config:     core.GetIConfig(),
		Query:      core.GetIQuery(),
		Irrigation: core.GetIIrrigation(),
	})
	defer core.Close()

	if path := strings.TrimSpace(os.Getenv(common.EnvKeyPlantConfigPath)); path != "" {
		snap, err := config.LoadSnapshotFile(path)
		if err != nil {
			log.Fatalf("failed to load %s: %v", path, err)
		}
		if err := core.Config.ApplySnapshot(snap); err != nil {
			log.Fatalf("failed to apply %s: %v", path, err)
		}
		logger.Info("Snapshot applied", zap.String("path", path), zap.String("version", snap.Version))
	} else if restored, err := core.ApplyStoredSnapshot(); err != nil {
		log.Fatalf("failed to restore stored snapshot: %v", err)
	} else if !restored {
		logger.Warn("No snapshot configured, waiting for PUT /config")
	}

	for _, s := range sinks {
		s.Start(ctx)
		defer s.Close()
	}

	if grpcHostPort != "" {
		plantGrpcServer := plantGrpc.PlantCareServer{
			Engine:           core,
			RateLimiterStore: engine.NewRateLimiterStore(rate.Limit(defaultRate), int(defaultBurst)),
		}
		interceptor := plantGrpcServer.CreateRateLimitInterceptor([]string{
			plantGrpc.MethodPostReading,
			plantGrpc.MethodGetStates,
		})
		s := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
		plantGrpc.RegisterPlantCareServer(s, &plantGrpcServer)
		logger.Info("gRPC server created with:",
			zap.String("default_limiter",
				fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", defaultRate, defaultBurst)))

		listener, err := net.Listen("tcp", grpcHostPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}

		go func() {
			logger.Info("start gRPC server on " + grpcHostPort)
			if err := s.Serve(listener); err != nil {
				logger.Error("grpc server failed to serve", zap.Error(err))
			}
		}()
		defer s.GracefulStop()
	}

	if httpHostPort == "" {
		// fallback to default http port
		httpHostPort = ":1080"
	}

	if common.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	rs := &plantHttp.RestfulServer{
		Server:           gin.Default(),
		Engine:           core,
		RateLimiterStore: engine.NewRateLimiterStore(rate.Limit(defaultRate), int(defaultBurst)),
		Metrics:          collector,
		MetricsHandler:   promhttp.Handler(),
		JwtSecret:        []byte(os.Getenv(common.EnvKeyPlantJwtSecret)),
	}
	rs.Setup()

	logger.Info("http server created with:",
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", defaultRate, defaultBurst)))

	server := &http.Server{Addr: httpHostPort, Handler: rs.Server}
	go func() {
		logger.Info("Starting HTTP server on: " + httpHostPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed to serve: %v", err)
		}
	}()

	logger.Info("Starting tick loop", zap.Duration("interval", tickInterval))
	core.Run(ctx, tickInterval)

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server forced to shutdown", zap.Error(err))
	}
}
