package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/nemotek/counters2mqtt/internal/adapter/actor"
	"github.com/nemotek/counters2mqtt/internal/config"
	"github.com/nemotek/counters2mqtt/internal/core/actor"
	"github.com/nemotek/counters2mqtt/internal/metrics"
	"github.com/nemotek/counters2mqtt/internal/server"
	"github.com/nemotek/counters2mqtt/internal/util/actorutil"
	"github.com/nemotek/counters2mqtt/pkg/energy_counters"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// the server has 5 seconds to finish in-flight requests
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	es := eventstream.NewEventStream()
	mtr := metrics.New()
	metricsSub := mtr.Subscribe(es)
	defer es.Unsubscribe(metricsSub)

	meterProv, err := meterActorProvider(cfg, mtr, logger)
	if err != nil {
		slog.Error("meter setup", "error", err)
		os.Exit(1)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, es, meterProv, mqttActorProvider(cfg, logger), logger)
	}, pactor.WithSupervisor(actor.Supervisor()))
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		slog.Error("spawn master", "error", err)
		os.Exit(1)
	}

	server := server.NewServer(*cfg, ctx, pid, mtr.Handler())
	done := make(chan bool, 1)

	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => COUNTERS_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("COUNTERS_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("counters")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// extra register maps must be registered before meters are validated
	if cfg.ModelsFile != "" {
		models, err := energy_counters.LoadModelsYAML(cfg.ModelsFile)
		if err != nil {
			return nil, fmt.Errorf("models_file: %w", err)
		}
		slog.Info("Loaded models", "file", cfg.ModelsFile, "count", len(models))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// meterActorProvider builds every collector up front so bad meter definitions fail at startup.
func meterActorProvider(cfg *config.Config, mtr *metrics.Metrics, logger *zap.Logger) (actor.MeterActorProvider, error) {

	transport, err := energy_counters.TransportForDriver(cfg.Modbus.Driver)
	if err != nil {
		return nil, err
	}

	collectors := make(map[int]*energy_counters.MeterDataCollector)
	for _, m := range cfg.Meters {
		collector, err := energy_counters.CreateCollectorForModel(m.Model, m.Counter(), m.Connection(),
			transport, logger, mtr.Instrument(m.CounterId))
		if err != nil {
			return nil, fmt.Errorf("meter %d: %w", m.CounterId, err)
		}
		collectors[m.CounterId] = collector
	}

	timeout := cfg.Poll.CollectTimeout()
	return func(counterId int, es *eventstream.EventStream) *adactor.MeterActor {
		return adactor.NewMeterActor(collectors[counterId], es, timeout, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("modbus.driver", "simonvetter")
	viper.SetDefault("poll.interval_millis", 60000)
	viper.SetDefault("poll.collect_timeout_millis", 20000)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "counters")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
