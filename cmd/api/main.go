package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/cc301wb2mqtt/internal/adapter/actor"
	"github.com/berfenger/cc301wb2mqtt/internal/config"
	"github.com/berfenger/cc301wb2mqtt/internal/core/actor"
	"github.com/berfenger/cc301wb2mqtt/internal/core/domain"
	"github.com/berfenger/cc301wb2mqtt/internal/core/hub"
	"github.com/berfenger/cc301wb2mqtt/internal/server"
	"github.com/berfenger/cc301wb2mqtt/internal/util/actorutil"
	"github.com/berfenger/cc301wb2mqtt/pkg/cc301"
	"github.com/berfenger/cc301wb2mqtt/pkg/wbmr"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	defer logger.Sync()

	// init the hub: both devices share one gateway line
	h, err := createHub(cfg, logger)
	if err != nil {
		logger.Error("hub init error", zap.Error(err))
		return
	}
	h.Start()
	defer h.Close()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewBridgeActor(*cfg, h, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_BRIDGE)
	if err != nil {
		logger.Error("bridge actor spawn error", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid, h, logger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	if err := ctx.StopFuture(pid).Wait(); err != nil {
		logger.Warn("bridge actor stop error", zap.Error(err))
	}
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => CC301_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("CC301_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("cc301")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
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

	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func createHub(cfg *config.Config, logger *zap.Logger) (*hub.Hub, error) {

	meter := cc301.CreateTCPReader(cfg.Line.Host, cfg.Line.Port, cfg.Meter.Address, cfg.Line.IOTimeout(),
		cfg.Meter.CRC.Params(), cfg.Meter.CTRatio, logger)

	coils, err := wbmr.CreateClient(wbmr.ClientConfig{
		Host:    cfg.Line.Host,
		Port:    cfg.Line.Port,
		SlaveId: cfg.Switch.SlaveId,
		Framing: cfg.Switch.Framing,
		Speed:   cfg.Switch.Speed,
		Timeout: cfg.Line.IOTimeout(),
	}, logger, nil)
	if err != nil {
		return nil, err
	}

	return hub.New(hub.Config{
		DeviceName:                          cfg.Line.DeviceName,
		Host:                                cfg.Line.Host,
		ScanInterval:                        cfg.Line.ScanInterval(),
		LockTimeout:                         cfg.Line.LockTimeout(),
		CoilCount:                           int(cfg.Switch.CoilCount),
		MeterMarkUnavailableOnFailure:       cfg.Meter.MarkUnavailableOnFailure,
		SwitchMarkUnavailableOnWriteFailure: cfg.Switch.MarkUnavailableOnWriteFailure,
	}, meter, coils, logger)
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func() *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("line.device_name", "CC-301&WB")
	viper.SetDefault("line.host", "")
	viper.SetDefault("line.port", 502)
	viper.SetDefault("line.scan_interval_millis", 10000)
	viper.SetDefault("line.lock_timeout_millis", 5000)
	viper.SetDefault("line.io_timeout_millis", 3000)
	viper.SetDefault("meter.address", 0)
	viper.SetDefault("meter.ct_ratio", cc301.DefaultCurrentTransformerRatio)
	viper.SetDefault("meter.mark_unavailable_on_failure", false)
	viper.SetDefault("meter.crc.poly", cc301.DefaultCRCParams.Poly)
	viper.SetDefault("meter.crc.init", cc301.DefaultCRCParams.Init)
	viper.SetDefault("meter.crc.reflected", cc301.DefaultCRCParams.RefIn)
	viper.SetDefault("meter.crc.xor_out", cc301.DefaultCRCParams.XorOut)
	viper.SetDefault("switch.slave_id", 1)
	viper.SetDefault("switch.coil_count", 8)
	viper.SetDefault("switch.framing", wbmr.FramingTCP)
	viper.SetDefault("switch.speed", 9600)
	viper.SetDefault("switch.mark_unavailable_on_write_failure", false)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.ha_discovery_enable", true)
	viper.SetDefault("mqtt.base_topic", "cc301wb")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
