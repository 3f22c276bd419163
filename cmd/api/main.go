package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"heatpump2mqtt/internal/config"
	coreactor "heatpump2mqtt/internal/core/actor"
	"heatpump2mqtt/internal/core/domain"
	"heatpump2mqtt/internal/core/service"
	"heatpump2mqtt/internal/input"
	"heatpump2mqtt/internal/metrics"
	"heatpump2mqtt/internal/mqtt"
	"heatpump2mqtt/internal/server"
	"heatpump2mqtt/internal/util/actorutil"
	"heatpump2mqtt/pkg/heatpump_modbus"

	"github.com/asynkron/protoactor-go/actor"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	BUS_OPEN_TIMEOUT = 5 * time.Second
	HEALTH_TIMEOUT   = 2 * time.Second
)

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(2)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	err = run(cfg, logger)
	if err != nil {
		logger.Error("heatpump2mqtt stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("graceful shutdown complete")
	logger.Sync()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registers, err := cfg.RegisterMap()
	if err != nil {
		return err
	}
	m := metrics.New()

	bus, err := modbusClient(cfg, logger, m)
	if err != nil {
		return err
	}
	if err := actorutil.RunErrWithTimeout(BUS_OPEN_TIMEOUT, bus.Open); err != nil {
		return fmt.Errorf("modbus open %s: %w", cfg.Modbus.Port, err)
	}
	defer bus.Close()

	loop := service.NewControlLoop(service.ControlLoopConfig{
		Registers:      registers,
		TransactionGap: cfg.Control.TransactionGap(),
		Instrument:     m.LoopInstrument(),
	}, bus, logger)

	store := service.NewStateStore()
	loop.AddPublisher(m)
	loop.AddPublisher(store)

	var bridge *mqtt.Bridge
	if cfg.MQTT.Enable {
		client := mqtt.CreateMQTTClient(cfg, mqtt.OptsFromConfig(cfg), nil, func(_ pahomqtt.Client, err error) {
			logger.Warn("mqtt connection lost", zap.Error(err))
		})
		bridge = mqtt.NewBridge(cfg, client, registers, logger)
		loop.AddPublisher(bridge)
	}

	// the control loop actor is the only owner of the bus
	system := actorutil.NewActorSystemWithZapLogger(logger)
	defer system.Shutdown()

	faults := make(chan error, 1)
	props := coreactor.ControlLoopProps(int(cfg.Control.QueueCapacity), func() *coreactor.ControlLoopActor {
		return coreactor.NewControlLoopActor(ctx, loop, cfg.Control.RefreshInterval(), func(err error) {
			select {
			case faults <- err:
			default:
			}
		}, logger)
	})
	loopPID, err := system.Root.SpawnNamed(props, coreactor.CONTROL_LOOP_ACTOR_ID)
	if err != nil {
		return fmt.Errorf("spawn control loop: %w", err)
	}
	defer func() {
		if err := system.Root.StopFuture(loopPID).Wait(); err != nil {
			logger.Warn("control loop did not stop in time", zap.Error(err))
		}
	}()
	commands := coreactor.NewCommandSink(system.Root, loopPID)

	// the command sink closes once every producer is gone
	var producers sync.WaitGroup

	if bridge != nil {
		if err := bridge.Start(ctx, commands); err != nil {
			return err
		}
		defer bridge.Stop()

		producers.Add(1)
		go func() {
			defer producers.Done()
			<-ctx.Done()
		}()
	}

	if cfg.Control.Console {
		producers.Add(1)
		go func() {
			defer producers.Done()
			if err := input.ReadTokens(ctx, os.Stdin, commands, logger); err != nil && ctx.Err() == nil {
				logger.Warn("console input stopped", zap.Error(err))
			}
		}()
	}

	httpServer := server.NewServer(*cfg, server.Deps{
		Health: func() error {
			return loopHealth(system.Root, loopPID)
		},
		State:    store,
		Commands: commands,
		Metrics:  m.Handler(),
	}, logger)

	producers.Add(1)
	httpErr := make(chan error, 1)
	go func() {
		defer producers.Done()
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("http server error: %w", err)
		}
	}()

	go func() {
		producers.Wait()
		commands.Close()
	}()

	var runErr error
	select {
	case runErr = <-faults:
	case runErr = <-httpErr:
	case <-ctx.Done():
	}
	stop()

	logger.Info("shutting down gracefully")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server forced to shutdown", zap.Error(err))
	}

	return runErr
}

func loopHealth(root *actor.RootContext, pid *actor.PID) error {
	res, err := root.RequestFuture(pid, coreactor.HealthRequest{}, HEALTH_TIMEOUT).Result()
	if err != nil {
		return fmt.Errorf("control loop: %w", err)
	}
	resp, ok := res.(coreactor.HealthResponse)
	if !ok || !resp.Healthy {
		return errors.New("control loop unhealthy")
	}
	return nil
}

func modbusClient(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (heatpump_modbus.HeatPumpModbusClient, error) {
	if cfg.Modbus.Simulate {
		logger.Warn("modbus: simulating the heat pump, no serial traffic")
		return simulatedHeatPump(), nil
	}
	switch cfg.Modbus.Driver {
	case config.DRIVER_GOBURROW:
		return heatpump_modbus.CreateGoburrowModbusClient(cfg.Modbus.RTUConfig(), logger, m.ModbusInstrument())
	default:
		return heatpump_modbus.CreateRTUModbusClient(cfg.Modbus.RTUConfig(), logger, m.ModbusInstrument())
	}
}

// simulatedHeatPump answers with plausible values and reflects setpoint and
// mode writes into their read-back registers.
func simulatedHeatPump() *heatpump_modbus.TestModbusClient {
	sim := heatpump_modbus.CreateTestModbusClient(map[uint16]uint16{
		domain.REG_READ_INDOOR_TEMP:        205,
		domain.REG_READ_OUTDOOR_TEMP:       domain.ScaleDeciCelsius.Encode(-35),
		domain.REG_READ_FLOW_TEMP:          38,
		domain.REG_READ_RETURN_TEMP:        33,
		domain.REG_READ_HOT_WATER_TEMP:     47,
		domain.REG_READ_FLOW_RATE:          142,
		domain.REG_READ_THREE_WAY_VALVE:    0,
		domain.REG_READ_MODE_STATUS:        0,
		domain.REG_READ_CH_SETPOINT:        210,
		domain.REG_READ_HOT_WATER_SETPOINT: 50,
		domain.REG_READ_FLOW_SETPOINT:      40,
	})
	sim.Link(domain.REG_WRITE_CH_SETPOINT, domain.REG_READ_CH_SETPOINT)
	sim.Link(domain.REG_WRITE_HOT_WATER_SETPOINT, domain.REG_READ_HOT_WATER_SETPOINT)
	sim.Link(domain.REG_WRITE_FLOW_SETPOINT, domain.REG_READ_FLOW_SETPOINT)
	sim.Link(domain.REG_WRITE_HOT_WATER_MODE_ENABLE, domain.REG_READ_MODE_STATUS)
	return sim
}

func initConfig() (*config.Config, error) {

	// alias PORT => HEATPUMP_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("HEATPUMP_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("heatpump")
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

	// check and fix homeassistant discovery topic
	if cfg.MQTT.HADiscoveryEnable {
		hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
		if err != nil {
			return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
		}
		cfg.MQTT.HADiscoveryTopic = hadBaseTopic
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("modbus.driver", config.DRIVER_SIMONVETTER)
	viper.SetDefault("modbus.port", "/dev/ttyUSB0")
	viper.SetDefault("modbus.baud_rate", 9600)
	viper.SetDefault("modbus.data_bits", 8)
	viper.SetDefault("modbus.parity", "N")
	viper.SetDefault("modbus.stop_bits", 1)
	viper.SetDefault("modbus.unit_id", 1)
	viper.SetDefault("modbus.timeout_millis", 1000)
	viper.SetDefault("modbus.simulate", false)
	viper.SetDefault("control.transaction_gap_millis", 50)
	viper.SetDefault("control.refresh_interval_millis", 10000)
	viper.SetDefault("control.queue_capacity", 16)
	viper.SetDefault("control.console", true)
	viper.SetDefault("mqtt.enable", false)
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "heatpump2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
