package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"heatpump2mqtt/internal/core/domain"
	"heatpump2mqtt/pkg/heatpump_modbus"

	"go.uber.org/zap/zapcore"
)

const (
	DRIVER_SIMONVETTER = "simonvetter"
	DRIVER_GOBURROW    = "goburrow"

	MIN_TRANSACTION_GAP_MILLIS  = 10
	MIN_REFRESH_INTERVAL_MILLIS = 1000
)

type Config struct {
	LogLevel  zapcore.Level
	Modbus    ModbusRTUConfig           `mapstructure:"modbus"`
	Control   ControlConfig             `mapstructure:"control"`
	Registers map[string]RegisterConfig `mapstructure:"registers"`
	MQTT      MQTTConfig                `mapstructure:"mqtt"`
	Port      uint                      `mapstructure:"port"`
	HttpLog   bool                      `mapstructure:"http_log"`
}

type ModbusRTUConfig struct {
	Driver        string
	Port          string
	BaudRate      uint `mapstructure:"baud_rate"`
	DataBits      uint `mapstructure:"data_bits"`
	Parity        string
	StopBits      uint   `mapstructure:"stop_bits"`
	UnitId        uint8  `mapstructure:"unit_id"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
	Simulate      bool
}

type ControlConfig struct {
	TransactionGapMillis  uint32 `mapstructure:"transaction_gap_millis"`
	RefreshIntervalMillis uint32 `mapstructure:"refresh_interval_millis"`
	QueueCapacity         uint   `mapstructure:"queue_capacity"`
	Console               bool
}

// RegisterConfig overrides the default addresses of one signal.
type RegisterConfig struct {
	Read  *uint16
	Write *uint16
}

type MQTTConfig struct {
	Enable            bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (cfg ModbusRTUConfig) RTUConfig() heatpump_modbus.RTUConfig {
	return heatpump_modbus.RTUConfig{
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
		UnitId:   cfg.UnitId,
		Timeout:  time.Duration(cfg.TimeoutMillis) * time.Millisecond,
	}
}

func (cfg ControlConfig) TransactionGap() time.Duration {
	return time.Duration(cfg.TransactionGapMillis) * time.Millisecond
}

func (cfg ControlConfig) RefreshInterval() time.Duration {
	return time.Duration(cfg.RefreshIntervalMillis) * time.Millisecond
}

// RegisterMap applies the configured address overrides to the default map.
func (cfg Config) RegisterMap() (domain.RegisterMap, error) {
	overrides := make(map[string]domain.AddressOverride, len(cfg.Registers))
	for name, r := range cfg.Registers {
		overrides[name] = domain.AddressOverride{Read: r.Read, Write: r.Write}
	}
	return domain.DefaultRegisterMap().WithOverrides(overrides)
}

func (cfg *Config) Validate() error {
	var errs []error

	switch strings.ToLower(cfg.Modbus.Driver) {
	case DRIVER_SIMONVETTER, DRIVER_GOBURROW:
		cfg.Modbus.Driver = strings.ToLower(cfg.Modbus.Driver)
	default:
		errs = append(errs, fmt.Errorf("modbus.driver: unsupported driver %q", cfg.Modbus.Driver))
	}
	if !cfg.Modbus.Simulate && cfg.Modbus.Port == "" {
		errs = append(errs, errors.New("modbus.port: serial port required"))
	}
	switch strings.ToUpper(cfg.Modbus.Parity) {
	case "N", "E", "O":
		cfg.Modbus.Parity = strings.ToUpper(cfg.Modbus.Parity)
	default:
		errs = append(errs, fmt.Errorf("modbus.parity: must be N, E or O, got %q", cfg.Modbus.Parity))
	}
	if cfg.Modbus.TimeoutMillis == 0 {
		errs = append(errs, errors.New("modbus.timeout_millis: must be positive"))
	}
	if cfg.Control.TransactionGapMillis < MIN_TRANSACTION_GAP_MILLIS {
		errs = append(errs, fmt.Errorf("control.transaction_gap_millis: must be >= %d", MIN_TRANSACTION_GAP_MILLIS))
	}
	if cfg.Control.RefreshIntervalMillis < MIN_REFRESH_INTERVAL_MILLIS {
		errs = append(errs, fmt.Errorf("control.refresh_interval_millis: must be >= %d", MIN_REFRESH_INTERVAL_MILLIS))
	}
	if cfg.Control.QueueCapacity < 1 {
		errs = append(errs, errors.New("control.queue_capacity: must be >= 1"))
	}
	if _, err := cfg.RegisterMap(); err != nil {
		errs = append(errs, err)
	}
	if cfg.MQTT.Enable {
		topic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
		if err != nil {
			errs = append(errs, fmt.Errorf("mqtt.base_topic: %w", err))
		} else {
			cfg.MQTT.BaseTopic = topic
		}
	}
	return errors.Join(errs...)
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
