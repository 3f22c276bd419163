package heatpump_modbus

import (
	"fmt"
	"strings"
	"time"
)

// HeatPumpModbusClient is a synchronous request/response link to a single
// heat pump over Modbus RTU. Holding registers only.
type HeatPumpModbusClient interface {
	Open() error
	Close() error
	ReadRegisters(addr uint16, quantity uint16) ([]uint16, error)
	WriteRegister(addr uint16, value uint16) error
}

// RTUConfig holds the serial line settings.
type RTUConfig struct {
	Port     string
	BaudRate uint
	DataBits uint
	Parity   string // N, E or O
	StopBits uint
	UnitId   uint8
	Timeout  time.Duration
}

func (cfg RTUConfig) parity() (string, error) {
	p := strings.ToUpper(cfg.Parity)
	switch p {
	case "", "N":
		return "N", nil
	case "E", "O":
		return p, nil
	default:
		return "", fmt.Errorf("unsupported parity %q", cfg.Parity)
	}
}
