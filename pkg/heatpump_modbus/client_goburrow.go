package heatpump_modbus

import (
	"encoding/binary"
	"fmt"

	"github.com/goburrow/modbus"
	"go.uber.org/zap"
)

// GoburrowModbusClient talks RTU through github.com/goburrow/modbus. Some
// USB/RS-485 adapters behave better with its serial handling.
type GoburrowModbusClient struct {
	handler    *modbus.RTUClientHandler
	client     modbus.Client
	instrument []ModbusInstrument
}

func CreateGoburrowModbusClient(cfg RTUConfig, logger *zap.Logger, instrumentation *ModbusInstrument) (HeatPumpModbusClient, error) {
	parity, err := cfg.parity()
	if err != nil {
		return nil, err
	}
	if cfg.Port == "" {
		return nil, fmt.Errorf("serial port required")
	}

	h := modbus.NewRTUClientHandler(cfg.Port)
	h.BaudRate = int(cfg.BaudRate)
	h.DataBits = int(cfg.DataBits)
	h.Parity = parity
	h.StopBits = int(cfg.StopBits)
	h.SlaveId = cfg.UnitId
	h.Timeout = cfg.Timeout

	var log *zap.Logger
	if logger != nil {
		log = logger.With(zap.String("target", "heatpump"), zap.String("driver", "goburrow"), zap.Uint8("unit", cfg.UnitId))
	}
	return &GoburrowModbusClient{
		handler:    h,
		client:     modbus.NewClient(h),
		instrument: buildInstruments(log, instrumentation),
	}, nil
}

func (c *GoburrowModbusClient) Open() error {
	return c.handler.Connect()
}

func (c *GoburrowModbusClient) Close() error {
	return c.handler.Close()
}

func (c *GoburrowModbusClient) ReadRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	defer RecordTimer("ReadRegisters", c.instrument)()
	raw, err := c.client.ReadHoldingRegisters(addr, quantity)
	if err != nil {
		return nil, RecordError("ReadRegisters", err, c.instrument)
	}
	regs, err := unpackRegisters(raw, quantity)
	if err != nil {
		return nil, RecordError("ReadRegisters", err, c.instrument)
	}
	return regs, nil
}

func (c *GoburrowModbusClient) WriteRegister(addr uint16, value uint16) error {
	defer RecordTimer("WriteRegister", c.instrument)()
	_, err := c.client.WriteSingleRegister(addr, value)
	return RecordError("WriteRegister", err, c.instrument)
}

func unpackRegisters(raw []byte, quantity uint16) ([]uint16, error) {
	if len(raw) != int(quantity)*2 {
		return nil, fmt.Errorf("short response: want %d bytes, got %d", quantity*2, len(raw))
	}
	out := make([]uint16, quantity)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(raw[2*i:])
	}
	return out, nil
}
