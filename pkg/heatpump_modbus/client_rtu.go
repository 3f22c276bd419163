package heatpump_modbus

import (
	"fmt"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

type RTUModbusClient struct {
	client     *modbus.ModbusClient
	instrument []ModbusInstrument
}

func CreateRTUModbusClient(cfg RTUConfig, logger *zap.Logger, instrumentation *ModbusInstrument) (HeatPumpModbusClient, error) {
	parity, err := cfg.parity()
	if err != nil {
		return nil, err
	}
	var mbParity uint
	switch parity {
	case "E":
		mbParity = modbus.PARITY_EVEN
	case "O":
		mbParity = modbus.PARITY_ODD
	default:
		mbParity = modbus.PARITY_NONE
	}

	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:      fmt.Sprintf("rtu://%s", cfg.Port),
		Speed:    cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   mbParity,
		StopBits: cfg.StopBits,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	err = client.SetUnitId(cfg.UnitId)
	if err != nil {
		return nil, err
	}

	var log *zap.Logger
	if logger != nil {
		log = logger.With(zap.String("target", "heatpump"), zap.String("driver", "simonvetter"), zap.Uint8("unit", cfg.UnitId))
	}
	return &RTUModbusClient{
		client:     client,
		instrument: buildInstruments(log, instrumentation),
	}, nil
}

func (c *RTUModbusClient) Open() error {
	return c.client.Open()
}

func (c *RTUModbusClient) Close() error {
	return c.client.Close()
}

func (c *RTUModbusClient) ReadRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	defer RecordTimer("ReadRegisters", c.instrument)()
	regs, err := c.client.ReadRegisters(addr, quantity, modbus.HOLDING_REGISTER)
	if err != nil {
		return nil, RecordError("ReadRegisters", err, c.instrument)
	}
	if len(regs) != int(quantity) {
		return nil, RecordError("ReadRegisters", fmt.Errorf("short response: want %d registers, got %d", quantity, len(regs)), c.instrument)
	}
	return regs, nil
}

func (c *RTUModbusClient) WriteRegister(addr uint16, value uint16) error {
	defer RecordTimer("WriteRegister", c.instrument)()
	return RecordError("WriteRegister", c.client.WriteRegister(addr, value), c.instrument)
}
