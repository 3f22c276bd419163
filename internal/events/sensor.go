package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"heatpump2mqtt/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE    = "bridge"
	SENSOR_ID_OPERATING_MODE  = "operating_mode"
	SWITCH_ID_HOT_WATER_MODE  = "hot_water_mode"
	STATE_CLASS_MEASUREMENT   = "measurement"
	DEVICE_CLASS_TEMPERATURE  = "temperature"
	DEVICE_CLASS_VOLUME_FLOW  = "volume_flow_rate"
	DEVICE_CLASS_CONNECTIVITY = "connectivity"
	DEVICE_CLASS_RUNNING      = "running"
	ENTITY_CLASS_DIAGNOSTIC   = "diagnostic"
	SENSOR_TYPE_SENSOR        = "sensor"
	SENSOR_TYPE_BINARY        = "binary_sensor"
	UNIT_CELSIUS              = "°C"
	UNIT_LITRES_PER_MINUTE    = "L/min"
	OPERATING_MODE_CH_TEXT    = "central_heating"
	OPERATING_MODE_DHW_TEXT   = "domestic_hot_water"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("heatpump_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "heatpump2mqtt",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Heat pump bridge %s", md5HashShort(baseTopic)),
	}
}

func HeatPumpDevice(serialPort string, unitId uint8, via Device) Device {
	key := fmt.Sprintf("%s#%d", serialPort, unitId)
	return Device{
		Id:        fmt.Sprintf("heatpump_%s", md5HashShort(key)),
		Model:     "RS-485 heat pump",
		Name:      fmt.Sprintf("Heat pump %d", unitId),
		ViaDevice: via.Id,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

var signalLabels = map[domain.Signal]string{
	domain.SignalIndoorTemp:       "Indoor temperature",
	domain.SignalOutdoorTemp:      "Outdoor temperature",
	domain.SignalFlowTemp:         "Flow temperature",
	domain.SignalReturnTemp:       "Return temperature",
	domain.SignalHotWaterTemp:     "Hot water temperature",
	domain.SignalFlowRate:         "Flow rate",
	domain.SignalThreeWayValve:    "Three-way valve",
	domain.SignalModeStatus:       "Hot water mode active",
	domain.SignalCHSetpoint:       "Heating setpoint",
	domain.SignalHotWaterSetpoint: "Hot water setpoint",
	domain.SignalFlowSetpoint:     "Flow setpoint",
}

// HeatPumpSensors describes every readable signal plus the operating mode.
func HeatPumpSensors(dev Device, registers domain.RegisterMap) []GenericSensor {

	var sensors []GenericSensor

	for _, s := range registers.ReadSet() {
		id := s.String()
		sensor := GenericSensor{
			Device:   dev,
			Id:       id,
			Name:     signalLabels[s],
			UniqueId: uniqueId(dev.Id, id),
		}
		switch registers.Entry(s).Scale {
		case domain.ScaleBool:
			sensor.SensorType = SENSOR_TYPE_BINARY
			sensor.DeviceClass = DEVICE_CLASS_RUNNING
			sensor.EntityCategory = ENTITY_CLASS_DIAGNOSTIC
		case domain.ScaleLitresPerMin:
			sensor.SensorType = SENSOR_TYPE_SENSOR
			sensor.StateClass = STATE_CLASS_MEASUREMENT
			sensor.DeviceClass = DEVICE_CLASS_VOLUME_FLOW
			sensor.UnitOfMeasurement = UNIT_LITRES_PER_MINUTE
			sensor.Icon = "mdi:water-pump"
		default:
			sensor.SensorType = SENSOR_TYPE_SENSOR
			sensor.StateClass = STATE_CLASS_MEASUREMENT
			sensor.DeviceClass = DEVICE_CLASS_TEMPERATURE
			sensor.UnitOfMeasurement = UNIT_CELSIUS
		}
		sensors = append(sensors, sensor)
	}

	// Operating mode
	sensors = append(sensors, GenericSensor{
		Device:     dev,
		Id:         SENSOR_ID_OPERATING_MODE,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Operating mode",
		Icon:       "mdi:heat-pump",
		UniqueId:   uniqueId(dev.Id, SENSOR_ID_OPERATING_MODE),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func HeatPumpSwitches(dev Device) []GenericSwitch {

	var switches []GenericSwitch

	// on = domestic hot water, off = central heating
	switches = append(switches, GenericSwitch{
		Device:   dev,
		Id:       SWITCH_ID_HOT_WATER_MODE,
		Name:     "Hot water mode",
		UniqueId: uniqueId(dev.Id, SWITCH_ID_HOT_WATER_MODE),
		Icon:     "mdi:water-boiler",
	})

	return switches
}

// HeatPumpButtons exposes setpoint steps and on-demand refreshes. Button ids
// are command names.
func HeatPumpButtons(dev Device) []GenericButton {

	var buttons []GenericButton

	setpoints := []struct {
		instr domain.Instruction
		name  string
		icon  string
	}{
		{domain.InstructionCHUp, "Heating setpoint up", "mdi:thermometer-chevron-up"},
		{domain.InstructionCHDown, "Heating setpoint down", "mdi:thermometer-chevron-down"},
		{domain.InstructionHotWaterUp, "Hot water setpoint up", "mdi:thermometer-chevron-up"},
		{domain.InstructionHotWaterDown, "Hot water setpoint down", "mdi:thermometer-chevron-down"},
		{domain.InstructionFlowUp, "Flow setpoint up", "mdi:thermometer-chevron-up"},
		{domain.InstructionFlowDown, "Flow setpoint down", "mdi:thermometer-chevron-down"},
	}
	for _, sp := range setpoints {
		id := sp.instr.String()
		buttons = append(buttons, GenericButton{
			Device:   dev,
			Id:       id,
			Name:     sp.name,
			UniqueId: uniqueId(dev.Id, id),
			Icon:     sp.icon,
		})
	}

	// Refresh all
	id := "get_" + domain.GroupAll.String()
	buttons = append(buttons, GenericButton{
		Device:         dev,
		Id:             id,
		Name:           "Refresh",
		UniqueId:       uniqueId(dev.Id, id),
		Icon:           "mdi:refresh",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
	})

	return buttons
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
