package mqtt

import (
	"fmt"

	"heatpump2mqtt/internal/events"
)

// HADiscoveryConfig is the Home Assistant MQTT discovery payload of one
// entity.
type HADiscoveryConfig struct {
	Device   HADiscoveryDevice `json:"device"`
	Name     string            `json:"name"`
	UniqueId string            `json:"unique_id"`
	Platform string            `json:"platform"`
	Icon     string            `json:"icon,omitempty"`
	AvTopic  string            `json:"availability_topic,omitempty"`

	StateTopic        string `json:"state_topic,omitempty"`
	StateClass        string `json:"state_class,omitempty"`
	DeviceClass       string `json:"device_class,omitempty"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	EntityCategory    string `json:"entity_category,omitempty"`

	CommandTopic string `json:"command_topic,omitempty"`
	PayloadOn    string `json:"payload_on,omitempty"`
	PayloadOff   string `json:"payload_off,omitempty"`
	PayloadPress string `json:"payload_press,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

// haAnnouncement is a retained discovery message.
type haAnnouncement struct {
	topic  string
	config HADiscoveryConfig
}

// haAnnouncements builds the discovery messages of every entity, sensors
// first.
func (c *MQTTClient) haAnnouncements(sensors []events.GenericSensor, switches []events.GenericSwitch, buttons []events.GenericButton) []haAnnouncement {
	out := make([]haAnnouncement, 0, len(sensors)+len(switches)+len(buttons))
	for _, s := range sensors {
		out = append(out, haAnnouncement{c.haDiscoveryTopic(s.SensorType, s.Device.Id, s.Id), c.sensorConfig(s)})
	}
	for _, sw := range switches {
		out = append(out, haAnnouncement{c.haDiscoveryTopic(MQTT_COMMAND_SWITCH, sw.Device.Id, sw.Id), c.switchConfig(sw)})
	}
	for _, btn := range buttons {
		out = append(out, haAnnouncement{c.haDiscoveryTopic(MQTT_COMMAND_BUTTON, btn.Device.Id, btn.Id), c.buttonConfig(btn)})
	}
	return out
}

func (c *MQTTClient) haDiscoveryTopic(component, deviceId, id string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", c.discoveryTopic(), component, deviceId, id)
}

func (c *MQTTClient) entityConfig(dev events.Device, name, uniqueId, icon string) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device:   device(dev),
		Name:     name,
		UniqueId: uniqueId,
		Platform: "mqtt",
		Icon:     icon,
		AvTopic:  c.BridgeStateTopic(),
	}
}

func (c *MQTTClient) sensorConfig(sensor events.GenericSensor) HADiscoveryConfig {
	cfg := c.entityConfig(sensor.Device, sensor.Name, sensor.UniqueId, sensor.Icon)
	cfg.StateClass = sensor.StateClass
	cfg.DeviceClass = sensor.DeviceClass
	cfg.UnitOfMeasurement = sensor.UnitOfMeasurement
	cfg.EntityCategory = sensor.EntityCategory
	switch {
	case sensor.Id == events.SENSOR_ID_BRIDGE_STATE:
		cfg.StateTopic = c.BridgeStateTopic()
		cfg.PayloadOn, cfg.PayloadOff = MQTT_PAYLOAD_ONLINE, MQTT_PAYLOAD_OFFLINE
	case sensor.SensorType == events.SENSOR_TYPE_BINARY:
		cfg.StateTopic = c.BinarySensorStateTopic(sensor.Id)
		cfg.PayloadOn, cfg.PayloadOff = MQTT_PAYLOAD_ON, MQTT_PAYLOAD_OFF
	default:
		cfg.StateTopic = c.SensorStateTopic(sensor.Id)
	}
	return cfg
}

func (c *MQTTClient) switchConfig(sw events.GenericSwitch) HADiscoveryConfig {
	cfg := c.entityConfig(sw.Device, sw.Name, sw.UniqueId, sw.Icon)
	cfg.StateTopic = c.SwitchStateTopic(sw.Id)
	cfg.CommandTopic = c.SwitchCommandTopic(sw.Id)
	cfg.PayloadOn, cfg.PayloadOff = MQTT_PAYLOAD_ON, MQTT_PAYLOAD_OFF
	return cfg
}

func (c *MQTTClient) buttonConfig(btn events.GenericButton) HADiscoveryConfig {
	cfg := c.entityConfig(btn.Device, btn.Name, btn.UniqueId, btn.Icon)
	cfg.EntityCategory = btn.EntityCategory
	cfg.CommandTopic = c.ButtonCommandTopic(btn.Id)
	cfg.PayloadPress = MQTT_PAYLOAD_PRESS
	return cfg
}

func device(d events.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}
