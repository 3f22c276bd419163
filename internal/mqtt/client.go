package mqtt

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"heatpump2mqtt/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = "online"
	MQTT_PAYLOAD_OFFLINE = "offline"
	MQTT_PAYLOAD_ON      = "on"
	MQTT_PAYLOAD_OFF     = "off"
	MQTT_PAYLOAD_PRESS   = "press"

	MQTT_COMMAND_SWITCH = "switch"
	MQTT_COMMAND_BUTTON = "button"
)

// leaf topic each command component listens on
var commandLeaf = map[string]string{
	MQTT_COMMAND_SWITCH: "command",
	MQTT_COMMAND_BUTTON: "press",
}

// OptsFromConfig keeps the session across reconnects so command
// subscriptions survive a broker restart. Handlers run concurrently since
// they may block on a full command mailbox.
func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port)).
		SetClientID(fmt.Sprintf("heatpump_%d_%d", cfg.Modbus.UnitId, rand.Intn(1000))).
		SetWill(bridgeStateTopic(cfg.MQTT.BaseTopic), MQTT_PAYLOAD_OFFLINE, 0, true).
		SetAutoReconnect(true).
		SetCleanSession(false).
		SetResumeSubs(true).
		SetOrderMatters(false)
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username).SetPassword(cfg.MQTT.Password)
	}
	return opts
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.OnConnect = onConnectHandler
	}
	if onConnectionLostHandler != nil {
		opts.OnConnectionLost = onConnectionLostHandler
	}
	return newMQTTClient(mqtt.NewClient(opts), cfg.MQTT)
}

func newMQTTClient(client mqtt.Client, cfg config.MQTTConfig) *MQTTClient {
	return &MQTTClient{
		client:        client,
		cfg:           cfg,
		commandRegexp: commandExtractor(cfg.BaseTopic),
	}
}

// MQTTClient wraps paho with the bridge's topic layout. Every blocking call
// reports through a continuation.
type MQTTClient struct {
	client        mqtt.Client
	cfg           config.MQTTConfig
	commandRegexp *regexp.Regexp
}

type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Payload  string
}

func (c *MQTTClient) discoveryTopic() string {
	if c.cfg.HADiscoveryTopic == "" {
		return "homeassistant"
	}
	return c.cfg.HADiscoveryTopic
}

// entityTopic is <base>/<component>/<id>/<leaf>.
func (c *MQTTClient) entityTopic(component, id, leaf string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.cfg.BaseTopic, component, id, leaf)
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.cfg.BaseTopic)
}

func (c *MQTTClient) SensorStateTopic(id string) string {
	return c.entityTopic("sensor", id, "state")
}

func (c *MQTTClient) BinarySensorStateTopic(id string) string {
	return c.entityTopic("binary_sensor", id, "state")
}

func (c *MQTTClient) SwitchStateTopic(id string) string {
	return c.entityTopic(MQTT_COMMAND_SWITCH, id, "state")
}

func (c *MQTTClient) SwitchCommandTopic(id string) string {
	return c.entityTopic(MQTT_COMMAND_SWITCH, id, commandLeaf[MQTT_COMMAND_SWITCH])
}

func (c *MQTTClient) ButtonCommandTopic(id string) string {
	return c.entityTopic(MQTT_COMMAND_BUTTON, id, commandLeaf[MQTT_COMMAND_BUTTON])
}

// ParseMQTTCommand accepts switch commands with an on/off payload and button
// presses with any payload.
func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	m := c.commandRegexp.FindStringSubmatch(msg.Topic())
	if m == nil || commandLeaf[m[1]] != m[3] {
		return nil, fmt.Errorf("not a command topic: %s", msg.Topic())
	}
	parsed := &ParsedMQTTCommand{
		DeviceId: m[2],
		Command:  m[1],
		Payload:  strings.ToLower(strings.TrimSpace(string(msg.Payload()))),
	}
	if parsed.Command == MQTT_COMMAND_SWITCH && parsed.Payload != MQTT_PAYLOAD_ON && parsed.Payload != MQTT_PAYLOAD_OFF {
		return nil, fmt.Errorf("invalid switch payload %q", parsed.Payload)
	}
	return parsed, nil
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	await(c.client.Publish(topic, qos, retain, payload), "publish", timeout, continuation)
}

func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	await(c.client.Subscribe(c.commandTopic(), 1, handler), "subscribe", timeout, continuation)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	await(c.client.Connect(), "connect", timeout, continuation)
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func (c *MQTTClient) commandTopic() string {
	return fmt.Sprintf("%s/+/+/+", c.cfg.BaseTopic)
}

// await hands the outcome of token to continuation once it completes or
// timeout expires.
func await(token mqtt.Token, op string, timeout time.Duration, continuation func(error)) {
	go func() {
		if !token.WaitTimeout(timeout) {
			continuation(fmt.Errorf("MQTT %s timed out", op))
			return
		}
		continuation(token.Error())
	}()
}

// commandExtractor captures component, id and leaf of a command topic.
func commandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/(%s|%s)/([a-zA-Z0-9_]+)/([a-z]+)$",
		regexp.QuoteMeta(baseTopic), MQTT_COMMAND_SWITCH, MQTT_COMMAND_BUTTON))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
