package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"heatpump2mqtt/internal/core/domain"
	"heatpump2mqtt/internal/events"
	"heatpump2mqtt/internal/util"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                       { return true }
func (t *fakeToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	retain  bool
	payload string
}

type fakeClient struct {
	mu         sync.Mutex
	published  []published
	subscribed []string
	handler    pahomqtt.MessageHandler
	connected  bool
}

func (c *fakeClient) IsConnected() bool      { return c.connected }
func (c *fakeClient) IsConnectionOpen() bool { return c.connected }
func (c *fakeClient) Connect() pahomqtt.Token {
	c.connected = true
	return &fakeToken{}
}
func (c *fakeClient) Disconnect(_ uint) { c.connected = false }
func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	var s string
	switch p := payload.(type) {
	case string:
		s = p
	case []byte:
		s = string(p)
	}
	c.published = append(c.published, published{topic: topic, retain: retained, payload: s})
	return &fakeToken{}
}
func (c *fakeClient) Subscribe(topic string, _ byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = append(c.subscribed, topic)
	c.handler = callback
	return &fakeToken{}
}
func (c *fakeClient) SubscribeMultiple(_ map[string]byte, _ pahomqtt.MessageHandler) pahomqtt.Token {
	return &fakeToken{}
}
func (c *fakeClient) Unsubscribe(_ ...string) pahomqtt.Token       { return &fakeToken{} }
func (c *fakeClient) AddRoute(_ string, _ pahomqtt.MessageHandler) {}
func (c *fakeClient) OptionsReader() pahomqtt.ClientOptionsReader  { return pahomqtt.ClientOptionsReader{} }

func (c *fakeClient) deliver(topic, payload string) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	h(c, &fakeMessage{topic: topic, payload: []byte(payload)})
}

func (c *fakeClient) messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.published...)
}

func (c *fakeClient) find(topic string) (published, bool) {
	for _, m := range c.messages() {
		if m.topic == topic {
			return m, true
		}
	}
	return published{}, false
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type recordingSink struct {
	mu       sync.Mutex
	commands []domain.Command
}

func (s *recordingSink) Enqueue(_ context.Context, cmd domain.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
	return nil
}

func TestCommandExtractor(t *testing.T) {
	r := commandExtractor("loremTopic")

	tests := []struct {
		topic string
		match []string
	}{
		{topic: "loremTopic/switch/my_device/command", match: []string{"switch", "my_device", "command"}},
		{topic: "loremTopic/button/ch_setpoint_up/press", match: []string{"button", "ch_setpoint_up", "press"}},
		{topic: "loremTopic/switch/my_device/state", match: []string{"switch", "my_device", "state"}},
		{topic: "loremTopic/sensor/indoor_temp/state"},
		{topic: "other/loremTopic/button/x/press"},
		{topic: "loremTopicX/button/x/press"},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			m := r.FindStringSubmatch(tt.topic)
			if tt.match == nil {
				assert.Nil(t, m)
				return
			}
			assert.Equal(t, tt.match, m[1:])
		})
	}
}

func TestHAAnnouncements(t *testing.T) {
	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	c := newMQTTClient(&fakeClient{}, cfg.MQTT)
	bridge := events.BridgeDevice(cfg.MQTT.BaseTopic)
	dev := events.HeatPumpDevice(cfg.Modbus.Port, cfg.Modbus.UnitId, bridge)
	id := events.IdDevice(dev)

	sensors := append(events.BridgeSensors(bridge), events.HeatPumpSensors(dev, domain.DefaultRegisterMap())...)
	switches := events.HeatPumpSwitches(id)
	buttons := events.HeatPumpButtons(id)
	all := c.haAnnouncements(sensors, switches, buttons)
	assert.Len(all, len(sensors)+len(switches)+len(buttons))

	for _, a := range all {
		assert.True(strings.HasPrefix(a.topic, c.discoveryTopic()+"/"), a.topic)
		assert.True(strings.HasSuffix(a.topic, "/config"), a.topic)
		assert.Equal("mqtt", a.config.Platform)
		assert.Equal(c.BridgeStateTopic(), a.config.AvTopic)
		assert.NotEmpty(a.config.UniqueId)
	}

	first := all[0].config
	assert.Equal(c.BridgeStateTopic(), first.StateTopic)
	assert.Equal(MQTT_PAYLOAD_ONLINE, first.PayloadOn)

	sw := all[len(sensors)].config
	assert.Equal(c.SwitchCommandTopic(switches[0].Id), sw.CommandTopic)
	assert.Equal(c.SwitchStateTopic(switches[0].Id), sw.StateTopic)

	btn := all[len(all)-1].config
	assert.Empty(btn.StateTopic)
	assert.Equal(MQTT_PAYLOAD_PRESS, btn.PayloadPress)
	assert.Equal(c.ButtonCommandTopic(buttons[len(buttons)-1].Id), btn.CommandTopic)
}

func TestParseMQTTCommand(t *testing.T) {
	assert := assert.New(t)

	c := newMQTTClient(&fakeClient{}, util.LoadTestConfig().MQTT)

	parsed, err := c.ParseMQTTCommand(&fakeMessage{topic: c.SwitchCommandTopic("hot_water_mode"), payload: []byte(" ON ")})
	assert.NoError(err)
	assert.Equal(&ParsedMQTTCommand{DeviceId: "hot_water_mode", Command: MQTT_COMMAND_SWITCH, Payload: MQTT_PAYLOAD_ON}, parsed)

	_, err = c.ParseMQTTCommand(&fakeMessage{topic: c.SwitchCommandTopic("hot_water_mode"), payload: []byte("maybe")})
	assert.Error(err)

	parsed, err = c.ParseMQTTCommand(&fakeMessage{topic: c.ButtonCommandTopic("get_all"), payload: []byte(MQTT_PAYLOAD_PRESS)})
	assert.NoError(err)
	assert.Equal(MQTT_COMMAND_BUTTON, parsed.Command)
	assert.Equal("get_all", parsed.DeviceId)

	_, err = c.ParseMQTTCommand(&fakeMessage{topic: c.SensorStateTopic("indoor_temp"), payload: []byte("21.5")})
	assert.Error(err)

	// leaf must fit the component
	_, err = c.ParseMQTTCommand(&fakeMessage{topic: c.SwitchStateTopic("hot_water_mode"), payload: []byte(MQTT_PAYLOAD_ON)})
	assert.Error(err)
	_, err = c.ParseMQTTCommand(&fakeMessage{topic: "heatpump2mqtt/button/get_all/command", payload: []byte(MQTT_PAYLOAD_PRESS)})
	assert.Error(err)
}

func TestCommandFromMQTT(t *testing.T) {
	assert := assert.New(t)

	cmd, ok := CommandFromMQTT(&ParsedMQTTCommand{DeviceId: "hot_water_setpoint_up", Command: MQTT_COMMAND_BUTTON})
	assert.True(ok)
	assert.Equal(domain.Set(domain.InstructionHotWaterUp), cmd)

	cmd, ok = CommandFromMQTT(&ParsedMQTTCommand{DeviceId: events.SWITCH_ID_HOT_WATER_MODE, Command: MQTT_COMMAND_SWITCH, Payload: MQTT_PAYLOAD_ON})
	assert.True(ok)
	assert.Equal(domain.Set(domain.InstructionModeHotWater), cmd)

	cmd, ok = CommandFromMQTT(&ParsedMQTTCommand{DeviceId: events.SWITCH_ID_HOT_WATER_MODE, Command: MQTT_COMMAND_SWITCH, Payload: MQTT_PAYLOAD_OFF})
	assert.True(ok)
	assert.Equal(domain.Set(domain.InstructionModeCentralHeating), cmd)

	_, ok = CommandFromMQTT(&ParsedMQTTCommand{DeviceId: "light", Command: MQTT_COMMAND_SWITCH, Payload: MQTT_PAYLOAD_ON})
	assert.False(ok)

	_, ok = CommandFromMQTT(&ParsedMQTTCommand{DeviceId: "self_destruct", Command: MQTT_COMMAND_BUTTON})
	assert.False(ok)
}

func newTestBridge(t *testing.T) (*Bridge, *fakeClient, *recordingSink) {
	cfg := util.LoadTestConfig()
	cfg.MQTT.HADiscoveryEnable = true
	fake := &fakeClient{}
	sink := &recordingSink{}
	b := NewBridge(&cfg, newMQTTClient(fake, cfg.MQTT), domain.DefaultRegisterMap(), zap.NewNop())
	require.NoError(t, b.Start(context.Background(), sink))
	return b, fake, sink
}

func TestBridgeStartAnnouncesAndSubscribes(t *testing.T) {
	assert := assert.New(t)

	b, fake, _ := newTestBridge(t)

	assert.True(fake.connected)
	assert.Equal([]string{"heatpump2mqtt/+/+/+"}, fake.subscribed)

	assert.Eventually(func() bool {
		m, ok := fake.find(b.client.BridgeStateTopic())
		return ok && m.payload == MQTT_PAYLOAD_ONLINE && m.retain
	}, time.Second, 5*time.Millisecond)

	var buttons int
	for _, m := range fake.messages() {
		if !strings.HasPrefix(m.topic, "homeassistant/button/") {
			continue
		}
		buttons++
		var msg HADiscoveryConfig
		require.NoError(t, json.Unmarshal([]byte(m.payload), &msg))
		assert.True(strings.HasSuffix(msg.CommandTopic, "/press"), msg.CommandTopic)
	}
	assert.Equal(len(events.HeatPumpButtons(b.device)), buttons)
}

func TestBridgeEnqueuesCommands(t *testing.T) {
	assert := assert.New(t)

	b, fake, sink := newTestBridge(t)

	fake.deliver(b.client.ButtonCommandTopic("ch_setpoint_down"), MQTT_PAYLOAD_PRESS)
	fake.deliver(b.client.SwitchCommandTopic(events.SWITCH_ID_HOT_WATER_MODE), MQTT_PAYLOAD_ON)
	fake.deliver(b.client.ButtonCommandTopic("unknown"), MQTT_PAYLOAD_PRESS)
	fake.deliver(b.client.SensorStateTopic("indoor_temp"), "21.0")

	assert.Equal([]domain.Command{
		domain.Set(domain.InstructionCHDown),
		domain.Set(domain.InstructionModeHotWater),
	}, sink.commands)
}

func TestBridgePublishState(t *testing.T) {
	assert := assert.New(t)

	b, fake, _ := newTestBridge(t)

	st := domain.NewDeviceState(domain.DefaultRegisterMap())
	st.ApplyRead(domain.SignalIndoorTemp, 215)
	st.ApplyRead(domain.SignalFlowRate, 123)
	st.ApplyRead(domain.SignalModeStatus, 1)
	b.PublishState(st.Snapshot())

	assert.Eventually(func() bool {
		m, ok := fake.find(b.client.SensorStateTopic(domain.SIGNAL_ID_INDOOR_TEMP))
		return ok && m.payload == "21.5"
	}, time.Second, 5*time.Millisecond)

	m, ok := fake.find(b.client.SensorStateTopic(domain.SIGNAL_ID_FLOW_RATE))
	assert.True(ok)
	assert.Equal("12.3", m.payload)

	m, ok = fake.find(b.client.SwitchStateTopic(events.SWITCH_ID_HOT_WATER_MODE))
	assert.True(ok)
	assert.Equal(MQTT_PAYLOAD_ON, m.payload)

	// never read signals are not published
	_, ok = fake.find(b.client.SensorStateTopic(domain.SIGNAL_ID_RETURN_TEMP))
	assert.False(ok)
}

func TestBridgeStopPublishesOffline(t *testing.T) {
	b, fake, _ := newTestBridge(t)
	b.Stop()

	msgs := fake.messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, b.client.BridgeStateTopic(), last.topic)
	assert.Equal(t, MQTT_PAYLOAD_OFFLINE, last.payload)
	assert.False(t, fake.connected)
}
