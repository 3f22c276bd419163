package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"heatpump2mqtt/internal/config"
	"heatpump2mqtt/internal/core/domain"
	"heatpump2mqtt/internal/core/port"
	"heatpump2mqtt/internal/events"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type rawMessage struct {
	topic   string
	message string
	retain  bool
}

// Bridge publishes mirror snapshots to MQTT and turns button and switch
// commands into queued commands.
type Bridge struct {
	client       *MQTTClient
	sink         port.CommandSink
	registers    domain.RegisterMap
	haDiscovery  bool
	bridgeDevice events.Device
	device       events.Device
	ctx          context.Context
	logger       *zap.Logger
}

func NewBridge(cfg *config.Config, client *MQTTClient, registers domain.RegisterMap, logger *zap.Logger) *Bridge {
	bridgeDevice := events.BridgeDevice(cfg.MQTT.BaseTopic)
	return &Bridge{
		client:       client,
		registers:    registers,
		haDiscovery:  cfg.MQTT.HADiscoveryEnable,
		bridgeDevice: bridgeDevice,
		device:       events.HeatPumpDevice(cfg.Modbus.Port, cfg.Modbus.UnitId, bridgeDevice),
		ctx:          context.Background(),
		logger:       logger.With(zap.String("component", "mqtt")),
	}
}

// Start connects, announces the bridge and subscribes to command topics.
// Received commands are enqueued into sink with ctx.
func (b *Bridge) Start(ctx context.Context, sink port.CommandSink) error {
	b.ctx = ctx
	b.sink = sink

	if err := wait(func(k func(error)) { b.client.Connect(k, 10*time.Second) }); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	b.logger.Debug("mqtt connected")

	b.client.Publish(b.client.BridgeStateTopic(), MQTT_PAYLOAD_ONLINE, 0, true, b.logPublishError, 500*time.Millisecond)

	if b.haDiscovery {
		if err := b.PublishHomeAssistantDiscovery(); err != nil {
			return fmt.Errorf("mqtt discovery: %w", err)
		}
	}

	if err := wait(func(k func(error)) { b.client.SubscribeToCommandTopic(b.handleMessage, k, time.Second) }); err != nil {
		return fmt.Errorf("mqtt subscribe: %w", err)
	}
	b.logger.Debug("mqtt subscribed")
	return nil
}

func (b *Bridge) Stop() {
	b.logger.Debug("mqtt: disconnect")
	done := make(chan struct{})
	b.client.Publish(b.client.BridgeStateTopic(), MQTT_PAYLOAD_OFFLINE, 0, true, func(error) { close(done) }, 500*time.Millisecond)
	<-done
	b.client.Disconnect(500 * time.Millisecond)
}

func (b *Bridge) handleMessage(_ pahomqtt.Client, m pahomqtt.Message) {
	parsed, err := b.client.ParseMQTTCommand(m)
	if err != nil {
		return
	}
	cmd, ok := CommandFromMQTT(parsed)
	if !ok {
		b.logger.Debug("mqtt: unknown command", zap.String("id", parsed.DeviceId), zap.String("payload", parsed.Payload))
		return
	}
	b.logger.Debug("mqtt: command", zap.Stringer("command", cmd))
	if err := b.sink.Enqueue(b.ctx, cmd); err != nil {
		b.logger.Warn("mqtt: command dropped", zap.Stringer("command", cmd), zap.Error(err))
	}
}

// CommandFromMQTT maps a parsed MQTT command to a loop command. Button ids
// are command names; the hot water switch selects the operating mode.
func CommandFromMQTT(parsed *ParsedMQTTCommand) (domain.Command, bool) {
	switch parsed.Command {
	case MQTT_COMMAND_BUTTON:
		return domain.ParseCommandName(parsed.DeviceId)
	case MQTT_COMMAND_SWITCH:
		if parsed.DeviceId != events.SWITCH_ID_HOT_WATER_MODE {
			return domain.Command{}, false
		}
		if parsed.Payload == MQTT_PAYLOAD_ON {
			return domain.Set(domain.InstructionModeHotWater), true
		}
		return domain.Set(domain.InstructionModeCentralHeating), true
	default:
		return domain.Command{}, false
	}
}

// PublishState implements port.StatePublisher. Publishing is asynchronous.
func (b *Bridge) PublishState(snap domain.Snapshot) {
	for _, ev := range events.SnapshotToUpdateEvents(snap, b.registers) {
		msg := b.event2MQTTMessage(ev)
		if msg == nil {
			continue
		}
		b.logger.Debug("mqtt@publish", zap.String("topic", msg.topic), zap.String("payload", msg.message))
		b.client.Publish(msg.topic, msg.message, 1, msg.retain, b.logPublishError, 5*time.Second)
	}
}

func (b *Bridge) event2MQTTMessage(event any) *rawMessage {
	switch msg := event.(type) {
	case events.SensorUpdateEvent:
		return &rawMessage{
			topic:   b.client.SensorStateTopic(msg.Id),
			message: fmt.Sprintf(fmt.Sprintf("%%.%df", msg.Decimals), msg.Value),
		}
	case events.BinarySensorUpdateEvent:
		return &rawMessage{
			topic:   b.client.BinarySensorStateTopic(msg.Id),
			message: bool2MQTTPayload(msg.Value),
		}
	case events.SwitchSensorUpdateEvent:
		return &rawMessage{
			topic:   b.client.SwitchStateTopic(msg.Id),
			message: bool2MQTTPayload(msg.Value),
			retain:  true,
		}
	case events.TextSensorUpdateEvent:
		return &rawMessage{
			topic:   b.client.SensorStateTopic(msg.Id),
			message: msg.Value,
		}
	case events.BridgeStateUpdateEvent:
		var stringMessage string
		if msg.Value {
			stringMessage = MQTT_PAYLOAD_ONLINE
		} else {
			stringMessage = MQTT_PAYLOAD_OFFLINE
		}
		return &rawMessage{
			topic:   b.client.BridgeStateTopic(),
			message: stringMessage,
		}
	default:
		return nil
	}
}

func (b *Bridge) PublishHomeAssistantDiscovery() error {
	sensors := append(events.BridgeSensors(b.bridgeDevice), events.HeatPumpSensors(b.device, b.registers)...)
	id := events.IdDevice(b.device)
	for _, a := range b.client.haAnnouncements(sensors, events.HeatPumpSwitches(id), events.HeatPumpButtons(id)) {
		payload, err := json.Marshal(a.config)
		if err != nil {
			return err
		}
		b.client.Publish(a.topic, payload, 0, true, b.logPublishError, time.Second)
	}
	return nil
}

func (b *Bridge) logPublishError(err error) {
	if err != nil {
		b.logger.Error("mqtt@publishing could not publish a message", zap.Error(err))
	}
}

func wait(op func(func(error))) error {
	errc := make(chan error, 1)
	op(func(err error) { errc <- err })
	return <-errc
}

func bool2MQTTPayload(value bool) string {
	if value {
		return MQTT_PAYLOAD_ON
	} else {
		return MQTT_PAYLOAD_OFF
	}
}
