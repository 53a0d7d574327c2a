package transport

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Message is one inbound payload delivered from the command topic.
type Message struct {
	Topic   string
	Payload []byte
}

// Session is the narrow transport surface the control loop depends on. The
// real implementation is MQTT; tests substitute a fake.
type Session interface {
	// Connect blocks until the broker accepts us, retrying with a fixed
	// backoff. The session re-subscribes to the command topic on every
	// successful (re)connect, so no command is silently lost after a drop.
	Connect() error
	Publish(topic string, payload []byte) error
	// Messages delivers inbound commands. The channel is buffered and fed
	// without blocking the network goroutine; the control loop drains it.
	Messages() <-chan Message
	Close()
}

const (
	connectRetryInterval = 5 * time.Second
	inboundBuffer        = 16
)

// MQTTSession wraps a paho client configured for the controller: auto
// reconnect, command-topic subscription restored in the OnConnect handler,
// inbound messages handed off to a channel.
type MQTTSession struct {
	client       mqtt.Client
	commandTopic string
	inbound      chan Message

	// OnConnected runs after every successful (re)connect and subscribe,
	// from the paho connection goroutine. The control loop uses it to push
	// an initial telemetry snapshot.
	OnConnected func()
}

func NewMQTTSession(broker, clientID, commandTopic string) *MQTTSession {
	s := &MQTTSession{
		commandTopic: commandTopic,
		inbound:      make(chan Message, inboundBuffer),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetMaxReconnectInterval(connectRetryInterval).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("Broker connection lost")
		})

	s.client = mqtt.NewClient(opts)
	return s
}

func (s *MQTTSession) onConnect(c mqtt.Client) {
	// Subscriptions do not survive a reconnect; restore before anything else
	// so the next inbound command is not lost.
	token := c.Subscribe(s.commandTopic, 1, s.onMessage)
	token.Wait()
	if token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", s.commandTopic).Msg("Failed to subscribe to command topic")
		return
	}

	log.Info().Str("topic", s.commandTopic).Msg("Connected and subscribed to command topic")

	if s.OnConnected != nil {
		s.OnConnected()
	}
}

func (s *MQTTSession) onMessage(_ mqtt.Client, m mqtt.Message) {
	select {
	case s.inbound <- Message{Topic: m.Topic(), Payload: m.Payload()}:
	default:
		// The control loop is the sole consumer and drains quickly; if the
		// buffer still fills we drop rather than block the network goroutine.
		log.Warn().Str("topic", m.Topic()).Msg("Inbound command buffer full, dropping message")
	}
}

func (s *MQTTSession) Connect() error {
	token := s.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	return nil
}

func (s *MQTTSession) Publish(topic string, payload []byte) error {
	token := s.client.Publish(topic, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (s *MQTTSession) Messages() <-chan Message {
	return s.inbound
}

func (s *MQTTSession) Close() {
	s.client.Disconnect(250)
}
