package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/smukkama/aqi-predictor/internal/protocol"
	"github.com/smukkama/aqi-predictor/pkg/config"
)

// publishTimeout bounds how long a publish waits for broker acknowledgement
const publishTimeout = 5 * time.Second

// tokenPublisher is the part of mqtt.Client the publisher needs
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher publishes retained snapshots, one topic per city
type Publisher struct {
	client       tokenPublisher
	conn         mqtt.Client
	topicPattern string
}

// Connect opens a broker connection and returns a publisher on it
func Connect(cfg config.MQTTConfig) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetOnConnectHandler(connectHandler)
	opts.SetConnectionLostHandler(connectLostHandler)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Println("MQTT: Connected to broker:", cfg.Broker)

	p := NewPublisher(client, cfg.TopicPattern)
	p.conn = client
	return p, nil
}

// NewPublisher wraps an existing client
func NewPublisher(client tokenPublisher, topicPattern string) *Publisher {
	if topicPattern == "" {
		topicPattern = "aqi/{city}/current"
	}
	return &Publisher{client: client, topicPattern: topicPattern}
}

// Topic returns the snapshot topic for city
func (p *Publisher) Topic(city string) string {
	return formatTopic(p.topicPattern, city)
}

// PublishSnapshot publishes snap as a retained QoS 1 message
func (p *Publisher) PublishSnapshot(city string, snap *protocol.Snapshot) error {
	payload, err := json.Marshal(&protocol.SnapshotMessage{
		Type:     protocol.MsgTypeSnapshot,
		City:     city,
		Snapshot: *snap,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	topic := p.Topic(city)
	token := p.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timed out publishing snapshot to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	log.Printf("MQTT: Published snapshot for %s to topic: %s", city, topic)
	return nil
}

// Close disconnects a publisher created by Connect
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Disconnect(250)
		log.Println("MQTT: Disconnected")
	}
}

// formatTopic replaces the {city} placeholder
func formatTopic(pattern, city string) string {
	return strings.ReplaceAll(pattern, "{city}", city)
}

var connectHandler mqtt.OnConnectHandler = func(client mqtt.Client) {
	log.Println("MQTT: Connection established")
}

var connectLostHandler mqtt.ConnectionLostHandler = func(client mqtt.Client, err error) {
	log.Printf("MQTT: Connection lost: %v", err)
}
