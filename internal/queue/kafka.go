package queue

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/aqi-predictor/pkg/config"
)

// writeBatchTimeout bounds how long a synchronous write waits to fill a
// batch; collection publishes a whole run at once.
const writeBatchTimeout = 50 * time.Millisecond

// CityKey is the message key for a city
func CityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// PartitionForCity maps a city onto one of n partitions. Every message of
// a city lands on the same partition, so a city's readings stay ordered.
func PartitionForCity(city string, n int) int {
	if n <= 0 {
		return 0
	}
	return int(crc32.ChecksumIEEE([]byte(CityKey(city))) % uint32(n))
}

// cityBalancer places messages by their city key
type cityBalancer struct{}

func (cityBalancer) Balance(msg kafka.Message, partitions ...int) int {
	if len(partitions) == 0 {
		return 0
	}
	return partitions[PartitionForCity(string(msg.Key), len(partitions))]
}

// Producer writes encoded messages to one topic
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a synchronous producer for topic
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     cityBalancer{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: writeBatchTimeout,
		},
	}
}

// PublishBatch writes messages and waits for the broker to acknowledge them
func (p *Producer) PublishBatch(ctx context.Context, messages []kafka.Message) error {
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed to write %d messages to %s: %w", len(messages), p.writer.Topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer reads one topic as part of a consumer group. Offsets are only
// committed through Commit.
type Consumer struct {
	topic  string
	reader *kafka.Reader
}

// NewConsumer joins the configured group on topic. A new group starts
// from the oldest retained message.
func NewConsumer(cfg config.KafkaConfig, topic string) *Consumer {
	return &Consumer{
		topic: topic,
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.GroupID,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.FirstOffset,
		}),
	}
}

// Consume blocks for the next message
func (c *Consumer) Consume(ctx context.Context) (kafka.Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to fetch from %s: %w", c.topic, err)
	}
	return msg, nil
}

// Commit marks msgs as processed for the group
func (c *Consumer) Commit(ctx context.Context, msgs ...kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to commit %d offsets on %s: %w", len(msgs), c.topic, err)
	}
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Topic returns the topic the consumer reads
func (c *Consumer) Topic() string {
	return c.topic
}

// Stats returns reader counters since the last call
func (c *Consumer) Stats() kafka.ReaderStats {
	return c.reader.Stats()
}

// EnsureTopics creates any of topics the cluster does not have yet, with
// the configured partitions and replication factor.
func EnsureTopics(cfg config.KafkaConfig, topics ...string) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("no brokers configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}
	defer conn.Close()

	existing := make(map[string]bool)
	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to list topics: %w", err)
	}
	for _, p := range partitions {
		existing[p.Topic] = true
	}

	var missing []kafka.TopicConfig
	for _, topic := range topics {
		if existing[topic] {
			continue
		}
		missing = append(missing, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     cfg.Partitions,
			ReplicationFactor: cfg.ReplicationFactor,
		})
	}
	if len(missing) == 0 {
		return nil
	}

	// Topic creation has to go through the controller
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find controller: %w", err)
	}
	ctrl, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial controller: %w", err)
	}
	defer ctrl.Close()

	if err := ctrl.CreateTopics(missing...); err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for _, t := range missing {
		fmt.Printf("Created topic %s with %d partitions\n", t.Topic, t.NumPartitions)
	}
	return nil
}
