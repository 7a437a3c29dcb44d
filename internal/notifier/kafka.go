package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

const defaultTopic = "revisable.retroactive-change"

var _ Notifier = (*Kafka)(nil)

// Kafka publishes change events to a kafka topic, keyed by revision set so
// events for one set stay ordered within a partition.
type Kafka struct {
	producer *kafka.Producer
	topic    string
}

func NewKafka(brokers, topic string) (*Kafka, error) {
	if topic == "" {
		topic = defaultTopic
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	k := &Kafka{producer: producer, topic: topic}
	go k.drainEvents()

	return k, nil
}

func (k *Kafka) Notify(ctx context.Context, event ChangeEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.RevisionSetID),
		Value:          value,
	}, nil)
}

func (k *Kafka) Close() {
	k.producer.Flush(5000)
	k.producer.Close()
}

// drainEvents consumes delivery reports so the producer channel never fills.
func (k *Kafka) drainEvents() {
	for e := range k.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			logrus.Errorf("kafka delivery failed for set %s: %v", string(m.Key), m.TopicPartition.Error)
		}
	}
}
