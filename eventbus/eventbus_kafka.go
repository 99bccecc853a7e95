package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"review-digest/config"
)

const headerEventType = "event_type"

// flushTimeoutMs 는 Close 에서 남은 메시지를 내보내기 위해 기다리는 최대 시간이다.
const flushTimeoutMs = 5000

// Producer 는 KafkaEventBus 가 사용하는 kafka.Producer 기능이다.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

// KafkaEventBus 는 분석 이벤트를 Kafka 토픽 하나로 발행한다. 발행만 하며 구독은 하지 않는다.
type KafkaEventBus struct {
	producer Producer
}

var _ EventBus = (*KafkaEventBus)(nil)

func NewKafkaEventBus(brokers string) (*KafkaEventBus, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"acks":               "all",
		"enable.idempotence": true,
		"client.id":          "review-digest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer for %s: %w", brokers, err)
	}
	go logBackgroundEvents(p.Events())

	return NewKafkaEventBusWithProducer(p), nil
}

func NewKafkaEventBusWithProducer(p Producer) *KafkaEventBus {
	return &KafkaEventBus{producer: p}
}

// logBackgroundEvents 는 Publish 가 직접 받지 않는 클라이언트 수준 이벤트를 로그로 남긴다.
func logBackgroundEvents(events chan kafka.Event) {
	for e := range events {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				config.Logger.Warnf("kafka delivery failed (topic=%s): %v", topicName(ev), ev.TopicPartition.Error)
			}
		case kafka.Error:
			config.Logger.Errorf("kafka client error (code=%s): %v", ev.Code(), ev)
		}
	}
}

func (k *KafkaEventBus) Close() {
	if k.producer == nil {
		return
	}
	if remaining := k.producer.Flush(flushTimeoutMs); remaining > 0 {
		config.Logger.Warnf("kafka producer closed with %d undelivered analysis events", remaining)
	}
	k.producer.Close()
}

// Publish 는 이벤트 하나를 보내고 브로커 전달 보고를 받을 때까지 기다린다.
// 메시지 키는 이벤트 ID, event_type 헤더는 이벤트 타입이다.
func (k *KafkaEventBus) Publish(ctx context.Context, topic Topic, event Event) error {
	msg, err := newMessage(topic, event)
	if err != nil {
		return err
	}

	delivered := make(chan kafka.Event, 1)
	if err := k.producer.Produce(msg, delivered); err != nil {
		return fmt.Errorf("failed to enqueue %s event %s: %w", event.Type, event.ID, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case report := <-delivered:
		m, ok := report.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery report for event %s: %v", event.ID, report)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("event %s not delivered to %s: %w", event.ID, topicName(m), m.TopicPartition.Error)
		}
		return nil
	}
}

func newMessage(topic Topic, event Event) (*kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	name := topic.Base()
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &name, Partition: kafka.PartitionAny},
		Key:            []byte(event.ID),
		Value:          value,
		Headers:        []kafka.Header{{Key: headerEventType, Value: []byte(event.Type)}},
	}, nil
}

func topicName(m *kafka.Message) string {
	if m.TopicPartition.Topic == nil {
		return ""
	}
	return *m.TopicPartition.Topic
}
