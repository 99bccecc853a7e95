package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// EnsureTopics 는 분석 이벤트 토픽이 없으면 만든다. 이미 있으면 성공이다.
// 로컬 단일 브로커 기준으로 replication factor 는 1 이다.
func EnsureTopics(brokers string, partitions int, topics ...Topic) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": brokers})
	if err != nil {
		return fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer admin.Close()

	wanted := make([]kafka.TopicSpecification, len(topics))
	for i, t := range topics {
		wanted[i] = kafka.TopicSpecification{Topic: t.Base(), NumPartitions: partitions, ReplicationFactor: 1}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	results, err := admin.CreateTopics(ctx, wanted)
	if err != nil {
		return fmt.Errorf("create topics request to %s failed: %w", brokers, err)
	}
	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError, kafka.ErrTopicAlreadyExists:
		default:
			return fmt.Errorf("topic %s: %v", r.Topic, r.Error)
		}
	}
	return nil
}
