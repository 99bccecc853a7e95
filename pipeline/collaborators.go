package pipeline

import (
	"context"
	"fmt"
	"time"

	"review-digest/config"
	"review-digest/db"
	"review-digest/eventbus"
	"review-digest/repositories"
)

// ConnectCollaborators 는 설정된 경우에만 MongoDB 호출 로그 저장소와 Kafka 이벤트 버스를 연결한다.
// 반환된 close 함수는 연결한 순서의 역순으로 자원을 정리한다.
func ConnectCollaborators(ctx context.Context, cfg config.AppConfig) ([]Option, func(), error) {
	var (
		opts    []Option
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Mongo.URI != "" {
		if err := db.Init(ctx, cfg.Mongo); err != nil {
			return nil, closeAll, fmt.Errorf("failed to connect mongo: %w", err)
		}
		opts = append(opts, WithCallLogStore(repositories.NewAILogRepository(db.Database())))
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Disconnect(ctx); err != nil {
				config.Logger.Warnf("failed to disconnect mongo: %v", err)
			}
		})
	} else {
		config.Logger.Info("mongo.uri not set, model call logs are not stored")
	}

	if cfg.Kafka.Brokers != "" {
		if err := eventbus.EnsureTopics(cfg.Kafka.Brokers, cfg.Kafka.Partitions, eventbus.NewTopic(cfg.Kafka.Topic)); err != nil {
			config.Logger.Warnf("failed to ensure kafka topic %s: %v", cfg.Kafka.Topic, err)
		}
		bus, err := eventbus.NewKafkaEventBus(cfg.Kafka.Brokers)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		opts = append(opts, WithEventBus(bus))
		closers = append(closers, bus.Close)
	} else {
		config.Logger.Info("kafka.brokers not set, analysis events are not published")
	}

	return opts, closeAll, nil
}
