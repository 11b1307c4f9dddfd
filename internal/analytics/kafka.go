package analytics

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink produces events to a Kafka topic, keyed by session so one
// session's events stay ordered within a partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, err
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, err
	}
	for _, res := range resp {
		if res.Err != nil && res.Err != kerr.TopicAlreadyExists {
			client.Close()
			return nil, res.Err
		}
	}

	return &KafkaSink{client: client, topic: topic, logger: logger}, nil
}

// Emit produces asynchronously; delivery failures are logged and dropped so
// analytics never blocks a request.
func (s *KafkaSink) Emit(ctx context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode analytics event",
			"type", event.Type,
			"error", err,
		)
		return
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.SessionID),
		Value: value,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("failed to produce analytics event",
				"type", event.Type,
				"error", err,
			)
		}
	})
}

// Close flushes outstanding records and releases the client.
func (s *KafkaSink) Close(ctx context.Context) error {
	err := s.client.Flush(ctx)
	s.client.Close()
	return err
}
