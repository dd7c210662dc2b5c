package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConsumer reads the arbiter's verdict topic as part of a consumer
// group. Offsets are committed by the caller once a message is handled.
type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaConsumer(brokers []string, groupID string, topics []string) (*KafkaConsumer, error) {
	switch {
	case len(brokers) == 0:
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	case groupID == "":
		return nil, fmt.Errorf("kafka consumer requires group id")
	case len(topics) == 0:
		return nil, fmt.Errorf("kafka consumer requires at least one topic")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
	return &KafkaConsumer{reader: reader}, nil
}

func (c *KafkaConsumer) Poll(ctx context.Context, max int) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	fetched := make([]kafka.Message, 0, max)
	for len(fetched) < max {
		readCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		msg, err := c.reader.FetchMessage(readCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			if errors.Is(err, context.Canceled) {
				return nil, ctx.Err()
			}
			return nil, err
		}
		fetched = append(fetched, msg)
	}
	out := make([]Message, 0, len(fetched))
	for _, msg := range fetched {
		out = append(out, Message{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset, Payload: msg.Value})
	}
	return out, nil
}

func (c *KafkaConsumer) Commit(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	marks := make([]kafka.Message, 0, len(msgs))
	for _, msg := range msgs {
		marks = append(marks, kafka.Message{Topic: msg.Topic, Partition: msg.Partition, Offset: msg.Offset})
	}
	if err := c.reader.CommitMessages(ctx, marks...); err != nil {
		return fmt.Errorf("commit kafka offsets: %w", err)
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
