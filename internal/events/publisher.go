// Package events streams ledger transitions to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/config"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// DeliveryEvent is emitted once per attempt when it reaches SENT or FAILED.
type DeliveryEvent struct {
	AttemptID         string                `json:"attemptId"`
	ItemType          domain.ItemType       `json:"itemType"`
	ItemID            string                `json:"itemId"`
	FamilyGroupID     string                `json:"familyGroupId"`
	Channel           domain.Channel        `json:"channel"`
	Status            domain.DeliveryStatus `json:"status"`
	UserID            string                `json:"userId"`
	ProviderMessageID string                `json:"providerMessageId,omitempty"`
	Error             string                `json:"error,omitempty"`
	At                time.Time             `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, events ...DeliveryEvent) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(cfg config.KafkaConfig) Publisher {
	if len(cfg.Brokers) == 0 {
		logrus.Info("Kafka brokers not configured, delivery events disabled")
		return NoopPublisher{}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	logrus.WithFields(logrus.Fields{"brokers": cfg.Brokers, "topic": cfg.Topic}).Info("Kafka publisher configured")
	return &kafkaPublisher{writer: writer}
}

// Publish keys messages by item id so one item's events stay ordered.
func (p *kafkaPublisher) Publish(ctx context.Context, events ...DeliveryEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.ItemID),
			Value: value,
			Time:  e.At,
		})
	}

	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ...DeliveryEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
