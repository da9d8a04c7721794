package events

import (
	"context"
	"testing"

	"github.com/Zvi-Yafi/family-notify-sub001/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher(t *testing.T) {
	t.Run("no brokers gives a no-op publisher", func(t *testing.T) {
		p := NewPublisher(config.KafkaConfig{Topic: "delivery-attempts"})
		_, ok := p.(NoopPublisher)
		require.True(t, ok)
		assert.NoError(t, p.Publish(context.Background(), DeliveryEvent{ItemID: "a1"}))
		assert.NoError(t, p.Close())
	})

	t.Run("brokers give a kafka publisher", func(t *testing.T) {
		p := NewPublisher(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "delivery-attempts"})
		kp, ok := p.(*kafkaPublisher)
		require.True(t, ok)
		assert.Equal(t, "delivery-attempts", kp.writer.Topic)
		assert.NoError(t, kp.Publish(context.Background()))
		assert.NoError(t, p.Close())
	})
}
