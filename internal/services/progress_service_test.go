package services

import (
	"context"
	"testing"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDeliveryProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("item without rows reports all zeros", func(t *testing.T) {
		f := newFixture(t)

		got, err := f.progress.GetDeliveryProgress(ctx, domain.ItemAnnouncement, "none")
		require.NoError(t, err)

		assert.False(t, got.IsComplete)
		assert.Nil(t, got.StartedAt)
		assert.Nil(t, got.CompletedAt)
		assert.Zero(t, got.Percentage)
		assert.Equal(t, domain.ChannelProgress{}, got.Global)
		require.Len(t, got.ByChannel, len(domain.Channels))
		for _, c := range domain.Channels {
			assert.Equal(t, domain.ChannelProgress{}, got.ByChannel[c])
		}
	})

	t.Run("finished dispatch is complete", func(t *testing.T) {
		f := newFixture(t, withFailing(domain.ChannelSMS))
		f.seedGroup(t, "g1",
			member{id: "u1", prefs: map[domain.Channel]string{domain.ChannelEmail: "u1@example.com", domain.ChannelSMS: "+1555"}},
			member{id: "u2", prefs: map[domain.Channel]string{domain.ChannelEmail: "u2@example.com"}},
		)
		f.addAnnouncement(t, "g1", "a1", nil)

		_, err := f.dispatch.DispatchAnnouncement(ctx, AnnouncementDispatch{AnnouncementID: "a1", FamilyGroupID: "g1"})
		require.NoError(t, err)

		got, err := f.progress.GetDeliveryProgress(ctx, domain.ItemAnnouncement, "a1")
		require.NoError(t, err)

		assert.True(t, got.IsComplete)
		assert.Equal(t, 100, got.Percentage)
		assert.Equal(t, domain.ChannelProgress{Sent: 2, Processed: 2, Total: 2, Percentage: 100}, got.ByChannel[domain.ChannelEmail])
		assert.Equal(t, domain.ChannelProgress{Failed: 1, Processed: 1, Total: 1, Percentage: 100}, got.ByChannel[domain.ChannelSMS])
		assert.Equal(t, 3, got.Global.Total)
		require.NotNil(t, got.StartedAt)
		require.NotNil(t, got.CompletedAt)
		assert.False(t, got.CompletedAt.Before(*got.StartedAt))
	})

	t.Run("unknown item type is invalid input", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.progress.GetDeliveryProgress(ctx, domain.ItemType("POLL"), "x")
		require.ErrorIs(t, err, types.ErrInvalidInput)
	})
}
