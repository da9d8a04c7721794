package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateGroup(ctx, &domain.Group{ID: "g1", Name: "Cohens", Slug: "cohens"}))
	past := time.Now().Add(-time.Minute)
	require.NoError(t, s.CreateAnnouncement(ctx, &domain.Announcement{ID: "a1", FamilyGroupID: "g1", Title: "Hi", ScheduledAt: &past}))
	return s
}

func TestClaimIsExclusive(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	const claimers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			won, err := s.Claim(ctx, domain.ItemAnnouncement, "a1", time.Now())
			assert.NoError(t, err)
			if won {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestClaimRelease(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Now()

	won, err := s.Claim(ctx, domain.ItemAnnouncement, "a1", now)
	require.NoError(t, err)
	require.True(t, won)

	due, err := s.ListDueItems(ctx, domain.ItemAnnouncement, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	require.NoError(t, s.Release(ctx, domain.ItemAnnouncement, "a1"))

	due, err = s.ListDueItems(ctx, domain.ItemAnnouncement, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	won, err = s.Claim(ctx, domain.ItemAnnouncement, "a1", now)
	require.NoError(t, err)
	assert.True(t, won)

	_, err = s.Claim(ctx, domain.ItemEvent, "a1", now)
	require.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = s.ListDueItems(ctx, domain.ItemEvent, now, 10)
	require.ErrorIs(t, err, types.ErrInvalidInput)
	require.ErrorIs(t, s.Release(ctx, domain.ItemEvent, "a1"), types.ErrInvalidInput)
}

func TestLedger(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	attempts := []domain.DeliveryAttempt{
		{ID: "d1", ItemType: domain.ItemAnnouncement, ItemID: "a1", Channel: domain.ChannelEmail, CreatedAt: t0, UpdatedAt: t0},
		{ID: "d2", ItemType: domain.ItemAnnouncement, ItemID: "a1", Channel: domain.ChannelSMS, CreatedAt: t0.Add(time.Second), UpdatedAt: t0.Add(time.Second)},
		{ID: "d3", ItemType: domain.ItemAnnouncement, ItemID: "a1", Channel: domain.ChannelSMS, CreatedAt: t0, UpdatedAt: t0},
	}
	require.NoError(t, s.CreateQueued(ctx, attempts))
	require.Error(t, s.CreateQueued(ctx, attempts[:1]), "duplicate ids are rejected as a whole")

	require.NoError(t, s.Resolve(ctx, "d1", domain.AttemptResolution{Status: domain.StatusSent, At: t0.Add(time.Minute)}))
	require.NoError(t, s.Resolve(ctx, "d2", domain.AttemptResolution{Status: domain.StatusFailed, At: t0.Add(2 * time.Minute)}))
	require.ErrorIs(t, s.Resolve(ctx, "d1", domain.AttemptResolution{Status: domain.StatusFailed, At: t0}), types.ErrNotFound, "terminal rows are immutable")

	counts, err := s.CountByChannelStatus(ctx, domain.ItemAnnouncement, "a1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.ChannelStatusCount{
		{Channel: domain.ChannelEmail, Status: domain.StatusSent, Count: 1},
		{Channel: domain.ChannelSMS, Status: domain.StatusFailed, Count: 1},
		{Channel: domain.ChannelSMS, Status: domain.StatusQueued, Count: 1},
	}, counts)

	bounds, err := s.Bounds(ctx, domain.ItemAnnouncement, "a1")
	require.NoError(t, err)
	require.NotNil(t, bounds.FirstCreatedAt)
	assert.Equal(t, t0, *bounds.FirstCreatedAt)
	assert.Equal(t, t0.Add(2*time.Minute), *bounds.LastUpdatedAt)

	purged, err := s.PurgeQueued(ctx, domain.ItemAnnouncement, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, s.DeleteAnnouncement(ctx, "a1"))
	assert.Empty(t, s.Attempts(domain.ItemAnnouncement, "a1"), "the ledger goes with the announcement")
	require.ErrorIs(t, s.DeleteAnnouncement(ctx, "a1"), types.ErrItemNotFound)
}

func TestGroupSnapshotOwnership(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.CreateGroup(ctx, &domain.Group{ID: "g2", Name: "Levis", Slug: "levis"}))
	require.NoError(t, s.CreateEvent(ctx, &domain.Event{ID: "e1", FamilyGroupID: "g1", StartsAt: now.Add(time.Hour)},
		[]domain.EventReminder{{ID: "r1", ScheduledAt: now}}))
	require.NoError(t, s.CreateAnnouncement(ctx, &domain.Announcement{ID: "other", FamilyGroupID: "g2", Title: "x"}))

	require.NoError(t, s.CreateQueued(ctx, []domain.DeliveryAttempt{
		{ID: "1", ItemType: domain.ItemAnnouncement, ItemID: "a1", Channel: domain.ChannelEmail, CreatedAt: now},
		{ID: "2", ItemType: domain.ItemEvent, ItemID: "e1", Channel: domain.ChannelEmail, CreatedAt: now},
		{ID: "3", ItemType: domain.ItemEventReminder, ItemID: "r1", Channel: domain.ChannelEmail, CreatedAt: now},
		{ID: "4", ItemType: domain.ItemAnnouncement, ItemID: "other", Channel: domain.ChannelEmail, CreatedAt: now},
	}))
	require.NoError(t, s.Resolve(ctx, "1", domain.AttemptResolution{Status: domain.StatusSent, At: now}))

	snap, err := s.GroupSnapshot(ctx, "g1", domain.NewStatsWindow(now))
	require.NoError(t, err)

	assert.Equal(t, int64(1), snap.ScheduledAnnouncements)
	assert.Equal(t, int64(1), snap.UpcomingEvents)
	assert.Equal(t, int64(1), snap.SentToday)
	assert.Equal(t, domain.DeliveryStats{Sent: 1, Queued: 2}, domain.NewDeliveryStats(snap.DeliveryCounts))

	_, err = s.GroupSnapshot(ctx, "missing", domain.NewStatsWindow(now))
	require.ErrorIs(t, err, types.ErrNotFound)
}
