package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProgressReport(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(5 * time.Minute)
	bounds := LedgerBounds{FirstCreatedAt: &t0, LastUpdatedAt: &t1}

	tests := []struct {
		name         string
		counts       []ChannelStatusCount
		bounds       LedgerBounds
		wantGlobal   ChannelProgress
		wantComplete bool
	}{
		{
			name:       "no rows",
			wantGlobal: ChannelProgress{},
		},
		{
			name: "in flight",
			counts: []ChannelStatusCount{
				{Channel: ChannelEmail, Status: StatusSent, Count: 2},
				{Channel: ChannelSMS, Status: StatusQueued, Count: 1},
			},
			bounds:     bounds,
			wantGlobal: ChannelProgress{Queued: 1, Sent: 2, Processed: 2, Total: 3, Percentage: 67},
		},
		{
			name: "complete with failures",
			counts: []ChannelStatusCount{
				{Channel: ChannelEmail, Status: StatusSent, Count: 1},
				{Channel: ChannelWhatsApp, Status: StatusFailed, Count: 1},
			},
			bounds:       bounds,
			wantGlobal:   ChannelProgress{Sent: 1, Failed: 1, Processed: 2, Total: 2, Percentage: 100},
			wantComplete: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := BuildProgressReport(ItemAnnouncement, "a1", tt.counts, tt.bounds)

			assert.Equal(t, tt.wantGlobal, r.Global)
			assert.Equal(t, tt.wantGlobal.Percentage, r.Percentage)
			assert.Equal(t, tt.wantComplete, r.IsComplete)
			require.Len(t, r.ByChannel, len(Channels))

			var sum ChannelProgress
			for _, c := range Channels {
				p := r.ByChannel[c]
				sum.Queued += p.Queued
				sum.Sent += p.Sent
				sum.Failed += p.Failed
				sum.Processed += p.Processed
				sum.Total += p.Total
			}
			assert.Equal(t, r.Global.Queued, sum.Queued)
			assert.Equal(t, r.Global.Sent, sum.Sent)
			assert.Equal(t, r.Global.Failed, sum.Failed)
			assert.Equal(t, r.Global.Processed, sum.Processed)
			assert.Equal(t, r.Global.Total, sum.Total)

			if tt.wantComplete {
				assert.Equal(t, tt.bounds.LastUpdatedAt, r.CompletedAt)
			} else {
				assert.Nil(t, r.CompletedAt)
			}
			assert.Equal(t, tt.bounds.FirstCreatedAt, r.StartedAt)
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, percentage(0, 0))
	assert.Equal(t, 33, percentage(1, 3))
	assert.Equal(t, 50, percentage(1, 2))
	assert.Equal(t, 100, percentage(3, 3))
}

func TestNewStatsWindow(t *testing.T) {
	loc := time.FixedZone("IST", 2*60*60)
	now := time.Date(2026, 3, 17, 15, 4, 5, 0, loc)

	w := NewStatsWindow(now)
	assert.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, loc), w.StartOfDay)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, loc), w.StartOfMonth)
}

func TestPreferenceEligible(t *testing.T) {
	dest := "+1555"
	empty := ""

	assert.True(t, Preference{Enabled: true, Destination: &dest}.Eligible())
	assert.False(t, Preference{Enabled: false, Destination: &dest}.Eligible())
	assert.False(t, Preference{Enabled: true, Destination: &empty}.Eligible())
	assert.False(t, Preference{Enabled: true}.Eligible())
}
