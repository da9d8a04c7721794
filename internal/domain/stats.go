package domain

import "time"

// StatsWindow fixes the reference instants of one stats read, in the
// location of Now.
type StatsWindow struct {
	Now          time.Time
	StartOfDay   time.Time
	StartOfMonth time.Time
}

func NewStatsWindow(now time.Time) StatsWindow {
	y, m, d := now.Date()
	return StatsWindow{
		Now:          now,
		StartOfDay:   time.Date(y, m, d, 0, 0, 0, 0, now.Location()),
		StartOfMonth: time.Date(y, m, 1, 0, 0, 0, 0, now.Location()),
	}
}

type DeliveryStats struct {
	Sent   int `json:"sent"`
	Queued int `json:"queued"`
	Failed int `json:"failed"`
}

// NewDeliveryStats coerces grouped counters into stats. Absent buckets stay 0.
func NewDeliveryStats(counts []StatusCount) DeliveryStats {
	var stats DeliveryStats
	for _, c := range counts {
		switch c.Status {
		case StatusSent:
			stats.Sent += int(c.Count)
		case StatusQueued:
			stats.Queued += int(c.Count)
		case StatusFailed:
			stats.Failed += int(c.Count)
		}
	}
	return stats
}

// StatsResult is the group admin dashboard summary.
type StatsResult struct {
	MemberCount            int           `json:"memberCount"`
	AnnouncementsThisMonth int           `json:"announcementsThisMonth"`
	ScheduledAnnouncements int           `json:"scheduledAnnouncements"`
	UpcomingEvents         int           `json:"upcomingEvents"`
	MessagesSentToday      int           `json:"messagesSentToday"`
	DeliveryStats          DeliveryStats `json:"deliveryStats"`
}

// GroupStatsSnapshot is the raw, store-native result of the group stats read.
type GroupStatsSnapshot struct {
	MemberCount            int64
	AnnouncementsThisMonth int64
	ScheduledAnnouncements int64
	UpcomingEvents         int64
	DeliveryCounts         []StatusCount
	SentToday              int64
}

type GroupBreakdown struct {
	GroupID            string          `json:"groupId"`
	Name               string          `json:"name"`
	MemberCount        int             `json:"memberCount"`
	AnnouncementCount  int             `json:"announcementCount"`
	EventCount         int             `json:"eventCount"`
	AdminNames         []string        `json:"adminNames"`
	ChannelPreferences map[Channel]int `json:"channelPreferences"`
}

// SuperAdminStats is the system-wide dashboard summary.
type SuperAdminStats struct {
	TotalGroups        int              `json:"totalGroups"`
	TotalUsers         int              `json:"totalUsers"`
	TotalMemberships   int              `json:"totalMemberships"`
	TotalAnnouncements int              `json:"totalAnnouncements"`
	TotalEvents        int              `json:"totalEvents"`
	MessagesSentToday  int              `json:"messagesSentToday"`
	DeliveryStats      DeliveryStats    `json:"deliveryStats"`
	Groups             []GroupBreakdown `json:"groups"`
}

type GroupSnapshot struct {
	Group             Group
	MemberCount       int64
	AnnouncementCount int64
	EventCount        int64
	AdminNames        []string
	// EnabledPreferences counts enabled preferences of the group's members per channel.
	EnabledPreferences []ChannelCount
}

type ChannelCount struct {
	Channel Channel
	Count   int64
}

// SystemStatsSnapshot is the raw result of the system-wide stats read.
type SystemStatsSnapshot struct {
	TotalGroups        int64
	TotalUsers         int64
	TotalMemberships   int64
	TotalAnnouncements int64
	TotalEvents        int64
	SentToday          int64
	DeliveryCounts     []StatusCount
	Groups             []GroupSnapshot
}
