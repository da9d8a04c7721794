package services

import (
	"context"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/cache"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository"
)

// UnknownAdminName stands in for a group without a resolvable admin.
const UnknownAdminName = "Unknown admin"

type StatsService interface {
	GetGroupStats(ctx context.Context, groupID string) (*domain.StatsResult, error)
	InvalidateGroupStatsCache(ctx context.Context, groupID string) error
	GetSuperAdminStats(ctx context.Context) (*domain.SuperAdminStats, error)
	InvalidateSuperAdminStatsCache(ctx context.Context) error
}

type statsService struct {
	stats   repository.StatsRepository
	members repository.MembershipRepository
	caches  *cache.Loader
	now     func() time.Time
}

func NewStatsService(stats repository.StatsRepository, members repository.MembershipRepository, caches *cache.Loader) StatsService {
	return &statsService{stats: stats, members: members, caches: caches, now: time.Now}
}

func (s *statsService) GetGroupStats(ctx context.Context, groupID string) (*domain.StatsResult, error) {
	result, err := cache.GetOrLoad(ctx, s.caches, cache.GroupStatsKey(groupID), func(ctx context.Context) (domain.StatsResult, error) {
		if _, err := s.members.GetGroup(ctx, groupID); err != nil {
			return domain.StatsResult{}, err
		}

		snap, err := s.stats.GroupSnapshot(ctx, groupID, domain.NewStatsWindow(s.now()))
		if err != nil {
			return domain.StatsResult{}, err
		}

		return groupStatsFromSnapshot(snap), nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *statsService) InvalidateGroupStatsCache(ctx context.Context, groupID string) error {
	return s.caches.Invalidate(ctx, cache.GroupStatsKey(groupID))
}

func (s *statsService) GetSuperAdminStats(ctx context.Context) (*domain.SuperAdminStats, error) {
	result, err := cache.GetOrLoad(ctx, s.caches, cache.SuperAdminStatsKey(), func(ctx context.Context) (domain.SuperAdminStats, error) {
		snap, err := s.stats.SystemSnapshot(ctx, domain.NewStatsWindow(s.now()))
		if err != nil {
			return domain.SuperAdminStats{}, err
		}

		return superAdminStatsFromSnapshot(snap), nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *statsService) InvalidateSuperAdminStatsCache(ctx context.Context) error {
	return s.caches.Invalidate(ctx, cache.SuperAdminStatsKey())
}

func groupStatsFromSnapshot(snap domain.GroupStatsSnapshot) domain.StatsResult {
	return domain.StatsResult{
		MemberCount:            int(snap.MemberCount),
		AnnouncementsThisMonth: int(snap.AnnouncementsThisMonth),
		ScheduledAnnouncements: int(snap.ScheduledAnnouncements),
		UpcomingEvents:         int(snap.UpcomingEvents),
		MessagesSentToday:      int(snap.SentToday),
		DeliveryStats:          domain.NewDeliveryStats(snap.DeliveryCounts),
	}
}

func superAdminStatsFromSnapshot(snap domain.SystemStatsSnapshot) domain.SuperAdminStats {
	groups := make([]domain.GroupBreakdown, 0, len(snap.Groups))
	for _, g := range snap.Groups {
		prefs := make(map[domain.Channel]int, len(domain.Channels))
		for _, c := range domain.Channels {
			prefs[c] = 0
		}
		for _, cc := range g.EnabledPreferences {
			prefs[cc.Channel] += int(cc.Count)
		}

		admins := g.AdminNames
		if len(admins) == 0 {
			admins = []string{UnknownAdminName}
		}

		groups = append(groups, domain.GroupBreakdown{
			GroupID:            g.Group.ID,
			Name:               g.Group.Name,
			MemberCount:        int(g.MemberCount),
			AnnouncementCount:  int(g.AnnouncementCount),
			EventCount:         int(g.EventCount),
			AdminNames:         admins,
			ChannelPreferences: prefs,
		})
	}

	return domain.SuperAdminStats{
		TotalGroups:        int(snap.TotalGroups),
		TotalUsers:         int(snap.TotalUsers),
		TotalMemberships:   int(snap.TotalMemberships),
		TotalAnnouncements: int(snap.TotalAnnouncements),
		TotalEvents:        int(snap.TotalEvents),
		MessagesSentToday:  int(snap.SentToday),
		DeliveryStats:      domain.NewDeliveryStats(snap.DeliveryCounts),
		Groups:             groups,
	}
}
