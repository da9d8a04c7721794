package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"
)

// GroupSnapshot holds the read lock for the whole read, so counters come
// from one consistent view.
func (s *Store) GroupSnapshot(_ context.Context, groupID string, window domain.StatsWindow) (domain.GroupStatsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snap domain.GroupStatsSnapshot
	if _, ok := s.groups[groupID]; !ok {
		return snap, fmt.Errorf("group %s: %w", groupID, types.ErrGroupNotFound)
	}

	for _, m := range s.memberships {
		if m.FamilyGroupID == groupID {
			snap.MemberCount++
		}
	}
	for _, a := range s.announcements {
		if a.FamilyGroupID != groupID {
			continue
		}
		if !a.CreatedAt.Before(window.StartOfMonth) {
			snap.AnnouncementsThisMonth++
		}
		if a.ScheduledAt != nil && a.PublishedAt == nil {
			snap.ScheduledAnnouncements++
		}
	}
	for _, e := range s.events {
		if e.FamilyGroupID == groupID && e.StartsAt.After(window.Now) {
			snap.UpcomingEvents++
		}
	}

	byStatus := make(map[domain.DeliveryStatus]int64)
	for _, a := range s.attempts {
		if !s.ownedBy(a, groupID) {
			continue
		}
		byStatus[a.Status]++
		if a.Status == domain.StatusSent && !a.CreatedAt.Before(window.StartOfDay) {
			snap.SentToday++
		}
	}
	snap.DeliveryCounts = statusCounts(byStatus)

	return snap, nil
}

func (s *Store) SystemSnapshot(_ context.Context, window domain.StatsWindow) (domain.SystemStatsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.SystemStatsSnapshot{
		TotalGroups:        int64(len(s.groups)),
		TotalUsers:         int64(len(s.users)),
		TotalMemberships:   int64(len(s.memberships)),
		TotalAnnouncements: int64(len(s.announcements)),
		TotalEvents:        int64(len(s.events)),
	}

	byStatus := make(map[domain.DeliveryStatus]int64)
	for _, a := range s.attempts {
		byStatus[a.Status]++
		if a.Status == domain.StatusSent && !a.CreatedAt.Before(window.StartOfDay) {
			snap.SentToday++
		}
	}
	snap.DeliveryCounts = statusCounts(byStatus)

	groups := make([]domain.Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })

	snap.Groups = make([]domain.GroupSnapshot, 0, len(groups))
	for _, g := range groups {
		snap.Groups = append(snap.Groups, s.groupBreakdown(g))
	}

	return snap, nil
}

func (s *Store) groupBreakdown(g domain.Group) domain.GroupSnapshot {
	gs := domain.GroupSnapshot{Group: g}

	enabled := make(map[domain.Channel]int64)
	for _, m := range s.memberships {
		if m.FamilyGroupID != g.ID {
			continue
		}
		gs.MemberCount++
		if u, ok := s.users[m.UserID]; ok && m.Role == domain.RoleAdmin && u.Name != "" {
			gs.AdminNames = append(gs.AdminNames, u.Name)
		}
		for _, c := range domain.Channels {
			if p, ok := s.preferences[preferenceKey{userID: m.UserID, channel: c}]; ok && p.Enabled {
				enabled[c]++
			}
		}
	}
	sort.Strings(gs.AdminNames)

	for _, c := range domain.Channels {
		if n := enabled[c]; n > 0 {
			gs.EnabledPreferences = append(gs.EnabledPreferences, domain.ChannelCount{Channel: c, Count: n})
		}
	}

	for _, a := range s.announcements {
		if a.FamilyGroupID == g.ID {
			gs.AnnouncementCount++
		}
	}
	for _, e := range s.events {
		if e.FamilyGroupID == g.ID {
			gs.EventCount++
		}
	}

	return gs
}

// ownedBy resolves the owning group of an attempt through its item.
func (s *Store) ownedBy(a domain.DeliveryAttempt, groupID string) bool {
	switch a.ItemType {
	case domain.ItemAnnouncement:
		item, ok := s.announcements[a.ItemID]
		return ok && item.FamilyGroupID == groupID
	case domain.ItemEvent:
		item, ok := s.events[a.ItemID]
		return ok && item.FamilyGroupID == groupID
	case domain.ItemEventReminder:
		r, ok := s.reminders[a.ItemID]
		if !ok {
			return false
		}
		e, ok := s.events[r.EventID]
		return ok && e.FamilyGroupID == groupID
	}
	return false
}

func statusCounts(byStatus map[domain.DeliveryStatus]int64) []domain.StatusCount {
	out := make([]domain.StatusCount, 0, len(byStatus))
	for status, n := range byStatus {
		out = append(out, domain.StatusCount{Status: status, Count: n})
	}
	return out
}
