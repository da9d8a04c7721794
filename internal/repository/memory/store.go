// Package memory is an in-process implementation of the repository
// interfaces. It backs single-node development runs and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"
)

var (
	_ repository.ContentRepository    = (*Store)(nil)
	_ repository.MembershipRepository = (*Store)(nil)
	_ repository.DeliveryRepository   = (*Store)(nil)
	_ repository.StatsRepository      = (*Store)(nil)
)

type preferenceKey struct {
	userID  string
	channel domain.Channel
}

type membershipKey struct {
	userID  string
	groupID string
}

// Store keeps every entity in maps guarded by a single mutex, which makes
// each method, Claim included, atomic with respect to the others.
type Store struct {
	mu sync.RWMutex

	groups        map[string]domain.Group
	users         map[string]domain.User
	memberships   map[membershipKey]domain.Membership
	preferences   map[preferenceKey]domain.Preference
	announcements map[string]domain.Announcement
	events        map[string]domain.Event
	reminders     map[string]domain.EventReminder
	attempts      map[string]domain.DeliveryAttempt

	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the clock used for default timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		groups:        make(map[string]domain.Group),
		users:         make(map[string]domain.User),
		memberships:   make(map[membershipKey]domain.Membership),
		preferences:   make(map[preferenceKey]domain.Preference),
		announcements: make(map[string]domain.Announcement),
		events:        make(map[string]domain.Event),
		reminders:     make(map[string]domain.EventReminder),
		attempts:      make(map[string]domain.DeliveryAttempt),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) CreateGroup(_ context.Context, g *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[g.ID]; exists {
		return fmt.Errorf("group %s already exists: %w", g.ID, types.ErrInvalidInput)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	s.groups[g.ID] = *g
	return nil
}

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.ID]; exists {
		return fmt.Errorf("user %s already exists: %w", u.ID, types.ErrInvalidInput)
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, types.ErrUserNotFound)
	}
	return &u, nil
}

// Attempts returns a copy of every ledger row of the item.
func (s *Store) Attempts(itemType domain.ItemType, itemID string) []domain.DeliveryAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DeliveryAttempt, 0)
	for _, a := range s.attempts {
		if a.ItemType == itemType && a.ItemID == itemID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// content

func (s *Store) CreateAnnouncement(_ context.Context, a *domain.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[a.FamilyGroupID]; !ok {
		return fmt.Errorf("group %s: %w", a.FamilyGroupID, types.ErrGroupNotFound)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.announcements[a.ID] = *a
	return nil
}

func (s *Store) GetAnnouncement(_ context.Context, id string) (*domain.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.announcements[id]
	if !ok {
		return nil, fmt.Errorf("announcement %s: %w", id, types.ErrItemNotFound)
	}
	return &a, nil
}

func (s *Store) ListAnnouncementsByGroup(_ context.Context, groupID string, limit int) ([]domain.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Announcement, 0)
	for _, a := range s.announcements {
		if a.FamilyGroupID == groupID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (s *Store) DeleteAnnouncement(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.announcements[id]; !ok {
		return fmt.Errorf("announcement %s: %w", id, types.ErrItemNotFound)
	}
	delete(s.announcements, id)
	for attemptID, a := range s.attempts {
		if a.ItemType == domain.ItemAnnouncement && a.ItemID == id {
			delete(s.attempts, attemptID)
		}
	}
	return nil
}

func (s *Store) CreateEvent(_ context.Context, e *domain.Event, reminders []domain.EventReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[e.FamilyGroupID]; !ok {
		return fmt.Errorf("group %s: %w", e.FamilyGroupID, types.ErrGroupNotFound)
	}
	now := s.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	s.events[e.ID] = *e
	for i := range reminders {
		reminders[i].EventID = e.ID
		if reminders[i].CreatedAt.IsZero() {
			reminders[i].CreatedAt = now
		}
		s.reminders[reminders[i].ID] = reminders[i]
	}
	return nil
}

func (s *Store) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, types.ErrItemNotFound)
	}
	return &e, nil
}

func (s *Store) ListEventsByGroup(_ context.Context, groupID string, limit int) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, 0)
	for _, e := range s.events {
		if e.FamilyGroupID == groupID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return truncate(out, limit), nil
}

func (s *Store) GetEventReminder(_ context.Context, id string) (*domain.EventReminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reminders[id]
	if !ok {
		return nil, fmt.Errorf("event reminder %s: %w", id, types.ErrItemNotFound)
	}
	return &r, nil
}

func (s *Store) ListDueItems(_ context.Context, itemType domain.ItemType, now time.Time, limit int) ([]domain.DueItem, error) {
	if !itemType.Schedulable() {
		return nil, errNotSchedulable(itemType)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DueItem, 0)
	switch itemType {
	case domain.ItemAnnouncement:
		for _, a := range s.announcements {
			if a.ScheduledAt != nil && !a.ScheduledAt.After(now) && a.PublishedAt == nil {
				out = append(out, domain.DueItem{Type: itemType, ID: a.ID, FamilyGroupID: a.FamilyGroupID, ScheduledAt: *a.ScheduledAt})
			}
		}
	case domain.ItemEventReminder:
		for _, r := range s.reminders {
			e, ok := s.events[r.EventID]
			if !ok {
				continue
			}
			if !r.ScheduledAt.After(now) && r.SentAt == nil {
				out = append(out, domain.DueItem{Type: itemType, ID: r.ID, FamilyGroupID: e.FamilyGroupID, ScheduledAt: r.ScheduledAt})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return truncate(out, limit), nil
}

func (s *Store) Claim(_ context.Context, itemType domain.ItemType, id string, at time.Time) (bool, error) {
	if !itemType.Schedulable() {
		return false, errNotSchedulable(itemType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch itemType {
	case domain.ItemAnnouncement:
		a, ok := s.announcements[id]
		if !ok || a.PublishedAt != nil {
			return false, nil
		}
		a.PublishedAt = &at
		s.announcements[id] = a
		return true, nil
	case domain.ItemEventReminder:
		r, ok := s.reminders[id]
		if !ok || r.SentAt != nil {
			return false, nil
		}
		r.SentAt = &at
		s.reminders[id] = r
		return true, nil
	}
	return false, nil
}

func (s *Store) Release(_ context.Context, itemType domain.ItemType, id string) error {
	if !itemType.Schedulable() {
		return errNotSchedulable(itemType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch itemType {
	case domain.ItemAnnouncement:
		a, ok := s.announcements[id]
		if !ok {
			return types.ErrNotFound
		}
		a.PublishedAt = nil
		s.announcements[id] = a
		return nil
	case domain.ItemEventReminder:
		r, ok := s.reminders[id]
		if !ok {
			return types.ErrNotFound
		}
		r.SentAt = nil
		s.reminders[id] = r
	}
	return nil
}

func errNotSchedulable(itemType domain.ItemType) error {
	return fmt.Errorf("item type %s is not schedulable: %w", itemType, types.ErrInvalidInput)
}

// memberships and preferences

func (s *Store) GetGroup(_ context.Context, id string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, types.ErrGroupNotFound)
	}
	return &g, nil
}

func (s *Store) ListMemberships(_ context.Context, groupID string) ([]domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Membership, 0)
	for _, m := range s.memberships {
		if m.FamilyGroupID == groupID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) ListPreferences(_ context.Context, userIDs []string) ([]domain.Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Preference, 0)
	for _, userID := range userIDs {
		for _, c := range domain.Channels {
			if p, ok := s.preferences[preferenceKey{userID: userID, channel: c}]; ok {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (s *Store) SaveMembership(_ context.Context, m *domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[m.FamilyGroupID]; !ok {
		return fmt.Errorf("group %s: %w", m.FamilyGroupID, types.ErrGroupNotFound)
	}
	if _, ok := s.users[m.UserID]; !ok {
		return fmt.Errorf("user %s: %w", m.UserID, types.ErrUserNotFound)
	}
	key := membershipKey{userID: m.UserID, groupID: m.FamilyGroupID}
	if existing, ok := s.memberships[key]; ok {
		m.CreatedAt = existing.CreatedAt
	} else if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.memberships[key] = *m
	return nil
}

func (s *Store) RemoveMembership(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{userID: userID, groupID: groupID}
	if _, ok := s.memberships[key]; !ok {
		return types.ErrNotFound
	}
	delete(s.memberships, key)
	return nil
}

func (s *Store) UpsertPreference(_ context.Context, p *domain.Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.preferences[preferenceKey{userID: p.UserID, channel: p.Channel}] = *p
	return nil
}

// ledger

func (s *Store) CreateQueued(_ context.Context, attempts []domain.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range attempts {
		if _, exists := s.attempts[a.ID]; exists {
			return fmt.Errorf("attempt %s already exists: %w", a.ID, types.ErrStoreFailure)
		}
	}
	for _, a := range attempts {
		a.Status = domain.StatusQueued
		s.attempts[a.ID] = a
	}
	return nil
}

func (s *Store) Resolve(_ context.Context, id string, res domain.AttemptResolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.attempts[id]
	if !ok || a.Status != domain.StatusQueued {
		return types.ErrNotFound
	}
	a.Status = res.Status
	a.ProviderMessageID = res.ProviderMessageID
	a.Error = res.Error
	a.UpdatedAt = res.At
	s.attempts[id] = a
	return nil
}

func (s *Store) CountByChannelStatus(_ context.Context, itemType domain.ItemType, itemID string) ([]domain.ChannelStatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type bucket struct {
		channel domain.Channel
		status  domain.DeliveryStatus
	}
	counts := make(map[bucket]int64)
	for _, a := range s.attempts {
		if a.ItemType == itemType && a.ItemID == itemID {
			counts[bucket{a.Channel, a.Status}]++
		}
	}

	out := make([]domain.ChannelStatusCount, 0, len(counts))
	for b, n := range counts {
		out = append(out, domain.ChannelStatusCount{Channel: b.channel, Status: b.status, Count: n})
	}
	return out, nil
}

func (s *Store) Bounds(_ context.Context, itemType domain.ItemType, itemID string) (domain.LedgerBounds, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bounds domain.LedgerBounds
	for _, a := range s.attempts {
		if a.ItemType != itemType || a.ItemID != itemID {
			continue
		}
		created, updated := a.CreatedAt, a.UpdatedAt
		if bounds.FirstCreatedAt == nil || created.Before(*bounds.FirstCreatedAt) {
			bounds.FirstCreatedAt = &created
		}
		if bounds.LastUpdatedAt == nil || updated.After(*bounds.LastUpdatedAt) {
			bounds.LastUpdatedAt = &updated
		}
	}
	return bounds, nil
}

func (s *Store) PurgeQueued(_ context.Context, itemType domain.ItemType, itemID string) (int64, error) {
	return s.deleteAttempts(func(a domain.DeliveryAttempt) bool {
		return a.ItemType == itemType && a.ItemID == itemID && a.Status == domain.StatusQueued
	}), nil
}

func (s *Store) deleteAttempts(match func(domain.DeliveryAttempt) bool) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, a := range s.attempts {
		if match(a) {
			delete(s.attempts, id)
			n++
		}
	}
	return n
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
