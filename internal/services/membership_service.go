package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/cache"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type MembershipService interface {
	CreateGroup(ctx context.Context, name, slug string) (*domain.Group, error)
	CreateUser(ctx context.Context, name, email string) (*domain.User, error)
	AddMember(ctx context.Context, groupID, userID string, role domain.Role) (*domain.Membership, error)
	RemoveMember(ctx context.Context, groupID, userID string) error
	SetPreference(ctx context.Context, p domain.Preference) (*domain.Preference, error)
}

type membershipService struct {
	members repository.MembershipRepository
	caches  *cache.Loader
}

func NewMembershipService(members repository.MembershipRepository, caches *cache.Loader) MembershipService {
	return &membershipService{members: members, caches: caches}
}

func (s *membershipService) CreateGroup(ctx context.Context, name, slug string) (*domain.Group, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("name is required: %w", types.ErrInvalidInput)
	}
	if slug == "" {
		slug = strings.ToLower(strings.Join(strings.Fields(name), "-"))
	}

	g := &domain.Group{ID: uuid.NewString(), Name: name, Slug: slug}
	if err := s.members.CreateGroup(ctx, g); err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.SuperAdminStatsKey())
	return g, nil
}

func (s *membershipService) CreateUser(ctx context.Context, name, email string) (*domain.User, error) {
	u := &domain.User{ID: uuid.NewString(), Name: name, Email: email}
	if err := s.members.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.SuperAdminStatsKey())
	return u, nil
}

func (s *membershipService) AddMember(ctx context.Context, groupID, userID string, role domain.Role) (*domain.Membership, error) {
	if role == "" {
		role = domain.RoleMember
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("unknown role %q: %w", role, types.ErrInvalidInput)
	}
	if userID == "" {
		return nil, fmt.Errorf("userId is required: %w", types.ErrInvalidInput)
	}

	if _, err := s.members.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	if _, err := s.members.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	m := &domain.Membership{UserID: userID, FamilyGroupID: groupID, Role: role}
	if err := s.members.SaveMembership(ctx, m); err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.GroupStatsKey(groupID), cache.SuperAdminStatsKey())
	return m, nil
}

func (s *membershipService) RemoveMember(ctx context.Context, groupID, userID string) error {
	if err := s.members.RemoveMembership(ctx, groupID, userID); err != nil {
		return err
	}

	s.invalidate(ctx, cache.GroupStatsKey(groupID), cache.SuperAdminStatsKey())
	return nil
}

// SetPreference stores the user's opt-in for one channel.
func (s *membershipService) SetPreference(ctx context.Context, p domain.Preference) (*domain.Preference, error) {
	if !p.Channel.IsValid() {
		return nil, fmt.Errorf("unknown channel %q: %w", p.Channel, types.ErrInvalidInput)
	}
	if p.Enabled && (p.Destination == nil || *p.Destination == "") {
		return nil, fmt.Errorf("an enabled channel needs a destination: %w", types.ErrInvalidInput)
	}

	if err := s.members.UpsertPreference(ctx, &p); err != nil {
		return nil, err
	}

	s.invalidate(ctx, cache.SuperAdminStatsKey())
	return &p, nil
}

func (s *membershipService) invalidate(ctx context.Context, keys ...string) {
	if err := s.caches.Invalidate(ctx, keys...); err != nil {
		logrus.WithError(err).Warn("Failed to invalidate caches")
	}
}
