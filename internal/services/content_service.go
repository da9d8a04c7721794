package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/cache"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const listLimit = 50

type CreateAnnouncementInput struct {
	FamilyGroupID string
	Title         string
	Body          string
	CreatedByID   string
	ScheduledAt   *time.Time
}

type CreateEventInput struct {
	FamilyGroupID          string
	Title                  string
	Description            string
	Location               string
	StartsAt               time.Time
	EndsAt                 *time.Time
	CreatedByID            string
	ReminderOffsetsMinutes []int
}

// Created reports a newly stored item and, when it went out immediately,
// the outcome of that dispatch. A failed dispatch does not undo creation.
type Created[T any] struct {
	Item          T               `json:"item"`
	Dispatch      *DispatchResult `json:"dispatch,omitempty"`
	DispatchError string          `json:"dispatchError,omitempty"`
}

type ContentService interface {
	CreateAnnouncement(ctx context.Context, in CreateAnnouncementInput) (*Created[domain.Announcement], error)
	ListAnnouncements(ctx context.Context, groupID string) ([]domain.Announcement, error)
	DeleteAnnouncement(ctx context.Context, groupID, announcementID string) error
	CreateEvent(ctx context.Context, in CreateEventInput) (*Created[domain.Event], []domain.EventReminder, error)
	ListEvents(ctx context.Context, groupID string) ([]domain.Event, error)
}

type contentService struct {
	content   repository.ContentRepository
	members   repository.MembershipRepository
	ledger    repository.DeliveryRepository
	dispatch  DispatchService
	scheduler SchedulerService
	caches    *cache.Loader
	now       func() time.Time
}

func NewContentService(
	content repository.ContentRepository,
	members repository.MembershipRepository,
	ledger repository.DeliveryRepository,
	dispatch DispatchService,
	scheduler SchedulerService,
	caches *cache.Loader,
) ContentService {
	return &contentService{
		content:   content,
		members:   members,
		ledger:    ledger,
		dispatch:  dispatch,
		scheduler: scheduler,
		caches:    caches,
		now:       time.Now,
	}
}

func (s *contentService) CreateAnnouncement(ctx context.Context, in CreateAnnouncementInput) (*Created[domain.Announcement], error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("title is required: %w", types.ErrInvalidInput)
	}

	if _, err := s.members.GetGroup(ctx, in.FamilyGroupID); err != nil {
		return nil, err
	}

	now := s.now()
	// An unscheduled announcement is due now, so a failed immediate
	// dispatch is picked up again by the next scheduler run.
	scheduledAt := in.ScheduledAt
	if scheduledAt == nil {
		scheduledAt = &now
	}

	a := &domain.Announcement{
		ID:            uuid.NewString(),
		FamilyGroupID: in.FamilyGroupID,
		Title:         in.Title,
		Body:          in.Body,
		CreatedByID:   in.CreatedByID,
		ScheduledAt:   scheduledAt,
	}

	if err := s.content.CreateAnnouncement(ctx, a); err != nil {
		return nil, fmt.Errorf("unexpected error occurred while saving announcement: %w", err)
	}
	s.invalidate(ctx, in.FamilyGroupID, cache.AnnouncementsKey(in.FamilyGroupID))

	out := &Created[domain.Announcement]{Item: *a}

	if a.ScheduledAt.After(now) {
		return out, nil
	}

	// Immediate items go through the same gate as scheduled ones, so a
	// concurrent scheduler run can never send them a second time.
	res, err := s.scheduler.ClaimAndDispatch(ctx, domain.DueItem{
		Type:          domain.ItemAnnouncement,
		ID:            a.ID,
		FamilyGroupID: a.FamilyGroupID,
		ScheduledAt:   now,
	})
	out.Dispatch = res
	if err != nil {
		logrus.WithField("announcement_id", a.ID).WithError(err).Error("Immediate dispatch failed")
		out.DispatchError = err.Error()
	}

	if stored, err := s.content.GetAnnouncement(ctx, a.ID); err == nil {
		out.Item = *stored
	}

	return out, nil
}

func (s *contentService) ListAnnouncements(ctx context.Context, groupID string) ([]domain.Announcement, error) {
	return cache.GetOrLoad(ctx, s.caches, cache.AnnouncementsKey(groupID), func(ctx context.Context) ([]domain.Announcement, error) {
		if _, err := s.members.GetGroup(ctx, groupID); err != nil {
			return nil, err
		}
		return s.content.ListAnnouncementsByGroup(ctx, groupID, listLimit)
	})
}

// DeleteAnnouncement removes the announcement and its ledger rows.
func (s *contentService) DeleteAnnouncement(ctx context.Context, groupID, announcementID string) error {
	a, err := s.content.GetAnnouncement(ctx, announcementID)
	if err != nil {
		return err
	}
	if a.FamilyGroupID != groupID {
		return fmt.Errorf("announcement %s in group %s: %w", announcementID, groupID, types.ErrItemNotFound)
	}

	if err := s.content.DeleteAnnouncement(ctx, announcementID); err != nil {
		return err
	}

	s.invalidate(ctx, groupID, cache.AnnouncementsKey(groupID))
	return nil
}

func (s *contentService) CreateEvent(ctx context.Context, in CreateEventInput) (*Created[domain.Event], []domain.EventReminder, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, nil, fmt.Errorf("title is required: %w", types.ErrInvalidInput)
	}
	if in.StartsAt.IsZero() {
		return nil, nil, fmt.Errorf("startsAt is required: %w", types.ErrInvalidInput)
	}
	if in.EndsAt != nil && in.EndsAt.Before(in.StartsAt) {
		return nil, nil, fmt.Errorf("endsAt before startsAt: %w", types.ErrInvalidInput)
	}

	if _, err := s.members.GetGroup(ctx, in.FamilyGroupID); err != nil {
		return nil, nil, err
	}

	e := &domain.Event{
		ID:            uuid.NewString(),
		FamilyGroupID: in.FamilyGroupID,
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		StartsAt:      in.StartsAt,
		EndsAt:        in.EndsAt,
		CreatedByID:   in.CreatedByID,
	}

	reminders := make([]domain.EventReminder, 0, len(in.ReminderOffsetsMinutes))
	for _, offset := range in.ReminderOffsetsMinutes {
		if offset <= 0 {
			return nil, nil, fmt.Errorf("reminder offset %d must be positive: %w", offset, types.ErrInvalidInput)
		}
		reminders = append(reminders, domain.EventReminder{
			ID:          uuid.NewString(),
			ScheduledAt: in.StartsAt.Add(-time.Duration(offset) * time.Minute),
		})
	}

	if err := s.content.CreateEvent(ctx, e, reminders); err != nil {
		return nil, nil, fmt.Errorf("unexpected error occurred while saving event: %w", err)
	}
	s.invalidate(ctx, in.FamilyGroupID, cache.EventsKey(in.FamilyGroupID))

	out := &Created[domain.Event]{Item: *e}

	res, err := s.dispatch.DispatchEventReminder(ctx, EventReminderDispatch{
		EventID:       e.ID,
		FamilyGroupID: e.FamilyGroupID,
		IsInitial:     true,
	})
	out.Dispatch = res
	if err != nil {
		logrus.WithField("event_id", e.ID).WithError(err).Error("Initial event dispatch failed")
		out.DispatchError = err.Error()
	}
	// EVENT items have no gate to reopen; drop rows a failed status update left behind.
	if errors.Is(err, types.ErrStoreFailure) {
		if _, purgeErr := s.ledger.PurgeQueued(ctx, domain.ItemEvent, e.ID); purgeErr != nil {
			logrus.WithField("event_id", e.ID).WithError(purgeErr).Error("Failed to purge queued delivery attempts")
		}
	}

	return out, reminders, nil
}

func (s *contentService) ListEvents(ctx context.Context, groupID string) ([]domain.Event, error) {
	return cache.GetOrLoad(ctx, s.caches, cache.EventsKey(groupID), func(ctx context.Context) ([]domain.Event, error) {
		if _, err := s.members.GetGroup(ctx, groupID); err != nil {
			return nil, err
		}
		return s.content.ListEventsByGroup(ctx, groupID, listLimit)
	})
}

func (s *contentService) invalidate(ctx context.Context, groupID string, listKey string) {
	keys := []string{listKey, cache.GroupStatsKey(groupID), cache.SuperAdminStatsKey()}
	if err := s.caches.Invalidate(ctx, keys...); err != nil {
		logrus.WithError(err).WithField("group_id", groupID).Warn("Failed to invalidate group caches")
	}
}
