package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/metrics"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/sirupsen/logrus"
)

// ProcessResult summarizes one scheduler run. Processed counts every item
// examined; the other fields split it by outcome.
type ProcessResult struct {
	Processed  int `json:"processed"`
	Dispatched int `json:"dispatched"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type SchedulerService interface {
	// Claims and dispatches every due announcement and event reminder, one batch per type.
	ProcessDue(ctx context.Context) (*ProcessResult, error)
	// Claims one item and dispatches it. A lost claim returns ErrClaimLost.
	// A failed dispatch reopens the gate.
	ClaimAndDispatch(ctx context.Context, item domain.DueItem) (*DispatchResult, error)
}

type SchedulerOptions struct {
	BatchSize int
	ItemDelay time.Duration
}

type schedulerService struct {
	content  repository.ContentRepository
	ledger   repository.DeliveryRepository
	dispatch DispatchService
	opts     SchedulerOptions
	now      func() time.Time
}

func NewSchedulerService(content repository.ContentRepository, ledger repository.DeliveryRepository, dispatch DispatchService, opts SchedulerOptions) SchedulerService {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	return &schedulerService{
		content:  content,
		ledger:   ledger,
		dispatch: dispatch,
		opts:     opts,
		now:      time.Now,
	}
}

var schedulablePasses = []domain.ItemType{domain.ItemAnnouncement, domain.ItemEventReminder}

func (s *schedulerService) ProcessDue(ctx context.Context) (*ProcessResult, error) {
	result := &ProcessResult{}
	dispatched := false

	for _, itemType := range schedulablePasses {
		items, err := s.content.ListDueItems(ctx, itemType, s.now(), s.opts.BatchSize)
		if err != nil {
			return result, fmt.Errorf("list due %s items: %w", itemType, err)
		}

		for _, item := range items {
			if dispatched {
				if err := sleepCtx(ctx, s.opts.ItemDelay); err != nil {
					return result, err
				}
			}

			result.Processed++
			_, err := s.ClaimAndDispatch(ctx, item)
			switch {
			case err == nil:
				result.Dispatched++
				dispatched = true
			case errors.Is(err, types.ErrClaimLost):
				result.Skipped++
			default:
				result.Failed++
				dispatched = true
				logrus.WithFields(logrus.Fields{
					"item_type": item.Type,
					"item_id":   item.ID,
				}).WithError(err).Error("Scheduled dispatch failed")
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"processed":  result.Processed,
		"dispatched": result.Dispatched,
		"skipped":    result.Skipped,
		"failed":     result.Failed,
	}).Info("Due items processed")

	return result, nil
}

func (s *schedulerService) ClaimAndDispatch(ctx context.Context, item domain.DueItem) (*DispatchResult, error) {
	claimed, err := s.content.Claim(ctx, item.Type, item.ID, s.now())
	if err != nil {
		return nil, err
	}

	if !claimed {
		metrics.ClaimsTotal.WithLabelValues(string(item.Type), metrics.ClaimLost).Inc()
		return nil, fmt.Errorf("%s %s: %w", item.Type, item.ID, types.ErrClaimLost)
	}
	metrics.ClaimsTotal.WithLabelValues(string(item.Type), metrics.ClaimWon).Inc()

	var res *DispatchResult
	switch item.Type {
	case domain.ItemAnnouncement:
		res, err = s.dispatch.DispatchAnnouncement(ctx, AnnouncementDispatch{
			AnnouncementID: item.ID,
			FamilyGroupID:  item.FamilyGroupID,
		})
	case domain.ItemEventReminder:
		res, err = s.dispatch.DispatchEventReminder(ctx, EventReminderDispatch{
			EventReminderID: item.ID,
			FamilyGroupID:   item.FamilyGroupID,
		})
	default:
		err = fmt.Errorf("item type %s is not schedulable: %w", item.Type, types.ErrInvalidInput)
	}

	if err != nil {
		s.revert(item)
		return res, err
	}

	return res, nil
}

// revert reopens the gate and drops the item's unresolved rows. It runs on
// a fresh context so a cancelled run still leaves the item retryable.
func (s *schedulerService) revert(item domain.DueItem) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := logrus.WithFields(logrus.Fields{"item_type": item.Type, "item_id": item.ID})

	// Purge before release: once the gate reopens another run may queue fresh rows.
	purged, err := s.ledger.PurgeQueued(ctx, item.Type, item.ID)
	if err != nil {
		logger.WithError(err).Error("Failed to purge queued delivery attempts")
	}
	if purged > 0 {
		logger.WithField("purged", purged).Warn("Purged unresolved delivery attempts")
	}

	if err := s.content.Release(ctx, item.Type, item.ID); err != nil {
		logger.WithError(err).Error("Failed to release claim")
		return
	}
	metrics.ClaimsTotal.WithLabelValues(string(item.Type), metrics.ClaimReleased).Inc()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
