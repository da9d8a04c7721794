package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/cache"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/events"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/metrics"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/provider"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type AnnouncementDispatch struct {
	AnnouncementID string
	FamilyGroupID  string
}

// EventReminderDispatch targets either a reminder or, with IsInitial or a
// bare EventID, the initial notice of the event.
type EventReminderDispatch struct {
	EventReminderID string
	EventID         string
	FamilyGroupID   string
	IsInitial       bool
}

type DispatchResult struct {
	ItemType domain.ItemType `json:"itemType"`
	ItemID   string          `json:"itemId"`
	Attempts int             `json:"attempts"`
	Sent     int             `json:"sent"`
	Failed   int             `json:"failed"`
}

type DispatchService interface {
	DispatchAnnouncement(ctx context.Context, req AnnouncementDispatch) (*DispatchResult, error)
	DispatchEventReminder(ctx context.Context, req EventReminderDispatch) (*DispatchResult, error)
}

type DispatchOptions struct {
	Concurrency     int
	ProviderTimeout time.Duration
	// PublishTimeout bounds how long a dispatch waits on the event publisher.
	PublishTimeout time.Duration
}

const defaultPublishTimeout = 5 * time.Second

type dispatchService struct {
	content   repository.ContentRepository
	ledger    repository.DeliveryRepository
	resolver  RecipientResolver
	providers *provider.Registry
	caches    *cache.Loader
	publisher events.Publisher
	opts      DispatchOptions
	now       func() time.Time
}

func NewDispatchService(
	content repository.ContentRepository,
	ledger repository.DeliveryRepository,
	resolver RecipientResolver,
	providers *provider.Registry,
	caches *cache.Loader,
	publisher events.Publisher,
	opts DispatchOptions,
) DispatchService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &dispatchService{
		content:   content,
		ledger:    ledger,
		resolver:  resolver,
		providers: providers,
		caches:    caches,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// dispatchItem is the provider-facing view of one content item.
type dispatchItem struct {
	itemType domain.ItemType
	itemID   string
	groupID  string
	subject  string
	body     string
}

func (s *dispatchService) DispatchAnnouncement(ctx context.Context, req AnnouncementDispatch) (*DispatchResult, error) {
	a, err := s.content.GetAnnouncement(ctx, req.AnnouncementID)
	if err != nil {
		return nil, err
	}

	if a.FamilyGroupID != req.FamilyGroupID {
		return nil, fmt.Errorf("announcement %s in group %s: %w", a.ID, req.FamilyGroupID, types.ErrItemNotFound)
	}

	return s.dispatch(ctx, dispatchItem{
		itemType: domain.ItemAnnouncement,
		itemID:   a.ID,
		groupID:  a.FamilyGroupID,
		subject:  a.Title,
		body:     a.Body,
	})
}

func (s *dispatchService) DispatchEventReminder(ctx context.Context, req EventReminderDispatch) (*DispatchResult, error) {
	itemType := domain.ItemEvent
	eventID := req.EventID
	itemID := req.EventID

	if req.EventReminderID != "" {
		rem, err := s.content.GetEventReminder(ctx, req.EventReminderID)
		if err != nil {
			return nil, err
		}
		eventID = rem.EventID
		if !req.IsInitial {
			itemType = domain.ItemEventReminder
			itemID = rem.ID
		} else {
			itemID = rem.EventID
		}
	}

	if eventID == "" {
		return nil, fmt.Errorf("eventId or eventReminderId is required: %w", types.ErrInvalidInput)
	}

	e, err := s.content.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if e.FamilyGroupID != req.FamilyGroupID {
		return nil, fmt.Errorf("event %s in group %s: %w", e.ID, req.FamilyGroupID, types.ErrItemNotFound)
	}

	return s.dispatch(ctx, dispatchItem{
		itemType: itemType,
		itemID:   itemID,
		groupID:  e.FamilyGroupID,
		subject:  e.Title,
		body:     e.Description,
	})
}

func (s *dispatchService) dispatch(ctx context.Context, item dispatchItem) (*DispatchResult, error) {
	timer := prometheus.NewTimer(metrics.DispatchDuration.WithLabelValues(string(item.itemType)))
	defer timer.ObserveDuration()

	logger := logrus.WithFields(logrus.Fields{
		"item_type": item.itemType,
		"item_id":   item.itemID,
		"group_id":  item.groupID,
	})

	result := &DispatchResult{ItemType: item.itemType, ItemID: item.itemID}

	recipients, err := s.resolver.ResolveRecipients(ctx, item.groupID)
	if err != nil {
		return nil, err
	}

	if len(recipients) == 0 {
		logger.Info("No eligible recipients, nothing to dispatch")
		return result, nil
	}

	now := s.now()
	attempts := make([]domain.DeliveryAttempt, len(recipients))
	for i, r := range recipients {
		attempts[i] = domain.DeliveryAttempt{
			ID:          uuid.NewString(),
			ItemType:    item.itemType,
			ItemID:      item.itemID,
			Channel:     r.Channel,
			Status:      domain.StatusQueued,
			UserID:      r.UserID,
			Destination: r.Destination,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}

	if err := s.ledger.CreateQueued(ctx, attempts); err != nil {
		return nil, fmt.Errorf("queue delivery attempts: %w", err)
	}
	result.Attempts = len(attempts)

	// The ledger changed, so every cache scoped to the group is stale.
	s.invalidate(ctx, item)

	sent, failed, published, updateErr := s.sendAttemptsConcurrently(ctx, item, attempts)
	result.Sent = int(sent)
	result.Failed = int(failed)

	s.invalidate(ctx, item)

	s.publish(ctx, logger, published)

	logger.WithFields(logrus.Fields{
		"attempts": result.Attempts,
		"sent":     result.Sent,
		"failed":   result.Failed,
	}).Info("Dispatch finished")

	if updateErr != nil {
		return result, fmt.Errorf("update delivery status: %w", updateErr)
	}

	return result, nil
}

func (s *dispatchService) publish(ctx context.Context, logger *logrus.Entry, evs []events.DeliveryEvent) {
	if len(evs) == 0 {
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
	defer cancel()

	if err := s.publisher.Publish(publishCtx, evs...); err != nil {
		metrics.EventPublishErrors.Inc()
		logger.WithError(err).Warn("Failed to publish delivery events")
	}
}

// sends every queued attempt on a bounded pool of workers. One attempt's
// failure never stops the others; the first ledger update error is returned
// after all workers finish.
func (s *dispatchService) sendAttemptsConcurrently(ctx context.Context, item dispatchItem, attempts []domain.DeliveryAttempt) (int32, int32, []events.DeliveryEvent, error) {
	jobs := make(chan domain.DeliveryAttempt, len(attempts))

	var sentCount, failedCount int32
	var mu sync.Mutex
	var firstErr error
	published := make([]events.DeliveryEvent, 0, len(attempts))

	var wg sync.WaitGroup

	numWorkers := min(len(attempts), s.opts.Concurrency)

	for w := 1; w <= numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for attempt := range jobs {
				res := s.sendAttempt(ctx, item, attempt)

				status := domain.StatusSent
				if !res.Success {
					status = domain.StatusFailed
				}

				resolution := domain.AttemptResolution{Status: status, At: s.now()}
				if res.MessageID != "" {
					resolution.ProviderMessageID = &res.MessageID
				}
				if res.Error != "" {
					resolution.Error = &res.Error
				}

				if err := s.ledger.Resolve(ctx, attempt.ID, resolution); err != nil {
					logrus.WithFields(logrus.Fields{
						"worker":     workerID,
						"attempt_id": attempt.ID,
						"channel":    attempt.Channel,
					}).WithError(err).Error("Failed to update delivery attempt")

					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}

				metrics.DeliveryAttemptsTotal.WithLabelValues(string(attempt.Channel), string(status)).Inc()
				if status == domain.StatusSent {
					atomic.AddInt32(&sentCount, 1)
				} else {
					atomic.AddInt32(&failedCount, 1)
					logrus.WithFields(logrus.Fields{
						"item_id": item.itemID,
						"channel": attempt.Channel,
						"user_id": attempt.UserID,
					}).Warn("Delivery failed: " + res.Error)
				}

				mu.Lock()
				published = append(published, events.DeliveryEvent{
					AttemptID:         attempt.ID,
					ItemType:          item.itemType,
					ItemID:            item.itemID,
					FamilyGroupID:     item.groupID,
					Channel:           attempt.Channel,
					Status:            status,
					UserID:            attempt.UserID,
					ProviderMessageID: res.MessageID,
					Error:             res.Error,
					At:                resolution.At,
				})
				mu.Unlock()
			}
		}(w)
	}

	for _, a := range attempts {
		jobs <- a
	}
	close(jobs)

	wg.Wait()

	if firstErr != nil && !errors.Is(firstErr, types.ErrStoreFailure) {
		firstErr = fmt.Errorf("%w: %w", types.ErrStoreFailure, firstErr)
	}

	return atomic.LoadInt32(&sentCount), atomic.LoadInt32(&failedCount), published, firstErr
}

func (s *dispatchService) sendAttempt(ctx context.Context, item dispatchItem, attempt domain.DeliveryAttempt) provider.SendResult {
	p := s.providers.Get(attempt.Channel)
	if p == nil || !p.IsConfigured() {
		return provider.Failed(provider.NotConfiguredError(attempt.Channel))
	}

	sendCtx := ctx
	if s.opts.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.opts.ProviderTimeout)
		defer cancel()
	}

	return p.Send(sendCtx, provider.SendOptions{
		To:       attempt.Destination,
		Subject:  item.subject,
		Body:     item.body,
		ItemType: item.itemType,
		ItemID:   item.itemID,
	})
}

func (s *dispatchService) invalidate(ctx context.Context, item dispatchItem) {
	if s.caches == nil {
		return
	}

	keys := []string{cache.GroupStatsKey(item.groupID), cache.SuperAdminStatsKey()}
	switch item.itemType {
	case domain.ItemAnnouncement:
		keys = append(keys, cache.AnnouncementsKey(item.groupID))
	case domain.ItemEvent, domain.ItemEventReminder:
		keys = append(keys, cache.EventsKey(item.groupID))
	}

	if err := s.caches.Invalidate(ctx, keys...); err != nil {
		logrus.WithError(err).WithField("group_id", item.groupID).Warn("Failed to invalidate group caches")
	}
}
