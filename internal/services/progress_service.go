package services

import (
	"context"
	"fmt"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/repository"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"
)

type ProgressService interface {
	// Aggregates the ledger of one item. Safe before any attempt exists.
	GetDeliveryProgress(ctx context.Context, itemType domain.ItemType, itemID string) (*domain.ProgressReport, error)
}

type progressService struct {
	ledger repository.DeliveryRepository
}

func NewProgressService(ledger repository.DeliveryRepository) ProgressService {
	return &progressService{ledger: ledger}
}

func (s *progressService) GetDeliveryProgress(ctx context.Context, itemType domain.ItemType, itemID string) (*domain.ProgressReport, error) {
	if !itemType.IsValid() {
		return nil, fmt.Errorf("unknown item type %q: %w", itemType, types.ErrInvalidInput)
	}

	counts, err := s.ledger.CountByChannelStatus(ctx, itemType, itemID)
	if err != nil {
		return nil, err
	}

	bounds, err := s.ledger.Bounds(ctx, itemType, itemID)
	if err != nil {
		return nil, err
	}

	report := domain.BuildProgressReport(itemType, itemID, counts, bounds)
	return &report, nil
}
