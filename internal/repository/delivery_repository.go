package repository

import (
	"context"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DeliveryRepository interface {
	// Writes QUEUED rows in one round trip. Either every row is stored or none is.
	CreateQueued(ctx context.Context, attempts []domain.DeliveryAttempt) error
	// Moves a QUEUED row to SENT or FAILED.
	Resolve(ctx context.Context, id string, res domain.AttemptResolution) error
	CountByChannelStatus(ctx context.Context, itemType domain.ItemType, itemID string) ([]domain.ChannelStatusCount, error)
	Bounds(ctx context.Context, itemType domain.ItemType, itemID string) (domain.LedgerBounds, error)
	// Deletes rows of the item still in QUEUED, returning how many went.
	PurgeQueued(ctx context.Context, itemType domain.ItemType, itemID string) (int64, error)
	// Deletes every row of the item. Called by whoever deletes the item itself.
}

type deliveryRepository struct {
	db *pgxpool.Pool
}

func NewDeliveryRepository(db *pgxpool.Pool) DeliveryRepository {
	return &deliveryRepository{db: db}
}

var attemptColumns = []string{
	"id", "item_type", "item_id", "channel", "status", "user_id", "destination", "created_at", "updated_at",
}

func (r *deliveryRepository) CreateQueued(ctx context.Context, attempts []domain.DeliveryAttempt) error {
	if len(attempts) == 0 {
		return nil
	}

	rows := make([][]any, len(attempts))
	for i, a := range attempts {
		rows[i] = []any{
			a.ID, string(a.ItemType), a.ItemID, string(a.Channel), string(domain.StatusQueued),
			a.UserID, a.Destination, a.CreatedAt, a.UpdatedAt,
		}
	}

	// COPY is atomic: a failure leaves no partial rows behind.
	if _, err := r.db.CopyFrom(ctx, pgx.Identifier{"delivery_attempts"}, attemptColumns, pgx.CopyFromRows(rows)); err != nil {
		return storeErr("create queued attempts", err)
	}

	return nil
}

func (r *deliveryRepository) Resolve(ctx context.Context, id string, res domain.AttemptResolution) error {
	sql := `UPDATE delivery_attempts
			SET status = $1, provider_message_id = $2, error = $3, updated_at = $4
			WHERE id = $5 AND status = $6`

	cmdTag, err := r.db.Exec(ctx, sql,
		string(res.Status), res.ProviderMessageID, res.Error, res.At, id, string(domain.StatusQueued))
	if err != nil {
		return storeErr("resolve attempt", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return types.ErrNotFound
	}

	return nil
}

func (r *deliveryRepository) CountByChannelStatus(ctx context.Context, itemType domain.ItemType, itemID string) ([]domain.ChannelStatusCount, error) {
	sql := `SELECT channel, status, COUNT(*)
             FROM delivery_attempts
			 WHERE item_type = $1 AND item_id = $2
			 GROUP BY channel, status`

	rows, err := r.db.Query(ctx, sql, string(itemType), itemID)
	if err != nil {
		return nil, storeErr("count attempts", err)
	}
	defer rows.Close()

	counts := make([]domain.ChannelStatusCount, 0)
	for rows.Next() {
		var c domain.ChannelStatusCount
		if err := rows.Scan(&c.Channel, &c.Status, &c.Count); err != nil {
			return nil, storeErr("scan attempt count", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("count attempts", err)
	}

	return counts, nil
}

func (r *deliveryRepository) Bounds(ctx context.Context, itemType domain.ItemType, itemID string) (domain.LedgerBounds, error) {
	sql := `SELECT MIN(created_at), MAX(updated_at)
             FROM delivery_attempts
			 WHERE item_type = $1 AND item_id = $2`

	var bounds domain.LedgerBounds
	if err := r.db.QueryRow(ctx, sql, string(itemType), itemID).Scan(&bounds.FirstCreatedAt, &bounds.LastUpdatedAt); err != nil {
		return domain.LedgerBounds{}, storeErr("attempt bounds", err)
	}

	return bounds, nil
}

func (r *deliveryRepository) PurgeQueued(ctx context.Context, itemType domain.ItemType, itemID string) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM delivery_attempts WHERE item_type = $1 AND item_id = $2 AND status = $3`,
		string(itemType), itemID, string(domain.StatusQueued))
	if err != nil {
		return 0, storeErr("purge queued attempts", err)
	}

	return cmdTag.RowsAffected(), nil
}
