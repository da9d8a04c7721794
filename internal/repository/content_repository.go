package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContentRepository interface {
	CreateAnnouncement(ctx context.Context, a *domain.Announcement) error
	GetAnnouncement(ctx context.Context, id string) (*domain.Announcement, error)
	ListAnnouncementsByGroup(ctx context.Context, groupID string, limit int) ([]domain.Announcement, error)
	// Deletes the announcement and its delivery ledger in one transaction.
	DeleteAnnouncement(ctx context.Context, id string) error
	// Creates an event together with its reminders in one transaction.
	CreateEvent(ctx context.Context, e *domain.Event, reminders []domain.EventReminder) error
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListEventsByGroup(ctx context.Context, groupID string, limit int) ([]domain.Event, error)
	GetEventReminder(ctx context.Context, id string) (*domain.EventReminder, error)
	// Retrieves items whose scheduled time has passed and whose gate is still null, oldest first.
	ListDueItems(ctx context.Context, itemType domain.ItemType, now time.Time, limit int) ([]domain.DueItem, error)
	// Sets the gate to at only if it is still null. Reports whether this call modified the row.
	Claim(ctx context.Context, itemType domain.ItemType, id string, at time.Time) (bool, error)
	// Resets the gate to null so a later run may claim the item again.
	Release(ctx context.Context, itemType domain.ItemType, id string) error
}

// gate names the table and nullable timestamp column guarding dispatch of a schedulable item.
type gate struct {
	table  string
	column string
}

var gates = map[domain.ItemType]gate{
	domain.ItemAnnouncement:  {table: "announcements", column: "published_at"},
	domain.ItemEventReminder: {table: "event_reminders", column: "sent_at"},
}

func gateFor(itemType domain.ItemType) (gate, error) {
	if !itemType.Schedulable() {
		return gate{}, errNotSchedulable(itemType)
	}
	return gates[itemType], nil
}

func errNotSchedulable(itemType domain.ItemType) error {
	return fmt.Errorf("item type %s is not schedulable: %w", itemType, types.ErrInvalidInput)
}

type contentRepository struct {
	db *pgxpool.Pool
}

func NewContentRepository(db *pgxpool.Pool) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) CreateAnnouncement(ctx context.Context, a *domain.Announcement) error {
	sql := `
        INSERT INTO announcements (id, family_group_id, title, body, created_by_id, scheduled_at, published_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at`

	err := r.db.QueryRow(ctx, sql,
		a.ID, a.FamilyGroupID, a.Title, a.Body, a.CreatedByID, a.ScheduledAt, a.PublishedAt,
	).Scan(&a.CreatedAt)
	if err != nil {
		return storeErr("create announcement", err)
	}

	return nil
}

func (r *contentRepository) GetAnnouncement(ctx context.Context, id string) (*domain.Announcement, error) {
	sql := `SELECT id, family_group_id, title, body, created_by_id, scheduled_at, published_at, created_at
             FROM announcements WHERE id = $1`

	var a domain.Announcement
	err := r.db.QueryRow(ctx, sql, id).Scan(
		&a.ID, &a.FamilyGroupID, &a.Title, &a.Body, &a.CreatedByID, &a.ScheduledAt, &a.PublishedAt, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("announcement %s: %w", id, types.ErrItemNotFound)
	}
	if err != nil {
		return nil, storeErr("get announcement", err)
	}

	return &a, nil
}

func (r *contentRepository) ListAnnouncementsByGroup(ctx context.Context, groupID string, limit int) ([]domain.Announcement, error) {
	sql := `SELECT id, family_group_id, title, body, created_by_id, scheduled_at, published_at, created_at
             FROM announcements
			 WHERE family_group_id = $1
			 ORDER BY created_at DESC
			 LIMIT $2`

	rows, err := r.db.Query(ctx, sql, groupID, limit)
	if err != nil {
		return nil, storeErr("list announcements", err)
	}
	defer rows.Close()

	announcements := make([]domain.Announcement, 0)
	for rows.Next() {
		var a domain.Announcement
		if err := rows.Scan(&a.ID, &a.FamilyGroupID, &a.Title, &a.Body, &a.CreatedByID, &a.ScheduledAt, &a.PublishedAt, &a.CreatedAt); err != nil {
			return nil, storeErr("scan announcement", err)
		}
		announcements = append(announcements, a)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list announcements", err)
	}

	return announcements, nil
}

func (r *contentRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return storeErr("begin delete announcement", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM delivery_attempts WHERE item_type = $1 AND item_id = $2`, string(domain.ItemAnnouncement), id); err != nil {
		return storeErr("delete announcement attempts", err)
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete announcement", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("announcement %s: %w", id, types.ErrItemNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit delete announcement", err)
	}

	return nil
}

func (r *contentRepository) CreateEvent(ctx context.Context, e *domain.Event, reminders []domain.EventReminder) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return storeErr("begin create event", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
        INSERT INTO events (id, family_group_id, title, description, location, starts_at, ends_at, created_by_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at`,
		e.ID, e.FamilyGroupID, e.Title, e.Description, e.Location, e.StartsAt, e.EndsAt, e.CreatedByID,
	).Scan(&e.CreatedAt)
	if err != nil {
		return storeErr("create event", err)
	}

	for i := range reminders {
		err := tx.QueryRow(ctx, `
            INSERT INTO event_reminders (id, event_id, scheduled_at)
            VALUES ($1, $2, $3)
            RETURNING created_at`,
			reminders[i].ID, e.ID, reminders[i].ScheduledAt,
		).Scan(&reminders[i].CreatedAt)
		if err != nil {
			return storeErr("create event reminder", err)
		}
		reminders[i].EventID = e.ID
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit create event", err)
	}

	return nil
}

func (r *contentRepository) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	sql := `SELECT id, family_group_id, title, description, location, starts_at, ends_at, created_by_id, created_at
             FROM events WHERE id = $1`

	var e domain.Event
	err := r.db.QueryRow(ctx, sql, id).Scan(
		&e.ID, &e.FamilyGroupID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt, &e.CreatedByID, &e.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, types.ErrItemNotFound)
	}
	if err != nil {
		return nil, storeErr("get event", err)
	}

	return &e, nil
}

func (r *contentRepository) ListEventsByGroup(ctx context.Context, groupID string, limit int) ([]domain.Event, error) {
	sql := `SELECT id, family_group_id, title, description, location, starts_at, ends_at, created_by_id, created_at
             FROM events
			 WHERE family_group_id = $1
			 ORDER BY starts_at ASC
			 LIMIT $2`

	rows, err := r.db.Query(ctx, sql, groupID, limit)
	if err != nil {
		return nil, storeErr("list events", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.FamilyGroupID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt, &e.CreatedByID, &e.CreatedAt); err != nil {
			return nil, storeErr("scan event", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list events", err)
	}

	return events, nil
}

func (r *contentRepository) GetEventReminder(ctx context.Context, id string) (*domain.EventReminder, error) {
	sql := `SELECT id, event_id, scheduled_at, sent_at, created_at FROM event_reminders WHERE id = $1`

	var rem domain.EventReminder
	err := r.db.QueryRow(ctx, sql, id).Scan(&rem.ID, &rem.EventID, &rem.ScheduledAt, &rem.SentAt, &rem.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("event reminder %s: %w", id, types.ErrItemNotFound)
	}
	if err != nil {
		return nil, storeErr("get event reminder", err)
	}

	return &rem, nil
}

func (r *contentRepository) ListDueItems(ctx context.Context, itemType domain.ItemType, now time.Time, limit int) ([]domain.DueItem, error) {
	if !itemType.Schedulable() {
		return nil, errNotSchedulable(itemType)
	}

	var sql string
	switch itemType {
	case domain.ItemAnnouncement:
		sql = `SELECT id, family_group_id, scheduled_at
             FROM announcements
			 WHERE scheduled_at IS NOT NULL AND scheduled_at <= $1 AND published_at IS NULL
			 ORDER BY scheduled_at ASC
			 LIMIT $2`
	case domain.ItemEventReminder:
		sql = `SELECT r.id, e.family_group_id, r.scheduled_at
             FROM event_reminders r
			 JOIN events e ON e.id = r.event_id
			 WHERE r.scheduled_at <= $1 AND r.sent_at IS NULL
			 ORDER BY r.scheduled_at ASC
			 LIMIT $2`
	}

	rows, err := r.db.Query(ctx, sql, now, limit)
	if err != nil {
		return nil, storeErr("list due items", err)
	}
	defer rows.Close()

	items := make([]domain.DueItem, 0, limit)
	for rows.Next() {
		item := domain.DueItem{Type: itemType}
		if err := rows.Scan(&item.ID, &item.FamilyGroupID, &item.ScheduledAt); err != nil {
			return nil, storeErr("scan due item", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list due items", err)
	}

	return items, nil
}

// Claim is a single conditional UPDATE, so two concurrent claimers can never
// both observe a null gate.
func (r *contentRepository) Claim(ctx context.Context, itemType domain.ItemType, id string, at time.Time) (bool, error) {
	g, err := gateFor(itemType)
	if err != nil {
		return false, err
	}

	sql := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2 AND %s IS NULL`, g.table, g.column, g.column)

	cmdTag, err := r.db.Exec(ctx, sql, at, id)
	if err != nil {
		return false, storeErr("claim "+string(itemType), err)
	}

	return cmdTag.RowsAffected() == 1, nil
}

func (r *contentRepository) Release(ctx context.Context, itemType domain.ItemType, id string) error {
	g, err := gateFor(itemType)
	if err != nil {
		return err
	}

	sql := fmt.Sprintf(`UPDATE %s SET %s = NULL WHERE id = $1`, g.table, g.column)

	cmdTag, err := r.db.Exec(ctx, sql, id)
	if err != nil {
		return storeErr("release "+string(itemType), err)
	}

	if cmdTag.RowsAffected() == 0 {
		return types.ErrNotFound
	}

	return nil
}
