package repository

import (
	"context"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepository interface {
	// Reads the raw group dashboard counters in one read-only transaction.
	GroupSnapshot(ctx context.Context, groupID string, window domain.StatsWindow) (domain.GroupStatsSnapshot, error)
	// Reads the raw system-wide counters and per-group breakdown in one read-only transaction.
	SystemSnapshot(ctx context.Context, window domain.StatsWindow) (domain.SystemStatsSnapshot, error)
}

type statsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) StatsRepository {
	return &statsRepository{db: db}
}

var snapshotTxOptions = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// ownedItems holds the ids of every content item of one group, per item type.
type ownedItems struct {
	announcements []string
	events        []string
	reminders     []string
}

// Attempts carry no group column. Ownership is resolved in two steps:
// collect the group's item ids per type, then filter attempts by those ids.
const ownedAttemptsFilter = `
	(item_type = 'ANNOUNCEMENT' AND item_id = ANY($1))
	OR (item_type = 'EVENT' AND item_id = ANY($2))
	OR (item_type = 'EVENT_REMINDER' AND item_id = ANY($3))`

func (r *statsRepository) GroupSnapshot(ctx context.Context, groupID string, window domain.StatsWindow) (domain.GroupStatsSnapshot, error) {
	var snap domain.GroupStatsSnapshot

	tx, err := r.db.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return snap, storeErr("begin group snapshot", err)
	}
	defer tx.Rollback(ctx)

	counters := []struct {
		dest *int64
		sql  string
		args []any
	}{
		{&snap.MemberCount, `SELECT COUNT(*) FROM memberships WHERE family_group_id = $1`, []any{groupID}},
		{&snap.AnnouncementsThisMonth, `SELECT COUNT(*) FROM announcements WHERE family_group_id = $1 AND created_at >= $2`, []any{groupID, window.StartOfMonth}},
		{&snap.ScheduledAnnouncements, `SELECT COUNT(*) FROM announcements WHERE family_group_id = $1 AND scheduled_at IS NOT NULL AND published_at IS NULL`, []any{groupID}},
		{&snap.UpcomingEvents, `SELECT COUNT(*) FROM events WHERE family_group_id = $1 AND starts_at > $2`, []any{groupID, window.Now}},
	}
	for _, c := range counters {
		if err := tx.QueryRow(ctx, c.sql, c.args...).Scan(c.dest); err != nil {
			return snap, storeErr("group snapshot count", err)
		}
	}

	owned, err := collectOwnedItems(ctx, tx, groupID)
	if err != nil {
		return snap, err
	}

	snap.DeliveryCounts, err = countByStatus(ctx, tx,
		`SELECT status, COUNT(*) FROM delivery_attempts WHERE `+ownedAttemptsFilter+` GROUP BY status`,
		owned.announcements, owned.events, owned.reminders)
	if err != nil {
		return snap, err
	}

	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM delivery_attempts WHERE status = 'SENT' AND created_at >= $4 AND (`+ownedAttemptsFilter+`)`,
		owned.announcements, owned.events, owned.reminders, window.StartOfDay,
	).Scan(&snap.SentToday)
	if err != nil {
		return snap, storeErr("group snapshot sent today", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return snap, storeErr("commit group snapshot", err)
	}

	return snap, nil
}

func (r *statsRepository) SystemSnapshot(ctx context.Context, window domain.StatsWindow) (domain.SystemStatsSnapshot, error) {
	var snap domain.SystemStatsSnapshot

	tx, err := r.db.BeginTx(ctx, snapshotTxOptions)
	if err != nil {
		return snap, storeErr("begin system snapshot", err)
	}
	defer tx.Rollback(ctx)

	counters := []struct {
		dest *int64
		sql  string
	}{
		{&snap.TotalGroups, `SELECT COUNT(*) FROM family_groups`},
		{&snap.TotalUsers, `SELECT COUNT(*) FROM users`},
		{&snap.TotalMemberships, `SELECT COUNT(*) FROM memberships`},
		{&snap.TotalAnnouncements, `SELECT COUNT(*) FROM announcements`},
		{&snap.TotalEvents, `SELECT COUNT(*) FROM events`},
	}
	for _, c := range counters {
		if err := tx.QueryRow(ctx, c.sql).Scan(c.dest); err != nil {
			return snap, storeErr("system snapshot count", err)
		}
	}

	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM delivery_attempts WHERE status = 'SENT' AND created_at >= $1`, window.StartOfDay,
	).Scan(&snap.SentToday)
	if err != nil {
		return snap, storeErr("system snapshot sent today", err)
	}

	snap.DeliveryCounts, err = countByStatus(ctx, tx, `SELECT status, COUNT(*) FROM delivery_attempts GROUP BY status`)
	if err != nil {
		return snap, err
	}

	snap.Groups, err = groupBreakdowns(ctx, tx)
	if err != nil {
		return snap, err
	}

	if err := tx.Commit(ctx); err != nil {
		return snap, storeErr("commit system snapshot", err)
	}

	return snap, nil
}

func collectOwnedItems(ctx context.Context, tx pgx.Tx, groupID string) (ownedItems, error) {
	var owned ownedItems
	var err error

	owned.announcements, err = collectIDs(ctx, tx, `SELECT id FROM announcements WHERE family_group_id = $1`, groupID)
	if err != nil {
		return owned, err
	}
	owned.events, err = collectIDs(ctx, tx, `SELECT id FROM events WHERE family_group_id = $1`, groupID)
	if err != nil {
		return owned, err
	}
	owned.reminders, err = collectIDs(ctx, tx,
		`SELECT r.id FROM event_reminders r JOIN events e ON e.id = r.event_id WHERE e.family_group_id = $1`, groupID)
	if err != nil {
		return owned, err
	}

	return owned, nil
}

func collectIDs(ctx context.Context, tx pgx.Tx, sql string, args ...any) ([]string, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeErr("collect ids", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, storeErr("collect ids", err)
	}

	return ids, nil
}

func countByStatus(ctx context.Context, tx pgx.Tx, sql string, args ...any) ([]domain.StatusCount, error) {
	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, storeErr("count by status", err)
	}
	defer rows.Close()

	counts := make([]domain.StatusCount, 0, 3)
	for rows.Next() {
		var c domain.StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, storeErr("scan status count", err)
		}
		counts = append(counts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("count by status", err)
	}

	return counts, nil
}

func groupBreakdowns(ctx context.Context, tx pgx.Tx) ([]domain.GroupSnapshot, error) {
	rows, err := tx.Query(ctx, `
		SELECT g.id, g.name, g.slug, g.created_at,
			(SELECT COUNT(*) FROM memberships m WHERE m.family_group_id = g.id),
			(SELECT COUNT(*) FROM announcements a WHERE a.family_group_id = g.id),
			(SELECT COUNT(*) FROM events e WHERE e.family_group_id = g.id)
		FROM family_groups g
		ORDER BY g.created_at ASC`)
	if err != nil {
		return nil, storeErr("group breakdown", err)
	}

	groups := make([]domain.GroupSnapshot, 0)
	index := make(map[string]int)
	for rows.Next() {
		var gs domain.GroupSnapshot
		if err := rows.Scan(&gs.Group.ID, &gs.Group.Name, &gs.Group.Slug, &gs.Group.CreatedAt,
			&gs.MemberCount, &gs.AnnouncementCount, &gs.EventCount); err != nil {
			rows.Close()
			return nil, storeErr("scan group breakdown", err)
		}
		index[gs.Group.ID] = len(groups)
		groups = append(groups, gs)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storeErr("group breakdown", err)
	}

	adminRows, err := tx.Query(ctx, `
		SELECT m.family_group_id, u.name
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.role = 'ADMIN' AND u.name <> ''
		ORDER BY u.name ASC`)
	if err != nil {
		return nil, storeErr("group admins", err)
	}
	for adminRows.Next() {
		var groupID, name string
		if err := adminRows.Scan(&groupID, &name); err != nil {
			adminRows.Close()
			return nil, storeErr("scan group admin", err)
		}
		if i, ok := index[groupID]; ok {
			groups[i].AdminNames = append(groups[i].AdminNames, name)
		}
	}
	adminRows.Close()
	if err := adminRows.Err(); err != nil {
		return nil, storeErr("group admins", err)
	}

	prefRows, err := tx.Query(ctx, `
		SELECT m.family_group_id, p.channel, COUNT(*)
		FROM memberships m
		JOIN preferences p ON p.user_id = m.user_id
		WHERE p.enabled
		GROUP BY m.family_group_id, p.channel`)
	if err != nil {
		return nil, storeErr("group preferences", err)
	}
	defer prefRows.Close()
	for prefRows.Next() {
		var groupID string
		var c domain.ChannelCount
		if err := prefRows.Scan(&groupID, &c.Channel, &c.Count); err != nil {
			return nil, storeErr("scan group preference", err)
		}
		if i, ok := index[groupID]; ok {
			groups[i].EnabledPreferences = append(groups[i].EnabledPreferences, c)
		}
	}
	if err := prefRows.Err(); err != nil {
		return nil, storeErr("group preferences", err)
	}

	return groups, nil
}
