package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zvi-Yafi/family-notify-sub001/internal/domain"
	"github.com/Zvi-Yafi/family-notify-sub001/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MembershipRepository interface {
	CreateGroup(ctx context.Context, g *domain.Group) error
	CreateUser(ctx context.Context, u *domain.User) error
	GetGroup(ctx context.Context, id string) (*domain.Group, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListMemberships(ctx context.Context, groupID string) ([]domain.Membership, error)
	// Retrieves every stored preference of the given users, enabled or not.
	ListPreferences(ctx context.Context, userIDs []string) ([]domain.Preference, error)
	// Inserts the membership or updates its role.
	SaveMembership(ctx context.Context, m *domain.Membership) error
	RemoveMembership(ctx context.Context, groupID, userID string) error
	UpsertPreference(ctx context.Context, p *domain.Preference) error
}

type membershipRepository struct {
	db *pgxpool.Pool
}

func NewMembershipRepository(db *pgxpool.Pool) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) CreateGroup(ctx context.Context, g *domain.Group) error {
	sql := `
        INSERT INTO family_groups (id, name, slug)
        VALUES ($1, $2, $3)
        RETURNING created_at`

	if err := r.db.QueryRow(ctx, sql, g.ID, g.Name, g.Slug).Scan(&g.CreatedAt); err != nil {
		return storeErr("create group", err)
	}

	return nil
}

func (r *membershipRepository) CreateUser(ctx context.Context, u *domain.User) error {
	sql := `INSERT INTO users (id, name, email) VALUES ($1, $2, NULLIF($3, ''))`

	if _, err := r.db.Exec(ctx, sql, u.ID, u.Name, u.Email); err != nil {
		return storeErr("create user", err)
	}

	return nil
}

func (r *membershipRepository) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	var g domain.Group
	err := r.db.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM family_groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.Slug, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", id, types.ErrGroupNotFound)
	}
	if err != nil {
		return nil, storeErr("get group", err)
	}

	return &g, nil
}

func (r *membershipRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx,
		`SELECT id, name, COALESCE(email, '') FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, types.ErrUserNotFound)
	}
	if err != nil {
		return nil, storeErr("get user", err)
	}

	return &u, nil
}

func (r *membershipRepository) ListMemberships(ctx context.Context, groupID string) ([]domain.Membership, error) {
	sql := `SELECT user_id, family_group_id, role, created_at
             FROM memberships
			 WHERE family_group_id = $1
			 ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, sql, groupID)
	if err != nil {
		return nil, storeErr("list memberships", err)
	}
	defer rows.Close()

	memberships := make([]domain.Membership, 0)
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.UserID, &m.FamilyGroupID, &m.Role, &m.CreatedAt); err != nil {
			return nil, storeErr("scan membership", err)
		}
		memberships = append(memberships, m)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list memberships", err)
	}

	return memberships, nil
}

func (r *membershipRepository) ListPreferences(ctx context.Context, userIDs []string) ([]domain.Preference, error) {
	if len(userIDs) == 0 {
		return []domain.Preference{}, nil
	}

	sql := `SELECT user_id, channel, enabled, destination, verified_at
             FROM preferences WHERE user_id = ANY($1)`

	rows, err := r.db.Query(ctx, sql, userIDs)
	if err != nil {
		return nil, storeErr("list preferences", err)
	}
	defer rows.Close()

	preferences := make([]domain.Preference, 0, len(userIDs))
	for rows.Next() {
		var p domain.Preference
		if err := rows.Scan(&p.UserID, &p.Channel, &p.Enabled, &p.Destination, &p.VerifiedAt); err != nil {
			return nil, storeErr("scan preference", err)
		}
		preferences = append(preferences, p)
	}

	if err := rows.Err(); err != nil {
		return nil, storeErr("list preferences", err)
	}

	return preferences, nil
}

func (r *membershipRepository) SaveMembership(ctx context.Context, m *domain.Membership) error {
	sql := `
        INSERT INTO memberships (user_id, family_group_id, role)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, family_group_id) DO UPDATE SET role = EXCLUDED.role
        RETURNING created_at`

	if err := r.db.QueryRow(ctx, sql, m.UserID, m.FamilyGroupID, m.Role).Scan(&m.CreatedAt); err != nil {
		return storeErr("save membership", err)
	}

	return nil
}

func (r *membershipRepository) RemoveMembership(ctx context.Context, groupID, userID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM memberships WHERE family_group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return storeErr("remove membership", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return types.ErrNotFound
	}

	return nil
}

func (r *membershipRepository) UpsertPreference(ctx context.Context, p *domain.Preference) error {
	sql := `
        INSERT INTO preferences (user_id, channel, enabled, destination, verified_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id, channel) DO UPDATE
        SET enabled = EXCLUDED.enabled,
            destination = EXCLUDED.destination,
            verified_at = EXCLUDED.verified_at`

	if _, err := r.db.Exec(ctx, sql, p.UserID, p.Channel, p.Enabled, p.Destination, p.VerifiedAt); err != nil {
		return storeErr("upsert preference", err)
	}

	return nil
}
