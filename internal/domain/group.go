package domain

import "time"

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}

type Group struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type User struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

// Membership places a user in a group. Every membership of a group,
// admins included, is a candidate recipient.
type Membership struct {
	UserID        string    `json:"userId" db:"user_id"`
	FamilyGroupID string    `json:"familyGroupId" db:"family_group_id"`
	Role          Role      `json:"role" db:"role"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
}
