package dto

type CreateGroupRequest struct {
	Name string `json:"name" binding:"required,max=120"`
	Slug string `json:"slug"`
}

type CreateUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"omitempty,oneof=ADMIN MEMBER"`
}

type SetPreferenceRequest struct {
	Enabled     bool    `json:"enabled"`
	Destination *string `json:"destination"`
}
