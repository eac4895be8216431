package domain

import (
	"context"
	"time"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// UserInput is the payload of a create.
type UserInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar,omitempty"`
}

// UserPatch is the payload of an update; nil fields keep their stored value.
type UserPatch struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Avatar    *string `json:"avatar,omitempty"`
}

// Apply merges the non-nil fields of p into u.
func (p UserPatch) Apply(u *User) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
}

// PatchFrom builds a patch that overwrites every editable field, the way a full edit form submits.
func PatchFrom(in UserInput) UserPatch {
	return UserPatch{
		FirstName: &in.FirstName,
		LastName:  &in.LastName,
		Email:     &in.Email,
		Avatar:    &in.Avatar,
	}
}

type Page struct {
	Page       int    `json:"page"`
	PerPage    int    `json:"per_page"`
	Total      int    `json:"total"`
	TotalPages int    `json:"total_pages"`
	Items      []User `json:"data"`
}

// UserAPI is the remote user service as seen by the client.
type UserAPI interface {
	Authenticate(ctx context.Context, email, password string) (string, error)
	List(ctx context.Context, page, perPage int) (*Page, error)
	Create(ctx context.Context, in UserInput) (*User, error)
	Update(ctx context.Context, id int64, p UserPatch) (*User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
