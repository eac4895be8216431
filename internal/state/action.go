package state

import "go-user-console/internal/domain"

// Action is a closed set: only types in this package implement it.
type Action interface {
	action()
}

type (
	// LoginStart opens a sign-in attempt; the reducer assigns it the next LoginSeq.
	LoginStart   struct{}
	LoginSuccess struct {
		Seq   uint64
		Token string
		Email string
	}
	LoginFailure struct {
		Seq     uint64
		Message string
	}
	Logout struct{}

	// FetchUsersStart opens a new listing request; the reducer assigns it the next FetchSeq.
	FetchUsersStart   struct{}
	FetchUsersSuccess struct {
		Seq        uint64
		Items      []domain.User
		TotalPages int
	}
	FetchUsersFailure struct {
		Seq     uint64
		Message string
	}

	SetPage       struct{ Page int }
	SetSearchText struct{ Text string }
	SetViewMode   struct{ Mode ViewMode }

	UserCreated     struct{ User domain.User }
	UserUpdated     struct{ User domain.User }
	UserDeleted     struct{ ID int64 }
	MutationFailure struct{ Message string }
	ClearError      struct{}
)

func (LoginStart) action()        {}
func (LoginSuccess) action()      {}
func (LoginFailure) action()      {}
func (Logout) action()            {}
func (FetchUsersStart) action()   {}
func (FetchUsersSuccess) action() {}
func (FetchUsersFailure) action() {}
func (SetPage) action()           {}
func (SetSearchText) action()     {}
func (SetViewMode) action()       {}
func (UserCreated) action()       {}
func (UserUpdated) action()       {}
func (UserDeleted) action()       {}
func (MutationFailure) action()   {}
func (ClearError) action()        {}
