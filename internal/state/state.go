package state

import (
	"slices"
	"strings"

	"go-user-console/internal/domain"
)

type ViewMode string

const (
	ViewList ViewMode = "list"
	ViewGrid ViewMode = "grid"
)

type Session struct {
	IsAuthenticated bool
	AuthToken       string
	Email           string
}

// AppState is everything the screen renders from. Records holds one page of
// the backend collection. FetchSeq and LoginSeq tag the newest listing and
// sign-in requests so late responses to older ones can be dropped.
type AppState struct {
	Session        Session
	Authenticating bool
	Records        []domain.User
	Loading        bool
	Error          string
	Page           int
	TotalPages     int
	SearchText     string
	ViewMode       ViewMode
	FetchSeq       uint64
	LoginSeq       uint64
}

func Initial() AppState {
	return AppState{
		Records:    []domain.User{},
		Page:       1,
		TotalPages: 1,
		ViewMode:   ViewList,
	}
}

// Clone deep-copies the records so the caller may modify the result freely.
func (s AppState) Clone() AppState {
	s.Records = slices.Clone(s.Records)
	if s.Records == nil {
		s.Records = []domain.User{}
	}
	return s
}

// Filtered is the search view: records whose first name, last name or email
// contain SearchText, ignoring case. Empty text matches everything.
func Filtered(s AppState) []domain.User {
	needle := strings.ToLower(s.SearchText)
	out := make([]domain.User, 0, len(s.Records))
	for _, u := range s.Records {
		if needle == "" ||
			strings.Contains(strings.ToLower(u.FirstName), needle) ||
			strings.Contains(strings.ToLower(u.LastName), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle) {
			out = append(out, u)
		}
	}
	return out
}

func (s AppState) CanPrev() bool { return s.Page > 1 }

func (s AppState) CanNext() bool { return s.Page < s.TotalPages }
