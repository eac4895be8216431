package state

import (
	"slices"

	"go-user-console/internal/domain"
)

// Reduce returns the state after applying a to s. It never modifies the
// records slice of s, and a nil action returns s unchanged.
func Reduce(s AppState, a Action) AppState {
	switch a := a.(type) {
	case LoginStart:
		s.LoginSeq++
		s.Authenticating = true
		s.Error = ""
	case LoginSuccess:
		if a.Seq != s.LoginSeq {
			return s
		}
		s.Authenticating = false
		s.Session = Session{IsAuthenticated: true, AuthToken: a.Token, Email: a.Email}
		s.Error = ""
	case LoginFailure:
		if a.Seq != s.LoginSeq {
			return s
		}
		s.Authenticating = false
		s.Session = Session{}
		s.Error = a.Message
	case Logout:
		next := Initial()
		// outstanding sign-in and listing requests become stale
		next.FetchSeq = s.FetchSeq + 1
		next.LoginSeq = s.LoginSeq + 1
		return next

	case FetchUsersStart:
		if !s.Session.IsAuthenticated {
			return s
		}
		s.FetchSeq++
		s.Loading = true
	case FetchUsersSuccess:
		if a.Seq != s.FetchSeq {
			return s
		}
		s.Records = slices.Clone(a.Items)
		if s.Records == nil {
			s.Records = []domain.User{}
		}
		s.TotalPages = max(1, a.TotalPages)
		s.Error = ""
		s.Loading = false
	case FetchUsersFailure:
		if a.Seq != s.FetchSeq {
			return s
		}
		s.Error = a.Message
		s.Loading = false

	case SetPage:
		s.Page = a.Page
	case SetSearchText:
		s.SearchText = a.Text
	case SetViewMode:
		if a.Mode == ViewList || a.Mode == ViewGrid {
			s.ViewMode = a.Mode
		}

	case UserCreated:
		if i := indexOf(s.Records, a.User.ID); i >= 0 {
			s.Records = slices.Clone(s.Records)
			s.Records[i] = a.User
			return s
		}
		s.Records = append(slices.Clone(s.Records), a.User)
	case UserUpdated:
		i := indexOf(s.Records, a.User.ID)
		if i < 0 {
			return s
		}
		s.Records = slices.Clone(s.Records)
		s.Records[i] = a.User
	case UserDeleted:
		if indexOf(s.Records, a.ID) < 0 {
			return s
		}
		s.Records = slices.DeleteFunc(slices.Clone(s.Records), func(u domain.User) bool { return u.ID == a.ID })
	case MutationFailure:
		s.Error = a.Message
	case ClearError:
		s.Error = ""
	}
	return s
}

func indexOf(us []domain.User, id int64) int {
	return slices.IndexFunc(us, func(u domain.User) bool { return u.ID == id })
}
