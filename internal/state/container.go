package state

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"go-user-console/internal/domain"
	"go-user-console/internal/feature/user"
)

// Messages put into AppState.Error.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgLoginFailed        = "Sign in failed, please try again"
	MsgLoadFailed         = "Failed to load users"
	MsgSaveFailed         = "Failed to save user"
	MsgDeleteFailed       = "Failed to delete user"
	MsgNotFound           = "User not found"
)

// ErrSignedOut is returned when a listing is requested without a session, or
// when a sign-in completes after it was superseded by a logout or a newer sign-in.
var ErrSignedOut = errors.New("state: not signed in")

type Option func(*Container)

func WithLogger(l *zap.Logger) Option { return func(c *Container) { c.log = l } }

// WithPerPage sets the page size requested from the backend; 0 lets the backend choose.
func WithPerPage(n int) Option { return func(c *Container) { c.perPage = n } }

// Container owns AppState and drives the backend calls that feed it. All
// methods are safe for concurrent use.
type Container struct {
	api     domain.UserAPI
	log     *zap.Logger
	perPage int

	mu      sync.Mutex
	st      AppState
	version uint64
	subs    map[int]func(AppState)
	nextSub int

	// notifyMu serializes subscriber calls; delivered is the newest version handed out.
	notifyMu  sync.Mutex
	delivered uint64
}

func New(api domain.UserAPI, opts ...Option) *Container {
	c := &Container{
		api:  api,
		log:  zap.NewNop(),
		st:   Initial(),
		subs: map[int]func(AppState){},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Container) Snapshot() AppState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Clone()
}

// Visible is the filtered view of the current records.
func (c *Container) Visible() []domain.User { return Filtered(c.Snapshot()) }

// Dispatch applies a and returns the state it produced. Subscribers are
// called one at a time after the state lock is released, and never receive a
// state older than one already delivered; a state overtaken by a concurrent
// dispatch is skipped.
func (c *Container) Dispatch(a Action) AppState {
	c.mu.Lock()
	c.st = Reduce(c.st, a)
	c.version++
	v := c.version
	next := c.st.Clone()
	subs := make([]func(AppState), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if v <= c.delivered {
		return next
	}
	c.delivered = v
	for _, fn := range subs {
		fn(next.Clone())
	}
	return next
}

// Subscribe registers fn to receive new states. fn may read Snapshot but must
// not call Dispatch. The returned func removes it.
func (c *Container) Subscribe(fn func(AppState)) (cancel func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *Container) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := user.ValidateLogin(email, password); err != nil {
		return err
	}
	seq := c.Dispatch(LoginStart{}).LoginSeq

	tok, err := c.api.Authenticate(ctx, email, password)
	if err != nil {
		err = backendErr(err)
		msg := MsgLoginFailed
		if errors.Is(err, domain.ErrInvalidCredentials) {
			msg = MsgInvalidCredentials
		}
		c.log.Info("login rejected", zap.String("email", email), zap.Error(err))
		c.Dispatch(LoginFailure{Seq: seq, Message: msg})
		return err
	}
	after := c.Dispatch(LoginSuccess{Seq: seq, Token: tok, Email: email})
	if after.LoginSeq != seq {
		c.log.Info("stale login dropped", zap.String("email", email), zap.Uint64("seq", seq))
		return ErrSignedOut
	}
	c.log.Info("login ok", zap.String("email", email))
	return nil
}

func (c *Container) Logout() {
	c.Dispatch(Logout{})
	c.log.Info("logout")
}

// LoadPage moves to page n and fetches it. n is not clamped.
func (c *Container) LoadPage(ctx context.Context, n int) error {
	c.Dispatch(SetPage{Page: n})
	return c.fetch(ctx)
}

// Reload fetches the current page again.
func (c *Container) Reload(ctx context.Context) error { return c.fetch(ctx) }

func (c *Container) fetch(ctx context.Context) error {
	st := c.Dispatch(FetchUsersStart{})
	if !st.Session.IsAuthenticated {
		return ErrSignedOut
	}
	seq, page := st.FetchSeq, st.Page
	l := c.log.With(zap.Uint64("seq", seq), zap.Int("page", page))

	pg, err := c.api.List(ctx, page, c.perPage)
	if err != nil {
		err = backendErr(err)
		l.Warn("list users failed", zap.Error(err))
		c.Dispatch(FetchUsersFailure{Seq: seq, Message: MsgLoadFailed})
		return err
	}
	after := c.Dispatch(FetchUsersSuccess{Seq: seq, Items: pg.Items, TotalPages: pg.TotalPages})
	if after.FetchSeq != seq {
		l.Debug("stale listing response dropped", zap.Uint64("latest", after.FetchSeq))
		return nil
	}
	l.Debug("users loaded", zap.Int("items", len(pg.Items)), zap.Int("total_pages", pg.TotalPages))
	return nil
}

// CreateUser validates in, creates it on the backend and appends the result
// to the cached page.
func (c *Container) CreateUser(ctx context.Context, in domain.UserInput) (*domain.User, error) {
	in, err := user.ValidateInput(in)
	if err != nil {
		return nil, err
	}
	u, err := c.api.Create(ctx, in)
	if err != nil {
		err = backendErr(err)
		c.log.Warn("create user failed", zap.Error(err))
		c.Dispatch(MutationFailure{Message: MsgSaveFailed})
		return nil, err
	}
	c.log.Info("user created", zap.Int64("id", u.ID))
	c.Dispatch(UserCreated{User: *u})
	return u, nil
}

func (c *Container) EditUser(ctx context.Context, id int64, p domain.UserPatch) (*domain.User, error) {
	p, err := user.ValidatePatch(p)
	if err != nil {
		return nil, err
	}
	u, err := c.api.Update(ctx, id, p)
	if err != nil {
		err = backendErr(err)
		msg := MsgSaveFailed
		if errors.Is(err, domain.ErrNotFound) {
			msg = MsgNotFound
		}
		c.log.Warn("update user failed", zap.Int64("id", id), zap.Error(err))
		c.Dispatch(MutationFailure{Message: msg})
		return nil, err
	}
	c.log.Info("user updated", zap.Int64("id", id))
	c.Dispatch(UserUpdated{User: *u})
	return u, nil
}

// RemoveUser deletes id on the backend and drops it from the cached page.
// The bool is false when the backend did not hold id.
func (c *Container) RemoveUser(ctx context.Context, id int64) (bool, error) {
	ok, err := c.api.Delete(ctx, id)
	if err != nil {
		err = backendErr(err)
		c.log.Warn("delete user failed", zap.Int64("id", id), zap.Error(err))
		c.Dispatch(MutationFailure{Message: MsgDeleteFailed})
		return false, err
	}
	c.log.Info("user deleted", zap.Int64("id", id), zap.Bool("existed", ok))
	c.Dispatch(UserDeleted{ID: id})
	return ok, nil
}

// backendErr makes sure anything unexpected from the backend surfaces as a
// simulated network failure.
func backendErr(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.Network("unexpected backend error", err)
}
