package repo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"go-user-console/internal/core/auth"
	"go-user-console/internal/core/clock"
	"go-user-console/internal/core/metrics"
	"go-user-console/internal/domain"
	"go-user-console/pkg/utils"
)

const (
	DefaultPerPage = 6
	DemoEmail      = "eve.holt@reqres.in"
	DemoPassword   = "cityslicka"
)

const (
	outcomeOK      = "ok"
	outcomeMissing = "missing"
)

// Latency is the simulated round trip per operation class.
type Latency struct {
	Login  time.Duration
	List   time.Duration
	Mutate time.Duration
}

var DefaultLatency = Latency{
	Login:  1000 * time.Millisecond,
	List:   800 * time.Millisecond,
	Mutate: 500 * time.Millisecond,
}

// Credential is the single account the store accepts.
type Credential struct {
	Email        string
	PasswordHash string
}

func NewCredential(email, password string, cost int) (Credential, error) {
	h, err := utils.HashPassword(password, cost)
	if err != nil {
		return Credential{}, fmt.Errorf("hash demo password: %w", err)
	}
	return Credential{Email: email, PasswordHash: h}, nil
}

// SeedUsers returns the six records the reqres demo API starts with.
func SeedUsers() []domain.User {
	return []domain.User{
		{ID: 1, Email: "george.bluth@reqres.in", FirstName: "George", LastName: "Bluth", Avatar: "https://reqres.in/img/faces/1-image.jpg"},
		{ID: 2, Email: "janet.weaver@reqres.in", FirstName: "Janet", LastName: "Weaver", Avatar: "https://reqres.in/img/faces/2-image.jpg"},
		{ID: 3, Email: "emma.wong@reqres.in", FirstName: "Emma", LastName: "Wong", Avatar: "https://reqres.in/img/faces/3-image.jpg"},
		{ID: 4, Email: "eve.holt@reqres.in", FirstName: "Eve", LastName: "Holt", Avatar: "https://reqres.in/img/faces/4-image.jpg"},
		{ID: 5, Email: "charles.morris@reqres.in", FirstName: "Charles", LastName: "Morris", Avatar: "https://reqres.in/img/faces/5-image.jpg"},
		{ID: 6, Email: "tracey.ramos@reqres.in", FirstName: "Tracey", LastName: "Ramos", Avatar: "https://reqres.in/img/faces/6-image.jpg"},
	}
}

type Option func(*MemoryStore)

func WithClock(c clock.Clock) Option { return func(s *MemoryStore) { s.clock = c } }

func WithLatency(l Latency) Option { return func(s *MemoryStore) { s.latency = l } }

func WithLogger(l *zap.Logger) Option { return func(s *MemoryStore) { s.log = l } }

func WithMetrics(m *metrics.StoreMetrics) Option { return func(s *MemoryStore) { s.metrics = m } }

func WithTokens(i auth.Issuer) Option { return func(s *MemoryStore) { s.tokens = i } }

func WithCredential(c Credential) Option { return func(s *MemoryStore) { s.cred = &c } }

func WithPerPage(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.perPage = n
		}
	}
}

// WithFailureRate makes a fraction p of calls fail after their latency, as a flaky network would.
// rnd defaults to math/rand/v2.
func WithFailureRate(p float64, rnd func() float64) Option {
	return func(s *MemoryStore) {
		s.failRate = p
		if rnd != nil {
			s.rnd = rnd
		}
	}
}

// MemoryStore is the simulated user backend. Reads and writes of the
// collection are serialized by mu; the simulated latency is spent before the
// lock is taken.
type MemoryStore struct {
	mu     sync.RWMutex
	users  []domain.User
	nextID int64

	perPage  int
	latency  Latency
	clock    clock.Clock
	log      *zap.Logger
	metrics  *metrics.StoreMetrics
	tokens   auth.Issuer
	cred     *Credential
	failRate float64
	rnd      func() float64
}

var _ domain.UserAPI = (*MemoryStore)(nil)

// NewMemoryStore copies seed into a new store. Seed records without an id get
// one from the counter; the counter starts above the largest seeded id.
func NewMemoryStore(seed []domain.User, opts ...Option) (*MemoryStore, error) {
	s := &MemoryStore{
		perPage: DefaultPerPage,
		latency: DefaultLatency,
		clock:   clock.Real{},
		log:     zap.NewNop(),
		tokens:  auth.DemoToken,
		rnd:     rand.Float64,
		nextID:  1,
	}
	for _, o := range opts {
		o(s)
	}
	if s.cred == nil {
		c, err := NewCredential(DemoEmail, DemoPassword, bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		s.cred = &c
	}

	seen := make(map[int64]struct{}, len(seed))
	for _, u := range seed {
		if u.ID > 0 {
			if _, dup := seen[u.ID]; dup {
				return nil, fmt.Errorf("seed: duplicate user id %d", u.ID)
			}
			seen[u.ID] = struct{}{}
			s.nextID = max(s.nextID, u.ID+1)
		}
	}
	now := s.clock.Now()
	s.users = make([]domain.User, 0, len(seed))
	for _, u := range seed {
		if u.ID <= 0 {
			u.ID = s.nextID
			s.nextID++
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		s.users = append(s.users, u)
	}
	s.metrics.SetSize(len(s.users))
	return s, nil
}

// simulate spends the latency for op and rolls the failure dice.
func (s *MemoryStore) simulate(ctx context.Context, op string, d time.Duration) (*zap.Logger, error) {
	l := s.log.With(zap.String("op", op), zap.String("request_id", uuid.NewString()))
	if err := s.clock.Sleep(ctx, d); err != nil {
		return l, domain.Network("request aborted", err)
	}
	if s.failRate > 0 && s.rnd() < s.failRate {
		return l, domain.Network("simulated network failure", nil)
	}
	return l, nil
}

func (s *MemoryStore) finish(l *zap.Logger, op string, d time.Duration, outcome string, err error) {
	if err != nil {
		outcome = domain.CodeOf(err).String()
		l.Warn("store call failed", zap.Duration("latency", d), zap.Error(err))
	} else {
		l.Debug("store call done", zap.Duration("latency", d), zap.String("outcome", outcome))
	}
	s.metrics.Observe(op, outcome, d)
}

func (s *MemoryStore) Authenticate(ctx context.Context, email, password string) (tok string, err error) {
	const op = "authenticate"
	d := s.latency.Login
	l, err := s.simulate(ctx, op, d)
	defer func() { s.finish(l, op, d, outcomeOK, err) }()
	if err != nil {
		return "", err
	}
	if email != s.cred.Email || !utils.CheckPassword(password, s.cred.PasswordHash) {
		return "", domain.InvalidCredentials()
	}
	tok, err = s.tokens.Issue(email)
	if err != nil {
		return "", domain.Network("issue token failed", err)
	}
	return tok, nil
}

// List returns one page of the collection in insertion order. A page past the
// end yields no items; page < 1 reads as 1 and perPage < 1 uses the store default.
func (s *MemoryStore) List(ctx context.Context, page, perPage int) (out *domain.Page, err error) {
	const op = "list"
	d := s.latency.List
	l, err := s.simulate(ctx, op, d)
	defer func() { s.finish(l, op, d, outcomeOK, err) }()
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = s.perPage
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.users)
	pages := pageCount(total, perPage)
	items := []domain.User{}
	if page <= pages {
		start := (page - 1) * perPage
		end := start + min(perPage, total-start)
		items = append(items, s.users[start:end]...)
	}
	return &domain.Page{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
		Items:      items,
	}, nil
}

// pageCount is ceil(total/perPage) without overflowing for large perPage.
func pageCount(total, perPage int) int {
	n := total / perPage
	if total%perPage != 0 {
		n++
	}
	return n
}

func (s *MemoryStore) Create(ctx context.Context, in domain.UserInput) (u *domain.User, err error) {
	const op = "create"
	d := s.latency.Mutate
	l, err := s.simulate(ctx, op, d)
	defer func() { s.finish(l, op, d, outcomeOK, err) }()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := domain.User{
		ID:        s.nextID,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Avatar:    in.Avatar,
		CreatedAt: s.clock.Now(),
	}
	s.nextID++
	s.users = append(s.users, rec)
	s.metrics.SetSize(len(s.users))
	return &rec, nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, p domain.UserPatch) (u *domain.User, err error) {
	const op = "update"
	d := s.latency.Mutate
	l, err := s.simulate(ctx, op, d)
	defer func() { s.finish(l, op, d, outcomeOK, err) }()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, domain.NotFound("User not found")
	}
	p.Apply(&s.users[i])
	s.users[i].UpdatedAt = s.clock.Now()
	rec := s.users[i]
	return &rec, nil
}

// Delete reports whether id was present; a missing id is not an error.
func (s *MemoryStore) Delete(ctx context.Context, id int64) (ok bool, err error) {
	const op = "delete"
	d := s.latency.Mutate
	l, err := s.simulate(ctx, op, d)
	outcome := outcomeOK
	defer func() { s.finish(l, op, d, outcome, err) }()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		outcome = outcomeMissing
		return false, nil
	}
	s.users = slices.Delete(s.users, i, i+1)
	s.metrics.SetSize(len(s.users))
	return true, nil
}

// All returns a copy of the whole collection without simulated latency.
func (s *MemoryStore) All() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.users)
}

func (s *MemoryStore) indexOf(id int64) int {
	return slices.IndexFunc(s.users, func(u domain.User) bool { return u.ID == id })
}
