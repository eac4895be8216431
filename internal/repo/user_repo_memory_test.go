package repo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"go-user-console/internal/core/auth"
	"go-user-console/internal/core/clock"
	"go-user-console/internal/core/metrics"
	"go-user-console/internal/domain"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newStore(t *testing.T, seed []domain.User, opts ...Option) (*MemoryStore, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(t0)
	opts = append([]Option{WithClock(fc), WithLogger(zaptest.NewLogger(t))}, opts...)
	s, err := NewMemoryStore(seed, opts...)
	require.NoError(t, err)
	return s, fc
}

func manyUsers(n int) []domain.User {
	out := make([]domain.User, n)
	for i := range out {
		out[i] = domain.User{
			ID:        int64(i + 1),
			Email:     fmt.Sprintf("user%d@example.com", i+1),
			FirstName: fmt.Sprintf("First%d", i+1),
			LastName:  fmt.Sprintf("Last%d", i+1),
		}
	}
	return out
}

func ids(us []domain.User) []int64 {
	out := make([]int64, len(us))
	for i, u := range us {
		out[i] = u.ID
	}
	return out
}

func TestAuthenticate(t *testing.T) {
	s, fc := newStore(t, SeedUsers())
	ctx := context.Background()

	tok, err := s.Authenticate(ctx, "eve.holt@reqres.in", "cityslicka")
	require.NoError(t, err)
	assert.Equal(t, "QpwL5tke4Pnpja7X4", tok)

	_, err = s.Authenticate(ctx, "eve.holt@reqres.in", "wrong")
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))

	_, err = s.Authenticate(ctx, "george.bluth@reqres.in", "cityslicka")
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))

	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, fc.Slept())
}

func TestAuthenticateIssuesJWT(t *testing.T) {
	j := &auth.JWTer{Secret: []byte("k"), Issuer: "test", TTL: time.Hour}
	cred, err := NewCredential("admin@example.com", "hunter22", 4)
	require.NoError(t, err)
	s, _ := newStore(t, nil, WithTokens(j), WithCredential(cred))

	tok, err := s.Authenticate(context.Background(), "admin@example.com", "hunter22")
	require.NoError(t, err)
	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", c.Email)
}

func TestListPagesCoverCollectionInOrder(t *testing.T) {
	for _, n := range []int{0, 1, 5, 6, 7, 12, 13} {
		t.Run(fmt.Sprintf("total=%d", n), func(t *testing.T) {
			seed := manyUsers(n)
			s, _ := newStore(t, seed)
			ctx := context.Background()

			first, err := s.List(ctx, 1, 6)
			require.NoError(t, err)
			assert.Equal(t, n, first.Total)
			assert.Equal(t, (n+5)/6, first.TotalPages)

			var all []domain.User
			for p := 1; p <= first.TotalPages; p++ {
				pg, err := s.List(ctx, p, 6)
				require.NoError(t, err)
				assert.Len(t, pg.Items, min(6, n-(p-1)*6))
				all = append(all, pg.Items...)
			}
			assert.Equal(t, ids(seed), ids(all))
		})
	}
}

func TestListBeyondRangeIsEmpty(t *testing.T) {
	s, _ := newStore(t, SeedUsers())
	ctx := context.Background()

	pg, err := s.List(ctx, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, 1, pg.TotalPages)
	assert.Len(t, pg.Items, 6)

	pg, err = s.List(ctx, 2, 6)
	require.NoError(t, err)
	assert.Empty(t, pg.Items)
	assert.NotNil(t, pg.Items)
	assert.Equal(t, 2, pg.Page)

	pg, err = s.List(ctx, int(^uint(0)>>1), 6)
	require.NoError(t, err)
	assert.Empty(t, pg.Items)
}

func TestListNormalizesArguments(t *testing.T) {
	s, fc := newStore(t, manyUsers(8), WithPerPage(3))

	pg, err := s.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 3, pg.PerPage)
	assert.Equal(t, 3, pg.TotalPages)
	assert.Equal(t, []int64{1, 2, 3}, ids(pg.Items))
	assert.Equal(t, []time.Duration{800 * time.Millisecond}, fc.Slept())
}

func TestListHugePerPage(t *testing.T) {
	s, _ := newStore(t, SeedUsers())
	ctx := context.Background()

	pg, err := s.List(ctx, 1, math.MaxInt)
	require.NoError(t, err)
	assert.Equal(t, 1, pg.TotalPages)
	assert.Len(t, pg.Items, 6)

	pg, err = s.List(ctx, 2, math.MaxInt-1)
	require.NoError(t, err)
	assert.Equal(t, 1, pg.TotalPages)
	assert.Empty(t, pg.Items)
}

func TestListReturnsCopies(t *testing.T) {
	s, _ := newStore(t, SeedUsers())
	pg, err := s.List(context.Background(), 1, 6)
	require.NoError(t, err)
	pg.Items[0].FirstName = "Mutated"

	assert.Equal(t, "George", s.All()[0].FirstName)
}

func TestCreateAssignsIncreasingIDs(t *testing.T) {
	s, fc := newStore(t, SeedUsers())
	ctx := context.Background()

	u, err := s.Create(ctx, domain.UserInput{FirstName: "Ann", LastName: "Lee", Email: "ann@lee.io"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, t0.Add(500*time.Millisecond), u.CreatedAt)

	ok, err := s.Delete(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)

	u, err = s.Create(ctx, domain.UserInput{FirstName: "Bo", LastName: "Ng", Email: "bo@ng.io"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), u.ID)

	all := s.All()
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 8}, ids(all))
	assert.Len(t, fc.Slept(), 3)
}

func TestCreateMovesPageBoundaries(t *testing.T) {
	s, _ := newStore(t, SeedUsers())
	ctx := context.Background()

	_, err := s.Create(ctx, domain.UserInput{FirstName: "Ann", LastName: "Lee", Email: "ann@lee.io"})
	require.NoError(t, err)

	pg, err := s.List(ctx, 2, 6)
	require.NoError(t, err)
	assert.Equal(t, 2, pg.TotalPages)
	require.Len(t, pg.Items, 1)
	assert.Equal(t, "Ann", pg.Items[0].FirstName)
}

func TestNewMemoryStoreSeedIDs(t *testing.T) {
	s, _ := newStore(t, []domain.User{{ID: 10, Email: "a@b.c"}, {Email: "c@d.e"}})
	assert.Equal(t, []int64{10, 11}, ids(s.All()))

	u, err := s.Create(context.Background(), domain.UserInput{Email: "x@y.z"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), u.ID)

	_, err = NewMemoryStore([]domain.User{{ID: 1}, {ID: 1}}, WithClock(clock.NewFake(t0)))
	assert.Error(t, err)
}

func TestUpdateMergesFields(t *testing.T) {
	s, _ := newStore(t, SeedUsers())
	ctx := context.Background()

	name := "Janey"
	u, err := s.Update(ctx, 2, domain.UserPatch{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Janey", u.FirstName)
	assert.Equal(t, "Weaver", u.LastName)
	assert.Equal(t, "janet.weaver@reqres.in", u.Email)
	assert.Equal(t, t0.Add(500*time.Millisecond), u.UpdatedAt)
	assert.Equal(t, "Janey", s.All()[1].FirstName)
}

func TestUpdateMissing(t *testing.T) {
	s, _ := newStore(t, SeedUsers())
	name := "X"
	_, err := s.Update(context.Background(), 99, domain.UserPatch{FirstName: &name})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, SeedUsers()[0].FirstName, s.All()[0].FirstName)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	s, _ := newStore(t, SeedUsers())
	before := s.All()

	ok, err := s.Delete(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, s.All())
}

func TestDeleteKeepsOrder(t *testing.T) {
	s, _ := newStore(t, SeedUsers())
	ok, err := s.Delete(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []int64{1, 2, 4, 5, 6}, ids(s.All()))
}

func TestConcurrentCreatesGetUniqueIDs(t *testing.T) {
	s, _ := newStore(t, SeedUsers())
	g, ctx := errgroup.WithContext(context.Background())
	const n = 50
	got := make([]int64, n)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			u, err := s.Create(ctx, domain.UserInput{FirstName: "C", LastName: "C", Email: "c@c.io"})
			if err != nil {
				return err
			}
			got[i] = u.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := map[int64]bool{}
	for _, id := range got {
		assert.False(t, seen[id], "duplicate id %d", id)
		assert.Greater(t, id, int64(6))
		seen[id] = true
	}
	assert.Len(t, s.All(), 6+n)
}

func TestCanceledContext(t *testing.T) {
	s, _ := newStore(t, SeedUsers())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.List(ctx, 1, 6)
	assert.True(t, errors.Is(err, domain.ErrNetworkSimulation))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFailureRate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewStoreMetrics(reg)
	s, _ := newStore(t, SeedUsers(), WithMetrics(m), WithFailureRate(0.5, func() float64 { return 0.1 }))

	_, err := s.Create(context.Background(), domain.UserInput{FirstName: "A", LastName: "B", Email: "a@b.c"})
	assert.True(t, errors.Is(err, domain.ErrNetworkSimulation))
	assert.Len(t, s.All(), 6)

	n, err := testutil.GatherAndCount(reg, "user_store_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRealClockLatency(t *testing.T) {
	s, err := NewMemoryStore(SeedUsers(), WithLatency(Latency{List: 20 * time.Millisecond}))
	require.NoError(t, err)

	start := time.Now()
	_, err = s.List(context.Background(), 1, 6)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
