package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-user-console/internal/repo"
)

func TestFilteredSearchesNamesAndEmail(t *testing.T) {
	s := Initial()
	s.Records = repo.SeedUsers()

	s.SearchText = "wong"
	got := Filtered(s)
	require.Len(t, got, 1)
	assert.Equal(t, "Wong", got[0].LastName)

	s.SearchText = "WONG"
	assert.Len(t, Filtered(s), 1)

	s.SearchText = "reqres"
	assert.Len(t, Filtered(s), 6)

	s.SearchText = "ja"
	got = Filtered(s)
	require.Len(t, got, 1)
	assert.Equal(t, "Janet", got[0].FirstName)

	s.SearchText = "nobody"
	assert.Empty(t, Filtered(s))

	s.SearchText = ""
	assert.Len(t, Filtered(s), 6)
}

func TestFilteredFollowsLatestRecords(t *testing.T) {
	s := Initial()
	s.Records = repo.SeedUsers()
	s = Reduce(s, SetSearchText{Text: "holt"})
	require.Len(t, Filtered(s), 1)

	s = Reduce(s, UserDeleted{ID: 4})
	assert.Empty(t, Filtered(s))
}

func TestCloneIsIndependent(t *testing.T) {
	s := Initial()
	s.Records = repo.SeedUsers()
	c := s.Clone()
	c.Records[0].FirstName = "X"
	assert.Equal(t, "George", s.Records[0].FirstName)
}

func TestPagingHelpers(t *testing.T) {
	s := Initial()
	assert.False(t, s.CanPrev())
	assert.False(t, s.CanNext())

	s.TotalPages = 3
	s.Page = 2
	assert.True(t, s.CanPrev())
	assert.True(t, s.CanNext())
}
