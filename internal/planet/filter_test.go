package planet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "exoplanets-server/internal/shared/errors"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestFilterNormalizeDefaults(t *testing.T) {
	f := Filter{}
	f.Normalize()

	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, "id", f.SortBy)
	assert.Equal(t, "desc", f.SortOrder)
}

func TestFilterNormalizeTrimsText(t *testing.T) {
	f := Filter{Name: "  kepler  ", Method: "   ", SortOrder: "ASC"}
	f.Normalize()

	assert.Equal(t, "kepler", f.Name)
	assert.Equal(t, "", f.Method, "all-whitespace method is treated as absent")
	assert.Equal(t, "asc", f.SortOrder)
}

func TestFilterValidateYearRange(t *testing.T) {
	f := Filter{MinYear: intPtr(2020), MaxYear: intPtr(2000)}
	f.Normalize()

	err := f.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
	assert.Contains(t, err.Error(), "min_year")
}

func TestFilterValidateMetricRanges(t *testing.T) {
	cases := []struct {
		param string
		build func(f *Filter)
	}{
		{"orbperd", func(f *Filter) { f.MinOrbPeriod = floatPtr(10); f.MaxOrbPeriod = floatPtr(1) }},
		{"rade", func(f *Filter) { f.MinRadius = floatPtr(10); f.MaxRadius = floatPtr(1) }},
		{"masse", func(f *Filter) { f.MinMass = floatPtr(10); f.MaxMass = floatPtr(1) }},
		{"st_teff", func(f *Filter) { f.MinStarTeff = floatPtr(10); f.MaxStarTeff = floatPtr(1) }},
		{"st_rad", func(f *Filter) { f.MinStarRadius = floatPtr(10); f.MaxStarRadius = floatPtr(1) }},
		{"st_mass", func(f *Filter) { f.MinStarMass = floatPtr(10); f.MaxStarMass = floatPtr(1) }},
	}

	for _, tc := range cases {
		t.Run(tc.param, func(t *testing.T) {
			f := Filter{}
			tc.build(&f)
			f.Normalize()

			err := f.Validate()
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
			assert.Contains(t, err.Error(), tc.param)
		})
	}
}

func TestFilterValidateEqualBoundsAllowed(t *testing.T) {
	f := Filter{MinYear: intPtr(2011), MaxYear: intPtr(2011)}
	f.Normalize()

	assert.NoError(t, f.Validate())
}

func TestFilterValidateSortAllowlist(t *testing.T) {
	f := Filter{SortBy: "deleted_at"}
	f.Normalize()

	err := f.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))

	for column := range sortColumns {
		f := Filter{SortBy: column}
		f.Normalize()
		assert.NoError(t, f.Validate(), "column %s should be sortable", column)
	}
}

func TestFilterValidateSortOrder(t *testing.T) {
	f := Filter{SortOrder: "sideways"}
	f.Normalize()

	require.Error(t, f.Validate())
}

func TestFilterValidateLimitBounds(t *testing.T) {
	f := Filter{Limit: MaxLimit + 1}
	f.Normalize()
	require.Error(t, f.Validate())

	f = Filter{Limit: -1}
	f.Normalize()
	require.Error(t, f.Validate())

	f = Filter{Offset: -1}
	f.Normalize()
	require.Error(t, f.Validate())
}

func TestBuildListQueryDefaults(t *testing.T) {
	f := Filter{}
	f.Normalize()
	require.NoError(t, f.Validate())

	query, args := f.buildListQuery()

	assert.Contains(t, query, "is_deleted = $")
	assert.Contains(t, query, "ORDER BY id DESC")
	assert.Contains(t, query, "LIMIT")
	assert.Contains(t, query, "OFFSET")
	assert.Contains(t, args, false)
}

func TestBuildListQueryTieBreakFollowsPrimaryDirection(t *testing.T) {
	f := Filter{SortBy: "disc_year", SortOrder: "asc"}
	f.Normalize()
	require.NoError(t, f.Validate())

	query, _ := f.buildListQuery()
	assert.Contains(t, query, "ORDER BY disc_year ASC, id ASC")

	f = Filter{SortBy: "disc_year", SortOrder: "desc"}
	f.Normalize()
	query, _ = f.buildListQuery()
	assert.Contains(t, query, "ORDER BY disc_year DESC, id DESC")
}

func TestBuildListQueryPredicates(t *testing.T) {
	f := Filter{
		Name:        "kepler",
		Method:      "Transit",
		MinYear:     intPtr(2000),
		MaxYear:     intPtr(2020),
		MinRadius:   floatPtr(0.5),
		MaxStarMass: floatPtr(2.0),
	}
	f.Normalize()
	require.NoError(t, f.Validate())

	query, args := f.buildListQuery()

	assert.Contains(t, query, "name ILIKE")
	assert.Contains(t, query, "LOWER(disc_method) = ")
	assert.Contains(t, query, "disc_year >= ")
	assert.Contains(t, query, "disc_year <= ")
	assert.Contains(t, query, "rade >= ")
	assert.Contains(t, query, "st_mass <= ")

	assert.Contains(t, args, "%kepler%")
	assert.Contains(t, args, "transit", "method match is lowercased for case-insensitive comparison")
}

func TestBuildListQueryIncludeDeleted(t *testing.T) {
	f := Filter{IncludeDeleted: true}
	f.Normalize()

	query, _ := f.buildListQuery()
	assert.NotContains(t, query, "is_deleted")
}

func TestBuildCountQuerySharesPredicates(t *testing.T) {
	f := Filter{Name: "TOI", MinYear: intPtr(2015), Limit: 10, Offset: 40}
	f.Normalize()
	require.NoError(t, f.Validate())

	countQuery, countArgs := f.buildCountQuery()
	listQuery, listArgs := f.buildListQuery()

	assert.True(t, strings.HasPrefix(countQuery, "SELECT COUNT(*)"))
	assert.NotContains(t, countQuery, "LIMIT")
	assert.NotContains(t, countQuery, "OFFSET")

	// The count query carries the same predicate args; the list query only
	// adds limit/offset on top.
	assert.Subset(t, listArgs, countArgs)
	assert.Contains(t, listQuery, "WHERE")
	assert.Contains(t, countQuery, "WHERE")
}
