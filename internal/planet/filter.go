package planet

import (
	"strings"

	"github.com/huandu/go-sqlbuilder"

	"exoplanets-server/internal/shared/errors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

const planetColumns = "id, name, disc_method, disc_year, orbperd, rade, masse, st_teff, st_rad, st_mass, is_deleted, deleted_at, created_at, updated_at"

// sortColumns is the allowlist of columns a listing may be ordered by.
var sortColumns = map[string]bool{
	"id":          true,
	"name":        true,
	"disc_method": true,
	"disc_year":   true,
	"orbperd":     true,
	"rade":        true,
	"masse":       true,
	"st_teff":     true,
	"st_rad":      true,
	"st_mass":     true,
	"created_at":  true,
}

// Filter collects the optional predicates, sort and pagination of a listing
// request. Zero values mean "absent" for strings; nil means absent for the
// numeric bounds.
type Filter struct {
	Name   string
	Method string

	MinYear *int
	MaxYear *int

	MinOrbPeriod  *float64
	MaxOrbPeriod  *float64
	MinRadius     *float64
	MaxRadius     *float64
	MinMass       *float64
	MaxMass       *float64
	MinStarTeff   *float64
	MaxStarTeff   *float64
	MinStarRadius *float64
	MaxStarRadius *float64
	MinStarMass   *float64
	MaxStarMass   *float64

	IncludeDeleted bool

	Limit  int
	Offset int

	SortBy    string
	SortOrder string
}

type metricRange struct {
	param  string
	column string
	min    *float64
	max    *float64
}

func (f *Filter) metricRanges() []metricRange {
	return []metricRange{
		{"orbperd", "orbperd", f.MinOrbPeriod, f.MaxOrbPeriod},
		{"rade", "rade", f.MinRadius, f.MaxRadius},
		{"masse", "masse", f.MinMass, f.MaxMass},
		{"st_teff", "st_teff", f.MinStarTeff, f.MaxStarTeff},
		{"st_rad", "st_rad", f.MinStarRadius, f.MaxStarRadius},
		{"st_mass", "st_mass", f.MinStarMass, f.MaxStarMass},
	}
}

// Normalize fills in defaults and trims the textual filters. All-whitespace
// values are treated as absent.
func (f *Filter) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Method = strings.TrimSpace(f.Method)

	if f.Limit == 0 {
		f.Limit = DefaultLimit
	}
	if f.SortBy == "" {
		f.SortBy = "id"
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}
	f.SortOrder = strings.ToLower(f.SortOrder)
}

// Validate rejects contradictory bounds, out-of-range pagination and sort
// columns outside the allowlist.
func (f *Filter) Validate() error {
	if f.Limit < 1 || f.Limit > MaxLimit {
		return errors.Validationf("limit must be between 1 and %d", MaxLimit)
	}
	if f.Offset < 0 {
		return errors.Validation("offset must be >= 0")
	}

	if f.MinYear != nil && f.MaxYear != nil && *f.MinYear > *f.MaxYear {
		return errors.Validation("min_year must be <= max_year")
	}

	for _, r := range f.metricRanges() {
		if r.min != nil && r.max != nil && *r.min > *r.max {
			return errors.Validationf("min_%s must be <= max_%s", r.param, r.param)
		}
	}

	if !sortColumns[f.SortBy] {
		return errors.Validationf("invalid sort_by %q", f.SortBy)
	}
	if f.SortOrder != "asc" && f.SortOrder != "desc" {
		return errors.Validationf("invalid sort_order %q", f.SortOrder)
	}

	return nil
}

// apply adds the filter's predicates to a select builder. The same
// conjunction backs both the page query and the total count so the two can
// never disagree.
func (f *Filter) apply(sb *sqlbuilder.SelectBuilder) {
	if !f.IncludeDeleted {
		sb.Where(sb.Equal("is_deleted", false))
	}

	if f.Name != "" {
		sb.Where(sb.ILike("name", "%"+f.Name+"%"))
	}

	if f.Method != "" {
		sb.Where(sb.Equal("LOWER(disc_method)", strings.ToLower(f.Method)))
	}

	if f.MinYear != nil {
		sb.Where(sb.GreaterEqualThan("disc_year", *f.MinYear))
	}
	if f.MaxYear != nil {
		sb.Where(sb.LessEqualThan("disc_year", *f.MaxYear))
	}

	for _, r := range f.metricRanges() {
		if r.min != nil {
			sb.Where(sb.GreaterEqualThan(r.column, *r.min))
		}
		if r.max != nil {
			sb.Where(sb.LessEqualThan(r.column, *r.max))
		}
	}
}

// buildListQuery builds the paged row query. The secondary sort on id
// follows the primary direction so pages stay stable when the primary
// column has duplicates.
func (f *Filter) buildListQuery() (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(planetColumns)
	sb.From("planets")
	f.apply(sb)

	direction := "DESC"
	if f.SortOrder == "asc" {
		direction = "ASC"
	}
	if f.SortBy == "id" {
		sb.OrderBy("id " + direction)
	} else {
		sb.OrderBy(f.SortBy+" "+direction, "id "+direction)
	}

	sb.Limit(f.Limit)
	sb.Offset(f.Offset)

	return sb.Build()
}

// buildCountQuery counts the rows matching the same predicates, independent
// of limit/offset.
func (f *Filter) buildCountQuery() (string, []interface{}) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("planets")
	f.apply(sb)

	return sb.Build()
}
