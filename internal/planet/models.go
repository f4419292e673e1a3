package planet

import (
	"encoding/json"
	"time"
)

// Planet is an exoplanet discovery record.
type Planet struct {
	ID         int        `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	DiscMethod string     `db:"disc_method" json:"disc_method"`
	DiscYear   int        `db:"disc_year" json:"disc_year"`
	OrbPeriod  float64    `db:"orbperd" json:"orbperd"`
	Radius     float64    `db:"rade" json:"rade"`
	Mass       float64    `db:"masse" json:"masse"`
	StarTeff   float64    `db:"st_teff" json:"st_teff"`
	StarRadius float64    `db:"st_rad" json:"st_rad"`
	StarMass   float64    `db:"st_mass" json:"st_mass"`
	IsDeleted  bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt  *time.Time `db:"deleted_at" json:"deleted_at"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// CreateRequest is the payload for creating a planet. Bounds mirror the
// storage invariants: strictly positive metrics, discovery year 1900..2100.
type CreateRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=200"`
	DiscMethod string  `json:"disc_method" validate:"required"`
	DiscYear   int     `json:"disc_year" validate:"required,gte=1900,lte=2100"`
	OrbPeriod  float64 `json:"orbperd" validate:"required,gt=0"`
	Radius     float64 `json:"rade" validate:"required,gt=0"`
	Mass       float64 `json:"masse" validate:"required,gt=0"`
	StarTeff   float64 `json:"st_teff" validate:"required,gt=0"`
	StarRadius float64 `json:"st_rad" validate:"required,gt=0"`
	StarMass   float64 `json:"st_mass" validate:"required,gt=0"`
}

// UpdateRequest is the payload for partial updates. A nil field is absent
// and leaves the stored value untouched; every column is NOT NULL so there
// is no set-to-null state.
type UpdateRequest struct {
	Name       *string  `json:"name" validate:"omitempty,min=1,max=200"`
	DiscMethod *string  `json:"disc_method" validate:"omitempty,min=1"`
	DiscYear   *int     `json:"disc_year" validate:"omitempty,gte=1900,lte=2100"`
	OrbPeriod  *float64 `json:"orbperd" validate:"omitempty,gt=0"`
	Radius     *float64 `json:"rade" validate:"omitempty,gt=0"`
	Mass       *float64 `json:"masse" validate:"omitempty,gt=0"`
	StarTeff   *float64 `json:"st_teff" validate:"omitempty,gt=0"`
	StarRadius *float64 `json:"st_rad" validate:"omitempty,gt=0"`
	StarMass   *float64 `json:"st_mass" validate:"omitempty,gt=0"`
}

// IsEmpty reports whether the update payload carries no fields at all.
func (u *UpdateRequest) IsEmpty() bool {
	return u.Name == nil &&
		u.DiscMethod == nil &&
		u.DiscYear == nil &&
		u.OrbPeriod == nil &&
		u.Radius == nil &&
		u.Mass == nil &&
		u.StarTeff == nil &&
		u.StarRadius == nil &&
		u.StarMass == nil
}

// ListResult is a page of planets plus the pagination metadata callers need
// to walk the full filtered set.
type ListResult struct {
	Items  []Planet `json:"items"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
	Total  int      `json:"total"`
}

// DeletedPlanet is the trimmed view returned by the admin deleted listing.
type DeletedPlanet struct {
	ID        int        `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at"`
}

// CountResult wraps a single aggregate count.
type CountResult struct {
	Count int `json:"count"`
}

// MethodCount is the number of planets discovered with one method.
type MethodCount struct {
	DiscMethod string `db:"disc_method" json:"disc_method"`
	Count      int    `db:"count" json:"count"`
}

// TimelinePoint is the number of discoveries in one year.
type TimelinePoint struct {
	DiscYear int `db:"disc_year" json:"disc_year"`
	Count    int `db:"count" json:"count"`
}

// MetricSummary holds min/max/avg (and, for method-scoped statistics,
// median) for one numeric metric. All fields are null when no rows match.
type MetricSummary struct {
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Avg    *float64 `json:"avg"`
	Median *float64 `json:"median"`
}

// Stats aggregates every numeric metric over the matching rows.
type Stats struct {
	Count      int           `json:"count"`
	OrbPeriod  MetricSummary `json:"orbperd"`
	Radius     MetricSummary `json:"rade"`
	Mass       MetricSummary `json:"masse"`
	StarTeff   MetricSummary `json:"st_teff"`
	StarRadius MetricSummary `json:"st_rad"`
	StarMass   MetricSummary `json:"st_mass"`
}

// MethodStats is Stats scoped to a single discovery method.
type MethodStats struct {
	Stats
	DiscMethod string `json:"disc_method"`
}

// ChangeEntry is a single field change recorded in the audit trail.
type ChangeEntry struct {
	Field  string `json:"field"`
	Before any    `json:"before"`
	After  any    `json:"after"`
}

// ChangeLog is one append-only audit record for a planet.
type ChangeLog struct {
	ID        int             `db:"id" json:"id"`
	PlanetID  int             `db:"planet_id" json:"planet_id"`
	Action    string          `db:"action" json:"action"`
	Changes   json.RawMessage `db:"changes" json:"changes"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Audit trail action tags.
const (
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionSoftDelete = "soft_delete"
	ActionRestore    = "restore"
)
