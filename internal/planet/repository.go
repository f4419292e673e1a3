package planet

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"exoplanets-server/internal/shared/database"
	"exoplanets-server/internal/shared/errors"
)

// pq error code for unique constraint violations.
const uniqueViolation = "23505"

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing planet repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// List returns one page of rows plus the total count of rows matching the
// same predicates.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Planet, int, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "list")

	query, args := filter.buildListQuery()

	planets := []Planet{}
	if err := r.db.SelectContext(ctx, &planets, query, args...); err != nil {
		logger.Error("Failed to query planets", "error", err)
		return nil, 0, errors.WrapInternal("failed to query planets", err)
	}

	countQuery, countArgs := filter.buildCountQuery()

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		logger.Error("Failed to count planets", "error", err)
		return nil, 0, errors.WrapInternal("failed to count planets", err)
	}

	logger.Debug("Planets retrieved", "count", len(planets), "total", total)
	return planets, total, nil
}

// GetByID returns the row regardless of its soft-delete state, or nil when
// no row exists. Visibility rules live in the service.
func (r *Repository) GetByID(ctx context.Context, id int) (*Planet, error) {
	query := fmt.Sprintf("SELECT %s FROM planets WHERE id = $1", planetColumns)

	var planet Planet
	err := r.db.GetContext(ctx, &planet, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get planet", "planet_id", id, "error", err)
		return nil, errors.WrapInternal("failed to get planet", err)
	}

	return &planet, nil
}

// GetByName returns the active row with the given name (case-insensitive),
// or nil when absent.
func (r *Repository) GetByName(ctx context.Context, name string) (*Planet, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM planets WHERE LOWER(name) = LOWER($1) AND is_deleted = FALSE",
		planetColumns,
	)

	var planet Planet
	err := r.db.GetContext(ctx, &planet, query, name)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get planet by name", "name", name, "error", err)
		return nil, errors.WrapInternal("failed to get planet by name", err)
	}

	return &planet, nil
}

// ExistsByName reports whether any row, soft-deleted or not, carries the
// name (case-insensitive). Name uniqueness spans deleted rows.
func (r *Repository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx,
		&exists,
		"SELECT EXISTS(SELECT 1 FROM planets WHERE LOWER(name) = LOWER($1))",
		name,
	)
	if err != nil {
		r.logger.Error("Failed to check planet name", "name", name, "error", err)
		return false, errors.WrapInternal("failed to check planet name", err)
	}
	return exists, nil
}

func (r *Repository) Create(ctx context.Context, req CreateRequest) (*Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "create", "name", req.Name)
	logger.Debug("Creating planet")

	query := fmt.Sprintf(`
		INSERT INTO planets (name, disc_method, disc_year, orbperd, rade, masse, st_teff, st_rad, st_mass)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s`, planetColumns)

	var planet Planet
	err := r.db.GetContext(ctx, &planet, query,
		req.Name,
		req.DiscMethod,
		req.DiscYear,
		req.OrbPeriod,
		req.Radius,
		req.Mass,
		req.StarTeff,
		req.StarRadius,
		req.StarMass,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// The unique index is the authoritative guard; a racing create
			// that slipped past the pre-check lands here.
			return nil, errors.Conflictf("planet %q already exists", req.Name)
		}
		logger.Error("Failed to create planet", "error", err)
		return nil, errors.WrapInternal("failed to create planet", err)
	}

	logger.Debug("Planet created successfully", "planet_id", planet.ID)
	return &planet, nil
}

// Update applies the present fields of req to the row and refreshes
// updated_at. Returns nil when the row vanished between the service's
// lookup and the update.
func (r *Repository) Update(ctx context.Context, id int, req UpdateRequest) (*Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "update", "planet_id", id)

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("planets")

	assignments := []string{ub.Assign("updated_at", sqlbuilder.Raw("NOW()"))}
	if req.Name != nil {
		assignments = append(assignments, ub.Assign("name", *req.Name))
	}
	if req.DiscMethod != nil {
		assignments = append(assignments, ub.Assign("disc_method", *req.DiscMethod))
	}
	if req.DiscYear != nil {
		assignments = append(assignments, ub.Assign("disc_year", *req.DiscYear))
	}
	if req.OrbPeriod != nil {
		assignments = append(assignments, ub.Assign("orbperd", *req.OrbPeriod))
	}
	if req.Radius != nil {
		assignments = append(assignments, ub.Assign("rade", *req.Radius))
	}
	if req.Mass != nil {
		assignments = append(assignments, ub.Assign("masse", *req.Mass))
	}
	if req.StarTeff != nil {
		assignments = append(assignments, ub.Assign("st_teff", *req.StarTeff))
	}
	if req.StarRadius != nil {
		assignments = append(assignments, ub.Assign("st_rad", *req.StarRadius))
	}
	if req.StarMass != nil {
		assignments = append(assignments, ub.Assign("st_mass", *req.StarMass))
	}

	ub.Set(assignments...)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	query += " RETURNING " + planetColumns

	var planet Planet
	err := r.db.GetContext(ctx, &planet, query, args...)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Conflictf("planet name already exists")
		}
		logger.Error("Failed to update planet", "error", err)
		return nil, errors.WrapInternal("failed to update planet", err)
	}

	logger.Debug("Planet updated successfully")
	return &planet, nil
}

func (r *Repository) SoftDelete(ctx context.Context, id int) (*Planet, error) {
	query := fmt.Sprintf(`
		UPDATE planets
		SET is_deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, planetColumns)

	var planet Planet
	err := r.db.GetContext(ctx, &planet, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to soft delete planet", "planet_id", id, "error", err)
		return nil, errors.WrapInternal("failed to soft delete planet", err)
	}

	return &planet, nil
}

func (r *Repository) Restore(ctx context.Context, id int) (*Planet, error) {
	query := fmt.Sprintf(`
		UPDATE planets
		SET is_deleted = FALSE, deleted_at = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING %s`, planetColumns)

	var planet Planet
	err := r.db.GetContext(ctx, &planet, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to restore planet", "planet_id", id, "error", err)
		return nil, errors.WrapInternal("failed to restore planet", err)
	}

	return &planet, nil
}

func (r *Repository) HardDelete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM planets WHERE id = $1", id)
	if err != nil {
		r.logger.Error("Failed to hard delete planet", "planet_id", id, "error", err)
		return errors.WrapInternal("failed to hard delete planet", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.NotFoundf("planet with id=%d not found", id)
	}

	return nil
}

// DeleteAll truncates the planets table and resets the identity sequence.
// Change-log rows go with it via the CASCADE on the foreign key.
func (r *Repository) DeleteAll(ctx context.Context) error {
	logger := r.logger.With("component", "planet_repository", "operation", "delete_all")
	logger.Warn("Truncating planets table")

	if _, err := r.db.ExecContext(ctx, "TRUNCATE TABLE planets RESTART IDENTITY CASCADE"); err != nil {
		logger.Error("Failed to truncate planets table", "error", err)
		return errors.WrapInternal("failed to truncate planets table", err)
	}

	logger.Info("Planets table truncated, identity reset")
	return nil
}

func (r *Repository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM planets WHERE is_deleted = FALSE")
	if err != nil {
		r.logger.Error("Failed to count planets", "error", err)
		return 0, errors.WrapInternal("failed to count planets", err)
	}
	return count, nil
}

// MethodCounts groups active rows by discovery method, most common first.
func (r *Repository) MethodCounts(ctx context.Context) ([]MethodCount, error) {
	query := `
		SELECT disc_method, COUNT(*) AS count
		FROM planets
		WHERE is_deleted = FALSE
		GROUP BY disc_method
		ORDER BY COUNT(*) DESC`

	counts := []MethodCount{}
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		r.logger.Error("Failed to count planets by method", "error", err)
		return nil, errors.WrapInternal("failed to count planets by method", err)
	}

	return counts, nil
}

// Methods lists distinct discovery methods alphabetically, optionally
// including deleted rows and filtering by substring.
func (r *Repository) Methods(ctx context.Context, includeDeleted bool, substring string) ([]string, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("DISTINCT disc_method")
	sb.From("planets")
	if !includeDeleted {
		sb.Where(sb.Equal("is_deleted", false))
	}
	if substring != "" {
		sb.Where(sb.ILike("disc_method", "%"+substring+"%"))
	}
	sb.OrderBy("disc_method ASC")

	query, args := sb.Build()

	methods := []string{}
	if err := r.db.SelectContext(ctx, &methods, query, args...); err != nil {
		r.logger.Error("Failed to list discovery methods", "error", err)
		return nil, errors.WrapInternal("failed to list discovery methods", err)
	}

	return methods, nil
}

type summaryRow struct {
	Min    sql.NullFloat64 `db:"min"`
	Max    sql.NullFloat64 `db:"max"`
	Avg    sql.NullFloat64 `db:"avg"`
	Median sql.NullFloat64 `db:"median"`
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// Stats computes min/max/avg per metric over active rows. When method is
// non-empty the scope narrows to that discovery method (case-insensitive)
// and the median is computed as well. Zero matching rows yield null
// summaries, never zeroes.
func (r *Repository) Stats(ctx context.Context, method string) (*Stats, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "stats", "method", method)

	where := "is_deleted = FALSE"
	args := []interface{}{}
	if method != "" {
		where += " AND LOWER(disc_method) = LOWER($1)"
		args = append(args, method)
	}

	var count int
	countQuery := "SELECT COUNT(*) FROM planets WHERE " + where
	if err := r.db.GetContext(ctx, &count, countQuery, args...); err != nil {
		logger.Error("Failed to count matching planets", "error", err)
		return nil, errors.WrapInternal("failed to compute planet statistics", err)
	}

	stats := &Stats{Count: count}
	summaries := map[string]*MetricSummary{
		"orbperd": &stats.OrbPeriod,
		"rade":    &stats.Radius,
		"masse":   &stats.Mass,
		"st_teff": &stats.StarTeff,
		"st_rad":  &stats.StarRadius,
		"st_mass": &stats.StarMass,
	}

	for _, column := range []string{"orbperd", "rade", "masse", "st_teff", "st_rad", "st_mass"} {
		median := "NULL AS median"
		if method != "" {
			median = fmt.Sprintf("PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY %s) AS median", column)
		}

		query := fmt.Sprintf(
			"SELECT MIN(%[1]s) AS min, MAX(%[1]s) AS max, AVG(%[1]s) AS avg, %[2]s FROM planets WHERE %[3]s",
			column, median, where,
		)

		var row summaryRow
		if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
			logger.Error("Failed to compute metric summary", "metric", column, "error", err)
			return nil, errors.WrapInternal("failed to compute planet statistics", err)
		}

		summary := summaries[column]
		summary.Min = nullableFloat(row.Min)
		summary.Max = nullableFloat(row.Max)
		summary.Avg = nullableFloat(row.Avg)
		summary.Median = nullableFloat(row.Median)
	}

	return stats, nil
}

// Timeline counts discoveries per year, ascending.
func (r *Repository) Timeline(ctx context.Context, minYear, maxYear *int, includeDeleted bool) ([]TimelinePoint, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("disc_year", "COUNT(*) AS count")
	sb.From("planets")
	if !includeDeleted {
		sb.Where(sb.Equal("is_deleted", false))
	}
	if minYear != nil {
		sb.Where(sb.GreaterEqualThan("disc_year", *minYear))
	}
	if maxYear != nil {
		sb.Where(sb.LessEqualThan("disc_year", *maxYear))
	}
	sb.GroupBy("disc_year")
	sb.OrderBy("disc_year ASC")

	query, args := sb.Build()

	points := []TimelinePoint{}
	if err := r.db.SelectContext(ctx, &points, query, args...); err != nil {
		r.logger.Error("Failed to query discovery timeline", "error", err)
		return nil, errors.WrapInternal("failed to query discovery timeline", err)
	}

	return points, nil
}

// ListDeleted returns soft-deleted rows, most recently deleted first.
func (r *Repository) ListDeleted(ctx context.Context, limit, offset int) ([]DeletedPlanet, error) {
	query := `
		SELECT id, name, deleted_at
		FROM planets
		WHERE is_deleted = TRUE
		ORDER BY deleted_at DESC
		LIMIT $1 OFFSET $2`

	planets := []DeletedPlanet{}
	if err := r.db.SelectContext(ctx, &planets, query, limit, offset); err != nil {
		r.logger.Error("Failed to list deleted planets", "error", err)
		return nil, errors.WrapInternal("failed to list deleted planets", err)
	}

	return planets, nil
}

// TeffValues returns every stored host star temperature, used by the
// histogram chart.
func (r *Repository) TeffValues(ctx context.Context) ([]float64, error) {
	values := []float64{}
	if err := r.db.SelectContext(ctx, &values, "SELECT st_teff FROM planets"); err != nil {
		r.logger.Error("Failed to query star temperatures", "error", err)
		return nil, errors.WrapInternal("failed to query star temperatures", err)
	}
	return values, nil
}

// InsertChangeLog appends one audit record for a planet.
func (r *Repository) InsertChangeLog(ctx context.Context, planetID int, action string, changes []ChangeEntry) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return errors.WrapInternal("failed to marshal change entries", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO planet_change_logs (planet_id, action, changes, created_at) VALUES ($1, $2, $3, NOW())",
		planetID, action, payload,
	)
	if err != nil {
		return errors.WrapInternal("failed to insert change log", err)
	}

	return nil
}

// ChangeLogs returns a planet's audit records, newest first.
func (r *Repository) ChangeLogs(ctx context.Context, planetID int) ([]ChangeLog, error) {
	query := `
		SELECT id, planet_id, action, changes, created_at
		FROM planet_change_logs
		WHERE planet_id = $1
		ORDER BY created_at DESC, id DESC`

	logs := []ChangeLog{}
	if err := r.db.SelectContext(ctx, &logs, query, planetID); err != nil {
		r.logger.Error("Failed to query change logs", "planet_id", planetID, "error", err)
		return nil, errors.WrapInternal("failed to query change logs", err)
	}

	return logs, nil
}
