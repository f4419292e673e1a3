package planet

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"exoplanets-server/internal/shared/errors"
)

// Store is the persistence surface the service depends on.
type Store interface {
	List(ctx context.Context, filter Filter) ([]Planet, int, error)
	GetByID(ctx context.Context, id int) (*Planet, error)
	GetByName(ctx context.Context, name string) (*Planet, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, req CreateRequest) (*Planet, error)
	Update(ctx context.Context, id int, req UpdateRequest) (*Planet, error)
	SoftDelete(ctx context.Context, id int) (*Planet, error)
	Restore(ctx context.Context, id int) (*Planet, error)
	HardDelete(ctx context.Context, id int) error
	DeleteAll(ctx context.Context) error
	CountActive(ctx context.Context) (int, error)
	MethodCounts(ctx context.Context) ([]MethodCount, error)
	Methods(ctx context.Context, includeDeleted bool, substring string) ([]string, error)
	Stats(ctx context.Context, method string) (*Stats, error)
	Timeline(ctx context.Context, minYear, maxYear *int, includeDeleted bool) ([]TimelinePoint, error)
	ListDeleted(ctx context.Context, limit, offset int) ([]DeletedPlanet, error)
	TeffValues(ctx context.Context) ([]float64, error)
	InsertChangeLog(ctx context.Context, planetID int, action string, changes []ChangeEntry) error
	ChangeLogs(ctx context.Context, planetID int) ([]ChangeLog, error)
}

type Service struct {
	repo   Store
	logger *slog.Logger
}

func NewService(repo Store, logger *slog.Logger) *Service {
	logger.Debug("Initializing planet service")

	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// NormalizeMethod title-cases a discovery method the way the write path
// stores it: "radial velocity" becomes "Radial Velocity".
func NormalizeMethod(method string) string {
	words := strings.Fields(strings.TrimSpace(method))
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func (s *Service) List(ctx context.Context, filter Filter) (*ListResult, error) {
	filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Items:  items,
		Limit:  filter.Limit,
		Offset: filter.Offset,
		Total:  total,
	}, nil
}

// Get returns an active planet; soft-deleted rows are indistinguishable
// from absent ones.
func (s *Service) Get(ctx context.Context, id int) (*Planet, error) {
	planet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if planet == nil || planet.IsDeleted {
		return nil, errors.NotFoundf("planet with id=%d not found", id)
	}
	return planet, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (*Planet, error) {
	name = strings.TrimSpace(name)

	planet, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if planet == nil {
		return nil, errors.NotFoundf("planet named %q not found", name)
	}
	return planet, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Planet, error) {
	logger := s.logger.With("component", "planet_service", "operation", "create")

	req.Name = strings.TrimSpace(req.Name)
	req.DiscMethod = NormalizeMethod(req.DiscMethod)

	// Optimistic pre-check; the unique index remains the authoritative
	// guard under concurrent creates.
	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Conflictf("planet %q already exists", req.Name)
	}

	planet, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.appendChangeLog(ctx, planet.ID, ActionCreate, []ChangeEntry{
		{Field: "name", Before: nil, After: planet.Name},
		{Field: "disc_method", Before: nil, After: planet.DiscMethod},
		{Field: "disc_year", Before: nil, After: planet.DiscYear},
		{Field: "orbperd", Before: nil, After: planet.OrbPeriod},
		{Field: "rade", Before: nil, After: planet.Radius},
		{Field: "masse", Before: nil, After: planet.Mass},
		{Field: "st_teff", Before: nil, After: planet.StarTeff},
		{Field: "st_rad", Before: nil, After: planet.StarRadius},
		{Field: "st_mass", Before: nil, After: planet.StarMass},
	})

	logger.Info("Planet created", "planet_id", planet.ID, "name", planet.Name)
	return planet, nil
}

func (s *Service) Update(ctx context.Context, id int, req UpdateRequest) (*Planet, error) {
	logger := s.logger.With("component", "planet_service", "operation", "update", "planet_id", id)

	if req.IsEmpty() {
		return nil, errors.Validation("empty update payload")
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if req.DiscMethod != nil {
		normalized := NormalizeMethod(*req.DiscMethod)
		req.DiscMethod = &normalized
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil || current.IsDeleted {
		return nil, errors.NotFoundf("planet with id=%d not found", id)
	}

	updated, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, errors.NotFoundf("planet with id=%d not found", id)
	}

	if changes := diff(current, updated); len(changes) > 0 {
		s.appendChangeLog(ctx, id, ActionUpdate, changes)
	}

	logger.Info("Planet updated")
	return updated, nil
}

// SoftDelete marks an active planet deleted. Deleting an absent planet and
// deleting an already-deleted one are deliberately the same NotFound so the
// response does not reveal whether a deleted record exists.
func (s *Service) SoftDelete(ctx context.Context, id int) error {
	logger := s.logger.With("component", "planet_service", "operation", "soft_delete", "planet_id", id)

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil || current.IsDeleted {
		return errors.NotFoundf("planet with id=%d not found", id)
	}

	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if deleted == nil {
		return errors.NotFoundf("planet with id=%d not found", id)
	}

	s.appendChangeLog(ctx, id, ActionSoftDelete, []ChangeEntry{
		{Field: "is_deleted", Before: false, After: true},
	})

	logger.Info("Planet soft deleted", "name", deleted.Name)
	return nil
}

func (s *Service) Restore(ctx context.Context, id int) (*Planet, error) {
	logger := s.logger.With("component", "planet_service", "operation", "restore", "planet_id", id)

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.NotFoundf("planet with id=%d not found", id)
	}
	if !current.IsDeleted {
		return nil, errors.Conflictf("planet is not deleted")
	}

	restored, err := s.repo.Restore(ctx, id)
	if err != nil {
		return nil, err
	}
	if restored == nil {
		return nil, errors.NotFoundf("planet with id=%d not found", id)
	}

	s.appendChangeLog(ctx, id, ActionRestore, []ChangeEntry{
		{Field: "is_deleted", Before: true, After: false},
	})

	logger.Info("Planet restored", "name", restored.Name)
	return restored, nil
}

// HardDelete permanently removes a planet. Only soft-deleted rows may be
// purged; removing a live record requires deleting it first.
func (s *Service) HardDelete(ctx context.Context, id int, confirm bool) error {
	logger := s.logger.With("component", "planet_service", "operation", "hard_delete", "planet_id", id)

	if !confirm {
		return errors.Validation("add ?confirm=true to proceed")
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return errors.NotFoundf("planet with id=%d not found", id)
	}
	if !current.IsDeleted {
		return errors.Conflictf("planet must be soft-deleted before it can be permanently removed")
	}

	if err := s.repo.HardDelete(ctx, id); err != nil {
		return err
	}

	logger.Warn("Planet permanently removed", "name", current.Name)
	return nil
}

func (s *Service) DeleteAll(ctx context.Context, confirm bool) error {
	if !confirm {
		return errors.Validation("add ?confirm=true to proceed")
	}
	return s.repo.DeleteAll(ctx)
}

func (s *Service) Count(ctx context.Context) (*CountResult, error) {
	count, err := s.repo.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	return &CountResult{Count: count}, nil
}

func (s *Service) MethodCounts(ctx context.Context) ([]MethodCount, error) {
	return s.repo.MethodCounts(ctx)
}

func (s *Service) Methods(ctx context.Context, includeDeleted bool, substring string) ([]string, error) {
	substring = strings.TrimSpace(substring)
	return s.repo.Methods(ctx, includeDeleted, substring)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx, "")
}

func (s *Service) MethodStats(ctx context.Context, method string) (*MethodStats, error) {
	normalized := NormalizeMethod(method)
	if normalized == "" {
		return nil, errors.Validation("discovery method is required")
	}

	stats, err := s.repo.Stats(ctx, normalized)
	if err != nil {
		return nil, err
	}

	return &MethodStats{Stats: *stats, DiscMethod: normalized}, nil
}

func (s *Service) Timeline(ctx context.Context, minYear, maxYear *int, includeDeleted bool) ([]TimelinePoint, error) {
	if minYear != nil && maxYear != nil && *minYear > *maxYear {
		return nil, errors.Validation("min_year must be <= max_year")
	}
	return s.repo.Timeline(ctx, minYear, maxYear, includeDeleted)
}

func (s *Service) ListDeleted(ctx context.Context, limit, offset int) ([]DeletedPlanet, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 1 || limit > MaxLimit {
		return nil, errors.Validationf("limit must be between 1 and %d", MaxLimit)
	}
	if offset < 0 {
		return nil, errors.Validation("offset must be >= 0")
	}
	return s.repo.ListDeleted(ctx, limit, offset)
}

// Changes returns the audit trail of a planet that still has a row,
// deleted or not.
func (s *Service) Changes(ctx context.Context, id int) ([]ChangeLog, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, errors.NotFoundf("planet with id=%d not found", id)
	}
	return s.repo.ChangeLogs(ctx, id)
}

func (s *Service) TeffValues(ctx context.Context) ([]float64, error) {
	return s.repo.TeffValues(ctx)
}

// appendChangeLog records an audit entry best-effort: a failed append is
// logged but never turns a successful write into an error response.
func (s *Service) appendChangeLog(ctx context.Context, id int, action string, changes []ChangeEntry) {
	if err := s.repo.InsertChangeLog(ctx, id, action, changes); err != nil {
		s.logger.Warn("Failed to append change log entry",
			"planet_id", id,
			"action", action,
			"error", err,
		)
	}
}

// diff computes the field-level changes between two versions of a planet.
func diff(before, after *Planet) []ChangeEntry {
	var changes []ChangeEntry

	add := func(field string, b, a any) {
		if b != a {
			changes = append(changes, ChangeEntry{Field: field, Before: b, After: a})
		}
	}

	add("name", before.Name, after.Name)
	add("disc_method", before.DiscMethod, after.DiscMethod)
	add("disc_year", before.DiscYear, after.DiscYear)
	add("orbperd", before.OrbPeriod, after.OrbPeriod)
	add("rade", before.Radius, after.Radius)
	add("masse", before.Mass, after.Mass)
	add("st_teff", before.StarTeff, after.StarTeff)
	add("st_rad", before.StarRadius, after.StarRadius)
	add("st_mass", before.StarMass, after.StarMass)

	return changes
}
