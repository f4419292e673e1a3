package planet

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "exoplanets-server/internal/shared/errors"
)

// stubStore implements Store with canned data keyed by planet id.
type stubStore struct {
	planets map[int]*Planet
	byName  map[string]*Planet

	created       []CreateRequest
	updated       []UpdateRequest
	softDels      []int
	restores      []int
	hardDels      []int
	changeLogs    []string
	loggedEntries [][]ChangeEntry
	truncated     bool

	listErr error
	logErr  error
}

func newStubStore(planets ...*Planet) *stubStore {
	s := &stubStore{
		planets: make(map[int]*Planet),
		byName:  make(map[string]*Planet),
	}
	for _, p := range planets {
		s.planets[p.ID] = p
		s.byName[p.Name] = p
	}
	return s
}

func (s *stubStore) List(ctx context.Context, filter Filter) ([]Planet, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	var items []Planet
	for _, p := range s.planets {
		if !p.IsDeleted || filter.IncludeDeleted {
			items = append(items, *p)
		}
	}
	return items, len(items), nil
}

func (s *stubStore) GetByID(ctx context.Context, id int) (*Planet, error) {
	return s.planets[id], nil
}

func (s *stubStore) GetByName(ctx context.Context, name string) (*Planet, error) {
	p := s.byName[name]
	if p == nil || p.IsDeleted {
		return nil, nil
	}
	return p, nil
}

func (s *stubStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	return s.byName[name] != nil, nil
}

func (s *stubStore) Create(ctx context.Context, req CreateRequest) (*Planet, error) {
	s.created = append(s.created, req)
	p := &Planet{
		ID:         len(s.planets) + 1,
		Name:       req.Name,
		DiscMethod: req.DiscMethod,
		DiscYear:   req.DiscYear,
		OrbPeriod:  req.OrbPeriod,
		Radius:     req.Radius,
		Mass:       req.Mass,
		StarTeff:   req.StarTeff,
		StarRadius: req.StarRadius,
		StarMass:   req.StarMass,
	}
	s.planets[p.ID] = p
	s.byName[p.Name] = p
	return p, nil
}

func (s *stubStore) Update(ctx context.Context, id int, req UpdateRequest) (*Planet, error) {
	s.updated = append(s.updated, req)
	p := s.planets[id]
	if p == nil {
		return nil, nil
	}
	next := *p
	if req.Name != nil {
		next.Name = *req.Name
	}
	if req.DiscMethod != nil {
		next.DiscMethod = *req.DiscMethod
	}
	if req.DiscYear != nil {
		next.DiscYear = *req.DiscYear
	}
	if req.Radius != nil {
		next.Radius = *req.Radius
	}
	s.planets[id] = &next
	return &next, nil
}

func (s *stubStore) SoftDelete(ctx context.Context, id int) (*Planet, error) {
	s.softDels = append(s.softDels, id)
	p := s.planets[id]
	if p == nil {
		return nil, nil
	}
	now := time.Now()
	p.IsDeleted = true
	p.DeletedAt = &now
	return p, nil
}

func (s *stubStore) Restore(ctx context.Context, id int) (*Planet, error) {
	s.restores = append(s.restores, id)
	p := s.planets[id]
	if p == nil {
		return nil, nil
	}
	p.IsDeleted = false
	p.DeletedAt = nil
	return p, nil
}

func (s *stubStore) HardDelete(ctx context.Context, id int) error {
	s.hardDels = append(s.hardDels, id)
	delete(s.planets, id)
	return nil
}

func (s *stubStore) DeleteAll(ctx context.Context) error {
	s.truncated = true
	s.planets = make(map[int]*Planet)
	s.byName = make(map[string]*Planet)
	return nil
}

func (s *stubStore) CountActive(ctx context.Context) (int, error) {
	count := 0
	for _, p := range s.planets {
		if !p.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (s *stubStore) MethodCounts(ctx context.Context) ([]MethodCount, error) {
	return []MethodCount{{DiscMethod: "Transit", Count: 2}}, nil
}

func (s *stubStore) Methods(ctx context.Context, includeDeleted bool, substring string) ([]string, error) {
	return []string{"Radial Velocity", "Transit"}, nil
}

func (s *stubStore) Stats(ctx context.Context, method string) (*Stats, error) {
	return &Stats{Count: len(s.planets)}, nil
}

func (s *stubStore) Timeline(ctx context.Context, minYear, maxYear *int, includeDeleted bool) ([]TimelinePoint, error) {
	return []TimelinePoint{{DiscYear: 2009, Count: 1}}, nil
}

func (s *stubStore) ListDeleted(ctx context.Context, limit, offset int) ([]DeletedPlanet, error) {
	var out []DeletedPlanet
	for _, p := range s.planets {
		if p.IsDeleted {
			out = append(out, DeletedPlanet{ID: p.ID, Name: p.Name, DeletedAt: p.DeletedAt})
		}
	}
	return out, nil
}

func (s *stubStore) TeffValues(ctx context.Context) ([]float64, error) {
	var out []float64
	for _, p := range s.planets {
		out = append(out, p.StarTeff)
	}
	return out, nil
}

func (s *stubStore) InsertChangeLog(ctx context.Context, planetID int, action string, changes []ChangeEntry) error {
	if s.logErr != nil {
		return s.logErr
	}
	s.changeLogs = append(s.changeLogs, action)
	s.loggedEntries = append(s.loggedEntries, changes)
	return nil
}

func (s *stubStore) ChangeLogs(ctx context.Context, planetID int) ([]ChangeLog, error) {
	return []ChangeLog{{ID: 1, PlanetID: planetID, Action: ActionCreate}}, nil
}

func testPlanet(id int, name string) *Planet {
	return &Planet{
		ID:         id,
		Name:       name,
		DiscMethod: "Transit",
		DiscYear:   2011,
		OrbPeriod:  289.9,
		Radius:     2.4,
		Mass:       9.1,
		StarTeff:   5518,
		StarRadius: 0.98,
		StarMass:   0.97,
	}
}

func testService(store Store) *Service {
	return NewService(store, slog.Default())
}

func TestNormalizeMethod(t *testing.T) {
	cases := map[string]string{
		"radial velocity":    "Radial Velocity",
		"TRANSIT":            "Transit",
		"  transit  timing ": "Transit Timing",
		"transit":            "Transit",
		"":                   "",
		"   ":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeMethod(in), "input %q", in)
	}
}

func TestServiceListValidatesFilter(t *testing.T) {
	svc := testService(newStubStore())

	_, err := svc.List(context.Background(), Filter{SortBy: "password"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
}

func TestServiceListAppliesDefaults(t *testing.T) {
	svc := testService(newStubStore(testPlanet(1, "Kepler-22b")))

	result, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, result.Limit)
	assert.Equal(t, 0, result.Offset)
	assert.Equal(t, 1, result.Total)
	assert.Len(t, result.Items, 1)
}

func TestServiceGetHidesSoftDeleted(t *testing.T) {
	deleted := testPlanet(2, "HD 209458 b")
	deleted.IsDeleted = true
	svc := testService(newStubStore(testPlanet(1, "Kepler-22b"), deleted))

	got, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Kepler-22b", got.Name)

	_, err = svc.Get(context.Background(), 2)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.GetType(err))

	_, err = svc.Get(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.GetType(err))
}

func TestServiceCreateNormalizesAndLogs(t *testing.T) {
	store := newStubStore()
	svc := testService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		Name:       "  Kepler-22b  ",
		DiscMethod: "transit",
		DiscYear:   2011,
		OrbPeriod:  289.9,
		Radius:     2.4,
		Mass:       9.1,
		StarTeff:   5518,
		StarRadius: 0.98,
		StarMass:   0.97,
	})
	require.NoError(t, err)

	assert.Equal(t, "Kepler-22b", created.Name)
	assert.Equal(t, "Transit", created.DiscMethod)
	assert.Equal(t, []string{ActionCreate}, store.changeLogs)

	// The create entry records every stored field, matching what an
	// update diff could later touch.
	require.Len(t, store.loggedEntries, 1)
	var fields []string
	for _, entry := range store.loggedEntries[0] {
		assert.Nil(t, entry.Before)
		fields = append(fields, entry.Field)
	}
	assert.ElementsMatch(t, []string{
		"name", "disc_method", "disc_year",
		"orbperd", "rade", "masse", "st_teff", "st_rad", "st_mass",
	}, fields)
}

func TestServiceCreateConflictOnExistingName(t *testing.T) {
	svc := testService(newStubStore(testPlanet(1, "Kepler-22b")))

	_, err := svc.Create(context.Background(), CreateRequest{
		Name:       "Kepler-22b",
		DiscMethod: "Transit",
		DiscYear:   2011,
		OrbPeriod:  289.9,
		Radius:     2.4,
		Mass:       9.1,
		StarTeff:   5518,
		StarRadius: 0.98,
		StarMass:   0.97,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetType(err))
}

func TestServiceCreateSurvivesChangeLogFailure(t *testing.T) {
	store := newStubStore()
	store.logErr = assert.AnError
	svc := testService(store)

	created, err := svc.Create(context.Background(), CreateRequest{
		Name:       "TOI-700 d",
		DiscMethod: "Transit",
		DiscYear:   2020,
		OrbPeriod:  37.4,
		Radius:     1.1,
		Mass:       1.7,
		StarTeff:   3480,
		StarRadius: 0.42,
		StarMass:   0.41,
	})
	require.NoError(t, err)
	assert.NotNil(t, created)
}

func TestServiceUpdateEmptyPayload(t *testing.T) {
	svc := testService(newStubStore(testPlanet(1, "Kepler-22b")))

	_, err := svc.Update(context.Background(), 1, UpdateRequest{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
}

func TestServiceUpdateSoftDeletedIsNotFound(t *testing.T) {
	deleted := testPlanet(1, "Kepler-22b")
	deleted.IsDeleted = true
	svc := testService(newStubStore(deleted))

	year := 2012
	_, err := svc.Update(context.Background(), 1, UpdateRequest{DiscYear: &year})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.GetType(err))
}

func TestServiceUpdateNormalizesFields(t *testing.T) {
	store := newStubStore(testPlanet(1, "Kepler-22b"))
	svc := testService(store)

	name := "  Kepler-22 b  "
	method := "radial velocity"
	updated, err := svc.Update(context.Background(), 1, UpdateRequest{Name: &name, DiscMethod: &method})
	require.NoError(t, err)

	assert.Equal(t, "Kepler-22 b", updated.Name)
	assert.Equal(t, "Radial Velocity", updated.DiscMethod)
	assert.Equal(t, []string{ActionUpdate}, store.changeLogs)
}

func TestServiceUpdateNoChangeSkipsChangeLog(t *testing.T) {
	store := newStubStore(testPlanet(1, "Kepler-22b"))
	svc := testService(store)

	method := "Transit"
	_, err := svc.Update(context.Background(), 1, UpdateRequest{DiscMethod: &method})
	require.NoError(t, err)
	assert.Empty(t, store.changeLogs)
}

func TestServiceSoftDelete(t *testing.T) {
	store := newStubStore(testPlanet(1, "Kepler-22b"))
	svc := testService(store)

	require.NoError(t, svc.SoftDelete(context.Background(), 1))
	assert.Equal(t, []int{1}, store.softDels)
	assert.Equal(t, []string{ActionSoftDelete}, store.changeLogs)

	// A second delete is indistinguishable from deleting a missing row.
	err := svc.SoftDelete(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.GetType(err))

	err = svc.SoftDelete(context.Background(), 42)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.GetType(err))
}

func TestServiceRestore(t *testing.T) {
	deleted := testPlanet(1, "Kepler-22b")
	deleted.IsDeleted = true
	store := newStubStore(deleted)
	svc := testService(store)

	restored, err := svc.Restore(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)
	assert.Equal(t, []string{ActionRestore}, store.changeLogs)
}

func TestServiceRestoreActiveIsConflict(t *testing.T) {
	svc := testService(newStubStore(testPlanet(1, "Kepler-22b")))

	_, err := svc.Restore(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetType(err))
}

func TestServiceRestoreMissingIsNotFound(t *testing.T) {
	svc := testService(newStubStore())

	_, err := svc.Restore(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.GetType(err))
}

func TestServiceHardDeleteRequiresConfirm(t *testing.T) {
	deleted := testPlanet(1, "Kepler-22b")
	deleted.IsDeleted = true
	store := newStubStore(deleted)
	svc := testService(store)

	err := svc.HardDelete(context.Background(), 1, false)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
	assert.Empty(t, store.hardDels)

	require.NoError(t, svc.HardDelete(context.Background(), 1, true))
	assert.Equal(t, []int{1}, store.hardDels)
}

func TestServiceHardDeleteActiveIsConflict(t *testing.T) {
	svc := testService(newStubStore(testPlanet(1, "Kepler-22b")))

	err := svc.HardDelete(context.Background(), 1, true)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConflict, apperrors.GetType(err))
}

func TestServiceDeleteAllRequiresConfirm(t *testing.T) {
	store := newStubStore(testPlanet(1, "Kepler-22b"))
	svc := testService(store)

	err := svc.DeleteAll(context.Background(), false)
	require.Error(t, err)
	assert.False(t, store.truncated)

	require.NoError(t, svc.DeleteAll(context.Background(), true))
	assert.True(t, store.truncated)
}

func TestServiceMethodStats(t *testing.T) {
	svc := testService(newStubStore(testPlanet(1, "Kepler-22b")))

	stats, err := svc.MethodStats(context.Background(), "transit")
	require.NoError(t, err)
	assert.Equal(t, "Transit", stats.DiscMethod)

	_, err = svc.MethodStats(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
}

func TestServiceTimelineValidatesRange(t *testing.T) {
	svc := testService(newStubStore())

	_, err := svc.Timeline(context.Background(), intPtr(2020), intPtr(2000), false)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.GetType(err))
}

func TestServiceListDeletedBounds(t *testing.T) {
	svc := testService(newStubStore())

	_, err := svc.ListDeleted(context.Background(), MaxLimit+1, 0)
	require.Error(t, err)

	_, err = svc.ListDeleted(context.Background(), 0, -1)
	require.Error(t, err)

	items, err := svc.ListDeleted(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestServiceChangesRequiresRow(t *testing.T) {
	svc := testService(newStubStore(testPlanet(1, "Kepler-22b")))

	logs, err := svc.Changes(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = svc.Changes(context.Background(), 404)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, apperrors.GetType(err))
}

func TestDiff(t *testing.T) {
	before := testPlanet(1, "Kepler-22b")
	after := *before
	after.DiscYear = 2012
	after.Radius = 2.5

	changes := diff(before, &after)
	require.Len(t, changes, 2)
	assert.Equal(t, "disc_year", changes[0].Field)
	assert.Equal(t, "rade", changes[1].Field)
}
