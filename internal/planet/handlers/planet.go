package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"exoplanets-server/internal/planet"
	"exoplanets-server/internal/shared/config"
	"exoplanets-server/internal/shared/errors"
	"exoplanets-server/internal/shared/response"
)

var validate = validator.New()

type PlanetHandler struct {
	service *planet.Service
}

func NewPlanetHandler(service *planet.Service) *PlanetHandler {
	return &PlanetHandler{service: service}
}

func (h *PlanetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_planet")

	var req planet.CreateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if err := validate.Struct(req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid planet payload", err))
		return
	}

	created, err := h.service.Create(ctx, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	location := fmt.Sprintf("%s/planets/%d", config.GlobalConfig.Server.URL, created.ID)
	w.Header().Set("Location", location)
	response.Success(w, http.StatusCreated, created)
}

func (h *PlanetHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_planets")

	filter, err := filterFromQuery(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.List(ctx, *filter)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}

func (h *PlanetHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_planet")

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	found, err := h.service.Get(ctx, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, found)
}

func (h *PlanetHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_planet_by_name")

	name := r.PathValue("name")
	if name == "" {
		response.Error(w, r, logger, errors.Validation("planet name is required"))
		return
	}

	found, err := h.service.GetByName(ctx, name)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, found)
}

func (h *PlanetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "update_planet")

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req planet.UpdateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid request body", err))
		return
	}

	if err := validate.Struct(req); err != nil {
		response.Error(w, r, logger, errors.WrapValidation("invalid update payload", err))
		return
	}

	updated, err := h.service.Update(ctx, id, req)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, updated)
}

func (h *PlanetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "delete_planet")

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if err := h.service.SoftDelete(ctx, id); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PlanetHandler) Restore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "restore_planet")

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if _, err := h.service.Restore(ctx, id); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": fmt.Sprintf("Planet %d restored.", id),
	})
}

func (h *PlanetHandler) Count(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "count_planets")

	result, err := h.service.Count(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}

func (h *PlanetHandler) MethodCounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "method_counts")

	counts, err := h.service.MethodCounts(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, counts)
}

func (h *PlanetHandler) Methods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_methods")

	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	substring := r.URL.Query().Get("q")

	methods, err := h.service.Methods(ctx, includeDeleted, substring)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, methods)
}

func (h *PlanetHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "planet_stats")

	stats, err := h.service.Stats(ctx)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, stats)
}

func (h *PlanetHandler) MethodStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "method_stats")

	method := r.PathValue("method")

	stats, err := h.service.MethodStats(ctx, method)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, stats)
}

func (h *PlanetHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "discovery_timeline")

	minYear, err := queryInt(r, "min_year")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	maxYear, err := queryInt(r, "max_year")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"

	points, err := h.service.Timeline(ctx, minYear, maxYear, includeDeleted)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, points)
}

func (h *PlanetHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "list_deleted_planets")

	limit, offset, err := pagination(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	deleted, err := h.service.ListDeleted(ctx, limit, offset)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, deleted)
}

func (h *PlanetHandler) Changes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "planet_changes")

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	logs, err := h.service.Changes(ctx, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, logs)
}

func (h *PlanetHandler) HardDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "hard_delete_planet")

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	confirm := r.URL.Query().Get("confirm") == "true"
	if err := h.service.HardDelete(ctx, id, confirm); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PlanetHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "delete_all_planets")

	confirm := r.URL.Query().Get("confirm") == "true"
	if err := h.service.DeleteAll(ctx, confirm); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "All planets deleted, IDs reset.",
	})
}

func pathID(r *http.Request) (int, error) {
	idStr := r.PathValue("id")
	if idStr == "" {
		return 0, errors.Validation("planet ID is required")
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.WrapValidation("invalid planet ID format", err)
	}

	return id, nil
}

func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.Validationf("invalid %s: %q", name, raw)
	}

	return &value, nil
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.Validationf("invalid %s: %q", name, raw)
	}

	return &value, nil
}

func pagination(r *http.Request) (limit, offset int, err error) {
	limitPtr, err := queryInt(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	offsetPtr, err := queryInt(r, "offset")
	if err != nil {
		return 0, 0, err
	}

	if limitPtr != nil {
		limit = *limitPtr
	}
	if offsetPtr != nil {
		offset = *offsetPtr
	}
	return limit, offset, nil
}

// filterFromQuery assembles the listing filter from query parameters.
// Range validation happens in the service so listing and timeline share
// one set of rules.
func filterFromQuery(r *http.Request) (*planet.Filter, error) {
	filter := planet.Filter{
		Name:           r.URL.Query().Get("name"),
		Method:         r.URL.Query().Get("method"),
		IncludeDeleted: r.URL.Query().Get("include_deleted") == "true",
		SortBy:         r.URL.Query().Get("sort_by"),
		SortOrder:      r.URL.Query().Get("sort_order"),
	}

	limit, offset, err := pagination(r)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit
	filter.Offset = offset

	if filter.MinYear, err = queryInt(r, "min_year"); err != nil {
		return nil, err
	}
	if filter.MaxYear, err = queryInt(r, "max_year"); err != nil {
		return nil, err
	}

	floatParams := []struct {
		name string
		dest **float64
	}{
		{"min_orbperd", &filter.MinOrbPeriod},
		{"max_orbperd", &filter.MaxOrbPeriod},
		{"min_rade", &filter.MinRadius},
		{"max_rade", &filter.MaxRadius},
		{"min_masse", &filter.MinMass},
		{"max_masse", &filter.MaxMass},
		{"min_st_teff", &filter.MinStarTeff},
		{"max_st_teff", &filter.MaxStarTeff},
		{"min_st_rad", &filter.MinStarRadius},
		{"max_st_rad", &filter.MaxStarRadius},
		{"min_st_mass", &filter.MinStarMass},
		{"max_st_mass", &filter.MaxStarMass},
	}

	for _, p := range floatParams {
		value, err := queryFloat(r, p.name)
		if err != nil {
			return nil, err
		}
		*p.dest = value
	}

	return &filter, nil
}
