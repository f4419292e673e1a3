package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"exoplanets-server/internal/planet"
	"exoplanets-server/internal/shared/errors"
	"exoplanets-server/internal/shared/response"
	"exoplanets-server/internal/vis"
)

type VisHandler struct {
	service *planet.Service
}

func NewVisHandler(service *planet.Service) *VisHandler {
	return &VisHandler{service: service}
}

// Discovery renders one of the discovery charts as a PNG. Responses are
// never cached.
func (h *VisHandler) Discovery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "vis_discovery")

	chart := r.URL.Query().Get("chart")

	bins, err := intParam(r, "bins", vis.DefaultBins)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if bins < vis.MinBins || bins > vis.MaxBins {
		response.Error(w, r, logger,
			errors.Validationf("bins must be between %d and %d", vis.MinBins, vis.MaxBins))
		return
	}

	sigma, err := floatParam(r, "sigma", vis.DefaultSigma)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	if sigma < 0 || sigma > vis.MaxSigma {
		response.Error(w, r, logger,
			errors.Validationf("sigma must be between 0 and %.0f", vis.MaxSigma))
		return
	}

	var png []byte
	switch chart {
	case "hist":
		values, err := h.service.TeffValues(ctx)
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		png, err = vis.RenderHistogram(values, bins, sigma)
		if err != nil {
			response.Error(w, r, logger, errors.WrapInternal("failed to render chart", err))
			return
		}

	case "year":
		points, err := h.service.Timeline(ctx, nil, nil, false)
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		png, err = vis.RenderYearBars(points)
		if err != nil {
			response.Error(w, r, logger, errors.WrapInternal("failed to render chart", err))
			return
		}

	case "method":
		counts, err := h.service.MethodCounts(ctx)
		if err != nil {
			response.Error(w, r, logger, err)
			return
		}
		png, err = vis.RenderMethodBars(counts)
		if err != nil {
			response.Error(w, r, logger, errors.WrapInternal("failed to render chart", err))
			return
		}

	default:
		response.Error(w, r, logger,
			errors.Validationf("chart must be one of hist, year, method; got %q", chart))
		return
	}

	response.PNG(w, png)
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Validationf("invalid %s: %q", name, raw)
	}
	return value, nil
}

func floatParam(r *http.Request, name string, fallback float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.Validationf("invalid %s: %q", name, raw)
	}
	return value, nil
}
