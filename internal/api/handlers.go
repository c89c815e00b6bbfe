package api

import (
	"errors"
	"net/http"

	"github.com/moneymap/moneymap/internal/contracts"
	"github.com/moneymap/moneymap/internal/pipeline"
	"github.com/moneymap/moneymap/internal/store"
	"github.com/moneymap/moneymap/pkg/database"
	"github.com/moneymap/moneymap/pkg/logger"
)

// Handler serves the discovery API endpoints.
type Handler struct {
	repo   *store.Repository
	runner *pipeline.Runner
	db     *database.DB
	logger *logger.Logger
}

// NewHandler creates an API handler.
func NewHandler(repo *store.Repository, runner *pipeline.Runner, db *database.DB, log *logger.Logger) *Handler {
	return &Handler{
		repo:   repo,
		runner: runner,
		db:     db,
		logger: log,
	}
}

// Health reports service and database health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.db.HealthCheck(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"service":  "moneymap",
		"database": status,
	})
}

// LatestPackage returns the most recent story package.
func (h *Handler) LatestPackage(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.repo.LatestStoryPackage(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest package")
		writeError(w, http.StatusInternalServerError, "failed to load latest package")
		return
	}
	if pkg == nil {
		writeError(w, http.StatusNotFound, "no story package yet")
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

// LatestRanking returns the diagnostic ranking slice of the most recent
// package.
func (h *Handler) LatestRanking(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.repo.LatestStoryPackage(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest package")
		writeError(w, http.StatusInternalServerError, "failed to load latest ranking")
		return
	}
	if pkg == nil {
		writeError(w, http.StatusNotFound, "no story package yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"episode": pkg.Episode,
		"run_at":  pkg.RunAt,
		"ranked":  pkg.Ranked,
	})
}

// TriggerRun starts a discovery run and returns the outcome.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.runner.Run(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, contracts.ErrRunInProgress):
			writeError(w, http.StatusConflict, err.Error())
		case contracts.IsPackageIncomplete(err):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.WithError(err).Error("Pipeline run failed")
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}
