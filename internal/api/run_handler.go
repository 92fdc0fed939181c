package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/conflictsuite/internal/domain"
	"github.com/shaiso/conflictsuite/internal/repo"
)

// ListRuns возвращает список прогонов с фильтрацией.
// GET /api/v1/runs?status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		Unavailable(w, "results store is not configured")
		return
	}

	filter := repo.RunFilter{Limit: 50}

	// Парсим query параметры
	if status := r.URL.Query().Get("status"); status != "" {
		st := domain.RunStatus(status)
		if st != domain.RunStatusRunning && !st.IsTerminal() {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = st
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	runs, err := h.store.ListRuns(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// GetRun возвращает прогон по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		Unavailable(w, "results store is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// ListRunOutcomes возвращает результаты правил прогона.
// GET /api/v1/runs/{id}/outcomes
func (h *Handler) ListRunOutcomes(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		Unavailable(w, "results store is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	// Проверяем, что прогон существует
	_, err = h.store.GetRun(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	outcomes, err := h.store.ListOutcomes(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]OutcomeResponse, len(outcomes))
	for i, o := range outcomes {
		result[i] = OutcomeFromDomain(o)
	}

	List(w, result, len(result))
}
