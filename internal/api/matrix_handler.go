package api

import (
	"net/http"
)

// Health — проверка живости.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetMatrix возвращает активную матрицу конфликтов.
// GET /api/v1/matrix
func (h *Handler) GetMatrix(w http.ResponseWriter, _ *http.Request) {
	if h.suite == nil {
		NotFound(w, "no conflict matrix loaded")
		return
	}
	Success(w, MatrixFromSuite(h.suite))
}

// GetLive возвращает прогресс прогона, идущего в этом процессе.
// GET /api/v1/live
func (h *Handler) GetLive(w http.ResponseWriter, _ *http.Request) {
	if h.live == nil {
		Unavailable(w, "no live runner in this process")
		return
	}

	state := h.live.State()
	if state == nil {
		NotFound(w, "no run started yet")
		return
	}

	Success(w, LiveResponse{
		RunID:     state.Run.ID,
		StartedAt: state.Run.StartedAt,
		Complete:  state.IsComplete(),
		Stats:     state.Stats(),
	})
}
