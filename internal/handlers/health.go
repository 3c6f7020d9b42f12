package handlers

import (
	"context"
	"net/http"
	"time"
)

// StorageStatus is implemented by store.Coordinator.
type StorageStatus interface {
	Mode() string
	Degraded() bool
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Storage StorageStatus
}

type healthResponse struct {
	Status   string `json:"status"`
	Storage  string `json:"storage"`
	Degraded bool   `json:"degraded"`
	Error    string `json:"error,omitempty"`
}

// ServeHTTP reports 200 while requests can be served, including from the
// memory fallback, and 503 only when the active backend fails its ping.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Storage:  h.Storage.Mode(),
		Degraded: h.Storage.Degraded(),
	}
	if resp.Degraded {
		resp.Status = "degraded"
	}
	if err := h.Storage.Ping(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
