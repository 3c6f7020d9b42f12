package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scmmishra/linkpulse/internal/qr"
	"github.com/scmmishra/linkpulse/internal/shortener"
)

type LinkHandler struct {
	Svc    *shortener.Service
	Logger *zap.Logger
}

func (h *LinkHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		h.Logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	jsonError(w, msg, code)
}

func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shortener.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	req.OwnerID = ownerFrom(r.Context())

	res, err := h.Svc.CreateLink(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	links, err := h.Svc.ListOwnerLinks(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links, "total": len(links)})
}

func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteLink(r.Context(), chi.URLParam(r, "code"), ownerFrom(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LinkHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Svc.GetDashboard(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *LinkHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.GetLinkStats(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *LinkHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	code := strings.ToLower(chi.URLParam(r, "code"))
	style := qr.Style{
		Circle: r.URL.Query().Get("shape") == "circle",
		FgHex:  r.URL.Query().Get("fg"),
	}

	png, err := h.Svc.QRCode(r.Context(), code, style)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if r.URL.Query().Get("dl") == "1" {
		w.Header().Set("Content-Disposition", "attachment; filename=\""+code+"-qr.png\"")
	}
	w.Write(png)
}
