package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scmmishra/linkpulse/internal/models"
	"github.com/scmmishra/linkpulse/internal/shortener"
)

type RedirectHandler struct {
	Svc    *shortener.Service
	Logger *zap.Logger
}

// ServeHTTP handles GET and POST /{code}. A password travels as the
// "password" query or form value.
func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		http.NotFound(w, r)
		return
	}

	password := r.FormValue("password")
	res, err := h.Svc.ResolveForVisit(r.Context(), code, password, models.Visitor{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	})
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusInternalServerError {
			h.Logger.Error("resolve failed", zap.String("code", code), zap.Error(err))
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(msg))
		return
	}

	http.Redirect(w, r, res.TargetURL, http.StatusFound)
}
