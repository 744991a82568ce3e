package assets

import (
	"errors"
	"log/slog"
	"net/http"
)

// Handler serves signed assets. It expects to be mounted so that the path
// value "path" holds the asset path, e.g. "GET /assets/{path...}".
func (s *Signer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.PathValue("path")
		q := r.URL.Query()

		full, err := s.Verify(p, q.Get("exp"), q.Get("sig"))
		switch {
		case err == nil:
		case errors.Is(err, ErrExpired):
			http.Error(w, "link expired", http.StatusGone)
			return
		case errors.Is(err, ErrBadPath):
			http.Error(w, "not found", http.StatusNotFound)
			return
		default:
			slog.Debug("assets: rejected request", "path", p, "error", err)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		w.Header().Set("Cache-Control", "private, max-age=300")
		http.ServeFile(w, r, full)
	})
}
