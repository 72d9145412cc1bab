package status

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"example.com/stream_viewer/client"
	"example.com/stream_viewer/pkg/history"
)

// Source reports the connection the viewer is rendering
type Source interface {
	State() client.State
	StreamURL() string
}

// Elements exposes the current text of every display element
type Elements interface {
	Snapshot() map[string]string
}

type Response struct {
	ID        string            `json:"id"`
	State     string            `json:"state"`
	StreamURL string            `json:"stream_url"`
	Elements  map[string]string `json:"elements"`
}

// NewRouter builds the status API for one viewer
func NewRouter(id string, src Source, elements Elements, hist *history.Store) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Response{
			ID:        id,
			State:     src.State().String(),
			StreamURL: src.StreamURL(),
			Elements:  elements.Snapshot(),
		})
	})

	r.Get("/history", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"limit":   hist.Limit(),
			"entries": hist.List(),
		})
	})

	r.Delete("/history", func(w http.ResponseWriter, _ *http.Request) {
		hist.Clear()
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
