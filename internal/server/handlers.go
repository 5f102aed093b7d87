package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/revenuemap/pkg/buildinfo"
	"github.com/matzehuels/revenuemap/pkg/errors"
	"github.com/matzehuels/revenuemap/pkg/pipeline"
	"github.com/matzehuels/revenuemap/pkg/share"
	"github.com/matzehuels/revenuemap/pkg/sink"
)

var contentTypes = map[string]string{
	sink.FormatSVG:  "image/svg+xml",
	sink.FormatJSON: "application/json",
	sink.FormatText: "text/plain; charset=utf-8",
}

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

type shareResponse struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
	Dropped   []string  `json:"dropped,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	result, ok := s.execute(w, r, sink.FormatJSON)
	if !ok {
		return
	}
	s.writeArtifact(w, result, sink.FormatJSON)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(chi.URLParam(r, "format"))
	if err := errors.ValidateFormat(format, sink.Formats); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, ok := s.execute(w, r, format)
	if !ok {
		return
	}
	s.writeArtifact(w, result, format)
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	ttl, err := s.parseTTL(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, ok := s.execute(w, r)
	if !ok {
		return
	}

	sh, err := share.New(sink.NewDocument(result.Frame), ttl)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.shares.Save(r.Context(), sh); err != nil {
		s.writeError(w, r, err)
		return
	}

	url := strings.TrimSuffix(s.cfg.Server.BaseURL, "/") + "/v1/shares/" + sh.ID
	w.Header().Set("Location", url)
	s.writeJSON(w, http.StatusCreated, shareResponse{
		ID:        sh.ID,
		URL:       url,
		ExpiresAt: sh.ExpiresAt,
		Dropped:   result.Frame.Dropped,
	})
}

func (s *Server) handleGetShare(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := share.ValidateID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	sh, err := s.shares.RecordView(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sh)
}

func (s *Server) handleDeleteShare(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := share.ValidateID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.shares.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// execute decodes the dataset and runs the pipeline for formats. On failure
// it writes the error response and returns false.
func (s *Server) execute(w http.ResponseWriter, r *http.Request, formats ...string) (*pipeline.Result, bool) {
	opts, err := s.parseOptions(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if len(formats) == 0 {
		formats = []string{sink.FormatJSON}
	}
	opts.Formats = formats

	ds, err := decodeDataset(r)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	result, err := s.runner.Execute(r.Context(), ds, opts)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return result, true
}

func (s *Server) writeArtifact(w http.ResponseWriter, result *pipeline.Result, format string) {
	h := w.Header()
	h.Set("Content-Type", contentTypes[format])
	h.Set("X-Revenuemap-Tiles", strconv.Itoa(result.Stats.Tiles))
	h.Set("X-Revenuemap-Dropped", strconv.Itoa(result.Stats.Dropped))
	h.Set("X-Revenuemap-Rejected", strconv.Itoa(result.Stats.Rejected))
	h.Set("X-Revenuemap-Cache", cacheStatus(result.CacheInfo))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Artifacts[format]); err != nil {
		s.logger.Debug("write artifact", "err", err)
	}
}

func cacheStatus(ci pipeline.CacheInfo) string {
	switch {
	case ci.LayoutHit && ci.RenderHit:
		return "hit"
	case ci.LayoutHit:
		return "layout-hit"
	default:
		return "miss"
	}
}
