package server

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/revenuemap/pkg/errors"
	"github.com/matzehuels/revenuemap/pkg/heatmap"
	"github.com/matzehuels/revenuemap/pkg/pipeline"
)

// parseOptions reads pipeline options from the query string:
//
//	width, height, min_partition  floats
//	top, cols, rows               integers
//	rollup, labels, refresh       booleans (labels defaults to true)
//	group_by, title               strings
func (s *Server) parseOptions(q url.Values) (pipeline.Options, error) {
	d := s.cfg.Layout
	opts := pipeline.Options{
		Width:        d.Width,
		Height:       d.Height,
		MinPartition: d.MinPartition,
		TopN:         d.TopN,
		GroupBy:      q.Get("group_by"),
		Title:        q.Get("title"),
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"width", &opts.Width},
		{"height", &opts.Height},
		{"min_partition", &opts.MinPartition},
	}
	for _, f := range floats {
		if err := parseFloat(q, f.name, f.dst); err != nil {
			return opts, err
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"top", &opts.TopN},
		{"cols", &opts.Cols},
		{"rows", &opts.Rows},
	}
	for _, i := range ints {
		if err := parseInt(q, i.name, i.dst); err != nil {
			return opts, err
		}
	}

	labels := true
	for name, dst := range map[string]*bool{"rollup": &opts.Rollup, "labels": &labels, "refresh": &opts.Refresh} {
		if err := parseBool(q, name, dst); err != nil {
			return opts, err
		}
	}
	opts.NoLabels = !labels
	return opts, nil
}

func parseFloat(q url.Values, name string, dst *float64) error {
	v := q.Get(name)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "%s: not a number: %q", name, v)
	}
	*dst = f
	return nil
}

func parseInt(q url.Values, name string, dst *int) error {
	v := q.Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "%s: not an integer: %q", name, v)
	}
	*dst = n
	return nil
}

func parseBool(q url.Values, name string, dst *bool) error {
	v := q.Get(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "%s: not a boolean: %q", name, v)
	}
	*dst = b
	return nil
}

// parseTTL reads the share lifetime from ?ttl=72h.
func (s *Server) parseTTL(q url.Values) (time.Duration, error) {
	v := q.Get("ttl")
	if v == "" {
		return s.cfg.Share.DefaultTTL, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "ttl: not a positive duration: %q", v)
	}
	return d, nil
}

// datasetFormat picks the decoder from Content-Type; a missing header
// means JSON.
func datasetFormat(r *http.Request) (heatmap.Format, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return heatmap.FormatJSON, nil
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", errors.New(errors.ErrCodeUnsupported, "malformed content type %q", ct)
	}
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return heatmap.FormatJSON, nil
	case mt == "application/yaml" || mt == "application/x-yaml" || mt == "text/yaml":
		return heatmap.FormatYAML, nil
	case mt == "application/toml":
		return heatmap.FormatTOML, nil
	default:
		return "", errors.New(errors.ErrCodeUnsupported, "unsupported content type %q", mt)
	}
}

// decodeDataset buffers the body before decoding so a body limit error
// reaches the caller as *http.MaxBytesError whatever the codec.
func decodeDataset(r *http.Request) (*heatmap.Dataset, error) {
	format, err := datasetFormat(r)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return heatmap.Decode(bytes.NewReader(body), format)
}
