package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/matzehuels/orthofix/pkg/buildinfo"
	"github.com/matzehuels/orthofix/pkg/errors"
	orthoio "github.com/matzehuels/orthofix/pkg/io"
	"github.com/matzehuels/orthofix/pkg/linktree"
	"github.com/matzehuels/orthofix/pkg/ortho"
	"github.com/matzehuels/orthofix/pkg/pipeline"
)

// request is the body of every /v1 route.
type request struct {
	pipeline.Options
	Diagram *orthoio.Diagram `json:"diagram"`
}

// runResponse is returned by /v1/repair and /v1/sweep.
type runResponse struct {
	*orthoio.Report
	CacheHit   bool    `json:"cache_hit"`
	DurationMS float64 `json:"duration_ms"`
}

// candidatesResponse is returned by /v1/candidates.
type candidatesResponse struct {
	Link       string                    `json:"link"`
	Segment    int                       `json:"segment"`
	Candidates []orthoio.CandidateReport `json:"candidates"`
	Stats      ortho.Stats               `json:"stats"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

func (s *Server) handleRun(mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, opts, err := s.decode(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		opts.Mode = mode

		ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
		defer cancel()
		res, err := s.runner.Execute(ctx, d, opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, runResponse{
			Report:     res.Report,
			CacheHit:   res.CacheHit,
			DurationMS: float64(res.Stats.Duration.Microseconds()) / 1000,
		})
	}
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	d, opts, err := s.decode(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	defer cancel()
	cands, stats, err := s.runner.Candidates(ctx, d, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := candidatesResponse{
		Link:       opts.Link,
		Segment:    opts.Segment,
		Candidates: make([]orthoio.CandidateReport, len(cands)),
		Stats:      stats,
	}
	for i, c := range cands {
		out.Candidates[i] = orthoio.FromCandidate(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// decode reads the request body and merges its options over the server
// defaults.
func (s *Server) decode(r *http.Request) (*linktree.Diagram, pipeline.Options, error) {
	req := request{Options: s.opts.Defaults}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, req.Options, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request")
	}
	if req.Diagram == nil {
		return nil, req.Options, errors.New(errors.ErrCodeInvalidInput, "diagram is required")
	}
	d, err := orthoio.ToDiagram(*req.Diagram)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeInvalidDiagram, err, "invalid diagram")
		}
		return nil, req.Options, err
	}
	req.Options.Logger = s.logger
	return d, req.Options, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
