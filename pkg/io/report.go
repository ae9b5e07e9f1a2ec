package io

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/matzehuels/orthofix/pkg/linktree"
	"github.com/matzehuels/orthofix/pkg/ortho"
)

// =============================================================================
// Reports - Repair Results
// =============================================================================

// Report is the serialized result of a repair or sweep of one link. It is
// what the server returns and what the cache stores.
type Report struct {
	RunID  string        `json:"run_id,omitempty"`
	Link   string        `json:"link"`
	Mode   string        `json:"mode"`
	Repair *RepairReport `json:"repair,omitempty"`
	Sweep  *SweepReport  `json:"sweep,omitempty"`
	Tree   Link          `json:"tree"`
}

// RepairReport describes the repair of one segment.
type RepairReport struct {
	Segment     linktree.SegmentID                          `json:"segment"`
	Outcome     ortho.Outcome                               `json:"outcome"`
	Phase       string                                      `json:"phase"`
	NewSegments []linktree.SegmentID                        `json:"new_segments,omitempty"`
	Splits      map[linktree.SegmentID][]linktree.SegmentID `json:"splits,omitempty"`
	Winner      *CandidateReport                            `json:"winner,omitempty"`
	Stats       ortho.Stats                                 `json:"stats"`
	DurationMS  float64                                     `json:"duration_ms"`
}

// SweepReport describes a whole-link sweep.
type SweepReport struct {
	Results       []RepairReport                              `json:"results"`
	Repaired      []linktree.SegmentID                        `json:"repaired"`
	NotRepairable []linktree.SegmentID                        `json:"not_repairable"`
	NewSegments   []linktree.SegmentID                        `json:"new_segments"`
	Remap         map[linktree.SegmentID][]linktree.SegmentID `json:"remap,omitempty"`
}

// CandidateReport describes one ranked candidate.
type CandidateReport struct {
	Strategy          string  `json:"strategy"`
	Variation         int     `json:"variation"`
	NonOrthogonalArea float64 `json:"non_orthogonal_area"`
	SplitCount        int     `json:"split_count"`
	Displacement      float64 `json:"displacement"`
}

// FromCandidate converts a ranked candidate.
func FromCandidate(c ortho.Candidate) CandidateReport {
	return CandidateReport{
		Strategy:          c.Strategy.String(),
		Variation:         c.Variation,
		NonOrthogonalArea: c.Ranking.NonOrthogonalArea,
		SplitCount:        c.Ranking.SplitCount,
		Displacement:      c.Ranking.Displacement,
	}
}

// FromRepairResult converts the result of [ortho.Engine.Repair].
func FromRepairResult(r *ortho.Result) *RepairReport {
	out := &RepairReport{
		Segment:     r.Segment,
		Outcome:     r.Outcome,
		Phase:       r.Phase.String(),
		NewSegments: slices.Clone(r.NewSegments),
		Stats:       r.Stats,
		DurationMS:  float64(r.Duration.Microseconds()) / 1000,
	}
	if len(r.Splits) > 0 {
		out.Splits = make(map[linktree.SegmentID][]linktree.SegmentID, len(r.Splits))
		for id, s := range r.Splits {
			out.Splits[id] = s.Fragments()
		}
	}
	if r.Winner != nil {
		w := FromCandidate(*r.Winner)
		out.Winner = &w
	}
	return out
}

// FromSweepResult converts the result of [ortho.Engine.Sweep].
func FromSweepResult(r *ortho.SweepResult) *SweepReport {
	out := &SweepReport{
		Results:       make([]RepairReport, 0, len(r.Results)),
		Repaired:      nonNil(r.Repaired),
		NotRepairable: nonNil(r.NotRepairable),
		NewSegments:   nonNil(r.NewSegments),
		Remap:         r.Remap,
	}
	for _, res := range r.Results {
		out.Results = append(out.Results, *FromRepairResult(res))
	}
	return out
}

func nonNil(ids []linktree.SegmentID) []linktree.SegmentID {
	if ids == nil {
		return []linktree.SegmentID{}
	}
	return slices.Clone(ids)
}

// MarshalReport encodes a report as indented JSON.
func MarshalReport(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return data, nil
}

// UnmarshalReport decodes a report produced by [MarshalReport].
func UnmarshalReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// WriteReport writes r as indented JSON to w.
func WriteReport(r *Report, w io.Writer) error {
	return encode(r, w)
}
