package io

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/orthofix/pkg/errors"
	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
	"github.com/matzehuels/orthofix/pkg/ortho"
)

const sample = `{
	"nodes": [
		{"id": "a", "x": -20, "y": -10, "width": 20, "height": 20, "pads": [{"x": 20, "y": 10, "dir": "east"}]},
		{"id": "b", "x": 20, "y": 40, "width": 20, "height": 20, "pads": [{"x": 10, "y": 0, "dir": "north"}]}
	],
	"links": [
		{"id": "a->b", "segments": [
			{"id": 3, "kind": "end-drop", "parent": 2, "start": {"x": 30, "y": 40}, "end": {"x": 30, "y": 40}, "end_pad": "b#0"},
			{"id": 1, "kind": "start-drop", "start": {"x": 0, "y": 0}, "end": {"x": 0, "y": 0}, "start_pad": "a#0"},
			{"id": 2, "parent": 1, "start": {"x": 0, "y": 0}, "end": {"x": 30, "y": 40}}
		]}
	]
}`

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNodes int
		wantLinks int
		wantCode  errors.Code
		wantErr   bool
	}{
		{name: "sample", input: sample, wantNodes: 2, wantLinks: 1},
		{name: "empty", input: `{"nodes": [], "links": []}`},
		{name: "malformed", input: `{invalid json}`, wantErr: true},
		{name: "unknown field", input: `{"nodes": [], "edges": []}`, wantErr: true},
		{
			name:     "bad node id",
			input:    `{"nodes": [{"id": "a#1"}], "links": []}`,
			wantErr:  true,
			wantCode: errors.ErrCodeInvalidDiagram,
		},
		{
			name:     "negative size",
			input:    `{"nodes": [{"id": "a", "width": -1}], "links": []}`,
			wantErr:  true,
			wantCode: errors.ErrCodeInvalidDiagram,
		},
		{
			name:     "empty link",
			input:    `{"nodes": [], "links": [{"id": "l", "segments": []}]}`,
			wantErr:  true,
			wantCode: errors.ErrCodeInvalidDiagram,
		},
		{
			name:    "bad direction",
			input:   `{"nodes": [{"id": "a", "pads": [{"dir": "up"}]}], "links": []}`,
			wantErr: true,
		},
		{
			name:    "missing parent",
			input:   `{"nodes": [], "links": [{"id": "l", "segments": [{"id": 2, "parent": 7, "start": {"x": 0, "y": 0}, "end": {"x": 1, "y": 1}}]}]}`,
			wantErr: true,
		},
		{
			name:    "unknown pad",
			input:   `{"nodes": [], "links": [{"id": "l", "segments": [{"id": 1, "kind": "direct", "start": {"x": 0, "y": 0}, "end": {"x": 5, "y": 5}, "start_pad": "ghost#0"}]}]}`,
			wantErr: true,
		},
		{
			name:    "bad pad reference",
			input:   `{"nodes": [], "links": [{"id": "l", "segments": [{"id": 1, "start": {"x": 0, "y": 0}, "end": {"x": 5, "y": 5}, "start_pad": "ghost"}]}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ReadJSON(strings.NewReader(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.wantCode != "" && !errors.Is(err, tt.wantCode) {
					t.Errorf("code = %v, want %v", errors.GetCode(err), tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadJSON: %v", err)
			}
			if got := len(d.Nodes()); got != tt.wantNodes {
				t.Errorf("nodes = %d, want %d", got, tt.wantNodes)
			}
			if got := len(d.Links()); got != tt.wantLinks {
				t.Errorf("links = %d, want %d", got, tt.wantLinks)
			}
		})
	}
}

func TestReadJSONSegmentOrder(t *testing.T) {
	d, err := ReadJSON(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	tr, ok := d.Link("a->b")
	if !ok {
		t.Fatal("link a->b not found")
	}
	if tr.Root() != 1 {
		t.Errorf("root = %d, want 1", tr.Root())
	}
	if got := tr.Diagonal(); !slices.Equal(got, []linktree.SegmentID{2}) {
		t.Errorf("diagonal = %v, want [2]", got)
	}
	s, _ := tr.Segment(3)
	if s.EndPad == nil || *s.EndPad != (linktree.PadRef{Node: "b"}) {
		t.Errorf("end pad = %v, want b#0", s.EndPad)
	}
	dir, ok := d.PadDirection(linktree.PadRef{Node: "a"})
	if !ok || dir != geom.East {
		t.Errorf("pad a#0 = %v, %v; want east", dir, ok)
	}
}

func TestRoundTrip(t *testing.T) {
	d, err := ReadJSON(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	first, err := MarshalDiagram(d)
	if err != nil {
		t.Fatalf("MarshalDiagram: %v", err)
	}
	again, err := ReadJSON(bytes.NewReader(first))
	if err != nil {
		t.Fatalf("ReadJSON(exported): %v", err)
	}
	second, err := MarshalDiagram(again)
	if err != nil {
		t.Fatalf("MarshalDiagram: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("round trip changed output:\n%s\n---\n%s", first, second)
	}

	var wire Diagram
	if err := json.Unmarshal(first, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ids := make([]int, 0)
	for _, s := range wire.Links[0].Segments {
		ids = append(ids, s.ID)
	}
	if !slices.Equal(ids, []int{1, 2, 3}) {
		t.Errorf("exported order = %v, want preorder [1 2 3]", ids)
	}
	if wire.Links[0].Segments[0].Kind != "start-drop" || wire.Links[0].Segments[1].Kind != "" {
		t.Errorf("kinds = %q, %q", wire.Links[0].Segments[0].Kind, wire.Links[0].Segments[1].Kind)
	}
}

func TestImportExportFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.json")
	if err := os.WriteFile(src, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	d, err := ImportJSON(src)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	dst := filepath.Join(dir, "out.json")
	if err := ExportJSON(d, dst); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if _, err := ImportJSON(dst); err != nil {
		t.Fatalf("ImportJSON(exported): %v", err)
	}
	if _, err := ImportJSON(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParsePadRef(t *testing.T) {
	tests := []struct {
		input   string
		want    linktree.PadRef
		wantErr bool
	}{
		{"a#0", linktree.PadRef{Node: "a", Pad: 0}, false},
		{"node-7#12", linktree.PadRef{Node: "node-7", Pad: 12}, false},
		{"a", linktree.PadRef{}, true},
		{"#1", linktree.PadRef{}, true},
		{"a#x", linktree.PadRef{}, true},
		{"a#-1", linktree.PadRef{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePadRef(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePadRef(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePadRef(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	res := &ortho.Result{
		Segment:     2,
		Outcome:     ortho.OutcomeApplied,
		Phase:       ortho.PhaseApplied,
		NewSegments: []linktree.SegmentID{4},
		Splits:      ortho.SplitTable{2: {Start: 2, End: 4}},
		Stats:       ortho.Stats{Strategies: 1, Variations: 1, Accepted: 1},
		Duration:    1500 * time.Microsecond,
	}
	rep := &Report{Link: "a->b", Mode: "repair", Repair: FromRepairResult(res)}

	data, err := MarshalReport(rep)
	if err != nil {
		t.Fatalf("MarshalReport: %v", err)
	}
	for _, want := range []string{`"outcome": "applied"`, `"phase": "APPLIED"`, `"duration_ms": 1.5`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("report missing %s:\n%s", want, data)
		}
	}

	back, err := UnmarshalReport(data)
	if err != nil {
		t.Fatalf("UnmarshalReport: %v", err)
	}
	if back.Repair.Outcome != ortho.OutcomeApplied {
		t.Errorf("outcome = %v", back.Repair.Outcome)
	}
	if got := back.Repair.Splits[2]; !slices.Equal(got, []linktree.SegmentID{2, 4}) {
		t.Errorf("splits[2] = %v, want [2 4]", got)
	}
}

func TestFromSweepResultEmpty(t *testing.T) {
	rep := FromSweepResult(&ortho.SweepResult{})
	data, err := json.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"repaired":[]`)) {
		t.Errorf("empty lists should encode as [], got %s", data)
	}
}
