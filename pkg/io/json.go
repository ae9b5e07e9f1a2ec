package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/orthofix/pkg/linktree"
)

// =============================================================================
// Diagram Serialization API
// =============================================================================

// ReadJSON decodes a diagram from r. Unknown fields are rejected so that
// typos in hand-written files surface early. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*linktree.Diagram, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var data Diagram
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToDiagram(data)
}

// ImportJSON reads the diagram stored at path.
func ImportJSON(path string) (*linktree.Diagram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteJSON encodes d as indented JSON. The output can be re-imported with
// [ReadJSON].
func WriteJSON(d *linktree.Diagram, w io.Writer) error {
	return encode(FromDiagram(d), w)
}

// ExportJSON writes d to a file at path.
func ExportJSON(d *linktree.Diagram, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(d, f)
}

// MarshalDiagram returns the canonical JSON encoding of d. Equal diagrams
// produce equal bytes, which makes the output suitable for hashing.
func MarshalDiagram(d *linktree.Diagram) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(d, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
