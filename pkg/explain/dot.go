// Package explain renders the constraint graph of a link tree: one node per
// segment, one edge per dependency a conditional axis carries.
package explain

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/orthofix/pkg/geom"
	"github.com/matzehuels/orthofix/pkg/linktree"
	"github.com/matzehuels/orthofix/pkg/ortho"
)

// Options configures constraint graph output.
type Options struct {
	// Detailed adds the endpoint DOFs to each node label.
	Detailed bool
	// Highlight marks one segment, typically the one being repaired.
	Highlight linktree.SegmentID
}

// ToDOT converts a tree and its DOF map to Graphviz DOT. Diagonal segments
// are filled, fixed endpoints are drawn bold, and each dependency is an
// edge labelled with the endpoint and axis it constrains.
func ToDOT(t *linktree.Tree, dofs ortho.DOFMap, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	for _, s := range t.Segments() {
		label := fmtLabel(s, dofs[s.ID], opts.Detailed)
		fmt.Fprintf(&buf, "  %d [%s];\n", s.ID, strings.Join(fmtAttrs(s, label, opts), ", "))
	}

	buf.WriteString("\n")
	for _, s := range t.Segments() {
		if s.Parent != linktree.NoSegment {
			fmt.Fprintf(&buf, "  %d -> %d [style=dotted, arrowhead=none];\n", s.Parent, s.ID)
		}
	}
	for _, id := range t.IDs() {
		sd := dofs[id]
		for _, e := range linktree.Endpoints {
			p := sd.Point(e)
			for _, a := range geom.Axes {
				for _, dep := range p.Axis(a).Depends {
					fmt.Fprintf(&buf, "  %d -> %d [label=%q, color=firebrick];\n", id, dep, e.String()+"."+a.String())
				}
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(s *linktree.Segment, sd ortho.SegmentDOF, detailed bool) string {
	head := fmt.Sprintf("%d %s", s.ID, s.Kind)
	if s.Kind.IsDrop() {
		return head
	}
	head += "\n" + s.Geometry().String()
	if !detailed {
		return head
	}
	return head + "\nP0 " + sd.Start.String() + "\nP1 " + sd.End.String()
}

func fmtAttrs(s *linktree.Segment, label string, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case s.Kind.IsDrop():
		attrs = append(attrs, "shape=point", "width=0.15")
	case s.Diagonal():
		attrs = append(attrs, "fillcolor=\"#fde2e1\"")
	}
	if s.ID == opts.Highlight {
		attrs = append(attrs, "penwidth=3")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root tag so the SVG scales from the origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
