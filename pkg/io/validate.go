package io

import (
	"fmt"

	"github.com/matzehuels/orthofix/pkg/errors"
	"github.com/matzehuels/orthofix/pkg/geom"
)

// MaxSegmentsPerLink bounds the size of a single link tree in a request.
const MaxSegmentsPerLink = 10000

// Validate checks ids, sizes and coordinates before any tree is built.
// Structural rules (parents, attachment, pads) are checked by [ToDiagram].
// Errors carry [errors.ErrCodeInvalidDiagram].
func (d Diagram) Validate() error {
	for _, n := range d.Nodes {
		if err := errors.ValidateID("node", n.ID); err != nil {
			return err
		}
		if err := validatePoint("node "+n.ID, geom.Pt(n.X, n.Y)); err != nil {
			return err
		}
		if err := validatePoint("node "+n.ID+" size", geom.Pt(n.Width, n.Height)); err != nil {
			return err
		}
		if n.Width < 0 || n.Height < 0 {
			return errors.New(errors.ErrCodeInvalidDiagram, "node %s has negative size", n.ID)
		}
	}
	for _, l := range d.Links {
		if err := errors.ValidateID("link", l.ID); err != nil {
			return err
		}
		if len(l.Segments) == 0 {
			return errors.New(errors.ErrCodeInvalidDiagram, "link %s has no segments", l.ID)
		}
		if len(l.Segments) > MaxSegmentsPerLink {
			return errors.New(errors.ErrCodeInvalidDiagram, "link %s has too many segments (max %d)", l.ID, MaxSegmentsPerLink)
		}
		for _, s := range l.Segments {
			if err := validatePoint(fmt.Sprintf("link %s segment %d start", l.ID, s.ID), s.Start); err != nil {
				return err
			}
			if err := validatePoint(fmt.Sprintf("link %s segment %d end", l.ID, s.ID), s.End); err != nil {
				return err
			}
		}
	}
	return nil
}

func validatePoint(what string, p geom.Point) error {
	if err := errors.ValidateCoordinate(what+" x", p.X); err != nil {
		return err
	}
	return errors.ValidateCoordinate(what+" y", p.Y)
}
