package ortho

import "errors"

var (
	// ErrCorruptConstraint is returned when the DOF map violates its
	// invariants: a missing entry, a conditional axis with no dependencies,
	// or a dependency on a segment that does not exist. It aborts the
	// current repair.
	ErrCorruptConstraint = errors.New("corrupt constraint graph")

	// ErrCorruptStrategy is returned when a strategy or plan carries an
	// operation or command the engine does not know how to evaluate.
	ErrCorruptStrategy = errors.New("corrupt strategy")

	// ErrVariationOutOfRange is returned when a variation index is outside
	// the range produced by [TreeStrategy.GeneratePlans].
	ErrVariationOutOfRange = errors.New("variation index out of range")

	// ErrPlansNotGenerated is returned by [TreeStrategy] methods called
	// before [TreeStrategy.GeneratePlans].
	ErrPlansNotGenerated = errors.New("plans not generated")

	// ErrUnknownSegment is returned when the segment to repair is not in
	// the tree.
	ErrUnknownSegment = errors.New("unknown segment")
)
