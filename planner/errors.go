package planner

import (
	"errors"
	"fmt"
)

var (
	// ErrPlanInfeasible marks plans whose memory bound cannot be met at
	// any allowed subdivision. The distributor may retry with a larger
	// budget.
	ErrPlanInfeasible = errors.New("plan infeasible")

	// ErrBadShape marks invalid block geometry declarations: reference
	// index out of range, forbidden axes, negative extents.
	ErrBadShape = errors.New("invalid block geometry")
)

// InfeasibleError names the argument that exceeds the per-node memory
// budget even at the finest allowed subdivision.
type InfeasibleError struct {
	Command  string
	Arg      string
	Required int64 // bytes per node at the finest subdivision
	Budget   int64
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("plan infeasible: command %s argument %s needs %d bytes per node, budget is %d",
		e.Command, e.Arg, e.Required, e.Budget)
}

func (e *InfeasibleError) Unwrap() error { return ErrPlanInfeasible }

// ShapeError wraps fatal geometry failures.
type ShapeError struct {
	Msg string
}

func (e *ShapeError) Error() string { return "invalid block geometry: " + e.Msg }

func (e *ShapeError) Unwrap() error { return ErrBadShape }

func shapef(format string, args ...any) error {
	return &ShapeError{Msg: fmt.Sprintf(format, args...)}
}
