package contracts

import (
	"fmt"

	"voxdist/voxel"
)

// NoAxis is returned by Direction2 accessors when a command forbids
// splitting along a second axis.
const NoAxis = -1

// Command is the distributable-command contract: a capability record the
// block planner consults to decide how a command may be split into
// independent blocks. Every field except Name and Run is optional; a nil
// field means the default declaration. All declaration funcs must be pure
// in the argument list.
type Command struct {
	Name string

	// Run executes the command over one work item. The blocks carry the
	// loaded input buffers; outputs are persisted by the caller from the
	// same buffers afterwards. The returned strings are the per-item
	// textual results aggregated by the planner. Commands that declare
	// Delayable must tolerate their output being discarded.
	Run func(blocks []BlockArg) ([]string, error)

	// ExtraMemory returns the factor e such that the worker's peak
	// working set is bounded by sum(blockVoxels*voxelBytes)*(1+e) over
	// all arguments. Default 0.
	ExtraMemory func(args []Arg) float64

	// CorrespondingBlock maps a reference block to the block descriptor
	// of argument argIndex. The default requires the argument to be
	// partitioned identically to the reference; commands that change
	// image size or re-map coordinates must provide their own mapping.
	CorrespondingBlock func(args []Arg, argIndex int, ref Block) (Block, error)

	// Job rates the expected runtime for queue selection. Default Normal.
	Job func(args []Arg) JobType

	// PreferredSubdivisions is a lower bound on the number of splits
	// along the primary direction. Default 1.
	PreferredSubdivisions func(args []Arg) int

	// Direction1 is the primary axis the planner may slice (0..2).
	// Default 2 (z).
	Direction1 func(args []Arg) int

	// Direction2 is the secondary axis, or (_, false) to forbid a second
	// split. Default none.
	Direction2 func(args []Arg) (int, bool)

	// Margin is the per-axis halo, in reference-image coordinates, each
	// block must read beyond its write region on every side. Default 0.
	Margin func(args []Arg) voxel.Vec3

	// RefIndex names the argument whose extent governs the subdivision,
	// or (_, false) for the default: first writing argument, else first
	// reading argument.
	RefIndex func(args []Arg) (int, bool)

	// Delayable declares fusion eligibility: the command works with any
	// margin at least as large as its declared margin, and its string
	// output may be discarded. Default false.
	Delayable func(args []Arg) bool
}

// ExtraMemoryFactor applies the ExtraMemory declaration with its default.
func (c *Command) ExtraMemoryFactor(args []Arg) float64 {
	if c.ExtraMemory == nil {
		return 0
	}
	return c.ExtraMemory(args)
}

// JobTypeFor applies the Job declaration with its default.
func (c *Command) JobTypeFor(args []Arg) JobType {
	if c.Job == nil {
		return Normal
	}
	return c.Job(args)
}

// Subdivisions applies the PreferredSubdivisions declaration, never
// returning less than 1.
func (c *Command) Subdivisions(args []Arg) int {
	if c.PreferredSubdivisions == nil {
		return 1
	}
	return max(1, c.PreferredSubdivisions(args))
}

// Dir1 applies the Direction1 declaration with its default (z).
func (c *Command) Dir1(args []Arg) int {
	if c.Direction1 == nil {
		return 2
	}
	return c.Direction1(args)
}

// Dir2 applies the Direction2 declaration with its default (none).
func (c *Command) Dir2(args []Arg) (int, bool) {
	if c.Direction2 == nil {
		return NoAxis, false
	}
	return c.Direction2(args)
}

// MarginFor applies the Margin declaration with its default.
func (c *Command) MarginFor(args []Arg) voxel.Vec3 {
	if c.Margin == nil {
		return voxel.Vec3{}
	}
	return c.Margin(args)
}

// CanDelay applies the Delayable declaration with its default.
func (c *Command) CanDelay(args []Arg) bool {
	return c.Delayable != nil && c.Delayable(args)
}

// ReferenceIndex resolves the reference argument: the declared index when
// given, otherwise the first writing argument, otherwise the first reading
// argument.
func (c *Command) ReferenceIndex(args []Arg) (int, error) {
	if c.RefIndex != nil {
		if idx, ok := c.RefIndex(args); ok {
			if idx < 0 || idx >= len(args) {
				return 0, fmt.Errorf("command %s: reference index %d out of range for %d arguments",
					c.Name, idx, len(args))
			}
			return idx, nil
		}
	}
	for i, a := range args {
		if a.Role.Writes() {
			return i, nil
		}
	}
	for i, a := range args {
		if a.Role.Reads() {
			return i, nil
		}
	}
	return 0, fmt.Errorf("command %s: no image arguments", c.Name)
}

// BlockFor resolves the block descriptor of argument argIndex for the given
// reference block. The default mapping requires the argument extent to
// equal the reference extent and partitions it identically.
func (c *Command) BlockFor(args []Arg, argIndex int, ref Block) (Block, error) {
	if c.CorrespondingBlock != nil {
		return c.CorrespondingBlock(args, argIndex, ref)
	}
	refIdx, err := c.ReferenceIndex(args)
	if err != nil {
		return Block{}, err
	}
	if args[argIndex].Dims != args[refIdx].Dims {
		return Block{}, fmt.Errorf(
			"command %s: argument %s has extent %v but the default block mapping requires the reference extent %v",
			c.Name, args[argIndex].Name, args[argIndex].Dims, args[refIdx].Dims)
	}
	return ref, nil
}
