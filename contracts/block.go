// Package contracts holds the shared protocol between image-processing
// commands, the block planner and the storage adapters: argument roles,
// block descriptors, the distributable-command capability record and the
// distributor boundary.
package contracts

import (
	"fmt"

	"github.com/google/uuid"

	"voxdist/voxel"
)

// Role tells how a command uses one argument image during a block pass.
type Role int

const (
	Input Role = iota
	Output
	InOut
)

// Reads reports whether the worker must load this argument from storage.
func (r Role) Reads() bool { return r == Input || r == InOut }

// Writes reports whether the worker persists this argument to storage.
func (r Role) Writes() bool { return r == Output || r == InOut }

func (r Role) String() string {
	switch r {
	case Input:
		return "input"
	case Output:
		return "output"
	case InOut:
		return "inout"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// JobType rates the expected execution time of a work item so the
// distributor can pick a queue. It has no effect on correctness.
type JobType int

const (
	Fast JobType = iota
	Normal
	Slow
)

func (j JobType) String() string {
	switch j {
	case Fast:
		return "fast"
	case Slow:
		return "slow"
	}
	return "normal"
}

// Arg is one file-backed argument image of a command.
type Arg struct {
	Name  string
	Path  string
	Dims  voxel.Vec3
	DType voxel.DataType

	// PixBytes carries the voxel width for Unknown-typed images;
	// zero means DType.Bytes().
	PixBytes int

	Role Role
}

// VoxelBytes returns the voxel width of the argument in bytes.
func (a Arg) VoxelBytes() int {
	if a.PixBytes > 0 {
		return a.PixBytes
	}
	return a.DType.Bytes()
}

// NewImage allocates an in-memory buffer of the given extent matching the
// argument's voxel type.
func (a Arg) NewImage(dims voxel.Vec3) *voxel.Image {
	if a.DType == voxel.Unknown {
		return voxel.NewUnknownImage(dims, a.VoxelBytes())
	}
	return voxel.NewImage(dims, a.DType)
}

// Block describes, for one argument and one work item, what the worker
// loads and what it persists.
type Block struct {
	// ReadStart and ReadSize give the storage region the worker loads.
	// Meaningful only for arguments whose role reads.
	ReadStart, ReadSize voxel.Vec3

	// WriteFilePos is where the output slab lands in storage, WriteImPos
	// where the valid region begins inside the worker's buffer, and
	// WriteSize its extent. A zero WriteSize disables persisting this
	// argument for this work item.
	WriteFilePos, WriteImPos, WriteSize voxel.Vec3
}

// WritesOutput reports whether the block persists any voxels.
func (b Block) WritesOutput() bool { return !b.WriteSize.IsZero() }

// BlockArg is an argument materialized for one work item: the descriptor
// plus the in-memory buffer holding the loaded (or to-be-written) slab.
type BlockArg struct {
	Arg
	Block Block
	Img   *voxel.Image
}

// WorkItem is one unit of work for one worker: a command invocation over
// one block of every argument.
type WorkItem struct {
	ID     uuid.UUID
	Index  int // position in scan order
	Worker int // round-robin assigned worker
	Job    JobType

	Cmd  *Command
	Args []Arg

	// Blocks holds one descriptor per argument, index-aligned with Args.
	Blocks []Block
}

// Result is the outcome of one executed work item.
type Result struct {
	Item   *WorkItem
	Output []string
	Err    error
}

// Region is an axis-aligned box committed to one output image.
type Region struct {
	Pos, Size voxel.Vec3
}

// Distributor is the boundary towards the external scheduler: it owns the
// per-node memory budget and the worker count, and executes submitted work
// items.
type Distributor interface {
	// MemoryBudget is the per-node working set bound in bytes.
	MemoryBudget() int64
	// Workers is the number of parallel worker nodes.
	Workers() int
	// Submit hands one work item to a worker. The returned channel
	// delivers exactly one Result.
	Submit(item *WorkItem) <-chan Result
}

// Storage is the adapter every worker uses to load and commit blocks.
// The TIFF adapter is the concrete production implementation.
type Storage interface {
	Info(path string) (dims voxel.Vec3, dt voxel.DataType, pixBytes int, err error)
	ReadBlock(dst *voxel.Image, path string, origin voxel.Vec3) error
	WriteBlock(src *voxel.Image, path string, filePos, fullDims voxel.Vec3) error
}
