// Package planner turns a command's block declarations and a reference
// image extent into a concrete schedule of work items, fuses consecutive
// delay-capable commands into single block passes, and runs schedules on a
// local in-process distributor.
package planner

import (
	"github.com/google/uuid"

	"voxdist/contracts"
	"voxdist/voxel"
)

// Step is one command invocation over its argument images.
type Step struct {
	Cmd  *contracts.Command
	Args []contracts.Arg
}

// Schedule is the planner output for one step: the ordered work items plus
// the commit manifest of every written argument.
type Schedule struct {
	Step     Step
	RefIndex int

	// Subdivision counts along the primary and secondary direction.
	N1, N2 int

	Items []*contracts.WorkItem

	// Manifest lists the storage regions committed per writing argument,
	// keyed by argument name. The union of the regions of one output is
	// its full extent, with no overlap.
	Manifest map[string][]contracts.Region

	Summary Summary
}

// bufferExtent is the in-memory extent a worker allocates for one block:
// the read region when the block loads data, otherwise just enough to hold
// the valid output region.
func bufferExtent(b contracts.Block) voxel.Vec3 {
	if b.ReadSize.Positive() {
		return b.ReadSize
	}
	return b.WriteImPos.Add(b.WriteSize)
}

// itemBytes is the worker working-set bound of one set of per-argument
// blocks, before the extra-memory factor.
func itemBytes(args []contracts.Arg, blocks []contracts.Block) int64 {
	var sum int64
	for i, b := range blocks {
		sum += bufferExtent(b).Voxels() * int64(args[i].VoxelBytes())
	}
	return sum
}

// worstArg returns the name of the argument contributing the most bytes.
func worstArg(args []contracts.Arg, blocks []contracts.Block) string {
	var worst int64 = -1
	name := ""
	for i, b := range blocks {
		n := bufferExtent(b).Voxels() * int64(args[i].VoxelBytes())
		if n > worst {
			worst = n
			name = args[i].Name
		}
	}
	return name
}

// Plan computes the schedule of one step for the given per-node memory
// budget in bytes and worker count.
//
// The subdivision search is greedy first-fit: the primary direction is
// exhausted before a secondary split is tried, so the accepted split is
// the first feasible one in that order, not necessarily the one with the
// fewest blocks overall.
func Plan(step Step, budget int64, workers int) (*Schedule, error) {
	cmd, args := step.Cmd, step.Args
	if workers < 1 {
		return nil, shapef("worker count %d", workers)
	}
	if budget <= 0 {
		return nil, shapef("memory budget %d", budget)
	}

	refIdx, err := cmd.ReferenceIndex(args)
	if err != nil {
		return nil, &ShapeError{Msg: err.Error()}
	}
	refDims := args[refIdx].Dims
	if !refDims.Positive() {
		return nil, shapef("reference image %s has extent %v", args[refIdx].Name, refDims)
	}

	d1 := cmd.Dir1(args)
	if d1 < 0 || d1 > 2 {
		return nil, shapef("command %s declares distribution direction %d", cmd.Name, d1)
	}
	d2, hasD2 := cmd.Dir2(args)
	if hasD2 {
		if d2 < 0 || d2 > 2 {
			return nil, shapef("command %s declares secondary distribution direction %d", cmd.Name, d2)
		}
		if d2 == d1 {
			return nil, shapef("command %s declares the same axis %d twice", cmd.Name, d1)
		}
	}

	margin := cmd.MarginFor(args)
	if !margin.NonNegative() {
		return nil, shapef("command %s declares margin %v", cmd.Name, margin)
	}
	extra := cmd.ExtraMemoryFactor(args)
	if extra < 0 {
		return nil, shapef("command %s declares extra memory factor %v", cmd.Name, extra)
	}

	n1max := refDims.Component(d1)
	n2max := 1
	if hasD2 {
		n2max = refDims.Component(d2)
	}
	n1start := min(cmd.Subdivisions(args), n1max)

	// Find the coarsest subdivision whose largest work item respects the
	// memory bound. The primary direction is exhausted before the
	// secondary one is introduced, so d1-only splits are preferred.
	var (
		lastBlocks [][]contracts.Block
		lastBytes  int64
	)
	for n2 := 1; n2 <= n2max; n2++ {
		for n1 := n1start; n1 <= n1max; n1++ {
			blocks, maxBytes, err := buildBlocks(cmd, args, refDims, d1, d2, n1, n2, margin)
			if err != nil {
				return nil, err
			}
			lastBlocks, lastBytes = blocks, maxBytes
			need := int64(float64(maxBytes) * (1 + extra))
			if need <= budget {
				return assemble(step, refIdx, n1, n2, blocks, maxBytes, workers)
			}
		}
	}

	worst := ""
	if len(lastBlocks) > 0 {
		// Report the dominating argument of the largest remaining item.
		idx := 0
		var most int64 = -1
		for i, bs := range lastBlocks {
			if n := itemBytes(args, bs); n > most {
				most, idx = n, i
			}
		}
		worst = worstArg(args, lastBlocks[idx])
	}
	return nil, &InfeasibleError{
		Command:  cmd.Name,
		Arg:      worst,
		Required: int64(float64(lastBytes) * (1 + extra)),
		Budget:   budget,
	}
}

// axisSplit divides extent into n spans of even size, distributing the
// remainder one voxel at a time to the lowest-indexed spans.
func axisSplit(extent, n int) [][2]int {
	base, rem := extent/n, extent%n
	out := make([][2]int, n)
	pos := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		out[i] = [2]int{pos, size}
		pos += size
	}
	return out
}

// buildBlocks generates the per-item, per-argument block descriptors of an
// (n1, n2) subdivision and the byte size of the largest item.
func buildBlocks(cmd *contracts.Command, args []contracts.Arg, refDims voxel.Vec3, d1, d2, n1, n2 int, margin voxel.Vec3) ([][]contracts.Block, int64, error) {
	spans1 := axisSplit(refDims.Component(d1), n1)
	var spans2 [][2]int
	if n2 > 1 {
		spans2 = axisSplit(refDims.Component(d2), n2)
	}

	items := make([][]contracts.Block, 0, n1*n2)
	var maxBytes int64

	// Scan order: primary direction fastest.
	for j2 := 0; j2 < n2; j2++ {
		for j1 := 0; j1 < n1; j1++ {
			writePos := voxel.Vec3{}.WithComponent(d1, spans1[j1][0])
			writeSize := refDims.WithComponent(d1, spans1[j1][1])
			if n2 > 1 {
				writePos = writePos.WithComponent(d2, spans2[j2][0])
				writeSize = writeSize.WithComponent(d2, spans2[j2][1])
			}

			// The read region is the write region expanded by the margin
			// on all sides, clamped to the reference extent.
			readStart := writePos.Sub(margin).Max(voxel.Vec3{})
			readEnd := writePos.Add(writeSize).Add(margin).Min(refDims)

			ref := contracts.Block{
				ReadStart:    readStart,
				ReadSize:     readEnd.Sub(readStart),
				WriteFilePos: writePos,
				WriteImPos:   writePos.Sub(readStart),
				WriteSize:    writeSize,
			}

			blocks := make([]contracts.Block, len(args))
			for i := range args {
				b, err := cmd.BlockFor(args, i, ref)
				if err != nil {
					return nil, 0, &ShapeError{Msg: err.Error()}
				}
				if err := checkBlock(args[i], b); err != nil {
					return nil, 0, err
				}
				blocks[i] = b
			}
			items = append(items, blocks)

			if n := itemBytes(args, blocks); n > maxBytes {
				maxBytes = n
			}
		}
	}
	return items, maxBytes, nil
}

// checkBlock enforces the block bounds invariants against the argument
// extent.
func checkBlock(arg contracts.Arg, b contracts.Block) error {
	if arg.Role.Reads() || b.ReadSize.Positive() {
		if !b.ReadStart.NonNegative() || !b.ReadSize.NonNegative() ||
			!voxel.InsideExtent(b.ReadStart, b.ReadSize, arg.Dims) {
			return shapef("argument %s: read block %v+%v outside extent %v",
				arg.Name, b.ReadStart, b.ReadSize, arg.Dims)
		}
	}
	if arg.Role.Writes() && b.WritesOutput() {
		if !b.WriteFilePos.NonNegative() || !b.WriteSize.NonNegative() ||
			!voxel.InsideExtent(b.WriteFilePos, b.WriteSize, arg.Dims) {
			return shapef("argument %s: write block %v+%v outside extent %v",
				arg.Name, b.WriteFilePos, b.WriteSize, arg.Dims)
		}
		if !b.WriteImPos.NonNegative() {
			return shapef("argument %s: negative buffer position %v", arg.Name, b.WriteImPos)
		}
	}
	return nil
}

// assemble builds the final schedule: work items in scan order with
// round-robin worker assignment, the commit manifest and the load summary.
func assemble(step Step, refIdx, n1, n2 int, blocks [][]contracts.Block, maxBytes int64, workers int) (*Schedule, error) {
	cmd, args := step.Cmd, step.Args
	job := cmd.JobTypeFor(args)

	sched := &Schedule{
		Step:     step,
		RefIndex: refIdx,
		N1:       n1,
		N2:       n2,
		Manifest: make(map[string][]contracts.Region),
	}

	workerBytes := make([]int64, workers)
	for idx, bs := range blocks {
		item := &contracts.WorkItem{
			ID:     uuid.New(),
			Index:  idx,
			Worker: idx % workers,
			Job:    job,
			Cmd:    cmd,
			Args:   args,
			Blocks: bs,
		}
		sched.Items = append(sched.Items, item)
		workerBytes[item.Worker] += itemBytes(args, bs)

		for i, b := range bs {
			if args[i].Role.Writes() && b.WritesOutput() {
				sched.Manifest[args[i].Name] = append(sched.Manifest[args[i].Name],
					contracts.Region{Pos: b.WriteFilePos, Size: b.WriteSize})
			}
		}
	}

	sched.Summary = summarize(len(blocks), maxBytes, workerBytes)
	return sched, nil
}
