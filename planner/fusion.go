package planner

import (
	"fmt"
	"strings"

	"voxdist/contracts"
	"voxdist/voxel"
)

// FuseSteps combines maximal runs of consecutive delay-capable steps that
// share the reference extent and the primary distribution direction into
// single steps, so each block is read, processed by the whole run and
// written out once. Non-delayable steps terminate a run and stay on their
// own; their outputs become ordinary inputs of the next window.
func FuseSteps(steps []Step) []Step {
	var out []Step
	var run []Step

	flush := func() {
		switch len(run) {
		case 0:
		case 1:
			out = append(out, run[0])
		default:
			out = append(out, fuseRun(run))
		}
		run = nil
	}

	for _, s := range steps {
		if !s.Cmd.CanDelay(s.Args) {
			flush()
			out = append(out, s)
			continue
		}
		if len(run) > 0 && !fusible(run[len(run)-1], s) {
			flush()
		}
		run = append(run, s)
	}
	flush()
	return out
}

// fusible reports whether two delayable steps may share one block pass:
// equal reference extents and the same primary direction.
func fusible(a, b Step) bool {
	ra, err := a.Cmd.ReferenceIndex(a.Args)
	if err != nil {
		return false
	}
	rb, err := b.Cmd.ReferenceIndex(b.Args)
	if err != nil {
		return false
	}
	return a.Args[ra].Dims == b.Args[rb].Dims &&
		a.Cmd.Dir1(a.Args) == b.Cmd.Dir1(b.Args)
}

// argKey identifies one argument image across the members of a run.
func argKey(a contracts.Arg) string {
	if a.Path != "" {
		return a.Path
	}
	return a.Name
}

// fuseRun builds the combined step of a run of two or more fusible steps.
func fuseRun(run []Step) Step {
	type slot struct {
		arg       contracts.Arg
		needsRead bool
		writes    bool
	}

	var order []string
	slots := make(map[string]*slot)
	mapIdx := make([][]int, len(run))

	for m, s := range run {
		mapIdx[m] = make([]int, len(s.Args))
		for i, a := range s.Args {
			k := argKey(a)
			sl, ok := slots[k]
			if !ok {
				sl = &slot{arg: a}
				slots[k] = sl
				order = append(order, k)
			}
			// An argument read before any member writes it must be
			// loaded from storage; one produced inside the run is
			// chained in memory.
			if a.Role.Reads() && !sl.writes {
				sl.needsRead = true
			}
			if a.Role.Writes() {
				sl.writes = true
			}
			for fi, fk := range order {
				if fk == k {
					mapIdx[m][i] = fi
				}
			}
		}
	}

	fusedArgs := make([]contracts.Arg, len(order))
	keyOf := make([]string, len(order))
	for i, k := range order {
		sl := slots[k]
		a := sl.arg
		switch {
		case sl.needsRead && sl.writes:
			a.Role = contracts.InOut
		case sl.writes:
			a.Role = contracts.Output
		default:
			a.Role = contracts.Input
		}
		fusedArgs[i] = a
		keyOf[i] = k
	}

	names := make([]string, len(run))
	for i, s := range run {
		names[i] = s.Cmd.Name
	}

	refIdx := 0
	if idx, err := run[0].Cmd.ReferenceIndex(run[0].Args); err == nil {
		refIdx = mapIdx[0][idx]
	}

	d1 := run[0].Cmd.Dir1(run[0].Args)
	d2, hasD2 := run[0].Cmd.Dir2(run[0].Args)
	for _, s := range run[1:] {
		if !hasD2 {
			break
		}
		if sd2, ok := s.Cmd.Dir2(s.Args); !ok || sd2 != d2 {
			hasD2 = false
		}
	}

	fused := &contracts.Command{
		Name: strings.Join(names, "+"),

		Run: func(blocks []contracts.BlockArg) ([]string, error) {
			for m, s := range run {
				mblocks := make([]contracts.BlockArg, len(s.Args))
				for i := range s.Args {
					fb := blocks[mapIdx[m][i]]
					mblocks[i] = contracts.BlockArg{Arg: s.Args[i], Block: fb.Block, Img: fb.Img}
				}
				// Member string outputs are discarded inside a fused run.
				if _, err := s.Cmd.Run(mblocks); err != nil {
					return nil, fmt.Errorf("fused member %s: %w", s.Cmd.Name, err)
				}
			}
			return nil, nil
		},

		// Upper bound: member temporaries overlap in practice.
		ExtraMemory: func([]contracts.Arg) float64 {
			var e float64
			for _, s := range run {
				if m := s.Cmd.ExtraMemoryFactor(s.Args); m > e {
					e = m
				}
			}
			return e
		},

		Margin: func([]contracts.Arg) voxel.Vec3 {
			var m voxel.Vec3
			for _, s := range run {
				m = m.Max(s.Cmd.MarginFor(s.Args))
			}
			return m
		},

		PreferredSubdivisions: func([]contracts.Arg) int {
			n := 1
			for _, s := range run {
				n = max(n, s.Cmd.Subdivisions(s.Args))
			}
			return n
		},

		Job: func([]contracts.Arg) contracts.JobType {
			j := contracts.Fast
			for _, s := range run {
				if sj := s.Cmd.JobTypeFor(s.Args); sj > j {
					j = sj
				}
			}
			return j
		},

		Direction1: func([]contracts.Arg) int { return d1 },
		Direction2: func([]contracts.Arg) (int, bool) { return d2, hasD2 },
		RefIndex:   func([]contracts.Arg) (int, bool) { return refIdx, true },
		Delayable:  func([]contracts.Arg) bool { return true },

		CorrespondingBlock: func(args []contracts.Arg, argIndex int, ref contracts.Block) (contracts.Block, error) {
			return fusedBlock(run, mapIdx, keyOf[argIndex], args[argIndex], ref)
		},
	}

	return Step{Cmd: fused, Args: fusedArgs}
}

// fusedBlock combines the member descriptors of one shared argument: the
// union of the read regions and the intersection of the write regions.
func fusedBlock(run []Step, mapIdx [][]int, key string, fusedArg contracts.Arg, ref contracts.Block) (contracts.Block, error) {
	var out contracts.Block
	haveRead, haveWrite := false, false
	var readEnd, writeEnd voxel.Vec3

	for _, s := range run {
		for i, a := range s.Args {
			if argKey(a) != key {
				continue
			}
			mb, err := s.Cmd.BlockFor(s.Args, i, ref)
			if err != nil {
				return contracts.Block{}, err
			}

			// The read region is carried for write-only arguments too: the
			// worker buffer of every argument of one item spans the same
			// slab, whether or not it is loaded from storage.
			if mb.ReadSize.Positive() {
				if !haveRead {
					out.ReadStart = mb.ReadStart
					readEnd = mb.ReadStart.Add(mb.ReadSize)
					haveRead = true
				} else {
					out.ReadStart = out.ReadStart.Min(mb.ReadStart)
					readEnd = readEnd.Max(mb.ReadStart.Add(mb.ReadSize))
				}
			}
			if a.Role.Writes() && mb.WritesOutput() {
				if !haveWrite {
					out.WriteFilePos = mb.WriteFilePos
					writeEnd = mb.WriteFilePos.Add(mb.WriteSize)
					out.WriteImPos = mb.WriteImPos
					haveWrite = true
				} else {
					out.WriteFilePos = out.WriteFilePos.Max(mb.WriteFilePos)
					writeEnd = writeEnd.Min(mb.WriteFilePos.Add(mb.WriteSize))
				}
			}
		}
	}

	if haveRead {
		out.ReadSize = readEnd.Sub(out.ReadStart)
	}
	if haveWrite {
		size := writeEnd.Sub(out.WriteFilePos).Max(voxel.Vec3{})
		out.WriteSize = size
		if size.IsZero() {
			out.WriteFilePos, out.WriteImPos = voxel.Vec3{}, voxel.Vec3{}
		} else if haveRead {
			out.WriteImPos = out.WriteFilePos.Sub(out.ReadStart)
		}
	}
	return out, nil
}
