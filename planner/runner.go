package planner

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"voxdist/contracts"
	"voxdist/voxel"
)

// LocalDistributor executes schedules in-process with a bounded worker
// pool. It implements contracts.Distributor and is both the test vehicle
// for the block protocol and the single-machine execution path.
type LocalDistributor struct {
	Budget     int64
	NumWorkers int
	Store      contracts.Storage
	Log        *log.Logger
}

func (d *LocalDistributor) MemoryBudget() int64 { return d.Budget }

func (d *LocalDistributor) Workers() int { return max(1, d.NumWorkers) }

func (d *LocalDistributor) logger() *log.Logger {
	if d.Log != nil {
		return d.Log
	}
	return log.Default()
}

// Submit executes one work item on its own goroutine. The caller bounds
// the parallelism.
func (d *LocalDistributor) Submit(item *contracts.WorkItem) <-chan contracts.Result {
	ch := make(chan contracts.Result, 1)
	go func() {
		out, err := executeItem(d.Store, item)
		ch <- contracts.Result{Item: item, Output: out, Err: err}
	}()
	return ch
}

// executeItem is one worker pass: load every reading argument's slab, run
// the command, commit every writing argument's valid region. The storage
// handle is scoped to each call, including failure paths.
func executeItem(store contracts.Storage, item *contracts.WorkItem) ([]string, error) {
	blocks := make([]contracts.BlockArg, len(item.Args))
	for i, a := range item.Args {
		b := item.Blocks[i]

		ext := bufferExtent(b)
		if !ext.Positive() {
			ext = voxel.V(1, 1, 1)
		}
		img := a.NewImage(ext)

		if a.Role.Reads() && b.ReadSize.Positive() {
			if err := store.ReadBlock(img, a.Path, b.ReadStart); err != nil {
				return nil, fmt.Errorf("work item %d: loading %s: %w", item.Index, a.Name, err)
			}
		}
		blocks[i] = contracts.BlockArg{Arg: a, Block: b, Img: img}
	}

	out, err := item.Cmd.Run(blocks)
	if err != nil {
		return nil, fmt.Errorf("work item %d: %w", item.Index, err)
	}

	for _, ba := range blocks {
		b := ba.Block
		if !ba.Role.Writes() || !b.WritesOutput() {
			continue
		}
		valid, err := ba.Img.Crop(b.WriteImPos, b.WriteSize)
		if err != nil {
			return nil, fmt.Errorf("work item %d: committing %s: %w", item.Index, ba.Name, err)
		}
		if err := store.WriteBlock(valid, ba.Path, b.WriteFilePos, ba.Dims); err != nil {
			return nil, fmt.Errorf("work item %d: committing %s: %w", item.Index, ba.Name, err)
		}
	}
	return out, nil
}

// Run fuses the pipeline, plans each resulting window and executes the
// windows in order. Windows are write barriers: outputs of one window are
// fully committed before the next one starts. The returned strings are the
// per-item outputs in submission order.
func (d *LocalDistributor) Run(ctx context.Context, steps []Step) ([]string, error) {
	fusedSteps := FuseSteps(steps)
	if len(fusedSteps) < len(steps) {
		d.logger().Debug("fused pipeline", "steps", len(steps), "windows", len(fusedSteps))
	}

	var outputs []string
	for _, step := range fusedSteps {
		sched, err := Plan(step, d.MemoryBudget(), d.Workers())
		if err != nil {
			return outputs, err
		}
		d.logger().Info("executing window",
			"command", step.Cmd.Name,
			"blocks", sched.Summary.Blocks,
			"split", fmt.Sprintf("%dx%d", sched.N1, sched.N2),
			"maxItemBytes", sched.Summary.MaxItemBytes)

		results := make([]contracts.Result, len(sched.Items))
		sem := make(chan struct{}, d.Workers())
		var wg sync.WaitGroup

		var cancelled error
		for i, item := range sched.Items {
			if err := ctx.Err(); err != nil {
				// Abort before submitting further items; blocks already
				// committed stay on disk.
				cancelled = err
				break
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(i int, item *contracts.WorkItem) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = <-d.Submit(item)
			}(i, item)
		}
		wg.Wait()

		if cancelled != nil {
			return outputs, cancelled
		}
		for _, res := range results {
			if res.Err != nil {
				return outputs, res.Err
			}
			outputs = append(outputs, res.Output...)
		}
	}
	return outputs, nil
}
