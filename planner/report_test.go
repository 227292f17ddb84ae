package planner

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"voxdist/contracts"
	"voxdist/voxel"
)

func TestWriteReport(t *testing.T) {
	cmd := &contracts.Command{
		Name:                  "report",
		Run:                   noopRun,
		Margin:                func([]contracts.Arg) voxel.Vec3 { return voxel.V(0, 0, 1) },
		PreferredSubdivisions: func([]contracts.Arg) int { return 5 },
	}
	sched, err := Plan(Step{Cmd: cmd, Args: volumeArgs(voxel.V(16, 16, 20), voxel.UInt8)}, 1<<20, 4)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	path := filepath.Join(t.TempDir(), "plan.pdf")
	if err := WriteReport([]*Schedule{sched, sched}, path); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("report does not start with a PDF header")
	}
	if len(data) < 1000 {
		t.Errorf("report is %d bytes, suspiciously small", len(data))
	}
}
