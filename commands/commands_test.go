package commands

import (
	"testing"

	"voxdist/contracts"
	"voxdist/voxel"
)

func blockPair(dims voxel.Vec3, dt voxel.DataType) []contracts.BlockArg {
	in := contracts.Arg{Name: "in", Dims: dims, DType: dt, PixBytes: dt.Bytes(), Role: contracts.Input}
	out := contracts.Arg{Name: "out", Dims: dims, DType: dt, PixBytes: dt.Bytes(), Role: contracts.Output}
	return []contracts.BlockArg{
		{Arg: in, Img: in.NewImage(dims)},
		{Arg: out, Img: out.NewImage(dims)},
	}
}

func TestCopyRun(t *testing.T) {
	cmd := Copy()
	blocks := blockPair(voxel.V(3, 2, 2), voxel.UInt16)
	for i := range blocks[0].Img.Pix {
		blocks[0].Img.Pix[i] = byte(i)
	}

	out, err := cmd.Run(blocks)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !blocks[1].Img.Equal(blocks[0].Img) {
		t.Error("copy did not reproduce the input buffer")
	}
	if len(out) != 1 || out[0] != "copied 12 voxels" {
		t.Errorf("output = %v, want a single voxel-count line", out)
	}
	if !cmd.CanDelay(nil) {
		t.Error("copy must be delay-capable")
	}
}

func TestCopyRejectsShapeMismatch(t *testing.T) {
	blocks := blockPair(voxel.V(3, 2, 2), voxel.UInt16)
	blocks[1].Img = voxel.NewImage(voxel.V(2, 2, 2), voxel.UInt16)
	if _, err := Copy().Run(blocks); err == nil {
		t.Error("copy accepted buffers of different shapes")
	}
}

func TestBoxSumLine(t *testing.T) {
	cmd := BoxSum(1)
	blocks := blockPair(voxel.V(3, 1, 1), voxel.UInt32)
	for x, v := range []float64{1, 2, 3} {
		blocks[0].Img.SetValue(x, 0, 0, v)
	}

	if _, err := cmd.Run(blocks); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The box clamps to the buffer at both ends.
	want := []float64{3, 6, 5}
	for x, w := range want {
		if got := blocks[1].Img.Value(x, 0, 0); got != w {
			t.Errorf("boxsum[%d] = %v, want %v", x, got, w)
		}
	}
}

func TestBoxSumDeclarations(t *testing.T) {
	cmd := BoxSum(2)
	if got := cmd.MarginFor(nil); got != voxel.V(2, 2, 2) {
		t.Errorf("margin = %v, want (2,2,2)", got)
	}
	if got := cmd.JobTypeFor(nil); got != contracts.Slow {
		t.Errorf("job type = %v, want Slow", got)
	}
	if !cmd.CanDelay(nil) {
		t.Error("boxsum must be delay-capable")
	}
}

func TestInOutRequiresBothRoles(t *testing.T) {
	in := contracts.Arg{Name: "in", Dims: voxel.V(1, 1, 1), DType: voxel.UInt8, Role: contracts.Input}
	if _, err := Copy().Run([]contracts.BlockArg{{Arg: in, Img: in.NewImage(in.Dims)}}); err == nil {
		t.Error("copy accepted a block set without an output")
	}
}
