// Package commands provides ready-made distributable commands built on the
// block protocol: plain volume copy and simple neighborhood filters. They
// double as reference implementations of the contract.
package commands

import (
	"fmt"

	"voxdist/contracts"
	"voxdist/voxel"
)

// Copy returns a command that copies its input argument to its output
// argument block by block. It is delay-capable: it works with any margin
// and reports nothing a caller needs.
func Copy() *contracts.Command {
	return &contracts.Command{
		Name: "copy",
		Run: func(blocks []contracts.BlockArg) ([]string, error) {
			src, dst, err := inOut(blocks)
			if err != nil {
				return nil, err
			}
			if !src.Img.SameShape(dst.Img) {
				return nil, fmt.Errorf("copy: block shapes differ: %v vs %v", src.Img.Dims, dst.Img.Dims)
			}
			copy(dst.Img.Pix, src.Img.Pix)
			return []string{fmt.Sprintf("copied %d voxels", src.Img.Dims.Voxels())}, nil
		},
		Delayable: func([]contracts.Arg) bool { return true },
	}
}

// BoxSum returns a command that writes, for every voxel of the output, the
// sum of the input voxels within the given radius (a cubic box). The
// declared margin makes every planned block read the halo it needs.
func BoxSum(radius int) *contracts.Command {
	return &contracts.Command{
		Name: fmt.Sprintf("boxsum%d", radius),
		Run: func(blocks []contracts.BlockArg) ([]string, error) {
			src, dst, err := inOut(blocks)
			if err != nil {
				return nil, err
			}
			boxSum(src.Img, dst.Img, radius)
			return nil, nil
		},
		Margin: func([]contracts.Arg) voxel.Vec3 {
			return voxel.V(radius, radius, radius)
		},
		// One temporary line buffer per axis pass in the full version;
		// the naive kernel here only needs the output buffer itself.
		ExtraMemory: func([]contracts.Arg) float64 { return 0 },
		Job:         func([]contracts.Arg) contracts.JobType { return contracts.Slow },
		Delayable:   func([]contracts.Arg) bool { return true },
	}
}

// inOut picks the single reading and the single writing block argument.
func inOut(blocks []contracts.BlockArg) (in, out contracts.BlockArg, err error) {
	haveIn, haveOut := false, false
	for _, b := range blocks {
		if b.Role.Reads() && !haveIn {
			in, haveIn = b, true
		}
		if b.Role.Writes() {
			out, haveOut = b, true
		}
	}
	if !haveIn || !haveOut {
		return in, out, fmt.Errorf("command needs one input and one output argument")
	}
	return in, out, nil
}

// boxSum computes the cubic box sum of src into dst. The buffers share one
// extent; voxels whose box leaves the buffer clamp to the available data,
// which is exactly the margin-clamping behaviour at volume borders.
func boxSum(src, dst *voxel.Image, radius int) {
	dims := src.Dims
	for z := 0; z < dims.Z; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				var sum float64
				for dz := -radius; dz <= radius; dz++ {
					zz := z + dz
					if zz < 0 || zz >= dims.Z {
						continue
					}
					for dy := -radius; dy <= radius; dy++ {
						yy := y + dy
						if yy < 0 || yy >= dims.Y {
							continue
						}
						for dx := -radius; dx <= radius; dx++ {
							xx := x + dx
							if xx < 0 || xx >= dims.X {
								continue
							}
							sum += src.Value(xx, yy, zz)
						}
					}
				}
				dst.SetValue(x, y, z, sum)
			}
		}
	}
}
