package voxel

import "testing"

func TestVec3Helpers(t *testing.T) {
	a := V(1, 5, 3)
	b := V(4, 2, 3)

	if got := a.Max(b); got != V(4, 5, 3) {
		t.Errorf("Max = %v", got)
	}
	if got := a.Min(b); got != V(1, 2, 3) {
		t.Errorf("Min = %v", got)
	}
	if got := V(-1, 7, 3).Clamp(V(0, 0, 0), V(5, 5, 5)); got != V(0, 5, 3) {
		t.Errorf("Clamp = %v", got)
	}
	if got := V(10, 20, 3).Voxels(); got != 600 {
		t.Errorf("Voxels = %d", got)
	}
	for axis, want := range []int{1, 5, 3} {
		if got := a.Component(axis); got != want {
			t.Errorf("Component(%d) = %d, want %d", axis, got, want)
		}
	}
	if got := a.WithComponent(1, 9); got != V(1, 9, 3) {
		t.Errorf("WithComponent = %v", got)
	}
}

func TestInsideExtent(t *testing.T) {
	extent := V(10, 10, 5)

	cases := []struct {
		name      string
		pos, size Vec3
		want      bool
	}{
		{"full", V(0, 0, 0), extent, true},
		{"interior", V(2, 3, 1), V(4, 4, 2), true},
		{"touching far corner", V(6, 6, 3), V(4, 4, 2), true},
		{"past x", V(7, 0, 0), V(4, 1, 1), false},
		{"negative origin", V(-1, 0, 0), V(2, 2, 1), false},
	}
	for _, tc := range cases {
		if got := InsideExtent(tc.pos, tc.size, extent); got != tc.want {
			t.Errorf("%s: InsideExtent = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestImageValueRoundTrip(t *testing.T) {
	types := []DataType{UInt8, UInt16, UInt32, UInt64, Float32, Complex32}
	for _, dt := range types {
		img := NewImage(V(4, 3, 2), dt)
		if len(img.Pix) != int(img.Dims.Voxels())*dt.Bytes() {
			t.Fatalf("%v: buffer size %d", dt, len(img.Pix))
		}
		img.SetValue(3, 2, 1, 200)
		if got := img.Value(3, 2, 1); got != 200 {
			t.Errorf("%v: Value = %v, want 200", dt, got)
		}
		if got := img.Value(0, 0, 0); got != 0 {
			t.Errorf("%v: zero voxel = %v", dt, got)
		}
	}
}

func TestUnknownImagePassThrough(t *testing.T) {
	img := NewUnknownImage(V(2, 2, 1), 3)
	if len(img.Pix) != 12 {
		t.Fatalf("buffer size %d, want 12", len(img.Pix))
	}
	copy(img.VoxelBytes(1, 1, 0), []byte{0x01, 0x02, 0x03})
	if got := img.Value(1, 1, 0); got != float64(0x030201) {
		t.Errorf("Value = %v", got)
	}
}

func TestCropAndEqual(t *testing.T) {
	img := NewImage(V(6, 5, 4), UInt16)
	for z := 0; z < 4; z++ {
		for y := 0; y < 5; y++ {
			for x := 0; x < 6; x++ {
				img.SetValue(x, y, z, float64(x+10*y+100*z))
			}
		}
	}

	got, err := img.Crop(V(2, 1, 1), V(3, 2, 2))
	if err != nil {
		t.Fatal(err)
	}
	for z := 0; z < 2; z++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 3; x++ {
				want := float64((x + 2) + 10*(y+1) + 100*(z+1))
				if v := got.Value(x, y, z); v != want {
					t.Fatalf("crop voxel (%d,%d,%d) = %v, want %v", x, y, z, v, want)
				}
			}
		}
	}

	if _, err := img.Crop(V(4, 4, 3), V(3, 2, 2)); err == nil {
		t.Error("expected error for out-of-bounds crop")
	}

	other, _ := img.Crop(V(0, 0, 0), img.Dims)
	if !img.Equal(other) {
		t.Error("full crop should equal original")
	}
	other.SetValue(0, 0, 0, 99)
	if img.Equal(other) {
		t.Error("images differ, Equal = true")
	}
}

func TestCopyBlock(t *testing.T) {
	src := NewImage(V(4, 4, 2), UInt8)
	for i := range src.Pix {
		src.Pix[i] = byte(i)
	}
	dst := NewImage(V(8, 8, 4), UInt8)
	dst.CopyBlock(V(2, 3, 1), src, V(1, 1, 0), V(2, 2, 2))

	for z := 0; z < 2; z++ {
		for y := 0; y < 2; y++ {
			for x := 0; x < 2; x++ {
				want := src.Value(1+x, 1+y, z)
				if got := dst.Value(2+x, 3+y, 1+z); got != want {
					t.Fatalf("dst voxel (%d,%d,%d) = %v, want %v", 2+x, 3+y, 1+z, got, want)
				}
			}
		}
	}
}
