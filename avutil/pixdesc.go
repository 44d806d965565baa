//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/vseek/vseek/internal/bindings"
)

// Pixel format descriptor flag bits (AV_PIX_FMT_FLAG_*).
const (
	PixFmtFlagBE        uint64 = 1 << 0
	PixFmtFlagPal       uint64 = 1 << 1
	PixFmtFlagBitstream uint64 = 1 << 2
	PixFmtFlagHWAccel   uint64 = 1 << 3
	PixFmtFlagPlanar    uint64 = 1 << 4
	PixFmtFlagRGB       uint64 = 1 << 5
	PixFmtFlagAlpha     uint64 = 1 << 7
	PixFmtFlagFloat     uint64 = 1 << 9
)

// ComponentDescriptor mirrors FFmpeg's AVComponentDescriptor.
type ComponentDescriptor struct {
	Plane  int32
	Step   int32
	Offset int32
	Depth  int32
}

// PixFmtDescriptor is a Go-side snapshot of FFmpeg's AVPixFmtDescriptor,
// populated by reading the raw struct returned by av_pix_fmt_desc_get.
//
// Field offsets below are pinned to the libavutil layout stable since the
// AVComponentDescriptor simplification (FFmpeg 4.x+): name(ptr) uint8
// nb_components, uint8 log2_chroma_w, uint8 log2_chroma_h, 5 bytes padding,
// uint64 flags, AVComponentDescriptor comp[4] (4 int32 each). Re-verify
// against a newer libavutil major version bump.
type PixFmtDescriptor struct {
	Name         string
	NbComponents int
	Log2ChromaW  int
	Log2ChromaH  int
	Flags        uint64
	Comp         [4]ComponentDescriptor
}

var (
	avPixFmtDescGet func(fmt int32) unsafe.Pointer

	pixdescBindingsRegistered bool
)

func registerPixdescBindings() {
	if pixdescBindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVUtil()
	if lib == 0 {
		return
	}
	purego.RegisterLibFunc(&avPixFmtDescGet, lib, "av_pix_fmt_desc_get")
	pixdescBindingsRegistered = true
}

// GetPixFmtDescriptor returns the pixel-format descriptor for fmt, or
// (PixFmtDescriptor{}, false) if the format is unknown or unsupported.
func GetPixFmtDescriptor(fmt int32) (PixFmtDescriptor, bool) {
	registerPixdescBindings()
	if avPixFmtDescGet == nil {
		return PixFmtDescriptor{}, false
	}
	ptr := avPixFmtDescGet(fmt)
	if ptr == nil {
		return PixFmtDescriptor{}, false
	}

	base := uintptr(ptr)
	namePtr := *(*unsafe.Pointer)(unsafe.Pointer(base))
	nbComponents := *(*uint8)(unsafe.Pointer(base + 8))
	log2ChromaW := *(*uint8)(unsafe.Pointer(base + 9))
	log2ChromaH := *(*uint8)(unsafe.Pointer(base + 10))
	flags := *(*uint64)(unsafe.Pointer(base + 16))

	var comp [4]ComponentDescriptor
	compBase := base + 24
	for i := 0; i < 4; i++ {
		off := compBase + uintptr(i*16)
		comp[i] = ComponentDescriptor{
			Plane:  *(*int32)(unsafe.Pointer(off)),
			Step:   *(*int32)(unsafe.Pointer(off + 4)),
			Offset: *(*int32)(unsafe.Pointer(off + 8)),
			Depth:  *(*int32)(unsafe.Pointer(off + 12)),
		}
	}

	return PixFmtDescriptor{
		Name:         goStringFromPtr(namePtr),
		NbComponents: int(nbComponents),
		Log2ChromaW:  int(log2ChromaW),
		Log2ChromaH:  int(log2ChromaH),
		Flags:        flags,
		Comp:         comp,
	}, true
}

// IsFloat reports whether samples are floating point.
func (d PixFmtDescriptor) IsFloat() bool { return d.Flags&PixFmtFlagFloat != 0 }

// HasAlpha reports whether the format carries an alpha plane/component.
func (d PixFmtDescriptor) HasAlpha() bool { return d.Flags&PixFmtFlagAlpha != 0 }

// ColorFamily returns 1 for gray, 2 for RGB, 3 for YUV, matching the
// classification used by the frame hasher and planar exporter.
func (d PixFmtDescriptor) ColorFamily() int {
	switch {
	case d.NbComponents <= 2:
		return 1
	case d.Flags&PixFmtFlagRGB != 0:
		return 2
	default:
		return 3
	}
}

// BitDepth returns the bit depth of the first component.
func (d PixFmtDescriptor) BitDepth() int { return int(d.Comp[0].Depth) }

// IsRealPlanar reports whether max(plane)+1 == nb_components, i.e. each
// component lives in its own plane with no packed components sharing one.
func (d PixFmtDescriptor) IsRealPlanar() bool {
	maxPlane := int32(0)
	for i := 0; i < d.NbComponents; i++ {
		if d.Comp[i].Plane > maxPlane {
			maxPlane = d.Comp[i].Plane
		}
	}
	return int(maxPlane)+1 == d.NbComponents
}

// MaxStepForPlane returns the maximum component step on the given plane,
// used by the frame hasher to compute each plane's byte width per sample.
func (d PixFmtDescriptor) MaxStepForPlane(plane int) int {
	max := int32(0)
	for i := 0; i < d.NbComponents; i++ {
		if int(d.Comp[i].Plane) == plane && d.Comp[i].Step > max {
			max = d.Comp[i].Step
		}
	}
	return int(max)
}

// NumPlanes returns the number of distinct planes used by this format.
func (d PixFmtDescriptor) NumPlanes() int {
	max := int32(-1)
	for i := 0; i < d.NbComponents; i++ {
		if d.Comp[i].Plane > max {
			max = d.Comp[i].Plane
		}
	}
	return int(max) + 1
}
