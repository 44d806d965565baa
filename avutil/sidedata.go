//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"math"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/vseek/vseek/internal/bindings"
)

// AVFrameSideDataType values (subset actually consumed by this module).
const (
	FrameDataStereo3D            int32 = 7
	FrameDataDisplayMatrix       int32 = 9
	FrameDataContentLightLevel   int32 = 19
	FrameDataMasteringDisplay    int32 = 11
	FrameDataDOVIRPUBuffer       int32 = 30
	FrameDataDynamicHDRPlus      int32 = 31
)

var (
	avFrameGetSideData    func(frame unsafe.Pointer, sideDataType int32) unsafe.Pointer
	avDisplayRotationGet  func(matrix unsafe.Pointer) float64
	avDisplayMatrixFlip   func(matrix unsafe.Pointer, hflip, vflip int32)

	sidedataBindingsRegistered bool
)

func registerSidedataBindings() {
	if sidedataBindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVUtil()
	if lib == 0 {
		return
	}
	purego.RegisterLibFunc(&avFrameGetSideData, lib, "av_frame_get_side_data")
	purego.RegisterLibFunc(&avDisplayRotationGet, lib, "av_display_rotation_get")
	purego.RegisterLibFunc(&avDisplayMatrixFlip, lib, "av_display_matrix_flip")
	sidedataBindingsRegistered = true
}

// frameSideDataLayout mirrors AVFrameSideData: enum type(4) + pad(4) +
// uint8_t *data(8) + size_t size(8) + AVDictionary *metadata(8) + AVBufferRef *buf(8).
const (
	frameSideDataOffData = 8
	frameSideDataOffSize = 16
)

// GetFrameSideData returns a byte slice aliasing the side-data payload of
// the given type attached to frame, or (nil, false) if absent.
func GetFrameSideData(frame unsafe.Pointer, sideDataType int32) ([]byte, bool) {
	registerSidedataBindings()
	if avFrameGetSideData == nil || frame == nil {
		return nil, false
	}
	sd := avFrameGetSideData(frame, sideDataType)
	if sd == nil {
		return nil, false
	}
	base := uintptr(sd)
	dataPtr := *(*unsafe.Pointer)(unsafe.Pointer(base + frameSideDataOffData))
	size := *(*uint64)(unsafe.Pointer(base + frameSideDataOffSize))
	if dataPtr == nil || size == 0 {
		return nil, false
	}
	return unsafe.Slice((*byte)(dataPtr), int(size)), true
}

// DisplayMatrix is a 3x3 row-major int32 display transform matrix
// (AVMatrix3x3 aka int32_t[9]).
type DisplayMatrix [9]int32

// Determinant returns RotationMatrix[0]*RotationMatrix[4] - RotationMatrix[1]*RotationMatrix[3],
// whose sign indicates a horizontal-flip component in the transform.
func (m DisplayMatrix) Determinant() int64 {
	return int64(m[0])*int64(m[4]) - int64(m[1])*int64(m[3])
}

// Flip applies av_display_matrix_flip(matrix, hflip, vflip) in place.
func (m *DisplayMatrix) Flip(hflip, vflip bool) {
	registerSidedataBindings()
	if avDisplayMatrixFlip == nil {
		return
	}
	h, v := int32(0), int32(0)
	if hflip {
		h = 1
	}
	if vflip {
		v = 1
	}
	avDisplayMatrixFlip(unsafe.Pointer(&m[0]), h, v)
}

// Rotation returns av_display_rotation_get(matrix), rounded to the nearest
// integer degree.
func (m DisplayMatrix) Rotation() int {
	registerSidedataBindings()
	if avDisplayRotationGet == nil {
		return 0
	}
	deg := avDisplayRotationGet(unsafe.Pointer(&m[0]))
	return int(math.Round(deg))
}

// DisplayMatrixFromBytes reinterprets a 36-byte side-data payload
// (AV_FRAME_DATA_DISPLAYMATRIX) as a DisplayMatrix.
func DisplayMatrixFromBytes(b []byte) (DisplayMatrix, bool) {
	var m DisplayMatrix
	if len(b) < 36 {
		return m, false
	}
	for i := 0; i < 9; i++ {
		m[i] = int32(b[i*4]) | int32(b[i*4+1])<<8 | int32(b[i*4+2])<<16 | int32(b[i*4+3])<<24
	}
	return m, true
}

// Stereo3DInfo mirrors the fields consumed from AVStereo3D.
type Stereo3DInfo struct {
	Type  int32
	Flags int32
}

// Stereo3DFromBytes reinterprets an AV_FRAME_DATA_STEREO3D payload.
// AVStereo3D layout: enum type(4) + int flags(4).
func Stereo3DFromBytes(b []byte) (Stereo3DInfo, bool) {
	if len(b) < 8 {
		return Stereo3DInfo{}, false
	}
	return Stereo3DInfo{
		Type:  int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24,
		Flags: int32(b[4]) | int32(b[5])<<8 | int32(b[6])<<16 | int32(b[7])<<24,
	}, true
}

// MasteringDisplayInfo mirrors the fields consumed from AVMasteringDisplayMetadata.
// Primaries/white point are encoded as (num, den) q32 rationals in the C
// struct (AVRational); HasPrimaries/HasLuminance gate their validity.
type MasteringDisplayInfo struct {
	HasPrimaries  bool
	Primaries     [3][2]Rational
	WhitePoint    [2]Rational
	HasLuminance  bool
	MinLuminance  Rational
	MaxLuminance  Rational
}

// MasteringDisplayFromBytes reinterprets an AV_FRAME_DATA_MASTERING_DISPLAY_METADATA
// payload. AVMasteringDisplayMetadata layout: AVRational display_primaries[3][2],
// AVRational white_point[2], int has_primaries, int has_luminance,
// AVRational min_luminance, AVRational max_luminance.
func MasteringDisplayFromBytes(b []byte) (MasteringDisplayInfo, bool) {
	if len(b) < 8*8+4+4+8+8 {
		return MasteringDisplayInfo{}, false
	}
	readRat := func(off int) Rational {
		num := int32(b[off]) | int32(b[off+1])<<8 | int32(b[off+2])<<16 | int32(b[off+3])<<24
		den := int32(b[off+4]) | int32(b[off+5])<<8 | int32(b[off+6])<<16 | int32(b[off+7])<<24
		return NewRational(num, den)
	}
	readInt := func(off int) int32 {
		return int32(b[off]) | int32(b[off+1])<<8 | int32(b[off+2])<<16 | int32(b[off+3])<<24
	}

	var info MasteringDisplayInfo
	off := 0
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			info.Primaries[i][j] = readRat(off)
			off += 8
		}
	}
	info.WhitePoint[0] = readRat(off)
	off += 8
	info.WhitePoint[1] = readRat(off)
	off += 8
	info.HasPrimaries = readInt(off) != 0
	off += 4
	info.HasLuminance = readInt(off) != 0
	off += 4
	info.MinLuminance = readRat(off)
	off += 8
	info.MaxLuminance = readRat(off)
	return info, true
}

// ContentLightInfo mirrors AVContentLightMetadata.
type ContentLightInfo struct {
	MaxCLL  uint32
	MaxFALL uint32
}

// ContentLightFromBytes reinterprets an AV_FRAME_DATA_CONTENT_LIGHT_LEVEL payload.
func ContentLightFromBytes(b []byte) (ContentLightInfo, bool) {
	if len(b) < 8 {
		return ContentLightInfo{}, false
	}
	return ContentLightInfo{
		MaxCLL:  uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24,
		MaxFALL: uint32(b[4]) | uint32(b[5])<<8 | uint32(b[6])<<16 | uint32(b[7])<<24,
	}, true
}
