//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/vseek/vseek/internal/bindings"
)

// Fields continuing from offsetPts (FFmpeg 60.x layout): pict_type,
// colorimetry and duration. Pinned the same way as the rest of this
// package's struct-offset accessors; re-verify against a newer libavutil
// major version bump.
const (
	offsetPictType       = 144 // enum AVPictureType pict_type
	offsetColorRange     = 148 // enum AVColorRange color_range
	offsetColorPrimaries = 152 // enum AVColorPrimaries color_primaries
	offsetColorTrc       = 156 // enum AVColorTransferCharacteristic color_trc
	offsetColorSpace     = 160 // enum AVColorSpace colorspace
	offsetChromaLocation = 164 // enum AVChromaLocation chroma_location
	offsetFrameDuration  = 168 // int64_t duration
)

// GetFramePictType returns the raw AVPictureType enum value of the frame.
func GetFramePictType(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetPictType))
}

// GetFrameColorRange returns the frame's AVColorRange value.
func GetFrameColorRange(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetColorRange))
}

// GetFrameColorPrimaries returns the frame's AVColorPrimaries value.
func GetFrameColorPrimaries(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetColorPrimaries))
}

// GetFrameColorTrc returns the frame's AVColorTransferCharacteristic value.
func GetFrameColorTrc(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetColorTrc))
}

// GetFrameColorSpace returns the frame's AVColorSpace (matrix coefficients) value.
func GetFrameColorSpace(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetColorSpace))
}

// GetFrameChromaLocation returns the frame's AVChromaLocation value.
func GetFrameChromaLocation(frame Frame) int32 {
	if frame == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(frame) + offsetChromaLocation))
}

// GetFrameDuration returns the frame's duration in the stream's time base.
func GetFrameDuration(frame Frame) int64 {
	if frame == nil {
		return 0
	}
	return *(*int64)(unsafe.Pointer(uintptr(frame) + offsetFrameDuration))
}

var (
	avGetPictureTypeChar func(pictType int32) byte

	frameColorimetryBindingsRegistered bool
)

func registerFrameColorimetryBindings() {
	if frameColorimetryBindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVUtil()
	if lib == 0 {
		return
	}
	purego.RegisterLibFunc(&avGetPictureTypeChar, lib, "av_get_picture_type_char")
	frameColorimetryBindingsRegistered = true
}

// GetPictureTypeChar returns the single-character code (I/P/B/S/...) FFmpeg
// itself uses to print an AVPictureType value.
func GetPictureTypeChar(pictType int32) byte {
	registerFrameColorimetryBindings()
	if avGetPictureTypeChar == nil {
		return '?'
	}
	return avGetPictureTypeChar(pictType)
}
