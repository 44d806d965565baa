//go:build !ios && !android && (amd64 || arm64)

package avformat

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/vseek/vseek/avcodec"
	"github.com/vseek/vseek/avutil"
	"github.com/vseek/vseek/internal/bindings"
)

// Additional AVStream field offsets, continuing from offsetStreamTimeBase
// in avformat.go (FFmpeg 6.x / avformat 60.x layout). Pinned the same way
// as the rest of this package's struct-offset accessors; re-verify against
// a newer libavformat major version bump.
const (
	offsetStreamDuration           = 48 // int64_t duration
	offsetStreamNbFrames            = 56 // int64_t nb_frames
	offsetStreamDiscard             = 68 // enum AVDiscard discard
	offsetStreamSampleAspectRatio   = 72 // AVRational sample_aspect_ratio
	offsetStreamAvgFrameRate        = 96 // AVRational avg_frame_rate
	offsetStreamRFrameRate          = 200 // AVRational r_frame_rate
)

// AVDiscard value used to drop every packet of a non-selected stream.
const AVDiscardAll int32 = 48

// SetStreamDiscard sets the stream's discard policy (e.g. AVDiscardAll to
// disable all packets from a non-selected track).
func SetStreamDiscard(stream Stream, discard int32) {
	if stream == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamDiscard)) = discard
}

// GetStreamDuration returns the stream's duration in its own time base.
func GetStreamDuration(stream Stream) int64 {
	if stream == nil {
		return 0
	}
	return *(*int64)(unsafe.Pointer(uintptr(stream) + offsetStreamDuration))
}

// GetStreamNbFrames returns the container-reported frame count, or 0 if unknown.
func GetStreamNbFrames(stream Stream) int64 {
	if stream == nil {
		return 0
	}
	return *(*int64)(unsafe.Pointer(uintptr(stream) + offsetStreamNbFrames))
}

// offsetCodecParSampleAspectRatio mirrors the AVRational sample_aspect_ratio
// field of AVCodecParameters, continuing from the offsetCodecPar* constants
// in avformat.go.
const offsetCodecParSampleAspectRatio = 64

// GetCodecParSampleAspectRatio returns the codec parameters' sample aspect ratio.
func GetCodecParSampleAspectRatio(par avcodec.Parameters) avutil.Rational {
	if par == nil {
		return avutil.Rational{}
	}
	num := *(*int32)(unsafe.Pointer(uintptr(par) + offsetCodecParSampleAspectRatio))
	den := *(*int32)(unsafe.Pointer(uintptr(par) + offsetCodecParSampleAspectRatio + 4))
	return avutil.NewRational(num, den)
}

// GetStreamSampleAspectRatio returns the stream's sample aspect ratio.
func GetStreamSampleAspectRatio(stream Stream) avutil.Rational {
	if stream == nil {
		return avutil.Rational{}
	}
	num := *(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamSampleAspectRatio))
	den := *(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamSampleAspectRatio + 4))
	return avutil.NewRational(num, den)
}

// GetStreamAvgFrameRate returns the stream's average frame rate as reported
// by the demuxer.
func GetStreamAvgFrameRate(stream Stream) (num, den int32) {
	if stream == nil {
		return 0, 1
	}
	num = *(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamAvgFrameRate))
	den = *(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamAvgFrameRate + 4))
	return
}

// GetStreamRFrameRate returns the stream's "real" (lowest common multiple)
// frame rate, used as a fallback when the codec-reported frame rate is invalid.
func GetStreamRFrameRate(stream Stream) (num, den int32) {
	if stream == nil {
		return 0, 1
	}
	num = *(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamRFrameRate))
	den = *(*int32)(unsafe.Pointer(uintptr(stream) + offsetStreamRFrameRate + 4))
	return
}

var (
	avioSize func(ctx unsafe.Pointer) int64
	avioTell func(ctx unsafe.Pointer) int64

	ioExtBindingsRegistered bool
)

func registerIOExtBindings() {
	if ioExtBindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVFormat()
	if lib == 0 {
		return
	}
	purego.RegisterLibFunc(&avioSize, lib, "avio_size")
	purego.RegisterLibFunc(&avioTell, lib, "avio_tell")
	ioExtBindingsRegistered = true
}

// IOSize returns the size in bytes of the underlying I/O context, or -1 if
// unknown or unsupported.
func IOSize(pb IOContext) int64 {
	registerIOExtBindings()
	if avioSize == nil || pb == nil {
		return -1
	}
	return avioSize(pb)
}

// IOTell returns the current read/write position of the I/O context.
func IOTell(pb IOContext) int64 {
	registerIOExtBindings()
	if avioTell == nil || pb == nil {
		return -1
	}
	return avioTell(pb)
}
