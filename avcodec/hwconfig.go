//go:build !ios && !android && (amd64 || arm64)

package avcodec

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/vseek/vseek/internal/bindings"
)

// Additional AVCodecContext field offsets, pinned alongside
// offsetCtxHWFramesCtx/offsetCtxHWDeviceCtx in avcodec.go (FFmpeg 60.x
// layout). Re-verify against a newer libavcodec major version bump.
const (
	offsetCtxHasBFrames   = 420 // int has_b_frames
	offsetCtxExtraHWFrames = 892 // int extra_hw_frames
	offsetCtxThreadCount  = 392 // int thread_count
)

// GetCtxHasBFrames returns the number of B-frames this decoder is delaying.
func GetCtxHasBFrames(ctx Context) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxHasBFrames))
}

// SetCtxHasBFrames forces the has_b_frames hint on the codec context. Used
// to work around H.264 streams that under-report their own B-frame delay.
func SetCtxHasBFrames(ctx Context, n int32) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxHasBFrames)) = n
}

// SetCtxExtraHWFrames sets the number of extra hardware frames the decoder
// should allocate beyond what the codec itself requires, giving downstream
// consumers headroom to hold references across a pooled decode.
func SetCtxExtraHWFrames(ctx Context, n int32) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxExtraHWFrames)) = n
}

// GetCtxThreadCount returns the configured decode thread count.
func GetCtxThreadCount(ctx Context) int32 {
	if ctx == nil {
		return 0
	}
	return *(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxThreadCount))
}

// SetCtxThreadCount sets the decode thread count. 0 requests FFmpeg's
// automatic detection.
func SetCtxThreadCount(ctx Context, n int32) {
	if ctx == nil {
		return
	}
	*(*int32)(unsafe.Pointer(uintptr(ctx) + offsetCtxThreadCount)) = n
}

// HWConfig mirrors the fields of AVCodecHWConfig consumed during hardware
// pixel format negotiation.
type HWConfig struct {
	PixFmt     int32
	Methods    int32
	DeviceType int32
}

const (
	// HWConfigMethodHWDeviceCtx is AV_CODEC_HW_CONFIG_METHOD_HW_DEVICE_CTX.
	HWConfigMethodHWDeviceCtx int32 = 1 << 0
)

var (
	avcodecGetHWConfig func(codec Codec, index int32) unsafe.Pointer

	hwconfigBindingsRegistered bool
)

func registerHWConfigBindings() {
	if hwconfigBindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVCodec()
	if lib == 0 {
		return
	}
	purego.RegisterLibFunc(&avcodecGetHWConfig, lib, "avcodec_get_hw_config")
	hwconfigBindingsRegistered = true
}

// GetHWConfig returns the index'th hardware configuration advertised by
// codec, or (HWConfig{}, false) once the list is exhausted.
//
// AVCodecHWConfig layout: enum AVPixelFormat pix_fmt(4) + int methods(4) +
// enum AVHWDeviceType device_type(4).
func GetHWConfig(codec Codec, index int32) (HWConfig, bool) {
	registerHWConfigBindings()
	if avcodecGetHWConfig == nil || codec == nil {
		return HWConfig{}, false
	}
	ptr := avcodecGetHWConfig(codec, index)
	if ptr == nil {
		return HWConfig{}, false
	}
	base := uintptr(ptr)
	return HWConfig{
		PixFmt:     *(*int32)(unsafe.Pointer(base)),
		Methods:    *(*int32)(unsafe.Pointer(base + 4)),
		DeviceType: *(*int32)(unsafe.Pointer(base + 8)),
	}, true
}

// FindHWPixFmt walks a codec's advertised hardware configurations looking
// for one reachable via an AVHWDeviceContext of the given device type,
// returning its pixel format. Mirrors the negotiation FFmpeg's own
// hw-accelerated decode examples perform from get_format callbacks.
func FindHWPixFmt(codec Codec, deviceType int32) (int32, bool) {
	for i := int32(0); ; i++ {
		cfg, ok := GetHWConfig(codec, i)
		if !ok {
			return 0, false
		}
		if cfg.Methods&HWConfigMethodHWDeviceCtx != 0 && cfg.DeviceType == deviceType {
			return cfg.PixFmt, true
		}
	}
}
