//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/vseek/vseek/internal/bindings"
)

// HWDeviceContext is an opaque AVBufferRef wrapping an AVHWDeviceContext.
type HWDeviceContext = unsafe.Pointer

// HWFramesContext is an opaque AVBufferRef wrapping an AVHWFramesContext.
type HWFramesContext = unsafe.Pointer

var (
	avHWDeviceFindTypeByName func(name string) int32
	avHWDeviceGetTypeName    func(devType int32) unsafe.Pointer
	avHWDeviceCtxCreate      func(pDeviceCtx *unsafe.Pointer, devType int32, device unsafe.Pointer, opts unsafe.Pointer, flags int32) int32
	avBufferRef              func(buf unsafe.Pointer) unsafe.Pointer
	avBufferUnref            func(buf *unsafe.Pointer)

	hwBindingsRegistered bool
)

func registerHWBindings() {
	if hwBindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVUtil()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avHWDeviceFindTypeByName, lib, "av_hwdevice_find_type_by_name")
	purego.RegisterLibFunc(&avHWDeviceGetTypeName, lib, "av_hwdevice_get_type_name")
	purego.RegisterLibFunc(&avHWDeviceCtxCreate, lib, "av_hwdevice_ctx_create")
	purego.RegisterLibFunc(&avBufferRef, lib, "av_buffer_ref")
	purego.RegisterLibFunc(&avBufferUnref, lib, "av_buffer_unref")

	hwBindingsRegistered = true
}

// HWDeviceTypeNone is AV_HWDEVICE_TYPE_NONE.
const HWDeviceTypeNone int32 = 0

// HWDeviceFindTypeByName resolves a hardware device type name (e.g. "cuda",
// "vaapi") to its AVHWDeviceType. Returns HWDeviceTypeNone if unrecognised.
func HWDeviceFindTypeByName(name string) int32 {
	registerHWBindings()
	if avHWDeviceFindTypeByName == nil {
		return HWDeviceTypeNone
	}
	return avHWDeviceFindTypeByName(name)
}

// HWDeviceTypeName returns the canonical name of a hardware device type.
func HWDeviceTypeName(devType int32) string {
	registerHWBindings()
	if avHWDeviceGetTypeName == nil {
		return ""
	}
	ptr := avHWDeviceGetTypeName(devType)
	if ptr == nil {
		return ""
	}
	return goStringFromPtr(ptr)
}

// HWDeviceCtxCreate creates a hardware device context of the given type.
// Mirrors av_hwdevice_ctx_create with device=NULL, opts=NULL.
func HWDeviceCtxCreate(devType int32) (HWDeviceContext, error) {
	registerHWBindings()
	if avHWDeviceCtxCreate == nil {
		return nil, NewError(AVERROR_BUG, "av_hwdevice_ctx_create: not available")
	}
	var ctx unsafe.Pointer
	ret := avHWDeviceCtxCreate(&ctx, devType, nil, nil, 0)
	if ret < 0 {
		return nil, NewError(ret, "av_hwdevice_ctx_create")
	}
	return ctx, nil
}

// NewBufferRef increments the refcount of an AVBufferRef and returns a new
// reference to the same underlying buffer. Alias of BufferRef, named to
// match av_buffer_ref's conventional Go wrapping.
func NewBufferRef(buf unsafe.Pointer) unsafe.Pointer {
	return BufferRef(buf)
}

// BufferRef increments the refcount of an AVBufferRef and returns a new
// reference to the same underlying buffer.
func BufferRef(buf unsafe.Pointer) unsafe.Pointer {
	registerHWBindings()
	if avBufferRef == nil || buf == nil {
		return nil
	}
	return avBufferRef(buf)
}

// BufferUnref releases an AVBufferRef and clears the caller's pointer.
func BufferUnref(buf *unsafe.Pointer) {
	registerHWBindings()
	if avBufferUnref == nil || buf == nil {
		return
	}
	avBufferUnref(buf)
}

func goStringFromPtr(ptr unsafe.Pointer) string {
	if ptr == nil {
		return ""
	}
	b := (*byte)(ptr)
	n := 0
	for {
		c := *(*byte)(unsafe.Pointer(uintptr(unsafe.Pointer(b)) + uintptr(n)))
		if c == 0 || n > 4096 {
			break
		}
		n++
	}
	return string(unsafe.Slice((*byte)(ptr), n))
}
