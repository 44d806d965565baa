//go:build !ios && !android && (amd64 || arm64)

package avutil

import (
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/vseek/vseek/internal/bindings"
)

var (
	avOptSetInt    func(obj unsafe.Pointer, name string, val int64, searchFlags int32) int32
	avOptSetDouble func(obj unsafe.Pointer, name string, val float64, searchFlags int32) int32
	avOptSet       func(obj unsafe.Pointer, name, val string, searchFlags int32) int32

	optBindingsRegistered bool
)

func registerOptBindings() {
	if optBindingsRegistered {
		return
	}
	if err := bindings.Load(); err != nil {
		return
	}
	lib := bindings.LibAVUtil()
	if lib == 0 {
		return
	}

	purego.RegisterLibFunc(&avOptSetInt, lib, "av_opt_set_int")
	purego.RegisterLibFunc(&avOptSetDouble, lib, "av_opt_set_double")
	purego.RegisterLibFunc(&avOptSet, lib, "av_opt_set")

	optBindingsRegistered = true
}

// OptSetInt sets an integer AVOption on obj (an AVClass-derived context,
// e.g. an AVCodecContext). Mirrors av_opt_set_int.
func OptSetInt(obj unsafe.Pointer, name string, val int64, searchFlags int32) error {
	registerOptBindings()
	if avOptSetInt == nil {
		return NewError(AVERROR_BUG, "av_opt_set_int: not available")
	}
	return NewError(avOptSetInt(obj, name, val, searchFlags), "av_opt_set_int")
}

// OptSetDouble sets a floating-point AVOption on obj. Mirrors av_opt_set_double.
func OptSetDouble(obj unsafe.Pointer, name string, val float64, searchFlags int32) error {
	registerOptBindings()
	if avOptSetDouble == nil {
		return NewError(AVERROR_BUG, "av_opt_set_double: not available")
	}
	return NewError(avOptSetDouble(obj, name, val, searchFlags), "av_opt_set_double")
}

// OptSet sets a string-valued AVOption on obj. Mirrors av_opt_set.
func OptSet(obj unsafe.Pointer, name, val string, searchFlags int32) error {
	registerOptBindings()
	if avOptSet == nil {
		return NewError(AVERROR_BUG, "av_opt_set: not available")
	}
	return NewError(avOptSet(obj, name, val, searchFlags), "av_opt_set")
}
