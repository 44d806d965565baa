package vseek

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/vseek/vseek/internal/shim"
)

// LogLevel mirrors FFmpeg's AV_LOG_* levels.
type LogLevel int32

const (
	LogQuiet   LogLevel = -8
	LogPanic   LogLevel = 0
	LogFatal   LogLevel = 8
	LogError   LogLevel = 16
	LogWarning LogLevel = 24
	LogInfo    LogLevel = 32
	LogVerbose LogLevel = 40
	LogDebug   LogLevel = 48
	LogTrace   LogLevel = 56
)

func (l LogLevel) String() string {
	switch {
	case l <= LogQuiet:
		return "quiet"
	case l <= LogPanic:
		return "panic"
	case l <= LogFatal:
		return "fatal"
	case l <= LogError:
		return "error"
	case l <= LogWarning:
		return "warning"
	case l <= LogInfo:
		return "info"
	case l <= LogVerbose:
		return "verbose"
	case l <= LogDebug:
		return "debug"
	default:
		return "trace"
	}
}

// LogCallback receives one line of FFmpeg diagnostic output at a time.
type LogCallback func(level LogLevel, message string)

var (
	logOnce       sync.Once
	logCallbackMu sync.Mutex
	logCallback   LogCallback
	logCBHandle   uintptr
)

// SetLogLevel sets the process-wide FFmpeg log level. It is a one-shot
// operation: the shim library, if present, is loaded lazily on first call
// and every subsequent call only adjusts the level.
func SetLogLevel(level LogLevel) error {
	var loadErr error
	logOnce.Do(func() { loadErr = shim.Load() })
	if loadErr != nil {
		return errOpenFailure(loadErr, "loading log shim")
	}
	if err := shim.SetLogLevel(int32(level)); err != nil {
		return errOpenFailure(err, "setting log level")
	}
	return nil
}

// SetLogCallback installs cb to receive FFmpeg log lines, replacing any
// previous callback. Passing nil restores FFmpeg's default logger.
func SetLogCallback(cb LogCallback) error {
	logOnce.Do(func() { _ = shim.Load() })

	logCallbackMu.Lock()
	defer logCallbackMu.Unlock()

	if cb == nil {
		logCallback = nil
		return shim.SetLogCallback(0)
	}

	logCallback = cb
	if logCBHandle == 0 {
		logCBHandle = purego.NewCallback(logCallbackTrampoline)
	}
	return shim.SetLogCallback(logCBHandle)
}

// logCallbackTrampoline matches void(*)(void *avcl, int level, const char *msg).
func logCallbackTrampoline(_ purego.CDecl, _ unsafe.Pointer, level int32, msg *byte) {
	logCallbackMu.Lock()
	cb := logCallback
	logCallbackMu.Unlock()
	if cb == nil {
		return
	}
	cb(LogLevel(level), cString(msg))
}

func cString(msg *byte) string {
	if msg == nil {
		return ""
	}
	n := 0
	for {
		if *(*byte)(unsafe.Pointer(uintptr(unsafe.Pointer(msg)) + uintptr(n))) == 0 {
			break
		}
		n++
		if n > 4096 {
			break
		}
	}
	return string(unsafe.Slice(msg, n))
}
