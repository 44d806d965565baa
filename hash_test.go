package vseek

import (
	"testing"
	"unsafe"

	"github.com/vseek/vseek/avutil"
)

// pixFmtYUV420P is AV_PIX_FMT_YUV420P's numeric value in libavutil's
// pixel format enum.
const pixFmtYUV420P int32 = 0

func allocTestFrame(t *testing.T, width, height int32, fill byte) avutil.Frame {
	t.Helper()
	frame := avutil.FrameAlloc()
	if frame == nil {
		t.Fatal("FrameAlloc returned nil")
	}
	avutil.SetFrameWidth(frame, width)
	avutil.SetFrameHeight(frame, height)
	avutil.SetFrameFormat(frame, pixFmtYUV420P)
	if err := avutil.FrameGetBufferErr(frame, 32); err != nil {
		t.Fatalf("FrameGetBufferErr: %v", err)
	}

	desc, ok := avutil.GetPixFmtDescriptor(pixFmtYUV420P)
	if !ok {
		t.Fatal("GetPixFmtDescriptor(YUV420P) failed")
	}
	for plane := 0; plane < desc.NumPlanes(); plane++ {
		data := avutil.GetFramePlaneData(frame, plane)
		stride := avutil.GetFrameLinesize(frame, plane)
		rows := int(height)
		if plane == 1 || plane == 2 {
			rows = int(height) >> desc.Log2ChromaH
		}
		if data == nil || stride <= 0 {
			continue
		}
		buf := unsafe.Slice((*byte)(data), int(stride)*rows)
		for i := range buf {
			buf[i] = fill
		}
	}
	return frame
}

// TestFrameHashDeterministic is I5: hashing the same buffer contents twice
// yields the same value.
func TestFrameHashDeterministic(t *testing.T) {
	requireFFmpeg(t)

	f := allocTestFrame(t, 16, 16, 0x42)
	defer avutil.FrameFree(&f)

	h1 := frameHash(f)
	h2 := frameHash(f)
	if h1 != h2 {
		t.Fatalf("frameHash not deterministic: %d != %d", h1, h2)
	}
	if h1 == 0 {
		t.Fatal("expected a non-zero hash for a filled frame")
	}
}

// TestFrameHashDiffersOnContent is the discriminating half of I5: distinct
// pixel content must (with overwhelming probability) hash differently.
func TestFrameHashDiffersOnContent(t *testing.T) {
	requireFFmpeg(t)

	a := allocTestFrame(t, 16, 16, 0x11)
	defer avutil.FrameFree(&a)
	b := allocTestFrame(t, 16, 16, 0x22)
	defer avutil.FrameFree(&b)

	if frameHash(a) == frameHash(b) {
		t.Fatal("expected different pixel content to hash differently")
	}
}

// TestFrameByteSizePositive sanity-checks the cache accounting helper.
func TestFrameByteSizePositive(t *testing.T) {
	requireFFmpeg(t)

	f := allocTestFrame(t, 32, 24, 0x7f)
	defer avutil.FrameFree(&f)

	size := frameByteSize(f)
	if size <= 0 {
		t.Fatalf("frameByteSize = %d, want > 0", size)
	}
}
