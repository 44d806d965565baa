package vseek

import (
	"testing"

	"github.com/vseek/vseek/avutil"
)

// newRFFTestEngine builds an Engine whose index carries the given
// RepeatPict/TFF metadata directly, bypassing BuildTrackIndex, and whose
// timeline frames have no repeated fields themselves (each source frame
// decodes to one displayed image), since these tests only examine the
// field-expansion bookkeeping, not actual pixel merging.
func newRFFTestEngine(frames []FrameInfo) *Engine {
	timeline := make([]*BestVideoFrame, len(frames))
	for i, fi := range frames {
		timeline[i] = &BestVideoFrame{Hash: uint64(i) + 1, PTS: fi.PTS}
		frames[i].Hash = timeline[i].Hash
	}
	idx := &TrackIndex{Frames: frames}
	opener := func(OpenOptions) (RawDecoder, error) { return newFakeDecoder(timeline), nil }
	return NewEngine(OpenOptions{}, opener, idx, 64*1024*1024, 1, avutil.NewRational(1, 1000))
}

// TestRFFSingleFrameLiteralExample pins the one worked example in the field
// expansion algorithm that is unambiguous: a single frame with
// repeat_pict=2 (4 field decisions) and top-field-first produces two
// displayed frames, both pairing the source frame with itself.
func TestRFFSingleFrameLiteralExample(t *testing.T) {
	e := newRFFTestEngine([]FrameInfo{{PTS: 0, RepeatPict: 2, TFF: true}})
	e.buildRFFFields()

	want := []rffField{{Top: 0, Bottom: 0}, {Top: 0, Bottom: 0}}
	if len(e.rff) != len(want) {
		t.Fatalf("got %d rff entries, want %d: %+v", len(e.rff), len(want), e.rff)
	}
	for i := range want {
		if e.rff[i] != want[i] {
			t.Fatalf("rff[%d] = %+v, want %+v", i, e.rff[i], want[i])
		}
	}
}

// TestRFFNoRepeatIsIdentity: a frame with repeat_pict=0 contributes exactly
// one top and one bottom field decision, both to itself, and needs no
// field merge to read back.
func TestRFFNoRepeatIsIdentity(t *testing.T) {
	e := newRFFTestEngine([]FrameInfo{{PTS: 0, RepeatPict: 0, TFF: true}})
	if n := e.NumRFFFrames(); n != 1 {
		t.Fatalf("NumRFFFrames = %d, want 1", n)
	}

	fr, err := e.GetFrameWithRFF(0)
	if err != nil {
		t.Fatalf("GetFrameWithRFF(0): %v", err)
	}
	if fr.Hash != 1 {
		t.Fatalf("GetFrameWithRFF(0) hash = %d, want 1", fr.Hash)
	}
}

// TestRFFBuildIsIdempotent: the expanded timeline is built once and reused.
func TestRFFBuildIsIdempotent(t *testing.T) {
	e := newRFFTestEngine([]FrameInfo{
		{PTS: 0, RepeatPict: 0, TFF: true},
		{PTS: 1, RepeatPict: 2, TFF: true},
		{PTS: 2, RepeatPict: 0, TFF: false},
	})
	first := e.NumRFFFrames()
	second := e.NumRFFFrames()
	if first != second {
		t.Fatalf("NumRFFFrames not idempotent: %d then %d", first, second)
	}
	if !e.rffBuilt {
		t.Fatal("expected rffBuilt to be set after building")
	}
}

// TestRFFFieldIndicesStayInRange exercises the invariant that every
// expanded (Top, Bottom) pair references existing source frames, for a
// timeline mixing repeated and non-repeated frames.
func TestRFFFieldIndicesStayInRange(t *testing.T) {
	frames := []FrameInfo{
		{PTS: 0, RepeatPict: 0, TFF: true},
		{PTS: 1, RepeatPict: 1, TFF: true},
		{PTS: 2, RepeatPict: 0, TFF: false},
		{PTS: 3, RepeatPict: 2, TFF: true},
		{PTS: 4, RepeatPict: 0, TFF: true},
	}
	e := newRFFTestEngine(frames)
	e.buildRFFFields()

	if len(e.rff) == 0 {
		t.Fatal("expected a non-empty expanded timeline")
	}
	for i, f := range e.rff {
		if f.Top < 0 || f.Top >= int64(len(frames)) || f.Bottom < 0 || f.Bottom >= int64(len(frames)) {
			t.Fatalf("rff[%d] = %+v references an out-of-range source frame", i, f)
		}
	}
	// Every source frame contributes at least one display, so the expanded
	// timeline can never be shorter than the source timeline.
	if int64(len(e.rff)) < e.NumFrames() {
		t.Fatalf("expanded timeline length %d shorter than source length %d", len(e.rff), e.NumFrames())
	}
}

// TestRFFGetFrameWithRFFOutOfRange is the RFF analogue of I2.
func TestRFFGetFrameWithRFFOutOfRange(t *testing.T) {
	e := newRFFTestEngine([]FrameInfo{{PTS: 0, RepeatPict: 0, TFF: true}})
	if _, err := e.GetFrameWithRFF(-1); !IsKind(err, KindArgumentOutOfRange) {
		t.Fatalf("GetFrameWithRFF(-1) err = %v, want ArgumentOutOfRange", err)
	}
	if _, err := e.GetFrameWithRFF(1); !IsKind(err, KindArgumentOutOfRange) {
		t.Fatalf("GetFrameWithRFF(1) err = %v, want ArgumentOutOfRange", err)
	}
}
