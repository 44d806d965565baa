package vseek

import (
	"testing"

	"github.com/vseek/vseek/avutil"
)

func wantHash(n int64) uint64 { return uint64(n) + 1 }

func checkFrame(t *testing.T, e *Engine, n int64) {
	t.Helper()
	fr, err := e.GetFrame(n, false)
	if err != nil {
		t.Fatalf("GetFrame(%d): %v", n, err)
	}
	if fr == nil {
		t.Fatalf("GetFrame(%d): returned no frame", n)
	}
	if fr.Hash != wantHash(n) {
		t.Fatalf("GetFrame(%d) hash = %d, want %d", n, fr.Hash, wantHash(n))
	}
}

// TestEngineSequentialScan is S1: a full ascending scan returns every
// frame with the indexed hash.
func TestEngineSequentialScan(t *testing.T) {
	timeline := newFakeTimeline(250, 50)
	e := newTestEngine(timeline)
	for n := int64(0); n < e.NumFrames(); n++ {
		checkFrame(t, e, n)
	}
}

// TestEngineReverseScan is S2: a full descending scan still returns every
// frame with the indexed hash, regardless of how many seeks it costs.
func TestEngineReverseScan(t *testing.T) {
	timeline := newFakeTimeline(250, 50)
	e := newTestEngine(timeline)
	for n := e.NumFrames() - 1; n >= 0; n-- {
		checkFrame(t, e, n)
	}
}

// TestEngineRandomAccess is S3.
func TestEngineRandomAccess(t *testing.T) {
	timeline := newFakeTimeline(250, 50)
	e := newTestEngine(timeline)
	for _, n := range []int64{249, 0, 120, 50, 200, 1, 248} {
		checkFrame(t, e, n)
	}
}

// TestEngineGetFrameOutOfRange is I2.
func TestEngineGetFrameOutOfRange(t *testing.T) {
	timeline := newFakeTimeline(10, 0)
	e := newTestEngine(timeline)
	if _, err := e.GetFrame(-1, false); !IsKind(err, KindArgumentOutOfRange) {
		t.Fatalf("GetFrame(-1) err = %v, want ArgumentOutOfRange", err)
	}
	if _, err := e.GetFrame(10, false); !IsKind(err, KindArgumentOutOfRange) {
		t.Fatalf("GetFrame(10) err = %v, want ArgumentOutOfRange", err)
	}
}

// TestEngineRepeatedGetFrameIsStable is I3.
func TestEngineRepeatedGetFrameIsStable(t *testing.T) {
	timeline := newFakeTimeline(200, 50)
	e := newTestEngine(timeline)
	first, err := e.GetFrame(120, false)
	if err != nil {
		t.Fatalf("first GetFrame: %v", err)
	}
	second, err := e.GetFrame(120, false)
	if err != nil {
		t.Fatalf("second GetFrame: %v", err)
	}
	if first.Hash != second.Hash {
		t.Fatalf("hash drifted across repeated GetFrame: %d != %d", first.Hash, second.Hash)
	}
}

// TestEngineBadSeekLocationsAreSticky is the monotonicity half of I10: once
// a seek point is blacklisted it is never un-blacklisted.
func TestEngineBadSeekLocationsAreSticky(t *testing.T) {
	timeline := newFakeTimeline(300, 50)
	e := newTestEngine(timeline)
	e.badSeekLocations[150] = true

	if _, err := e.GetFrame(200, false); err != nil {
		t.Fatalf("GetFrame(200): %v", err)
	}
	if !e.badSeekLocations[150] {
		t.Fatal("expected pre-existing bad seek location to remain blacklisted")
	}
}

// TestEngineForceLinearModeIsPermanent is the permanence half of I10.
func TestEngineForceLinearModeIsPermanent(t *testing.T) {
	timeline := newFakeTimeline(200, 50)
	e := newTestEngine(timeline)
	e.ForceLinearMode()
	if !e.linearMode {
		t.Fatal("expected linear mode to be entered")
	}
	checkFrame(t, e, 150)
	if !e.linearMode {
		t.Fatal("expected linear mode to remain entered after serving a frame")
	}
}

// TestEngineGetFrameByTime is S6. GetFrameByTime's PTS formula scales
// seconds by 1000*time_base.Den/time_base.Num, so a time base of 1000/1
// makes PTS units line up 1:1 with the timeline's millisecond-scaled PTS
// values used elsewhere in this file.
func TestEngineGetFrameByTime(t *testing.T) {
	timeline := []*BestVideoFrame{
		{Hash: 1, PTS: 0},
		{Hash: 2, PTS: 33},
		{Hash: 3, PTS: 66},
		{Hash: 4, PTS: 100},
	}
	idx := indexFromTimeline(timeline)
	opener := func(OpenOptions) (RawDecoder, error) { return newFakeDecoder(timeline), nil }
	e := NewEngine(OpenOptions{}, opener, idx, 64*1024*1024, 1, avutil.NewRational(1000, 1))

	// 33.0s of "seconds" nearest-matches the frame at PTS 33 exactly.
	fr, err := e.GetFrameByTime(33.0)
	if err != nil {
		t.Fatalf("GetFrameByTime(33.0): %v", err)
	}
	if fr.PTS != 33 {
		t.Fatalf("GetFrameByTime(33.0) PTS = %d, want 33", fr.PTS)
	}

	// 50.0 is nearer to 66 (diff 16) than to 33 (diff 17).
	fr, err = e.GetFrameByTime(50.0)
	if err != nil {
		t.Fatalf("GetFrameByTime(50.0): %v", err)
	}
	if fr.PTS != 66 {
		t.Fatalf("GetFrameByTime(50.0) PTS = %d, want 66 (nearest)", fr.PTS)
	}

	// Past the end of the timeline clamps to the last frame.
	fr, err = e.GetFrameByTime(1000.0)
	if err != nil {
		t.Fatalf("GetFrameByTime(1000.0): %v", err)
	}
	if fr.PTS != 100 {
		t.Fatalf("GetFrameByTime(1000.0) PTS = %d, want 100 (last frame)", fr.PTS)
	}
}
