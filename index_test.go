package vseek

import (
	"path/filepath"
	"testing"
)

func buildTestIndex(t *testing.T, timeline []*BestVideoFrame, opts OpenOptions) *TrackIndex {
	t.Helper()
	opener := func(OpenOptions) (RawDecoder, error) { return newFakeDecoder(timeline), nil }
	idx, err := BuildTrackIndex(opts, opener, nil, func() int64 { return 12345 })
	if err != nil {
		t.Fatalf("BuildTrackIndex: %v", err)
	}
	return idx
}

// TestBuildTrackIndexRecordsEveryFrame is part of I7.
func TestBuildTrackIndexRecordsEveryFrame(t *testing.T) {
	timeline := newFakeTimeline(40, 10)
	idx := buildTestIndex(t, timeline, OpenOptions{Track: 0})

	if len(idx.Frames) != len(timeline) {
		t.Fatalf("got %d frames, want %d", len(idx.Frames), len(timeline))
	}
	for i, fr := range idx.Frames {
		if fr.Hash != timeline[i].Hash || fr.PTS != timeline[i].PTS {
			t.Fatalf("frame %d = %+v, want hash %d pts %d", i, fr, timeline[i].Hash, timeline[i].PTS)
		}
	}
}

// TestBuildTrackIndexRejectsEmptyStream checks the zero-frames failure path.
func TestBuildTrackIndexRejectsEmptyStream(t *testing.T) {
	opener := func(OpenOptions) (RawDecoder, error) { return newFakeDecoder(nil), nil }
	if _, err := BuildTrackIndex(OpenOptions{}, opener, nil, nil); !IsKind(err, KindIndexingFailure) {
		t.Fatalf("got err = %v, want IndexingFailure", err)
	}
}

// TestTrackIndexWriteReadRoundTrip is I7: a written index, read back with
// identical open parameters, reproduces every frame exactly.
func TestTrackIndexWriteReadRoundTrip(t *testing.T) {
	timeline := newFakeTimeline(30, 10)
	opts := OpenOptions{Track: 2, VariableFormat: true, LavfOptions: map[string]string{"probesize": "1000000"}}
	idx := buildTestIndex(t, timeline, opts)
	idx.sourceSize = 12345

	path := filepath.Join(t.TempDir(), "track.idx")
	if err := idx.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := ReadTrackIndex(path, opts, 12345)
	if err != nil {
		t.Fatalf("ReadTrackIndex: %v", err)
	}
	if len(got.Frames) != len(idx.Frames) {
		t.Fatalf("got %d frames, want %d", len(got.Frames), len(idx.Frames))
	}
	for i := range idx.Frames {
		if got.Frames[i] != idx.Frames[i] {
			t.Fatalf("frame %d = %+v, want %+v", i, got.Frames[i], idx.Frames[i])
		}
	}
	if got.LastFrameDuration != idx.LastFrameDuration {
		t.Fatalf("LastFrameDuration = %d, want %d", got.LastFrameDuration, idx.LastFrameDuration)
	}
}

// TestTrackIndexReadRejectsStaleSize is S4: a changed source size
// invalidates a previously written index.
func TestTrackIndexReadRejectsStaleSize(t *testing.T) {
	timeline := newFakeTimeline(10, 0)
	opts := OpenOptions{Track: 0}
	idx := buildTestIndex(t, timeline, opts)
	idx.sourceSize = 1000

	path := filepath.Join(t.TempDir(), "track.idx")
	if err := idx.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if _, err := ReadTrackIndex(path, opts, 2000); !IsKind(err, KindIndexQuirk) {
		t.Fatalf("got err = %v, want IndexQuirk on size mismatch", err)
	}
}

// TestTrackIndexReadRejectsMismatchedOptions is S4's options-staleness half.
func TestTrackIndexReadRejectsMismatchedOptions(t *testing.T) {
	timeline := newFakeTimeline(10, 0)
	opts := OpenOptions{Track: 0}
	idx := buildTestIndex(t, timeline, opts)
	idx.sourceSize = 1000

	path := filepath.Join(t.TempDir(), "track.idx")
	if err := idx.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	otherOpts := OpenOptions{Track: 1}
	if _, err := ReadTrackIndex(path, otherOpts, 1000); !IsKind(err, KindIndexQuirk) {
		t.Fatalf("got err = %v, want IndexQuirk on track mismatch", err)
	}
}

// TestTrackIndexReadRejectsMissingFile confirms the "treat as no index"
// contract when there simply is no cached index yet.
func TestTrackIndexReadRejectsMissingFile(t *testing.T) {
	if _, err := ReadTrackIndex(filepath.Join(t.TempDir(), "missing.idx"), OpenOptions{}, 0); err == nil {
		t.Fatal("expected an error reading a nonexistent index file")
	}
}

func TestIndexPathUsesCachePathWhenSet(t *testing.T) {
	got := indexPath("/cache/movie.cache", "/media/movie.mkv", 0)
	want := "/cache/movie.cache.vseekindex.0"
	if got != want {
		t.Fatalf("indexPath = %q, want %q", got, want)
	}
}

func TestIndexPathFallsBackToSourcePath(t *testing.T) {
	got := indexPath("", "/media/movie.mkv", 3)
	want := "/media/movie.mkv.vseekindex.3"
	if got != want {
		t.Fatalf("indexPath = %q, want %q", got, want)
	}
}
