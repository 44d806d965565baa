package vseek

import (
	"testing"

	"github.com/vseek/vseek/avutil"
	"github.com/vseek/vseek/internal/bindings"
)

// requireFFmpeg skips t unless the FFmpeg shared libraries are loadable on
// this machine. Several tests in this package exercise the real
// FFmpegDecoder and need a working libavformat/libavcodec/libavutil.
func requireFFmpeg(t *testing.T) bool {
	t.Helper()
	if err := bindings.Load(); err != nil {
		t.Skipf("skipping: FFmpeg shared libraries not available: %v", err)
		return false
	}
	return true
}

// fakeDecoder is an in-memory RawDecoder driven by a precomputed timeline,
// used to exercise the Decoder Pool and Seek/Dispatch Engine without a real
// FFmpeg install.
type fakeDecoder struct {
	timeline []*BestVideoFrame

	pos       int64 // last emitted index, -1 before the first NextFrame
	hasSeeked bool
	closed    bool

	// badSeekPTS marks PTS values that should fail Seek, to exercise the
	// engine's retry/blacklist machinery.
	badSeekPTS map[int64]bool
}

func newFakeDecoder(timeline []*BestVideoFrame) *fakeDecoder {
	return &fakeDecoder{timeline: timeline, pos: -1}
}

func (d *fakeDecoder) NextFrame() (*BestVideoFrame, bool) {
	if d.closed {
		return nil, false
	}
	next := d.pos + 1
	if next >= int64(len(d.timeline)) {
		return nil, false
	}
	d.pos = next
	return d.timeline[next].clone(), true
}

func (d *fakeDecoder) Skip(n int64) {
	for i := int64(0); i < n; i++ {
		if _, ok := d.NextFrame(); !ok {
			return
		}
	}
}

func (d *fakeDecoder) Seek(pts int64) bool {
	if d.badSeekPTS[pts] {
		return false
	}
	for i, fr := range d.timeline {
		if fr.PTS == pts {
			d.pos = int64(i) - 1
			d.hasSeeked = true
			return true
		}
	}
	return false
}

func (d *fakeDecoder) FrameNumber() int64     { return d.pos }
func (d *fakeDecoder) SetFrameNumber(n int64) { d.pos = n }
func (d *fakeDecoder) HasSeeked() bool        { return d.hasSeeked }

func (d *fakeDecoder) VideoProperties() VideoProperties {
	return VideoProperties{
		Width: 16, Height: 16,
		TimeBase:  avutil.NewRational(1, 1000),
		NumFrames: int64(len(d.timeline)),
	}
}

func (d *fakeDecoder) Close() { d.closed = true }

// newFakeTimeline builds n frames with distinct hashes and PTS = index,
// key frames every keyInterval frames starting at index 100 (mirroring
// choose_seek_frame's i >= 100 floor).
func newFakeTimeline(n int, keyInterval int64) []*BestVideoFrame {
	out := make([]*BestVideoFrame, n)
	for i := 0; i < n; i++ {
		out[i] = &BestVideoFrame{
			Hash: uint64(i) + 1,
			PTS:  int64(i),
			Size: 1024,
		}
		if int64(i) >= 100 && keyInterval > 0 && int64(i)%keyInterval == 0 {
			out[i].KeyFrame = true
		}
	}
	return out
}

func indexFromTimeline(timeline []*BestVideoFrame) *TrackIndex {
	idx := &TrackIndex{}
	for _, fr := range timeline {
		idx.Frames = append(idx.Frames, FrameInfo{
			Hash:       fr.Hash,
			PTS:        fr.PTS,
			RepeatPict: fr.repeatPict,
			KeyFrame:   fr.KeyFrame,
			TFF:        fr.TFF,
		})
	}
	return idx
}

func newTestEngine(timeline []*BestVideoFrame) *Engine {
	idx := indexFromTimeline(timeline)
	opener := func(OpenOptions) (RawDecoder, error) {
		return newFakeDecoder(timeline), nil
	}
	return NewEngine(OpenOptions{}, opener, idx, 64*1024*1024, 1, avutil.NewRational(1, 1000))
}
