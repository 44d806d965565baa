package vseek

import "testing"

// stubDecoder is a minimal RawDecoder for exercising decoderPool in
// isolation, independent of the fakeDecoder timeline machinery.
type stubDecoder struct {
	frameNumber int64
	seeked      bool
	closed      bool
}

func (s *stubDecoder) NextFrame() (*BestVideoFrame, bool) {
	s.frameNumber++
	return fakeFrame(s.frameNumber), true
}

func (s *stubDecoder) Skip(n int64) { s.frameNumber += n }

func (s *stubDecoder) Seek(pts int64) bool {
	s.seeked = true
	s.frameNumber = -1
	return true
}

func (s *stubDecoder) FrameNumber() int64               { return s.frameNumber }
func (s *stubDecoder) SetFrameNumber(n int64)            { s.frameNumber = n }
func (s *stubDecoder) HasSeeked() bool                  { return s.seeked }
func (s *stubDecoder) VideoProperties() VideoProperties { return VideoProperties{} }
func (s *stubDecoder) Close()                           { s.closed = true }

func TestDecoderPoolAcquiresEmptySlotsFirst(t *testing.T) {
	p := newDecoderPool()
	seen := map[int]bool{}
	for i := 0; i < MaxVideoSources; i++ {
		slot := p.acquireSlot()
		if seen[slot] {
			t.Fatalf("slot %d returned twice before any slot was filled", slot)
		}
		seen[slot] = true
		p.set(slot, &stubDecoder{frameNumber: int64(i)})
	}
}

func TestDecoderPoolEvictsLRU(t *testing.T) {
	p := newDecoderPool()
	decoders := make([]*stubDecoder, MaxVideoSources)
	for i := 0; i < MaxVideoSources; i++ {
		decoders[i] = &stubDecoder{}
		p.set(i, decoders[i])
	}
	// Touch every slot but 1, making it the LRU target.
	for i := 0; i < MaxVideoSources; i++ {
		if i == 1 {
			continue
		}
		p.touch(i)
	}

	slot := p.acquireSlot()
	if slot != 1 {
		t.Fatalf("acquireSlot evicted slot %d, want 1 (least recently used)", slot)
	}
	if !decoders[1].closed {
		t.Fatal("expected evicted decoder to be closed")
	}
}

func TestDecoderPoolFindLinearContinuation(t *testing.T) {
	p := newDecoderPool()
	a := &stubDecoder{frameNumber: 10}
	b := &stubDecoder{frameNumber: 40}
	p.set(0, a)
	p.set(1, b)

	slot := p.findLinearContinuation(50, 0, false)
	if slot != 1 {
		t.Fatalf("findLinearContinuation returned slot %d, want 1 (closest frame_number <= 50)", slot)
	}

	if got := p.findLinearContinuation(5, 0, false); got != -1 {
		t.Fatalf("findLinearContinuation returned slot %d, want -1 (no decoder at or below frame 5)", got)
	}
}

func TestDecoderPoolFindLinearContinuationExcludesSeeked(t *testing.T) {
	p := newDecoderPool()
	a := &stubDecoder{frameNumber: 10, seeked: true}
	p.set(0, a)

	if got := p.findLinearContinuation(20, 0, true); got != -1 {
		t.Fatalf("expected seeked decoder to be excluded, got slot %d", got)
	}
	if got := p.findLinearContinuation(20, 0, false); got != 0 {
		t.Fatalf("expected seeked decoder to be eligible when not excluded, got slot %d", got)
	}
}

func TestDecoderPoolReleaseClosesDecoder(t *testing.T) {
	p := newDecoderPool()
	d := &stubDecoder{}
	p.set(0, d)
	p.release(0)
	if !d.closed {
		t.Fatal("expected release to close the decoder")
	}
	if p.decoderAt(0) != nil {
		t.Fatal("expected slot to be empty after release")
	}
}
