package vseek

import "github.com/vseek/vseek/avutil"

// RetrySeekAttempts bounds how many times a bad seek point is retried
// before the engine gives up and enters permanent linear mode.
const RetrySeekAttempts = 3

// matchCapFrames bounds the worst-case ambiguity resolution window when
// disambiguating candidate seek positions in Seek And Decode.
const matchCapFrames = 10

// DecoderOpener creates a fresh RawDecoder for the given options. It is
// injected so the engine can be exercised against a fake decoder in tests
// without touching the FFmpeg shared libraries.
type DecoderOpener func(OpenOptions) (RawDecoder, error)

// Engine is the seek/dispatch layer driving a single video track: cache,
// decoder pool, bad-seek set and (once entered) permanent linear mode.
type Engine struct {
	opts   OpenOptions
	opener DecoderOpener
	index  *TrackIndex

	pool  *decoderPool
	cache *FrameCache

	badSeekLocations map[int64]bool
	linearMode       bool

	preRoll  int64
	timeBase avutil.Rational

	rff       []rffField
	rffBuilt  bool
}

// NewEngine constructs an Engine over an already-built TrackIndex.
func NewEngine(opts OpenOptions, opener DecoderOpener, index *TrackIndex, cacheBytes int64, preRoll int64, timeBase avutil.Rational) *Engine {
	return &Engine{
		opts:             opts,
		opener:           opener,
		index:            index,
		pool:             newDecoderPool(),
		cache:            NewFrameCache(cacheBytes),
		badSeekLocations: make(map[int64]bool),
		preRoll:          preRoll,
		timeBase:         timeBase,
	}
}

// NumFrames returns the number of indexed source frames.
func (e *Engine) NumFrames() int64 { return int64(len(e.index.Frames)) }

// ForceLinearMode permanently routes every subsequent request through
// Linear Internal, per the "force linear" hook.
func (e *Engine) ForceLinearMode() { e.enterLinearMode() }

func (e *Engine) enterLinearMode() {
	if e.linearMode {
		return
	}
	e.linearMode = true
	e.cache.Clear()
	e.pool.clear()
}

// GetFrame implements §4.6.1.
func (e *Engine) GetFrame(n int64, linearHint bool) (*BestVideoFrame, error) {
	if n < 0 || n >= e.NumFrames() {
		return nil, errArgumentOutOfRange("frame %d out of range [0, %d)", n, e.NumFrames())
	}

	if frame, ok := e.cache.Get(n); ok {
		return frame, nil
	}

	if linearHint || e.linearMode {
		return e.linearInternal(n, nil, 0, e.linearMode)
	}

	seekFrame := e.chooseSeekFrame(n)
	if seekFrame < 100 {
		return e.linearInternal(n, nil, 0, false)
	}

	if idx := e.pool.findLinearContinuation(n, seekFrame, false); idx >= 0 {
		return e.linearInternal(n, nil, 0, false)
	}

	slot := e.pool.acquireSlot()
	dec, err := e.ensureDecoder(slot)
	if err != nil {
		return nil, err
	}
	return e.seekAndDecode(n, seekFrame, slot, dec, 0)
}

func (e *Engine) ensureDecoder(slot int) (RawDecoder, error) {
	if dec := e.pool.decoderAt(slot); dec != nil {
		return dec, nil
	}
	dec, err := e.opener(e.opts)
	if err != nil {
		return nil, err
	}
	e.pool.set(slot, dec)
	return dec, nil
}

// chooseSeekFrame implements §4.6.2.
func (e *Engine) chooseSeekFrame(n int64) int64 {
	start := n - e.preRoll
	for i := start; i >= 100; i-- {
		if i >= e.NumFrames() {
			continue
		}
		fr := e.index.Frames[i]
		if fr.KeyFrame && fr.PTS != PTSUnset && !e.badSeekLocations[i] {
			return i
		}
	}
	return -1
}

// linearInternal implements §4.6.3.
func (e *Engine) linearInternal(n int64, seekFrame *int64, depth int, forceUnseeked bool) (*BestVideoFrame, error) {
	slot := e.pool.findLinearContinuation(n, 0, forceUnseeked)
	if slot < 0 {
		slot = e.pool.acquireSlot()
	}
	dec, err := e.ensureDecoder(slot)
	if err != nil {
		return nil, err
	}
	e.pool.touch(slot)

	var captured *BestVideoFrame

	for dec.FrameNumber() < n {
		target := n - e.preRoll
		if dec.FrameNumber() < target-1 {
			dec.Skip(target - 1 - dec.FrameNumber())
			continue
		}

		frame, ok := dec.NextFrame()
		if !ok {
			break
		}

		fn := dec.FrameNumber()
		gotHash := frame.Hash
		wantHash := e.index.Frames[fn].Hash

		if gotHash != wantHash {
			frame.Release()
			if dec.HasSeeked() {
				if seekFrame != nil {
					e.badSeekLocations[*seekFrame] = true
				}
				if depth < RetrySeekAttempts {
					var retryFloor int64 = 0
					if seekFrame != nil {
						retryFloor = *seekFrame - 100
					}
					newSeek := e.chooseSeekFrame(retryFloor)
					if newSeek < 100 {
						e.pool.release(slot)
						return e.linearInternal(n, nil, depth, forceUnseeked)
					}
					return e.seekAndDecode(n, newSeek, slot, dec, depth+1)
				}
				e.enterLinearMode()
				return e.linearInternal(n, nil, depth, true)
			}
			return nil, errDecodeFailure(nil, "linear decode returned out-of-order frame at %d", fn)
		}

		e.cache.Cache(fn, frame.clone(), frame.Size)
		if fn == n {
			captured = frame
		} else {
			frame.Release()
		}
	}

	if dec.FrameNumber() >= e.NumFrames()-1 {
		if _, ok := dec.NextFrame(); !ok {
			e.pool.release(slot)
		}
	}

	return captured, nil
}

// seekAndDecode implements §4.6.4.
func (e *Engine) seekAndDecode(n, seekFrame int64, slot int, dec RawDecoder, depth int) (*BestVideoFrame, error) {
	if !dec.Seek(e.index.Frames[seekFrame].PTS) {
		e.enterLinearMode()
		return e.linearInternal(n, nil, depth, true)
	}

	var match []*BestVideoFrame
	var matchHashes []uint64
	var captured *BestVideoFrame

	for {
		frame, ok := dec.NextFrame()
		eof := !ok
		if ok {
			match = append(match, frame)
			matchHashes = append(matchHashes, frame.Hash)
		}

		candidates := e.findCandidates(matchHashes)

		suitable := false
		for _, c := range candidates {
			if c <= n {
				suitable = true
				break
			}
		}
		undeterminable := len(candidates) > 1 && (eof || len(match) >= matchCapFrames)

		if !suitable || undeterminable {
			for _, m := range match {
				m.Release()
			}
			match = nil
			matchHashes = nil
			e.badSeekLocations[seekFrame] = true
			if depth+1 >= RetrySeekAttempts {
				e.enterLinearMode()
				return e.linearInternal(n, nil, depth+1, true)
			}
			newSeek := e.chooseSeekFrame(seekFrame - 100)
			if newSeek < 100 {
				e.pool.release(slot)
				return e.linearInternal(n, nil, depth+1, false)
			}
			return e.seekAndDecode(n, newSeek, slot, dec, depth+1)
		}

		if len(candidates) == 1 {
			m := candidates[0]
			dec.SetFrameNumber(m + int64(len(match)) - 1)
			for k, mm := range match {
				fn := m + int64(k)
				if fn >= n-e.preRoll {
					if fn == n {
						captured = mm.clone()
					}
					e.cache.Cache(fn, mm.clone(), mm.Size)
				}
				mm.Release()
			}
			if captured != nil {
				return captured, nil
			}
			sf := seekFrame
			return e.linearInternal(n, &sf, depth, false)
		}

		// len(candidates) > 1, not yet undeterminable (neither EOF nor the
		// match cap reached): pull one more frame and try again.
	}
}

// GetFrameByTime implements §4.6.7: find the frame whose PTS is nearest t
// seconds, ties broken toward the later frame, clamped to the last frame.
func (e *Engine) GetFrameByTime(tSeconds float64) (*BestVideoFrame, error) {
	tb := e.timeBase
	pts := int64(tSeconds*1000*float64(tb.Den)/float64(tb.Num) + 0.001)

	frames := e.index.Frames
	p := lowerBoundPTS(frames, pts)

	if p >= len(frames) {
		return e.GetFrame(int64(len(frames)-1), false)
	}

	best := p
	if p > 0 {
		lowerDiff := abs64(frames[p-1].PTS - pts)
		upperDiff := abs64(frames[p].PTS - pts)
		if lowerDiff < upperDiff {
			best = p - 1
		}
	}
	return e.GetFrame(int64(best), false)
}

func lowerBoundPTS(frames []FrameInfo, pts int64) int {
	lo, hi := 0, len(frames)
	for lo < hi {
		mid := (lo + hi) / 2
		if frames[mid].PTS < pts {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// findCandidates enumerates index positions i such that the consecutive
// hashes frames[i:i+len(hashes)] equal hashes in order.
func (e *Engine) findCandidates(hashes []uint64) []int64 {
	frames := e.index.Frames
	var candidates []int64
	limit := int64(len(frames)) - int64(len(hashes))
	for i := int64(0); i <= limit; i++ {
		ok := true
		for k, h := range hashes {
			if frames[i+int64(k)].Hash != h {
				ok = false
				break
			}
		}
		if ok {
			candidates = append(candidates, i)
		}
	}
	return candidates
}
