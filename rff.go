package vseek

// buildRFFFields lazily constructs the RFF-expanded virtual timeline, per
// §4.6.6: each source frame with repeat_pict = r and top-field-first tff
// emits r+2 field decisions alternating between top and bottom starting
// from tff; cursor imbalance at the end is resolved by duplicating the
// last available slot on the short side.
func (e *Engine) buildRFFFields() {
	if e.rffBuilt {
		return
	}
	e.rffBuilt = true

	var top, bottom []int64
	for i, fr := range e.index.Frames {
		fields := int(fr.RepeatPict) + 2
		tff := fr.TFF
		for f := 0; f < fields; f++ {
			isTop := tff
			if f%2 == 1 {
				isTop = !tff
			}
			if isTop {
				top = append(top, int64(i))
			} else {
				bottom = append(bottom, int64(i))
			}
		}
	}

	for len(top) < len(bottom) {
		top = append(top, top[len(top)-1])
	}
	for len(bottom) < len(top) {
		bottom = append(bottom, bottom[len(bottom)-1])
	}

	e.rff = make([]rffField, len(top))
	for i := range top {
		e.rff[i] = rffField{Top: top[i], Bottom: bottom[i]}
	}
}

// NumRFFFrames returns the length of the RFF-expanded virtual timeline,
// building it on first use.
func (e *Engine) NumRFFFrames() int64 {
	e.buildRFFFields()
	return int64(len(e.rff))
}

// GetFrameWithRFF implements the RFF-aware lookup described in §4.6.6.
func (e *Engine) GetFrameWithRFF(n int64) (*BestVideoFrame, error) {
	e.buildRFFFields()
	if n < 0 || n >= int64(len(e.rff)) {
		return nil, errArgumentOutOfRange("rff frame %d out of range [0, %d)", n, len(e.rff))
	}

	field := e.rff[n]
	if field.Top == field.Bottom {
		return e.GetFrame(field.Top, false)
	}

	topFrame, err := e.GetFrame(field.Top, false)
	if err != nil {
		return nil, err
	}
	bottomFrame, err := e.GetFrame(field.Bottom, false)
	if err != nil {
		topFrame.Release()
		return nil, err
	}

	host, contributor := topFrame, bottomFrame
	hostIsTop := true
	if field.Bottom < field.Top {
		host, contributor = bottomFrame, topFrame
		hostIsTop = false
	}

	if err := mergeField(host, contributor, hostIsTop); err != nil {
		topFrame.Release()
		bottomFrame.Release()
		return nil, err
	}

	if host == topFrame {
		bottomFrame.Release()
	} else {
		topFrame.Release()
	}
	return host, nil
}
