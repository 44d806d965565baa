package vseek

import "github.com/vseek/vseek/avutil"

// CFRRemap exposes a constant-frame-rate view of an Engine's intrinsic
// frame timeline. CFR and RFF are mutually exclusive (enforced by config
// validation, not here).
type CFRRemap struct {
	engine    *Engine
	fpsNum    int32
	fpsDen    int32
	startTime float64
	timeBase  avutil.Rational

	numFrames int64
}

// NewCFRRemap builds a CFR view targeting fpsNum/fpsDen frames per second.
func NewCFRRemap(engine *Engine, vp VideoProperties, fpsNum, fpsDen int32) (*CFRRemap, error) {
	if fpsDen < 1 {
		return nil, errArgumentOutOfRange("fps_den must be >= 1, got %d", fpsDen)
	}
	durationSeconds := float64(vp.Duration) * float64(vp.TimeBase.Num) / float64(vp.TimeBase.Den)
	numFrames := int64(durationSeconds * float64(fpsNum) / float64(fpsDen))
	if numFrames < 1 {
		numFrames = 1
	}
	return &CFRRemap{
		engine:    engine,
		fpsNum:    fpsNum,
		fpsDen:    fpsDen,
		startTime: vp.StartTime,
		timeBase:  vp.TimeBase,
		numFrames: numFrames,
	}, nil
}

// NumFrames returns the CFR-remapped frame count.
func (c *CFRRemap) NumFrames() int64 { return c.numFrames }

// GetFrame serves frame n of the CFR timeline via GetFrameByTime.
func (c *CFRRemap) GetFrame(n int64) (*BestVideoFrame, error) {
	if n < 0 || n >= c.numFrames {
		return nil, errArgumentOutOfRange("cfr frame %d out of range [0, %d)", n, c.numFrames)
	}
	t := c.startTime + float64(n)*float64(c.fpsDen)/float64(c.fpsNum)
	return c.engine.GetFrameByTime(t)
}
