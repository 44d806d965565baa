package vseek

import "github.com/vseek/vseek/avutil"

// FrameInfo is the persisted per-frame record that makes up a TrackIndex.
type FrameInfo struct {
	Hash        uint64
	PTS         int64
	RepeatPict  int32
	KeyFrame    bool
	TFF         bool
}

// PTSUnset marks a frame that will never be used as a seek target.
const PTSUnset int64 = -1

// MasteringDisplay mirrors avutil.MasteringDisplayInfo at the core layer so
// callers never need to import the media layer directly.
type MasteringDisplay = avutil.MasteringDisplayInfo

// ContentLight mirrors avutil.ContentLightInfo.
type ContentLight = avutil.ContentLightInfo

// VideoProperties is the derived, caller-facing description of a track.
type VideoProperties struct {
	Width, Height int32
	PixFmt        int32
	PixFmtName    string

	FPS avutil.Rational

	Duration int64
	TimeBase avutil.Rational

	NumFrames    int64
	NumRFFFrames int64
	RFFUnused    bool

	StartTime float64

	SampleAspectRatio avutil.Rational

	Stereo3DType  int32
	Stereo3DFlags int32

	Rotation      int
	FlipHorizontal bool
	FlipVertical   bool

	HasMasteringDisplay bool
	MasteringDisplay    MasteringDisplay

	HasContentLight bool
	ContentLight    ContentLight
}

// BestVideoFrame is an owned, reference-counted clone of a decoded frame
// plus a flat view of its per-frame metadata. Release must be called
// exactly once when the caller is done with it.
type BestVideoFrame struct {
	frame      avutil.Frame
	repeatPict int32

	// Hash is the content hash computed once at decode time; the engine
	// reads it directly instead of re-hashing the underlying buffer.
	Hash uint64
	// Size is the approximate plane-buffer byte size computed once at
	// decode time, used for Frame Cache budget accounting.
	Size int64

	PTS           int64
	Duration      int64
	KeyFrame      bool
	PictureType   byte
	Interlaced    bool
	TFF           bool
	MatrixCoeffs  int32
	Primaries     int32
	Transfer      int32
	ChromaLoc     int32
	ColorRange    int32

	HasStereo3D      bool
	Stereo3D         avutil.Stereo3DInfo
	HasMasteringDisplay bool
	MasteringDisplay MasteringDisplay
	HasContentLight  bool
	ContentLight     ContentLight

	// DOVIRPU is the raw Dolby Vision RPU payload (AV_FRAME_DATA_DOVI_RPU_BUFFER),
	// nil when the frame carries none.
	DOVIRPU []byte
	// HDR10Plus is the raw serialised HDR10+ dynamic metadata payload
	// (AV_FRAME_DATA_DYNAMIC_HDR_PLUS), nil when the frame carries none.
	HDR10Plus []byte
}

// Frame returns the underlying decoded media-layer frame. Callers that only
// need metadata should avoid touching it.
func (f *BestVideoFrame) Frame() avutil.Frame { return f.frame }

// Release frees the underlying decoded frame. Safe to call once only.
func (f *BestVideoFrame) Release() {
	if f == nil || f.frame == nil {
		return
	}
	avutil.FrameFree(&f.frame)
	f.frame = nil
}

// clone returns a cheap reference-counted copy of f, sharing the decoded
// buffers but owning an independent AVFrame struct.
func (f *BestVideoFrame) clone() *BestVideoFrame {
	if f == nil {
		return nil
	}
	cp := *f
	if f.frame == nil {
		// No decoded buffer to share (a synthetic frame, e.g. in tests):
		// the metadata copy above is the whole clone.
		return &cp
	}
	dst := avutil.FrameAlloc()
	if err := avutil.FrameRef(dst, f.frame); err != nil {
		avutil.FrameFree(&dst)
		return nil
	}
	cp.frame = dst
	return &cp
}

// decoderSlot holds an optional owned RawDecoder plus its last-use
// sequence number within the pool.
type decoderSlot struct {
	decoder  RawDecoder
	lastUse  uint64
	inUse    bool
}

// rffField is one entry of the RFF-expanded virtual timeline: the source
// frame numbers contributing the top and bottom field of a displayed frame.
type rffField struct {
	Top    int64
	Bottom int64
}
