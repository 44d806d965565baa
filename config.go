package vseek

import (
	"os"
)

// sourceOptions configures how a Source is opened.
type sourceOptions struct {
	track          int32
	variableFormat bool

	fpsNum, fpsDen int32
	cfrEnabled     bool
	rff            bool

	threads       int32
	seekPreRoll   int64
	extraHWFrames int32
	hwDevice      string

	cachePath    string
	cacheSizeMiB int64

	containerOptions map[string]string
	progress         ProgressFunc
}

func defaultSourceOptions() sourceOptions {
	return sourceOptions{
		track:         -1,
		fpsDen:        1,
		seekPreRoll:   1,
		extraHWFrames: 9,
		cacheSizeMiB:  768,
	}
}

// SourceOption is a functional option for configuring a Source at Open time.
type SourceOption func(*sourceOptions)

// WithTrack selects a track by index, or by the negative "pick the n-th
// video track" convention (-1 == first) when negative.
func WithTrack(track int32) SourceOption {
	return func(o *sourceOptions) { o.track = track }
}

// WithVariableFormat allows the decoded frame format to change mid-stream
// instead of dropping frames that drift from the first decoded format.
func WithVariableFormat(enabled bool) SourceOption {
	return func(o *sourceOptions) { o.variableFormat = enabled }
}

// WithCFR enables constant-frame-rate remapping at fpsNum/fpsDen frames per
// second. Mutually exclusive with WithRFF.
func WithCFR(fpsNum, fpsDen int32) SourceOption {
	return func(o *sourceOptions) {
		o.cfrEnabled = true
		o.fpsNum = fpsNum
		o.fpsDen = fpsDen
	}
}

// WithRFF enables the RFF-expanded virtual frame timeline. Mutually
// exclusive with WithCFR.
func WithRFF(enabled bool) SourceOption {
	return func(o *sourceOptions) { o.rff = enabled }
}

// WithThreads overrides decoder thread-count selection. 0 (the default)
// selects automatically per §4.1.
func WithThreads(n int32) SourceOption {
	return func(o *sourceOptions) { o.threads = n }
}

// WithSeekPreRoll sets how many frames before the requested frame the
// engine seeks to before decoding forward. Must be within 0..40.
func WithSeekPreRoll(n int64) SourceOption {
	return func(o *sourceOptions) { o.seekPreRoll = n }
}

// WithExtraHWFrames sets the extra hardware frame pool headroom. Must be
// >= 0.
func WithExtraHWFrames(n int32) SourceOption {
	return func(o *sourceOptions) { o.extraHWFrames = n }
}

// WithHWDevice selects a hardware acceleration device by name (e.g. "cuda",
// "vaapi"). Empty (the default) selects software decoding.
func WithHWDevice(name string) SourceOption {
	return func(o *sourceOptions) { o.hwDevice = name }
}

// WithCachePath sets where the on-disk index is read from and written to.
// Empty (the default) derives it from the source path.
func WithCachePath(path string) SourceOption {
	return func(o *sourceOptions) { o.cachePath = path }
}

// WithCacheSizeMiB sets the Frame Cache byte budget, in mebibytes.
func WithCacheSizeMiB(mib int64) SourceOption {
	return func(o *sourceOptions) { o.cacheSizeMiB = mib }
}

// WithContainerOption sets one opaque key/value pair passed through to the
// underlying demuxer (avformat_open_input's AVDictionary).
func WithContainerOption(key, value string) SourceOption {
	return func(o *sourceOptions) {
		if o.containerOptions == nil {
			o.containerOptions = make(map[string]string)
		}
		o.containerOptions[key] = value
	}
}

// WithProgress installs a callback invoked during indexing.
func WithProgress(fn ProgressFunc) SourceOption {
	return func(o *sourceOptions) { o.progress = fn }
}

// validate implements the ArgumentOutOfRange checks of §7.
func (o *sourceOptions) validate() error {
	if o.extraHWFrames < 0 {
		return errArgumentOutOfRange("extra_hw_frames must be >= 0, got %d", o.extraHWFrames)
	}
	if o.seekPreRoll < 0 || o.seekPreRoll > 40 {
		return errArgumentOutOfRange("seek_pre_roll must be within 0..40, got %d", o.seekPreRoll)
	}
	if o.cfrEnabled && o.rff {
		return errArgumentOutOfRange("fps_num/fps_den (CFR) and rff are mutually exclusive")
	}
	if o.cfrEnabled && o.fpsDen < 1 {
		return errArgumentOutOfRange("fps_den must be >= 1, got %d", o.fpsDen)
	}
	return nil
}

func (o *sourceOptions) openOptions(sourcePath string) OpenOptions {
	return OpenOptions{
		Source:         sourcePath,
		HWDeviceName:   o.hwDevice,
		ExtraHWFrames:  o.extraHWFrames,
		Track:          o.track,
		VariableFormat: o.variableFormat,
		ThreadCount:    o.threads,
		LavfOptions:    o.containerOptions,
	}
}

// Source is the caller-facing handle produced by Open: an indexed track
// plus an Engine ready to serve GetFrame/GetFrameByTime/GetFrameWithRFF,
// optionally wrapped in a CFR remap.
type Source struct {
	opts OpenOptions
	idx  *TrackIndex
	vp   VideoProperties

	engine *Engine
	cfr    *CFRRemap

	cfrEnabled bool
	rffEnabled bool
}

// Open indexes sourcePath (reusing a valid on-disk index when present) and
// constructs a ready-to-query Source.
func Open(sourcePath string, options ...SourceOption) (*Source, error) {
	opts := defaultSourceOptions()
	for _, opt := range options {
		opt(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	openOpts := opts.openOptions(sourcePath)
	path := indexPath(opts.cachePath, sourcePath, int(openOpts.Track))
	size := statSize(sourcePath)

	idx, err := ReadTrackIndex(path, openOpts, size)
	if err != nil {
		idx, err = BuildTrackIndex(openOpts, OpenFFmpegDecoderAsRawDecoder, opts.progress, func() int64 { return size })
		if err != nil {
			return nil, err
		}
		_ = idx.Write(path)
	}

	probe, err := OpenFFmpegDecoder(openOpts)
	if err != nil {
		return nil, err
	}
	vp := probe.VideoProperties()
	probe.Close()

	cacheBytes := opts.cacheSizeMiB * 1024 * 1024
	engine := NewEngine(openOpts, OpenFFmpegDecoderAsRawDecoder, idx, cacheBytes, opts.seekPreRoll, vp.TimeBase)

	vp.NumFrames = engine.NumFrames()
	if opts.rff {
		vp.NumRFFFrames = engine.NumRFFFrames()
		vp.RFFUnused = vp.NumRFFFrames == vp.NumFrames
	}

	src := &Source{
		opts:       openOpts,
		idx:        idx,
		vp:         vp,
		engine:     engine,
		rffEnabled: opts.rff,
	}

	if opts.cfrEnabled {
		cfr, err := NewCFRRemap(engine, vp, opts.fpsNum, opts.fpsDen)
		if err != nil {
			return nil, err
		}
		src.cfr = cfr
		src.cfrEnabled = true
	}

	return src, nil
}

// OpenFFmpegDecoderAsRawDecoder adapts OpenFFmpegDecoder to DecoderOpener.
func OpenFFmpegDecoderAsRawDecoder(opts OpenOptions) (RawDecoder, error) {
	return OpenFFmpegDecoder(opts)
}

// VideoProperties returns the track's derived properties.
func (s *Source) VideoProperties() VideoProperties { return s.vp }

// NumFrames returns the caller-visible frame count: the CFR-remapped count
// when CFR is enabled, the RFF-expanded count when RFF is enabled, else the
// intrinsic indexed frame count.
func (s *Source) NumFrames() int64 {
	switch {
	case s.cfrEnabled:
		return s.cfr.NumFrames()
	case s.rffEnabled:
		return s.engine.NumRFFFrames()
	default:
		return s.engine.NumFrames()
	}
}

// GetFrame serves frame n of the caller-visible timeline.
func (s *Source) GetFrame(n int64) (*BestVideoFrame, error) {
	switch {
	case s.cfrEnabled:
		return s.cfr.GetFrame(n)
	case s.rffEnabled:
		return s.engine.GetFrameWithRFF(n)
	default:
		return s.engine.GetFrame(n, false)
	}
}

// GetFrameByTime serves the frame nearest tSeconds on the intrinsic
// timeline, bypassing any CFR/RFF remap.
func (s *Source) GetFrameByTime(tSeconds float64) (*BestVideoFrame, error) {
	return s.engine.GetFrameByTime(tSeconds)
}

// WriteTimecodes exports the intrinsic PTS timeline.
func (s *Source) WriteTimecodes(path string) error {
	return WriteTimecodes(s.idx, s.vp.TimeBase, path)
}

func statSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
