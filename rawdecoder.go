package vseek

import (
	"runtime"

	"github.com/vseek/vseek/avcodec"
	"github.com/vseek/vseek/avformat"
	"github.com/vseek/vseek/avutil"
)

// RawDecoder is a forward iterator over decoded frames of a single video
// track, with one coarse positioning primitive. Implementations need not be
// safe for concurrent use; the engine drives exactly one at a time.
type RawDecoder interface {
	// NextFrame returns the next successfully decoded frame and advances
	// FrameNumber, or (nil, false) at end of stream or on fatal error.
	NextFrame() (*BestVideoFrame, bool)

	// Skip advances n frames without materialising outputs.
	Skip(n int64)

	// Seek flushes codec buffers, resets FrameNumber to -1 and requests a
	// backward-direction seek to pts. Sets HasSeeked on success.
	Seek(pts int64) bool

	FrameNumber() int64
	// SetFrameNumber corrects the decoder's position tracking to the given
	// absolute frame index. Used once a seek's true landing position has
	// been disambiguated against the frame index, so that subsequent
	// FrameNumber() calls (and pool continuation lookups) report the true
	// index rather than a count relative to the seek.
	SetFrameNumber(n int64)
	HasSeeked() bool

	// VideoProperties may only be called once, before any user-visible
	// frame is emitted, while FrameNumber() == -1.
	VideoProperties() VideoProperties

	Close()
}

// OpenOptions configures how a RawDecoder opens its source.
type OpenOptions struct {
	Source         string
	HWDeviceName   string
	ExtraHWFrames  int32
	Track          int32
	VariableFormat bool
	ThreadCount    int32
	LavfOptions    map[string]string
}

const (
	avSeekFlagBackward int32 = 1
	avSeekFlagAny      int32 = 4
)

// FFmpegDecoder is the RawDecoder implementation backed by the FFmpeg
// shared libraries via the media layer.
type FFmpegDecoder struct {
	formatCtx avformat.FormatContext
	codecCtx  avcodec.Context
	packet    avcodec.Packet

	streamIndex int32
	timeBase    avutil.Rational
	codecID     avcodec.CodecID

	frameNumber int64
	hasSeeked   bool
	firstSeekDone bool

	hwDeviceName   string
	variableFormat bool

	opened bool
}

// OpenFFmpegDecoder opens a source according to opts. If opts.Track is
// negative, the (-Track-1)-th video track is chosen (-1 == first).
func OpenFFmpegDecoder(opts OpenOptions) (*FFmpegDecoder, error) {
	if err := validateOpenOptions(&opts); err != nil {
		return nil, err
	}

	d := &FFmpegDecoder{
		streamIndex:    -1,
		frameNumber:    -1,
		hwDeviceName:   opts.HWDeviceName,
		variableFormat: opts.VariableFormat,
	}

	var dict avutil.Dictionary
	for k, v := range opts.LavfOptions {
		if err := avutil.DictSet(&dict, k, v, 0); err != nil {
			if dict != nil {
				avutil.DictFree(&dict)
			}
			return nil, errOpenFailure(err, "setting container option %q", k)
		}
	}

	if err := avformat.OpenInput(&d.formatCtx, opts.Source, nil, &dict); err != nil {
		if dict != nil {
			avutil.DictFree(&dict)
		}
		return nil, errOpenFailure(err, "opening %q", opts.Source)
	}
	if dict != nil {
		avutil.DictFree(&dict)
	}

	if err := avformat.FindStreamInfo(d.formatCtx, nil); err != nil {
		avformat.CloseInput(&d.formatCtx)
		return nil, errOpenFailure(err, "probing stream info for %q", opts.Source)
	}

	streamIdx, err := selectVideoTrack(d.formatCtx, opts.Track)
	if err != nil {
		avformat.CloseInput(&d.formatCtx)
		return nil, err
	}
	d.streamIndex = streamIdx

	disableNonSelectedTracks(d.formatCtx, streamIdx)

	stream := avformat.GetStream(d.formatCtx, int(streamIdx))
	codecPar := avformat.GetStreamCodecPar(stream)
	codecID := avformat.GetCodecParCodecID(codecPar)
	tbNum, tbDen := avformat.GetStreamTimeBase(stream)
	d.timeBase = avutil.NewRational(tbNum, tbDen)

	d.codecID = codecID

	codec, err := chooseDecoder(codecID, opts.HWDeviceName != "")
	if err != nil {
		avformat.CloseInput(&d.formatCtx)
		return nil, err
	}

	d.codecCtx = avcodec.AllocContext3(codec)
	if d.codecCtx == nil {
		avformat.CloseInput(&d.formatCtx)
		return nil, errOpenFailure(nil, "allocating codec context")
	}
	if err := avcodec.ParametersToContext(d.codecCtx, codecPar); err != nil {
		avcodec.FreeContext(&d.codecCtx)
		avformat.CloseInput(&d.formatCtx)
		return nil, errOpenFailure(err, "copying codec parameters")
	}

	threads := resolveThreadCount(opts.ThreadCount, opts.HWDeviceName != "", codecID)
	avcodec.SetCtxThreadCount(d.codecCtx, threads)
	avcodec.SetCtxExtraHWFrames(d.codecCtx, opts.ExtraHWFrames)

	if !opts.VariableFormat {
		// AV_CODEC_FLAG2_DROPCHANGED: drop frames whose format/size differs
		// from the first decoded frame instead of propagating the change.
		const avCodecFlag2DropChanged = 1 << 5
		avutil.OptSetInt(d.codecCtx, "flags2", avCodecFlag2DropChanged, 0)
	}

	if codecID == avcodec.CodecIDH264 && avcodec.GetCtxHasBFrames(d.codecCtx) > 0 {
		avcodec.SetCtxHasBFrames(d.codecCtx, 15)
	}

	if opts.HWDeviceName != "" {
		if err := attachHWDevice(d.codecCtx, codec, opts.HWDeviceName); err != nil {
			avcodec.FreeContext(&d.codecCtx)
			avformat.CloseInput(&d.formatCtx)
			return nil, err
		}
	}

	if err := avcodec.Open2(d.codecCtx, codec, nil); err != nil {
		avcodec.FreeContext(&d.codecCtx)
		avformat.CloseInput(&d.formatCtx)
		return nil, errOpenFailure(err, "opening codec")
	}

	d.packet = avcodec.PacketAlloc()
	if d.packet == nil {
		d.Close()
		return nil, errOpenFailure(nil, "allocating packet")
	}

	d.opened = true
	return d, nil
}

func validateOpenOptions(opts *OpenOptions) error {
	if opts.ExtraHWFrames < 0 {
		return errArgumentOutOfRange("extra_hw_frames must be >= 0, got %d", opts.ExtraHWFrames)
	}
	return nil
}

func selectVideoTrack(ctx avformat.FormatContext, track int32) (int32, error) {
	n := avformat.GetNumStreams(ctx)
	if track >= 0 {
		if int(track) >= n {
			return 0, errTrackNotFound("track %d out of range (have %d streams)", track, n)
		}
		stream := avformat.GetStream(ctx, int(track))
		par := avformat.GetStreamCodecPar(stream)
		if avformat.GetCodecParType(par) != avutil.MediaTypeVideo {
			return 0, errOpenFailure(nil, "track %d is not a video track", track)
		}
		return track, nil
	}

	want := int(-track - 1)
	seen := 0
	for i := 0; i < n; i++ {
		stream := avformat.GetStream(ctx, i)
		par := avformat.GetStreamCodecPar(stream)
		if avformat.GetCodecParType(par) != avutil.MediaTypeVideo {
			continue
		}
		if seen == want {
			return int32(i), nil
		}
		seen++
	}
	return 0, errTrackNotFound("no video track at selector %d", track)
}

func disableNonSelectedTracks(ctx avformat.FormatContext, selected int32) {
	n := avformat.GetNumStreams(ctx)
	for i := 0; i < n; i++ {
		if int32(i) == selected {
			continue
		}
		avformat.SetStreamDiscard(avformat.GetStream(ctx, i), avformat.AVDiscardAll)
	}
}

func chooseDecoder(codecID avcodec.CodecID, hwMode bool) (avcodec.Codec, error) {
	if hwMode && codecID == avcodec.CodecIDAV1 {
		if c := avcodec.FindDecoderByName("av1"); c != nil {
			return c, nil
		}
	}
	codec := avcodec.FindDecoder(codecID)
	if codec == nil {
		return nil, errOpenFailure(nil, "no decoder available for codec id %d", codecID)
	}
	return codec, nil
}

func resolveThreadCount(requested int32, hwMode bool, codecID avcodec.CodecID) int32 {
	if requested > 0 {
		return requested
	}
	if !hwMode {
		n := runtime.NumCPU()
		if n > 16 {
			n = 16
		}
		return int32(n)
	}
	if codecID == avcodec.CodecIDH264 {
		return 1
	}
	return 2
}

func attachHWDevice(ctx avcodec.Context, codec avcodec.Codec, name string) error {
	devType := avutil.HWDeviceFindTypeByName(name)
	if devType == avutil.HWDeviceTypeNone {
		return errOpenFailure(nil, "unknown hardware device %q", name)
	}
	hwCtx, err := avutil.HWDeviceCtxCreate(devType)
	if err != nil {
		return errOpenFailure(err, "creating hardware device context for %q", name)
	}
	avcodec.SetCtxHWDeviceCtx(ctx, hwCtx)
	if _, ok := avcodec.FindHWPixFmt(codec, devType); !ok {
		return errOpenFailure(nil, "codec has no hardware configuration for device %q", name)
	}
	return nil
}

// NextFrame implements RawDecoder.
func (d *FFmpegDecoder) NextFrame() (*BestVideoFrame, bool) {
	if !d.opened {
		return nil, false
	}
	frame, err := d.decodeNext()
	if err != nil || frame == nil {
		return nil, false
	}
	d.frameNumber++
	return frame, true
}

func (d *FFmpegDecoder) decodeNext() (*BestVideoFrame, error) {
	out := avutil.FrameAlloc()
	for {
		if err := avcodec.ReceiveFrame(d.codecCtx, out); err == nil {
			return d.wrapFrame(out)
		} else if !avutil.IsAgain(err) {
			if !avutil.IsEOF(err) {
				avutil.FrameFree(&out)
				return nil, errDecodeFailure(err, "receive_frame")
			}
		}

		avcodec.PacketUnref(d.packet)
		readErr := avformat.ReadFrame(d.formatCtx, d.packet)
		if readErr != nil {
			avcodec.SendPacket(d.codecCtx, nil)
			if err := avcodec.ReceiveFrame(d.codecCtx, out); err == nil {
				return d.wrapFrame(out)
			}
			avutil.FrameFree(&out)
			return nil, nil
		}
		if avcodec.GetPacketStreamIndex(d.packet) != d.streamIndex {
			continue
		}
		if err := avcodec.SendPacket(d.codecCtx, d.packet); err != nil && !avutil.IsAgain(err) {
			avutil.FrameFree(&out)
			return nil, errDecodeFailure(err, "send_packet")
		}
	}
}

func (d *FFmpegDecoder) wrapFrame(frame avutil.Frame) (*BestVideoFrame, error) {
	bvf := &BestVideoFrame{frame: frame}
	populateFrameMetadata(bvf, frame)
	bvf.Hash = frameHash(frame)
	bvf.Size = frameByteSize(frame)
	return bvf, nil
}

// Skip implements RawDecoder.
func (d *FFmpegDecoder) Skip(n int64) {
	for i := int64(0); i < n; i++ {
		if _, ok := d.NextFrame(); !ok {
			return
		}
	}
}

// Seek implements RawDecoder.
func (d *FFmpegDecoder) Seek(pts int64) bool {
	if !d.opened {
		return false
	}
	if !d.firstSeekDone {
		d.firstSeekDone = true
		if d.codecID == avcodec.CodecIDH264 {
			d.NextFrame()
		}
	}
	avcodec.FlushBuffers(d.codecCtx)
	if err := avformat.SeekFrame(d.formatCtx, d.streamIndex, pts, avSeekFlagBackward); err != nil {
		return false
	}
	d.frameNumber = -1
	d.hasSeeked = true
	return true
}

// FrameNumber implements RawDecoder.
func (d *FFmpegDecoder) FrameNumber() int64 { return d.frameNumber }

// SetFrameNumber implements RawDecoder.
func (d *FFmpegDecoder) SetFrameNumber(n int64) { d.frameNumber = n }

// HasSeeked implements RawDecoder.
func (d *FFmpegDecoder) HasSeeked() bool { return d.hasSeeked }

// VideoProperties implements RawDecoder.
func (d *FFmpegDecoder) VideoProperties() VideoProperties {
	stream := avformat.GetStream(d.formatCtx, int(d.streamIndex))
	par := avformat.GetStreamCodecPar(stream)

	vp := VideoProperties{
		Width:    avformat.GetCodecParWidth(par),
		Height:   avformat.GetCodecParHeight(par),
		PixFmt:   avformat.GetCodecParFormat(par),
		TimeBase: d.timeBase,
	}

	if desc, ok := avutil.GetPixFmtDescriptor(vp.PixFmt); ok {
		vp.PixFmtName = desc.Name
	}

	fpsNum, fpsDen := avformat.GetStreamAvgFrameRate(stream)
	if fpsNum == 0 {
		fpsNum, fpsDen = avformat.GetStreamRFrameRate(stream)
	}
	vp.FPS = avutil.NewRational(fpsNum, fpsDen)

	vp.Duration = avformat.GetStreamDuration(stream)
	vp.NumFrames = avformat.GetStreamNbFrames(stream)
	if vp.NumFrames <= 0 && vp.Duration > 0 && fpsNum > 0 {
		vp.NumFrames = vp.Duration * int64(fpsNum) / (int64(fpsDen) * int64(vp.TimeBase.Den)) * int64(vp.TimeBase.Num)
	}

	vp.SampleAspectRatio = avformat.GetCodecParSampleAspectRatio(par)

	probe, ok := d.decodeProbeFrame()
	if ok {
		populateVideoPropertiesFromSideData(&vp, probe)
		avutil.FrameFree(&probe)
	}

	return vp
}

func (d *FFmpegDecoder) decodeProbeFrame() (avutil.Frame, bool) {
	frame, err := d.decodeNext()
	if err != nil || frame == nil {
		return nil, false
	}
	out := frame.frame
	frame.frame = nil
	return out, true
}

// Close implements RawDecoder.
func (d *FFmpegDecoder) Close() {
	if d.packet != nil {
		avcodec.PacketFree(&d.packet)
	}
	if d.codecCtx != nil {
		avcodec.FreeContext(&d.codecCtx)
	}
	if d.formatCtx != nil {
		avformat.CloseInput(&d.formatCtx)
	}
	d.opened = false
}
