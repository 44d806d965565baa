package vseek

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
)

const (
	indexMagic         = "BS2V"
	indexVersion byte  = 1
	maxInt64           = int64(^uint64(0) >> 1)
)

// ProgressFunc is invoked during indexing with (track, current, total);
// total == current == maxInt64 signals completion.
type ProgressFunc func(track int32, current, total int64)

// TrackIndex is the persisted, read-only-after-build frame table for one
// video track.
type TrackIndex struct {
	Frames             []FrameInfo
	LastFrameDuration  int64

	sourceSize     int64
	track          int32
	variableFormat bool
	hwDeviceName   string
	lavfOptions    map[string]string
}

// BuildTrackIndex opens a fresh RawDecoder via opener and runs it to EOF,
// appending one FrameInfo per decoded frame.
func BuildTrackIndex(opts OpenOptions, opener func(OpenOptions) (RawDecoder, error), progress ProgressFunc, sourceSize func() int64) (*TrackIndex, error) {
	dec, err := opener(opts)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	idx := &TrackIndex{
		track:          opts.Track,
		variableFormat: opts.VariableFormat,
		hwDeviceName:   opts.HWDeviceName,
		lavfOptions:    opts.LavfOptions,
	}
	if sourceSize != nil {
		idx.sourceSize = sourceSize()
	}

	var lastDuration int64
	for {
		frame, ok := dec.NextFrame()
		if !ok {
			break
		}
		fi := FrameInfo{
			Hash:       frame.Hash,
			PTS:        frame.PTS,
			RepeatPict: frameRepeatPict(frame),
			KeyFrame:   frame.KeyFrame,
			TFF:        frame.TFF,
		}
		idx.Frames = append(idx.Frames, fi)
		lastDuration = frame.Duration
		frame.Release()

		if progress != nil {
			progress(opts.Track, dec.FrameNumber(), maxInt64)
		}
	}
	idx.LastFrameDuration = lastDuration

	if progress != nil {
		progress(opts.Track, maxInt64, maxInt64)
	}

	if len(idx.Frames) == 0 {
		return nil, errIndexingFailure(nil, "sequential indexing decoded zero frames")
	}
	if idx.Frames[0].RepeatPict < 0 {
		return nil, errIndexQuirk("frames[0].repeat_pict is negative (unhandled RFF pattern)")
	}

	return idx, nil
}

func frameRepeatPict(frame *BestVideoFrame) int32 {
	return frame.repeatPict
}

// Write serialises the index to cachePath per the binary layout described
// in the external-interfaces section: magic, version, staleness fields,
// frame table.
func (idx *TrackIndex) Write(cachePath string) error {
	f, err := os.Create(cachePath)
	if err != nil {
		return errIndexingFailure(err, "creating index file %q", cachePath)
	}
	defer f.Close()

	w := bufio.NewWriter(f)

	if _, err := w.WriteString(indexMagic); err != nil {
		return err
	}
	if err := w.WriteByte(indexVersion); err != nil {
		return err
	}
	if err := writeU64(w, uint64(idx.sourceSize)); err != nil {
		return err
	}
	if err := writeI32(w, idx.track); err != nil {
		return err
	}
	if err := writeBool32(w, idx.variableFormat); err != nil {
		return err
	}
	if err := writeString(w, idx.hwDeviceName); err != nil {
		return err
	}
	if err := writeI32(w, int32(len(idx.lavfOptions))); err != nil {
		return err
	}

	keys := make([]string, 0, len(idx.lavfOptions))
	for k := range idx.lavfOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writeString(w, k); err != nil {
			return err
		}
		if err := writeString(w, idx.lavfOptions[k]); err != nil {
			return err
		}
	}

	if err := writeI64(w, int64(len(idx.Frames))); err != nil {
		return err
	}
	if err := writeI64(w, idx.LastFrameDuration); err != nil {
		return err
	}

	for _, fr := range idx.Frames {
		if err := writeU64(w, fr.Hash); err != nil {
			return err
		}
		if err := writeI64(w, fr.PTS); err != nil {
			return err
		}
		if err := writeI32(w, fr.RepeatPict); err != nil {
			return err
		}
		var flags int32
		if fr.KeyFrame {
			flags |= 1
		}
		if fr.TFF {
			flags |= 2
		}
		if err := writeI32(w, flags); err != nil {
			return err
		}
	}

	return w.Flush()
}

// ReadTrackIndex reads a previously written index and validates it against
// the current open parameters. Any mismatch returns a non-nil error that
// the caller should treat as "no index" and fall through to re-indexing.
func ReadTrackIndex(cachePath string, opts OpenOptions, sourceSize int64) (*TrackIndex, error) {
	f, err := os.Open(cachePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != indexMagic {
		return nil, errIndexQuirk("bad index magic")
	}
	version, err := r.ReadByte()
	if err != nil || version != indexVersion {
		return nil, errIndexQuirk("unsupported index version")
	}

	storedSize, err := readU64(r)
	if err != nil {
		return nil, err
	}
	track, err := readI32(r)
	if err != nil {
		return nil, err
	}
	variableFormat, err := readBool32(r)
	if err != nil {
		return nil, err
	}
	hwDeviceName, err := readString(r)
	if err != nil {
		return nil, err
	}
	n, err := readI32(r)
	if err != nil {
		return nil, err
	}
	opts2 := make(map[string]string, n)
	for i := int32(0); i < n; i++ {
		k, err := readString(r)
		if err != nil {
			return nil, err
		}
		v, err := readString(r)
		if err != nil {
			return nil, err
		}
		opts2[k] = v
	}

	if int64(storedSize) != sourceSize ||
		track != opts.Track ||
		variableFormat != opts.VariableFormat ||
		hwDeviceName != opts.HWDeviceName ||
		!optionsEqual(opts2, opts.LavfOptions) {
		return nil, errIndexQuirk("index is stale")
	}

	numFrames, err := readI64(r)
	if err != nil {
		return nil, err
	}
	lastDuration, err := readI64(r)
	if err != nil {
		return nil, err
	}

	idx := &TrackIndex{
		Frames:            make([]FrameInfo, numFrames),
		LastFrameDuration: lastDuration,
		sourceSize:        int64(storedSize),
		track:             track,
		variableFormat:    variableFormat,
		hwDeviceName:      hwDeviceName,
		lavfOptions:       opts2,
	}

	for i := int64(0); i < numFrames; i++ {
		hash, err := readU64(r)
		if err != nil {
			return nil, err
		}
		pts, err := readI64(r)
		if err != nil {
			return nil, err
		}
		repeatPict, err := readI32(r)
		if err != nil {
			return nil, err
		}
		flags, err := readI32(r)
		if err != nil {
			return nil, err
		}
		idx.Frames[i] = FrameInfo{
			Hash:       hash,
			PTS:        pts,
			RepeatPict: repeatPict,
			KeyFrame:   flags&1 != 0,
			TFF:        flags&2 != 0,
		}
	}

	return idx, nil
}

// indexPath derives the on-disk index location for a track: cachePath (or
// sourcePath when cachePath is empty) with a track-numbered suffix.
func indexPath(cachePath, sourcePath string, track int) string {
	base := cachePath
	if base == "" {
		base = sourcePath
	}
	return fmt.Sprintf("%s.vseekindex.%d", base, track)
}

func optionsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeI64(w io.Writer, v int64) error { return writeU64(w, uint64(v)) }

func writeI32(w io.Writer, v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	_, err := w.Write(buf[:])
	return err
}

func writeBool32(w io.Writer, b bool) error {
	if b {
		return writeI32(w, 1)
	}
	return writeI32(w, 0)
}

func writeString(w io.Writer, s string) error {
	if err := writeI32(w, int32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func readI64(r io.Reader) (int64, error) {
	v, err := readU64(r)
	return int64(v), err
}

func readI32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func readBool32(r io.Reader) (bool, error) {
	v, err := readI32(r)
	return v != 0, err
}

func readString(r io.Reader) (string, error) {
	n, err := readI32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
