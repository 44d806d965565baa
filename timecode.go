package vseek

import (
	"bufio"
	"fmt"
	"os"

	"github.com/vseek/vseek/avutil"
)

// WriteTimecodes exports the track's intrinsic PTS timeline in timecode
// format v2: a header line followed by one millisecond timestamp per frame,
// in decoding order.
func WriteTimecodes(idx *TrackIndex, timeBase avutil.Rational, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errExportFailure(err, "creating timecode file %q", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("# timecode format v2\n"); err != nil {
		return errExportFailure(err, "writing timecode header")
	}
	for _, fr := range idx.Frames {
		ms := float64(fr.PTS) * float64(timeBase.Num) / float64(timeBase.Den)
		if _, err := fmt.Fprintf(w, "%.02f\n", ms); err != nil {
			return errExportFailure(err, "writing timecode line")
		}
	}
	return w.Flush()
}
