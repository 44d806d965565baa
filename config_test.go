package vseek

import "testing"

func TestSourceOptionsValidateDefaultsOK(t *testing.T) {
	opts := defaultSourceOptions()
	if err := opts.validate(); err != nil {
		t.Fatalf("default options should validate cleanly: %v", err)
	}
}

func TestSourceOptionsValidateRejectsNegativeHWFrames(t *testing.T) {
	opts := defaultSourceOptions()
	opts.extraHWFrames = -1
	if err := opts.validate(); !IsKind(err, KindArgumentOutOfRange) {
		t.Fatalf("got err = %v, want ArgumentOutOfRange", err)
	}
}

func TestSourceOptionsValidateRejectsSeekPreRollOutOfRange(t *testing.T) {
	opts := defaultSourceOptions()
	opts.seekPreRoll = -1
	if err := opts.validate(); !IsKind(err, KindArgumentOutOfRange) {
		t.Fatalf("got err = %v, want ArgumentOutOfRange for negative pre-roll", err)
	}

	opts = defaultSourceOptions()
	opts.seekPreRoll = 41
	if err := opts.validate(); !IsKind(err, KindArgumentOutOfRange) {
		t.Fatalf("got err = %v, want ArgumentOutOfRange for pre-roll above 40", err)
	}
}

func TestSourceOptionsValidateRejectsCFRAndRFFTogether(t *testing.T) {
	opts := defaultSourceOptions()
	WithCFR(30000, 1001)(&opts)
	WithRFF(true)(&opts)
	if err := opts.validate(); !IsKind(err, KindArgumentOutOfRange) {
		t.Fatalf("got err = %v, want ArgumentOutOfRange for CFR+RFF", err)
	}
}

func TestSourceOptionsValidateRejectsZeroFPSDen(t *testing.T) {
	opts := defaultSourceOptions()
	opts.cfrEnabled = true
	opts.fpsDen = 0
	if err := opts.validate(); !IsKind(err, KindArgumentOutOfRange) {
		t.Fatalf("got err = %v, want ArgumentOutOfRange for fps_den=0", err)
	}
}

func TestWithContainerOptionAccumulates(t *testing.T) {
	opts := defaultSourceOptions()
	WithContainerOption("probesize", "5000000")(&opts)
	WithContainerOption("analyzeduration", "10000000")(&opts)

	if opts.containerOptions["probesize"] != "5000000" {
		t.Fatalf("probesize = %q, want 5000000", opts.containerOptions["probesize"])
	}
	if opts.containerOptions["analyzeduration"] != "10000000" {
		t.Fatalf("analyzeduration = %q, want 10000000", opts.containerOptions["analyzeduration"])
	}
}

func TestSourceOptionsOpenOptionsCarriesFields(t *testing.T) {
	opts := defaultSourceOptions()
	WithTrack(2)(&opts)
	WithThreads(4)(&opts)
	WithHWDevice("cuda")(&opts)
	WithVariableFormat(true)(&opts)

	openOpts := opts.openOptions("movie.mkv")
	if openOpts.Source != "movie.mkv" {
		t.Fatalf("Source = %q, want movie.mkv", openOpts.Source)
	}
	if openOpts.Track != 2 {
		t.Fatalf("Track = %d, want 2", openOpts.Track)
	}
	if openOpts.ThreadCount != 4 {
		t.Fatalf("ThreadCount = %d, want 4", openOpts.ThreadCount)
	}
	if openOpts.HWDeviceName != "cuda" {
		t.Fatalf("HWDeviceName = %q, want cuda", openOpts.HWDeviceName)
	}
	if !openOpts.VariableFormat {
		t.Fatal("expected VariableFormat to be true")
	}
}
