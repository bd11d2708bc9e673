package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/types"
)

type fakeTTS struct {
	calls []string
	err   error
}

func (f *fakeTTS) SynthesizeChunk(ctx context.Context, text, outPath string) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, text)
	return nil
}

// newStubbedEngine replaces the ffmpeg-backed internals so tests run without
// external binaries. Every speech chunk measures as chunkDur seconds.
func newStubbedEngine(t *testing.T, tts TTSClient, chunkDur float64) (*Engine, *[]float64) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Audio.DefaultSilence = 1.0
	cfg.Audio.SampleRate = 44100

	var silences []float64
	e := New(cfg, tts)
	e.measure = func(path string) (float64, error) { return chunkDur, nil }
	e.makeSilence = func(ctx context.Context, seconds float64, outPath string) error {
		silences = append(silences, seconds)
		return nil
	}
	e.concat = func(ctx context.Context, files []string, outPath string) error { return nil }
	return e, &silences
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSynthesizeTimeline(t *testing.T) {
	tts := &fakeTTS{}
	e, silences := newStubbedEngine(t, tts, 2.0)

	_, timeline, err := e.Synthesize(context.Background(), "Hello.[SILENCE:2.5]World.", t.TempDir())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(timeline) != 3 {
		t.Fatalf("got %d segments, want 3: %+v", len(timeline), timeline)
	}

	if timeline[0].Start != 0 {
		t.Errorf("first segment starts at %f, want 0", timeline[0].Start)
	}
	for i := 1; i < len(timeline); i++ {
		if !almostEqual(timeline[i].Start, timeline[i-1].End) {
			t.Errorf("gap between segments %d and %d: %f != %f",
				i-1, i, timeline[i-1].End, timeline[i].Start)
		}
	}

	if timeline[0].Type != types.SegmentSpeech || timeline[0].Text != "Hello." {
		t.Errorf("segment 0 = %+v", timeline[0])
	}
	if timeline[1].Type != types.SegmentSilence || timeline[1].Text != "[SILENCE]" {
		t.Errorf("segment 1 = %+v", timeline[1])
	}
	if !almostEqual(timeline[1].Duration(), 2.5) {
		t.Errorf("silence duration = %f, want 2.5", timeline[1].Duration())
	}
	if timeline[2].Type != types.SegmentSpeech || timeline[2].Text != "World." {
		t.Errorf("segment 2 = %+v", timeline[2])
	}

	if len(*silences) != 1 || !almostEqual((*silences)[0], 2.5) {
		t.Errorf("rendered silences = %v, want [2.5]", *silences)
	}
	if len(tts.calls) != 2 {
		t.Errorf("tts called for %v, want 2 speech chunks", tts.calls)
	}
}

func TestSynthesizeDefaultSilence(t *testing.T) {
	e, silences := newStubbedEngine(t, &fakeTTS{}, 1.5)

	_, timeline, err := e.Synthesize(context.Background(), "Before.[SILENCE]After.", t.TempDir())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(timeline) != 3 {
		t.Fatalf("got %d segments, want 3", len(timeline))
	}
	if !almostEqual(timeline[1].Duration(), 1.0) {
		t.Errorf("bare marker duration = %f, want configured default 1.0", timeline[1].Duration())
	}
	if len(*silences) != 1 {
		t.Errorf("rendered %d silences, want 1", len(*silences))
	}
}

func TestSynthesizeTTSFailure(t *testing.T) {
	tts := &fakeTTS{err: fmt.Errorf("voice service down")}
	e, _ := newStubbedEngine(t, tts, 2.0)

	_, _, err := e.Synthesize(context.Background(), "Some narration.", t.TempDir())
	var svcErr *types.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("got error %v, want ServiceError", err)
	}
	if svcErr.Service != "tts" {
		t.Errorf("service = %q, want tts", svcErr.Service)
	}
}

func TestSynthesizeEmptyInput(t *testing.T) {
	e, _ := newStubbedEngine(t, &fakeTTS{}, 2.0)

	path, timeline, err := e.Synthesize(context.Background(), "   ", t.TempDir())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if timeline != nil {
		t.Errorf("empty input produced segments: %+v", timeline)
	}
	if path == "" {
		t.Error("expected an output path even with no speech")
	}
}

func TestSplitOnSilence(t *testing.T) {
	parts := splitOnSilence("A[SILENCE]B[SILENCE:0.5]C")
	want := []string{"A", "[SILENCE]", "B", "[SILENCE:0.5]", "C"}
	if len(parts) != len(want) {
		t.Fatalf("got %d parts %v, want %v", len(parts), parts, want)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, parts[i], want[i])
		}
	}
}
