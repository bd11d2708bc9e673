// Package audio builds the narration track: it splits text on silence
// markers, synthesizes each speech chunk, and accumulates a contiguous
// time-stamped timeline.
package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/types"
)

// silencePattern matches [SILENCE] and [SILENCE:<seconds>] markers.
var silencePattern = regexp.MustCompile(`\[SILENCE(?::([\d.]+))?\]`)

// TTSClient synthesizes one chunk of text into an audio file.
type TTSClient interface {
	SynthesizeChunk(ctx context.Context, text, outPath string) error
}

// Engine drives chunked synthesis and timeline assembly.
type Engine struct {
	cfg *config.Config
	tts TTSClient

	// overridable for tests; defaults shell out to ffprobe/ffmpeg
	measure     func(path string) (float64, error)
	makeSilence func(ctx context.Context, seconds float64, outPath string) error
	concat      func(ctx context.Context, files []string, outPath string) error
}

func New(cfg *config.Config, tts TTSClient) *Engine {
	e := &Engine{cfg: cfg, tts: tts}
	e.measure = probeDuration
	e.makeSilence = e.renderSilence
	e.concat = concatChunks
	return e
}

// Synthesize converts narration text into one continuous audio file plus its
// segment timeline. Segments are contiguous: each start equals the previous
// end, and the first start is zero. A chunk synthesis failure aborts the
// whole call — no text is ever dropped from the timeline silently.
func (e *Engine) Synthesize(ctx context.Context, text, jobDir string) (string, []types.AudioSegment, error) {
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return "", nil, err
	}

	var (
		timeline   []types.AudioSegment
		chunkFiles []string
		current    float64
	)

	for i, part := range splitOnSilence(text) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if m := silencePattern.FindStringSubmatch(part); m != nil && m[0] == part {
			duration := e.cfg.Audio.DefaultSilence
			if m[1] != "" {
				d, err := strconv.ParseFloat(m[1], 64)
				if err != nil {
					return "", nil, fmt.Errorf("bad silence marker %q: %w", part, err)
				}
				duration = d
			}
			log.Printf("[audio] Inserting silence (%.1fs)", duration)

			silencePath := filepath.Join(jobDir, fmt.Sprintf("chunk_%03d_silence.mp3", i))
			if err := e.makeSilence(ctx, duration, silencePath); err != nil {
				return "", nil, fmt.Errorf("render silence: %w", err)
			}
			chunkFiles = append(chunkFiles, silencePath)
			timeline = append(timeline, types.AudioSegment{
				Start: current,
				End:   current + duration,
				Text:  "[SILENCE]",
				Type:  types.SegmentSilence,
			})
			current += duration
			continue
		}

		log.Printf("[audio] Synthesizing chunk %d (%d chars)...", i, len(part))
		chunkPath := filepath.Join(jobDir, fmt.Sprintf("chunk_%03d.mp3", i))
		if err := e.tts.SynthesizeChunk(ctx, part, chunkPath); err != nil {
			return "", nil, &types.ServiceError{Service: "tts", Err: fmt.Errorf("chunk %d: %w", i, err)}
		}
		duration, err := e.measure(chunkPath)
		if err != nil {
			return "", nil, fmt.Errorf("measure chunk %d: %w", i, err)
		}
		chunkFiles = append(chunkFiles, chunkPath)
		timeline = append(timeline, types.AudioSegment{
			Start: current,
			End:   current + duration,
			Text:  part,
			Type:  types.SegmentSpeech,
		})
		current += duration
	}

	outPath := filepath.Join(jobDir, "voiceover.mp3")
	if len(chunkFiles) == 0 {
		// explicit "no speech generated" case
		return outPath, nil, nil
	}
	if err := e.concat(ctx, chunkFiles, outPath); err != nil {
		return "", nil, fmt.Errorf("concatenate audio: %w", err)
	}

	log.Printf("[audio] ✅ Voiceover ready: %s (%.1fs, %d segments)", outPath, current, len(timeline))
	return outPath, timeline, nil
}

// splitOnSilence cuts the text around silence markers, keeping the markers
// as their own parts.
func splitOnSilence(text string) []string {
	locs := silencePattern.FindAllStringIndex(text, -1)
	var parts []string
	last := 0
	for _, loc := range locs {
		parts = append(parts, text[last:loc[0]], text[loc[0]:loc[1]])
		last = loc[1]
	}
	return append(parts, text[last:])
}

// probeDuration uses ffprobe to get accurate audio duration in seconds
func probeDuration(audioFile string) (float64, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioFile,
	).Output()
	if err != nil {
		return 0, err
	}
	var dur float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur)
	return dur, err
}

// renderSilence writes a silent mp3 of the given length.
func (e *Engine) renderSilence(ctx context.Context, seconds float64, outPath string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=stereo", e.cfg.Audio.SampleRate),
		"-t", fmt.Sprintf("%.3f", seconds),
		"-c:a", "libmp3lame",
		"-q:a", "9",
		outPath,
	)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// concatChunks uses ffmpeg to join all chunk files in order
func concatChunks(ctx context.Context, files []string, outPath string) error {
	listFile := filepath.Join(filepath.Dir(outPath), "concat_list.txt")
	var lines []string
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("file '%s'", f))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outPath,
	)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
