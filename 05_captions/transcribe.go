package captions

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AyoubElhamidi33/faceless/types"
)

// Transcribe is the secondary caption fallback: it runs the whisper CLI over
// the rendered audio and derives cues from its segment boundaries.
func Transcribe(ctx context.Context, audioFile, outputDir, model string) ([]types.CaptionCue, error) {
	log.Println("[captions] Running whisper transcription fallback...")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	if model == "" {
		model = "small"
	}

	cmd := exec.CommandContext(ctx,
		"whisper",
		audioFile,
		"--model", model,
		"--output_format", "srt",
		"--output_dir", outputDir,
		"--language", "en",
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, &types.ServiceError{Service: "transcription", Err: err}
	}

	base := strings.TrimSuffix(filepath.Base(audioFile), filepath.Ext(audioFile))
	srtFile := filepath.Join(outputDir, base+".srt")
	cues, err := ParseSRT(srtFile)
	if err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}
	log.Printf("[captions] ✅ Transcription produced %d cues", len(cues))
	return cues, nil
}

// ParseSRT reads a SubRip file into caption cues.
func ParseSRT(path string) ([]types.CaptionCue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cues []types.CaptionCue
	scanner := bufio.NewScanner(f)
	var cur *types.CaptionCue
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			if cur != nil && cur.Text != "" {
				cues = append(cues, *cur)
			}
			cur = nil
		case strings.Contains(line, "-->"):
			parts := strings.SplitN(line, "-->", 2)
			start, err1 := parseTimestamp(strings.TrimSpace(parts[0]))
			end, err2 := parseTimestamp(strings.TrimSpace(parts[1]))
			if err1 != nil || err2 != nil {
				continue
			}
			cur = &types.CaptionCue{Start: start, End: end}
		default:
			if cur != nil {
				if cur.Text != "" {
					cur.Text += " "
				}
				cur.Text += line
			}
		}
	}
	if cur != nil && cur.Text != "" {
		cues = append(cues, *cur)
	}
	return cues, scanner.Err()
}

// parseTimestamp reads "HH:MM:SS,mmm" into seconds.
func parseTimestamp(ts string) (float64, error) {
	ts = strings.ReplaceAll(ts, ",", ".")
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad timestamp %q", ts)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	secs, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return float64(hours)*3600 + float64(minutes)*60 + secs, nil
}
