// Package captions maps word-level caption cues onto the narration timeline.
// Timing is a proportional approximation, not phoneme alignment.
package captions

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/types"
)

// Build produces one cue per word from the timeline's speech segments.
// Silence segments contribute no cues and therefore no screen time. Each
// segment's duration is divided evenly across its words; cues never extend
// past the parent segment's end.
func Build(timeline []types.AudioSegment, cfg config.CaptionsConfig) []types.CaptionCue {
	var cues []types.CaptionCue
	for _, seg := range timeline {
		if seg.Type != types.SegmentSpeech {
			continue
		}
		words := strings.Fields(seg.Text)
		if len(words) == 0 {
			continue
		}
		perWord := seg.Duration() / float64(len(words))
		for i, w := range words {
			if cfg.Uppercase {
				w = strings.ToUpper(w)
			}
			start := seg.Start + float64(i)*perWord
			end := start + perWord
			if i == len(words)-1 {
				end = seg.End
			}
			cues = append(cues, types.CaptionCue{
				Text:   w,
				Start:  start,
				End:    end,
				FadeIn: perWord > cfg.FadeInThreshold,
			})
		}
	}
	return cues
}

// BuildFromWords evenly distributes the total narration duration across a
// flat word list. Degraded mode: it ignores pauses, kept only for when no
// timeline exists.
func BuildFromWords(words []string, totalDuration float64, cfg config.CaptionsConfig) []types.CaptionCue {
	var clean []string
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			clean = append(clean, w)
		}
	}
	if len(clean) == 0 || totalDuration <= 0 {
		return nil
	}
	perWord := totalDuration / float64(len(clean))
	cues := make([]types.CaptionCue, 0, len(clean))
	for i, w := range clean {
		if cfg.Uppercase {
			w = strings.ToUpper(w)
		}
		start := float64(i) * perWord
		end := start + perWord
		if i == len(clean)-1 {
			end = totalDuration
		}
		cues = append(cues, types.CaptionCue{
			Text:   w,
			Start:  start,
			End:    end,
			FadeIn: perWord > cfg.FadeInThreshold,
		})
	}
	return cues
}

// WriteSRT renders cues in SubRip format for the renderer's burn step.
func WriteSRT(cues []types.CaptionCue, path string) error {
	var sb strings.Builder
	for i, c := range cues {
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", formatTimestamp(c.Start), formatTimestamp(c.End)))
		sb.WriteString(c.Text + "\n\n")
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

func formatTimestamp(seconds float64) string {
	// round to whole milliseconds first so 3723.2 renders as ,200 and not ,199
	totalMillis := int(math.Round(seconds * 1000))
	hours := totalMillis / 3600000
	minutes := totalMillis % 3600000 / 60000
	secs := totalMillis % 60000 / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
