// Package storyboard turns a validated script into the fixed 16 visual
// slots, carrying continuity state deterministically across them even when
// the writer omits or contradicts per-scene detail.
package storyboard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/types"
)

// SceneCount is the fixed number of visual slots per video.
const SceneCount = 16

// timeStepMinutes is the story-time advance per slot.
const timeStepMinutes = 2

var eventLighting = map[types.EventType]string{
	types.EventNormal:     "Natural cinematic lighting, soft shadows",
	types.EventWarning:    "Dim lighting, long unsettled shadows, atmospheric gloom",
	types.EventEscalation: "High contrast, harsh noir lighting, stark shadows",
	types.EventDanger:     "Chaotic lighting, intense highlights, deep blacks, rim lighting",
	types.EventAftermath:  "Cold, desaturated diffuse light, flat contrast, melancholic",
}

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// SplitBeats breaks narration text into sentence-level beats.
func SplitBeats(text string) []string {
	var beats []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			beats = append(beats, s)
		}
	}
	return beats
}

// eventForSlot is the fixed event curve: severity never decreases with index.
func eventForSlot(i int) types.EventType {
	switch {
	case i < 4:
		return types.EventNormal
	case i < 7:
		return types.EventWarning
	case i < 11:
		return types.EventEscalation
	case i < 15:
		return types.EventDanger
	default:
		return types.EventAftermath
	}
}

// Build distributes the script's beats across exactly SceneCount slots and
// applies the deterministic continuity rules. Writer-supplied scene fields
// override defaults where present; location persists and the visible-object
// set only ever grows.
func Build(doc *types.ScriptDocument, channel config.ChannelConfig) []types.Scene {
	beats := SplitBeats(doc.ScriptText)
	beatsPerScene := (len(beats) + SceneCount - 1) / SceneCount
	if beatsPerScene < 1 {
		beatsPerScene = 1
	}

	location := "Unknown Location"
	if len(doc.Scenes) > 0 && doc.Scenes[0].Location != "" {
		location = doc.Scenes[0].Location
	}

	var objects []string
	timeOffset := 0

	scenes := make([]types.Scene, 0, SceneCount)
	for i := 0; i < SceneCount; i++ {
		start := i * beatsPerScene
		end := start + beatsPerScene
		if start > len(beats) {
			start = len(beats)
		}
		if end > len(beats) {
			end = len(beats)
		}
		beatText := strings.Join(beats[start:end], " ")

		timeOffset += timeStepMinutes
		event := eventForSlot(i)

		if i < len(doc.Scenes) {
			ws := doc.Scenes[i]
			if ws.Location != "" && ws.Location != location {
				location = ws.Location
			}
			objects = accumulate(objects, ws.VisibleObjects)
		}

		scene := types.Scene{
			BeatText:       beatText,
			MainSubject:    channel.CharacterBible,
			Action:         defaultAction(i, beatText),
			Location:       location,
			Time:           fmt.Sprintf("T+%dm", timeOffset),
			Lighting:       eventLighting[event],
			Atmosphere:     titleCase(string(event)),
			VisibleObjects: append([]string(nil), objects...),
			Camera:         channel.CameraBible,
			EventType:      event,
		}

		if i < len(doc.Scenes) {
			ws := doc.Scenes[i]
			if ws.MainSubject != "" {
				scene.MainSubject = ws.MainSubject
			}
			if ws.Action != "" {
				scene.Action = ws.Action
			}
			if ws.Camera != "" {
				scene.Camera = ws.Camera
			}
		}

		scenes = append(scenes, scene)
	}
	return scenes
}

// accumulate unions new objects into the running set, preserving first-seen order.
func accumulate(have, add []string) []string {
	for _, obj := range add {
		seen := false
		for _, h := range have {
			if h == obj {
				seen = true
				break
			}
		}
		if !seen {
			have = append(have, obj)
		}
	}
	return have
}

func defaultAction(i int, beatText string) string {
	summary := beatText
	// truncate on runes so multi-byte text is never cut mid-sequence
	if runes := []rune(beatText); len(runes) > 50 {
		summary = string(runes[:50]) + "..."
	}
	return fmt.Sprintf("Scene %d action based on: %s", i+1, summary)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
