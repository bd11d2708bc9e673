// Package render assembles the final vertical video: Ken Burns motion over
// each scene image, background music under the narration, and burned-in
// word captions.
package render

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/types"

	captions "github.com/AyoubElhamidi33/faceless/05_captions"
)

// Renderer assembles the final video from all prepared assets
type Renderer struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// Assemble builds the final MP4. Screen time is split evenly across the scene
// images; the narration track drives total length. Render failures propagate
// to the caller — there is no retry at this stage.
func (r *Renderer) Assemble(ctx context.Context, images []string, audioFile, musicMood string, cues []types.CaptionCue, outputDir string) (string, error) {
	log.Println("[render] Starting final video assembly...")

	if len(images) == 0 {
		return "", fmt.Errorf("no scene images to assemble")
	}

	totalDuration, err := audioDuration(audioFile)
	if err != nil {
		return "", fmt.Errorf("measure narration: %w", err)
	}
	perImage := totalDuration / float64(len(images))
	log.Printf("[render] %d images over %.1fs (%.2fs each)", len(images), totalDuration, perImage)

	clips := make([]string, len(images))
	for i, img := range images {
		clip, err := r.kenBurnsClip(ctx, img, i, perImage, outputDir)
		if err != nil {
			return "", fmt.Errorf("ken burns scene %d: %w", i, err)
		}
		clips[i] = clip
	}

	silentVideo, err := r.concatenateClips(ctx, clips, outputDir)
	if err != nil {
		return "", fmt.Errorf("concatenate clips: %w", err)
	}

	mixedAudio, err := r.mixMusic(ctx, audioFile, musicMood, totalDuration, outputDir)
	if err != nil {
		log.Printf("[render] Warning: music mix failed: %v — using narration only", err)
		mixedAudio = audioFile
	}

	videoFile := silentVideo
	if r.cfg.Render.BurnCaptions && len(cues) > 0 {
		srtFile := filepath.Join(outputDir, "captions.srt")
		if err := captions.WriteSRT(cues, srtFile); err != nil {
			return "", fmt.Errorf("write captions: %w", err)
		}
		burned, err := r.burnCaptions(ctx, silentVideo, srtFile, outputDir)
		if err != nil {
			return "", fmt.Errorf("burn captions: %w", err)
		}
		videoFile = burned
	}

	finalVideo, err := r.combineVideoAudio(ctx, videoFile, mixedAudio, outputDir)
	if err != nil {
		return "", fmt.Errorf("combine video+audio: %w", err)
	}

	log.Printf("[render] ✅ Final video ready: %s", finalVideo)
	return finalVideo, nil
}

// kenBurnsClip turns one still into a short clip with slow camera motion.
// Direction cycles zoom-in, zoom-out, lateral pan so consecutive slots never
// move the same way.
func (r *Renderer) kenBurnsClip(ctx context.Context, imgPath string, idx int, duration float64, outputDir string) (string, error) {
	outFile := filepath.Join(outputDir, fmt.Sprintf("kenburns_%02d.mp4", idx))
	if duration <= 0 {
		duration = 5.0
	}

	filter := kenBurnsFilter(idx, duration, r.cfg.Render)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-loop", "1",
		"-i", imgPath,
		"-vf", filter,
		"-t", fmt.Sprintf("%.3f", duration),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg ken burns: %w", err)
	}
	return outFile, nil
}

// kenBurnsFilter builds the zoompan chain for one scene. Upscaling before
// zoompan avoids the filter's subpixel jitter on small sources.
func kenBurnsFilter(idx int, duration float64, rc config.RenderConfig) string {
	totalFrames := int(duration * float64(rc.FPS))
	if totalFrames < 1 {
		totalFrames = 1
	}
	zoom := rc.KenBurnsZoom
	zoomStep := (zoom - 1.0) / float64(totalFrames)

	var zoomExpr, xExpr string
	yExpr := "ih/2-(ih/zoom/2)"
	switch idx % 3 {
	case 0:
		// zoom in: 1.0 -> zoom
		zoomExpr = fmt.Sprintf("min(zoom+%.6f,%.3f)", zoomStep, zoom)
		xExpr = "iw/2-(iw/zoom/2)"
	case 1:
		// zoom out: zoom -> 1.0
		zoomExpr = fmt.Sprintf("if(eq(on,1),%.3f,max(zoom-%.6f,1.0))", zoom, zoomStep)
		xExpr = "iw/2-(iw/zoom/2)"
	default:
		// lateral pan at fixed zoom, left to right across the overscan
		zoomExpr = fmt.Sprintf("%.3f", zoom)
		xExpr = fmt.Sprintf("(iw-iw/zoom)*on/%d", totalFrames)
	}

	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,"+
			"zoompan=z='%s':x='%s':y='%s':d=%d:fps=%d:s=%dx%d",
		rc.Width*2, rc.Height*2,
		rc.Width*2, rc.Height*2,
		zoomExpr, xExpr, yExpr,
		totalFrames, rc.FPS,
		rc.Width, rc.Height,
	)
}

// concatenateClips joins all scene clips in order into one silent video.
func (r *Renderer) concatenateClips(ctx context.Context, clips []string, outputDir string) (string, error) {
	log.Println("[render] Concatenating scene clips...")

	listFile := filepath.Join(outputDir, "clips_concat.txt")
	var lines []string
	for _, c := range clips {
		lines = append(lines, fmt.Sprintf("file '%s'", c))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return "", err
	}

	outFile := filepath.Join(outputDir, "visuals_raw.mp4")
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-r", fmt.Sprintf("%d", r.cfg.Render.FPS),
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg concat clips: %w", err)
	}
	return outFile, nil
}

// mixMusic loops a mood-matched track under the narration at reduced volume.
// Narration length wins: amix uses duration=first.
func (r *Renderer) mixMusic(ctx context.Context, narrationFile, musicMood string, totalDuration float64, outputDir string) (string, error) {
	musicFile := pickMusic(r.cfg.Paths.MusicDir, musicMood)
	outFile := filepath.Join(outputDir, "audio_mixed.mp3")

	if musicFile == "" {
		log.Println("[render] No music track found — narration only")
		cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", narrationFile, "-c:a", "copy", outFile)
		return outFile, cmd.Run()
	}
	log.Printf("[render] Mixing music: %s (volume %.2f)", filepath.Base(musicFile), r.cfg.Render.MusicVolume)

	fade := r.cfg.Render.MusicFadeSec
	if fade <= 0 {
		fade = 2.0
	}
	musicFilter := fmt.Sprintf(
		"[1:a]volume=%.3f,afade=t=out:st=%.3f:d=%.3f[music];"+
			"[0:a][music]amix=inputs=2:duration=first:normalize=0[aout]",
		r.cfg.Render.MusicVolume,
		totalDuration-fade, fade,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", narrationFile,
		"-stream_loop", "-1",
		"-i", musicFile,
		"-filter_complex", musicFilter,
		"-map", "[aout]",
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outFile,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg music mix: %w", err)
	}
	return outFile, nil
}

// pickMusic returns the first track in dir whose name contains the mood,
// falling back to any audio file, or "" when the dir is empty or missing.
func pickMusic(dir, mood string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var fallback string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".mp3", ".wav", ".m4a", ".ogg":
		default:
			continue
		}
		if fallback == "" {
			fallback = filepath.Join(dir, name)
		}
		if mood != "" && strings.Contains(strings.ToLower(name), strings.ToLower(mood)) {
			return filepath.Join(dir, name)
		}
	}
	return fallback
}

// burnCaptions renders the SRT onto the video with the configured style.
func (r *Renderer) burnCaptions(ctx context.Context, videoFile, srtFile, outputDir string) (string, error) {
	log.Println("[render] Burning captions...")

	outFile := filepath.Join(outputDir, "visuals_captioned.mp4")
	filter := fmt.Sprintf("subtitles=%s:force_style='%s'",
		escapeFilterPath(srtFile), subtitleStyle(r.cfg.Captions))

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoFile,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-an",
		outFile,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg subtitles: %w", err)
	}
	return outFile, nil
}

// subtitleStyle builds the ASS force_style string from caption config.
func subtitleStyle(cc config.CaptionsConfig) string {
	font := cc.Font
	if font == "" {
		font = "Arial"
	}
	size := cc.FontSize
	if size == 0 {
		size = 24
	}
	stroke := cc.StrokeWidth
	if stroke == 0 {
		stroke = 2
	}
	margin := cc.MarginBottom
	if margin == 0 {
		margin = 80
	}
	return fmt.Sprintf(
		"FontName=%s,FontSize=%d,PrimaryColour=&HFFFFFF&,OutlineColour=&H000000&,Outline=%.1f,Bold=1,Alignment=2,MarginV=%d",
		font, size, stroke, margin,
	)
}

// combineVideoAudio merges the final video and audio into one MP4
func (r *Renderer) combineVideoAudio(ctx context.Context, videoFile, audioFile, outputDir string) (string, error) {
	log.Println("[render] Combining video + audio...")

	outFile := filepath.Join(outputDir, "final_video.mp4")
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoFile,
		"-i", audioFile,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart", // optimize for web streaming
		outFile,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg combine: %w", err)
	}
	return outFile, nil
}

func audioDuration(path string) (float64, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, err
	}
	var dur float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur)
	return dur, err
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter expression.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, `\`, `\\`)
	p = strings.ReplaceAll(p, ":", `\:`)
	return p
}
