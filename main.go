package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	topics "github.com/AyoubElhamidi33/faceless/01_topics"
	script "github.com/AyoubElhamidi33/faceless/02_script"
	storyboard "github.com/AyoubElhamidi33/faceless/03_storyboard"
	audio "github.com/AyoubElhamidi33/faceless/04_audio"
	captions "github.com/AyoubElhamidi33/faceless/05_captions"
	images "github.com/AyoubElhamidi33/faceless/06_images"
	render "github.com/AyoubElhamidi33/faceless/07_render"
	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/provider"
	"github.com/AyoubElhamidi33/faceless/types"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env (local dev only — CI uses secrets)
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	batch := flag.Int("batch", 1, "number of videos to produce this run")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := preflight(cfg); err != nil {
		log.Fatalf("Preflight failed: %v", err)
	}

	llm := provider.New()
	topicStore, err := topics.NewStore(cfg, topics.NewLLMGenerator(cfg, llm))
	if err != nil {
		log.Fatalf("Failed to open topic store: %v", err)
	}
	scriptPipeline, err := script.NewPipeline(cfg, llm, llm)
	if err != nil {
		log.Fatalf("Failed to build script pipeline: %v", err)
	}
	tts := buildTTS(cfg, llm)

	// SIGINT/SIGTERM finishes the current job, then stops the batch
	ctx := context.Background()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("🎬 Faceless Studio starting — %d job(s) queued", *batch)

	for i := 0; i < *batch; i++ {
		select {
		case sig := <-stop:
			log.Printf("Received %v — stopping after %d job(s)", sig, i)
			return
		default:
		}

		err := runJob(ctx, cfg, topicStore, scriptPipeline, tts)
		bumpStats(cfg.Paths.RunStats, err == nil)
		if err != nil {
			log.Printf("❌ Job %d/%d failed: %v", i+1, *batch, err)
			if errors.Is(err, types.ErrTopicExhaustion) {
				log.Println("Topic pool exhausted — stopping batch")
				return
			}
			continue
		}
		log.Printf("✅ Job %d/%d complete", i+1, *batch)
	}
}

// preflight fails fast on missing credentials, an unreachable image server,
// or an unwritable output dir — before any money is spent on generation.
func preflight(cfg *config.Config) error {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if os.Getenv("ELEVENLABS_API_KEY") == "" {
		log.Println("Warning: ELEVENLABS_API_KEY not set — will use OpenAI TTS only")
	}

	if err := os.MkdirAll(cfg.Paths.Output, 0755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	probe := filepath.Join(cfg.Paths.Output, ".write_check")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("output dir not writable: %w", err)
	}
	_ = os.Remove(probe)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + cfg.Images.ServerAddress + "/system_stats")
	if err != nil {
		return fmt.Errorf("image server unreachable at %s: %w", cfg.Images.ServerAddress, err)
	}
	resp.Body.Close()
	return nil
}

func buildTTS(cfg *config.Config, llm *provider.Client) audio.TTSClient {
	fallback := &audio.FallbackTTS{
		Secondary: audio.NewOpenAITTSClient(llm, "onyx"),
	}
	if key := os.Getenv("ELEVENLABS_API_KEY"); key != "" {
		fallback.Primary = audio.NewElevenLabsClient(key, cfg.Channel.VoiceID)
	}
	return fallback
}

// runJob produces one complete video: topic → script → storyboard →
// audio + images → captions → final render. Every intermediate artifact is
// saved under the job dir so a failed stage can be inspected.
func runJob(ctx context.Context, cfg *config.Config, topicStore *topics.Store,
	scriptPipeline *script.Pipeline, tts audio.TTSClient) (err error) {

	jobID := uuid.NewString()[:8]
	jobDir := filepath.Join(cfg.Paths.Output, jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return err
	}
	log.Printf("━━━ Job %s ━━━", jobID)

	state := &types.JobState{
		JobID:     jobID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	defer func() {
		if err != nil {
			state.Error = err.Error()
		} else {
			state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		}
		saveJSON(filepath.Join(jobDir, "job_state.json"), state)
	}()

	topic, err := topicStore.FreshTopic(ctx)
	if err != nil {
		return fmt.Errorf("topic selection: %w", err)
	}
	state.Topic = topic

	doc, err := scriptPipeline.Generate(ctx, topic)
	if err != nil {
		return fmt.Errorf("script synthesis: %w", err)
	}
	state.Script = doc
	saveJSON(filepath.Join(jobDir, "script.json"), doc)

	scenes := storyboard.Build(doc, cfg.Channel)
	saveJSON(filepath.Join(jobDir, "storyboard.json"), scenes)

	audioEngine := audio.New(cfg, tts)
	audioFile, timeline, err := audioEngine.Synthesize(ctx, doc.ScriptText, filepath.Join(jobDir, "audio"))
	if err != nil {
		return fmt.Errorf("audio synthesis: %w", err)
	}
	state.AudioFile = audioFile
	state.Timeline = timeline
	saveJSON(filepath.Join(jobDir, "timeline.json"), timeline)

	imageEngine := images.New(cfg)
	imageFiles, err := imageEngine.Generate(ctx, jobID, scenes, filepath.Join(jobDir, "images"))
	if err != nil {
		return fmt.Errorf("image generation: %w", err)
	}
	state.ImageFiles = imageFiles

	cues := captions.Build(timeline, cfg.Captions)
	if len(cues) == 0 && cfg.Captions.TranscribeOnMiss {
		cues, err = captions.Transcribe(ctx, audioFile, filepath.Join(jobDir, "captions"), cfg.Captions.WhisperModel)
		if err != nil {
			log.Printf("Warning: caption fallback failed: %v — rendering without captions", err)
			cues = nil
		}
	}
	saveJSON(filepath.Join(jobDir, "captions.json"), cues)

	renderer := render.New(cfg)
	videoFile, err := renderer.Assemble(ctx, imageFiles, audioFile, cfg.Channel.MusicMood, cues, jobDir)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	state.VideoFile = videoFile

	log.Printf("🎉 Video ready: %s", videoFile)
	return nil
}

// bumpStats is a read-modify-write over the persistent daemon counters.
func bumpStats(path string, ok bool) {
	if path == "" {
		return
	}
	var stats types.RunStats
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &stats)
	}
	if ok {
		stats.JobsCompleted++
	} else {
		stats.JobsFailed++
	}
	saveJSON(path, stats)
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
