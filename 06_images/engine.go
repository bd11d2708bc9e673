package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/types"
)

// Scorer rates how well a generated image matches its prompt, 0..1.
type Scorer interface {
	Score(ctx context.Context, prompt, imagePath string) (float64, error)
}

// Engine generates one image per storyboard scene through the job queue.
type Engine struct {
	cfg    *config.Config
	queue  *QueueClient
	scorer Scorer // nil disables the quality pass

	baseSeed func() int64
}

func New(cfg *config.Config) *Engine {
	e := &Engine{
		cfg:   cfg,
		queue: NewQueueClient(cfg.Images),
	}
	if cfg.Images.ScoreURL != "" {
		e.scorer = NewHTTPScorer(cfg.Images.ScoreURL)
	}
	// base seed in [1, 10_000_000]; per-scene seeds step by 1000 so a
	// single scene can be nudged and regenerated without colliding
	e.baseSeed = func() int64 { return rand.Int63n(10_000_000) + 1 }
	return e
}

// ScenePrompt renders one scene into the prompt grammar the image model
// expects, framed by the channel's style bibles.
func ScenePrompt(scene types.Scene, channel config.ChannelConfig) string {
	var parts []string
	if channel.PromptPrefix != "" {
		parts = append(parts, channel.PromptPrefix)
	}
	if channel.CharacterBible != "" {
		parts = append(parts, channel.CharacterBible)
	}

	parts = append(parts,
		"Subject: "+scene.MainSubject+" "+scene.Action,
		"Location: "+scene.Location,
		"Time/Light: "+scene.Time+", "+scene.Lighting,
		"Atmosphere: "+scene.Atmosphere,
		"Camera: "+scene.Camera,
	)
	if channel.CameraBible != "" {
		parts = append(parts, channel.CameraBible)
	}
	if channel.PaletteBible != "" {
		parts = append(parts, channel.PaletteBible)
	}
	if len(scene.VisibleObjects) > 0 {
		parts = append(parts, "MUST SHOW: "+strings.Join(scene.VisibleObjects, ", "))
	}
	return strings.Join(parts, ". ")
}

// Generate renders every scene and returns the local file paths in scene
// order. Each job carries the correlation prefix "<jobID>_scene_<NN>", so a
// failed or low-quality scene can be regenerated alone and still land in the
// right slot.
func (e *Engine) Generate(ctx context.Context, jobID string, scenes []types.Scene, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}

	base := e.baseSeed()
	log.Printf("[images] Generating %d scenes (base seed %d)", len(scenes), base)

	jobs := make([]types.ImageJob, len(scenes))
	paths := make([]string, len(scenes))
	for i, scene := range scenes {
		jobs[i] = types.ImageJob{
			SceneIndex:     i,
			Prompt:         ScenePrompt(scene, e.cfg.Channel),
			NegativePrompt: e.cfg.Channel.NegativePrompt,
			Seed:           base + int64(i)*1000,
			Width:          e.cfg.Images.Width,
			Height:         e.cfg.Images.Height,
			Steps:          e.cfg.Images.Steps,
			Sampler:        e.cfg.Images.Sampler,
			Status:         types.JobQueued,
		}

		path, err := e.generateOne(ctx, jobID, &jobs[i], outDir)
		if err != nil {
			jobs[i].Status = types.JobFailed
			return nil, fmt.Errorf("scene %d: %w", i, err)
		}
		jobs[i].Status = types.JobDone
		jobs[i].OutputPath = path
		paths[i] = path
	}

	if e.scorer != nil {
		if err := e.qualityPass(ctx, jobID, jobs, paths, outDir); err != nil {
			return nil, err
		}
	}

	log.Printf("[images] ✅ All %d scenes rendered", len(paths))
	return paths, nil
}

// generateOne runs a single scene through submit → poll → fetch.
func (e *Engine) generateOne(ctx context.Context, jobID string, job *types.ImageJob, outDir string) (string, error) {
	prefix := fmt.Sprintf("%s_scene_%02d", jobID, job.SceneIndex)
	workflow := BuildWorkflow(*job, e.cfg.Images.Checkpoint, e.cfg.Images.CFG, prefix)

	promptID, err := e.queue.QueuePrompt(ctx, workflow)
	if err != nil {
		return "", err
	}
	job.PromptID = promptID
	job.Status = types.JobRunning
	log.Printf("[images] Scene %02d queued as %s (seed %d)", job.SceneIndex, promptID, job.Seed)

	entry, err := e.queue.WaitForPrompt(ctx, promptID)
	if err != nil {
		return "", err
	}

	ref, ok := firstImage(entry)
	if !ok {
		return "", &types.ServiceError{Service: "image-queue",
			Err: fmt.Errorf("job %s finished with no image output", promptID)}
	}

	data, err := e.queue.GetImage(ctx, ref)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(outDir, prefix+".png")
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return "", err
	}
	return outPath, nil
}

// qualityPass scores each image against its prompt and retries
// below-threshold scenes once with a nudged seed. A retry that still scores
// low keeps the retried image; scoring errors are logged, never fatal.
func (e *Engine) qualityPass(ctx context.Context, jobID string, jobs []types.ImageJob, paths []string, outDir string) error {
	threshold := e.cfg.Images.QualityThreshold
	for i := range jobs {
		score, err := e.scorer.Score(ctx, jobs[i].Prompt, paths[i])
		if err != nil {
			log.Printf("[images] Scoring scene %02d failed: %v — keeping image", i, err)
			continue
		}
		if score >= threshold {
			continue
		}

		log.Printf("[images] Scene %02d scored %.3f < %.3f — regenerating", i, score, threshold)
		jobs[i].Seed += 7 // nudge off the original latent
		path, err := e.generateOne(ctx, jobID, &jobs[i], outDir)
		if err != nil {
			return fmt.Errorf("scene %d retry: %w", i, err)
		}
		paths[i] = path
		jobs[i].OutputPath = path
	}
	return nil
}

func firstImage(entry *historyEntry) (imageRef, bool) {
	for _, out := range entry.Outputs {
		if len(out.Images) > 0 {
			return out.Images[0], true
		}
	}
	return imageRef{}, false
}

// HTTPScorer calls an external CLIP scoring service.
type HTTPScorer struct {
	url        string
	httpClient *http.Client
}

func NewHTTPScorer(url string) *HTTPScorer {
	return &HTTPScorer{url: url, httpClient: &http.Client{Timeout: 60 * time.Second}}
}

type scoreRequest struct {
	Prompt    string `json:"prompt"`
	ImagePath string `json:"image_path"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

func (s *HTTPScorer) Score(ctx context.Context, prompt, imagePath string) (float64, error) {
	body, err := json.Marshal(scoreRequest{Prompt: prompt, ImagePath: imagePath})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scorer returned HTTP %d", resp.StatusCode)
	}
	var sr scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return 0, err
	}
	return sr.Score, nil
}
