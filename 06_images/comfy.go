// Package images drives the asynchronous image-generation job queue:
// submit a workflow graph, poll history until done, fetch the result.
package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/types"
)

// QueueClient talks to a ComfyUI-style job server.
type QueueClient struct {
	baseURL         string
	clientID        string
	httpClient      *http.Client
	pollInterval    time.Duration
	pollMaxAttempts int
}

func NewQueueClient(cfg config.ImagesConfig) *QueueClient {
	return &QueueClient{
		baseURL:         "http://" + cfg.ServerAddress,
		clientID:        cfg.ClientID,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		pollInterval:    time.Duration(cfg.PollIntervalSec * float64(time.Second)),
		pollMaxAttempts: cfg.PollMaxAttempts,
	}
}

type queueResponse struct {
	PromptID string `json:"prompt_id"`
}

type imageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type nodeOutput struct {
	Images []imageRef `json:"images"`
}

type historyEntry struct {
	Outputs map[string]nodeOutput `json:"outputs"`
}

// QueuePrompt submits a workflow graph and returns the server's job id.
func (c *QueueClient) QueuePrompt(ctx context.Context, workflow map[string]interface{}) (string, error) {
	payload := map[string]interface{}{
		"prompt":    workflow,
		"client_id": c.clientID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &types.ServiceError{Service: "image-queue", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &types.ServiceError{Service: "image-queue", Err: fmt.Errorf("queue returned HTTP %d", resp.StatusCode)}
	}

	var qr queueResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return "", fmt.Errorf("parse queue response: %w", err)
	}
	if qr.PromptID == "" {
		return "", &types.ServiceError{Service: "image-queue", Err: fmt.Errorf("queue returned empty prompt_id")}
	}
	return qr.PromptID, nil
}

// WaitForPrompt polls the history endpoint at a fixed interval until the job
// id appears, the context is cancelled, or the attempt budget expires. A
// wedged server becomes a ServiceError instead of an indefinite stall.
func (c *QueueClient) WaitForPrompt(ctx context.Context, promptID string) (*historyEntry, error) {
	for attempt := 0; attempt < c.pollMaxAttempts; attempt++ {
		entry, ok, err := c.pollHistory(ctx, promptID)
		if err != nil {
			return nil, err
		}
		if ok {
			return entry, nil
		}
		select {
		case <-ctx.Done():
			return nil, &types.ServiceError{Service: "image-queue", Err: ctx.Err()}
		case <-time.After(c.pollInterval):
		}
	}
	return nil, &types.ServiceError{Service: "image-queue",
		Err: fmt.Errorf("job %s not completed after %d polls", promptID, c.pollMaxAttempts)}
}

func (c *QueueClient) pollHistory(ctx context.Context, promptID string) (*historyEntry, bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/history/"+promptID, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// transient network blips during polling are retried until the budget runs out
		return nil, false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, nil
	}

	var history map[string]historyEntry
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return nil, false, nil
	}
	entry, ok := history[promptID]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

// GetImage downloads one generated asset by server-assigned name.
func (c *QueueClient) GetImage(ctx context.Context, ref imageRef) ([]byte, error) {
	params := url.Values{}
	params.Set("filename", ref.Filename)
	params.Set("subfolder", ref.Subfolder)
	params.Set("type", ref.Type)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/view?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &types.ServiceError{Service: "image-queue", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &types.ServiceError{Service: "image-queue", Err: fmt.Errorf("view returned HTTP %d", resp.StatusCode)}
	}
	return io.ReadAll(resp.Body)
}

// BuildWorkflow assembles the declarative node graph for one job:
// checkpoint, positive/negative CLIP encodes, KSampler, latent, VAE decode,
// save with the client-assigned filename prefix.
func BuildWorkflow(job types.ImageJob, checkpoint string, cfgScale float64, filenamePrefix string) map[string]interface{} {
	return map[string]interface{}{
		"3": map[string]interface{}{
			"inputs": map[string]interface{}{
				"seed": job.Seed, "steps": job.Steps, "cfg": cfgScale,
				"sampler_name": job.Sampler, "scheduler": "normal",
				"denoise":      1,
				"model":        []interface{}{"4", 0},
				"positive":     []interface{}{"6", 0},
				"negative":     []interface{}{"7", 0},
				"latent_image": []interface{}{"5", 0},
			},
			"class_type": "KSampler",
		},
		"4": map[string]interface{}{
			"inputs":     map[string]interface{}{"ckpt_name": checkpoint},
			"class_type": "CheckpointLoaderSimple",
		},
		"5": map[string]interface{}{
			"inputs":     map[string]interface{}{"width": job.Width, "height": job.Height, "batch_size": 1},
			"class_type": "EmptyLatentImage",
		},
		"6": map[string]interface{}{
			"inputs":     map[string]interface{}{"text": job.Prompt, "clip": []interface{}{"4", 1}},
			"class_type": "CLIPTextEncode",
		},
		"7": map[string]interface{}{
			"inputs":     map[string]interface{}{"text": job.NegativePrompt, "clip": []interface{}{"4", 1}},
			"class_type": "CLIPTextEncode",
		},
		"8": map[string]interface{}{
			"inputs":     map[string]interface{}{"samples": []interface{}{"3", 0}, "vae": []interface{}{"4", 2}},
			"class_type": "VAEDecode",
		},
		"9": map[string]interface{}{
			"inputs":     map[string]interface{}{"filename_prefix": filenamePrefix, "images": []interface{}{"8", 0}},
			"class_type": "SaveImage",
		},
	}
}
