package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/AyoubElhamidi33/faceless/provider"
)

// ElevenLabsClient synthesizes speech via the ElevenLabs HTTP API.
type ElevenLabsClient struct {
	apiKey     string
	voiceID    string
	httpClient *http.Client
}

func NewElevenLabsClient(apiKey, voiceID string) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:     apiKey,
		voiceID:    voiceID,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type elevenRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings map[string]interface{} `json:"voice_settings"`
}

func (c *ElevenLabsClient) SynthesizeChunk(ctx context.Context, text, outPath string) error {
	reqBody := elevenRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: map[string]interface{}{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.elevenlabs.io/v1/text-to-speech/%s", c.voiceID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("elevenlabs status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0644)
}

// OpenAITTSClient synthesizes speech with the provider's TTS endpoint.
type OpenAITTSClient struct {
	client *provider.Client
	voice  string
}

func NewOpenAITTSClient(client *provider.Client, voice string) *OpenAITTSClient {
	return &OpenAITTSClient{client: client, voice: voice}
}

func (c *OpenAITTSClient) SynthesizeChunk(ctx context.Context, text, outPath string) error {
	data, err := c.client.Speech(ctx, c.voice, text)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0644)
}

// FallbackTTS tries providers in priority order; the first success wins.
type FallbackTTS struct {
	Primary   TTSClient
	Secondary TTSClient
}

func (f *FallbackTTS) SynthesizeChunk(ctx context.Context, text, outPath string) error {
	if f.Primary != nil {
		if err := f.Primary.SynthesizeChunk(ctx, text, outPath); err == nil {
			return nil
		} else {
			log.Printf("[audio] Primary TTS failed: %v — falling back", err)
		}
	}
	if f.Secondary == nil {
		return fmt.Errorf("no TTS provider available")
	}
	return f.Secondary.SynthesizeChunk(ctx, text, outPath)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
