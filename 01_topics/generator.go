package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/provider"
)

const batchSystemPrompt = "You are a researcher for a 'Dark History' channel. You find ironic, tragic true stories."

type topicBatch struct {
	Topics []string `json:"topics"`
}

// LLMGenerator asks the completion collaborator for a batch of niche topics.
type LLMGenerator struct {
	cfg    *config.Config
	client *provider.Client
}

func NewLLMGenerator(cfg *config.Config, client *provider.Client) *LLMGenerator {
	return &LLMGenerator{cfg: cfg, client: client}
}

func (g *LLMGenerator) GenerateBatch(ctx context.Context) ([]string, error) {
	log.Printf("[topics] Generating batch of %d for niche %q...", g.cfg.Topics.BatchSize, g.cfg.Channel.Niche)

	prompt := fmt.Sprintf(
		"Generate %d specific, true historical events for the niche '%s'.\n"+
			"RULES:\n"+
			"1. FOCUS ON THE INDIVIDUAL: every topic revolves around a specific person or small crew.\n"+
			"2. THE FATAL FLAW: each story has a twist of fate — a small mistake, a moral dilemma, or a cruel irony.\n"+
			"3. NO SUPERNATURAL: no ghosts, cryptids, aliens, or unexplained mysteries. Only hard reality.\n"+
			"4. FORMAT: JSON object with a single key 'topics'.",
		g.cfg.Topics.BatchSize, g.cfg.Channel.Niche,
	)

	schema := provider.GenerateSchema[topicBatch]()
	content, err := g.client.CompleteJSON(ctx, g.cfg.Script.Model, batchSystemPrompt, prompt, 1.0, "topic_batch", schema)
	if err != nil {
		return nil, err
	}

	var batch topicBatch
	if err := json.Unmarshal([]byte(content), &batch); err != nil {
		return nil, fmt.Errorf("parse topic batch: %w", err)
	}
	return batch.Topics, nil
}
