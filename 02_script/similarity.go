package script

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// GoldenScript is one exemplar from the reference corpus used to bound how
// derivative or divergent an accepted script may be.
type GoldenScript struct {
	Title      string `json:"title,omitempty"`
	ScriptText string `json:"script_text"`
}

// Embedder produces embedding vectors for similarity scoring.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

func loadGoldenScripts(path string) ([]GoldenScript, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var golden []GoldenScript
	if err := json.Unmarshal(data, &golden); err != nil {
		return nil, err
	}
	return golden, nil
}

// goldenSimilarity embeds the target and returns its maximum cosine
// similarity against the corpus. An empty corpus scores as in-band.
func goldenSimilarity(ctx context.Context, emb Embedder, golden []GoldenScript, target string) (float64, error) {
	if len(golden) == 0 {
		return -1, nil
	}
	targetVec, err := emb.Embed(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("embed target script: %w", err)
	}
	maxScore := 0.0
	for _, g := range golden {
		if g.ScriptText == "" {
			continue
		}
		goldVec, err := emb.Embed(ctx, g.ScriptText)
		if err != nil {
			return 0, fmt.Errorf("embed golden script: %w", err)
		}
		if s := cosineSimilarity(targetVec, goldVec); s > maxScore {
			maxScore = s
		}
	}
	return maxScore, nil
}
