// Package script orchestrates hook, draft and rewrite generation with
// automated quality gates and a bounded retry budget.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/provider"
	"github.com/AyoubElhamidi33/faceless/types"
)

const hookSystemPrompt = `You write opening lines for viral short-form videos.
BANNED PHRASES: "you won't believe", "what happened next", "changed everything", "little did he know", "blow your mind".
Open on a concrete, specific image or fact. Respond ONLY with valid JSON.`

const draftSystemPrompt = `You are a scriptwriter for a faceless dark-history channel. You write tight
60-second scripts with simple words and short sentences, rich in sensory detail.
The script MUST begin with the exact hook text you are given.
Scene event_type values: NORMAL, WARNING, ESCALATION, DANGER, AFTERMATH.
The scenes must carry a false-calm arc: normal, a warning sign, a return to calm, then danger.
Respond ONLY with valid JSON.`

const rewriteSystemPrompt = `You rewrite narration into plain spoken English. Short sentences. Simple
words a 12-year-old knows. Keep every fact. Keep [SILENCE] markers exactly
where they are. Return only the rewritten text, no commentary.`

// Completer is the role-tagged completion collaborator.
type Completer interface {
	Complete(ctx context.Context, model, system, user string, temperature float64) (string, error)
	CompleteJSON(ctx context.Context, model, system, user string, temperature float64, schemaName string, schema map[string]interface{}) (string, error)
}

type hookJSON struct {
	HookType string `json:"hook_type"`
	HookText string `json:"hook_text"`
}

type draftJSON struct {
	ScriptText        string              `json:"script_text"`
	Scenes            []types.WriterScene `json:"scenes"`
	BeatWords         []string            `json:"beat_words"`
	NarrativePOV      string              `json:"narrative_pov"`
	FactConfidence    string              `json:"fact_confidence"`
	EscalationPattern string              `json:"escalation_pattern"`
	EndingType        string              `json:"ending_type"`
	StickyEndingLine  string              `json:"sticky_ending_line"`
	IconicSceneIndex  int                 `json:"iconic_scene_index"`
}

type seoJSON struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type variantsJSON struct {
	Variants []types.HookVariant `json:"variants"`
}

// Pipeline runs the staged synthesis loop for one topic.
type Pipeline struct {
	cfg     *config.Config
	llm     Completer
	emb     Embedder
	novelty *NoveltyStore
	golden  []GoldenScript
}

func NewPipeline(cfg *config.Config, llm Completer, emb Embedder) (*Pipeline, error) {
	novelty, err := NewNoveltyStore(cfg.Paths.Fingerprints, cfg.Script.FingerprintCap)
	if err != nil {
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	golden, err := loadGoldenScripts(cfg.Script.GoldenScripts)
	if err != nil {
		return nil, fmt.Errorf("load golden scripts: %w", err)
	}
	return &Pipeline{cfg: cfg, llm: llm, emb: emb, novelty: novelty, golden: golden}, nil
}

// Generate produces a gate-approved script for the topic. The hook is fixed
// once; every retry restarts from the draft stage. Exhausting the budget
// returns GenerationExhaustedError.
func (p *Pipeline) Generate(ctx context.Context, topic string) (*types.ScriptDocument, error) {
	log.Printf("[script] Generating script for topic %q", topic)

	hook, err := p.generateHook(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("hook generation: %w", err)
	}
	log.Printf("[script] Hook locked: %q", hook.HookText)

	var lastErr error
	for attempt := 1; attempt <= p.cfg.Script.MaxAttempts; attempt++ {
		log.Printf("[script] Attempt %d/%d (draft stage)", attempt, p.cfg.Script.MaxAttempts)

		doc, err := p.generateDraft(ctx, topic, hook)
		if err != nil {
			lastErr = err
			log.Printf("[script] Draft failed: %v — retrying", err)
			continue
		}

		rewritten, err := p.rewriteHumanVoice(ctx, doc.ScriptText, hook.HookText)
		if err != nil {
			lastErr = err
			log.Printf("[script] Rewrite failed: %v — retrying", err)
			continue
		}
		doc.ScriptText = rewritten

		if err := p.runGates(ctx, doc); err != nil {
			lastErr = err
			log.Printf("[script] Gate rejected attempt %d: %v", attempt, err)
			continue
		}

		// Auxiliary stages never invalidate an accepted script.
		if err := p.attachSEO(ctx, doc); err != nil {
			log.Printf("[script] Warning: SEO metadata failed: %v — continuing without it", err)
		}
		if err := p.attachVariants(ctx, doc); err != nil {
			log.Printf("[script] Warning: hook variants failed: %v — continuing without them", err)
		}

		log.Printf("[script] ✅ Script accepted on attempt %d (%d scenes)", attempt, len(doc.Scenes))
		return doc, nil
	}

	return nil, &types.GenerationExhaustedError{Attempts: p.cfg.Script.MaxAttempts, Last: lastErr}
}

func (p *Pipeline) generateHook(ctx context.Context, topic string) (hookJSON, error) {
	prompt := fmt.Sprintf(
		"Write one opening hook sentence for a short video about '%s'. "+
			"Also classify it: hook_type is one of cold_fact, question, impossible_image, countdown.", topic)

	schema := provider.GenerateSchema[hookJSON]()
	content, err := p.llm.CompleteJSON(ctx, p.cfg.Script.Model, hookSystemPrompt, prompt, p.cfg.Script.Temperature, "hook", schema)
	if err != nil {
		return hookJSON{}, err
	}
	var hook hookJSON
	if err := json.Unmarshal([]byte(content), &hook); err != nil {
		return hookJSON{}, fmt.Errorf("parse hook JSON: %w", err)
	}
	if hook.HookText == "" {
		return hookJSON{}, fmt.Errorf("hook generation returned empty hook_text")
	}
	return hook, nil
}

func (p *Pipeline) generateDraft(ctx context.Context, topic string, hook hookJSON) (*types.ScriptDocument, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Write a 60-second script about '%s'.\n", topic))
	sb.WriteString(fmt.Sprintf("The script MUST begin with this exact hook: %q\n\n", hook.HookText))
	sb.WriteString("Return JSON with:\n")
	sb.WriteString("- script_text: full spoken narration, may contain [SILENCE] or [SILENCE:seconds] pause markers\n")
	sb.WriteString("- scenes: 16 scene objects (location, main_subject, action, camera, visible_objects, event_type)\n")
	sb.WriteString("- beat_words: the key word of each sentence, in order\n")
	sb.WriteString("- narrative_pov, fact_confidence (high/medium/low), escalation_pattern, ending_type, sticky_ending_line, iconic_scene_index")

	schema := provider.GenerateSchema[draftJSON]()
	content, err := p.llm.CompleteJSON(ctx, p.cfg.Script.Model, draftSystemPrompt, sb.String(), p.cfg.Script.Temperature, "draft_story", schema)
	if err != nil {
		return nil, err
	}

	var raw draftJSON
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse draft JSON: %w", err)
	}

	return &types.ScriptDocument{
		Topic:             topic,
		HookText:          hook.HookText,
		HookType:          hook.HookType,
		ScriptText:        raw.ScriptText,
		Scenes:            raw.Scenes,
		BeatWords:         raw.BeatWords,
		NarrativePOV:      raw.NarrativePOV,
		FactConfidence:    raw.FactConfidence,
		EscalationPattern: raw.EscalationPattern,
		EndingType:        raw.EndingType,
		StickyEndingLine:  raw.StickyEndingLine,
		IconicSceneIndex:  raw.IconicSceneIndex,
	}, nil
}

// rewriteHumanVoice simplifies the draft's language. The hook is sacred: if
// the model drops it, it is forced back as the prefix.
func (p *Pipeline) rewriteHumanVoice(ctx context.Context, text, hookText string) (string, error) {
	out, err := p.llm.Complete(ctx, p.cfg.Script.Model, rewriteSystemPrompt, text, p.cfg.Script.Temperature)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("rewrite returned empty text")
	}
	if !strings.HasPrefix(out, hookText) {
		out = hookText + " " + out
	}
	return out, nil
}

// runGates evaluates the quality gates in order; the first failure wins.
func (p *Pipeline) runGates(ctx context.Context, doc *types.ScriptDocument) error {
	if ok, probs := ValidateStructure(doc); !ok {
		return &types.ValidationError{Gate: "structural", Reasons: probs}
	}
	if ok, probs := ValidateSafety(doc); !ok {
		return &types.ValidationError{Gate: "safety", Reasons: probs}
	}
	if ok, probs := ValidateHumanVoice(doc.ScriptText, p.cfg.Script.ShortSentence, p.cfg.Script.ShortRatioFloor); !ok {
		return &types.ValidationError{Gate: "voice", Reasons: probs}
	}
	if ok, probs := ValidateSensoryDetail(doc.ScriptText); !ok {
		return &types.ValidationError{Gate: "sensory", Reasons: probs}
	}
	if ok, probs := ValidateFalseCalm(doc); !ok {
		return &types.ValidationError{Gate: "false_calm", Reasons: probs}
	}
	if ok, _ := ValidateEscalationCurve(doc.ScriptText); !ok {
		return &types.ValidationError{Gate: "escalation", Reasons: []string{"escalation curve check failed"}}
	}

	score, err := goldenSimilarity(ctx, p.emb, p.golden, doc.ScriptText)
	if err != nil {
		return fmt.Errorf("similarity gate: %w", err)
	}
	if score >= 0 && (score < p.cfg.Script.SimilarityMin || score > p.cfg.Script.SimilarityMax) {
		return &types.ValidationError{Gate: "similarity", Reasons: []string{
			fmt.Sprintf("max golden similarity %.3f outside band [%.2f, %.2f]", score, p.cfg.Script.SimilarityMin, p.cfg.Script.SimilarityMax)}}
	}

	ok, ratio, err := p.novelty.Check(doc.Fingerprint())
	if err != nil {
		return fmt.Errorf("novelty gate: %w", err)
	}
	if !ok {
		return &types.ValidationError{Gate: "novelty", Reasons: []string{
			fmt.Sprintf("fingerprint %q matches a prior script (ratio %.3f)", doc.Fingerprint(), ratio)}}
	}
	return nil
}

func (p *Pipeline) attachSEO(ctx context.Context, doc *types.ScriptDocument) error {
	prompt := fmt.Sprintf(
		"Generate SEO metadata for a short video.\nTOPIC: %s\nHOOK: %s\nSCRIPT:\n%s",
		doc.Topic, doc.HookText, doc.ScriptText)

	schema := provider.GenerateSchema[seoJSON]()
	content, err := p.llm.CompleteJSON(ctx, p.cfg.Script.Model,
		"You are a short-form SEO strategist. Respond ONLY with valid JSON.",
		prompt, 0.8, "seo_metadata", schema)
	if err != nil {
		return err
	}
	var raw seoJSON
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return fmt.Errorf("parse SEO JSON: %w", err)
	}
	doc.Metadata = &types.SEOMetadata{Title: raw.Title, Description: raw.Description, Tags: raw.Tags}
	return nil
}

func (p *Pipeline) attachVariants(ctx context.Context, doc *types.ScriptDocument) error {
	prompt := fmt.Sprintf(
		"Write two alternate opening hooks for this script, labelled hook_b and hook_c. "+
			"Same facts, different angle.\nCURRENT HOOK: %s\nSCRIPT:\n%s",
		doc.HookText, doc.ScriptText)

	schema := provider.GenerateSchema[variantsJSON]()
	content, err := p.llm.CompleteJSON(ctx, p.cfg.Script.Model, hookSystemPrompt, prompt, 1.0, "hook_variants", schema)
	if err != nil {
		return err
	}
	var raw variantsJSON
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return fmt.Errorf("parse variants JSON: %w", err)
	}
	doc.Variants = raw.Variants
	return nil
}
