package script

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/types"
)

const testHook = "The lighthouse went dark at noon."

// goodNarration passes every gate: short sentences, sensory detail, no
// banned phrases, and it begins with the hook.
const goodNarration = testHook + " The keeper felt the cold wind. Everything seemed fine. " +
	"Then came a strange noise below. The noise stopped. The floor gave way."

const goodDraft = `{"script_text":"raw draft","scenes":[` +
	`{"event_type":"NORMAL"},{"event_type":"WARNING"},{"event_type":"NORMAL"},` +
	`{"event_type":"DANGER"},{"event_type":"AFTERMATH"}],` +
	`"beat_words":["lighthouse","keeper","fine","noise","stopped","floor"],` +
	`"narrative_pov":"third person","fact_confidence":"high",` +
	`"escalation_pattern":"slow_burn","ending_type":"twist",` +
	`"sticky_ending_line":"No one went back.","iconic_scene_index":3}`

// badDraft is missing fact_confidence, so the structural gate rejects it.
const badDraft = `{"script_text":"raw draft","scenes":[` +
	`{"event_type":"NORMAL"},{"event_type":"WARNING"},{"event_type":"NORMAL"},` +
	`{"event_type":"DANGER"},{"event_type":"AFTERMATH"}],` +
	`"beat_words":["one"],"narrative_pov":"third person","fact_confidence":"",` +
	`"escalation_pattern":"slow_burn","ending_type":"twist",` +
	`"sticky_ending_line":"x","iconic_scene_index":0}`

type fakeCompleter struct {
	hookCalls   int
	draftCalls  int
	drafts      []string
	rewrite     func(user string) string
	auxFail     bool
}

func (f *fakeCompleter) Complete(ctx context.Context, model, system, user string, temperature float64) (string, error) {
	if f.rewrite != nil {
		return f.rewrite(user), nil
	}
	return user, nil
}

func (f *fakeCompleter) CompleteJSON(ctx context.Context, model, system, user string, temperature float64, schemaName string, schema map[string]interface{}) (string, error) {
	switch schemaName {
	case "hook":
		f.hookCalls++
		return fmt.Sprintf(`{"hook_type":"cold_fact","hook_text":%q}`, testHook), nil
	case "draft_story":
		f.draftCalls++
		if f.draftCalls > len(f.drafts) {
			return "", fmt.Errorf("no more scripted drafts")
		}
		return f.drafts[f.draftCalls-1], nil
	case "seo_metadata":
		if f.auxFail {
			return "", fmt.Errorf("seo service down")
		}
		return `{"title":"Test Title","description":"Test desc","tags":["history"]}`, nil
	case "hook_variants":
		if f.auxFail {
			return "", fmt.Errorf("variants service down")
		}
		return `{"variants":[{"label":"hook_b","hook_text":"Alternate hook."}]}`, nil
	}
	return "", fmt.Errorf("unexpected schema %q", schemaName)
}

type fakeEmbedder struct{ calls int }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	return []float64{1, 0, 0}, nil
}

func newPipelineConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Script.Model = "gpt-test"
	cfg.Script.Temperature = 0.9
	cfg.Script.MaxAttempts = 3
	cfg.Script.FingerprintCap = 50
	cfg.Script.ShortSentence = 12
	cfg.Script.ShortRatioFloor = 0.60
	cfg.Script.SimilarityMin = 0.01
	cfg.Script.SimilarityMax = 0.99
	cfg.Script.GoldenScripts = filepath.Join(dir, "golden.json") // absent: gate skipped
	cfg.Paths.Fingerprints = filepath.Join(dir, "fingerprints.json")
	return cfg
}

func TestGenerateSuccess(t *testing.T) {
	llm := &fakeCompleter{
		drafts:  []string{goodDraft},
		rewrite: func(string) string { return goodNarration },
	}
	emb := &fakeEmbedder{}
	pipeline, err := NewPipeline(newPipelineConfig(t), llm, emb)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	doc, err := pipeline.Generate(context.Background(), "The Silent Lighthouse")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if doc.HookText != testHook {
		t.Errorf("hook = %q, want %q", doc.HookText, testHook)
	}
	if doc.ScriptText != goodNarration {
		t.Errorf("script text = %q", doc.ScriptText)
	}
	if doc.Metadata == nil || doc.Metadata.Title != "Test Title" {
		t.Errorf("SEO metadata not attached: %+v", doc.Metadata)
	}
	if len(doc.Variants) != 1 {
		t.Errorf("got %d hook variants, want 1", len(doc.Variants))
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times with an empty golden corpus", emb.calls)
	}
}

func TestGenerateRetriesRestartAtDraft(t *testing.T) {
	llm := &fakeCompleter{
		drafts:  []string{badDraft, goodDraft},
		rewrite: func(string) string { return goodNarration },
	}
	pipeline, err := NewPipeline(newPipelineConfig(t), llm, &fakeEmbedder{})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	if _, err := pipeline.Generate(context.Background(), "The Silent Lighthouse"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if llm.hookCalls != 1 {
		t.Errorf("hook generated %d times, want exactly 1 (retries restart at draft)", llm.hookCalls)
	}
	if llm.draftCalls != 2 {
		t.Errorf("draft generated %d times, want 2", llm.draftCalls)
	}
}

func TestGenerateRepairsDroppedHook(t *testing.T) {
	// the rewrite model drops the hook; the pipeline must force it back
	withoutHook := strings.TrimSpace(strings.TrimPrefix(goodNarration, testHook))
	llm := &fakeCompleter{
		drafts:  []string{goodDraft},
		rewrite: func(string) string { return withoutHook },
	}
	pipeline, err := NewPipeline(newPipelineConfig(t), llm, &fakeEmbedder{})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	doc, err := pipeline.Generate(context.Background(), "The Silent Lighthouse")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(doc.ScriptText, testHook) {
		t.Errorf("script does not start with hook: %q", doc.ScriptText)
	}
}

func TestGenerateExhaustsBudget(t *testing.T) {
	llm := &fakeCompleter{
		drafts:  []string{badDraft, badDraft, badDraft},
		rewrite: func(string) string { return goodNarration },
	}
	pipeline, err := NewPipeline(newPipelineConfig(t), llm, &fakeEmbedder{})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	_, err = pipeline.Generate(context.Background(), "The Silent Lighthouse")
	var exhausted *types.GenerationExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("got error %v, want GenerationExhaustedError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	var gateErr *types.ValidationError
	if !errors.As(err, &gateErr) || gateErr.Gate != "structural" {
		t.Errorf("last error = %v, want the structural gate rejection", exhausted.Last)
	}
}

func TestGenerateAuxiliaryFailuresNonBlocking(t *testing.T) {
	llm := &fakeCompleter{
		drafts:  []string{goodDraft},
		rewrite: func(string) string { return goodNarration },
		auxFail: true,
	}
	pipeline, err := NewPipeline(newPipelineConfig(t), llm, &fakeEmbedder{})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	doc, err := pipeline.Generate(context.Background(), "The Silent Lighthouse")
	if err != nil {
		t.Fatalf("Generate failed on auxiliary stage error: %v", err)
	}
	if doc.Metadata != nil {
		t.Error("metadata attached despite SEO failure")
	}
	if len(doc.Variants) != 0 {
		t.Error("variants attached despite failure")
	}
}
