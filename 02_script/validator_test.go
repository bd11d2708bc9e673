package script

import (
	"strings"
	"testing"

	"github.com/AyoubElhamidi33/faceless/types"
)

func TestValidateStructure(t *testing.T) {
	doc := &types.ScriptDocument{
		HookText:       "A hook.",
		ScriptText:     "Some narration.",
		Scenes:         make([]types.WriterScene, 5),
		BeatWords:      []string{"hook"},
		FactConfidence: "high",
	}
	if ok, probs := ValidateStructure(doc); !ok {
		t.Errorf("complete doc rejected: %v", probs)
	}

	doc.FactConfidence = ""
	if ok, _ := ValidateStructure(doc); ok {
		t.Error("missing fact_confidence accepted")
	}

	doc.FactConfidence = "high"
	doc.Scenes = make([]types.WriterScene, 3)
	if ok, _ := ValidateStructure(doc); ok {
		t.Error("3 scenes accepted, want rejection below 5")
	}
}

func TestValidateSafety(t *testing.T) {
	doc := &types.ScriptDocument{ScriptText: "The factory stood silent for decades."}
	if ok, probs := ValidateSafety(doc); !ok {
		t.Errorf("clean text rejected: %v", probs)
	}

	doc.ScriptText = "A documentary about Hitler's bunker."
	if ok, _ := ValidateSafety(doc); ok {
		t.Error("unsafe term passed the safety gate")
	}
}

func TestValidateHumanVoiceForbiddenPhrase(t *testing.T) {
	if ok, _ := ValidateHumanVoice("Little did he know the end was near.", 12, 0.6); ok {
		t.Error("forbidden phrase accepted")
	}
}

func TestValidateHumanVoiceSentenceLength(t *testing.T) {
	long := "This single sentence keeps going and going with far too many words for anyone to comfortably read aloud in one breath."
	if ok, _ := ValidateHumanVoice(long, 12, 0.6); ok {
		t.Error("long-winded prose accepted")
	}

	short := "The door opened. Nobody was there. The lamp swung once. Then it stopped."
	if ok, probs := ValidateHumanVoice(short, 12, 0.6); !ok {
		t.Errorf("short prose rejected: %v", probs)
	}
}

func TestValidateSensoryDetail(t *testing.T) {
	if ok, probs := ValidateSensoryDetail("The night was cold and dark."); !ok {
		t.Errorf("two sensory words rejected: %v", probs)
	}
	if ok, probs := ValidateSensoryDetail("A red glow, then a bang!"); !ok {
		t.Errorf("punctuated sensory words rejected: %v", probs)
	}
	if ok, _ := ValidateSensoryDetail("The smell lingered."); ok {
		t.Error("single sensory word accepted, want >= 2")
	}
	// "wandered" and "lingered" both contain "red" but carry no sensory detail
	if ok, _ := ValidateSensoryDetail("They wandered and lingered there."); ok {
		t.Error("lexicon entries matched inside unrelated words")
	}
}

func TestValidateFalseCalmTextHeuristic(t *testing.T) {
	// quiet -> exploded lacks the warning/return-to-calm stages
	fail := &types.ScriptDocument{ScriptText: "It was quiet. Then it exploded."}
	if ok, _ := ValidateFalseCalm(fail); ok {
		t.Error("calm -> danger with no intermediate stages accepted")
	}

	pass := &types.ScriptDocument{
		ScriptText: "Everything was quiet. Then came a low rumble. The rumble stopped. Then it exploded.",
	}
	if ok, probs := ValidateFalseCalm(pass); !ok {
		t.Errorf("full false-calm arc rejected: %v", probs)
	}
}

func TestValidateFalseCalmPermissiveWithoutMarkers(t *testing.T) {
	doc := &types.ScriptDocument{ScriptText: "The sky is big. Cats sit on mats."}
	if ok, probs := ValidateFalseCalm(doc); !ok {
		t.Errorf("marker-free text rejected: %v", probs)
	}
}

func TestValidateFalseCalmSceneTagsAuthoritative(t *testing.T) {
	// text alone would pass, but the tags lack the return-to-calm stage
	doc := &types.ScriptDocument{
		ScriptText: "Everything was quiet. Then came a low rumble. The rumble stopped. Then it exploded.",
		Scenes: []types.WriterScene{
			{EventType: "NORMAL"},
			{EventType: "WARNING"},
			{EventType: "DANGER"},
		},
	}
	if ok, _ := ValidateFalseCalm(doc); ok {
		t.Error("scene tags missing the arc, but gate passed on text")
	}

	doc.Scenes = []types.WriterScene{
		{EventType: "NORMAL"},
		{EventType: "WARNING"},
		{EventType: "NORMAL"},
		{EventType: "DANGER"},
	}
	if ok, probs := ValidateFalseCalm(doc); !ok {
		t.Errorf("tagged false-calm arc rejected: %v", probs)
	}
}

func TestNormalizeEventVocabulary(t *testing.T) {
	cases := map[string]types.EventType{
		"warning":    types.EventWarning,
		"UNSETTLING": types.EventWarning,
		"doom":       types.EventDanger,
		"aftermath":  types.EventAftermath,
		"anything":   types.EventNormal,
		"":           types.EventNormal,
	}
	for raw, want := range cases {
		if got := normalizeEvent(raw); got != want {
			t.Errorf("normalizeEvent(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float64{1, 0, 0}
	if got := cosineSimilarity(a, a); got < 0.999 {
		t.Errorf("self similarity = %f, want ~1", got)
	}
	b := []float64{0, 1, 0}
	if got := cosineSimilarity(a, b); got != 0 {
		t.Errorf("orthogonal similarity = %f, want 0", got)
	}
	if got := cosineSimilarity(a, []float64{1, 2}); got != 0 {
		t.Errorf("mismatched lengths = %f, want 0", got)
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("One. Two!  Three? ")
	if len(got) != 3 {
		t.Fatalf("got %d sentences, want 3: %v", len(got), got)
	}
	if strings.TrimSpace(got[2]) != "Three" {
		t.Errorf("third sentence = %q", got[2])
	}
}
