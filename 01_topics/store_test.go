package topics

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/types"
)

type fakeGenerator struct {
	batches [][]string
	calls   int
}

func (f *fakeGenerator) GenerateBatch(ctx context.Context) ([]string, error) {
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	batch := f.batches[f.calls]
	f.calls++
	return batch, nil
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Paths.TopicState = filepath.Join(t.TempDir(), "topics.json")
	return cfg
}

func seedState(t *testing.T, path string, used, candidates []string) {
	t.Helper()
	data, err := json.Marshal(map[string][]string{
		"used_topics": used,
		"candidates":  candidates,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFreshTopicSkipsUsed(t *testing.T) {
	cfg := newTestConfig(t)
	seedState(t, cfg.Paths.TopicState, []string{"Old Topic"}, nil)

	gen := &fakeGenerator{batches: [][]string{{"Old Topic", "New Topic"}}}
	store, err := NewStore(cfg, gen)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	topic, err := store.FreshTopic(context.Background())
	if err != nil {
		t.Fatalf("FreshTopic: %v", err)
	}
	if topic != "New Topic" {
		t.Errorf("got topic %q, want %q", topic, "New Topic")
	}
}

func TestFreshTopicDrainsCandidatesFirst(t *testing.T) {
	cfg := newTestConfig(t)
	seedState(t, cfg.Paths.TopicState, nil, []string{"Queued Topic", "Later Topic"})

	gen := &fakeGenerator{}
	store, err := NewStore(cfg, gen)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	topic, err := store.FreshTopic(context.Background())
	if err != nil {
		t.Fatalf("FreshTopic: %v", err)
	}
	if topic != "Queued Topic" {
		t.Errorf("got topic %q, want %q", topic, "Queued Topic")
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times with a non-empty candidate queue", gen.calls)
	}
}

func TestFreshTopicBlacklist(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Topics.Blacklist = []string{"Roanoke"}

	gen := &fakeGenerator{batches: [][]string{{
		"The Titanic Sinking",     // default blacklist
		"The Roanoke Colony Case", // config blacklist
		"Safe Topic",
	}}}
	store, err := NewStore(cfg, gen)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	topic, err := store.FreshTopic(context.Background())
	if err != nil {
		t.Fatalf("FreshTopic: %v", err)
	}
	if topic != "Safe Topic" {
		t.Errorf("got topic %q, want %q", topic, "Safe Topic")
	}
}

func TestFreshTopicExhaustion(t *testing.T) {
	cfg := newTestConfig(t)
	seedState(t, cfg.Paths.TopicState, []string{"Only Topic"}, nil)

	// both generation attempts produce nothing but the already-used topic
	gen := &fakeGenerator{batches: [][]string{{"Only Topic"}, {"Only Topic"}}}
	store, err := NewStore(cfg, gen)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	_, err = store.FreshTopic(context.Background())
	if !errors.Is(err, types.ErrTopicExhaustion) {
		t.Fatalf("got error %v, want ErrTopicExhaustion", err)
	}
	if gen.calls != 2 {
		t.Errorf("generator called %d times, want exactly 2 (one retry)", gen.calls)
	}
}

func TestFreshTopicPersistsState(t *testing.T) {
	cfg := newTestConfig(t)
	gen := &fakeGenerator{batches: [][]string{{"Alpha", "Beta", "Gamma"}}}
	store, err := NewStore(cfg, gen)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	topic, err := store.FreshTopic(context.Background())
	if err != nil {
		t.Fatalf("FreshTopic: %v", err)
	}

	data, err := os.ReadFile(cfg.Paths.TopicState)
	if err != nil {
		t.Fatalf("state file not written: %v", err)
	}
	var saved struct {
		UsedTopics []string `json:"used_topics"`
		Candidates []string `json:"candidates"`
	}
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("parse state file: %v", err)
	}
	if len(saved.UsedTopics) != 1 || saved.UsedTopics[0] != topic {
		t.Errorf("used_topics = %v, want [%q]", saved.UsedTopics, topic)
	}
	if len(saved.Candidates) != 2 {
		t.Errorf("candidates = %v, want the 2 unselected topics", saved.Candidates)
	}

	// a second store over the same file must not reissue the topic
	store2, err := NewStore(cfg, &fakeGenerator{})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	next, err := store2.FreshTopic(context.Background())
	if err != nil {
		t.Fatalf("FreshTopic after reload: %v", err)
	}
	if next == topic {
		t.Errorf("reissued already-used topic %q", topic)
	}
}
