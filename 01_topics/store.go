// Package topics persists used and candidate topics and hands out
// dedup-checked fresh ones.
package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/AyoubElhamidi33/faceless/config"
	"github.com/AyoubElhamidi33/faceless/types"
)

// defaultBlacklist covers topics done to death on every channel in the niche.
var defaultBlacklist = []string{
	"Flight 19", "Dyatlov Pass", "Elisa Lam", "MH370", "Titanic", "Bermuda Triangle",
}

// BatchGenerator produces a fresh batch of candidate topics.
type BatchGenerator interface {
	GenerateBatch(ctx context.Context) ([]string, error)
}

type state struct {
	UsedTopics []string `json:"used_topics"`
	Candidates []string `json:"candidates"`
}

// Store is the durable topic novelty store. Single-threaded read-modify-write;
// concurrent runners need file-level locking.
type Store struct {
	statePath string
	blacklist []string
	gen       BatchGenerator
	state     state
}

func NewStore(cfg *config.Config, gen BatchGenerator) (*Store, error) {
	s := &Store{
		statePath: cfg.Paths.TopicState,
		blacklist: append(append([]string{}, defaultBlacklist...), cfg.Topics.Blacklist...),
		gen:       gen,
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("load topic state: %w", err)
	}
	return s, nil
}

// FreshTopic returns the next unused, non-blacklisted topic. It drains the
// candidate queue first and only asks the generator when the queue is empty.
// On total exhaustion it regenerates exactly once more before failing — a
// used topic is never silently reissued.
func (s *Store) FreshTopic(ctx context.Context) (string, error) {
	log.Println("[topics] Fetching fresh topic...")

	for len(s.state.Candidates) > 0 {
		candidate := s.state.Candidates[0]
		s.state.Candidates = s.state.Candidates[1:]
		if !s.isBlacklisted(candidate) && !s.isUsed(candidate) {
			if err := s.markUsed(candidate); err != nil {
				return "", err
			}
			return candidate, nil
		}
	}

	log.Println("[topics] Cache empty — generating new batch...")
	valid, err := s.generateValid(ctx)
	if err != nil {
		return "", err
	}
	if len(valid) == 0 {
		log.Println("[topics] Warning: all generated topics were duplicates or blacklisted — retrying generation once")
		valid, err = s.generateValid(ctx)
		if err != nil {
			return "", err
		}
		if len(valid) == 0 {
			return "", types.ErrTopicExhaustion
		}
	}

	chosen := valid[0]
	s.state.Candidates = append(s.state.Candidates, valid[1:]...)
	if err := s.markUsed(chosen); err != nil {
		return "", err
	}
	return chosen, nil
}

func (s *Store) generateValid(ctx context.Context) ([]string, error) {
	batch, err := s.gen.GenerateBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("topic batch generation: %w", err)
	}
	var valid []string
	for _, t := range batch {
		if !s.isBlacklisted(t) && !s.isUsed(t) {
			valid = append(valid, t)
		}
	}
	return valid, nil
}

// markUsed appends to used_topics and persists; the candidate was already
// popped, so the pop+append lands in one write.
func (s *Store) markUsed(topic string) error {
	log.Printf("[topics] Selected %q", topic)
	s.state.UsedTopics = append(s.state.UsedTopics, topic)
	return s.save()
}

func (s *Store) isUsed(topic string) bool {
	for _, u := range s.state.UsedTopics {
		if u == topic {
			return true
		}
	}
	return false
}

func (s *Store) isBlacklisted(topic string) bool {
	lower := strings.ToLower(topic)
	for _, bad := range s.blacklist {
		if strings.Contains(lower, strings.ToLower(bad)) {
			return true
		}
	}
	return false
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.statePath)
	if os.IsNotExist(err) {
		s.state = state{}
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.state)
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.statePath, data, 0644)
}
