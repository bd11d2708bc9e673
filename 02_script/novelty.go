package script

import (
	"encoding/json"
	"os"

	"github.com/agnivade/levenshtein"
)

// NoveltyStore keeps the bounded ring of past plot fingerprints. Read on
// construction, rewritten after every accepted fingerprint.
type NoveltyStore struct {
	path string
	cap  int
	fps  []string
}

func NewNoveltyStore(path string, capacity int) (*NoveltyStore, error) {
	s := &NoveltyStore{path: path, cap: capacity}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.fps); err != nil {
		return nil, err
	}
	return s, nil
}

// Check returns false (and the offending ratio) when the fingerprint is a
// near-exact fuzzy match of a prior one. Accepted fingerprints are recorded
// immediately, trimming the ring to its cap.
func (s *NoveltyStore) Check(fingerprint string) (bool, float64, error) {
	for _, past := range s.fps {
		if r := fuzzyRatio(fingerprint, past); r >= 0.99 {
			return false, r, nil
		}
	}
	s.fps = append(s.fps, fingerprint)
	for len(s.fps) > s.cap {
		s.fps = s.fps[1:]
	}
	return true, 0, s.save()
}

func (s *NoveltyStore) save() error {
	data, err := json.Marshal(s.fps)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// fuzzyRatio maps edit distance to a 0..1 similarity.
func fuzzyRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}
