package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTopicExhaustion: no unused, non-blacklisted topic remained after the
// single allowed regeneration. Fatal for the job.
var ErrTopicExhaustion = errors.New("topic exhaustion: no new unique topics found")

// ValidationError carries the reasons a quality gate rejected a draft.
// Retried locally within the stage's budget.
type ValidationError struct {
	Gate    string
	Reasons []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gate %q rejected draft: %s", e.Gate, strings.Join(e.Reasons, "; "))
}

// GenerationExhaustedError: every attempt of the script pipeline was
// discarded by a gate or a collaborator failure. Aborts the job, not the daemon.
type GenerationExhaustedError struct {
	Attempts int
	Last     error
}

func (e *GenerationExhaustedError) Error() string {
	return fmt.Sprintf("script generation exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *GenerationExhaustedError) Unwrap() error { return e.Last }

// ServiceError: an external collaborator (image queue, TTS, transcription)
// errored or went unreachable. Fatal for the current job.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s service failure: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
