package types

// EventType is the severity category assigned to a scene by the event curve.
type EventType string

const (
	EventNormal     EventType = "NORMAL"
	EventWarning    EventType = "WARNING"
	EventEscalation EventType = "ESCALATION"
	EventDanger     EventType = "DANGER"
	EventAftermath  EventType = "AFTERMATH"
)

// Severity orders event types for curve checks. Unknown types rank lowest.
func (e EventType) Severity() int {
	switch e {
	case EventNormal:
		return 0
	case EventWarning:
		return 1
	case EventEscalation:
		return 2
	case EventDanger:
		return 3
	case EventAftermath:
		return 4
	}
	return -1
}

// Scene is one of the 16 visual slots of a video. Created by the storyboard
// engine; immutable once handed to the image client.
type Scene struct {
	BeatText       string    `json:"beat_text"`
	MainSubject    string    `json:"main_subject"`
	Action         string    `json:"action"`
	Location       string    `json:"location"`
	Time           string    `json:"time"`
	Lighting       string    `json:"lighting"`
	Atmosphere     string    `json:"atmosphere"`
	VisibleObjects []string  `json:"visible_objects"`
	Camera         string    `json:"camera"`
	EventType      EventType `json:"event_type"`
}

// WriterScene is the partial per-scene suggestion the script writer emits.
// Empty fields fall back to deterministic storyboard defaults.
type WriterScene struct {
	Location       string   `json:"location,omitempty"`
	MainSubject    string   `json:"main_subject,omitempty"`
	Action         string   `json:"action,omitempty"`
	Camera         string   `json:"camera,omitempty"`
	VisibleObjects []string `json:"visible_objects,omitempty"`
	EventType      string   `json:"event_type,omitempty"`
}

// ScriptDocument is the validated output of the script synthesis pipeline.
type ScriptDocument struct {
	Topic             string        `json:"topic"`
	HookText          string        `json:"hook_text"`
	HookType          string        `json:"hook_type"`
	ScriptText        string        `json:"script_text"`
	Scenes            []WriterScene `json:"scenes"`
	BeatWords         []string      `json:"beat_words"`
	NarrativePOV      string        `json:"narrative_pov,omitempty"`
	FactConfidence    string        `json:"fact_confidence,omitempty"`
	EscalationPattern string        `json:"escalation_pattern,omitempty"`
	EndingType        string        `json:"ending_type,omitempty"`
	StickyEndingLine  string        `json:"sticky_ending_line,omitempty"`
	IconicSceneIndex  int           `json:"iconic_scene_index,omitempty"`
	Metadata          *SEOMetadata  `json:"metadata,omitempty"`
	Variants          []HookVariant `json:"variants,omitempty"`
}

// Fingerprint summarizes the plot shape for novelty deduplication.
func (d *ScriptDocument) Fingerprint() string {
	return d.HookType + "|" + d.EscalationPattern + "|" + d.EndingType
}

// SEOMetadata is the non-blocking auxiliary output of the script pipeline.
type SEOMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// HookVariant is an alternate hook for A/B posting.
type HookVariant struct {
	Label    string `json:"label"`
	HookText string `json:"hook_text"`
}

// SegmentType distinguishes speech from inserted silence on the timeline.
type SegmentType string

const (
	SegmentSpeech  SegmentType = "speech"
	SegmentSilence SegmentType = "silence"
)

// AudioSegment is one time-stamped slice of the narration track.
// Segments are contiguous: End == Start + duration, first Start == 0.
type AudioSegment struct {
	Start float64     `json:"start"`
	End   float64     `json:"end"`
	Text  string      `json:"text"`
	Type  SegmentType `json:"type"`
}

// Duration returns End - Start.
func (s AudioSegment) Duration() float64 { return s.End - s.Start }

// CaptionCue is one on-screen word or phrase with its display interval.
type CaptionCue struct {
	Text   string  `json:"text"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	FadeIn bool    `json:"fade_in,omitempty"`
}

// JobStatus tracks an image generation job through the external queue.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// ImageJob is one submitted scene render.
type ImageJob struct {
	SceneIndex     int       `json:"scene_index"`
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt"`
	Seed           int64     `json:"seed"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	Steps          int       `json:"steps"`
	Sampler        string    `json:"sampler"`
	PromptID       string    `json:"prompt_id,omitempty"`
	Status         JobStatus `json:"status"`
	OutputPath     string    `json:"output_path,omitempty"`
}

// RunStats is the persisted daemon counter file.
type RunStats struct {
	JobsCompleted int `json:"jobs_completed"`
	JobsFailed    int `json:"jobs_failed"`
}

// JobState is the per-job artifact trail saved alongside intermediate files.
type JobState struct {
	JobID       string          `json:"job_id"`
	Topic       string          `json:"topic"`
	StartedAt   string          `json:"started_at"`
	CompletedAt string          `json:"completed_at,omitempty"`
	Script      *ScriptDocument `json:"script,omitempty"`
	AudioFile   string          `json:"audio_file,omitempty"`
	Timeline    []AudioSegment  `json:"timeline,omitempty"`
	ImageFiles  []string        `json:"image_files,omitempty"`
	VideoFile   string          `json:"video_file,omitempty"`
	Error       string          `json:"error,omitempty"`
}
