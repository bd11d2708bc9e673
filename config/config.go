package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Channel  ChannelConfig  `yaml:"channel"`
	Topics   TopicsConfig   `yaml:"topics"`
	Script   ScriptConfig   `yaml:"script"`
	Audio    AudioConfig    `yaml:"audio"`
	Captions CaptionsConfig `yaml:"captions"`
	Images   ImagesConfig   `yaml:"images"`
	Render   RenderConfig   `yaml:"render"`
	Paths    PathsConfig    `yaml:"paths"`
}

// ChannelConfig is the style profile threaded explicitly into every stage
// (character/palette/camera bibles and prompt framing).
type ChannelConfig struct {
	Niche          string `yaml:"niche"`
	CharacterBible string `yaml:"character_bible"`
	PaletteBible   string `yaml:"palette_bible"`
	CameraBible    string `yaml:"camera_bible"`
	PromptPrefix   string `yaml:"prompt_prefix"`
	NegativePrompt string `yaml:"negative_prompt"`
	VoiceID        string `yaml:"voice_id"`
	MusicMood      string `yaml:"music_mood"`
}

type TopicsConfig struct {
	BatchSize int      `yaml:"batch_size"`
	Blacklist []string `yaml:"blacklist"`
}

type ScriptConfig struct {
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	MaxAttempts     int     `yaml:"max_attempts"`
	SimilarityMin   float64 `yaml:"similarity_min"`
	SimilarityMax   float64 `yaml:"similarity_max"`
	GoldenScripts   string  `yaml:"golden_scripts"`
	FingerprintCap  int     `yaml:"fingerprint_cap"`
	ShortSentence   int     `yaml:"short_sentence_words"`
	ShortRatioFloor float64 `yaml:"short_ratio_floor"`
}

type AudioConfig struct {
	SampleRate     int     `yaml:"sample_rate"`
	DefaultSilence float64 `yaml:"default_silence_sec"`
}

type CaptionsConfig struct {
	Uppercase        bool    `yaml:"uppercase"`
	FadeInThreshold  float64 `yaml:"fade_in_threshold_sec"`
	WhisperModel     string  `yaml:"whisper_model"`
	Font             string  `yaml:"font"`
	FontSize         int     `yaml:"font_size"`
	StrokeWidth      float64 `yaml:"stroke_width"`
	MarginBottom     int     `yaml:"margin_bottom"`
	TranscribeOnMiss bool    `yaml:"transcribe_on_miss"`
}

type ImagesConfig struct {
	ServerAddress    string  `yaml:"server_address"`
	ClientID         string  `yaml:"client_id"`
	Checkpoint       string  `yaml:"checkpoint"`
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	Steps            int     `yaml:"steps"`
	CFG              float64 `yaml:"cfg"`
	Sampler          string  `yaml:"sampler"`
	PollIntervalSec  float64 `yaml:"poll_interval_sec"`
	PollMaxAttempts  int     `yaml:"poll_max_attempts"`
	ScoreURL         string  `yaml:"score_url"`
	QualityThreshold float64 `yaml:"quality_threshold"`
}

type RenderConfig struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPS             int     `yaml:"fps"`
	KenBurnsZoom    float64 `yaml:"ken_burns_zoom"`
	MusicVolume     float64 `yaml:"music_volume"`
	MusicFadeSec    float64 `yaml:"music_fade_sec"`
	BurnCaptions    bool    `yaml:"burn_captions"`
}

type PathsConfig struct {
	Output       string `yaml:"output"`
	TopicState   string `yaml:"topic_state"`
	Fingerprints string `yaml:"fingerprints"`
	RunStats     string `yaml:"run_stats"`
	MusicDir     string `yaml:"music_dir"`
}

// Load reads config.yaml and returns a Config struct
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Topics.BatchSize == 0 {
		c.Topics.BatchSize = 50
	}
	if c.Script.MaxAttempts == 0 {
		c.Script.MaxAttempts = 3
	}
	if c.Script.FingerprintCap == 0 {
		c.Script.FingerprintCap = 50
	}
	if c.Script.ShortSentence == 0 {
		c.Script.ShortSentence = 12
	}
	if c.Script.ShortRatioFloor == 0 {
		c.Script.ShortRatioFloor = 0.60
	}
	if c.Script.SimilarityMin == 0 {
		c.Script.SimilarityMin = 0.01
	}
	if c.Script.SimilarityMax == 0 {
		c.Script.SimilarityMax = 0.99
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 44100
	}
	if c.Audio.DefaultSilence == 0 {
		c.Audio.DefaultSilence = 1.0
	}
	if c.Captions.FadeInThreshold == 0 {
		c.Captions.FadeInThreshold = 0.4
	}
	if c.Images.ClientID == "" {
		c.Images.ClientID = "faceless_studio"
	}
	if c.Images.Width == 0 {
		c.Images.Width = 512
	}
	if c.Images.Height == 0 {
		c.Images.Height = 896
	}
	if c.Images.Steps == 0 {
		c.Images.Steps = 25
	}
	if c.Images.CFG == 0 {
		c.Images.CFG = 6
	}
	if c.Images.Sampler == "" {
		c.Images.Sampler = "euler"
	}
	if c.Images.PollIntervalSec == 0 {
		c.Images.PollIntervalSec = 1.0
	}
	if c.Images.PollMaxAttempts == 0 {
		c.Images.PollMaxAttempts = 300
	}
	if c.Render.Width == 0 {
		c.Render.Width = 1080
	}
	if c.Render.Height == 0 {
		c.Render.Height = 1920
	}
	if c.Render.FPS == 0 {
		c.Render.FPS = 30
	}
	if c.Render.KenBurnsZoom == 0 {
		c.Render.KenBurnsZoom = 1.1
	}
	if c.Render.MusicVolume == 0 {
		c.Render.MusicVolume = 0.15
	}
}
