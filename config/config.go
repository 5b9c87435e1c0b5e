package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	YouTube   YouTubeConfig   `yaml:"youtube"`
	Video     VideoConfig     `yaml:"video"`
	Subtitles SubtitlesConfig `yaml:"subtitles"`
	Paths     PathsConfig     `yaml:"paths"`

	DescriptionTemplate string   `yaml:"description_template"`
	DefaultHashtags     []string `yaml:"default_hashtags"`
}

type BotConfig struct {
	ChannelID            string `yaml:"channel_id"`
	OwnerID              string `yaml:"owner_id"`
	CommandPrefix        string `yaml:"command_prefix"`
	TickMinutes          int    `yaml:"tick_minutes"`
	PromptTimeoutMinutes int    `yaml:"prompt_timeout_minutes"`
	UploadRetryAttempts  int    `yaml:"upload_retry_attempts"`
	RetryDelayMinutes    int    `yaml:"retry_delay_minutes"`
	MaxUploadsPerDay     int    `yaml:"max_uploads_per_day"`
}

type YouTubeConfig struct {
	OnlineMode        bool           `yaml:"online_mode"`
	DailyQuotaLimit   int            `yaml:"daily_quota_limit"`
	APICosts          map[string]int `yaml:"api_costs"`
	DefaultCategoryID string         `yaml:"default_category_id"`
}

type VideoConfig struct {
	ClipDurationSeconds int `yaml:"clip_duration_seconds"`
	ClipOverlapSeconds  int `yaml:"clip_overlap_seconds"`
}

type SubtitlesConfig struct {
	Enabled      bool    `yaml:"enabled"`
	WhisperModel string  `yaml:"whisper_model"`
	Font         string  `yaml:"font"`
	FontSize     int     `yaml:"font_size"`
	Color        string  `yaml:"color"`
	StrokeColor  string  `yaml:"stroke_color"`
	StrokeWidth  float64 `yaml:"stroke_width"`
	MarginBottom int     `yaml:"margin_bottom"`
}

type PathsConfig struct {
	InputVideos     string `yaml:"input_videos"`
	ProcessedClips  string `yaml:"processed_clips"`
	ProcessedVideos string `yaml:"processed_videos"`
	FailedUploads   string `yaml:"failed_uploads"`
	Quarantined     string `yaml:"quarantined_videos"`
	Logs            string `yaml:"logs"`
	ProgressFile    string `yaml:"progress_file"`
	ScheduleFile    string `yaml:"schedule_file"`
}

// Load reads config.yaml, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bot.CommandPrefix == "" {
		c.Bot.CommandPrefix = "!"
	}
	if c.Bot.TickMinutes <= 0 {
		c.Bot.TickMinutes = 5
	}
	if c.Bot.PromptTimeoutMinutes <= 0 {
		c.Bot.PromptTimeoutMinutes = 5
	}
	if c.Bot.UploadRetryAttempts <= 0 {
		c.Bot.UploadRetryAttempts = 3
	}
	if c.Bot.RetryDelayMinutes <= 0 {
		c.Bot.RetryDelayMinutes = 1
	}
	if c.Bot.MaxUploadsPerDay <= 0 {
		c.Bot.MaxUploadsPerDay = 10
	}
	if c.YouTube.DailyQuotaLimit <= 0 {
		c.YouTube.DailyQuotaLimit = 10000
	}
	if c.YouTube.DefaultCategoryID == "" {
		c.YouTube.DefaultCategoryID = "24"
	}
	if c.Video.ClipDurationSeconds <= 0 {
		c.Video.ClipDurationSeconds = 60
	}
	if c.Video.ClipOverlapSeconds < 0 {
		c.Video.ClipOverlapSeconds = 0
	}
	if c.Subtitles.WhisperModel == "" {
		c.Subtitles.WhisperModel = "base"
	}
	if c.Subtitles.FontSize <= 0 {
		c.Subtitles.FontSize = 42
	}
	if c.Paths.InputVideos == "" {
		c.Paths.InputVideos = "input_videos"
	}
	if c.Paths.ProcessedClips == "" {
		c.Paths.ProcessedClips = "processed_clips"
	}
	if c.Paths.ProcessedVideos == "" {
		c.Paths.ProcessedVideos = "processed_videos"
	}
	if c.Paths.FailedUploads == "" {
		c.Paths.FailedUploads = "failed_uploads"
	}
	if c.Paths.Quarantined == "" {
		c.Paths.Quarantined = "quarantined_videos"
	}
	if c.Paths.Logs == "" {
		c.Paths.Logs = "logs"
	}
	if c.Paths.ProgressFile == "" {
		c.Paths.ProgressFile = "progress.json"
	}
	if c.Paths.ScheduleFile == "" {
		c.Paths.ScheduleFile = "schedule.yaml"
	}
}

func (c *Config) validate() error {
	if c.Bot.ChannelID == "" {
		return fmt.Errorf("config: bot.channel_id is required")
	}
	if c.Video.ClipOverlapSeconds >= c.Video.ClipDurationSeconds {
		return fmt.Errorf("config: clip_overlap_seconds (%d) must be smaller than clip_duration_seconds (%d)",
			c.Video.ClipOverlapSeconds, c.Video.ClipDurationSeconds)
	}
	return nil
}
