package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !cfg.Audio.Microphone.IsValid() {
		errs = append(errs, fmt.Errorf("audio.microphone %q is invalid; valid values: portaudio, wsmic", cfg.Audio.Microphone))
	}
	if cfg.Audio.WaveformSamples < 0 {
		errs = append(errs, fmt.Errorf("audio.waveform_samples %d must not be negative", cfg.Audio.WaveformSamples))
	}
	if cfg.Audio.SampleIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_interval_ms %d must not be negative", cfg.Audio.SampleIntervalMs))
	}

	if !cfg.Recognition.Provider.IsValid() {
		errs = append(errs, fmt.Errorf("recognition.provider %q is invalid; valid values: whisper, mock", cfg.Recognition.Provider))
	}
	if cfg.Recognition.Provider == RecognizerWhisper && cfg.Recognition.ModelPath == "" {
		errs = append(errs, errors.New("recognition.model_path is required when recognition.provider is whisper"))
	}
	if cfg.Recognition.InterimIntervalMs < 0 {
		errs = append(errs, fmt.Errorf("recognition.interim_interval_ms %d must not be negative", cfg.Recognition.InterimIntervalMs))
	}

	if cfg.Content.PostgresDSN == "" {
		slog.Info("content.postgres_dsn is empty; serving the built-in in-memory articles")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
