// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Quiz QuizConfig `toml:"quiz"`
}

// QuizConfig maps quiz settings. Nil fields are unset.
type QuizConfig struct {
	Rounds       *int    `toml:"rounds"`
	Clef         *string `toml:"clef"`
	Octaves      []int   `toml:"octaves"`
	Notation     *string `toml:"notation"`
	Sound        *bool   `toml:"sound"`
	AdvanceDelay *string `toml:"advance-delay"`
	MIDI         *bool   `toml:"midi"`
	MIDIDevice   *string `toml:"midi-device"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	if _, _, err := cfg.Quiz.Delay(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// Delay parses advance-delay. ok is false when the key is unset.
func (q QuizConfig) Delay() (d time.Duration, ok bool, err error) {
	if q.AdvanceDelay == nil {
		return 0, false, nil
	}
	d, err = time.ParseDuration(*q.AdvanceDelay)
	if err != nil {
		return 0, false, fmt.Errorf("invalid advance-delay %q: %w", *q.AdvanceDelay, err)
	}
	if d <= 0 {
		return 0, false, fmt.Errorf("advance-delay must be positive, got %s", d)
	}
	return d, true, nil
}
