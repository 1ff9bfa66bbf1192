// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/cpctprep/internal/exam"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig        `toml:"practice"`
	Scoring  ScoringConfig         `toml:"scoring"`
	Server   ServerFileConfig      `toml:"server"`
	Exams    map[string]ExamConfig `toml:"exams"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Lang       *string  `toml:"lang"`
	Words      *int     `toml:"words"`
	CapsPct    *float64 `toml:"caps"`
	PunctPct   *float64 `toml:"punct"`
	PunctSet   *string  `toml:"punct-set"`
	FocusWeak  *bool    `toml:"focus-weak"`
	WeakTop    *int     `toml:"weak-top"`
	WeakFactor *float64 `toml:"weak-factor"`
	WeakWindow *int     `toml:"weak-window"`
	Duration   *string  `toml:"duration"`
	Exam       *string  `toml:"exam"`
	Candidate  *string  `toml:"candidate"`
}

// ScoringConfig maps engine settings.
type ScoringConfig struct {
	Rounding *string `toml:"rounding"`
}

// ServerFileConfig maps API server settings. Environment variables override them.
type ServerFileConfig struct {
	Addr       *string `toml:"addr"`
	Backend    *string `toml:"backend"`
	MongoURI   *string `toml:"mongo-uri"`
	MongoDB    *string `toml:"mongo-db"`
	JWTTTL     *string `toml:"jwt-ttl"`
	LogFile    *string `toml:"log-file"`
	Debug      *bool   `toml:"debug"`
	SecureCook *bool   `toml:"secure-cookie"`
}

// ExamConfig overrides or adds an exam profile.
type ExamConfig struct {
	Name        *string  `toml:"name"`
	Lang        *string  `toml:"lang"`
	Duration    *string  `toml:"duration"`
	MinNetWPM   *float64 `toml:"min-net-wpm"`
	MinAccuracy *float64 `toml:"min-accuracy"`
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
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Engine builds the scoring engine described by the file.
func (c FileConfig) Engine() (typing.Engine, error) {
	var mode string
	if c.Scoring.Rounding != nil {
		mode = *c.Scoring.Rounding
	}
	rounding, err := typing.ParseRoundingMode(mode)
	if err != nil {
		return typing.Engine{}, fmt.Errorf("invalid [scoring] rounding: %w", err)
	}
	return typing.Engine{Rounding: rounding}, nil
}

// ExamRegistry merges [exams.<key>] tables over the built-in profiles.
func (c FileConfig) ExamRegistry() (*exam.Registry, error) {
	profiles := exam.Defaults()
	byKey := make(map[string]int, len(profiles))
	for i, p := range profiles {
		byKey[p.Key] = i
	}
	for key, ec := range c.Exams {
		idx, ok := byKey[key]
		if !ok {
			profiles = append(profiles, exam.Profile{Key: key, Name: key})
			idx = len(profiles) - 1
			byKey[key] = idx
		}
		p := profiles[idx]
		if ec.Name != nil {
			p.Name = *ec.Name
		}
		if ec.Lang != nil {
			p.Lang = *ec.Lang
		}
		if ec.Duration != nil {
			d, err := time.ParseDuration(*ec.Duration)
			if err != nil {
				return nil, fmt.Errorf("invalid duration for exam %q: %w", key, err)
			}
			p.Duration = d
		}
		if ec.MinNetWPM != nil {
			p.MinNetWPM = *ec.MinNetWPM
		}
		if ec.MinAccuracy != nil {
			p.MinAccuracy = *ec.MinAccuracy
		}
		profiles[idx] = p
	}
	return exam.NewRegistry(profiles...), nil
}
