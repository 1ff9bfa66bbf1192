// Package exam applies pass/fail thresholds to typing metrics.
package exam

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/verte-zerg/cpctprep/internal/typing"
)

// ErrUnknownExam is returned for exam keys with no registered profile.
var ErrUnknownExam = errors.New("unknown exam")

// Profile describes one exam's timing and qualifying thresholds.
type Profile struct {
	Key         string        `json:"key"`
	Name        string        `json:"name"`
	Lang        string        `json:"lang"`
	Duration    time.Duration `json:"-"`
	MinNetWPM   float64       `json:"minNetWordsPerMinute"`
	MinAccuracy float64       `json:"minAccuracyPercent"`
}

// DurationMinutes is the exam length exposed over the API.
func (p Profile) DurationMinutes() float64 {
	return p.Duration.Minutes()
}

// Verdict is the outcome of evaluating metrics against a profile.
type Verdict struct {
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons,omitempty"`
}

// Evaluate compares metrics to the profile thresholds. A zero threshold is
// not enforced.
func (p Profile) Evaluate(m typing.Metrics) Verdict {
	var reasons []string
	if p.MinNetWPM > 0 && m.NetWordsPerMinute < p.MinNetWPM {
		reasons = append(reasons, fmt.Sprintf("net speed %.2f wpm is below the required %.2f wpm", m.NetWordsPerMinute, p.MinNetWPM))
	}
	if p.MinAccuracy > 0 && m.AccuracyPercent < p.MinAccuracy {
		reasons = append(reasons, fmt.Sprintf("accuracy %.2f%% is below the required %.2f%%", m.AccuracyPercent, p.MinAccuracy))
	}
	return Verdict{Passed: len(reasons) == 0, Reasons: reasons}
}

// Defaults returns the built-in CPCT profiles.
func Defaults() []Profile {
	return []Profile{
		{
			Key:       "cpct-english",
			Name:      "CPCT English Typing",
			Lang:      "en",
			Duration:  10 * time.Minute,
			MinNetWPM: 30,
		},
		{
			Key:       "cpct-hindi",
			Name:      "CPCT Hindi Typing",
			Lang:      "hi",
			Duration:  10 * time.Minute,
			MinNetWPM: 20,
		},
	}
}

// Registry holds exam profiles by key.
type Registry struct {
	profiles map[string]Profile
}

// NewRegistry builds a registry from profiles; later entries replace earlier
// ones with the same key.
func NewRegistry(profiles ...Profile) *Registry {
	r := &Registry{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		r.profiles[p.Key] = p
	}
	return r
}

// Lookup returns the profile for key.
func (r *Registry) Lookup(key string) (Profile, error) {
	p, ok := r.profiles[key]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownExam, key)
	}
	return p, nil
}

// List returns all profiles sorted by key.
func (r *Registry) List() []Profile {
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}
