// Package model defines shared data structures.
package model

import "time"

// Result sources.
const (
	SourcePractice = "practice"
	SourceExam     = "exam"
)

// Config defines practice settings.
type Config struct {
	Lang       string
	Words      int
	CapsPct    float64
	PunctPct   float64
	PunctSet   string
	FocusWeak  bool
	WeakTop    int
	WeakFactor float64
	WeakWindow int
	Duration   time.Duration
	Exam       string
	PassageID  string
	Candidate  string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Lang        string
	Exam        string
	Candidate   string
	Since       *time.Time
	Last        int
	CurveWindow int
	Words       string
}

// PassageFilter narrows passage listings.
type PassageFilter struct {
	Lang string
	Exam string
}

// Passage is a reference text candidates are asked to reproduce.
type Passage struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Lang      string    `json:"lang" bson:"lang"`
	Exam      string    `json:"exam,omitempty" bson:"exam"`
	Text      string    `json:"text,omitempty" bson:"text"`
	WordCount int       `json:"wordCount" bson:"wordCount"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Result is a scored typing submission.
type Result struct {
	ID             string    `json:"id" bson:"_id"`
	PassageID      string    `json:"passageId,omitempty" bson:"passageId"`
	Candidate      string    `json:"candidate" bson:"candidate"`
	Exam           string    `json:"exam,omitempty" bson:"exam"`
	Lang           string    `json:"lang" bson:"lang"`
	Source         string    `json:"source" bson:"source"`
	StartedAt      time.Time `json:"startedAt" bson:"startedAt"`
	EndedAt        time.Time `json:"endedAt" bson:"endedAt"`
	DurationMs     int64     `json:"durationMs" bson:"durationMs"`
	TypedText      string    `json:"typedText" bson:"typedText"`
	ReferenceText  string    `json:"referenceText" bson:"referenceText"`
	CorrectWords   int       `json:"correctWords" bson:"correctWords"`
	IncorrectWords int       `json:"incorrectWords" bson:"incorrectWords"`
	MissingWords   int       `json:"missingWords" bson:"missingWords"`
	GrossWPM       float64   `json:"grossWordsPerMinute" bson:"grossWpm"`
	NetWPM         float64   `json:"netWordsPerMinute" bson:"netWpm"`
	Accuracy       float64   `json:"accuracyPercent" bson:"accuracy"`
	Passed         bool      `json:"passed" bson:"passed"`
}

// WordStats stores per-word outcomes for a result.
type WordStats struct {
	Word      string `json:"word" bson:"word"`
	Correct   int    `json:"correct" bson:"correct"`
	Incorrect int    `json:"incorrect" bson:"incorrect"`
}

// WordAggregate aggregates word stats across results.
type WordAggregate struct {
	Word      string
	Correct   int
	Incorrect int
}

// ResultAggregate summarizes a result for reporting.
type ResultAggregate struct {
	ResultID   string    `json:"id"`
	Candidate  string    `json:"candidate"`
	Exam       string    `json:"exam,omitempty"`
	Lang       string    `json:"lang"`
	EndedAt    time.Time `json:"endedAt"`
	DurationMs int64     `json:"durationMs"`
	GrossWPM   float64   `json:"grossWordsPerMinute"`
	NetWPM     float64   `json:"netWordsPerMinute"`
	Accuracy   float64   `json:"accuracyPercent"`
	Passed     bool      `json:"passed"`
}

// Aggregate returns the reporting view of a result.
func (r Result) Aggregate() ResultAggregate {
	return ResultAggregate{
		ResultID:   r.ID,
		Candidate:  r.Candidate,
		Exam:       r.Exam,
		Lang:       r.Lang,
		EndedAt:    r.EndedAt,
		DurationMs: r.DurationMs,
		GrossWPM:   r.GrossWPM,
		NetWPM:     r.NetWPM,
		Accuracy:   r.Accuracy,
		Passed:     r.Passed,
	}
}

// Admin is a content administrator account.
type Admin struct {
	ID           string     `json:"id" bson:"_id"`
	Username     string     `json:"username" bson:"username"`
	PasswordHash string     `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" bson:"lastLogin,omitempty"`
}
