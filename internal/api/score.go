package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/verte-zerg/cpctprep/internal/exam"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

type scoreAPI struct {
	engine typing.Engine
	exams  *exam.Registry
}

// ScoreRequest is a stateless scoring request.
type ScoreRequest struct {
	TypedText      string  `json:"typedText"`
	ReferenceText  string  `json:"referenceText"`
	ElapsedSeconds float64 `json:"elapsedSeconds" validate:"gte=0,lte=86400"`
}

// ScoreResponse returns metrics plus alignment counts.
type ScoreResponse struct {
	Metrics        typing.Metrics       `json:"metrics"`
	CorrectWords   int                  `json:"correctWords"`
	IncorrectWords int                  `json:"incorrectWords"`
	MissingWords   int                  `json:"missingWords"`
	Words          []typing.WordOutcome `json:"words,omitempty"`
}

// ExamView is the API form of an exam profile.
type ExamView struct {
	exam.Profile
	DurationMinutes float64 `json:"durationMinutes"`
}

func registerScoreAPI(g *echo.Group, engine typing.Engine, exams *exam.Registry) {
	api := &scoreAPI{engine: engine, exams: exams}
	g.POST("/score", api.score)
	g.GET("/exams", api.listExams)
}

func (api *scoreAPI) score(ctx echo.Context) error {
	var data ScoreRequest
	if err := ctx.Bind(&data); err != nil {
		return err
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}
	metrics, alignment := api.engine.ScoreMinutes(data.TypedText, data.ReferenceText, data.ElapsedSeconds/60)
	return ctx.JSON(http.StatusOK, newScoreResponse(metrics, alignment))
}

func (api *scoreAPI) listExams(ctx echo.Context) error {
	profiles := api.exams.List()
	out := make([]ExamView, len(profiles))
	for i, p := range profiles {
		out[i] = ExamView{Profile: p, DurationMinutes: p.DurationMinutes()}
	}
	return ctx.JSON(http.StatusOK, out)
}

func newScoreResponse(m typing.Metrics, a typing.Alignment) ScoreResponse {
	return ScoreResponse{
		Metrics:        m,
		CorrectWords:   a.Correct,
		IncorrectWords: a.Incorrect,
		MissingWords:   a.Missing,
		Words:          a.Words,
	}
}

// Elapsed times are validated to at most a day before they get here.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
