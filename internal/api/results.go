package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/verte-zerg/cpctprep/internal/exam"
	"github.com/verte-zerg/cpctprep/internal/logging"
	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/stats"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

type resultAPI struct {
	store  Store
	engine typing.Engine
	exams  *exam.Registry
}

// ResultRequest submits typed text for a stored passage.
type ResultRequest struct {
	PassageID      string     `json:"passageId" validate:"required"`
	Candidate      string     `json:"candidate" validate:"required,max=64"`
	Exam           string     `json:"exam" validate:"max=64"`
	TypedText      string     `json:"typedText"`
	ElapsedSeconds float64    `json:"elapsedSeconds" validate:"gt=0,lte=86400"`
	StartedAt      *time.Time `json:"startedAt"`
}

// ResultResponse carries the stored result and exam verdict.
type ResultResponse struct {
	Result       model.Result         `json:"result"`
	MissingWords int                  `json:"missingWords"`
	Verdict      *exam.Verdict        `json:"verdict,omitempty"`
	Metrics      typing.Metrics       `json:"metrics"`
	Words        []typing.WordOutcome `json:"words,omitempty"`
}

type resultQuery struct {
	Exam      string `query:"exam"`
	Lang      string `query:"lang"`
	Candidate string `query:"candidate"`
	Last      int    `query:"last" json:"last" validate:"gte=0"`
}

type leaderboardQuery struct {
	Exam  string `query:"exam" json:"exam"`
	Lang  string `query:"lang" json:"lang"`
	Limit int    `query:"limit" json:"limit" validate:"gte=0,lte=100"`
}

func registerResultAPI(g *echo.Group, auth, admin echo.MiddlewareFunc, opts *Options) {
	api := &resultAPI{store: opts.Store, engine: opts.Engine, exams: opts.Exams}

	rg := g.Group("/results")
	rg.POST("", api.submit)
	rg.GET("/:id", api.retrieve)
	rg.GET("", api.list, auth, admin)

	g.GET("/leaderboard", api.leaderboard)
}

func (api *resultAPI) submit(ctx echo.Context) error {
	var data ResultRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResultRequest")
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	passage, err := api.store.GetPassage(reqCtx, data.PassageID)
	if err != nil {
		return errors.Wrap(err, "getting passage")
	}
	examKey := data.Exam
	if examKey == "" {
		examKey = passage.Exam
	}
	var profile *exam.Profile
	if examKey != "" {
		p, err := api.exams.Lookup(examKey)
		if err != nil {
			return errors.Wrap(err, "looking up exam")
		}
		profile = &p
	}

	metrics, alignment := api.engine.ScoreMinutes(data.TypedText, passage.Text, data.ElapsedSeconds/60)
	elapsed := secondsToDuration(data.ElapsedSeconds)
	endedAt := time.Now().UTC()
	startedAt := endedAt.Add(-elapsed)
	if data.StartedAt != nil {
		startedAt = data.StartedAt.UTC()
	}

	result := model.Result{
		PassageID:      passage.ID,
		Candidate:      strings.TrimSpace(data.Candidate),
		Exam:           examKey,
		Lang:           passage.Lang,
		Source:         model.SourceExam,
		StartedAt:      startedAt,
		EndedAt:        endedAt,
		DurationMs:     elapsed.Milliseconds(),
		TypedText:      data.TypedText,
		ReferenceText:  passage.Text,
		CorrectWords:   alignment.Correct,
		IncorrectWords: alignment.Incorrect,
		MissingWords:   alignment.Missing,
		GrossWPM:       metrics.GrossWordsPerMinute,
		NetWPM:         metrics.NetWordsPerMinute,
		Accuracy:       metrics.AccuracyPercent,
	}
	resp := ResultResponse{Metrics: metrics, MissingWords: alignment.Missing, Words: alignment.Words}
	if profile != nil {
		verdict := profile.Evaluate(metrics)
		result.Passed = verdict.Passed
		resp.Verdict = &verdict
	} else {
		result.Source = model.SourcePractice
	}

	id, err := api.store.InsertResult(reqCtx, result, stats.WordStatsFromAlignment(alignment))
	if err != nil {
		return errors.Wrap(err, "inserting result")
	}
	result.ID = id
	resp.Result = result

	logging.LogScore("RESULT", result.Candidate, result.Exam, map[string]any{
		"id":       id,
		"netWpm":   result.NetWPM,
		"accuracy": result.Accuracy,
		"passed":   result.Passed,
	})
	return ctx.JSON(http.StatusCreated, resp)
}

func (api *resultAPI) retrieve(ctx echo.Context) error {
	r, err := api.store.GetResult(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting result")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *resultAPI) list(ctx echo.Context) error {
	var q resultQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding result query")
	}
	if err := ctx.Validate(&q); err != nil {
		return err
	}
	results, err := api.store.ListResults(ctx.Request().Context(), model.StatsConfig{
		Exam:      q.Exam,
		Lang:      q.Lang,
		Candidate: q.Candidate,
		Last:      q.Last,
	})
	if err != nil {
		return errors.Wrap(err, "listing results")
	}
	if results == nil {
		results = []model.ResultAggregate{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultAPI) leaderboard(ctx echo.Context) error {
	var q leaderboardQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding leaderboard query")
	}
	if err := ctx.Validate(&q); err != nil {
		return err
	}
	if q.Exam != "" {
		if _, err := api.exams.Lookup(q.Exam); err != nil {
			return err
		}
	}
	results, err := api.store.ListResults(ctx.Request().Context(), model.StatsConfig{Exam: q.Exam, Lang: q.Lang})
	if err != nil {
		return errors.Wrap(err, "listing results")
	}
	entries := stats.Leaderboard(results, q.Limit)
	if entries == nil {
		entries = []stats.LeaderboardEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}
