package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/verte-zerg/cpctprep/internal/exam"
	"github.com/verte-zerg/cpctprep/internal/model"
)

type passageAPI struct {
	store Store
	exams *exam.Registry
}

// PassageRequest is the body for creating or updating a passage.
type PassageRequest struct {
	ID    string `param:"id" json:"-"`
	Title string `json:"title" validate:"required,max=200"`
	Lang  string `json:"lang" validate:"required,max=16"`
	Exam  string `json:"exam" validate:"max=64"`
	Text  string `json:"text" validate:"required"`
}

type passageQuery struct {
	Lang string `query:"lang"`
	Exam string `query:"exam"`
}

func registerPassageAPI(g *echo.Group, auth, admin echo.MiddlewareFunc, st Store, exams *exam.Registry) {
	api := &passageAPI{store: st, exams: exams}

	pg := g.Group("/passages")
	pg.GET("", api.list)
	pg.GET("/random", api.random)
	pg.GET("/:id", api.retrieve)
	pg.POST("", api.create, auth, admin)
	pg.PUT("/:id", api.update, auth, admin)
	pg.DELETE("/:id", api.destroy, auth, admin)
}

func (api *passageAPI) list(ctx echo.Context) error {
	var q passageQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding passage query")
	}
	passages, err := api.store.ListPassages(ctx.Request().Context(), model.PassageFilter(q))
	if err != nil {
		return errors.Wrap(err, "listing passages")
	}
	out := make([]model.Passage, len(passages))
	for i, p := range passages {
		p.Text = ""
		out[i] = p
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *passageAPI) random(ctx echo.Context) error {
	var q passageQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding passage query")
	}
	p, err := api.store.RandomPassage(ctx.Request().Context(), model.PassageFilter(q))
	if err != nil {
		return errors.Wrap(err, "picking passage")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *passageAPI) retrieve(ctx echo.Context) error {
	p, err := api.store.GetPassage(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting passage")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *passageAPI) create(ctx echo.Context) error {
	var data PassageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PassageRequest")
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}
	if err := api.checkExam(data.Exam); err != nil {
		return err
	}
	p, err := api.store.CreatePassage(ctx.Request().Context(), model.Passage{
		Title: data.Title,
		Lang:  data.Lang,
		Exam:  data.Exam,
		Text:  data.Text,
	})
	if err != nil {
		return errors.Wrap(err, "creating passage")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *passageAPI) update(ctx echo.Context) error {
	var data PassageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PassageRequest")
	}
	if err := ctx.Validate(&data); err != nil {
		return err
	}
	if err := api.checkExam(data.Exam); err != nil {
		return err
	}
	p, err := api.store.UpdatePassage(ctx.Request().Context(), model.Passage{
		ID:    ctx.Param("id"),
		Title: data.Title,
		Lang:  data.Lang,
		Exam:  data.Exam,
		Text:  data.Text,
	})
	if err != nil {
		return errors.Wrap(err, "updating passage")
	}
	return ctx.JSON(http.StatusOK, p)
}

// checkExam rejects passages tagged with an exam no profile exists for.
func (api *passageAPI) checkExam(key string) error {
	if key == "" {
		return nil
	}
	_, err := api.exams.Lookup(key)
	return errors.Wrap(err, "checking passage exam")
}

func (api *passageAPI) destroy(ctx echo.Context) error {
	if err := api.store.DeletePassage(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting passage")
	}
	return ctx.NoContent(http.StatusNoContent)
}
