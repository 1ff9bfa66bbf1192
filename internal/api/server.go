// Package api exposes scoring, passages, results and the leaderboard over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/verte-zerg/cpctprep/internal/exam"
	"github.com/verte-zerg/cpctprep/internal/logging"
	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

// Store is the persistence the API needs. Both the SQLite and MongoDB
// stores satisfy it.
type Store interface {
	CreatePassage(ctx context.Context, p model.Passage) (model.Passage, error)
	GetPassage(ctx context.Context, id string) (model.Passage, error)
	ListPassages(ctx context.Context, filter model.PassageFilter) ([]model.Passage, error)
	RandomPassage(ctx context.Context, filter model.PassageFilter) (model.Passage, error)
	UpdatePassage(ctx context.Context, p model.Passage) (model.Passage, error)
	DeletePassage(ctx context.Context, id string) error

	InsertResult(ctx context.Context, r model.Result, words []model.WordStats) (string, error)
	GetResult(ctx context.Context, id string) (model.Result, error)
	ListResults(ctx context.Context, cfg model.StatsConfig) ([]model.ResultAggregate, error)

	GetAdminByUsername(ctx context.Context, username string) (model.Admin, error)
	SetAdminLastLogin(ctx context.Context, id string, at time.Time) error
}

type (
	// Options configures the API server.
	Options struct {
		Address        string
		Debug          bool
		DisableReqLogs bool
		Store          Store
		Exams          *exam.Registry
		Engine         typing.Engine
		JWTSecret      []byte
		JWTTTL         time.Duration
		SecureCookie   bool
	}

	// Server is a runnable HTTP server.
	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts       *Options
		app        *echo.Echo
		validate   *validator.Validate
		translator ut.Translator
	}
)

var _ Server = (*server)(nil)

// NewServer builds the echo application and registers every route.
func NewServer(opts *Options) Server {
	if opts.Exams == nil {
		opts.Exams = exam.NewRegistry(exam.Defaults()...)
	}
	if opts.JWTTTL <= 0 {
		opts.JWTTTL = 12 * time.Hour
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.validate, s.translator = newValidator()
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{Output: logging.Writer()}))
	}
	// panics surface in debug mode
	if !s.opts.Debug {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.translator)
	s.app.Validator = &appValidator{validate: s.validate}
	s.app.Debug = s.opts.Debug

	s.app.GET("/", home)
	s.app.GET("/healthz", healthz)

	auth := authMiddleware(s.opts.JWTSecret)
	admin := adminMiddleware()
	g := s.app.Group("/api")

	registerAdminAPI(g, auth, s.opts)
	registerPassageAPI(g, auth, admin, s.opts.Store, s.opts.Exams)
	registerScoreAPI(g, s.opts.Engine, s.opts.Exams)
	registerResultAPI(g, auth, admin, s.opts)

	live := &liveAPI{store: s.opts.Store, engine: s.opts.Engine, validate: s.validate}
	s.app.GET("/ws/live", live.serve)
}

func (s *server) Start() error {
	logging.LogEvent("api listening on %s", s.opts.Address)
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the CPCT typing practice API!")
}

func healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
