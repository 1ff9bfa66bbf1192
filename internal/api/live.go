package api

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/verte-zerg/cpctprep/internal/logging"
	"github.com/verte-zerg/cpctprep/internal/store"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveFrame is one scoring request sent over the live socket. PassageID takes
// precedence over ReferenceText.
type LiveFrame struct {
	TypedText      string  `json:"typedText"`
	ReferenceText  string  `json:"referenceText"`
	PassageID      string  `json:"passageId"`
	ElapsedSeconds float64 `json:"elapsedSeconds" validate:"gte=0,lte=86400"`
}

// LiveReply answers one frame.
type LiveReply struct {
	Metrics      *typing.Metrics `json:"metrics,omitempty"`
	MissingWords int             `json:"missingWords"`
	Error        string          `json:"error,omitempty"`
}

type liveAPI struct {
	store    Store
	engine   typing.Engine
	validate *validator.Validate
}

func (api *liveAPI) serve(ctx echo.Context) error {
	conn, err := upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.LogError("websocket upgrade: %v", err)
		return nil
	}
	defer conn.Close()

	reqCtx := ctx.Request().Context()
	passages := map[string]string{}
	for {
		var frame LiveFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.LogError("websocket read: %v", err)
			}
			return nil
		}
		reply := api.scoreFrame(reqCtx, frame, passages)
		if err := conn.WriteJSON(reply); err != nil {
			logging.LogError("websocket write: %v", err)
			return nil
		}
	}
}

func (api *liveAPI) scoreFrame(ctx context.Context, frame LiveFrame, passages map[string]string) LiveReply {
	if err := api.validate.Struct(&frame); err != nil {
		return LiveReply{Error: "elapsedSeconds must be between 0 and 86400"}
	}
	reference := frame.ReferenceText
	if frame.PassageID != "" {
		text, ok := passages[frame.PassageID]
		if !ok {
			p, err := api.store.GetPassage(ctx, frame.PassageID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return LiveReply{Error: "passage not found"}
				}
				logging.LogError("live passage %s: %v", frame.PassageID, err)
				return LiveReply{Error: http.StatusText(http.StatusInternalServerError)}
			}
			text = p.Text
			passages[frame.PassageID] = text
		}
		reference = text
	}
	metrics, alignment := api.engine.ScoreMinutes(frame.TypedText, reference, frame.ElapsedSeconds/60)
	return LiveReply{Metrics: &metrics, MissingWords: alignment.Missing}
}
