package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quiz/internal/engine"
	"github.com/stemsi/exstem-quiz/internal/middleware"
	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
	"github.com/stemsi/exstem-quiz/internal/service"
	ws "github.com/stemsi/exstem-quiz/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// SessionEventSource opens a subscription to one session's change events.
type SessionEventSource interface {
	Subscribe(ctx context.Context, sessionToken string) *redis.PubSub
}

// WSHandler streams one quiz session over a WebSocket.
type WSHandler struct {
	sessions SessionService
	events   SessionEventSource
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. events may be nil, in which case
// changes made through other connections are not forwarded.
func NewWSHandler(sessions SessionService, events SessionEventSource, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		events:   events,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/sessions/stream?token=<jwt>&session_token=<tok>
// Upgrades to WebSocket for heartbeat, answer saves, navigation and flags.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	token := middleware.GetSessionToken(c)
	userID := claims.UserID

	// Reject unknown or foreign sessions before upgrading.
	view, err := h.sessions.GetState(c.Request.Context(), userID, token)
	if err != nil && view == nil {
		f := classify(err)
		response.Fail(c, f.status, f.code)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", userID).
		Str("session_token", token).
		Logger()
	wsLog.Info().Msg("Session stream connected")

	if h.sendView(conn, "", ws.EventState, "", view) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if h.events != nil {
		go h.forward(ctx, conn, wsLog, userID, token)
	}

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		if h.dispatch(ctx, conn, wsLog, userID, token, msg) {
			return
		}
	}
}

// dispatch handles one client message. It reports true once the session is
// finalized and the stream should end.
func (h *WSHandler) dispatch(ctx context.Context, conn *ws.Conn, log zerolog.Logger, userID int, token string, msg []byte) bool {
	var env ws.RequestEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		_ = conn.WriteError("", string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload), nil)
		return false
	}

	switch env.Action {
	case ws.ActionHeartbeat:
		view, err := h.sessions.Heartbeat(ctx, userID, token)
		return h.reply(conn, log, env.RequestID, ws.EventState, "", view, err)

	case ws.ActionSaveAnswer:
		var req ws.SaveAnswerRequest
		qid, ok := h.decodeWithQuestion(conn, env.RequestID, msg, &req, func() string { return req.QuizQuestionID })
		if !ok {
			return false
		}
		in := engine.AnswerInput{QuizQuestionID: qid, Raw: req.Answer, TimeSpentSeconds: req.TimeSpentSeconds}
		if len(in.Raw) == 0 {
			in.Raw = json.RawMessage("null")
		}
		view, err := h.sessions.SaveAnswer(ctx, userID, token, in)
		return h.reply(conn, log, env.RequestID, ws.EventSaved, req.QuizQuestionID, view, err)

	case ws.ActionNavigate:
		var req ws.NavigateRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			_ = conn.WriteError(env.RequestID, string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload), nil)
			return false
		}
		view, err := h.sessions.Navigate(ctx, userID, token, req.QuestionNumber)
		return h.reply(conn, log, env.RequestID, ws.EventState, "", view, err)

	case ws.ActionFlag:
		var req ws.FlagRequest
		qid, ok := h.decodeWithQuestion(conn, env.RequestID, msg, &req, func() string { return req.QuizQuestionID })
		if !ok {
			return false
		}
		view, err := h.sessions.Flag(ctx, userID, token, qid, req.IsFlagged)
		return h.reply(conn, log, env.RequestID, ws.EventState, "", view, err)

	default:
		log.Warn().Str("action", string(env.Action)).Msg("Unknown action")
		_ = conn.WriteError(env.RequestID, string(response.ErrInvalidPayload), "unknown action: "+string(env.Action), nil)
		return false
	}
}

// decodeWithQuestion unmarshals msg into dst and parses its question id.
func (h *WSHandler) decodeWithQuestion(conn *ws.Conn, requestID string, msg []byte, dst interface{}, qidOf func() string) (uuid.UUID, bool) {
	if err := json.Unmarshal(msg, dst); err != nil {
		_ = conn.WriteError(requestID, string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload), nil)
		return uuid.Nil, false
	}
	qid, err := uuid.Parse(qidOf())
	if err != nil {
		_ = conn.WriteError(requestID, string(response.ErrInvalidID), response.GetMessage(response.ErrInvalidID), nil)
		return uuid.Nil, false
	}
	return qid, true
}

// reply writes the outcome of one action and reports whether the session
// is finalized.
func (h *WSHandler) reply(conn *ws.Conn, log zerolog.Logger, requestID string, ev ws.Event, qid string, view *model.SessionView, err error) bool {
	if err != nil {
		f := classify(err)
		if f.status == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Session action failed")
		}
		if f.code == response.ErrSessionTerminal && view != nil {
			return h.sendView(conn, requestID, ev, qid, view)
		}
		_ = conn.WriteError(requestID, string(f.code), response.GetMessage(f.code), f.fields)
		return false
	}
	return h.sendView(conn, requestID, ev, qid, view)
}

// sendView writes view as ev, or as a terminal event once the session is
// finalized. It reports whether a terminal event was sent.
func (h *WSHandler) sendView(conn *ws.Conn, requestID string, ev ws.Event, qid string, view *model.SessionView) bool {
	if view.Status.Terminal() {
		_ = conn.WriteTyped(ws.TerminalResponse{
			Event:     ws.EventTerminal,
			RequestID: requestID,
			Status:    view.Status,
			Result:    view.Result,
		})
		return true
	}

	if ev == ws.EventSaved {
		_ = conn.WriteTyped(ws.SavedResponse{Event: ev, RequestID: requestID, QuizQuestionID: qid, Data: view})
		return false
	}
	_ = conn.WriteTyped(ws.StateResponse{Event: ev, RequestID: requestID, Data: view})
	return false
}

// forward pushes a fresh state whenever another connection changes the
// session's lifecycle, e.g. a pause from a second tab.
func (h *WSHandler) forward(ctx context.Context, conn *ws.Conn, log zerolog.Logger, userID int, token string) {
	sub := h.events.Subscribe(ctx, token)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev service.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Msg("Malformed session event")
				continue
			}
			if len(ev.Transitions) == 0 {
				continue
			}

			view, err := h.sessions.GetState(ctx, userID, token)
			if view == nil {
				if err != nil && ctx.Err() == nil {
					log.Warn().Err(err).Msg("Failed to refresh forwarded state")
				}
				continue
			}
			if h.sendView(conn, "", ws.EventState, "", view) {
				// Unblock the reader so the handler returns.
				_ = conn.Close()
				return
			}
		}
	}
}
