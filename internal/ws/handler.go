package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careerbridge/chat-service/internal/apperr"
	"github.com/careerbridge/chat-service/internal/auth"
	"github.com/careerbridge/chat-service/internal/cache"
	"github.com/careerbridge/chat-service/internal/chat"
)

// Envelope is the inbound frame: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	ConversationID string `json:"conversation_id"`
}

type sendPayload struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type readPayload struct {
	ConversationID string `json:"conversation_id"`
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

type Handler struct {
	svc      *chat.Service
	verifier *auth.Verifier
	hub      *Hub
	presence *cache.PresenceStore
	logger   *zap.SugaredLogger

	pingInterval  time.Duration
	writeDeadline time.Duration
	readDeadline  time.Duration
	maxMsgSize    int64
}

func NewHandler(
	svc *chat.Service,
	verifier *auth.Verifier,
	hub *Hub,
	presence *cache.PresenceStore,
	logger *zap.SugaredLogger,
	pingInterval, writeDeadline, readDeadline time.Duration,
	maxMsgSize int64,
) *Handler {
	return &Handler{
		svc:           svc,
		verifier:      verifier,
		hub:           hub,
		presence:      presence,
		logger:        logger,
		pingInterval:  pingInterval,
		writeDeadline: writeDeadline,
		readDeadline:  readDeadline,
		maxMsgSize:    maxMsgSize,
	}
}

// Handle runs the connection lifecycle: token handshake, registration,
// then the read loop until disconnect. Mounted via websocket.New.
func (h *Handler) Handle(conn *websocket.Conn) {
	token := conn.Query("token")
	if token == "" {
		_ = conn.WriteJSON(map[string]any{"type": "error", "code": "unauthorized", "message": "missing token"})
		_ = conn.Close()
		return
	}
	claims, err := h.verifier.Verify(token)
	if err != nil {
		_ = conn.WriteJSON(map[string]any{"type": "error", "code": "unauthorized", "message": "invalid token"})
		_ = conn.Close()
		return
	}

	client := NewClient(conn, uuid.NewString(), claims.UserID)
	h.hub.Register(client)
	if err := h.presence.AddConnection(context.Background(), client.UserID, client.SocketID); err != nil {
		h.logger.Warnw("presence add", "user", client.UserID, "err", err)
	}
	h.logger.Infow("ws connected", "user", client.UserID, "socket", client.SocketID)

	go client.WritePump(h.pingInterval, h.writeDeadline)

	h.readLoop(client)

	h.hub.Unregister(client)
	if err := h.presence.RemoveConnection(context.Background(), client.UserID, client.SocketID); err != nil {
		h.logger.Warnw("presence remove", "user", client.UserID, "err", err)
	}
	client.Close()
	h.logger.Infow("ws disconnected", "user", client.UserID, "socket", client.SocketID)
}

func (h *Handler) readLoop(client *Client) {
	conn := client.conn
	conn.SetReadLimit(h.maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readDeadline))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			// malformed frames are the client's problem, not a reason to
			// drop the connection
			h.sendError(client, env.Type, apperr.E(apperr.ErrInvalidArgument, "malformed frame"))
			continue
		}
		h.dispatch(client, env)
	}
}

// dispatch runs one event to completion before the next frame is read, so
// a single sender's accepted messages reach the store, and then the wire,
// in submission order.
func (h *Handler) dispatch(client *Client, env Envelope) {
	ctx := context.Background()
	switch env.Type {
	case "join":
		var p joinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ConversationID == "" {
			h.sendError(client, env.Type, apperr.E(apperr.ErrInvalidArgument, "conversation_id required"))
			return
		}
		conv, err := h.svc.ConversationForUser(ctx, client.UserID, p.ConversationID)
		if err != nil {
			h.sendError(client, env.Type, err)
			return
		}
		h.hub.JoinRoom(conv.ID.Hex(), client)
		client.Send(map[string]any{"type": "joined", "conversation_id": conv.ID.Hex()})

	case "leave":
		var p joinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ConversationID == "" {
			h.sendError(client, env.Type, apperr.E(apperr.ErrInvalidArgument, "conversation_id required"))
			return
		}
		h.hub.LeaveRoom(p.ConversationID, client)
		client.Send(map[string]any{"type": "left", "conversation_id": p.ConversationID})

	case "send":
		var p sendPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ConversationID == "" {
			h.sendError(client, env.Type, apperr.E(apperr.ErrInvalidArgument, "conversation_id required"))
			return
		}
		conv, msg, err := h.svc.SendMessage(ctx, client.UserID, p.ConversationID, p.Content)
		if err != nil {
			h.sendError(client, env.Type, err)
			return
		}
		h.hub.BroadcastRoom(conv.ID.Hex(), map[string]any{
			"type":            "message",
			"conversation_id": conv.ID.Hex(),
			"message":         msg,
		}, "")

	case "read":
		var p readPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ConversationID == "" {
			h.sendError(client, env.Type, apperr.E(apperr.ErrInvalidArgument, "conversation_id required"))
			return
		}
		conv, n, err := h.svc.MarkRead(ctx, client.UserID, p.ConversationID)
		if err != nil {
			h.sendError(client, env.Type, err)
			return
		}
		// the caller always hears back, even for a no-op; the room only
		// gets a receipt when something actually flipped
		client.Send(map[string]any{
			"type":            "read_ack",
			"conversation_id": conv.ID.Hex(),
			"marked":          n,
		})
		if n > 0 {
			h.hub.BroadcastRoom(conv.ID.Hex(), map[string]any{
				"type":            "read",
				"conversation_id": conv.ID.Hex(),
				"reader_id":       client.UserID,
			}, "")
		}

	case "typing":
		var p typingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil || p.ConversationID == "" {
			return // best-effort, dropped silently
		}
		if !h.hub.InRoom(p.ConversationID, client.SocketID) {
			return
		}
		h.hub.BroadcastRoom(p.ConversationID, map[string]any{
			"type":            "typing",
			"conversation_id": p.ConversationID,
			"user_id":         client.UserID,
			"is_typing":       p.IsTyping,
		}, client.SocketID)

	default:
		h.sendError(client, env.Type, apperr.Ef(apperr.ErrInvalidArgument, "unknown event type %q", env.Type))
	}
}

// sendError reports a failure to the originating connection only. Other
// participants never see a trace of a rejected attempt.
func (h *Handler) sendError(client *Client, op string, err error) {
	code := apperr.Code(err)
	msg := err.Error()
	if code == "internal" {
		h.logger.Errorw("ws handler", "op", op, "user", client.UserID, "err", err)
		msg = "internal error"
	}
	client.Send(map[string]any{"type": "error", "op": op, "code": code, "message": msg})
}
