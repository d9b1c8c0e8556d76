package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"quizhall/internal/app"
	"quizhall/internal/domain"
)

// WSHandler wires websocket connections into the room use cases. Each
// connection carries one player; the connection id is distinct from the
// client's logical id so a player can reconnect under a new socket.
type WSHandler struct {
	rooms    *app.RoomService
	upgrader websocket.Upgrader
}

func NewWSHandler(rooms *app.RoomService) *WSHandler {
	return &WSHandler{
		rooms: rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createPayload struct {
	ClientID    string `json:"clientId"`
	DisplayName string `json:"name"`
	ListKey     string `json:"listKey"`
}

type joinPayload struct {
	Code        string `json:"code"`
	ClientID    string `json:"clientId"`
	DisplayName string `json:"name"`
	ListKey     string `json:"listKey"`
}

type progressPayload struct {
	CurrentIndex int `json:"currentIndex"`
}

type submitPayload struct {
	Answers map[string]any `json:"answers"`
}

type roomPayload struct {
	Code    string              `json:"code"`
	Players []domain.PlayerView `json:"players"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

var (
	errInvalidPayload  = errors.New("invalid payload")
	errUnsupportedType = errors.New("unsupported message type")
	errAlreadyInRoom   = errors.New("connection already belongs to a room")
)

// ServeWS upgrades the request and runs the room protocol: create or join
// first, then start/progress/submit until the socket closes. Errors are
// events scoped to this connection, never broadcast room-wide.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	defer h.rooms.HandleDisconnect(connID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	forwarderDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	var (
		roomCode  string
		clientID  string
		cancelSub func()
	)
	defer func() {
		if cancelSub != nil {
			cancelSub()
		}
		close(closeSignals)
		<-forwarderDone
		close(send)
		<-writerDone
	}()

	subscribe := func(code string) bool {
		updates, cancel, err := h.rooms.Subscribe(code)
		if err != nil {
			send <- errEvent(err)
			return false
		}
		cancelSub = cancel
		go func() {
			defer close(forwarderDone)
			for {
				select {
				case event, ok := <-updates:
					if !ok {
						return
					}
					select {
					case send <- outboundMessage[any]{Type: string(event.Type), Payload: event}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
		return true
	}
	// The forwarder only exists once a room is entered; make the deferred
	// wait safe for connections that never got that far.
	entered := false
	defer func() {
		if !entered {
			close(forwarderDone)
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		switch inbound.Type {
		case "create":
			if entered {
				send <- errEvent(errAlreadyInRoom)
				continue
			}
			var payload createPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errEvent(errInvalidPayload)
				continue
			}
			code, players, err := h.rooms.CreateRoom(r.Context(), payload.ClientID, payload.DisplayName, connID, payload.ListKey)
			if err != nil {
				send <- errEvent(err)
				continue
			}
			roomCode, clientID = code, payload.ClientID
			if subscribe(code) {
				entered = true
			}
			send <- outboundMessage[any]{Type: "roomCreated", Payload: roomPayload{Code: code, Players: players}}

		case "join":
			if entered {
				send <- errEvent(errAlreadyInRoom)
				continue
			}
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errEvent(errInvalidPayload)
				continue
			}
			players, err := h.rooms.JoinRoom(payload.Code, payload.ClientID, payload.DisplayName, connID, payload.ListKey)
			if err != nil {
				send <- errEvent(err)
				continue
			}
			roomCode, clientID = payload.Code, payload.ClientID
			if subscribe(payload.Code) {
				entered = true
			}
			send <- outboundMessage[any]{Type: "joined", Payload: roomPayload{Code: payload.Code, Players: players}}

		case "start":
			if err := h.rooms.StartGame(roomCode, clientID); err != nil {
				send <- errEvent(err)
			}

		case "progress":
			var payload progressPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			h.rooms.UpdateProgress(roomCode, clientID, payload.CurrentIndex)

		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errEvent(errInvalidPayload)
				continue
			}
			result, err := h.rooms.SubmitAnswers(roomCode, clientID, payload.Answers)
			if err != nil {
				send <- errEvent(err)
				continue
			}
			send <- outboundMessage[any]{Type: "submitResult", Payload: result}

		default:
			send <- errEvent(errUnsupportedType)
		}
	}
}

func errEvent(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
