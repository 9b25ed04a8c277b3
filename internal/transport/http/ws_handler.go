package http

import (
	"encoding/json"
	"log"
	"net/http"

	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/engine"
	"github.com/gorilla/websocket"
)

// WSHandler bridges websocket connections to the session engine: commands
// flow in as typed JSON envelopes, engine events fan out to every attached
// connection.
type WSHandler struct {
	service  *engine.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(service *engine.Service) *WSHandler {
	return &WSHandler{
		service: service,
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

type submitPayload struct {
	OptionIDs []string `json:"optionIds"`
}

type startQuestionPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type sessionSnapshot struct {
	SessionID     string             `json:"sessionId"`
	JoinCode      string             `json:"joinCode"`
	QuizTitle     string             `json:"quizTitle"`
	Phase         domain.Phase       `json:"phase"`
	QuestionCount int                `json:"questionCount"`
	HintAllowance int                `json:"hintAllowance"`
	Leaderboard   domain.Leaderboard `json:"leaderboard"`
}

type joinedPayload struct {
	ParticipantID string          `json:"participantId"`
	Session       sessionSnapshot `json:"session"`
}

// ServeWS attaches a caller to a live session. Participants pass
// ?code=XYZ&name=Alice and may submit answers and request hints; the host
// passes ?code=XYZ&secret=... and drives the session through its phases.
// Both receive the session's event stream.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	name := r.URL.Query().Get("name")
	secret := r.URL.Query().Get("secret")
	if code == "" || (name == "" && secret == "") {
		http.Error(w, "missing code and one of name or secret", http.StatusBadRequest)
		return
	}

	session, err := h.service.SessionByCode(code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	isHost := secret != ""
	var participantID string
	if isHost {
		if err := session.AuthorizeHost(secret); err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
	} else {
		participant, err := session.Join(name)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
		participantID = participant.ID
	}

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case ev, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: ev.Type, Payload: ev.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	snapshot := sessionSnapshot{
		SessionID:     session.ID(),
		JoinCode:      session.Code(),
		QuizTitle:     session.QuizTitle(),
		Phase:         session.Phase(),
		QuestionCount: session.QuestionCount(),
		HintAllowance: session.HintAllowance(),
		Leaderboard:   session.Leaderboard(),
	}
	if isHost {
		send <- outboundMessage[any]{Type: "attached", Payload: snapshot}
	} else {
		send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{ParticipantID: participantID, Session: snapshot}}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if isHost {
			h.handleHostMessage(session, inbound, send)
		} else {
			h.handleParticipantMessage(session, participantID, inbound, send)
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleHostMessage(session *engine.Session, inbound inboundMessage, send chan<- outboundMessage[any]) {
	secret := session.HostSecret() // already authorized at attach time
	switch inbound.Type {
	case "start_question":
		var payload startQuestionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid start_question payload")
			return
		}
		if err := session.StartQuestion(secret, payload.Index); err != nil {
			send <- errMsg(err.Error())
		}
	case "end_question":
		if err := session.EndQuestion(secret); err != nil {
			send <- errMsg(err.Error())
		}
	case "end_session":
		if err := session.End(secret); err != nil {
			send <- errMsg(err.Error())
		}
	default:
		send <- errMsg("unsupported message type")
	}
}

func (h *WSHandler) handleParticipantMessage(session *engine.Session, participantID string, inbound inboundMessage, send chan<- outboundMessage[any]) {
	switch inbound.Type {
	case "submit":
		var payload submitPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			send <- errMsg("invalid submit payload")
			return
		}
		result, err := session.Submit(participantID, payload.OptionIDs)
		if err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "submit_result", Payload: result}
	case "request_hint":
		reveal, err := session.RequestHint(participantID)
		if err != nil {
			send <- errMsg(err.Error())
			return
		}
		send <- outboundMessage[any]{Type: "hint_result", Payload: reveal}
	default:
		send <- errMsg("unsupported message type")
	}
}

func errMsg(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}
