package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/lberthe/scribe/internal/core"
	"github.com/lberthe/scribe/internal/domain"
)

// connState is the per-connection protocol state. Every path out of
// the read loop converges on the same Closed cleanup.
type connState int

const (
	stateConnecting connState = iota
	stateAwaitingInit
	// stateWaiting parks a connection whose meeting has transcription
	// disabled: registered for status pushes, audio discarded, and no
	// way back to active without reconnecting.
	stateWaiting
	stateActive
	stateClosed
)

type client struct {
	ctl   *Controller
	ws    *websocket.Conn
	out   *wsClientConn
	token domain.ParticipantID

	state       connState
	meetingID   domain.MeetingID
	participant domain.ParticipantID
	sess        *core.Session
	registered  bool

	cancel   context.CancelFunc
	teardown sync.Once
}

// run drives the state machine: one read, one transition, until Closed.
func (cl *client) run(ctx context.Context) {
	defer cl.close()
	for cl.state != stateClosed {
		select {
		case <-ctx.Done():
			return
		default:
		}
		mt, data, err := cl.ws.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "ws").Msg("read loop ended")
			return
		}
		switch cl.state {
		case stateAwaitingInit:
			cl.state = cl.onInit(mt, data)
		case stateWaiting:
			cl.state = cl.onWaiting(mt, data)
		case stateActive:
			cl.state = cl.onActive(mt, data)
		default:
			return
		}
	}
}

// onInit handles the single handshake message. The meeting flag is
// checked here and only here.
func (cl *client) onInit(mt int, data []byte) connState {
	if mt != websocket.TextMessage {
		cl.sendError("invalid init")
		return stateClosed
	}
	var init initMsg
	if err := json.Unmarshal(data, &init); err != nil {
		cl.sendError("invalid init")
		return stateClosed
	}

	meeting, err := cl.ctl.Engine.LookupMeeting(init.MeetingID)
	if err != nil {
		cl.sendJSON(newInactiveStatus(init.MeetingID, "meeting not found"))
		return stateClosed
	}

	cl.meetingID = meeting.ID
	cl.participant = init.ParticipantID
	if cl.participant == "" {
		cl.participant = cl.token
	}

	if !meeting.TranscriptionActive {
		cl.sendJSON(newInactiveStatus(meeting.ID, "waiting for the organizer to start transcription"))
		cl.ctl.Engine.Park(meeting.ID, cl.out)
		cl.registered = true
		return stateWaiting
	}

	rate := init.SampleRate
	if rate <= 0 {
		rate = cl.ctl.DefaultSampleRate
	}
	sess, err := cl.ctl.Engine.StartSession(meeting.ID, cl.participant, rate, cl.out)
	if err != nil {
		cl.sendError(fmt.Sprintf("engine unavailable: %v", err))
		return stateClosed
	}
	cl.sess = sess
	cl.registered = true
	cl.sendJSON(readyStatus{Type: "status", Status: "ready", Message: "recognizer ready", SessionID: sess.ID})
	log.Info().Str("module", "ws").Str("sid", string(sess.ID)).Int64("meeting", int64(meeting.ID)).Msg("session ready")
	return stateActive
}

// onWaiting keeps a parked connection drained. No decoder exists, so
// audio is accepted off the wire and discarded.
func (cl *client) onWaiting(mt int, data []byte) connState {
	if mt == websocket.TextMessage {
		cl.handleControl(data)
	}
	return stateWaiting
}

func (cl *client) onActive(mt int, data []byte) connState {
	switch mt {
	case websocket.BinaryMessage:
		if cl.ctl.Limiter != nil && !cl.ctl.Limiter.Allow(cl.participant) {
			log.Debug().Str("module", "ws").Str("sid", string(cl.sess.ID)).Msg("frame rate limited")
			return stateActive
		}
		if err := cl.ctl.Engine.ProcessFrame(cl.sess, data); err != nil {
			// Transient: report to the origin only, keep decoding.
			log.Warn().Err(err).Str("module", "ws").Str("sid", string(cl.sess.ID)).Msg("frame decode error")
			cl.sendError(fmt.Sprintf("transcription error: %v", err))
		}
	case websocket.TextMessage:
		cl.handleControl(data)
	}
	return stateActive
}

// handleControl parses in-band control messages. Anything unknown is
// ignored so newer clients keep working against this server.
func (cl *client) handleControl(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}
	switch env.Type {
	case "ping":
		cl.sendJSON(pongMsg{Type: "pong"})
	default:
		log.Debug().Str("module", "ws").Str("type", env.Type).Msg("ignoring control message")
	}
}

// close is the Closed-state cleanup. Peer close, protocol error and
// transport failure all converge here; running it twice is harmless.
func (cl *client) close() {
	cl.teardown.Do(func() {
		var sid core.SessionID
		if cl.sess != nil {
			sid = cl.sess.ID
		}
		if cl.registered {
			cl.ctl.Engine.Disconnect(cl.meetingID, cl.out, sid)
		} else if sid != "" {
			cl.ctl.Engine.CloseSession(sid)
		}
		if cl.ctl.Limiter != nil && cl.participant != "" {
			cl.ctl.Limiter.Forget(cl.participant)
		}
		// The write pump cancels the context once it has drained.
		cl.out.Close()
		log.Info().Str("module", "ws").Str("sid", string(sid)).Msg("connection closed")
	})
}

func (cl *client) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "ws").Msg("sendJSON marshal")
		return
	}
	_ = cl.out.TrySend(b)
}

func (cl *client) sendError(message string) {
	cl.sendJSON(errorMsg{Type: "error", Message: message})
}
