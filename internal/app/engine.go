package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lberthe/scribe/internal/core"
	"github.com/lberthe/scribe/internal/domain"
	"github.com/lberthe/scribe/internal/recognizer"
)

var ErrMeetingNotFound = errors.New("meeting not found")

// MeetingLookup resolves a meeting reference. It is backed by the
// administrative component, which is not part of this engine.
type MeetingLookup interface {
	Lookup(id domain.MeetingID) (domain.Meeting, bool)
}

// TranscriptSink receives final fragments for persistence. The engine
// fires and forgets; the sink logs its own failures.
type TranscriptSink interface {
	SaveFinal(ctx context.Context, frag domain.Fragment) error
}

const persistTimeout = 5 * time.Second

// Engine wires the registry, session table, recognizer and fan-out
// together. Everything it does is scoped to one meeting or one session;
// no failure here is ever fatal to the process.
type Engine struct {
	Registry   *core.MeetingRegistry
	Sessions   *core.SessionTable
	Recognizer recognizer.Engine
	Meetings   MeetingLookup
	Sink       TranscriptSink
	Policy     Policy
}

func (e *Engine) LookupMeeting(mid domain.MeetingID) (domain.Meeting, error) {
	m, ok := e.Meetings.Lookup(mid)
	if !ok {
		return domain.Meeting{}, ErrMeetingNotFound
	}
	return m, nil
}

// Park registers a connection whose meeting has transcription disabled,
// keeping it reachable for a future status push through the fan-out.
// A parked connection has no session and no decoder.
func (e *Engine) Park(mid domain.MeetingID, conn core.ClientConn) {
	e.Registry.Join(mid, conn)
}

// StartSession creates the decoder first, so a failed engine never
// leaves a registry entry behind, then registers the connection and
// the session.
func (e *Engine) StartSession(mid domain.MeetingID, pid domain.ParticipantID, sampleRate int, conn core.ClientConn) (*core.Session, error) {
	dec, err := e.Recognizer.NewDecoder(sampleRate)
	if err != nil {
		return nil, err
	}
	e.Registry.Join(mid, conn)
	return e.Sessions.Create(mid, pid, dec), nil
}

// ProcessFrame feeds one audio frame to the session's decoder and fans
// out whatever hypothesis it yields. A decode error is transient: the
// caller reports it to the origin and the session continues.
func (e *Engine) ProcessFrame(sess *core.Session, frame []byte) error {
	step, err := sess.Decoder().Accept(frame)
	if err != nil {
		return fmt.Errorf("frame decode: %w", err)
	}
	e.emit(sess.MeetingID, sess.ParticipantID, step)
	return nil
}

// emit turns a decode step into a fragment. Empty partials are
// suppressed; finals also go to the persistence sink.
func (e *Engine) emit(mid domain.MeetingID, pid domain.ParticipantID, step recognizer.Step) {
	if step.Final {
		frag := domain.NewFinalFragment(mid, pid, step.Text, step.Words, step.Confidence)
		e.Broadcast(mid, frag)
		e.persist(frag)
		return
	}
	if step.Text == "" {
		return
	}
	e.Broadcast(mid, domain.NewPartialFragment(mid, pid, step.Text))
}

// Broadcast delivers one payload to every connection in the meeting's
// snapshot. Per-recipient failure never aborts the rest and never
// raises: a recipient that died between snapshot and send just misses
// the fragment.
func (e *Engine) Broadcast(mid domain.MeetingID, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.engine").Msg("broadcast marshal")
		return
	}
	sent, dropped := 0, 0
	for _, conn := range e.Registry.Snapshot(mid) {
		if err := conn.TrySend(core.Frame(data)); err != nil {
			dropped++
			if e.Policy != nil && e.Policy.OnDeliveryFailure(mid, conn) == KickConnection {
				e.Registry.Leave(mid, conn)
			}
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.engine").Int64("meeting", int64(mid)).Int("sent_to", sent).Int("dropped", dropped).Msg("broadcast result")
}

// CloseSession deletes the table entry, flushing the decoder's last
// buffered hypothesis through the same fan-out and persistence path.
// Releasing happens exactly once however many triggers converge here.
func (e *Engine) CloseSession(sid core.SessionID) {
	sess, ok := e.Sessions.Get(sid)
	if !ok {
		return
	}
	step, released := e.Sessions.Delete(sid)
	if !released || step.Text == "" {
		return
	}
	e.emit(sess.MeetingID, sess.ParticipantID, step)
}

// Disconnect is the convergent cleanup for every close trigger:
// peer close, protocol error and transport failure all end up here.
func (e *Engine) Disconnect(mid domain.MeetingID, conn core.ClientConn, sid core.SessionID) {
	if sid != "" {
		e.CloseSession(sid)
	}
	e.Registry.Leave(mid, conn)
}

func (e *Engine) persist(frag domain.Fragment) {
	if e.Sink == nil || frag.Text == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		// Fire and forget: the sink logs its own failures, nothing is
		// surfaced on the wire.
		_ = e.Sink.SaveFinal(ctx, frag)
	}()
}
