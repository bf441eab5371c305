package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lberthe/scribe/internal/adapters/store"
	"github.com/lberthe/scribe/internal/core"
	"github.com/lberthe/scribe/internal/domain"
	"github.com/lberthe/scribe/internal/recognizer"
)

// fakeConn records everything delivered to it and can be flipped to
// reject sends, standing in for a dead or backpressured recipient.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("send buffer full")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) received() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Frame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) lastFragment(t *testing.T) domain.Fragment {
	t.Helper()
	frames := c.received()
	require.NotEmpty(t, frames)
	var frag domain.Fragment
	require.NoError(t, json.Unmarshal(frames[len(frames)-1], &frag))
	return frag
}

// scriptedDecoder replays a fixed sequence of steps, one per frame.
type scriptedDecoder struct {
	steps  []recognizer.Step
	flush  recognizer.Step
	err    error
	next   int
	closed int
}

func (d *scriptedDecoder) Accept(frame []byte) (recognizer.Step, error) {
	if d.err != nil {
		return recognizer.Step{}, d.err
	}
	if d.next >= len(d.steps) {
		return recognizer.Step{}, nil
	}
	step := d.steps[d.next]
	d.next++
	return step, nil
}

func (d *scriptedDecoder) Flush() recognizer.Step { return d.flush }
func (d *scriptedDecoder) Close()                 { d.closed++ }

type scriptedEngine struct {
	decoder recognizer.Decoder
	err     error
}

func (e *scriptedEngine) NewDecoder(sampleRate int) (recognizer.Decoder, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.decoder, nil
}

type mapLookup map[domain.MeetingID]domain.Meeting

func (m mapLookup) Lookup(id domain.MeetingID) (domain.Meeting, bool) {
	mt, ok := m[id]
	return mt, ok
}

func newTestEngine(rec recognizer.Engine, sink TranscriptSink, pol Policy) *Engine {
	return &Engine{
		Registry:   core.NewMeetingRegistry(),
		Sessions:   core.NewSessionTable(),
		Recognizer: rec,
		Meetings: mapLookup{
			7: {ID: 7, Title: "Standup", TranscriptionActive: true},
		},
		Sink:   sink,
		Policy: pol,
	}
}

func TestEngine_LookupMeeting(t *testing.T) {
	e := newTestEngine(&scriptedEngine{decoder: &scriptedDecoder{}}, nil, DropPolicy{})

	m, err := e.LookupMeeting(7)
	require.NoError(t, err)
	assert.Equal(t, "Standup", m.Title)

	_, err = e.LookupMeeting(99)
	assert.ErrorIs(t, err, ErrMeetingNotFound)
}

func TestEngine_StartSessionFailureLeavesNoTrace(t *testing.T) {
	e := newTestEngine(&scriptedEngine{err: recognizer.ErrEngineUnavailable}, nil, DropPolicy{})
	conn := &fakeConn{}

	_, err := e.StartSession(7, "alice", 16000, conn)
	require.ErrorIs(t, err, recognizer.ErrEngineUnavailable)
	assert.Equal(t, 0, e.Registry.Count(7))
	assert.Equal(t, 0, e.Sessions.Len())
}

func TestEngine_BroadcastReachesSnapshotOnly(t *testing.T) {
	e := newTestEngine(&scriptedEngine{decoder: &scriptedDecoder{}}, nil, DropPolicy{})
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	e.Registry.Join(7, a)
	e.Registry.Join(7, b)
	e.Registry.Join(8, other)

	e.Broadcast(7, domain.NewPartialFragment(7, "alice", "hello"))

	assert.Len(t, a.received(), 1)
	assert.Len(t, b.received(), 1)
	assert.Empty(t, other.received())
}

func TestEngine_BroadcastFailureDoesNotAbortOthers(t *testing.T) {
	e := newTestEngine(&scriptedEngine{decoder: &scriptedDecoder{}}, nil, DropPolicy{})
	dead := &fakeConn{fail: true}
	live := &fakeConn{}
	e.Registry.Join(7, dead)
	e.Registry.Join(7, live)

	e.Broadcast(7, domain.NewPartialFragment(7, "alice", "hello"))

	assert.Len(t, live.received(), 1)
	// DropPolicy keeps the failing recipient registered for next time.
	assert.True(t, e.Registry.Contains(7, dead))
}

func TestEngine_KickPolicyRemovesFailingRecipient(t *testing.T) {
	e := newTestEngine(&scriptedEngine{decoder: &scriptedDecoder{}}, nil, KickPolicy{})
	dead := &fakeConn{fail: true}
	live := &fakeConn{}
	e.Registry.Join(7, dead)
	e.Registry.Join(7, live)

	e.Broadcast(7, domain.NewPartialFragment(7, "alice", "hello"))

	assert.False(t, e.Registry.Contains(7, dead))
	assert.True(t, e.Registry.Contains(7, live))
}

func TestEngine_ProcessFrameFinalBroadcastsAndPersists(t *testing.T) {
	sink := &store.MemorySink{}
	dec := &scriptedDecoder{steps: []recognizer.Step{
		{Text: "bonjour tout le monde", Final: true, Confidence: 0.91},
	}}
	e := newTestEngine(&scriptedEngine{decoder: dec}, sink, DropPolicy{})
	conn := &fakeConn{}

	sess, err := e.StartSession(7, "alice", 16000, conn)
	require.NoError(t, err)
	require.NoError(t, e.ProcessFrame(sess, make([]byte, 3200)))

	frag := conn.lastFragment(t)
	assert.Equal(t, "transcription", frag.Type)
	assert.Equal(t, "bonjour tout le monde", frag.Text)
	assert.True(t, frag.Final)
	assert.Equal(t, domain.ParticipantID("alice"), frag.ParticipantID)

	assert.Eventually(t, func() bool {
		return len(sink.Fragments()) == 1
	}, time.Second, 10*time.Millisecond, "final fragment should reach the sink")
}

func TestEngine_ProcessFramePartialBroadcastsWithoutPersisting(t *testing.T) {
	sink := &store.MemorySink{}
	dec := &scriptedDecoder{steps: []recognizer.Step{{Text: "bonjour"}}}
	e := newTestEngine(&scriptedEngine{decoder: dec}, sink, DropPolicy{})
	conn := &fakeConn{}

	sess, err := e.StartSession(7, "alice", 16000, conn)
	require.NoError(t, err)
	require.NoError(t, e.ProcessFrame(sess, make([]byte, 3200)))

	frag := conn.lastFragment(t)
	assert.False(t, frag.Final)
	assert.True(t, frag.IsPartial)
	assert.Equal(t, "bonjour", frag.Text)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.Fragments())
}

func TestEngine_EmptyPartialIsSuppressed(t *testing.T) {
	dec := &scriptedDecoder{steps: []recognizer.Step{{}}}
	e := newTestEngine(&scriptedEngine{decoder: dec}, nil, DropPolicy{})
	conn := &fakeConn{}

	sess, err := e.StartSession(7, "alice", 16000, conn)
	require.NoError(t, err)
	require.NoError(t, e.ProcessFrame(sess, make([]byte, 3200)))

	assert.Empty(t, conn.received())
}

func TestEngine_EmptyFinalBroadcastsButSkipsSink(t *testing.T) {
	sink := &store.MemorySink{}
	dec := &scriptedDecoder{steps: []recognizer.Step{{Final: true}}}
	e := newTestEngine(&scriptedEngine{decoder: dec}, sink, DropPolicy{})
	conn := &fakeConn{}

	sess, err := e.StartSession(7, "alice", 16000, conn)
	require.NoError(t, err)
	require.NoError(t, e.ProcessFrame(sess, make([]byte, 3200)))

	// A silent utterance still yields a final marker on the wire.
	frag := conn.lastFragment(t)
	assert.True(t, frag.Final)
	assert.Empty(t, frag.Text)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.Fragments())
}

func TestEngine_ProcessFrameDecodeErrorIsTransient(t *testing.T) {
	dec := &scriptedDecoder{err: errors.New("corrupt frame")}
	e := newTestEngine(&scriptedEngine{decoder: dec}, nil, DropPolicy{})
	conn := &fakeConn{}

	sess, err := e.StartSession(7, "alice", 16000, conn)
	require.NoError(t, err)

	err = e.ProcessFrame(sess, []byte{0x01})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "frame decode")

	// The session stays usable after the error.
	dec.err = nil
	dec.steps = []recognizer.Step{{Text: "recovered"}}
	require.NoError(t, e.ProcessFrame(sess, make([]byte, 3200)))
	assert.Equal(t, "recovered", conn.lastFragment(t).Text)
}

func TestEngine_CloseSessionFlushesOnce(t *testing.T) {
	dec := &scriptedDecoder{flush: recognizer.Step{Text: "dernier mot", Final: true}}
	e := newTestEngine(&scriptedEngine{decoder: dec}, nil, DropPolicy{})
	conn := &fakeConn{}

	sess, err := e.StartSession(7, "alice", 16000, conn)
	require.NoError(t, err)

	e.CloseSession(sess.ID)
	require.Len(t, conn.received(), 1)
	assert.Equal(t, "dernier mot", conn.lastFragment(t).Text)
	assert.Equal(t, 1, dec.closed)

	// Converging triggers must not replay the flush.
	e.CloseSession(sess.ID)
	assert.Len(t, conn.received(), 1)
	assert.Equal(t, 1, dec.closed)
}

func TestEngine_CloseSessionEmptyFlushStaysSilent(t *testing.T) {
	dec := &scriptedDecoder{flush: recognizer.Step{Final: true}}
	e := newTestEngine(&scriptedEngine{decoder: dec}, nil, DropPolicy{})
	conn := &fakeConn{}

	sess, err := e.StartSession(7, "alice", 16000, conn)
	require.NoError(t, err)

	e.CloseSession(sess.ID)
	assert.Empty(t, conn.received())
	assert.Equal(t, 0, e.Sessions.Len())
}

func TestEngine_DisconnectCleansUpEverything(t *testing.T) {
	dec := &scriptedDecoder{}
	e := newTestEngine(&scriptedEngine{decoder: dec}, nil, DropPolicy{})
	conn := &fakeConn{}

	sess, err := e.StartSession(7, "alice", 16000, conn)
	require.NoError(t, err)
	require.Equal(t, 1, e.Registry.Count(7))

	e.Disconnect(7, conn, sess.ID)

	assert.Equal(t, 0, e.Registry.Count(7))
	assert.Equal(t, 0, e.Sessions.Len())
	assert.Equal(t, 1, dec.closed)
}

func TestEngine_DisconnectParkedConnection(t *testing.T) {
	e := newTestEngine(&scriptedEngine{decoder: &scriptedDecoder{}}, nil, DropPolicy{})
	conn := &fakeConn{}

	e.Park(7, conn)
	require.Equal(t, 1, e.Registry.Count(7))

	e.Disconnect(7, conn, "")
	assert.Equal(t, 0, e.Registry.Count(7))
}
