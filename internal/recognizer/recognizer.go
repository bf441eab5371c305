// Package recognizer wraps the speech engine behind a small capability
// interface. Implementations may be a no-op stub or backed by Vosk
// (build tag: vosk); the engine internals never leak past this package.
package recognizer

import (
	"errors"

	"github.com/lberthe/scribe/internal/domain"
)

// ErrEngineUnavailable reports that the model was never successfully
// loaded at process start. The condition is process-wide and read-only;
// it is surfaced per NewDecoder call instead of crashing the process.
var ErrEngineUnavailable = errors.New("engine unavailable")

// Step is the outcome of feeding one frame: either a transient partial
// hypothesis or a committed final one with word alignment.
type Step struct {
	Text       string
	Final      bool
	Words      []domain.Word
	Confidence float64
}

// Decoder is the streaming decode context of one session. It is not
// safe for concurrent use; exactly one owner may feed it at a time.
type Decoder interface {
	// Accept feeds one raw little-endian 16-bit mono PCM frame.
	// A zero-length frame is a no-op. Synchronous and CPU-bound.
	Accept(frame []byte) (Step, error)
	// Flush force-emits any buffered-but-uncommitted hypothesis as a
	// final step. Called once, at decoder close.
	Flush() Step
	// Close releases engine-side resources; idempotent.
	Close()
}

// Engine spawns decoders over a model loaded once and shared read-only.
type Engine interface {
	// NewDecoder returns a decoder bound to sampleRate, or
	// ErrEngineUnavailable when no model is loaded.
	NewDecoder(sampleRate int) (Decoder, error)
}
