//go:build !vosk

package recognizer

import "github.com/rs/zerolog/log"

// Default stub (no cgo) so the project builds without the vosk tag.
// It emits empty partials, which the engine suppresses upstream.
type stubEngine struct{}

func NewEngine(modelPath string) (Engine, error) {
	log.Warn().Str("module", "recognizer").Msg("built without vosk tag, using stub engine")
	return stubEngine{}, nil
}

func (stubEngine) NewDecoder(sampleRate int) (Decoder, error) { return &stubDecoder{}, nil }

type stubDecoder struct{}

func (*stubDecoder) Accept(frame []byte) (Step, error) { return Step{}, nil }
func (*stubDecoder) Flush() Step                       { return Step{Final: true} }
func (*stubDecoder) Close()                            {}
