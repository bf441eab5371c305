//go:build vosk

package recognizer

import (
	"encoding/json"
	"fmt"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
	"github.com/rs/zerolog/log"

	"github.com/lberthe/scribe/internal/domain"
)

// voskEngine holds the Kaldi model, loaded once at process start and
// shared read-only by every recognizer it spawns. A load failure is
// recorded and reported per NewDecoder call.
type voskEngine struct {
	model   *vosk.VoskModel
	loadErr error
}

func NewEngine(modelPath string) (Engine, error) {
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		log.Error().Err(err).Str("module", "recognizer").Str("path", modelPath).Msg("vosk model load failed")
		return &voskEngine{loadErr: err}, nil
	}
	log.Info().Str("module", "recognizer").Str("path", modelPath).Msg("vosk model loaded")
	return &voskEngine{model: model}, nil
}

func (e *voskEngine) NewDecoder(sampleRate int) (Decoder, error) {
	if e.model == nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, e.loadErr)
	}
	rec, err := vosk.NewRecognizer(e.model, float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("new recognizer: %w", err)
	}
	rec.SetWords(1)
	rec.SetPartialWords(1)
	return &voskDecoder{rec: rec}, nil
}

type voskDecoder struct {
	rec    *vosk.VoskRecognizer
	once   sync.Once
	closed bool
}

// voskResult covers both partial and final recognizer payloads.
type voskResult struct {
	Text       string        `json:"text"`
	Partial    string        `json:"partial"`
	Result     []domain.Word `json:"result"`
	Confidence float64       `json:"confidence"`
}

func (d *voskDecoder) Accept(frame []byte) (Step, error) {
	if len(frame) == 0 || d.closed {
		return Step{}, nil
	}
	if d.rec.AcceptWaveform(frame) != 0 {
		return parseFinal(d.rec.Result())
	}
	var res voskResult
	if err := json.Unmarshal([]byte(d.rec.PartialResult()), &res); err != nil {
		return Step{}, fmt.Errorf("partial result: %w", err)
	}
	return Step{Text: res.Partial}, nil
}

func (d *voskDecoder) Flush() Step {
	if d.closed {
		return Step{Final: true}
	}
	step, err := parseFinal(d.rec.FinalResult())
	if err != nil {
		log.Error().Err(err).Str("module", "recognizer").Msg("flush parse failed")
		return Step{Final: true}
	}
	return step
}

func (d *voskDecoder) Close() {
	d.once.Do(func() {
		d.closed = true
		d.rec.Free()
	})
}

func parseFinal(raw string) (Step, error) {
	var res voskResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return Step{}, fmt.Errorf("final result: %w", err)
	}
	return Step{Text: res.Text, Final: true, Words: res.Result, Confidence: res.Confidence}, nil
}
