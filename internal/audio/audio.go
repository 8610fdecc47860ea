package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tahcohcat/starpath-web/internal/logger"
)

var (
	ErrEmptyText = errors.New("text cannot be empty")
	ErrDisabled  = errors.New("narration is disabled")
	ErrTooLong   = errors.New("text too long")
)

// MaxTextLength caps one narration request.
const MaxTextLength = 1000

// Voice selects a synthesizer voice, e.g. "en-US-Standard-C".
type Voice struct {
	Name string `json:"name"`
}

// LanguageCode is the "xx-YY" prefix of the voice name.
func (v Voice) LanguageCode() string {
	parts := strings.Split(v.Name, "-")
	if len(parts) >= 2 {
		return parts[0] + "-" + parts[1]
	}
	return "en-US"
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, mood string, voice Voice) ([]byte, error)
	Name() string
}

// Service turns lesson text into MP3 narration. Playback is the browser's job.
type Service struct {
	synth        Synthesizer
	defaultVoice Voice
	logger       *logger.Log
}

func NewService(synth Synthesizer, defaultVoice string) *Service {
	if defaultVoice == "" {
		defaultVoice = DefaultVoice
	}
	return &Service{
		synth:        synth,
		defaultVoice: Voice{Name: defaultVoice},
		logger:       logger.New().With("service", "AudioService", "synthesizer", synth.Name()),
	}
}

// Speak returns MP3 bytes for text. An empty voice uses the default.
func (s *Service) Speak(ctx context.Context, text, mood, voice string) ([]byte, error) {
	text = cleanText(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if len(text) > MaxTextLength {
		return nil, fmt.Errorf("%w: at most %d characters", ErrTooLong, MaxTextLength)
	}

	v := s.defaultVoice
	if voice != "" {
		v = Voice{Name: voice}
	}

	data, err := s.synth.Synthesize(ctx, text, mood, v)
	if err != nil {
		s.logger.With("voice", v.Name).WithError(err).Warn("narration failed")
		return nil, err
	}
	return data, nil
}

func (s *Service) SynthesizerName() string {
	return s.synth.Name()
}

func cleanText(text string) string {
	text = strings.NewReplacer("[", "", "]", "", "*", "").Replace(text)
	return strings.TrimSpace(text)
}
