package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	tts "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/tahcohcat/starpath-web/internal/logger"
)

// DefaultVoice is a clear, friendly voice for young readers.
const DefaultVoice = "en-US-Standard-C"

type Google struct {
	client *texttospeech.Client
	logger *logger.Log
}

// NewGoogle creates a Cloud Text-to-Speech client. An empty credentialsFile
// falls back to application default credentials.
func NewGoogle(ctx context.Context, credentialsFile string) (*Google, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google TTS client: %w", err)
	}
	return &Google{client: client, logger: logger.New()}, nil
}

func (g *Google) Synthesize(ctx context.Context, text, mood string, voice Voice) ([]byte, error) {
	req := &tts.SynthesizeSpeechRequest{
		Input: &tts.SynthesisInput{
			InputSource: &tts.SynthesisInput_Text{Text: text},
		},
		Voice: &tts.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode(),
			Name:         voice.Name,
		},
		AudioConfig: &tts.AudioConfig{
			AudioEncoding:   tts.AudioEncoding_MP3,
			SpeakingRate:    speakingRate(mood),
			Pitch:           pitch(mood),
			SampleRateHertz: 22050,
		},
	}

	g.logger.With("voice", voice.Name, "mood", mood).Debug("generating narration")

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, errors.New("empty audio content received from Google TTS")
	}
	return resp.AudioContent, nil
}

func (g *Google) Name() string {
	return "google"
}

func (g *Google) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Narration for children runs a little slower than conversational speech.
func speakingRate(mood string) float64 {
	switch strings.ToLower(mood) {
	case "excited", "celebrate":
		return 1.05
	case "story", "calm":
		return 0.85
	case "spelling", "slow":
		return 0.7
	default:
		return 0.9
	}
}

func pitch(mood string) float64 {
	switch strings.ToLower(mood) {
	case "excited", "celebrate":
		return 2.0
	case "story", "calm":
		return -1.0
	default:
		return 0.0
	}
}
