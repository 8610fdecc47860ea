package audio

import (
	"context"

	"github.com/tahcohcat/starpath-web/internal/logger"
)

// Dummy is used when no speech backend is configured.
type Dummy struct{}

func NewDummy() *Dummy {
	return &Dummy{}
}

func (d *Dummy) Synthesize(_ context.Context, _, _ string, _ Voice) ([]byte, error) {
	logger.New().Debug("no tts configured. ignoring narration request")
	return nil, ErrDisabled
}

func (d *Dummy) Name() string {
	return "dummy"
}
