package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"interlude/internal/logger"
)

// Player plays the break cues through the system audio device via oto.
type Player struct {
	ctx   *oto.Context
	log   *logger.Logger
	start []byte
	end   []byte
	mu    sync.Mutex
}

// NewPlayer opens the audio device and pre-renders both cues. oto allows one
// context per process, so create a single Player.
func NewPlayer(log *logger.Logger) (*Player, error) {
	if log == nil {
		log = logger.Discard()
	}
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("open audio device: %w", err)
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{
		ctx:   ctx,
		log:   log,
		start: Synthesize(StartChime, SampleRate, Volume),
		end:   Synthesize(EndChime, SampleRate, Volume),
	}, nil
}

// PlayStart plays the break start cue without blocking.
func (p *Player) PlayStart() { go p.play("start", p.start) }

// PlayEnd plays the break end cue without blocking.
func (p *Player) PlayEnd() { go p.play("end", p.end) }

// play blocks until the cue finished. Cues never overlap.
func (p *Player) play(name string, pcm []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	player.Play()
	p.log.Debug("audio player: playing %s cue (%d bytes)", name, len(pcm))
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	if err := player.Close(); err != nil {
		p.log.Warn("audio player: %s cue: %v", name, err)
	}
}
