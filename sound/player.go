package sound

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// loadTimeout bounds the audio-loading path. It is the only hard timeout in
// the system.
const loadTimeout = 5 * time.Second

var (
	errInvalidSoundFormat = errors.New(
		"sound file must be in mp3, ogg, flac, or wav format",
	)
	errLoadTimeout = errors.New("loading sound timed out")
	errNoSoundFile = errors.New("no sound file specified")
)

// BeepPlayer plays ambient audio through the system speaker. It is the
// in-process counterpart of the off-screen audio document.
type BeepPlayer struct {
	mu      sync.Mutex
	stream  beep.StreamSeekCloser
	volume  *effects.Volume
	speaker bool
}

// NewBeepPlayer is a PlayerFactory for the system speaker.
func NewBeepPlayer(_ context.Context) (Player, error) {
	return &BeepPlayer{}, nil
}

// Send executes one audio-control command.
func (p *BeepPlayer) Send(ctx context.Context, cmd Command) error {
	switch cmd.Action {
	case ActionPlay:
		return p.playFile(ctx, cmd)
	case ActionStop:
		return p.stopPlayback()
	case ActionUpdateVolume:
		return p.updateVolume(cmd.Volume)
	case ActionCleanup:
		return p.cleanup()
	default:
		return fmt.Errorf("unknown audio action %q", cmd.Action)
	}
}

func (p *BeepPlayer) playFile(ctx context.Context, cmd Command) error {
	if cmd.SoundFile == "" {
		return errNoSoundFile
	}

	stream, format, err := p.loadStream(ctx, cmd.SoundFile)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.speaker {
		bufferSize := 10

		err = speaker.Init(
			format.SampleRate,
			format.SampleRate.N(time.Duration(int(time.Second)/bufferSize)),
		)
		if err != nil {
			_ = stream.Close()
			return err
		}

		p.speaker = true
	}

	if p.stream != nil {
		speaker.Clear()
		_ = p.stream.Close()
	}

	var streamer beep.Streamer = stream
	if cmd.Loop {
		streamer = beep.Loop(-1, stream)
	}

	p.volume = &effects.Volume{
		Streamer: streamer,
		Base:     2,
		Volume:   gainToVolume(cmd.Volume),
		Silent:   cmd.Volume <= 0,
	}
	p.stream = stream

	speaker.Play(p.volume)

	return nil
}

// loadStream opens and decodes the sound file, failing after loadTimeout.
func (p *BeepPlayer) loadStream(
	ctx context.Context,
	path string,
) (beep.StreamSeekCloser, beep.Format, error) {
	type loaded struct {
		stream beep.StreamSeekCloser
		format beep.Format
		err    error
	}

	ch := make(chan loaded, 1)

	go func() {
		stream, format, err := decodeFile(path)
		ch <- loaded{stream: stream, format: format, err: err}
	}()

	select {
	case l := <-ch:
		return l.stream, l.format, l.err
	case <-time.After(loadTimeout):
		return nil, beep.Format{}, errLoadTimeout
	case <-ctx.Done():
		return nil, beep.Format{}, ctx.Err()
	}
}

func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)

	switch filepath.Ext(path) {
	case ".ogg":
		stream, format, err = vorbis.Decode(f)
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	case ".flac":
		stream, format, err = flac.Decode(f)
	case ".wav":
		stream, format, err = wav.Decode(f)
	default:
		_ = f.Close()
		return nil, beep.Format{}, errInvalidSoundFormat
	}

	if err != nil {
		_ = f.Close()
		return nil, beep.Format{}, err
	}

	return stream, format, nil
}

func (p *BeepPlayer) stopPlayback() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}

	speaker.Clear()

	err := p.stream.Close()
	p.stream = nil
	p.volume = nil

	return err
}

func (p *BeepPlayer) updateVolume(gain float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.volume == nil {
		return errors.New("no active playback")
	}

	speaker.Lock()
	p.volume.Volume = gainToVolume(gain)
	p.volume.Silent = gain <= 0
	speaker.Unlock()

	return nil
}

func (p *BeepPlayer) cleanup() error {
	err := p.stopPlayback()

	p.mu.Lock()
	if p.speaker {
		speaker.Close()
		p.speaker = false
	}
	p.mu.Unlock()

	return err
}

// gainToVolume maps a linear 0..1 gain onto the logarithmic scale used by
// the volume effect.
func gainToVolume(gain float64) float64 {
	if gain <= 0 {
		return 0
	}

	return math.Log2(gain)
}
