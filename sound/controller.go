// Package sound decides from timer state whether ambient audio should be
// playing and drives the audio player through AUDIO_CONTROL commands.
package sound

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/takaotokuno/focusguard/internal/apperr"
	"github.com/takaotokuno/focusguard/timer"
)

// CommandType tags every audio-control message.
const CommandType = "AUDIO_CONTROL"

// Action selects the player operation.
type Action string

const (
	ActionPlay         Action = "PLAY"
	ActionStop         Action = "STOP"
	ActionUpdateVolume Action = "UPDATE_VOLUME"
	ActionCleanup      Action = "CLEANUP"
)

// Command is an audio-control message sent to the player.
type Command struct {
	Type      string  `json:"type"`
	Action    Action  `json:"action"`
	SoundFile string  `json:"soundFile,omitempty"`
	Volume    float64 `json:"volume,omitempty"`
	Loop      bool    `json:"loop,omitempty"`
}

// Player consumes audio-control commands.
type Player interface {
	Send(ctx context.Context, cmd Command) error
}

// PlayerFactory creates the player on first use.
type PlayerFactory func(ctx context.Context) (Player, error)

// Controller applies the sound decision table on every orchestrator step:
// audio plays only while sound is enabled, the timer is running, and the
// current session is a work session.
type Controller struct {
	soundFile  string
	newPlayer  PlayerFactory
	ensure     singleflight.Group
	mu         sync.Mutex
	player     Player
	playing    bool
	lastVolume int
}

// NewController returns a Controller that plays soundFile in a loop.
func NewController(soundFile string, newPlayer PlayerFactory) *Controller {
	return &Controller{
		soundFile:  soundFile,
		newPlayer:  newPlayer,
		lastVolume: -1,
	}
}

// IsPlaying reports whether a PLAY command is in effect.
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.playing
}

// Apply reconciles the player with the current timer state. All failures are
// warnings: the timer keeps running without audio.
func (c *Controller) Apply(ctx context.Context, state *timer.State) error {
	shouldPlay := state.SoundEnabled() &&
		state.Mode() == timer.Running &&
		state.SessionType() == timer.Work

	if !shouldPlay {
		return c.stop(ctx)
	}

	return c.play(ctx, state.SoundVolume())
}

// Cleanup stops playback and releases the player.
func (c *Controller) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	player := c.player
	c.player = nil
	c.playing = false
	c.lastVolume = -1
	c.mu.Unlock()

	if player == nil {
		return nil
	}

	err := player.Send(ctx, Command{Type: CommandType, Action: ActionCleanup})
	if err != nil {
		return apperr.Wrap(
			apperr.Audio,
			apperr.Warning,
			"cleaning up audio player",
			err,
		)
	}

	return nil
}

func (c *Controller) play(ctx context.Context, volume int) error {
	c.mu.Lock()
	alreadyPlaying := c.playing
	volumeChanged := c.lastVolume != volume
	c.mu.Unlock()

	// The 0-100 scale is halved on purpose: full loudness tops out at 0.5
	// on the player's 0..1 range.
	gain := float64(volume) / 200

	if alreadyPlaying {
		if !volumeChanged {
			return nil
		}

		return c.send(ctx, Command{
			Type:   CommandType,
			Action: ActionUpdateVolume,
			Volume: gain,
		}, volume)
	}

	return c.send(ctx, Command{
		Type:      CommandType,
		Action:    ActionPlay,
		SoundFile: c.soundFile,
		Volume:    gain,
		Loop:      true,
	}, volume)
}

func (c *Controller) stop(ctx context.Context) error {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()

	if !playing {
		return nil
	}

	return c.send(ctx, Command{Type: CommandType, Action: ActionStop}, -1)
}

// send ensures the player exists, delivers one command, and tracks the
// playing flag. Any failure resets the flag so the next Apply retries from
// scratch.
func (c *Controller) send(ctx context.Context, cmd Command, volume int) error {
	player, err := c.ensurePlayer(ctx)
	if err != nil {
		c.resetPlaying()

		return apperr.Wrap(
			apperr.Audio,
			apperr.Warning,
			"ensuring audio player",
			err,
		)
	}

	if err := player.Send(ctx, cmd); err != nil {
		c.resetPlaying()

		return apperr.Wrap(
			apperr.Audio,
			apperr.Warning,
			"sending "+string(cmd.Action)+" to audio player",
			err,
		)
	}

	c.mu.Lock()
	switch cmd.Action {
	case ActionPlay, ActionUpdateVolume:
		c.playing = true
		c.lastVolume = volume
	case ActionStop:
		c.playing = false
		c.lastVolume = -1
	}
	c.mu.Unlock()

	return nil
}

func (c *Controller) resetPlaying() {
	c.mu.Lock()
	c.playing = false
	c.lastVolume = -1
	c.mu.Unlock()
}

// ensurePlayer creates the player at most once. Concurrent callers share a
// single in-flight initialisation; a failed attempt leaves the slot empty so
// a later call can retry.
func (c *Controller) ensurePlayer(ctx context.Context) (Player, error) {
	c.mu.Lock()
	player := c.player
	c.mu.Unlock()

	if player != nil {
		return player, nil
	}

	v, err, _ := c.ensure.Do("player", func() (any, error) {
		p, err := c.newPlayer(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.player = p
		c.mu.Unlock()

		return p, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(Player), nil
}
