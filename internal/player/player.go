// Package player starts and stops streams in a chat, tying together the
// assistant registry, the video admission check and the call gateway.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zulandar/yukki/internal/admission"
	"github.com/zulandar/yukki/internal/assistant"
	"github.com/zulandar/yukki/internal/calls"
	"github.com/zulandar/yukki/internal/settings"
	"go.uber.org/zap"
)

var (
	// ErrVideoLimit is returned when a video stream is refused by admission.
	ErrVideoLimit = errors.New("player: video stream limit reached")
	// ErrNotStreaming is returned by Stop when nothing is playing.
	ErrNotStreaming = errors.New("player: nothing is streaming")
)

// Opts configures a Player.
type Opts struct {
	Assistants *assistant.Registry
	Admission  *admission.Controller
	Active     *admission.ActiveCalls
	Settings   *settings.Cache
	Gateway    calls.Gateway
	Log        *zap.Logger
}

// Player starts and stops streams.
type Player struct {
	assistants *assistant.Registry
	admission  *admission.Controller
	active     *admission.ActiveCalls
	settings   *settings.Cache
	gateway    calls.Gateway
	log        *zap.Logger

	// video serializes admit, join and AddVideo so two chats cannot both
	// take the last slot.
	video sync.Mutex
	// owner remembers which assistant joined each chat's call.
	mu    sync.Mutex
	owner map[int64]int
}

// New creates a Player.
func New(opts Opts) (*Player, error) {
	switch {
	case opts.Assistants == nil:
		return nil, fmt.Errorf("player: assistant registry is required")
	case opts.Admission == nil:
		return nil, fmt.Errorf("player: admission controller is required")
	case opts.Active == nil:
		return nil, fmt.Errorf("player: active calls are required")
	case opts.Settings == nil:
		return nil, fmt.Errorf("player: settings are required")
	case opts.Gateway == nil:
		return nil, fmt.Errorf("player: call gateway is required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Player{
		assistants: opts.Assistants,
		admission:  opts.Admission,
		active:     opts.Active,
		settings:   opts.Settings,
		gateway:    opts.Gateway,
		log:        opts.Log.Named("player"),
		owner:      make(map[int64]int),
	}, nil
}

// Play streams url into chatID's voice chat and returns the index of the
// assistant that joined. An assignment without a call session yields
// *assistant.InvalidAssistantIndexError.
func (p *Player) Play(ctx context.Context, chatID int64, url string, video bool) (int, error) {
	sess, err := p.assistants.CallSession(ctx, chatID)
	if err != nil {
		return 0, err
	}
	idx := sess.Index()
	src := calls.MediaSource{
		URL:          url,
		Video:        video,
		AudioQuality: p.settings.AudioQuality(ctx, chatID),
	}
	if video {
		src.VideoQuality = p.settings.VideoQuality(ctx, chatID)
		p.video.Lock()
		defer p.video.Unlock()
		if !p.admission.AdmitVideo(ctx, chatID) {
			return 0, ErrVideoLimit
		}
	}

	if err := p.gateway.JoinCall(ctx, idx, chatID, src); err != nil {
		return 0, fmt.Errorf("player: play in %d: %w", chatID, err)
	}

	p.active.Add(chatID)
	if video {
		p.active.AddVideo(chatID)
	} else {
		p.active.RemoveVideo(chatID)
	}
	p.mu.Lock()
	p.owner[chatID] = idx
	p.mu.Unlock()

	p.log.Info("stream started",
		zap.Int64("chat_id", chatID),
		zap.Int("assistant", idx),
		zap.Bool("video", video),
	)
	return idx, nil
}

// Stop leaves chatID's call and clears it from the active sets. The sets
// are cleared even when the gateway reports an error.
func (p *Player) Stop(ctx context.Context, chatID int64) error {
	if !p.active.Has(chatID) && !p.active.HasVideo(chatID) {
		return ErrNotStreaming
	}

	p.mu.Lock()
	idx, ok := p.owner[chatID]
	delete(p.owner, chatID)
	p.mu.Unlock()
	if !ok {
		var err error
		if idx, err = p.assistants.ResolveForCalls(ctx, chatID); err != nil {
			return err
		}
	}

	err := p.gateway.LeaveCall(ctx, idx, chatID)
	p.active.Remove(chatID)
	p.active.RemoveVideo(chatID)
	if err != nil {
		return fmt.Errorf("player: stop in %d: %w", chatID, err)
	}
	p.log.Info("stream stopped", zap.Int64("chat_id", chatID), zap.Int("assistant", idx))
	return nil
}
