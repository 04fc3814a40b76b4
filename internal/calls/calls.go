// Package calls defines the call gateway the bot uses to join and leave
// voice and video chats through its assistant accounts.
package calls

import (
	"context"
	"errors"
)

// ErrNoActiveGroupCall is returned by JoinCall when the chat has no voice
// chat running. It must reach the user rather than be retried.
var ErrNoActiveGroupCall = errors.New("calls: no active group call")

// MediaSource is what to stream into the call.
type MediaSource struct {
	URL          string
	Video        bool
	AudioQuality string
	VideoQuality string
}

// Gateway joins and leaves group calls. assistantIndex is the 1-based
// index of the assistant that owns the call.
type Gateway interface {
	JoinCall(ctx context.Context, assistantIndex int, chatID int64, src MediaSource) error
	LeaveCall(ctx context.Context, assistantIndex int, chatID int64) error
}
