package calls

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ExitNoActiveGroupCall is the sidecar exit status that maps to
// ErrNoActiveGroupCall.
const ExitNoActiveGroupCall = 3

// DefaultCallTimeout bounds one sidecar invocation.
const DefaultCallTimeout = 30 * time.Second

// ExecGateway drives an external call sidecar, one process per operation:
//
//	<command> <args...> join  --assistant N --chat ID --url URL [--video] --audio-quality Q --video-quality Q
//	<command> <args...> leave --assistant N --chat ID
type ExecGateway struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// NewExecGateway returns a gateway running command with the given leading
// arguments.
func NewExecGateway(command string, args ...string) (*ExecGateway, error) {
	if command == "" {
		return nil, fmt.Errorf("calls: command is required")
	}
	return &ExecGateway{Command: command, Args: args, Timeout: DefaultCallTimeout}, nil
}

func (g *ExecGateway) JoinCall(ctx context.Context, assistantIndex int, chatID int64, src MediaSource) error {
	if src.URL == "" {
		return fmt.Errorf("calls: join %d: media url is required", chatID)
	}
	args := []string{"join",
		"--assistant", strconv.Itoa(assistantIndex),
		"--chat", strconv.FormatInt(chatID, 10),
		"--url", src.URL,
	}
	if src.Video {
		args = append(args, "--video")
	}
	if src.AudioQuality != "" {
		args = append(args, "--audio-quality", src.AudioQuality)
	}
	if src.VideoQuality != "" {
		args = append(args, "--video-quality", src.VideoQuality)
	}
	if err := g.run(ctx, args); err != nil {
		return fmt.Errorf("calls: join %d with assistant %d: %w", chatID, assistantIndex, err)
	}
	return nil
}

func (g *ExecGateway) LeaveCall(ctx context.Context, assistantIndex int, chatID int64) error {
	args := []string{"leave",
		"--assistant", strconv.Itoa(assistantIndex),
		"--chat", strconv.FormatInt(chatID, 10),
	}
	if err := g.run(ctx, args); err != nil {
		return fmt.Errorf("calls: leave %d with assistant %d: %w", chatID, assistantIndex, err)
	}
	return nil
}

func (g *ExecGateway) run(ctx context.Context, args []string) error {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.Command, append(append([]string{}, g.Args...), args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == ExitNoActiveGroupCall {
		return ErrNoActiveGroupCall
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}
