package app

import (
	"github.com/zulandar/yukki/internal/assistant"
	"github.com/zulandar/yukki/internal/config"
)

// sessionClient is an assistant account configured by its session string.
// The call sidecar owns the actual user session.
type sessionClient struct {
	name    string
	session string
}

func (c *sessionClient) Name() string { return c.name }

// callHandle addresses one assistant's call instance in the sidecar.
type callHandle struct{ index int }

func (h callHandle) Index() int { return h.index }

// BuildPool creates a pool with one slot per configured assistant. Slots
// with an empty session are offline.
func BuildPool(cfg *config.Config) *assistant.StaticPool {
	members := make([]*assistant.Member, len(cfg.Assistants))
	for i, a := range cfg.Assistants {
		if a.Session == "" {
			continue
		}
		members[i] = &assistant.Member{
			Client: &sessionClient{name: a.Name, session: a.Session},
			Calls:  callHandle{index: i + 1},
		}
	}
	return assistant.NewStaticPool(members)
}
