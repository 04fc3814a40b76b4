package assistant

import "fmt"

// Client is a live assistant account handle used for generic chat
// operations (joining chats, resolving peers).
type Client interface {
	Name() string
}

// CallSession is the call-engine handle owned by one assistant.
type CallSession interface {
	Index() int
}

// Pool provides the live assistants. Indices are 1-based and fixed after
// boot; an index may be offline, in which case it is not in Live.
type Pool interface {
	// Live returns the indices of usable assistants in ascending order.
	Live() []int
	// Size returns the number of configured slots, online or not.
	Size() int
	Client(index int) (Client, error)
	CallSession(index int) (CallSession, error)
}

// InvalidAssistantIndexError is returned when an index has no call session,
// typically a stale assignment after the pool shrank.
type InvalidAssistantIndexError struct {
	Index    int
	PoolSize int
}

func (e *InvalidAssistantIndexError) Error() string {
	return fmt.Sprintf("assistant: index %d is not a live assistant; %d call instances available", e.Index, e.PoolSize)
}

// Member is one pool slot.
type Member struct {
	Client Client
	Calls  CallSession
}

// StaticPool is a Pool built once at boot. A nil member marks an offline
// slot.
type StaticPool struct {
	members []*Member
	live    []int
}

// NewStaticPool creates a pool whose slot i+1 is members[i].
func NewStaticPool(members []*Member) *StaticPool {
	p := &StaticPool{members: members}
	for i, m := range members {
		if m != nil {
			p.live = append(p.live, i+1)
		}
	}
	return p
}

func (p *StaticPool) Live() []int { return p.live }

func (p *StaticPool) Size() int { return len(p.members) }

func (p *StaticPool) member(index int) (*Member, error) {
	if index < 1 || index > len(p.members) || p.members[index-1] == nil {
		return nil, &InvalidAssistantIndexError{Index: index, PoolSize: len(p.live)}
	}
	return p.members[index-1], nil
}

func (p *StaticPool) Client(index int) (Client, error) {
	m, err := p.member(index)
	if err != nil {
		return nil, err
	}
	return m.Client, nil
}

func (p *StaticPool) CallSession(index int) (CallSession, error) {
	m, err := p.member(index)
	if err != nil {
		return nil, err
	}
	return m.Calls, nil
}
