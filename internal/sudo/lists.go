package sudo

import (
	"context"
	"errors"

	"github.com/zulandar/yukki/internal/store"
	"go.uber.org/zap"
)

// Lists groups the access and tracking sets loaded at startup.
type Lists struct {
	Gbanned     *IDSet
	Blocked     *IDSet
	Blacklisted *IDSet
	ServedChats *IDSet
	ServedUsers *IDSet
}

// NewLists creates the sets over s. Call Load before use.
func NewLists(s *store.Store, log *zap.Logger) *Lists {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("lists")
	return &Lists{
		Gbanned:     NewIDSet(s, store.TableGbannedUsers, store.PositiveKeys, log),
		Blocked:     NewIDSet(s, store.TableBannedUsers, store.PositiveKeys, log),
		Blacklisted: NewIDSet(s, store.TableBlacklistedChats, store.NegativeKeys, log),
		ServedChats: NewIDSet(s, store.TableServedChats, store.NegativeKeys, log),
		ServedUsers: NewIDSet(s, store.TableServedUsers, store.PositiveKeys, log),
	}
}

// Load reads every set. All sets are attempted even if one fails.
func (l *Lists) Load(ctx context.Context) error {
	return errors.Join(
		l.Gbanned.Load(ctx),
		l.Blocked.Load(ctx),
		l.Blacklisted.Load(ctx),
		l.ServedChats.Load(ctx),
		l.ServedUsers.Load(ctx),
	)
}

// Ignored reports whether an update from userID in chatID should be
// dropped.
func (l *Lists) Ignored(userID, chatID int64) bool {
	return l.Gbanned.Has(userID) || l.Blocked.Has(userID) || l.Blacklisted.Has(chatID)
}

// Track records userID and chatID as served. Private chats are only
// recorded as users.
func (l *Lists) Track(ctx context.Context, userID, chatID int64) {
	if userID > 0 && !l.ServedUsers.Has(userID) {
		l.ServedUsers.Add(ctx, userID)
	}
	if chatID < 0 && !l.ServedChats.Has(chatID) {
		l.ServedChats.Add(ctx, chatID)
	}
}
