package sudo

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/zulandar/yukki/internal/store"
	"go.uber.org/zap"
)

// MaxAuthUsers caps the authorized users of one chat.
const MaxAuthUsers = 20

// ErrAuthListFull is returned by AuthUsers.Add when a chat already has
// MaxAuthUsers authorized users.
var ErrAuthListFull = errors.New("sudo: authorized users list is full")

// AuthUser is a chat member allowed to control streams without admin
// rights.
type AuthUser struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	AddedBy int64  `json:"added_by"`
}

// AuthUsers holds the per-chat authorized users. Each chat's list is one
// JSON row keyed by chat id; reads always go to the store.
type AuthUsers struct {
	store *store.Store
	log   *zap.Logger
}

// NewAuthUsers creates the authorized users list over s.
func NewAuthUsers(s *store.Store, log *zap.Logger) *AuthUsers {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthUsers{store: s, log: log.Named("auth")}
}

func (a *AuthUsers) load(ctx context.Context, chatID int64) (map[int64]AuthUser, error) {
	users := map[int64]AuthUser{}
	if _, err := a.store.GetJSON(ctx, store.TableAuthUsers, chatID, &users); err != nil {
		return nil, fmt.Errorf("sudo: load auth users for %d: %w", chatID, err)
	}
	return users, nil
}

// Has reports whether userID is authorized in chatID. A store failure is
// logged and treated as not authorized.
func (a *AuthUsers) Has(ctx context.Context, chatID, userID int64) bool {
	users, err := a.load(ctx, chatID)
	if err != nil {
		a.log.Warn("read auth users", zap.Int64("chat_id", chatID), zap.Error(err))
		return false
	}
	_, ok := users[userID]
	return ok
}

// List returns chatID's authorized users ordered by id.
func (a *AuthUsers) List(ctx context.Context, chatID int64) ([]AuthUser, error) {
	users, err := a.load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	out := make([]AuthUser, 0, len(users))
	for _, id := range slices.Sorted(maps.Keys(users)) {
		out = append(out, users[id])
	}
	return out, nil
}

// Add authorizes u in chatID. It returns false if u already was.
func (a *AuthUsers) Add(ctx context.Context, chatID int64, u AuthUser) (bool, error) {
	users, err := a.load(ctx, chatID)
	if err != nil {
		return false, err
	}
	if _, ok := users[u.ID]; ok {
		return false, nil
	}
	if len(users) >= MaxAuthUsers {
		return false, ErrAuthListFull
	}
	users[u.ID] = u
	if err := a.store.SetJSON(ctx, store.TableAuthUsers, chatID, users); err != nil {
		return false, err
	}
	return true, nil
}

// Remove revokes userID in chatID. It returns false if userID was not
// authorized. The chat's row is dropped with its last user.
func (a *AuthUsers) Remove(ctx context.Context, chatID, userID int64) (bool, error) {
	users, err := a.load(ctx, chatID)
	if err != nil {
		return false, err
	}
	if _, ok := users[userID]; !ok {
		return false, nil
	}
	delete(users, userID)
	if len(users) == 0 {
		_, err = a.store.Delete(ctx, store.TableAuthUsers, chatID)
	} else {
		err = a.store.SetJSON(ctx, store.TableAuthUsers, chatID, users)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
