package session

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/infra/store"
)

// Identity reports the signed-in user, if any.
type Identity interface {
	CurrentUser() (string, bool)
}

// RemoteFactory opens the remote store of a user.
type RemoteFactory func(uid string) (store.KV, error)

// SelectStore returns the remote store when a user is signed in and a remote
// factory is configured, and the local store otherwise. A remote store that
// cannot be opened falls back to local.
func SelectStore(identity Identity, local store.KV, remote RemoteFactory) store.KV {
	if identity == nil || remote == nil {
		return local
	}
	uid, ok := identity.CurrentUser()
	if !ok {
		zlog.Info().Msg("session: no signed-in user, using local storage")
		return local
	}
	kv, err := remote(uid)
	if err != nil {
		zlog.Warn().Err(err).Msgf("session: remote storage unavailable, using local storage: user=%s", uid)
		return local
	}
	zlog.Info().Msgf("session: using remote storage: user=%s", uid)
	return kv
}
