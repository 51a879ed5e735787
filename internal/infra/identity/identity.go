// Package identity resolves the signed-in user whose documents are loaded
// from the remote store.
package identity

import "strings"

// Provider reports the current user. ok is false for an anonymous session.
type Provider interface {
	CurrentUser() (uid string, ok bool)
}

// Static is a fixed user, or anonymous when empty.
type Static string

// CurrentUser returns the configured user id.
func (s Static) CurrentUser() (string, bool) {
	uid := strings.TrimSpace(string(s))
	return uid, uid != ""
}
