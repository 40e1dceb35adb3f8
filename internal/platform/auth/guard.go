// Package auth implements the capability check gating administrative
// operations. It compares opaque tokens and knows nothing about roles.
package auth

import (
	"crypto/subtle"
	"errors"
)

var ErrForbidden = errors.New("admin capability required")

// Capability is an opaque token presented by a caller claiming an
// administrative capability.
type Capability string

type Guard struct {
	adminToken string
}

func NewGuard(adminToken string) *Guard {
	return &Guard{adminToken: adminToken}
}

// RequireAdmin returns ErrForbidden unless the presented capability matches
// the configured admin token. An empty configured token disables the
// capability entirely, so a misconfigured deploy fails closed.
func (g *Guard) RequireAdmin(capability Capability) error {
	if g == nil || g.adminToken == "" {
		return ErrForbidden
	}
	if subtle.ConstantTimeCompare([]byte(capability), []byte(g.adminToken)) != 1 {
		return ErrForbidden
	}
	return nil
}
