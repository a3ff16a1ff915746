// Package auth authorizes jury overrides.
package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrOverrideDisabled = errors.New("overrides are disabled")
	ErrOverrideDenied   = errors.New("override not authorized")
)

// OverrideGuard checks the jury PIN against a bcrypt hash. A guard with an
// empty hash rejects every override.
type OverrideGuard struct {
	hash []byte
}

func NewOverrideGuard(pinHash string) *OverrideGuard {
	return &OverrideGuard{hash: []byte(strings.TrimSpace(pinHash))}
}

func (g *OverrideGuard) Enabled() bool { return g != nil && len(g.hash) > 0 }

// Authorize requires a named actor and the matching PIN.
func (g *OverrideGuard) Authorize(actor, pin string) error {
	if !g.Enabled() {
		return ErrOverrideDisabled
	}
	if strings.TrimSpace(actor) == "" || pin == "" {
		return ErrOverrideDenied
	}
	if bcrypt.CompareHashAndPassword(g.hash, []byte(pin)) != nil {
		return ErrOverrideDenied
	}
	return nil
}

// HashPIN produces a value suitable for OVERRIDE_PIN_HASH.
func HashPIN(pin string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
