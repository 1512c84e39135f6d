// Package domain contains core concepts of the chat system.
// This file defines the Identity of a connected participant.
// No runtime, network, or UI logic should be added here.
package domain

const Anonymous = "Anonymous"

// Identity is resolved by the identity provider at handshake time.
type Identity struct {
	Authenticated bool
	Email         string
	Name          string
}

func AnonymousIdentity() Identity {
	return Identity{}
}

// DisplayName returns the e-mail of an authenticated identity, Anonymous otherwise.
func (i Identity) DisplayName() string {
	if !i.Authenticated || i.Email == "" {
		return Anonymous
	}
	return i.Email
}
