// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"fmt"

	"github.com/google/uuid"
)

// IdentityKind tags the Identity variant.
type IdentityKind int

const (
	IdentityNone IdentityKind = iota
	IdentityGuest
	IdentityAuthenticated
)

func (k IdentityKind) String() string {
	switch k {
	case IdentityGuest:
		return "guest"
	case IdentityAuthenticated:
		return "authenticated"
	default:
		return "none"
	}
}

// Identity is who the caller is: nobody, a guest session, or a signed-in
// user. Exactly one of GuestSessionID and UserID is meaningful, selected by
// Kind. Build values with NoIdentity, GuestIdentity and UserIdentity.
type Identity struct {
	Kind           IdentityKind
	GuestSessionID string
	UserID         uuid.UUID
}

// NoIdentity is the zero Identity.
func NoIdentity() Identity { return Identity{} }

// GuestIdentity returns a guest identity for the given session id.
func GuestIdentity(sessionID string) Identity {
	return Identity{Kind: IdentityGuest, GuestSessionID: sessionID}
}

// UserIdentity returns an authenticated identity.
func UserIdentity(userID uuid.UUID) Identity {
	return Identity{Kind: IdentityAuthenticated, UserID: userID}
}

func (i Identity) IsGuest() bool         { return i.Kind == IdentityGuest }
func (i Identity) IsAuthenticated() bool { return i.Kind == IdentityAuthenticated }

func (i Identity) String() string {
	switch i.Kind {
	case IdentityGuest:
		return fmt.Sprintf("guest(%s)", i.GuestSessionID)
	case IdentityAuthenticated:
		return fmt.Sprintf("user(%s)", i.UserID)
	default:
		return "none"
	}
}

// Partition names the storage a given identity routes to.
type Partition int

const (
	PartitionNone Partition = iota
	PartitionGuest
	PartitionRemote
)

// Partition routes an identity to its storage. It is a pure function of the
// variant: guests use their local partition, users the remote store.
func (i Identity) Partition() Partition {
	switch i.Kind {
	case IdentityGuest:
		if i.GuestSessionID == "" {
			return PartitionNone
		}
		return PartitionGuest
	case IdentityAuthenticated:
		if i.UserID == uuid.Nil {
			return PartitionNone
		}
		return PartitionRemote
	default:
		return PartitionNone
	}
}
