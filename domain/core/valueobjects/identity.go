package valueobjects

import (
	"errors"
	"strconv"

	"github.com/google/uuid"
)

// identityNamespace scopes UUIDv5 identities derived from caller supplied keys.
var identityNamespace = uuid.MustParse("5f0d3c9e-8a59-4d8e-9a43-3b1f6f2b7c11")

// Identity is the equality token of every traversable graph element.
// Two elements are the same logical element iff their identities are equal,
// regardless of which instance holds them. Identity is comparable and can be
// used as a map key.
type Identity struct {
	value string
}

// RandomIdentity creates a fresh identity
func RandomIdentity() Identity {
	return Identity{value: uuid.New().String()}
}

// IdentityFrom derives an identity deterministically from a key.
// An empty key yields a random identity.
func IdentityFrom(key string) Identity {
	if key == "" {
		return RandomIdentity()
	}
	return Identity{value: uuid.NewSHA1(identityNamespace, []byte(key)).String()}
}

// IdentityFromUUID wraps an externally assigned UUID
func IdentityFromUUID(id uuid.UUID) Identity {
	if id == uuid.Nil {
		return RandomIdentity()
	}
	return Identity{value: id.String()}
}

// IdentityFromInt derives an identity from a numeric id
func IdentityFromInt(id int64) Identity {
	return IdentityFrom("int:" + strconv.FormatInt(id, 10))
}

// ParseIdentity restores an identity from its string form
func ParseIdentity(s string) (Identity, error) {
	if s == "" {
		return Identity{}, errors.New("identity cannot be empty")
	}
	return Identity{value: s}, nil
}

// String returns the string representation of the Identity
func (id Identity) String() string {
	return id.value
}

// IsZero checks if the Identity is the zero value
func (id Identity) IsZero() bool {
	return id.value == ""
}

// MarshalText implements encoding.TextMarshaler
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *Identity) UnmarshalText(data []byte) error {
	parsed, err := ParseIdentity(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
