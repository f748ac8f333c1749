package valueobjects

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityFrom(t *testing.T) {
	tests := []struct {
		name      string
		a, b      string
		wantEqual bool
	}{
		{"same key", "node-1", "node-1", true},
		{"different key", "node-1", "node-2", false},
		{"case sensitive", "Node", "node", false},
		{"empty keys are random", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := IdentityFrom(tt.a), IdentityFrom(tt.b)
			assert.Equal(t, tt.wantEqual, a == b)
			assert.False(t, a.IsZero())
		})
	}
}

func TestRandomIdentity(t *testing.T) {
	seen := make(map[Identity]struct{})
	for i := 0; i < 100; i++ {
		seen[RandomIdentity()] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestIdentityFromUUIDAndInt(t *testing.T) {
	u := uuid.New()
	assert.Equal(t, u.String(), IdentityFromUUID(u).String())
	assert.False(t, IdentityFromUUID(uuid.Nil).IsZero())

	assert.Equal(t, IdentityFromInt(42), IdentityFromInt(42))
	assert.NotEqual(t, IdentityFromInt(42), IdentityFrom("42"))
}

func TestIdentityJSON(t *testing.T) {
	id := IdentityFrom("x")
	data, err := json.Marshal(map[string]Identity{"id": id})
	require.NoError(t, err)

	var out map[string]Identity
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, id, out["id"])

	var empty Identity
	assert.Error(t, empty.UnmarshalText(nil))
	assert.True(t, empty.IsZero())
}
