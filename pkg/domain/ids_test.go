package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "shiplog/pkg/domain-errors"
)

func TestParseActorID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseActorID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects whitespace-only string", func(t *testing.T) {
		_, err := ParseActorID("   ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		id, err := ParseActorID("  U1  ")
		require.NoError(t, err)
		assert.Equal(t, ActorID("U1"), id)
	})

	t.Run("accepts caller-assigned formats", func(t *testing.T) {
		for _, raw := range []string{"U1", "MR001", "chief-engineer", "crew.42"} {
			id, err := ParseActorID(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, id.String())
			assert.False(t, id.IsNil())
		}
	})
}

func TestParseEntityRef(t *testing.T) {
	t.Run("rejects empty type", func(t *testing.T) {
		_, err := ParseEntityRef("", "MR001")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := ParseEntityRef("maintenance_request", " ")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("valid reference", func(t *testing.T) {
		ref, err := ParseEntityRef("maintenance_request", "MR001")
		require.NoError(t, err)
		assert.Equal(t, EntityRef{Type: "maintenance_request", ID: "MR001"}, ref)
		assert.False(t, ref.IsNil())
	})
}

func TestParseNotificationID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseNotificationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-uuid", func(t *testing.T) {
		_, err := ParseNotificationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil uuid", func(t *testing.T) {
		_, err := ParseNotificationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("round-trips a valid uuid", func(t *testing.T) {
		raw := uuid.NewString()
		id, err := ParseNotificationID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, id.String())
		assert.False(t, id.IsNil())
	})
}

func TestCallerAuthorization(t *testing.T) {
	t.Run("admin may read any timeline", func(t *testing.T) {
		admin := Caller{ActorID: "ADMIN", Role: RoleAdmin}
		assert.True(t, admin.IsAdmin())
		assert.True(t, admin.CanReadTimeline("U1"))
	})

	t.Run("owner may read own timeline only", func(t *testing.T) {
		crew := Caller{ActorID: "U1", Role: RoleCrew}
		assert.False(t, crew.IsAdmin())
		assert.True(t, crew.CanReadTimeline("U1"))
		assert.False(t, crew.CanReadTimeline("U2"))
	})

	t.Run("anonymous caller may read nothing", func(t *testing.T) {
		assert.False(t, Caller{}.CanReadTimeline(""))
	})
}
