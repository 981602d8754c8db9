package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "docrelay/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseOrgID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseOrgID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil uuid", func(t *testing.T) {
		_, err := ParseCorrelationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid uuid", func(t *testing.T) {
		raw := uuid.NewString()
		got, err := ParseCorrelationID(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, got.String())
	})

	t.Run("rejects uuid with trailing garbage", func(t *testing.T) {
		_, err := ParseContactID(uuid.NewString() + "x")
		require.Error(t, err)
	})
}

// TestTypedIDs_AreDistinct documents that one entity's parser does not
// accept another entity's zero semantics: nil checks stay per-type.
func TestTypedIDs_AreDistinct(t *testing.T) {
	var contact ContactID
	var entry EntryID
	assert.True(t, contact.IsNil())
	assert.True(t, entry.IsNil())

	parsed, err := ParseHistoryID(uuid.NewString())
	require.NoError(t, err)
	assert.False(t, parsed.IsNil())
}

// TestString_RoundTrip covers every parser with its String counterpart.
func TestString_RoundTrip(t *testing.T) {
	raw := strings.ToLower(uuid.NewString())

	orgID, err := ParseOrgID(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, orgID.String())

	outboundID, err := ParseOutboundID(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, outboundID.String())

	documentID, err := ParseDocumentID(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, documentID.String())
}

// FuzzParseOrgID checks that parsing never panics on arbitrary input and
// either succeeds with a round-trippable ID or errors.
func FuzzParseOrgID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		got, err := ParseOrgID(input)
		if err != nil {
			return
		}
		if got.IsNil() {
			t.Fatalf("parse accepted input %q but produced a nil id", input)
		}
		reparsed, err := ParseOrgID(got.String())
		if err != nil {
			t.Fatalf("round trip of %q failed: %v", input, err)
		}
		if reparsed != got {
			t.Fatalf("round trip of %q changed the id", input)
		}
	})
}
