package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidationErrorsIs(t *testing.T) {
	validation := &ValidationErrors{}
	validation.Add("id", ErrMissingID)

	err := validation.Err()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMissingID))
	require.False(t, errors.Is(err, ErrEmptyBody))
}

func TestValidationErrorsNestedFields(t *testing.T) {
	nested := &ValidationErrors{}
	nested.Addf("base_url", "must be http or https")

	validation := &ValidationErrors{}
	validation.Add("server", nested)

	var list *ValidationErrors
	require.ErrorAs(t, validation.Err(), &list)
	require.Len(t, list.Errors, 1)
	require.Equal(t, "server.base_url", list.Errors[0].Field)
	require.Equal(t, "server.base_url: must be http or https", list.Error())
}

func TestMessageValidate(t *testing.T) {
	err := Message{Body: "hi"}.Validate()
	require.ErrorIs(t, err, ErrMissingID)
	require.ErrorIs(t, err, ErrMissingParticipant)

	require.NoError(t, Message{ID: "1", FromID: "a", ToID: "b"}.Validate())
}

func TestNormalizeBody(t *testing.T) {
	body, err := NormalizeBody("  hey  ")
	require.NoError(t, err)
	require.Equal(t, "hey", body)

	_, err = NormalizeBody(" \n\t ")
	require.ErrorIs(t, err, ErrEmptyBody)

	_, err = NormalizeBody(strings.Repeat("a", MaxBodyLength+1))
	require.ErrorIs(t, err, ErrBodyTooLong)

	// The limit counts characters, not bytes.
	wide := strings.Repeat("é", MaxBodyLength)
	body, err = NormalizeBody(wide)
	require.NoError(t, err)
	require.Equal(t, wide, body)

	_, err = NormalizeBody(wide + "日")
	require.ErrorIs(t, err, ErrBodyTooLong)
}

func TestNewOptimisticCarriesCorrelationToken(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := NewOptimistic("me", "peer", "hi", now)

	require.True(t, IsTempID(msg.ID))
	require.True(t, msg.Pending)
	require.Equal(t, msg.ID, msg.ClientID)
	require.Equal(t, now, msg.CreatedAt)
	require.True(t, msg.Mine("me"))
	require.Equal(t, "peer", msg.Counterpart("me"))

	other := NewOptimistic("me", "peer", "hi", now)
	require.NotEqual(t, msg.ID, other.ID)
}

func TestInvolves(t *testing.T) {
	msg := Message{FromID: "a", ToID: "b"}
	require.True(t, msg.Involves("a"))
	require.True(t, msg.Involves("b"))
	require.False(t, msg.Involves("c"))
	require.False(t, msg.Involves(""))
}

func TestWireMessageDecode(t *testing.T) {
	raw := `{"_id":"42","fromUserId":"a","toUserId":"b","message":"yo","createdAt":"2026-01-02T03:04:05Z","clientId":"temp-x"}`
	var wire WireMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &wire))

	msg := wire.ToMessage()
	require.Equal(t, "42", msg.ID)
	require.Equal(t, "temp-x", msg.ClientID)
	require.Equal(t, "yo", msg.Body)
	require.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), msg.CreatedAt)
	require.False(t, IsTempID(msg.ID))

	back := ToWire(msg)
	require.Equal(t, wire.ID, back.ID)
	require.NotNil(t, back.CreatedAt)
}

func TestPeerDisplayName(t *testing.T) {
	require.Equal(t, "Ada Lovelace", Peer{ID: "1", FirstName: "Ada", LastName: "Lovelace"}.DisplayName())
	require.Equal(t, "Ada", Peer{ID: "1", FirstName: "Ada"}.DisplayName())
	require.Equal(t, "1", Peer{ID: "1"}.DisplayName())
}
