package room

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/matchchat/internal/testutil"
	"github.com/tOgg1/matchchat/internal/transport"
)

func joins(ch *testutil.FakeChannel) []string {
	var out []string
	for _, f := range ch.SentEvents(transport.EventJoinRoom) {
		out = append(out, string(f.Payload))
	}
	return out
}

func TestBindJoinsWhenConnected(t *testing.T) {
	ch := testutil.NewFakeChannel()
	m := New(ch)

	require.NoError(t, m.Bind(" me "))
	require.Equal(t, "me", m.Identity())
	require.Equal(t, []string{`"me"`}, joins(ch))

	// Same identity again does not re-join.
	require.NoError(t, m.Bind("me"))
	require.Len(t, joins(ch), 1)
}

func TestBindRejoinsOnEveryReconnect(t *testing.T) {
	ch := testutil.NewFakeChannel()
	ch.SetConnected(false)
	m := New(ch)

	require.NoError(t, m.Bind("me"))
	require.Empty(t, joins(ch))

	ch.SetConnected(true)
	ch.SetConnected(false)
	ch.SetConnected(true)
	require.Equal(t, []string{`"me"`, `"me"`}, joins(ch))
	require.Equal(t, 1, ch.Handlers(transport.EventConnect))
}

func TestRebindDifferentIdentity(t *testing.T) {
	ch := testutil.NewFakeChannel()
	m := New(ch)

	require.NoError(t, m.Bind("me"))
	require.NoError(t, m.Bind("other"))
	require.Equal(t, []string{`"me"`, `"other"`}, joins(ch))
}

func TestReleaseStopsRejoin(t *testing.T) {
	ch := testutil.NewFakeChannel()
	m := New(ch)
	require.NoError(t, m.Bind("me"))

	m.Release()
	m.Release()
	require.Zero(t, ch.Handlers(transport.EventConnect))

	ch.SetConnected(false)
	ch.SetConnected(true)
	require.Len(t, joins(ch), 1)
	require.Empty(t, m.Identity())
}

func TestBindEmptyIdentity(t *testing.T) {
	m := New(testutil.NewFakeChannel())
	require.ErrorIs(t, m.Bind("  "), ErrNoIdentity)
}
