package scroll

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/matchchat/internal/timeline"
)

func TestInitialPageLandsAtBottom(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 30)
	require.Equal(t, 20, r.Offset())
	require.True(t, r.AtBottom())
}

func TestShortContentStaysAtTop(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 4)
	require.Equal(t, 0, r.Offset())
	require.True(t, r.AtBottom())
}

func TestPrependKeepsAnchorTopmost(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 30)
	r.ScrollToTop()
	require.Equal(t, 0, r.Offset())

	// The line that was at offset 0 is now at offset 12.
	r.BeforeMutation(timeline.MutationPrepend)
	r.AfterRender(42)
	require.Equal(t, 12, r.Offset())
	require.False(t, r.AtBottom())
}

func TestPrependWhileScrolledMidway(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 50)
	r.ScrollBy(-15)
	require.Equal(t, 25, r.Offset())

	r.Apply(timeline.MutationPrepend, 58)
	require.Equal(t, 33, r.Offset())
}

func TestAppendAutoscrollsOnlyAtBottom(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 30)
	require.True(t, r.AtBottom())

	r.Apply(timeline.MutationAppend, 33)
	require.Equal(t, 23, r.Offset())
	require.True(t, r.AtBottom())

	r.ScrollBy(-5)
	r.Apply(timeline.MutationAppend, 36)
	require.Equal(t, 18, r.Offset())
	require.False(t, r.AtBottom())
}

func TestUpdateKeepsPosition(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 30)
	r.ScrollBy(-8)

	r.Apply(timeline.MutationUpdate, 30)
	require.Equal(t, 12, r.Offset())

	r.Apply(timeline.MutationReplace, 29)
	require.Equal(t, 12, r.Offset())
}

func TestAfterRenderWithoutBeforeIsPlainRerender(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 30)
	r.AfterRender(35)
	require.True(t, r.AtBottom())
	require.Equal(t, 25, r.Offset())
}

func TestSetHeightKeepsBottomPinned(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 30)
	r.SetHeight(5)
	require.Equal(t, 25, r.Offset())

	r.ScrollToTop()
	r.SetHeight(8)
	require.Equal(t, 0, r.Offset())
}

func TestScrollClamps(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 30)
	r.ScrollBy(-100)
	require.Equal(t, 0, r.Offset())
	r.ScrollBy(100)
	require.Equal(t, 20, r.Offset())
}

func TestShouldLoadMore(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 30)

	require.False(t, r.ShouldLoadMore(2, true, false))

	r.ScrollBy(-19)
	require.Equal(t, 1, r.Offset())
	require.True(t, r.ShouldLoadMore(2, true, false))
	require.False(t, r.ShouldLoadMore(2, false, false))
	require.False(t, r.ShouldLoadMore(2, true, true))
}

func TestReset(t *testing.T) {
	r := New(10)
	r.Apply(timeline.MutationPrepend, 30)
	r.Reset()
	require.Zero(t, r.Offset())
	require.Zero(t, r.ContentHeight())
	require.Equal(t, 10, r.Height())
}
