package im_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-go/internal/im"
)

func TestCanonical(t *testing.T) {
	a, b := im.Canonical(7, 3)
	assert.Equal(t, int64(3), a)
	assert.Equal(t, int64(7), b)

	a, b = im.Canonical(3, 7)
	assert.Equal(t, int64(3), a)
	assert.Equal(t, int64(7), b)
}

func TestConnectionService(t *testing.T) {
	env := newTestEnv(t)
	images := env.openWithImages(t, "a.jpg", "b.jpg", "c.jpg", "d.jpg")
	a := imageAt(t, images, "a.jpg")
	b := imageAt(t, images, "b.jpg")
	c := imageAt(t, images, "c.jpg")
	conns := env.mgr.Connections

	t.Run("self connection is rejected", func(t *testing.T) {
		_, err := conns.Create(a.ID, a.ID)
		assert.ErrorIs(t, err, im.ErrSelfConnection)
		assert.ErrorIs(t, err, im.ErrValidation)
	})

	t.Run("stored canonically", func(t *testing.T) {
		conn, err := conns.Create(b.ID, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, conn.ImageAID)
		assert.Equal(t, b.ID, conn.ImageBID)
	})

	t.Run("duplicate in either order", func(t *testing.T) {
		_, err := conns.Create(a.ID, b.ID)
		assert.ErrorIs(t, err, im.ErrConnectionExists)
		_, err = conns.Create(b.ID, a.ID)
		assert.ErrorIs(t, err, im.ErrConnectionExists)
	})

	t.Run("exists in either order", func(t *testing.T) {
		ok, err := conns.ExistsBetween(b.ID, a.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = conns.ExistsBetween(a.ID, c.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("for image is newest first with peer attached", func(t *testing.T) {
		env.clock.Advance(time.Minute)
		_, err := conns.Create(c.ID, a.ID)
		require.NoError(t, err)

		got, err := conns.ForImage(a.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c.jpg", got[0].ConnectedImage.RelativePath)
		assert.Equal(t, "b.jpg", got[1].ConnectedImage.RelativePath)

		fromB, err := conns.ForImage(b.ID)
		require.NoError(t, err)
		require.Len(t, fromB, 1)
		assert.Equal(t, a.ID, fromB[0].ConnectedImage.ID)
	})

	t.Run("stats count distinct images", func(t *testing.T) {
		stats, err := conns.Stats()
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalConnections)
		assert.Equal(t, int64(3), stats.ConnectedImages)
	})

	t.Run("graph data", func(t *testing.T) {
		graph, err := conns.GraphData()
		require.NoError(t, err)
		assert.Len(t, graph.Nodes, 4)
		require.Len(t, graph.Edges, 2)
		for _, e := range graph.Edges {
			assert.Less(t, e.Source, e.Target)
		}
		assert.Equal(t, "a.jpg", graph.Nodes[0].Path)
		assert.Equal(t, "jpg", graph.Nodes[0].Extension)
	})

	t.Run("remove in reverse order", func(t *testing.T) {
		require.NoError(t, conns.Remove(b.ID, a.ID))
		ok, err := conns.ExistsBetween(a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		all, err := conns.All()
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestConnectionService_Unbound(t *testing.T) {
	conns := im.NewConnectionService(im.NewNopLogger())
	_, err := conns.Create(1, 2)
	assert.ErrorIs(t, err, im.ErrWorkspaceNotInitialized)
	_, err = conns.GraphData()
	assert.ErrorIs(t, err, im.ErrWorkspaceNotInitialized)
}
