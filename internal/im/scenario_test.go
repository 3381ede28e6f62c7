package im_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Three images, one tag, one connection, then a file disappears from disk.
func TestScenario_TagConnectAndReconcile(t *testing.T) {
	env := newTestEnv(t)
	images := env.openWithImages(t, "a.jpg", "b.png", "c.png")
	a, b := imageAt(t, images, "a.jpg"), imageAt(t, images, "b.png")

	red, err := env.mgr.Tags.Create("red", "")
	require.NoError(t, err)
	require.NoError(t, env.mgr.Tags.AddToImage(a.ID, red.ID))
	require.NoError(t, env.mgr.Tags.AddToImage(b.ID, red.ID))

	and, err := env.mgr.Tags.ImagesByTagsAll([]int64{red.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.png"}, taggedPaths(and))
	or, err := env.mgr.Tags.ImagesByTagsAny([]int64{red.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "b.png"}, taggedPaths(or))

	_, err = env.mgr.Connections.Create(a.ID, b.ID)
	require.NoError(t, err)

	stats, err := env.mgr.Connections.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalConnections)
	assert.Equal(t, int64(2), stats.ConnectedImages)

	graph, err := env.mgr.Connections.GraphData()
	require.NoError(t, err)
	assert.Len(t, graph.Nodes, 3)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, a.ID, graph.Edges[0].Source)
	assert.Equal(t, b.ID, graph.Edges[0].Target)

	require.NoError(t, env.mgr.Tags.Delete(red.ID))
	all, err := env.mgr.Images.All()
	require.NoError(t, err)
	assert.Len(t, all, 3, "deleting a tag leaves images alone")
	for _, img := range []int64{a.ID, b.ID} {
		tags, err := env.mgr.Tags.ForImage(img)
		require.NoError(t, err)
		assert.Empty(t, tags)
	}

	env.fs.RemoveImage(root, "b.png")
	after, err := env.mgr.Images.Reconcile(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg", "c.png"}, paths(after))

	conns, err := env.mgr.Connections.ForImage(a.ID)
	require.NoError(t, err)
	assert.Empty(t, conns)
}
