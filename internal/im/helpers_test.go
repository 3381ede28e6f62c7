package im_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"im-go/internal/im"
	"im-go/internal/testutil"
)

const root = "/photos"

type testEnv struct {
	fs    *testutil.MockFilesystemManager
	clock *testutil.StubClock
	mgr   *im.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fs := testutil.NewMockFilesystemManager()
	clock := testutil.FixedClock()
	reg := testutil.NewTestRegistry(t, fs, clock)
	return &testEnv{
		fs:    fs,
		clock: clock,
		mgr:   im.NewManager(reg, fs, im.NewNopLogger()),
	}
}

// addImages places files in the mock workspace with the current clock time.
func (e *testEnv) addImages(files ...string) {
	e.fs.AddWorkspace(root)
	for _, f := range files {
		e.fs.AddImage(root, f, []byte(f), e.clock.Now())
	}
}

// openWithImages opens the mock workspace holding files and reconciles it.
func (e *testEnv) openWithImages(t *testing.T, files ...string) []*im.Image {
	t.Helper()
	e.addImages(files...)
	_, err := e.mgr.OpenWorkspace(root)
	require.NoError(t, err)
	images, err := e.mgr.Images.Reconcile(root)
	require.NoError(t, err)
	return images
}

func imageAt(t *testing.T, images []*im.Image, relativePath string) *im.Image {
	t.Helper()
	for _, img := range images {
		if img.RelativePath == relativePath {
			return img
		}
	}
	t.Fatalf("no image at %s", relativePath)
	return nil
}

func paths(images []*im.Image) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, img.RelativePath)
	}
	return out
}

func taggedPaths(images []*im.ImageWithTags) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, img.RelativePath)
	}
	return out
}

func tagNames(tags []*im.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.Name)
	}
	return out
}
