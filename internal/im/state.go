package im

import (
	"fmt"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Phase is the lifecycle position of the application state.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseOpening
	PhaseReady
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseOpening:
		return "opening"
	case PhaseReady:
		return "ready"
	case PhaseClosing:
		return "closing"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// FilterMode selects how the selected tags combine when filtering images.
type FilterMode int

const (
	FilterAll FilterMode = iota // image must carry every selected tag
	FilterAny                   // image must carry at least one selected tag
)

func (m FilterMode) String() string {
	if m == FilterAny {
		return "any"
	}
	return "all"
}

// State holds the in-memory view of the open workspace: image and tag lists,
// the tag filter selection, and per-image tag and connection caches.
//
// Transitions run none -> opening -> ready -> closing -> none. While opening or
// closing, every other operation fails with ErrWorkspaceBusy. Failures are
// recorded and exposed through LastError as well as returned.
type State struct {
	mu      sync.Mutex
	manager *Manager
	logger  Logger

	phase     Phase
	workspace *Workspace
	images    []*Image
	tags      []*Tag
	selected  mapset.Set[int64]
	mode      FilterMode

	connCache *Cache[int64, []*ImageConnection]
	tagCache  *Cache[int64, []*Tag]

	lastErr error
}

// NewState creates an empty state with no workspace.
func NewState(manager *Manager, logger Logger) *State {
	return &State{
		manager:   manager,
		logger:    logger,
		selected:  mapset.NewThreadUnsafeSet[int64](),
		connCache: NewCache[int64, []*ImageConnection](),
		tagCache:  NewCache[int64, []*Tag](),
	}
}

// Open makes path the active workspace. The previous workspace, if any, is closed.
// With scan set the folder is reconciled; otherwise the stored images are loaded as-is.
func (s *State) Open(path string, scan bool) (*Workspace, error) {
	s.mu.Lock()
	if s.phase == PhaseOpening || s.phase == PhaseClosing {
		s.mu.Unlock()
		return nil, ErrWorkspaceBusy
	}
	s.phase = PhaseOpening
	s.mu.Unlock()

	ws, images, tags, err := s.load(path, scan)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	if err != nil {
		s.phase = PhaseNone
		return nil, s.fail(err)
	}

	s.workspace = ws
	s.images = images
	s.tags = tags
	s.phase = PhaseReady
	s.lastErr = nil
	return ws, nil
}

func (s *State) load(path string, scan bool) (*Workspace, []*Image, []*Tag, error) {
	ws, err := s.manager.OpenWorkspace(path)
	if err != nil {
		return nil, nil, nil, err
	}

	var images []*Image
	if scan {
		images, err = s.manager.Images.Reconcile(ws.AbsolutePath)
	} else {
		images, err = s.manager.Images.All()
	}
	if err == nil {
		var tags []*Tag
		if tags, err = s.manager.Tags.All(); err == nil {
			return ws, images, tags, nil
		}
	}

	if cerr := s.manager.CloseWorkspace(); cerr != nil {
		s.logger.Warn("failed to close workspace after open failure", "error", cerr)
	}
	return nil, nil, nil, err
}

// Close releases the active workspace and clears every derived view.
// Closing with no workspace open is a no-op.
func (s *State) Close() error {
	s.mu.Lock()
	switch s.phase {
	case PhaseNone:
		s.mu.Unlock()
		return nil
	case PhaseOpening, PhaseClosing:
		s.mu.Unlock()
		return ErrWorkspaceBusy
	}
	s.phase = PhaseClosing
	s.mu.Unlock()

	err := s.manager.CloseWorkspace()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.phase = PhaseNone
	if err != nil {
		return s.fail(err)
	}
	return nil
}

// reset clears every derived view. Callers hold mu.
func (s *State) reset() {
	s.workspace = nil
	s.images = nil
	s.tags = nil
	s.selected.Clear()
	s.mode = FilterAll
	s.connCache.InvalidateAll()
	s.tagCache.InvalidateAll()
}

// ready checks the state accepts workspace operations. Callers hold mu.
func (s *State) ready() error {
	switch s.phase {
	case PhaseReady:
		return nil
	case PhaseOpening, PhaseClosing:
		return ErrWorkspaceBusy
	default:
		return ErrNoWorkspace
	}
}

// fail records err as the last error and returns it. Callers hold mu.
func (s *State) fail(err error) error {
	s.lastErr = err
	return err
}

// Phase returns the current lifecycle phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Workspace returns the active workspace, or nil.
func (s *State) Workspace() *Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workspace
}

// Images returns the cached image list.
func (s *State) Images() []*Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.images)
}

// Tags returns the cached tag list.
func (s *State) Tags() []*Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tags)
}

// LastError returns the most recent failure recorded by the state, or nil.
func (s *State) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError forgets the recorded failure.
func (s *State) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

// Rescan reconciles the active workspace with its folder and reloads the image list.
func (s *State) Rescan() ([]*Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	images, err := s.manager.Images.Reconcile(s.workspace.AbsolutePath)
	if err != nil {
		return nil, s.fail(err)
	}
	s.images = images
	s.connCache.InvalidateAll()
	s.tagCache.InvalidateAll()
	return slices.Clone(images), nil
}

// Tag selection

// SelectTag adds the tag to the filter selection.
func (s *State) SelectTag(tagID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected.Add(tagID)
}

// DeselectTag removes the tag from the filter selection.
func (s *State) DeselectTag(tagID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected.Remove(tagID)
}

// ToggleTag flips the tag's membership in the filter selection.
func (s *State) ToggleTag(tagID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected.Contains(tagID) {
		s.selected.Remove(tagID)
	} else {
		s.selected.Add(tagID)
	}
}

// ClearSelection empties the filter selection.
func (s *State) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected.Clear()
}

// SelectedTags returns the selected tag ids in ascending order.
func (s *State) SelectedTags() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.selected.ToSlice()
	slices.Sort(ids)
	return ids
}

// SetFilterMode chooses between AND and OR combination of the selected tags.
func (s *State) SetFilterMode(mode FilterMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// FilterMode returns the current combination mode.
func (s *State) FilterMode() FilterMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// FilteredImages returns the images matching the tag selection, each with its tags.
// An empty selection returns every image.
func (s *State) FilteredImages() ([]*ImageWithTags, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	ids := s.selected.ToSlice()
	slices.Sort(ids)

	var (
		images []*ImageWithTags
		err    error
	)
	if s.mode == FilterAny {
		images, err = s.manager.Tags.ImagesByTagsAny(ids)
	} else {
		images, err = s.manager.Tags.ImagesByTagsAll(ids)
	}
	if err != nil {
		return nil, s.fail(err)
	}
	for _, img := range images {
		s.tagCache.Put(img.ID, img.Tags)
	}
	return images, nil
}

// Per-image reads

// TagsForImage returns the image's tags, served from cache until a mutation evicts them.
func (s *State) TagsForImage(imageID int64) ([]*Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	tags, err := s.tagCache.GetOrLoad(imageID, func() ([]*Tag, error) {
		return s.manager.Tags.ForImage(imageID)
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return tags, nil
}

// ConnectionsForImage returns the image's connections, served from cache until a
// mutation evicts them.
func (s *State) ConnectionsForImage(imageID int64) ([]*ImageConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	conns, err := s.connCache.GetOrLoad(imageID, func() ([]*ImageConnection, error) {
		return s.manager.Connections.ForImage(imageID)
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return conns, nil
}

// Tag mutations

// CreateTag creates a tag after checking no other tag has the same name, ignoring case.
func (s *State) CreateTag(name, color string) (*Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	exists, err := s.manager.Tags.NameExists(name, 0)
	if err != nil {
		return nil, s.fail(err)
	}
	if exists {
		return nil, s.fail(ErrTagNameTaken)
	}

	tag, err := s.manager.Tags.Create(name, color)
	if err != nil {
		return nil, s.fail(err)
	}
	if err := s.refreshTags(); err != nil {
		return nil, err
	}
	return tag, nil
}

// UpdateTag renames and/or recolors a tag. A rename that collides with another
// tag, ignoring case, is rejected before anything is written.
func (s *State) UpdateTag(id int64, update TagUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}

	if update.Name != nil {
		exists, err := s.manager.Tags.NameExists(*update.Name, id)
		if err != nil {
			return s.fail(err)
		}
		if exists {
			return s.fail(ErrTagNameTaken)
		}
	}

	if err := s.manager.Tags.Update(id, update); err != nil {
		return s.fail(err)
	}
	s.tagCache.InvalidateAll()
	return s.refreshTags()
}

// DeleteTag removes the tag everywhere and drops it from the selection.
func (s *State) DeleteTag(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}

	if err := s.manager.Tags.Delete(id); err != nil {
		return s.fail(err)
	}
	s.selected.Remove(id)
	s.tagCache.InvalidateAll()
	return s.refreshTags()
}

// AddTagToImage tags the image.
func (s *State) AddTagToImage(imageID, tagID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.manager.Tags.AddToImage(imageID, tagID); err != nil {
		return s.fail(err)
	}
	s.tagCache.Invalidate(imageID)
	return nil
}

// RemoveTagFromImage untags the image.
func (s *State) RemoveTagFromImage(imageID, tagID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.manager.Tags.RemoveFromImage(imageID, tagID); err != nil {
		return s.fail(err)
	}
	s.tagCache.Invalidate(imageID)
	return nil
}

func (s *State) refreshTags() error {
	tags, err := s.manager.Tags.All()
	if err != nil {
		return s.fail(err)
	}
	s.tags = tags
	return nil
}

// Connection mutations

// CreateConnection links two images and evicts both from the connection cache.
func (s *State) CreateConnection(imageAID, imageBID int64) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	conn, err := s.manager.Connections.Create(imageAID, imageBID)
	if err != nil {
		return nil, s.fail(err)
	}
	s.connCache.Invalidate(imageAID, imageBID)
	return conn, nil
}

// RemoveConnection unlinks two images and evicts both from the connection cache.
func (s *State) RemoveConnection(imageAID, imageBID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.manager.Connections.Remove(imageAID, imageBID); err != nil {
		return s.fail(err)
	}
	s.connCache.Invalidate(imageAID, imageBID)
	return nil
}

// Image mutations

// MoveImage moves an image and reloads the image list. Returns the resulting relative path.
func (s *State) MoveImage(oldPath, newPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return "", err
	}
	result, err := s.manager.Images.Move(oldPath, newPath, s.workspace.AbsolutePath)
	if err != nil {
		return "", s.fail(err)
	}
	return result, s.afterImageMutation()
}

// RenameImage renames an image in place and reloads the image list.
func (s *State) RenameImage(oldName, newName, relativePath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return "", err
	}
	result, err := s.manager.Images.Rename(oldName, newName, relativePath, s.workspace.AbsolutePath)
	if err != nil {
		return "", s.fail(err)
	}
	return result, s.afterImageMutation()
}

// DeleteImage deletes an image from disk and catalog, then reloads the image list.
func (s *State) DeleteImage(relativePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.manager.Images.Delete(relativePath, s.workspace.AbsolutePath); err != nil {
		return s.fail(err)
	}
	return s.afterImageMutation()
}

// afterImageMutation reloads images and drops every cached per-image view, since
// connection entries embed the peer image record.
func (s *State) afterImageMutation() error {
	s.connCache.InvalidateAll()
	s.tagCache.InvalidateAll()

	images, err := s.manager.Images.All()
	if err != nil {
		return s.fail(fmt.Errorf("reloading images: %w", err))
	}
	s.images = images
	return nil
}

