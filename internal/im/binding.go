package im

// binding holds the workspace store handle a domain service operates on.
// The Manager binds it after a workspace store is opened and unbinds it on close.
type binding struct {
	db WorkspaceDatabase
}

// Bind points the service at a workspace store handle.
func (b *binding) Bind(db WorkspaceDatabase) { b.db = db }

// Unbind drops the handle; later calls fail with ErrWorkspaceNotInitialized.
func (b *binding) Unbind() { b.db = nil }

// Bound reports whether a workspace store is bound.
func (b *binding) Bound() bool { return b.db != nil }

func (b *binding) store() (WorkspaceDatabase, error) {
	if b.db == nil {
		return nil, ErrWorkspaceNotInitialized
	}
	return b.db, nil
}
