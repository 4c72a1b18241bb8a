package vault

// Syncer moves the store file to and from a remote copy.
type Syncer interface {
	// Pull overwrites the local store with the remote copy.
	Pull(storePath string) error

	// Push uploads the local store.
	Push(storePath string) error
}
