package vault

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Vault ties one persisted store to the Session and Index built from it.
type Vault struct {
	store   *FileStore
	session *Session
	index   *Index
	syncer  Syncer
	log     *zap.Logger
}

type Option func(*Vault)

func WithLogger(l *zap.Logger) Option {
	return func(v *Vault) {
		if l != nil {
			v.log = l
		}
	}
}

func WithSyncer(s Syncer) Option {
	return func(v *Vault) { v.syncer = s }
}

// Create writes a new store at path protected by mainKey. mainKey is wiped.
func Create(path string, mainKey []byte, params KDFParams) error {
	if mainKey == nil {
		return ErrNullInput
	}
	fs := &FileStore{Path: path}
	return fs.Create(mainKey, params)
}

// Open reads the store at path once, builds the Session from line 0 and the
// Index from the remaining lines. A candidate key that does not match is not
// an error here; check Session().IsValid(). candidate is wiped.
func Open(path string, candidate []byte, opts ...Option) (*Vault, error) {
	v := &Vault{store: &FileStore{Path: path}, log: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}

	lines, err := v.store.ReadLines()
	if err != nil {
		return nil, err
	}
	v.session, err = NewSession(Lines(lines), candidate)
	if err != nil {
		return nil, err
	}
	v.index, err = decodeIndex(lines[1:])
	if err != nil {
		return nil, err
	}
	v.index.log = v.log

	v.log.Info("vault opened",
		zap.String("path", path),
		zap.Int("records", v.index.Len()),
		zap.Bool("key_valid", v.session.IsValid()))
	return v, nil
}

func (v *Vault) Path() string          { return v.store.Path }
func (v *Vault) Session() *Session     { return v.session }
func (v *Vault) Index() *Index         { return v.index }
func (v *Vault) List() []*Record       { return v.index.Sorted() }
func (v *Vault) Get(id string) *Record { return v.index.Get(id) }

// Add builds a record and inserts it under the session's authority.
func (v *Vault) Add(title, username, email, password, url string, notes []string) (*Record, Result) {
	r := NewRecord(title, username, email, password, url, notes)
	res := v.index.Insert(v.session, r)
	v.log.Info("add record", zap.String("record_id", r.ID()), zap.Stringer("result", res))
	if res != Success {
		return nil, res
	}
	return r, res
}

// Remove deletes the record with the given ID under the session's authority.
// The Result is meaningless when err is non-nil.
func (v *Vault) Remove(id string) (Result, error) {
	if !v.session.IsValid() {
		return KeyMismatch, nil
	}
	r := v.index.Get(id)
	if r == nil {
		return KeyMismatch, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	res := v.index.Remove(v.session, r)
	v.log.Info("remove record", zap.String("record_id", id), zap.Stringer("result", res))
	return res, nil
}

// Save rewrites the store: the unchanged key line followed by every record
// in storage order.
func (v *Vault) Save() error {
	if !v.session.IsValid() {
		return ErrAuthFailed
	}
	hash, err := v.session.storedHash()
	if err != nil {
		return err
	}
	records := v.index.Records()
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, hash)
	for _, r := range records {
		line, err := encodeRecord(r)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID(), err)
		}
		lines = append(lines, line)
	}
	if err := v.store.WriteLines(lines); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	v.log.Info("vault saved", zap.String("path", v.store.Path), zap.Int("records", len(records)))
	return nil
}

func (v *Vault) SyncPush() error {
	if v.syncer == nil {
		return ErrNoSyncer
	}
	if !v.session.IsValid() {
		return ErrAuthFailed
	}
	if err := v.syncer.Push(v.store.Path); err != nil {
		return err
	}
	v.log.Info("vault pushed", zap.String("path", v.store.Path))
	return nil
}

// SyncPull replaces the local store with the remote copy and reloads the
// records. A remote store with a different key line is rejected and the
// local file restored.
func (v *Vault) SyncPull() error {
	if v.syncer == nil {
		return ErrNoSyncer
	}
	if !v.session.IsValid() {
		return ErrAuthFailed
	}
	backup, err := v.store.ReadLines()
	if err != nil {
		return err
	}
	if len(backup) == 0 {
		return fmt.Errorf("%w: store has no key line", ErrMalformedHash)
	}
	if err := v.syncer.Pull(v.store.Path); err != nil {
		return err
	}
	lines, err := v.store.ReadLines()
	if err == nil && (len(lines) == 0 || lines[0] != backup[0]) {
		err = fmt.Errorf("%w: remote store has a different main key", ErrAuthFailed)
	}
	var ix *Index
	if err == nil {
		ix, err = decodeIndex(lines[1:])
	}
	if err != nil {
		if rerr := v.store.WriteLines(backup); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	ix.log = v.log
	v.index = ix
	v.log.Info("vault pulled", zap.String("path", v.store.Path), zap.Int("records", ix.Len()))
	return nil
}
