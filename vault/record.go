package vault

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

var now = time.Now

// Record is one stored credential. Title and username form its identity and
// never change in place: a new identity is realised by swapping a replacement
// Record into the owning Index.
type Record struct {
	id        string
	title     *Secret
	username  *Secret
	createdAt time.Time
	owner     atomic.Pointer[Index]

	mu                sync.RWMutex
	email             *Secret
	password          *Secret
	url               *Secret
	notes             []*Secret
	passwordUpdatedAt time.Time
}

// NewRecord seals every field and stamps both timestamps with the current
// time. The record belongs to no index until inserted.
func NewRecord(title, username, email, password, url string, notes []string) *Record {
	t := now()
	return &Record{
		id:                uuid.New().String(),
		title:             NewSecret(title),
		username:          NewSecret(username),
		email:             NewSecret(email),
		password:          NewSecret(password),
		url:               NewSecret(url),
		notes:             sealAll(notes),
		createdAt:         t,
		passwordUpdatedAt: t,
	}
}

func (r *Record) ID() string       { return r.id }
func (r *Record) Title() string    { return r.title.mustReveal() }
func (r *Record) Username() string { return r.username.mustReveal() }

func (r *Record) Email() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.email.mustReveal()
}

func (r *Record) Password() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.password.mustReveal()
}

func (r *Record) URL() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.url.mustReveal()
}

func (r *Record) Notes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return revealAll(r.notes)
}

func (r *Record) CreatedAt() time.Time { return r.createdAt }

func (r *Record) PasswordUpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.passwordUpdatedAt
}

func (r *Record) TimeSincePasswordUpdate() time.Duration {
	return now().Sub(r.PasswordUpdatedAt())
}

// Key is the normalised identity. Two records are Equal exactly when their
// keys match.
func (r *Record) Key() string {
	return identityKey(r.Title(), r.Username())
}

func (r *Record) Equal(o *Record) bool {
	return r.Key() == o.Key()
}

// Compare orders by title, then username, both case-insensitive ascending.
func Compare(a, b *Record) int {
	if c := strings.Compare(fold(a.Title()), fold(b.Title())); c != 0 {
		return c
	}
	return strings.Compare(fold(a.Username()), fold(b.Username()))
}

func identityKey(title, username string) string {
	return fold(title) + "\x00" + fold(username)
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// SetTitle swaps in a copy of r carrying title. The swap only happens when the
// auth check passes and no other record already has the resulting identity.
func (r *Record) SetTitle(auth Authorizer, title string) Result {
	return r.replaceIdentity(auth, func(c *Record) { c.title = NewSecret(title) })
}

func (r *Record) SetUsername(auth Authorizer, username string) Result {
	return r.replaceIdentity(auth, func(c *Record) { c.username = NewSecret(username) })
}

func (r *Record) SetEmail(auth Authorizer, email string) Result {
	return r.setField(auth, func() { r.email = NewSecret(email) })
}

func (r *Record) SetURL(auth Authorizer, url string) Result {
	return r.setField(auth, func() { r.url = NewSecret(url) })
}

func (r *Record) SetNotes(auth Authorizer, notes []string) Result {
	return r.setField(auth, func() { r.notes = sealAll(notes) })
}

// SetPassword is gated like every other mutator and refreshes
// PasswordUpdatedAt. Knowledge of the previous password is not required.
func (r *Record) SetPassword(auth Authorizer, password string) Result {
	return r.setField(auth, func() {
		r.password = NewSecret(password)
		r.passwordUpdatedAt = now()
	})
}

func (r *Record) replaceIdentity(auth Authorizer, apply func(*Record)) Result {
	ix := r.index()
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.authorize(auth, r) {
		return KeyMismatch
	}
	pos := ix.mustIndexOf(r)
	next := r.clone()
	apply(next)
	if ix.existsLocked(next.Key(), pos) {
		ix.log.Debug("identity change rejected", zapRecord(r))
		return Collision
	}
	ix.replace(pos, next)
	return Success
}

func (r *Record) setField(auth Authorizer, apply func()) Result {
	ix := r.index()
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.authorize(auth, r) {
		return KeyMismatch
	}
	ix.mustIndexOf(r)
	r.mu.Lock()
	apply()
	r.mu.Unlock()
	ix.log.Debug("record field updated", zapRecord(r))
	return Success
}

func (r *Record) index() *Index {
	ix := r.owner.Load()
	if ix == nil {
		panic(ErrRecordNotIndexed)
	}
	return ix
}

func (r *Record) clone() *Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	notes := make([]*Secret, len(r.notes))
	copy(notes, r.notes)
	c := &Record{
		id:                r.id,
		title:             r.title,
		username:          r.username,
		createdAt:         r.createdAt,
		email:             r.email,
		password:          r.password,
		url:               r.url,
		notes:             notes,
		passwordUpdatedAt: r.passwordUpdatedAt,
	}
	c.owner.Store(r.owner.Load())
	return c
}
