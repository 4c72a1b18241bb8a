package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuth bool

func (a staticAuth) IsValid() bool { return bool(a) }

func newTestSession(t *testing.T, mainKey, candidate string) *Session {
	t.Helper()
	hash, err := HashWithParams([]byte(mainKey), fastParams)
	require.NoError(t, err)
	s, err := NewSession(Lines{hash}, []byte(candidate))
	require.NoError(t, err)
	return s
}

func insert(t *testing.T, ix *Index, title, username string) *Record {
	t.Helper()
	r := NewRecord(title, username, title+"@example.com", "pw-"+username, "https://"+title, []string{"note"})
	require.Equal(t, Success, ix.Insert(staticAuth(true), r))
	return r
}

func TestNewRecordAccessors(t *testing.T) {
	before := time.Now()
	r := NewRecord("Bank", "alice", "alice@bank.test", "s3cret", "https://bank.test", []string{"pin 1234", "branch 7"})

	assert.NotEmpty(t, r.ID())
	assert.Equal(t, "Bank", r.Title())
	assert.Equal(t, "alice", r.Username())
	assert.Equal(t, "alice@bank.test", r.Email())
	assert.Equal(t, "s3cret", r.Password())
	assert.Equal(t, "https://bank.test", r.URL())
	assert.Equal(t, []string{"pin 1234", "branch 7"}, r.Notes())
	assert.False(t, r.CreatedAt().Before(before))
	assert.Equal(t, r.CreatedAt(), r.PasswordUpdatedAt())
}

func TestRecordIdentityIsCaseInsensitive(t *testing.T) {
	a := NewRecord("Example", "joe", "", "", "", nil)
	b := NewRecord("example", "JOE", "x", "y", "z", nil)
	c := NewRecord("example", "jane", "", "", "", nil)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.False(t, a.Equal(c))
}

func TestCompareOrdering(t *testing.T) {
	ix := NewIndex()
	insert(t, ix, "Email", "alice")
	insert(t, ix, "bank", "bob")
	insert(t, ix, "Bank", "alice")

	var titles []string
	for _, r := range ix.Sorted() {
		titles = append(titles, r.Title())
	}
	assert.Equal(t, []string{"Bank", "bank", "Email"}, titles)

	// storage order is untouched by sorting
	assert.Equal(t, "Email", ix.Records()[0].Title())
}

func TestInsertCollision(t *testing.T) {
	ix := NewIndex()
	insert(t, ix, "Example", "joe")

	dup := NewRecord("example", "joe", "", "", "", nil)
	assert.Equal(t, Collision, ix.Insert(staticAuth(true), dup))
	assert.Equal(t, 1, ix.Len())
}

func TestInsertKeyMismatch(t *testing.T) {
	ix := NewIndex()
	r := NewRecord("Example", "joe", "", "", "", nil)
	assert.Equal(t, KeyMismatch, ix.Insert(staticAuth(false), r))
	assert.Equal(t, KeyMismatch, ix.Insert(nil, r))
	assert.Zero(t, ix.Len())
}

func TestSetEmailWithValidSession(t *testing.T) {
	sess := newTestSession(t, "correct-key", "correct-key")
	require.True(t, sess.IsValid())

	ix := NewIndex()
	r := insert(t, ix, "Bank", "alice")

	assert.Equal(t, Success, r.SetEmail(sess, "a@b.com"))
	assert.Equal(t, "a@b.com", r.Email())
	assert.Same(t, r, ix.Get(r.ID()))
}

func TestMutatorsWithWrongKeyChangeNothing(t *testing.T) {
	sess := newTestSession(t, "correct-key", "wrong-key")
	require.False(t, sess.IsValid())

	ix := NewIndex()
	r := insert(t, ix, "Bank", "alice")
	other := insert(t, ix, "Mail", "bob")
	before := ix.Records()

	assert.Equal(t, KeyMismatch, r.SetTitle(sess, "Other"))
	assert.Equal(t, KeyMismatch, r.SetUsername(sess, "carol"))
	assert.Equal(t, KeyMismatch, r.SetEmail(sess, "x@y.z"))
	assert.Equal(t, KeyMismatch, r.SetPassword(sess, "new"))
	assert.Equal(t, KeyMismatch, r.SetURL(sess, "https://x"))
	assert.Equal(t, KeyMismatch, r.SetNotes(sess, []string{"changed"}))
	assert.Equal(t, KeyMismatch, ix.Remove(sess, other))
	assert.Equal(t, KeyMismatch, ix.Insert(sess, NewRecord("New", "n", "", "", "", nil)))

	assert.Equal(t, before, ix.Records())
	assert.Equal(t, "Bank", r.Title())
	assert.Equal(t, "alice", r.Username())
	assert.Equal(t, "Bank@example.com", r.Email())
	assert.Equal(t, "pw-alice", r.Password())
	assert.Equal(t, "https://Bank", r.URL())
	assert.Equal(t, []string{"note"}, r.Notes())
}

func TestSetUsernameCollision(t *testing.T) {
	sess := newTestSession(t, "correct-key", "correct-key")
	ix := NewIndex()
	alice := insert(t, ix, "Bank", "alice")
	bob := insert(t, ix, "Bank", "bob")

	assert.Equal(t, Collision, bob.SetUsername(sess, "alice"))
	assert.Equal(t, "bob", bob.Username())
	assert.Equal(t, []*Record{alice, bob}, ix.Records())
}

func TestSetTitleReplacesRecord(t *testing.T) {
	sess := newTestSession(t, "correct-key", "correct-key")
	ix := NewIndex()
	first := insert(t, ix, "Alpha", "joe")
	r := insert(t, ix, "Bank", "alice")
	insert(t, ix, "Zulu", "kim")

	require.Equal(t, Success, r.SetTitle(sess, "Credit Union"))

	live := ix.Get(r.ID())
	require.NotNil(t, live)
	assert.NotSame(t, r, live)
	assert.Equal(t, "Credit Union", live.Title())
	assert.Equal(t, "alice", live.Username())
	assert.Equal(t, r.Email(), live.Email())
	assert.Equal(t, r.CreatedAt(), live.CreatedAt())

	// the old handle keeps its identity and the slot is swapped in place
	assert.Equal(t, "Bank", r.Title())
	assert.Same(t, first, ix.Records()[0])
	assert.Same(t, live, ix.Records()[1])
	assert.False(t, ix.Exists("Bank", "alice"))
	assert.True(t, ix.Exists("credit union", "ALICE"))
}

func TestSetTitleCaseOnlyChange(t *testing.T) {
	sess := newTestSession(t, "correct-key", "correct-key")
	ix := NewIndex()
	r := insert(t, ix, "Bank", "alice")

	require.Equal(t, Success, r.SetTitle(sess, "bank"))
	assert.Equal(t, "bank", ix.Get(r.ID()).Title())
	assert.Equal(t, 1, ix.Len())

	// same identity, but the displaced handle is detached
	assert.Panics(t, func() { r.SetEmail(sess, "x") })
}

func TestSetTitleCollision(t *testing.T) {
	sess := newTestSession(t, "correct-key", "correct-key")
	ix := NewIndex()
	insert(t, ix, "Example", "joe")
	r := insert(t, ix, "Other", "joe")

	assert.Equal(t, Collision, r.SetTitle(sess, "EXAMPLE"))
	assert.Same(t, r, ix.Get(r.ID()))
	assert.Equal(t, "Other", r.Title())
}

func TestSetPasswordRefreshesTimestamp(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	changed := created.Add(48 * time.Hour)
	now = func() time.Time { return created }
	t.Cleanup(func() { now = time.Now })

	ix := NewIndex()
	r := insert(t, ix, "Bank", "alice")

	now = func() time.Time { return changed }
	assert.Equal(t, 48*time.Hour, r.TimeSincePasswordUpdate())

	require.Equal(t, Success, r.SetPassword(staticAuth(true), "n3w"))
	assert.Equal(t, "n3w", r.Password())
	assert.Equal(t, changed, r.PasswordUpdatedAt())
	assert.Equal(t, created, r.CreatedAt())
	assert.Zero(t, r.TimeSincePasswordUpdate())
}

func TestSetNotesAndURL(t *testing.T) {
	ix := NewIndex()
	r := insert(t, ix, "Bank", "alice")

	require.Equal(t, Success, r.SetNotes(staticAuth(true), []string{"a", "b"}))
	require.Equal(t, Success, r.SetURL(staticAuth(true), "https://new"))
	assert.Equal(t, []string{"a", "b"}, r.Notes())
	assert.Equal(t, "https://new", r.URL())

	require.Equal(t, Success, r.SetNotes(staticAuth(true), nil))
	assert.Empty(t, r.Notes())
}

func TestMutatorOnUnindexedRecordPanics(t *testing.T) {
	r := NewRecord("Loose", "joe", "", "", "", nil)
	assert.Panics(t, func() { r.SetEmail(staticAuth(true), "x") })
}

func TestMutatorOnReplacedHandlePanics(t *testing.T) {
	ix := NewIndex()
	r := insert(t, ix, "Bank", "alice")
	require.Equal(t, Success, r.SetUsername(staticAuth(true), "alicia"))

	assert.Panics(t, func() { r.SetEmail(staticAuth(true), "x") })
}

func TestRemove(t *testing.T) {
	ix := NewIndex()
	a := insert(t, ix, "A", "x")
	b := insert(t, ix, "B", "x")

	require.Equal(t, Success, ix.Remove(staticAuth(true), a))
	assert.Equal(t, []*Record{b}, ix.Records())
	assert.Nil(t, ix.Get(a.ID()))
	assert.Panics(t, func() { a.SetURL(staticAuth(true), "x") })
}

func TestRemoveStaleHandlePanics(t *testing.T) {
	ix := NewIndex()
	stale := insert(t, ix, "Bank", "alice")
	require.Equal(t, Success, stale.SetTitle(staticAuth(true), "bank"))
	live := ix.Get(stale.ID())
	require.NotSame(t, stale, live)

	assert.PanicsWithError(t, ErrRecordNotIndexed.Error()+": "+stale.ID(), func() {
		ix.Remove(staticAuth(true), stale)
	})
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, Success, live.SetEmail(staticAuth(true), "x@y.z"))
	assert.Equal(t, "x@y.z", live.Email())
}

func TestRemoveForeignRecordPanics(t *testing.T) {
	ix := NewIndex()
	kept := insert(t, ix, "Bank", "alice")
	other := insert(t, NewIndex(), "Bank", "alice")

	assert.Panics(t, func() { ix.Remove(staticAuth(true), other) })
	assert.Same(t, kept, ix.Get(kept.ID()))
	assert.Equal(t, 1, ix.Len())
}
