package vault

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// fastParams keeps property tests quick; the format is the same.
var fastParams = KDFParams{Iterations: 16, SaltLen: 16, DigestLen: 32}

func TestHashFormat(t *testing.T) {
	hash, err := Hash([]byte("correct-key"))
	require.NoError(t, err)

	parts := strings.Split(hash, Delimiter)
	require.Len(t, parts, 3)

	iter, err := base64.StdEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Equal(t, "2000", string(iter))

	salt, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, salt, SaltLen)

	digest, err := base64.StdEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	assert.Len(t, digest, DigestLen)
}

func TestHashUsesFreshSalt(t *testing.T) {
	a, err := HashWithParams([]byte("same"), fastParams)
	require.NoError(t, err)
	b, err := HashWithParams([]byte("same"), fastParams)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestValidateDefaults(t *testing.T) {
	hash, err := Hash([]byte("correct-key"))
	require.NoError(t, err)

	ok, err := Validate([]byte("correct-key"), hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Validate([]byte("wrong-key"), hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateKnownVector(t *testing.T) {
	// RFC 6070: PBKDF2-HMAC-SHA1, P="password", S="salt", c=2, dkLen=20.
	hash := "Mg==;c2FsdA==;6mwBTcctb4zNHtkqzh1B8NjeiVc="

	ok, err := Validate([]byte("password"), hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateOlderIterationCount(t *testing.T) {
	hash, err := HashWithParams([]byte("upgrade-me"), KDFParams{Iterations: 500, SaltLen: 24, DigestLen: 20})
	require.NoError(t, err)

	ok, err := Validate([]byte("upgrade-me"), hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateMalformed(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString
	salt := enc([]byte("saltsalt"))
	digest := enc([]byte("digestdigest"))

	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"one field", "abc"},
		{"four fields", strings.Join([]string{enc([]byte("10")), salt, digest, digest}, Delimiter)},
		{"colon delimiter", strings.Join([]string{enc([]byte("10")), salt, digest}, ":")},
		{"iterations not base64", strings.Join([]string{"!!", salt, digest}, Delimiter)},
		{"iterations not numeric", strings.Join([]string{"YWJj", salt, digest}, Delimiter)},
		{"zero iterations", strings.Join([]string{"MA==", salt, digest}, Delimiter)},
		{"salt not base64", strings.Join([]string{enc([]byte("10")), "%%%", digest}, Delimiter)},
		{"digest not base64", strings.Join([]string{enc([]byte("10")), salt, "%%%"}, Delimiter)},
		{"empty digest", strings.Join([]string{enc([]byte("10")), salt, ""}, Delimiter)},
		{"huge iterations", strings.Join([]string{enc([]byte("2000000000")), salt, digest}, Delimiter)},
		{"oversized digest", strings.Join([]string{enc([]byte("10")), salt, enc(make([]byte, MaxHashBytes+1))}, Delimiter)},
		{"oversized salt", strings.Join([]string{enc([]byte("10")), enc(make([]byte, MaxHashBytes+1)), digest}, Delimiter)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Validate([]byte("anything"), tt.hash)
			assert.ErrorIs(t, err, ErrMalformedHash)
			assert.False(t, ok)
		})
	}
}

func TestNilInput(t *testing.T) {
	_, err := Hash(nil)
	assert.ErrorIs(t, err, ErrNullInput)

	_, err = Validate(nil, "Mg==;c2FsdA==;6mwBTcctb4zNHtkqzh1B8NjeiVc=")
	assert.ErrorIs(t, err, ErrNullInput)
}

func TestHashWithParamsRejectsOutOfRange(t *testing.T) {
	for _, p := range []KDFParams{
		{},
		{Iterations: MaxIterations + 1, SaltLen: 16, DigestLen: 32},
		{Iterations: 16, SaltLen: MaxHashBytes + 1, DigestLen: 32},
		{Iterations: 16, SaltLen: 16, DigestLen: MaxHashBytes + 1},
	} {
		_, err := HashWithParams([]byte("x"), p)
		assert.Error(t, err, "%+v", p)
	}
}

func TestCheck(t *testing.T) {
	assert.True(t, check([]byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.False(t, check([]byte{1, 2, 3}, []byte{1, 2, 4}))
	assert.False(t, check([]byte{1, 2, 3}, []byte{1, 2}))
	assert.False(t, check([]byte{}, []byte{0}))
	assert.True(t, check(nil, []byte{}))
}

func TestHashValidateProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := rapid.String().Draw(t, "p")
		other := rapid.String().Filter(func(s string) bool { return s != p }).Draw(t, "other")

		hash, err := HashWithParams([]byte(p), fastParams)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		if ok, err := Validate([]byte(p), hash); err != nil || !ok {
			t.Fatalf("validate(p) = %v, %v", ok, err)
		}
		if ok, err := Validate([]byte(other), hash); err != nil || ok {
			t.Fatalf("validate(other) = %v, %v", ok, err)
		}
	})
}
