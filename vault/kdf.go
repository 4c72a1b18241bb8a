package vault

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const hashFields = 3

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Zero wipes b.
func Zero(b []byte) {
	zero(b)
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Hash derives a self-describing hash line for plain using the default
// parameters.
func Hash(plain []byte) (string, error) {
	return HashWithParams(plain, DefaultKDFParams())
}

// HashWithParams derives a hash line of the form
// base64(iterations);base64(salt);base64(digest).
func HashWithParams(plain []byte, params KDFParams) (string, error) {
	if plain == nil {
		return "", ErrNullInput
	}
	if params.Iterations < 1 || params.SaltLen < 1 || params.DigestLen < 1 ||
		params.Iterations > MaxIterations || params.SaltLen > MaxHashBytes || params.DigestLen > MaxHashBytes {
		return "", fmt.Errorf("vault: invalid kdf params %+v", params)
	}
	salt, err := randBytes(params.SaltLen)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	digest := deriveDigest(plain, salt, params.Iterations, params.DigestLen)
	defer zero(digest)

	enc := base64.StdEncoding
	return strings.Join([]string{
		enc.EncodeToString([]byte(strconv.Itoa(params.Iterations))),
		enc.EncodeToString(salt),
		enc.EncodeToString(digest),
	}, Delimiter), nil
}

// Validate reports whether plain matches hash. The iteration count and salt
// are taken from hash, never from the current defaults, so lines written
// with older parameters keep validating.
func Validate(plain []byte, hash string) (bool, error) {
	if plain == nil {
		return false, ErrNullInput
	}
	parsed, err := parseHash(hash)
	if err != nil {
		return false, err
	}
	test := deriveDigest(plain, parsed.salt, parsed.iterations, len(parsed.digest))
	defer zero(test)
	return check(parsed.digest, test), nil
}

type parsedHash struct {
	iterations int
	salt       []byte
	digest     []byte
}

func parseHash(hash string) (parsedHash, error) {
	var p parsedHash
	parts := strings.Split(hash, Delimiter)
	if len(parts) != hashFields {
		return p, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedHash, hashFields, len(parts))
	}
	enc := base64.StdEncoding
	rawIter, err := enc.DecodeString(parts[0])
	if err != nil {
		return p, fmt.Errorf("%w: iteration field: %v", ErrMalformedHash, err)
	}
	p.iterations, err = strconv.Atoi(string(rawIter))
	if err != nil || p.iterations < 1 || p.iterations > MaxIterations {
		return p, fmt.Errorf("%w: iteration count %q", ErrMalformedHash, rawIter)
	}
	if p.salt, err = enc.DecodeString(parts[1]); err != nil {
		return p, fmt.Errorf("%w: salt field: %v", ErrMalformedHash, err)
	}
	if p.digest, err = enc.DecodeString(parts[2]); err != nil {
		return p, fmt.Errorf("%w: digest field: %v", ErrMalformedHash, err)
	}
	if len(p.salt) == 0 || len(p.digest) == 0 {
		return p, fmt.Errorf("%w: empty salt or digest", ErrMalformedHash)
	}
	if len(p.salt) > MaxHashBytes || len(p.digest) > MaxHashBytes {
		return p, fmt.Errorf("%w: salt or digest longer than %d bytes", ErrMalformedHash, MaxHashBytes)
	}
	return p, nil
}

// HMAC-SHA1 matches the PRF of the vault files this format came from.
func deriveDigest(plain, salt []byte, iterations, size int) []byte {
	return pbkdf2.Key(plain, salt, iterations, size, sha1.New)
}

// check compares a and b over the full length of both without branching on
// content. Lengths that differ always fail.
func check(a, b []byte) bool {
	diff := uint32(len(a)) ^ uint32(len(b))
	for i := 0; i < len(a) && i < len(b); i++ {
		diff |= uint32(a[i] ^ b[i])
	}
	return diff == 0
}
