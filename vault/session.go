package vault

import "fmt"

// LineReader supplies the decoded lines of a persisted store. Line 0 is the
// main key hash.
type LineReader interface {
	ReadLines() ([]string, error)
}

// Lines adapts lines that were already read.
type Lines []string

func (l Lines) ReadLines() ([]string, error) { return l, nil }

// Session pairs the key the user typed with the stored main key hash. It is
// immutable once built.
type Session struct {
	candidateKey  *Secret
	storedKeyHash *Secret
}

// NewSession loads line 0 of src as the stored hash. candidate is wiped on
// every return path.
func NewSession(src LineReader, candidate []byte) (*Session, error) {
	if candidate == nil {
		return nil, ErrNullInput
	}
	defer zero(candidate)
	if src == nil {
		return nil, ErrNullInput
	}
	lines, err := src.ReadLines()
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: store has no key line", ErrMalformedHash)
	}
	if _, err := parseHash(lines[0]); err != nil {
		return nil, err
	}
	key, err := SecretFromBytes(candidate)
	if err != nil {
		return nil, err
	}
	return &Session{candidateKey: key, storedKeyHash: NewSecret(lines[0])}, nil
}

// IsValid reports whether the candidate key matches the stored hash.
func (s *Session) IsValid() bool {
	if s == nil || s.candidateKey == nil || s.storedKeyHash == nil {
		return false
	}
	key, err := s.candidateKey.RevealBytes()
	if err != nil {
		return false
	}
	defer zero(key)
	hash, err := s.storedKeyHash.Reveal()
	if err != nil {
		return false
	}
	ok, err := Validate(key, hash)
	return err == nil && ok
}

func (s *Session) storedHash() (string, error) {
	return s.storedKeyHash.Reveal()
}
