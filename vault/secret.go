package vault

import "github.com/awnumar/memguard"

// Secret holds one piece of sensitive text sealed in an encrypted memguard
// enclave. A Secret is never modified after construction; changing a value
// means building a new Secret.
type Secret struct {
	enclave *memguard.Enclave // nil for the empty string
}

// NewSecret seals text.
func NewSecret(text string) *Secret {
	// The conversion copies text, and NewEnclave wipes the copy.
	return sealSecret([]byte(text))
}

// SecretFromBytes seals b and wipes it.
func SecretFromBytes(b []byte) (*Secret, error) {
	if b == nil {
		return nil, ErrNullInput
	}
	return sealSecret(b), nil
}

func sealSecret(b []byte) *Secret {
	if len(b) == 0 {
		return &Secret{}
	}
	return &Secret{enclave: memguard.NewEnclave(b)}
}

// Reveal returns a fresh plain-text copy of s.
func (s *Secret) Reveal() (string, error) {
	b, err := s.RevealBytes()
	if err != nil {
		return "", err
	}
	defer zero(b)
	return string(b), nil
}

// RevealBytes returns a fresh copy of s which the caller should wipe.
func (s *Secret) RevealBytes() ([]byte, error) {
	if s == nil {
		return nil, ErrNullInput
	}
	if s.enclave == nil {
		return []byte{}, nil
	}
	buf, err := s.enclave.Open()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()
	out := make([]byte, buf.Size())
	copy(out, buf.Bytes())
	return out, nil
}

// mustReveal is for accessors on values this package sealed itself.
func (s *Secret) mustReveal() string {
	text, err := s.Reveal()
	if err != nil {
		memguard.SafePanic(err)
	}
	return text
}

func revealAll(secrets []*Secret) []string {
	out := make([]string, len(secrets))
	for i, s := range secrets {
		out[i] = s.mustReveal()
	}
	return out
}

func sealAll(texts []string) []*Secret {
	out := make([]*Secret, len(texts))
	for i, t := range texts {
		out[i] = NewSecret(t)
	}
	return out
}
