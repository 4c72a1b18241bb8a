package vault

import "errors"

const (
	SaltLen       = 64
	DigestLen     = 256
	Iterations    = 2000
	MinIterations = 1000
	MaxIterations = 10_000_000
	MaxHashBytes  = 1024
	Delimiter     = ";"
	FileMode      = 0600
)

var (
	ErrNullInput        = errors.New("vault: required input is nil")
	ErrMalformedHash    = errors.New("vault: integrity check failed: malformed key hash")
	ErrStoreNotFound    = errors.New("vault: store not found")
	ErrStoreExists      = errors.New("vault: store already exists")
	ErrCorrupt          = errors.New("vault: corrupt record")
	ErrAuthFailed       = errors.New("vault: authentication failed")
	ErrRecordNotIndexed = errors.New("vault: record is not in the index")
	ErrNoSyncer         = errors.New("vault: no syncer configured")
	ErrNotFound         = errors.New("vault: record not found")
)

// Result is the outcome of a gated mutation.
type Result int

const (
	Success Result = iota
	KeyMismatch
	Collision
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case KeyMismatch:
		return "main key mismatch"
	case Collision:
		return "title and username already exist"
	default:
		return "unknown"
	}
}

// Authorizer answers whether the caller currently holds the main key.
// *Session is the only production implementation.
type Authorizer interface {
	IsValid() bool
}

type KDFParams struct {
	Iterations int
	SaltLen    int
	DigestLen  int
}

func DefaultKDFParams() KDFParams {
	return KDFParams{Iterations: Iterations, SaltLen: SaltLen, DigestLen: DigestLen}
}
