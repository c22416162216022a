package stealth

import "errors"

var (
	// ErrMalformedProof: submitted bytes do not parse into a valid
	// equality proof.
	ErrMalformedProof = errors.New("malformed equality proof")

	// ErrNonCanonicalScalar: a derived statement scalar does not
	// canonicalise into the scalar field. The whole proof is rejected.
	ErrNonCanonicalScalar = errors.New("scalar canonicalization failure")

	// ErrBufferMismatch: a crank referenced a different instruction or
	// input buffer than the compute buffer was created with.
	ErrBufferMismatch = errors.New("buffer mismatch")

	// ErrStepCountMismatch: the crank plan does not partition the DSL's
	// declared operation count.
	ErrStepCountMismatch = errors.New("step count mismatch")

	// ErrUnauthorized: mutating access by a non-owner.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotReady: finalize attempted before the compute buffer cursor
	// reached the total step count.
	ErrNotReady = errors.New("verification not complete")

	// ErrOverflow: checked arithmetic failure.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrComputeBudgetExceeded: a batch's operations cost more than the
	// budget it requested.
	ErrComputeBudgetExceeded = errors.New("compute budget exceeded")

	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountInUse      = errors.New("account already in use")
	ErrInvalidBufferKind = errors.New("invalid buffer kind tag")
	ErrInvalidState      = errors.New("invalid transfer buffer state")
	ErrProofFailed       = errors.New("equality proof verification failed")
)
