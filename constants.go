package stealth

const (
	STEALTH_PREFIX  = "metadata"
	TRANSFER_PREFIX = "transfer"

	TRANSFER_TRANSCRIPT_TAG       = "transfer-proof"
	EQUALITY_PROOF_TRANSCRIPT_TAG = "equality-proof"
	ADDRESS_DERIVE_DOMAIN_TAG     = "stealth_derived_address"

	// Signing context for published ElGamal pubkeys, verified with
	// schnorrkel against the wallet key.
	PUBLISH_SIGNING_CONTEXT = "stealth elgamal pubkey"

	// URI of the encrypted asset, zero padded.
	URI_LEN = 100

	// One cipher-key chunk is kept below 32 bits so ElGamal decryption
	// stays tractable.
	CIPHER_KEY_CHUNKS = 6
	MAX_CHUNK_VALUE   = 1<<32 - 1
)

// Statement shape: two pubkey-correctness checks (3 points each) and one
// ciphertext-equality check (5 points).
const (
	STATEMENT_POINTS  = 11
	STATEMENT_SCALARS = 11
	STATEMENT_GROUPS  = 3
)

var statementGroupOffsets = [STATEMENT_GROUPS + 1]int{0, 3, 6, 11}
