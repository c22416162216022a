package stealth

import (
	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// The transcript absorbs protocol values in a fixed order; the order is
// part of the protocol contract and changing it breaks verification of
// previously generated proofs.

func NewTransferTranscript() *merlin.Transcript {
	return merlin.NewTranscript(TRANSFER_TRANSCRIPT_TAG)
}

func EqualityProofDomainSep(t *merlin.Transcript) {
	appendBytes([]byte("dom-sep"), []byte(EQUALITY_PROOF_TRANSCRIPT_TAG), t)
}

func appendBytes(field, data []byte, t *merlin.Transcript) {
	t.AppendMessage(field, data)
}

func AppendPoint(label string, p *ristretto.Point, t *merlin.Transcript) {
	appendBytes([]byte(label), p.Bytes(), t)
}

func AppendScalar(label string, s *ristretto.Scalar, t *merlin.Transcript) {
	appendBytes([]byte(label), s.Bytes(), t)
}

func ChallengeScalar(label string, t *merlin.Transcript) *ristretto.Scalar {
	data := t.ExtractBytes([]byte(label), 64)
	var dataBytes [64]byte
	copy(dataBytes[:], data)

	var s ristretto.Scalar
	return s.SetReduced(&dataBytes)
}
