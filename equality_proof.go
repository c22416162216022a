package stealth

import (
	"fmt"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// EqualityProof shows that the source and destination ciphertexts encrypt
// the same cipher-key chunk under their respective pubkeys: three
// commitment points and two response scalars.
type EqualityProof struct {
	Y0 [32]byte
	Y1 [32]byte
	Y2 [32]byte

	SH1 *ristretto.Scalar
	RH2 *ristretto.Scalar
}

const EQUALITY_PROOF_LEN = 5 * 32

type EqualityProofBytes [EQUALITY_PROOF_LEN]byte

func EqualityProofFromBytes(buf EqualityProofBytes) (*EqualityProof, error) {
	proof := &EqualityProof{}
	copy(proof.Y0[:], buf[:32])
	copy(proof.Y1[:], buf[32:64])
	copy(proof.Y2[:], buf[64:96])

	var sh1, rh2 [32]byte
	copy(sh1[:], buf[96:128])
	copy(rh2[:], buf[128:160])

	var err error
	if proof.SH1, err = scalarFromCanonicalBytes(sh1); err != nil {
		return nil, fmt.Errorf("equality proof sh_1: %w", err)
	}
	if proof.RH2, err = scalarFromCanonicalBytes(rh2); err != nil {
		return nil, fmt.Errorf("equality proof rh_2: %w", err)
	}
	return proof, nil
}

func (proof *EqualityProof) ToBytes() EqualityProofBytes {
	var buf EqualityProofBytes
	copy(buf[:32], proof.Y0[:])
	copy(buf[32:64], proof.Y1[:])
	copy(buf[64:96], proof.Y2[:])
	copy(buf[96:128], proof.SH1.Bytes())
	copy(buf[128:160], proof.RH2.Bytes())
	return buf
}

// BuildTranscript absorbs the proof commitments. Must run after the
// statement values have been absorbed.
func (proof *EqualityProof) BuildTranscript(t *merlin.Transcript) {
	EqualityProofDomainSep(t)
	appendBytes([]byte("Y_0"), proof.Y0[:], t)
	appendBytes([]byte("Y_1"), proof.Y1[:], t)
	appendBytes([]byte("Y_2"), proof.Y2[:], t)
}

// CreateEqualityProof runs the prover. The caller has already absorbed
// the statement into the transcript; srcKeypair owns the source
// ciphertext, dstPublic/dstOpening are the destination pubkey and the
// encryption randomness of the destination ciphertext.
func CreateEqualityProof(t *merlin.Transcript, srcKeypair *ElGamalKeypair, srcCt ElGamalCiphertext, dstPublic *ristretto.Point, dstOpening *ristretto.Scalar) (*EqualityProof, error) {
	handle := srcCt.Handle()
	d1, err := pointFromBytes(handle)
	if err != nil {
		return nil, err
	}

	var ys, yr ristretto.Scalar
	ys.Rand()
	yr.Rand()

	var y0, y1, y2, ysD1, yrH ristretto.Point
	y0.ScalarMult(srcKeypair.Public, &ys)
	y1.ScalarMult(dstPublic, &yr)
	ysD1.ScalarMult(d1, &ys)
	yrH.ScalarMult(genH, &yr)
	y2.Sub(&ysD1, &yrH)

	proof := &EqualityProof{}
	copy(proof.Y0[:], y0.Bytes())
	copy(proof.Y1[:], y1.Bytes())
	copy(proof.Y2[:], y2.Bytes())

	proof.BuildTranscript(t)
	c := ChallengeScalar("c", t)

	var sh1, rh2, cs, cr ristretto.Scalar
	sh1.Add(cs.Mul(c, srcKeypair.Secret), &ys)
	rh2.Add(cr.Mul(c, dstOpening), &yr)
	proof.SH1 = &sh1
	proof.RH2 = &rh2
	return proof, nil
}
