package stealth

import (
	"bytes"
	"fmt"

	"github.com/bwesterb/go-ristretto"
	"github.com/gtank/merlin"
)

// TransferPubkeys carries the two ElGamal pubkeys of a transfer.
type TransferPubkeys struct {
	SrcPubkey ElGamalPubkey
	DstPubkey ElGamalPubkey
}

type TransferProof struct {
	EqualityProof EqualityProofBytes
}

// TransferData is a submitted proof plus masking factors for one transfer.
// Created by the initiator off the hot path and consumed once.
type TransferData struct {
	SrcCipherKeyChunkCt ElGamalCiphertext
	DstCipherKeyChunkCt ElGamalCiphertext
	TransferPublicKeys  TransferPubkeys
	Proof               TransferProof
}

// BuildTransferTranscript absorbs the statement values in protocol order:
// source ciphertext, destination ciphertext, then the two pubkeys.
func BuildTransferTranscript(src, dst ElGamalCiphertext, keys TransferPubkeys, t *merlin.Transcript) {
	appendBytes([]byte("src-cipher-key-chunk-ct"), src[:], t)
	appendBytes([]byte("dst-cipher-key-chunk-ct"), dst[:], t)
	appendBytes([]byte("src-pubkey"), keys.SrcPubkey[:], t)
	appendBytes([]byte("dst-pubkey"), keys.DstPubkey[:], t)
}

// CreateTransferData re-encrypts one cipher-key chunk to the recipient and
// proves the two ciphertexts equal.
func CreateTransferData(srcKeypair *ElGamalKeypair, dstPubkey ElGamalPubkey, chunk uint64, srcCt ElGamalCiphertext) (*TransferData, error) {
	if chunk > MAX_CHUNK_VALUE {
		return nil, fmt.Errorf("cipher key chunk %d: %w", chunk, ErrOverflow)
	}
	dstPublic, err := pointFromBytes([32]byte(dstPubkey))
	if err != nil {
		return nil, fmt.Errorf("recipient pubkey: %w", err)
	}

	var opening ristretto.Scalar
	opening.Rand()
	dstCt := ElGamalEncrypt(dstPublic, chunk, &opening)

	keys := TransferPubkeys{
		SrcPubkey: srcKeypair.PubkeyPod(),
		DstPubkey: dstPubkey,
	}

	t := NewTransferTranscript()
	BuildTransferTranscript(srcCt, dstCt, keys, t)
	proof, err := CreateEqualityProof(t, srcKeypair, srcCt, dstPublic, &opening)
	if err != nil {
		return nil, err
	}

	return &TransferData{
		SrcCipherKeyChunkCt: srcCt,
		DstCipherKeyChunkCt: dstCt,
		TransferPublicKeys:  keys,
		Proof:               TransferProof{EqualityProof: proof.ToBytes()},
	}, nil
}

// Statement is the ordered point/scalar list of the equality relation,
// consumed as sum(scalar_i * point_i) == identity per proof group.
type Statement struct {
	Points  [STATEMENT_POINTS][32]byte
	Scalars [STATEMENT_SCALARS][32]byte
}

// BuildStatement maps the submitted proof and the two ciphertext chunks
// into the three sub-statements: two pubkey-correctness checks and one
// ciphertext-equality check.
func (transfer *TransferData) BuildStatement() (*Statement, error) {
	proof, err := EqualityProofFromBytes(transfer.Proof.EqualityProof)
	if err != nil {
		return nil, err
	}

	compressedH := genH.Bytes()

	statement := &Statement{}
	points := [][]byte{
		transfer.TransferPublicKeys.SrcPubkey[:],
		compressedH,
		proof.Y0[:],

		transfer.TransferPublicKeys.DstPubkey[:],
		transfer.DstCipherKeyChunkCt[32:],
		proof.Y1[:],

		transfer.DstCipherKeyChunkCt[:32],
		transfer.SrcCipherKeyChunkCt[:32],
		transfer.SrcCipherKeyChunkCt[32:],
		compressedH,
		proof.Y2[:],
	}
	for i := range points {
		copy(statement.Points[i][:], points[i])
	}

	t := NewTransferTranscript()
	BuildTransferTranscript(transfer.SrcCipherKeyChunkCt, transfer.DstCipherKeyChunkCt, transfer.TransferPublicKeys, t)
	proof.BuildTranscript(t)
	c := ChallengeScalar("c", t)

	var one ristretto.Scalar
	one.SetOne()
	negC := negScalar(c)
	negOne := negScalar(&one)

	scalars := []*ristretto.Scalar{
		proof.SH1,
		negC,
		negOne,

		proof.RH2,
		negC,
		negOne,

		c,
		negC,
		proof.SH1,
		negScalar(proof.RH2),
		negOne,
	}
	for i, s := range scalars {
		var buf [32]byte
		copy(buf[:], s.Bytes())
		if _, err := scalarFromCanonicalBytes(buf); err != nil {
			return nil, err
		}
		copy(statement.Scalars[i][:], buf[:])
	}
	return statement, nil
}

// Verify is the fast path: the full multi-scalar check in one call.
func (transfer *TransferData) Verify() error {
	statement, err := transfer.BuildStatement()
	if err != nil {
		return err
	}
	return statement.Verify()
}

func (statement *Statement) Verify() error {
	var identity ristretto.Point
	identity.SetZero()
	identityBytes := identity.Bytes()

	for group := 0; group < STATEMENT_GROUPS; group++ {
		lo, hi := statementGroupOffsets[group], statementGroupOffsets[group+1]

		points := make([]*ristretto.Point, 0, hi-lo)
		scalars := make([]*ristretto.Scalar, 0, hi-lo)
		for i := lo; i < hi; i++ {
			p, err := pointFromBytes(statement.Points[i])
			if err != nil {
				return err
			}
			s, err := scalarFromCanonicalBytes(statement.Scalars[i])
			if err != nil {
				return err
			}
			points = append(points, p)
			scalars = append(scalars, s)
		}

		if bytes.Compare(multiscalarMul(scalars, points).Bytes(), identityBytes) != 0 {
			return fmt.Errorf("proof group %d: %w", group, ErrProofFailed)
		}
	}
	return nil
}

func multiscalarMul(scalars []*ristretto.Scalar, points []*ristretto.Point) *ristretto.Point {
	var p ristretto.Point
	p.SetZero()
	for i := range scalars {
		var t ristretto.Point
		t.ScalarMult(points[i], scalars[i])
		p.Add(&p, &t)
	}
	return &p
}
