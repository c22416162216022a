package stealth

import (
	"bytes"
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"
)

func TestTranscriptChallengeIsDeterministic(t *testing.T) {
	assert := assert.New(t)

	srcKeypair := NewElGamalKeypair()
	dstKeypair := NewElGamalKeypair()

	var opening ristretto.Scalar
	opening.Rand()
	srcCt := ElGamalEncrypt(srcKeypair.Public, 42, &opening)
	dstCt := ElGamalEncrypt(dstKeypair.Public, 42, &opening)
	keys := TransferPubkeys{
		SrcPubkey: srcKeypair.PubkeyPod(),
		DstPubkey: dstKeypair.PubkeyPod(),
	}

	t1 := NewTransferTranscript()
	BuildTransferTranscript(srcCt, dstCt, keys, t1)
	c1 := ChallengeScalar("c", t1)

	t2 := NewTransferTranscript()
	BuildTransferTranscript(srcCt, dstCt, keys, t2)
	c2 := ChallengeScalar("c", t2)

	assert.Equal(c1.Bytes(), c2.Bytes())
}

func TestTranscriptOrderIsPartOfTheContract(t *testing.T) {
	assert := assert.New(t)

	srcKeypair := NewElGamalKeypair()
	dstKeypair := NewElGamalKeypair()

	var opening ristretto.Scalar
	opening.Rand()
	srcCt := ElGamalEncrypt(srcKeypair.Public, 7, &opening)
	dstCt := ElGamalEncrypt(dstKeypair.Public, 7, &opening)
	keys := TransferPubkeys{
		SrcPubkey: srcKeypair.PubkeyPod(),
		DstPubkey: dstKeypair.PubkeyPod(),
	}

	t1 := NewTransferTranscript()
	BuildTransferTranscript(srcCt, dstCt, keys, t1)
	c1 := ChallengeScalar("c", t1)

	// swapped ciphertext order must derive a different challenge
	t2 := NewTransferTranscript()
	BuildTransferTranscript(dstCt, srcCt, keys, t2)
	c2 := ChallengeScalar("c", t2)

	assert.NotEqual(c1.Bytes(), c2.Bytes())

	// absorbing the proof commitments moves the challenge too
	t3 := NewTransferTranscript()
	BuildTransferTranscript(srcCt, dstCt, keys, t3)
	EqualityProofDomainSep(t3)
	c3 := ChallengeScalar("c", t3)
	assert.NotEqual(c1.Bytes(), c3.Bytes())
}

func TestChallengeScalarIsCanonical(t *testing.T) {
	assert := assert.New(t)

	tt := NewTransferTranscript()
	c := ChallengeScalar("c", tt)

	var buf [32]byte
	copy(buf[:], c.Bytes())
	s, err := scalarFromCanonicalBytes(buf)
	assert.NoError(err)
	assert.True(bytes.Equal(s.Bytes(), c.Bytes()))
}
