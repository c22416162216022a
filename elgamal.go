package stealth

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/bwesterb/go-ristretto"
	"golang.org/x/crypto/sha3"
)

// ElGamalPubkey is the compressed public key P = s^-1 * H.
type ElGamalPubkey [32]byte

// ElGamalCiphertext is a twisted ElGamal ciphertext: the Pedersen
// commitment C = x*G + r*H followed by the decrypt handle D = r*P.
type ElGamalCiphertext [64]byte

func (ct ElGamalCiphertext) Commitment() [32]byte {
	var c [32]byte
	copy(c[:], ct[:32])
	return c
}

func (ct ElGamalCiphertext) Handle() [32]byte {
	var d [32]byte
	copy(d[:], ct[32:])
	return d
}

// genH is the alternate generator: a 512-bit SHA3 of the compressed
// basepoint mapped to the group, matching the Pedersen blinding base.
var genH = alternateGenerator()

func alternateGenerator() *ristretto.Point {
	var base ristretto.Point
	base.SetBase()

	h := sha3.New512()
	h.Write(base.Bytes())
	return pointFromUniformBytes(h.Sum(nil))
}

func pointFromUniformBytes(key []byte) *ristretto.Point {
	var r1Bytes, r2Bytes [32]byte
	copy(r1Bytes[:], key[:32])
	copy(r2Bytes[:], key[32:])
	var r, r1, r2 ristretto.Point
	return r.Add(r1.SetElligator(&r1Bytes), r2.SetElligator(&r2Bytes))
}

type ElGamalKeypair struct {
	Secret *ristretto.Scalar
	Public *ristretto.Point
}

func NewElGamalKeypair() *ElGamalKeypair {
	var s ristretto.Scalar
	return ElGamalKeypairFromSecret(s.Rand())
}

func ElGamalKeypairFromSecret(s *ristretto.Scalar) *ElGamalKeypair {
	var inv ristretto.Scalar
	inv.Inverse(s)
	var p ristretto.Point
	p.ScalarMult(genH, &inv)

	var zero, secret ristretto.Scalar
	zero.SetZero()
	secret.Add(s, &zero)
	return &ElGamalKeypair{Secret: &secret, Public: &p}
}

func (kp *ElGamalKeypair) PubkeyPod() ElGamalPubkey {
	var pod ElGamalPubkey
	copy(pod[:], kp.Public.Bytes())
	return pod
}

// Encrypt produces (C, D) for a cipher-key chunk under the given pubkey
// with explicit randomness r.
func ElGamalEncrypt(public *ristretto.Point, value uint64, r *ristretto.Scalar) ElGamalCiphertext {
	var xG, rH, c, d ristretto.Point
	xG.ScalarMultBase(uint64ToScalar(value))
	rH.ScalarMult(genH, r)
	c.Add(&xG, &rH)
	d.ScalarMult(public, r)

	var ct ElGamalCiphertext
	copy(ct[:32], c.Bytes())
	copy(ct[32:], d.Bytes())
	return ct
}

// Decrypt recovers the chunk by a bounded search over x*G, so the chunk
// must stay small (the cipher key is split into <32-bit chunks for this
// reason).
func (kp *ElGamalKeypair) Decrypt(ct ElGamalCiphertext, max uint64) (uint64, error) {
	commitment := ct.Commitment()
	handle := ct.Handle()
	var c, d ristretto.Point
	if !c.SetBytes(&commitment) || !d.SetBytes(&handle) {
		return 0, fmt.Errorf("decrypt: %w", ErrMalformedProof)
	}

	var sD, target ristretto.Point
	sD.ScalarMult(&d, kp.Secret)
	target.Sub(&c, &sD)
	targetBytes := target.Bytes()

	var acc, base ristretto.Point
	acc.SetZero()
	base.SetBase()
	for x := uint64(0); x <= max; x++ {
		if bytes.Compare(acc.Bytes(), targetBytes) == 0 {
			return x, nil
		}
		acc.Add(&acc, &base)
	}
	return 0, fmt.Errorf("cipher key chunk not in [0, %d]", max)
}

func uint64ToScalar(i uint64) *ristretto.Scalar {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:], i)
	var s ristretto.Scalar
	return s.SetBytes(&buf)
}

// scalarFromCanonicalBytes rejects any encoding that is not the reduced
// form of a scalar.
func scalarFromCanonicalBytes(buf [32]byte) (*ristretto.Scalar, error) {
	var s ristretto.Scalar
	s.SetBytes(&buf)
	if bytes.Compare(s.Bytes(), buf[:]) != 0 {
		return nil, ErrNonCanonicalScalar
	}
	return &s, nil
}

func pointFromBytes(buf [32]byte) (*ristretto.Point, error) {
	var p ristretto.Point
	if !p.SetBytes(&buf) {
		return nil, fmt.Errorf("invalid point encoding: %w", ErrMalformedProof)
	}
	return &p, nil
}

func negScalar(a *ristretto.Scalar) *ristretto.Scalar {
	var zero, r ristretto.Scalar
	zero.SetZero()
	return r.Sub(&zero, a)
}

func negPoint(p *ristretto.Point) *ristretto.Point {
	var zero, r ristretto.Point
	zero.SetZero()
	return r.Sub(&zero, p)
}
