package stealth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/btcsuite/btcutil/base58"
	"github.com/dchest/blake2b"
)

// Pubkey identifies a wallet, mint or derived buffer account.
type Pubkey [32]byte

func (p Pubkey) Bytes() []byte {
	buf := make([]byte, 32)
	copy(buf, p[:])
	return buf
}

func (p Pubkey) IsZero() bool {
	var zero Pubkey
	return p == zero
}

func (p Pubkey) String() string {
	sum := make([]byte, 4)
	binary.LittleEndian.PutUint32(sum, crc32.ChecksumIEEE(p[:]))
	return base58.Encode(append(sum, p[:]...))
}

func PubkeyFromString(s string) (Pubkey, error) {
	var p Pubkey
	data := base58.Decode(s)
	if len(data) != 4+32 {
		return p, fmt.Errorf("invalid pubkey %s", s)
	}
	sum := make([]byte, 4)
	binary.LittleEndian.PutUint32(sum, crc32.ChecksumIEEE(data[4:]))
	if bytes.Compare(sum, data[:4]) != 0 {
		return p, fmt.Errorf("invalid pubkey checksum %s", s)
	}
	copy(p[:], data[4:])
	return p, nil
}

// DeriveAddress maps a fixed seed list to a deterministic account address.
func DeriveAddress(seeds ...[]byte) Pubkey {
	hash := blake2b.New256()
	hash.Write([]byte(ADDRESS_DERIVE_DOMAIN_TAG))
	for _, seed := range seeds {
		hash.Write(seed)
	}
	var p Pubkey
	copy(p[:], hash.Sum(nil))
	return p
}

func StealthAddress(mint Pubkey) Pubkey {
	return DeriveAddress([]byte(STEALTH_PREFIX), mint[:])
}

func ElgamalPubkeyAddress(wallet, mint Pubkey) Pubkey {
	return DeriveAddress([]byte(STEALTH_PREFIX), wallet[:], mint[:])
}

func TransferBufferAddress(wallet, mint Pubkey) Pubkey {
	return DeriveAddress([]byte(TRANSFER_PREFIX), wallet[:], mint[:])
}

// Keypair is a schnorrkel wallet key used to authorize commands.
type Keypair struct {
	secret *schnorrkel.SecretKey
	pubkey Pubkey
}

func NewKeypair() (*Keypair, error) {
	msk, err := schnorrkel.GenerateMiniSecretKey()
	if err != nil {
		return nil, err
	}
	kp := &Keypair{secret: msk.ExpandEd25519()}
	enc := msk.Public().Encode()
	copy(kp.pubkey[:], enc[:])
	return kp, nil
}

func (kp *Keypair) Pubkey() Pubkey {
	return kp.pubkey
}

// SignPublish authorizes publication of an ElGamal pubkey for a mint.
func (kp *Keypair) SignPublish(mint Pubkey, elgamalPk ElGamalPubkey) ([64]byte, error) {
	t := schnorrkel.NewSigningContext([]byte(PUBLISH_SIGNING_CONTEXT), publishMessage(mint, elgamalPk))
	sig, err := kp.secret.Sign(t)
	if err != nil {
		return [64]byte{}, err
	}
	return sig.Encode(), nil
}

func publishMessage(mint Pubkey, elgamalPk ElGamalPubkey) []byte {
	return append(mint.Bytes(), elgamalPk[:]...)
}

func verifyPublishSignature(wallet, mint Pubkey, elgamalPk ElGamalPubkey, sig [64]byte) bool {
	t := schnorrkel.NewSigningContext([]byte(PUBLISH_SIGNING_CONTEXT), publishMessage(mint, elgamalPk))
	public := schnorrkel.NewPublicKey([32]byte(wallet))
	signature := schnorrkel.Signature{}
	if err := signature.Decode(sig); err != nil {
		return false
	}
	return public.Verify(&signature, t)
}
