package stealth

import (
	"bytes"
	"fmt"
)

// OversightMethod controls how the asset is held while its metadata is
// encrypted.
type OversightMethod byte

const (
	OversightNone OversightMethod = iota
	OversightFreeze
	OversightRoyalties
)

func (m OversightMethod) valid() bool {
	return m <= OversightRoyalties
}

// URI of the encrypted asset, zero padded.
type URI [URI_LEN]byte

func NewURI(s string) (URI, error) {
	var uri URI
	if len(s) > URI_LEN {
		return uri, fmt.Errorf("uri length %d exceeds %d", len(s), URI_LEN)
	}
	copy(uri[:], s)
	return uri, nil
}

func (u URI) String() string {
	return string(bytes.TrimRight(u[:], "\x00"))
}

// StealthAccount is the protected metadata of one asset.
type StealthAccount struct {
	Mint               Pubkey
	Wallet             Pubkey
	ElgamalPk          ElGamalPubkey
	EncryptedCipherKey ElGamalCiphertext
	Uri                URI
	Method             OversightMethod
}

const STEALTH_ACCOUNT_LEN = 1 + 32 + 32 + 32 + 64 + URI_LEN + 1

func (a *StealthAccount) ToBytes() []byte {
	buf := make([]byte, STEALTH_ACCOUNT_LEN)
	buf[0] = StealthAccountV1
	copy(buf[1:33], a.Mint[:])
	copy(buf[33:65], a.Wallet[:])
	copy(buf[65:97], a.ElgamalPk[:])
	copy(buf[97:161], a.EncryptedCipherKey[:])
	copy(buf[161:161+URI_LEN], a.Uri[:])
	buf[161+URI_LEN] = byte(a.Method)
	return buf
}

func StealthAccountFromBytes(data []byte) (*StealthAccount, error) {
	if len(data) != STEALTH_ACCOUNT_LEN || data[0] != StealthAccountV1 {
		return nil, fmt.Errorf("stealth account: %w", ErrInvalidBufferKind)
	}
	a := &StealthAccount{}
	copy(a.Mint[:], data[1:33])
	copy(a.Wallet[:], data[33:65])
	copy(a.ElgamalPk[:], data[65:97])
	copy(a.EncryptedCipherKey[:], data[97:161])
	copy(a.Uri[:], data[161:161+URI_LEN])
	a.Method = OversightMethod(data[161+URI_LEN])
	if !a.Method.valid() {
		return nil, fmt.Errorf("oversight method %d: %w", a.Method, ErrInvalidBufferKind)
	}
	return a, nil
}

// ElgamalPubkeyBuffer is a published ElGamal pubkey for a wallet and
// mint, looked up by transfer initiators.
type ElgamalPubkeyBuffer struct {
	Wallet    Pubkey
	Mint      Pubkey
	ElgamalPk ElGamalPubkey
}

const ELGAMAL_PUBKEY_BUFFER_LEN = 1 + 32 + 32 + 32

func (b *ElgamalPubkeyBuffer) ToBytes() []byte {
	buf := make([]byte, ELGAMAL_PUBKEY_BUFFER_LEN)
	buf[0] = ElgamalPubkeyBufferV1
	copy(buf[1:33], b.Wallet[:])
	copy(buf[33:65], b.Mint[:])
	copy(buf[65:97], b.ElgamalPk[:])
	return buf
}

func ElgamalPubkeyBufferFromBytes(data []byte) (*ElgamalPubkeyBuffer, error) {
	if len(data) != ELGAMAL_PUBKEY_BUFFER_LEN || data[0] != ElgamalPubkeyBufferV1 {
		return nil, fmt.Errorf("elgamal pubkey buffer: %w", ErrInvalidBufferKind)
	}
	b := &ElgamalPubkeyBuffer{}
	copy(b.Wallet[:], data[1:33])
	copy(b.Mint[:], data[33:65])
	copy(b.ElgamalPk[:], data[65:97])
	return b, nil
}

// TransferState is the protocol state of a pending ownership transfer.
type TransferState byte

const (
	StateUninitialized TransferState = iota
	StateAwaitingVerification
	StateVerified
	StateFinalized
	StateAbandoned
)

func (s TransferState) terminal() bool {
	return s == StateFinalized || s == StateAbandoned
}

func (s TransferState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateAwaitingVerification:
		return "AwaitingVerification"
	case StateVerified:
		return "Verified"
	case StateFinalized:
		return "Finalized"
	case StateAbandoned:
		return "Abandoned"
	}
	return fmt.Sprintf("TransferState(%d)", byte(s))
}

// CipherKeyTransferBuffer holds one pending transfer: the staged
// re-encrypted key chunk and the protocol state gating the swap.
type CipherKeyTransferBuffer struct {
	State            TransferState
	Authority        Pubkey
	Mint             Pubkey
	Recipient        Pubkey
	RecipientElgamal ElGamalPubkey
	StagedCipherKey  ElGamalCiphertext
}

const TRANSFER_BUFFER_LEN = 1 + 1 + 32 + 32 + 32 + 32 + 64

func (b *CipherKeyTransferBuffer) ToBytes() []byte {
	buf := make([]byte, TRANSFER_BUFFER_LEN)
	buf[0] = TransferBufferV1
	buf[1] = byte(b.State)
	copy(buf[2:34], b.Authority[:])
	copy(buf[34:66], b.Mint[:])
	copy(buf[66:98], b.Recipient[:])
	copy(buf[98:130], b.RecipientElgamal[:])
	copy(buf[130:194], b.StagedCipherKey[:])
	return buf
}

func TransferBufferFromBytes(data []byte) (*CipherKeyTransferBuffer, error) {
	if len(data) != TRANSFER_BUFFER_LEN || data[0] != TransferBufferV1 {
		return nil, fmt.Errorf("transfer buffer: %w", ErrInvalidBufferKind)
	}
	b := &CipherKeyTransferBuffer{}
	b.State = TransferState(data[1])
	if b.State > StateAbandoned {
		return nil, fmt.Errorf("transfer state %d: %w", data[1], ErrInvalidState)
	}
	copy(b.Authority[:], data[2:34])
	copy(b.Mint[:], data[34:66])
	copy(b.Recipient[:], data[66:98])
	copy(b.RecipientElgamal[:], data[98:130])
	copy(b.StagedCipherKey[:], data[130:194])
	return b, nil
}
