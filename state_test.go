package stealth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStealthAccountRoundtrip(t *testing.T) {
	assert := assert.New(t)

	uri, err := NewURI("https://example.com/asset.bin")
	assert.NoError(err)
	record := &StealthAccount{
		Mint:   DeriveAddress([]byte("mint")),
		Wallet: DeriveAddress([]byte("wallet")),
		Uri:    uri,
		Method: OversightRoyalties,
	}
	copy(record.ElgamalPk[:], DeriveAddress([]byte("pk")).Bytes())

	buf := record.ToBytes()
	assert.Len(buf, STEALTH_ACCOUNT_LEN)
	parsed, err := StealthAccountFromBytes(buf)
	assert.NoError(err)
	assert.Equal(record, parsed)
	assert.Equal("https://example.com/asset.bin", parsed.Uri.String())

	// wrong kind tag is rejected
	buf[0] = TransferBufferV1
	_, err = StealthAccountFromBytes(buf)
	assert.ErrorIs(err, ErrInvalidBufferKind)
}

func TestTransferBufferRejectsBadState(t *testing.T) {
	assert := assert.New(t)

	buffer := &CipherKeyTransferBuffer{
		State:     StateAwaitingVerification,
		Authority: DeriveAddress([]byte("authority")),
		Mint:      DeriveAddress([]byte("mint")),
		Recipient: DeriveAddress([]byte("recipient")),
	}
	buf := buffer.ToBytes()
	parsed, err := TransferBufferFromBytes(buf)
	assert.NoError(err)
	assert.Equal(buffer, parsed)

	buf[1] = 200
	_, err = TransferBufferFromBytes(buf)
	assert.ErrorIs(err, ErrInvalidState)
}

func TestURILengthIsBounded(t *testing.T) {
	assert := assert.New(t)

	long := make([]byte, URI_LEN+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err := NewURI(string(long))
	assert.Error(err)

	uri, err := NewURI(string(long[:URI_LEN]))
	assert.NoError(err)
	assert.Len(uri.String(), URI_LEN)
}

func TestTransferStateTransitionsLabels(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("AwaitingVerification", StateAwaitingVerification.String())
	assert.Equal("Verified", StateVerified.String())
	assert.True(StateFinalized.terminal())
	assert.True(StateAbandoned.terminal())
	assert.False(StateVerified.terminal())
}
