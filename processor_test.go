package stealth

import (
	"testing"

	"github.com/bwesterb/go-ristretto"
	"github.com/stretchr/testify/assert"
)

type transferFixture struct {
	engine           *Engine
	mint             Pubkey
	owner            *Keypair
	recipient        *Keypair
	ownerElgamal     *ElGamalKeypair
	recipientElgamal *ElGamalKeypair
	chunk            uint64
	cipherKeyCt      ElGamalCiphertext
}

// setupTransfer configures a protected asset for the owner and publishes
// the recipient's ElGamal pubkey, leaving everything ready for
// InitTransfer.
func setupTransfer(t *testing.T) *transferFixture {
	engine := NewEngine()

	owner, err := NewKeypair()
	assert.NoError(t, err)
	recipient, err := NewKeypair()
	assert.NoError(t, err)
	assert.NoError(t, engine.Airdrop(owner.Pubkey(), 10_000_000))
	assert.NoError(t, engine.Airdrop(recipient.Pubkey(), 10_000_000))

	fx := &transferFixture{
		engine:           engine,
		mint:             DeriveAddress([]byte("mint"), []byte(t.Name())),
		owner:            owner,
		recipient:        recipient,
		ownerElgamal:     NewElGamalKeypair(),
		recipientElgamal: NewElGamalKeypair(),
		chunk:            613,
	}

	var opening ristretto.Scalar
	opening.Rand()
	fx.cipherKeyCt = ElGamalEncrypt(fx.ownerElgamal.Public, fx.chunk, &opening)

	uri, err := NewURI("ipfs://QmStealthAsset")
	assert.NoError(t, err)
	assert.NoError(t, engine.ConfigureMetadata(owner.Pubkey(), fx.mint, ConfigureMetadataData{
		ElgamalPk:          fx.ownerElgamal.PubkeyPod(),
		EncryptedCipherKey: fx.cipherKeyCt,
		Uri:                uri,
		Method:             OversightFreeze,
	}))

	sig, err := recipient.SignPublish(fx.mint, fx.recipientElgamal.PubkeyPod())
	assert.NoError(t, err)
	assert.NoError(t, engine.PublishElgamalPubkey(recipient.Pubkey(), fx.mint, fx.recipientElgamal.PubkeyPod(), sig))

	return fx
}

func (fx *transferFixture) transferData(t *testing.T) *TransferData {
	transfer, err := CreateTransferData(fx.ownerElgamal, fx.recipientElgamal.PubkeyPod(), fx.chunk, fx.cipherKeyCt)
	assert.NoError(t, err)
	return transfer
}

func (fx *transferFixture) bufferKey() Pubkey {
	return TransferBufferAddress(fx.recipient.Pubkey(), fx.mint)
}

func TestTransferLifecycleFastPath(t *testing.T) {
	assert := assert.New(t)

	fx := setupTransfer(t)
	before := fx.engine.Balance(fx.owner.Pubkey())
	assert.NoError(fx.engine.InitTransfer(fx.owner.Pubkey(), fx.mint, fx.recipient.Pubkey(), 5000))

	transfer := fx.transferData(t)
	assert.NoError(fx.engine.TransferChunk(fx.owner.Pubkey(), fx.mint, fx.bufferKey(), transfer))
	assert.NoError(fx.engine.FiniTransfer(fx.owner.Pubkey(), fx.mint, fx.bufferKey()))

	// the metadata record now belongs to the recipient
	data, err := fx.engine.AccountData(StealthAddress(fx.mint))
	assert.NoError(err)
	record, err := StealthAccountFromBytes(data)
	assert.NoError(err)
	assert.Equal(fx.recipient.Pubkey(), record.Wallet)
	assert.Equal(fx.recipientElgamal.PubkeyPod(), record.ElgamalPk)
	assert.Equal(transfer.DstCipherKeyChunkCt, record.EncryptedCipherKey)

	// and the recipient can decrypt the swapped cipher key chunk
	chunk, err := fx.recipientElgamal.Decrypt(record.EncryptedCipherKey, 1000)
	assert.NoError(err)
	assert.Equal(fx.chunk, chunk)

	// buffer rent and escrow were released back to the initiator
	assert.Equal(before, fx.engine.Balance(fx.owner.Pubkey()))
	_, err = fx.engine.AccountData(fx.bufferKey())
	assert.ErrorIs(err, ErrAccountNotFound)
}

func TestTransferLifecycleSlowPath(t *testing.T) {
	assert := assert.New(t)

	fx := setupTransfer(t)
	assert.NoError(fx.engine.InitTransfer(fx.owner.Pubkey(), fx.mint, fx.recipient.Pubkey(), 0))

	instructionKey := DeriveAddress([]byte("instruction"))
	inputKey := DeriveAddress([]byte("input"))
	computeKey := DeriveAddress([]byte("compute"))
	assert.NoError(PopulateTransferProofDSL(fx.engine, fx.owner.Pubkey(), instructionKey))

	transfer := fx.transferData(t)
	plan, err := NewCrankPlan(DEFAULT_CRANK_BUDGET)
	assert.NoError(err)
	assert.NoError(TransferChunkSlowProof(fx.engine, fx.owner.Pubkey(), instructionKey, inputKey, computeKey, transfer, plan))

	assert.NoError(fx.engine.TransferChunkSlow(fx.owner.Pubkey(), fx.mint, fx.bufferKey(),
		instructionKey, inputKey, computeKey, transfer))
	assert.NoError(fx.engine.FiniTransfer(fx.owner.Pubkey(), fx.mint, fx.bufferKey()))

	data, err := fx.engine.AccountData(StealthAddress(fx.mint))
	assert.NoError(err)
	record, err := StealthAccountFromBytes(data)
	assert.NoError(err)
	assert.Equal(fx.recipient.Pubkey(), record.Wallet)

	chunk, err := fx.recipientElgamal.Decrypt(record.EncryptedCipherKey, 1000)
	assert.NoError(err)
	assert.Equal(fx.chunk, chunk)
}

func TestTransferChunkSlowWithIncompleteCranksIsRejected(t *testing.T) {
	assert := assert.New(t)

	fx := setupTransfer(t)
	assert.NoError(fx.engine.InitTransfer(fx.owner.Pubkey(), fx.mint, fx.recipient.Pubkey(), 0))

	instructionKey := DeriveAddress([]byte("instruction"))
	inputKey := DeriveAddress([]byte("input"))
	computeKey := DeriveAddress([]byte("compute"))
	assert.NoError(PopulateTransferProofDSL(fx.engine, fx.owner.Pubkey(), instructionKey))

	transfer := fx.transferData(t)
	statement, err := transfer.BuildStatement()
	assert.NoError(err)
	assert.NoError(fx.engine.InitBuffer(fx.owner.Pubkey(), inputKey, InputBufferV1))
	assert.NoError(fx.engine.InitBuffer(fx.owner.Pubkey(), computeKey, ComputeBufferV1, instructionKey, inputKey))
	assert.NoError(fx.engine.WriteInputBuffer(fx.owner.Pubkey(), inputKey, statement))

	plan, err := NewCrankPlan(DEFAULT_CRANK_BUDGET)
	assert.NoError(err)
	for batch := 0; batch < 10; batch++ {
		assert.NoError(fx.engine.CrankCompute(fx.owner.Pubkey(), instructionKey, inputKey, computeKey, plan, batch))
	}

	assert.ErrorIs(fx.engine.TransferChunkSlow(fx.owner.Pubkey(), fx.mint, fx.bufferKey(),
		instructionKey, inputKey, computeKey, transfer), ErrNotReady)

	// the buffer stays in its pre-verification state
	bufferData, err := fx.engine.AccountData(fx.bufferKey())
	assert.NoError(err)
	buffer, err := TransferBufferFromBytes(bufferData)
	assert.NoError(err)
	assert.Equal(StateAwaitingVerification, buffer.State)
}

func TestFiniTransferBeforeVerificationIsRejected(t *testing.T) {
	assert := assert.New(t)

	fx := setupTransfer(t)
	assert.NoError(fx.engine.InitTransfer(fx.owner.Pubkey(), fx.mint, fx.recipient.Pubkey(), 0))

	assert.ErrorIs(fx.engine.FiniTransfer(fx.owner.Pubkey(), fx.mint, fx.bufferKey()), ErrNotReady)

	bufferData, err := fx.engine.AccountData(fx.bufferKey())
	assert.NoError(err)
	buffer, err := TransferBufferFromBytes(bufferData)
	assert.NoError(err)
	assert.Equal(StateAwaitingVerification, buffer.State)

	// the metadata record is untouched
	data, err := fx.engine.AccountData(StealthAddress(fx.mint))
	assert.NoError(err)
	record, err := StealthAccountFromBytes(data)
	assert.NoError(err)
	assert.Equal(fx.owner.Pubkey(), record.Wallet)
	assert.Equal(fx.cipherKeyCt, record.EncryptedCipherKey)
}

func TestTransferChunkByNonAuthorityIsRejected(t *testing.T) {
	assert := assert.New(t)

	fx := setupTransfer(t)
	assert.NoError(fx.engine.InitTransfer(fx.owner.Pubkey(), fx.mint, fx.recipient.Pubkey(), 0))

	transfer := fx.transferData(t)
	assert.ErrorIs(fx.engine.TransferChunk(fx.recipient.Pubkey(), fx.mint, fx.bufferKey(), transfer), ErrUnauthorized)
}

func TestTransferChunkOverForeignCiphertextIsRejected(t *testing.T) {
	assert := assert.New(t)

	fx := setupTransfer(t)
	assert.NoError(fx.engine.InitTransfer(fx.owner.Pubkey(), fx.mint, fx.recipient.Pubkey(), 0))

	// a valid proof over a ciphertext that is not the stored cipher key
	var opening ristretto.Scalar
	opening.Rand()
	foreignCt := ElGamalEncrypt(fx.ownerElgamal.Public, fx.chunk, &opening)
	transfer, err := CreateTransferData(fx.ownerElgamal, fx.recipientElgamal.PubkeyPod(), fx.chunk, foreignCt)
	assert.NoError(err)
	assert.NoError(transfer.Verify())

	assert.ErrorIs(fx.engine.TransferChunk(fx.owner.Pubkey(), fx.mint, fx.bufferKey(), transfer), ErrMalformedProof)
}

func TestInitTransferRequiresPublishedRecipientKey(t *testing.T) {
	assert := assert.New(t)

	fx := setupTransfer(t)
	stranger, err := NewKeypair()
	assert.NoError(err)

	assert.ErrorIs(fx.engine.InitTransfer(fx.owner.Pubkey(), fx.mint, stranger.Pubkey(), 0), ErrAccountNotFound)
}

func TestInitTransferByNonHolderIsRejected(t *testing.T) {
	assert := assert.New(t)

	fx := setupTransfer(t)
	assert.ErrorIs(fx.engine.InitTransfer(fx.recipient.Pubkey(), fx.mint, fx.recipient.Pubkey(), 0), ErrUnauthorized)
}

func TestPublishRequiresAValidSignature(t *testing.T) {
	assert := assert.New(t)

	engine := NewEngine()
	wallet, err := NewKeypair()
	assert.NoError(err)
	assert.NoError(engine.Airdrop(wallet.Pubkey(), 1_000_000))

	mint := DeriveAddress([]byte("mint"), []byte(t.Name()))
	elgamal := NewElGamalKeypair()

	sig, err := wallet.SignPublish(mint, elgamal.PubkeyPod())
	assert.NoError(err)
	sig[0] ^= 0x01
	assert.ErrorIs(engine.PublishElgamalPubkey(wallet.Pubkey(), mint, elgamal.PubkeyPod(), sig),
		ErrUnauthorized)

	// a signature from a different wallet does not authorize publication
	other, err := NewKeypair()
	assert.NoError(err)
	otherSig, err := other.SignPublish(mint, elgamal.PubkeyPod())
	assert.NoError(err)
	assert.ErrorIs(engine.PublishElgamalPubkey(wallet.Pubkey(), mint, elgamal.PubkeyPod(), otherSig),
		ErrUnauthorized)
}

func TestCloseElgamalPubkeyRefunds(t *testing.T) {
	assert := assert.New(t)

	fx := setupTransfer(t)
	before := fx.engine.Balance(fx.recipient.Pubkey())
	assert.NoError(fx.engine.CloseElgamalPubkey(fx.recipient.Pubkey(), fx.mint))
	assert.Equal(before+rentForSize(ELGAMAL_PUBKEY_BUFFER_LEN), fx.engine.Balance(fx.recipient.Pubkey()))

	// re-publication works after closing
	sig, err := fx.recipient.SignPublish(fx.mint, fx.recipientElgamal.PubkeyPod())
	assert.NoError(err)
	assert.NoError(fx.engine.PublishElgamalPubkey(fx.recipient.Pubkey(), fx.mint, fx.recipientElgamal.PubkeyPod(), sig))
}

func TestCloseTransferBufferReclaimsEscrow(t *testing.T) {
	assert := assert.New(t)

	fx := setupTransfer(t)
	before := fx.engine.Balance(fx.owner.Pubkey())
	assert.NoError(fx.engine.InitTransfer(fx.owner.Pubkey(), fx.mint, fx.recipient.Pubkey(), 7500))
	assert.NoError(fx.engine.CloseTransferBuffer(fx.owner.Pubkey(), fx.bufferKey()))

	assert.Equal(before, fx.engine.Balance(fx.owner.Pubkey()))
	_, err := fx.engine.AccountData(fx.bufferKey())
	assert.ErrorIs(err, ErrAccountNotFound)

	// an abandoned transfer can be restarted
	assert.NoError(fx.engine.InitTransfer(fx.owner.Pubkey(), fx.mint, fx.recipient.Pubkey(), 0))
}

func TestConfigureMetadataRejectsUnknownOversightMethod(t *testing.T) {
	assert := assert.New(t)

	engine := NewEngine()
	payer := DeriveAddress([]byte("payer"))
	assert.NoError(engine.Airdrop(payer, 1_000_000))

	mint := DeriveAddress([]byte("mint"), []byte(t.Name()))
	assert.ErrorIs(engine.ConfigureMetadata(payer, mint, ConfigureMetadataData{
		Method: OversightMethod(9),
	}), ErrInvalidState)
}
