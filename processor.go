package stealth

import (
	"bytes"
	"fmt"
)

// Commands exposed at the boundary. Failure at any step leaves state
// untouched; the asset's encrypted metadata only ever changes in
// FiniTransfer.

type ConfigureMetadataData struct {
	ElgamalPk          ElGamalPubkey
	EncryptedCipherKey ElGamalCiphertext
	Uri                URI
	Method             OversightMethod
}

// ConfigureMetadata creates the protected metadata record for a mint.
// The encrypted cipher key should already be encrypted with ElgamalPk.
func (e *Engine) ConfigureMetadata(payer, mint Pubkey, data ConfigureMetadataData) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !data.Method.valid() {
		return fmt.Errorf("oversight method %d: %w", data.Method, ErrInvalidState)
	}
	acc, err := e.createAccount(payer, StealthAddress(mint), STEALTH_ACCOUNT_LEN)
	if err != nil {
		return err
	}
	record := &StealthAccount{
		Mint:               mint,
		Wallet:             payer,
		ElgamalPk:          data.ElgamalPk,
		EncryptedCipherKey: data.EncryptedCipherKey,
		Uri:                data.Uri,
		Method:             data.Method,
	}
	copy(acc.data, record.ToBytes())
	return nil
}

// PublishElgamalPubkey stores the wallet's ElGamal pubkey for a mint so
// transfers can be initiated toward it. The publication is authorized by
// a schnorrkel signature from the wallet key.
func (e *Engine) PublishElgamalPubkey(wallet, mint Pubkey, elgamalPk ElGamalPubkey, sig [64]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !verifyPublishSignature(wallet, mint, elgamalPk, sig) {
		return fmt.Errorf("publish signature: %w", ErrUnauthorized)
	}
	acc, err := e.createAccount(wallet, ElgamalPubkeyAddress(wallet, mint), ELGAMAL_PUBKEY_BUFFER_LEN)
	if err != nil {
		return err
	}
	record := &ElgamalPubkeyBuffer{Wallet: wallet, Mint: mint, ElgamalPk: elgamalPk}
	copy(acc.data, record.ToBytes())
	return nil
}

func (e *Engine) CloseElgamalPubkey(wallet, mint Pubkey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := ElgamalPubkeyAddress(wallet, mint)
	data, err := e.loadData(key)
	if err != nil {
		return err
	}
	record, err := ElgamalPubkeyBufferFromBytes(data)
	if err != nil {
		return err
	}
	if record.Wallet != wallet {
		return fmt.Errorf("pubkey buffer wallet %s: %w", record.Wallet, ErrUnauthorized)
	}
	return e.closeAccount(key, wallet)
}

// InitTransfer begins a transfer toward a recipient who has published an
// ElGamal pubkey for the mint, escrowing value into the transfer buffer.
func (e *Engine) InitTransfer(owner, mint, recipient Pubkey, escrow uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	stealthData, err := e.loadData(StealthAddress(mint))
	if err != nil {
		return err
	}
	stealthAccount, err := StealthAccountFromBytes(stealthData)
	if err != nil {
		return err
	}
	if stealthAccount.Wallet != owner {
		return fmt.Errorf("asset held by %s: %w", stealthAccount.Wallet, ErrUnauthorized)
	}

	pubkeyData, err := e.loadData(ElgamalPubkeyAddress(recipient, mint))
	if err != nil {
		return fmt.Errorf("recipient has no published elgamal pubkey: %w", err)
	}
	published, err := ElgamalPubkeyBufferFromBytes(pubkeyData)
	if err != nil {
		return err
	}

	key := TransferBufferAddress(recipient, mint)
	acc, err := e.createAccount(owner, key, TRANSFER_BUFFER_LEN)
	if err != nil {
		return err
	}
	if escrow > 0 {
		funds := e.accounts[owner]
		balance, err := checkedSub(funds.lamports, escrow)
		if err != nil {
			return err
		}
		lamports, err := checkedAdd(acc.lamports, escrow)
		if err != nil {
			return err
		}
		funds.lamports = balance
		acc.lamports = lamports
	}

	buffer := &CipherKeyTransferBuffer{
		State:            StateAwaitingVerification,
		Authority:        owner,
		Mint:             mint,
		Recipient:        recipient,
		RecipientElgamal: published.ElgamalPk,
	}
	copy(acc.data, buffer.ToBytes())
	return nil
}

// validateChunk runs the structural checks shared by the fast and slow
// paths: ownership, state, and that the submitted transfer data speaks
// about this asset and this recipient.
func (e *Engine) validateChunk(authority, mint, transferBufferKey Pubkey, transfer *TransferData) (*CipherKeyTransferBuffer, []byte, error) {
	bufferData, err := e.loadData(transferBufferKey)
	if err != nil {
		return nil, nil, err
	}
	buffer, err := TransferBufferFromBytes(bufferData)
	if err != nil {
		return nil, nil, err
	}
	if buffer.Authority != authority {
		return nil, nil, fmt.Errorf("transfer buffer authority %s: %w", buffer.Authority, ErrUnauthorized)
	}
	if buffer.Mint != mint {
		return nil, nil, fmt.Errorf("transfer buffer bound to mint %s: %w", buffer.Mint, ErrBufferMismatch)
	}
	if buffer.State != StateAwaitingVerification {
		return nil, nil, fmt.Errorf("transfer buffer in state %s: %w", buffer.State, ErrInvalidState)
	}

	stealthData, err := e.loadData(StealthAddress(mint))
	if err != nil {
		return nil, nil, err
	}
	stealthAccount, err := StealthAccountFromBytes(stealthData)
	if err != nil {
		return nil, nil, err
	}
	if transfer.SrcCipherKeyChunkCt != stealthAccount.EncryptedCipherKey {
		return nil, nil, fmt.Errorf("source ciphertext does not match stored cipher key: %w", ErrMalformedProof)
	}
	if transfer.TransferPublicKeys.SrcPubkey != stealthAccount.ElgamalPk {
		return nil, nil, fmt.Errorf("source pubkey does not match metadata: %w", ErrMalformedProof)
	}
	if transfer.TransferPublicKeys.DstPubkey != buffer.RecipientElgamal {
		return nil, nil, fmt.Errorf("destination pubkey does not match recipient: %w", ErrMalformedProof)
	}
	return buffer, bufferData, nil
}

func stageVerifiedChunk(buffer *CipherKeyTransferBuffer, bufferData []byte, transfer *TransferData) {
	buffer.StagedCipherKey = transfer.DstCipherKeyChunkCt
	buffer.State = StateVerified
	copy(bufferData, buffer.ToBytes())
}

// TransferChunk is the fast path: the equality proof is verified
// directly in one invocation.
func (e *Engine) TransferChunk(authority, mint, transferBufferKey Pubkey, transfer *TransferData) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	buffer, bufferData, err := e.validateChunk(authority, mint, transferBufferKey, transfer)
	if err != nil {
		return err
	}
	if err := transfer.Verify(); err != nil {
		return err
	}
	stageVerifiedChunk(buffer, bufferData, transfer)
	return nil
}

// TransferChunkSlow is the cranked path: it accepts an already-cranked
// instruction/input/compute buffer triple and only checks that the
// triple is correctly linked, carries exactly this transfer's statement,
// and accumulated to the identity in every proof group.
func (e *Engine) TransferChunkSlow(authority, mint, transferBufferKey, instructionKey, inputKey, computeKey Pubkey, transfer *TransferData) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	buffer, bufferData, err := e.validateChunk(authority, mint, transferBufferKey, transfer)
	if err != nil {
		return err
	}

	computeData, err := e.loadData(computeKey)
	if err != nil {
		return err
	}
	compute, err := AsComputeBuffer(computeData)
	if err != nil {
		return err
	}
	if compute.Owner() != authority {
		return fmt.Errorf("compute buffer owner %s: %w", compute.Owner(), ErrUnauthorized)
	}
	if compute.InstructionBufferRef() != instructionKey || compute.InputBufferRef() != inputKey {
		return fmt.Errorf("compute buffer bound to %s/%s: %w",
			compute.InstructionBufferRef(), compute.InputBufferRef(), ErrBufferMismatch)
	}

	instructionData, err := e.loadData(instructionKey)
	if err != nil {
		return err
	}
	instruction, err := AsInstructionBuffer(instructionData)
	if err != nil {
		return err
	}
	if !instruction.Finalized() || bytes.Compare(instruction.Stream(), DSLInstructionBytes) != 0 {
		return fmt.Errorf("instruction buffer does not carry the proof-check program: %w", ErrBufferMismatch)
	}

	inputData, err := e.loadData(inputKey)
	if err != nil {
		return err
	}
	input, err := AsInputBuffer(inputData)
	if err != nil {
		return err
	}
	statement, err := transfer.BuildStatement()
	if err != nil {
		return err
	}
	if !input.Finalized() || !input.matchesStatement(statement) {
		return fmt.Errorf("input buffer does not carry this transfer's statement: %w", ErrBufferMismatch)
	}

	if err := verifyComputeResult(compute); err != nil {
		return err
	}
	stageVerifiedChunk(buffer, bufferData, transfer)
	return nil
}

// FiniTransfer swaps the encrypted key material, moves asset ownership
// to the recipient and releases the transfer buffer's lamports. Only
// permitted once the chunk has verified.
func (e *Engine) FiniTransfer(authority, mint, transferBufferKey Pubkey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	bufferData, err := e.loadData(transferBufferKey)
	if err != nil {
		return err
	}
	buffer, err := TransferBufferFromBytes(bufferData)
	if err != nil {
		return err
	}
	if buffer.Authority != authority {
		return fmt.Errorf("transfer buffer authority %s: %w", buffer.Authority, ErrUnauthorized)
	}
	if buffer.Mint != mint {
		return fmt.Errorf("transfer buffer bound to mint %s: %w", buffer.Mint, ErrBufferMismatch)
	}
	if buffer.State != StateVerified {
		return fmt.Errorf("transfer buffer in state %s: %w", buffer.State, ErrNotReady)
	}

	stealthKey := StealthAddress(mint)
	stealthData, err := e.loadData(stealthKey)
	if err != nil {
		return err
	}
	stealthAccount, err := StealthAccountFromBytes(stealthData)
	if err != nil {
		return err
	}

	stealthAccount.EncryptedCipherKey = buffer.StagedCipherKey
	stealthAccount.ElgamalPk = buffer.RecipientElgamal
	stealthAccount.Wallet = buffer.Recipient
	copy(stealthData, stealthAccount.ToBytes())

	return e.closeAccount(transferBufferKey, e.accounts[transferBufferKey].funder)
}

// CloseTransferBuffer abandons a pending transfer from any non-terminal
// state, reclaiming the buffer's lamports.
func (e *Engine) CloseTransferBuffer(authority, transferBufferKey Pubkey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	bufferData, err := e.loadData(transferBufferKey)
	if err != nil {
		return err
	}
	buffer, err := TransferBufferFromBytes(bufferData)
	if err != nil {
		return err
	}
	if buffer.Authority != authority {
		return fmt.Errorf("transfer buffer authority %s: %w", buffer.Authority, ErrUnauthorized)
	}
	return e.closeAccount(transferBufferKey, e.accounts[transferBufferKey].funder)
}
