package stealth

import (
	"fmt"
	"sync"
)

const LAMPORTS_PER_BYTE = 10

func rentForSize(size int) uint64 {
	return uint64(size+128) * LAMPORTS_PER_BYTE
}

type account struct {
	lamports uint64
	data     []byte
	funder   Pubkey
}

// Engine is the in-process command boundary: an account bank holding
// wallets, metadata records and the instruction/input/compute buffers.
// Buffers are exclusively owned by their creating authority; every
// mutating operation checks ownership before touching state.
type Engine struct {
	mu       sync.Mutex
	accounts map[Pubkey]*account
}

func NewEngine() *Engine {
	return &Engine{accounts: make(map[Pubkey]*account)}
}

func (e *Engine) Airdrop(wallet Pubkey, lamports uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	acc := e.accounts[wallet]
	if acc == nil {
		acc = &account{}
		e.accounts[wallet] = acc
	}
	balance, err := checkedAdd(acc.lamports, lamports)
	if err != nil {
		return err
	}
	acc.lamports = balance
	return nil
}

func (e *Engine) Balance(key Pubkey) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if acc := e.accounts[key]; acc != nil {
		return acc.lamports
	}
	return 0
}

// AccountData returns a copy of the stored account bytes.
func (e *Engine) AccountData(key Pubkey) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	acc := e.accounts[key]
	if acc == nil || acc.data == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrAccountNotFound)
	}
	out := make([]byte, len(acc.data))
	copy(out, acc.data)
	return out, nil
}

func (e *Engine) createAccount(payer, key Pubkey, size int) (*account, error) {
	if existing := e.accounts[key]; existing != nil && existing.data != nil {
		return nil, fmt.Errorf("%s: %w", key, ErrAccountInUse)
	}
	funds := e.accounts[payer]
	if funds == nil {
		return nil, fmt.Errorf("payer %s: %w", payer, ErrAccountNotFound)
	}
	rent := rentForSize(size)
	balance, err := checkedSub(funds.lamports, rent)
	if err != nil {
		return nil, fmt.Errorf("payer %s rent %d: %w", payer, rent, err)
	}
	funds.lamports = balance

	acc := e.accounts[key]
	if acc == nil {
		acc = &account{}
		e.accounts[key] = acc
	}
	lamports, err := checkedAdd(acc.lamports, rent)
	if err != nil {
		return nil, err
	}
	acc.lamports = lamports
	acc.data = make([]byte, size)
	acc.funder = payer
	return acc, nil
}

// closeAccount releases the account and credits its lamports to the
// recipient wallet.
func (e *Engine) closeAccount(key, recipient Pubkey) error {
	acc := e.accounts[key]
	if acc == nil || acc.data == nil {
		return fmt.Errorf("%s: %w", key, ErrAccountNotFound)
	}
	dest := e.accounts[recipient]
	if dest == nil {
		dest = &account{}
		e.accounts[recipient] = dest
	}
	balance, err := checkedAdd(dest.lamports, acc.lamports)
	if err != nil {
		return err
	}
	dest.lamports = balance
	delete(e.accounts, key)
	return nil
}

func (e *Engine) loadData(key Pubkey) ([]byte, error) {
	acc := e.accounts[key]
	if acc == nil || acc.data == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrAccountNotFound)
	}
	return acc.data, nil
}

// InitBuffer allocates an instruction, input or compute buffer owned and
// funded by the caller. A compute buffer records the exact
// instruction+input buffer pair it will be cranked against.
func (e *Engine) InitBuffer(owner, key Pubkey, kind byte, linked ...Pubkey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	size, err := bufferSizeForKind(kind)
	if err != nil {
		return err
	}
	if kind == ComputeBufferV1 && len(linked) != 2 {
		return fmt.Errorf("compute buffer needs instruction and input refs: %w", ErrBufferMismatch)
	}
	if kind != ComputeBufferV1 && len(linked) != 0 {
		return fmt.Errorf("kind %d takes no linked buffers: %w", kind, ErrBufferMismatch)
	}

	acc, err := e.createAccount(owner, key, size)
	if err != nil {
		return err
	}
	initBufferHeader(acc.data, kind, owner)
	if kind == ComputeBufferV1 {
		compute, err := AsComputeBuffer(acc.data)
		if err != nil {
			return err
		}
		compute.setBufferRefs(linked[0], linked[1])
	}
	return nil
}

// WriteBytes appends a chunk of the opcode stream into an instruction
// buffer at the given stream offset; final marks the buffer complete.
func (e *Engine) WriteBytes(authority, key Pubkey, offset int, chunk []byte, final bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.loadData(key)
	if err != nil {
		return err
	}
	instruction, err := AsInstructionBuffer(data)
	if err != nil {
		return err
	}
	if instruction.Owner() != authority {
		return fmt.Errorf("instruction buffer owner %s: %w", instruction.Owner(), ErrUnauthorized)
	}
	return instruction.writeStream(offset, chunk, final)
}

// WriteInputBuffer stores a statement's points and scalars and marks the
// buffer complete.
func (e *Engine) WriteInputBuffer(authority, key Pubkey, statement *Statement) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.loadData(key)
	if err != nil {
		return err
	}
	input, err := AsInputBuffer(data)
	if err != nil {
		return err
	}
	if input.Owner() != authority {
		return fmt.Errorf("input buffer owner %s: %w", input.Owner(), ErrUnauthorized)
	}
	return input.writeStatement(statement)
}

// CrankCompute executes one scheduled batch. Per-crank checks are kept
// minimal: ownership, buffer-reference equality and the cursor bound.
// Replaying a batch that already completed is a no-op; issuing a batch
// ahead of the cursor is rejected and the cursor does not advance.
func (e *Engine) CrankCompute(authority, instructionKey, inputKey, computeKey Pubkey, plan *CrankPlan, batchIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

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
	inputData, err := e.loadData(inputKey)
	if err != nil {
		return err
	}
	input, err := AsInputBuffer(inputData)
	if err != nil {
		return err
	}
	if !instruction.Finalized() || !input.Finalized() {
		return fmt.Errorf("instruction/input buffer not finalized: %w", ErrNotReady)
	}

	start, err := plan.BatchStart(batchIndex)
	if err != nil {
		return err
	}
	batch := plan.Batches[batchIndex]
	cursor := compute.StepCursor()
	if start+batch.Ops <= cursor {
		// already performed; resumed sessions may replay
		return nil
	}
	if start > cursor {
		return fmt.Errorf("batch %d starts at step %d, cursor at %d: %w", batchIndex, start, cursor, ErrNotReady)
	}

	// run on a copy so a failed batch leaves the cursor and state
	// untouched and the caller may retry
	scratch := make([]byte, len(computeData))
	copy(scratch, computeData)
	working, err := AsComputeBuffer(scratch)
	if err != nil {
		return err
	}
	if err := executeBatch(instruction, input, working, batch.Ops, batch.Budget); err != nil {
		return err
	}
	copy(computeData, scratch)
	return nil
}

// CloseBuffer reclaims a buffer's allocation cost before finalization,
// refunding whoever funded it.
func (e *Engine) CloseBuffer(authority, key Pubkey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.loadData(key)
	if err != nil {
		return err
	}
	switch data[headerKindOff] {
	case InstructionBufferV1, InputBufferV1, ComputeBufferV1:
	default:
		return fmt.Errorf("kind %d: %w", data[headerKindOff], ErrInvalidBufferKind)
	}
	if bufferOwner(data) != authority {
		return fmt.Errorf("buffer owner %s: %w", bufferOwner(data), ErrUnauthorized)
	}
	funder := e.accounts[key].funder
	return e.closeAccount(key, funder)
}
