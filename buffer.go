package stealth

import (
	"encoding/binary"
	"fmt"
)

// Persisted buffers are raw fixed-layout byte slices. Every accessor
// checks the kind tag and its bounds; stored bytes are never trusted
// without a discriminant check.

const (
	BufferKindUninitialized byte = 0
	InstructionBufferV1     byte = 1
	InputBufferV1           byte = 2
	ComputeBufferV1         byte = 3
	StealthAccountV1        byte = 4
	ElgamalPubkeyBufferV1   byte = 5
	TransferBufferV1        byte = 6
)

// Header: kind tag, finalized flag, owner.
const (
	headerKindOff      = 0
	headerFinalizedOff = 1
	headerOwnerOff     = 2
	HEADER_SIZE        = 34
)

const (
	INSTRUCTION_BUFFER_LEN = HEADER_SIZE + DSL_INSTRUCTION_BYTES_LEN
	INPUT_BUFFER_LEN       = HEADER_SIZE + STATEMENT_POINTS*32 + STATEMENT_SCALARS*32

	computeInstRefOff  = HEADER_SIZE
	computeInputRefOff = computeInstRefOff + 32
	computeCursorOff   = computeInputRefOff + 32
	computeDoneOff     = computeCursorOff + 4
	computeAccOff      = computeDoneOff + 1
	computeScratchOff  = computeAccOff + STATEMENT_GROUPS*32
	computeScalarOff   = computeScratchOff + 12*32
	computeTableOff    = computeScalarOff + STATEMENT_SCALARS*32
	COMPUTE_BUFFER_LEN = computeTableOff + STATEMENT_POINTS*LOOKUP_TABLE_SIZE
)

func bufferSizeForKind(kind byte) (int, error) {
	switch kind {
	case InstructionBufferV1:
		return INSTRUCTION_BUFFER_LEN, nil
	case InputBufferV1:
		return INPUT_BUFFER_LEN, nil
	case ComputeBufferV1:
		return COMPUTE_BUFFER_LEN, nil
	}
	return 0, ErrInvalidBufferKind
}

func initBufferHeader(data []byte, kind byte, owner Pubkey) {
	data[headerKindOff] = kind
	data[headerFinalizedOff] = 0
	copy(data[headerOwnerOff:headerOwnerOff+32], owner[:])
}

func checkBuffer(data []byte, kind byte, minLen int) error {
	if len(data) < minLen {
		return fmt.Errorf("buffer too small for kind %d: %w", kind, ErrInvalidBufferKind)
	}
	if data[headerKindOff] != kind {
		return fmt.Errorf("kind tag %d, want %d: %w", data[headerKindOff], kind, ErrInvalidBufferKind)
	}
	return nil
}

func bufferOwner(data []byte) Pubkey {
	var owner Pubkey
	copy(owner[:], data[headerOwnerOff:headerOwnerOff+32])
	return owner
}

func bufferFinalized(data []byte) bool {
	return data[headerFinalizedOff] != 0
}

// InstructionBuffer holds the shared opcode stream.
type InstructionBuffer struct {
	data []byte
}

func AsInstructionBuffer(data []byte) (*InstructionBuffer, error) {
	if err := checkBuffer(data, InstructionBufferV1, INSTRUCTION_BUFFER_LEN); err != nil {
		return nil, err
	}
	return &InstructionBuffer{data: data}, nil
}

func (b *InstructionBuffer) Owner() Pubkey   { return bufferOwner(b.data) }
func (b *InstructionBuffer) Finalized() bool { return bufferFinalized(b.data) }
func (b *InstructionBuffer) Stream() []byte  { return b.data[HEADER_SIZE:] }

func (b *InstructionBuffer) Instruction(i int) (DSLInstruction, error) {
	if i < 0 || i >= DSL_INSTRUCTION_COUNT {
		return DSLInstruction{}, fmt.Errorf("instruction %d out of range", i)
	}
	off := HEADER_SIZE + i*INSTRUCTION_SIZE
	return decodeDSLInstruction(b.data[off : off+INSTRUCTION_SIZE])
}

func (b *InstructionBuffer) writeStream(offset int, chunk []byte, final bool) error {
	if bufferFinalized(b.data) {
		return fmt.Errorf("instruction buffer already finalized: %w", ErrInvalidState)
	}
	if offset < 0 || offset+len(chunk) > DSL_INSTRUCTION_BYTES_LEN {
		return fmt.Errorf("write [%d, %d) out of stream bounds", offset, offset+len(chunk))
	}
	copy(b.data[HEADER_SIZE+offset:], chunk)
	if final {
		b.data[headerFinalizedOff] = 1
	}
	return nil
}

// InputBuffer holds the per-transfer statement: the ordered point list
// followed by the ordered scalar list.
type InputBuffer struct {
	data []byte
}

func AsInputBuffer(data []byte) (*InputBuffer, error) {
	if err := checkBuffer(data, InputBufferV1, INPUT_BUFFER_LEN); err != nil {
		return nil, err
	}
	return &InputBuffer{data: data}, nil
}

func (b *InputBuffer) Owner() Pubkey   { return bufferOwner(b.data) }
func (b *InputBuffer) Finalized() bool { return bufferFinalized(b.data) }

func (b *InputBuffer) PointBytes(i int) ([32]byte, error) {
	var out [32]byte
	if i < 0 || i >= STATEMENT_POINTS {
		return out, fmt.Errorf("input point %d out of range", i)
	}
	off := HEADER_SIZE + i*32
	copy(out[:], b.data[off:off+32])
	return out, nil
}

func (b *InputBuffer) ScalarBytes(i int) ([32]byte, error) {
	var out [32]byte
	if i < 0 || i >= STATEMENT_SCALARS {
		return out, fmt.Errorf("input scalar %d out of range", i)
	}
	off := HEADER_SIZE + STATEMENT_POINTS*32 + i*32
	copy(out[:], b.data[off:off+32])
	return out, nil
}

func (b *InputBuffer) writeStatement(statement *Statement) error {
	if bufferFinalized(b.data) {
		return fmt.Errorf("input buffer already finalized: %w", ErrInvalidState)
	}
	for i := 0; i < STATEMENT_POINTS; i++ {
		copy(b.data[HEADER_SIZE+i*32:], statement.Points[i][:])
	}
	for i := 0; i < STATEMENT_SCALARS; i++ {
		copy(b.data[HEADER_SIZE+STATEMENT_POINTS*32+i*32:], statement.Scalars[i][:])
	}
	b.data[headerFinalizedOff] = 1
	return nil
}

// matchesStatement compares the stored statement byte-for-byte against a
// freshly built one.
func (b *InputBuffer) matchesStatement(statement *Statement) bool {
	for i := 0; i < STATEMENT_POINTS; i++ {
		stored, err := b.PointBytes(i)
		if err != nil || stored != statement.Points[i] {
			return false
		}
	}
	for i := 0; i < STATEMENT_SCALARS; i++ {
		stored, err := b.ScalarBytes(i)
		if err != nil || stored != statement.Scalars[i] {
			return false
		}
	}
	return true
}

// ComputeBuffer is the working memory of one verification run, bound at
// creation to one instruction+input buffer pair.
type ComputeBuffer struct {
	data []byte
}

func AsComputeBuffer(data []byte) (*ComputeBuffer, error) {
	if err := checkBuffer(data, ComputeBufferV1, COMPUTE_BUFFER_LEN); err != nil {
		return nil, err
	}
	return &ComputeBuffer{data: data}, nil
}

func (b *ComputeBuffer) Owner() Pubkey { return bufferOwner(b.data) }

func (b *ComputeBuffer) InstructionBufferRef() Pubkey {
	var ref Pubkey
	copy(ref[:], b.data[computeInstRefOff:computeInstRefOff+32])
	return ref
}

func (b *ComputeBuffer) InputBufferRef() Pubkey {
	var ref Pubkey
	copy(ref[:], b.data[computeInputRefOff:computeInputRefOff+32])
	return ref
}

func (b *ComputeBuffer) setBufferRefs(instruction, input Pubkey) {
	copy(b.data[computeInstRefOff:], instruction[:])
	copy(b.data[computeInputRefOff:], input[:])
}

func (b *ComputeBuffer) StepCursor() int {
	return int(binary.LittleEndian.Uint32(b.data[computeCursorOff : computeCursorOff+4]))
}

func (b *ComputeBuffer) setStepCursor(cursor int) {
	binary.LittleEndian.PutUint32(b.data[computeCursorOff:computeCursorOff+4], uint32(cursor))
}

func (b *ComputeBuffer) Done() bool {
	return b.data[computeDoneOff] != 0
}

func (b *ComputeBuffer) setDone() {
	b.data[computeDoneOff] = 1
}

func (b *ComputeBuffer) accumulator(group int) ([32]byte, error) {
	var out [32]byte
	if group < 0 || group >= STATEMENT_GROUPS {
		return out, fmt.Errorf("proof group %d out of range", group)
	}
	off := computeAccOff + group*32
	copy(out[:], b.data[off:off+32])
	return out, nil
}

func (b *ComputeBuffer) setAccumulator(group int, value [32]byte) error {
	if group < 0 || group >= STATEMENT_GROUPS {
		return fmt.Errorf("proof group %d out of range", group)
	}
	copy(b.data[computeAccOff+group*32:], value[:])
	return nil
}

func (b *ComputeBuffer) scratchPoint(i int) ([32]byte, error) {
	var out [32]byte
	if i < 0 || i >= 12 {
		return out, fmt.Errorf("scratch slot %d out of range", i)
	}
	off := computeScratchOff + i*32
	copy(out[:], b.data[off:off+32])
	return out, nil
}

func (b *ComputeBuffer) setScratchPoint(i int, value [32]byte) error {
	if i < 0 || i >= 12 {
		return fmt.Errorf("scratch slot %d out of range", i)
	}
	copy(b.data[computeScratchOff+i*32:], value[:])
	return nil
}

func (b *ComputeBuffer) scalarCopy(i int) ([32]byte, error) {
	var out [32]byte
	if i < 0 || i >= STATEMENT_SCALARS {
		return out, fmt.Errorf("scalar copy %d out of range", i)
	}
	off := computeScalarOff + i*32
	copy(out[:], b.data[off:off+32])
	return out, nil
}

func (b *ComputeBuffer) setScalarCopy(i int, value [32]byte) error {
	if i < 0 || i >= STATEMENT_SCALARS {
		return fmt.Errorf("scalar copy %d out of range", i)
	}
	copy(b.data[computeScalarOff+i*32:], value[:])
	return nil
}

func (b *ComputeBuffer) tableEntry(point, entry int) ([32]byte, error) {
	var out [32]byte
	if point < 0 || point >= STATEMENT_POINTS {
		return out, fmt.Errorf("lookup table %d out of range", point)
	}
	if entry < 0 || entry >= LOOKUP_TABLE_ENTRIES {
		return out, fmt.Errorf("lookup table entry %d out of range", entry)
	}
	off := computeTableOff + point*LOOKUP_TABLE_SIZE + entry*32
	copy(out[:], b.data[off:off+32])
	return out, nil
}

func (b *ComputeBuffer) setTableEntry(point, entry int, value [32]byte) error {
	if point < 0 || point >= STATEMENT_POINTS {
		return fmt.Errorf("lookup table %d out of range", point)
	}
	if entry < 0 || entry >= LOOKUP_TABLE_ENTRIES {
		return fmt.Errorf("lookup table entry %d out of range", entry)
	}
	copy(b.data[computeTableOff+point*LOOKUP_TABLE_SIZE+entry*32:], value[:])
	return nil
}
