package stealth

import "fmt"

// The DSL is the fixed program of elementary group operations the crank
// scheduler executes. The stream is written once into an instruction
// buffer and shared by all transfers.
type Opcode byte

const (
	OpDecompress Opcode = iota + 1
	OpBuildTable
	OpCopyScalar
	OpInitResult
	OpMultStep
)

const (
	// Encoded instruction: opcode, two index operands, one pad byte.
	INSTRUCTION_SIZE = 4

	// Precomputed multiples 1*P .. 8*P, enough for signed radix-16
	// digits.
	LOOKUP_TABLE_ENTRIES = 8
	LOOKUP_TABLE_SIZE    = LOOKUP_TABLE_ENTRIES * 32

	// One decompression plus seven table-extension steps per input
	// point.
	OPS_PER_POINT = 1 + (LOOKUP_TABLE_ENTRIES - 1)

	// 64 radix-16 digits per 255-bit scalar.
	MULT_ITERATIONS = 64

	// 11*8 decompress/table ops, 11 scalar copies, 3 result inits and
	// 3*64 multiplication cranks.
	DSL_INSTRUCTION_COUNT = STATEMENT_POINTS*OPS_PER_POINT +
		STATEMENT_SCALARS + STATEMENT_GROUPS +
		STATEMENT_GROUPS*MULT_ITERATIONS

	DSL_INSTRUCTION_BYTES_LEN = DSL_INSTRUCTION_COUNT * INSTRUCTION_SIZE
)

type DSLInstruction struct {
	Op Opcode
	A  byte // point, scalar or group index
	B  byte // table entry or multiplication iteration
}

// DSLInstructions is the shared opcode table, built once at process
// start and never mutated.
var DSLInstructions = buildDSL()

// DSLInstructionBytes is the canonical encoded stream written into
// instruction buffers.
var DSLInstructionBytes = encodeDSL(DSLInstructions)

func buildDSL() []DSLInstruction {
	ins := make([]DSLInstruction, 0, DSL_INSTRUCTION_COUNT)
	for point := 0; point < STATEMENT_POINTS; point++ {
		ins = append(ins, DSLInstruction{Op: OpDecompress, A: byte(point)})
		for entry := 2; entry <= LOOKUP_TABLE_ENTRIES; entry++ {
			ins = append(ins, DSLInstruction{Op: OpBuildTable, A: byte(point), B: byte(entry)})
		}
	}
	for scalar := 0; scalar < STATEMENT_SCALARS; scalar++ {
		ins = append(ins, DSLInstruction{Op: OpCopyScalar, A: byte(scalar)})
	}
	for group := 0; group < STATEMENT_GROUPS; group++ {
		ins = append(ins, DSLInstruction{Op: OpInitResult, A: byte(group)})
	}
	for group := 0; group < STATEMENT_GROUPS; group++ {
		for iter := 0; iter < MULT_ITERATIONS; iter++ {
			ins = append(ins, DSLInstruction{Op: OpMultStep, A: byte(group), B: byte(iter)})
		}
	}
	return ins
}

func encodeDSL(ins []DSLInstruction) []byte {
	buf := make([]byte, 0, len(ins)*INSTRUCTION_SIZE)
	for _, in := range ins {
		buf = append(buf, byte(in.Op), in.A, in.B, 0)
	}
	return buf
}

func decodeDSLInstruction(buf []byte) (DSLInstruction, error) {
	var ins DSLInstruction
	if len(buf) < INSTRUCTION_SIZE {
		return ins, fmt.Errorf("truncated instruction stream")
	}
	op := Opcode(buf[0])
	if op < OpDecompress || op > OpMultStep {
		return ins, fmt.Errorf("unknown opcode %d", buf[0])
	}
	ins.Op = op
	ins.A = buf[1]
	ins.B = buf[2]
	return ins, nil
}

// signedRadix16 recodes a canonical scalar into 64 signed digits in
// [-8, 8] with sum(d_i * 16^i) == s.
func signedRadix16(buf [32]byte) [MULT_ITERATIONS]int8 {
	var digits [MULT_ITERATIONS]int8
	for i := 0; i < 32; i++ {
		digits[2*i] = int8(buf[i] & 15)
		digits[2*i+1] = int8((buf[i] >> 4) & 15)
	}
	for i := 0; i < MULT_ITERATIONS-1; i++ {
		carry := (digits[i] + 8) >> 4
		digits[i] -= carry << 4
		digits[i+1] += carry
	}
	return digits
}
