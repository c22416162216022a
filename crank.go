package stealth

import (
	"fmt"

	"github.com/bwesterb/go-ristretto"
)

// Nominal compute cost per operation, in the same units as the batch
// budget request. Decompressing one input point and building its lookup
// table runs ~450k units; one multiplication crank costs ~85k for the
// 3-point groups and ~120k for the 5-point group.
func opCost(ins DSLInstruction) uint64 {
	switch ins.Op {
	case OpDecompress:
		return 35_000
	case OpBuildTable:
		return 60_000
	case OpCopyScalar:
		return 2_000
	case OpInitResult:
		return 1_000
	case OpMultStep:
		group := int(ins.A)
		if group >= 0 && group < STATEMENT_GROUPS &&
			statementGroupOffsets[group+1]-statementGroupOffsets[group] > 3 {
			return 120_000
		}
		return 85_000
	}
	return 0
}

// executeBatch advances the compute buffer by one scheduled batch from
// its stored cursor. The caller owns atomicity: run this on a copy and
// commit only on success.
func executeBatch(instruction *InstructionBuffer, input *InputBuffer, compute *ComputeBuffer, ops int, budget uint64) error {
	cursor := compute.StepCursor()
	if cursor >= DSL_INSTRUCTION_COUNT {
		// completed run; replaying is a no-op
		return nil
	}
	if cursor+ops > DSL_INSTRUCTION_COUNT {
		return fmt.Errorf("batch of %d at cursor %d overruns %d steps: %w",
			ops, cursor, DSL_INSTRUCTION_COUNT, ErrStepCountMismatch)
	}

	var spent uint64
	for k := 0; k < ops; k++ {
		ins, err := instruction.Instruction(cursor + k)
		if err != nil {
			return err
		}
		spent += opCost(ins)
		if spent > budget {
			return fmt.Errorf("%d of %d units at step %d: %w", spent, budget, cursor+k, ErrComputeBudgetExceeded)
		}
		if err := executeOp(compute, input, ins); err != nil {
			return fmt.Errorf("step %d: %w", cursor+k, err)
		}
	}

	compute.setStepCursor(cursor + ops)
	if cursor+ops == DSL_INSTRUCTION_COUNT {
		compute.setDone()
	}
	return nil
}

func executeOp(compute *ComputeBuffer, input *InputBuffer, ins DSLInstruction) error {
	switch ins.Op {
	case OpDecompress:
		point := int(ins.A)
		compressed, err := input.PointBytes(point)
		if err != nil {
			return err
		}
		if _, err := pointFromBytes(compressed); err != nil {
			return err
		}
		if err := compute.setScratchPoint(point, compressed); err != nil {
			return err
		}
		return compute.setTableEntry(point, 0, compressed)

	case OpBuildTable:
		point := int(ins.A)
		entry := int(ins.B)
		if entry < 2 || entry > LOOKUP_TABLE_ENTRIES {
			return fmt.Errorf("table entry %d out of range", entry)
		}
		baseBytes, err := compute.scratchPoint(point)
		if err != nil {
			return err
		}
		prevBytes, err := compute.tableEntry(point, entry-2)
		if err != nil {
			return err
		}
		base, err := pointFromBytes(baseBytes)
		if err != nil {
			return err
		}
		prev, err := pointFromBytes(prevBytes)
		if err != nil {
			return err
		}
		var next ristretto.Point
		next.Add(prev, base)
		var out [32]byte
		copy(out[:], next.Bytes())
		return compute.setTableEntry(point, entry-1, out)

	case OpCopyScalar:
		scalar := int(ins.A)
		buf, err := input.ScalarBytes(scalar)
		if err != nil {
			return err
		}
		if _, err := scalarFromCanonicalBytes(buf); err != nil {
			return err
		}
		return compute.setScalarCopy(scalar, buf)

	case OpInitResult:
		var identity ristretto.Point
		identity.SetZero()
		var out [32]byte
		copy(out[:], identity.Bytes())
		return compute.setAccumulator(int(ins.A), out)

	case OpMultStep:
		return executeMultStep(compute, int(ins.A), int(ins.B))
	}
	return fmt.Errorf("unknown opcode %d", ins.Op)
}

// executeMultStep performs one radix-16 Horner iteration for a proof
// group: acc = 16*acc + sum(digit_i * point_i), digits taken from most
// significant to least.
func executeMultStep(compute *ComputeBuffer, group, iter int) error {
	if group < 0 || group >= STATEMENT_GROUPS {
		return fmt.Errorf("proof group %d out of range", group)
	}
	if iter < 0 || iter >= MULT_ITERATIONS {
		return fmt.Errorf("multiplication iteration %d out of range", iter)
	}

	accBytes, err := compute.accumulator(group)
	if err != nil {
		return err
	}
	acc, err := pointFromBytes(accBytes)
	if err != nil {
		return err
	}
	var scaled ristretto.Point
	scaled.ScalarMult(acc, uint64ToScalar(16))

	digit := MULT_ITERATIONS - 1 - iter
	for i := statementGroupOffsets[group]; i < statementGroupOffsets[group+1]; i++ {
		scalarBytes, err := compute.scalarCopy(i)
		if err != nil {
			return err
		}
		d := signedRadix16(scalarBytes)[digit]
		if d == 0 {
			continue
		}
		abs := int(d)
		if abs < 0 {
			abs = -abs
		}
		entryBytes, err := compute.tableEntry(i, abs-1)
		if err != nil {
			return err
		}
		entry, err := pointFromBytes(entryBytes)
		if err != nil {
			return err
		}
		if d < 0 {
			entry = negPoint(entry)
		}
		scaled.Add(&scaled, entry)
	}

	var out [32]byte
	copy(out[:], scaled.Bytes())
	return compute.setAccumulator(group, out)
}

// verifyComputeResult checks a completed run: every proof group must
// have accumulated to the identity.
func verifyComputeResult(compute *ComputeBuffer) error {
	if !compute.Done() || compute.StepCursor() != DSL_INSTRUCTION_COUNT {
		return fmt.Errorf("cursor %d of %d: %w", compute.StepCursor(), DSL_INSTRUCTION_COUNT, ErrNotReady)
	}
	var identity ristretto.Point
	identity.SetZero()
	var identityBytes [32]byte
	copy(identityBytes[:], identity.Bytes())

	for group := 0; group < STATEMENT_GROUPS; group++ {
		acc, err := compute.accumulator(group)
		if err != nil {
			return err
		}
		if acc != identityBytes {
			return fmt.Errorf("proof group %d: %w", group, ErrProofFailed)
		}
	}
	return nil
}
