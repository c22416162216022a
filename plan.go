package stealth

import "fmt"

// The crank plan partitions the DSL's operation count into
// invocation-sized batches respecting the compute budget. The shape is
// fixed; a mismatch against the declared instruction count is a
// structural bug and is rejected before any buffer is created.

const (
	// Total invocations for the fixed plan.
	CRANK_INVOCATIONS = 26

	// Documented per-invocation budget request.
	DEFAULT_CRANK_BUDGET = 1_000_000
)

type CrankBatch struct {
	Ops    int
	Budget uint64
}

type CrankPlan struct {
	Batches []CrankBatch
}

// NewCrankPlan builds the batch plan with the given per-invocation
// budget request:
//   - five batches of 16 ops, each decompressing two input points and
//     building their lookup tables
//   - one batch of 22 ops: the last decompression plus all scalar copies
//     and result initializations
//   - two 64-op multiplication groups split 5x11+9
//   - the final 5-point group as eight batches of 8
func NewCrankPlan(budget uint64) (*CrankPlan, error) {
	var counts []int
	for g := 0; g < 5; g++ {
		counts = append(counts, 2*OPS_PER_POINT)
	}
	counts = append(counts, OPS_PER_POINT+STATEMENT_SCALARS+STATEMENT_GROUPS)
	for g := 0; g < 2; g++ {
		for f := 0; f < 5; f++ {
			counts = append(counts, 11)
		}
		counts = append(counts, 9)
	}
	for g := 0; g < 8; g++ {
		counts = append(counts, 8)
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	if total != DSL_INSTRUCTION_COUNT {
		return nil, fmt.Errorf("plan covers %d of %d ops: %w", total, DSL_INSTRUCTION_COUNT, ErrStepCountMismatch)
	}
	if len(counts) != CRANK_INVOCATIONS {
		return nil, fmt.Errorf("plan has %d of %d invocations: %w", len(counts), CRANK_INVOCATIONS, ErrStepCountMismatch)
	}

	plan := &CrankPlan{Batches: make([]CrankBatch, len(counts))}
	for i, c := range counts {
		plan.Batches[i] = CrankBatch{Ops: c, Budget: budget}
	}
	return plan, nil
}

// BatchStart returns the step cursor at which the batch begins.
func (plan *CrankPlan) BatchStart(index int) (int, error) {
	if index < 0 || index >= len(plan.Batches) {
		return 0, fmt.Errorf("batch %d out of range", index)
	}
	start := 0
	for i := 0; i < index; i++ {
		start += plan.Batches[i].Ops
	}
	return start, nil
}
