package stealth

// Initiator-side flows for the slow path, run off the hot path.

// DSL_WRITE_CHUNK is the chunk size used when populating the
// instruction buffer across multiple invocations.
const DSL_WRITE_CHUNK = 800

// PopulateTransferProofDSL allocates the shared instruction buffer and
// writes the proof-check program into it in bounded chunks. The buffer
// is reused by every transfer afterwards.
func PopulateTransferProofDSL(e *Engine, payer, instructionKey Pubkey) error {
	if err := e.InitBuffer(payer, instructionKey, InstructionBufferV1); err != nil {
		return err
	}
	for offset := 0; offset < len(DSLInstructionBytes); offset += DSL_WRITE_CHUNK {
		end := offset + DSL_WRITE_CHUNK
		if end > len(DSLInstructionBytes) {
			end = len(DSLInstructionBytes)
		}
		final := end == len(DSLInstructionBytes)
		if err := e.WriteBytes(payer, instructionKey, offset, DSLInstructionBytes[offset:end], final); err != nil {
			return err
		}
	}
	return nil
}

// TransferChunkSlowProof builds the proof state consumed by
// TransferChunkSlow: it allocates the input and compute buffers, writes
// this transfer's statement, and issues every scheduled crank batch in
// order. It assumes the instruction buffer was already populated with
// PopulateTransferProofDSL.
func TransferChunkSlowProof(e *Engine, payer, instructionKey, inputKey, computeKey Pubkey, transfer *TransferData, plan *CrankPlan) error {
	statement, err := transfer.BuildStatement()
	if err != nil {
		return err
	}

	if err := e.InitBuffer(payer, inputKey, InputBufferV1); err != nil {
		return err
	}
	if err := e.InitBuffer(payer, computeKey, ComputeBufferV1, instructionKey, inputKey); err != nil {
		return err
	}
	if err := e.WriteInputBuffer(payer, inputKey, statement); err != nil {
		return err
	}

	for batch := range plan.Batches {
		if err := e.CrankCompute(payer, instructionKey, inputKey, computeKey, plan, batch); err != nil {
			return err
		}
	}
	return nil
}
