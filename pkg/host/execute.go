package host

import (
	"fmt"

	"github.com/fortiblox/sandvm/internal/types"
	"github.com/fortiblox/sandvm/pkg/abi"
)

// Program is a sandboxed program entrypoint. The machine carries the
// program's address space and syscall surface; input is the virtual address
// of the serialized parameters.
type Program interface {
	Entrypoint(m *Machine, input uint64) (uint64, error)
}

// ProgramFunc is a function that implements Program.
type ProgramFunc func(m *Machine, input uint64) (uint64, error)

// Entrypoint implements Program.
func (f ProgramFunc) Entrypoint(m *Machine, input uint64) (uint64, error) {
	return f(m, input)
}

// ExecutionResult contains the result of one program run.
type ExecutionResult struct {
	// Success indicates if execution succeeded.
	Success bool

	// ReturnValue is the entrypoint's r0 value.
	ReturnValue uint64

	// Error contains the error message if execution failed.
	Error string

	// ComputeUnitsUsed is the compute units consumed.
	ComputeUnitsUsed uint64

	// Logs contains program log messages.
	Logs []string

	// ReturnData is the program return data.
	ReturnData []byte

	// ModifiedAccounts contains the pubkeys of modified accounts.
	ModifiedAccounts []types.Pubkey
}

// Execute serializes the parameters, runs the program on a fresh machine,
// and collects the results. Writable-account changes made through the input
// region are read back out on success.
func Execute(prog Program, programID types.Pubkey, accounts []*abi.AccountInfo, data []byte, computeLimit uint64) (*ExecutionResult, error) {
	inputData, err := abi.Serialize(programID, accounts, data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize input: %w", err)
	}

	m := NewMachine(inputData, Config{
		ProgramID:    programID,
		ComputeLimit: computeLimit,
	})

	r0, execErr := prog.Entrypoint(m, VaddrInput)

	_, returnData := m.ReturnData()
	result := &ExecutionResult{
		Success:          execErr == nil && r0 == 0,
		ReturnValue:      r0,
		ComputeUnitsUsed: m.meter.Consumed(),
		Logs:             m.logs,
		ReturnData:       returnData,
	}

	if execErr != nil {
		result.Error = execErr.Error()
	} else if r0 != 0 {
		result.Error = fmt.Sprintf("program returned error code %d", r0)
	}

	if result.Success {
		if err := abi.DeserializeOutput(inputData, accounts); err != nil {
			result.Success = false
			result.Error = fmt.Sprintf("failed to deserialize output: %v", err)
		} else {
			result.ModifiedAccounts = abi.ModifiedAccounts(accounts)
		}
	}

	return result, nil
}
