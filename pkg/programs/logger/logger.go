// Package logger implements the logging demonstration program.
//
// It exercises the logging syscall surface and nothing else: a greeting via
// sand_log_, the parameter counts via sand_log_64_, and the remaining
// compute budget via sand_log_compute_units_.
package logger

import (
	"github.com/fortiblox/sandvm/internal/types"
	"github.com/fortiblox/sandvm/pkg/host"
	"github.com/fortiblox/sandvm/pkg/sdk"
)

// ProgramID is the logger program address.
var ProgramID = types.LoggerProgramAddr

// Program is the logger program.
type Program struct{}

// Entrypoint implements host.Program.
func (Program) Entrypoint(m *host.Machine, input uint64) (uint64, error) {
	params, err := sdk.Deserialize(m, input)
	if err != nil {
		return 1, err
	}

	if err := sdk.Log(m, "Hello from the Sand VM"); err != nil {
		return 1, err
	}
	if err := sdk.Log64(m, uint64(len(params.Accounts)), uint64(len(params.Data)), 0, 0, 0); err != nil {
		return 1, err
	}
	if err := sdk.LogComputeUnits(m); err != nil {
		return 1, err
	}

	return 0, nil
}
