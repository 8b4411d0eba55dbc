// Package echo implements the return-data demonstration program.
//
// It deserializes its parameters, sets the instruction data as return data
// via sand_set_return_data, and reads it back via sand_get_return_data to
// confirm the round trip.
package echo

import (
	"github.com/fortiblox/sandvm/internal/types"
	"github.com/fortiblox/sandvm/pkg/host"
	"github.com/fortiblox/sandvm/pkg/sdk"
)

// ProgramID is the echo program address.
var ProgramID = types.EchoProgramAddr

// Error codes returned in r0.
const (
	codeRoundTripMismatch = uint64(1)
	codeWrongSetter       = uint64(2)
)

// Program is the echo program.
type Program struct{}

// Entrypoint implements host.Program.
func (Program) Entrypoint(m *host.Machine, input uint64) (uint64, error) {
	params, err := sdk.Deserialize(m, input)
	if err != nil {
		return 1, err
	}

	if err := sdk.SetReturnData(m, params.Data); err != nil {
		return 1, err
	}

	data, setter, err := sdk.GetReturnData(m)
	if err != nil {
		return 1, err
	}
	if len(data) != len(params.Data) {
		return codeRoundTripMismatch, nil
	}
	for i := range data {
		if data[i] != params.Data[i] {
			return codeRoundTripMismatch, nil
		}
	}
	if !setter.Equals(params.ProgramID) {
		return codeWrongSetter, nil
	}

	return 0, nil
}
