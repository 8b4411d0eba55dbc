// Package memdemo implements the memory demonstration program.
//
// It allocates heap buffers through sand_alloc_free_ and runs the memory
// syscalls over them: fill, copy, overlapping move, and compare. When a
// writable account is passed, it also fills that account's data in place to
// show account updates flowing back to the host.
package memdemo

import (
	"bytes"

	"github.com/fortiblox/sandvm/internal/types"
	"github.com/fortiblox/sandvm/pkg/host"
	"github.com/fortiblox/sandvm/pkg/sdk"
)

// ProgramID is the memdemo program address.
var ProgramID = types.MemDemoProgramAddr

// Error codes returned in r0.
const (
	codeCompareMismatch = uint64(1)
	codeMoveMismatch    = uint64(2)
)

const bufSize = uint64(64)

// Program is the memdemo program.
type Program struct{}

// Entrypoint implements host.Program.
func (Program) Entrypoint(m *host.Machine, input uint64) (uint64, error) {
	params, err := sdk.Deserialize(m, input)
	if err != nil {
		return 1, err
	}

	a, err := sdk.Alloc(m, bufSize)
	if err != nil {
		return 1, err
	}
	b, err := sdk.Alloc(m, bufSize)
	if err != nil {
		return 1, err
	}

	// Fill, copy, compare.
	if err := sdk.Memset(m, a, 0xA5, bufSize); err != nil {
		return 1, err
	}
	if err := sdk.Memcpy(m, b, a, bufSize); err != nil {
		return 1, err
	}
	diff, err := sdk.Memcmp(m, a, b, bufSize)
	if err != nil {
		return 1, err
	}
	if diff != 0 {
		return codeCompareMismatch, nil
	}

	// Overlapping move within one buffer.
	if err := m.Write(a, []byte("abcdefgh")); err != nil {
		return 1, err
	}
	if err := sdk.Memmove(m, a, a+2, 6); err != nil {
		return 1, err
	}
	moved := make([]byte, 8)
	if err := m.Read(a, moved); err != nil {
		return 1, err
	}
	if !bytes.Equal(moved, []byte("cdefghgh")) {
		return codeMoveMismatch, nil
	}

	// Fill the first writable account's data in place.
	fill := byte(0x42)
	if len(params.Data) > 0 {
		fill = params.Data[0]
	}
	for _, acc := range params.Accounts {
		if !acc.IsWritable || len(acc.Data) == 0 {
			continue
		}
		if err := sdk.Memset(m, acc.DataAddr, fill, uint64(len(acc.Data))); err != nil {
			return 1, err
		}
		break
	}

	if err := sdk.Free(m, a); err != nil {
		return 1, err
	}
	if err := sdk.Log(m, "memory checks passed"); err != nil {
		return 1, err
	}

	return 0, nil
}
