package sdk

import (
	"errors"
	"fmt"

	"github.com/fortiblox/sandvm/internal/types"
	"github.com/fortiblox/sandvm/pkg/host"
)

// Deserialization errors.
var (
	ErrInvalidInput     = errors.New("invalid input buffer")
	ErrDuplicateAccount = errors.New("duplicate accounts not supported")
)

// Account is a program's view of one passed account.
type Account struct {
	// Key is the account public key.
	Key types.Pubkey

	// Owner is the program that owns this account.
	Owner types.Pubkey

	// Lamports is the account balance.
	Lamports uint64

	// RentEpoch is the rent epoch.
	RentEpoch uint64

	// IsSigner indicates if this account signed the transaction.
	IsSigner bool

	// IsWritable indicates if this account can be modified.
	IsWritable bool

	// Executable indicates if this is a program account.
	Executable bool

	// Data is a copy of the account data.
	Data []byte

	// DataAddr is the virtual address of the data inside the input
	// region. Writable accounts are updated in place through it.
	DataAddr uint64

	// LamportsAddr is the virtual address of the lamports field.
	LamportsAddr uint64
}

// Params holds the deserialized program parameters.
type Params struct {
	// ProgramID is the address of the executing program.
	ProgramID types.Pubkey

	// Accounts are the accounts passed to the program.
	Accounts []Account

	// Data is the instruction data.
	Data []byte
}

// Deserialize parses the serialized parameters at the given input-region
// address, the way the C SDK's deserialize helper walks the same layout.
func Deserialize(m *host.Machine, input uint64) (*Params, error) {
	numAccounts, err := m.Read64(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	offset := input + 8

	params := &Params{
		Accounts: make([]Account, 0, numAccounts),
	}

	for i := uint64(0); i < numAccounts; i++ {
		var header [8]byte
		if err := m.Read(offset, header[:]); err != nil {
			return nil, fmt.Errorf("%w: account %d header: %v", ErrInvalidInput, i, err)
		}
		if header[0] == 0xFF {
			return nil, ErrDuplicateAccount
		}
		offset += 8

		var acc Account
		acc.IsSigner = header[1] != 0
		acc.IsWritable = header[2] != 0
		acc.Executable = header[3] != 0

		if err := m.Read(offset, acc.Key[:]); err != nil {
			return nil, fmt.Errorf("%w: account %d key: %v", ErrInvalidInput, i, err)
		}
		offset += 32

		if err := m.Read(offset, acc.Owner[:]); err != nil {
			return nil, fmt.Errorf("%w: account %d owner: %v", ErrInvalidInput, i, err)
		}
		offset += 32

		acc.LamportsAddr = offset
		if acc.Lamports, err = m.Read64(offset); err != nil {
			return nil, fmt.Errorf("%w: account %d lamports: %v", ErrInvalidInput, i, err)
		}
		offset += 8

		dataLen, err := m.Read64(offset)
		if err != nil {
			return nil, fmt.Errorf("%w: account %d data length: %v", ErrInvalidInput, i, err)
		}
		offset += 8

		acc.DataAddr = offset
		acc.Data = make([]byte, dataLen)
		if err := m.Read(offset, acc.Data); err != nil {
			return nil, fmt.Errorf("%w: account %d data: %v", ErrInvalidInput, i, err)
		}
		offset += dataLen
		offset += (8 - (dataLen % 8)) % 8

		if acc.RentEpoch, err = m.Read64(offset); err != nil {
			return nil, fmt.Errorf("%w: account %d rent epoch: %v", ErrInvalidInput, i, err)
		}
		offset += 8

		params.Accounts = append(params.Accounts, acc)
	}

	dataLen, err := m.Read64(offset)
	if err != nil {
		return nil, fmt.Errorf("%w: instruction data length: %v", ErrInvalidInput, err)
	}
	offset += 8

	params.Data = make([]byte, dataLen)
	if err := m.Read(offset, params.Data); err != nil {
		return nil, fmt.Errorf("%w: instruction data: %v", ErrInvalidInput, err)
	}
	offset += dataLen

	if err := m.Read(offset, params.ProgramID[:]); err != nil {
		return nil, fmt.Errorf("%w: program id: %v", ErrInvalidInput, err)
	}

	return params, nil
}
