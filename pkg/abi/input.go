// Package abi implements the serialized parameter layout the host passes
// to a program through the input region.
//
// Layout:
//   - num_accounts (8 bytes, u64)
//   - For each account:
//   - duplicate marker (1 byte, 0xff if duplicate, else account index)
//   - is_signer (1 byte)
//   - is_writable (1 byte)
//   - executable (1 byte)
//   - padding (4 bytes)
//   - key (32 bytes)
//   - owner (32 bytes)
//   - lamports (8 bytes, u64)
//   - data_len (8 bytes, u64)
//   - data (data_len bytes)
//   - padding to 8-byte alignment
//   - rent_epoch (8 bytes, u64)
//   - instruction_data_len (8 bytes, u64)
//   - instruction_data
//   - program_id (32 bytes)
package abi

import (
	"encoding/binary"
	"errors"

	"github.com/fortiblox/sandvm/internal/types"
)

// ErrInvalidAccountData is returned when the output buffer is truncated.
var ErrInvalidAccountData = errors.New("invalid account data")

// AccountInfo holds one account passed to a program.
type AccountInfo struct {
	// Key is the account public key.
	Key types.Pubkey

	// Owner is the program that owns this account.
	Owner types.Pubkey

	// Lamports is the account balance.
	Lamports uint64

	// Data is the account data.
	Data []byte

	// Executable indicates if this is a program account.
	Executable bool

	// RentEpoch is the rent epoch.
	RentEpoch uint64

	// IsSigner indicates if this account signed the transaction.
	IsSigner bool

	// IsWritable indicates if this account can be modified.
	IsWritable bool

	// originalData stores the original data for change detection.
	originalData []byte

	// originalLamports stores the original lamports.
	originalLamports uint64
}

// MarkOriginal marks the current state as original for change detection.
func (a *AccountInfo) MarkOriginal() {
	a.originalData = make([]byte, len(a.Data))
	copy(a.originalData, a.Data)
	a.originalLamports = a.Lamports
}

// IsModified returns true if the account has been modified.
func (a *AccountInfo) IsModified() bool {
	if a.Lamports != a.originalLamports {
		return true
	}
	if len(a.Data) != len(a.originalData) {
		return true
	}
	for i := range a.Data {
		if a.Data[i] != a.originalData[i] {
			return true
		}
	}
	return false
}

// Serialize builds the input buffer for a program invocation. Each account
// is marked original as a side effect, so changes written back by the
// program are detectable after DeserializeOutput.
func Serialize(programID types.Pubkey, accounts []*AccountInfo, data []byte) ([]byte, error) {
	size := 8 // num_accounts

	for _, acc := range accounts {
		acc.MarkOriginal()

		accountSize := 1 + 1 + 1 + 1 + 4 + 32 + 32 + 8 + 8 + len(acc.Data)
		accountSize += pad8(len(acc.Data))
		accountSize += 8 // rent_epoch
		size += accountSize
	}

	size += 8 + len(data) + 32 // instruction data + program_id

	buf := make([]byte, size)
	offset := 0

	binary.LittleEndian.PutUint64(buf[offset:], uint64(len(accounts)))
	offset += 8

	for i, acc := range accounts {
		buf[offset] = byte(i) // Non-duplicate
		offset++

		if acc.IsSigner {
			buf[offset] = 1
		}
		offset++

		if acc.IsWritable {
			buf[offset] = 1
		}
		offset++

		if acc.Executable {
			buf[offset] = 1
		}
		offset++

		// Padding
		offset += 4

		copy(buf[offset:], acc.Key[:])
		offset += 32

		copy(buf[offset:], acc.Owner[:])
		offset += 32

		binary.LittleEndian.PutUint64(buf[offset:], acc.Lamports)
		offset += 8

		binary.LittleEndian.PutUint64(buf[offset:], uint64(len(acc.Data)))
		offset += 8

		copy(buf[offset:], acc.Data)
		offset += len(acc.Data)

		offset += pad8(len(acc.Data))

		binary.LittleEndian.PutUint64(buf[offset:], acc.RentEpoch)
		offset += 8
	}

	binary.LittleEndian.PutUint64(buf[offset:], uint64(len(data)))
	offset += 8

	copy(buf[offset:], data)
	offset += len(data)

	copy(buf[offset:], programID[:])

	return buf, nil
}

// DeserializeOutput reads writable-account changes out of the input buffer
// after a program run and applies them to accounts. Programs may change
// lamports and data bytes; data length is fixed by the serialized layout.
func DeserializeOutput(inputData []byte, accounts []*AccountInfo) error {
	offset := 8 // Skip num_accounts

	for _, acc := range accounts {
		dataLen := len(acc.Data)

		if !acc.IsWritable {
			offset += 1 + 1 + 1 + 1 + 4 + 32 + 32 + 8 + 8 + dataLen
			offset += pad8(dataLen) + 8
			continue
		}

		// Skip to lamports field
		offset += 1 + 1 + 1 + 1 + 4 + 32 + 32

		if offset+8 > len(inputData) {
			return ErrInvalidAccountData
		}
		acc.Lamports = binary.LittleEndian.Uint64(inputData[offset:])
		offset += 8

		if offset+8 > len(inputData) {
			return ErrInvalidAccountData
		}
		storedLen := binary.LittleEndian.Uint64(inputData[offset:])
		offset += 8

		if storedLen != uint64(dataLen) {
			return ErrInvalidAccountData
		}
		if offset+dataLen > len(inputData) {
			return ErrInvalidAccountData
		}
		copy(acc.Data, inputData[offset:offset+dataLen])
		offset += dataLen

		offset += pad8(dataLen)

		if offset+8 > len(inputData) {
			return ErrInvalidAccountData
		}
		acc.RentEpoch = binary.LittleEndian.Uint64(inputData[offset:])
		offset += 8
	}

	return nil
}

// ModifiedAccounts returns the pubkeys of writable accounts whose state
// changed since Serialize.
func ModifiedAccounts(accounts []*AccountInfo) []types.Pubkey {
	modified := make([]types.Pubkey, 0)
	for _, acc := range accounts {
		if acc.IsWritable && acc.IsModified() {
			modified = append(modified, acc.Key)
		}
	}
	return modified
}

// pad8 returns the padding needed to bring n to 8-byte alignment.
func pad8(n int) int {
	return (8 - (n % 8)) % 8
}
