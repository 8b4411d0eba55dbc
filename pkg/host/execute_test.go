package host

import (
	"errors"
	"testing"

	"github.com/fortiblox/sandvm/internal/types"
	"github.com/fortiblox/sandvm/pkg/abi"
)

// TestExecuteSuccess tests the full execute flow with a trivial program.
func TestExecuteSuccess(t *testing.T) {
	programID := types.DerivedAddress("test:trivial")
	prog := ProgramFunc(func(m *Machine, input uint64) (uint64, error) {
		if input != VaddrInput {
			t.Errorf("input = 0x%x, want 0x%x", input, VaddrInput)
		}
		if _, err := m.Call("sand_log_64_", 1, 2, 3, 4, 5); err != nil {
			return 1, err
		}
		return 0, nil
	})

	result, err := Execute(prog, programID, nil, []byte{1, 2, 3}, 0)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !result.Success {
		t.Errorf("Success = false, error %q", result.Error)
	}
	if len(result.Logs) != 1 {
		t.Errorf("len(Logs) = %d, want 1", len(result.Logs))
	}
	if result.ComputeUnitsUsed == 0 {
		t.Error("ComputeUnitsUsed = 0, want > 0")
	}
}

// TestExecuteErrorCode tests a program returning a nonzero r0.
func TestExecuteErrorCode(t *testing.T) {
	prog := ProgramFunc(func(m *Machine, input uint64) (uint64, error) {
		return 7, nil
	})

	result, err := Execute(prog, types.Pubkey{}, nil, nil, 0)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if result.Success {
		t.Error("Success = true, want false")
	}
	if result.ReturnValue != 7 {
		t.Errorf("ReturnValue = %d, want 7", result.ReturnValue)
	}
	if result.Error == "" {
		t.Error("Error is empty, want error code message")
	}
}

// TestExecuteFailure tests a program that errors out.
func TestExecuteFailure(t *testing.T) {
	prog := ProgramFunc(func(m *Machine, input uint64) (uint64, error) {
		return 0, errors.New("boom")
	})

	result, err := Execute(prog, types.Pubkey{}, nil, nil, 0)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if result.Success {
		t.Error("Success = true, want false")
	}
	if result.Error != "boom" {
		t.Errorf("Error = %q, want %q", result.Error, "boom")
	}
}

// TestExecuteAccountWriteback tests that in-place account changes flow back
// to the caller.
func TestExecuteAccountWriteback(t *testing.T) {
	account := &abi.AccountInfo{
		Key:        types.DerivedAddress("test:account"),
		Lamports:   10,
		Data:       make([]byte, 16),
		IsWritable: true,
	}

	// The account data of the first account starts 8 (count) + 8 (header)
	// + 32 (key) + 32 (owner) + 8 (lamports) + 8 (data_len) bytes in.
	const dataOffset = uint64(8 + 8 + 32 + 32 + 8 + 8)

	prog := ProgramFunc(func(m *Machine, input uint64) (uint64, error) {
		if _, err := m.Call("sand_memset_", input+dataOffset, 0x7E, 16, 0, 0); err != nil {
			return 1, err
		}
		return 0, nil
	})

	result, err := Execute(prog, types.Pubkey{}, []*abi.AccountInfo{account}, nil, 0)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("Success = false, error %q", result.Error)
	}

	for i, b := range account.Data {
		if b != 0x7E {
			t.Fatalf("Data[%d] = 0x%02x, want 0x7E", i, b)
		}
	}
	if len(result.ModifiedAccounts) != 1 || !result.ModifiedAccounts[0].Equals(account.Key) {
		t.Errorf("ModifiedAccounts = %v, want [%s]", result.ModifiedAccounts, account.Key)
	}
}

// TestExecuteComputeLimit tests that the configured budget binds.
func TestExecuteComputeLimit(t *testing.T) {
	prog := ProgramFunc(func(m *Machine, input uint64) (uint64, error) {
		for {
			if _, err := m.Call("sand_log_64_", 0, 0, 0, 0, 0); err != nil {
				return 0, err
			}
		}
	})

	result, err := Execute(prog, types.Pubkey{}, nil, nil, 500)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if result.Success {
		t.Error("Success = true, want false")
	}
	if result.ComputeUnitsUsed != 500 {
		t.Errorf("ComputeUnitsUsed = %d, want 500", result.ComputeUnitsUsed)
	}
}
