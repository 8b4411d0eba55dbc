package sdk

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/fortiblox/sandvm/internal/types"
	"github.com/fortiblox/sandvm/pkg/abi"
	"github.com/fortiblox/sandvm/pkg/host"
)

func newTestMachine(t *testing.T, accounts []*abi.AccountInfo, data []byte) *host.Machine {
	t.Helper()
	programID := types.DerivedAddress("sdk-test:program")
	input, err := abi.Serialize(programID, accounts, data)
	if err != nil {
		t.Fatalf("Serialize() failed: %v", err)
	}
	return host.NewMachine(input, host.Config{ProgramID: programID})
}

// TestAllocFree tests heap allocation through the syscall wrapper.
func TestAllocFree(t *testing.T) {
	m := newTestMachine(t, nil, nil)

	addr, err := Alloc(m, 32)
	if err != nil {
		t.Fatalf("Alloc() failed: %v", err)
	}
	if addr%32 != 0 {
		t.Errorf("addr = 0x%x, want 32-byte aligned", addr)
	}
	if err := Free(m, addr); err != nil {
		t.Errorf("Free() failed: %v", err)
	}

	// The whole heap is more than the allocator can serve.
	if _, err := Alloc(m, 1<<40); err != ErrOutOfMemory {
		t.Errorf("Alloc(1<<40) = %v, want ErrOutOfMemory", err)
	}
}

// TestLog tests message staging and logging.
func TestLog(t *testing.T) {
	m := newTestMachine(t, nil, nil)

	if err := Log(m, "hello sandbox"); err != nil {
		t.Fatalf("Log() failed: %v", err)
	}

	logs := m.Logs()
	if len(logs) != 1 || logs[0] != "Program log: hello sandbox" {
		t.Errorf("Logs() = %v, want one hello line", logs)
	}
}

// TestReturnDataRoundTrip tests set/get through the wrappers.
func TestReturnDataRoundTrip(t *testing.T) {
	m := newTestMachine(t, nil, nil)
	payload := []byte("some return data")

	if err := SetReturnData(m, payload); err != nil {
		t.Fatalf("SetReturnData() failed: %v", err)
	}

	data, setter, err := GetReturnData(m)
	if err != nil {
		t.Fatalf("GetReturnData() failed: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("data = %q, want %q", data, payload)
	}
	if !setter.Equals(m.ProgramID()) {
		t.Errorf("setter = %s, want %s", setter, m.ProgramID())
	}
}

// TestReturnDataEmpty tests the empty round trip.
func TestReturnDataEmpty(t *testing.T) {
	m := newTestMachine(t, nil, nil)

	if err := SetReturnData(m, nil); err != nil {
		t.Fatalf("SetReturnData(nil) failed: %v", err)
	}
	data, _, err := GetReturnData(m)
	if err != nil {
		t.Fatalf("GetReturnData() failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("len(data) = %d, want 0", len(data))
	}
}

// TestMemWrappers tests the memory syscall wrappers end to end.
func TestMemWrappers(t *testing.T) {
	m := newTestMachine(t, nil, nil)

	a, err := Alloc(m, 16)
	if err != nil {
		t.Fatalf("Alloc() failed: %v", err)
	}
	b, err := Alloc(m, 16)
	if err != nil {
		t.Fatalf("Alloc() failed: %v", err)
	}

	if err := Memset(m, a, 0x11, 16); err != nil {
		t.Fatalf("Memset() failed: %v", err)
	}
	if err := Memcpy(m, b, a, 16); err != nil {
		t.Fatalf("Memcpy() failed: %v", err)
	}

	diff, err := Memcmp(m, a, b, 16)
	if err != nil {
		t.Fatalf("Memcmp() failed: %v", err)
	}
	if diff != 0 {
		t.Errorf("Memcmp() = %d, want 0", diff)
	}

	if err := Memset(m, b, 0x22, 1); err != nil {
		t.Fatalf("Memset() failed: %v", err)
	}
	diff, err = Memcmp(m, a, b, 16)
	if err != nil {
		t.Fatalf("Memcmp() failed: %v", err)
	}
	if diff == 0 {
		t.Error("Memcmp() = 0 after modification, want nonzero")
	}

	if err := Memmove(m, a, a, 16); err != nil {
		t.Fatalf("Memmove() failed: %v", err)
	}
}

// TestHashWrappers tests staged vector hashing.
func TestHashWrappers(t *testing.T) {
	m := newTestMachine(t, nil, nil)
	want := sha256.Sum256([]byte("abcdef"))

	got, err := Sha256(m, []byte("abc"), []byte("def"))
	if err != nil {
		t.Fatalf("Sha256() failed: %v", err)
	}
	if got != want {
		t.Errorf("Sha256() = %x, want %x", got, want)
	}

	if _, err := Keccak256(m, []byte("abc")); err != nil {
		t.Errorf("Keccak256() failed: %v", err)
	}
	if _, err := Blake3(m, []byte("abc")); err != nil {
		t.Errorf("Blake3() failed: %v", err)
	}
}

// TestDeserialize tests parsing the serialized parameters.
func TestDeserialize(t *testing.T) {
	acc := &abi.AccountInfo{
		Key:        types.DerivedAddress("sdk-test:acc-key"),
		Owner:      types.DerivedAddress("sdk-test:acc-owner"),
		Lamports:   42,
		Data:       []byte{1, 2, 3, 4, 5},
		RentEpoch:  9,
		IsSigner:   true,
		IsWritable: true,
	}
	instr := []byte("instruction payload")
	m := newTestMachine(t, []*abi.AccountInfo{acc}, instr)

	params, err := Deserialize(m, host.VaddrInput)
	if err != nil {
		t.Fatalf("Deserialize() failed: %v", err)
	}

	if !params.ProgramID.Equals(m.ProgramID()) {
		t.Errorf("ProgramID = %s, want %s", params.ProgramID, m.ProgramID())
	}
	if !bytes.Equal(params.Data, instr) {
		t.Errorf("Data = %q, want %q", params.Data, instr)
	}
	if len(params.Accounts) != 1 {
		t.Fatalf("len(Accounts) = %d, want 1", len(params.Accounts))
	}

	got := params.Accounts[0]
	if !got.Key.Equals(acc.Key) {
		t.Errorf("Key = %s, want %s", got.Key, acc.Key)
	}
	if !got.Owner.Equals(acc.Owner) {
		t.Errorf("Owner = %s, want %s", got.Owner, acc.Owner)
	}
	if got.Lamports != 42 {
		t.Errorf("Lamports = %d, want 42", got.Lamports)
	}
	if got.RentEpoch != 9 {
		t.Errorf("RentEpoch = %d, want 9", got.RentEpoch)
	}
	if !got.IsSigner || !got.IsWritable || got.Executable {
		t.Errorf("flags = signer %v writable %v executable %v", got.IsSigner, got.IsWritable, got.Executable)
	}
	if !bytes.Equal(got.Data, acc.Data) {
		t.Errorf("Data = %v, want %v", got.Data, acc.Data)
	}

	// DataAddr points into the input region at the live account data.
	probe := make([]byte, len(acc.Data))
	if err := m.Read(got.DataAddr, probe); err != nil {
		t.Fatalf("Read(DataAddr) failed: %v", err)
	}
	if !bytes.Equal(probe, acc.Data) {
		t.Errorf("input at DataAddr = %v, want %v", probe, acc.Data)
	}
}

// TestDeserializeNoAccounts tests the account-free layout.
func TestDeserializeNoAccounts(t *testing.T) {
	m := newTestMachine(t, nil, []byte{7})

	params, err := Deserialize(m, host.VaddrInput)
	if err != nil {
		t.Fatalf("Deserialize() failed: %v", err)
	}
	if len(params.Accounts) != 0 {
		t.Errorf("len(Accounts) = %d, want 0", len(params.Accounts))
	}
	if !bytes.Equal(params.Data, []byte{7}) {
		t.Errorf("Data = %v, want [7]", params.Data)
	}
}
