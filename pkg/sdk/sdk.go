// Package sdk provides the typed wrappers Sand VM sample programs use to
// reach the host syscall surface, mirroring the C program SDK headers.
//
// Byte arguments are staged in the program heap through the bump allocator
// before the syscall is invoked, so every wrapper goes through the same
// allocation path a compiled program would.
package sdk

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fortiblox/sandvm/internal/types"
	"github.com/fortiblox/sandvm/pkg/host"
)

// ErrOutOfMemory is returned when the bump allocator cannot serve a
// request. Callers should treat it as fatal for the current run.
var ErrOutOfMemory = errors.New("out of memory")

// Alloc allocates size bytes of zeroed heap memory and returns its virtual
// address.
func Alloc(m *host.Machine, size uint64) (uint64, error) {
	addr, err := m.Call("sand_alloc_free_", size, 0, 0, 0, 0)
	if err != nil {
		return 0, err
	}
	if addr == 0 {
		return 0, ErrOutOfMemory
	}
	return addr, nil
}

// Free releases memory returned by Alloc. The bump allocator makes this a
// no-op, but programs call it anyway so the allocation discipline reads the
// same as a hosted one.
func Free(m *host.Machine, addr uint64) error {
	_, err := m.Call("sand_alloc_free_", 0, addr, 0, 0, 0)
	return err
}

// stage copies data into freshly allocated heap memory and returns its
// virtual address. Zero-length data stages at the heap base; the address is
// never dereferenced for an empty argument.
func stage(m *host.Machine, data []byte) (uint64, error) {
	if len(data) == 0 {
		return host.VaddrHeap, nil
	}
	addr, err := Alloc(m, uint64(len(data)))
	if err != nil {
		return 0, err
	}
	if err := m.Write(addr, data); err != nil {
		return 0, err
	}
	return addr, nil
}

// Log logs a message.
func Log(m *host.Machine, msg string) error {
	addr, err := stage(m, []byte(msg))
	if err != nil {
		return err
	}
	_, err = m.Call("sand_log_", addr, uint64(len(msg)), 0, 0, 0)
	return err
}

// Log64 logs five 64-bit values.
func Log64(m *host.Machine, a, b, c, d, e uint64) error {
	_, err := m.Call("sand_log_64_", a, b, c, d, e)
	return err
}

// LogComputeUnits logs the remaining compute units.
func LogComputeUnits(m *host.Machine) error {
	_, err := m.Call("sand_log_compute_units_", 0, 0, 0, 0, 0)
	return err
}

// SetReturnData records data as the program's return data.
func SetReturnData(m *host.Machine, data []byte) error {
	addr, err := stage(m, data)
	if err != nil {
		return err
	}
	_, err = m.Call("sand_set_return_data", addr, uint64(len(data)), 0, 0, 0)
	return err
}

// GetReturnData reads back the current return data and the program that
// set it.
func GetReturnData(m *host.Machine) ([]byte, types.Pubkey, error) {
	var programID types.Pubkey

	dataAddr, err := Alloc(m, host.MaxReturnData)
	if err != nil {
		return nil, programID, err
	}
	idAddr, err := Alloc(m, types.PubkeySize)
	if err != nil {
		return nil, programID, err
	}

	n, err := m.Call("sand_get_return_data", dataAddr, host.MaxReturnData, idAddr, 0, 0)
	if err != nil {
		return nil, programID, err
	}
	if n > host.MaxReturnData {
		n = host.MaxReturnData
	}

	data := make([]byte, n)
	if err := m.Read(dataAddr, data); err != nil {
		return nil, programID, err
	}
	if err := m.Read(idAddr, programID[:]); err != nil {
		return nil, programID, err
	}
	return data, programID, nil
}

// Memcpy copies n bytes between non-overlapping virtual memory regions.
func Memcpy(m *host.Machine, dst, src, n uint64) error {
	_, err := m.Call("sand_memcpy_", dst, src, n, 0, 0)
	return err
}

// Memmove copies n bytes between possibly overlapping regions.
func Memmove(m *host.Machine, dst, src, n uint64) error {
	_, err := m.Call("sand_memmove_", dst, src, n, 0, 0)
	return err
}

// Memset fills n bytes at dst with the low 8 bits of c.
func Memset(m *host.Machine, dst uint64, c byte, n uint64) error {
	_, err := m.Call("sand_memset_", dst, uint64(c), n, 0, 0)
	return err
}

// Memcmp compares n bytes at two virtual addresses. The result is 0 on
// equality, nonzero otherwise.
func Memcmp(m *host.Machine, a, b, n uint64) (int32, error) {
	resultAddr, err := Alloc(m, 4)
	if err != nil {
		return 0, err
	}
	if _, err := m.Call("sand_memcmp_", a, b, n, resultAddr, 0); err != nil {
		return 0, err
	}

	var buf [4]byte
	if err := m.Read(resultAddr, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// hash stages the given slices as a (ptr, len) vector and invokes the named
// hashing syscall.
func hash(m *host.Machine, syscall string, data ...[]byte) ([32]byte, error) {
	var out [32]byte

	vecAddr, err := Alloc(m, uint64(16*len(data)))
	if err != nil {
		return out, err
	}
	for i, d := range data {
		addr, err := stage(m, d)
		if err != nil {
			return out, err
		}
		if err := m.Write64(vecAddr+uint64(i)*16, addr); err != nil {
			return out, err
		}
		if err := m.Write64(vecAddr+uint64(i)*16+8, uint64(len(d))); err != nil {
			return out, err
		}
	}

	resultAddr, err := Alloc(m, 32)
	if err != nil {
		return out, err
	}
	if _, err := m.Call(syscall, vecAddr, uint64(len(data)), resultAddr, 0, 0); err != nil {
		return out, err
	}
	if err := m.Read(resultAddr, out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// Sha256 hashes the concatenation of the given slices.
func Sha256(m *host.Machine, data ...[]byte) ([32]byte, error) {
	return hash(m, "sand_sha256", data...)
}

// Keccak256 hashes the concatenation of the given slices.
func Keccak256(m *host.Machine, data ...[]byte) ([32]byte, error) {
	return hash(m, "sand_keccak256", data...)
}

// Blake3 hashes the concatenation of the given slices.
func Blake3(m *host.Machine, data ...[]byte) ([32]byte, error) {
	return hash(m, "sand_blake3", data...)
}

// Panic aborts execution with a source location, like the C SDK's panic
// macro.
func Panic(m *host.Machine, file string, line, column uint64) error {
	addr, err := stage(m, []byte(file))
	if err != nil {
		return err
	}
	_, err = m.Call("sand_panic_", addr, uint64(len(file)), line, column, 0)
	if err != nil {
		return err
	}
	return fmt.Errorf("program panicked at %s:%d:%d", file, line, column)
}
