// Package host implements the host side of the Sand VM: the virtual
// address space a program sees, the syscall surface it calls into, and the
// compute meter that bounds its execution.
//
// Memory is organized into two regions:
//   - Heap  (0x300000000): read-write, managed by the bump allocator
//   - Input (0x400000000): serialized program parameters
//
// The input region is writable so programs can update the account data
// serialized into it; the executor reads those changes back out after a
// successful run.
package host

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fortiblox/sandvm/internal/types"
	"github.com/fortiblox/sandvm/pkg/mem"
)

// Virtual memory region base addresses.
const (
	VaddrHeap  = mem.HeapStart         // Heap memory
	VaddrInput = uint64(0x4_0000_0000) // Input parameters
)

// Errors.
var (
	ErrInvalidMemoryAccess = errors.New("invalid memory access")
	ErrUnknownSyscall      = errors.New("unknown syscall")
)

// Machine is a single program execution context. It owns the heap region,
// the serialized input buffer, the program's log and return data, and the
// compute meter. A Machine serves exactly one program run on one goroutine;
// nothing in it is synchronized.
type Machine struct {
	alloc    *mem.Allocator
	input    []byte
	meter    *Meter
	syscalls *Registry

	programID    types.Pubkey
	logs         []string
	returnData   []byte
	returnDataID types.Pubkey
}

// Config configures a Machine.
type Config struct {
	// ProgramID is the address of the executing program.
	ProgramID types.Pubkey

	// ComputeLimit is the compute unit budget. Zero means CUMax.
	ComputeLimit uint64

	// Syscalls overrides the default syscall registry.
	Syscalls *Registry
}

// NewMachine creates a machine with a fresh heap and the given serialized
// input buffer mapped at VaddrInput.
func NewMachine(input []byte, cfg Config) *Machine {
	limit := cfg.ComputeLimit
	if limit == 0 {
		limit = CUMax
	}
	registry := cfg.Syscalls
	if registry == nil {
		registry = NewRegistry()
	}

	return &Machine{
		alloc:     mem.NewAllocator(),
		input:     input,
		meter:     NewMeter(limit),
		syscalls:  registry,
		programID: cfg.ProgramID,
	}
}

// Translate converts a virtual address to a memory slice.
func (m *Machine) Translate(addr uint64, size uint64, write bool) ([]byte, error) {
	hi := addr >> 32
	lo := addr & 0xFFFFFFFF

	// Check for integer overflow in address calculation
	if size > 0 && lo > ^uint64(0)-size {
		return nil, fmt.Errorf("%w: address overflow at 0x%x (size %d)", ErrInvalidMemoryAccess, addr, size)
	}
	end := lo + size

	switch hi {
	case VaddrHeap >> 32:
		heap := m.alloc.Region()
		heapLen := uint64(len(heap))
		if end > heapLen || lo > end {
			return nil, fmt.Errorf("%w: heap access at 0x%x (size %d, heap size %d)", ErrInvalidMemoryAccess, addr, size, heapLen)
		}
		return heap[lo:end], nil

	case VaddrInput >> 32:
		inputLen := uint64(len(m.input))
		if end > inputLen || lo > end {
			return nil, fmt.Errorf("%w: input access at 0x%x (size %d, max %d)", ErrInvalidMemoryAccess, addr, size, inputLen)
		}
		return m.input[lo:end], nil

	default:
		return nil, fmt.Errorf("%w: unmapped region at 0x%x", ErrInvalidMemoryAccess, addr)
	}
}

// Read reads bytes from virtual memory.
func (m *Machine) Read(addr uint64, p []byte) error {
	buf, err := m.Translate(addr, uint64(len(p)), false)
	if err != nil {
		return err
	}
	copy(p, buf)
	return nil
}

// Read64 reads a 64-bit value from virtual memory (little-endian).
func (m *Machine) Read64(addr uint64) (uint64, error) {
	buf, err := m.Translate(addr, 8, false)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// Write writes bytes to virtual memory.
func (m *Machine) Write(addr uint64, p []byte) error {
	buf, err := m.Translate(addr, uint64(len(p)), true)
	if err != nil {
		return err
	}
	copy(buf, p)
	return nil
}

// Write32 writes a 32-bit value to virtual memory (little-endian).
func (m *Machine) Write32(addr uint64, x uint32) error {
	buf, err := m.Translate(addr, 4, true)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(buf, x)
	return nil
}

// Write64 writes a 64-bit value to virtual memory (little-endian).
func (m *Machine) Write64(addr uint64, x uint64) error {
	buf, err := m.Translate(addr, 8, true)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(buf, x)
	return nil
}

// Call invokes a syscall by name. Arguments follow the r1-r5 register
// convention; the result is the r0 value.
func (m *Machine) Call(name string, r1, r2, r3, r4, r5 uint64) (uint64, error) {
	fn, ok := m.syscalls.Get(Murmur3Hash(name))
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSyscall, name)
	}
	return fn(m, r1, r2, r3, r4, r5)
}

// Allocator returns the machine's heap allocator.
func (m *Machine) Allocator() *mem.Allocator {
	return m.alloc
}

// Meter returns the machine's compute meter.
func (m *Machine) Meter() *Meter {
	return m.meter
}

// ProgramID returns the executing program's address.
func (m *Machine) ProgramID() types.Pubkey {
	return m.programID
}

// Logs returns the accumulated program log messages.
func (m *Machine) Logs() []string {
	return m.logs
}

// log appends a program log message.
func (m *Machine) log(msg string) {
	m.logs = append(m.logs, msg)
}

// setReturnData records the program's return data.
func (m *Machine) setReturnData(programID types.Pubkey, data []byte) {
	m.returnData = make([]byte, len(data))
	copy(m.returnData, data)
	m.returnDataID = programID
}

// ReturnData returns the recorded return data and the program that set it.
func (m *Machine) ReturnData() (types.Pubkey, []byte) {
	return m.returnDataID, m.returnData
}
