// Syscalls are host functions callable from Sand VM programs. Each syscall
// is identified by the murmur3 hash of its name. Arguments are passed in
// registers r1-r5, and the return value is placed in r0.

package host

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/sha3"

	"github.com/fortiblox/sandvm/pkg/mem"
)

// Syscall errors.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrReturnDataTooLarge = errors.New("return data too large")
)

// Compute costs for syscalls.
const (
	CUSyscallBase      = uint64(100)
	CULogBase          = uint64(100)
	CULogPerByte       = uint64(1)
	CULog64            = uint64(100)
	CUMemOpBase        = uint64(10)
	CUMemOpPerByte     = uint64(1)
	CUSha256Base       = uint64(85)
	CUSha256PerByte    = uint64(1)
	CUKeccak256Base    = uint64(85)
	CUKeccak256PerByte = uint64(1)
	CUBlake3Base       = uint64(85)
	CUBlake3PerByte    = uint64(1)
)

// Maximum sizes.
const (
	MaxLogMsgLen  = 10000 // Maximum log message length
	MaxReturnData = 1024  // Maximum return data size
	MaxHashSlices = 100   // Maximum slices per hashing syscall
)

// SyscallFunc is a host function callable from a program.
type SyscallFunc func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error)

// Registry holds all registered syscalls, keyed by murmur3 name hash.
type Registry struct {
	syscalls map[uint32]SyscallFunc
}

// NewRegistry creates a registry with all standard syscalls.
func NewRegistry() *Registry {
	r := &Registry{
		syscalls: make(map[uint32]SyscallFunc),
	}

	r.registerLogging()
	r.registerMemory()
	r.registerCrypto()
	r.registerMisc()

	return r
}

// Get returns a syscall by its hash.
func (r *Registry) Get(hash uint32) (SyscallFunc, bool) {
	fn, ok := r.syscalls[hash]
	return fn, ok
}

// Register adds or replaces a syscall under the given name.
func (r *Registry) Register(name string, fn SyscallFunc) {
	r.syscalls[Murmur3Hash(name)] = fn
}

// registerLogging registers logging syscalls.
func (r *Registry) registerLogging() {
	// sand_log_ - log a message
	r.Register("sand_log_", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		msgLen := r2
		if msgLen > MaxLogMsgLen {
			msgLen = MaxLogMsgLen
		}

		cost := CULogBase + CULogPerByte*msgLen
		if err := m.meter.Consume(cost); err != nil {
			return 0, err
		}

		buf, err := m.Translate(r1, msgLen, false)
		if err != nil {
			return 0, err
		}

		m.log("Program log: " + string(buf))
		return 0, nil
	})

	// sand_log_64_ - log 5 integers
	r.Register("sand_log_64_", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		if err := m.meter.Consume(CULog64); err != nil {
			return 0, err
		}

		m.log(fmt.Sprintf("Program log: 0x%x, 0x%x, 0x%x, 0x%x, 0x%x", r1, r2, r3, r4, r5))
		return 0, nil
	})

	// sand_log_compute_units_ - log remaining compute units
	r.Register("sand_log_compute_units_", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		if err := m.meter.Consume(CUSyscallBase); err != nil {
			return 0, err
		}

		m.log(fmt.Sprintf("Program consumption: %d units remaining", m.meter.Remaining()))
		return 0, nil
	})
}

// registerMemory registers memory syscalls. The byte work is done by the
// pkg/mem primitives on translated slices, so the syscall layer adds only
// bounds checks and metering.
func (r *Registry) registerMemory() {
	// sand_memcpy_ - copy memory, regions must not overlap
	r.Register("sand_memcpy_", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		dst, src, n := r1, r2, r3

		if n == 0 {
			return 0, nil
		}
		if err := consumeMemOp(m, n); err != nil {
			return 0, err
		}

		d, err := m.Translate(dst, n, true)
		if err != nil {
			return 0, err
		}
		s, err := m.Translate(src, n, false)
		if err != nil {
			return 0, err
		}

		mem.Copy(d, s, int(n))
		return 0, nil
	})

	// sand_memmove_ - copy memory, overlap permitted
	r.Register("sand_memmove_", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		dst, src, n := r1, r2, r3

		if n == 0 {
			return 0, nil
		}
		if err := consumeMemOp(m, n); err != nil {
			return 0, err
		}

		d, err := m.Translate(dst, n, true)
		if err != nil {
			return 0, err
		}
		s, err := m.Translate(src, n, false)
		if err != nil {
			return 0, err
		}

		mem.Move(d, s, int(n))
		return 0, nil
	})

	// sand_memset_ - fill memory with a byte value
	r.Register("sand_memset_", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		dst, val, n := r1, r2, r3

		if n == 0 {
			return 0, nil
		}
		if err := consumeMemOp(m, n); err != nil {
			return 0, err
		}

		d, err := m.Translate(dst, n, true)
		if err != nil {
			return 0, err
		}

		mem.Fill(d, int(val), int(n))
		return 0, nil
	})

	// sand_memcmp_ - compare memory, result written as i32 at r4
	r.Register("sand_memcmp_", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		addr1, addr2, n, resultAddr := r1, r2, r3, r4

		if err := consumeMemOp(m, n); err != nil {
			return 0, err
		}

		if n == 0 {
			if err := m.Write32(resultAddr, 0); err != nil {
				return 0, err
			}
			return 0, nil
		}

		a, err := m.Translate(addr1, n, false)
		if err != nil {
			return 0, err
		}
		b, err := m.Translate(addr2, n, false)
		if err != nil {
			return 0, err
		}

		result := int32(mem.Compare(a, b, int(n)))
		if err := m.Write32(resultAddr, uint32(result)); err != nil {
			return 0, err
		}
		return 0, nil
	})

	// sand_alloc_free_ - bump allocate (r2 == 0) or free (r2 != 0)
	r.Register("sand_alloc_free_", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		if err := m.meter.Consume(CUSyscallBase); err != nil {
			return 0, err
		}

		if r2 != 0 {
			m.alloc.Free(r2)
			return 0, nil
		}
		// Returns 0 (null) on allocation failure.
		return m.alloc.Calloc(1, r1), nil
	})
}

// consumeMemOp meters a memory operation of n bytes.
func consumeMemOp(m *Machine, n uint64) error {
	if n > (^uint64(0)-CUMemOpBase)/CUMemOpPerByte {
		return ErrComputeExceeded
	}
	return m.meter.Consume(CUMemOpBase + CUMemOpPerByte*n)
}

// hashVec reads r2 (ptr, len) pairs starting at r1 and feeds them to write.
func hashVec(m *Machine, r1, numSlices, perByte uint64, write func([]byte)) error {
	if numSlices > MaxHashSlices {
		return ErrInvalidArgument
	}

	for i := uint64(0); i < numSlices; i++ {
		ptr, err := m.Read64(r1 + i*16)
		if err != nil {
			return err
		}
		length, err := m.Read64(r1 + i*16 + 8)
		if err != nil {
			return err
		}

		if err := m.meter.Consume(perByte * length); err != nil {
			return err
		}

		data, err := m.Translate(ptr, length, false)
		if err != nil {
			return err
		}
		write(data)
	}
	return nil
}

// registerCrypto registers hashing syscalls.
func (r *Registry) registerCrypto() {
	// sand_sha256 - SHA256 over a vector of slices, 32-byte result at r3
	r.Register("sand_sha256", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		if err := m.meter.Consume(CUSha256Base); err != nil {
			return 0, err
		}

		h := sha256.New()
		if err := hashVec(m, r1, r2, CUSha256PerByte, func(p []byte) { h.Write(p) }); err != nil {
			return 0, err
		}
		return 0, m.Write(r3, h.Sum(nil))
	})

	// sand_keccak256 - Keccak256 over a vector of slices, result at r3
	r.Register("sand_keccak256", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		if err := m.meter.Consume(CUKeccak256Base); err != nil {
			return 0, err
		}

		h := sha3.NewLegacyKeccak256()
		if err := hashVec(m, r1, r2, CUKeccak256PerByte, func(p []byte) { h.Write(p) }); err != nil {
			return 0, err
		}
		return 0, m.Write(r3, h.Sum(nil))
	})

	// sand_blake3 - Blake3 over a vector of slices, result at r3
	r.Register("sand_blake3", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		if err := m.meter.Consume(CUBlake3Base); err != nil {
			return 0, err
		}

		h := blake3.New()
		if err := hashVec(m, r1, r2, CUBlake3PerByte, func(p []byte) { h.Write(p) }); err != nil {
			return 0, err
		}

		result := make([]byte, 32)
		h.Sum(result[:0])
		return 0, m.Write(r3, result)
	})
}

// registerMisc registers return data and termination syscalls.
func (r *Registry) registerMisc() {
	// abort - terminate execution
	r.Register("abort", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		return 0, errors.New("program aborted")
	})

	// sand_panic_ - panic with source location
	r.Register("sand_panic_", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		fileLen := r2
		if fileLen > 256 {
			fileLen = 256
		}

		filename, err := m.Translate(r1, fileLen, false)
		if err != nil {
			return 0, errors.New("program panicked")
		}
		return 0, fmt.Errorf("program panicked at %s:%d:%d", filename, r3, r4)
	})

	// sand_set_return_data - set return data
	r.Register("sand_set_return_data", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		dataAddr, dataLen := r1, r2

		if err := m.meter.Consume(CUSyscallBase); err != nil {
			return 0, err
		}

		if dataLen > MaxReturnData {
			return 0, ErrReturnDataTooLarge
		}

		data, err := m.Translate(dataAddr, dataLen, false)
		if err != nil {
			return 0, err
		}

		m.setReturnData(m.programID, data)
		return 0, nil
	})

	// sand_get_return_data - copy return data to r1 (max r2 bytes), setter
	// program id to r3; returns the full data length
	r.Register("sand_get_return_data", func(m *Machine, r1, r2, r3, r4, r5 uint64) (uint64, error) {
		dstAddr, maxLen, programIDAddr := r1, r2, r3

		if err := m.meter.Consume(CUSyscallBase); err != nil {
			return 0, err
		}

		programID, data := m.ReturnData()

		copyLen := uint64(len(data))
		if copyLen > maxLen {
			copyLen = maxLen
		}

		if copyLen > 0 {
			if err := m.Write(dstAddr, data[:copyLen]); err != nil {
				return 0, err
			}
		}

		if err := m.Write(programIDAddr, programID[:]); err != nil {
			return 0, err
		}

		return uint64(len(data)), nil
	})
}

// Murmur3Hash computes the murmur3 hash of a syscall name. This is the
// standard murmur3-32 used for syscall identification.
func Murmur3Hash(name string) uint32 {
	const (
		c1 = 0xcc9e2d51
		c2 = 0x1b873593
	)

	data := []byte(name)
	h1 := uint32(0)
	length := len(data)

	// Process 4-byte chunks
	nblocks := length / 4
	for i := 0; i < nblocks; i++ {
		k1 := uint32(data[i*4]) |
			uint32(data[i*4+1])<<8 |
			uint32(data[i*4+2])<<16 |
			uint32(data[i*4+3])<<24

		k1 *= c1
		k1 = (k1 << 15) | (k1 >> 17)
		k1 *= c2

		h1 ^= k1
		h1 = (h1 << 13) | (h1 >> 19)
		h1 = h1*5 + 0xe6546b64
	}

	// Process remaining bytes
	tail := data[nblocks*4:]
	var k1 uint32
	switch len(tail) {
	case 3:
		k1 ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(tail[0])
		k1 *= c1
		k1 = (k1 << 15) | (k1 >> 17)
		k1 *= c2
		h1 ^= k1
	}

	// Finalization
	h1 ^= uint32(length)
	h1 ^= h1 >> 16
	h1 *= 0x85ebca6b
	h1 ^= h1 >> 13
	h1 *= 0xc2b2ae35
	h1 ^= h1 >> 16

	return h1
}
