package types

// Native program addresses.
var (
	// SystemProgramAddr is the System Program address.
	SystemProgramAddr = MustPubkeyFromBase58("11111111111111111111111111111111")
)

// Sample program addresses. Derived rather than hand-picked so they stay
// stable and off-curve.
var (
	// LoggerProgramAddr is the address of the logging demo program.
	LoggerProgramAddr = DerivedAddress("sandvm:program:logger")

	// EchoProgramAddr is the address of the return-data echo program.
	EchoProgramAddr = DerivedAddress("sandvm:program:echo")

	// MemDemoProgramAddr is the address of the memory-syscall demo program.
	MemDemoProgramAddr = DerivedAddress("sandvm:program:memdemo")
)
