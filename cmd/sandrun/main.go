// sandrun: run a bundled Sand VM sample program against the host runtime.
//
// The selected program executes on a fresh machine with one demo account
// and the given instruction data; logs, return data and compute usage are
// printed afterwards.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/fortiblox/sandvm/internal/types"
	"github.com/fortiblox/sandvm/pkg/abi"
	"github.com/fortiblox/sandvm/pkg/host"
	"github.com/fortiblox/sandvm/pkg/programs/echo"
	"github.com/fortiblox/sandvm/pkg/programs/logger"
	"github.com/fortiblox/sandvm/pkg/programs/memdemo"
)

// Version information
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

// Configuration flags
var (
	programName  = flag.String("program", "logger", "Sample program to run: logger, echo, memdemo")
	dataHex      = flag.String("data", "", "Instruction data as hex")
	dataFile     = flag.String("data-file", "", "Instruction data file (.zst files are decompressed)")
	computeLimit = flag.Uint64("compute-limit", 0, "Compute unit budget (0 = default)")
	accountSize  = flag.Uint64("account-size", 32, "Demo account data size in bytes")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

// registeredProgram pairs a sample program with its address.
type registeredProgram struct {
	id   types.Pubkey
	prog host.Program
}

var samplePrograms = map[string]registeredProgram{
	"logger":  {logger.ProgramID, logger.Program{}},
	"echo":    {echo.ProgramID, echo.Program{}},
	"memdemo": {memdemo.ProgramID, memdemo.Program{}},
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("sandrun %s (%s)\n", Version, GitCommit)
		os.Exit(0)
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	entry, ok := samplePrograms[*programName]
	if !ok {
		log.Fatalf("Unknown program %q, available: %s", *programName, programNames())
	}

	data, err := instructionData()
	if err != nil {
		log.Fatalf("Failed to load instruction data: %v", err)
	}

	account := &abi.AccountInfo{
		Key:        types.DerivedAddress("sandrun:demo-account"),
		Owner:      entry.id,
		Lamports:   1,
		Data:       make([]byte, *accountSize),
		IsWritable: true,
	}

	log.Printf("Executing %s (%s)", *programName, entry.id)
	result, err := host.Execute(entry.prog, entry.id, []*abi.AccountInfo{account}, data, *computeLimit)
	if err != nil {
		log.Fatalf("Execution setup failed: %v", err)
	}

	for _, line := range result.Logs {
		log.Print(line)
	}
	if len(result.ReturnData) > 0 {
		log.Printf("Return data: %s", hex.EncodeToString(result.ReturnData))
	}
	for _, key := range result.ModifiedAccounts {
		log.Printf("Modified account: %s", key)
	}
	log.Printf("Consumed %d compute units", result.ComputeUnitsUsed)

	if !result.Success {
		log.Fatalf("Program failed: %s", result.Error)
	}
	log.Printf("Program %s succeeded", entry.id)
}

// instructionData resolves the instruction data from flags.
func instructionData() ([]byte, error) {
	if *dataHex != "" && *dataFile != "" {
		return nil, fmt.Errorf("-data and -data-file are mutually exclusive")
	}
	if *dataHex != "" {
		return hex.DecodeString(*dataHex)
	}
	if *dataFile != "" {
		return loadDataFile(*dataFile)
	}
	return nil, nil
}

// loadDataFile reads an instruction data file, decompressing zstd content
// transparently.
func loadDataFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		return io.ReadAll(dec)
	}
	return io.ReadAll(f)
}

// programNames lists the available sample programs.
func programNames() string {
	names := make([]string, 0, len(samplePrograms))
	for name := range samplePrograms {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
