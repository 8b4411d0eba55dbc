package logger

import (
	"strings"
	"testing"

	"github.com/fortiblox/sandvm/pkg/host"
)

func TestLoggerProgram(t *testing.T) {
	result, err := host.Execute(Program{}, ProgramID, nil, []byte{1, 2, 3}, 0)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("execution failed: %s", result.Error)
	}

	if len(result.Logs) != 3 {
		t.Fatalf("len(Logs) = %d, want 3: %v", len(result.Logs), result.Logs)
	}
	if result.Logs[0] != "Program log: Hello from the Sand VM" {
		t.Errorf("Logs[0] = %q", result.Logs[0])
	}
	// Zero accounts, three bytes of instruction data.
	if !strings.HasPrefix(result.Logs[1], "Program log: 0x0, 0x3,") {
		t.Errorf("Logs[1] = %q, want account/data counts", result.Logs[1])
	}
	if !strings.Contains(result.Logs[2], "units remaining") {
		t.Errorf("Logs[2] = %q, want compute unit line", result.Logs[2])
	}

	if result.ComputeUnitsUsed == 0 {
		t.Error("ComputeUnitsUsed = 0, want nonzero")
	}
}

func TestLoggerComputeLimit(t *testing.T) {
	result, err := host.Execute(Program{}, ProgramID, nil, nil, 10)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if result.Success {
		t.Fatal("execution succeeded with a 10 CU budget, want failure")
	}
	if !strings.Contains(result.Error, "compute") {
		t.Errorf("Error = %q, want compute budget failure", result.Error)
	}
}
