package echo

import (
	"bytes"
	"testing"

	"github.com/fortiblox/sandvm/pkg/host"
)

func TestEchoProgram(t *testing.T) {
	payload := []byte("echo me back")

	result, err := host.Execute(Program{}, ProgramID, nil, payload, 0)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("execution failed: %s", result.Error)
	}
	if !bytes.Equal(result.ReturnData, payload) {
		t.Errorf("ReturnData = %q, want %q", result.ReturnData, payload)
	}
}

func TestEchoEmptyData(t *testing.T) {
	result, err := host.Execute(Program{}, ProgramID, nil, nil, 0)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("execution failed: %s", result.Error)
	}
	if len(result.ReturnData) != 0 {
		t.Errorf("len(ReturnData) = %d, want 0", len(result.ReturnData))
	}
}

func TestEchoTooLarge(t *testing.T) {
	payload := make([]byte, host.MaxReturnData+1)

	result, err := host.Execute(Program{}, ProgramID, nil, payload, 0)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if result.Success {
		t.Fatal("execution succeeded with oversized return data, want failure")
	}
}
