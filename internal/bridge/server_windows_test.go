package bridge

import (
	"strings"
	"testing"
)

func TestPipeSecurity(t *testing.T) {
	const owner = "S-1-5-21-1111-2222-3333-1001"
	sddl, err := pipeSecurity(owner)
	if err != nil {
		t.Fatalf("pipeSecurity: %v", err)
	}
	if !strings.Contains(sddl, ";;;"+owner+")") {
		t.Errorf("sddl %q does not grant the owner", sddl)
	}
	if strings.Contains(sddl, ";;;IU)") || strings.Contains(sddl, ";;;WD)") {
		t.Errorf("sddl %q grants a group beyond the owner", sddl)
	}

	if _, err := pipeSecurity(""); err == nil {
		t.Error("empty owner accepted")
	}
	if _, err := pipeSecurity("1000"); err == nil {
		t.Error("non-SID owner accepted")
	}
}
