package version

import "testing"

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestVersionStringUsesLinkerValues(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })
	Version, Commit = "1.2.3", "abc1234"
	if got := String(); got[:len("balloonstudio 1.2.3 (abc1234, ")] != "balloonstudio 1.2.3 (abc1234, " {
		t.Fatalf("unexpected version string %q", got)
	}
}
