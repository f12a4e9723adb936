package arch

import "testing"

func TestByName(t *testing.T) {
	cases := map[string]*Arch{
		"amd64":   AMD64,
		"x86_64":  AMD64,
		"386":     I386,
		"x86":     I386,
		"ARM":     ARM,
		"arm64":   ARM64,
		"AARCH64": ARM64,
		"sparc":   nil,
	}
	for name, want := range cases {
		if got := ByName(name); got != want {
			t.Errorf("ByName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestArchString(t *testing.T) {
	if AMD64.String() != "amd64" {
		t.Errorf("AMD64.String() = %q, want %q", AMD64.String(), "amd64")
	}
	var nilArch *Arch
	if nilArch.String() != "<nil>" {
		t.Errorf("nil Arch.String() = %q, want <nil>", nilArch.String())
	}
}
