
// Package arch provides basic descriptions of CPU architectures.
package arch

import "strings"

// An Arch describes a CPU architecture.
type Arch struct {
	// GoArch is the GOARCH value for this architecture.
	GoArch string

	// MinFrameSize is the number of bytes at the bottom of every
	// stack frame except for empty leaf frames. This includes,
	// for example, space for a saved LR (because that space is
	// always reserved), but does not include the return PC pushed
	// on x86 by CALL (because that is added only on a call).
	MinFrameSize int
}

var (
	AMD64 = &Arch{"amd64", 0}
	I386  = &Arch{"386", 0}
	ARM   = &Arch{"arm", 4}
	ARM64 = &Arch{"arm64", 8}
)

// ByName returns the Arch whose GoArch or conventional debugger name
// matches name, or nil if name is not recognized. Matching is
// case-insensitive; common aliases used by symbol-file producers
// ("x86", "x86_64") are accepted alongside the GOARCH spellings.
func ByName(name string) *Arch {
	switch strings.ToLower(name) {
	case "amd64", "x86_64":
		return AMD64
	case "386", "x86":
		return I386
	case "arm":
		return ARM
	case "arm64", "aarch64":
		return ARM64
	default:
		return nil
	}
}

// String returns the GOARCH value of a.
func (a *Arch) String() string {
	if a == nil {
		return "<nil>"
	}
	return a.GoArch
}
