//go:build linux || darwin

package featuresupport

import "github.com/ebitengine/purego"

// bindFunc points fptr (a pointer to a Go function variable) at the C
// function at addr.
func bindFunc(fptr any, addr uintptr) error {
	purego.RegisterFunc(fptr, addr)
	return nil
}
