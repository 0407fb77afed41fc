//go:build !linux && !darwin

package featuresupport

import "github.com/gfxmux/gfxd/pkg/linker"

func bindFunc(fptr any, addr uintptr) error {
	return linker.ErrUnsupportedHost
}
