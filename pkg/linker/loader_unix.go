//go:build linux || darwin

package linker

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// Search directories of the default namespace, i.e. where the host's own
// dynamic linker would look.
// ref. "github.com/NVIDIA/go-nvml/pkg/nvlib/info/root.go"
var defaultDirs = []string{
	"/system/lib64",
	"/system/lib",
	"/usr/lib64",
	"/usr/lib/x86_64-linux-gnu",
	"/usr/lib/aarch64-linux-gnu",
	"/lib64",
	"/lib/x86_64-linux-gnu",
	"/lib/aarch64-linux-gnu",
	"/usr/lib",
	"/usr/local/lib",
}

func defaultSearchDirs() []string {
	return defaultDirs
}

func hostOpenLib(path string, flags OpenFlag) (Library, error) {
	mode := purego.RTLD_LAZY
	if flags&BindNow != 0 {
		mode = purego.RTLD_NOW
	}
	if flags&LocalVisibility != 0 {
		mode |= purego.RTLD_LOCAL
	} else {
		mode |= purego.RTLD_GLOBAL
	}

	handle, err := purego.Dlopen(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return &dlLibrary{handle: handle, path: path}, nil
}

type dlLibrary struct {
	handle uintptr
	path   string
}

func (l *dlLibrary) Symbol(name string) (uintptr, error) {
	addr, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s in %s: %w", name, l.path, err)
	}
	return addr, nil
}

func (l *dlLibrary) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	return err
}
