//go:build !linux && !darwin

package linker

func defaultSearchDirs() []string {
	return nil
}

func hostOpenLib(path string, flags OpenFlag) (Library, error) {
	return nil, ErrUnsupportedHost
}
