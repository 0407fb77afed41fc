// Package file locates native libraries on disk. Search directories come
// from the caller, ordered the way the dynamic linker would walk a search
// path, so the first hit wins.
package file

import (
	"errors"
	"os"
	"path/filepath"
)

var (
	ErrLibraryEmpty    = errors.New("library name is empty")
	ErrLibraryNotFound = errors.New("library not found")
	ErrEmptySearchDir  = errors.New("empty search dir")
)

func FindLibrary(name string, opts ...OpOption) (string, error) {
	options := &Op{}
	if err := options.applyOpts(opts); err != nil {
		return "", err
	}

	return findLibrary(options.searchDirs, name, options.alternativeNames)
}

type Op struct {
	alternativeNames []string
	searchDirs       []string
	seenDirs         map[string]any
}

type OpOption func(*Op)

func (op *Op) applyOpts(opts []OpOption) error {
	for _, opt := range opts {
		opt(op)
	}
	if len(op.searchDirs) == 0 {
		return ErrEmptySearchDir
	}
	return nil
}

// WithAlternativeName adds a fallback file name tried after the exact name
// in every search directory (e.g. a versioned soname).
func WithAlternativeName(name string) OpOption {
	return func(op *Op) {
		op.alternativeNames = append(op.alternativeNames, name)
	}
}

// WithSearchDirs appends directories to the search order. Duplicates are
// dropped, first occurrence wins.
func WithSearchDirs(paths ...string) OpOption {
	return func(op *Op) {
		if op.seenDirs == nil {
			op.seenDirs = make(map[string]any)
		}
		for _, path := range paths {
			if _, ok := op.seenDirs[path]; ok {
				continue
			}
			op.seenDirs[path] = struct{}{}
			op.searchDirs = append(op.searchDirs, path)
		}
	}
}

func findLibrary(searchDirs []string, name string, alternativeNames []string) (string, error) {
	if name == "" {
		return "", ErrLibraryEmpty
	}

	names := append([]string{name}, alternativeNames...)

	for _, dir := range searchDirs {
		exists, err := directoryExists(dir)
		if err != nil {
			return "", err
		}
		if !exists {
			continue
		}

		libPath, err := locateLib(dir, names)

		// retry in next dir
		if errors.Is(err, ErrLibraryNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}

		return libPath, nil
	}

	return "", ErrLibraryNotFound
}

func locateLib(dir string, names []string) (string, error) {
	for _, name := range names {
		libPath := filepath.Join(dir, name)

		if _, err := os.Stat(libPath); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}

		p, err := filepath.EvalSymlinks(libPath)
		if err == nil {
			return p, nil
		}
	}
	return "", ErrLibraryNotFound
}

func directoryExists(dir string) (bool, error) {
	if dir == "" {
		return false, nil
	}
	fileInfo, err := os.Stat(dir)
	if err == nil {
		return fileInfo.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
