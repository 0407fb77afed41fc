// Package syslibs loads the system allow-lists of public native libraries
// that an isolated driver namespace is permitted to resolve from its parent
// scopes.
package syslibs

import (
	"fmt"
	"os"
	"strings"

	"github.com/gfxmux/gfxd/pkg/props"
)

// Kind selects one of the system allow-list files.
type Kind int

const (
	// LLNDK lists the libraries every vendor namespace may link against
	// from the default namespace.
	LLNDK Kind = iota
	// VNDKSP lists the same-process vendor libraries served from the base
	// system namespace.
	VNDKSP
)

const (
	// RootEnv overrides the system image root the allow-lists are read from.
	RootEnv = "ANDROID_ROOT"

	defaultRoot = "/system"

	vndkVersionProp = "ro.vndk.version"
)

var configPaths = map[Kind]string{
	LLNDK:  "/etc/llndk.libraries.txt",
	VNDKSP: "/etc/vndksp.libraries.txt",
}

func (k Kind) String() string {
	switch k {
	case LLNDK:
		return "llndk"
	case VNDKSP:
		return "vndksp"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Load reads the allow-list for kind and returns the library sonames, one
// per non-blank line of the config file, in file order.
func Load(kind Kind, store props.Store) ([]string, error) {
	path := ConfigPath(kind, store)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s allow-list %s: %w", kind, path, err)
	}

	return parse(string(content)), nil
}

// ConfigPath returns the on-disk location of the allow-list for kind,
// honoring the RootEnv override and the VNDK version suffix.
func ConfigPath(kind Kind, store props.Store) string {
	root := os.Getenv(RootEnv)
	if root == "" {
		root = defaultRoot
	}

	return root + insertVersionSuffix(configPaths[kind], vndkVersion(store))
}

// vndkVersion returns the version suffix (including the leading dot) to
// insert into the allow-list file names, or "" when the platform does not
// version them.
func vndkVersion(store props.Store) string {
	version := store.String(vndkVersionProp, "")
	if version == "" || version == "current" {
		return ""
	}
	return "." + version
}

// insertVersionSuffix places suffix before fileName's last dot, or at the
// end when fileName has no dot.
func insertVersionSuffix(fileName, suffix string) string {
	if suffix == "" {
		return fileName
	}
	insertPos := strings.LastIndex(fileName, ".")
	if insertPos < 0 {
		insertPos = len(fileName)
	}
	return fileName[:insertPos] + suffix + fileName[insertPos:]
}

func parse(content string) []string {
	var sonames []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			sonames = append(sonames, trimmed)
		}
	}
	return sonames
}
