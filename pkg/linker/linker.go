// Package linker models dynamic-linker namespaces: independent symbol
// resolution scopes with their own library search paths and explicit,
// allow-listed links to other scopes. The graphics stack uses them to keep
// the vendor driver's and the alternate backend's native libraries from
// leaking symbols into each other or into the application.
package linker

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gfxmux/gfxd/pkg/file"
)

// Type is the set of namespace behavior flags.
type Type uint64

const (
	// TypeIsolated restricts resolution to the namespace's own paths and
	// its explicit links.
	TypeIsolated Type = 1 << iota
	// TypeShared shares the already-loaded libraries of the creating
	// scope instead of reloading them.
	TypeShared
)

// OpenFlag controls how a library is loaded into a namespace.
type OpenFlag uint

const (
	// BindNow resolves all symbols at load time instead of lazily.
	BindNow OpenFlag = 1 << iota
	// LocalVisibility keeps the library's symbols out of the global scope.
	LocalVisibility
)

var (
	ErrNilNamespace    = errors.New("namespace is nil")
	ErrEmptyName       = errors.New("namespace name is empty")
	ErrDuplicateName   = errors.New("namespace name already exported")
	ErrNoSharedLibs    = errors.New("no shared libraries to link")
	ErrNotInNamespace  = errors.New("library not resolvable in namespace")
	ErrUnsupportedHost = errors.New("dynamic loading not supported on this host")
)

// Library is a loaded dynamic library. Symbol resolves a C symbol by name
// to its address. Close releases the library; the handle must not be used
// afterwards.
type Library interface {
	Symbol(name string) (uintptr, error)
	Close() error
}

// Linker creates and links namespaces and loads libraries inside them.
//
// ExportedNamespace returns a namespace previously published by the
// platform bootstrap, or nil when no namespace with that name exists.
// LinkNamespaces allows from to resolve the given sonames through to; a
// nil to means the default namespace.
type Linker interface {
	ExportedNamespace(name string) *Namespace
	CreateNamespace(name, searchPath, defaultLibPath string, typ Type) (*Namespace, error)
	LinkNamespaces(from, to *Namespace, sonames []string) error
	Open(ns *Namespace, soname string, flags OpenFlag) (Library, error)
}

// Namespace is an opaque handle to one resolution scope. Instances are
// created by a Linker and carry their link table internally.
type Namespace struct {
	name           string
	searchDirs     []string
	defaultLibPath string
	typ            Type

	mu    sync.Mutex
	links []link
}

type link struct {
	to      *Namespace // nil means the default namespace
	sonames map[string]struct{}
}

// NewNamespace builds a namespace handle. It is exported for Linker
// implementations (including test fakes); embedding code should obtain
// namespaces through a Linker.
func NewNamespace(name, searchPath, defaultLibPath string, typ Type) *Namespace {
	return &Namespace{
		name:           name,
		searchDirs:     splitSearchPath(searchPath),
		defaultLibPath: defaultLibPath,
		typ:            typ,
	}
}

func (ns *Namespace) Name() string { return ns.name }

func (ns *Namespace) Type() Type { return ns.typ }

// DefaultLibraryPath is the directory libraries load from when they are
// not found on the search path.
func (ns *Namespace) DefaultLibraryPath() string { return ns.defaultLibPath }

// SearchDirs returns the namespace's own search directories, in order,
// with the default library path appended.
func (ns *Namespace) SearchDirs() []string {
	dirs := make([]string, 0, len(ns.searchDirs)+1)
	dirs = append(dirs, ns.searchDirs...)
	if ns.defaultLibPath != "" {
		dirs = append(dirs, ns.defaultLibPath)
	}
	return dirs
}

func (ns *Namespace) addLink(to *Namespace, sonames []string) {
	set := make(map[string]struct{}, len(sonames))
	for _, soname := range sonames {
		set[soname] = struct{}{}
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.links = append(ns.links, link{to: to, sonames: set})
}

// linkTarget reports the namespace a soname may be resolved through, and
// whether any link allows it. A nil target with ok=true means the default
// namespace.
func (ns *Namespace) linkTarget(soname string) (*Namespace, bool) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	for _, l := range ns.links {
		if _, ok := l.sonames[soname]; ok {
			return l.to, true
		}
	}
	return nil, false
}

func splitSearchPath(searchPath string) []string {
	if searchPath == "" {
		return nil
	}
	var dirs []string
	for _, dir := range strings.Split(searchPath, ":") {
		if dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// openLibFunc is the host-specific dlopen. Implementations receive a
// resolved file path, never a bare soname.
type openLibFunc func(path string, flags OpenFlag) (Library, error)

// registryLinker is the process-wide Linker. Namespace bookkeeping and
// soname resolution are host-independent; only the final load goes through
// the host loader.
type registryLinker struct {
	mu       sync.Mutex
	exported map[string]*Namespace

	openLib openLibFunc
}

// New returns a Linker backed by the host dynamic loader. On hosts without
// one, Open fails with ErrUnsupportedHost while namespace bookkeeping
// still works.
func New() Linker {
	return &registryLinker{
		exported: make(map[string]*Namespace),
		openLib:  hostOpenLib,
	}
}

var (
	defaultLinker     Linker
	defaultLinkerOnce sync.Once
)

// Default returns the shared process-wide Linker.
func Default() Linker {
	defaultLinkerOnce.Do(func() {
		defaultLinker = New()
	})
	return defaultLinker
}

func (l *registryLinker) ExportedNamespace(name string) *Namespace {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exported[name]
}

// Export publishes a namespace under its name for ExportedNamespace
// lookup. The platform bootstrap calls this for the base system scopes.
func (l *registryLinker) Export(ns *Namespace) error {
	if ns == nil {
		return ErrNilNamespace
	}
	if ns.name == "" {
		return ErrEmptyName
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.exported[ns.name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, ns.name)
	}
	l.exported[ns.name] = ns
	return nil
}

func (l *registryLinker) CreateNamespace(name, searchPath, defaultLibPath string, typ Type) (*Namespace, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	return NewNamespace(name, searchPath, defaultLibPath, typ), nil
}

func (l *registryLinker) LinkNamespaces(from, to *Namespace, sonames []string) error {
	if from == nil {
		return ErrNilNamespace
	}
	if len(sonames) == 0 {
		return ErrNoSharedLibs
	}
	from.addLink(to, sonames)
	return nil
}

// Open resolves soname within ns and loads it. Resolution walks the
// namespace's own search directories first, then any link whose allow-list
// names the soname. Isolation is the point: a soname outside the scope and
// its links fails with ErrNotInNamespace rather than falling back to the
// global search path.
func (l *registryLinker) Open(ns *Namespace, soname string, flags OpenFlag) (Library, error) {
	if ns == nil {
		return nil, ErrNilNamespace
	}

	path, err := l.resolve(ns, soname)
	if err != nil {
		return nil, err
	}

	return l.openLib(path, flags)
}

func (l *registryLinker) resolve(ns *Namespace, soname string) (string, error) {
	if dirs := ns.SearchDirs(); len(dirs) > 0 {
		path, err := file.FindLibrary(soname, file.WithSearchDirs(dirs...))
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, file.ErrLibraryNotFound) {
			return "", err
		}
	}

	target, ok := ns.linkTarget(soname)
	if !ok {
		return "", fmt.Errorf("%w: %q in %q", ErrNotInNamespace, soname, ns.name)
	}
	if target == nil {
		path, err := file.FindLibrary(soname, file.WithSearchDirs(defaultSearchDirs()...))
		if err != nil {
			return "", fmt.Errorf("%w: %q via default namespace: %v", ErrNotInNamespace, soname, err)
		}
		return path, nil
	}

	return l.resolve(target, soname)
}
