package gfxenv

import (
	"github.com/gfxmux/gfxd/log"
	"github.com/gfxmux/gfxd/pkg/linker"
	"github.com/gfxmux/gfxd/pkg/syslibs"
)

// baseSystemNamespace is the exported namespace serving the same-process
// system libraries a vendor driver may link against.
const baseSystemNamespace = "vndk"

const (
	driverNamespaceName = "gfx driver"
	altNamespaceName    = "gfx alt"
)

// DriverNamespace returns the isolated namespace the vendor driver loads
// into, building it on first use. Construction runs at most once per
// process; any failure is cached as a permanent nil for the process, so a
// broken system image degrades to "driver namespace unavailable" instead
// of retry loops.
func (e *Env) DriverNamespace() *linker.Namespace {
	e.driverNamespaceOnce.Do(func() {
		driverPath := e.DriverPath()
		if driverPath == "" {
			return
		}

		vndk := e.linker.ExportedNamespace(baseSystemNamespace)
		if vndk == nil {
			log.Logger.Errorw("base system namespace is not exported",
				"namespace", baseSystemNamespace)
			return
		}

		ns, err := e.linker.CreateNamespace(driverNamespaceName,
			driverPath, // search path
			driverPath, // default library path
			linker.TypeIsolated)
		if err != nil {
			log.Logger.Errorw("failed to create driver namespace",
				"path", driverPath, "error", err)
			return
		}

		llndk, err := e.loadAllowList(syslibs.LLNDK, e.props)
		if err != nil || len(llndk) == 0 {
			log.Logger.Errorw("failed to retrieve llndk library names", "error", err)
			return
		}
		if err := e.linker.LinkNamespaces(ns, nil, llndk); err != nil {
			log.Logger.Errorw("failed to link default namespace", "error", err)
			return
		}

		vndksp, err := e.loadAllowList(syslibs.VNDKSP, e.props)
		if err != nil || len(vndksp) == 0 {
			log.Logger.Errorw("failed to retrieve vndksp library names", "error", err)
			return
		}
		if err := e.linker.LinkNamespaces(ns, vndk, vndksp); err != nil {
			log.Logger.Errorw("failed to link vndk namespace", "error", err)
			return
		}

		e.driverNamespace = ns
	})

	return e.driverNamespace
}

// AltNamespace returns the namespace the alternate backend and its
// feature-support plugin load into, building it on first use. The scope is
// shared+isolated with no search-path linkage: nothing resolves out of it
// except what is explicitly loaded inside. As with DriverNamespace,
// construction failure is cached for the process lifetime.
func (e *Env) AltNamespace() *linker.Namespace {
	e.altNamespaceOnce.Do(func() {
		altPath := e.AltPath()
		if altPath == "" {
			return
		}

		ns, err := e.linker.CreateNamespace(altNamespaceName,
			"",      // no search path
			altPath, // default library path
			linker.TypeShared|linker.TypeIsolated)
		if err != nil {
			log.Logger.Debugw("could not create alternate backend namespace",
				"path", altPath, "error", err)
			return
		}
		e.altNamespace = ns
	})

	return e.altNamespace
}
