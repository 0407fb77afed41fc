// Package gfxenv decides, once per application process, whether graphics
// API calls are serviced by the vendor GPU driver or by the alternate
// backend, and hands out the isolated linker namespaces the chosen
// driver's libraries load into. The embedding runtime configures one Env
// during process init; the graphics loader consults its accessors on every
// render thread.
package gfxenv

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/gfxmux/gfxd/log"
	"github.com/gfxmux/gfxd/pkg/featuresupport"
	"github.com/gfxmux/gfxd/pkg/linker"
	"github.com/gfxmux/gfxd/pkg/props"
	"github.com/gfxmux/gfxd/pkg/syslibs"
)

// Platform property keys the engine consults.
const (
	altEnableProp    = "debug.gfxd.alt.enable"
	manufacturerProp = "ro.product.manufacturer"
	modelProp        = "ro.product.model"
	debuggableProp   = "ro.debuggable"
)

// DeveloperOptIn is the explicit per-application driver preference from
// the developer options UI. When set it short-circuits the rules plugin.
type DeveloperOptIn int

const (
	OptInUnset DeveloperOptIn = iota
	// OptInAlt forces the alternate backend.
	OptInAlt
	// OptInNative forces the vendor driver.
	OptInNative
)

// ParseDeveloperOptIn maps the platform's settings strings to a preference.
// Unknown strings mean no preference.
func ParseDeveloperOptIn(s string) DeveloperOptIn {
	switch s {
	case "alt":
		return OptInAlt
	case "native":
		return OptInNative
	}
	return OptInUnset
}

func (o DeveloperOptIn) String() string {
	switch o {
	case OptInAlt:
		return "alt"
	case OptInNative:
		return "native"
	}
	return "unset"
}

// Env is the process-wide graphics environment. It is created on first
// access and lives for the process lifetime; there is no teardown.
//
// Configuration setters are expected to run from the single process-init
// path. Some fields are write-once: the first successful write wins and
// later writes are logged and ignored. Accessors and the verdict queries
// are safe from any thread.
type Env struct {
	linker linker.Linker
	props  props.Store

	loadAllowList func(syslibs.Kind, props.Store) ([]string, error)
	negotiate     func(linker.Library) (uint32, error)
	resolveV2     func(linker.Library) (*featuresupport.V2, error)
	dumpable      func() bool

	mu              sync.Mutex
	driverPath      string
	altPath         string
	altAppName      string
	developerOptIn  DeveloperOptIn
	rulesBuffer     []byte
	useAlt          bool
	layerPaths      string
	appNamespace    *linker.Namespace
	debugLayers     string
	debugLayersGLES string

	driverNamespaceOnce sync.Once
	driverNamespace     *linker.Namespace
	altNamespaceOnce    sync.Once
	altNamespace        *linker.Namespace
}

// Option overrides one of Env's collaborators, mostly for tests and the
// CLI. The zero configuration talks to the real platform.
type Option func(*Env)

func WithLinker(l linker.Linker) Option {
	return func(e *Env) { e.linker = l }
}

func WithProperties(s props.Store) Option {
	return func(e *Env) { e.props = s }
}

func WithAllowListLoader(load func(syslibs.Kind, props.Store) ([]string, error)) Option {
	return func(e *Env) { e.loadAllowList = load }
}

func WithPluginResolver(
	negotiate func(linker.Library) (uint32, error),
	resolveV2 func(linker.Library) (*featuresupport.V2, error),
) Option {
	return func(e *Env) {
		e.negotiate = negotiate
		e.resolveV2 = resolveV2
	}
}

// New builds an Env wired to the real platform collaborators unless
// overridden. The embedding runtime normally uses Instance instead and
// injects it into the graphics loader.
func New(opts ...Option) *Env {
	e := &Env{
		linker:        linker.Default(),
		props:         props.Env(),
		loadAllowList: syslibs.Load,
		negotiate:     featuresupport.Negotiate,
		resolveV2:     featuresupport.ResolveV2,
		dumpable:      processDumpable,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var (
	instance     *Env
	instanceOnce sync.Once
)

// Instance returns the process-wide Env.
func Instance() *Env {
	instanceOnce.Do(func() {
		instance = New()
	})
	return instance
}

// SetDriverPath records the vendor driver search path. Write-once: the
// path feeds the lazily built driver namespace, so later changes could
// never take effect anyway.
func (e *Env) SetDriverPath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.driverPath != "" {
		log.Logger.Debugw("ignoring attempt to change driver path",
			"current", e.driverPath, "requested", path)
		return
	}
	log.Logger.Debugw("setting driver path", "path", path)
	e.driverPath = path
}

// SetAltInfo records the alternate backend path, the identity of the
// application being evaluated, and the developer preference, then reads
// length bytes of rules data from rules at offset and recomputes the
// backend verdict.
//
// The rules buffer is always length+1 bytes and always NUL terminated.
// Short and empty reads are tolerated: whatever was read is evaluated.
func (e *Env) SetAltInfo(path, appName string, optIn DeveloperOptIn, rules io.ReaderAt, offset, length int64) {
	e.mu.Lock()
	log.Logger.Debugw("setting alternate backend info",
		"path", path, "app", appName, "optIn", optIn.String())
	e.altPath = path
	e.altAppName = appName
	e.developerOptIn = optIn
	e.rulesBuffer = readRules(rules, offset, length)
	e.mu.Unlock()

	e.updateUseAlt()
}

func readRules(rules io.ReaderAt, offset, length int64) []byte {
	if length < 0 {
		length = 0
	}
	buf := make([]byte, length+1)

	n := 0
	if rules != nil && length > 0 {
		var err error
		n, err = rules.ReadAt(buf[:length], offset)
		if err != nil && !errors.Is(err, io.EOF) {
			log.Logger.Errorw("cannot read rules data", "error", err, "bytesRead", n)
		}
		if n < 0 {
			n = 0
		}
	}
	if n == 0 {
		log.Logger.Warnw("empty rules data")
	} else if int64(n) != length {
		log.Logger.Warnw("short read of rules data", "expected", length, "got", n)
	}
	buf[n] = 0
	return buf
}

// SetLayerPaths records the debug-layer search paths together with the
// application's own namespace for the layer loader. First writer wins.
func (e *Env) SetLayerPaths(appNamespace *linker.Namespace, layerPaths string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.layerPaths != "" {
		log.Logger.Debugw("layer search path already set, not clobbering",
			"current", e.layerPaths, "requested", layerPaths)
		return
	}
	e.layerPaths = layerPaths
	e.appNamespace = appNamespace
}

func (e *Env) SetDebugLayers(layers string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debugLayers = layers
}

func (e *Env) SetDebugLayersGLES(layers string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.debugLayersGLES = layers
}

func (e *Env) DriverPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.driverPath
}

func (e *Env) AltPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.altPath
}

// AltAppName is the identity of the application the verdict was computed
// for. Empty until SetAltInfo is called.
func (e *Env) AltAppName() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.altAppName
}

func (e *Env) DeveloperOptIn() DeveloperOptIn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.developerOptIn
}

func (e *Env) LayerPaths() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layerPaths
}

// AppNamespace is the application classloader namespace recorded by
// SetLayerPaths, used by the layer loader to load layers from the APK.
func (e *Env) AppNamespace() *linker.Namespace {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.appNamespace
}

func (e *Env) DebugLayers() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debugLayers
}

func (e *Env) DebugLayersGLES() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.debugLayersGLES
}

// Rules returns the raw rules buffer, including its trailing NUL. Nil
// until SetAltInfo is called.
func (e *Env) Rules() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rulesBuffer
}

// RulesString returns the rules text up to the first NUL.
func (e *Env) RulesString() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := bytes.IndexByte(e.rulesBuffer, 0); i >= 0 {
		return string(e.rulesBuffer[:i])
	}
	return string(e.rulesBuffer)
}

// CanLoadSystemLibraries reports whether the process may load libraries
// off the system image for debugging. Returns an integer value since this
// crosses library boundaries.
func (e *Env) CanLoadSystemLibraries() int {
	if e.props.Bool(debuggableProp, false) && e.dumpable() {
		return 1
	}
	return 0
}
