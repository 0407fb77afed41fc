package gfxenv

import (
	"errors"
	"fmt"

	"github.com/gfxmux/gfxd/log"
	"github.com/gfxmux/gfxd/pkg/featuresupport"
	"github.com/gfxmux/gfxd/pkg/linker"
)

var errNoAltNamespace = errors.New("alternate backend namespace unavailable")

// ShouldUseAltBackendFor reports the cached verdict after confirming the
// query is about the application the verdict was computed for.
func (e *Env) ShouldUseAltBackendFor(appName string) bool {
	configured := e.AltAppName()
	if appName != configured {
		log.Logger.Errorw("app name does not match",
			"expected", configured, "got", appName)
		return false
	}

	return e.ShouldUseAltBackend()
}

// ShouldUseAltBackend reports the cached verdict. Until SetAltInfo has
// configured an application identity the answer is deterministically
// false.
func (e *Env) ShouldUseAltBackend() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.altAppName == "" {
		log.Logger.Errorw("app name is empty, SetAltInfo must be called first")
		return false
	}

	return e.useAlt
}

func (e *Env) setUseAlt(useAlt bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.useAlt = useAlt
}

// updateUseAlt recomputes the backend verdict. Runs synchronously from
// SetAltInfo, once per configuration; it is not safe for concurrent
// re-entry (callers serialize SetAltInfo).
func (e *Env) updateUseAlt() {
	e.setUseAlt(false)

	switch e.DeveloperOptIn() {
	case OptInAlt:
		log.Logger.Debugw("developer options force the alternate backend")
		e.setUseAlt(true)
		return
	case OptInNative:
		log.Logger.Debugw("developer options force the vendor driver")
		return
	}

	// No explicit preference: the feature-support plugin decides, gated
	// behind a property while the plugin rollout settles.
	if !e.props.Bool(altEnableProp, false) {
		log.Logger.Debugw("alternate backend is disabled", "property", altEnableProp)
		return
	}

	lib, err := e.loadPlugin(featuresupport.UtilityName)
	if err != nil {
		log.Logger.Debugw("could not load the backend selection plugin", "error", err)
		return
	}
	defer func() {
		log.Logger.Debugw("closing temporarily-loaded backend selection plugin")
		if err := lib.Close(); err != nil {
			log.Logger.Warnw("failed to unload backend selection plugin", "error", err)
		}
	}()

	e.setUseAlt(e.checkRules(lib))
}

// loadPlugin loads a library of the alternate backend by logical name,
// inside the backend's namespace, with immediate binding and without
// leaking its symbols into the global scope.
func (e *Env) loadPlugin(name string) (linker.Library, error) {
	ns := e.AltNamespace()
	if ns == nil {
		return nil, errNoAltNamespace
	}

	soname := featuresupport.LibraryName(name)
	lib, err := e.linker.Open(ns, soname, linker.BindNow|linker.LocalVisibility)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", soname, err)
	}
	log.Logger.Debugw("loaded plugin from alternate backend namespace", "soname", soname)
	return lib, nil
}

// checkRules negotiates the plugin interface version and runs the
// evaluation sequence for that version. Unknown versions fail closed.
func (e *Env) checkRules(lib linker.Library) bool {
	version, err := e.negotiate(lib)
	if err != nil {
		log.Logger.Warnw("cannot use backend selection plugin", "error", err)
		return false
	}

	switch version {
	case 2:
		log.Logger.Debugw("using backend selection plugin", "version", version)
		api, err := e.resolveV2(lib)
		if err != nil {
			log.Logger.Warnw("backend selection plugin is unusable", "error", err)
			return false
		}
		return e.evaluateV2(api)
	}

	log.Logger.Warnw("backend selection plugin version is not supported", "version", version)
	return false
}

// evaluateV2 runs the version-2 sequence: parse rules, collect system
// info, inject device identity, evaluate the application. Both plugin
// handles are freed on every path once obtained.
func (e *Env) evaluateV2(api *featuresupport.V2) bool {
	manufacturer := e.props.String(manufacturerProp, "UNSET")
	model := e.props.String(modelProp, "UNSET")

	var rulesHandle, systemInfoHandle uintptr
	var rulesVersion int32
	defer func() {
		if rulesHandle != 0 {
			api.FreeRulesHandle(rulesHandle)
		}
		if systemInfoHandle != 0 {
			api.FreeSystemInfoHandle(systemInfoHandle)
		}
	}()

	if !api.ParseRulesString(e.RulesString(), &rulesHandle, &rulesVersion) {
		log.Logger.Warnw("backend selection plugin cannot parse rules")
		return false
	}
	if !api.GetSystemInfo(&systemInfoHandle) {
		log.Logger.Warnw("backend selection plugin cannot obtain system info")
		return false
	}
	if !api.AddDeviceInfoToSystemInfo(manufacturer, model, systemInfoHandle) {
		log.Logger.Warnw("backend selection plugin cannot add device info",
			"manufacturer", manufacturer, "model", model)
		return false
	}

	return api.ShouldBeUsedForApplication(rulesHandle, rulesVersion, systemInfoHandle, e.AltAppName())
}
