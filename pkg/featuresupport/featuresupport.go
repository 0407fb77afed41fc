// Package featuresupport speaks the ABI of the alternate backend's
// feature-support library: the small, optionally present plugin that
// decides whether the alternate backend should service a given
// application. The plugin exposes C-linkage entry points resolved by name;
// this package resolves each name once and surfaces them as Go functions.
package featuresupport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gfxmux/gfxd/pkg/linker"
)

// CurrentAPIVersion is the newest plugin interface version this engine
// implements. Negotiation starts here and the plugin may lower it.
const CurrentAPIVersion uint32 = 2

// UtilityName is the logical name of the feature-support library; the
// loadable file is LibraryName(UtilityName).
const UtilityName = "feature_support"

const librarySuffix = "_alt"

// Entry point names, fixed by the plugin ABI.
const (
	SymbolAPIVersion    = "AltGetFeatureSupportUtilAPIVersion"
	SymbolParseRules    = "AltAndroidParseRulesString"
	SymbolGetSystemInfo = "AltGetSystemInfo"
	SymbolAddDeviceInfo = "AltAddDeviceInfoToSystemInfo"
	SymbolShouldBeUsed  = "AltShouldBeUsedForApplication"
	SymbolFreeRules     = "AltFreeRulesHandle"
	SymbolFreeSysInfo   = "AltFreeSystemInfoHandle"
)

var (
	ErrVersionRejected = errors.New("plugin rejected every supported API version")
	ErrMissingSymbols  = errors.New("plugin is missing entry points")
)

// LibraryName maps a logical library name to the soname loaded from the
// alternate backend's namespace, e.g. "feature_support" to
// "libfeature_support_alt.so".
func LibraryName(name string) string {
	return "lib" + name + librarySuffix + ".so"
}

// Negotiate resolves the version entry point and negotiates the interface
// version, starting at CurrentAPIVersion. The plugin may lower the version
// in place. The error distinguishes an unusable plugin (missing or
// rejecting entry point) from nothing else; any returned version still has
// to be dispatched by the caller.
func Negotiate(lib linker.Library) (uint32, error) {
	addr, err := lib.Symbol(SymbolAPIVersion)
	if err != nil {
		return 0, fmt.Errorf("cannot find %s: %w", SymbolAPIVersion, err)
	}

	var getVersion func(version *uint32) bool
	if err := bindFunc(&getVersion, addr); err != nil {
		return 0, err
	}

	version := CurrentAPIVersion
	if !getVersion(&version) {
		return 0, fmt.Errorf("%w: requested %d", ErrVersionRejected, CurrentAPIVersion)
	}
	return version, nil
}

// V2 is the capability table of the version-2 plugin interface. Handles
// returned by ParseRulesString and GetSystemInfo are opaque plugin-owned
// resources; each must be released with its free function.
type V2 struct {
	ParseRulesString           func(rules string, rulesHandle *uintptr, rulesVersion *int32) bool
	GetSystemInfo              func(handle *uintptr) bool
	AddDeviceInfoToSystemInfo  func(manufacturer, model string, handle uintptr) bool
	ShouldBeUsedForApplication func(rulesHandle uintptr, rulesVersion int32, systemInfoHandle uintptr, appName string) bool
	FreeRulesHandle            func(handle uintptr) bool
	FreeSystemInfoHandle       func(handle uintptr) bool
}

// ResolveV2 resolves the six version-2 entry points. All names are looked
// up before failing so the error reports every missing symbol at once.
func ResolveV2(lib linker.Library) (*V2, error) {
	addrs := make(map[string]uintptr, 6)
	var missing []string
	for _, name := range []string{
		SymbolParseRules,
		SymbolGetSystemInfo,
		SymbolAddDeviceInfo,
		SymbolShouldBeUsed,
		SymbolFreeRules,
		SymbolFreeSysInfo,
	} {
		addr, err := lib.Symbol(name)
		if err != nil {
			missing = append(missing, name)
			continue
		}
		addrs[name] = addr
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingSymbols, strings.Join(missing, ", "))
	}

	api := &V2{}
	for _, bind := range []struct {
		fptr any
		name string
	}{
		{&api.ParseRulesString, SymbolParseRules},
		{&api.GetSystemInfo, SymbolGetSystemInfo},
		{&api.AddDeviceInfoToSystemInfo, SymbolAddDeviceInfo},
		{&api.ShouldBeUsedForApplication, SymbolShouldBeUsed},
		{&api.FreeRulesHandle, SymbolFreeRules},
		{&api.FreeSystemInfoHandle, SymbolFreeSysInfo},
	} {
		if err := bindFunc(bind.fptr, addrs[bind.name]); err != nil {
			return nil, fmt.Errorf("cannot bind %s: %w", bind.name, err)
		}
	}
	return api, nil
}
