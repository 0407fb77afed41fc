package featuresupport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLibrary struct {
	symbols map[string]uintptr
}

func (l *fakeLibrary) Symbol(name string) (uintptr, error) {
	addr, ok := l.symbols[name]
	if !ok {
		return 0, errors.New("undefined symbol: " + name)
	}
	return addr, nil
}

func (l *fakeLibrary) Close() error { return nil }

func TestLibraryName(t *testing.T) {
	assert.Equal(t, "libfeature_support_alt.so", LibraryName(UtilityName))
	assert.Equal(t, "libGLESv2_alt.so", LibraryName("GLESv2"))
}

func TestNegotiateMissingEntryPoint(t *testing.T) {
	_, err := Negotiate(&fakeLibrary{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), SymbolAPIVersion)
}

func TestResolveV2ReportsAllMissingSymbols(t *testing.T) {
	lib := &fakeLibrary{symbols: map[string]uintptr{
		SymbolParseRules:    0x1000,
		SymbolGetSystemInfo: 0x1008,
		SymbolFreeRules:     0x1010,
	}}

	_, err := ResolveV2(lib)
	assert.ErrorIs(t, err, ErrMissingSymbols)
	assert.Contains(t, err.Error(), SymbolAddDeviceInfo)
	assert.Contains(t, err.Error(), SymbolShouldBeUsed)
	assert.Contains(t, err.Error(), SymbolFreeSysInfo)
	assert.NotContains(t, err.Error(), SymbolParseRules)
}
