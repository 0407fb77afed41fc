package props

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvStoreString(t *testing.T) {
	t.Setenv("GFXD_PROP_ro_product_model", "Pixel 9")

	s := Env()
	assert.Equal(t, "Pixel 9", s.String("ro.product.model", "UNSET"))
	assert.Equal(t, "UNSET", s.String("ro.product.manufacturer", "UNSET"))
}

func TestEnvStoreBool(t *testing.T) {
	t.Setenv("GFXD_PROP_debug_gfxd_alt_enable", "1")

	s := Env()
	assert.True(t, s.Bool("debug.gfxd.alt.enable", false))
	assert.False(t, s.Bool("debug.gfxd.other", false))
	assert.True(t, s.Bool("debug.gfxd.other", true))
}

func TestMapStore(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		key      string
		def      string
		expected string
	}{
		{
			name:     "present",
			values:   map[string]string{"ro.product.model": "devboard"},
			key:      "ro.product.model",
			def:      "UNSET",
			expected: "devboard",
		},
		{
			name:     "absent falls back to default",
			values:   map[string]string{},
			key:      "ro.product.model",
			def:      "UNSET",
			expected: "UNSET",
		},
		{
			name:     "empty value falls back to default",
			values:   map[string]string{"ro.product.model": ""},
			key:      "ro.product.model",
			def:      "UNSET",
			expected: "UNSET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Map(tt.values).String(tt.key, tt.def))
		})
	}
}

func TestValueTruncation(t *testing.T) {
	long := strings.Repeat("x", ValueMax+40)
	s := Map(map[string]string{"ro.build.fingerprint": long})

	got := s.String("ro.build.fingerprint", "")
	assert.Len(t, got, ValueMax)
}

func TestParseBoolValues(t *testing.T) {
	for _, v := range []string{"1", "y", "yes", "on", "true", "TRUE", "On"} {
		assert.True(t, parseBool(v, false), "value %q", v)
	}
	for _, v := range []string{"0", "n", "no", "off", "false", "FALSE"} {
		assert.False(t, parseBool(v, true), "value %q", v)
	}
	assert.True(t, parseBool("garbage", true))
	assert.False(t, parseBool("", false))
}
