// Package props exposes platform property lookups to the rest of gfxd.
//
// On the platform, properties are served by the init daemon. Off-platform
// (tests, development hosts) the environment-backed store stands in so the
// selection logic stays runnable everywhere.
package props

import (
	"os"
	"strings"
)

// ValueMax is the platform limit for a property value, in bytes. Values
// longer than this are truncated on read.
const ValueMax = 92

// EnvPrefix is prepended to a property key, with dots replaced by
// underscores, to form the environment variable consulted by the Env store.
const EnvPrefix = "GFXD_PROP_"

// Store is a read-only view of the platform property space.
type Store interface {
	// String returns the property value for key, or def when the key is
	// unset or empty. Values are truncated to ValueMax bytes.
	String(key string, def string) string

	// Bool returns the boolean interpretation of the property for key, or
	// def when the key is unset or not parseable.
	Bool(key string, def bool) bool
}

type envStore struct{}

// Env returns a Store backed by the process environment. The property key
// "ro.product.model" is looked up as "GFXD_PROP_ro_product_model".
func Env() Store {
	return envStore{}
}

func (envStore) String(key string, def string) string {
	v, ok := os.LookupEnv(envKey(key))
	if !ok || v == "" {
		return def
	}
	return truncate(v)
}

func (e envStore) Bool(key string, def bool) bool {
	return parseBool(e.String(key, ""), def)
}

func envKey(key string) string {
	return EnvPrefix + strings.ReplaceAll(key, ".", "_")
}

type mapStore map[string]string

// Map returns a Store backed by a fixed key/value map.
func Map(m map[string]string) Store {
	return mapStore(m)
}

func (m mapStore) String(key string, def string) string {
	v, ok := m[key]
	if !ok || v == "" {
		return def
	}
	return truncate(v)
}

func (m mapStore) Bool(key string, def bool) bool {
	return parseBool(m.String(key, ""), def)
}

func truncate(v string) string {
	if len(v) > ValueMax {
		return v[:ValueMax]
	}
	return v
}

// parseBool follows the platform's property_get_bool value set rather than
// strconv.ParseBool.
func parseBool(v string, def bool) bool {
	switch strings.ToLower(v) {
	case "1", "y", "yes", "on", "true":
		return true
	case "0", "n", "no", "off", "false":
		return false
	}
	return def
}
