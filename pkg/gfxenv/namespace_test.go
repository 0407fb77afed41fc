package gfxenv

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gfxmux/gfxd/pkg/linker"
	"github.com/gfxmux/gfxd/pkg/props"
	"github.com/gfxmux/gfxd/pkg/syslibs"
)

func TestDriverNamespace(t *testing.T) {
	fl := newFakeLinker()
	vndk := fl.export("vndk")
	e := newTestEnv(t, fl, nil)
	e.SetDriverPath("/vendor/lib64/egl")

	ns := e.DriverNamespace()
	require.NotNil(t, ns)
	assert.Equal(t, "gfx driver", ns.Name())
	assert.Equal(t, linker.TypeIsolated, ns.Type())
	assert.Equal(t, "/vendor/lib64/egl", ns.DefaultLibraryPath())

	// linked to the default namespace with the llndk list, then to the
	// base system namespace with the vndksp list
	require.Len(t, fl.linkCalls, 2)
	assert.Nil(t, fl.linkCalls[0].to)
	assert.Equal(t, []string{"libEGL.so", "libGLESv2.so"}, fl.linkCalls[0].sonames)
	assert.Same(t, vndk, fl.linkCalls[1].to)
	assert.Equal(t, []string{"libhidlbase.so"}, fl.linkCalls[1].sonames)

	// idempotent: same handle, construction ran once
	for i := 0; i < 4; i++ {
		assert.Same(t, ns, e.DriverNamespace())
	}
	assert.Equal(t, 1, fl.createCalls)
}

func TestDriverNamespaceEmptyPath(t *testing.T) {
	fl := newFakeLinker()
	fl.export("vndk")
	e := newTestEnv(t, fl, nil)

	assert.Nil(t, e.DriverNamespace())
	assert.Zero(t, fl.createCalls)

	// absence is memoized: setting the path afterwards changes nothing
	e.SetDriverPath("/vendor/lib64/egl")
	assert.Nil(t, e.DriverNamespace())
	assert.Zero(t, fl.createCalls)
}

func TestDriverNamespaceMissingBaseSystem(t *testing.T) {
	fl := newFakeLinker()
	e := newTestEnv(t, fl, nil)
	e.SetDriverPath("/vendor/lib64/egl")

	assert.Nil(t, e.DriverNamespace())
	assert.Zero(t, fl.createCalls)
	assert.Nil(t, e.DriverNamespace())
}

func TestDriverNamespaceLinkFailureIsPermanent(t *testing.T) {
	for _, failAt := range []int{1, 2} {
		fl := newFakeLinker()
		fl.export("vndk")
		fl.linkErrAt = failAt
		e := newTestEnv(t, fl, nil)
		e.SetDriverPath("/vendor/lib64/egl")

		assert.Nil(t, e.DriverNamespace(), "link call %d failed", failAt)
		assert.Nil(t, e.DriverNamespace())
		assert.Equal(t, 1, fl.createCalls, "construction must not be retried")
	}
}

func TestDriverNamespaceEmptyAllowList(t *testing.T) {
	fl := newFakeLinker()
	fl.export("vndk")
	e := newTestEnv(t, fl, nil,
		WithAllowListLoader(func(kind syslibs.Kind, _ props.Store) ([]string, error) {
			if kind == syslibs.VNDKSP {
				return nil, errors.New("unreadable")
			}
			return []string{"libEGL.so"}, nil
		}))
	e.SetDriverPath("/vendor/lib64/egl")

	assert.Nil(t, e.DriverNamespace())
	require.Len(t, fl.linkCalls, 1)
}

func TestAltNamespace(t *testing.T) {
	fl := newFakeLinker()
	e := newTestEnv(t, fl, nil)
	e.SetAltInfo("/data/app/alt", testApp, OptInNative, nil, 0, 0)

	ns := e.AltNamespace()
	require.NotNil(t, ns)
	assert.Equal(t, "gfx alt", ns.Name())
	assert.Equal(t, linker.TypeShared|linker.TypeIsolated, ns.Type())
	assert.Equal(t, "/data/app/alt", ns.DefaultLibraryPath())
	assert.Equal(t, []string{"/data/app/alt"}, ns.SearchDirs())

	// no allow-list linking for the backend scope
	assert.Empty(t, fl.linkCalls)

	for i := 0; i < 4; i++ {
		assert.Same(t, ns, e.AltNamespace())
	}
	assert.Equal(t, 1, fl.createCalls)
}

func TestAltNamespaceEmptyPath(t *testing.T) {
	fl := newFakeLinker()
	e := newTestEnv(t, fl, nil)

	for i := 0; i < 3; i++ {
		assert.Nil(t, e.AltNamespace())
	}
	assert.Zero(t, fl.createCalls)
}

func TestNamespaceConcurrentConstruction(t *testing.T) {
	fl := newFakeLinker()
	fl.export("vndk")
	e := newTestEnv(t, fl, nil)
	e.SetDriverPath("/vendor/lib64/egl")

	results := make([]*linker.Namespace, 16)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.DriverNamespace()
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for _, ns := range results {
		assert.Same(t, results[0], ns)
	}
	assert.Equal(t, 1, fl.createCalls)
}

func TestAltNamespaceCreateFailure(t *testing.T) {
	fl := newFakeLinker()
	fl.createErr = errors.New("out of namespaces")
	e := newTestEnv(t, fl, nil)
	e.SetAltInfo("/data/app/alt", testApp, OptInNative, nil, 0, 0)

	assert.Nil(t, e.AltNamespace())
	assert.Nil(t, e.AltNamespace())
	assert.Equal(t, 1, fl.createCalls)
}
