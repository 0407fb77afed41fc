//go:build !linux

package gfxenv

func processDumpable() bool {
	return false
}
