//go:build !linux

package version

func kernelRelease() string { return "" }
