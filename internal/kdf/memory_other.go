//go:build !linux

package kdf

func physicalMemory() uint64 { return 0 }
