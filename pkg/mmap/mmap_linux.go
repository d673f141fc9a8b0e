//go:build linux

package mmap

import (
	"syscall"
)

// mmap wraps the mmap system call
func mmap(fd int, offset int64, length int, prot int, flags int) ([]byte, error) {
	return syscall.Mmap(fd, offset, length, prot, flags)
}

// munmap wraps the munmap system call
func munmap(b []byte) error {
	return syscall.Munmap(b)
}

// madvise wraps the madvise system call
func madvise(b []byte, advice int) error {
	return syscall.Madvise(b, advice)
}

const (
	// Memory protection flags
	protRead = syscall.PROT_READ

	// Memory mapping flags
	mapShared = syscall.MAP_SHARED

	// Memory advice flags
	madvSequential = syscall.MADV_SEQUENTIAL
	madvWillneed   = syscall.MADV_WILLNEED
)
