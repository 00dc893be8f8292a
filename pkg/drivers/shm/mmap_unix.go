//go:build unix

package shm

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int, writable bool) ([]byte, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size, prot, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", f.Name())
	}
	return mem, nil
}

func unmap(mem []byte) error {
	return errors.Wrap(unix.Munmap(mem), "munmap")
}

// linked reports whether the open file still has a name. A bridge removes
// its file when the simulator exits.
func linked(f *os.File) bool {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return false
	}
	return st.Nlink > 0
}
