// Package pagecache is the paginated page-file layer the tree sits on:
// fixed-size pages addressed by a global (fileID, localPage) pair, backed
// by an admission-checked in-memory cache with pin/unpin discipline.
package pagecache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// PageSize is the fixed width of every page in every file this package
// manages.
const PageSize = 4096

// File is one open page file: an OS file handle plus the count of pages
// currently allocated in it. Opening a File takes an OS-level advisory
// exclusive lock, enforcing single-writer access even across processes.
type File struct {
	mu         sync.RWMutex
	fileID     uint32
	path       string
	f          *os.File
	filledUpTo int64 // number of pages currently allocated
}

// OpenFile opens or creates the page file at path under the given fileID,
// taking an exclusive advisory lock for the lifetime of the handle.
func OpenFile(path string, fileID uint32) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("pagecache: open %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("pagecache: %s is locked by another writer: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pagecache: stat %s: %w", path, err)
	}

	return &File{
		fileID:     fileID,
		path:       path,
		f:          f,
		filledUpTo: stat.Size() / PageSize,
	}, nil
}

// ReadPage reads localPage into buf, which must be exactly PageSize bytes.
// Reading past the current end of file yields a zero-filled page.
func (fl *File) ReadPage(localPage int64, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("pagecache: read buffer must be %d bytes, got %d", PageSize, len(buf))
	}
	fl.mu.RLock()
	defer fl.mu.RUnlock()

	n, err := fl.f.ReadAt(buf, localPage*PageSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("pagecache: read page %d of %s: %w", localPage, fl.path, err)
	}
	for i := n; i < PageSize; i++ {
		buf[i] = 0
	}
	return nil
}

// WritePage writes buf (exactly PageSize bytes) to localPage.
func (fl *File) WritePage(localPage int64, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("pagecache: write buffer must be %d bytes, got %d", PageSize, len(buf))
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if _, err := fl.f.WriteAt(buf, localPage*PageSize); err != nil {
		return fmt.Errorf("pagecache: write page %d of %s: %w", localPage, fl.path, err)
	}
	if localPage >= fl.filledUpTo {
		fl.filledUpTo = localPage + 1
	}
	return nil
}

// Allocate reserves the next local page number in this file. It does not
// write anything to disk — the caller (Cache) is responsible for that.
func (fl *File) Allocate() int64 {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	n := fl.filledUpTo
	fl.filledUpTo++
	return n
}

// FilledUpTo returns the number of pages currently allocated in this file.
func (fl *File) FilledUpTo() int64 {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return fl.filledUpTo
}

// Truncate resets the file to hold exactly numPages pages, used by Clear.
func (fl *File) Truncate(numPages int64) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if err := fl.f.Truncate(numPages * PageSize); err != nil {
		return fmt.Errorf("pagecache: truncate %s: %w", fl.path, err)
	}
	fl.filledUpTo = numPages
	return nil
}

// Sync flushes the file's OS buffers to stable storage.
func (fl *File) Sync() error {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return fl.f.Sync()
}

// Close releases the advisory lock and closes the underlying handle.
func (fl *File) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	unix.Flock(int(fl.f.Fd()), unix.LOCK_UN)
	return fl.f.Close()
}

// GlobalPageID packs a fileID and a page number local to that file into
// the single int64 address space every other component in this module
// deals in.
func GlobalPageID(fileID uint32, localPage int64) int64 {
	return int64(fileID)<<32 | (localPage & 0xFFFFFFFF)
}

// SplitPageID is the inverse of GlobalPageID.
func SplitPageID(id int64) (fileID uint32, localPage int64) {
	return uint32(id >> 32), id & 0xFFFFFFFF
}
