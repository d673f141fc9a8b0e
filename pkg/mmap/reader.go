// Package mmap maps serialized page files read-only so pages can be decoded
// straight out of the page cache.
package mmap

import (
	"os"
	"sync"

	"github.com/ajitpratap0/nebula-blocks/pkg/errors"
	"github.com/ajitpratap0/nebula-blocks/pkg/logger"
	"go.uber.org/zap"
)

// Reader is a read-only memory mapping of a whole file.
type Reader struct {
	file     *os.File
	data     []byte
	fileSize int64
	pageSize int

	bytesRead int64
	pagesRead int64

	mu sync.RWMutex
}

// Open maps filename. Empty files are rejected because they cannot be mapped.
func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to open file")
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to stat file")
	}

	fileSize := stat.Size()
	if fileSize == 0 {
		file.Close()
		return nil, errors.New(errors.ErrorTypeTruncatedInput, "file is empty").
			WithDetail("file", filename)
	}

	data, err := mmap(int(file.Fd()), 0, int(fileSize), protRead, mapShared)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to mmap file")
	}

	if err := madvise(data, madvSequential); err != nil {
		logger.Get().Debug("madvise failed", zap.String("file", filename), zap.Error(err))
	}

	return &Reader{
		file:     file,
		data:     data,
		fileSize: fileSize,
		pageSize: os.Getpagesize(),
	}, nil
}

// Size returns the mapped length in bytes.
func (r *Reader) Size() int64 { return r.fileSize }

// Bytes returns the whole mapping. The slice is invalid after Close.
func (r *Reader) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefetchRange(0, r.fileSize)
	r.bytesRead = r.fileSize
	r.pagesRead = (r.fileSize + int64(r.pageSize) - 1) / int64(r.pageSize)
	return r.data
}

// ReadRange returns up to length bytes starting at offset, without copying.
func (r *Reader) ReadRange(offset, length int64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data == nil {
		return nil, errors.New(errors.ErrorTypeInternal, "reader is closed")
	}
	if offset < 0 || offset >= r.fileSize || length < 0 {
		return nil, errors.OutOfRange("range at %d of length %d outside [0, %d)", offset, length, r.fileSize)
	}

	end := offset + length
	if end > r.fileSize {
		end = r.fileSize
	}
	r.prefetchRange(offset, end)

	r.bytesRead += end - offset
	r.pagesRead += ((end - offset) + int64(r.pageSize) - 1) / int64(r.pageSize)
	return r.data[offset:end], nil
}

// prefetchRange advises the kernel to fault in [start, end), rounded out to
// page boundaries.
func (r *Reader) prefetchRange(start, end int64) {
	if r.data == nil {
		return
	}
	ps := int64(r.pageSize)
	startPage := (start / ps) * ps
	endPage := ((end + ps - 1) / ps) * ps
	if endPage > r.fileSize {
		endPage = r.fileSize
	}
	if endPage <= startPage {
		return
	}
	_ = madvise(r.data[startPage:endPage], madvWillneed)
}

// Close unmaps the file and closes it. It is safe to call twice.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.data != nil {
		if e := munmap(r.data); e != nil {
			err = errors.Wrap(e, errors.ErrorTypeInternal, "failed to unmap file")
		}
		r.data = nil
	}
	if r.file != nil {
		if closeErr := r.file.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, errors.ErrorTypeInternal, "failed to close file")
		}
		r.file = nil
	}
	return err
}

// Stats returns reading statistics
func (r *Reader) Stats() (bytesRead, pagesRead int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bytesRead, r.pagesRead
}
