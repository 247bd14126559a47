package bank

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"
)

// FileBank is the second reference backend required by §6: a bank backed by
// a real file on a real filesystem, standing in for the vendor HAL backend
// (Stm32f4FlashBank in the source) that a portable module cannot reach.
//
// FileBank provisions its backing file atomically on first use — via
// atomic.WriteFile — so a process crash between "decide to create the bank
// file" and "file exists with the right size" cannot leave a
// partially-initialized file for the engine to misclassify. Once open,
// Erase and WriteAt use plain positional file I/O: the crash-safety
// properties the engine relies on come from record write ordering (§4.2),
// not from atomic renames on every program operation.
type FileBank[P Uint] struct {
	f         *os.File
	length    P
	emptyByte byte
}

var _ Backend[uint32] = (*FileBank[uint32])(nil)

// OpenFileBank opens (provisioning if necessary) a file-backed bank at path
// with the given length and empty byte.
//
// If the file does not exist, it is created filled with emptyByte via an
// atomic rename so it never appears half-written. If it exists, its size
// must equal length exactly.
func OpenFileBank[P Uint](path string, length P, emptyByte byte) (*FileBank[P], error) {
	if length == 0 {
		return nil, errors.New("bank: length must be non-zero")
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := provisionFile(path, length, emptyByte); err != nil {
			return nil, fmt.Errorf("bank: provision %s: %w", path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("bank: stat %s: %w", path, err)
	case info.Size() != int64(length):
		return nil, fmt.Errorf("bank: %s has size %d, want %d", path, info.Size(), length)
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrBackendFailure, path, err)
	}

	return &FileBank[P]{f: f, length: length, emptyByte: emptyByte}, nil
}

func provisionFile[P Uint](path string, length P, emptyByte byte) error {
	buf := bytes.Repeat([]byte{emptyByte}, int(length))
	return atomic.WriteFile(path, bytes.NewReader(buf))
}

// Close releases the underlying file descriptor. The engine does not call
// this; callers that own a FileBank directly (e.g. cmd/txctl) must close it
// once done with the engine.
func (b *FileBank[P]) Close() error {
	return b.f.Close()
}

// Length implements Backend.
func (b *FileBank[P]) Length() P {
	return b.length
}

// EmptyByte implements Backend.
func (b *FileBank[P]) EmptyByte() byte {
	return b.emptyByte
}

// Erase implements Backend.
func (b *FileBank[P]) Erase() error {
	buf := bytes.Repeat([]byte{b.emptyByte}, int(b.length))

	if _, err := b.f.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("%w: erase: %v", ErrBackendFailure, err)
	}

	if err := b.f.Sync(); err != nil {
		return fmt.Errorf("%w: erase sync: %v", ErrBackendFailure, err)
	}

	return nil
}

// ReadAt implements Backend.
func (b *FileBank[P]) ReadAt(pos P, dst []byte) error {
	if err := checkRange(b.length, pos, len(dst)); err != nil {
		return err
	}

	n, err := b.f.ReadAt(dst, int64(pos))
	if err != nil && !(errors.Is(err, io.EOF) && n == len(dst)) {
		return fmt.Errorf("%w: read at %d: %v", ErrBackendFailure, pos, err)
	}

	return nil
}

// WriteAt implements Backend.
func (b *FileBank[P]) WriteAt(pos P, src []byte) error {
	if err := checkRange(b.length, pos, len(src)); err != nil {
		return err
	}

	if _, err := b.f.WriteAt(src, int64(pos)); err != nil {
		return fmt.Errorf("%w: write at %d: %v", ErrBackendFailure, pos, err)
	}

	if err := b.f.Sync(); err != nil {
		return fmt.Errorf("%w: write sync at %d: %v", ErrBackendFailure, pos, err)
	}

	return nil
}
