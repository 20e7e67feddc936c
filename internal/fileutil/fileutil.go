package fileutil

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"lukechampine.com/blake3"
)

// ErrLimitExceeded reports that a stream carried more bytes than allowed.
var ErrLimitExceeded = errors.New("size limit exceeded")

// Written describes a stream persisted to disk.
type Written struct {
	Bytes  int64
	BLAKE3 string
}

// WriteLimited streams r into a new file at dst while hashing it with BLAKE3.
// A positive limit caps the number of bytes accepted; exceeding it fails with
// ErrLimitExceeded. dst is removed on every failure path.
func WriteLimited(dst string, r io.Reader, limit int64) (written Written, err error) {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return Written{}, err
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
		}
	}()

	hasher := blake3.New(32, nil)
	src := r
	if limit > 0 {
		// Read one byte past the limit so an oversized stream is detectable.
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(io.MultiWriter(out, hasher), src)
	if err != nil {
		return Written{}, err
	}
	if limit > 0 && n > limit {
		return Written{}, fmt.Errorf("%w: more than %d bytes", ErrLimitExceeded, limit)
	}
	if err = out.Close(); err != nil {
		return Written{}, err
	}
	return Written{Bytes: n, BLAKE3: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// CopyFile streams src to a new file at dst with the same limit and hashing
// rules as WriteLimited.
func CopyFile(src, dst string, limit int64) (Written, error) {
	in, err := os.Open(src)
	if err != nil {
		return Written{}, err
	}
	defer in.Close()
	return WriteLimited(dst, in, limit)
}

// HashFile returns the hex BLAKE3-256 digest of the file at path.
func HashFile(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()
	hasher := blake3.New(32, nil)
	if _, err := io.Copy(hasher, in); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
