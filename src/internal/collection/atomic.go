package collection

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// tmpSuffix is appended to the target path while a write is in flight
const tmpSuffix = ".tmp"

// marshalStable serializes v with 2-space indentation. encoding/json writes
// struct fields in declaration order and map keys sorted, so the output is
// byte-stable for equal input.
func marshalStable(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal record")
	}
	return append(data, '\n'), nil
}

// writeFileAtomic writes data to path via a temp file: write, fsync, rename
// over the target, fsync the parent directory. On any error before the
// rename the temp file is unlinked and the target stays untouched. The hex
// SHA-256 of data is returned.
func writeFileAtomic(path string, data []byte) (checksum string, err error) {
	tmp := path + tmpSuffix

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", errors.Wrapf(err, "cannot create temp file '%s'", tmp)
	}

	if _, err = f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", errors.Wrapf(err, "cannot write temp file '%s'", tmp)
	}
	if err = f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", errors.Wrapf(err, "cannot sync temp file '%s'", tmp)
	}
	if err = f.Close(); err != nil {
		os.Remove(tmp)
		return "", errors.Wrapf(err, "cannot close temp file '%s'", tmp)
	}

	if err = os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", errors.Wrapf(err, "cannot rename '%s' to '%s'", tmp, path)
	}

	// make the rename durable
	if dir, err0 := os.Open(filepath.Dir(path)); err0 == nil {
		_ = dir.Sync()
		dir.Close()
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// writeJSONAtomic serializes v and writes it atomically to path
func writeJSONAtomic(path string, v interface{}) (checksum string, err error) {
	data, err := marshalStable(v)
	if err != nil {
		return "", err
	}
	return writeFileAtomic(path, data)
}

// checksumOf returns the hex SHA-256 of data
func checksumOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
