package ledger

import (
	"encoding/hex"
	"io"
	"os"

	"lukechampine.com/blake3"

	"github.com/kbukum/chunkscribe/errors"
)

// Fingerprint returns the hex blake3-256 digest of the file at path.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.SourceUnreadable(path, err)
	}
	defer f.Close()

	sum, err := FingerprintReader(f)
	if err != nil {
		return "", errors.IOFailure("fingerprint", path, err)
	}
	return sum, nil
}

// FingerprintReader hashes everything read from r.
func FingerprintReader(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
