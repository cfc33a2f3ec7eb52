package security

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprinter derives a stable device identifier from client signals.
// The hash is keyed with a server-side salt so fingerprints cannot be
// precomputed from known user-agent/IP pairs. Coarse by design: it detects a
// token moved to a different machine or network, not a spoofed client.
type Fingerprinter struct {
	key []byte
}

// NewFingerprinter returns a Fingerprinter keyed with salt.
// BLAKE2b keys are capped at 64 bytes; longer salts are reduced first.
func NewFingerprinter(salt string) *Fingerprinter {
	key := []byte(salt)
	if len(key) > 64 {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Fingerprinter{key: key}
}

// Fingerprint returns the hex-encoded keyed BLAKE2b-256 digest of the
// user-agent and IP. Deterministic, no I/O.
func (f *Fingerprinter) Fingerprint(userAgent, ip string) string {
	h, err := blake2b.New256(f.key)
	if err != nil {
		// Only possible with a key over 64 bytes, which NewFingerprinter prevents.
		panic(err)
	}
	h.Write([]byte(userAgent))
	h.Write([]byte{'\n'})
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}
