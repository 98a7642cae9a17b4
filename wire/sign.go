package wire

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
)

// SignatureSchemeHMACSHA256 is the only signature scheme this protocol
// supports.
const SignatureSchemeHMACSHA256 = "hmac-sha256"

// ErrBadSignature is returned when a recomputed HMAC does not match the
// signature frame.
var ErrBadSignature = errors.New("wire: bad signature")

// ErrNotSupportedSignatureScheme is returned for any signature_scheme
// other than hmac-sha256.
var ErrNotSupportedSignatureScheme = errors.New("wire: unsupported signature scheme")

// Sign computes the lowercase-hex HMAC-SHA256 over f's four body
// frames and sets f.Signature to it. An empty key produces an empty
// signature, meaning "unsigned".
func Sign(f Frames, scheme string, key []byte) (Frames, error) {
	if scheme != "" && scheme != SignatureSchemeHMACSHA256 {
		return Frames{}, ErrNotSupportedSignatureScheme
	}

	if len(key) == 0 {
		f.Signature = []byte{}
		return f, nil
	}

	f.Signature = []byte(hexHMAC(key, f.Header, f.ParentHeader, f.Metadata, f.Content))
	return f, nil
}

// Verify recomputes the HMAC over f's four body frames and compares it
// in constant time against f.Signature. If key is empty, verification
// is skipped and Verify always succeeds.
func Verify(f Frames, scheme string, key []byte) error {
	if scheme != "" && scheme != SignatureSchemeHMACSHA256 {
		return ErrNotSupportedSignatureScheme
	}

	if len(key) == 0 {
		return nil
	}

	want := hexHMAC(key, f.Header, f.ParentHeader, f.Metadata, f.Content)
	if !hmac.Equal([]byte(want), f.Signature) {
		return ErrBadSignature
	}
	return nil
}

func hexHMAC(key []byte, parts ...[]byte) string {
	mac := hmac.New(sha256.New, key)
	for _, p := range parts {
		mac.Write(p)
	}
	return hex.EncodeToString(mac.Sum(nil))
}
