// Package signature verifies that webhook payloads were produced by a holder of a shared secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"

	"github.com/rookgm/creditmart/internal/models"
)

// Sign returns hex encoded HMAC of payload
func Sign(newHash func() hash.Hash, payload []byte, secret string) string {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks hex encoded signature of the raw payload.
// payload must be the exact bytes received, never a re-encoded document.
func VerifyHMAC(newHash func() hash.Hash, payload []byte, signatureHex, secret string) error {
	if secret == "" {
		return models.ErrMissingSecret
	}
	signatureHex = strings.TrimSpace(signatureHex)
	if signatureHex == "" {
		return models.ErrMissingSignature
	}

	got, err := hex.DecodeString(signatureHex)
	if err != nil {
		return models.ErrSignatureMismatch
	}

	mac := hmac.New(newHash, []byte(secret))
	mac.Write(payload)

	if !hmac.Equal(mac.Sum(nil), got) {
		return models.ErrSignatureMismatch
	}

	return nil
}

// VerifySHA512 checks HMAC-SHA512 signature as sent by Paystack
func VerifySHA512(payload []byte, signatureHex, secret string) error {
	return VerifyHMAC(sha512.New, payload, signatureHex, secret)
}
