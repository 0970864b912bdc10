package payment

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
)

// VerifySignature reports whether signature matches the keyed hash the
// gateway computes over a completed checkout: hex(HMAC-SHA256(secret,
// orderID + "|" + paymentID)). This is the sole proof that a claimed
// payment actually belongs to a claimed order; any mismatch, including
// malformed input, returns false. The comparison is constant time.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write([]byte(orderID + "|" + paymentID))
    expected := hex.EncodeToString(mac.Sum(nil))
    return hmac.Equal([]byte(expected), []byte(signature))
}
