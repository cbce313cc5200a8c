package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrInvalidSignature = errors.New("invalid request signature")
	ErrRequestExpired   = errors.New("request timestamp expired or too far in future")
)

// MaxClockDrift is the accepted distance between a request timestamp and now.
const MaxClockDrift = 5 * time.Minute

// Sign returns the hex HMAC-SHA256 of method + path + body + timestamp.
func Sign(secret, method, path string, body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)
	mac.Write([]byte(timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC verifies the authenticity and integrity of a request using HMAC-SHA256.
// It constructs the expected signature using the shared secret and the payload (Method + Path + Body + Timestamp)
// and compares it with the provided signature in constant time.
//
// Arguments:
//   - secret: The shared secret key (API_SECRET).
//   - method: HTTP method (e.g., "POST").
//   - path: Request URL path (e.g., "/convert").
//   - body: Raw request body content; for uploads this is the workbook bytes.
//   - timestamp: Unix timestamp string from X-Timestamp header.
//   - signature: Hex-encoded HMAC signature from X-Signature header.
//
// Returns error if signature is invalid, timestamp is expired, or format is wrong.
func VerifyHMAC(secret, method, path string, body []byte, timestamp, signature string) error {
	return verifyAt(time.Now(), secret, method, path, body, timestamp, signature)
}

func verifyAt(now time.Time, secret, method, path string, body []byte, timestamp, signature string) error {
	if secret == "" {
		return nil // No secret configured, skip auth
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}

	drift := now.Unix() - ts
	limit := int64(MaxClockDrift / time.Second)
	if drift < -limit || drift > limit {
		return ErrRequestExpired
	}

	expectedMAC := Sign(secret, method, path, body, timestamp)
	if !hmac.Equal([]byte(signature), []byte(expectedMAC)) {
		return ErrInvalidSignature
	}

	return nil
}
