package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderID        = "X-Webhook-ID"

	signaturePrefix = "sha256="
)

// SignatureHeaders carries a payload signature and the time it was made.
type SignatureHeaders struct {
	Signature string
	Timestamp int64
}

// Headers returns the HTTP header form of the signature.
func (s SignatureHeaders) Headers() map[string]string {
	return map[string]string{
		HeaderSignature: s.Signature,
		HeaderTimestamp: strconv.FormatInt(s.Timestamp, 10),
	}
}

// SignPayload signs "<timestamp>.<payload>" with HMAC-SHA256.
func SignPayload(secret string, payload []byte) (SignatureHeaders, error) {
	return signAt(secret, payload, time.Now())
}

func signAt(secret string, payload []byte, at time.Time) (SignatureHeaders, error) {
	if secret == "" {
		return SignatureHeaders{}, fmt.Errorf("%w: empty signing secret", ErrInvalidConfiguration)
	}
	ts := at.Unix()
	return SignatureHeaders{Signature: signaturePrefix + computeMAC(secret, ts, payload), Timestamp: ts}, nil
}

func computeMAC(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ExtractSignatureHeaders reads the signature headers from a header map.
func ExtractSignatureHeaders(headers map[string]string) (SignatureHeaders, error) {
	sig := headers[HeaderSignature]
	if sig == "" {
		return SignatureHeaders{}, fmt.Errorf("%w: missing %s", ErrInvalidSignature, HeaderSignature)
	}
	ts, err := strconv.ParseInt(headers[HeaderTimestamp], 10, 64)
	if err != nil {
		return SignatureHeaders{}, fmt.Errorf("%w: bad %s", ErrInvalidSignature, HeaderTimestamp)
	}
	return SignatureHeaders{Signature: sig, Timestamp: ts}, nil
}

// VerifySignature checks sig against payload and rejects signatures older or
// newer than tolerance. A zero tolerance skips the age check.
func VerifySignature(secret string, payload []byte, sig SignatureHeaders, tolerance time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: empty signing secret", ErrInvalidConfiguration)
	}
	if tolerance > 0 {
		age := time.Since(time.Unix(sig.Timestamp, 0))
		if age > tolerance || age < -tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}

	got, ok := strings.CutPrefix(sig.Signature, signaturePrefix)
	if !ok {
		return fmt.Errorf("%w: unsupported scheme", ErrInvalidSignature)
	}
	want := computeMAC(secret, sig.Timestamp, payload)
	if !hmac.Equal([]byte(got), []byte(want)) {
		return ErrInvalidSignature
	}
	return nil
}
