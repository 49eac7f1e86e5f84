// Package signature implements the payment provider's webhook signing scheme:
// HMAC-SHA256 over "{timestamp}.{payload}", sent as "t=<unix>,v1=<hex>".
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const schemeV1 = "v1"

var (
	ErrMissingHeader    = errors.New("signature header is missing")
	ErrMalformedHeader  = errors.New("signature header is malformed")
	ErrTimestampExpired = errors.New("signature timestamp outside tolerance")
	ErrNoValidSignature = errors.New("no signature matches the payload")
)

// Compute returns the hex HMAC-SHA256 of "{timestamp}.{payload}".
func Compute(payload []byte, secret string, timestamp int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Header builds a signature header for payload, as the provider would send it.
func Header(payload []byte, secret string, timestamp int64) string {
	return fmt.Sprintf("t=%d,%s=%s", timestamp, schemeV1, Compute(payload, secret, timestamp))
}

// Verify checks header against payload. A zero tolerance disables the
// timestamp age check.
func Verify(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if header == "" {
		return ErrMissingHeader
	}

	ts, sigs, err := parseHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return ErrTimestampExpired
		}
	}

	expected := []byte(Compute(payload, secret, ts))
	for _, sig := range sigs {
		if hmac.Equal(expected, []byte(sig)) {
			return nil
		}
	}

	return ErrNoValidSignature
}

func parseHeader(header string) (int64, []string, error) {
	var (
		ts    int64
		hasTS bool
		sigs  []string
	)

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}

		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrMalformedHeader)
			}
			ts, hasTS = parsed, true
		case schemeV1:
			sigs = append(sigs, value)
		}
	}

	if !hasTS {
		return 0, nil, fmt.Errorf("%w: no timestamp", ErrMalformedHeader)
	}
	if len(sigs) == 0 {
		return 0, nil, fmt.Errorf("%w: no %s signature", ErrMalformedHeader, schemeV1)
	}

	return ts, sigs, nil
}
