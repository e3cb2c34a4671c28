package awsclient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

const sigV4Service = "secretsmanager"

type credentials struct {
	region       string
	accessKey    string
	secretKey    string
	sessionToken string
}

func (c credentials) complete() bool {
	return c.region != "" && c.accessKey != "" && c.secretKey != ""
}

// sign adds X-Amz-Date, the session token and a SigV4 Authorization header.
// Every header present at this point is signed.
func (c credentials) sign(req *http.Request, payload []byte, now time.Time) error {
	host := req.URL.Host
	if host == "" {
		return errors.New("aws host missing")
	}
	amzDate := now.Format("20060102T150405Z")
	date := amzDate[:8]
	req.Header.Set("Host", host)
	req.Header.Set("X-Amz-Date", amzDate)
	if c.sessionToken != "" {
		req.Header.Set("X-Amz-Security-Token", c.sessionToken)
	}

	canonicalHeaders, signedHeaders := canonicalizeHeaders(req.Header)
	canonicalRequest := strings.Join([]string{
		req.Method,
		"/",
		"",
		canonicalHeaders,
		signedHeaders,
		sha256Hex(payload),
	}, "\n")

	scope := date + "/" + c.region + "/" + sigV4Service + "/aws4_request"
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	key := hmacSHA256([]byte("AWS4"+c.secretKey), []byte(date))
	key = hmacSHA256(key, []byte(c.region))
	key = hmacSHA256(key, []byte(sigV4Service))
	key = hmacSHA256(key, []byte("aws4_request"))

	req.Header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		c.accessKey,
		scope,
		signedHeaders,
		hex.EncodeToString(hmacSHA256(key, []byte(stringToSign))),
	))
	return nil
}

func canonicalizeHeaders(headers http.Header) (string, string) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, strings.ToLower(k))
	}
	sort.Strings(keys)
	var canonical strings.Builder
	for _, key := range keys {
		values := headers.Values(key)
		trimmed := make([]string, len(values))
		for i, v := range values {
			trimmed[i] = strings.TrimSpace(v)
		}
		canonical.WriteString(key)
		canonical.WriteString(":")
		canonical.WriteString(strings.Join(trimmed, ","))
		canonical.WriteString("\n")
	}
	return canonical.String(), strings.Join(keys, ";")
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
