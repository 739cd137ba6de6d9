package core

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrSignatureInvalid is returned when a callback signature is missing or does not verify
var ErrSignatureInvalid = errors.New("invalid signature")

const (
	pemBegin = "-----BEGIN PUBLIC KEY-----"
	pemEnd   = "-----END PUBLIC KEY-----"
)

// FormatPubKey normalizes a public key as pasted from the developer console.
// The console shows the key on one line with spaces where newlines belong;
// the armor lines are optional.
func FormatPubKey(pubKey string) string {
	key := strings.TrimSpace(pubKey)
	key = strings.TrimPrefix(key, pemBegin)
	key = strings.TrimSuffix(key, pemEnd)
	key = strings.ReplaceAll(key, " ", "\n")
	if !strings.HasPrefix(key, "\n") {
		key = "\n" + key
	}
	if !strings.HasSuffix(key, "\n") {
		key += "\n"
	}
	return pemBegin + key + pemEnd + "\n"
}

// ParsePublicKey parses an RSA public key in any form FormatPubKey accepts
func ParsePublicKey(pubKey string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(FormatPubKey(pubKey)))
	if block == nil {
		return nil, fmt.Errorf("pub_key is not a PEM public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pub_key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("pub_key is not an RSA key")
	}
	return key, nil
}

// EncryptSecret derives the value sent in the bot secret header: the hex
// HMAC-SHA256 of secret keyed with the formatted public key.
func EncryptSecret(pubKey, secret string) string {
	mac := hmac.New(sha256.New, []byte(FormatPubKey(pubKey)))
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verifier checks the RSA signature of webhook callbacks
type Verifier struct {
	key    *rsa.PublicKey
	secret string
}

// NewVerifier creates a verifier for the bot owning pubKey and secret
func NewVerifier(pubKey, secret string) (*Verifier, error) {
	key, err := ParsePublicKey(pubKey)
	if err != nil {
		return nil, err
	}
	return &Verifier{key: key, secret: secret}, nil
}

// signedData is what the platform signs: the form-encoded body without
// trailing newlines, followed by the plain bot secret.
func (v *Verifier) signedData(body string) []byte {
	return []byte(url.Values{
		"body":   {strings.TrimRight(body, "\n")},
		"secret": {v.secret},
	}.Encode())
}

// Verify checks a base64 signature over body
func (v *Verifier) Verify(body []byte, sign string) error {
	if sign == "" {
		return fmt.Errorf("%w: missing signature", ErrSignatureInvalid)
	}
	sig, err := base64.StdEncoding.DecodeString(sign)
	if err != nil {
		return fmt.Errorf("%w: signature is not base64: %w", ErrSignatureInvalid, err)
	}
	digest := sha256.Sum256(v.signedData(string(body)))
	if err := rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}
	return nil
}
