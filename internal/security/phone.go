package security

import (
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Iranian mobile numbers: optional +98/0098/98/0 prefix, then 9 and nine digits.
var irMobile = regexp.MustCompile(`^(?:\+98|0098|98|0)?9\d{9}$`)

// NormalizePhone strips separators and rewrites the country prefix to the
// local 09xxxxxxxxx form. Input that does not look like a mobile number is
// returned with only the separators removed.
func NormalizePhone(raw string) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(toASCIIDigits(raw)))

	if !irMobile.MatchString(s) {
		return s
	}

	return "0" + s[len(s)-10:]
}

func IsIranianMobile(raw string) bool {
	return irMobile.MatchString(NormalizePhone(raw))
}

// HashPhone returns a keyed BLAKE2b-256 digest of the normalized number.
func HashPhone(key []byte, phone string) (string, error) {
	// blake2b keys are capped at 64 bytes
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}

	h, err := blake2b.New256(key)
	if err != nil {
		return "", err
	}

	h.Write([]byte(NormalizePhone(phone)))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Persian and Arabic-Indic keyboards produce their own digit runes.
func toASCIIDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		}
		return r
	}, s)
}
