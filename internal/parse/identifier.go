package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"classroom-access-backend/internal/model"
)

var (
	separatorRe = regexp.MustCompile(`[\s:\-]+`)
	hexRe       = regexp.MustCompile(`^[0-9A-F]+$`)
	digitsRe    = regexp.MustCompile(`^\d+$`)
)

// UID lengths in hex digits: 4-, 7- and 10-byte ISO 14443 card identifiers.
var rfidLengths = map[int]bool{8: true, 14: true, 20: true}

// Identifier normalizes a raw reader identifier so it can be matched against stored credentials.
func Identifier(raw string, method model.AuthMethodType) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty %s identifier", method)
	}

	switch method {
	case model.AuthMethodRFID:
		return rfidUID(s)
	case model.AuthMethodFingerprint:
		return fingerprintID(s)
	default:
		return "", fmt.Errorf("unsupported auth method %q", method)
	}
}

// rfidUID accepts "04:A3:2B:1C", "04-a3-2b-1c", "0x04A32B1C" and similar reader outputs.
func rfidUID(s string) (string, error) {
	uid := strings.ToUpper(separatorRe.ReplaceAllString(s, ""))
	uid = strings.TrimPrefix(uid, "0X")
	if !hexRe.MatchString(uid) {
		return "", fmt.Errorf("rfid uid %q is not hexadecimal", s)
	}
	if !rfidLengths[len(uid)] {
		return "", fmt.Errorf("rfid uid %q has %d hex digits", s, len(uid))
	}
	return uid, nil
}

// fingerprintID accepts the sensor's decimal template slot, with or without leading zeros.
func fingerprintID(s string) (string, error) {
	if !digitsRe.MatchString(s) {
		return "", fmt.Errorf("fingerprint id %q is not numeric", s)
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return "", fmt.Errorf("fingerprint id %q out of range: %w", s, err)
	}
	return strconv.FormatUint(n, 10), nil
}
