package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"classroom-access-backend/internal/model"
)

func TestIdentifier(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		method    model.AuthMethodType
		expected  string
		expectErr bool
	}{
		{
			name:     "Colon separated UID",
			raw:      "04:a3:2b:1c",
			method:   model.AuthMethodRFID,
			expected: "04A32B1C",
		},
		{
			name:     "Dash separated seven byte UID",
			raw:      "04-A3-2B-1C-5D-6E-7F",
			method:   model.AuthMethodRFID,
			expected: "04A32B1C5D6E7F",
		},
		{
			name:     "Hex prefix and spaces",
			raw:      "  0x04A3 2B1C ",
			method:   model.AuthMethodRFID,
			expected: "04A32B1C",
		},
		{
			name:      "UID with non hex characters",
			raw:       "04:G3:2B:1C",
			method:    model.AuthMethodRFID,
			expectErr: true,
		},
		{
			name:      "UID with odd length",
			raw:       "04A32B1",
			method:    model.AuthMethodRFID,
			expectErr: true,
		},
		{
			name:     "Fingerprint slot with leading zeros",
			raw:      "00042",
			method:   model.AuthMethodFingerprint,
			expected: "42",
		},
		{
			name:     "Fingerprint slot zero",
			raw:      "0",
			method:   model.AuthMethodFingerprint,
			expected: "0",
		},
		{
			name:      "Fingerprint slot not numeric",
			raw:       "12a",
			method:    model.AuthMethodFingerprint,
			expectErr: true,
		},
		{
			name:      "Empty identifier",
			raw:       "   ",
			method:    model.AuthMethodRFID,
			expectErr: true,
		},
		{
			name:      "Unknown method",
			raw:       "1234",
			method:    model.AuthMethodType("pin"),
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Identifier(tc.raw, tc.method)
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, parsed)
			}
		})
	}
}
