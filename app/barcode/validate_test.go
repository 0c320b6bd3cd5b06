package barcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		name          string
		raw           string
		expectedValid bool
		expected      Validation
	}{
		{
			name:     "Empty input",
			raw:      "",
			expected: Validation{Reason: ReasonNotProvided},
		},
		{
			name:     "Whitespace only",
			raw:      "   ",
			expected: Validation{Reason: ReasonNotProvided},
		},
		{
			name:     "Amazon FNSKU",
			raw:      "X00ABC1234",
			expected: Validation{Reason: ReasonAmazonFNSKU},
		},
		{
			name:     "Amazon FNSKU lowercase",
			raw:      "x00abc1234",
			expected: Validation{Reason: ReasonAmazonFNSKU},
		},
		{
			name:     "Amazon LPN",
			raw:      "LPN1234567890",
			expected: Validation{Reason: ReasonAmazonLPN},
		},
		{
			name:     "UPC-A with dashes",
			raw:      "012-345-678901",
			expected: Validation{Valid: true, Normalized: "012345678901", Format: FormatUPCA},
		},
		{
			name:     "EAN-13 with spaces",
			raw:      "4 006381 333931",
			expected: Validation{Valid: true, Normalized: "4006381333931", Format: FormatEAN13},
		},
		{
			name:     "UPC-E",
			raw:      "01234565",
			expected: Validation{Valid: true, Normalized: "01234565", Format: FormatUPCE},
		},
		{
			name:     "Ten digits",
			raw:      "0123456789",
			expected: Validation{Reason: ReasonUnknownFormat},
		},
		{
			name:     "Letters mixed with twelve digits",
			raw:      "ABC012345678901",
			expected: Validation{Reason: ReasonUnknownFormat},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			got := Validate(tc.raw)

			// Assert
			assert.Equal(t, tc.expected.Valid, got.Valid)
			assert.Equal(t, tc.expected.Normalized, got.Normalized)
			assert.Equal(t, tc.expected.Format, got.Format)
			assert.Equal(t, tc.expected.Reason, got.Reason)
			if !got.Valid {
				assert.NotEmpty(t, got.Message)
			}
		})
	}
}

func TestValidateUnknownFormatReportsDigitCount(t *testing.T) {
	got := Validate("0123456789")
	assert.Contains(t, got.Message, "10 digits")
}
