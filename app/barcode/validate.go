// Package barcode classifies scanned codes and detects stale barcode bindings.
package barcode

import (
	"fmt"
	"strings"
)

// Retail formats accepted by Validate.
const (
	FormatUPCE  = "UPC-E"
	FormatUPCA  = "UPC-A"
	FormatEAN13 = "EAN-13"
)

// Rejection reasons reported by Validate.
const (
	ReasonNotProvided   = "not_provided"
	ReasonAmazonFNSKU   = "amazon_fnsku"
	ReasonAmazonLPN     = "amazon_lpn"
	ReasonUnknownFormat = "unknown_format"
)

// Validation is the outcome of classifying a scanned code.
type Validation struct {
	Valid      bool   `json:"valid"`
	Normalized string `json:"normalized,omitempty"`
	Format     string `json:"format,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
}

var formatsByLength = map[int]string{
	8:  FormatUPCE,
	12: FormatUPCA,
	13: FormatEAN13,
}

var separators = strings.NewReplacer(" ", "", "-", "")

// Validate classifies raw as a retail barcode. Warehouse codes (Amazon
// FNSKU "X00…" and LPN "LPN…") are rejected before the digit count is checked.
func Validate(raw string) Validation {
	if strings.TrimSpace(raw) == "" {
		return Validation{Reason: ReasonNotProvided, Message: "No barcode provided"}
	}

	candidate := separators.Replace(strings.TrimSpace(raw))
	upper := strings.ToUpper(candidate)
	switch {
	case strings.HasPrefix(upper, "X00"):
		return Validation{
			Reason:  ReasonAmazonFNSKU,
			Message: "This is an Amazon warehouse label (FNSKU), not a product barcode. Scan the manufacturer barcode instead.",
		}
	case strings.HasPrefix(upper, "LPN"):
		return Validation{
			Reason:  ReasonAmazonLPN,
			Message: "This is an Amazon return label (LPN), not a product barcode. Scan the manufacturer barcode instead.",
		}
	}

	digits := 0
	for _, r := range candidate {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	format, ok := formatsByLength[digits]
	if !ok || digits != len(candidate) {
		return Validation{
			Reason:  ReasonUnknownFormat,
			Message: fmt.Sprintf("Unrecognized barcode format (%d digits)", digits),
		}
	}

	return Validation{
		Valid:      true,
		Normalized: candidate,
		Format:     format,
	}
}
