// Package model holds the core domain types shared across the pipeline.
package model

// JurisdictionRef is one country reference detected in user text. Code is an
// ISO 3166-1 alpha-2 code; DetectedPhrase is the verbatim substring of the
// input that triggered the detection (case preserved). A transnational
// grouping like "Benelux" produces one ref per constituent country, all
// carrying the same DetectedPhrase.
type JurisdictionRef struct {
	Code           string `json:"code"`
	DetectedPhrase string `json:"detected_phrase"`
}

// Codes returns the detected codes in detection order.
func Codes(refs []JurisdictionRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Code)
	}
	return out
}
