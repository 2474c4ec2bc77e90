// Package detect extracts jurisdiction references from free-form user text
// with an LLM call followed by strict local validation. The model proposes
// candidates; only validation decides what counts.
package detect

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/stardustx8/legalchat/internal/model"
	"github.com/stardustx8/legalchat/internal/resilience"
	"github.com/stardustx8/legalchat/pkg/llm"
)

// Detector extracts ISO country references from question text.
type Detector struct {
	llm    llm.Client
	prompt string
	retry  resilience.Policy
	log    *zap.Logger
}

// NewDetector creates a Detector. An empty prompt selects DefaultPrompt.
func NewDetector(client llm.Client, prompt string, policy resilience.Policy, log *zap.Logger) *Detector {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	if log == nil {
		log = zap.NewNop()
	}
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.Logged(log, "llm", "detect_countries")
	}
	return &Detector{llm: client, prompt: prompt, retry: policy, log: log}
}

type rawRef struct {
	DetectedPhrase string `json:"detected_phrase"`
	Code           string `json:"code"`
}

// Detect returns the jurisdictions referenced in text, in first-mention
// order, deduplicated by code. A response the model garbles yields an empty
// result rather than an error; only transport failures propagate.
func (d *Detector) Detect(ctx context.Context, text string) ([]model.JurisdictionRef, error) {
	raw, err := resilience.DoVal(ctx, d.retry, func(ctx context.Context) (string, error) {
		return d.llm.Complete(ctx, llm.CompleteRequest{
			System:    d.prompt,
			User:      text,
			MaxTokens: 1024,
		})
	})
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(stripFences(raw)), &items); err != nil {
		d.log.Warn("country detection response was not valid JSON, treating as no detection",
			zap.Error(err))
		return nil, nil
	}

	seen := make(map[string]bool, len(items))
	var refs []model.JurisdictionRef
	for _, item := range items {
		// Non-object entries and entries missing a code are dropped, not fatal.
		var r rawRef
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(r.Code))
		if !model.ValidCode(code) || seen[code] {
			continue
		}
		if !phraseValid(r.DetectedPhrase, text) {
			continue
		}
		seen[code] = true
		refs = append(refs, model.JurisdictionRef{Code: code, DetectedPhrase: r.DetectedPhrase})
	}
	return refs, nil
}

// phraseValid guards short detected phrases. A phrase that reads as a bare
// code mention ("US", or an all-caps abbreviation like "USA") must appear
// uppercase verbatim as its own word in the input, which keeps lowercase
// words like "it" or "in" from being promoted to countries. Other short
// phrases (country names like "Cuba" or "Peru") pass through; the model
// already attributed them.
func phraseValid(phrase, input string) bool {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return false
	}
	if len(phrase) > 4 {
		return true
	}
	upper := strings.ToUpper(phrase)
	if model.ValidCode(upper) {
		return containsWord(input, upper)
	}
	if phrase == upper {
		return containsWord(input, phrase)
	}
	return true
}

// containsWord reports whether w occurs in s as a standalone word, so "US"
// inside "RADIUS" does not count as a mention.
func containsWord(s, w string) bool {
	for i := 0; i+len(w) <= len(s); i++ {
		if s[i:i+len(w)] != w {
			continue
		}
		if (i == 0 || !isWordByte(s[i-1])) && (i+len(w) == len(s) || !isWordByte(s[i+len(w)])) {
			return true
		}
	}
	return false
}

func isWordByte(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// stripFences removes a markdown code fence the model may wrap its JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
