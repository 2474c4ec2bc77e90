package model

import "encoding/json"

// Answer is the final payload returned for one question. CountryHeader lists
// every detected jurisdiction exactly once with its availability flag;
// Evaluation carries the refiner's self-grading and is populated only in
// debug mode.
type Answer struct {
	CountryHeader string          `json:"country_header"`
	RefinedAnswer string          `json:"refined_answer"`
	Evaluation    json.RawMessage `json:"evaluation_metrics,omitempty"`
}
