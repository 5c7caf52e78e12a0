package recommend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError reports a model response that could not be turned into a
// Recommendation. Raw carries the full model output for diagnosis.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing recommendation: %v (raw output: %s)", e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error { return e.Err }

// extractJSON returns the substring from the first '{' to the last '}' of
// raw. Models often wrap the object in prose or code fences; this strips both.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object in output")
	}
	return raw[start : end+1], nil
}

// ParseRecommendation extracts and validates the five-field recommendation
// object from free-text model output. Missing fields, non-numeric parameters,
// and malformed JSON all yield a *ParseError.
func ParseRecommendation(raw string) (*Recommendation, error) {
	text, err := extractJSON(raw)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	rec := &Recommendation{}

	analysisRaw, ok := fields["analysis"]
	if !ok {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("missing field %q", "analysis")}
	}
	if err := json.Unmarshal(analysisRaw, &rec.Analysis); err != nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("field %q is not a string", "analysis")}
	}

	numeric := []struct {
		name string
		dst  *float64
	}{
		{"silence_wait", &rec.SilenceWait},
		{"utterance_end", &rec.UtteranceEnd},
		{"punctuation_wait", &rec.PunctuationWait},
		{"no_punctuation_wait", &rec.NoPunctuationWait},
	}
	for _, f := range numeric {
		v, ok := fields[f.name]
		if !ok {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("missing field %q", f.name)}
		}
		if err := json.Unmarshal(v, f.dst); err != nil {
			return nil, &ParseError{Raw: raw, Err: fmt.Errorf("field %q is not a number", f.name)}
		}
	}

	return rec, nil
}
