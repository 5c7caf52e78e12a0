package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/asrtune/asrtune/internal/transcript"
)

// mockCompleter implements Completer for testing.
type mockCompleter struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	m.lastSystem = system
	m.lastUser = user
	return m.response, m.err
}

func sampleData() transcript.ProcessedData {
	return transcript.ProcessedData{
		{Queries: []string{"turn on the lights"}, Traces: []string{"ASR: final at 480ms"}},
	}
}

func TestRecommend_ParsesWellFormedResponse(t *testing.T) {
	mock := &mockCompleter{
		response: `{"analysis":"ok","silence_wait":500,"utterance_end":1500,"punctuation_wait":1000,"no_punctuation_wait":5000}`,
	}
	c := NewClient(mock)

	got, err := c.Recommend(context.Background(), sampleData())
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	want := Recommendation{
		Analysis:          "ok",
		SilenceWait:       500,
		UtteranceEnd:      1500,
		PunctuationWait:   1000,
		NoPunctuationWait: 5000,
	}
	if *got != want {
		t.Errorf("Recommend() = %+v, want %+v", *got, want)
	}
}

func TestRecommend_PromptCarriesConversationsAndDefaults(t *testing.T) {
	mock := &mockCompleter{
		response: `{"analysis":"a","silence_wait":1,"utterance_end":2,"punctuation_wait":3,"no_punctuation_wait":4}`,
	}
	c := NewClient(mock)

	if _, err := c.Recommend(context.Background(), sampleData()); err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	for _, want := range []string{"turn on the lights", "ASR: final at 480ms", "500", "1500", "1000", "5000"} {
		if !strings.Contains(mock.lastUser, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(mock.lastSystem, "JSON") {
		t.Errorf("system prompt should demand JSON-only output, got %q", mock.lastSystem)
	}
}

func TestRecommend_CompleterError(t *testing.T) {
	mock := &mockCompleter{err: errors.New("upstream down")}
	c := NewClient(mock)

	if _, err := c.Recommend(context.Background(), sampleData()); err == nil {
		t.Fatal("Recommend should propagate completer errors")
	}
}

func TestParseRecommendation_StripsSurroundingProse(t *testing.T) {
	raw := "Here is my recommendation:\n```json\n" +
		`{"analysis":"slower speakers","silence_wait":700,"utterance_end":1800,"punctuation_wait":1200,"no_punctuation_wait":5500}` +
		"\n```\nHope this helps!"

	rec, err := ParseRecommendation(raw)
	if err != nil {
		t.Fatalf("ParseRecommendation: %v", err)
	}
	if rec.SilenceWait != 700 || rec.Analysis != "slower speakers" {
		t.Errorf("got %+v", rec)
	}
}

func TestParseRecommendation_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no object", "I cannot produce a recommendation."},
		{"invalid json", `{"analysis": oops}`},
		{"missing analysis", `{"silence_wait":1,"utterance_end":2,"punctuation_wait":3,"no_punctuation_wait":4}`},
		{"missing numeric field", `{"analysis":"x","silence_wait":1,"utterance_end":2,"punctuation_wait":3}`},
		{"non-numeric parameter", `{"analysis":"x","silence_wait":"fast","utterance_end":2,"punctuation_wait":3,"no_punctuation_wait":4}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecommendation(tt.raw)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
			if pe.Raw != tt.raw {
				t.Errorf("ParseError.Raw should carry the full model output")
			}
		})
	}
}
