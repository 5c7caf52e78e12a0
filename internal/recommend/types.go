package recommend

// Default timing parameter values (milliseconds) presented to the model as
// the current production configuration.
const (
	DefaultSilenceWait       = 500
	DefaultUtteranceEnd      = 1500
	DefaultPunctuationWait   = 1000
	DefaultNoPunctuationWait = 5000
)

// Recommendation is the model's tuning proposal: four endpointing timings in
// milliseconds plus the free-text reasoning behind them.
type Recommendation struct {
	Analysis          string  `json:"analysis"`
	SilenceWait       float64 `json:"silence_wait"`
	UtteranceEnd      float64 `json:"utterance_end"`
	PunctuationWait   float64 `json:"punctuation_wait"`
	NoPunctuationWait float64 `json:"no_punctuation_wait"`
}
