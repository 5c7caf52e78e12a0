package recommend

import (
	"fmt"

	"github.com/asrtune/asrtune/internal/transcript"
)

const systemPrompt = `You are a speech-recognition tuning engine. Respond ONLY with a single valid JSON object matching the requested schema. Do not include any other text, prose, or markdown.`

const promptTemplate = `Analyze the following voice assistant conversations. Each conversation contains the user utterances as transcribed and the internal ASR debug traces recorded while transcribing them.

Tunable endpointing parameters and their current values:
- silence_wait (%d ms): how long to wait in silence before assuming the user stopped speaking
- utterance_end (%d ms): gap between words after which the utterance is considered finished
- punctuation_wait (%d ms): wait applied when the interim transcript ends with terminal punctuation
- no_punctuation_wait (%d ms): wait applied when the interim transcript ends without terminal punctuation

Based on the utterance lengths, pacing, and any truncation or premature cut-offs visible in the traces, recommend new values for all four parameters.

Output exactly one JSON object with these five fields and nothing else:
{"analysis": "<your reasoning>", "silence_wait": <number>, "utterance_end": <number>, "punctuation_wait": <number>, "no_punctuation_wait": <number>}

Conversations:
%s`

// BuildPrompt renders the analysis payload into the instruction template.
func BuildPrompt(data transcript.ProcessedData) string {
	return fmt.Sprintf(promptTemplate,
		DefaultSilenceWait,
		DefaultUtteranceEnd,
		DefaultPunctuationWait,
		DefaultNoPunctuationWait,
		data.Text(),
	)
}
