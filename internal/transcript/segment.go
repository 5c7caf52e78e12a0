package transcript

// Segment groups a flat provider log into logical conversations.
//
// A conversation accumulates request utterances and ASR debug traces. When
// splitByLaunch is true, each launch entry closes the current accumulator:
// if it is valid it is sealed into the output, otherwise it is dropped; a
// partial conversation never survives a boundary. When splitByLaunch is
// false, launch entries are no-ops and the whole log collapses into a single
// conversation.
func Segment(entries []LogEntry, splitByLaunch bool) []Conversation {
	var out []Conversation
	var current Conversation

	for _, e := range entries {
		switch e.Type {
		case TypeLaunch:
			if !splitByLaunch {
				continue
			}
			if current.Valid() {
				out = append(out, current)
			}
			current = Conversation{}
		case TypeRequest:
			if q := e.Query(); q != "" {
				current.Queries = append(current.Queries, q)
			}
		case TypeDebug:
			if e.IsASRTrace() {
				current.Traces = append(current.Traces, e.Payload.Message)
			}
		}
	}
	if current.Valid() {
		out = append(out, current)
	}

	if !splitByLaunch && len(out) > 1 {
		// With splitting disabled nothing should fragment the log, but if it
		// does, collapse everything back into one conversation in scan order.
		merged := Conversation{}
		for _, c := range out {
			merged.Queries = append(merged.Queries, c.Queries...)
			merged.Traces = append(merged.Traces, c.Traces...)
		}
		return []Conversation{merged}
	}

	// Only valid conversations leave this function.
	valid := out[:0]
	for _, c := range out {
		if c.Valid() {
			valid = append(valid, c)
		}
	}
	return valid
}
