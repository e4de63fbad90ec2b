package models

// Mode selects how far the query pipeline runs for one question.
type Mode string

const (
	// ModeClassifyOnly stops after topic classification and returns the
	// question with its resolved topic. This is the default.
	ModeClassifyOnly Mode = "classify"

	// ModeInclusive runs the full chain: classify, retrieve, synthesize.
	ModeInclusive Mode = "inclusive"
)

// ParseMode maps the wire value of operation_mode onto a Mode. An absent or
// unrecognized value means classify-only; grounding must be asked for
// explicitly.
func ParseMode(raw string) Mode {
	if raw == string(ModeInclusive) {
		return ModeInclusive
	}
	return ModeClassifyOnly
}
