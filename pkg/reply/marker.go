package reply

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Marker identifies one sideband line type embedded in a streamed reply.
type Marker string

const (
	// MarkerSessionID carries the backend chat session id.
	MarkerSessionID Marker = "__SESSION_ID__"

	// MarkerCitations carries a JSON array of cited page numbers.
	MarkerCitations Marker = "__CITATIONS__"
)

var errNotArray = errors.New("payload is not a JSON array")

// markers is the extraction priority order.
var markers = []Marker{MarkerSessionID, MarkerCitations}

// Patterns match from the marker name to the first newline. RE2's "." never
// matches "\n", so a marker whose terminator has not arrived yet does not match.
var patterns = map[Marker]*regexp.Regexp{
	MarkerSessionID: regexp.MustCompile(regexp.QuoteMeta(string(MarkerSessionID)) + `:(.*)\n`),
	MarkerCitations: regexp.MustCompile(regexp.QuoteMeta(string(MarkerCitations)) + `:(.*)\n`),
}

// Outcome is where a marker is in its once-per-stream lifecycle.
type Outcome int

const (
	// OutcomePending means the marker has not been seen with its newline yet.
	OutcomePending Outcome = iota

	// OutcomeExtracted means the marker was found and its payload parsed.
	OutcomeExtracted

	// OutcomeFailed means the payload did not parse. The marker is not
	// retried.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeExtracted:
		return "extracted"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// ParseError reports a sideband payload that could not be decoded.
type ParseError struct {
	Marker  Marker
	Payload string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s payload %q: %v", e.Marker, e.Payload, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseSessionID(payload string) string {
	return strings.TrimSpace(payload)
}

func parseCitations(payload string) ([]int, error) {
	var citations []int
	if err := json.Unmarshal([]byte(payload), &citations); err != nil {
		return nil, err
	}
	if citations == nil {
		// encoding/json accepts "null" for a slice.
		return nil, errNotArray
	}
	return citations, nil
}

// stripMarkers removes every complete marker line from s.
func stripMarkers(s string) string {
	for _, m := range markers {
		s = patterns[m].ReplaceAllString(s, "")
	}
	return s
}
