// Package reply decodes the streamed chat reply produced by the Study Buddy
// backend.
//
// The backend streams plain text with two optional sideband lines mixed into
// it:
//
//	__SESSION_ID__:<session id>\n
//	__CITATIONS__:<JSON array of page numbers>\n
//
// A Decoder accumulates fragments as they arrive and extracts each marker
// once its terminating newline has been received. It also derives the text
// that is safe to show the user. Marker boundaries are not aligned with
// fragment boundaries, so every fragment triggers a full rescan of the raw
// buffer. A single reply is at most a few tens of KB.
package reply

import (
	"errors"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/papercomputeco/studybuddy/pkg/logger"
)

// ErrClosed is returned by Write once the decoder has emitted its terminal result.
var ErrClosed = errors.New("reply decoder closed")

// Result is the decoded view of a reply at a point in time.
type Result struct {
	// SessionID is nil until the session marker has been extracted.
	SessionID *string

	// Citations is nil until the citations marker has been extracted. A
	// malformed payload leaves it nil for the rest of the stream.
	Citations []int

	// DisplayText is the reply with all complete marker lines removed.
	DisplayText string
}

// Decoder turns an incrementally delivered reply into a Result.
// A Decoder is owned by a single reader and is not safe for concurrent use.
type Decoder struct {
	raw   string
	carry []byte

	outcomes  map[Marker]Outcome
	sessionID *string
	citations []int

	closed bool
	last   Result

	logger  *slog.Logger
	onError func(error)
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithLogger sets the logger used to report malformed markers.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithErrorSink registers fn to receive marker parse failures. The stream is
// never aborted because of them.
func WithErrorSink(fn func(error)) Option {
	return func(d *Decoder) {
		d.onError = fn
	}
}

// NewDecoder returns a decoder for one reply.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		outcomes: make(map[Marker]Outcome, len(markers)),
		logger:   logger.Nop(),
	}
	for _, m := range markers {
		d.outcomes[m] = OutcomePending
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Push appends a text fragment, attempts extraction of any still pending
// marker and returns the updated result. After Close, Push is a no-op that
// returns the terminal result.
func (d *Decoder) Push(fragment string) Result {
	if d.closed {
		return d.last.clone()
	}

	d.raw += fragment
	d.extract()
	d.last = d.snapshot()
	return d.last.clone()
}

// Write implements io.Writer. Bytes of a multi-byte UTF-8 sequence split
// across writes are held back until the sequence is complete.
func (d *Decoder) Write(p []byte) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}

	buf := make([]byte, 0, len(d.carry)+len(p))
	buf = append(buf, d.carry...)
	buf = append(buf, p...)

	n := completePrefix(buf)
	d.carry = append(d.carry[:0], buf[n:]...)
	if n > 0 {
		d.Push(string(buf[:n]))
	}

	return len(p), nil
}

// Close runs a final extraction pass and returns the terminal result. Any
// held back partial UTF-8 sequence is flushed as U+FFFD.
func (d *Decoder) Close() Result {
	if d.closed {
		return d.last.clone()
	}

	if len(d.carry) > 0 {
		d.raw += strings.ToValidUTF8(string(d.carry), "�")
		d.carry = nil
	}

	d.extract()
	d.closed = true
	d.last = d.snapshot()
	return d.last.clone()
}

// Result returns the most recent result without consuming input.
func (d *Decoder) Result() Result {
	return d.last.clone()
}

// Closed reports whether the terminal result has been emitted.
func (d *Decoder) Closed() bool {
	return d.closed
}

// Outcome reports the extraction state of the given marker.
func (d *Decoder) Outcome(m Marker) Outcome {
	return d.outcomes[m]
}

// DisplayText returns the raw buffer with every complete marker line
// stripped. It depends only on the buffer, so repeated calls return the same
// string until more input arrives.
func (d *Decoder) DisplayText() string {
	return stripMarkers(d.raw)
}

func (d *Decoder) extract() {
	for _, m := range markers {
		if d.outcomes[m] != OutcomePending {
			continue
		}

		loc := patterns[m].FindStringSubmatchIndex(d.raw)
		if loc == nil {
			continue
		}

		payload := d.raw[loc[2]:loc[3]]
		if err := d.apply(m, payload); err != nil {
			d.outcomes[m] = OutcomeFailed
			d.report(&ParseError{Marker: m, Payload: payload, Err: err})
			continue
		}

		d.outcomes[m] = OutcomeExtracted
		d.raw = d.raw[:loc[0]] + d.raw[loc[1]:]
	}
}

func (d *Decoder) apply(m Marker, payload string) error {
	switch m {
	case MarkerSessionID:
		id := parseSessionID(payload)
		d.sessionID = &id
	case MarkerCitations:
		citations, err := parseCitations(payload)
		if err != nil {
			return err
		}
		d.citations = citations
	}
	return nil
}

func (d *Decoder) report(err *ParseError) {
	d.logger.Warn("ignoring malformed reply marker",
		"marker", string(err.Marker),
		"payload", err.Payload,
		"error", err.Err,
	)
	if d.onError != nil {
		d.onError(err)
	}
}

func (d *Decoder) snapshot() Result {
	return Result{
		SessionID:   d.sessionID,
		Citations:   d.citations,
		DisplayText: d.DisplayText(),
	}.clone()
}

func (r Result) clone() Result {
	out := Result{
		Citations:   slices.Clone(r.Citations),
		DisplayText: r.DisplayText,
	}
	if r.SessionID != nil {
		id := *r.SessionID
		out.SessionID = &id
	}
	return out
}

// completePrefix returns the length of the longest prefix of b that does not
// end inside a multi-byte UTF-8 sequence.
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
