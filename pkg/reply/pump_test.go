package reply_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing/iotest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/studybuddy/pkg/reply"
)

// cancelingReader cancels its context after the first successful read.
type cancelingReader struct {
	r      io.Reader
	cancel context.CancelFunc
}

func (c *cancelingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.cancel()
	return n, err
}

var _ = Describe("Pump", func() {
	const stream = "__SESSION_ID__:s1\nCell walls __CITATIONS__:[3]\nare rigid."

	It("observes every fragment and closes at EOF", func() {
		d := reply.NewDecoder()
		var observed []reply.Result

		res, err := reply.Pump(context.Background(), iotest.OneByteReader(strings.NewReader(stream)), d, func(r reply.Result) {
			observed = append(observed, r)
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(d.Closed()).To(BeTrue())
		Expect(*res.SessionID).To(Equal("s1"))
		Expect(res.Citations).To(Equal([]int{3}))
		Expect(res.DisplayText).To(Equal("Cell walls are rigid."))

		Expect(observed).To(HaveLen(len(stream) + 1))
		Expect(observed[len(observed)-1]).To(Equal(res))
	})

	It("returns a stream failure on read errors without closing", func() {
		boom := errors.New("connection reset")
		d := reply.NewDecoder()
		calls := 0

		_, err := reply.Pump(context.Background(),
			io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(boom)),
			d,
			func(reply.Result) { calls++ },
		)

		Expect(err).To(MatchError(boom))
		Expect(d.Closed()).To(BeFalse())
		Expect(calls).To(Equal(1))
		Expect(d.Result().DisplayText).To(Equal("partial"))
	})

	It("stops before reading when the context is already cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		_, err := reply.Pump(ctx, strings.NewReader(stream), reply.NewDecoder(), func(reply.Result) { called = true })

		Expect(err).To(MatchError(context.Canceled))
		Expect(called).To(BeFalse())
	})

	It("stops between reads when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		r := &cancelingReader{r: iotest.OneByteReader(strings.NewReader(stream)), cancel: cancel}
		d := reply.NewDecoder()
		calls := 0

		_, err := reply.Pump(ctx, r, d, func(reply.Result) { calls++ })

		Expect(err).To(MatchError(context.Canceled))
		Expect(calls).To(Equal(1))
		Expect(d.Closed()).To(BeFalse())
	})

	It("accepts a nil observer", func() {
		res, err := reply.Pump(context.Background(), strings.NewReader(stream), reply.NewDecoder(), nil)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.DisplayText).To(Equal("Cell walls are rigid."))
	})
})
