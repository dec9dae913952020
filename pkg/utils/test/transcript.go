package testutils

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/studybuddy/pkg/transcript"
)

// DescribeTranscriptDriver registers the behaviour every transcript.Driver
// must share. newDriver is called before each spec and the driver is closed
// after it.
func DescribeTranscriptDriver(name string, newDriver func() transcript.Driver) bool {
	return Describe(name+" transcript driver", func() {
		var (
			ctx    context.Context
			driver transcript.Driver
			base   time.Time
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = nil
			driver = newDriver()
			base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		})

		AfterEach(func() {
			if driver != nil {
				Expect(driver.Close()).To(Succeed())
			}
		})

		It("assigns an id and round-trips a turn", func() {
			turn := NewTestTurn("s-1", "What is osmosis?", base)
			turn.WebSearch = true
			turn.Citations = []int{4, 9}

			Expect(driver.Put(ctx, turn)).To(Succeed())
			Expect(turn.ID).NotTo(BeEmpty())

			got, err := driver.Get(ctx, turn.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Question).To(Equal("What is osmosis?"))
			Expect(got.Reply).To(Equal("answer to What is osmosis?"))
			Expect(got.Citations).To(Equal([]int{4, 9}))
			Expect(got.WebSearch).To(BeTrue())
			Expect(got.StartedAt.Equal(base)).To(BeTrue())
			Expect(got.CompletedAt.Equal(base.Add(2 * time.Second))).To(BeTrue())
		})

		It("keeps nil citations nil", func() {
			turn := NewTestTurn("s-1", "q", base)
			turn.Citations = nil
			Expect(driver.Put(ctx, turn)).To(Succeed())

			got, err := driver.Get(ctx, turn.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Citations).To(BeNil())
		})

		It("replaces a turn stored under the same id", func() {
			turn := NewTestTurn("s-1", "q", base)
			Expect(driver.Put(ctx, turn)).To(Succeed())

			turn.Reply = "revised"
			Expect(driver.Put(ctx, turn)).To(Succeed())

			all, err := driver.List(ctx, transcript.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].Reply).To(Equal("revised"))
		})

		It("returns NotFoundError for unknown ids", func() {
			_, err := driver.Get(ctx, "missing")

			var nf transcript.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.ID).To(Equal("missing"))
		})

		It("rejects nil turns", func() {
			Expect(driver.Put(ctx, nil)).To(HaveOccurred())
		})

		It("lists most recent first with filters and limits", func() {
			a := NewTestTurn("s-1", "first", base)
			b := NewTestTurn("s-2", "second", base.Add(time.Minute))
			c := NewTestTurn("s-1", "third", base.Add(2*time.Minute))
			c.DocumentID = "doc-2"
			for _, t := range []*transcript.Turn{a, b, c} {
				Expect(driver.Put(ctx, t)).To(Succeed())
			}

			all, err := driver.List(ctx, transcript.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(questions(all)).To(Equal([]string{"third", "second", "first"}))

			bySession, err := driver.List(ctx, transcript.Filter{SessionID: "s-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(questions(bySession)).To(Equal([]string{"third", "first"}))

			byBoth, err := driver.List(ctx, transcript.Filter{SessionID: "s-1", DocumentID: "doc-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(questions(byBoth)).To(Equal([]string{"first"}))

			limited, err := driver.List(ctx, transcript.Filter{Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(questions(limited)).To(Equal([]string{"third", "second"}))
		})

		It("summarizes sessions", func() {
			Expect(driver.Put(ctx, NewTestTurn("s-1", "opening", base))).To(Succeed())
			Expect(driver.Put(ctx, NewTestTurn("s-1", "follow up", base.Add(time.Hour)))).To(Succeed())
			Expect(driver.Put(ctx, NewTestTurn("s-2", "other", base.Add(time.Minute)))).To(Succeed())
			Expect(driver.Put(ctx, NewTestTurn("", "unsaved", base.Add(2*time.Hour)))).To(Succeed())

			sessions, err := driver.Sessions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))

			Expect(sessions[0].SessionID).To(Equal("s-1"))
			Expect(sessions[0].Turns).To(Equal(2))
			Expect(sessions[0].FirstQuestion).To(Equal("opening"))
			Expect(sessions[0].LastAt.Equal(base.Add(time.Hour + 2*time.Second))).To(BeTrue())
			Expect(sessions[1].SessionID).To(Equal("s-2"))
		})
	})
}

func questions(turns []*transcript.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Question
	}
	return out
}
