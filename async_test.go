package fusebox_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/fusebox"
)

var _ = Describe("SettleFrom", func() {
	var (
		clock *fakeClock
		cb    *fusebox.CircuitBreaker
	)

	BeforeEach(func() {
		clock = newFakeClock()
		cb = fusebox.New("events",
			fusebox.WithMaxFailures(2),
			fusebox.WithResetTimeout(10*time.Second),
			fusebox.WithErrorKinds(errPeerDown),
			fusebox.WithClock(clock),
			fusebox.WithLogger(testLogger()),
		)
		tripBreaker(cb)
		clock.Advance(10 * time.Second)
	})

	It("should close the circuit when the async call succeeds", func() {
		g, err := cb.Acquire()
		Expect(err).NotTo(HaveOccurred())

		done := make(chan error, 1)
		done <- nil

		Expect(g.SettleFrom(context.Background(), done)).To(Succeed())
		Expect(cb.State()).To(Equal(fusebox.StateClosed))
	})

	It("should re-open the circuit when the async call fails", func() {
		g, err := cb.Acquire()
		Expect(err).NotTo(HaveOccurred())

		done := make(chan error, 1)
		done <- errPeerDown

		Expect(g.SettleFrom(context.Background(), done)).To(MatchError(errPeerDown))
		Expect(cb.State()).To(Equal(fusebox.StateOpen))
	})

	It("should treat cancellation as no verdict by default", func() {
		g, err := cb.Acquire()
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = g.SettleFrom(ctx, make(chan error))

		Expect(err).To(MatchError(context.Canceled))
		Expect(cb.State()).To(Equal(fusebox.StateHalfOpen))
		Expect(cb.Allow()).To(BeTrue())
	})

	It("should count cancellation when the classifier is told to", func() {
		strict := fusebox.New("events-strict",
			fusebox.WithMaxFailures(2),
			fusebox.WithResetTimeout(10*time.Second),
			fusebox.WithErrorKinds(errPeerDown, context.Canceled),
			fusebox.WithClock(clock),
			fusebox.WithLogger(testLogger()),
		)
		tripBreaker(strict)
		clock.Advance(10 * time.Second)

		g, err := strict.Acquire()
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = g.SettleFrom(ctx, make(chan error))

		Expect(err).To(MatchError(context.Canceled))
		Expect(strict.State()).To(Equal(fusebox.StateOpen))
	})
})
