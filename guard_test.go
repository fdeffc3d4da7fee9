package fusebox_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/fusebox"
)

var _ = Describe("Guard", func() {
	var (
		ctx   context.Context
		clock *fakeClock
		cb    *fusebox.CircuitBreaker
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = newFakeClock()
		cb = fusebox.New("payments",
			fusebox.WithMaxFailures(2),
			fusebox.WithResetTimeout(10*time.Second),
			fusebox.WithErrorKinds(errPeerDown),
			fusebox.WithClock(clock),
			fusebox.WithLogger(testLogger()),
		)
	})

	Describe("Acquire", func() {
		It("should grant a guard while the circuit is closed", func() {
			g, err := cb.Acquire()

			Expect(err).NotTo(HaveOccurred())
			Expect(g).NotTo(BeNil())
		})

		It("should refuse with ErrOpen while the circuit is open", func() {
			tripBreaker(cb)

			g, err := cb.Acquire()

			Expect(err).To(MatchError(fusebox.ErrOpen))
			Expect(g).To(BeNil())
		})

		It("should count a classified settle toward the window", func() {
			g, err := cb.Acquire()
			Expect(err).NotTo(HaveOccurred())

			g.Settle(fmt.Errorf("calling payments: %w", errPeerDown))

			Expect(cb.Failures()).To(Equal(1))
		})

		It("should settle only once", func() {
			tripBreaker(cb)
			clock.Advance(10 * time.Second)

			g, err := cb.Acquire()
			Expect(err).NotTo(HaveOccurred())

			g.Settle(nil)
			Expect(cb.State()).To(Equal(fusebox.StateClosed))

			g.Settle(errPeerDown)
			Expect(cb.State()).To(Equal(fusebox.StateClosed))
			Expect(cb.Failures()).To(BeZero())
		})
	})

	Describe("Do", func() {
		It("should return the call's error unchanged", func() {
			wrapped := fmt.Errorf("querying payments: %w", errPeerDown)

			err := cb.Do(ctx, func(ctx context.Context) error {
				return wrapped
			})

			Expect(err).To(BeIdenticalTo(wrapped))
			Expect(cb.Failures()).To(Equal(1))
		})

		It("should propagate unclassified errors without touching the state", func() {
			err := cb.Do(ctx, func(ctx context.Context) error {
				return errFlaky
			})

			Expect(err).To(MatchError(errFlaky))
			Expect(cb.State()).To(Equal(fusebox.StateClosed))
			Expect(cb.Failures()).To(BeZero())
		})

		It("should open after enough failing calls", func() {
			for i := 0; i < 3; i++ {
				err := cb.Do(ctx, func(ctx context.Context) error {
					return errPeerDown
				})
				Expect(err).To(MatchError(errPeerDown))
			}

			Expect(cb.State()).To(Equal(fusebox.StateOpen))
		})

		It("should deny with ErrOpen and skip the call once open", func() {
			tripBreaker(cb)

			called := false
			err := cb.Do(ctx, func(ctx context.Context) error {
				called = true
				return nil
			})

			Expect(fusebox.IsOpen(err)).To(BeTrue())
			Expect(called).To(BeFalse())
		})

		It("should close the circuit after a successful probe call", func() {
			tripBreaker(cb)
			clock.Advance(10 * time.Second)

			err := cb.Do(ctx, func(ctx context.Context) error {
				return nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(cb.State()).To(Equal(fusebox.StateClosed))
		})

		It("should release the probe when the call panics", func() {
			tripBreaker(cb)
			clock.Advance(10 * time.Second)

			Expect(func() {
				_ = cb.Do(ctx, func(ctx context.Context) error {
					panic("boom")
				})
			}).To(PanicWith("boom"))

			Expect(cb.State()).To(Equal(fusebox.StateHalfOpen))
			Expect(cb.Allow()).To(BeTrue())
		})
	})

	Describe("Run", func() {
		It("should return the call's value", func() {
			n, err := fusebox.Run(ctx, cb, func(ctx context.Context) (int, error) {
				return 42, nil
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(42))
		})

		It("should return the zero value alongside the call's error", func() {
			s, err := fusebox.Run(ctx, cb, func(ctx context.Context) (string, error) {
				return "", errPeerDown
			})

			Expect(err).To(MatchError(errPeerDown))
			Expect(s).To(BeEmpty())
		})

		It("should return the zero value and ErrOpen when denied", func() {
			tripBreaker(cb)

			n, err := fusebox.Run(ctx, cb, func(ctx context.Context) (int, error) {
				return 42, nil
			})

			Expect(fusebox.IsOpen(err)).To(BeTrue())
			Expect(n).To(BeZero())
		})
	})
})
