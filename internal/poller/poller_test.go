package poller_test

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/fusebox"
	"github.com/angeloszaimis/fusebox/internal/poller"
	"github.com/angeloszaimis/fusebox/middleware"
)

var _ = Describe("Poller", func() {
	var (
		upstream *httptest.Server
		healthy  atomic.Bool
		hits     atomic.Int32
		breakers *fusebox.Registry
		client   *http.Client
		log      *slog.Logger
	)

	peerHost := func() string {
		return strings.TrimPrefix(upstream.URL, "http://")
	}

	BeforeEach(func() {
		// Suppress logs in tests
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))

		healthy.Store(true)
		hits.Store(0)

		upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/healthz" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			hits.Add(1)
			if healthy.Load() {
				w.WriteHeader(http.StatusOK)
			} else {
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))

		breakers = fusebox.NewRegistry(
			fusebox.WithMaxFailures(1),
			fusebox.WithClassifier(fusebox.AnyOf(
				fusebox.KindOf(middleware.ErrUpstreamStatus),
				fusebox.TypeOf[*net.OpError](),
			)),
			fusebox.WithLogger(log),
		)
		client = &http.Client{Transport: middleware.NewTransport(breakers)}
	})

	AfterEach(func() {
		upstream.Close()
	})

	Describe("Watch", func() {
		It("should keep probing a healthy peer", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go poller.Watch(ctx, log, client, []string{upstream.URL}, 20*time.Millisecond)

			Eventually(func() int32 {
				return hits.Load()
			}, "2s", "10ms").Should(BeNumerically(">=", 3))

			Expect(breakers.Breaker(peerHost()).State()).To(Equal(fusebox.StateClosed))
		})

		It("should stop hitting a peer once its circuit opens", func() {
			healthy.Store(false)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go poller.Watch(ctx, log, client, []string{upstream.URL}, 20*time.Millisecond)

			Eventually(func() fusebox.State {
				return breakers.Breaker(peerHost()).State()
			}, "2s", "10ms").Should(Equal(fusebox.StateOpen))

			// Every probe after the trip is denied before reaching the network.
			seen := hits.Load()
			Consistently(func() int32 {
				return hits.Load()
			}, "200ms", "20ms").Should(Equal(seen))
		})

		It("should stop when context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())

			go poller.Watch(ctx, log, client, []string{upstream.URL}, 20*time.Millisecond)

			time.Sleep(60 * time.Millisecond)
			cancel()
			time.Sleep(60 * time.Millisecond)

			// Should not panic
		})
	})

	Describe("Poll", func() {
		It("should report a healthy peer without tripping its breaker", func() {
			poller.Poll(context.Background(), log, client, upstream.URL)

			Expect(hits.Load()).To(Equal(int32(1)))
			Expect(breakers.Breaker(peerHost()).State()).To(Equal(fusebox.StateClosed))
		})

		It("should count failing probes against the peer's breaker", func() {
			healthy.Store(false)

			poller.Poll(context.Background(), log, client, upstream.URL)
			poller.Poll(context.Background(), log, client, upstream.URL)

			Expect(breakers.Breaker(peerHost()).State()).To(Equal(fusebox.StateOpen))
		})

		It("should skip an unreachable peer once its circuit is open", func() {
			upstream.Close()

			poller.Poll(context.Background(), log, client, upstream.URL)
			poller.Poll(context.Background(), log, client, upstream.URL)
			Expect(breakers.Breaker(peerHost()).State()).To(Equal(fusebox.StateOpen))

			// A third poll is denied by the breaker, not the network.
			poller.Poll(context.Background(), log, client, upstream.URL)
			Expect(breakers.Breaker(peerHost()).State()).To(Equal(fusebox.StateOpen))
		})
	})
})
