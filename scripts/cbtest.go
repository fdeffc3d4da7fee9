// cbtest is a tool to watch circuit breaker behavior against a live
// upstream by driving it through failure and recovery.
//
// Start the upstream first:
//
//	go run ./examples/upstream -port 8081
//
// Then run the test:
//
//	go run ./scripts/cbtest.go -upstream http://localhost:8081
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/angeloszaimis/fusebox"
	"github.com/angeloszaimis/fusebox/middleware"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	var (
		upstream = flag.String("upstream", "http://localhost:8081", "Upstream URL")
		requests = flag.Int("requests", 10, "Requests per phase")
		failures = flag.Int("failures", 3, "Failures tolerated before the circuit opens")
		reset    = flag.Duration("reset", 5*time.Second, "Open state duration before probing")
	)
	flag.Parse()

	peer := mustHost(*upstream)

	breakers := fusebox.NewRegistry(
		fusebox.WithMaxFailures(*failures),
		fusebox.WithResetTimeout(*reset),
		fusebox.WithClassifier(fusebox.AnyOf(
			fusebox.KindOf(middleware.ErrUpstreamStatus),
			fusebox.TypeOf[*net.OpError](),
		)),
		fusebox.OnStateChange(func(peer string, from, to fusebox.State, failures int) {
			fmt.Printf(colorYellow+"  >> %s: %s → %s (failures=%d)\n"+colorReset, peer, from, to, failures)
		}),
	)

	guarded := &http.Client{
		Transport: middleware.NewTransport(breakers),
		Timeout:   5 * time.Second,
	}
	// Control requests bypass the breaker so /toggle works while the
	// circuit is open.
	raw := &http.Client{Timeout: 5 * time.Second}

	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║         CIRCUIT BREAKER LIVE TEST                              ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()

	// PHASE 1: Verify normal operation
	fmt.Println(colorBlue + "━━━ PHASE 1: Normal Operation ━━━" + colorReset)
	fmt.Println("Sending requests through a closed circuit...")

	ok := 0
	for i := 0; i < *requests; i++ {
		status, err := sendRequest(guarded, *upstream)
		if err != nil {
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
			continue
		}
		if status < 500 {
			ok++
		}
	}

	fmt.Printf("\n  Results: %d/%d successful, circuit %s\n", ok, *requests, breakers.Breaker(peer).State())
	if ok == 0 {
		fmt.Println(colorRed + "  ✗ Upstream not responding! Is it running?" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Normal operation verified" + colorReset)
	fmt.Println()

	// PHASE 2: Break the upstream and watch the circuit open
	fmt.Println(colorBlue + "━━━ PHASE 2: Upstream Failure ━━━" + colorReset)
	fmt.Println("Toggling upstream into failure mode...")

	if err := toggle(raw, *upstream); err != nil {
		fmt.Printf(colorRed+"  ✗ Could not toggle upstream: %v\n"+colorReset, err)
		os.Exit(1)
	}

	denied := 0
	for i := 0; i < *requests; i++ {
		status, err := sendRequest(guarded, *upstream)
		switch {
		case fusebox.IsOpen(err):
			denied++
		case err != nil:
			fmt.Printf(colorRed+"  Request %d: ERROR - %v\n"+colorReset, i+1, err)
		case status >= 500:
			fmt.Printf(colorYellow+"  Request %d: Status=%d\n"+colorReset, i+1, status)
		}
		time.Sleep(50 * time.Millisecond)
	}

	fmt.Printf("\n  Results: %d/%d denied, circuit %s\n", denied, *requests, breakers.Breaker(peer).State())
	if breakers.Breaker(peer).State() != fusebox.StateOpen {
		fmt.Println(colorRed + "  ✗ Circuit did not open" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Circuit opened after repeated failures" + colorReset)
	fmt.Println()

	// PHASE 3: Verify fast-fail while open
	fmt.Println(colorBlue + "━━━ PHASE 3: Fast Fail ━━━" + colorReset)
	fmt.Println("Requests while open should be denied without touching the network...")

	start := time.Now()
	_, err := sendRequest(guarded, *upstream)
	elapsed := time.Since(start)

	if !fusebox.IsOpen(err) {
		fmt.Printf(colorRed+"  ✗ Expected a denied request, got: %v\n"+colorReset, err)
		os.Exit(1)
	}
	fmt.Printf(colorGreen+"  ✓ Denied in %v\n"+colorReset, elapsed)
	fmt.Println()

	// PHASE 4: Recovery through a probe
	fmt.Println(colorBlue + "━━━ PHASE 4: Recovery ━━━" + colorReset)
	fmt.Println("Toggling upstream back to healthy...")

	if err := toggle(raw, *upstream); err != nil {
		fmt.Printf(colorRed+"  ✗ Could not toggle upstream: %v\n"+colorReset, err)
		os.Exit(1)
	}

	fmt.Printf("Waiting %v for the circuit to allow a probe...\n", *reset)
	time.Sleep(*reset + 100*time.Millisecond)

	status, err := sendRequest(guarded, *upstream)
	if err != nil || status >= 500 {
		fmt.Printf(colorRed+"  ✗ Probe failed: status=%d err=%v\n"+colorReset, status, err)
		os.Exit(1)
	}

	fmt.Printf("  Probe succeeded, circuit %s\n", breakers.Breaker(peer).State())
	if breakers.Breaker(peer).State() != fusebox.StateClosed {
		fmt.Println(colorRed + "  ✗ Circuit did not close after successful probe" + colorReset)
		os.Exit(1)
	}
	fmt.Println(colorGreen + "  ✓ Circuit closed after recovery" + colorReset)
	fmt.Println()

	// Summary
	fmt.Println(colorCyan + "╔════════════════════════════════════════════════════════════════╗" + colorReset)
	fmt.Println(colorCyan + "║                    TEST COMPLETE                               ║" + colorReset)
	fmt.Println(colorCyan + "╚════════════════════════════════════════════════════════════════╝" + colorReset)
	fmt.Println()
	fmt.Println("Key behaviors verified:")
	fmt.Println("  1. Closed circuit passes traffic")
	fmt.Println("  2. Repeated failures open the circuit")
	fmt.Println("  3. Open circuit denies without network calls")
	fmt.Println("  4. Successful probe closes the circuit")
}

func mustHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		fmt.Printf(colorRed+"invalid upstream URL: %s\n"+colorReset, rawURL)
		os.Exit(1)
	}
	return u.Host
}

func sendRequest(client *http.Client, upstream string) (int, error) {
	resp, err := client.Get(upstream + "/work")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func toggle(client *http.Client, upstream string) error {
	resp, err := client.Post(upstream+"/toggle", "text/plain", strings.NewReader(""))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("toggle returned %d", resp.StatusCode)
	}

	return nil
}
