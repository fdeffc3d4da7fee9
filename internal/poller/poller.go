package poller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/fusebox"
)

// Watch polls every peer's health endpoint at the given interval until ctx
// is cancelled. The client is expected to carry a circuit-guarded
// transport; peers whose circuit is open are skipped without touching the
// network.
func Watch(
	ctx context.Context,
	log *slog.Logger,
	client *http.Client,
	peers []string,
	interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Polling stopped")
			return

		case <-ticker.C:
			for _, peer := range peers {
				Poll(ctx, log, client, peer)
			}
		}
	}
}

// Poll issues one health probe against peer and logs the outcome.
func Poll(ctx context.Context, log *slog.Logger, client *http.Client, peer string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, peer+"/healthz", nil)
	if err != nil {
		log.Error("Failed to build request",
			slog.String("peer", peer),
			slog.Any("err", err))
		return
	}

	resp, err := client.Do(req)
	switch {
	case fusebox.IsOpen(err):
		log.Warn("Circuit open, skipping peer", slog.String("peer", peer))
	case err != nil:
		log.Error("Request failed",
			slog.String("peer", peer),
			slog.Any("err", err))
	default:
		resp.Body.Close()
		log.Info("Peer responded",
			slog.String("peer", peer),
			slog.Int("status", resp.StatusCode))
	}
}
