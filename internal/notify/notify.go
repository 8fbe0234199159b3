package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shelfwatch/shelfwatch/internal/checker"
	"github.com/shelfwatch/shelfwatch/internal/config"
)

const deliverTimeout = 10 * time.Second

// Notifier watches successive snapshots for in-stock transitions.
type Notifier struct {
	webhooks []config.WebhookConfig
	client   *http.Client

	mu        sync.Mutex
	lastStock map[int]bool // store id → in_stock from the previous snapshot
}

// New returns a Notifier for the given webhook targets. Returns nil when no
// targets are configured; a nil Notifier is safe to call.
func New(webhooks []config.WebhookConfig) *Notifier {
	if len(webhooks) == 0 {
		return nil
	}
	return &Notifier{
		webhooks:  webhooks,
		client:    &http.Client{Timeout: deliverTimeout},
		lastStock: make(map[int]bool),
	}
}

// Observe compares snap against the previous snapshot and fires the
// configured webhooks for every store that just came into stock.
func (n *Notifier) Observe(snap *checker.Snapshot) {
	if n == nil || snap == nil {
		return
	}

	n.mu.Lock()
	var restocked []checker.StoreStatus
	for _, st := range snap.Stores {
		if st.InStock && !n.lastStock[st.StoreID] {
			// First sighting counts only if we had seen this store before;
			// otherwise a freshly started process would ping for stock that
			// was there all along.
			if _, seen := n.lastStock[st.StoreID]; seen {
				restocked = append(restocked, st)
			}
		}
		n.lastStock[st.StoreID] = st.InStock
	}
	n.mu.Unlock()

	for _, st := range restocked {
		n.deliver(snap, st)
	}
}

// deliver sends one restock notification to all targets.
func (n *Notifier) deliver(snap *checker.Snapshot, st checker.StoreStatus) {
	for _, wh := range n.webhooks {
		url := wh.URL()
		if url == "" {
			continue
		}

		var err error
		switch wh.Type {
		case "slack":
			err = n.post(url, slackPayload(snap, st))
		case "http":
			err = n.post(url, genericPayload(snap, st))
		default:
			slog.Warn("notify: unknown webhook type, skipping", "type", wh.Type)
			continue
		}

		if err != nil {
			slog.Error("notify: webhook delivery failed",
				"type", wh.Type, "store", st.Label, "err", err)
		} else {
			slog.Info("notify: restock webhook delivered",
				"type", wh.Type, "store", st.Label, "store_id", st.StoreID)
		}
	}
}

func slackPayload(snap *checker.Snapshot, st checker.StoreStatus) []byte {
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf("*%s* is back in stock at %s (store #%d)",
			snap.Title, st.Label, st.StoreID),
	})
	return body
}

func genericPayload(snap *checker.Snapshot, st checker.StoreStatus) []byte {
	body, _ := json.Marshal(map[string]any{
		"event":            "restock",
		"product_id":       snap.ProductID,
		"title":            snap.Title,
		"store":            st,
		"generated_at_utc": snap.GeneratedAt,
	})
	return body
}

func (n *Notifier) post(url string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
