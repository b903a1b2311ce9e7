package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
)

// Header names set on every webhook request.
const (
	HeaderEvent     = "X-Bakery-Event"
	HeaderDelivery  = "X-Bakery-Delivery"
	HeaderSignature = "X-Bakery-Signature"
)

// Sign returns the signature header value for body: "sha256=" followed by
// the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// deliver POSTs ev to the subscription URL.
// Returns nil only when the endpoint responds with a 2xx status.
func deliver(ctx context.Context, client *http.Client, sub *Subscription, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, ev.Type)
	req.Header.Set(HeaderDelivery, ev.ID)

	// Sign the request body when a secret is provided.
	if sub.secret != "" {
		req.Header.Set(HeaderSignature, Sign(sub.secret, body))
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: POST to %s: %w", sub.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: endpoint returned %d", resp.StatusCode)
	}
	return nil
}
