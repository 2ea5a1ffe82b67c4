package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hanru_board/internal/domain/model"
)

// ExternalRequest is posted to an out-of-process translator, which answers
// asynchronously on CallbackURL with an ExternalResult.
type ExternalRequest struct {
	JobID       string                     `json:"job_id"`
	PostID      string                     `json:"post_id"`
	SourceLang  model.Language             `json:"source_lang"`
	TargetLang  model.Language             `json:"target_lang"`
	Fields      map[model.PostField]string `json:"fields"`
	CallbackURL string                     `json:"callback_url"`
}

// ExternalResult is the webhook body sent back by the external translator.
type ExternalResult struct {
	JobID  string                     `json:"job_id"`
	Fields map[model.PostField]string `json:"fields"`
	Error  string                     `json:"error,omitempty"`
}

type Dispatcher struct {
	endpoint string
	secret   string
	client   *http.Client
}

func NewDispatcher(endpoint, secret string) *Dispatcher {
	return &Dispatcher{endpoint: endpoint, secret: secret, client: &http.Client{Timeout: 10 * time.Second}}
}

// Dispatch hands the job to the external translator. A 2xx answer means accepted.
func (d *Dispatcher) Dispatch(ctx context.Context, req ExternalRequest) error {
	if d.endpoint == "" {
		return fmt.Errorf("translator endpoint not configured: %w", ErrDisabled)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("Dispatcher.Dispatch marshal: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Dispatcher.Dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if d.secret != "" {
		httpReq.Header.Set("X-Webhook-Secret", d.secret)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("Dispatcher.Dispatch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("external translator status %d: %w", resp.StatusCode, ErrProvider)
	}
	return nil
}
