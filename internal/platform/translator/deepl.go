package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"hanru_board/internal/domain/model"
)

// DeepL calls the DeepL v2 translate endpoint.
type DeepL struct {
	apiKey   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

func NewDeepL(apiKey, endpoint string) *DeepL {
	return &DeepL{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithRateLimit caps outgoing requests at perSecond. Zero or less removes the cap.
func (d *DeepL) WithRateLimit(perSecond float64, burst int) *DeepL {
	if perSecond <= 0 {
		d.limiter = nil
		return d
	}
	if burst < 1 {
		burst = 1
	}
	d.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return d
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

func (d *DeepL) Translate(ctx context.Context, text string, source, target model.Language) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if d.apiKey == "" {
		return "", fmt.Errorf("deepl api key missing: %w", ErrDisabled)
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("deepl.Translate rate limit: %w", err)
		}
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", strings.ToUpper(string(target)))
	if source.Valid() {
		form.Set("source_lang", strings.ToUpper(string(source)))
	}
	// post content is editor HTML
	form.Set("tag_handling", "html")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("deepl.Translate request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl.Translate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("DeepL request failed")
		return "", fmt.Errorf("deepl status %d: %w", resp.StatusCode, ErrProvider)
	}

	var out deeplResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("deepl.Translate decode: %w", err)
	}
	if len(out.Translations) == 0 {
		return "", fmt.Errorf("deepl returned no translations: %w", ErrProvider)
	}
	return out.Translations[0].Text, nil
}
