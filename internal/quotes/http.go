package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"deckhand/internal/model"
)

const topQuotesPath = "/api/quotes/top"

// HTTPSource fetches quotes from a deckhand quote server (or anything that
// speaks the same JSON).
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type topQuotesResponse struct {
	Data []model.Quote `json:"data"`
}

func (s *HTTPSource) TopQuotes(ctx context.Context) ([]model.Quote, error) {
	if s.BaseURL == "" {
		return nil, errors.New("quotes url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+topQuotesPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		// url.Error unwraps to context.Canceled when the request was aborted.
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("quotes server: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var out topQuotesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("decode quotes: %w", err)
	}
	return out.Data, nil
}
