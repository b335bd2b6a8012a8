// Package quote implements formula.QuoteSource against a real HTTP
// price feed, in the same client-with-timeout style the rest of the
// ecosystem reaches for when making a single synchronous outbound
// call rather than standing up a persistent connection.
package quote

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPQuoteSource fetches a plain-text quote from a configurable
// endpoint template, where "%s" is replaced by the upper-cased symbol.
// The zero value is usable: it falls back to DefaultEndpoint.
type HTTPQuoteSource struct {
	Endpoint string
	Client   *http.Client
}

// DefaultEndpoint points at a stooq.com-style CSV quote endpoint, which
// returns a single CSV line per symbol with the last price in a fixed
// column.
const DefaultEndpoint = "https://stooq.com/q/l/?s=%s&f=sd2t2ohlcv&h&e=csv"

func (h *HTTPQuoteSource) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return &http.Client{Timeout: 5 * time.Second}
}

func (h *HTTPQuoteSource) endpoint() string {
	if h.Endpoint != "" {
		return h.Endpoint
	}
	return DefaultEndpoint
}

// Fetch retrieves a CSV quote line for symbol and returns its close
// price field as a string; formula.Evaluator.fnStock is responsible
// for parsing it into a number.
func (h *HTTPQuoteSource) Fetch(symbol string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", fmt.Errorf("quote: empty symbol")
	}
	reqURL := fmt.Sprintf(h.endpoint(), url.QueryEscape(strings.ToUpper(symbol)))
	resp, err := h.client().Get(reqURL)
	if err != nil {
		return "", fmt.Errorf("quote: fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("quote: %s returned status %d", symbol, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("quote: reading %s: %w", symbol, err)
	}
	line := strings.TrimSpace(string(body))
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[idx+1:]
	}
	fields := strings.Split(line, ",")
	if len(fields) < 7 {
		return "", fmt.Errorf("quote: unexpected response for %s: %q", symbol, line)
	}
	return strings.Trim(fields[6], "\""), nil
}
