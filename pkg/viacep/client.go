// Package viacep queries a ViaCEP-compatible postal-code API for real
// address data.
package viacep

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sampa-labs/brgen-cli/internal/resilience"
)

// DefaultBaseURL is the public ViaCEP endpoint.
const DefaultBaseURL = "https://viacep.com.br"

var (
	// ErrInvalidCEP marks input that cannot be a postal code; the API would
	// answer 400, so the call is never made.
	ErrInvalidCEP = eris.New("viacep: invalid cep")

	// ErrNotFound marks a well-formed code the API does not know. The
	// service signals this with HTTP 200 and an erro body.
	ErrNotFound = eris.New("viacep: cep not found")
)

// IsNotFound reports whether err means the code is unknown to the API.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalid reports whether err is an input validation failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidCEP)
}

// Address is the API's record for one postal code. JSON names follow the
// upstream Portuguese field names.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"logradouro"`
	Complement   string `json:"complemento"`
	Neighborhood string `json:"bairro"`
	City         string `json:"localidade"`
	UF           string `json:"uf"`
	IBGE         string `json:"ibge"`
	DDD          string `json:"ddd"`
}

// wireAddress adds the erro marker the API uses for unknown codes. Older
// deployments emit it as a bare bool, newer ones as the string "true".
type wireAddress struct {
	Address
	Erro json.RawMessage `json:"erro"`
}

func (w *wireAddress) notFound() bool {
	switch string(w.Erro) {
	case "true", `"true"`:
		return true
	default:
		return false
	}
}

// Normalize strips punctuation from a postal code and validates the result
// is exactly eight digits.
func Normalize(cep string) (string, error) {
	digits := make([]byte, 0, 8)
	for i := 0; i < len(cep); i++ {
		c := cep[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == '-' || c == '.' || c == ' ':
			// separators are tolerated
		default:
			return "", eris.Wrapf(ErrInvalidCEP, "viacep: normalize %q", cep)
		}
	}
	if len(digits) != 8 {
		return "", eris.Wrapf(ErrInvalidCEP, "viacep: normalize %q", cep)
	}
	return string(digits), nil
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at a different deployment (tests use
// httptest servers).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// Client looks up postal codes against one API deployment. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client with the given options. Defaults: the public
// endpoint, a 15s timeout and 10 req/s.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup fetches the address for one postal code. 429 and 5xx answers come
// back as transient errors so callers can retry; validation failures,
// unknown codes and malformed bodies are permanent.
func (c *Client) Lookup(ctx context.Context, cep string) (*Address, error) {
	norm, err := Normalize(cep)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "viacep: rate limit")
	}

	reqURL := fmt.Sprintf("%s/ws/%s/json/", c.baseURL, norm)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "viacep: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "viacep: lookup %s", norm)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("viacep: lookup %s returned status %d", norm, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "viacep: read body for %s", norm)
	}

	var wire wireAddress
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, eris.Wrapf(err, "viacep: parse response for %s", norm)
	}
	if wire.notFound() {
		return nil, eris.Wrapf(ErrNotFound, "viacep: lookup %s", norm)
	}
	return &wire.Address, nil
}
