package kickertool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/kickplan/tournament-mirror/metrics"
)

var (
	ErrNotFound    = errors.New("kickertool: resource not found")
	ErrAuth        = errors.New("kickertool: authentication failed")
	ErrUnavailable = errors.New("kickertool: api unavailable")
)

// TournamentQuery selects the optional substructures of the tournament
// detail response. Every flag defaults to false; serialization to query
// parameters happens only at the request boundary.
type TournamentQuery struct {
	IncludeMatches   bool
	IncludeStandings bool
	IncludeCourts    bool
}

type CourtsQuery struct {
	IncludeMatchDetails bool
}

// Client fetches tournament data from the external platform. It performs no
// local persistence and no interpretation beyond decoding the wire shapes.
type Client interface {
	FetchTournament(ctx context.Context, tournamentID string, q TournamentQuery) (*TournamentPayload, error)
	FetchEntries(ctx context.Context, tournamentID string) ([]EntryPayload, error)
	FetchMatch(ctx context.Context, matchID string) (*MatchPayload, error)
	FetchCourts(ctx context.Context, tournamentID string, q CourtsQuery) ([]CourtPayload, error)
}

type ClientConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration // per request, default 10s
	MaxRetries uint64        // transient failures only, default 3
}

type httpClient struct {
	baseURL    string
	apiKey     string
	hc         *http.Client
	maxRetries uint64
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *slog.Logger
}

func NewHTTPClient(cfg ClientConfig, logger *slog.Logger) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("kickertool: base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("kickertool: API key is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "kickertool-api",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx means the request was wrong, not that the upstream is down;
		// only infrastructure failures may trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuth)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("api circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	return &httpClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		hc:         &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		breaker:    breaker,
		logger:     logger,
	}, nil
}

func (c *httpClient) FetchTournament(ctx context.Context, tournamentID string, q TournamentQuery) (*TournamentPayload, error) {
	params := url.Values{}
	params.Set("includeMatches", boolParam(q.IncludeMatches))
	params.Set("includeStandings", boolParam(q.IncludeStandings))
	params.Set("includeCourts", boolParam(q.IncludeCourts))

	body, err := c.get(ctx, "tournament_detail", "/tournaments/"+tournamentID, params)
	if err != nil {
		return nil, err
	}
	if emptyBody(body) {
		return nil, nil
	}

	var payload TournamentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode tournament %s: %w", tournamentID, err)
	}
	payload.Raw = body
	return &payload, nil
}

func (c *httpClient) FetchEntries(ctx context.Context, tournamentID string) ([]EntryPayload, error) {
	body, err := c.get(ctx, "entries", "/tournaments/"+tournamentID+"/entries", nil)
	if err != nil {
		return nil, err
	}
	if emptyBody(body) {
		return nil, nil
	}

	var entries []EntryPayload
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode entries for tournament %s: %w", tournamentID, err)
	}
	return entries, nil
}

func (c *httpClient) FetchMatch(ctx context.Context, matchID string) (*MatchPayload, error) {
	body, err := c.get(ctx, "match", "/matches/"+matchID, nil)
	if err != nil {
		return nil, err
	}
	if emptyBody(body) {
		return nil, nil
	}

	var match MatchPayload
	if err := json.Unmarshal(body, &match); err != nil {
		return nil, fmt.Errorf("decode match %s: %w", matchID, err)
	}
	return &match, nil
}

func (c *httpClient) FetchCourts(ctx context.Context, tournamentID string, q CourtsQuery) ([]CourtPayload, error) {
	params := url.Values{}
	if q.IncludeMatchDetails {
		params.Set("includeMatchDetails", "true")
	}

	body, err := c.get(ctx, "courts", "/tournaments/"+tournamentID+"/courts", params)
	if err != nil {
		return nil, err
	}
	if emptyBody(body) {
		return nil, nil
	}

	var courts []CourtPayload
	if err := json.Unmarshal(body, &courts); err != nil {
		return nil, fmt.Errorf("decode courts for tournament %s: %w", tournamentID, err)
	}
	return courts, nil
}

// get performs one API call with bounded retries. Transient failures
// (network errors, 5xx) are retried with exponential backoff; 4xx responses
// are permanent. The circuit breaker wraps each attempt so a dead upstream
// fails fast once it opens. op is the static operation name used as the
// metrics label; the path carries resource ids and would blow up series
// cardinality.
func (c *httpClient) get(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	started := time.Now()

	var body []byte
	operation := func() error {
		b, err := c.breaker.Execute(func() ([]byte, error) {
			return c.doRequest(ctx, endpoint, params)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fmt.Errorf("%w: circuit open", ErrUnavailable))
			}
			return err
		}
		body = b
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		metrics.APIRequestsTotal.WithLabelValues(op, "error").Inc()
		if isPermanent(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	metrics.APIRequestsTotal.WithLabelValues(op, "ok").Inc()
	metrics.APIRequestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	return body, nil
}

func (c *httpClient) doRequest(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		// Network and timeout errors are retryable.
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, backoff.Permanent(ErrAuth)
	case resp.StatusCode >= 500:
		c.logger.Warn("api server error, will retry",
			slog.String("url", endpoint),
			slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("api returned HTTP %d", resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("api returned HTTP %d", resp.StatusCode))
	}
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuth) || errors.Is(err, ErrUnavailable)
}

func emptyBody(body []byte) bool {
	switch string(body) {
	case "", "null", "[]", "{}":
		return true
	}
	return false
}

func boolParam(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
