package petfinder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/hugh/adopt-a-pet/pkg/config"
	"github.com/hugh/adopt-a-pet/pkg/metrics"
)

const maxResponseBytes = 4 << 20

// Client talks to the Petfinder v2 API. It holds no token itself: callers
// pass the Credential stored in the user's session.
type Client struct {
	baseURL   string
	pageLimit int
	http      *http.Client
	oauth     clientcredentials.Config
	limiter   *rate.Limiter
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewClient(cfg config.PetfinderConfig, logger *slog.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	pageLimit := cfg.PageLimit
	if pageLimit < 1 {
		pageLimit = 42
	}

	return &Client{
		baseURL:   cfg.BaseURL,
		pageLimit: pageLimit,
		http:      &http.Client{Timeout: timeout},
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.BaseURL + "/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		limiter: rate.NewLimiter(limit, max(cfg.RateLimit, 1)),
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for token expiry. Used by tests.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// FetchToken runs the client-credentials grant. The returned credential is
// trusted for at most TokenLifetime from now.
func (c *Client) FetchToken(ctx context.Context) (Credential, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Credential{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	start := time.Now()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := c.oauth.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			err = parseAPIError("token", retrieveErr.Response.StatusCode, retrieveErr.Body)
		} else {
			err = fmt.Errorf("petfinder token: %w", err)
		}
		c.metrics.ObserveUpstream("token", outcome(err), time.Since(start))
		c.logger.Warn("petfinder token request failed", "error", err)
		return Credential{}, err
	}
	c.metrics.ObserveUpstream("token", "ok", time.Since(start))

	expiresAt := c.now().Add(TokenLifetime)
	if !tok.Expiry.IsZero() && tok.Expiry.Before(expiresAt) {
		expiresAt = tok.Expiry
	}

	return Credential{AccessToken: tok.AccessToken, ExpiresAt: expiresAt}, nil
}

// ListOrganizations returns one page of organizations. Pages start at 1.
func (c *Client) ListOrganizations(ctx context.Context, cred Credential, page int, filter OrganizationFilter) (*OrganizationPage, error) {
	q := c.pageQuery(page)
	if key, value, ok := filter.Active(); ok {
		q.Set(key, value)
	}

	var out OrganizationPage
	if err := c.get(ctx, cred, "organizations", "/organizations", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAnimals(ctx context.Context, cred Credential, page int, filter AnimalFilter) (*AnimalPage, error) {
	q := c.pageQuery(page)
	if key, value, ok := filter.Active(); ok {
		q.Set(key, value)
	}

	var out AnimalPage
	if err := c.get(ctx, cred, "animals", "/animals", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTypes(ctx context.Context, cred Credential) ([]AnimalType, error) {
	var out typesResponse
	if err := c.get(ctx, cred, "types", "/types", nil, &out); err != nil {
		return nil, err
	}
	return out.Types, nil
}

func (c *Client) GetAnimal(ctx context.Context, cred Credential, id string) (*Animal, error) {
	var out animalResponse
	if err := c.get(ctx, cred, "animal", "/animals/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Animal, nil
}

func (c *Client) GetOrganization(ctx context.Context, cred Credential, id string) (*Organization, error) {
	var out organizationResponse
	if err := c.get(ctx, cred, "organization", "/organizations/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Organization, nil
}

func (c *Client) pageQuery(page int) url.Values {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageLimit))
	q.Set("page", strconv.Itoa(page))
	return q
}

func (c *Client) get(ctx context.Context, cred Credential, endpoint, path string, query url.Values, out interface{}) error {
	if !cred.Valid(c.now()) {
		return fmt.Errorf("%w: access token expired", ErrUnauthorized)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	err = c.do(req, endpoint, out)
	c.metrics.ObserveUpstream(endpoint, outcome(err), time.Since(start))
	if err != nil {
		c.logger.Warn("petfinder request failed", "endpoint", endpoint, "error", err)
	}
	return err
}

func (c *Client) do(req *http.Request, endpoint string, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("petfinder %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("petfinder %s: reading body: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(endpoint, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("petfinder %s: decoding response: %w", endpoint, err)
	}
	return nil
}
