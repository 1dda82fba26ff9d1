package species

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"liyu1981.xyz/plant-care-service/pkg/common"
)

type HTTPSourceOptions struct {
	BaseURL string
	Timeout time.Duration
	// Retries is the number of retries after the first attempt.
	Retries uint64
	// BreakerFails opens the breaker after this many consecutive failures.
	BreakerFails uint32
	BreakerOpen  time.Duration
}

// HTTPSource reads profiles from GET {base}/species/{id}.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	retries uint64
	cb      *gobreaker.CircuitBreaker
}

func NewHTTPSource(opts HTTPSourceOptions) *HTTPSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.BreakerFails == 0 {
		opts.BreakerFails = 5
	}
	if opts.BreakerOpen <= 0 {
		opts.BreakerOpen = 30 * time.Second
	}
	fails := opts.BreakerFails
	return &HTTPSource{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  &http.Client{Timeout: opts.Timeout},
		retries: opts.Retries,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "species-lookup",
			Timeout: opts.BreakerOpen,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= fails
			},
		}),
	}
}

func (s *HTTPSource) get(ctx context.Context, speciesID string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/species/"+url.PathEscape(speciesID), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, backoff.Permanent(fmt.Errorf("species %s: %w", speciesID, common.ErrNotFound))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("species %s: upstream status %d", speciesID, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("species %s: unexpected status %d", speciesID, resp.StatusCode))
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("species %s: decode: %v", speciesID, err))
	}
	if p.ID == "" {
		p.ID = speciesID
	}
	return &p, nil
}

// Fetch retries transient failures with exponential backoff behind a circuit
// breaker. Every failure is wrapped in ErrLookupUnavailable.
func (s *HTTPSource) Fetch(ctx context.Context, speciesID string) (*Profile, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		var profile *Profile
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = 200 * time.Millisecond
		bo.MaxElapsedTime = 10 * time.Second
		err := backoff.Retry(func() error {
			p, err := s.get(ctx, speciesID)
			if err != nil {
				return err
			}
			profile = p
			return nil
		}, backoff.WithContext(backoff.WithMaxRetries(bo, s.retries), ctx))
		return profile, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrLookupUnavailable, err)
	}
	return res.(*Profile), nil
}

func (s *HTTPSource) BreakerState() gobreaker.State {
	return s.cb.State()
}
