package userdir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/geocoder89/dmdash/internal/domain/user"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Observer receives the latency of each call, labelled by status code
// ("error" for transport failures).
type Observer interface {
	ObserveUserDir(status string, d time.Duration)
}

// Client fetches synthetic identities from a randomuser.me style endpoint.
// Calls are never retried.
type Client struct {
	url  string
	http *http.Client
	obs  Observer
}

func New(url string, timeout time.Duration, obs Observer) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
		obs:  obs,
	}
}

// WithHTTPClient swaps the underlying client. Mostly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// maxBodyBytes bounds the directory response; one user is a few KB.
const maxBodyBytes = 1 << 20

type response struct {
	Results []*user.User `json:"results"`
}

// FetchRandom performs one GET and returns the first result.
func (c *Client) FetchRandom(ctx context.Context) (u user.User, err error) {
	ctx, span := otel.Tracer("dmdash/userdir").Start(ctx, "userdir.FetchRandom")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return user.User{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe("error", start)
		return user.User{}, &NetworkError{Err: unwrapURLError(err)}
	}
	defer resp.Body.Close()

	c.observe(strconv.Itoa(resp.StatusCode), start)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return user.User{}, ErrLoginFailed
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))

	var out response
	if err := dec.Decode(&out); err != nil {
		return user.User{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	// the body must hold exactly one JSON value
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return user.User{}, fmt.Errorf("%w: trailing data after response", ErrMalformedResponse)
	}

	if len(out.Results) == 0 {
		return user.User{}, fmt.Errorf("%w: empty results", ErrMalformedResponse)
	}

	first := out.Results[0]
	if first == nil || first.Login.UUID == "" {
		return user.User{}, fmt.Errorf("%w: result has no login.uuid", ErrMalformedResponse)
	}

	return *first, nil
}

func (c *Client) observe(status string, start time.Time) {
	if c.obs != nil {
		c.obs.ObserveUserDir(status, time.Since(start))
	}
}

// http.Client decorates transport errors with the method and url; the
// caller should see the transport's own message.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}
