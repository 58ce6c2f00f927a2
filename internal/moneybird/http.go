package moneybird

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// httpClient sends authorized requests and reads the whole response body,
// so callers never have to close it.
type httpClient struct {
	base    http.RoundTripper
	timeout time.Duration
}

func newHTTPClient(timeout time.Duration) *httpClient {
	return &httpClient{
		base:    http.DefaultTransport,
		timeout: timeout,
	}
}

type resp struct {
	Code   int
	Body   []byte
	Header http.Header
}

// do executes req with token attached as a bearer credential.
func (hc *httpClient) do(req *http.Request, token string) (*resp, error) {
	c := &http.Client{
		Timeout: hc.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   hc.base,
		},
	}

	hr, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client error: %w", err)
	}

	defer hr.Body.Close()
	body, err := io.ReadAll(hr.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &resp{
		Code:   hr.StatusCode,
		Body:   body,
		Header: hr.Header,
	}, nil
}
