// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the search and language
// model adapters.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// retryable responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// maxRetryAfter caps how long a server-supplied Retry-After can make us wait.
const maxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 5

// Retryable reports whether a response status is worth retrying: 429 (Too
// Many Requests) and 503 (Service Unavailable).
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry executes an HTTP request and retries on retryable statuses
// with exponential backoff starting at RetryBaseDelay. A Retry-After header
// given in seconds replaces the computed backoff.
//
// When maxRetries is 0 the default (5) is used; a negative value disables
// retries. Request bodies are replayed through req.GetBody, so requests
// built with http.NewRequest over a bytes or strings reader can be retried.
// If the context is cancelled during a backoff wait the function returns
// ctx.Err(). After exhausting retries the last response is returned so the
// caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	switch {
	case maxRetries == 0:
		maxRetries = defaultMaxRetries
	case maxRetries < 0:
		maxRetries = 0
	}
	log := zerolog.Ctx(ctx)

	for attempt := 0; ; attempt++ {
		r := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}

		resp, err := client.Do(r)
		if err != nil {
			return nil, err
		}

		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		// Drain and close the body before retrying.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		backoff := retryAfter(resp.Header.Get("Retry-After"))
		if backoff == 0 {
			backoff = time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
		}
		log.Debug().
			Str("url", req.URL.Redacted()).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("retrying request")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// retryAfter parses a Retry-After header expressed in seconds. HTTP-date
// values and garbage yield zero.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}
