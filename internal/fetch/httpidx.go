package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/synopticspread/spread/internal/domain"
)

// maxFetchRetries bounds the retries applied to a single transient
// (ErrSourceUnavailable) HTTP failure against an upstream model
// provider. Permanent failures (a missing variable in the .idx file,
// ErrUnexpectedSchema) are never retried.
const maxFetchRetries = 4

// Response body size caps: NWP .idx files run a few hundred KB, single
// GRIB2 fields run a few MB even for the finest 3-km grids. These bound
// allocation if a source sends an unexpectedly large body.
const (
	maxIdxBytes  = 10 << 20 // 10 MB
	maxGRIBBytes = 80 << 20 // 80 MB
)

// idxRangeClient fetches a GRIB2 message by byte range, located via the
// companion .idx file NOMADS/NOAA/ECMWF publish alongside every GRIB2
// file. Adapted from the grib2hrrr decoder's HRRRClient, generalized
// across providers by taking the base HTTP client and timeout as config
// rather than hardcoding NOAA's S3 bucket.
type idxRangeClient struct {
	httpClient *http.Client
}

func newIdxRangeClient(timeout time.Duration) *idxRangeClient {
	return &idxRangeClient{httpClient: &http.Client{Timeout: timeout}}
}

// byteRange is the [start, end] span of one .idx entry's message within
// its companion GRIB2 file. end == math.MaxInt64 means "to EOF" (the
// entry's message is the last one in the file).
type byteRange struct {
	start, end int64
}

// fetchIdxBody downloads the .idx file at idxURL.
func (c *idxRangeClient) fetchIdxBody(ctx context.Context, idxURL string) ([]byte, error) {
	var body []byte
	err := retryTransient(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, idxURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: index fetch HTTP %d for %s", domain.ErrSourceUnavailable, resp.StatusCode, idxURL)
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxIdxBytes))
		if err != nil {
			return fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, err)
		}
		body = b
		return nil
	})
	return body, err
}

// rangeInIdxBody parses a colon-delimited GRIB2 .idx body and returns the
// byte range for the first line containing varLevel as a substring.
func rangeInIdxBody(body []byte, idxURL, varLevel string) (byteRange, error) {
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	for i, line := range lines {
		if !strings.Contains(line, varLevel) {
			continue
		}
		parts := strings.Split(line, ":")
		if len(parts) < 3 {
			continue
		}
		start, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		end := int64(-1)
		if i+1 < len(lines) {
			nextParts := strings.Split(lines[i+1], ":")
			if len(nextParts) >= 2 {
				if nextStart, perr := strconv.ParseInt(nextParts[1], 10, 64); perr == nil {
					end = nextStart - 1
				}
			}
		}
		if end < 0 {
			end = math.MaxInt64
		}
		return byteRange{start: start, end: end}, nil
	}
	return byteRange{}, fmt.Errorf("%w: variable %q not found in index %s", domain.ErrUnexpectedSchema, varLevel, idxURL)
}

// findByteRange downloads idxURL and returns the byte range for varLevel.
func (c *idxRangeClient) findByteRange(ctx context.Context, idxURL, varLevel string) (int64, int64, error) {
	body, err := c.fetchIdxBody(ctx, idxURL)
	if err != nil {
		return 0, 0, err
	}
	r, err := rangeInIdxBody(body, idxURL, varLevel)
	if err != nil {
		return 0, 0, err
	}
	return r.start, r.end, nil
}

// fetchRange does an HTTP range request for [start, end] (end == MaxInt64
// means "to EOF") and returns the body bytes.
func (c *idxRangeClient) fetchRange(ctx context.Context, url string, start, end int64) ([]byte, error) {
	var body []byte
	err := retryTransient(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if end == math.MaxInt64 {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-", start))
		} else {
			req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: HTTP %d fetching %s", domain.ErrSourceUnavailable, resp.StatusCode, url)
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxGRIBBytes))
		if err != nil {
			return fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, err)
		}
		body = b
		return nil
	})
	return body, err
}

// retryTransient retries op with an exponential backoff, but only while
// op's error wraps domain.ErrSourceUnavailable; any other error (a bad
// request, a permanently missing variable) aborts immediately.
func retryTransient(ctx context.Context, op func() error) error {
	wrapped := func() error {
		err := op()
		if err != nil && !errors.Is(err, domain.ErrSourceUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, maxFetchRetries), ctx)
	return backoff.Retry(wrapped, policy)
}

// fetchMessage fetches and writes a single GRIB2 message to a scratch
// file, then returns its bytes. The scratch file lives under dir, which
// the caller is responsible for creating and tearing down (see scratch.go).
func (c *idxRangeClient) fetchMessage(ctx context.Context, dir, idxURL, gribURL, varLevel string) ([]byte, error) {
	start, end, err := c.findByteRange(ctx, idxURL, varLevel)
	if err != nil {
		return nil, err
	}
	raw, err := c.fetchRange(ctx, gribURL, start, end)
	if err != nil {
		return nil, err
	}
	if err := writeScratchFile(dir, varLevel, raw); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
	}
	return raw, nil
}

// fetchMessagePair fetches two .idx entries that share the same byte
// range of the encoded file (NAM's U/V wind components, per spec) with
// a single HTTP range request instead of two, then splits the combined
// body back into each message's own bytes. Both messages are written to
// their own scratch files.
func (c *idxRangeClient) fetchMessagePair(ctx context.Context, dir, idxURL, gribURL, levelA, levelB string) (rawA, rawB []byte, err error) {
	body, err := c.fetchIdxBody(ctx, idxURL)
	if err != nil {
		return nil, nil, err
	}
	rangeA, err := rangeInIdxBody(body, idxURL, levelA)
	if err != nil {
		return nil, nil, err
	}
	rangeB, err := rangeInIdxBody(body, idxURL, levelB)
	if err != nil {
		return nil, nil, err
	}

	mergedStart := rangeA.start
	if rangeB.start < mergedStart {
		mergedStart = rangeB.start
	}
	mergedEnd := rangeA.end
	if rangeB.end == math.MaxInt64 || (mergedEnd != math.MaxInt64 && rangeB.end > mergedEnd) {
		mergedEnd = rangeB.end
	}

	combined, err := c.fetchRange(ctx, gribURL, mergedStart, mergedEnd)
	if err != nil {
		return nil, nil, err
	}

	slice := func(r byteRange) ([]byte, error) {
		lo := r.start - mergedStart
		hi := int64(len(combined))
		if r.end != math.MaxInt64 {
			hi = r.end - mergedStart + 1
		}
		if lo < 0 || hi > int64(len(combined)) || lo > hi {
			return nil, fmt.Errorf("%w: byte range [%d,%d] outside merged fetch of %d bytes", domain.ErrSourceUnavailable, lo, hi, len(combined))
		}
		return combined[lo:hi], nil
	}

	rawA, err = slice(rangeA)
	if err != nil {
		return nil, nil, err
	}
	rawB, err = slice(rangeB)
	if err != nil {
		return nil, nil, err
	}

	if err := writeScratchFile(dir, levelA, rawA); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
	}
	if err := writeScratchFile(dir, levelB, rawB); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrStorageFailure, err)
	}
	return rawA, rawB, nil
}
