package fetcher

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rohmanhakim/site-auditor/internal/config"
	"github.com/rohmanhakim/site-auditor/internal/metadata"
	"github.com/rohmanhakim/site-auditor/internal/resource"
	"github.com/rohmanhakim/site-auditor/pkg/failure"
	"github.com/rohmanhakim/site-auditor/pkg/retry"
	"github.com/rohmanhakim/site-auditor/pkg/timeutil"
	"github.com/rohmanhakim/site-auditor/pkg/urlutil"
)

/*
Responsibilities

- Fetch one URL per call
- Apply headers, per-request deadline, and the streaming size guard
- Never follow redirects; 3xx is a terminal outcome of its own
- Decode gzip/deflate/br transparently; record wire size
- Classify responses into the ContentType enum
- Retry transient failures with backoff

Fetch Semantics

- Every call yields one VisitedURL, the outcome of its last attempt
- 4xx is terminal; 5xx retries only on internal origins
- DNS and TLS failures are permanent
- Size is the transferred (pre-decode) byte count

The fetcher never parses content; it only returns bytes and metadata.
*/

type HTTPFetcher struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	cfg          config.Config
}

func NewHTTPFetcher(metadataSink metadata.MetadataSink, cfg config.Config) HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConnsPerHost: cfg.PerHostConcurrency(),
		MaxConnsPerHost:     cfg.PerHostConcurrency(),
		IdleConnTimeout:     90 * time.Second,
		// encodings are negotiated and decoded by this package
		DisableCompression: true,
	}
	return HTTPFetcher{
		metadataSink: metadataSink,
		cfg:          cfg,
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// NewHTTPFetcherWithClient injects a custom client. This is useful for testing.
func NewHTTPFetcherWithClient(metadataSink metadata.MetadataSink, cfg config.Config, client *http.Client) HTTPFetcher {
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return HTTPFetcher{
		metadataSink: metadataSink,
		cfg:          cfg,
		httpClient:   client,
	}
}

// rawOutcome is one attempt's successful HTTP exchange.
type rawOutcome struct {
	statusCode int
	headers    http.Header
	body       []byte
	wireSize   int64
}

func (h *HTTPFetcher) Fetch(ctx context.Context, fetchParam FetchParam) FetchResult {
	found := fetchParam.found
	startTime := time.Now()

	attempts := 0
	retryParam := retry.NewRetryParam(
		h.cfg.MaxRetries(),
		h.cfg.RandomSeed(),
		timeutil.DefaultBackoffParam(),
	)
	retryParam.OnAttempt = func(int) { attempts++ }

	result := retry.Retry(retryParam, func() (rawOutcome, failure.ClassifiedError) {
		outcome, fetchErr := h.performFetch(ctx, fetchParam)
		if fetchErr != nil {
			return outcome, fetchErr
		}
		return outcome, nil
	})

	elapsed := time.Since(startTime)

	visited := resource.VisitedURL{
		Fingerprint:       urlutil.Fingerprint(found.URL),
		URL:               urlutil.Canonicalize(found.URL),
		SourceFingerprint: found.SourceFingerprint,
		SourceAttr:        found.SourceAttr,
		RequestTime:       elapsed,
		IsExternal:        found.Kind != resource.KindInternal,
		IsAllowedToCrawl:  fetchParam.allowCrawl,
		Depth:             found.Depth,
	}

	if err := result.Err(); err != nil {
		visited.StatusCode = sentinelOf(err)
		h.recordFetchError(found, err)
		return FetchResult{visited: visited, attempts: attempts}
	}

	outcome := result.Value()
	visited.StatusCode = outcome.statusCode
	visited.ContentTypeHeader = outcome.headers.Get("Content-Type")
	visited.Size = outcome.wireSize
	visited.CacheLifetime, visited.CacheFlags = parseCacheHeaders(outcome.headers)

	if outcome.statusCode >= 300 && outcome.statusCode < 400 {
		visited.ContentType = resource.ContentRedirect
	} else {
		visited.ContentType = resource.ClassifyContentType(visited.ContentTypeHeader)
	}

	return FetchResult{
		visited:  visited,
		body:     outcome.body,
		headers:  outcome.headers,
		attempts: attempts,
	}
}

// retry.Retry is generic over the error type through the
// failure.ClassifiedError interface; performFetch returns the concrete
// *FetchError so retryability stays visible.
func (h *HTTPFetcher) performFetch(ctx context.Context, fetchParam FetchParam) (rawOutcome, *FetchError) {
	found := fetchParam.found
	reqCtx, cancel := context.WithTimeout(ctx, h.cfg.RequestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, found.URL.String(), nil)
	if err != nil {
		return rawOutcome{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseResponseMalformed,
		}
	}

	req.Header.Set("User-Agent", h.cfg.UserAgent())
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", h.cfg.AcceptEncoding())

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return rawOutcome{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	// 5xx: transient, but only internal origins are worth re-hitting
	if resp.StatusCode >= 500 && fetchParam.isInternal {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return rawOutcome{}, &FetchError{
			Message:    fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable:  true,
			Cause:      ErrCauseServerError,
			HTTPStatus: resp.StatusCode,
		}
	}

	maxBody := h.cfg.MaxBodyBytes()
	if length := resp.Header.Get("Content-Length"); length != "" {
		if declared, err := strconv.ParseInt(length, 10, 64); err == nil && declared > maxBody {
			return rawOutcome{}, &FetchError{
				Message:   fmt.Sprintf("declared length %d exceeds limit %d", declared, maxBody),
				Retryable: false,
				Cause:     ErrCauseTooLarge,
			}
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return rawOutcome{}, classifyTransportError(err)
	}
	if int64(len(raw)) > maxBody {
		return rawOutcome{}, &FetchError{
			Message:   fmt.Sprintf("streamed size exceeds limit %d", maxBody),
			Retryable: false,
			Cause:     ErrCauseTooLarge,
		}
	}

	body, decodeErr := decodeBody(raw, resp.Header.Get("Content-Encoding"))
	if decodeErr != nil {
		return rawOutcome{}, &FetchError{
			Message:   fmt.Sprintf("cannot decode %q body: %v", resp.Header.Get("Content-Encoding"), decodeErr),
			Retryable: false,
			Cause:     ErrCauseResponseMalformed,
		}
	}

	return rawOutcome{
		statusCode: resp.StatusCode,
		headers:    resp.Header,
		body:       body,
		wireSize:   int64(len(raw)),
	}, nil
}

// decodeBody reverses the response Content-Encoding. Unknown encodings
// pass through untouched.
func decodeBody(raw []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return raw, nil
	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		return io.ReadAll(reader)
	case "deflate":
		reader := flate.NewReader(bytes.NewReader(raw))
		defer reader.Close()
		return io.ReadAll(reader)
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
	default:
		return raw, nil
	}
}

// classifyTransportError maps a transport failure to a FetchError with
// the retry policy of §7: timeouts and connect failures retry, DNS and
// TLS failures do not.
func classifyTransportError(err error) *FetchError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &FetchError{
			Message:   dnsErr.Error(),
			Retryable: false,
			Cause:     ErrCauseDNSFailure,
		}
	}

	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) {
		return &FetchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseTLSFailure,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return &FetchError{
			Message:   err.Error(),
			Retryable: true,
			Cause:     ErrCauseConnectRefused,
		}
	}

	return &FetchError{
		Message:   err.Error(),
		Retryable: true,
		Cause:     ErrCauseConnectRefused,
	}
}

// sentinelOf unwraps retry exhaustion down to the last concrete fetch
// error before mapping to a negative status.
func sentinelOf(err error) int {
	var retryErr *retry.RetryError
	if errors.As(err, &retryErr) && retryErr.Last != nil {
		err = retryErr.Last
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.SentinelStatus()
	}
	return resource.StatusConnectionFail
}

func (h *HTTPFetcher) recordFetchError(found resource.FoundURL, err error) {
	if h.metadataSink == nil {
		return
	}
	h.metadataSink.RecordError(
		time.Now(),
		"fetcher",
		"HTTPFetcher.Fetch",
		metadata.CauseNetworkFailure,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, found.URL.String()),
			metadata.NewAttr(metadata.AttrHost, found.URL.Host),
		},
	)
}
