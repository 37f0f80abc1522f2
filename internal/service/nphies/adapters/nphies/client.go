package nphies

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	fhirmodel "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir/model"
)

const (
	contentTypeFHIR = "application/fhir+json"
	processMessage  = "/$process-message"
	requestIDHeader = "X-Request-ID"

	defaultTimeout      = 30 * time.Second
	defaultRetryMax     = 3
	defaultRetryWaitMin = 1 * time.Second
	defaultRetryWaitMax = 10 * time.Second
)

type Options struct {
	Endpoint    string // base URL, $process-message is appended
	CertFile    string
	KeyFile     string
	CAFile      string
	BearerToken string

	Timeout      time.Duration
	// nil uses the default; 0 disables retries
	RetryMax     *int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Response is the raw answer of the NPHIES endpoint.
type Response struct {
	StatusCode int
	Body       []byte
}

// TransportError reports a submission that never produced a usable response.
// StatusCode is 0 when no response arrived at all.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("nphies %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("nphies %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Cause() error { return e.Err }

// Client submits message bundles to NPHIES. Submissions may be retried
// because every business identifier in a bundle is deterministic.
type Client struct {
	http     *retryablehttp.Client
	endpoint string
	token    string
	logger   zerolog.Logger
	now      func() time.Time
}

func NewClient(opt Options, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(opt.Endpoint) == "" {
		return nil, errors.New("nphies endpoint is not configured")
	}

	tlsConfig, err := tlsConfigFor(opt)
	if err != nil {
		return nil, err
	}

	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{
		Transport: &http.Transport{TLSClientConfig: tlsConfig, Proxy: http.ProxyFromEnvironment},
		Timeout:   timeout,
	}
	rc.RetryMax = defaultRetryMax
	if opt.RetryMax != nil {
		if *opt.RetryMax < 0 {
			return nil, errors.Errorf("nphies retry max must not be negative, got %d", *opt.RetryMax)
		}
		rc.RetryMax = *opt.RetryMax
	}
	rc.RetryWaitMin = durationOr(opt.RetryWaitMin, defaultRetryWaitMin)
	rc.RetryWaitMax = durationOr(opt.RetryWaitMax, defaultRetryWaitMax)
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{logger}

	return &Client{
		http:     rc,
		endpoint: strings.TrimRight(opt.Endpoint, "/"),
		token:    opt.BearerToken,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func tlsConfigFor(opt Options) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if opt.CertFile != "" || opt.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opt.CertFile, opt.KeyFile)
		if err != nil {
			return nil, errors.Wrap(err, "load nphies client certificate")
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if opt.CAFile != "" {
		caCert, err := os.ReadFile(opt.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "read nphies CA file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.Errorf("no certificates found in %s", opt.CAFile)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

// Submit posts a message bundle to $process-message. Responses with a 5xx
// status after all retries are returned as *TransportError; any other status
// is handed back for the parser to judge.
func (c *Client) Submit(ctx context.Context, bundle *fhirmodel.Bundle) (Response, error) {
	if c.token != "" {
		if err := ValidateBearerToken(c.token, c.now()); err != nil {
			return Response{}, &TransportError{Op: "authorize", Err: err}
		}
	}

	body, err := json.Marshal(bundle)
	if err != nil {
		return Response{}, &TransportError{Op: "encode", Err: errors.Wrap(err, "marshal bundle")}
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, c.endpoint+processMessage, body)
	if err != nil {
		return Response{}, &TransportError{Op: "submit", Err: errors.Wrap(err, "build request")}
	}
	req = req.WithContext(ctx)

	reqID := uuid.New().String()
	req.Header.Set("Content-Type", contentTypeFHIR)
	req.Header.Set("Accept", contentTypeFHIR)
	req.Header.Set(requestIDHeader, reqID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	log := c.logger.With().
		Str("request_id", reqID).
		Str("bundle_id", bundle.ID).
		Logger()
	log.Info().Str("url", req.URL.String()).Msg("nphies request")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Dur("latency", time.Since(start)).Msg("nphies request failed")
		return Response{}, &TransportError{Op: "submit", Err: errors.Wrap(err, "post bundle")}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &TransportError{Op: "submit", StatusCode: resp.StatusCode, Err: errors.Wrap(err, "read response body")}
	}

	log.Info().
		Int("status", resp.StatusCode).
		Int("content_length", len(data)).
		Dur("latency", time.Since(start)).
		Msg("nphies response")

	if resp.StatusCode >= http.StatusInternalServerError {
		return Response{StatusCode: resp.StatusCode, Body: data},
			&TransportError{Op: "submit", StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	return Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// ValidateBearerToken checks that token is a well-formed JWT that has not
// expired at now. The signature is the gateway's business, not ours.
func ValidateBearerToken(token string, now time.Time) error {
	if strings.Count(token, ".") != 2 {
		return errors.Wrap(jwt.ErrTokenMalformed, "bearer token must have three segments")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return errors.Wrap(err, "parse bearer token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return errors.Wrap(err, "read token expiry")
	}
	if exp != nil && !now.Before(exp.Time) {
		return errors.Wrapf(jwt.ErrTokenExpired, "bearer token expired at %s", exp.Time.UTC().Format(time.RFC3339))
	}
	return nil
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// leveledLogger routes retryablehttp's internal logging into zerolog.
type leveledLogger struct {
	l zerolog.Logger
}

func (z leveledLogger) Error(msg string, kv ...interface{}) { z.l.Error().Fields(kv).Msg(msg) }
func (z leveledLogger) Info(msg string, kv ...interface{})  { z.l.Debug().Fields(kv).Msg(msg) }
func (z leveledLogger) Debug(msg string, kv ...interface{}) { z.l.Debug().Fields(kv).Msg(msg) }
func (z leveledLogger) Warn(msg string, kv ...interface{})  { z.l.Warn().Fields(kv).Msg(msg) }
