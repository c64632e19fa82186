package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/arthur-debert/envdeploy/pkg/errors"
	"github.com/arthur-debert/envdeploy/pkg/logging"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Retries int
	Timeout time.Duration

	// RetryWait bounds the wait between retries. Zero keeps the
	// retryablehttp defaults.
	RetryWait time.Duration
}

// Release is one published version of a module.
type Release struct {
	Slug       string `json:"slug"`
	Version    string `json:"version"`
	FileURI    string `json:"file_uri"`
	FileSHA256 string `json:"file_sha256"`
}

type moduleResponse struct {
	CurrentRelease *Release `json:"current_release"`
}

// Client is a registry API client with retries.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  zerolog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	logger := logging.GetLogger("registry")

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.Retries
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	if opts.RetryWait > 0 {
		rc.RetryWaitMin = opts.RetryWait
		rc.RetryWaitMax = opts.RetryWait
	}
	rc.Logger = leveledLogger{logger}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    rc,
		logger:  logger,
	}
}

// Slug turns "owner/name" or "owner-name" into the registry slug
// "owner-name".
func Slug(name string) string {
	return strings.Replace(name, "/", "-", 1)
}

// Latest returns the current release of the named module.
func (c *Client) Latest(ctx context.Context, name string) (*Release, error) {
	var resp moduleResponse
	if err := c.getJSON(ctx, "/v3/modules/"+Slug(name), &resp); err != nil {
		return nil, err
	}
	if resp.CurrentRelease == nil {
		return nil, errors.Newf(errors.ErrRegistry, "module %s has no releases", name).
			WithDetail("module", name)
	}
	return resp.CurrentRelease, nil
}

// Release returns a specific release of the named module.
func (c *Client) Release(ctx context.Context, name, version string) (*Release, error) {
	var rel Release
	if err := c.getJSON(ctx, fmt.Sprintf("/v3/releases/%s-%s", Slug(name), version), &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.baseURL + path
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRegistry, "invalid registry request %s", url)
	}
	req.Header.Set("User-Agent", "envdeploy")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrRegistry, "GET %s failed", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		code := errors.ErrRegistry
		if resp.StatusCode == http.StatusNotFound {
			code = errors.ErrNotFound
		}
		return nil, errors.Newf(code, "GET %s: %s", url, resp.Status).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", strings.TrimSpace(string(data)))
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, errors.ErrRegistry, "invalid response from %s", path)
	}
	return nil
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger zerolog.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.logger.Error().Fields(kv).Msg(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.logger.Warn().Fields(kv).Msg(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.logger.Debug().Fields(kv).Msg(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.logger.Trace().Fields(kv).Msg(msg) }
