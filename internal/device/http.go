package device

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xtxerr/aimon/internal/errors"
	"github.com/xtxerr/aimon/internal/logging"
)

var httpLog = logging.Component("device-http")

// acceptHeader is the ioLogik REST API version header.
const acceptHeader = "vdn.dac.v1"

// maxResponseBytes caps the response body read to guard against a
// misbehaving endpoint.
const maxResponseBytes = 1 << 20

// HTTPConfig holds HTTP client configuration.
type HTTPConfig struct {
	// Address is the device host or host:port.
	Address string

	// APIRoot is the analog input endpoint path.
	APIRoot string

	// Channels is the set of analog channel indices to read.
	Channels []int

	// Timeout is the per-request timeout.
	Timeout time.Duration
}

// HTTPClient reads analog inputs over the ioLogik REST API.
type HTTPClient struct {
	url      string
	channels map[int]bool
	client   *http.Client
}

// NewHTTPClient creates an HTTP device client.
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	channels := make(map[int]bool, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		channels[ch] = true
	}

	return &HTTPClient{
		url:      fmt.Sprintf("http://%s%s", cfg.Address, cfg.APIRoot),
		channels: channels,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// aiPayload mirrors the REST response:
//
//	{"io":{"ai":[{"aiIndex":0,"aiValueScaled":4.98}, ...]}}
//
// Pointer fields distinguish a missing field from a zero value.
type aiPayload struct {
	IO struct {
		AI []aiEntry `json:"ai"`
	} `json:"io"`
}

type aiEntry struct {
	Index       *int     `json:"aiIndex"`
	ValueScaled *float64 `json:"aiValueScaled"`
}

// FetchStatus probes the analog input endpoint.
func (c *HTTPClient) FetchStatus(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "status probe")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Wrapf(errors.ErrHTTPStatus, "status probe: %s", resp.Status)
	}
	return nil
}

// FetchChannels performs one GET and parses the analog input payload.
// Entries with a missing index or value are skipped, so a degraded payload
// yields a partial reading rather than an error. Channels not in the
// configured set are ignored.
func (c *HTTPClient) FetchChannels(ctx context.Context) (map[int]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrTimeout, "fetch")
		}
		return nil, errors.Wrap(err, "fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, errors.Wrapf(errors.ErrHTTPStatus, "fetch: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	var payload aiPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedPayload, "decode: %v", err)
	}
	if payload.IO.AI == nil {
		return nil, errors.Wrap(errors.ErrMalformedPayload, "missing io.ai")
	}

	values := make(map[int]float64)
	for _, entry := range payload.IO.AI {
		if entry.Index == nil || entry.ValueScaled == nil {
			httpLog.Debug("skipping incomplete ai entry")
			continue
		}
		if !c.channels[*entry.Index] {
			continue
		}
		values[*entry.Index] = *entry.ValueScaled
	}
	return values, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Content-Type", "application/json")
}
