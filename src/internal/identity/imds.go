// FILE: logship/src/internal/identity/imds.go
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

const (
	tokenPath    = "/latest/api/token"
	instancePath = "/latest/meta-data/instance-id"
	tagsPath     = "/latest/meta-data/tags/instance"

	tokenTTLHeader = "X-aws-ec2-metadata-token-ttl-seconds"
	tokenHeader    = "X-aws-ec2-metadata-token"
	tokenTTL       = 6 * time.Hour
)

var errNotFound = errors.New("not found in instance metadata")

// IMDSClient queries the EC2 instance metadata service. It serves both the
// instance id and the instance's tags (requires tags in metadata enabled).
type IMDSClient struct {
	endpoint string
	timeout  time.Duration
	client   *fasthttp.Client
	logger   *log.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewIMDSClient creates a metadata client from the identity options
func NewIMDSClient(opts *config.IdentityOptions, logger *log.Logger) *IMDSClient {
	timeout := opts.Timeout()
	return &IMDSClient{
		endpoint: strings.TrimSuffix(opts.Endpoint, "/"),
		timeout:  timeout,
		logger:   logger,
		client: &fasthttp.Client{
			ReadTimeout:                   timeout,
			WriteTimeout:                  timeout,
			MaxConnsPerHost:               2,
			DisableHeaderNamesNormalizing: true,
		},
	}
}

// InstanceID returns the id of the current instance
func (c *IMDSClient) InstanceID(ctx context.Context) (string, error) {
	body, err := c.get(ctx, instancePath)
	if err != nil {
		return "", fmt.Errorf("failed to read instance id: %w", err)
	}
	id := strings.TrimSpace(body)
	if id == "" {
		return "", fmt.Errorf("metadata service returned an empty instance id")
	}
	return id, nil
}

// Tags returns the Name tag of the current instance, the only tag the
// stream name uses. A missing tag yields an empty map. The metadata service
// only knows the instance it runs on, so instanceID is used for logging only.
func (c *IMDSClient) Tags(ctx context.Context, instanceID string) (map[string]string, error) {
	tags := make(map[string]string, 1)

	value, err := c.get(ctx, tagsPath+"/"+NameTag)
	switch {
	case errors.Is(err, errNotFound):
		c.logger.Debug("msg", "Instance has no Name tag in metadata",
			"component", "imds",
			"instance_id", instanceID)
		return tags, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read tag %q of %s: %w", NameTag, instanceID, err)
	}

	if name := strings.TrimSpace(value); name != "" {
		tags[NameTag] = name
	}
	return tags, nil
}

func (c *IMDSClient) get(ctx context.Context, path string) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", version.UserAgent())
	if token := c.sessionToken(ctx); token != "" {
		req.Header.Set(tokenHeader, token)
	}

	if err := c.do(ctx, req, resp); err != nil {
		return "", err
	}
	switch status := resp.StatusCode(); status {
	case fasthttp.StatusOK:
	case fasthttp.StatusNotFound:
		return "", fmt.Errorf("%s: %w", path, errNotFound)
	default:
		return "", fmt.Errorf("metadata service returned status %d for %s", status, path)
	}
	return string(resp.Body()), nil
}

// sessionToken returns a cached IMDSv2 token. An empty token makes requests
// fall back to IMDSv1.
func (c *IMDSClient) sessionToken(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint + tokenPath)
	req.Header.SetMethod(fasthttp.MethodPut)
	req.Header.Set(tokenTTLHeader, fmt.Sprintf("%d", int(tokenTTL.Seconds())))

	if err := c.do(ctx, req, resp); err != nil || resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Debug("msg", "IMDSv2 token unavailable, using IMDSv1",
			"component", "imds",
			"error", err,
			"status_code", resp.StatusCode())
		return ""
	}

	c.token = strings.TrimSpace(string(resp.Body()))
	// Refresh a minute early
	c.tokenExpiry = time.Now().Add(tokenTTL - time.Minute)
	return c.token
}

func (c *IMDSClient) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	return c.client.DoTimeout(req, resp, timeout)
}
