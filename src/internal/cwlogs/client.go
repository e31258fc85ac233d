// FILE: logship/src/internal/cwlogs/client.go
package cwlogs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"logship/src/internal/config"
	"logship/src/internal/version"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/lixenwraith/log"
	"github.com/valyala/fasthttp"
)

const (
	targetHeader  = "X-Amz-Target"
	targetPrefix  = "Logs_20140328."
	jsonMediaType = "application/x-amz-json-1.1"
)

// Client talks to a CloudWatch Logs compatible endpoint using the JSON 1.1
// protocol. Requests are SigV4 signed when credentials are available.
type Client struct {
	endpoint string
	timeout  time.Duration
	client   *fasthttp.Client
	signer   *requestSigner
	logger   *log.Logger
}

// NewClient creates a client for the configured region and endpoint
func NewClient(cfg *config.AppenderConfig, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("appender config cannot be nil")
	}
	endpoint := cfg.ResolvedEndpoint()
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("endpoint must use http or https scheme: %s", endpoint)
	}

	timeout := cfg.RequestTimeout()
	c := &Client{
		endpoint: strings.TrimSuffix(endpoint, "/") + "/",
		timeout:  timeout,
		logger:   logger,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			MaxIdleConnDuration: 30 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
	}

	if creds, ok := resolveCredentials(cfg.Credentials); ok {
		c.signer = newRequestSigner(creds, cfg.Region)
	} else {
		logger.Warn("msg", "No credentials configured, requests will be unsigned",
			"component", "cwlogs_client",
			"endpoint", c.endpoint)
	}

	return c, nil
}

// resolveCredentials prefers configured keys and falls back to the standard
// AWS environment variables
func resolveCredentials(opts *config.CredentialsOptions) (aws.Credentials, bool) {
	var creds aws.Credentials
	if opts != nil {
		creds.AccessKeyID = opts.AccessKeyID
		creds.SecretAccessKey = opts.SecretKey
		creds.SessionToken = opts.SessionToken
	}
	if creds.AccessKeyID == "" {
		creds.AccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
		creds.SecretAccessKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		creds.SessionToken = os.Getenv("AWS_SESSION_TOKEN")
	}
	creds.Source = "logship"
	return creds, creds.AccessKeyID != "" && creds.SecretAccessKey != ""
}

type logGroup struct {
	LogGroupName string `json:"logGroupName"`
}

type logStream struct {
	LogStreamName       string  `json:"logStreamName"`
	UploadSequenceToken *string `json:"uploadSequenceToken,omitempty"`
}

// DescribeGroup pages through groups sharing the name as prefix
func (c *Client) DescribeGroup(ctx context.Context, name string) (bool, error) {
	var nextToken *string
	for {
		in := struct {
			LogGroupNamePrefix string  `json:"logGroupNamePrefix"`
			NextToken          *string `json:"nextToken,omitempty"`
		}{name, nextToken}
		var out struct {
			LogGroups []logGroup `json:"logGroups"`
			NextToken *string    `json:"nextToken"`
		}
		if err := c.call(ctx, "DescribeLogGroups", in, &out); err != nil {
			return false, err
		}
		for _, g := range out.LogGroups {
			if g.LogGroupName == name {
				return true, nil
			}
		}
		if out.NextToken == nil || *out.NextToken == "" {
			return false, nil
		}
		nextToken = out.NextToken
	}
}

func (c *Client) CreateGroup(ctx context.Context, name string) error {
	in := logGroup{LogGroupName: name}
	return c.call(ctx, "CreateLogGroup", in, nil)
}

func (c *Client) DescribeStream(ctx context.Context, group, prefix string) (*Stream, error) {
	var nextToken *string
	for {
		in := struct {
			LogGroupName        string  `json:"logGroupName"`
			LogStreamNamePrefix string  `json:"logStreamNamePrefix"`
			NextToken           *string `json:"nextToken,omitempty"`
		}{group, prefix, nextToken}
		var out struct {
			LogStreams []logStream `json:"logStreams"`
			NextToken  *string     `json:"nextToken"`
		}
		if err := c.call(ctx, "DescribeLogStreams", in, &out); err != nil {
			return nil, err
		}
		for _, s := range out.LogStreams {
			if s.LogStreamName == prefix {
				return &Stream{Name: s.LogStreamName, UploadSequenceToken: s.UploadSequenceToken}, nil
			}
		}
		if out.NextToken == nil || *out.NextToken == "" {
			return nil, nil
		}
		nextToken = out.NextToken
	}
}

func (c *Client) CreateStream(ctx context.Context, group, name string) error {
	in := struct {
		LogGroupName  string `json:"logGroupName"`
		LogStreamName string `json:"logStreamName"`
	}{group, name}
	return c.call(ctx, "CreateLogStream", in, nil)
}

func (c *Client) PutBatch(ctx context.Context, group, stream string, token *string, events []InputEvent) (string, error) {
	in := struct {
		LogGroupName  string       `json:"logGroupName"`
		LogStreamName string       `json:"logStreamName"`
		LogEvents     []InputEvent `json:"logEvents"`
		SequenceToken *string      `json:"sequenceToken,omitempty"`
	}{group, stream, events, token}
	var out struct {
		NextSequenceToken     string `json:"nextSequenceToken"`
		RejectedLogEventsInfo *struct {
			TooNewLogEventStartIndex *int `json:"tooNewLogEventStartIndex"`
			TooOldLogEventEndIndex   *int `json:"tooOldLogEventEndIndex"`
			ExpiredLogEventEndIndex  *int `json:"expiredLogEventEndIndex"`
		} `json:"rejectedLogEventsInfo"`
	}
	if err := c.call(ctx, "PutLogEvents", in, &out); err != nil {
		return "", err
	}
	if r := out.RejectedLogEventsInfo; r != nil {
		c.logger.Warn("msg", "Service rejected part of a batch",
			"component", "cwlogs_client",
			"log_stream", stream,
			"too_new_start", r.TooNewLogEventStartIndex,
			"too_old_end", r.TooOldLogEventEndIndex,
			"expired_end", r.ExpiredLogEventEndIndex)
	}
	return out.NextSequenceToken, nil
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// call performs one JSON 1.1 operation and decodes the response into out
func (c *Client) call(ctx context.Context, op string, in any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(jsonMediaType)
	req.Header.Set(targetHeader, targetPrefix+op)
	req.Header.Set("User-Agent", version.UserAgent())
	req.SetBody(body)

	if c.signer != nil {
		if err := c.signer.sign(ctx, req); err != nil {
			return err
		}
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return decodeError(op, status, resp.Body())
	}

	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}
	return nil
}

// decodeError maps a JSON error body onto the typed errors
func decodeError(op string, status int, body []byte) error {
	var payload struct {
		Type          string  `json:"__type"`
		Message       string  `json:"message"`
		MessageUpper  string  `json:"Message"`
		ExpectedToken *string `json:"expectedSequenceToken"`
	}
	_ = json.Unmarshal(body, &payload)

	svcErr := &ServiceError{
		Op:         op,
		Type:       payload.Type,
		Message:    payload.Message,
		StatusCode: status,
	}
	if svcErr.Message == "" {
		svcErr.Message = payload.MessageUpper
	}
	if svcErr.Message == "" && svcErr.Type == "" {
		svcErr.Message = string(body)
	}
	// Types may be namespaced, e.g. "com.amazonaws.logs#InvalidSequenceTokenException"
	if i := strings.LastIndexByte(svcErr.Type, '#'); i >= 0 {
		svcErr.Type = svcErr.Type[i+1:]
	}

	switch svcErr.Type {
	case "InvalidSequenceTokenException":
		return &InvalidSequenceTokenError{Expected: payload.ExpectedToken, Err: svcErr}
	case "DataAlreadyAcceptedException":
		return &DataAlreadyAcceptedError{Expected: payload.ExpectedToken, Err: svcErr}
	case "ResourceAlreadyExistsException":
		return &ResourceAlreadyExistsError{Err: svcErr}
	default:
		return svcErr
	}
}
