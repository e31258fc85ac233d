// FILE: logship/src/internal/cwlogs/client_test.go
package cwlogs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"logship/src/internal/config"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	target string
	auth   string
	body   map[string]any
}

// fakeLogsServer answers JSON 1.1 operations through per-operation handlers
type fakeLogsServer struct {
	mu       sync.Mutex
	calls    []recordedCall
	handlers map[string]func(w http.ResponseWriter, body map[string]any)
}

func (f *fakeLogsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	target := r.Header.Get("X-Amz-Target")
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{target: target, auth: r.Header.Get("Authorization"), body: body})
	h := f.handlers[strings.TrimPrefix(target, targetPrefix)]
	f.mu.Unlock()

	if h == nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"__type":"UnknownOperationException"}`))
		return
	}
	h(w, body)
}

func (f *fakeLogsServer) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func writeJSON(w http.ResponseWriter, status int, v string) {
	w.Header().Set("Content-Type", jsonMediaType)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(v))
}

func newTestClient(t *testing.T, srv *httptest.Server, creds *config.CredentialsOptions) *Client {
	t.Helper()
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	cfg := &config.AppenderConfig{
		Region:           "us-east-1",
		Endpoint:         srv.URL,
		RequestTimeoutMS: 2000,
		Credentials:      creds,
	}
	c, err := NewClient(cfg, log.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewClient(t *testing.T) {
	t.Run("RejectsBadScheme", func(t *testing.T) {
		cfg := &config.AppenderConfig{Region: "us-east-1", Endpoint: "ftp://example"}
		_, err := NewClient(cfg, log.NewLogger())
		assert.Error(t, err)
	})

	t.Run("NilConfig", func(t *testing.T) {
		_, err := NewClient(nil, log.NewLogger())
		assert.Error(t, err)
	})
}

func TestClient_DescribeGroup(t *testing.T) {
	fake := &fakeLogsServer{handlers: map[string]func(http.ResponseWriter, map[string]any){
		"DescribeLogGroups": func(w http.ResponseWriter, body map[string]any) {
			if body["nextToken"] == nil {
				writeJSON(w, 200, `{"logGroups":[{"logGroupName":"app-extra"}],"nextToken":"p2"}`)
				return
			}
			writeJSON(w, 200, `{"logGroups":[{"logGroupName":"app"}]}`)
		},
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	found, err := c.DescribeGroup(context.Background(), "app")
	require.NoError(t, err)
	assert.True(t, found)

	calls := fake.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "Logs_20140328.DescribeLogGroups", calls[0].target)
	assert.Equal(t, "app", calls[0].body["logGroupNamePrefix"])
	assert.Equal(t, "p2", calls[1].body["nextToken"])
	assert.Empty(t, calls[0].auth)
}

func TestClient_DescribeStream(t *testing.T) {
	fake := &fakeLogsServer{handlers: map[string]func(http.ResponseWriter, map[string]any){
		"DescribeLogStreams": func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, 200, `{"logStreams":[
				{"logStreamName":"web-1-old"},
				{"logStreamName":"web-1","uploadSequenceToken":"tok-9"}]}`)
		},
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv, nil)

	s, err := c.DescribeStream(context.Background(), "app", "web-1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "web-1", s.Name)
	require.NotNil(t, s.UploadSequenceToken)
	assert.Equal(t, "tok-9", *s.UploadSequenceToken)

	missing, err := c.DescribeStream(context.Background(), "app", "web-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClient_PutBatch(t *testing.T) {
	t.Run("OmitsNilToken", func(t *testing.T) {
		fake := &fakeLogsServer{handlers: map[string]func(http.ResponseWriter, map[string]any){
			"PutLogEvents": func(w http.ResponseWriter, body map[string]any) {
				writeJSON(w, 200, `{"nextSequenceToken":"next-1"}`)
			},
		}}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		c := newTestClient(t, srv, nil)
		ts := int64(1700000000000)
		next, err := c.PutBatch(context.Background(), "g", "s", nil, []InputEvent{
			{Timestamp: &ts, Message: "hello"},
			{Message: "no time"},
		})
		require.NoError(t, err)
		assert.Equal(t, "next-1", next)

		calls := fake.recorded()
		require.Len(t, calls, 1)
		_, hasToken := calls[0].body["sequenceToken"]
		assert.False(t, hasToken)

		events := calls[0].body["logEvents"].([]any)
		require.Len(t, events, 2)
		_, hasTS := events[1].(map[string]any)["timestamp"]
		assert.False(t, hasTS)
	})

	t.Run("InvalidSequenceToken", func(t *testing.T) {
		fake := &fakeLogsServer{handlers: map[string]func(http.ResponseWriter, map[string]any){
			"PutLogEvents": func(w http.ResponseWriter, body map[string]any) {
				writeJSON(w, 400, `{"__type":"com.amazonaws.logs#InvalidSequenceTokenException",
					"message":"stale","expectedSequenceToken":"want-2"}`)
			},
		}}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		c := newTestClient(t, srv, nil)
		token := "old"
		_, err := c.PutBatch(context.Background(), "g", "s", &token, []InputEvent{{Message: "x"}})
		require.Error(t, err)

		var stale *InvalidSequenceTokenError
		require.True(t, errors.As(err, &stale))
		require.NotNil(t, stale.Expected)
		assert.Equal(t, "want-2", *stale.Expected)
		assert.Equal(t, "InvalidSequenceTokenException", stale.Err.Type)
		assert.Equal(t, "old", fake.recorded()[0].body["sequenceToken"])
	})

	t.Run("DataAlreadyAccepted", func(t *testing.T) {
		fake := &fakeLogsServer{handlers: map[string]func(http.ResponseWriter, map[string]any){
			"PutLogEvents": func(w http.ResponseWriter, body map[string]any) {
				writeJSON(w, 400, `{"__type":"DataAlreadyAcceptedException","expectedSequenceToken":"t3"}`)
			},
		}}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		c := newTestClient(t, srv, nil)
		_, err := c.PutBatch(context.Background(), "g", "s", nil, []InputEvent{{Message: "x"}})

		var dup *DataAlreadyAcceptedError
		require.True(t, errors.As(err, &dup))
		assert.Equal(t, "t3", *dup.Expected)
	})

	t.Run("GenericFailure", func(t *testing.T) {
		fake := &fakeLogsServer{handlers: map[string]func(http.ResponseWriter, map[string]any){
			"PutLogEvents": func(w http.ResponseWriter, body map[string]any) {
				writeJSON(w, 500, `{"__type":"ServiceUnavailableException","Message":"busy"}`)
			},
		}}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		c := newTestClient(t, srv, nil)
		_, err := c.PutBatch(context.Background(), "g", "s", nil, []InputEvent{{Message: "x"}})

		var svcErr *ServiceError
		require.True(t, errors.As(err, &svcErr))
		assert.Equal(t, 500, svcErr.StatusCode)
		assert.Equal(t, "busy", svcErr.Message)
	})
}

func TestClient_CreateAlreadyExists(t *testing.T) {
	fake := &fakeLogsServer{handlers: map[string]func(http.ResponseWriter, map[string]any){
		"CreateLogGroup": func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, 400, `{"__type":"ResourceAlreadyExistsException"}`)
		},
		"CreateLogStream": func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, 200, `{}`)
		},
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv, nil)

	err := c.CreateGroup(context.Background(), "app")
	var exists *ResourceAlreadyExistsError
	assert.True(t, errors.As(err, &exists))

	assert.NoError(t, c.CreateStream(context.Background(), "app", "web-1"))
}

func TestClient_SignsWithCredentials(t *testing.T) {
	fake := &fakeLogsServer{handlers: map[string]func(http.ResponseWriter, map[string]any){
		"CreateLogGroup": func(w http.ResponseWriter, body map[string]any) {
			writeJSON(w, 200, `{}`)
		},
	}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newTestClient(t, srv, &config.CredentialsOptions{
		AccessKeyID: "AKIDEXAMPLE",
		SecretKey:   "secret",
	})
	require.NoError(t, c.CreateGroup(context.Background(), "app"))

	calls := fake.recorded()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0].auth, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/"))
	assert.Contains(t, calls[0].auth, "/us-east-1/logs/aws4_request")
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(&fakeLogsServer{})
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.DescribeGroup(ctx, "app")
	assert.ErrorIs(t, err, context.Canceled)
}
