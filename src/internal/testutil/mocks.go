// FILE: logship/src/internal/testutil/mocks.go
package testutil

import (
	"context"
	"fmt"
	"sync"

	"logship/src/internal/core"
	"logship/src/internal/cwlogs"
	"logship/src/internal/sink"
)

// PutCall is one PutBatch invocation seen by MockLogService
type PutCall struct {
	Group  string
	Stream string
	Token  *string
	Events []cwlogs.InputEvent
}

// PutResult scripts the outcome of one PutBatch call
type PutResult struct {
	Next string
	Err  error
}

// MockLogService is an in-memory LogService. Scripted PutResults are
// consumed in order; once exhausted every put succeeds with a fresh token.
type MockLogService struct {
	mu sync.Mutex

	Groups  map[string]bool
	Streams map[string]*cwlogs.Stream // keyed by group + "/" + stream

	PutResults []PutResult
	Puts       []PutCall

	DescribeGroupErr  error
	CreateGroupErr    error
	DescribeStreamErr error
	CreateStreamErr   error

	CreatedGroups  []string
	CreatedStreams []string
	CloseCalls     int

	tokenSeq int
}

func NewMockLogService() *MockLogService {
	return &MockLogService{
		Groups:  make(map[string]bool),
		Streams: make(map[string]*cwlogs.Stream),
	}
}

func (m *MockLogService) DescribeGroup(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DescribeGroupErr != nil {
		return false, m.DescribeGroupErr
	}
	return m.Groups[name], nil
}

func (m *MockLogService) CreateGroup(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatedGroups = append(m.CreatedGroups, name)
	if m.CreateGroupErr != nil {
		return m.CreateGroupErr
	}
	m.Groups[name] = true
	return nil
}

func (m *MockLogService) DescribeStream(ctx context.Context, group, prefix string) (*cwlogs.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DescribeStreamErr != nil {
		return nil, m.DescribeStreamErr
	}
	s, ok := m.Streams[group+"/"+prefix]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}

func (m *MockLogService) CreateStream(ctx context.Context, group, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreatedStreams = append(m.CreatedStreams, name)
	if m.CreateStreamErr != nil {
		return m.CreateStreamErr
	}
	m.Streams[group+"/"+name] = &cwlogs.Stream{Name: name}
	return nil
}

func (m *MockLogService) PutBatch(ctx context.Context, group, stream string, token *string, events []cwlogs.InputEvent) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := PutCall{Group: group, Stream: stream, Events: append([]cwlogs.InputEvent(nil), events...)}
	if token != nil {
		t := *token
		call.Token = &t
	}
	m.Puts = append(m.Puts, call)

	if len(m.PutResults) > 0 {
		res := m.PutResults[0]
		m.PutResults = m.PutResults[1:]
		return res.Next, res.Err
	}

	m.tokenSeq++
	return fmt.Sprintf("token-%d", m.tokenSeq), nil
}

func (m *MockLogService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalls++
	return nil
}

// GetPuts returns a copy of the recorded puts
func (m *MockLogService) GetPuts() []PutCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PutCall(nil), m.Puts...)
}

// BatchSizes returns the event count of every recorded put
func (m *MockLogService) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, len(m.Puts))
	for i, p := range m.Puts {
		sizes[i] = len(p.Events)
	}
	return sizes
}

func (m *MockLogService) GetCloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CloseCalls
}

// MockFallback records every accepted record
type MockFallback struct {
	mu         sync.Mutex
	Records    []core.LogRecord
	StartCalls int
	StopCalls  int
	StartErr   error
	started    bool
	SinkName   string
}

func (m *MockFallback) Accept(rec core.LogRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
}

func (m *MockFallback) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StartCalls++
	if m.StartErr != nil {
		return m.StartErr
	}
	m.started = true
	return nil
}

func (m *MockFallback) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StopCalls++
	m.started = false
}

func (m *MockFallback) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *MockFallback) Name() string {
	if m.SinkName == "" {
		return "mock"
	}
	return m.SinkName
}

// GetStats reports every accepted record as processed
func (m *MockFallback) GetStats() sink.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sink.Stats{Type: m.Name(), TotalProcessed: uint64(len(m.Records))}
}

func (m *MockFallback) GetRecords() []core.LogRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.LogRecord(nil), m.Records...)
}

func (m *MockFallback) GetStartCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StartCalls
}

func (m *MockFallback) GetStopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.StopCalls
}

// MockIdentity implements both identity providers
type MockIdentity struct {
	ID        string
	IDErr     error
	TagValues map[string]string
	TagsErr   error
}

func (m *MockIdentity) InstanceID(ctx context.Context) (string, error) {
	return m.ID, m.IDErr
}

func (m *MockIdentity) Tags(ctx context.Context, instanceID string) (map[string]string, error) {
	return m.TagValues, m.TagsErr
}
