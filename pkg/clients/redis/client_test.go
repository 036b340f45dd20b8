package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

// ===========================================================================
// Mock Implementation
// ===========================================================================

type mockCmdable struct {
	mock.Mock
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*redis.IntCmd)
}

func (m *mockCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	args := m.Called(ctx)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *mockCmdable) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ Cmdable = (*mockCmdable)(nil)

// ===========================================================================
// Command Helpers
// ===========================================================================

func newStatusCmd(val string, err error) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func newStringCmd(val string, err error) *redis.StringCmd {
	cmd := redis.NewStringCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

func newIntCmd(val int64, err error) *redis.IntCmd {
	cmd := redis.NewIntCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

// newTracedClient returns a client whose spans land in the returned
// recorder.
func newTracedClient(m *mockCmdable) (*Client, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	client := NewFromClient(m, &Config{DB: 2})
	client.tracer = tp.Tracer(tracerName)
	return client, rec
}

// ===========================================================================
// Constructor Tests
// ===========================================================================

func TestNewFromClient(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)

	client := NewFromClient(m, &Config{DB: 3})
	assert.Equal(t, 3, client.dbIndex)
	assert.NotNil(t, client.tracer)

	client = NewFromClient(m, nil)
	assert.Equal(t, 0, client.dbIndex)
}

func TestNewClient_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), Config{URI: "http://localhost:6379"})
	require.Error(t, err)
	assert.True(t, pserr.HasCode(err, pserr.CodeValidation))
}

// ===========================================================================
// Get / Set Tests
// ===========================================================================

func TestClient_Get_Success(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Get", mock.Anything, "public_key").Return(newStringCmd("PEM", nil))

	client := NewFromClient(m, nil)
	val, err := client.Get(context.Background(), "public_key")
	require.NoError(t, err)
	assert.Equal(t, "PEM", val)

	m.AssertExpectations(t)
}

func TestClient_Get_Miss(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Get", mock.Anything, "missing").Return(newStringCmd("", redis.Nil))

	client, rec := newTracedClient(m)
	_, err := client.Get(context.Background(), "missing")
	require.Error(t, err)

	assert.True(t, errors.Is(err, Nil))
	assert.True(t, pserr.IsNotFound(err))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, otelcodes.Ok, spans[0].Status().Code)
}

func TestClient_Get_Error(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Get", mock.Anything, "k").Return(newStringCmd("", errors.New("LOADING")))

	client, rec := newTracedClient(m)
	_, err := client.Get(context.Background(), "k")

	assert.True(t, pserr.HasCode(err, pserr.CodeInternalCache))
	assert.False(t, errors.Is(err, Nil))
	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, otelcodes.Error, rec.Ended()[0].Status().Code)
}

func TestClient_Set_Success(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Set", mock.Anything, "access_token:abc", "OK", time.Minute).
		Return(newStatusCmd("OK", nil))

	client := NewFromClient(m, nil)
	require.NoError(t, client.Set(context.Background(), "access_token:abc", "OK", time.Minute))

	m.AssertExpectations(t)
}

func TestClient_Set_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code pserr.Code
	}{
		{"internal", errors.New("READONLY You can't write against a read only replica"), pserr.CodeInternalCache},
		{"timeout", context.DeadlineExceeded, pserr.CodeTimeoutCache},
		{"canceled", context.Canceled, pserr.CodeInternalCache},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := new(mockCmdable)
			m.On("Set", mock.Anything, "k", "v", time.Duration(0)).Return(newStatusCmd("", tt.err))

			client := NewFromClient(m, nil)
			err := client.Set(context.Background(), "k", "v", 0)

			var pe *pserr.Error
			require.True(t, errors.As(err, &pe), "Set() error type = %T, want *pserr.Error", err)
			assert.Equal(t, tt.code, pe.Code)
		})
	}
}

// ===========================================================================
// Del Tests
// ===========================================================================

func TestClient_Del(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Del", mock.Anything, []string{"a", "b"}).Return(newIntCmd(1, nil))

	client := NewFromClient(m, nil)
	n, err := client.Del(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClient_Del_Error(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Del", mock.Anything, []string{"k"}).Return(newIntCmd(0, context.DeadlineExceeded)).Once()
	m.On("Del", mock.Anything, []string{"k"}).Return(newIntCmd(0, errors.New("connection reset"))).Once()

	client := NewFromClient(m, nil)
	_, err := client.Del(context.Background(), "k")
	assert.True(t, pserr.HasCode(err, pserr.CodeTimeoutCache))

	_, err = client.Del(context.Background(), "k")
	assert.True(t, pserr.HasCode(err, pserr.CodeInternalCache))
	m.AssertExpectations(t)
}

// ===========================================================================
// Health / Close Tests
// ===========================================================================

func TestClient_Health(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Ping", mock.Anything).Return(newStatusCmd("PONG", nil)).Once()
	m.On("Ping", mock.Anything).Return(newStatusCmd("", errors.New("connection refused"))).Once()

	client := NewFromClient(m, nil)
	require.NoError(t, client.Health(context.Background()))

	err := client.Health(context.Background())
	assert.True(t, pserr.HasCode(err, pserr.CodeUnavailableDependency))
	m.AssertExpectations(t)
}

func TestClient_Close(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Close").Return(nil)

	require.NoError(t, NewFromClient(m, nil).Close())
	m.AssertExpectations(t)
}

// ===========================================================================
// Span Tests
// ===========================================================================

func TestClient_SpanAttributes(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Set", mock.Anything, mock.Anything, "OK", time.Minute).Return(newStatusCmd("OK", nil))

	client, rec := newTracedClient(m)
	longKey := "access_token:eyJhbGciOiJSUzI1NiJ9.eyJzdWIiOiJjbGllbnQtaWQiLCJzY29wZXMiOlsic3UiXX0.signature"
	require.NoError(t, client.Set(context.Background(), longKey, "OK", time.Minute))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "redis.Set", spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "redis", attrs["db.system"])
	assert.Equal(t, "2", attrs["db.redis.database_index"])
	assert.LessOrEqual(t, len([]rune(attrs["db.statement"])), maxStatementTruncateLen+3)
}
