package grpc

import (
	"bytes"
	"context"
	"testing"

	"github.com/dmitrijs2005/securecloud/internal/logging"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func newLoggedServer(buf *bytes.Buffer) *HealthServer {
	return NewHealthServer("", logging.NewJSON(buf, "debug"), &fakePinger{}, 0)
}

func TestInterceptor_PassesThroughAndLogs(t *testing.T) {
	var buf bytes.Buffer
	s := newLoggedServer(&buf)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(requestIDHeader, "req-42"))
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handlerCalled := false

	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.loggingInterceptor(ctx, nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	assert.Equal(t, "ok", resp)

	out := buf.String()
	assert.Contains(t, out, `"method":"/grpc.health.v1.Health/Check"`)
	assert.Contains(t, out, `"code":"OK"`)
	assert.Contains(t, out, `"request_id":"req-42"`)
}

func TestInterceptor_KeepsHandlerError(t *testing.T) {
	var buf bytes.Buffer
	s := newLoggedServer(&buf)

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	}

	resp, err := s.loggingInterceptor(context.Background(), nil, info, h)
	assert.Nil(t, resp)
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Contains(t, buf.String(), `"code":"NotFound"`)
}
