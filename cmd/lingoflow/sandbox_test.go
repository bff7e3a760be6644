package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/lingoflow/internal/adapters/logging"
	"github.com/felixgeelhaar/lingoflow/internal/sandbox"
)

func TestSandboxCommand_HasFlags(t *testing.T) {
	flags := sandboxCmd.Flags()

	addr := flags.Lookup("addr")
	require.NotNil(t, addr)
	assert.Equal(t, ":8787", addr.DefValue)

	otp := flags.Lookup("otp")
	require.NotNil(t, otp)
	assert.Empty(t, otp.DefValue)
}

func TestServeSandbox_StopsWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveSandbox(ctx, ln, sandbox.New(), logging.NewNopLogger())
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sandbox.APIVersion, resp.Header.Get("X-API-Version"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sandbox did not stop")
	}
}
