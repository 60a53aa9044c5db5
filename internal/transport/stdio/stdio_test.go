package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_DispatchesRequestAndWritesResponse(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"health","params":{}}` + "\n")
	var out bytes.Buffer

	handle := func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
		assert.Equal(t, "health", method)
		return map[string]string{"status": "ok"}, nil
	}

	srv := NewServer(in, &out, handle)
	err := srv.Run(context.Background())
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
}

func TestServer_TranslatesHandlerErrorToRPCError(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"boom","params":{}}` + "\n")
	var out bytes.Buffer

	handle := func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
		return nil, assertErr("handler failed")
	}

	srv := NewServer(in, &out, handle)
	require.NoError(t, srv.Run(context.Background()))

	var resp Response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "handler failed", resp.Error.Message)
}

func TestServer_SkipsMalformedLinesWithoutFailing(t *testing.T) {
	in := strings.NewReader("not json\n" + `{"jsonrpc":"2.0","id":3,"method":"health","params":{}}` + "\n")
	var out bytes.Buffer

	handle := func(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
		return "ok", nil
	}

	srv := NewServer(in, &out, handle)
	require.NoError(t, srv.Run(context.Background()))
	assert.Contains(t, out.String(), `"ok"`)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
