package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/jaycoolh/hedera-agent-kit/internal/tools"
	"github.com/jaycoolh/hedera-agent-kit/internal/tools/toolstest"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	reg, _ := toolstest.NewRegistry(t)
	server, err := New(reg, "test")
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func textOf(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestToolsAreListedWithSchemas(t *testing.T) {
	session := connect(t)
	listed, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, listed.Tools, 9)

	names := make(map[string]bool)
	for _, tool := range listed.Tools {
		names[tool.Name] = true
		require.NotEmpty(t, tool.Description)
		require.NotNil(t, tool.InputSchema)
	}
	require.True(t, names[tools.NameAirdropToken])
	require.True(t, names[tools.NameQueryTopic])
}

func TestCallToolReturnsEnvelope(t *testing.T) {
	session := connect(t)
	ctx := context.Background()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tools.NameCreateTopic,
		Arguments: map[string]any{"topicMemo": "agents"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	out := textOf(t, res)
	require.Equal(t, "success", out["status"])
	require.Equal(t, "0.0.1001", out["topicId"])

	res, err = session.CallTool(ctx, &mcp.CallToolParams{Name: tools.NameGetHbarBalance})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.EqualValues(t, 100, textOf(t, res)["balance"])
}

func TestFailedCallSetsIsError(t *testing.T) {
	session := connect(t)
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      tools.NameTransferToken,
		Arguments: map[string]any{"tokenId": "0.0.5", "toAccountId": "0.0.6", "amount": 0},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)
	out := textOf(t, res)
	require.Equal(t, "error", out["status"])
	require.Equal(t, "INVALID_INPUT", out["code"])
}

func TestNewRequiresCatalog(t *testing.T) {
	_, err := New(nil, "")
	require.Error(t, err)
}
