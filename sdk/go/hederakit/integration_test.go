package hederakit_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaycoolh/hedera-agent-kit/internal/api"
	"github.com/jaycoolh/hedera-agent-kit/internal/storage"
	"github.com/jaycoolh/hedera-agent-kit/internal/tools"
	"github.com/jaycoolh/hedera-agent-kit/internal/tools/toolstest"
	"github.com/jaycoolh/hedera-agent-kit/sdk/go/hederakit"
)

func TestClientAgainstAPIServer(t *testing.T) {
	journal, err := storage.NewMemoryJournal("")
	require.NoError(t, err)
	reg, _ := toolstest.NewRegistry(t, tools.WithRecorder(journal))
	srv := httptest.NewServer(api.NewServer(api.Options{Registry: reg, Calls: journal}).Handler())
	defer srv.Close()

	client, err := hederakit.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)
	ctx := context.Background()

	list, err := client.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, list, 9)

	env, err := client.InvokeTool(ctx, tools.NameCreateTopic, json.RawMessage(`{"topicMemo":"sdk"}`))
	require.NoError(t, err)
	require.True(t, env.OK())
	var created struct {
		TopicID string `json:"topicId"`
	}
	require.NoError(t, env.Decode(&created))
	require.Equal(t, "0.0.1001", created.TopicID)

	_, err = client.InvokeTool(ctx, "hedera_unknown", nil)
	var apiErr *hederakit.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "TOOL_NOT_FOUND", apiErr.Code)

	calls, err := client.ListCalls(ctx, 5)
	require.NoError(t, err)
	require.Len(t, calls, 2)

	_, err = client.SubmitJob(ctx, hederakit.JobSubmission{Tool: tools.NameGetHbarBalance})
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 503, apiErr.StatusCode)
}
