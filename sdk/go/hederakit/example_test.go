package hederakit_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	hederakit "github.com/jaycoolh/hedera-agent-kit/sdk/go/hederakit"
)

func ExampleClient_InvokeTool() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tools/hedera_get_hbar_balance", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","balance":42.5,"unit":"HBAR"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := hederakit.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	env, err := client.InvokeTool(ctx, "hedera_get_hbar_balance", nil)
	if err != nil {
		panic(err)
	}
	var out struct {
		Balance float64 `json:"balance"`
	}
	if err := env.Decode(&out); err != nil {
		panic(err)
	}
	fmt.Printf("status=%s balance=%.1f\n", env.Status, out.Balance)
	// Output: status=success balance=42.5
}

func ExampleClient_WaitForJob() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(hederakit.Job{ID: "job-demo", Tool: "hedera_create_topic", Status: "pending"})
	})
	mux.HandleFunc("/api/v1/jobs/job-demo", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(hederakit.Job{
			ID:     "job-demo",
			Tool:   "hedera_create_topic",
			Status: "succeeded",
			Output: json.RawMessage(`{"status":"success","topicId":"0.0.5005"}`),
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := hederakit.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := client.SubmitJob(ctx, hederakit.JobSubmission{
		Tool:  "hedera_create_topic",
		Input: json.RawMessage(`{"topicMemo":"demo"}`),
	})
	if err != nil {
		panic(err)
	}
	job, err = client.WaitForJob(ctx, job.ID, 10*time.Millisecond)
	if err != nil {
		panic(err)
	}
	fmt.Println(job.Status, string(job.Output))
	// Output: succeeded {"status":"success","topicId":"0.0.5005"}
}
