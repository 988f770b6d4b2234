package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// A reply that streams past the non-streaming bound must not be severed.
func TestStreamOutlivesCompletionTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 5; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"chunk-%d \"}}]}\n\n", i)
			flusher.Flush()
			time.Sleep(30 * time.Millisecond)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client, err := NewClient("test-key", server.URL, "test-model")
	require.NoError(t, err)
	client.completionTimeout = 50 * time.Millisecond

	var deltas int
	result, err := client.Stream(context.Background(),
		CompletionRequest{Messages: []Message{{Role: "user", Content: "hi"}}},
		func(delta string) error {
			deltas++
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, 5, deltas)
	require.Contains(t, result.Content, "chunk-4")
}

func TestCompleteBoundedByTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"too late"}}]}`)
	}))
	defer server.Close()

	client, err := NewClient("test-key", server.URL, "test-model")
	require.NoError(t, err)
	client.completionTimeout = 50 * time.Millisecond

	_, err = client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	require.ErrorContains(t, err, "context deadline exceeded")
}
