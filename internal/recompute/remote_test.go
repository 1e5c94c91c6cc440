package recompute

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/hotscore/internal/instruments"
	"github.com/wonny/hotscore/internal/scoring"
	"github.com/wonny/hotscore/pkg/config"
	"github.com/wonny/hotscore/pkg/httputil"
	"github.com/wonny/hotscore/pkg/logger"
)

// engineServer exposes an in-memory engine through the recompute route
func engineServer(t *testing.T, engine *Engine) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, recomputePath, r.URL.Path)

		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Params == nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var after *string
		if req.ContinueFromID != "" {
			after = &req.ContinueFromID
		}
		result, err := engine.RunBatch(r.Context(), req.BatchSize, *req.Params, after)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(result)
	}))
}

func newRemote(url string) *RemoteDriver {
	client := httputil.New(config.ClientConfig{Timeout: 5 * time.Second}, logger.Nop()).WithRetry(1, time.Millisecond)
	return NewRemoteDriver(client, url+"/", nil)
}

func TestRemoteDriver_Sweep(t *testing.T) {
	store := instruments.NewMemoryStore()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		seedStore(t, store, id, 100, 120, 110)
	}
	srv := engineServer(t, newTestEngine(store))
	defer srv.Close()

	summary, err := newRemote(srv.URL).Sweep(context.Background(), 2, scoring.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Batches)
	assert.Equal(t, 5, summary.Processed)

	inst, err := store.Get(context.Background(), "e")
	require.NoError(t, err)
	assert.True(t, inst.HasScore())
}

func TestRemoteDriver_ServerRejects(t *testing.T) {
	srv := engineServer(t, newTestEngine(instruments.NewMemoryStore()))
	defer srv.Close()

	_, err := newRemote(srv.URL).RunBatch(context.Background(), 5000, scoring.DefaultParams(), nil)
	var statusErr *httputil.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}
