package dataprov

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sylva-labs/algorun/internal/testutil"
)

func TestOrderDataset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/order", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gauge-2025", body["dataset"])
		assert.Equal(t, "secret", body["token"])

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "ws-123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", testutil.NewTestLogger(t))
	ws, err := c.OrderDataset(context.Background(), "gauge-2025")
	require.NoError(t, err)
	assert.Equal(t, "ws-123", ws)
}

func TestOrderDataset_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", testutil.NewTestLogger(t))
	_, err := c.OrderDataset(context.Background(), "gauge-2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestOrderDataset_NoWorkspaceID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", testutil.NewTestLogger(t))
	_, err := c.OrderDataset(context.Background(), "gauge-2025")
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		want       Availability
		wantErr    bool
		expiredErr bool
	}{
		{name: "provided", status: "provided", want: Ready},
		{name: "pending is not an error", status: "pending", want: NotReady},
		{name: "unknown status is pending", status: "whatever", want: NotReady},
		{name: "expired", status: "expired", want: NotReady, wantErr: true, expiredErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/status", r.URL.Path)
				assert.Equal(t, "ws-123", r.URL.Query().Get("workspaceId"))
				assert.Equal(t, "secret", r.URL.Query().Get("token"))
				_ = json.NewEncoder(w).Encode(map[string]string{"status": tt.status})
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "secret", testutil.NewTestLogger(t))
			avail, err := c.Check(context.Background(), "ws-123")
			if tt.wantErr {
				require.Error(t, err)
				if tt.expiredErr {
					assert.ErrorIs(t, err, ErrWorkspaceExpired)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, avail)
		})
	}
}

func TestCheck_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", testutil.NewTestLogger(t))
	_, err := c.Check(context.Background(), "ws-123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrWorkspaceExpired)
}
