package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const placeholder = "YOUR_EC2_PUBLIC_IP"

// newMetadataServer emulates IMDSv2: a session token from PUT, then the public-ipv4 category.
func newMetadataServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/latest/api/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("X-Aws-Ec2-Metadata-Token-Ttl-Seconds", "21600")
		fmt.Fprint(w, "test-token")
	})
	mux.HandleFunc("/latest/meta-data/public-ipv4", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Aws-Ec2-Metadata-Token") != "test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestIMDSResolver_PublicAddress(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr string
	}{
		{name: "public address", status: http.StatusOK, body: "54.210.167.204", want: "54.210.167.204"},
		{name: "trailing newline", status: http.StatusOK, body: "3.91.12.7\n", want: "3.91.12.7"},
		{name: "no public address assigned", status: http.StatusNotFound, body: "Not Found", wantErr: "metadata request failed"},
		{name: "garbage", status: http.StatusOK, body: "<html>captive portal</html>", wantErr: "not an IPv4 address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newMetadataServer(t, tt.status, tt.body)

			addr, err := NewIMDSResolver(server.URL).PublicAddress(context.Background())

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, addr)
		})
	}
}

type stubResolver struct {
	addr  string
	err   error
	delay time.Duration
}

func (s stubResolver) PublicAddress(ctx context.Context) (string, error) {
	select {
	case <-time.After(s.delay):
		return s.addr, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestDiscover(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		addr, err := Discover(context.Background(), stubResolver{addr: "54.1.2.3"}, time.Second, placeholder)
		require.NoError(t, err)
		assert.Equal(t, "54.1.2.3", addr)
	})

	t.Run("lookup error uses placeholder", func(t *testing.T) {
		addr, err := Discover(context.Background(), stubResolver{err: errors.New("connection refused")}, time.Second, placeholder)
		assert.Error(t, err)
		assert.Equal(t, placeholder, addr)
	})

	t.Run("slow lookup is cut off", func(t *testing.T) {
		start := time.Now()
		addr, err := Discover(context.Background(), stubResolver{addr: "54.1.2.3", delay: time.Minute}, 20*time.Millisecond, placeholder)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, placeholder, addr)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("unreachable endpoint uses placeholder", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		addr, err := Discover(context.Background(), NewIMDSResolver(url), 2*time.Second, placeholder)
		assert.Error(t, err)
		assert.Equal(t, placeholder, addr)
	})
}
