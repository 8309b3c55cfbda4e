package auth

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readerPrompter(in string, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(strings.NewReader(in)), out: out}
}

// tokenServer fakes the identity provider's token endpoint and records the
// last form it received.
func tokenServer(t *testing.T, status int) (*httptest.Server, *url.Values) {
	t.Helper()
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"token_type":   "bearer",
			"expires_in":   300,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &form
}

func TestPasswordGrant_Header(t *testing.T) {
	srv, form := tokenServer(t, http.StatusOK)

	g := PasswordGrant{TokenURL: srv.URL + "/token"}
	h, err := g.Header(context.Background(), Credentials{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", h.Get("Authorization"))

	assert.Equal(t, "password", form.Get("grant_type"))
	assert.Equal(t, "alice", form.Get("username"))
	assert.Equal(t, "s3cret", form.Get("password"))
	assert.Equal(t, DefaultClientID, form.Get("client_id"))
	assert.Equal(t, DefaultScope, form.Get("scope"))
}

func TestPasswordGrant_CustomClient(t *testing.T) {
	srv, form := tokenServer(t, http.StatusOK)

	g := PasswordGrant{
		TokenURL:   srv.URL,
		ClientID:   "other",
		Scopes:     []string{"openid", "profile"},
		HTTPClient: srv.Client(),
	}
	_, err := g.Token(context.Background(), Credentials{Username: "a", Password: "b"})
	require.NoError(t, err)
	assert.Equal(t, "other", form.Get("client_id"))
	assert.Equal(t, "openid profile", form.Get("scope"))
}

func TestPasswordGrant_Errors(t *testing.T) {
	rejecting, _ := tokenServer(t, http.StatusUnauthorized)

	tests := []struct {
		name  string
		grant PasswordGrant
		creds Credentials
		want  string
	}{
		{name: "no token url", creds: Credentials{Username: "a", Password: "b"}, want: "token URL is required"},
		{name: "no password", grant: PasswordGrant{TokenURL: rejecting.URL}, creds: Credentials{Username: "a"}, want: ErrMissingCredentials.Error()},
		{name: "rejected", grant: PasswordGrant{TokenURL: rejecting.URL}, creds: Credentials{Username: "a", Password: "b"}, want: "failed to obtain access token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.grant.Header(context.Background(), tt.creds)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPrompter_Complete(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		creds      Credentials
		want       Credentials
		wantPrompt string
		wantErr    bool
	}{
		{
			name:       "asks for both",
			input:      "alice\ns3cret\n",
			want:       Credentials{Username: "alice", Password: "s3cret"},
			wantPrompt: "Username: Password: ",
		},
		{
			name:       "only password",
			input:      "s3cret\r\n",
			creds:      Credentials{Username: "bob"},
			want:       Credentials{Username: "bob", Password: "s3cret"},
			wantPrompt: "Password: ",
		},
		{
			name:       "last line without newline",
			input:      "s3cret",
			creds:      Credentials{Username: "bob"},
			want:       Credentials{Username: "bob", Password: "s3cret"},
			wantPrompt: "Password: ",
		},
		{
			name:    "input exhausted",
			input:   "alice\n",
			wantErr: true,
		},
		{
			name:    "empty answer",
			input:   "\n\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := readerPrompter(tt.input, &out).Complete(tt.creds)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPrompt, out.String())
		})
	}
}

func TestResolve(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusOK)
	grant := PasswordGrant{TokenURL: srv.URL}

	t.Run("bypass", func(t *testing.T) {
		h, err := Resolve(context.Background(), Options{Bypass: true})
		require.NoError(t, err)
		assert.Empty(t, h)
	})

	t.Run("configured credentials", func(t *testing.T) {
		h, err := Resolve(context.Background(), Options{Grant: grant, Credentials: Credentials{Username: "a", Password: "b"}})
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok-123", h.Get("Authorization"))
	})

	t.Run("prompted credentials", func(t *testing.T) {
		var out bytes.Buffer
		h, err := Resolve(context.Background(), Options{
			Grant:       grant,
			Credentials: Credentials{Username: "a"},
			Prompter:    readerPrompter("b\n", &out),
		})
		require.NoError(t, err)
		assert.Equal(t, "Bearer tok-123", h.Get("Authorization"))
	})

	t.Run("missing without prompter", func(t *testing.T) {
		_, err := Resolve(context.Background(), Options{Grant: grant})
		assert.True(t, errors.Is(err, ErrMissingCredentials))
	})
}
