package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"khata/internal/log"
)

func newIdentityToolkit(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"message": "API_KEY_INVALID"},
			})
			return
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "accounts:signInWithPassword"):
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			fail := func(code string) {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]string{"message": code},
				})
			}
			switch {
			case req.Email == "unknown@example.com":
				fail("EMAIL_NOT_FOUND")
			case req.Email == "disabled@example.com":
				fail("USER_DISABLED")
			case req.Password != "hunter2":
				fail("INVALID_PASSWORD")
			default:
				json.NewEncoder(w).Encode(map[string]string{
					"localId": "uid-1",
					"email":   req.Email,
					"idToken": "token",
				})
			}
		case strings.HasSuffix(r.URL.Path, "accounts:sendOobCode"):
			json.NewEncoder(w).Encode(map[string]string{"email": "alice@example.com"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(t *testing.T) *FirebaseClient {
	t.Helper()
	srv := newIdentityToolkit(t)
	t.Cleanup(srv.Close)
	return NewFirebaseClient("test-key", log.New(log.DefaultConfig()), WithEndpoint(srv.URL))
}

func TestSignInSuccess(t *testing.T) {
	c := newTestClient(t)

	id, err := c.SignIn(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id.UID)
	assert.Equal(t, "alice@example.com", id.Email)

	current, ok := c.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, id, current)
}

func TestSignInErrorMapping(t *testing.T) {
	c := newTestClient(t)

	tests := []struct {
		name     string
		email    string
		password string
		code     string
		message  string
	}{
		{"unknown email", "unknown@example.com", "x", CodeEmailNotFound, "No account found with this email"},
		{"wrong password", "alice@example.com", "wrong", CodeInvalidPassword, "Incorrect password"},
		{"disabled account", "disabled@example.com", "hunter2", CodeUserDisabled, "This account has been disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.SignIn(context.Background(), tt.email, tt.password)
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.code, authErr.Code)
			assert.Equal(t, tt.message, authErr.Message)

			_, ok := c.CurrentIdentity()
			assert.False(t, ok, "failed sign-in must not set an identity")
		})
	}
}

func TestSignInNetworkError(t *testing.T) {
	srv := newIdentityToolkit(t)
	srv.Close() // refuse connections

	c := NewFirebaseClient("test-key", log.New(log.DefaultConfig()), WithEndpoint(srv.URL))
	_, err := c.SignIn(context.Background(), "alice@example.com", "hunter2")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, CodeNetwork, authErr.Code)
	assert.Equal(t, "Network error. Please check your connection", authErr.Message)
}

func TestIdentityChangeNotifications(t *testing.T) {
	c := newTestClient(t)

	var mu sync.Mutex
	var events []bool
	unsubscribe := c.OnIdentityChange(func(_ Identity, signedIn bool) {
		mu.Lock()
		events = append(events, signedIn)
		mu.Unlock()
	})

	_, err := c.SignIn(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)
	c.SignOut()

	unsubscribe()
	c.SignOut() // must not notify after unsubscribe

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, events)
}

func TestSignOutClearsIdentity(t *testing.T) {
	c := newTestClient(t)
	_, err := c.SignIn(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)

	c.SignOut()
	_, ok := c.CurrentIdentity()
	assert.False(t, ok)
}

func TestSendPasswordReset(t *testing.T) {
	c := newTestClient(t)
	assert.NoError(t, c.SendPasswordReset(context.Background(), "alice@example.com"))
}

func TestAuthErrorUnwrapsAsItself(t *testing.T) {
	err := newAuthError(CodeEmailNotFound)
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, authErr.Error(), CodeEmailNotFound)
}
