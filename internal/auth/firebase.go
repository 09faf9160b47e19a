package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"khata/internal/log"
)

const defaultEndpoint = "https://identitytoolkit.googleapis.com/v1"

// FirebaseClient authenticates against the Firebase Identity Toolkit REST
// API. There is no Go SDK for end-user password sign-in, so this client
// speaks the REST surface directly.
type FirebaseClient struct {
	session
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *log.Logger
}

type FirebaseOption func(*FirebaseClient)

// WithEndpoint overrides the Identity Toolkit base URL. Tests point this at a
// local server.
func WithEndpoint(endpoint string) FirebaseOption {
	return func(c *FirebaseClient) { c.endpoint = endpoint }
}

func WithHTTPClient(client *http.Client) FirebaseOption {
	return func(c *FirebaseClient) { c.client = client }
}

func NewFirebaseClient(apiKey string, logger *log.Logger, opts ...FirebaseOption) *FirebaseClient {
	c := &FirebaseClient{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.WithComponent(log.ComponentAuth),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *FirebaseClient) SignIn(ctx context.Context, email, password string) (Identity, error) {
	var resp signInResponse
	err := c.post(ctx, "accounts:signInWithPassword", signInRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		c.logger.WarnContext(ctx, "Sign in failed",
			log.FieldOperation, log.OpSignIn,
			log.FieldError, err)
		return Identity{}, err
	}

	id := Identity{UID: resp.LocalID, Email: resp.Email}
	c.set(id, true)

	c.logger.InfoContext(ctx, "Signed in",
		log.FieldOperation, log.OpSignIn,
		log.FieldIdentity, id.UID)
	return id, nil
}

func (c *FirebaseClient) SignOut() {
	c.set(Identity{}, false)
	c.logger.Info("Signed out", log.FieldOperation, log.OpSignOut)
}

func (c *FirebaseClient) CurrentIdentity() (Identity, bool) {
	return c.current()
}

func (c *FirebaseClient) OnIdentityChange(fn func(Identity, bool)) func() {
	return c.subscribe(fn)
}

func (c *FirebaseClient) SendPasswordReset(ctx context.Context, email string) error {
	req := map[string]string{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}
	if err := c.post(ctx, "accounts:sendOobCode", req, &struct{}{}); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Password reset email requested")
	return nil
}

func (c *FirebaseClient) post(ctx context.Context, method string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/%s?key=%s", c.endpoint, method, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return newAuthError(CodeNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error.Message == "" {
			return newAuthError(fmt.Sprintf("HTTP_%d", resp.StatusCode))
		}
		return newAuthError(apiErr.Error.Message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
