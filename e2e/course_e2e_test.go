//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

const defaultHTTPBase = "http://localhost:8080"

type httpClient struct {
	baseURL string
	client  *http.Client
}

func newHTTPClient() *httpClient {
	return &httpClient{
		baseURL: envOr("COURSE_HTTP_URL", defaultHTTPBase),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (c *httpClient) do(t *testing.T, method, path, accessToken string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		t.Fatalf("new request failed: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("http request failed: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response failed: %v", err)
	}
	return resp, bodyBytes
}

func (c *httpClient) postJSON(t *testing.T, path string, body any) (*http.Response, []byte) {
	return c.do(t, http.MethodPost, path, "", body)
}

func waitForHTTP(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("http service not ready at %s", baseURL)
}

func login(t *testing.T, client *httpClient, email, password string) (int, string) {
	t.Helper()

	resp, body := client.postJSON(t, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	var res struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(body, &res)
	return resp.StatusCode, res.Token
}

func TestCourseE2E_HTTPFlow(t *testing.T) {
	client := newHTTPClient()
	if err := waitForHTTP(client.baseURL, 30*time.Second); err != nil {
		t.Fatalf("http not ready: %v", err)
	}

	state := struct {
		email       string
		password    string
		userID      uint64
		accessToken string
	}{
		email:    fmt.Sprintf("e2e+%d@example.com", time.Now().UnixNano()),
		password: "StrongPass1!",
	}

	abort := false
	fail := func(t *testing.T, format string, args ...any) {
		abort = true
		t.Fatalf(format, args...)
	}

	step := func(name string, fn func(t *testing.T)) {
		t.Run(name, func(t *testing.T) {
			if abort {
				t.Skip("previous step failed")
			}
			fn(t)
		})
	}

	step("LoginBeforeRegister", func(t *testing.T) {
		if status, _ := login(t, client, state.email, state.password); status != http.StatusUnauthorized {
			fail(t, "expected login before register to fail, got %d", status)
		}
	})

	step("Register", func(t *testing.T) {
		resp, body := client.postJSON(t, "/auth/register", map[string]string{
			"email":      state.email,
			"password":   state.password,
			"first_name": "E2E",
			"last_name":  "User",
		})
		if resp.StatusCode != http.StatusCreated {
			fail(t, "register status: %d body: %s", resp.StatusCode, string(body))
		}

		var regRes struct {
			User struct {
				ID        uint64 `json:"id"`
				HasAccess bool   `json:"has_access"`
			} `json:"user"`
		}
		if err := json.Unmarshal(body, &regRes); err != nil {
			fail(t, "register unmarshal failed: %v", err)
		}
		if regRes.User.ID == 0 || regRes.User.HasAccess {
			fail(t, "unexpected registered user: %s", string(body))
		}
		state.userID = regRes.User.ID
	})

	step("RegisterWeakPassword", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/auth/register", map[string]string{
			"email":    "weak-" + state.email,
			"password": "a",
		})
		if resp.StatusCode != http.StatusBadRequest {
			fail(t, "expected weak password register to fail, got %d", resp.StatusCode)
		}
	})

	step("RegisterDuplicate", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/auth/register", map[string]string{
			"email":    state.email,
			"password": state.password,
		})
		if resp.StatusCode != http.StatusConflict {
			fail(t, "expected duplicate register conflict, got %d", resp.StatusCode)
		}
	})

	step("Login", func(t *testing.T) {
		status, token := login(t, client, state.email, state.password)
		if status == http.StatusForbidden {
			t.Skip("server requires confirmed email")
		}
		if status != http.StatusOK || token == "" {
			fail(t, "login status: %d", status)
		}
		state.accessToken = token
	})

	step("Profile", func(t *testing.T) {
		if state.accessToken == "" {
			t.Skip("no access token")
		}
		resp, body := client.do(t, http.MethodGet, "/auth/profile", state.accessToken, nil)
		if resp.StatusCode != http.StatusOK {
			fail(t, "profile status: %d body: %s", resp.StatusCode, string(body))
		}
	})

	step("ProfileWithoutToken", func(t *testing.T) {
		resp, _ := client.do(t, http.MethodGet, "/auth/profile", "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			fail(t, "expected 401 without token, got %d", resp.StatusCode)
		}
	})

	step("CheckAccessBeforePurchase", func(t *testing.T) {
		if state.accessToken == "" {
			t.Skip("no access token")
		}
		resp, body := client.do(t, http.MethodGet, "/course/check-access", state.accessToken, nil)
		if resp.StatusCode != http.StatusOK {
			fail(t, "check access status: %d body: %s", resp.StatusCode, string(body))
		}
		var res struct {
			HasAccess bool `json:"has_access"`
		}
		if err := json.Unmarshal(body, &res); err != nil || res.HasAccess {
			fail(t, "expected no access before purchase: %s", string(body))
		}
	})

	step("ContentForbiddenBeforePurchase", func(t *testing.T) {
		if state.accessToken == "" {
			t.Skip("no access token")
		}
		resp, _ := client.do(t, http.MethodGet, "/course/content", state.accessToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			fail(t, "expected 403 for content, got %d", resp.StatusCode)
		}
	})

	step("AdminEndpointsForbidden", func(t *testing.T) {
		if state.accessToken == "" {
			t.Skip("no access token")
		}
		resp, _ := client.do(t, http.MethodGet, "/admin/users", state.accessToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			fail(t, "expected 403 for admin users, got %d", resp.StatusCode)
		}
	})

	step("PaymentConfig", func(t *testing.T) {
		resp, body := client.do(t, http.MethodGet, "/payments/config", "", nil)
		if resp.StatusCode != http.StatusOK {
			fail(t, "payment config status: %d body: %s", resp.StatusCode, string(body))
		}
	})

	step("WebhookIgnoresOtherTopics", func(t *testing.T) {
		resp, body := client.postJSON(t, "/payments/webhook", map[string]any{
			"type": "merchant_order",
			"data": map[string]string{"id": "1"},
		})
		if resp.StatusCode != http.StatusOK {
			fail(t, "webhook status: %d body: %s", resp.StatusCode, string(body))
		}
	})

	step("ForgotPasswordUnknownEmail", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/auth/forgot-password", map[string]string{
			"email": "missing-" + state.email,
		})
		if resp.StatusCode != http.StatusOK {
			fail(t, "expected forgot password to answer 200, got %d", resp.StatusCode)
		}
	})

	step("ResetPasswordInvalidToken", func(t *testing.T) {
		resp, _ := client.postJSON(t, "/auth/reset-password", map[string]string{
			"token":    "not-a-token",
			"password": "AnotherPass1!",
		})
		if resp.StatusCode != http.StatusBadRequest {
			fail(t, "expected invalid reset token to fail, got %d", resp.StatusCode)
		}
	})

	step("AdminGrantsAccess", func(t *testing.T) {
		adminEmail, adminPassword := os.Getenv("COURSE_ADMIN_EMAIL"), os.Getenv("COURSE_ADMIN_PASSWORD")
		if adminEmail == "" || adminPassword == "" || state.accessToken == "" {
			t.Skip("COURSE_ADMIN_EMAIL/COURSE_ADMIN_PASSWORD not set")
		}

		status, adminToken := login(t, client, adminEmail, adminPassword)
		if status != http.StatusOK {
			fail(t, "admin login status: %d", status)
		}

		resp, body := client.do(t, http.MethodPost, "/admin/grant-access-user", adminToken, map[string]uint64{"user_id": state.userID})
		if resp.StatusCode != http.StatusOK {
			fail(t, "grant access status: %d body: %s", resp.StatusCode, string(body))
		}

		resp, body = client.do(t, http.MethodGet, "/course/content", state.accessToken, nil)
		if resp.StatusCode != http.StatusOK {
			fail(t, "content after grant status: %d body: %s", resp.StatusCode, string(body))
		}

		resp, _ = client.do(t, http.MethodPost, "/admin/revoke-access-user", adminToken, map[string]uint64{"user_id": state.userID})
		if resp.StatusCode != http.StatusOK {
			fail(t, "revoke access status: %d", resp.StatusCode)
		}

		resp, _ = client.do(t, http.MethodGet, "/course/content", state.accessToken, nil)
		if resp.StatusCode != http.StatusForbidden {
			fail(t, "expected 403 after revoke, got %d", resp.StatusCode)
		}
	})
}
