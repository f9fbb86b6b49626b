package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
)

// TestContext holds common test dependencies
type TestContext struct {
	DB       *sql.DB
	Mock     sqlmock.Sqlmock
	Echo     *echo.Echo
	Recorder *httptest.ResponseRecorder
}

// SetupTest creates a new test context with mocked database
func SetupTest(t *testing.T) *TestContext {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	e := echo.New()
	rec := httptest.NewRecorder()

	return &TestContext{
		DB:       db,
		Mock:     mock,
		Echo:     e,
		Recorder: rec,
	}
}

// Cleanup closes the database connection
func (tc *TestContext) Cleanup() {
	tc.DB.Close()
}

// NewJSONRequest creates a new HTTP request with JSON body
func NewJSONRequest(method, path string, body interface{}) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	} else {
		bodyReader = bytes.NewReader([]byte{})
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, nil
}

// newGETRequest creates a plain GET request
func newGETRequest(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

// errNoRows returns the sentinel the store layer maps to "not found"
func errNoRows() error {
	return sql.ErrNoRows
}

// ParseJSONResponse parses the response body as JSON
func ParseJSONResponse(rec *httptest.ResponseRecorder, v interface{}) error {
	return json.Unmarshal(rec.Body.Bytes(), v)
}

// AssertStatus checks if the response status code matches expected
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rec.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, rec.Code, rec.Body.String())
	}
}

// AssertJSONError checks if the response contains an error field with expected message
func AssertJSONError(t *testing.T, rec *httptest.ResponseRecorder, expectedError string) {
	t.Helper()
	var resp map[string]interface{}
	if err := ParseJSONResponse(rec, &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	errMsg, ok := resp["error"].(string)
	if !ok {
		t.Errorf("Response does not contain 'error' field. Response: %v", resp)
		return
	}

	if errMsg != expectedError {
		t.Errorf("Expected error '%s', got '%s'", expectedError, errMsg)
	}
}

// fakeBlobStore records blob operations in memory
type fakeBlobStore struct {
	mu        sync.Mutex
	Puts      map[string][]byte
	Deleted   []string
	DeleteErr error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{Puts: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Puts[key] = data
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Deleted = append(f.Deleted, key)
	return f.DeleteErr
}

func (f *fakeBlobStore) PresignedGetURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://blobs.test/%s?expires=%d", key, int(expiry.Seconds())), nil
}

// fakeMailer records sent emails and can be told to fail
type fakeMailer struct {
	Activations []string
	Resets      []string
	FailSend    bool
}

func (m *fakeMailer) SendActivationEmail(toEmail, _, _ string) error {
	m.Activations = append(m.Activations, toEmail)
	if m.FailSend {
		return fmt.Errorf("smtp unavailable")
	}
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(toEmail, _, _ string) error {
	m.Resets = append(m.Resets, toEmail)
	if m.FailSend {
		return fmt.Errorf("smtp unavailable")
	}
	return nil
}

// CreateTestAuthHandler creates an AuthHandler with mocked collaborators
func CreateTestAuthHandler(db *sql.DB, mailer Mailer) *AuthHandler {
	return &AuthHandler{
		db:        db,
		jwtSecret: []byte("test-jwt-secret-for-testing-only-32chars"),
		mailer:    mailer,
		guard:     newLoginGuard(),
	}
}

// CreateTestHandler creates a file Handler with mocked collaborators
func CreateTestHandler(db *sql.DB, blob BlobStore) *Handler {
	return &Handler{db: db, blob: blob}
}

// CreateAuthenticatedContext creates an echo.Context with JWT claims set
func CreateAuthenticatedContext(e *echo.Echo, rec *httptest.ResponseRecorder, req *http.Request, userID, email string) echo.Context {
	c := e.NewContext(req, rec)
	claims := &JWTClaims{
		UserID: userID,
		Email:  email,
	}
	c.Set("user", claims)
	return c
}
