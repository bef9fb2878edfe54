// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caurisai/cauris-tui/internal/model"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL + "/api/v1")
}

// =============================================================================
// AUTH TESTS
// =============================================================================

func TestLogin_SendsPasswordForm(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "ada@univ.example", r.PostForm.Get("username"))
		assert.Equal(t, "s3cret-pass", r.PostForm.Get("password"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"jwt-abc","token_type":"bearer"}`))
	})

	tok, err := client.Login(context.Background(), "ada@univ.example", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)
}

func TestLogin_BadCredentials(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Email ou mot de passe incorrect"}`))
	})

	_, err := client.Login(context.Background(), "ada@univ.example", "wrong-pass")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBadRequest))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Email ou mot de passe incorrect", apiErr.Detail)
}

func TestSignup_DefaultsRoleToStudent(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/signup", r.URL.Path)
		var req SignupRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "student", req.Role)
		assert.Equal(t, "Ada Lovelace", req.FullName)
		w.Write([]byte(`{"message":"Utilisateur créé avec succès"}`))
	})

	msg, err := client.Signup(context.Background(), SignupRequest{
		Email:    "ada@univ.example",
		Password: "long-enough",
		FullName: "Ada Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "Utilisateur créé avec succès", msg)
}

func TestSignup_ValidatesBeforeSending(t *testing.T) {
	var calls atomic.Int32
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"short password", SignupRequest{Email: "a@b.c", Password: "short", FullName: "A"}},
		{"long password", SignupRequest{Email: "a@b.c", Password: strings.Repeat("x", 73), FullName: "A"}},
		{"bad email", SignupRequest{Email: "nobody", Password: "long-enough", FullName: "A"}},
		{"no name", SignupRequest{Email: "a@b.c", Password: "long-enough", FullName: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Signup(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.Zero(t, calls.Load())
}

func TestSignup_ValidationErrorList(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address","type":"value_error"}]}`))
	})

	_, err := client.Signup(context.Background(), SignupRequest{Email: "a@b", Password: "long-enough", FullName: "A"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "email: value is not a valid email address", apiErr.Detail)
	assert.ErrorIs(t, err, ErrBadRequest)
}

// =============================================================================
// HISTORY / QUERY TESTS
// =============================================================================

func TestHistory_ParsesServerOrder(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/chat/history", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"id":1,"user_id":7,"question":"Q1","answer":"A1","created_at":"2025-03-14T09:30:00.123456"},
			{"id":2,"user_id":7,"question":"Q2","answer":"A2","created_at":"2025-03-14T10:00:00Z"}
		]`))
	}).WithToken("tok")

	entries, err := client.History(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Q1", entries[0].Question)
	assert.Equal(t, "A2", entries[1].Answer)
	assert.Equal(t, 7, entries[0].UserID)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 30, 0, 123456000, time.UTC), entries[0].CreatedAt)
	assert.Equal(t, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC), entries[1].CreatedAt)
}

func TestHistory_FailuresWrapFetchFailed(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}).WithToken("expired")

	_, err := client.History(context.Background())
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHistory_RequiresToken(t *testing.T) {
	client := NewClient("http://127.0.0.1:1/api/v1")

	_, err := client.History(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestQuery(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chat/query", r.URL.Path)
		var req queryRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Qu'est-ce qu'un graphe ?", req.Question)
		w.Write([]byte(`{"answer":"Un ensemble de sommets."}`))
	}).WithToken("tok")

	answer, err := client.Query(context.Background(), "  Qu'est-ce qu'un graphe ?  ")
	require.NoError(t, err)
	assert.Equal(t, "Un ensemble de sommets.", answer)

	_, err = client.Query(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// =============================================================================
// UPLOAD TESTS
// =============================================================================

func TestUpload_MultipartPDF(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/documents/upload", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		assert.Equal(t, "cours.pdf", header.Filename)
		assert.Equal(t, model.ContentTypePDF, header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, "%PDF-1.7 body", string(data))

		w.Write([]byte(`{"message":"Fichier recu.","filename":"cours.pdf"}`))
	}).WithToken("tok")

	res, err := client.Upload(context.Background(), &model.Document{
		Name:        "cours.pdf",
		ContentType: model.ContentTypePDF,
		Data:        []byte("%PDF-1.7 body"),
	})
	require.NoError(t, err)
	assert.Equal(t, "cours.pdf", res.Filename)
}

func TestUpload_ServerRejects(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Seuls les fichiers PDF sont acceptes."}`))
	}).WithToken("tok")

	_, err := client.Upload(context.Background(), &model.Document{Name: "x.pdf", ContentType: model.ContentTypePDF})
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "x.pdf")
}

// =============================================================================
// ERROR HANDLING TESTS
// =============================================================================

func TestHandleErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantIs     error
	}{
		{"string detail", 400, `{"detail":"Cet email est déjà utilisé."}`, "Cet email est déjà utilisé.", ErrBadRequest},
		{"forbidden", 403, `{"detail":"Privilèges administrateur requis"}`, "Privilèges administrateur requis", ErrUnauthorized},
		{"plain text", 502, "Bad Gateway", "Bad Gateway", nil},
		{"empty", 500, "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handleErrorResponse(tt.status, []byte(tt.body))
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			} else {
				assert.False(t, errors.Is(err, ErrBadRequest) || errors.Is(err, ErrUnauthorized))
			}
		})
	}
}

func TestHandleErrorResponse_LongBodyKeepsRunes(t *testing.T) {
	body := "<html>\n" + strings.Repeat("Échec é ", 100) + "</html>"

	err := handleErrorResponse(http.StatusBadGateway, []byte(body))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, utf8.ValidString(apiErr.Detail), "detail cut inside a rune: %q", apiErr.Detail)
	assert.LessOrEqual(t, utf8.RuneCountInString(apiErr.Detail), maxRawDetailWidth)
	assert.NotContains(t, apiErr.Detail, "\n")
	assert.True(t, strings.HasPrefix(apiErr.Detail, "<html> Échec é"))
}

func TestReadResponse_SizeLimit(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer":"`))
		w.Write([]byte(strings.Repeat("a", MaxResponseSize)))
		w.Write([]byte(`"}`))
	}).WithToken("tok")

	_, err := client.Query(context.Background(), "big")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}

func TestClient_ContextCancel(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}).WithToken("tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.History(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
