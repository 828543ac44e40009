// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/agentx/pkg/extensions"
)

type fixedAuthProvider struct {
	token string
	info  *extensions.AuthInfo
}

func (p *fixedAuthProvider) Validate(_ context.Context, token string) (*extensions.AuthInfo, error) {
	if token != p.token {
		return nil, fmt.Errorf("token mismatch: %w", extensions.ErrUnauthorized)
	}
	return p.info, nil
}

func newAuthRouter(provider extensions.AuthProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", Authentication(provider), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return router
}

func TestAuthenticationDefaultProvider(t *testing.T) {
	router := newAuthRouter(&extensions.NopAuthProvider{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"user_id":"local-user"}` {
		t.Errorf("body = %s", body)
	}
}

func TestAuthenticationValidToken(t *testing.T) {
	provider := &fixedAuthProvider{
		token: "secret-token",
		info:  &extensions.AuthInfo{UserID: "user-42"},
	}
	router := newAuthRouter(provider)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "bearer secret-token")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"user_id":"user-42"}` {
		t.Errorf("body = %s", body)
	}
}

func TestAuthenticationRejectsBadToken(t *testing.T) {
	provider := &fixedAuthProvider{token: "secret-token"}
	router := newAuthRouter(provider)

	for name, header := range map[string]string{
		"wrong token":    "Bearer not-it",
		"missing header": "",
		"wrong scheme":   "Basic secret-token",
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := map[string]string{
		"Bearer abc123":  "abc123",
		"bearer ABC123":  "ABC123",
		"Bearer  spaced": "spaced",
		"Basic abc123":   "",
		"Bearer":         "",
		"":               "",
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		if got := extractBearerToken(c); got != want {
			t.Errorf("extractBearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}

func TestGetAuthInfoAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if GetAuthInfo(c) != nil {
		t.Error("expected nil AuthInfo without middleware")
	}
	if UserID(c) != "" {
		t.Error("expected empty user ID without middleware")
	}
}
