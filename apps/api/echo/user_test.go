package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/trezcool/mahudhurio/core/user"
)

func TestUserLogin(t *testing.T) {
	srv := newTestServer(t)
	srv.addUser(t, "awesome-admin", []string{user.RoleAdmin}, true)
	srv.addUser(t, "sleeping-admin", []string{user.RoleAdmin}, false)

	tests := []httpTest{
		{
			name:     "empty credentials",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown user",
			body:     []byte(`{"username": "ghost", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     []byte(`{"username": "awesome-admin", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     []byte(`{"username": "sleeping-admin", "password": "LordMuntuWaBantu#1"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "success",
			body:     []byte(`{"username": "awesome-admin", "password": "LordMuntuWaBantu#1"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			srv.ServeHTTP(rec, req)

			if tt.wantData != nil || tt.wantCode != http.StatusOK {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; want %v", rec.Code, tt.wantCode)
			}
			var resp LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
		})
	}
}

func TestUserQueryRequiresAdmin(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.addUser(t, "awesome-admin", []string{user.RoleAdmin}, true)
	assistant := srv.addUser(t, "sidekick", []string{user.RoleAssistant}, true)

	tests := []httpTest{
		{
			name:     "no token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "assistant is forbidden",
			token:    getToken(t, assistant),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin lists users",
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.User{admin, assistant}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserRetrieve(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.addUser(t, "awesome-admin", []string{user.RoleAdmin}, true)
	assistant := srv.addUser(t, "sidekick", []string{user.RoleAssistant}, true)

	tests := []httpTest{
		{
			name:     "own profile",
			path:     fmt.Sprintf("/v1/users/%d", assistant.ID),
			token:    getToken(t, assistant),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, assistant),
		},
		{
			name:     "other profile is hidden from non-admin",
			path:     fmt.Sprintf("/v1/users/%d", admin.ID),
			token:    getToken(t, assistant),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "admin sees any profile",
			path:     fmt.Sprintf("/v1/users/%d", assistant.ID),
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, assistant),
		},
		{
			name:     "unknown id",
			path:     "/v1/users/12345",
			token:    getToken(t, admin),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserRegister(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.addUser(t, "awesome-admin", []string{user.RoleAdmin}, true)

	body := []byte(`{
		"name": "New Assistant",
		"username": "frontdesk",
		"email": "frontdesk@test.cd",
		"password": "LordMuntuWaBantu#1",
		"password_confirm": "LordMuntuWaBantu#1",
		"roles": ["assistant:"]
	}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), body)
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var created user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshalling response: %v", err)
	}
	if created.Username != "frontdesk" || !created.IsActive {
		t.Errorf("unexpected user: %+v", created)
	}

	// duplicate username is a field error
	req, rec = newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, admin), body)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
	}
}

func TestUserDestroySelfForbidden(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.addUser(t, "awesome-admin", []string{user.RoleAdmin}, true)

	req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/users/%d", admin.ID), getToken(t, admin))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
	}
}
