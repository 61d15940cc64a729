package controller

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_And_Login(t *testing.T) {
	app, _ := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "ana@example.com",
		"password": "password123",
		"name":     "Ana García",
		"role":     "patient",
	})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "patient", user["role"])
	assert.Equal(t, "ana-garcia", user["handle"])

	req = jsonRequest(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ana@example.com",
		"password": "password123",
	})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	app, db := setupTestApp(t)
	createTestUser(t, db, "dup@example.com", "patient")

	req := jsonRequest(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "dup@example.com",
		"password": "password123",
		"name":     "Dup",
		"role":     "patient",
	})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister_InvalidRole(t *testing.T) {
	app, _ := setupTestApp(t)

	req := jsonRequest(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "x@example.com",
		"password": "password123",
		"name":     "X",
		"role":     "admin",
	})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, CodeInvalidInput, body["code"])
}

func TestRegister_HandleCollision(t *testing.T) {
	app, _ := setupTestApp(t)

	for i, email := range []string{"a1@example.com", "a2@example.com"} {
		req := jsonRequest(t, http.MethodPost, "/api/auth/register", "", map[string]string{
			"email":    email,
			"password": "password123",
			"name":     "Same Name",
			"role":     "patient",
		})
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeBody(t, resp)
		user := body["user"].(map[string]interface{})
		if i == 0 {
			assert.Equal(t, "same-name", user["handle"])
		} else {
			assert.Equal(t, "same-name-2", user["handle"])
		}
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	app, db := setupTestApp(t)
	createTestUser(t, db, "ana@example.com", "patient")

	req := jsonRequest(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "ana@example.com",
		"password": "wrong-password",
	})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetMe(t *testing.T) {
	app, db := setupTestApp(t)
	user, token := createTestUser(t, db, "me@example.com", "nutritionist")

	req := jsonRequest(t, http.MethodGet, "/api/me", token, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	me := body["user"].(map[string]interface{})
	assert.Equal(t, float64(user.ID), me["id"])
	assert.Equal(t, "nutritionist", me["role"])
}

func TestGetMe_Unauthenticated(t *testing.T) {
	app, _ := setupTestApp(t)

	req := jsonRequest(t, http.MethodGet, "/api/me", "", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
