package serverutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rma-engine-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperror.NotFound("rma", "x"), fiber.StatusNotFound},
		{apperror.InvalidState("nope"), fiber.StatusConflict},
		{apperror.Conflict("stale"), fiber.StatusConflict},
		{apperror.ErrPhotosRequired, fiber.StatusUnprocessableEntity},
		{apperror.InvalidInput("id", "bad"), fiber.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", apperror.DependencyFailure("carrier", errors.New("down"))), fiber.StatusBadGateway},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func newTestApp(secret string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/me", NewJwtMiddleware(secret), func(ctx *fiber.Ctx) error {
		p := GetPrincipal(ctx)
		return ctx.JSON(fiber.Map{"company": p.CompanyID.String(), "actor": p.ActorID(), "type": p.ActorType()})
	})
	app.Get("/fail", func(ctx *fiber.Ctx) error {
		return errors.New("pq: password authentication failed")
	})
	app.Get("/missing", func(ctx *fiber.Ctx) error {
		return apperror.NotFound("rma", "RMA-20260302-00001")
	})
	return app
}

func decode(t *testing.T, res *http.Response, out interface{}) {
	t.Helper()
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(out))
}

func TestJwtMiddleware_AcceptsHeaderAndQueryToken(t *testing.T) {
	app := newTestApp("s3cret")
	p := Principal{CompanyID: uuid.New(), UserID: uuid.New(), Role: "customer"}
	tok, err := SignToken("s3cret", p)
	require.NoError(t, err)

	bearer := httptest.NewRequest(http.MethodGet, "/me", nil)
	bearer.Header.Set("Authorization", "Bearer "+tok)
	query := httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil)

	for name, req := range map[string]*http.Request{"bearer": bearer, "query": query} {
		res, err := app.Test(req, -1)
		require.NoError(t, err, name)
		require.Equal(t, fiber.StatusOK, res.StatusCode, name)

		var body map[string]string
		decode(t, res, &body)
		assert.Equal(t, p.CompanyID.String(), body["company"], name)
		assert.Equal(t, p.UserID.String(), body["actor"], name)
		assert.Equal(t, "customer", body["type"], name)
	}
}

func TestJwtMiddleware_Rejects(t *testing.T) {
	app := newTestApp("s3cret")
	wrongSecret, err := SignToken("other", Principal{CompanyID: uuid.New()})
	require.NoError(t, err)
	noCompany, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		LocalUserID: uuid.NewString(),
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong secret": "Bearer " + wrongSecret,
		"no company":   "Bearer " + noCompany,
		"garbage":      "Bearer not.a.jwt",
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		res, err := app.Test(req, -1)
		require.NoError(t, err, name)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode, name)
		res.Body.Close()
	}
}

func TestErrorHandler(t *testing.T) {
	app := newTestApp("s3cret")

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, res.StatusCode)
	var internal BaseResponse[any]
	decode(t, res, &internal)
	assert.Equal(t, "internal server error", internal.Message)
	assert.False(t, internal.Success)

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
	var missing BaseResponse[any]
	decode(t, res, &missing)
	assert.Equal(t, "NOT_FOUND", missing.ErrorCode)
	assert.Contains(t, missing.Message, "RMA-20260302-00001")

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/nowhere", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, res.StatusCode)
	res.Body.Close()
}

func TestActorType(t *testing.T) {
	assert.Equal(t, "customer", Principal{Role: "customer"}.ActorType())
	assert.Equal(t, "agent", Principal{Role: "admin"}.ActorType())
	assert.Equal(t, "agent", Principal{}.ActorType())
	assert.Empty(t, Principal{}.ActorID())
}
