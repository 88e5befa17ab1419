package handlers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servly/marketplace_be/internal/contract"
)

func statusFor(t *testing.T, err error) (int, fiber.Map) {
	t.Helper()

	app := fiber.New()
	app.Get("/t", func(c *fiber.Ctx) error {
		return contractError(c, err)
	})

	resp, reqErr := app.Test(httptest.NewRequest("GET", "/t", nil))
	require.NoError(t, reqErr)
	defer resp.Body.Close()

	var body fiber.Map
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestContractErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{contract.ErrNotFound, fiber.StatusNotFound},
		{contract.ErrUnauthorized, fiber.StatusForbidden},
		{contract.ErrInvalidState, fiber.StatusConflict},
		{contract.ErrDuplicateAction, fiber.StatusConflict},
		{contract.ErrOpenContractExists, fiber.StatusConflict},
		{contract.ErrConflictingWrite, fiber.StatusConflict},
		{contract.ErrInvalidAmount, fiber.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		status, body := statusFor(t, tc.err)
		assert.Equal(t, tc.want, status, "error %v", tc.err)
		assert.Equal(t, false, body["success"])
		assert.NotEmpty(t, body["message"])
	}
}

func TestContractErrorMappingWrapped(t *testing.T) {
	wrapped := fmt.Errorf("deposit on cancelled contract: %w", contract.ErrInvalidState)
	status, body := statusFor(t, wrapped)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Contains(t, body["message"], "cancelled")
}

func TestContractErrorMappingUnknown(t *testing.T) {
	status, body := statusFor(t, fmt.Errorf("db exploded"))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	// internal details never leak to the client
	assert.Equal(t, "Internal server error", body["message"])
}
