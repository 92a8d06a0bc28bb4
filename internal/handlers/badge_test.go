package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/handlers"
	"github.com/example/medirx/internal/ledger"
	"github.com/example/medirx/internal/testutil"
	"github.com/example/medirx/internal/utils"
)

func newBadgeApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler(false)})
	h := handlers.NewBadgeHandler(db, ledger.NewService(db))
	app.Post("/badges", h.CreateBadge)
	app.Put("/badges/:id", h.UpdateBadge)
	app.Get("/badges", h.ListBadges)

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, utils.Response) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var envelope utils.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func TestCreateBadgeSuccess(t *testing.T) {
	app, _ := newBadgeApp(t)

	resp, envelope := doJSON(t, app, http.MethodPost, "/badges", fiber.Map{
		"name":            "Gold",
		"heirarchy":       1,
		"badge_type":      1,
		"required_points": 500,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, utils.StatusSuccess, envelope.Status)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, float64(1), data["heirarchy"])
	require.Equal(t, float64(500), data["required_points"])
}

func TestCreateBadgeDuplicateNameCaseInsensitive(t *testing.T) {
	app, _ := newBadgeApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/badges", fiber.Map{
		"name":            "Gold",
		"heirarchy":       1,
		"badge_type":      1,
		"required_points": 500,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, envelope := doJSON(t, app, http.MethodPost, "/badges", fiber.Map{
		"name":            "gold",
		"heirarchy":       2,
		"badge_type":      1,
		"required_points": 100,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, utils.StatusFailed, envelope.Status)
	require.Contains(t, envelope.Message, "already exists")
}

func TestCreateBadgeMilestoneRequiresPoints(t *testing.T) {
	app, _ := newBadgeApp(t)

	// PointsMilestone without required_points is rejected.
	resp, _ := doJSON(t, app, http.MethodPost, "/badges", fiber.Map{
		"name":       "Empty",
		"heirarchy":  1,
		"badge_type": 1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Zero is rejected as well.
	resp, _ = doJSON(t, app, http.MethodPost, "/badges", fiber.Map{
		"name":            "Zero",
		"heirarchy":       1,
		"badge_type":      1,
		"required_points": 0,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// A positive value is accepted.
	resp, _ = doJSON(t, app, http.MethodPost, "/badges", fiber.Map{
		"name":            "Ten",
		"heirarchy":       1,
		"badge_type":      1,
		"required_points": 10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateBadgeValidation(t *testing.T) {
	app, _ := newBadgeApp(t)

	cases := []struct {
		name string
		body fiber.Map
	}{
		{"missing name", fiber.Map{"heirarchy": 1, "badge_type": 3}},
		{"heirarchy zero", fiber.Map{"name": "X", "heirarchy": 0, "badge_type": 3}},
		{"bad badge type", fiber.Map{"name": "X", "heirarchy": 1, "badge_type": 9}},
		{"negative required points", fiber.Map{"name": "X", "heirarchy": 1, "badge_type": 3, "required_points": -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := doJSON(t, app, http.MethodPost, "/badges", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestUpdateBadgeKeepingNameDoesNotSelfConflict(t *testing.T) {
	app, _ := newBadgeApp(t)

	_, envelope := doJSON(t, app, http.MethodPost, "/badges", fiber.Map{
		"name":            "Silver",
		"heirarchy":       2,
		"badge_type":      1,
		"required_points": 250,
	})
	data := envelope.Data.(map[string]interface{})
	id := data["id"].(string)

	resp, _ := doJSON(t, app, http.MethodPut, "/badges/"+id, fiber.Map{
		"name":            "Silver",
		"heirarchy":       3,
		"badge_type":      1,
		"required_points": 250,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
