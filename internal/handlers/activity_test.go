package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/medirx/internal/handlers"
	"github.com/example/medirx/internal/models"
	"github.com/example/medirx/internal/testutil"
	"github.com/example/medirx/internal/utils"
)

func newActivityApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler(false)})
	h := handlers.NewActivityHandler(db)
	app.Post("/activities", h.CreateActivity)
	app.Post("/reward-rules", h.CreateRewardRule)

	return app, db
}

func TestCreateActivityGeneratesCode(t *testing.T) {
	app, db := newActivityApp(t)

	// A client-supplied code is ignored; the system generates one.
	resp, envelope := doJSON(t, app, http.MethodPost, "/activities", fiber.Map{
		"activity_name":  "Upload prescription",
		"activity_point": 10,
		"activity_code":  "HACKED",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := envelope.Data.(map[string]interface{})
	code := data["activity_code"].(string)
	require.True(t, strings.HasPrefix(code, "ACT-"))
	require.NotEqual(t, "HACKED", code)

	var stored models.UserActivity
	require.NoError(t, db.First(&stored, "activity_code = ?", code).Error)
	require.Equal(t, "Upload prescription", stored.ActivityName)
}

func TestCreateActivityDuplicateNameCaseInsensitive(t *testing.T) {
	app, _ := newActivityApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/activities", fiber.Map{
		"activity_name":  "Share Report",
		"activity_point": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, envelope := doJSON(t, app, http.MethodPost, "/activities", fiber.Map{
		"activity_name":  "share report",
		"activity_point": 5,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, utils.StatusFailed, envelope.Status)
}

func TestCreateActivityNegativePoints(t *testing.T) {
	app, _ := newActivityApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/activities", fiber.Map{
		"activity_name":  "Bad",
		"activity_point": -1,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRewardRuleRequiresActivity(t *testing.T) {
	app, db := newActivityApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/reward-rules", fiber.Map{
		"activity_code": "ACT-NOPE",
		"reward_type":   1,
		"points":        10,
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, db.Create(&models.UserActivity{
		ActivityCode: "ACT-REAL",
		ActivityName: "Real",
	}).Error)

	resp, _ = doJSON(t, app, http.MethodPost, "/reward-rules", fiber.Map{
		"activity_code": "ACT-REAL",
		"reward_type":   1,
		"points":        10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Invalid reward type is rejected.
	resp, _ = doJSON(t, app, http.MethodPost, "/reward-rules", fiber.Map{
		"activity_code": "ACT-REAL",
		"reward_type":   9,
		"points":        10,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
