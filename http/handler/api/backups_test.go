package api

import (
	"net/http"
	"testing"

	"github.com/datarhei/settings/engine"
	"github.com/datarhei/settings/http/api"
	"github.com/datarhei/settings/http/mock"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func getDummyBackupsRouter(t *testing.T) (*echo.Echo, engine.Engine) {
	router, e := getDummySettingsRouter(t)

	handler := NewBackups(e)

	router.Add("GET", "/backups", handler.List)
	router.Add("POST", "/backups", handler.Create)
	router.Add("POST", "/backups/:name/restore", handler.Restore)

	return router, e
}

func TestBackups(t *testing.T) {
	router, _ := getDummyBackupsRouter(t)

	response := mock.Request(t, http.StatusOK, router, "GET", "/backups", nil)
	require.Equal(t, []interface{}{}, response.Data)

	mock.RequestJSON(t, http.StatusOK, router, "PUT", "/settings/general", general("Hotel Sahara"))

	response = mock.RequestJSON(t, http.StatusCreated, router, "POST", "/backups", api.BackupRequest{Name: "before-season"})
	mock.Validate(t, &api.Backup{}, response.Data)

	b := response.Data.(map[string]interface{})
	require.Equal(t, "before-season", b["name"])
	require.Equal(t, []interface{}{"general"}, b["sections"])

	response = mock.Request(t, http.StatusCreated, router, "POST", "/backups", nil)
	require.Equal(t, "backup-2024-03-15T10:30:00Z", response.Data.(map[string]interface{})["name"])

	response = mock.Request(t, http.StatusOK, router, "GET", "/backups", nil)
	list := response.Data.([]interface{})
	require.Equal(t, 2, len(list))
	require.Equal(t, "backup-2024-03-15T10:30:00Z", list[0].(map[string]interface{})["name"])
	require.Equal(t, "before-season", list[1].(map[string]interface{})["name"])
}

func TestBackupsRestore(t *testing.T) {
	router, _ := getDummyBackupsRouter(t)

	mock.RequestJSON(t, http.StatusOK, router, "PUT", "/settings/general", general("Hotel Sahara"))
	mock.RequestJSON(t, http.StatusCreated, router, "POST", "/backups", api.BackupRequest{Name: "before-season"})
	mock.RequestJSON(t, http.StatusOK, router, "PUT", "/settings/general", general("Hotel Oasis"))

	response := mock.Request(t, http.StatusOK, router, "POST", "/backups/before-season/restore", nil)
	require.Equal(t, true, response.Data.(map[string]interface{})["isValid"])

	response = mock.Request(t, http.StatusOK, router, "GET", "/settings/general", nil)
	require.Equal(t, "Hotel Sahara", response.Data.(map[string]interface{})["hotelName"])

	response = mock.Request(t, http.StatusNotFound, router, "POST", "/backups/missing/restore", nil)
	require.Equal(t, []interface{}{"backup 'missing' not found"}, response.Data.(map[string]interface{})["details"])
}
