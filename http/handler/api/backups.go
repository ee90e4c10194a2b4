package api

import (
	"net/http"

	"github.com/datarhei/settings/engine"
	"github.com/datarhei/settings/http/api"
	"github.com/datarhei/settings/http/handler/util"

	"github.com/labstack/echo/v4"
)

// The BackupsHandler type provides handler functions for the snapshots
// of the settings.
type BackupsHandler struct {
	engine engine.Engine
}

// NewBackups returns a new BackupsHandler type. You have to provide an engine.
func NewBackups(e engine.Engine) *BackupsHandler {
	return &BackupsHandler{
		engine: e,
	}
}

// List returns all backups, newest first
// @Summary List all backups
// @ID backups-list
// @Produce json
// @Success 200 {array} api.Backup
// @Router /api/v1/backups [get]
func (h *BackupsHandler) List(c echo.Context) error {
	snapshots, err := h.engine.ListBackups(c.Request().Context())
	if err != nil {
		return err
	}

	list := []api.Backup{}

	for _, s := range snapshots {
		b := api.Backup{}
		b.Unmarshal(s)

		list = append(list, b)
	}

	return c.JSON(http.StatusOK, list)
}

// Create stores a snapshot of the current settings. Without a name, the
// backup is named after the current time. A backup with the same name
// is replaced.
// @Summary Create a backup
// @ID backups-create
// @Accept json
// @Produce json
// @Param backup body api.BackupRequest false "Backup"
// @Success 201 {object} api.Backup
// @Router /api/v1/backups [post]
func (h *BackupsHandler) Create(c echo.Context) error {
	req := api.BackupRequest{}

	if c.Request().ContentLength != 0 {
		if err := util.ShouldBindJSON(c, &req); err != nil {
			return api.Err(http.StatusBadRequest, "Invalid JSON", "%s", err)
		}
	}

	snapshot, err := h.engine.CreateBackup(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}

	b := api.Backup{}
	b.Unmarshal(snapshot)

	return c.JSON(http.StatusCreated, b)
}

// Restore replaces the settings with the content of a backup
// @Summary Restore a backup
// @ID backups-restore
// @Produce json
// @Param name path string true "Backup name"
// @Success 200 {object} api.Validation
// @Failure 404 {object} api.Error
// @Failure 409 {object} api.Validation
// @Router /api/v1/backups/{name}/restore [post]
func (h *BackupsHandler) Restore(c echo.Context) error {
	name := util.PathParam(c, "name")

	result, err := h.engine.RestoreBackup(c.Request().Context(), name)
	if err != nil {
		return err
	}

	v := api.Validation{}
	v.Unmarshal(result)

	return validation(c, result.Valid, v)
}
