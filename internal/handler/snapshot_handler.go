package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codepet/classroom-sync-api/internal/canonical"
	"github.com/codepet/classroom-sync-api/internal/dto"
	"github.com/codepet/classroom-sync-api/internal/models"
	"github.com/codepet/classroom-sync-api/internal/schema"
	"github.com/codepet/classroom-sync-api/internal/service"
	appErrors "github.com/codepet/classroom-sync-api/pkg/errors"
	"github.com/codepet/classroom-sync-api/pkg/response"
)

type snapshotService interface {
	Validate(raw []byte) (*schema.Result, *schema.ValidationError)
	Diff(ctx context.Context, res *schema.Result, ownerID string) (bool, *canonical.DiffResult, error)
	ImportSnapshot(ctx context.Context, res *schema.Result, owner models.OwnerContext) *models.ImportResult
	LastResult(ctx context.Context, ownerID string) (*models.ImportResult, error)
	ListRuns(ctx context.Context, ownerID string, limit int) ([]models.ImportRun, error)
}

type runExporter interface {
	ExportRuns(ctx context.Context, ownerID, format string, limit int) (*service.ExportFile, error)
}

// SnapshotHandler exposes the snapshot ingestion endpoints.
type SnapshotHandler struct {
	service      snapshotService
	exporter     runExporter
	maxBodyBytes int64
}

// NewSnapshotHandler constructs the handler. A nil exporter disables the run
// history export endpoint.
func NewSnapshotHandler(svc snapshotService, exporter runExporter, maxBodyBytes int64) *SnapshotHandler {
	return &SnapshotHandler{service: svc, exporter: exporter, maxBodyBytes: maxBodyBytes}
}

func (h *SnapshotHandler) readBody(c *gin.Context) ([]byte, error) {
	reader := io.Reader(c.Request.Body)
	if h.maxBodyBytes > 0 {
		reader = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unable to read snapshot body")
	}
	if len(raw) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "snapshot body is empty")
	}
	return raw, nil
}

// matchOwner rejects payloads whose declared teacher is not the caller.
func matchOwner(res *schema.Result, claims *models.OwnerClaims) error {
	declared := strings.TrimSpace(res.Teacher().Email)
	if declared == "" || !strings.EqualFold(declared, claims.Email) {
		return appErrors.Clone(appErrors.ErrOwnerMismatch,
			fmt.Sprintf("snapshot declares teacher %q", declared))
	}
	return nil
}

// Validate godoc
// @Summary Validate a snapshot against both schema generations
// @Tags Snapshots
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /snapshots/validate [post]
func (h *SnapshotHandler) Validate(c *gin.Context) {
	raw, err := h.readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, verr := h.service.Validate(raw)
	if verr != nil {
		response.JSON(c, http.StatusUnprocessableEntity, dto.ValidationFailure{
			OptimizedIssues: verr.OptimizedIssues,
			LegacyIssues:    verr.LegacyIssues,
		})
		return
	}
	response.OK(c, dto.ValidateResponse{Valid: true, Schema: res.Kind})
}

// Diff godoc
// @Summary Compare a snapshot against the archived baseline
// @Tags Snapshots
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /snapshots/diff [post]
func (h *SnapshotHandler) Diff(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	raw, err := h.readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, verr := h.service.Validate(raw)
	if verr != nil {
		response.JSON(c, http.StatusUnprocessableEntity, dto.ValidationFailure{
			OptimizedIssues: verr.OptimizedIssues,
			LegacyIssues:    verr.LegacyIssues,
		})
		return
	}
	if err := matchOwner(res, claims); err != nil {
		response.Error(c, err)
		return
	}

	hasBaseline, diff, err := h.service.Diff(c.Request.Context(), res, claims.OwnerID)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.DiffResponse{HasBaseline: hasBaseline}
	if hasBaseline {
		resp.Identical = diff.Empty()
		resp.Summary = dto.NewDiffSummary(diff)
		resp.Diff = diff
	}
	response.OK(c, resp)
}

// Import godoc
// @Summary Import a snapshot
// @Tags Snapshots
// @Accept json
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /snapshots/import [post]
func (h *SnapshotHandler) Import(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	raw, err := h.readBody(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, verr := h.service.Validate(raw)
	if verr != nil {
		response.JSON(c, http.StatusUnprocessableEntity, dto.ValidationFailure{
			OptimizedIssues: verr.OptimizedIssues,
			LegacyIssues:    verr.LegacyIssues,
		})
		return
	}
	if err := matchOwner(res, claims); err != nil {
		response.Error(c, err)
		return
	}

	result := h.service.ImportSnapshot(c.Request.Context(), res, claims.OwnerContext())
	response.JSON(c, importStatus(result), result)
}

// importStatus maps a finished run onto an HTTP status.
func importStatus(result *models.ImportResult) int {
	if result.Success {
		return http.StatusOK
	}
	for _, e := range result.Errors {
		if e.Stage == "lock" {
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// Status godoc
// @Summary Last import result for the authenticated owner
// @Tags Snapshots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /snapshots/status [get]
func (h *SnapshotHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.service.LastResult(c.Request.Context(), claims.OwnerID)
	if err != nil {
		if appErrors.FromError(err).Code == appErrors.ErrCacheMiss.Code {
			response.OK(c, dto.StatusResponse{HasResult: false})
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, dto.StatusResponse{HasResult: true, Result: result})
}

// ListImports godoc
// @Summary Recent import runs for the authenticated owner
// @Tags Snapshots
// @Produce json
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /snapshots/imports [get]
func (h *SnapshotHandler) ListImports(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.service.ListRuns(c.Request.Context(), claims.OwnerID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ImportRunListResponse{Runs: runs})
}

// ExportImports godoc
// @Summary Export recent import runs as CSV or PDF
// @Tags Snapshots
// @Produce text/csv,application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /snapshots/imports/export [get]
func (h *SnapshotHandler) ExportImports(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}

	format := c.DefaultQuery("format", service.ExportFormatCSV)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	file, err := h.exporter.ExportRuns(c.Request.Context(), claims.OwnerID, format, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
