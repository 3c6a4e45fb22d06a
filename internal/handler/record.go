package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jiseti/reporting-api/internal/model"
	"github.com/jiseti/reporting-api/internal/policy"
	"github.com/jiseti/reporting-api/internal/repository"
)

// RecordHandler serves the record lifecycle endpoints.  JWT and role
// extraction happen in middleware; the per-operation rules (ownership,
// draft status, valid transitions) are delegated to the policy package,
// and every read-modify-write runs in a transaction with the record row
// locked.
type RecordHandler struct {
	Records *repository.RecordRepo
}

func NewRecordHandler(records *repository.RecordRepo) *RecordHandler {
	if records == nil {
		panic("nil repository passed to NewRecordHandler")
	}
	return &RecordHandler{Records: records}
}

// ----- DTOs -----

type createRecordReq struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type patchRecordReq struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type setStatusReq struct {
	Status string `json:"status"`
}

type addMediaReq struct {
	ImageURL *string `json:"image_url"`
	VideoURL *string `json:"video_url"`
}

type mediaResp struct {
	ID       uint64  `json:"id"`
	ImageURL *string `json:"image_url"`
	VideoURL *string `json:"video_url"`
	RecordID uint64  `json:"record_id"`
}

type recordResp struct {
	ID          uint64      `json:"id"`
	Type        string      `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Latitude    *float64    `json:"latitude"`
	Longitude   *float64    `json:"longitude"`
	UserID      uint64      `json:"user_id"`
	CreatedAt   string      `json:"created_at"`
	Media       []mediaResp `json:"media"`
}

func toRecordResp(rec model.Record) recordResp {
	media := make([]mediaResp, 0, len(rec.Media))
	for _, m := range rec.Media {
		media = append(media, mediaResp{ID: m.ID, ImageURL: m.ImageURL, VideoURL: m.VideoURL, RecordID: m.RecordID})
	}
	return recordResp{
		ID:          rec.ID,
		Type:        string(rec.Type),
		Title:       rec.Title,
		Description: rec.Description,
		Status:      string(rec.Status),
		Latitude:    rec.Latitude,
		Longitude:   rec.Longitude,
		UserID:      rec.UserID,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339),
		Media:       media,
	}
}

// Create handles POST /records.  Citizens only; the new record starts
// in draft and is owned by the caller.
func (h *RecordHandler) Create(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := policy.CanCreateRecord(id); err != nil {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only citizens can create records"})
	}

	var req createRecordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !model.RecordType(req.Type).Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be red-flag or intervention"})
	}
	if req.Title == "" || req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title/description required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	rec, err := h.Records.Create(ctx, id.UserID, model.RecordType(req.Type), req.Title, req.Description, req.Latitude, req.Longitude)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create record failed"})
	}
	return c.JSON(http.StatusCreated, toRecordResp(rec))
}

// List handles GET /records?page=&per_page=.  Available to any
// authenticated caller; there is no filtering by status, type or owner.
func (h *RecordHandler) List(c echo.Context) error {
	page := atoiDefault(c.QueryParam("page"), repository.DefaultPage)
	perPage := atoiDefault(c.QueryParam("per_page"), repository.DefaultPerPage)

	ctx, cancel := reqContext(c)
	defer cancel()

	records, total, pages, err := h.Records.List(ctx, page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list records failed"})
	}
	items := make([]recordResp, 0, len(records))
	for _, rec := range records {
		items = append(items, toRecordResp(rec))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"records": items,
		"total":   total,
		"page":    page,
		"pages":   pages,
	})
}

// Update handles PATCH /records/:id.  Owner only, draft only; absent
// fields keep their current value.
func (h *RecordHandler) Update(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rid, err := recordID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
	}
	var req patchRecordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	tx, err := h.Records.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec, err := h.Records.GetByIDForUpdateTx(ctx, tx, rid)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "record not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := policy.CanMutateRecord(id, rec); err != nil {
		return forbidMutation(c, err, "edit")
	}

	patch := repository.RecordPatch{
		Title:       req.Title,
		Description: req.Description,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if err := h.Records.UpdateFieldsTx(ctx, tx, rid, patch); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update record failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update record failed"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"message": "record updated"})
}

// Delete handles DELETE /records/:id.  Owner only, draft only; all
// media rows go with the record.
func (h *RecordHandler) Delete(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rid, err := recordID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	tx, err := h.Records.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec, err := h.Records.GetByIDForUpdateTx(ctx, tx, rid)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "record not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := policy.CanMutateRecord(id, rec); err != nil {
		return forbidMutation(c, err, "delete")
	}

	if err := h.Records.DeleteTx(ctx, tx, rid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete record failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete record failed"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"message": "record deleted"})
}

// SetStatus handles PATCH /records/:id/status.  Admin only; the target
// must be one of the three review statuses.  The record row is locked
// while the status is written so a racing delete cannot slip between
// the read and the update.
func (h *RecordHandler) SetStatus(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if id.Role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only admins can change record status"})
	}
	rid, err := recordID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
	}
	var req setStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	tx, err := h.Records.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := h.Records.GetByIDForUpdateTx(ctx, tx, rid); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "record not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	status, err := policy.CanSetStatus(id, req.Status)
	if err != nil {
		if errors.Is(err, policy.ErrInvalidStatus) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only admins can change record status"})
	}

	if err := h.Records.SetStatusTx(ctx, tx, rid, status); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update status failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update status failed"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"message": fmt.Sprintf("status updated to %s", status)})
}

// AddMedia handles POST /records/:id/media.  Owner only, draft only; at
// least one of image_url/video_url must be supplied.
func (h *RecordHandler) AddMedia(c echo.Context) error {
	id, err := identityFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rid, err := recordID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid record id"})
	}
	var req addMediaReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if (req.ImageURL == nil || *req.ImageURL == "") && (req.VideoURL == nil || *req.VideoURL == "") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "image_url or video_url required"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	tx, err := h.Records.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec, err := h.Records.GetByIDForUpdateTx(ctx, tx, rid)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "record not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if err := policy.CanMutateRecord(id, rec); err != nil {
		return forbidMutation(c, err, "add media to")
	}

	media, err := h.Records.AddMediaTx(ctx, tx, rid, req.ImageURL, req.VideoURL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add media failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add media failed"})
	}
	committed = true
	return c.JSON(http.StatusCreated, mediaResp{ID: media.ID, ImageURL: media.ImageURL, VideoURL: media.VideoURL, RecordID: media.RecordID})
}

// forbidMutation maps a policy rejection to 403 while keeping the three
// failure classes distinguishable in the reason string.
func forbidMutation(c echo.Context, err error, verb string) error {
	switch {
	case errors.Is(err, policy.ErrCitizenOnly):
		return c.JSON(http.StatusForbidden, echo.Map{"error": fmt.Sprintf("only citizens can %s records", verb)})
	case errors.Is(err, policy.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "record belongs to another user"})
	case errors.Is(err, policy.ErrNotDraft):
		return c.JSON(http.StatusForbidden, echo.Map{"error": fmt.Sprintf("cannot %s finalized record", verb)})
	}
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
