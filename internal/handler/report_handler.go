package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/whistle-api/internal/dto"
	"github.com/noah-isme/whistle-api/internal/models"
	"github.com/noah-isme/whistle-api/internal/service"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
	"github.com/noah-isme/whistle-api/pkg/response"
	"github.com/noah-isme/whistle-api/pkg/storage"
)

const uploadField = "file"

type submissionService interface {
	Submit(ctx context.Context, p *models.Principal, req dto.SubmitReportRequest, uploads []service.Upload) (*dto.SubmissionResponse, error)
}

type lifecycleService interface {
	Detail(ctx context.Context, p *models.Principal, id int64) (*dto.ReportDetailResponse, error)
	FeedbackForm(ctx context.Context, p *models.Principal, id int64) (*dto.FeedbackRequest, error)
	Resolve(ctx context.Context, p *models.Principal, id int64, req dto.FeedbackRequest) (*models.Report, error)
	Delete(ctx context.Context, p *models.Principal, id int64) error
}

type attachmentService interface {
	Link(ctx context.Context, p *models.Principal, reportID, fileID int64) (*dto.AttachmentLinkResponse, error)
	Open(ctx context.Context, token string) (*models.ReportFile, *storage.Object, error)
}

// ReportHandler exposes report intake, detail, resolution and attachment endpoints.
type ReportHandler struct {
	submissions submissionService
	lifecycle   lifecycleService
	attachments attachmentService
}

// NewReportHandler constructs handler.
func NewReportHandler(submissions submissionService, lifecycle lifecycleService, attachments attachmentService) *ReportHandler {
	return &ReportHandler{submissions: submissions, lifecycle: lifecycle, attachments: attachments}
}

// Form godoc
// @Summary Blank report submission form
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /report/ [get]
func (h *ReportHandler) Form(c *gin.Context) {
	response.Form(c, dto.FormReport, dto.SubmitReportRequest{}, nil)
}

// Submit godoc
// @Summary Submit a report
// @Description Anonymous or authenticated submission. Validation failures redisplay the form with HTTP 200.
// @Tags Reports
// @Accept multipart/form-data,x-www-form-urlencoded
// @Produce json
// @Param name_reported formData string true "Person or entity reported"
// @Param description formData string true "What happened"
// @Param file formData file false "Attachment, repeatable"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope "form with field errors"
// @Router /report/ [post]
func (h *ReportHandler) Submit(c *gin.Context) {
	var req dto.SubmitReportRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid report payload"))
		return
	}
	uploads, err := uploadsFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.submissions.Submit(c.Request.Context(), principalFromContext(c), req, uploads)
	if err != nil {
		if fields := fieldErrors(err); fields != nil {
			response.Form(c, dto.FormReport, req, fields)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Submitted godoc
// @Summary Submission confirmation
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /report/submitted/ [get]
func (h *ReportHandler) Submitted(c *gin.Context) {
	response.JSON(c, http.StatusOK, dto.MessageResponse{
		Title:   "Report submitted",
		Message: "Thank you. Your report has been received and will be reviewed by a site administrator.",
		Links:   map[string]string{"home": "/"},
	})
}

// Detail godoc
// @Summary Report detail
// @Description Site admins opening a New report move it to In Progress.
// @Tags Reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /report/{id}/ [get]
func (h *ReportHandler) Detail(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.lifecycle.Detail(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// ResolveForm godoc
// @Summary Resolution form
// @Description Pre-populated with existing resolution notes.
// @Tags Reports
// @Produce json
// @Param id path int true "Report ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /report/{id}/resolve/ [get]
func (h *ReportHandler) ResolveForm(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	form, err := h.lifecycle.FeedbackForm(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Form(c, dto.FormFeedback, form, nil)
}

// Resolve godoc
// @Summary Resolve a report
// @Description Stores resolution notes (empty allowed) and marks the report Resolved, then returns the detail document.
// @Tags Reports
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param id path int true "Report ID"
// @Param resolved_notes formData string false "Resolution notes"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /report/{id}/resolve/ [post]
func (h *ReportHandler) Resolve(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.FeedbackRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, bindError(err, "invalid feedback payload"))
		return
	}

	p := principalFromContext(c)
	if _, err := h.lifecycle.Resolve(c.Request.Context(), p, id, req); err != nil {
		if fields := fieldErrors(err); fields != nil {
			response.Form(c, dto.FormFeedback, req, fields)
			return
		}
		response.Error(c, err)
		return
	}
	detail, err := h.lifecycle.Detail(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail)
}

// Delete godoc
// @Summary Delete a report
// @Tags Reports
// @Param id path int true "Report ID"
// @Success 302
// @Failure 404 {object} response.Envelope
// @Router /report/{id}/delete/ [post]
func (h *ReportHandler) Delete(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.lifecycle.Delete(c.Request.Context(), principalFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Redirect(c, service.PathUserDashboard)
}

// AttachmentLink godoc
// @Summary Signed download link for an attachment
// @Tags Attachments
// @Produce json
// @Param id path int true "Report ID"
// @Param fileId path int true "Attachment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /report/{id}/files/{fileId}/ [get]
func (h *ReportHandler) AttachmentLink(c *gin.Context) {
	reportID, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	fileID, err := strconv.ParseInt(c.Param("fileId"), 10, 64)
	if err != nil || fileID <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "attachment not found"))
		return
	}
	link, err := h.attachments.Link(c.Request.Context(), principalFromContext(c), reportID, fileID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link)
}

// Download godoc
// @Summary Download an attachment
// @Tags Attachments
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /attachments/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	file, obj, err := h.attachments.Open(c.Request.Context(), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = file.MimeType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := obj.Size
	if size <= 0 {
		size = -1
	}
	c.Header("Cache-Control", "private, no-store")
	c.DataFromReader(http.StatusOK, size, contentType, obj.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": file.OriginalName}),
	})
}

func uploadsFromRequest(c *gin.Context) ([]service.Upload, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, bindError(err, "invalid multipart payload")
	}
	headers := form.File[uploadField]
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, service.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return uploads, nil
}
