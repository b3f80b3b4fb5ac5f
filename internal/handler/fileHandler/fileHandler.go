package fileHandler

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"

	"cloud-storage/internal/apperr"
	"cloud-storage/internal/handler/respond"
	"cloud-storage/internal/model/fileInfo"
	"cloud-storage/internal/model/user"
	"cloud-storage/internal/service/fileService"
	"cloud-storage/pkg/logger"
	"cloud-storage/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FileHandler struct {
	fileService *fileService.FileService
}

func NewFileHandler(fileService *fileService.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// Register mounts the file routes. private guards everything except the
// short-link download, which runs behind public.
func (h *FileHandler) Register(r gin.IRouter, private, public []gin.HandlerFunc) {
	files := r.Group("/files")

	files.GET("/download/:short_link/", append(append([]gin.HandlerFunc{}, public...), h.DownloadByShortLink)...)

	authorized := files.Group("", private...)
	authorized.GET("/", h.List)
	authorized.POST("/", h.Create)
	authorized.GET("/by_owner/", h.ListByOwner)
	authorized.GET("/:id/", h.Get)
	authorized.PUT("/:id/", h.Update)
	authorized.PATCH("/:id/", h.PartialUpdate)
	authorized.DELETE("/:id/", h.Delete)
	authorized.POST("/:id/short_link/", h.IssueShortLink)
	authorized.POST("/:id/short_link/clear/", h.ClearShortLink)
	authorized.GET("/:id/download/", h.Download)
}

type page struct {
	Count    int              `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
	Results  []*fileInfo.File `json:"results"`
}

type shortLinkResponse struct {
	ShortLink *string `json:"short_link"`
}

func (h *FileHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	limit, offset := pageParams(c)
	res, err := h.fileService.List(c.Request.Context(), p, limit, offset)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, res))
}

func (h *FileHandler) ListByOwner(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	raw := c.Query("owner_id")
	if raw == "" {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "owner_id parameter is required")
		return
	}
	ownerID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "owner_id must be a positive integer")
		return
	}

	limit, offset := pageParams(c)
	res, err := h.fileService.ListByOwner(c.Request.Context(), p, uint32(ownerID), limit, offset)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPage(c, res))
}

func (h *FileHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := fileID(c)
	if !ok {
		return
	}
	file, err := h.fileService.Get(c.Request.Context(), p, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *FileHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	upload, closeUpload, err := formUpload(c)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	defer closeUpload()

	file, err := h.fileService.Create(c.Request.Context(), p, upload, c.PostForm("comment"))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (h *FileHandler) Update(c *gin.Context) {
	h.update(c, false)
}

func (h *FileHandler) PartialUpdate(c *gin.Context) {
	h.update(c, true)
}

func (h *FileHandler) update(c *gin.Context, partial bool) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := fileID(c)
	if !ok {
		return
	}

	var in fileService.UpdateInput
	if c.ContentType() == gin.MIMEJSON {
		var body struct {
			Comment *string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			respond.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Malformed JSON body.")
			return
		}
		in.Comment = body.Comment
	} else {
		upload, closeUpload, err := formUpload(c)
		if err != nil {
			respond.FromError(c, err)
			return
		}
		defer closeUpload()
		in.Upload = upload
		if comment, ok := c.GetPostForm("comment"); ok {
			in.Comment = &comment
		}
	}

	file, err := h.fileService.Update(c.Request.Context(), p, id, in, partial)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *FileHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := fileID(c)
	if !ok {
		return
	}
	if err := h.fileService.Delete(c.Request.Context(), p, id); err != nil {
		respond.FromError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FileHandler) IssueShortLink(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := fileID(c)
	if !ok {
		return
	}
	file, err := h.fileService.IssueShortLink(c.Request.Context(), p, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, shortLinkResponse{ShortLink: file.ShortLink})
}

func (h *FileHandler) ClearShortLink(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := fileID(c)
	if !ok {
		return
	}
	file, err := h.fileService.ClearShortLink(c.Request.Context(), p, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, shortLinkResponse{ShortLink: file.ShortLink})
}

func (h *FileHandler) Download(c *gin.Context) {
	p, _ := middleware.PrincipalFrom(c)
	id, ok := fileID(c)
	if !ok {
		return
	}
	d, err := h.fileService.DownloadByID(c.Request.Context(), p, id)
	if err != nil {
		respond.FromError(c, err)
		return
	}
	serve(c, d)
}

func (h *FileHandler) DownloadByShortLink(c *gin.Context) {
	d, err := h.fileService.DownloadByShortLink(c.Request.Context(), c.Param("short_link"))
	if err != nil {
		respond.FromError(c, err)
		return
	}
	serve(c, d)
}

func serve(c *gin.Context, d *fileService.Download) {
	defer func() {
		if err := d.Body.Close(); err != nil {
			logger.GetLogger(c.Request.Context()).Warn("close blob", zap.Error(err))
		}
	}()

	contentType := mime.TypeByExtension(path.Ext(d.File.OriginalName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, d.Size, contentType, d.Body, map[string]string{
		"Content-Disposition":           mime.FormatMediaType("attachment", map[string]string{"filename": d.File.OriginalName}),
		"Access-Control-Expose-Headers": "Content-Disposition",
	})
}

// formUpload reads the multipart "file" field. A missing field yields a nil
// upload; the caller decides whether that is an error.
func formUpload(c *gin.Context) (*fileService.Upload, func(), error) {
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, nil, apperr.NewValidationError("file", "The submitted data was not a file.")
	}
	return openUpload(fh)
}

func openUpload(fh *multipart.FileHeader) (*fileService.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, apperr.NewValidationError("file", "The submitted file could not be read.")
	}
	return &fileService.Upload{Name: fh.Filename, Size: fh.Size, Body: f}, func() { _ = f.Close() }, nil
}

func principal(c *gin.Context) (user.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided.")
		return user.Principal{}, false
	}
	return *p, true
}

// fileID parses the :id segment. Malformed ids are indistinguishable from
// missing records.
func fileID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found.")
		return uuid.Nil, false
	}
	return id, true
}

// pageParams ignores malformed values and falls back to the defaults.
func pageParams(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return fileService.NormalizePage(limit, offset)
}

func newPage(c *gin.Context, res *fileService.ListResult) page {
	p := page{Count: res.Total, Results: res.Files}
	if p.Results == nil {
		p.Results = []*fileInfo.File{}
	}
	if res.Offset+res.Limit < res.Total {
		next := pageURL(c, res.Limit, res.Offset+res.Limit)
		p.Next = &next
	}
	if res.Offset > 0 {
		prev := pageURL(c, res.Limit, max(res.Offset-res.Limit, 0))
		p.Previous = &prev
	}
	return p
}

func pageURL(c *gin.Context, limit, offset int) string {
	u := *c.Request.URL
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	} else {
		q.Del("offset")
	}
	u.RawQuery = q.Encode()
	u.Host = c.Request.Host
	u.Scheme = "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		u.Scheme = "https"
	}
	return u.String()
}
