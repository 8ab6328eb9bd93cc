package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/service"
)

// UploadFiles stores claim attachments and returns their paths.
// POST /api/v1/files/upload
func (h *Handler) UploadFiles(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "multipart form required"})
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no files uploaded"})
	}

	files := make([]*service.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			return writeError(c, err)
		}
		saved, err := h.service.SaveUpload(fh.Filename, src)
		src.Close()
		if err != nil {
			return writeError(c, err)
		}
		files = append(files, saved)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"files":   files,
	})
}

// UploadDocument stores a knowledge document.
// POST /api/v1/documents/upload
func (h *Handler) UploadDocument(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}
	autoIndex, _ := strconv.ParseBool(c.FormValue("auto_index"))

	src, err := fh.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer src.Close()

	doc, err := h.service.UploadDocument(c.Request().Context(), service.UploadDocumentInput{
		Filename:  fh.Filename,
		Category:  domain.DocumentCategory(c.FormValue("category")),
		Body:      src,
		AutoIndex: autoIndex,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"document": doc,
	})
}

// ListDocuments lists uploaded documents, newest first.
// GET /api/v1/documents
func (h *Handler) ListDocuments(c echo.Context) error {
	indexedOnly, _ := strconv.ParseBool(c.QueryParam("indexed_only"))
	docs, err := h.service.ListDocuments(c.Request().Context(), domain.DocumentCategory(c.QueryParam("category")), indexedOnly)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
	})
}

// GetDocument returns document metadata, and its text with include_content.
// GET /api/v1/documents/:document_id
func (h *Handler) GetDocument(c echo.Context) error {
	includeContent, _ := strconv.ParseBool(c.QueryParam("include_content"))
	doc, err := h.service.GetDocument(c.Request().Context(), c.Param("document_id"), includeContent)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// DownloadDocument sends the stored file.
// GET /api/v1/documents/:document_id/download
func (h *Handler) DownloadDocument(c echo.Context) error {
	doc, err := h.service.DocumentFile(c.Request().Context(), c.Param("document_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Attachment(doc.Path, doc.Filename)
}

// DeleteDocument removes a document and its indexed chunks.
// DELETE /api/v1/documents/:document_id
func (h *Handler) DeleteDocument(c echo.Context) error {
	id := c.Param("document_id")
	if err := h.service.DeleteDocument(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":     true,
		"document_id": id,
	})
}

// IndexDocument adds one document to the knowledge index.
// POST /api/v1/documents/:document_id/index
func (h *Handler) IndexDocument(c echo.Context) error {
	id := c.Param("document_id")
	indexed, err := h.service.IndexDocument(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	resp := map[string]interface{}{
		"success":     indexed,
		"document_id": id,
		"indexed":     indexed,
	}
	if !indexed {
		resp["message"] = "document format cannot be indexed"
	}
	return c.JSON(http.StatusOK, resp)
}
