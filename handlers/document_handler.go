package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mehtasarang17/dockguard-ai/service"
)

// DocumentHandler handles HTTP requests for documents
type DocumentHandler struct {
	documents   DocumentManager
	maxFileSize int64
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents DocumentManager, maxFileSize int64) *DocumentHandler {
	return &DocumentHandler{
		documents:   documents,
		maxFileSize: maxFileSize,
	}
}

// UploadDocument handles POST /api/documents/upload
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	content, filename, ok := readUpload(c, h.maxFileSize)
	if !ok {
		return
	}

	doc, err := h.documents.Upload(c.Request.Context(), service.UploadDocumentRequest{
		Filename:     filename,
		DocumentType: c.PostForm("document_type"),
		Content:      content,
	})
	if err != nil {
		respondServiceError(c, err, "UPLOAD_FAILED")
		return
	}

	respondOK(c, http.StatusCreated, doc)
}

// ListDocuments handles GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "RETRIEVAL_FAILED")
		return
	}
	respondOK(c, http.StatusOK, docs)
}

// GetDocument handles GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, ok := parseID(c, "document")
	if !ok {
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "RETRIEVAL_FAILED")
		return
	}
	respondOK(c, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id, ok := parseID(c, "document")
	if !ok {
		return
	}

	if err := h.documents.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "DELETE_FAILED")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"id": id, "deleted": true})
}

// readUpload reads the multipart "file" field, enforcing maxSize
func readUpload(c *gin.Context, maxSize int64) ([]byte, string, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return nil, "", false
	}

	if fileHeader.Size > maxSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", maxSize))
		return nil, "", false
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_OPEN_ERROR", err.Error())
		return nil, "", false
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "FILE_READ_ERROR", err.Error())
		return nil, "", false
	}
	if int64(len(content)) > maxSize {
		respondError(c, http.StatusBadRequest, "FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum of %d bytes", maxSize))
		return nil, "", false
	}
	if len(content) == 0 {
		respondError(c, http.StatusBadRequest, "EMPTY_FILE", "File is empty")
		return nil, "", false
	}
	return content, fileHeader.Filename, true
}
