package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/sneakyspeak/internal/upload"
)

type UploadHandler struct {
	uploader upload.Uploader
}

func NewUploadHandler(uploader upload.Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// UploadMeme stores a meme image and returns its public URL.
func (h *UploadHandler) UploadMeme(c *gin.Context) {
	header, err := c.FormFile("meme")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "no file uploaded"})
		return
	}

	if header.Size > upload.MaxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file too large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "could not read file"})
		return
	}
	defer file.Close()

	fileURL, err := h.uploader.Upload(c.Request.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, upload.ErrNotAnImage) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "only image uploads are allowed"})
			return
		}
		log.Printf("meme upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "upload failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "fileUrl": fileURL})
}
