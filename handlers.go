package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/moalmatry/invoice-scanner/pkg/ocr"
)

func setupRoutes(r *gin.Engine) {
	r.GET("/healthz", healthzHandler)
	r.POST("/login", loginHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.POST("/scan", scanHandler)
	authGroup.POST("/scan/text", scanTextHandler)
}

func healthzHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// scanHandler accepts a multipart image upload, recognizes its text and
// returns the price extraction result. The image is discarded after the scan;
// nothing is persisted.
func scanHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > 5*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 5MB)"})
		return
	}
	dir := uploadBaseDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return
	}
	fullPath := filepath.Join(dir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	defer os.Remove(fullPath)

	lines, err := recognizer.Recognize(fullPath)
	if err != nil {
		if errors.Is(err, ocr.ErrNoText) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no text recognized in image"})
			return
		}
		log.Printf("scan: recognition failed for %s: %v", file.Filename, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "recognition failed"})
		return
	}
	c.JSON(http.StatusOK, parser.ParseLines(lines))
}

// scanTextHandler runs only the parser over text supplied by a client that
// already has OCR output, either as ordered lines or one joined string.
func scanTextHandler(c *gin.Context) {
	var req struct {
		Lines []string `json:"lines"`
		Text  string   `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Lines) > 0 {
		c.JSON(http.StatusOK, parser.ParseLines(req.Lines))
		return
	}
	c.JSON(http.StatusOK, parser.Parse(req.Text))
}

// uploadBaseDir returns the scratch directory for in-flight uploads.
func uploadBaseDir() string {
	if d := os.Getenv("UPLOAD_BASE"); d != "" {
		return d
	}
	return filepath.Join(os.TempDir(), "invoice-scanner")
}
