package main

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/auth"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/models"
	"github.com/noim73-gif/journal-of-yemeni-association-of-plastic-reconstructive-and-burns-surgeons-sub000/services"
)

// setupSubmissionRoutes konfiguriert die Routen für Autoren.
func setupSubmissionRoutes(rg *gin.RouterGroup, submissions *services.SubmissionService, roles *services.RoleService, maxUpload int64, log *zap.Logger) {
	g := rg.Group("/submissions")

	// loadVisible lädt die Einreichung, wenn der Nutzer Autor oder Redaktion ist.
	loadVisible := func(c *gin.Context) (*models.Submission, bool) {
		sub, err := submissions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err, "load submission")
			return nil, false
		}
		if sub.UserID == auth.UserID(c) {
			return sub, true
		}
		staff, err := roles.HasAnyRole(c.Request.Context(), auth.UserID(c), models.StaffRoles...)
		if err != nil {
			respondError(c, log, err, "check roles")
			return nil, false
		}
		if !staff {
			c.JSON(http.StatusForbidden, gin.H{"error": "not your submission"})
			return nil, false
		}
		return sub, true
	}

	g.POST("", func(c *gin.Context) {
		var req services.CreateSubmissionInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		sub, err := submissions.Create(c.Request.Context(), auth.UserID(c), req)
		if err != nil {
			respondError(c, log, err, "create submission")
			return
		}
		c.JSON(http.StatusCreated, sub)
	})

	g.GET("/mine", func(c *gin.Context) {
		subs, err := submissions.ListByUser(c.Request.Context(), auth.UserID(c))
		if err != nil {
			respondError(c, log, err, "load submissions")
			return
		}
		c.JSON(http.StatusOK, subs)
	})

	g.GET("/:id", func(c *gin.Context) {
		sub, ok := loadVisible(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, sub)
	})

	// Autorensicht der abgeschlossenen Gutachten (ohne Gutachter und interne Notizen)
	g.GET("/:id/feedback", func(c *gin.Context) {
		sub, ok := loadVisible(c)
		if !ok {
			return
		}
		feedback, err := submissions.FeedbackForAuthor(c.Request.Context(), sub.ID)
		if err != nil {
			respondError(c, log, err, "load feedback")
			return
		}
		c.JSON(http.StatusOK, feedback)
	})

	g.POST("/:id/files/:kind", func(c *gin.Context) {
		sub, err := submissions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err, "load submission")
			return
		}
		if sub.UserID != auth.UserID(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not your submission"})
			return
		}
		data, filename, contentType, ok := readUpload(c, maxUpload)
		if !ok {
			return
		}
		updated, err := submissions.AttachFile(c.Request.Context(), sub.ID, services.FileKind(c.Param("kind")), filename, contentType, data)
		if err != nil {
			respondError(c, log, err, "upload file")
			return
		}
		c.JSON(http.StatusOK, updated)
	})
}

// multipartOverhead ist der Spielraum für Boundaries und Part-Header über dem Dateilimit.
const multipartOverhead = 64 << 10

// readUpload liest das Multipart-Feld "file" mit Größenlimit. Der Body wird schon vor
// dem Parsen begrenzt.
func readUpload(c *gin.Context, maxBytes int64) ([]byte, string, string, bool) {
	if maxBytes > 0 {
		limit := maxBytes + multipartOverhead
		if c.Request.ContentLength > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return nil, "", "", false
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return nil, "", "", false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return nil, "", "", false
	}
	if maxBytes > 0 && header.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return nil, "", "", false
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return nil, "", "", false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read file"})
		return nil, "", "", false
	}
	return data, header.Filename, header.Header.Get("Content-Type"), true
}
