// Package backup dumps and restores the catalog collections. Archives carry
// each collection as BSON (compatible with dumps of the legacy bot's MongoDB)
// plus a readable JSON rendition.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plughub/core/internal/config"
	"github.com/plughub/core/internal/models"
	"github.com/plughub/core/internal/modules/catalog/index"
	"github.com/plughub/core/internal/modules/catalog/store"
	"github.com/plughub/core/internal/pkg/response"
)

var collections = []string{models.CollectionPlugins, models.CollectionIconPacks}

// Handler handles backup/restore endpoints.
type Handler struct {
	store     store.Store
	index     *index.Service
	cfg       *config.AppConfig
	backupDir string
}

func NewHandler(st store.Store, idx *index.Service, cfg *config.AppConfig) *Handler {
	return &Handler{store: st, index: idx, cfg: cfg, backupDir: cfg.BackupDir()}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/backups", authMW)

	g.GET("", h.list)
	g.GET("/new", h.createAndDownload)
	g.GET("/:filename", h.download)
	g.POST("", h.uploadAndRestore)
	g.POST("/upload-to-s3", h.uploadToS3)
	g.PATCH("/:filename", h.rollback)
	g.DELETE("/:filename", h.deleteOne)
}

type backupItem struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
}

// GET /backups
func (h *Handler) list(c *gin.Context) {
	response.OK(c, h.listBackups())
}

func (h *Handler) listBackups() []backupItem {
	items := []backupItem{}
	if err := os.MkdirAll(h.backupDir, 0o755); err != nil {
		return items
	}
	entries, err := os.ReadDir(h.backupDir)
	if err != nil {
		return items
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, backupItem{Filename: e.Name(), Size: formatSize(info.Size())})
	}
	return items
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// GET /backups/new
func (h *Handler) createAndDownload(c *gin.Context) {
	artifact, err := h.createLocalBackupArtifact(c.Request.Context(), time.Now())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename))
	c.Data(http.StatusOK, "application/zip", artifact.Buffer.Bytes())
}

// GET /backups/:filename
func (h *Handler) download(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	if !strings.HasSuffix(filename, ".zip") {
		response.BadRequest(c, "invalid filename")
		return
	}
	data, err := os.ReadFile(filepath.Join(h.backupDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/zip", data)
}

// POST /backups — upload an archive and restore from it. Accepts this
// service's own archives and raw mongodump .bson files from the legacy bot.
func (h *Handler) uploadAndRestore(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	if err := h.restore(c.Request.Context(), data, file.Filename); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, gin.H{"message": "restore successful"})
}

// PATCH /backups/:filename — restore from an archive already on disk.
func (h *Handler) rollback(c *gin.Context) {
	filename := filepath.Base(c.Param("filename"))
	data, err := os.ReadFile(filepath.Join(h.backupDir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	if err := h.restore(c.Request.Context(), data, filename); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, gin.H{"message": "rollback successful"})
}

// DELETE /backups/:filename
func (h *Handler) deleteOne(c *gin.Context) {
	filename := strings.TrimSpace(filepath.Base(c.Param("filename")))
	if filename == "" || !strings.HasSuffix(filename, ".zip") {
		response.BadRequest(c, "invalid filename")
		return
	}
	_ = os.Remove(filepath.Join(h.backupDir, filename))
	response.NoContent(c)
}

// POST /backups/upload-to-s3
func (h *Handler) uploadToS3(c *gin.Context) {
	if !h.cfg.S3.Enabled() {
		response.BadRequest(c, "s3 is not configured")
		return
	}
	uploader, err := newS3Uploader(h.cfg.S3)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	now := time.Now()
	artifact, err := h.createLocalBackupArtifact(c.Request.Context(), now)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	key := fmt.Sprintf("backups/%s/%s", now.Format("2006/01"), artifact.Filename)
	location, err := uploader.Upload(c.Request.Context(), key, artifact.Buffer.Bytes(), "application/zip")
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"url": location})
}

// CreateLocalBackup writes a fresh archive to the backup directory and prunes
// copies older than keep. Used by the scheduled backup job.
func (h *Handler) CreateLocalBackup(ctx context.Context, keep int) (string, error) {
	artifact, err := h.createLocalBackupArtifact(ctx, time.Now())
	if err != nil {
		return "", err
	}
	if keep > 0 {
		h.pruneOldBackups(keep)
	}
	return artifact.Filename, nil
}

// pruneOldBackups keeps only the newest keep archives. Filenames embed the
// creation timestamp, so lexicographic order is chronological.
func (h *Handler) pruneOldBackups(keep int) {
	entries, err := os.ReadDir(h.backupDir)
	if err != nil {
		return
	}
	names := []string{}
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "backup-") && strings.HasSuffix(e.Name(), ".zip") {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return
	}
	sort.Strings(names)
	for _, name := range names[:len(names)-keep] {
		_ = os.Remove(filepath.Join(h.backupDir, name))
	}
}

type backupArtifact struct {
	Filename string
	Path     string
	Buffer   *bytes.Buffer
}

func (h *Handler) createLocalBackupArtifact(ctx context.Context, now time.Time) (*backupArtifact, error) {
	buf, err := h.createBackupZip(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(h.backupDir, 0o755); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("backup-%s.zip", now.Format("2006-01-02T15-04-05"))
	path := filepath.Join(h.backupDir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return &backupArtifact{Filename: filename, Path: path, Buffer: buf}, nil
}
