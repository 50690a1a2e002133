package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/westtrac/parts-insights/internal/domain"
	"github.com/westtrac/parts-insights/internal/export"
	"github.com/westtrac/parts-insights/internal/seasonal"
	"github.com/westtrac/parts-insights/internal/service"
	"github.com/westtrac/parts-insights/internal/storage"
)

type SeasonalHandler struct {
	service *service.SeasonalService
	storage storage.ObjectStorage
}

// NewSeasonalHandler creates the handler. objectStorage may be nil, which
// disables uploading exports.
func NewSeasonalHandler(service *service.SeasonalService, objectStorage storage.ObjectStorage) *SeasonalHandler {
	return &SeasonalHandler{service: service, storage: objectStorage}
}

type analysisResponse struct {
	Levels      map[domain.Level]map[string]domain.SeasonalPattern `json:"levels"`
	Failures    []domain.EntityFailure                             `json:"failures"`
	RecordCount int                                                `json:"record_count"`
	GeneratedAt time.Time                                          `json:"generated_at"`
}

type patternsResponse struct {
	Level    domain.Level                      `json:"level"`
	BuiltAt  *time.Time                        `json:"built_at"`
	Patterns map[string]domain.SeasonalPattern `json:"patterns"`
	Failures []domain.EntityFailure            `json:"failures"`
}

func (h *SeasonalHandler) GetAnalysis(c *gin.Context) {
	filter, err := parseUsageFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	analysis, err := h.service.Analyze(c.Request.Context(), filter)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	resp := analysisResponse{
		Levels:      make(map[domain.Level]map[string]domain.SeasonalPattern, len(domain.Levels)),
		Failures:    analysis.Failures(),
		RecordCount: analysis.RecordCount,
		GeneratedAt: analysis.GeneratedAt,
	}
	for _, level := range domain.Levels {
		patterns := analysis.Levels[level].Patterns
		if patterns == nil {
			patterns = map[string]domain.SeasonalPattern{}
		}
		resp.Levels[level] = patterns
	}
	if resp.Failures == nil {
		resp.Failures = []domain.EntityFailure{}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SeasonalHandler) GetPatterns(c *gin.Context) {
	level, ok := domain.ParseLevel(c.Param("level"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown level %q", c.Param("level"))})
		return
	}

	resp := patternsResponse{
		Level:    level,
		Patterns: h.service.Patterns(level),
		Failures: h.service.Failures(level),
	}
	if builtAt := h.service.BuiltAt(level); !builtAt.IsZero() {
		resp.BuiltAt = &builtAt
	}
	if resp.Failures == nil {
		resp.Failures = []domain.EntityFailure{}
	}

	c.JSON(http.StatusOK, resp)
}

// GetRecommendation returns the advice for one entity. The level query
// parameter selects part (default), category or global.
func (h *SeasonalHandler) GetRecommendation(c *gin.Context) {
	level := domain.LevelPart
	if raw := strings.TrimSpace(c.Query("level")); raw != "" {
		parsed, ok := domain.ParseLevel(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown level %q", raw)})
			return
		}
		level = parsed
	}

	entityID := strings.TrimSpace(c.Param("entity"))
	c.JSON(http.StatusOK, h.service.Recommend(level, entityID))
}

func (h *SeasonalHandler) GetCombinedRecommendation(c *gin.Context) {
	part := strings.TrimSpace(c.Param("entity"))
	c.JSON(http.StatusOK, h.service.RecommendCombined(c.Request.Context(), part))
}

func (h *SeasonalHandler) GetFilterOptions(c *gin.Context) {
	opts, err := h.service.GetFilterOptions(c.Request.Context())
	if err != nil {
		respondAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// ExportWorkbook analyzes the filtered usage and streams the result as xlsx.
// With upload=true the workbook is stored in object storage instead.
func (h *SeasonalHandler) ExportWorkbook(c *gin.Context) {
	filter, err := parseUsageFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upload, err := strconv.ParseBool(c.DefaultQuery("upload", "false"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid upload: %q", c.Query("upload"))})
		return
	}
	if upload && h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is not configured"})
		return
	}

	analysis, err := h.service.Analyze(c.Request.Context(), filter)
	if err != nil {
		respondAnalysisError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePatternsWorkbook(&buf, analysis, h.service.Locale()); err != nil {
		log.Error().Err(err).Msg("seasonal: export workbook failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build workbook"})
		return
	}

	name := export.FileName(analysis.GeneratedAt)
	if upload {
		if err := h.storage.UploadObject(c.Request.Context(), name, buf.Bytes()); err != nil {
			log.Error().Err(err).Str("key", name).Msg("seasonal: export upload failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to upload workbook"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"key": name, "size": buf.Len()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// ListExports returns the uploaded workbooks, newest first.
func (h *SeasonalHandler) ListExports(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is not configured"})
		return
	}

	objects, err := h.storage.ListObjects(c.Request.Context(), "")
	if err != nil {
		log.Error().Err(err).Msg("seasonal: listing exports failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to list exports"})
		return
	}
	sort.Slice(objects, func(i, j int) bool {
		if !objects[i].LastModified.Equal(objects[j].LastModified) {
			return objects[i].LastModified.After(objects[j].LastModified)
		}
		return objects[i].Key > objects[j].Key
	})

	c.JSON(http.StatusOK, gin.H{"exports": objects})
}

// DownloadExport streams one uploaded workbook back to the client.
func (h *SeasonalHandler) DownloadExport(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage is not configured"})
		return
	}

	name := c.Param("name")
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid export name %q", name)})
		return
	}

	dir, err := os.MkdirTemp("", "seasonal-export-")
	if err != nil {
		log.Error().Err(err).Msg("seasonal: temp dir for export download failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer os.RemoveAll(dir)

	dest := filepath.Join(dir, name)
	if err := h.storage.DownloadObject(c.Request.Context(), name, dest); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("export %q not found", name)})
			return
		}
		log.Error().Err(err).Str("key", name).Msg("seasonal: export download failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to download export"})
		return
	}

	c.FileAttachment(dest, name)
}

func (h *SeasonalHandler) InvalidateCache(c *gin.Context) {
	if err := h.service.InvalidateCache(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("seasonal: cache invalidation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate cache"})
		return
	}
	c.Status(http.StatusNoContent)
}

func respondAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInputTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoUsageSource):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("seasonal: request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// parseUsageFilter reads from, to, year, clients, categories, parts and
// exclude_zero_invoices. List parameters accept both repeated values and
// comma-separated lists.
func parseUsageFilter(c *gin.Context) (domain.UsageFilter, error) {
	var filter domain.UsageFilter

	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1900 || year > 9999 {
			return filter, fmt.Errorf("invalid year %q", raw)
		}
		from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(1, 0, 0)
		filter.From, filter.To = &from, &to
	}

	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err := seasonal.ParseDate(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid from: %w", err)
		}
		filter.From = &from
	}

	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err := seasonal.ParseDate(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid to: %w", err)
		}
		filter.To = &to
	}

	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return filter, fmt.Errorf("from must be before to")
	}

	filter.Clients = queryList(c, "clients")
	filter.Categories = queryList(c, "categories")
	filter.PartNumbers = queryList(c, "parts")

	if raw := strings.TrimSpace(c.Query("exclude_zero_invoices")); raw != "" {
		exclude, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("invalid exclude_zero_invoices %q", raw)
		}
		filter.ExcludeZeroInvoices = exclude
	}

	return filter, nil
}

// queryList flattens ?k=a&k=b and ?k=a,b into one list.
func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
