package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ghtracker/internal/report"
	"ghtracker/internal/storage"
	"ghtracker/pkg/logx"
)

// Handler serves dashboard queries straight from the store and the reports
// directory.
type Handler struct {
	store   *storage.Store
	reports *report.Writer
	log     logx.Logger

	started time.Time
}

func NewHandler(store *storage.Store, reports *report.Writer, log logx.Logger) *Handler {
	return &Handler{store: store, reports: reports, log: log, started: time.Now()}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// ListRepos returns every repo that has at least one stored summary.
func (h *Handler) ListRepos(c *gin.Context) {
	names, err := h.store.TrackedRepos(c.Request.Context())
	if err != nil {
		h.log.Error("repo listing failed", logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"repos": names, "total": len(names)})
}

// ListSummaries supports ?repo=owner/name&from=YYYY-MM-DD&to=YYYY-MM-DD&limit=N.
func (h *Handler) ListSummaries(c *gin.Context) {
	filter := storage.SummaryFilter{
		FullName: c.Query("repo"),
		From:     c.Query("from"),
		To:       c.Query("to"),
	}
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return
		}
	}

	summaries, err := h.store.AllSummaries(c.Request.Context(), filter)
	if err != nil {
		h.log.Error("summary listing failed", logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		if n < len(summaries) {
			summaries = summaries[:n]
		}
	}

	items := make([]gin.H, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, gin.H{
			"repo":          s.FullName,
			"date":          s.Date,
			"type":          s.Kind,
			"content":       s.Content,
			"pr_count":      s.PRCount,
			"release_count": s.ReleaseCount,
			"created_at":    s.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"summaries": items, "total": len(items)})
}

// ListReports lists generated report files, optionally scoped with ?repo=.
func (h *Handler) ListReports(c *gin.Context) {
	infos, err := h.reports.List(c.Query("repo"))
	if err != nil {
		h.log.Error("report listing failed", logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "report listing failed"})
		return
	}
	if infos == nil {
		infos = []report.Info{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": infos, "total": len(infos)})
}
