// Package handlers implements the HTTP control plane of spec §6: sessions,
// messages, conversations, analytics, contacts, reports, correlations, and
// notifications, all tenant-scoped by the auth middleware's TenantContext.
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"whatsapp-api/internal/metrics"
	"whatsapp-api/internal/storage"
)

// pageFromQuery parses ?page&perPage into a storage.Page, defaulting to
// page 1 / 20 per page.
func pageFromQuery(c *gin.Context) storage.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "20"))
	if page < 1 {
		page = 1
	}
	return storage.Page{Page: page, PerPage: perPage}
}

// windowFromQuery parses ?start&end (RFC3339 or unix millis) into a
// metrics.Window, defaulting to the trailing 30 days.
func windowFromQuery(c *gin.Context) metrics.Window {
	now := time.Now()
	w := metrics.Window{Start: now.AddDate(0, 0, -30), End: now}
	if s := c.Query("start"); s != "" {
		if t, err := parseTimeParam(s); err == nil {
			w.Start = t
		}
	}
	if e := c.Query("end"); e != "" {
		if t, err := parseTimeParam(e); err == nil {
			w.End = t
		}
	}
	return w
}

func parseTimeParam(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	return time.Parse(time.RFC3339, s)
}
