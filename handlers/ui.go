package handlers

import (
	"bytes"
	"errdash/dashboard"
	"errdash/models"
	"errdash/service"
	"errdash/version"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SessionCookie names the cookie that maps a browser to its dashboard view
const SessionCookie = "errdash_session"

const (
	ctxControllerKey = "errdash.controller"
	pageTitle        = "Error Tracking Dashboard"
	wsPath           = "/ws"
)

// SessionMiddleware attaches the caller's dashboard controller to the context
func SessionMiddleware(c *gin.Context) {
	cookie, _ := c.Cookie(SessionCookie)
	id, ctrl, created := service.GlobalServices.Session(cookie)
	if created {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
	}
	c.Set(ctxControllerKey, ctrl)
	c.Next()
}

func controllerFrom(c *gin.Context) *dashboard.Controller {
	if v, ok := c.Get(ctxControllerKey); ok {
		if ctrl, ok := v.(*dashboard.Controller); ok {
			return ctrl
		}
	}
	_, ctrl, _ := service.GlobalServices.Session("")
	return ctrl
}

// filtersFromQuery returns the filters in the query string, if any were given
func filtersFromQuery(c *gin.Context) (dashboard.Filters, bool) {
	var f dashboard.Filters
	present := false
	for _, key := range []string{"severity", "component", "search", "source"} {
		if _, ok := c.GetQuery(key); ok {
			present = true
		}
	}
	if !present {
		return f, false
	}
	_ = c.ShouldBindQuery(&f)
	return f, true
}

func writeHTML(c *gin.Context, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		c.String(http.StatusInternalServerError, "render failed: %v", err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func writeCards(c *gin.Context, ctrl *dashboard.Controller) {
	cards := ctrl.Cards()
	c.Header("X-Visible-Count", strconv.Itoa(dashboard.CountVisible(cards)))
	c.Header("X-Active-Status", ctrl.ActiveStatus())
	writeHTML(c, func(buf *bytes.Buffer) error {
		return dashboard.RenderCards(buf, cards)
	})
}

// Index renders the full dashboard. Query parameters seed the view.
func Index(c *gin.Context) {
	ctrl := controllerFrom(c)
	if f, ok := filtersFromQuery(c); ok {
		ctrl.SetFilters(f)
	}
	status := c.Query("status")
	if status == "" {
		status = ctrl.ActiveStatus()
	}

	ctx := c.Request.Context()
	// failures are already in the diagnostics log; the page renders what it has
	if err := ctrl.Navigate(ctx, status); errors.Is(err, dashboard.ErrUnknownStatus) {
		_ = ctrl.Navigate(ctx, models.StatusAll)
	}
	_, _ = ctrl.RefreshStats(ctx)

	page := ctrl.Page(pageTitle, wsPath, version.GetVersion())
	writeHTML(c, func(buf *bytes.Buffer) error {
		return dashboard.RenderPage(buf, page)
	})
}

// Cards re-applies the filters in the query to the retained batch
func Cards(c *gin.Context) {
	ctrl := controllerFrom(c)
	var f dashboard.Filters
	if err := c.ShouldBindQuery(&f); err != nil {
		c.String(http.StatusBadRequest, "invalid filters: %v", err)
		return
	}
	ctrl.SetFilters(f)
	writeCards(c, ctrl)
}

// Navigate switches the active tab and returns the refreshed cards
func Navigate(c *gin.Context) {
	ctrl := controllerFrom(c)
	if err := ctrl.Navigate(c.Request.Context(), c.Param("status")); errors.Is(err, dashboard.ErrUnknownStatus) {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	writeCards(c, ctrl)
}

// Reload fetches the active tab again
func Reload(c *gin.Context) {
	ctrl := controllerFrom(c)
	_ = ctrl.Reload(c.Request.Context())
	writeCards(c, ctrl)
}

// ShowDetail renders the detail view of one record from the current batch
func ShowDetail(c *gin.Context) {
	id, err := dashboard.ParseID(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}
	detail, err := controllerFrom(c).OpenDetail(id)
	if err != nil {
		if errors.Is(err, dashboard.ErrRecordNotFound) || errors.Is(err, dashboard.ErrNotLoaded) {
			c.String(http.StatusNotFound, err.Error())
			return
		}
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	writeHTML(c, func(buf *bytes.Buffer) error {
		return dashboard.RenderDetail(buf, detail)
	})
}

// CloseDetail dismisses the detail view
func CloseDetail(c *gin.Context) {
	controllerFrom(c).CloseDetail()
	c.Status(http.StatusNoContent)
}

// ResolveError submits the resolution text the browser prompted for.
// Empty text means the prompt was cancelled: nothing is sent. Only the
// record in the open detail view can be resolved.
func ResolveError(c *gin.Context) {
	id, err := dashboard.ParseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	resolution := c.PostForm("resolution")
	if resolution == "" {
		c.Status(http.StatusNoContent)
		return
	}

	outcome, err := controllerFrom(c).SubmitOpenResolution(c.Request.Context(), id, resolution)
	if errors.Is(err, dashboard.ErrNotOpenDetail) {
		c.JSON(http.StatusConflict, gin.H{"closed": false, "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"closed":  outcome == dashboard.ResolveCompleted,
		"outcome": outcome.String(),
	})
}

// collectingAlerter keeps the alert so it can be returned to the browser
type collectingAlerter struct {
	message string
}

func (a *collectingAlerter) Alert(message string) {
	a.message = message
}

// Sync triggers a backend sync for this session
func Sync(c *gin.Context) {
	ctrl := controllerFrom(c)
	alerter := &collectingAlerter{}

	outcome, err := ctrl.Sync(c.Request.Context(), alerter)
	if errors.Is(err, dashboard.ErrSyncInProgress) {
		c.JSON(http.StatusOK, gin.H{
			"ignored":  true,
			"alert":    "",
			"reloaded": false,
			"button":   ctrl.SyncState(),
		})
		return
	}

	resp := gin.H{
		"ignored":  false,
		"alert":    alerter.message,
		"outcome":  outcome.Kind.String(),
		"reloaded": outcome.Reload,
		"button":   ctrl.SyncState(),
	}
	if outcome.Reload {
		cards := ctrl.Cards()
		var buf bytes.Buffer
		if err := dashboard.RenderCards(&buf, cards); err == nil {
			resp["active_status"] = ctrl.ActiveStatus()
			resp["visible"] = dashboard.CountVisible(cards)
			resp["total"] = len(cards)
			resp["html"] = buf.String()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// CloseSession drops the caller's dashboard view when the page goes away
func CloseSession(c *gin.Context) {
	if id, err := c.Cookie(SessionCookie); err == nil {
		service.GlobalServices.CloseSession(id)
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}
