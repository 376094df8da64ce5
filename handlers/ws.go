package handlers

import (
	"bytes"
	"context"
	"errdash/config"
	"errdash/dashboard"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const cardsWriteTimeout = 5 * time.Second

var cardsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

type cardsPayload struct {
	Type         string    `json:"type"`
	GeneratedAt  time.Time `json:"generated_at"`
	ActiveStatus string    `json:"active_status"`
	Visible      int       `json:"visible"`
	Total        int       `json:"total"`
	HTML         string    `json:"html"`
}

// CardsWS pushes the card list after every load of the session and reloads
// it on the configured interval.
func CardsWS(c *gin.Context) {
	ctrl := controllerFrom(c)
	conn, err := cardsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	interval := time.Duration(config.Settings.WSPushIntervalSeconds) * time.Second
	serveCardsConnection(conn, ctrl, interval)
}

func serveCardsConnection(conn *websocket.Conn, ctrl *dashboard.Controller, interval time.Duration) {
	defer conn.Close()

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	if err := writeCardsPayload(conn, buildCardsPayload(ctrl)); err != nil {
		return
	}

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-done
		cancel()
	}()

	for {
		select {
		case <-tick:
			// a successful reload signals updates
			_ = ctrl.Reload(ctx)
		case <-updates:
			if err := writeCardsPayload(conn, buildCardsPayload(ctrl)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func buildCardsPayload(ctrl *dashboard.Controller) cardsPayload {
	cards := ctrl.Cards()
	var buf bytes.Buffer
	_ = dashboard.RenderCards(&buf, cards)
	return cardsPayload{
		Type:         "cards",
		GeneratedAt:  time.Now().UTC(),
		ActiveStatus: ctrl.ActiveStatus(),
		Visible:      dashboard.CountVisible(cards),
		Total:        len(cards),
		HTML:         buf.String(),
	}
}

func writeCardsPayload(conn *websocket.Conn, payload cardsPayload) error {
	_ = conn.SetWriteDeadline(time.Now().Add(cardsWriteTimeout))
	return conn.WriteJSON(payload)
}
