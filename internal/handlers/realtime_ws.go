package handlers

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"

	"github.com/PortNumber53/brandhub/internal/models"
	"github.com/PortNumber53/brandhub/internal/platforms"
)

// teamFeed is one team's event stream. Seq grows by one for every published event, so an unfiltered
// calendar that sees a gap in seq has missed a change and refetches its window.
type teamFeed struct {
	seq  uint64
	subs map[*websocket.Conn]subscriber
}

// subscriber is an open calendar. An empty only set means every platform.
type subscriber struct {
	only map[platforms.Platform]bool
}

func (s subscriber) wants(ev realtimeEvent) bool {
	return ev.Platform == "" || len(s.only) == 0 || s.only[ev.Platform]
}

type realtimeHub struct {
	mu    sync.Mutex
	teams map[string]*teamFeed
}

func newRealtimeHub() *realtimeHub {
	return &realtimeHub{teams: make(map[string]*teamFeed)}
}

func (h *realtimeHub) feed(teamID string) *teamFeed {
	f := h.teams[teamID]
	if f == nil {
		f = &teamFeed{subs: make(map[*websocket.Conn]subscriber)}
		h.teams[teamID] = f
	}
	return f
}

// subscribe registers c for teamID and returns the team's current seq. Feeds outlive their
// subscribers so seq never restarts while the process runs.
func (h *realtimeHub) subscribe(teamID string, c *websocket.Conn, only []platforms.Platform) uint64 {
	sub := subscriber{}
	if len(only) > 0 {
		sub.only = lo.Associate(only, func(p platforms.Platform) (platforms.Platform, bool) { return p, true })
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	f := h.feed(teamID)
	f.subs[c] = sub
	return f.seq
}

func (h *realtimeHub) unsubscribe(teamID string, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f := h.teams[teamID]; f != nil {
		delete(f.subs, c)
	}
}

// publish stamps ev with the team's next seq and sends it to every subscriber that wants it.
// Connections that fail a send are dropped. It returns the number of sockets written.
func (h *realtimeHub) publish(ev realtimeEvent) (realtimeEvent, int, error) {
	h.mu.Lock()
	f := h.feed(ev.TeamID)
	f.seq++
	ev.Seq = f.seq
	targets := make([]*websocket.Conn, 0, len(f.subs))
	for c, sub := range f.subs {
		if sub.wants(ev) {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	b, err := json.Marshal(ev)
	if err != nil {
		return ev, 0, err
	}
	sent := 0
	for _, c := range targets {
		if err := websocket.Message.Send(c, string(b)); err != nil {
			_ = c.Close()
			h.unsubscribe(ev.TeamID, c)
			continue
		}
		sent++
	}
	return ev, sent, nil
}

func (h *realtimeHub) subscribers(teamID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f := h.teams[teamID]; f != nil {
		return len(f.subs)
	}
	return 0
}

func isLocalhostRemoteAddr(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil && h != "" {
		host = h
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

// wsAllowed lets loopback callers through and requires X-Internal-WS-Secret from everyone else.
// With no secret configured only loopback connections are accepted.
func (h *Handler) wsAllowed(r *http.Request) bool {
	if isLocalhostRemoteAddr(r.RemoteAddr) {
		return true
	}
	if h.wsSecret == "" {
		return false
	}
	return strings.TrimSpace(r.Header.Get("X-Internal-WS-Secret")) == h.wsSecret
}

const (
	eventHello           = "hello"
	eventScheduleUpdated = "schedule.updated"
	eventScheduleDeleted = "schedule.deleted"
	eventPostDeleted     = "post.deleted"
)

type realtimeEvent struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`

	TeamID       string             `json:"teamId"`
	PostID       string             `json:"postId,omitempty"`
	ScheduleID   string             `json:"scheduleId,omitempty"`
	Platform     platforms.Platform `json:"platform,omitempty"`
	ScheduledFor string             `json:"scheduledFor,omitempty"`
	At           string             `json:"at"`
}

// EventsWebSocket streams calendar changes for one team so open calendars can refresh. The hello
// event carries the seq the stream starts after; platforms narrows schedule events to a calendar
// filtered by network (post deletions are always sent).
//
// URL: /api/events/ws?teamId=...&platforms=twitter,linkedin
// Auth: X-Internal-WS-Secret (or loopback only if INTERNAL_WS_SECRET is unset)
func (h *Handler) EventsWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.wsAllowed(r) {
		h.log.WithFields(logrus.Fields{"remote": r.RemoteAddr, "host": r.Host}).Warn("realtime ws forbidden")
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	teamID := queryParam(r, "teamId")
	if teamID == "" {
		http.Error(w, "missing_teamId", http.StatusBadRequest)
		return
	}
	only, err := platforms.ParseList(splitList(queryParam(r, "platforms")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// x/net/websocket rejects mismatched Origin headers by default; auth is handled by wsAllowed.
	wsServer := websocket.Server{
		Handshake: func(cfg *websocket.Config, req *http.Request) error {
			return nil
		},
		Handler: func(c *websocket.Conn) {
			log := h.log.WithFields(logrus.Fields{"teamId": teamID, "remote": r.RemoteAddr})
			log.Debug("realtime ws connect")
			seq := h.rt.subscribe(teamID, c, only)
			defer h.rt.unsubscribe(teamID, c)
			defer log.Debug("realtime ws disconnect")

			hello := realtimeEvent{Type: eventHello, Seq: seq, TeamID: teamID, At: h.now().UTC().Format(time.RFC3339)}
			if b, err := json.Marshal(hello); err == nil {
				_ = websocket.Message.Send(c, string(b))
			}

			// Read loop keeps the connection open and detects disconnects.
			for {
				var ignored string
				if err := websocket.Message.Receive(c, &ignored); err != nil {
					break
				}
			}
		},
	}

	wsServer.ServeHTTP(w, r)
}

func (h *Handler) emitEvent(teamID string, ev realtimeEvent) {
	if h == nil || h.rt == nil || strings.TrimSpace(teamID) == "" {
		return
	}
	ev.TeamID = teamID
	if strings.TrimSpace(ev.At) == "" {
		ev.At = h.now().UTC().Format(time.RFC3339)
	}
	ev, sent, err := h.rt.publish(ev)
	if err != nil {
		h.log.WithError(err).WithField("teamId", teamID).Error("realtime publish failed")
		return
	}
	h.log.WithFields(logrus.Fields{
		"teamId": teamID, "type": ev.Type, "seq": ev.Seq, "postId": ev.PostID, "scheduleId": ev.ScheduleID, "sent": sent,
	}).Debug("realtime emit")
}

func (h *Handler) emitScheduleUpdated(teamID string, e models.ScheduleEntry) {
	ev := realtimeEvent{Type: eventScheduleUpdated, PostID: e.PostID, ScheduleID: e.ID, Platform: e.Platform}
	if e.HasTime() {
		ev.ScheduledFor = e.ScheduledFor.UTC().Format(time.RFC3339)
	}
	h.emitEvent(teamID, ev)
}
