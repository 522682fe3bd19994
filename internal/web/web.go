package web

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"aulacal/internal/calendar"
	"aulacal/internal/config"
	"aulacal/internal/ics"
	appLog "aulacal/internal/log"
	"aulacal/internal/model"
	"aulacal/internal/refresh"
	"aulacal/internal/store"
)

// Server exposes the lesson calendar over HTTP. Reads are served from the
// refresher's resident snapshot; writes go to the backend and trigger a
// reload.
type Server struct {
	cfg       *config.Config
	backend   store.Backend
	refresher *refresh.Refresher
	loc       *time.Location
	mux       *http.ServeMux
	validate  *validator.Validate

	// now is replaceable in tests.
	now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, backend store.Backend, refresher *refresh.Refresher) *Server {
	s := &Server{
		cfg:       cfg,
		backend:   backend,
		refresher: refresher,
		loc:       resolveLocationOrLocal(cfg.Timezone),
		mux:       http.NewServeMux(),
		validate:  validator.New(),
		now:       time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials leave auth off.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="aulacal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /api/calendar/day", s.handleDay)
	s.mux.HandleFunc("PATCH /api/lessons/{id}/type", s.handleLessonType)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /api/groups/{id}/lessons.ics", s.handleGroupFeed)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// calendarResponse is the JSON response shape for /api/calendar.
type calendarResponse struct {
	View       model.View            `json:"view"`
	RangeStart string                `json:"range_start"`
	RangeEnd   string                `json:"range_end"`
	Events     []model.CalendarEvent `json:"events"`
	Sequence   map[string]int        `json:"sequence"`
}

// handleCalendar renders the calendar events for a view.
//
// GET /api/calendar?view=month&start=2024-03-01&end=2024-03-31&groups=a,b&selected=x,y
//   - view:     month | week | day (default from config)
//   - start:    first visible day; defaults to the view's range around today
//   - end:      last visible day; defaults to the view's range around start
//   - groups:   comma-separated class group filter
//   - selected: comma-separated lesson ids; its presence turns on
//     multi-select mode
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := model.ParseView(q.Get("view"), s.defaultView())

	from, to, err := s.parseRange(view, q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sel := calendar.Selection{}
	if q.Has("selected") {
		sel = calendar.NewSelection(splitList(q.Get("selected"))...)
	}

	snap := s.refresher.Snapshot()
	res := calendar.Build(snap.Lessons, sel, calendar.ViewState{
		View:       view,
		RangeStart: from,
		RangeEnd:   to,
		GroupIDs:   splitList(q.Get("groups")),
		Location:   s.loc,
	})

	appLog.Debug("api calendar request",
		"view", view,
		"range_start", from.Format(model.DateLayout),
		"range_end", to.Format(model.DateLayout),
		"events", len(res.Events),
	)

	writeJSON(w, http.StatusOK, calendarResponse{
		View:       view,
		RangeStart: from.Format(model.DateLayout),
		RangeEnd:   to.Format(model.DateLayout),
		Events:     res.Events,
		Sequence:   res.Sequence,
	})
}

// dayResponse is the JSON response shape for /api/calendar/day.
type dayResponse struct {
	calendar.DayDetail
	ShowAll bool `json:"show_all"`
}

// handleDay lists the lessons of one day.
//
// GET /api/calendar/day?date=2024-03-04&group=g1&view=week
//   - group set:   the lessons behind that group's month entry for the day
//   - group unset: every lesson of the day; show_all tells the client to
//     offer the "show all" entry in week/day views
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := q.Get("date")
	if _, err := time.ParseInLocation(model.DateLayout, date, s.loc); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	view := model.ParseView(q.Get("view"), s.defaultView())
	snap := s.refresher.Snapshot()
	sel := calendar.NewSelector(nil)

	if group := q.Get("group"); group != "" {
		res := calendar.Build(snap.Lessons, calendar.Selection{}, calendar.ViewState{
			View:       model.ViewMonth,
			RangeStart: mustDay(date, s.loc),
			RangeEnd:   mustDay(date, s.loc),
			GroupIDs:   []string{group},
			Location:   s.loc,
		})
		if len(res.Events) == 0 {
			writeError(w, http.StatusNotFound, "no lessons for this group on this day")
			return
		}
		ev := res.Events[0]
		if ev.Aggregated() {
			err := sel.Open(ev)
			if err != nil {
				appLog.Error("api day: open aggregated entry failed", err, "event", ev.ID)
				writeError(w, http.StatusInternalServerError, "failed to list lessons")
				return
			}
		} else {
			_ = sel.OpenDay(date, ev.Payload.Lessons())
		}
	} else {
		_ = sel.OpenDay(date, calendar.LessonsOn(snap.Lessons, date))
	}

	detail, _ := sel.Listing()
	writeJSON(w, http.StatusOK, dayResponse{
		DayDetail: detail,
		ShowAll:   calendar.NeedsShowAll(view, len(detail.Lessons)),
	})
}

// lessonTypeRequest is the body of PATCH /api/lessons/{id}/type.
type lessonTypeRequest struct {
	LessonType string `json:"lesson_type" validate:"required,oneof=normal graded final-exam"`
}

// handleLessonType changes a lesson's type and reloads the snapshot so the
// next render shows the new colors.
func (s *Server) handleLessonType(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req lessonTypeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "lesson_type must be one of normal, graded, final-exam")
		return
	}

	t := model.LessonType(req.LessonType)
	if err := s.backend.UpdateLessonType(r.Context(), id, t); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, store.Message(err, "lesson not found"))
			return
		}
		appLog.Error("api lesson type: update failed", err, "lesson", id)
		writeError(w, http.StatusInternalServerError, store.Message(err, "failed to update lesson"))
		return
	}
	appLog.Info("lesson type updated", "lesson", id, "lesson_type", t)

	if _, err := s.refresher.Refresh(r.Context()); err != nil {
		// The write went through; the next scheduled refresh picks it up.
		appLog.Warn("api lesson type: snapshot reload failed", "lesson", id, "err", err)
	}

	writeJSON(w, http.StatusOK, struct {
		ID         string           `json:"id"`
		LessonType model.LessonType `json:"lesson_type"`
	}{ID: id, LessonType: t})
}

// refreshResponse is the JSON response shape for /api/refresh.
type refreshResponse struct {
	Groups   int       `json:"groups"`
	Lessons  int       `json:"lessons"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.refresher.Refresh(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, store.Message(err, "failed to reload lessons"))
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Groups:   len(snap.Groups),
		Lessons:  len(snap.Lessons),
		LoadedAt: snap.LoadedAt,
	})
}

// handleGroupFeed serves one class group's lessons as an iCalendar
// subscription feed.
func (s *Server) handleGroupFeed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap := s.refresher.Snapshot()
	g, ok := snap.Group(id)
	if !ok {
		writeError(w, http.StatusNotFound, "class group not found")
		return
	}

	lessons := make([]model.Lesson, 0)
	for _, l := range snap.Lessons {
		if l.ClassGroupID == id {
			lessons = append(lessons, l)
		}
	}

	var buf bytes.Buffer
	err := ics.WriteFeed(&buf, ics.Feed{
		ProductID: s.cfg.Feed.ProductID,
		Name:      s.cfg.Feed.Name + " - " + g.Name,
		Location:  s.loc,
		Now:       s.now(),
	}, lessons)
	if err != nil {
		appLog.Error("api feed: write failed", err, "group", id)
		writeError(w, http.StatusInternalServerError, "failed to build feed")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) defaultView() model.View {
	return model.ParseView(s.cfg.Calendar.DefaultView, model.ViewMonth)
}

// parseRange resolves the visible day range. Missing bounds come from the
// view's natural range around start (or today).
func (s *Server) parseRange(view model.View, startParam, endParam string) (time.Time, time.Time, error) {
	anchor := s.now().In(s.loc)
	anchor = time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, s.loc)
	if startParam != "" {
		t, err := time.ParseInLocation(model.DateLayout, startParam, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, errBadParam("start must be YYYY-MM-DD")
		}
		anchor = t
	}

	from, to := viewRange(view, anchor)
	if startParam != "" {
		from = anchor
	}
	if endParam != "" {
		t, err := time.ParseInLocation(model.DateLayout, endParam, s.loc)
		if err != nil {
			return time.Time{}, time.Time{}, errBadParam("end must be YYYY-MM-DD")
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errBadParam("end is before start")
	}
	return from, to, nil
}

// viewRange returns the first and last day a view shows around day. Weeks
// start on Sunday.
func viewRange(view model.View, day time.Time) (time.Time, time.Time) {
	switch view {
	case model.ViewDay:
		return day, day
	case model.ViewWeek:
		from := day.AddDate(0, 0, -int(day.Weekday()))
		return from, from.AddDate(0, 0, 6)
	default:
		from := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return from, from.AddDate(0, 1, -1)
	}
}

type errBadParam string

func (e errBadParam) Error() string { return string(e) }

func mustDay(date string, loc *time.Location) time.Time {
	t, _ := time.ParseInLocation(model.DateLayout, date, loc)
	return t
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
