// Package daemon serves the ledger engine over HTTP and streams change
// events to subscribers.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/pipeline"
	"github.com/theirongolddev/feaso/internal/source"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr         string
	ProjectID    string
	EventsBuffer int

	// Schedule is re-read on POST /v1/reload. Nil keeps the loaded schedule.
	Schedule source.ScheduleSource
	// WatchPath, when set, reloads the schedule whenever the file changes.
	WatchPath string
	// Persister is reported in status and flushed on shutdown.
	Persister *pipeline.Persister
}

// Event is emitted whenever the published ledger changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	RowIDs    []string  `json:"row_ids,omitempty"`
	Summary   Summary   `json:"summary"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	ProjectID       string    `json:"project_id"`
	LastReloadAt    time.Time `json:"last_reload_at,omitempty"`
	ReloadCount     int64     `json:"reload_count"`
	Rows            int       `json:"rows"`
	Periods         int       `json:"periods"`
	Tasks           int       `json:"tasks"`
	Summary         Summary   `json:"summary"`
	PendingWrites   int       `json:"pending_writes"`
	FailedWrites    int       `json:"failed_writes"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	engine *pipeline.Engine

	mu           sync.RWMutex
	startedAt    time.Time
	lastReloadAt time.Time
	reloadCount  int64
	lastError    string
	nextEventID  int64
	events       []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service over engine. Wire Notify as the engine's
// OnChange hook so edits reach subscribers.
func New(cfg Config, engine *pipeline.Engine) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = "default"
	}

	return &Service{
		cfg:       cfg,
		engine:    engine,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/ledger", s.handleLedger)
		r.Get("/cashflow", s.handleCashflow)
		r.Post("/edit", s.handleEdit)
		r.Post("/rows", s.handleAddRow)
		r.Delete("/rows/{id}", s.handleDeleteRow)
		r.Post("/snapshot", s.handleSnapshot)
		r.Post("/reload", s.handleReload)
		r.Get("/events", s.handleEvents)
		r.Get("/stream", s.handleStream)
	})
	return r
}

// Run serves the API until ctx is canceled, then flushes pending writes.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.cfg.WatchPath != "" {
		if err := source.Watch(ctx, s.cfg.WatchPath, func() { _ = s.reload(ctx) }); err != nil {
			log.Printf("feaso daemon: schedule watch disabled: %v", err)
		}
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if s.cfg.Persister != nil {
			if ferr := s.cfg.Persister.Flush(shutdownCtx); ferr != nil {
				log.Printf("feaso daemon: flushing writes: %v", ferr)
			}
		}
		return err
	case err := <-errCh:
		return fmt.Errorf("daemon http server: %w", err)
	}
}

// Notify publishes a ledger_updated event for the changed row ids.
func (s *Service) Notify(ids []string) {
	rows := s.engine.Rows()
	summary := summarize(pipeline.Aggregate(rows, s.engine.Periods()))

	s.mu.Lock()
	s.nextEventID++
	ev := Event{
		ID:        s.nextEventID,
		Type:      "ledger_updated",
		Timestamp: time.Now(),
		RowIDs:    append([]string(nil), ids...),
		Summary:   summary,
	}
	s.mu.Unlock()

	s.publishEvent(ev)
}

// reload re-reads the schedule and reruns the full pipeline.
func (s *Service) reload(ctx context.Context) error {
	tasks := s.engine.Tasks()
	var err error
	if s.cfg.Schedule != nil {
		tasks, err = s.cfg.Schedule.LoadSchedule(ctx, s.cfg.ProjectID)
	}

	s.mu.Lock()
	s.lastReloadAt = time.Now()
	s.reloadCount++
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("feaso daemon: reloading schedule: %v", err)
		return err
	}
	s.engine.Reload(ctx, tasks)
	return nil
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	rows := s.engine.Rows()
	periods := s.engine.Periods()
	st := Status{
		ProjectID: s.cfg.ProjectID,
		Rows:      len(rows),
		Periods:   len(periods),
		Tasks:     len(s.engine.Tasks()),
		Summary:   summarize(pipeline.Aggregate(rows, periods)),
	}
	if p := s.cfg.Persister; p != nil {
		st.PendingWrites = p.Pending()
		st.FailedWrites = p.Failures()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	st.StartedAt = s.startedAt
	st.LastReloadAt = s.lastReloadAt
	st.ReloadCount = s.reloadCount
	st.LastError = s.lastError
	st.EventCount = len(s.events)
	st.SubscriberCount = len(s.subs)
	return st
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleLedger(w http.ResponseWriter, r *http.Request) {
	rows := pipeline.FilterByName(s.engine.Rows(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, ledgerView(rows, s.engine.Periods()))
}

func (s *Service) handleCashflow(w http.ResponseWriter, _ *http.Request) {
	flows := pipeline.AggregatePeriods(s.engine.Rows(), s.engine.Periods())
	out := make([]FlowView, len(flows))
	for i, f := range flows {
		out[i] = flowView(f)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleEdit(w http.ResponseWriter, r *http.Request) {
	var ed pipeline.Edit
	if err := decodeBody(r, &ed); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	field, err := pipeline.ParseField(string(ed.Field))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ed.Field = field

	rows, err := s.engine.OnEdit(r.Context(), ed)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ledgerView(rows, s.engine.Periods()))
}

type addRowRequest struct {
	Group int    `json:"group"`
	Name  string `json:"name"`
}

func (s *Service) handleAddRow(w http.ResponseWriter, r *http.Request) {
	var req addRowRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	row, _, err := s.engine.AddRow(r.Context(), req.Group, req.Name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, rowView(row))
}

func (s *Service) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.engine.DeleteRow(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	rows := s.engine.Snapshot(r.Context())
	writeJSON(w, http.StatusOK, ledgerView(rows, s.engine.Periods()))
}

func (s *Service) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reload(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	events := make([]Event, 0, len(s.events))
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	for _, ev := range s.events {
		if ev.ID > since {
			events = append(events, ev)
		}
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current summary immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Summary:   s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

const maxRequestBody = 1 << 16

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrRowNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrUnknownField),
		errors.Is(err, pipeline.ErrInvalidPeriod),
		errors.Is(err, pipeline.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrNotEditable), errors.Is(err, model.ErrStructure):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
