package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job tracks one ingestion run started through the admin API.
type Job struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"` // "running", "completed", "completed_with_errors", "failed"
	Sources     []string   `json:"sources"`
	Stats       []Stats    `json:"stats,omitempty"`
	Totals      *Stats     `json:"totals,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobTracker keeps job state in memory for status polling.
type JobTracker struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]*Job)}
}

func (t *JobTracker) add(job *Job) {
	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()
}

func (t *JobTracker) finish(id string, stats []Stats, err error) {
	now := time.Now()
	var totals Stats
	for _, s := range stats {
		totals.Add(s)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	job := t.jobs[id]
	job.Stats = stats
	job.Totals = &totals
	job.CompletedAt = &now
	switch {
	case err != nil:
		job.Status = "failed"
		job.Error = err.Error()
	case totals.Failed > 0:
		job.Status = "completed_with_errors"
	default:
		job.Status = "completed"
	}
}

// Get returns a copy of the job.
func (t *JobTracker) Get(id string) (Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return Job{}, false
	}
	return snapshot(job), true
}

// List returns copies of every job, newest first.
func (t *JobTracker) List() []Job {
	t.mu.Lock()
	jobs := make([]Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		jobs = append(jobs, snapshot(job))
	}
	t.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.After(jobs[j].StartedAt) })
	return jobs
}

func snapshot(job *Job) Job {
	s := *job
	s.Sources = append([]string(nil), job.Sources...)
	s.Stats = append([]Stats(nil), job.Stats...)
	if job.Totals != nil {
		totals := *job.Totals
		s.Totals = &totals
	}
	return s
}

// Admin exposes ingestion runs over HTTP.
type Admin struct {
	pipeline *Pipeline
	sources  map[string]Source
	parallel int
	jobs     *JobTracker
	baseCtx  context.Context
	log      *zap.Logger
}

// NewAdmin registers the runnable sources by name. Runs started over HTTP
// outlive the request and stop when baseCtx is cancelled.
func NewAdmin(baseCtx context.Context, pipeline *Pipeline, sources []Source, parallel int, log *zap.Logger) *Admin {
	byName := make(map[string]Source, len(sources))
	for _, s := range sources {
		byName[s.Name()] = s
	}
	return &Admin{
		pipeline: pipeline,
		sources:  byName,
		parallel: parallel,
		jobs:     NewJobTracker(),
		baseCtx:  baseCtx,
		log:      log.Named("ingest-admin"),
	}
}

func (a *Admin) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/sources", a.ListSources)
	r.Post("/", a.StartIngest)
	r.Get("/", a.ListJobs)
	r.Get("/{jobID}", a.GetJob)
	return r
}

// ListSources handles GET /admin/ingest/sources
func (a *Admin) ListSources(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(a.sources))
	for name := range a.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, names)
}

// StartIngest handles POST /admin/ingest
// Accepts {"sources": ["dhs-shelters", ...]}; an empty list runs every source.
func (a *Admin) StartIngest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Sources []string `json:"sources"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	var selected []Source
	if len(body.Sources) == 0 {
		for _, s := range a.sources {
			selected = append(selected, s)
		}
		sort.Slice(selected, func(i, j int) bool { return selected[i].Name() < selected[j].Name() })
	} else {
		for _, name := range body.Sources {
			s, ok := a.sources[name]
			if !ok {
				http.Error(w, fmt.Sprintf("Unknown source: %s", name), http.StatusBadRequest)
				return
			}
			selected = append(selected, s)
		}
	}
	if len(selected) == 0 {
		http.Error(w, "No sources configured", http.StatusBadRequest)
		return
	}

	names := make([]string, 0, len(selected))
	for _, s := range selected {
		names = append(names, s.Name())
	}
	job := &Job{
		ID:        uuid.New().String(),
		Status:    "running",
		Sources:   names,
		StartedAt: time.Now(),
	}
	a.jobs.add(job)

	go a.run(job.ID, selected)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.ID,
		"status": "running",
	})
}

func (a *Admin) run(id string, sources []Source) {
	a.log.Info("job started", zap.String("job", id), zap.Int("sources", len(sources)))
	stats, err := a.pipeline.RunAll(a.baseCtx, sources, a.parallel)
	a.jobs.finish(id, stats, err)

	job, _ := a.jobs.Get(id)
	a.log.Info("job finished", zap.String("job", id), zap.String("status", job.Status))
}

// GetJob handles GET /admin/ingest/{jobID}
func (a *Admin) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := a.jobs.Get(chi.URLParam(r, "jobID"))
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /admin/ingest
func (a *Admin) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.jobs.List())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
