package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one scheduled task. Name labels logs and metrics, so it must be
// unique within a registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry is the ordered job list a cycle walks.
type Registry struct {
	jobs []Job
	seen map[string]int
}

// NewRegistry registers jobs in order and fails on the first blank or
// duplicate name. Nil entries are ignored.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{seen: make(map[string]int, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job at position %d has no name", len(r.jobs))
	}
	if r.seen == nil {
		r.seen = map[string]int{}
	}
	if at, dup := r.seen[name]; dup {
		return fmt.Errorf("cron job %q already registered at position %d", name, at)
	}
	r.seen[name] = len(r.jobs)
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the jobs in registration order. Callers may modify the slice.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
