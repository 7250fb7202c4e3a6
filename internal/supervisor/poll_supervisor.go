// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/cloudsync/internal/config"
	"github.com/tomtom215/cloudsync/internal/logging"
	"github.com/tomtom215/cloudsync/internal/supervisor/services"
	intsync "github.com/tomtom215/cloudsync/internal/sync"
	"github.com/tomtom215/cloudsync/internal/validation"
)

// Errors for PollSupervisor
var (
	ErrResourceAlreadyExists = errors.New("resource already polled")
	ErrResourceNotFound      = errors.New("resource not polled")
	ErrNilSupervisorTree     = errors.New("supervisor tree cannot be nil")
	ErrNilSyncContext        = errors.New("sync context cannot be nil")
	ErrNilDispatcher         = errors.New("dispatcher cannot be nil")
)

// Dispatcher issues requests against the remote API.
type Dispatcher interface {
	Execute(ctx context.Context, method intsync.Method, resource intsync.Resource, opts *intsync.Options) (*intsync.Request, error)
}

// ResourceStatus describes one polled resource.
type ResourceStatus struct {
	Name        string                 `json:"name"`
	Path        string                 `json:"path"`
	Incremental bool                   `json:"incremental"`
	AddedAt     time.Time              `json:"added_at"`
	Scheduler   intsync.SchedulerStats `json:"scheduler"`
}

// managedResource holds a polled resource and its supervised scheduler.
type managedResource struct {
	token     suture.ServiceToken
	config    config.ResourceConfig
	scheduler *intsync.Scheduler
	addedAt   time.Time
}

// PollSupervisor keeps one supervised scheduler per resource, each issuing
// a read through the dispatcher on every tick. Resources can be added and
// removed while the tree runs.
//
// Thread Safety:
//   - The resources map is guarded by a read-write mutex
//   - Schedulers handle their own internal concurrency
type PollSupervisor struct {
	tree       *SupervisorTree
	sc         *intsync.Context
	dispatcher Dispatcher
	defaults   config.PollConfig

	mu        sync.RWMutex
	resources map[string]*managedResource
}

// NewPollSupervisor creates a poll supervisor. defaults fills the poll
// settings a resource leaves unset.
func NewPollSupervisor(tree *SupervisorTree, sc *intsync.Context, dispatcher Dispatcher, defaults config.PollConfig) (*PollSupervisor, error) {
	if tree == nil {
		return nil, ErrNilSupervisorTree
	}
	if sc == nil {
		return nil, ErrNilSyncContext
	}
	if dispatcher == nil {
		return nil, ErrNilDispatcher
	}

	return &PollSupervisor{
		tree:       tree,
		sc:         sc,
		dispatcher: dispatcher,
		defaults:   defaults,
		resources:  make(map[string]*managedResource),
	}, nil
}

// AddResource validates rc, creates its scheduler and adds it to the polling layer.
func (p *PollSupervisor) AddResource(rc config.ResourceConfig) error {
	if verr := validation.ValidateStruct(rc); verr != nil {
		return fmt.Errorf("resource %q: %w", rc.Name, verr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.resources[rc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrResourceAlreadyExists, rc.Name)
	}

	res := intsync.ResourceFromConfig(rc)
	cfg := intsync.SchedulerConfigFrom(rc.Name, rc.Resolved(p.defaults))

	sched, err := intsync.NewScheduler(p.sc, cfg, p.pollFunc(res))
	if err != nil {
		return fmt.Errorf("resource %q: %w", rc.Name, err)
	}

	token := p.tree.AddPollingService(services.NewSchedulerService(sched))
	p.resources[rc.Name] = &managedResource{
		token:     token,
		config:    rc,
		scheduler: sched,
		addedAt:   time.Now(),
	}

	logging.Info().
		Str("resource", rc.Name).
		Str("path", rc.Path).
		Bool("incremental", rc.Incremental).
		Dur("interval", cfg.Interval).
		Msg("Resource polling added")
	return nil
}

// StartAll adds every resource, continuing past failures. The returned error
// joins all failures.
func (p *PollSupervisor) StartAll(resources []config.ResourceConfig) error {
	var errs []error
	for _, rc := range resources {
		if err := p.AddResource(rc); err != nil {
			logging.Error().Err(err).Str("resource", rc.Name).Msg("Failed to add resource")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RemoveResource stops the resource's scheduler, removes it from the tree
// and detaches it from the sync context.
func (p *PollSupervisor) RemoveResource(name string) error {
	p.mu.Lock()
	mr, ok := p.resources[name]
	if ok {
		delete(p.resources, name)
	}
	p.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrResourceNotFound, name)
	}

	err := p.tree.RemovePollingService(mr.token)
	mr.scheduler.Close()

	if err != nil && !errors.Is(err, suture.ErrSupervisorNotStarted) {
		return fmt.Errorf("remove resource %q: %w", name, err)
	}

	logging.Info().Str("resource", name).Msg("Resource polling removed")
	return nil
}

// Resources returns the status of every polled resource, sorted by name.
func (p *PollSupervisor) Resources() []ResourceStatus {
	p.mu.RLock()
	out := make([]ResourceStatus, 0, len(p.resources))
	for _, mr := range p.resources {
		out = append(out, ResourceStatus{
			Name:        mr.config.Name,
			Path:        mr.config.Path,
			Incremental: mr.config.Incremental,
			AddedAt:     mr.addedAt,
			Scheduler:   mr.scheduler.Stats(),
		})
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// pollFunc issues a read for res. A suspended console vetoes the read,
// which is expected until an operator resets.
func (p *PollSupervisor) pollFunc(res intsync.Resource) intsync.Callback {
	return func(ctx context.Context) {
		_, err := p.dispatcher.Execute(ctx, intsync.MethodRead, res, nil)
		switch {
		case err == nil:
		case errors.Is(err, intsync.ErrSuspended):
			logging.Ctx(ctx).Debug().Msg("Poll skipped while suspended")
		default:
			logging.Ctx(ctx).Warn().Err(err).Msg("Poll dispatch failed")
		}
	}
}
