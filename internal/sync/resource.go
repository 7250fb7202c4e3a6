// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

package sync

import (
	"github.com/tomtom215/cloudsync/internal/config"
)

// Resource is anything the dispatcher can resolve a URL for.
type Resource interface {
	// ResolveURL returns an absolute URL or a path relative to the API base URL.
	// It returns ErrNoURL when the resource has no URL for method.
	ResolveURL(opts *Options, method Method) (string, error)
}

// IncrementalResource is implemented by resources whose API accepts the
// conditional-fetch parameter.
type IncrementalResource interface {
	SupportsIncrementalUpdates() bool
}

// CollectionMember is implemented by resources that belong to a collection.
// A create on a member without its own URL is sent to the collection.
type CollectionMember interface {
	Collection() Resource
}

// PathResource is a resource at a fixed API path.
type PathResource struct {
	Name        string
	Path        string
	Incremental bool

	// Parent is the collection this resource belongs to, if any.
	Parent Resource
}

// ResourceFromConfig builds a PathResource from its configuration.
func ResourceFromConfig(rc config.ResourceConfig) *PathResource {
	return &PathResource{
		Name:        rc.Name,
		Path:        rc.Path,
		Incremental: rc.Incremental,
	}
}

// ResolveURL returns the resource path.
func (r *PathResource) ResolveURL(_ *Options, _ Method) (string, error) {
	if r.Path == "" {
		return "", ErrNoURL
	}
	return r.Path, nil
}

// SupportsIncrementalUpdates reports whether conditional fetches are allowed.
func (r *PathResource) SupportsIncrementalUpdates() bool {
	return r.Incremental
}

// Collection returns the parent collection, or nil.
func (r *PathResource) Collection() Resource {
	if r.Parent == nil {
		return nil
	}
	return r.Parent
}
