// CloudSync - Cloud Console API Synchronization Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudsync

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is shared process-wide (it caches struct metadata)
// and is created with WithRequiredStructEnabled. Two custom tags are registered:
//
//   - headername: value must be a valid HTTP header field name (RFC 7230 token)
//   - queryparam: value must be a non-empty query parameter name that needs no escaping
//
// Both configuration loading (internal/config) and the admin API request bodies
// (internal/api) validate through ValidateStruct, so error messages look the same
// everywhere:
//
//	type resetRequest struct {
//	    Reason string `json:"reason" validate:"max=256"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package validation
