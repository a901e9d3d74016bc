// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a
// thread-safe singleton validator instance with a custom target name
// rule and user-friendly error messages. It integrates with the API's
// error envelope for consistent error responses.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Error translation to human-readable messages
//   - APIError conversion matching the API's error envelope
//   - A target_name validator shared with the config loader's rule
//
// # Quick Start
//
//	type RecordsQuery struct {
//	    Target string `validate:"omitempty,target_name"`
//	    Status string `validate:"omitempty,oneof=SUCCESS FAILURE"`
//	    Limit  int    `validate:"min=1,max=1000"`
//	}
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//	    q := parseRecordsQuery(r)
//
//	    if verr := validation.ValidateStruct(&q); verr != nil {
//	        apiErr := verr.ToAPIError()
//	        respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	        return
//	    }
//
//	    // proceed with valid request
//	}
//
// # Validation Tags In Use
//
// String validations:
//   - required: Field must not be empty
//   - min=n / max=n: Length bounds in characters
//   - target_name: Valid backup target identifier
//   - uuid: Valid UUID (cycle IDs)
//
// Numeric validations:
//   - gte=n / lte=n / gt=n / lt=n: Value bounds
//   - min=n / max=n: Value bounds
//
// Enum validations:
//   - oneof=a b c: Must be one of the specified values
//
// # Error Handling
//
// ValidateStruct returns *RequestValidationError aggregating each failed
// field. ToAPIError flattens one failure into field/tag/value details and
// multiple failures into a per-field list, always under the
// VALIDATION_ERROR code so clients can branch on it.
package validation
