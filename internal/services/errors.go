// Package services defines the business logic for products, style templates,
// scripts, knowledge collections, materials, script generation and
// compliance checks. This file centralizes common service-level error values
// so that they can be consistently returned by service methods and checked
// by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Input errors.
var (
	// ErrMissingIDs is returned when a generation request lacks the product
	// or style template id. No storage or upstream call has been made.
	ErrMissingIDs = errors.New("productId and styleTemplateId are required")

	// ErrMissingID is returned when an operation needs an id and got none.
	ErrMissingID = errors.New("id is required")

	ErrNameRequired         = errors.New("name is required")
	ErrInvalidPrice         = errors.New("price must be >= 0")
	ErrInvalidStyleType     = errors.New("unknown style type")
	ErrInvalidStatus        = errors.New("unknown script status")
	ErrInvalidQualityScore  = errors.New("qualityScore must be between 0 and 10")
	ErrInvalidSection       = errors.New("unknown script section")
	ErrInvalidPromotion     = errors.New("promotionRules must be a JSON object, array or null")
	ErrInvalidExportFormat  = errors.New("format must be markdown or html")
	ErrContentRequired      = errors.New("content is required")
	ErrInvalidURL           = errors.New("a valid http(s) url is required")
	ErrQueryRequired        = errors.New("query is required")
	ErrNothingToTranscribe  = errors.New("material has no url to transcribe")
	ErrTranscriberNotReady  = errors.New("transcriber unavailable")
	ErrGeneratorUnavailable = errors.New("text generation service is not configured")
)

// Not-found errors.
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrTemplateNotFound   = errors.New("style template not found")
	ErrScriptNotFound     = errors.New("script not found")
	ErrCollectionNotFound = errors.New("knowledge collection not found")
	ErrDocumentNotFound   = errors.New("knowledge document not found")
	ErrMaterialNotFound   = errors.New("material not found")
)

// Conflict and upstream errors.
var (
	// ErrDuplicate is returned when a unique name or (platform, videoId)
	// pair is already taken.
	ErrDuplicate = errors.New("already exists")

	// ErrUpstream wraps failures of the generation, search, import or ASR
	// services that the caller should see as a bad gateway.
	ErrUpstream = errors.New("upstream service failed")
)
