package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agristream/livescript/internal/services"
)

// Stable error codes. Clients branch on these, never on messages.
const (
	ErrCodeBadRequest           = "bad_request"
	ErrCodeNotFound             = "not_found"
	ErrCodeConflict             = "conflict"
	ErrCodeInternal             = "internal_error"
	ErrCodeMethodNotAllowed     = "method_not_allowed"
	ErrCodeUpstream             = "upstream_error"
	ErrCodeGeneratorUnavailable = "generator_unavailable"
	ErrCodeTranscriberMissing   = "transcriber_unavailable"
)

// errorMapping routes service sentinels to a status and code. The first
// match wins; the sentinel's own message is shown to the client.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrMissingIDs, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrMissingID, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrNameRequired, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidPrice, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidStyleType, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidStatus, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidQualityScore, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidSection, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidPromotion, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidExportFormat, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrContentRequired, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidURL, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrQueryRequired, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrNothingToTranscribe, http.StatusBadRequest, ErrCodeBadRequest},

	{services.ErrProductNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrTemplateNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrScriptNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrCollectionNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrDocumentNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrMaterialNotFound, http.StatusNotFound, ErrCodeNotFound},

	{services.ErrDuplicate, http.StatusConflict, ErrCodeConflict},

	{services.ErrGeneratorUnavailable, http.StatusServiceUnavailable, ErrCodeGeneratorUnavailable},
	{services.ErrTranscriberNotReady, http.StatusServiceUnavailable, ErrCodeTranscriberMissing},
	{services.ErrUpstream, http.StatusBadGateway, ErrCodeUpstream},
}

// writeError maps err onto the failure envelope. Unknown errors become a
// generic 500; their detail goes to the access log only.
func writeError(c *gin.Context, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				_ = c.Error(err)
			}
			fail(c, m.status, m.code, m.err.Error())
			return
		}
	}
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
}
