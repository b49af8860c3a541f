package api

import (
	"net/http"

	"github.com/phrazzld/artisan-api/internal/api/shared"
	"github.com/phrazzld/artisan-api/internal/export"
)

// ListExportFormats handles GET /api/export/formats.
func ListExportFormats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, export.SupportedFormats())
}

// PreviewExport handles POST /api/export/preview. Formats without a text
// rendering return a short placeholder instead of an error.
func PreviewExport(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	format := export.Format(req.Format)
	if parsed, err := export.ParseFormat(req.Format); err == nil {
		format = parsed
	}

	preview, err := export.Preview(req.Content, format)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to render preview")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PreviewResponse{Format: string(format), Preview: preview})
}
