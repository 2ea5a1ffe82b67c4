package handler

import (
	"encoding/json"
	"net/http"

	"hanru_board/internal/common"
)

// maxBodyBytes bounds request bodies; post content is the largest payload.
const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into v. On failure it has already
// written a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}
