package middleware

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/errors"
)

// writeError answers with err's status and a {"detail": ...} body, the same
// shape the section handlers use.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperrors.HTTPStatusCode(err))
	json.NewEncoder(w).Encode(map[string]string{
		"detail": apperrors.Message(err, err.Error()),
	})
}
