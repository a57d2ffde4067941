// Package errors define el error HTTP de la API y cómo se serializa:
//
//	{"error": "<mensaje>", "code": "<CODE>", "detail": "..."}
package errors

import (
	"encoding/json"
	"net/http"
)

type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// WriteError escribe la respuesta de error. Acepta *AppError o cualquier error
// (este último sale como 500 sin exponer la causa).
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:  appErr.Message,
		Code:   appErr.Code,
		Detail: appErr.Detail,
	})
}
