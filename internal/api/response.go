package api

import (
	"encoding/json"
	"net/http"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
	"github.com/jaycoolh/hedera-agent-kit/internal/task"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code xerrors.Code, message string) {
	writeJSON(w, status, errorBody{Code: string(code), Message: message})
}

// writeServiceError 按错误码映射 HTTP 状态。
func writeServiceError(w http.ResponseWriter, err error) {
	code := xerrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case task.CodeJobNotFound, xerrors.CodeNotFound:
		status = http.StatusNotFound
	case task.CodeJobValidation, xerrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case task.CodeJobConflict:
		status = http.StatusConflict
	case task.CodeJobPublish, xerrors.CodeQueueFailure, xerrors.CodeInitializationFailure:
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, code, err.Error())
}
