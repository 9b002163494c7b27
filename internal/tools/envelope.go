package tools

import (
	"encoding/json"
	"fmt"

	xerrors "github.com/jaycoolh/hedera-agent-kit/internal/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

const (
	CodeToolNotFound xerrors.Code = "TOOL_NOT_FOUND"
	CodeToolPanic    xerrors.Code = "TOOL_PANIC"
)

func init() {
	xerrors.Register(CodeToolNotFound, xerrors.Attributes{
		Message:  "tool not found",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeToolPanic, xerrors.Attributes{
		Message:  "tool panicked",
		Severity: xerrors.SeverityCritical,
		Alert:    true,
	})
}

// ErrorEnvelope is the uniform failure result of every tool.
type ErrorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func newErrorEnvelope(err error) ErrorEnvelope {
	message := "unknown error"
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return ErrorEnvelope{
		Status:  StatusError,
		Message: message,
		Code:    string(xerrors.CodeOf(err)),
	}
}

func encodeEnvelope(v any) []byte {
	encoded, err := json.Marshal(v)
	if err != nil {
		encoded, _ = json.Marshal(ErrorEnvelope{
			Status:  StatusError,
			Message: fmt.Sprintf("序列化工具结果失败: %v", err),
			Code:    string(xerrors.CodeUnknown),
		})
	}
	return encoded
}
