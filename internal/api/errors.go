package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// ErrorCode is the business status carried in every response envelope.
type ErrorCode int

// Envelope codes. Success is 0; errors group by HTTP class.
const (
	CodeSuccess         ErrorCode = 0
	CodeParamsError     ErrorCode = 40000
	CodeNotLoginError   ErrorCode = 40100
	CodeNoAuthError     ErrorCode = 40101
	CodeForbiddenError  ErrorCode = 40300
	CodeNotFoundError   ErrorCode = 40400
	CodeTooManyRequests ErrorCode = 42900
	CodeSystemError     ErrorCode = 50000
	CodeOperationError  ErrorCode = 50001
)

var defaultMessages = map[ErrorCode]string{
	CodeSuccess:         "ok",
	CodeParamsError:     "请求参数错误",
	CodeNotLoginError:   "未登录",
	CodeNoAuthError:     "无权限",
	CodeForbiddenError:  "禁止访问",
	CodeNotFoundError:   "请求数据不存在",
	CodeTooManyRequests: "请求过于频繁",
	CodeSystemError:     "系统内部异常",
	CodeOperationError:  "操作失败",
}

// HTTPStatus maps an envelope code to its HTTP status.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeSuccess:
		return http.StatusOK
	case CodeParamsError:
		return http.StatusBadRequest
	case CodeNotLoginError:
		return http.StatusUnauthorized
	case CodeNoAuthError, CodeForbiddenError:
		return http.StatusForbidden
	case CodeNotFoundError:
		return http.StatusNotFound
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// DefaultMessage returns the stock message for c.
func (c ErrorCode) DefaultMessage() string {
	return defaultMessages[c]
}

// BaseResponse is the JSON envelope for every API response.
type BaseResponse struct {
	Code    ErrorCode `json:"code"`
	Data    any       `json:"data"`
	Message string    `json:"message"`
}

// BusinessError is a handler failure that maps directly onto the envelope.
type BusinessError struct {
	Code    ErrorCode
	Message string
}

func (e *BusinessError) Error() string { return e.Message }

// bizError builds a BusinessError; an empty message uses the code default.
func bizError(code ErrorCode, message string) *BusinessError {
	if message == "" {
		message = code.DefaultMessage()
	}
	return &BusinessError{Code: code, Message: message}
}

// writeOK writes a success envelope around data.
func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, BaseResponse{Code: CodeSuccess, Data: data, Message: "ok"})
}

// writeError writes an error envelope; the HTTP status follows the code.
func writeError(w http.ResponseWriter, code ErrorCode, message string) {
	if message == "" {
		message = code.DefaultMessage()
	}
	writeJSON(w, code.HTTPStatus(), BaseResponse{Code: code, Message: message})
}

// writeErr writes err as an envelope. BusinessErrors keep their code; anything
// else is logged and reported as a system error.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var be *BusinessError
	if errors.As(err, &be) {
		logFor(r.Context()).Debug("business error", "code", int(be.Code), "msg", be.Message)
		writeError(w, be.Code, be.Message)
		return
	}
	logFor(r.Context()).Error("request failed", "err", err)
	writeError(w, CodeSystemError, "系统错误")
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}

// decodeJSON reads the request body into v. An empty or malformed body is a
// params error.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return bizError(CodeParamsError, "invalid json body")
	}
	return nil
}
