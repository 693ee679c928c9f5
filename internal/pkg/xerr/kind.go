package xerr

import (
	"errors"
	"net/http"
)

// Kind 是面向调用方的稳定错误分类
type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindPasswordRequired
	KindPasswordMismatch
	KindNotFound
	KindConflict
	KindExpired
	KindCorruption
)

var kindNames = map[Kind]string{
	KindServer:           "server_error",
	KindValidation:       "validation_error",
	KindUnauthorized:     "unauthorized",
	KindForbidden:        "forbidden",
	KindPasswordRequired: "password_required",
	KindPasswordMismatch: "password_mismatch",
	KindNotFound:         "not_found",
	KindConflict:         "conflict",
	KindExpired:          "expired",
	KindCorruption:       "corruption_error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "server_error"
}

// HTTPStatus 返回该分类对应的 HTTP 状态码
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden, KindPasswordRequired, KindPasswordMismatch:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// KindOf 沿错误链查找 CodeError 并返回其分类，未分类的错误一律视为服务器错误
func KindOf(err error) Kind {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindServer
}

// CodeOf 返回错误链上第一个 CodeError 的业务码
func CodeOf(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return InternalServerErrorCode
}
