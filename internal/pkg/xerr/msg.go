package xerr

import "errors"

var (
	// 通用错误
	ErrInternalServer = NewCodeError(InternalServerErrorCode, KindServer, errors.New("服务器内部错误"))
	ErrDatabaseError  = NewCodeError(DatabaseErrorCode, KindServer, errors.New("数据库操作失败"))
	ErrStorageError   = NewCodeError(StorageErrorCode, KindServer, errors.New("存储服务操作失败"))

	// 客户端请求错误
	ErrInvalidParams        = NewCodeError(InvalidParamsCode, KindValidation, errors.New("无效的请求参数"))
	ErrValidationFailed     = NewCodeError(ValidationFailedCode, KindValidation, errors.New("参数验证失败"))
	ErrFileTooLarge         = NewCodeError(FileTooLargeCode, KindValidation, errors.New("上传文件过大，超出限制"))
	ErrFileNameInvalid      = NewCodeError(FileNameInvalidCode, KindValidation, errors.New("文件名为空或包含非法字符"))
	ErrTargetNotFolder      = NewCodeError(TargetNotFolderCode, KindValidation, errors.New("操作目标不是一个文件夹"))
	ErrCannotDownloadFolder = NewCodeError(CannotDownloadFolderCode, KindValidation, errors.New("无法下载文件夹"))
	ErrHashMismatch         = NewCodeError(HashMismatchCode, KindValidation, errors.New("文件摘要校验失败"))
	ErrInvalidSharePath     = NewCodeError(InvalidSharePathCode, KindValidation, errors.New("无效的分享路径"))
	ErrInvalidExpiry        = NewCodeError(InvalidExpiryCode, KindValidation, errors.New("无效的有效期"))

	// 认证与授权错误
	ErrUnauthorized = NewCodeError(UnauthorizedCode, KindUnauthorized, errors.New("用户未授权"))
	ErrTokenInvalid = NewCodeError(TokenInvalidCode, KindUnauthorized, errors.New("认证 Token 无效或已过期"))

	// 权限错误
	ErrPermissionDenied       = NewCodeError(PermissionDeniedCode, KindForbidden, errors.New("您没有操作此资源的权限"))
	ErrSharePasswordRequired  = NewCodeError(SharePasswordRequiredCode, KindPasswordRequired, errors.New("分享链接需要密码"))
	ErrSharePasswordIncorrect = NewCodeError(SharePasswordIncorrectCode, KindPasswordMismatch, errors.New("分享链接密码不正确"))
	ErrDownloadDisabled       = NewCodeError(DownloadDisabledCode, KindForbidden, errors.New("该分享未开放下载"))
	ErrTooManyAttempts        = NewCodeError(TooManyAttemptsCode, KindForbidden, errors.New("密码尝试次数过多，请稍后再试"))

	// 资源未找到错误
	ErrEntryNotFound     = NewCodeError(EntryNotFoundCode, KindNotFound, errors.New("文件不存在"))
	ErrDirectoryNotFound = NewCodeError(DirectoryNotFoundCode, KindNotFound, errors.New("目录不存在"))
	ErrShareNotFound     = NewCodeError(ShareNotFoundCode, KindNotFound, errors.New("分享链接无效或已过期"))
	ErrSharedContentGone = NewCodeError(SharedContentGoneCode, KindNotFound, errors.New("分享的内容已被删除"))
	ErrSharePathNotFound = NewCodeError(SharePathNotFoundCode, KindNotFound, errors.New("路径不存在"))

	// 业务逻辑冲突
	ErrEntryAlreadyExists = NewCodeError(EntryAlreadyExistsCode, KindConflict, errors.New("同名文件或目录已存在"))

	// 过期
	ErrShareExpired = NewCodeError(ShareExpiredCode, KindExpired, errors.New("分享链接已过期"))

	// 服务器资源与一致性错误
	ErrShareKeyExhausted = NewCodeError(ShareKeyExhaustedCode, KindServer, errors.New("无法生成唯一的分享码"))
	ErrTreeCorrupted     = NewCodeError(TreeCorruptedCode, KindCorruption, errors.New("目录树结构损坏"))
)
