package xerr

// 定义了统一的业务错误码
const (
	SuccessCode = 20000 // 通用成功码

	// --- 客户端请求错误系列 (400xx) ---
	InvalidParamsCode        = 40000 // 无效的请求参数
	ValidationFailedCode     = 40001 // 参数验证失败
	FileTooLargeCode         = 40003 // 文件过大
	FileNameInvalidCode      = 40004 // 文件名无效
	TargetNotFolderCode      = 40009 // 操作目标不是一个文件夹
	CannotDownloadFolderCode = 40010 // 无法下载文件夹
	HashMismatchCode         = 40012 // 文件摘要不匹配
	InvalidSharePathCode     = 40013 // 分享路径无效
	InvalidExpiryCode        = 40014 // 有效期取值无效

	// --- 认证与授权错误系列 (401xx) ---
	UnauthorizedCode = 40100 // 通用未授权
	TokenInvalidCode = 40101 // Token 无效或过期

	// --- 权限错误系列 (403xx) ---
	ForbiddenCode              = 40300 // 通用无权限
	PermissionDeniedCode       = 40301 // 权限不足
	SharePasswordRequiredCode  = 40302 // 分享需要密码
	SharePasswordIncorrectCode = 40303 // 分享密码不正确
	DownloadDisabledCode       = 40304 // 分享未开放下载
	TooManyAttemptsCode        = 40305 // 密码尝试次数过多

	// --- 资源未找到错误系列 (404xx) ---
	NotFoundCode          = 40400 // 通用资源未找到
	EntryNotFoundCode     = 40402 // 文件不存在
	DirectoryNotFoundCode = 40403 // 目录不存在
	ShareNotFoundCode     = 40404 // 分享链接不存在
	SharedContentGoneCode = 40407 // 分享内容已被删除
	SharePathNotFoundCode = 40408 // 分享内路径不存在

	// --- 业务逻辑冲突系列 (409xx) ---
	EntryAlreadyExistsCode = 40904 // 文件或目录已存在

	// --- 过期系列 (410xx) ---
	ShareExpiredCode = 41000 // 分享链接已过期

	// --- 服务器内部错误系列 (500xx) ---
	InternalServerErrorCode = 50000 // 服务器内部通用错误
	DatabaseErrorCode       = 50001 // 数据库操作失败
	StorageErrorCode        = 50002 // 存储操作失败
	ShareKeyExhaustedCode   = 50004 // 无法生成唯一分享码
	TreeCorruptedCode       = 50005 // 目录树结构损坏
)
