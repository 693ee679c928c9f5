package handlers

import (
	"net/http"

	"github.com/3Eeeecho/go-pan/internal/middlewares"
	"github.com/3Eeeecho/go-pan/internal/models"
	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
	"github.com/3Eeeecho/go-pan/internal/services/explorer"
	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	tree   explorer.TreeService
	upload explorer.UploadService
}

func NewFileHandler(tree explorer.TreeService, upload explorer.UploadService) *FileHandler {
	return &FileHandler{
		tree:   tree,
		upload: upload,
	}
}

type CreateFolderRequest struct {
	Name     string  `json:"name" binding:"required"`
	ParentID *uint64 `json:"parent_id"`
}

// ListingResponse 目录列表
type ListingResponse struct {
	Breadcrumbs []models.Entry `json:"breadcrumbs"`
	Children    []models.Entry `json:"children"`
}

// ListFiles 列出目录内容
// @Summary 获取目录内容
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param parent_id query int false "父目录ID，为空表示根目录"
// @Success 200 {object} xerr.Response{data=ListingResponse}
// @Failure 400 {object} xerr.Response "目标不是文件夹"
// @Failure 404 {object} xerr.Response "目录不存在"
// @Router /api/v1/files [get]
func (h *FileHandler) ListFiles(c *gin.Context) {
	parentID, err := optionalID(c.Query("parent_id"))
	if err != nil {
		xerr.Fail(c, err)
		return
	}
	children, err := h.tree.ListChildren(c.Request.Context(), parentID)
	if err != nil {
		fail(c, "ListFiles", err)
		return
	}
	trail, err := h.tree.Breadcrumbs(c.Request.Context(), parentID)
	if err != nil {
		fail(c, "ListFiles", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", ListingResponse{Breadcrumbs: trail, Children: children})
}

// CreateFolder 新建文件夹
// @Summary 新建文件夹
// @Tags 文件
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateFolderRequest true "文件夹信息"
// @Success 201 {object} xerr.Response{data=models.Entry}
// @Failure 409 {object} xerr.Response "同名条目已存在"
// @Router /api/v1/files/folder [post]
func (h *FileHandler) CreateFolder(c *gin.Context) {
	var req CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, "CreateFolder", err)
		return
	}
	who, ok := actor(c)
	if !ok {
		return
	}
	folder, err := h.tree.CreateFolder(c.Request.Context(), who, req.Name, req.ParentID)
	if err != nil {
		fail(c, "CreateFolder", err)
		return
	}
	xerr.Success(c, http.StatusCreated, "文件夹创建成功", folder)
}

// UploadFile 上传文件
// @Summary 上传文件
// @Description 服务端重新计算摘要，与客户端提供的 digest 不一致时拒绝保存
// @Tags 文件
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "文件内容"
// @Param parent_id formData int false "父目录ID"
// @Param digest formData string false "客户端计算的内容摘要"
// @Success 201 {object} xerr.Response{data=models.Entry}
// @Failure 400 {object} xerr.Response "文件过大或摘要不匹配"
// @Router /api/v1/files/upload [post]
func (h *FileHandler) UploadFile(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if middlewares.IsBodyTooLarge(err) {
		xerr.Fail(c, xerr.ErrFileTooLarge)
		return
	}
	if err != nil {
		bindFailed(c, "UploadFile", err)
		return
	}
	parentID, err := optionalID(c.PostForm("parent_id"))
	if err != nil {
		xerr.Fail(c, err)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		fail(c, "UploadFile", err)
		return
	}
	defer src.Close()

	entry, err := h.upload.SaveFile(c.Request.Context(), explorer.UploadRequest{
		Reader:       src,
		Name:         fileHeader.Filename,
		ParentID:     parentID,
		ClientDigest: c.PostForm("digest"),
		Actor:        who,
	})
	if err != nil {
		fail(c, "UploadFile", err)
		return
	}
	xerr.Success(c, http.StatusCreated, "上传成功", entry)
}

// CheckDigest 查询是否已有相同内容的文件
// @Summary 按摘要查询文件
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param digest query string true "内容摘要"
// @Success 200 {object} xerr.Response
// @Router /api/v1/files/check [get]
func (h *FileHandler) CheckDigest(c *gin.Context) {
	entry, err := h.upload.FindByDigest(c.Request.Context(), c.Query("digest"))
	if err != nil {
		if xerr.Is(err, xerr.ErrEntryNotFound) {
			xerr.Success(c, http.StatusOK, "未找到", gin.H{"exists": false})
			return
		}
		fail(c, "CheckDigest", err)
		return
	}
	xerr.Success(c, http.StatusOK, "已存在", gin.H{"exists": true, "entry": entry})
}

// DownloadFile 下载文件
// @Summary 下载文件
// @Tags 文件
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "文件ID"
// @Success 200 {file} file
// @Failure 400 {object} xerr.Response "不能下载文件夹"
// @Failure 404 {object} xerr.Response "文件不存在"
// @Router /api/v1/files/{id}/download [get]
func (h *FileHandler) DownloadFile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entry, err := h.upload.DownloadTarget(c.Request.Context(), id)
	if err != nil {
		fail(c, "DownloadFile", err)
		return
	}
	c.FileAttachment(entry.PhysicalPath, entry.Name)
}

// DeleteEntry 递归删除文件或文件夹
// @Summary 删除文件或文件夹
// @Tags 文件
// @Produce json
// @Security BearerAuth
// @Param id path int true "条目ID"
// @Success 200 {object} xerr.Response
// @Router /api/v1/files/{id} [delete]
func (h *FileHandler) DeleteEntry(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	removed, err := h.tree.DeleteRecursive(c.Request.Context(), id)
	if err != nil {
		fail(c, "DeleteEntry", err)
		return
	}
	xerr.Success(c, http.StatusOK, "删除成功", gin.H{"deleted": removed})
}
