package handlers

import (
	"net/http"

	"github.com/3Eeeecho/go-pan/internal/pkg/xerr"
	"github.com/3Eeeecho/go-pan/internal/services/share"
	"github.com/gin-gonic/gin"
)

// SharePasswordHeader 访问加密分享时携带密码的请求头
const SharePasswordHeader = "X-Share-Password"

type ShareHandler struct {
	shareService share.ShareService
}

func NewShareHandler(shareService share.ShareService) *ShareHandler {
	return &ShareHandler{shareService: shareService}
}

type CreateShareRequest struct {
	EntryID       uint64 `json:"entry_id" binding:"required"`
	Password      string `json:"password"`
	ExpiresIn     string `json:"expires_in"`
	AllowDownload *bool  `json:"allow_download"`
	AllowDelete   bool   `json:"allow_delete"`
}

type UpdateShareRequest struct {
	Password      *string `json:"password"`
	ExpiresIn     *string `json:"expires_in"`
	AllowDownload *bool   `json:"allow_download"`
}

func access(c *gin.Context) share.Access {
	password := c.GetHeader(SharePasswordHeader)
	if password == "" {
		password = c.Query("password")
	}
	return share.Access{Password: password, Client: c.ClientIP()}
}

// CreateShare 创建分享链接
// @Summary 创建分享链接
// @Description 为文件或文件夹创建分享链接，可设置密码与有效期
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateShareRequest true "分享设置"
// @Success 201 {object} xerr.Response{data=models.ShareLink}
// @Failure 400 {object} xerr.Response "请求参数无效"
// @Failure 404 {object} xerr.Response "文件不存在"
// @Router /api/v1/shares [post]
func (h *ShareHandler) CreateShare(c *gin.Context) {
	var req CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, "CreateShare", err)
		return
	}
	who, ok := actor(c)
	if !ok {
		return
	}
	link, err := h.shareService.CreateShare(c.Request.Context(), who, share.CreateRequest{
		EntryID:       req.EntryID,
		Password:      req.Password,
		ExpiresIn:     req.ExpiresIn,
		AllowDownload: req.AllowDownload,
		AllowDelete:   req.AllowDelete,
	})
	if err != nil {
		fail(c, "CreateShare", err)
		return
	}
	xerr.Success(c, http.StatusCreated, "分享链接创建成功", link)
}

// ListMyShares 列出当前用户创建的分享
// @Summary 我的分享
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Success 200 {object} xerr.Response{data=[]models.ShareLink}
// @Router /api/v1/shares/my [get]
func (h *ShareHandler) ListMyShares(c *gin.Context) {
	who, ok := actor(c)
	if !ok {
		return
	}
	links, err := h.shareService.ListByCreator(c.Request.Context(), who)
	if err != nil {
		fail(c, "ListMyShares", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", links)
}

// UpdateShare 修改分享设置
// @Summary 修改分享
// @Tags 分享
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "分享ID"
// @Param request body UpdateShareRequest true "需要修改的字段"
// @Success 200 {object} xerr.Response{data=models.ShareLink}
// @Failure 403 {object} xerr.Response "不是分享的创建者"
// @Router /api/v1/shares/{id} [put]
func (h *ShareHandler) UpdateShare(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, "UpdateShare", err)
		return
	}
	who, ok := actor(c)
	if !ok {
		return
	}
	link, err := h.shareService.UpdateShare(c.Request.Context(), who, id, share.UpdateRequest{
		Password:      req.Password,
		ExpiresIn:     req.ExpiresIn,
		AllowDownload: req.AllowDownload,
	})
	if err != nil {
		fail(c, "UpdateShare", err)
		return
	}
	xerr.Success(c, http.StatusOK, "分享已更新", link)
}

// DeleteShare 删除分享
// @Summary 删除分享
// @Tags 分享
// @Produce json
// @Security BearerAuth
// @Param id path int true "分享ID"
// @Success 200 {object} xerr.Response
// @Router /api/v1/shares/{id} [delete]
func (h *ShareHandler) DeleteShare(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	who, ok := actor(c)
	if !ok {
		return
	}
	if err := h.shareService.DeleteShare(c.Request.Context(), who, id); err != nil {
		fail(c, "DeleteShare", err)
		return
	}
	xerr.Success(c, http.StatusOK, "分享已删除", nil)
}

// ViewShare 访问分享链接
// @Summary 访问分享
// @Description 文件夹分享可通过 path 浏览子目录；加密分享通过请求头或 password 参数提供密码
// @Tags 分享
// @Produce json
// @Param key path string true "分享码"
// @Param path query string false "分享内的相对路径，如 a/b"
// @Param password query string false "分享密码"
// @Success 200 {object} xerr.Response{data=share.ShareView}
// @Failure 403 {object} xerr.Response "需要密码或密码错误"
// @Failure 404 {object} xerr.Response "分享不存在"
// @Failure 410 {object} xerr.Response "分享已过期"
// @Router /s/{key} [get]
func (h *ShareHandler) ViewShare(c *gin.Context) {
	view, err := h.shareService.Resolve(c.Request.Context(), c.Param("key"), share.SplitPath(c.Query("path")), access(c))
	if err != nil {
		fail(c, "ViewShare", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", view)
}

// DownloadShared 下载分享中的文件
// @Summary 下载分享文件
// @Tags 分享
// @Produce octet-stream
// @Param key path string true "分享码"
// @Param path query string false "分享内的相对路径"
// @Param name query string false "文件夹分享中要下载的文件名"
// @Success 200 {file} file
// @Failure 403 {object} xerr.Response "分享未开放下载"
// @Router /s/{key}/download [get]
func (h *ShareHandler) DownloadShared(c *gin.Context) {
	entry, err := h.shareService.DownloadShared(c.Request.Context(), c.Param("key"), share.SplitPath(c.Query("path")), c.Query("name"), access(c))
	if err != nil {
		fail(c, "DownloadShared", err)
		return
	}
	c.FileAttachment(entry.PhysicalPath, entry.Name)
}

// ListPublicShares 公开分享列表
// @Summary 公开分享
// @Description 所有未过期、无密码的文件分享
// @Tags 分享
// @Produce json
// @Success 200 {object} xerr.Response{data=[]share.PublicShare}
// @Router /public/shares [get]
func (h *ShareHandler) ListPublicShares(c *gin.Context) {
	shares, err := h.shareService.ListPublicShares(c.Request.Context())
	if err != nil {
		fail(c, "ListPublicShares", err)
		return
	}
	xerr.Success(c, http.StatusOK, "获取成功", shares)
}
