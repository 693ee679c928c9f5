// Package filetype 根据扩展名给出图标分类与预览能力，纯查表，无副作用
package filetype

import (
	"path/filepath"
	"strings"
)

const (
	DefaultIcon = "file"
	FolderIcon  = "folder"

	PreviewImage = "image"
	PreviewText  = "text"
)

func group(category string, exts ...string) map[string]string {
	m := make(map[string]string, len(exts))
	for _, ext := range exts {
		m[ext] = category
	}
	return m
}

func merge(groups ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, g := range groups {
		for k, v := range g {
			out[k] = v
		}
	}
	return out
}

var imageExts = []string{
	"jpg", "jpeg", "png", "gif", "webp", "bmp", "tif", "tiff",
	"svg", "ico", "heic", "avif", "psd", "ai", "eps",
}

var codeExts = []string{
	"pyc", "pyo", "js", "ts", "jsx", "tsx", "html", "htm", "css",
	"class", "jar", "c", "cpp", "h", "hpp", "cs", "go", "rs", "php", "rb",
	"swift", "kt", "kts", "dart", "json5", "vue", "jsp", "asp", "aspx",
	"sql", "db", "sqlite", "bat", "cmd", "sh", "bash", "zsh",
}

var iconTypes = merge(
	map[string]string{"md": "markdown", "json": "json", "py": "python", "java": "java", "pdf": "pdf"},
	group("text", "txt", "rtf", "xml", "yml", "toml", "log", "out", "err"),
	group("word", "doc", "docx", "odt"),
	group("spreadsheet", "xls", "xlsx", "ods", "csv", "tsv"),
	group("presentation", "ppt", "pptx", "odp"),
	group("image", imageExts...),
	group("audio", "mp3", "wav", "flac", "aac", "ogg", "m4a", "wma", "aiff", "mid", "midi", "amr"),
	group("video", "mp4", "avi", "mkv", "mov", "flv", "wmv", "webm", "mpeg", "mpg", "m4v", "m3u8", "3gp"),
	group("archive", "zip", "rar", "7z", "tar", "gz", "bz2", "xz", "tgz", "tar.gz", "iso", "dmg"),
	group("code", codeExts...),
	group("binary", "exe", "msi", "bin", "dll", "so", "dylib", "sys", "apk", "ipa", "app", "run",
		"pkg", "img", "vmdk", "vdi", "ovf", "ova"),
	group("design", "dwg", "dxf", "blend", "obj", "fbx", "stl", "3ds", "gltf", "glb", "indd", "xd", "sketch"),
	group("font", "ttf", "otf", "woff", "woff2", "eot"),
	group("backup", "bak", "old", "tmp", "swp"),
	group("link", "url", "lnk"),
	group("mail", "eml", "msg"),
	group("certificate", "crt", "pem", "key"),
	group("ebook", "epub", "mobi", "azw3", "cbz", "cbr"),
	group("config", "env", "properties", "ini", "cfg", "conf", "yaml"),
	map[string]string{"torrent": "torrent", "ics": "calendar"},
)

var previewTypes = merge(
	group(PreviewImage, imageExts...),
	group(PreviewText, "txt", "rtf", "xml", "yml", "toml", "md", "ini", "env", "properties",
		"log", "out", "err", "py", "java", "json"),
	group(PreviewText, codeExts...),
)

func normalize(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Extension 取文件名最后一段扩展名，小写且不带点；无扩展名返回空串
func Extension(name string) string {
	return normalize(filepath.Ext(name))
}

// IconClass 返回扩展名对应的图标分类，未知扩展名返回 "file"
func IconClass(ext string) string {
	if icon, ok := iconTypes[normalize(ext)]; ok {
		return icon
	}
	return DefaultIcon
}

// EntryIcon 文件夹一律返回 "folder"
func EntryIcon(isDir bool, ext string) string {
	if isDir {
		return FolderIcon
	}
	return IconClass(ext)
}

// PreviewType 返回扩展名的预览分类，第二个返回值为 false 表示不支持在线预览
func PreviewType(ext string) (string, bool) {
	category, ok := previewTypes[normalize(ext)]
	return category, ok
}

// PreviewCategory 是 PreviewType 的指针形式，便于直接写入可空列
func PreviewCategory(ext string) *string {
	category, ok := PreviewType(ext)
	if !ok {
		return nil
	}
	return &category
}
