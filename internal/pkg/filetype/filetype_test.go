package filetype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIconClass(t *testing.T) {
	cases := map[string]string{
		"md":      "markdown",
		"JSON":    "json",
		".py":     "python",
		"png":     "image",
		"csv":     "spreadsheet",
		"yaml":    "config",
		"log":     "text",
		"tar.gz":  "archive",
		"go":      "code",
		"torrent": "torrent",
		"ics":     "calendar",
		"":        DefaultIcon,
		"unknown": DefaultIcon,
		"..":      DefaultIcon,
	}
	for ext, want := range cases {
		assert.Equal(t, want, IconClass(ext), "ext=%q", ext)
	}
}

func TestEntryIconFolder(t *testing.T) {
	assert.Equal(t, FolderIcon, EntryIcon(true, "png"))
	assert.Equal(t, FolderIcon, EntryIcon(true, ""))
	assert.Equal(t, "image", EntryIcon(false, "png"))
}

func TestPreviewType(t *testing.T) {
	got, ok := PreviewType("JPG")
	assert.True(t, ok)
	assert.Equal(t, PreviewImage, got)

	got, ok = PreviewType("md")
	assert.True(t, ok)
	assert.Equal(t, PreviewText, got)

	_, ok = PreviewType("mp4")
	assert.False(t, ok)

	_, ok = PreviewType("")
	assert.False(t, ok)

	assert.Nil(t, PreviewCategory("docx"))
	if assert.NotNil(t, PreviewCategory("go")) {
		assert.Equal(t, PreviewText, *PreviewCategory("go"))
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "gz", Extension("backup.tar.gz"))
	assert.Equal(t, "txt", Extension("Notes.TXT"))
	assert.Equal(t, "", Extension("Makefile"))
	assert.Equal(t, "", Extension(""))
}
