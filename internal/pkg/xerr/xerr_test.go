package xerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("SaveFile: digest for %s: %w", "/data/a.txt", ErrHashMismatch)

	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, HashMismatchCode, CodeOf(err))
	assert.True(t, errors.Is(err, ErrHashMismatch))
}

func TestKindOfPlainError(t *testing.T) {
	err := errors.New("disk on fire")

	assert.Equal(t, KindServer, KindOf(err))
	assert.Equal(t, InternalServerErrorCode, CodeOf(err))
}

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:       http.StatusBadRequest,
		KindUnauthorized:     http.StatusUnauthorized,
		KindPasswordRequired: http.StatusForbidden,
		KindPasswordMismatch: http.StatusForbidden,
		KindNotFound:         http.StatusNotFound,
		KindConflict:         http.StatusConflict,
		KindExpired:          http.StatusGone,
		KindCorruption:       http.StatusInternalServerError,
		KindServer:           http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestFailHidesWrappedContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, fmt.Errorf("open /srv/pan/secret/a.txt: %w", ErrEntryNotFound))

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, EntryNotFoundCode, resp.Code)
	assert.Equal(t, ErrEntryNotFound.Error(), resp.Message)
	assert.NotContains(t, w.Body.String(), "/srv/pan")
}

func TestFailUnclassified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, errors.New("read /srv/pan/x: input/output error"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "/srv/pan")
}
