package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/myysophia/filehub-backend/internal/db/models"
	"github.com/myysophia/filehub-backend/internal/policy"
	"github.com/myysophia/filehub-backend/internal/service"
	"github.com/myysophia/filehub-backend/internal/storage"
	"github.com/myysophia/filehub-backend/internal/tests/mocks"
	"github.com/myysophia/filehub-backend/internal/tracker"
	"github.com/myysophia/filehub-backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type handlerFixture struct {
	handler  *FileHandler
	provider *mocks.MockProvider
	factory  *mocks.MockFactory
	files    *mocks.MockFileStore
	tracker  *tracker.Tracker
	policy   *policy.Store
}

func newFixture() *handlerFixture {
	provider := &mocks.MockProvider{}
	factory := &mocks.MockFactory{}
	files := &mocks.MockFileStore{}
	policyStore := policy.NewStore()
	tr := tracker.NewTracker()

	svc := service.NewUploadService(factory, files, &mocks.MockCategoryStore{}, policyStore)
	return &handlerFixture{
		handler:  NewFileHandler(svc, policyStore, tr),
		provider: provider,
		factory:  factory,
		files:    files,
		tracker:  tr,
		policy:   policyStore,
	}
}

// multipartRequest 构造带单个文件字段的上传请求
func multipartRequest(t *testing.T, field, filename, contentType, content string, extra map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)

	for k, v := range extra {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/v1/files", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serveUpload(f *handlerFixture, req *http.Request) (*httptest.ResponseRecorder, utils.Response) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", uint(1))
	c.Set("username", "tester")
	c.Request = req

	f.handler.Upload(c)

	var resp utils.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestFileHandler_Upload(t *testing.T) {
	f := newFixture()

	f.provider.On("GetType").Return(storage.ProviderLocal)
	f.provider.On("Store", mock.Anything, mock.Anything).Return(&storage.StoreResult{
		ObjectKey: "tester/a.png",
		AccessURL: "/static/tester/a.png",
	}, nil)
	f.factory.On("GetDefaultProvider").Return(f.provider, nil)
	f.files.On("Create", mock.AnythingOfType("*models.File")).Run(func(args mock.Arguments) {
		args.Get(0).(*models.File).ID = 7
	}).Return(nil)

	req := multipartRequest(t, "file", "a.png", "image/png", "png-bytes", map[string]string{
		"is_public": "true",
		"tags":      "头像, 测试",
	})

	w, resp := serveUpload(f, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, utils.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(7), data["id"])
	assert.Equal(t, "a.png", data["filename"])
	assert.Equal(t, true, data["is_public"])
}

func TestFileHandler_UploadRejected(t *testing.T) {
	f := newFixture()

	// 无扩展名文件在校验层拒绝，不触发存储
	req := multipartRequest(t, "file", "README", "text/plain", "x", nil)

	w, resp := serveUpload(f, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, utils.CodePolicyRejected, resp.Code)
	f.factory.AssertNotCalled(t, "GetDefaultProvider")
}

func TestFileHandler_UploadDrivesTracker(t *testing.T) {
	f := newFixture()

	ids := f.tracker.Start([]tracker.FileInfo{{Filename: "a.png", Size: 9}})

	f.provider.On("GetType").Return(storage.ProviderLocal)
	f.provider.On("Store", mock.Anything, mock.Anything).Return(&storage.StoreResult{
		ObjectKey: "tester/a.png",
	}, nil)
	f.factory.On("GetDefaultProvider").Return(f.provider, nil)
	f.files.On("Create", mock.AnythingOfType("*models.File")).Return(nil)

	req := multipartRequest(t, "file", "a.png", "image/png", "png-bytes", map[string]string{
		"attempt_id": ids[0],
	})

	_, resp := serveUpload(f, req)
	require.Equal(t, utils.CodeSuccess, resp.Code)

	attempt, ok := f.tracker.Get(ids[0])
	require.True(t, ok)
	assert.Equal(t, tracker.StateCompleted, attempt.State)
}

func TestFileHandler_UploadFailureMarksAttemptFailed(t *testing.T) {
	f := newFixture()

	ids := f.tracker.Start([]tracker.FileInfo{{Filename: "README", Size: 1}})

	req := multipartRequest(t, "file", "README", "text/plain", "x", map[string]string{
		"attempt_id": ids[0],
	})

	_, resp := serveUpload(f, req)
	require.Equal(t, utils.CodePolicyRejected, resp.Code)

	attempt, ok := f.tracker.Get(ids[0])
	require.True(t, ok)
	assert.Equal(t, tracker.StateFailed, attempt.State)
	assert.NotEmpty(t, attempt.Reason)
}

func TestFileHandler_BatchDeleteFeatureDisabled(t *testing.T) {
	f := newFixture()
	disabled := false
	f.policy.SetOverride(&policy.Override{
		Features: &policy.FeaturesOverride{BatchDelete: &disabled},
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", uint(1))
	body, _ := json.Marshal(map[string]interface{}{"ids": []uint{1}})
	c.Request = httptest.NewRequest("POST", "/api/v1/files/batch-delete", bytes.NewBuffer(body))
	c.Request.Header.Set("Content-Type", "application/json")

	f.handler.BatchDelete(c)

	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, utils.CodeForbidden, resp.Code)
}

func TestFileHandler_DeleteNotFound(t *testing.T) {
	f := newFixture()
	f.files.On("FindByID", uint(99)).Return(nil, service.ErrFileNotFound)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", uint(1))
	c.Params = gin.Params{{Key: "id", Value: "99"}}
	c.Request = httptest.NewRequest("DELETE", "/api/v1/files/99", nil)

	f.handler.Delete(c)

	var resp utils.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, utils.CodeFileNotFound, resp.Code)
}
