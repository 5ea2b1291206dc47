package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"uploadtrack-backend/internal/domain"
	apperrors "uploadtrack-backend/pkg/errors"
	"uploadtrack-backend/pkg/logger"
	"uploadtrack-backend/pkg/signature"
)

func init() {
	logger.InitDefault()
}

const testKey = "sk_live_webhook_test"

type MockFileUpserter struct {
	mock.Mock
}

func (m *MockFileUpserter) UpsertFile(ctx context.Context, file domain.FileInfo, userID string, opts domain.UpsertOptions) (uuid.UUID, bool, error) {
	args := m.Called(ctx, file, userID, opts)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

type MockConfigReader struct {
	mock.Mock
}

func (m *MockConfigReader) Get(ctx context.Context) (*domain.TrackerConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrackerConfig), args.Error(1)
}

func str(s string) *string { return &s }

func newTestService(storedKey *string) (*Service, *MockFileUpserter) {
	upserter := new(MockFileUpserter)
	config := new(MockConfigReader)
	config.On("Get", mock.Anything).Return(&domain.TrackerConfig{UploadthingAPIKey: storedKey}, nil)
	return NewService(upserter, config), upserter
}

func signedBody(t *testing.T, payload map[string]interface{}) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body, signature.Prefix + signature.Sign(testKey, body)
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"file": map[string]interface{}{
			"key":  "abc123",
			"url":  "https://utfs.io/f/abc123",
			"name": "photo.png",
			"size": float64(2048),
			"type": "image/png",
		},
		"metadata": map[string]interface{}{
			"userId": "user_1",
		},
	}
}

func TestHandleCallback_Success(t *testing.T) {
	svc, upserter := newTestService(str(testKey))
	body, sig := signedBody(t, validPayload())

	id := uuid.New()
	upserter.On("UpsertFile", mock.Anything, mock.Anything, "user_1", mock.Anything).
		Return(id, true, nil)

	result, err := svc.HandleCallback(context.Background(), body, sig, "upload.complete", nil)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, id.String(), result.FileID)
	assert.Equal(t, "upload.complete", result.Hook)

	captured := upserter.Calls[0].Arguments.Get(1).(domain.FileInfo)
	assert.Equal(t, "abc123", captured.Key)
	assert.Equal(t, "photo.png", captured.Name)
	assert.Equal(t, int64(2048), captured.Size)
	assert.Equal(t, "image/png", captured.MimeType)
}

func TestHandleCallback_ExplicitKeyBeatsStoredKey(t *testing.T) {
	// Stored key is wrong on purpose; the explicit one must be used
	svc, upserter := newTestService(str("sk_wrong"))
	body, sig := signedBody(t, validPayload())

	upserter.On("UpsertFile", mock.Anything, mock.Anything, "user_1", mock.Anything).
		Return(uuid.New(), true, nil)

	result, err := svc.HandleCallback(context.Background(), body, sig, "upload.complete", str(testKey))
	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestHandleCallback_MissingKeyIsAnError(t *testing.T) {
	svc, upserter := newTestService(nil)
	body, sig := signedBody(t, validPayload())

	result, err := svc.HandleCallback(context.Background(), body, sig, "upload.complete", nil)
	require.Error(t, err)
	assert.Nil(t, result)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrCodeMissingAPIKey, appErr.Code)

	upserter.AssertNotCalled(t, "UpsertFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleCallback_TamperedBodyFailsVerification(t *testing.T) {
	svc, upserter := newTestService(str(testKey))
	body, sig := signedBody(t, validPayload())

	for i := range body {
		tampered := make([]byte, len(body))
		copy(tampered, body)
		tampered[i] ^= 0x01

		result, err := svc.HandleCallback(context.Background(), tampered, sig, "upload.complete", nil)
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Equal(t, domain.CallbackErrInvalidSignature, result.Error)
	}
	upserter.AssertNotCalled(t, "UpsertFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleCallback_WrongSignature(t *testing.T) {
	svc, _ := newTestService(str(testKey))
	body, _ := signedBody(t, validPayload())

	result, err := svc.HandleCallback(context.Background(), body, "hmac-sha256=deadbeef", "upload.complete", nil)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, domain.CallbackErrInvalidSignature, result.Error)
}

func TestHandleCallback_InvalidJSON(t *testing.T) {
	svc, _ := newTestService(str(testKey))
	body := []byte("{not json")
	sig := signature.Sign(testKey, body)

	result, err := svc.HandleCallback(context.Background(), body, sig, "upload.complete", nil)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, domain.CallbackErrInvalidJSON, result.Error)
}

func TestHandleCallback_MissingFileFields(t *testing.T) {
	svc, _ := newTestService(str(testKey))

	payload := validPayload()
	delete(payload["file"].(map[string]interface{}), "url")
	body, sig := signedBody(t, payload)

	result, err := svc.HandleCallback(context.Background(), body, sig, "upload.complete", nil)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, domain.CallbackErrMissingFileFields, result.Error)
}

func TestHandleCallback_MissingUserID(t *testing.T) {
	svc, _ := newTestService(str(testKey))

	payload := validPayload()
	delete(payload, "metadata")
	body, sig := signedBody(t, payload)

	result, err := svc.HandleCallback(context.Background(), body, sig, "upload.complete", nil)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, domain.CallbackErrMissingUserID, result.Error)
}

func TestHandleCallback_ReplayIsIdempotentReplace(t *testing.T) {
	svc, upserter := newTestService(str(testKey))
	body, sig := signedBody(t, validPayload())

	id := uuid.New()
	upserter.On("UpsertFile", mock.Anything, mock.Anything, "user_1", mock.Anything).
		Return(id, true, nil).Once()
	upserter.On("UpsertFile", mock.Anything, mock.Anything, "user_1", mock.Anything).
		Return(id, false, nil).Once()

	first, err := svc.HandleCallback(context.Background(), body, sig, "upload.complete", nil)
	require.NoError(t, err)
	replay, err := svc.HandleCallback(context.Background(), body, sig, "upload.complete", nil)
	require.NoError(t, err)

	assert.True(t, first.OK)
	assert.True(t, replay.OK)
	assert.Equal(t, first.FileID, replay.FileID)
	upserter.AssertExpectations(t)
}

func TestHandleCallback_AliasVariants(t *testing.T) {
	svc, upserter := newTestService(str(testKey))

	// Top-level file with every secondary alias, size as a string,
	// owner under uploadedBy, tags as CSV
	payload := map[string]interface{}{
		"fileKey": "k9",
		"fileUrl": "https://utfs.io/f/k9",
		"fileName": "report.pdf",
		"fileSize": "4096",
		"contentType": "application/pdf",
		"customID": "invoice-9",
		"metadata": map[string]interface{}{
			"uploadedBy": "user_2",
			"tags":       "q3, finance , ,draft",
			"folder":     "reports",
			"ttlMs":      float64(86400000),
		},
	}
	body, sig := signedBody(t, payload)

	upserter.On("UpsertFile", mock.Anything, mock.Anything, "user_2", mock.Anything).
		Return(uuid.New(), true, nil)

	result, err := svc.HandleCallback(context.Background(), body, sig, "upload.complete", nil)
	require.NoError(t, err)
	require.True(t, result.OK)

	file := upserter.Calls[0].Arguments.Get(1).(domain.FileInfo)
	assert.Equal(t, "k9", file.Key)
	assert.Equal(t, "https://utfs.io/f/k9", file.URL)
	assert.Equal(t, "report.pdf", file.Name)
	assert.Equal(t, int64(4096), file.Size)
	assert.Equal(t, "application/pdf", file.MimeType)
	require.NotNil(t, file.CustomID)
	assert.Equal(t, "invoice-9", *file.CustomID)

	opts := upserter.Calls[0].Arguments.Get(3).(domain.UpsertOptions)
	assert.Equal(t, []string{"q3", "finance", "draft"}, opts.Tags)
	require.NotNil(t, opts.Folder)
	assert.Equal(t, "reports", *opts.Folder)
	require.NotNil(t, opts.TTLMs)
	assert.Equal(t, int64(86400000), *opts.TTLMs)
}

func TestHandleCallback_AccessRuleFromMetadata(t *testing.T) {
	svc, upserter := newTestService(str(testKey))

	payload := validPayload()
	payload["metadata"].(map[string]interface{})["access"] = map[string]interface{}{
		"visibility":   "restricted",
		"allowUserIds": []interface{}{"user_2", "user_3"},
	}
	body, sig := signedBody(t, payload)

	upserter.On("UpsertFile", mock.Anything, mock.Anything, "user_1", mock.Anything).
		Return(uuid.New(), true, nil)

	result, err := svc.HandleCallback(context.Background(), body, sig, "upload.complete", nil)
	require.NoError(t, err)
	require.True(t, result.OK)

	opts := upserter.Calls[0].Arguments.Get(3).(domain.UpsertOptions)
	require.NotNil(t, opts.Access)
	assert.Equal(t, domain.VisibilityRestricted, opts.Access.Visibility)
	assert.Equal(t, []string{"user_2", "user_3"}, opts.Access.AllowUserIDs)
}

func TestNormalizeCallback_NestedMetadataFallback(t *testing.T) {
	payload := map[string]interface{}{
		"file": map[string]interface{}{
			"key":  "k1",
			"url":  "https://utfs.io/f/k1",
			"name": "a.txt",
			"size": float64(1),
			"type": "text/plain",
			"metadata": map[string]interface{}{
				"ownerId": "user_4",
			},
		},
	}

	norm, errTag := normalizeCallback(payload)
	require.Empty(t, errTag)
	assert.Equal(t, "user_4", norm.UserID)
}

func TestNormalizeCallback_TopLevelUserID(t *testing.T) {
	payload := map[string]interface{}{
		"key":    "k1",
		"url":    "https://utfs.io/f/k1",
		"name":   "a.txt",
		"size":   float64(1),
		"type":   "text/plain",
		"userId": "user_5",
	}

	norm, errTag := normalizeCallback(payload)
	require.Empty(t, errTag)
	assert.Equal(t, "user_5", norm.UserID)
}
