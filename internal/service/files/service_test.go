package files

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"uploadtrack-backend/internal/domain"
	"uploadtrack-backend/pkg/logger"
)

func init() {
	logger.InitDefault()
}

// Mocks

type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Upsert(ctx context.Context, write domain.FileWrite, computeExpiry func(int64) *int64) (uuid.UUID, bool, error) {
	args := m.Called(ctx, write, computeExpiry)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

func (m *MockFileStore) GetByKey(ctx context.Context, key string) (*domain.FileRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FileRecord), args.Error(1)
}

func (m *MockFileStore) ListByOwner(ctx context.Context, userID string, limit int, cursor *domain.ListCursor) ([]*domain.FileRecord, error) {
	args := m.Called(ctx, userID, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FileRecord), args.Error(1)
}

func (m *MockFileStore) DeleteByKeys(ctx context.Context, keys []string) (int, error) {
	args := m.Called(ctx, keys)
	return args.Int(0), args.Error(1)
}

func (m *MockFileStore) SetAccess(ctx context.Context, key string, rule *domain.AccessRule) (bool, error) {
	args := m.Called(ctx, key, rule)
	return args.Bool(0), args.Error(1)
}

func (m *MockFileStore) UsageStats(ctx context.Context, userID string) (*domain.UsageStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UsageStats), args.Error(1)
}

type MockFolderRuleStore struct {
	mock.Mock
}

func (m *MockFolderRuleStore) GetByFolder(ctx context.Context, folder string) (*domain.FolderRule, error) {
	args := m.Called(ctx, folder)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FolderRule), args.Error(1)
}

func (m *MockFolderRuleStore) Set(ctx context.Context, folder string, access domain.AccessRule, nowMs int64) (string, error) {
	args := m.Called(ctx, folder, access, nowMs)
	return args.String(0), args.Error(1)
}

func (m *MockFolderRuleStore) Delete(ctx context.Context, folder string) error {
	args := m.Called(ctx, folder)
	return args.Error(0)
}

type MockConfigStore struct {
	mock.Mock
}

func (m *MockConfigStore) Get(ctx context.Context) (*domain.TrackerConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TrackerConfig), args.Error(1)
}

func (m *MockConfigStore) Set(ctx context.Context, update *domain.TrackerConfig, replace bool) (bool, error) {
	args := m.Called(ctx, update, replace)
	return args.Bool(0), args.Error(1)
}

// Helpers

func i64(v int64) *int64   { return &v }
func str(s string) *string { return &s }

func newTestService() (*Service, *MockFileStore, *MockFolderRuleStore, *MockConfigStore) {
	fileStore := new(MockFileStore)
	folderStore := new(MockFolderRuleStore)
	configStore := new(MockConfigStore)
	svc := NewService(fileStore, folderStore, configStore).WithClock(func() int64 { return 1_000_000 })
	return svc, fileStore, folderStore, configStore
}

func record(key, owner string, mods ...func(*domain.FileRecord)) *domain.FileRecord {
	r := &domain.FileRecord{
		ID:         uuid.New(),
		Key:        key,
		URL:        "https://utfs.io/f/" + key,
		Name:       key + ".bin",
		Size:       128,
		MimeType:   "application/octet-stream",
		UploadedAt: 500_000,
		UserID:     owner,
	}
	for _, mod := range mods {
		mod(r)
	}
	return r
}

// Tests

func TestUpsertFile_ExpiryClosureUsesUploadBasisAndConfig(t *testing.T) {
	svc, fileStore, _, configStore := newTestService()

	configStore.On("Get", mock.Anything).Return(&domain.TrackerConfig{
		DefaultTTLMs: i64(60_000),
	}, nil)

	var capturedExpiry func(int64) *int64
	var capturedWrite domain.FileWrite
	id := uuid.New()
	fileStore.On("Upsert", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedWrite = args.Get(1).(domain.FileWrite)
			capturedExpiry = args.Get(2).(func(int64) *int64)
		}).
		Return(id, true, nil)

	gotID, created, err := svc.UpsertFile(context.Background(), domain.FileInfo{
		Key:      "k1",
		URL:      "https://utfs.io/f/k1",
		Name:     "k1.png",
		Size:     10,
		MimeType: "image/png",
	}, "owner-1", domain.UpsertOptions{})

	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.True(t, created)
	assert.Equal(t, int64(1_000_000), capturedWrite.NowMs)

	// TTL basis is whatever upload timestamp the store resolves, so a
	// replace keeps its original basis
	got := capturedExpiry(500_000)
	require.NotNil(t, got)
	assert.Equal(t, int64(560_000), *got)
}

func TestUpsertFile_SanitizesAccessRule(t *testing.T) {
	svc, fileStore, _, configStore := newTestService()

	configStore.On("Get", mock.Anything).Return(&domain.TrackerConfig{}, nil)

	var capturedWrite domain.FileWrite
	fileStore.On("Upsert", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			capturedWrite = args.Get(1).(domain.FileWrite)
		}).
		Return(uuid.New(), true, nil)

	_, _, err := svc.UpsertFile(context.Background(), domain.FileInfo{
		Key: "k1", URL: "u", Name: "n", Size: 1, MimeType: "image/png",
	}, "owner-1", domain.UpsertOptions{
		Access: &domain.AccessRule{
			Visibility:   domain.VisibilityRestricted,
			AllowUserIDs: []string{"a", "a", ""},
		},
	})

	require.NoError(t, err)
	require.NotNil(t, capturedWrite.Options.Access)
	assert.Equal(t, []string{"a"}, capturedWrite.Options.Access.AllowUserIDs)
}

func TestGetFileByKey_AccessDeniedYieldsNil(t *testing.T) {
	svc, fileStore, _, _ := newTestService()

	fileStore.On("GetByKey", mock.Anything, "k1").Return(record("k1", "owner-1", func(r *domain.FileRecord) {
		r.Access = &domain.AccessRule{Visibility: domain.VisibilityPrivate}
	}), nil)

	got, err := svc.GetFileByKey(context.Background(), "k1", str("viewer-1"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetFileByKey_FolderRuleAppliesWhenNoFileRule(t *testing.T) {
	svc, fileStore, folderStore, _ := newTestService()

	fileStore.On("GetByKey", mock.Anything, "k1").Return(record("k1", "owner-1", func(r *domain.FileRecord) {
		r.Folder = str("shared")
	}), nil)
	folderStore.On("GetByFolder", mock.Anything, "shared").Return(&domain.FolderRule{
		Folder: "shared",
		Access: domain.AccessRule{Visibility: domain.VisibilityPublic},
	}, nil)

	got, err := svc.GetFileByKey(context.Background(), "k1", nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "k1", got.Key)
}

func TestGetFileByKey_AbsentYieldsNil(t *testing.T) {
	svc, fileStore, _, _ := newTestService()

	fileStore.On("GetByKey", mock.Anything, "missing").Return(nil, nil)

	got, err := svc.GetFileByKey(context.Background(), "missing", str("viewer-1"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListFiles_FiltersAndAccessChecks(t *testing.T) {
	svc, fileStore, folderStore, _ := newTestService()

	page := []*domain.FileRecord{
		record("expired", "owner-1", func(r *domain.FileRecord) { r.ExpiresAt = i64(900_000) }),
		record("wrong-mime", "owner-1", func(r *domain.FileRecord) { r.MimeType = "text/plain" }),
		record("denied", "owner-1", func(r *domain.FileRecord) {
			r.Access = &domain.AccessRule{Visibility: domain.VisibilityPrivate}
		}),
		record("visible", "owner-1", func(r *domain.FileRecord) {
			r.Access = &domain.AccessRule{Visibility: domain.VisibilityPublic}
		}),
	}
	fileStore.On("ListByOwner", mock.Anything, "owner-1", listPageSize, (*domain.ListCursor)(nil)).Return(page, nil)

	got, err := svc.ListFiles(context.Background(), domain.ListFilesQuery{
		OwnerUserID:  "owner-1",
		ViewerUserID: str("viewer-1"),
		MimeType:     str("application/octet-stream"),
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "visible", got[0].Key)
	folderStore.AssertNotCalled(t, "GetByFolder", mock.Anything, mock.Anything)
}

func TestListFiles_MemoizesFolderRuleLookups(t *testing.T) {
	svc, fileStore, folderStore, _ := newTestService()

	page := []*domain.FileRecord{
		record("a", "owner-1", func(r *domain.FileRecord) { r.Folder = str("shared") }),
		record("b", "owner-1", func(r *domain.FileRecord) { r.Folder = str("shared") }),
		record("c", "owner-1", func(r *domain.FileRecord) { r.Folder = str("shared") }),
	}
	fileStore.On("ListByOwner", mock.Anything, "owner-1", listPageSize, (*domain.ListCursor)(nil)).Return(page, nil)

	// One lookup serves the whole listing call
	folderStore.On("GetByFolder", mock.Anything, "shared").Return(&domain.FolderRule{
		Folder: "shared",
		Access: domain.AccessRule{Visibility: domain.VisibilityPublic},
	}, nil).Once()

	got, err := svc.ListFiles(context.Background(), domain.ListFilesQuery{OwnerUserID: "owner-1"})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	folderStore.AssertExpectations(t)
}

func TestListFiles_IncludeExpired(t *testing.T) {
	svc, fileStore, _, _ := newTestService()

	page := []*domain.FileRecord{
		record("expired", "owner-1", func(r *domain.FileRecord) {
			r.ExpiresAt = i64(900_000)
			r.Access = &domain.AccessRule{Visibility: domain.VisibilityPublic}
		}),
	}
	fileStore.On("ListByOwner", mock.Anything, "owner-1", listPageSize, (*domain.ListCursor)(nil)).Return(page, nil)

	got, err := svc.ListFiles(context.Background(), domain.ListFilesQuery{
		OwnerUserID:    "owner-1",
		IncludeExpired: true,
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestListFiles_PagesResumeAfterLastRecord(t *testing.T) {
	svc, fileStore, _, _ := newTestService()

	// A full first page, every record at the same upload timestamp, so
	// only the id tiebreak separates them across the page boundary
	firstPage := make([]*domain.FileRecord, listPageSize)
	for i := range firstPage {
		firstPage[i] = record("page1", "owner-1", func(r *domain.FileRecord) {
			r.Access = &domain.AccessRule{Visibility: domain.VisibilityPublic}
		})
	}
	last := firstPage[len(firstPage)-1]
	secondPage := []*domain.FileRecord{
		record("page2", "owner-1", func(r *domain.FileRecord) {
			r.Access = &domain.AccessRule{Visibility: domain.VisibilityPublic}
		}),
	}

	fileStore.On("ListByOwner", mock.Anything, "owner-1", listPageSize, (*domain.ListCursor)(nil)).
		Return(firstPage, nil).Once()
	fileStore.On("ListByOwner", mock.Anything, "owner-1", listPageSize,
		&domain.ListCursor{UploadedAt: last.UploadedAt, ID: last.ID}).
		Return(secondPage, nil).Once()

	got, err := svc.ListFiles(context.Background(), domain.ListFilesQuery{
		OwnerUserID: "owner-1",
		Limit:       listPageSize + 1,
	})
	require.NoError(t, err)
	assert.Len(t, got, listPageSize+1)
	fileStore.AssertExpectations(t)
}

func TestSetFolderAccess_NilRuleClears(t *testing.T) {
	svc, _, folderStore, _ := newTestService()

	folderStore.On("Delete", mock.Anything, "shared").Return(nil)

	id, err := svc.SetFolderAccess(context.Background(), "shared", nil)
	require.NoError(t, err)
	assert.Empty(t, id)
	folderStore.AssertExpectations(t)
}

func TestSetFolderAccess_SanitizesBeforeStoring(t *testing.T) {
	svc, _, folderStore, _ := newTestService()

	expected := domain.AccessRule{
		Visibility:   domain.VisibilityRestricted,
		AllowUserIDs: []string{"a"},
	}
	folderStore.On("Set", mock.Anything, "shared", expected, int64(1_000_000)).Return("rule-1", nil)

	id, err := svc.SetFolderAccess(context.Background(), "shared", &domain.AccessRule{
		Visibility:   domain.VisibilityRestricted,
		AllowUserIDs: []string{"a", "", "a"},
	})
	require.NoError(t, err)
	assert.Equal(t, "rule-1", id)
}

func TestGetConfig_RedactsAPIKey(t *testing.T) {
	svc, _, _, configStore := newTestService()

	configStore.On("Get", mock.Anything).Return(&domain.TrackerConfig{
		UploadthingAPIKey: str("sk_live_secret"),
		DefaultTTLMs:      i64(1000),
	}, nil)

	got, err := svc.GetConfig(context.Background())
	require.NoError(t, err)
	assert.True(t, got.HasAPIKey)
	assert.Equal(t, i64(1000), got.DefaultTTLMs)
}
