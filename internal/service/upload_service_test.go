package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"propledger/internal/dto"
	"propledger/internal/models"
	"propledger/internal/realtime"
	"propledger/pkg/upload"
)

type fakeReceiptStore struct {
	created    []*models.Receipt
	receipts   map[uuid.UUID]*models.Receipt
	createErr  error
	thumbKeys  map[uuid.UUID]string
	deletedIDs []uuid.UUID
}

func newFakeReceiptStore() *fakeReceiptStore {
	return &fakeReceiptStore{
		receipts:  make(map[uuid.UUID]*models.Receipt),
		thumbKeys: make(map[uuid.UUID]string),
	}
}

func (f *fakeReceiptStore) Create(_ context.Context, receipt *models.Receipt) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, receipt)
	f.receipts[receipt.ID] = receipt
	return nil
}

func (f *fakeReceiptStore) GetByID(_ context.Context, accountID, id uuid.UUID) (*models.Receipt, error) {
	receipt, ok := f.receipts[id]
	if !ok || receipt.AccountID != accountID {
		return nil, errors.New("record not found")
	}
	return receipt, nil
}

func (f *fakeReceiptStore) ListUnprocessed(_ context.Context, accountID uuid.UUID) ([]*models.Receipt, error) {
	var out []*models.Receipt
	for _, r := range f.receipts {
		if r.AccountID == accountID && !r.Processed() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReceiptStore) SetThumbnailKey(_ context.Context, id uuid.UUID, key string) error {
	f.thumbKeys[id] = key
	return nil
}

func (f *fakeReceiptStore) Delete(_ context.Context, _, id uuid.UUID) error {
	f.deletedIDs = append(f.deletedIDs, id)
	delete(f.receipts, id)
	return nil
}

type fakeObjectStorage struct {
	objects    map[string][]byte
	presignErr error
	existsErr  error
	deleted    []string
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: make(map[string][]byte)}
}

func (f *fakeObjectStorage) PresignPut(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://storage.test/put/" + key, nil
}

func (f *fakeObjectStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return "https://storage.test/get/" + key, nil
}

func (f *fakeObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeObjectStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeObjectStorage) Put(_ context.Context, key, _ string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStorage) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

type fakeBroadcaster struct {
	events []realtime.Event
}

func (f *fakeBroadcaster) Broadcast(_ uuid.UUID, event realtime.Event) {
	f.events = append(f.events, event)
}

func TestRequestGrantIssuesScopedKeys(t *testing.T) {
	store := newFakeObjectStorage()
	hub := &fakeBroadcaster{}
	svc := NewUploadService(newFakeReceiptStore(), store, nil, hub, zap.NewNop())

	accountID := uuid.New()
	grant, err := svc.RequestGrant(context.Background(), accountID, &dto.UploadGrantRequest{
		EntityType:    "property",
		EntityID:      "12-elm-street",
		ContentType:   "image/jpeg",
		FileSizeBytes: 120_000,
		FileName:      "receipt.jpg",
	})
	require.NoError(t, err)

	prefix := "accounts/" + accountID.String() + "/property/12-elm-street/receipts/"
	assert.True(t, strings.HasPrefix(grant.StorageKey, prefix))
	assert.True(t, strings.HasSuffix(grant.StorageKey, ".jpg"))
	assert.True(t, strings.HasPrefix(grant.ThumbnailStorageKey, prefix+"thumbs/"))
	assert.True(t, strings.HasSuffix(grant.ThumbnailStorageKey, ".jpg"))
	assert.Equal(t, "https://storage.test/put/"+grant.StorageKey, grant.UploadURL)

	expires, err := time.Parse(time.RFC3339, grant.ExpiresAt)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now().UTC()))
}

func TestRequestGrantRejectsDisallowedContentType(t *testing.T) {
	svc := NewUploadService(newFakeReceiptStore(), newFakeObjectStorage(), nil, &fakeBroadcaster{}, zap.NewNop())

	_, err := svc.RequestGrant(context.Background(), uuid.New(), &dto.UploadGrantRequest{
		EntityType:    "property",
		EntityID:      "main",
		ContentType:   "application/pdf",
		FileSizeBytes: 1024,
	})

	var validationErr *upload.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "content_type", validationErr.Field)
}

func TestRequestGrantRejectsOversizedFile(t *testing.T) {
	svc := NewUploadService(newFakeReceiptStore(), newFakeObjectStorage(), nil, &fakeBroadcaster{}, zap.NewNop())

	_, err := svc.RequestGrant(context.Background(), uuid.New(), &dto.UploadGrantRequest{
		EntityType:    "property",
		EntityID:      "main",
		ContentType:   "image/png",
		FileSizeBytes: upload.MaxFileSizeBytes + 1,
	})

	var validationErr *upload.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "file_size", validationErr.Field)
}

func TestRequestGrantRejectsMalformedEntity(t *testing.T) {
	svc := NewUploadService(newFakeReceiptStore(), newFakeObjectStorage(), nil, &fakeBroadcaster{}, zap.NewNop())

	_, err := svc.RequestGrant(context.Background(), uuid.New(), &dto.UploadGrantRequest{
		EntityType:    "../escape",
		EntityID:      "main",
		ContentType:   "image/jpeg",
		FileSizeBytes: 1024,
	})
	assert.ErrorIs(t, err, ErrInvalidEntity)
}

func TestConfirmUploadCreatesReceiptAndBroadcasts(t *testing.T) {
	receipts := newFakeReceiptStore()
	store := newFakeObjectStorage()
	hub := &fakeBroadcaster{}
	svc := NewUploadService(receipts, store, nil, hub, zap.NewNop())

	accountID := uuid.New()
	key := "accounts/" + accountID.String() + "/property/main/receipts/abc.jpg"
	store.objects[key] = []byte("bytes")

	propertyID := uuid.New()
	resp, err := svc.ConfirmUpload(context.Background(), accountID, &dto.ConfirmUploadRequest{
		StorageKey:       key,
		ContentType:      "image/jpeg",
		FileSizeBytes:    5,
		OriginalFileName: "faucet.jpg",
		PropertyID:       propertyID.String(),
	})
	require.NoError(t, err)

	require.Len(t, receipts.created, 1)
	created := receipts.created[0]
	assert.Equal(t, accountID, created.AccountID)
	assert.Equal(t, key, created.StorageKey)
	require.NotNil(t, created.PropertyID)
	assert.Equal(t, propertyID, *created.PropertyID)
	assert.Nil(t, created.ProcessedAt)

	assert.Equal(t, created.ID.String(), resp.ID)
	assert.Equal(t, "https://storage.test/get/"+key, resp.ViewURL)

	require.Len(t, hub.events, 1)
	assert.Equal(t, realtime.EventReceiptAdded, hub.events[0].Type)
	require.NotNil(t, hub.events[0].Receipt)
	assert.Equal(t, created.ID.String(), hub.events[0].Receipt.ID)
}

func TestConfirmUploadRejectsForeignKey(t *testing.T) {
	svc := NewUploadService(newFakeReceiptStore(), newFakeObjectStorage(), nil, &fakeBroadcaster{}, zap.NewNop())

	_, err := svc.ConfirmUpload(context.Background(), uuid.New(), &dto.ConfirmUploadRequest{
		StorageKey:    "accounts/" + uuid.NewString() + "/property/main/receipts/abc.jpg",
		ContentType:   "image/jpeg",
		FileSizeBytes: 5,
	})
	assert.ErrorIs(t, err, ErrForeignKey)
}

func TestConfirmUploadRequiresTransferredObject(t *testing.T) {
	receipts := newFakeReceiptStore()
	hub := &fakeBroadcaster{}
	svc := NewUploadService(receipts, newFakeObjectStorage(), nil, hub, zap.NewNop())

	accountID := uuid.New()
	_, err := svc.ConfirmUpload(context.Background(), accountID, &dto.ConfirmUploadRequest{
		StorageKey:    "accounts/" + accountID.String() + "/property/main/receipts/abc.jpg",
		ContentType:   "image/jpeg",
		FileSizeBytes: 5,
	})

	assert.ErrorIs(t, err, ErrObjectMissing)
	assert.Empty(t, receipts.created)
	assert.Empty(t, hub.events)
}

func TestConfirmUploadRejectsBadPropertyID(t *testing.T) {
	store := newFakeObjectStorage()
	svc := NewUploadService(newFakeReceiptStore(), store, nil, &fakeBroadcaster{}, zap.NewNop())

	accountID := uuid.New()
	key := "accounts/" + accountID.String() + "/property/main/receipts/abc.jpg"
	store.objects[key] = []byte("bytes")

	_, err := svc.ConfirmUpload(context.Background(), accountID, &dto.ConfirmUploadRequest{
		StorageKey:    key,
		ContentType:   "image/jpeg",
		FileSizeBytes: 5,
		PropertyID:    "not-a-uuid",
	})
	assert.ErrorIs(t, err, ErrInvalidEntity)
}
