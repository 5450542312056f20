package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vittam-ai/vittam-backend/internal/filestore"
	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

func newDocumentService(t *testing.T, store storage.Store) *DocumentService {
	t.Helper()
	return NewDocumentService(store, filestore.NewLocalStore(t.TempDir()))
}

// objectStore is an in-memory stand-in for bucket-backed file storage.
type objectStore struct {
	objects map[string][]byte
}

func newObjectStore() *objectStore {
	return &objectStore{objects: make(map[string][]byte)}
}

func (o *objectStore) Save(sessionID, fileName string, content []byte) (string, error) {
	key := "documents/" + sessionID + "/" + fileName
	o.objects[key] = content
	return key, nil
}

func (o *objectStore) Load(key string) ([]byte, error) {
	content, ok := o.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return content, nil
}

func (o *objectStore) Remote() bool { return true }

func TestStoreDocumentRecordsStorageMode(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "sess-1", models.StageVerification)

	local := newDocumentService(t, store)
	doc, err := local.StoreDocument("sess-1", "identity_proof", "aadhaar.jpg", []byte("img"))
	require.NoError(t, err)
	assert.False(t, doc.Remote)

	objects := newObjectStore()
	remote := NewDocumentService(store, objects)
	doc, err = remote.StoreDocument("sess-1", "address_proof", "voter.jpg", []byte("img"))
	require.NoError(t, err)
	assert.True(t, doc.Remote)
	assert.Equal(t, "documents/sess-1/address_proof.jpg", doc.FilePath)

	_, ok := objects.objects[doc.FilePath]
	assert.True(t, ok, "bytes stored under the recorded object key")
}

func TestStoreDocument(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "sess-1", models.StageVerification)
	dir := t.TempDir()
	svc := NewDocumentService(store, filestore.NewLocalStore(dir))

	doc, err := svc.StoreDocument("sess-1", "identity_proof", "aadhaar.jpg", []byte("image-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "identity_proof", doc.DocType)
	assert.Equal(t, "Identity Proof", doc.DocName)
	assert.Equal(t, "aadhaar.jpg", doc.OriginalFilename)
	assert.Equal(t, models.DocStatusPending, doc.VerificationStatus)
	assert.Equal(t, int64(len("image-bytes")), doc.FileSize)

	// the file lands under the session directory named by doc type
	content, err := os.ReadFile(filepath.Join(dir, "sess-1", "identity_proof.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), content)
}

func TestStoreDocumentReuploadResetsVerification(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "sess-1", models.StageVerification)
	svc := newDocumentService(t, store)

	first, err := svc.StoreDocument("sess-1", "identity_proof", "aadhaar.jpg", []byte("first"))
	require.NoError(t, err)

	// mark verified, then re-upload the same type
	first.VerificationStatus = models.DocStatusVerified
	first.VerificationFeedback = "looks good"
	require.NoError(t, store.UpdateDocument(first))

	second, err := svc.StoreDocument("sess-1", "identity_proof", "aadhaar_v2.png", []byte("second"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "re-upload keeps one record per type")
	assert.Equal(t, models.DocStatusPending, second.VerificationStatus)
	assert.Empty(t, second.VerificationFeedback)
	assert.Nil(t, second.VerifiedAt)
	assert.Equal(t, "aadhaar_v2.png", second.OriginalFilename)

	docs, err := svc.List("sess-1")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestStoreDocumentValidation(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "sess-1", models.StageVerification)
	svc := newDocumentService(t, store)

	t.Run("unknown type", func(t *testing.T) {
		_, err := svc.StoreDocument("sess-1", "passport_scan", "x.jpg", []byte("x"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid document type")
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := svc.StoreDocument("sess-1", "identity_proof", "x.jpg", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty")
	})

	t.Run("oversized file", func(t *testing.T) {
		_, err := svc.StoreDocument("sess-1", "identity_proof", "x.jpg", bytes.Repeat([]byte("a"), MaxUploadSize+1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds the 1MB limit")
	})

	t.Run("exactly at the limit", func(t *testing.T) {
		_, err := svc.StoreDocument("sess-1", "identity_proof", "x.jpg", bytes.Repeat([]byte("a"), MaxUploadSize))
		assert.NoError(t, err)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.StoreDocument("no-such-session", "identity_proof", "x.jpg", []byte("x"))
		require.Error(t, err)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestDocumentStatus(t *testing.T) {
	store := storage.NewMemoryStore()
	seedSession(t, store, "sess-1", models.StageVerification)
	svc := newDocumentService(t, store)

	t.Run("no uploads", func(t *testing.T) {
		status, err := svc.Status("sess-1")
		require.NoError(t, err)
		assert.Equal(t, 0, status.Total)
		assert.False(t, status.AllVerified, "an empty set never counts as verified")
		assert.Equal(t, []string{"identity_proof", "address_proof", "bank_statement"}, status.MissingMandatory)
	})

	for _, docType := range []string{"identity_proof", "address_proof", "bank_statement"} {
		_, err := svc.StoreDocument("sess-1", docType, docType+".jpg", []byte("x"))
		require.NoError(t, err)
	}

	t.Run("all pending", func(t *testing.T) {
		status, err := svc.Status("sess-1")
		require.NoError(t, err)
		assert.Equal(t, 3, status.Total)
		assert.Equal(t, 3, status.Pending)
		assert.False(t, status.AllVerified)
		assert.Empty(t, status.MissingMandatory)
	})

	docs, err := svc.List("sess-1")
	require.NoError(t, err)
	for _, doc := range docs {
		doc.VerificationStatus = models.DocStatusVerified
		require.NoError(t, store.UpdateDocument(doc))
	}

	t.Run("all verified", func(t *testing.T) {
		status, err := svc.Status("sess-1")
		require.NoError(t, err)
		assert.Equal(t, 3, status.Verified)
		assert.True(t, status.AllVerified)
	})

	t.Run("one rejected blocks", func(t *testing.T) {
		docs[0].VerificationStatus = models.DocStatusRejected
		require.NoError(t, store.UpdateDocument(docs[0]))

		status, err := svc.Status("sess-1")
		require.NoError(t, err)
		assert.Equal(t, 1, status.Rejected)
		assert.False(t, status.AllVerified)
	})
}
