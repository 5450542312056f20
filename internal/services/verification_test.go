package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vittam-ai/vittam-backend/internal/filestore"
	"github.com/vittam-ai/vittam-backend/internal/llm"
	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

// scriptedClient returns canned responses in order.
type scriptedClient struct {
	responses []*llm.MessageResponse
	err       error
	requests  []llm.MessageRequest
}

func (c *scriptedClient) CreateMessage(ctx context.Context, req llm.MessageRequest) (*llm.MessageResponse, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.responses) == 0 {
		return &llm.MessageResponse{StopReason: "end_turn"}, nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp, nil
}

func textResponse(text string) *llm.MessageResponse {
	return &llm.MessageResponse{
		StopReason: "end_turn",
		Blocks:     []llm.Block{{Type: "text", Text: text}},
	}
}

const verifiedVerdict = `{"is_correct_type": true, "is_clear_and_readable": true, "is_complete": true, "contains_expected_fields": true, "overall_verification": "verified", "feedback": "Aadhaar card with all fields visible", "document_type_detected": "Aadhaar Card"}`

const rejectedVerdict = `{"is_correct_type": false, "is_clear_and_readable": true, "is_complete": true, "contains_expected_fields": false, "overall_verification": "rejected", "feedback": "This is a bank statement, not an identity proof", "document_type_detected": "Bank Statement"}`

func setupVerification(t *testing.T, client llm.Client) (*VerificationService, *DocumentService, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	files := filestore.NewLocalStore(t.TempDir())
	docs := NewDocumentService(store, files)
	verify := NewVerificationService(store, files, client, "vision-model", nil)
	seedSession(t, store, "sess-1", models.StageVerification)
	return verify, docs, store
}

func TestParseVerdict(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		v := parseVerdict(verifiedVerdict)
		require.NotNil(t, v)
		assert.True(t, v.IsCorrectType)
		assert.Equal(t, "verified", v.OverallVerification)
	})

	t.Run("json fence", func(t *testing.T) {
		v := parseVerdict("```json\n" + verifiedVerdict + "\n```")
		require.NotNil(t, v)
		assert.Equal(t, "verified", v.OverallVerification)
	})

	t.Run("bare fence", func(t *testing.T) {
		v := parseVerdict("```\n" + rejectedVerdict + "\n```")
		require.NotNil(t, v)
		assert.Equal(t, "rejected", v.OverallVerification)
	})

	t.Run("json buried in prose", func(t *testing.T) {
		v := parseVerdict("Here is my analysis of the document:\n" + verifiedVerdict + "\nLet me know if you need more detail.")
		require.NotNil(t, v)
		assert.Equal(t, "verified", v.OverallVerification)
	})

	t.Run("garbage fails closed", func(t *testing.T) {
		assert.Nil(t, parseVerdict("The document looks fine to me."))
		assert.Nil(t, parseVerdict(""))
		assert.Nil(t, parseVerdict("{not json}"))
	})
}

func TestVerifyDocumentVerified(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{textResponse(verifiedVerdict)}}
	verify, docs, store := setupVerification(t, client)

	doc, err := docs.StoreDocument("sess-1", "identity_proof", "aadhaar.jpg", []byte("img"))
	require.NoError(t, err)

	result, err := verify.VerifyDocument(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.True(t, result.IsCorrectType)
	assert.Contains(t, result.Feedback, "Aadhaar")

	stored, err := store.GetDocumentByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusVerified, stored.VerificationStatus)
	assert.NotNil(t, stored.VerifiedAt)

	// the vision call carries the image plus the instruction text
	require.Len(t, client.requests, 1)
	blocks := client.requests[0].Messages[0].Blocks
	require.Len(t, blocks, 2)
	assert.Equal(t, "image", blocks[0].Type)
	assert.Equal(t, "image/jpeg", blocks[0].MediaType)
	assert.Equal(t, "text", blocks[1].Type)
	assert.Contains(t, blocks[1].Text, "Identity Proof")
}

func TestVerifyDocumentRejected(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{textResponse(rejectedVerdict)}}
	verify, docs, store := setupVerification(t, client)

	doc, err := docs.StoreDocument("sess-1", "identity_proof", "statement.png", []byte("img"))
	require.NoError(t, err)

	result, err := verify.VerifyDocument(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.False(t, result.IsCorrectType)

	stored, err := store.GetDocumentByID(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusRejected, stored.VerificationStatus)
	assert.Nil(t, stored.VerifiedAt)
	assert.Contains(t, stored.VerificationFeedback, "bank statement")
}

func TestVerifyDocumentBadExtension(t *testing.T) {
	client := &scriptedClient{}
	verify, docs, _ := setupVerification(t, client)

	doc, err := docs.StoreDocument("sess-1", "identity_proof", "aadhaar.docx", []byte("doc"))
	require.NoError(t, err)

	result, err := verify.VerifyDocument(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Contains(t, result.Feedback, "Invalid file format")
	assert.Empty(t, client.requests, "no model call for unsupported formats")
}

func TestVerifyDocumentPDFWithoutRasterizer(t *testing.T) {
	client := &scriptedClient{}
	verify, docs, _ := setupVerification(t, client)

	doc, err := docs.StoreDocument("sess-1", "bank_statement", "statement.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)

	result, err := verify.VerifyDocument(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Contains(t, result.Feedback, "PDF uploads are not supported")
}

func TestVerifyDocumentModelErrorFailsClosed(t *testing.T) {
	client := &scriptedClient{err: errors.New("rate limited")}
	verify, docs, _ := setupVerification(t, client)

	doc, err := docs.StoreDocument("sess-1", "identity_proof", "aadhaar.jpg", []byte("img"))
	require.NoError(t, err)

	result, err := verify.VerifyDocument(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Contains(t, result.Feedback, "Error during verification")
}

func TestVerifyDocumentUnparseableVerdictFailsClosed(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{textResponse("looks legit")}}
	verify, docs, _ := setupVerification(t, client)

	doc, err := docs.StoreDocument("sess-1", "identity_proof", "aadhaar.jpg", []byte("img"))
	require.NoError(t, err)

	result, err := verify.VerifyDocument(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Contains(t, result.Feedback, "Unable to parse verification response")
}

func TestVerifyDocumentUnknownID(t *testing.T) {
	verify, _, _ := setupVerification(t, &scriptedClient{})

	_, err := verify.VerifyDocument(context.Background(), 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVerifySessionEmpty(t *testing.T) {
	verify, _, _ := setupVerification(t, &scriptedClient{})

	result, err := verify.VerifySession(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "No documents found for this session", result.Message)
	assert.Empty(t, result.Results)
}

func TestVerifySessionSkipsVerified(t *testing.T) {
	client := &scriptedClient{responses: []*llm.MessageResponse{
		textResponse(verifiedVerdict),
		textResponse(rejectedVerdict),
	}}
	verify, docs, store := setupVerification(t, client)

	already, err := docs.StoreDocument("sess-1", "identity_proof", "aadhaar.jpg", []byte("img"))
	require.NoError(t, err)
	already.VerificationStatus = models.DocStatusVerified
	require.NoError(t, store.UpdateDocument(already))

	_, err = docs.StoreDocument("sess-1", "address_proof", "voter.jpg", []byte("img"))
	require.NoError(t, err)
	_, err = docs.StoreDocument("sess-1", "bank_statement", "statement.jpg", []byte("img"))
	require.NoError(t, err)

	result, err := verify.VerifySession(context.Background(), "sess-1")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.AllVerified)
	assert.Equal(t, 3, result.TotalDocuments)
	assert.Equal(t, 2, result.VerifiedCount, "the pre-verified document counts without a model call")
	assert.Equal(t, 1, result.RejectedCount)
	assert.Len(t, client.requests, 2)

	var skipped *VerifyResult
	for i := range result.Results {
		if result.Results[i].Status == "already_verified" {
			skipped = &result.Results[i]
		}
	}
	require.NotNil(t, skipped)
	assert.Equal(t, "identity_proof", skipped.DocType)
	assert.Equal(t, "Document was already verified", skipped.Feedback)
}
