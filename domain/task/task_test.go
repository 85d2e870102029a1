package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupKeyStableAcrossMapOrder(t *testing.T) {
	a := NewTask(OperationIngestRepository, PriorityNormal, map[string]any{
		"repo_id": "r1",
		"commit":  "abc",
	})
	b := NewTask(OperationIngestRepository, PriorityNormal, map[string]any{
		"commit":  "abc",
		"repo_id": "r1",
	})

	assert.Equal(t, a.DedupKey(), b.DedupKey())
	assert.Equal(t, "codesense.ingestion.run:abc:r1", a.DedupKey())
}

func TestDedupKeyDistinguishesWork(t *testing.T) {
	a := NewTask(OperationIngestRepository, PriorityNormal, map[string]any{"repo_id": "r1"})
	b := NewTask(OperationIngestRepository, PriorityNormal, map[string]any{"repo_id": "r2"})
	c := NewTask(OperationDeleteRepository, PriorityNormal, map[string]any{"repo_id": "r1"})

	assert.NotEqual(t, a.DedupKey(), b.DedupKey())
	assert.NotEqual(t, a.DedupKey(), c.DedupKey())
}

func TestPayloadIsCopied(t *testing.T) {
	payload := map[string]any{"repo_id": "r1"}
	tk := NewTask(OperationIngestRepository, PriorityNormal, payload)

	payload["repo_id"] = "mutated"
	assert.Equal(t, "r1", tk.PayloadString("repo_id"))

	got := tk.Payload()
	got["repo_id"] = "mutated"
	assert.Equal(t, "r1", tk.PayloadString("repo_id"))
}

func TestOperationPredicates(t *testing.T) {
	assert.True(t, OperationIngestRepository.IsIngestion())
	assert.False(t, OperationDeleteRepository.IsIngestion())
	assert.Len(t, All(), 2)
}
