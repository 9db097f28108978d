package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realestate-crm/backend/pkg/models"
)

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore(func() time.Time { return suiteNow }))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)

	lead := &models.Lead{FirstName: "Copy", LastName: "Check", Score: 10}
	require.NoError(t, store.CreateLead(ctx, lead))

	got, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	got.Score = 99

	again, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, again.Score)
}

func TestMemoryStoreMilestoneNeedsTransaction(t *testing.T) {
	store := NewMemoryStore(nil)
	err := store.CreateMilestone(context.Background(), &models.TransactionMilestone{TransactionID: 42, Name: "Orphan"})
	assert.ErrorIs(t, err, ErrNotFound)
}
