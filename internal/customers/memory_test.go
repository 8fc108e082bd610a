package customers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
workers:
  - standby@example.com
customers:
  - customer_id: "1"
    display_name: Coleman Lamberton
    phone_number: "+15550100"
    worker: john@example.com
    avatar: https://example.com/a.png
    channels:
      - type: sms
        value: "+15550100"
      - type: whatsapp
        value: "whatsapp:+15550100"
    details:
      title: Information
      content: Likes long walks.
      consent: false
      record_id: rec-1
  - customer_id: "2"
    display_name: Jane Doe
    phone_number: "+15550101"
    worker: john@example.com
  - customer_id: "3"
    display_name: Ann Lee
    phone_number: "+15550102"
    worker: john@example.com
  - customer_id: "4"
    display_name: Tom Roe
    phone_number: "+15550103"
    worker: mary@example.com
`

func loadSeed(t *testing.T) *MemoryStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o600))
	store, err := LoadMemoryStore(path)
	require.NoError(t, err)
	return store
}

func TestMemoryStoreLookups(t *testing.T) {
	store := loadSeed(t)
	ctx := context.Background()

	byNumber, err := store.GetByNumber(ctx, "whatsapp:+15550100")
	require.NoError(t, err)
	assert.Equal(t, "1", byNumber.CustomerID)
	assert.Equal(t, "rec-1", byNumber.Details.RecordID)

	byID, err := store.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", byID.DisplayName)
	assert.Equal(t, "2", byID.Details.RecordID, "record id defaults to customer id")

	_, err = store.GetByNumber(ctx, "+19990000")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = store.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStoreWorkers(t *testing.T) {
	store := loadSeed(t)
	ctx := context.Background()

	worker, err := store.FindWorkerForCustomer(ctx, "+15550103")
	require.NoError(t, err)
	assert.Equal(t, "mary@example.com", worker)

	worker, err = store.FindWorkerForCustomer(ctx, "+19990000")
	require.NoError(t, err)
	assert.Empty(t, worker)

	roster, err := store.Workers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"standby@example.com", "john@example.com", "mary@example.com"}, roster)
}

func TestMemoryStoreListPaging(t *testing.T) {
	store := loadSeed(t)
	ctx := context.Background()

	first, err := store.List(ctx, "john@example.com", 2, "0")
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "1", first[0].CustomerID)
	assert.Equal(t, "2", first[1].CustomerID)

	next, err := store.List(ctx, "john@example.com", 2, first[1].CustomerID)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "3", next[0].CustomerID)

	all, err := store.List(ctx, "john@example.com", 0, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.List(ctx, "nobody@example.com", 10, "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryStoreListWithoutWorker(t *testing.T) {
	store := NewMemoryStore(Seed{Customers: []Customer{
		{CustomerID: "1", DisplayName: "Unassigned", PhoneNumber: "+15550100"},
		{CustomerID: "2", DisplayName: "Assigned", PhoneNumber: "+15550101", Worker: "john@example.com"},
	}})

	page, err := store.List(context.Background(), "", 10, "")
	require.NoError(t, err)
	assert.Empty(t, page)

	all, err := store.List(context.Background(), "", 0, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStoreUpdateConsent(t *testing.T) {
	store := loadSeed(t)
	ctx := context.Background()

	require.NoError(t, store.UpdateConsent(ctx, "rec-1", true))
	c, err := store.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, c.Details.Consent)

	assert.True(t, errors.Is(store.UpdateConsent(ctx, "rec-missing", true), ErrNotFound))
}

func TestLoadMemoryStoreEmptyPath(t *testing.T) {
	store, err := LoadMemoryStore("")
	require.NoError(t, err)
	roster, err := store.Workers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, roster)
}

func TestExampleSeedParses(t *testing.T) {
	store, err := LoadMemoryStore(filepath.Join("..", "..", "conf", "directory.example.yaml"))
	require.NoError(t, err)

	c, err := store.GetByNumber(context.Background(), "whatsapp:+12345678")
	require.NoError(t, err)
	assert.Equal(t, "Coca Cola", c.DisplayName)
	assert.Equal(t, "1", c.Details.RecordID)

	roster, err := store.Workers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"john@example.com", "mary@example.com"}, roster)
}
