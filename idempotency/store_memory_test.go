package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mintRecord struct {
	Recipient string `json:"recipient"`
	TxHash    string `json:"txHash"`
}

func TestMemoryStore_CheckAndMark_FreshKey(t *testing.T) {
	store := NewMemoryStore[mintRecord]()
	ctx := context.Background()

	status, result, done, err := store.CheckAndMark(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status)
	assert.Nil(t, result)
	assert.NotNil(t, done)
}

func TestMemoryStore_CompleteRecordsResult(t *testing.T) {
	store := NewMemoryStore[mintRecord]()
	ctx := context.Background()

	_, _, done, err := store.CheckAndMark(ctx, "0xabc")
	require.NoError(t, err)

	record := &mintRecord{Recipient: "0xpayer", TxHash: "0xmint"}
	require.NoError(t, store.Complete(ctx, "0xabc", record, done))

	status, result, _, err := store.CheckAndMark(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, status)
	require.NotNil(t, result)
	assert.Equal(t, "0xpayer", result.Recipient)
	assert.Equal(t, "0xmint", result.TxHash)
}

func TestMemoryStore_FailLeavesKeyRetryable(t *testing.T) {
	store := NewMemoryStore[mintRecord]()
	ctx := context.Background()

	_, _, done, err := store.CheckAndMark(ctx, "0xabc")
	require.NoError(t, err)
	require.NoError(t, store.Fail(ctx, "0xabc", done))

	status, result, done, err := store.CheckAndMark(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status, "failed attempt must not consume the key")
	assert.Nil(t, result)
	assert.NotNil(t, done)
}

func TestMemoryStore_SecondTaskObservesInFlight(t *testing.T) {
	store := NewMemoryStore[mintRecord]()
	ctx := context.Background()

	_, _, ownerDone, err := store.CheckAndMark(ctx, "0xabc")
	require.NoError(t, err)

	status, _, waiterDone, err := store.CheckAndMark(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, StatusInFlight, status)
	assert.Equal(t, ownerDone, waiterDone, "waiter gets the owner's done channel")
}

func TestMemoryStore_WaiterWokenOnComplete(t *testing.T) {
	store := NewMemoryStore[mintRecord]()
	ctx := context.Background()

	_, _, done, err := store.CheckAndMark(ctx, "0xabc")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	var got *mintRecord
	go func() {
		defer wg.Done()
		status, _, waiterDone, _ := store.CheckAndMark(ctx, "0xabc")
		require.Equal(t, StatusInFlight, status)
		got, _ = store.WaitForResult(ctx, "0xabc", waiterDone)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, store.Complete(ctx, "0xabc", &mintRecord{TxHash: "0xmint"}, done))
	wg.Wait()

	require.NotNil(t, got)
	assert.Equal(t, "0xmint", got.TxHash)
}

func TestMemoryStore_WaiterWokenOnFail(t *testing.T) {
	store := NewMemoryStore[mintRecord]()
	ctx := context.Background()

	_, _, done, err := store.CheckAndMark(ctx, "0xabc")
	require.NoError(t, err)

	resultCh := make(chan *mintRecord, 1)
	go func() {
		_, _, waiterDone, _ := store.CheckAndMark(ctx, "0xabc")
		r, _ := store.WaitForResult(ctx, "0xabc", waiterDone)
		resultCh <- r
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, store.Fail(ctx, "0xabc", done))

	select {
	case r := <-resultCh:
		assert.Nil(t, r, "a failed attempt records nothing")
	case <-time.After(time.Second):
		t.Fatal("waiter was never woken")
	}
}

func TestMemoryStore_WaitForResultHonorsContext(t *testing.T) {
	store := NewMemoryStore[mintRecord]()

	_, _, done, err := store.CheckAndMark(context.Background(), "0xabc")
	require.NoError(t, err)
	_ = done // never resolved

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	status, _, waiterDone, err := store.CheckAndMark(ctx, "0xabc")
	require.NoError(t, err)
	require.Equal(t, StatusInFlight, status)

	_, err = store.WaitForResult(ctx, "0xabc", waiterDone)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryStore_DistinctKeysIndependent(t *testing.T) {
	store := NewMemoryStore[mintRecord]()
	ctx := context.Background()

	_, _, done1, err := store.CheckAndMark(ctx, "0xaaa")
	require.NoError(t, err)

	status, _, done2, err := store.CheckAndMark(ctx, "0xbbb")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, status, "distinct keys do not contend")

	require.NoError(t, store.Complete(ctx, "0xaaa", &mintRecord{TxHash: "1"}, done1))
	require.NoError(t, store.Fail(ctx, "0xbbb", done2))
}
