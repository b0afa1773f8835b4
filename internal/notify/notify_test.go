package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushPrependsMostRecentFirst(t *testing.T) {
	m := NewManager(Config{TTL: time.Minute})
	defer m.Close()

	m.Info("Sale: Brake Pad", "Qty: 2")
	m.Success("Restocked: Oil Filter", "+50")
	m.Warning("Low stock: Wiper Blade", "3 remaining")

	list := m.List()
	require.Len(t, list, 3)
	require.Equal(t, KindWarning, list[0].Kind)
	require.Equal(t, KindSuccess, list[1].Kind)
	require.Equal(t, KindInfo, list[2].Kind)
	require.Greater(t, list[0].ID, list[1].ID)
	require.Greater(t, list[1].ID, list[2].ID)
}

func TestCapacityEvictsOldest(t *testing.T) {
	var dropped int
	m := NewManager(Config{Capacity: 10, TTL: time.Minute, OnDrop: func(n int) { dropped += n }})
	defer m.Close()

	var firstID int64
	for i := 0; i < 12; i++ {
		n := m.Push(KindInfo, fmt.Sprintf("event %d", i), "")
		if i == 0 {
			firstID = n.ID
		}
	}

	require.Equal(t, 10, m.Len())
	require.Equal(t, 2, dropped)
	list := m.List()
	require.Equal(t, "event 11", list[0].Title)
	require.Equal(t, "event 2", list[9].Title)
	require.False(t, m.Dismiss(firstID), "evicted entries are gone")
}

func TestExpiryRemovesAfterTTL(t *testing.T) {
	m := NewManager(Config{TTL: 30 * time.Millisecond})
	defer m.Close()

	m.Info("Sale: Brake Pad", "Qty: 1")
	require.Equal(t, 1, m.Len())

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestExpiryIsPerNotification(t *testing.T) {
	m := NewManager(Config{TTL: 60 * time.Millisecond})
	defer m.Close()

	m.Info("first", "")
	time.Sleep(35 * time.Millisecond)
	m.Info("second", "")

	// The first expires on its own clock; the second survives it.
	require.Eventually(t, func() bool { return m.Len() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "second", m.List()[0].Title)

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDismiss(t *testing.T) {
	m := NewManager(Config{TTL: time.Minute})
	defer m.Close()

	n := m.Push(KindWarning, "Low stock: Oil Filter", "4 remaining")
	m.Push(KindInfo, "Sale: Brake Pad", "Qty: 1")

	require.True(t, m.Dismiss(n.ID))
	require.Equal(t, 1, m.Len())
	require.False(t, m.Dismiss(n.ID), "dismissing twice reports absence")
}

func TestCloseRejectsFurtherPushes(t *testing.T) {
	m := NewManager(Config{TTL: time.Minute})
	m.Info("before close", "")
	m.Close()

	require.Zero(t, m.Len())
	n := m.Push(KindInfo, "after close", "")
	require.Zero(t, n.ID)
	require.Zero(t, m.Len())

	m.Close()
}

func TestDefaults(t *testing.T) {
	m := NewManager(Config{})
	defer m.Close()

	for i := 0; i < DefaultCapacity+5; i++ {
		m.Push(KindInfo, "event", "")
	}
	require.Equal(t, DefaultCapacity, m.Len())
}
