package onboarding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryBeginSuppressesWithinWindow(t *testing.T) {
	r := NewRegistry(5 * time.Minute)
	key := Key{CommunityID: "c", MemberID: "m"}

	lease, ok := r.TryBegin(key, t0)
	require.True(t, ok)

	_, ok = r.TryBegin(key, t0)
	assert.False(t, ok, "key is in the processing set")

	r.End(lease)
	_, ok = r.TryBegin(key, t0.Add(4*time.Minute))
	assert.False(t, ok, "key was handled inside the window")

	_, ok = r.TryBegin(key, t0.Add(5*time.Minute))
	assert.True(t, ok, "window has elapsed")
}

func TestEndIsIdempotent(t *testing.T) {
	r := NewRegistry(time.Minute)
	key := Key{CommunityID: "c", MemberID: "m"}

	r.End(Lease{Key: key})
	lease, ok := r.TryBegin(key, t0)
	require.True(t, ok)

	r.End(lease)
	r.End(lease)
	assert.Equal(t, 0, r.Stats().Processing)
}

func TestForgetRevokesLease(t *testing.T) {
	r := NewRegistry(time.Minute)
	key := Key{CommunityID: "c", MemberID: "m"}

	old, ok := r.TryBegin(key, t0)
	require.True(t, ok)
	r.Forget(key)
	assert.False(t, r.Held(old))

	fresh, ok := r.TryBegin(key, t0)
	require.True(t, ok, "forget clears the recently handled stamp")

	r.End(old)
	assert.True(t, r.Held(fresh), "a stale lease cannot release a newer one")
	assert.False(t, r.Schedule(old, PendingFollowUp{ChannelID: "x", DueAt: t0}))
	assert.True(t, r.Schedule(fresh, PendingFollowUp{ChannelID: "y", DueAt: t0}))

	f, ok := r.Pending(key)
	require.True(t, ok)
	assert.Equal(t, "y", f.ChannelID)
	assert.Equal(t, key, f.Key)
}

func TestScheduleKeepsOneEntryPerKey(t *testing.T) {
	r := NewRegistry(time.Minute)
	key := Key{CommunityID: "c", MemberID: "m"}
	lease, _ := r.TryBegin(key, t0)

	require.True(t, r.Schedule(lease, PendingFollowUp{ChannelID: "a", DueAt: t0}))
	require.True(t, r.Schedule(lease, PendingFollowUp{ChannelID: "b", DueAt: t0}))
	assert.False(t, r.ScheduleIfAbsent(lease, PendingFollowUp{ChannelID: "c", DueAt: t0}))

	assert.Equal(t, 1, r.PendingCount(""))
	f, _ := r.Pending(key)
	assert.Equal(t, "b", f.ChannelID)
}

func TestTakeDueHandsOutEntriesOnce(t *testing.T) {
	r := NewRegistry(time.Minute)
	early := Key{CommunityID: "c", MemberID: "early"}
	late := Key{CommunityID: "c", MemberID: "late"}
	l1, _ := r.TryBegin(early, t0)
	l2, _ := r.TryBegin(late, t0)
	r.Schedule(l1, PendingFollowUp{ChannelID: "1", DueAt: t0.Add(time.Hour)})
	r.Schedule(l2, PendingFollowUp{ChannelID: "2", DueAt: t0.Add(3 * time.Hour)})

	assert.Empty(t, r.TakeDue(t0))

	due := r.TakeDue(t0.Add(time.Hour))
	require.Len(t, due, 1)
	assert.Equal(t, early, due[0].Key)
	assert.Empty(t, r.TakeDue(t0.Add(time.Hour)))
	assert.Equal(t, 1, r.PendingCount("c"))
	assert.Equal(t, 0, r.PendingCount("other"))
}

func TestCancelAndRebindByChannel(t *testing.T) {
	r := NewRegistry(time.Minute)
	key := Key{CommunityID: "c", MemberID: "m"}
	lease, _ := r.TryBegin(key, t0)
	r.Schedule(lease, PendingFollowUp{ChannelID: "dup", DueAt: t0})

	assert.Equal(t, 1, r.RebindChannel("dup", "keep"))
	assert.Equal(t, 0, r.CancelFollowUpsForChannel("dup"))
	assert.Equal(t, 1, r.CancelFollowUpsForChannel("keep"))
	assert.False(t, r.CancelFollowUp(key))
}

func TestPromptsExpire(t *testing.T) {
	r := NewRegistry(time.Minute)
	p := newPrompt(PromptInitial, Key{CommunityID: "c", MemberID: "m"}, "ch", t0, 5*time.Minute)
	r.RegisterPrompt(p)

	got, ok := r.LookupPrompt(p.ID, t0.Add(4*time.Minute))
	require.True(t, ok)
	assert.Equal(t, "ch", got.ChannelID)

	_, ok = r.LookupPrompt(p.ID, t0.Add(5*time.Minute))
	assert.False(t, ok)

	stamps, prompts := r.Prune(t0.Add(5 * time.Minute))
	assert.Equal(t, 0, stamps)
	assert.Equal(t, 1, prompts)
	assert.Equal(t, 0, r.Stats().Prompts)
}

func TestPruneDropsOldStampsOnly(t *testing.T) {
	r := NewRegistry(5 * time.Minute)
	oldKey := Key{CommunityID: "c", MemberID: "old"}
	newKey := Key{CommunityID: "c", MemberID: "new"}
	l1, _ := r.TryBegin(oldKey, t0)
	l2, _ := r.TryBegin(newKey, t0.Add(4*time.Minute))
	r.End(l1)
	r.End(l2)

	stamps, _ := r.Prune(t0.Add(6 * time.Minute))
	assert.Equal(t, 1, stamps)
	assert.Equal(t, 1, r.Stats().Recent)
}

func TestResetAllClearsOnlyTheLedger(t *testing.T) {
	r := NewRegistry(time.Minute)
	key := Key{CommunityID: "c", MemberID: "m"}
	lease, _ := r.TryBegin(key, t0)
	r.Schedule(lease, PendingFollowUp{ChannelID: "x", DueAt: t0})
	prompt := newPrompt(PromptInitial, key, "x", t0, time.Minute)
	r.RegisterPrompt(prompt)

	r.ResetAll()

	assert.Equal(t, RegistryStats{Pending: 1, Prompts: 1}, r.Stats())
	_, ok := r.Pending(key)
	assert.True(t, ok)
	_, ok = r.LookupPrompt(prompt.ID, t0)
	assert.True(t, ok)
	_, ok = r.TryBegin(key, t0)
	assert.True(t, ok)
}

func TestPendingInSortsByDueTime(t *testing.T) {
	r := NewRegistry(time.Minute)
	for i, id := range []string{"late", "early", "other"} {
		key := Key{CommunityID: "c", MemberID: id}
		if id == "other" {
			key.CommunityID = "d"
		}
		lease, _ := r.TryBegin(key, t0)
		due := t0.Add(time.Duration(3-i) * time.Hour)
		r.Schedule(lease, PendingFollowUp{ChannelID: id, DueAt: due})
	}

	got := r.PendingIn("c")
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].Key.MemberID)
	assert.Equal(t, "late", got[1].Key.MemberID)
	assert.Empty(t, r.PendingIn("nobody"))
}
