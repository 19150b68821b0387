package onboarding

import (
	"sort"
	"sync"
	"time"
)

// Key identifies one onboarding lifecycle: a member within a community.
type Key struct {
	CommunityID string
	MemberID    string
}

func (k Key) String() string {
	return k.CommunityID + "-" + k.MemberID
}

// Lease is proof that a caller owns a key in the processing set. A departure
// or a reset revokes it, after which End and Schedule become no-ops.
type Lease struct {
	Key Key
	gen uint64
}

// PendingFollowUp is a scheduled adaptation check.
type PendingFollowUp struct {
	Key       Key
	ChannelID string
	DueAt     time.Time
}

// RegistryStats is a point-in-time view of the registry sizes.
type RegistryStats struct {
	Processing int
	Recent     int
	Pending    int
	Prompts    int
}

// Registry owns every piece of shared onboarding state. Each exported method
// is one critical section; callers never hold the lock across platform calls.
type Registry struct {
	mu     sync.Mutex
	window time.Duration
	gen    uint64

	processing map[Key]uint64
	recent     map[Key]time.Time
	pending    map[Key]PendingFollowUp
	prompts    map[string]FollowUpPrompt
}

// NewRegistry returns an empty registry with the given duplicate suppression window.
func NewRegistry(window time.Duration) *Registry {
	return &Registry{
		window:     window,
		processing: make(map[Key]uint64),
		recent:     make(map[Key]time.Time),
		pending:    make(map[Key]PendingFollowUp),
		prompts:    make(map[string]FollowUpPrompt),
	}
}

// TryBegin claims key for one join-handling operation. It fails when the key
// is already being handled or was handled within the suppression window.
func (r *Registry) TryBegin(key Key, now time.Time) (Lease, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.processing[key]; busy {
		return Lease{}, false
	}
	if last, ok := r.recent[key]; ok && now.Sub(last) < r.window {
		return Lease{}, false
	}

	r.gen++
	r.processing[key] = r.gen
	r.recent[key] = now
	return Lease{Key: key, gen: r.gen}, true
}

// End releases the lease. Calling it twice, or after the key was forgotten, is a no-op.
func (r *Registry) End(l Lease) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen, ok := r.processing[l.Key]; ok && gen == l.gen {
		delete(r.processing, l.Key)
	}
}

// Held reports whether the lease still owns its key.
func (r *Registry) Held(l Lease) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	gen, ok := r.processing[l.Key]
	return ok && gen == l.gen
}

// Forget drops the key from the processing set and the recently handled map,
// revoking any outstanding lease.
func (r *Registry) Forget(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.processing, key)
	delete(r.recent, key)
}

// ResetAll clears the processing set and the recently handled stamps.
// Scheduled follow-ups and live prompts survive.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.processing = make(map[Key]uint64)
	r.recent = make(map[Key]time.Time)
}

// Schedule registers f, replacing any earlier entry for the same key, but only
// while the lease is still held.
func (r *Registry) Schedule(l Lease, f PendingFollowUp) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen, ok := r.processing[l.Key]; !ok || gen != l.gen {
		return false
	}
	f.Key = l.Key
	r.pending[l.Key] = f
	return true
}

// ScheduleIfAbsent is Schedule that leaves an existing entry untouched.
func (r *Registry) ScheduleIfAbsent(l Lease, f PendingFollowUp) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen, ok := r.processing[l.Key]; !ok || gen != l.gen {
		return false
	}
	if _, exists := r.pending[l.Key]; exists {
		return false
	}
	f.Key = l.Key
	r.pending[l.Key] = f
	return true
}

// ClearRecent drops the recently handled stamp so the next join is processed again.
func (r *Registry) ClearRecent(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.recent, key)
}

// RebindChannel points follow-ups for one channel at another.
func (r *Registry) RebindChannel(from, to string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, f := range r.pending {
		if f.ChannelID == from {
			f.ChannelID = to
			r.pending[k] = f
			n++
		}
	}
	return n
}

// Pending returns the scheduled follow-up for key.
func (r *Registry) Pending(key Key) (PendingFollowUp, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.pending[key]
	return f, ok
}

// Take removes and returns the scheduled follow-up for key.
func (r *Registry) Take(key Key) (PendingFollowUp, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.pending[key]
	if ok {
		delete(r.pending, key)
	}
	return f, ok
}

// CancelFollowUp removes the follow-up for key and reports whether one existed.
func (r *Registry) CancelFollowUp(key Key) bool {
	_, ok := r.Take(key)
	return ok
}

// CancelFollowUpsForChannel removes every follow-up bound to channelID.
func (r *Registry) CancelFollowUpsForChannel(channelID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, f := range r.pending {
		if f.ChannelID == channelID {
			delete(r.pending, k)
			n++
		}
	}
	return n
}

// TakeDue removes and returns every follow-up due at or before now. An entry
// handed out here can never be returned again.
func (r *Registry) TakeDue(now time.Time) []PendingFollowUp {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []PendingFollowUp
	for k, f := range r.pending {
		if !f.DueAt.After(now) {
			due = append(due, f)
			delete(r.pending, k)
		}
	}
	return due
}

// PendingCount counts follow-ups in a community, or everywhere when communityID is empty.
func (r *Registry) PendingCount(communityID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if communityID == "" {
		return len(r.pending)
	}
	n := 0
	for k := range r.pending {
		if k.CommunityID == communityID {
			n++
		}
	}
	return n
}

// PendingIn lists a community's pending follow-ups, earliest first.
func (r *Registry) PendingIn(communityID string) []PendingFollowUp {
	r.mu.Lock()
	out := make([]PendingFollowUp, 0)
	for k, f := range r.pending {
		if k.CommunityID == communityID {
			out = append(out, f)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].Key.MemberID < out[j].Key.MemberID
		}
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out
}

// RegisterPrompt makes a prompt's buttons live until it expires.
func (r *Registry) RegisterPrompt(p FollowUpPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prompts[p.ID] = p
}

// LookupPrompt returns a live prompt. Expired prompts are inert and reported as missing.
func (r *Registry) LookupPrompt(id string, now time.Time) (FollowUpPrompt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prompts[id]
	if !ok || p.Expired(now) {
		return FollowUpPrompt{}, false
	}
	return p, true
}

// DropPrompts removes every prompt bound to channelID.
func (r *Registry) DropPrompts(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, p := range r.prompts {
		if p.ChannelID == channelID {
			delete(r.prompts, id)
		}
	}
}

// Prune drops recently handled stamps older than the window and expired prompts.
func (r *Registry) Prune(now time.Time) (stamps, prompts int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, t := range r.recent {
		if now.Sub(t) >= r.window {
			delete(r.recent, k)
			stamps++
		}
	}
	for id, p := range r.prompts {
		if p.Expired(now) {
			delete(r.prompts, id)
			prompts++
		}
	}
	return stamps, prompts
}

func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RegistryStats{
		Processing: len(r.processing),
		Recent:     len(r.recent),
		Pending:    len(r.pending),
		Prompts:    len(r.prompts),
	}
}
