// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Marga-Ghale/ora-onboarding-bot/internal/platform"
)

// SentMessage is a message recorded by SendMessage.
type SentMessage struct {
	ChannelID string
	Message   platform.Message
}

// Response is an interaction response recorded by RespondInteraction.
type Response struct {
	Interaction platform.Interaction
	Response    platform.InteractionResponse
}

// Client is a concurrency-safe in-memory community model.
type Client struct {
	mu sync.Mutex

	selfID      string
	communities map[string]*platform.Community
	roles       map[string][]platform.Role
	members     map[string]map[string]platform.Member
	channels    map[string]platform.Channel
	perms       map[string]platform.Permission

	nextID  int
	clock   time.Time
	sent    []SentMessage
	replies []Response
	deleted []string
	created []platform.CreateChannelParams

	// CreateErr fails every CreateChannel call when set.
	CreateErr error
	// DeleteErr fails DeleteChannel for the listed channel ids.
	DeleteErr map[string]error
	// SendErr fails every SendMessage call when set.
	SendErr error
	// DoubleSubmit makes the next CreateChannel call create two identical channels.
	DoubleSubmit bool
	// BeforeCreate runs before a channel is created, outside the lock.
	BeforeCreate func(communityID string, params platform.CreateChannelParams)
	// AfterCreate runs after a channel is created, outside the lock.
	AfterCreate func(ch platform.Channel)
	// BeforeList runs at the start of every ListChannels call, outside the lock.
	BeforeList func(communityID string)
}

// New returns a client whose bot identity is selfID.
func New(selfID string) *Client {
	return &Client{
		selfID:      selfID,
		communities: make(map[string]*platform.Community),
		roles:       make(map[string][]platform.Role),
		members:     make(map[string]map[string]platform.Member),
		channels:    make(map[string]platform.Channel),
		perms:       make(map[string]platform.Permission),
		DeleteErr:   make(map[string]error),
		clock:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (c *Client) id() string {
	c.nextID++
	return fmt.Sprintf("%d", 1000+c.nextID)
}

// AddCommunity registers a community with its default role.
func (c *Client) AddCommunity(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.communities[id] = &platform.Community{ID: id, Name: name, DefaultRoleID: id}
	c.members[id] = make(map[string]platform.Member)
}

// AddRole registers a role and returns it.
func (c *Client) AddRole(communityID, name string) platform.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := platform.Role{ID: "role-" + c.id(), Name: name}
	c.roles[communityID] = append(c.roles[communityID], r)
	return r
}

// AddMember registers or replaces a member.
func (c *Client) AddMember(m platform.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.DisplayName == "" {
		m.DisplayName = m.Username
	}
	c.members[m.CommunityID][m.ID] = m
}

// RemoveMember drops a member from its community.
func (c *Client) RemoveMember(communityID, memberID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members[communityID], memberID)
}

// AddChannel registers an existing channel and returns it.
func (c *Client) AddChannel(communityID, name string, kind platform.ChannelKind) platform.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addChannelLocked(communityID, platform.CreateChannelParams{Name: name}, kind)
}

func (c *Client) addChannelLocked(communityID string, params platform.CreateChannelParams, kind platform.ChannelKind) platform.Channel {
	c.clock = c.clock.Add(time.Second)
	ch := platform.Channel{
		ID:          "ch-" + c.id(),
		CommunityID: communityID,
		Name:        params.Name,
		Kind:        kind,
		ParentID:    params.ParentID,
		Topic:       params.Topic,
		CreatedAt:   c.clock,
	}
	c.channels[ch.ID] = ch
	return ch
}

// SetPermissions sets the community-level permissions of a member.
func (c *Client) SetPermissions(communityID, memberID string, p platform.Permission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perms[communityID+"/"+memberID] = p
}

// Channels returns the channels of a community whose name starts with prefix, oldest first.
func (c *Client) Channels(communityID, prefix string) []platform.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []platform.Channel
	for _, ch := range c.channels {
		if ch.CommunityID == communityID && strings.HasPrefix(ch.Name, prefix) {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Sent returns every message sent to channelID.
func (c *Client) Sent(channelID string) []platform.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []platform.Message
	for _, s := range c.sent {
		if s.ChannelID == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

// AllSent returns every recorded message.
func (c *Client) AllSent() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentMessage(nil), c.sent...)
}

// Replies returns every recorded interaction response.
func (c *Client) Replies() []Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Response(nil), c.replies...)
}

// Deleted returns the ids passed to DeleteChannel, successful or not.
func (c *Client) Deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

// Created returns the params of every CreateChannel call.
func (c *Client) Created() []platform.CreateChannelParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]platform.CreateChannelParams(nil), c.created...)
}

func (c *Client) SelfID() string { return c.selfID }

func (c *Client) GetCommunity(_ context.Context, communityID string) (*platform.Community, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.communities[communityID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	out := *g
	out.MemberCount = len(c.members[communityID])
	return &out, nil
}

func (c *Client) GetRole(_ context.Context, communityID, name string) (*platform.Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.roles[communityID] {
		if r.Name == name {
			r := r
			return &r, nil
		}
	}
	return nil, platform.ErrNotFound
}

func (c *Client) RoleMembers(_ context.Context, communityID, roleID string) ([]platform.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []platform.Member
	for _, m := range c.sortedMembersLocked(communityID) {
		for _, id := range m.RoleIDs {
			if id == roleID {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (c *Client) ListMembers(_ context.Context, communityID string) ([]platform.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortedMembersLocked(communityID), nil
}

func (c *Client) sortedMembersLocked(communityID string) []platform.Member {
	out := make([]platform.Member, 0, len(c.members[communityID]))
	for _, m := range c.members[communityID] {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Client) GetMember(_ context.Context, communityID, memberID string) (*platform.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.members[communityID][memberID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return &m, nil
}

func (c *Client) ListChannels(_ context.Context, communityID string) ([]platform.Channel, error) {
	if c.BeforeList != nil {
		c.BeforeList(communityID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []platform.Channel
	for _, ch := range c.channels {
		if ch.CommunityID == communityID {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c *Client) GetChannel(_ context.Context, channelID string) (*platform.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[channelID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	return &ch, nil
}

func (c *Client) CreateChannel(_ context.Context, communityID string, params platform.CreateChannelParams) (*platform.Channel, error) {
	if c.BeforeCreate != nil {
		c.BeforeCreate(communityID, params)
	}

	c.mu.Lock()
	c.created = append(c.created, params)
	if c.CreateErr != nil {
		err := c.CreateErr
		c.mu.Unlock()
		return nil, err
	}
	if c.DoubleSubmit {
		c.DoubleSubmit = false
		c.addChannelLocked(communityID, params, platform.ChannelText)
	}
	ch := c.addChannelLocked(communityID, params, platform.ChannelText)
	c.mu.Unlock()

	if c.AfterCreate != nil {
		c.AfterCreate(ch)
	}
	return &ch, nil
}

func (c *Client) DeleteChannel(_ context.Context, channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, channelID)
	if err := c.DeleteErr[channelID]; err != nil {
		return err
	}
	if _, ok := c.channels[channelID]; !ok {
		return platform.ErrNotFound
	}
	delete(c.channels, channelID)
	return nil
}

func (c *Client) SendMessage(_ context.Context, channelID string, msg platform.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	if _, ok := c.channels[channelID]; !ok {
		return platform.ErrNotFound
	}
	c.sent = append(c.sent, SentMessage{ChannelID: channelID, Message: msg})
	return nil
}

func (c *Client) RespondInteraction(_ context.Context, in platform.Interaction, resp platform.InteractionResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replies = append(c.replies, Response{Interaction: in, Response: resp})
	return nil
}

func (c *Client) Permissions(_ context.Context, communityID, memberID string) (platform.Permission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.members[communityID][memberID]; !ok && memberID != c.selfID {
		return 0, platform.ErrNotFound
	}
	return c.perms[communityID+"/"+memberID], nil
}

var _ platform.Client = (*Client)(nil)
