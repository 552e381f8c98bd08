package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/ctfcord/internal/ports/secondary"
)

// ============================================================
// Mock Implementations
// ============================================================

type mockCtfRepo struct {
	mu        sync.Mutex
	order     []string
	ctfs      map[string]*secondary.CtfRecord
	listCalls int
}

func newMockCtfRepo() *mockCtfRepo {
	return &mockCtfRepo{ctfs: make(map[string]*secondary.CtfRecord)}
}

func (m *mockCtfRepo) Create(_ context.Context, ctf *secondary.CtfRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ctf
	m.ctfs[ctf.ID] = &cp
	m.order = append(m.order, ctf.ID)
	return nil
}

func (m *mockCtfRepo) GetByID(_ context.Context, id string) (*secondary.CtfRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.ctfs[id]
	if !ok {
		return nil, fmt.Errorf("ctf %s not found", id)
	}
	cp := *record
	return &cp, nil
}

func (m *mockCtfRepo) GetByChannel(_ context.Context, channelRef string) (*secondary.CtfRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.ctfs {
		if record.ChannelRef == channelRef {
			cp := *record
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockCtfRepo) GetByJoinMarker(_ context.Context, markerRef string) (*secondary.CtfRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.ctfs {
		if record.JoinMarkerRef == markerRef {
			cp := *record
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockCtfRepo) ListOpen(_ context.Context) ([]*secondary.CtfRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var open []*secondary.CtfRecord
	for _, id := range m.order {
		record, ok := m.ctfs[id]
		if !ok {
			continue
		}
		if record.Phase == "ended" || record.Phase == "archived" {
			continue
		}
		cp := *record
		open = append(open, &cp)
	}
	return open, nil
}

func (m *mockCtfRepo) UpdatePhase(_ context.Context, id string, phase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.ctfs[id]
	if !ok {
		return fmt.Errorf("ctf %s not found", id)
	}
	record.Phase = phase
	return nil
}

func (m *mockCtfRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ctfs[id]; !ok {
		return fmt.Errorf("ctf %s not found", id)
	}
	delete(m.ctfs, id)
	return nil
}

type mockChallengeRepo struct {
	mu         sync.Mutex
	order      []string
	challenges map[string]*secondary.ChallengeRecord
}

func newMockChallengeRepo() *mockChallengeRepo {
	return &mockChallengeRepo{challenges: make(map[string]*secondary.ChallengeRecord)}
}

func (m *mockChallengeRepo) Create(_ context.Context, ch *secondary.ChallengeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.challenges {
		if existing.CtfID == ch.CtfID && existing.Name == ch.Name {
			return fmt.Errorf("UNIQUE constraint failed: challenges.ctf_id, challenges.name")
		}
	}
	cp := *ch
	cp.Workers = append([]string(nil), ch.Workers...)
	cp.Solvers = append([]string(nil), ch.Solvers...)
	m.challenges[ch.ID] = &cp
	m.order = append(m.order, ch.ID)
	return nil
}

func (m *mockChallengeRepo) GetByName(_ context.Context, ctfID, name string) (*secondary.ChallengeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.challenges {
		if ch.CtfID == ctfID && ch.Name == name {
			return copyChallenge(ch), nil
		}
	}
	return nil, nil
}

func (m *mockChallengeRepo) GetByThread(_ context.Context, threadRef string) (*secondary.ChallengeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.challenges {
		if ch.ThreadRef == threadRef {
			return copyChallenge(ch), nil
		}
	}
	return nil, nil
}

func (m *mockChallengeRepo) ListByCtf(_ context.Context, ctfID string) ([]*secondary.ChallengeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Categories grouped in first-seen order, insertion order within.
	var categories []string
	byCategory := make(map[string][]*secondary.ChallengeRecord)
	for _, id := range m.order {
		ch, ok := m.challenges[id]
		if !ok || ch.CtfID != ctfID {
			continue
		}
		if _, seen := byCategory[ch.Category]; !seen {
			categories = append(categories, ch.Category)
		}
		byCategory[ch.Category] = append(byCategory[ch.Category], copyChallenge(ch))
	}
	var out []*secondary.ChallengeRecord
	for _, cat := range categories {
		out = append(out, byCategory[cat]...)
	}
	return out, nil
}

func (m *mockChallengeRepo) ListSolved(_ context.Context, ctfID string) ([]*secondary.ChallengeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*secondary.ChallengeRecord
	for _, id := range m.order {
		ch, ok := m.challenges[id]
		if ok && ch.CtfID == ctfID && ch.Solved {
			out = append(out, copyChallenge(ch))
		}
	}
	return out, nil
}

func (m *mockChallengeRepo) AddWorker(_ context.Context, challengeID, userRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[challengeID]
	if !ok {
		return fmt.Errorf("challenge %s not found", challengeID)
	}
	if !contains(ch.Workers, userRef) {
		ch.Workers = append(ch.Workers, userRef)
	}
	return nil
}

func (m *mockChallengeRepo) AddSolver(_ context.Context, challengeID, userRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[challengeID]
	if !ok {
		return fmt.Errorf("challenge %s not found", challengeID)
	}
	if !contains(ch.Solvers, userRef) {
		ch.Solvers = append(ch.Solvers, userRef)
	}
	return nil
}

func (m *mockChallengeRepo) MarkSolved(_ context.Context, challengeID, flag string, points int, solvers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[challengeID]
	if !ok || ch.Solved {
		return fmt.Errorf("challenge %s not found or already solved", challengeID)
	}
	ch.Solved = true
	ch.Flag = flag
	ch.Points = points
	for _, u := range solvers {
		if !contains(ch.Solvers, u) {
			ch.Solvers = append(ch.Solvers, u)
		}
	}
	return nil
}

func (m *mockChallengeRepo) SetThreadRef(_ context.Context, challengeID, threadRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[challengeID]
	if !ok {
		return fmt.Errorf("challenge %s not found", challengeID)
	}
	ch.ThreadRef = threadRef
	return nil
}

func (m *mockChallengeRepo) Delete(_ context.Context, challengeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.challenges[challengeID]; !ok {
		return fmt.Errorf("challenge %s not found", challengeID)
	}
	delete(m.challenges, challengeID)
	return nil
}

func copyChallenge(ch *secondary.ChallengeRecord) *secondary.ChallengeRecord {
	cp := *ch
	cp.Workers = append([]string(nil), ch.Workers...)
	cp.Solvers = append([]string(nil), ch.Solvers...)
	return &cp
}

type visibilityCall struct {
	channelRef string
	userRef    string
	visible    bool
}

type mockChannels struct {
	mu sync.Mutex

	createErr       error
	existsErr       error
	createThreadErr error
	missing         map[string]bool

	// Hooks run outside the mock's own mutex, so a test can park a
	// platform call mid-flight without deadlocking other mock calls.
	createThreadHook func(n int)
	existsHook       func(channelRef string)

	created         []string
	deleted         []string
	visibilityCalls []visibilityCall
	groups          []string
	moves           map[string]string
	threads         []string
	renames         map[string]string
	deletedThreads  []string
}

func newMockChannels() *mockChannels {
	return &mockChannels{
		missing: make(map[string]bool),
		moves:   make(map[string]string),
		renames: make(map[string]string),
	}
}

func (m *mockChannels) CreateChannel(_ context.Context, _, _, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	ref := fmt.Sprintf("chan-%d", len(m.created)+1)
	m.created = append(m.created, ref)
	return ref, nil
}

func (m *mockChannels) DeleteChannel(_ context.Context, channelRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, channelRef)
	return nil
}

func (m *mockChannels) ChannelExists(_ context.Context, channelRef string) (bool, error) {
	m.mu.Lock()
	hook := m.existsHook
	err := m.existsErr
	missing := m.missing[channelRef]
	m.mu.Unlock()
	if hook != nil {
		hook(channelRef)
	}
	if err != nil {
		return false, err
	}
	return !missing, nil
}

func (m *mockChannels) SetVisibility(_ context.Context, channelRef, userRef string, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visibilityCalls = append(m.visibilityCalls, visibilityCall{channelRef, userRef, visible})
	return nil
}

func (m *mockChannels) EnsureGroup(_ context.Context, _, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = append(m.groups, name)
	return "group-" + name, nil
}

func (m *mockChannels) MoveChannel(_ context.Context, channelRef, groupRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moves[channelRef] = groupRef
	return nil
}

func (m *mockChannels) CreateThread(_ context.Context, _, _ string) (string, error) {
	m.mu.Lock()
	if m.createThreadErr != nil {
		m.mu.Unlock()
		return "", m.createThreadErr
	}
	ref := fmt.Sprintf("thread-%d", len(m.threads)+1)
	m.threads = append(m.threads, ref)
	n := len(m.threads)
	hook := m.createThreadHook
	m.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ref, nil
}

func (m *mockChannels) RenameThread(_ context.Context, threadRef, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renames[threadRef] = title
	return nil
}

func (m *mockChannels) DeleteThread(_ context.Context, threadRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedThreads = append(m.deletedThreads, threadRef)
	return nil
}

type postedMessage struct {
	channelRef string
	content    string
}

type mockAnnouncements struct {
	mu sync.Mutex

	postErr error

	messages  []postedMessage
	pins      []string
	reactions []string
}

func (m *mockAnnouncements) PostMessage(_ context.Context, channelRef, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", m.postErr
	}
	m.messages = append(m.messages, postedMessage{channelRef, content})
	return fmt.Sprintf("msg-%d", len(m.messages)), nil
}

func (m *mockAnnouncements) PinMessage(_ context.Context, channelRef, messageRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pins = append(m.pins, channelRef+"/"+messageRef)
	return nil
}

func (m *mockAnnouncements) AddReaction(_ context.Context, channelRef, messageRef, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, channelRef+"/"+messageRef+"/"+emoji)
	return nil
}

type mockDirectory struct {
	desc       *secondary.EventDescriptor
	resolveErr error
	upcoming   []*secondary.EventDescriptor
	upcomingN  int
}

func (m *mockDirectory) Resolve(_ context.Context, _ string) (*secondary.EventDescriptor, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	cp := *m.desc
	return &cp, nil
}

func (m *mockDirectory) Upcoming(_ context.Context, _ time.Duration) ([]*secondary.EventDescriptor, error) {
	m.upcomingN++
	return m.upcoming, nil
}

type mockScheduledEvents struct {
	createErr error
	created   []string
	deleted   []string
}

func (m *mockScheduledEvents) CreateScheduledEvent(_ context.Context, _, name, _ string, _, _ time.Time, _ string) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	ref := fmt.Sprintf("sched-%d", len(m.created)+1)
	m.created = append(m.created, ref)
	return ref, nil
}

func (m *mockScheduledEvents) DeleteScheduledEvent(_ context.Context, _, eventRef string) error {
	m.deleted = append(m.deleted, eventRef)
	return nil
}

// Ensure mocks satisfy the secondary ports
var (
	_ secondary.CtfRepository         = (*mockCtfRepo)(nil)
	_ secondary.ChallengeRepository   = (*mockChallengeRepo)(nil)
	_ secondary.ChannelService        = (*mockChannels)(nil)
	_ secondary.AnnouncementService   = (*mockAnnouncements)(nil)
	_ secondary.EventDirectory        = (*mockDirectory)(nil)
	_ secondary.ScheduledEventService = (*mockScheduledEvents)(nil)
)
