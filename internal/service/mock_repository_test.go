package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pu-ac-cn/video-access-backend/internal/model"
	"github.com/pu-ac-cn/video-access-backend/internal/repository"
)

// mockStore 内存仓储，供 service 层测试使用。
// 单把互斥锁覆盖全部数据，复合操作（席位消耗+访问插入、会话轮换、
// 令牌条件消费）在锁内一次完成，与真实实现的事务语义一致，
// 因此并发性质可以直接用 goroutine 压测。
type mockStore struct {
	mu       sync.Mutex
	seats    map[string]*model.SeatPackage
	accesses map[string]*model.CourseAccess
	sessions map[string]*model.ViewingSession
	tokens   map[string]*model.VideoAccessToken
	users    map[string]*model.User
}

func newMockStore() *mockStore {
	return &mockStore{
		seats:    make(map[string]*model.SeatPackage),
		accesses: make(map[string]*model.CourseAccess),
		sessions: make(map[string]*model.ViewingSession),
		tokens:   make(map[string]*model.VideoAccessToken),
		users:    make(map[string]*model.User),
	}
}

// ---- UserRepository ----

func (m *mockStore) Create(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return repository.ErrUserUsernameExists
		}
		if u.Email == user.Email {
			return repository.ErrUserEmailExists
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockStore) Update(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.GetByUsername(ctx, username)
	return err == nil, nil
}

func (m *mockStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

// addUser 测试辅助：直接放入一个用户
func (m *mockStore) addUser(id, username, email string) *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := &model.User{Username: username, Email: email, Status: model.StatusActive}
	user.ID = id
	m.users[id] = user
	return user
}

// ---- SeatPackageRepository ----

type mockSeatRepo struct{ *mockStore }

func (m mockSeatRepo) Create(ctx context.Context, pkg *model.SeatPackage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pkg.ID == "" {
		pkg.ID = uuid.New().String()
	}
	if pkg.PurchasedAt.IsZero() {
		pkg.PurchasedAt = time.Now()
	}
	m.seats[pkg.ID] = pkg
	return nil
}

func (m mockSeatRepo) GetByID(ctx context.Context, id string) (*model.SeatPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pkg, ok := m.seats[id]; ok {
		copied := *pkg
		return &copied, nil
	}
	return nil, repository.ErrSeatPackageNotFound
}

func (m mockSeatRepo) ListByUserID(ctx context.Context, userID string) ([]*model.SeatPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pkgs []*model.SeatPackage
	for _, pkg := range m.seats {
		if pkg.UserID == userID {
			copied := *pkg
			pkgs = append(pkgs, &copied)
		}
	}
	sortPackagesByPurchase(pkgs)
	return pkgs, nil
}

func (m mockSeatRepo) FindAvailable(ctx context.Context, userID string) (*model.SeatPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pkg := m.findAvailableLocked(userID)
	if pkg == nil {
		return nil, repository.ErrNoAvailableSeats
	}
	copied := *pkg
	return &copied, nil
}

func (m mockSeatRepo) ConsumeSeat(ctx context.Context, packageID string) (*model.SeatPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pkg, ok := m.seats[packageID]
	if !ok || !pkg.IsUsable() {
		return nil, repository.ErrNoAvailableSeats
	}
	pkg.UsedSeats++
	copied := *pkg
	return &copied, nil
}

// findAvailableLocked 按购买时间先后找最早的可用席位包，调用方须持锁
func (m *mockStore) findAvailableLocked(userID string) *model.SeatPackage {
	var found *model.SeatPackage
	for _, pkg := range m.seats {
		if pkg.UserID != userID || !pkg.IsUsable() {
			continue
		}
		if found == nil || pkg.PurchasedAt.Before(found.PurchasedAt) {
			found = pkg
		}
	}
	return found
}

func sortPackagesByPurchase(pkgs []*model.SeatPackage) {
	for i := 1; i < len(pkgs); i++ {
		for j := i; j > 0 && pkgs[j].PurchasedAt.Before(pkgs[j-1].PurchasedAt); j-- {
			pkgs[j], pkgs[j-1] = pkgs[j-1], pkgs[j]
		}
	}
}

// ---- CourseAccessRepository ----

type mockAccessRepo struct{ *mockStore }

func (m mockAccessRepo) CreateWithSeat(ctx context.Context, userID, moduleID string) (*model.CourseAccess, *model.SeatPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accesses {
		if a.UserID == userID && a.ModuleID == moduleID && a.Status == model.StatusActive {
			return nil, nil, repository.ErrAccessExists
		}
	}

	pkg := m.findAvailableLocked(userID)
	if pkg == nil {
		return nil, nil, repository.ErrNoAvailableSeats
	}
	pkg.UsedSeats++

	access := &model.CourseAccess{
		UserID:        userID,
		ModuleID:      moduleID,
		SeatPackageID: pkg.ID,
		Status:        model.StatusActive,
		UnlockedAt:    time.Now(),
	}
	access.ID = uuid.New().String()
	m.accesses[access.ID] = access

	accessCopy := *access
	pkgCopy := *pkg
	return &accessCopy, &pkgCopy, nil
}

func (m mockAccessRepo) GetActive(ctx context.Context, userID, moduleID string) (*model.CourseAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accesses {
		if a.UserID == userID && a.ModuleID == moduleID && a.Status == model.StatusActive {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repository.ErrAccessNotFound
}

func (m mockAccessRepo) ListActiveByUserID(ctx context.Context, userID string) ([]*model.CourseAccess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var accesses []*model.CourseAccess
	for _, a := range m.accesses {
		if a.UserID == userID && a.Status == model.StatusActive {
			copied := *a
			accesses = append(accesses, &copied)
		}
	}
	return accesses, nil
}

func (m mockAccessRepo) Touch(ctx context.Context, userID, moduleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accesses {
		if a.UserID == userID && a.ModuleID == moduleID && a.Status == model.StatusActive {
			now := time.Now()
			a.LastAccessedAt = &now
			return nil
		}
	}
	return repository.ErrAccessNotFound
}

func (m mockAccessRepo) Revoke(ctx context.Context, userID, moduleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accesses {
		if a.UserID == userID && a.ModuleID == moduleID && a.Status == model.StatusActive {
			a.Status = model.StatusRevoked + ":" + a.ID
			return nil
		}
	}
	return repository.ErrAccessNotFound
}

// ---- ViewingSessionRepository ----

type mockSessionRepo struct{ *mockStore }

func (m mockSessionRepo) Rotate(ctx context.Context, session *model.ViewingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == session.UserID && s.IsActive {
			s.IsActive = false
		}
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	session.IsActive = true
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m mockSessionRepo) GetByToken(ctx context.Context, sessionToken string) (*model.ViewingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.SessionToken == sessionToken {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (m mockSessionRepo) ListActiveByUserID(ctx context.Context, userID string) ([]*model.ViewingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sessions []*model.ViewingSession
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsActive {
			copied := *s
			sessions = append(sessions, &copied)
		}
	}
	return sessions, nil
}

// ---- VideoAccessTokenRepository ----

type mockTokenRepo struct{ *mockStore }

func (m mockTokenRepo) Create(ctx context.Context, token *model.VideoAccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	copied := *token
	m.tokens[token.TokenHash] = &copied
	return nil
}

func (m mockTokenRepo) GetLive(ctx context.Context, tokenHash, moduleID string) (*model.VideoAccessToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tokenHash]
	if !ok || token.ModuleID != moduleID || token.IsUsed || token.IsExpired() {
		return nil, repository.ErrTokenNotFound
	}
	copied := *token
	return &copied, nil
}

func (m mockTokenRepo) MarkUsed(ctx context.Context, tokenHash, moduleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tokenHash]
	if !ok || token.ModuleID != moduleID || token.IsUsed || token.IsExpired() {
		return repository.ErrTokenNotFound
	}
	now := time.Now()
	token.IsUsed = true
	token.UsedAt = &now
	return nil
}

func (m mockTokenRepo) UpdatePosition(ctx context.Context, tokenHash, userID string, positionSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[tokenHash]
	if !ok || token.UserID != userID {
		return repository.ErrTokenNotFound
	}
	token.VideoPositionSeconds = positionSeconds
	return nil
}

// ---- AuditService ----

// mockAudit 同步收集审计事件，便于测试计数
type mockAudit struct {
	mu     sync.Mutex
	events []*model.AuditEvent
}

func newMockAudit() *mockAudit {
	return &mockAudit{}
}

func (m *mockAudit) Record(event *model.AuditEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockAudit) RecordSync(ctx context.Context, event *model.AuditEvent) error {
	m.Record(event)
	return nil
}

func (m *mockAudit) Close() {}

// byType 按事件类型过滤
func (m *mockAudit) byType(eventType string) []*model.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AuditEvent
	for _, e := range m.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
