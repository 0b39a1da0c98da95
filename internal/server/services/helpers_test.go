package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/password"
	refreshtokensrepo "github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/tokenstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// memUsers is a concurrency-safe in-memory users.Repository.
type memUsers struct {
	mu   sync.Mutex
	byID map[string]*models.User
	err  error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]*models.User{}}
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, x := range m.byID {
		if x.UserName == u.UserName || (u.Email != "" && strings.EqualFold(x.Email, u.Email)) {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.Active = true
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetUserByLogin(_ context.Context, name string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.UserName == name })
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *memUsers) ExistsByUsername(ctx context.Context, name string) (bool, error) {
	_, err := m.GetUserByLogin(ctx, name)
	return existsResult(err)
}

func (m *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, err := m.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
	return existsResult(err)
}

func existsResult(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case err == common.ErrorNotFound:
		return false, nil
	}
	return false, err
}

func (m *memUsers) update(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (m *memUsers) UpdateRole(_ context.Context, id string, role models.Role) error {
	return m.update(id, func(u *models.User) { u.Role = role })
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return m.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (m *memUsers) Deactivate(_ context.Context, id string) error {
	return m.update(id, func(u *models.User) { u.Active = false })
}

type fakeRepoManager struct {
	users *memUsers
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository                 { return m.users }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository { return nil }

// failingStore wraps a Store and fails selected operations.
type failingStore struct {
	tokenstore.Store
	saveErr    error
	replaceErr error
	findErr    error
	revokeErr  error
}

func (s *failingStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	if s.revokeErr != nil {
		return 0, s.revokeErr
	}
	return s.Store.DeleteByUser(ctx, userID)
}

func (s *failingStore) Save(ctx context.Context, t *models.RefreshToken) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Store.Save(ctx, t)
}

func (s *failingStore) Replace(ctx context.Context, old string, next *models.RefreshToken) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	return s.Store.Replace(ctx, old, next)
}

func (s *failingStore) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.Store.Find(ctx, token)
}

type logEntry struct {
	level string
	msg   string
	attrs map[string]any
}

// recLogger records entries for assertions.
type recLogger struct {
	mu      *sync.Mutex
	entries *[]logEntry
	with    []any
}

func newRecLogger() *recLogger {
	return &recLogger{mu: &sync.Mutex{}, entries: &[]logEntry{}}
}

func (l *recLogger) record(level, msg string, args []any) {
	all := append(append([]any{}, l.with...), args...)
	attrs := map[string]any{}
	for i := 0; i+1 < len(all); i += 2 {
		attrs[fmt.Sprint(all[i])] = all[i+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, logEntry{level: level, msg: msg, attrs: attrs})
}

func (l *recLogger) Debug(_ context.Context, msg string, args ...any) { l.record("DEBUG", msg, args) }
func (l *recLogger) Info(_ context.Context, msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *recLogger) Warn(_ context.Context, msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *recLogger) Error(_ context.Context, msg string, args ...any) { l.record("ERROR", msg, args) }

func (l *recLogger) With(args ...any) logging.Logger {
	return &recLogger{mu: l.mu, entries: l.entries, with: append(append([]any{}, l.with...), args...)}
}

func (l *recLogger) byLevel(level string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []logEntry
	for _, e := range *l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

type env struct {
	clock   *fakeClock
	users   *memUsers
	repos   *fakeRepoManager
	store   *failingStore
	tokens  *auth.Manager
	hasher  *password.Hasher
	log     *recLogger
	svc     *UserService
	issuer  *TokenIssuer
	rotator *TokenRotator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		clock:  newFakeClock(),
		users:  newMemUsers(),
		store:  &failingStore{Store: tokenstore.NewMemoryStore()},
		hasher: password.NewHasher(bcrypt.MinCost),
		log:    newRecLogger(),
	}
	e.repos = &fakeRepoManager{users: e.users}

	var err error
	e.tokens, err = auth.NewManager(auth.Config{
		SigningMethod: auth.MethodHS256,
		SecretKey:     []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "tokenkeeper",
		Audience:      "tokenkeeper-clients",
		AccessTTL:     accessTTL,
	}, auth.WithClock(e.clock.Now))
	require.NoError(t, err)

	opts := []Option{WithClock(e.clock.Now), WithLogger(e.log)}
	e.svc, err = NewUserService(nil, e.repos, e.store, e.tokens, e.hasher, refreshTTL, opts...)
	require.NoError(t, err)
	e.issuer = e.svc.issuer
	e.rotator = e.svc.rotator
	return e
}

// addUser stores an active user with the given password and role.
func (e *env) addUser(t *testing.T, name, pw string, role models.Role) *models.User {
	t.Helper()
	hash, err := e.hasher.Hash(pw)
	require.NoError(t, err)
	u, err := e.users.Create(context.Background(), &models.User{UserName: name, PasswordHash: hash, Role: role})
	require.NoError(t, err)
	return u
}
