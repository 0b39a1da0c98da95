package grpc

import (
	"context"
	"database/sql"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/api/authv1"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/dbx"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/auth"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/password"
	refreshtokensrepo "github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/tokenkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/services"
	"github.com/dmitrijs2005/tokenkeeper/internal/server/tokenstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const (
	testPassword = "Secret#123"
	accessTTL    = 15 * time.Minute
	refreshTTL   = 24 * time.Hour
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memUsers struct {
	mu   sync.Mutex
	rows map[string]models.User
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserName == u.UserName {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	cp.Active = true
	m.rows[cp.ID] = cp
	return &cp, nil
}

func (m *memUsers) find(match func(models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if match(r) {
			cp := r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) GetUserByLogin(_ context.Context, name string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.UserName == name })
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	return m.find(func(u models.User) bool { return u.ID == id })
}

func (m *memUsers) ExistsByUsername(ctx context.Context, name string) (bool, error) {
	_, err := m.GetUserByLogin(ctx, name)
	return err == nil, nil
}

func (m *memUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, err := m.find(func(u models.User) bool { return u.Email != "" && u.Email == email })
	return err == nil, nil
}

func (m *memUsers) update(id string, fn func(*models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(&u)
	m.rows[id] = u
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

type fakeRepoManager struct{ users *memUsers }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository                 { return f.users }
func (f *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository { return nil }

type testEnv struct {
	clock  *clock
	users  *memUsers
	store  *tokenstore.MemoryStore
	tokens *auth.Manager
	hasher *password.Hasher
	server *GRPCServer
	conn   *grpc.ClientConn
	client authv1.AuthServiceClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		clock:  &clock{t: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)},
		users:  &memUsers{rows: map[string]models.User{}},
		store:  tokenstore.NewMemoryStore(),
		hasher: password.NewHasher(bcrypt.MinCost),
	}

	var err error
	e.tokens, err = auth.NewManager(auth.Config{
		SigningMethod: auth.MethodHS256,
		SecretKey:     []byte("grpc-test-secret-grpc-test-secret"),
		Issuer:        "tokenkeeper",
		AccessTTL:     accessTTL,
	}, auth.WithClock(e.clock.Now))
	require.NoError(t, err)

	svc, err := services.NewUserService(nil, &fakeRepoManager{users: e.users}, e.store, e.tokens, e.hasher, refreshTTL,
		services.WithClock(e.clock.Now))
	require.NoError(t, err)

	e.server = NewGRPCServer("bufnet", logging.Nop{}, svc, e.tokens)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.server.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	e.conn = conn
	e.client = authv1.NewAuthServiceClient(conn)
	return e
}

func (e *testEnv) addUser(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	hash, err := e.hasher.Hash(testPassword)
	require.NoError(t, err)
	u, err := e.users.Create(context.Background(), &models.User{UserName: name, PasswordHash: hash, Role: role})
	require.NoError(t, err)
	return u
}

func (e *testEnv) login(t *testing.T, name string) *authv1.TokenPair {
	t.Helper()
	pair, err := e.client.Login(context.Background(), &authv1.LoginRequest{Login: name, Password: testPassword})
	require.NoError(t, err)
	return pair
}
