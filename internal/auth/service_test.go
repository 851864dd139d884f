package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockpoint-erp/stockpoint-erp/internal/shared"
)

type fakeRepository struct {
	users    map[string]*User
	sessions map[string]int64
}

func newFakeRepository(users ...*User) *fakeRepository {
	r := &fakeRepository{users: map[string]*User{}, sessions: map[string]int64{}}
	for _, u := range users {
		r.users[u.Email] = u
	}
	return r
}

func (r *fakeRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *fakeRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	r.sessions[id] = userID
	return nil
}

func (r *fakeRepository) DeleteSession(ctx context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newTestSessions(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, time.Hour), mr
}

func TestLoginIssuesResolvableSession(t *testing.T) {
	sessions, _ := newTestSessions(t)
	repo := newFakeRepository(&User{
		ID: 7, Name: "Clerk", Email: "clerk@stockpoint.local",
		PasswordHash: hash(t, "secret-pass"), IsActive: true,
	})
	svc := NewService(repo, sessions)
	ctx := context.Background()

	user, token, err := svc.Login(ctx, "clerk@stockpoint.local", "secret-pass", "10.0.0.1", "cli")
	require.NoError(t, err)
	require.Equal(t, int64(7), user.ID)
	require.NotEmpty(t, token)
	require.Contains(t, repo.sessions, token, "login leaves an audit session row")

	actor, err := sessions.Resolve(ctx, token)
	require.NoError(t, err)
	require.Equal(t, shared.Actor{ID: 7, Email: "clerk@stockpoint.local"}, actor)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	sessions, _ := newTestSessions(t)
	repo := newFakeRepository(
		&User{ID: 7, Email: "clerk@stockpoint.local", PasswordHash: hash(t, "secret-pass"), IsActive: true},
		&User{ID: 8, Email: "gone@stockpoint.local", PasswordHash: hash(t, "secret-pass"), IsActive: false},
	)
	svc := NewService(repo, sessions)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "clerk@stockpoint.local", "wrong", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@stockpoint.local", "secret-pass", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// Deactivated accounts fail the same way as bad passwords.
	_, _, err = svc.Login(ctx, "gone@stockpoint.local", "secret-pass", "", "")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions, _ := newTestSessions(t)
	repo := newFakeRepository(&User{
		ID: 7, Email: "clerk@stockpoint.local", PasswordHash: hash(t, "secret-pass"), IsActive: true,
	})
	svc := NewService(repo, sessions)
	ctx := context.Background()

	_, token, err := svc.Login(ctx, "clerk@stockpoint.local", "secret-pass", "", "")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, token))

	_, err = sessions.Resolve(ctx, token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
	require.NotContains(t, repo.sessions, token)
}

func TestResolveUnknownToken(t *testing.T) {
	sessions, _ := newTestSessions(t)
	_, err := sessions.Resolve(context.Background(), "no-such-token")
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestResolveRefreshesTTL(t *testing.T) {
	sessions, mr := newTestSessions(t)
	user := &User{ID: 7, Email: "clerk@stockpoint.local"}
	token, err := sessions.Create(context.Background(), user)
	require.NoError(t, err)

	mr.FastForward(30 * time.Minute)
	_, err = sessions.Resolve(context.Background(), token)
	require.NoError(t, err)

	// A resolve within the window pushes expiry out a full hour again.
	mr.FastForward(45 * time.Minute)
	_, err = sessions.Resolve(context.Background(), token)
	require.NoError(t, err)

	mr.FastForward(61 * time.Minute)
	_, err = sessions.Resolve(context.Background(), token)
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
