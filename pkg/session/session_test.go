package session

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/pixielabs/pixie-wallet/pkg/identity"
)

// MockIdentity is a mock implementation of identity.Service
type MockIdentity struct {
	ExchangeCodeForSessionFunc func(ctx context.Context, code string) (*identity.Session, error)
	GetSessionFunc             func(ctx context.Context, accessToken string) (*identity.Session, error)
	SignOutFunc                func(ctx context.Context, accessToken string) error
	RequestEmailOTPFunc        func(ctx context.Context, email, redirectTo string) error
	VerifyEmailOTPFunc         func(ctx context.Context, email, token string) (*identity.Session, error)
}

func (m *MockIdentity) ExchangeCodeForSession(ctx context.Context, code string) (*identity.Session, error) {
	if m.ExchangeCodeForSessionFunc != nil {
		return m.ExchangeCodeForSessionFunc(ctx, code)
	}
	return nil, nil
}

func (m *MockIdentity) GetSession(ctx context.Context, accessToken string) (*identity.Session, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, accessToken)
	}
	return nil, identity.ErrNoSession
}

func (m *MockIdentity) SignOut(ctx context.Context, accessToken string) error {
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	return nil
}

func (m *MockIdentity) RequestEmailOTP(ctx context.Context, email, redirectTo string) error {
	if m.RequestEmailOTPFunc != nil {
		return m.RequestEmailOTPFunc(ctx, email, redirectTo)
	}
	return nil
}

func (m *MockIdentity) VerifyEmailOTP(ctx context.Context, email, token string) (*identity.Session, error) {
	if m.VerifyEmailOTPFunc != nil {
		return m.VerifyEmailOTPFunc(ctx, email, token)
	}
	return nil, nil
}

func testSession(token string) *identity.Session {
	return &identity.Session{
		AccessToken: token,
		User:        identity.User{ID: "user-1", Email: "a@b.co"},
	}
}

func TestSetNotifiesListeners(t *testing.T) {
	store := NewStore(&MockIdentity{}, zap.NewNop())

	var got []*identity.Session
	store.OnChange(func(s *identity.Session) {
		got = append(got, s)
	})

	sess := testSession("token-1")
	store.Set(sess)
	store.Set(nil)

	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0] != sess || got[1] != nil {
		t.Fatalf("unexpected notification sequence %v", got)
	}
	if store.Current() != nil {
		t.Error("expected nil current session after sign-out value")
	}
}

func TestOnChangeUnsubscribe(t *testing.T) {
	store := NewStore(&MockIdentity{}, zap.NewNop())

	var calls int
	unsubscribe := store.OnChange(func(s *identity.Session) { calls++ })

	store.Set(testSession("token-1"))
	unsubscribe()
	store.Set(nil)

	if calls != 1 {
		t.Fatalf("expected 1 notification after unsubscribe, got %d", calls)
	}
}

func TestSignOutBestEffort(t *testing.T) {
	var revoked string
	mock := &MockIdentity{
		SignOutFunc: func(ctx context.Context, accessToken string) error {
			revoked = accessToken
			return errors.New("identity service down")
		},
	}
	store := NewStore(mock, zap.NewNop())
	store.Set(testSession("token-1"))

	var notified bool
	store.OnChange(func(s *identity.Session) {
		if s == nil {
			notified = true
		}
	})

	store.SignOut(context.Background())

	if revoked != "token-1" {
		t.Errorf("expected remote revocation of token-1, got %q", revoked)
	}
	if store.Current() != nil {
		t.Error("local session must clear even when remote sign-out fails")
	}
	if !notified {
		t.Error("expected sign-out notification")
	}
}

func TestSignOutWithoutSession(t *testing.T) {
	mock := &MockIdentity{
		SignOutFunc: func(ctx context.Context, accessToken string) error {
			t.Error("no remote call expected when signed out")
			return nil
		},
	}
	store := NewStore(mock, zap.NewNop())
	store.SignOut(context.Background())
}

func TestRefreshClearsRevokedSession(t *testing.T) {
	mock := &MockIdentity{
		GetSessionFunc: func(ctx context.Context, accessToken string) (*identity.Session, error) {
			return nil, identity.ErrNoSession
		},
	}
	store := NewStore(mock, zap.NewNop())
	store.Set(testSession("token-1"))

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if store.Current() != nil {
		t.Error("expected revoked session to clear")
	}
}

func TestRefreshKeepsValidSession(t *testing.T) {
	refreshed := testSession("token-1")
	mock := &MockIdentity{
		GetSessionFunc: func(ctx context.Context, accessToken string) (*identity.Session, error) {
			return refreshed, nil
		},
	}
	store := NewStore(mock, zap.NewNop())
	store.Set(testSession("token-1"))

	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if store.Current() != refreshed {
		t.Error("expected refreshed session value")
	}
}

func TestRefreshSurfacesTransientError(t *testing.T) {
	mock := &MockIdentity{
		GetSessionFunc: func(ctx context.Context, accessToken string) (*identity.Session, error) {
			return nil, errors.New("timeout")
		},
	}
	store := NewStore(mock, zap.NewNop())
	sess := testSession("token-1")
	store.Set(sess)

	if err := store.Refresh(context.Background()); err == nil {
		t.Fatal("expected transient error to surface")
	}
	if store.Current() != sess {
		t.Error("transient failure must not clear the session")
	}
}

func TestCloseFreezesStore(t *testing.T) {
	store := NewStore(&MockIdentity{}, zap.NewNop())

	var calls int
	store.OnChange(func(s *identity.Session) { calls++ })

	store.Close()
	store.Set(testSession("token-1"))

	if calls != 0 {
		t.Fatalf("expected no notifications after close, got %d", calls)
	}
	if store.Current() != nil {
		t.Error("closed store must not accept new sessions")
	}
}
