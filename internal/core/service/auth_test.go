package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

func newTestAuth(users *stubUsers, creds *stubCreds, prefs *stubPrefs) *Auth {
	return NewAuth(users, creds, prefs, "secret", time.Hour, zerolog.Nop())
}

func seedUser(t *testing.T, users *stubUsers, email, password, role, storeID, ownerID string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &domain.User{
		ID:           domain.NewID(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		StoreID:      storeID,
		OwnerID:      ownerID,
	}
	if user.OwnerID == "" {
		user.OwnerID = user.ID
	}
	users.byEmail[email] = user
	return user
}

func TestAuth_RemoteLoginIssuesToken(t *testing.T) {
	users := newStubUsers()
	user := seedUser(t, users, "amy@shop.test", "hunter22", domain.RoleAdmin, "", "")
	a := newTestAuth(users, newStubCreds(), newStubPrefs())

	token, sess, err := a.Login(context.Background(), "amy@shop.test", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.PrincipalID != user.ID || sess.OwnerID != user.ID || !sess.IsAdmin() {
		t.Fatalf("unexpected session %+v", sess)
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	}); err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims["principal_id"] != user.ID {
		t.Fatalf("claims missing principal: %+v", claims)
	}
}

func TestAuth_RemoteLoginWrongPassword(t *testing.T) {
	users := newStubUsers()
	seedUser(t, users, "amy@shop.test", "hunter22", domain.RoleAdmin, "", "")
	a := newTestAuth(users, newStubCreds(), newStubPrefs())

	_, _, err := a.Login(context.Background(), "amy@shop.test", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuth_UnknownUserIsInvalidCredentialsNotOffline(t *testing.T) {
	creds := newStubCreds()
	prefs := newStubPrefs()
	prefs.values[ports.PrefOfflineLogin] = "true"
	a := newTestAuth(newStubUsers(), creds, prefs)

	// The remote backend answered: this is a bad login, not an outage, so
	// the offline path must not be consulted.
	_, _, err := a.Login(context.Background(), "ghost@shop.test", "whatever")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuth_RemoteLoginCachesCredentialWhenEnabled(t *testing.T) {
	users := newStubUsers()
	seedUser(t, users, "amy@shop.test", "hunter22", domain.RoleEmployee, "store_1", "adm_1")
	creds := newStubCreds()
	prefs := newStubPrefs()
	prefs.values[ports.PrefOfflineLogin] = "true"
	a := newTestAuth(users, creds, prefs)

	if _, _, err := a.Login(context.Background(), "amy@shop.test", "hunter22"); err != nil {
		t.Fatalf("login: %v", err)
	}

	cred, err := creds.Find(context.Background(), "amy@shop.test")
	if err != nil || cred == nil {
		t.Fatalf("credential not cached: %v", err)
	}
	if cred.PasswordHash == "hunter22" {
		t.Fatalf("plaintext password stored")
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte("hunter22")) != nil {
		t.Fatalf("cached hash does not verify the password")
	}
	if cred.StoreID != "store_1" || cred.OwnerID != "adm_1" {
		t.Fatalf("session attributes not cached: %+v", cred)
	}
}

func TestAuth_RemoteLoginDoesNotCacheWhenDisabled(t *testing.T) {
	users := newStubUsers()
	seedUser(t, users, "amy@shop.test", "hunter22", domain.RoleAdmin, "", "")
	creds := newStubCreds()
	a := newTestAuth(users, creds, newStubPrefs())

	if _, _, err := a.Login(context.Background(), "amy@shop.test", "hunter22"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if cred, _ := creds.Find(context.Background(), "amy@shop.test"); cred != nil {
		t.Fatalf("credential cached while offline login disabled")
	}
}

func TestAuth_OfflineFallbackWhenRemoteUnreachable(t *testing.T) {
	users := newStubUsers()
	users.findErr = domain.ErrBackendUnreachable
	creds := newStubCreds()
	prefs := newStubPrefs()
	prefs.values[ports.PrefOfflineLogin] = "true"

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	creds.byEmail["amy@shop.test"] = ports.OfflineCredential{
		Email:        "amy@shop.test",
		PasswordHash: string(hash),
		PrincipalID:  "emp_1",
		Role:         domain.RoleEmployee,
		StoreID:      "store_1",
		OwnerID:      "adm_1",
	}

	a := newTestAuth(users, creds, prefs)
	token, sess, err := a.Login(context.Background(), "amy@shop.test", "hunter22")
	if err != nil {
		t.Fatalf("offline login: %v", err)
	}
	if token == "" {
		t.Fatalf("no token issued")
	}
	if sess.PrincipalID != "emp_1" || sess.StoreID != "store_1" || sess.OwnerID != "adm_1" {
		t.Fatalf("session not restored from cached credential: %+v", sess)
	}
}

func TestAuth_OfflineFailsClosedWhenDisabled(t *testing.T) {
	users := newStubUsers()
	users.findErr = domain.ErrBackendUnreachable
	creds := newStubCreds()
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	creds.byEmail["amy@shop.test"] = ports.OfflineCredential{
		Email: "amy@shop.test", PasswordHash: string(hash), PrincipalID: "emp_1",
	}

	a := newTestAuth(users, creds, newStubPrefs())
	_, _, err := a.Login(context.Background(), "amy@shop.test", "hunter22")
	if !errors.Is(err, domain.ErrOfflineLoginDisabled) {
		t.Fatalf("expected ErrOfflineLoginDisabled, got %v", err)
	}
}

func TestAuth_OfflineRejectsStaleCredential(t *testing.T) {
	users := newStubUsers()
	users.findErr = domain.ErrBackendUnreachable
	creds := newStubCreds()
	prefs := newStubPrefs()
	prefs.values[ports.PrefOfflineLogin] = "true"
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	creds.byEmail["amy@shop.test"] = ports.OfflineCredential{
		Email: "amy@shop.test", PasswordHash: string(hash), PrincipalID: "emp_1", Stale: true,
	}

	a := newTestAuth(users, creds, prefs)
	_, _, err := a.Login(context.Background(), "amy@shop.test", "hunter22")
	if !errors.Is(err, domain.ErrCredentialStale) {
		t.Fatalf("expected ErrCredentialStale, got %v", err)
	}
}

func TestAuth_OfflineRejectsWrongPassword(t *testing.T) {
	users := newStubUsers()
	users.findErr = domain.ErrBackendUnreachable
	creds := newStubCreds()
	prefs := newStubPrefs()
	prefs.values[ports.PrefOfflineLogin] = "true"
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	creds.byEmail["amy@shop.test"] = ports.OfflineCredential{
		Email: "amy@shop.test", PasswordHash: string(hash), PrincipalID: "emp_1",
	}

	a := newTestAuth(users, creds, prefs)
	_, _, err := a.Login(context.Background(), "amy@shop.test", "wrong")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuth_DisablingOfflineLoginPurgesCredentials(t *testing.T) {
	creds := newStubCreds()
	creds.byEmail["amy@shop.test"] = ports.OfflineCredential{Email: "amy@shop.test"}
	prefs := newStubPrefs()
	prefs.values[ports.PrefOfflineLogin] = "true"
	a := newTestAuth(newStubUsers(), creds, prefs)

	if err := a.SetOfflineLogin(context.Background(), false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if creds.cleared != 1 {
		t.Fatalf("credentials not purged on disable")
	}
	if prefs.values[ports.PrefOfflineLogin] != "false" {
		t.Fatalf("preference not persisted")
	}
}

func TestAuth_LogoutClearsCredentials(t *testing.T) {
	creds := newStubCreds()
	creds.byEmail["amy@shop.test"] = ports.OfflineCredential{Email: "amy@shop.test"}
	a := newTestAuth(newStubUsers(), creds, newStubPrefs())

	if err := a.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if creds.cleared != 1 {
		t.Fatalf("logout did not clear the credential cache")
	}
}

func TestAuth_RegisterEmployeeRequiresStoreAndOwner(t *testing.T) {
	a := newTestAuth(newStubUsers(), newStubCreds(), newStubPrefs())

	_, err := a.Register(context.Background(), "emp@shop.test", "hunter22", domain.RoleEmployee, "", "")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuth_RegisterAdminOwnsThemself(t *testing.T) {
	users := newStubUsers()
	a := newTestAuth(users, newStubCreds(), newStubPrefs())

	user, err := a.Register(context.Background(), "amy@shop.test", "hunter22", domain.RoleAdmin, "", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.OwnerID != user.ID {
		t.Fatalf("admin must own their namespace, got owner %q", user.OwnerID)
	}
	if user.PasswordHash == "hunter22" {
		t.Fatalf("plaintext password stored")
	}
}

func TestAuth_RegisterInvalidatesCachedCredential(t *testing.T) {
	users := newStubUsers()
	creds := newStubCreds()
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	creds.byEmail["amy@shop.test"] = ports.OfflineCredential{
		Email: "amy@shop.test", PasswordHash: string(hash), PrincipalID: "emp_1", Role: domain.RoleEmployee, StoreID: "store_1",
	}

	a := newTestAuth(users, creds, newStubPrefs())
	if _, err := a.Register(context.Background(), "amy@shop.test", "newpass99", domain.RoleAdmin, "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	if !creds.byEmail["amy@shop.test"].Stale {
		t.Fatalf("cached credential survived re-registration without staleness marker")
	}
}

func TestAuth_InvalidateOfflineCredentialBlocksOfflineLogin(t *testing.T) {
	users := newStubUsers()
	creds := newStubCreds()
	prefs := newStubPrefs()
	prefs.values[ports.PrefOfflineLogin] = "true"
	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	creds.byEmail["amy@shop.test"] = ports.OfflineCredential{
		Email: "amy@shop.test", PasswordHash: string(hash), PrincipalID: "emp_1", Role: domain.RoleEmployee, StoreID: "store_1",
	}

	a := newTestAuth(users, creds, prefs)
	if err := a.InvalidateOfflineCredential(context.Background(), "amy@shop.test"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	users.findErr = domain.ErrBackendUnreachable
	_, _, err := a.Login(context.Background(), "amy@shop.test", "hunter22")
	if !errors.Is(err, domain.ErrCredentialStale) {
		t.Fatalf("expected ErrCredentialStale, got %v", err)
	}
}
