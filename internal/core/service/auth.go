package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/facturio/invoicing-system/internal/core/domain"
	"github.com/facturio/invoicing-system/internal/core/ports"
)

const defaultTokenTTL = 24 * time.Hour

// Auth establishes sessions against the remote user store and maintains the
// device's offline credential cache.
//
// The cache exists only when the operator has explicitly enabled it: a
// credential is persisted after each successful remote login, and offline
// login fails closed whenever the toggle is off, the credential is absent,
// stale, or the password does not match. Disabling the toggle purges every
// stored hash synchronously.
type Auth struct {
	users     ports.UserRepository
	creds     ports.CredentialStore
	prefs     ports.PreferenceStore
	jwtSecret string
	tokenTTL  time.Duration
	timeout   time.Duration
	log       zerolog.Logger
}

func NewAuth(
	users ports.UserRepository,
	creds ports.CredentialStore,
	prefs ports.PreferenceStore,
	jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *Auth {
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &Auth{
		users:     users,
		creds:     creds,
		prefs:     prefs,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		timeout:   5 * time.Second,
		log:       log,
	}
}

// Register creates a principal on the remote backend. Administrators pass an
// empty ownerID and own themselves.
func (a *Auth) Register(ctx context.Context, email, password, role, storeID, ownerID string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if role != domain.RoleAdmin && role != domain.RoleEmployee {
		return nil, domain.ErrInvalidCredentials
	}
	if role == domain.RoleEmployee && (storeID == "" || ownerID == "") {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           domain.NewID(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		StoreID:      storeID,
		OwnerID:      ownerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.OwnerID == "" {
		user.OwnerID = user.ID
	}

	created, err := a.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	// A credential cached for this email predates the new principal's role
	// and store; the next remote login re-caches it.
	if err := a.creds.MarkStale(ctx, email); err != nil {
		a.log.Warn().Err(err).Msg("stale offline credential not marked")
	}
	return created, nil
}

// Login authenticates against the remote backend, falling back to the
// offline credential cache only when the remote side is unreachable.
func (a *Auth) Login(ctx context.Context, email, password string) (string, domain.Session, error) {
	if email == "" || password == "" {
		return "", domain.Session{}, domain.ErrInvalidCredentials
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	user, err := a.users.FindByEmail(lookupCtx, email)
	switch {
	case err == nil:
		return a.remoteLogin(ctx, user, password)
	case errors.Is(err, domain.ErrUserNotFound):
		return "", domain.Session{}, domain.ErrInvalidCredentials
	default:
		// Remote unreachable: the offline path decides.
		a.log.Warn().Err(err).Msg("remote auth unreachable, attempting offline login")
		return a.attemptOfflineLogin(ctx, email, password)
	}
}

func (a *Auth) remoteLogin(ctx context.Context, user *domain.User, password string) (string, domain.Session, error) {
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", domain.Session{}, domain.ErrInvalidCredentials
	}

	sess := a.session(user.ID, user.Role, user.StoreID, user.OwnerID)

	// Refresh the offline credential only when the operator opted in.
	if a.offlineEnabled(ctx) {
		if err := a.persistCredential(ctx, user.Email, password, sess); err != nil {
			a.log.Warn().Err(err).Msg("failed to refresh offline credential")
		}
	}

	token, err := a.token(sess)
	if err != nil {
		return "", domain.Session{}, err
	}
	a.log.Info().Str("principal_id", sess.PrincipalID).Str("role", sess.Role).Msg("remote login")
	return token, sess, nil
}

// persistCredential derives a fresh salted hash from the supplied password.
// The plaintext is never stored.
func (a *Auth) persistCredential(ctx context.Context, email, password string, sess domain.Session) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return a.creds.Save(ctx, ports.OfflineCredential{
		Email:        email,
		PasswordHash: string(hash),
		PrincipalID:  sess.PrincipalID,
		Role:         sess.Role,
		StoreID:      sess.StoreID,
		OwnerID:      sess.OwnerID,
		UpdatedAt:    time.Now().UTC(),
	})
}

func (a *Auth) attemptOfflineLogin(ctx context.Context, email, password string) (string, domain.Session, error) {
	if !a.offlineEnabled(ctx) {
		return "", domain.Session{}, domain.ErrOfflineLoginDisabled
	}

	cred, err := a.creds.Find(ctx, email)
	if err != nil {
		return "", domain.Session{}, err
	}
	if cred == nil {
		return "", domain.Session{}, domain.ErrInvalidCredentials
	}
	if cred.Stale {
		return "", domain.Session{}, domain.ErrCredentialStale
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return "", domain.Session{}, domain.ErrInvalidCredentials
	}

	sess := a.session(cred.PrincipalID, cred.Role, cred.StoreID, cred.OwnerID)
	token, err := a.token(sess)
	if err != nil {
		return "", domain.Session{}, err
	}
	a.log.Info().Str("principal_id", sess.PrincipalID).Msg("offline login")
	return token, sess, nil
}

// Logout clears the device's offline credentials.
func (a *Auth) Logout(ctx context.Context) error {
	return a.creds.Clear(ctx)
}

// SetOfflineLogin toggles the offline fallback. Disabling purges the stored
// hashes synchronously, not merely stops consulting them.
func (a *Auth) SetOfflineLogin(ctx context.Context, enabled bool) error {
	if err := a.prefs.Set(ctx, ports.PrefOfflineLogin, strconv.FormatBool(enabled)); err != nil {
		return err
	}
	if !enabled {
		return a.creds.Clear(ctx)
	}
	return nil
}

// InvalidateOfflineCredential marks the cached credential for an email stale.
// Callers invoke it when a role or store change makes the cached claims
// wrong; the credential stays on disk and a fresh remote login replaces it.
func (a *Auth) InvalidateOfflineCredential(ctx context.Context, email string) error {
	if err := a.creds.MarkStale(ctx, email); err != nil {
		return fmt.Errorf("invalidate offline credential: %w", err)
	}
	return nil
}

func (a *Auth) offlineEnabled(ctx context.Context) bool {
	v, err := a.prefs.Get(ctx, ports.PrefOfflineLogin)
	if err != nil {
		return false
	}
	enabled, _ := strconv.ParseBool(v)
	return enabled
}

func (a *Auth) session(principalID, role, storeID, ownerID string) domain.Session {
	if ownerID == "" {
		ownerID = principalID
	}
	return domain.Session{
		PrincipalID: principalID,
		Role:        role,
		StoreID:     storeID,
		OwnerID:     ownerID,
		ExpiresAt:   time.Now().UTC().Add(a.tokenTTL),
	}
}

func (a *Auth) token(sess domain.Session) (string, error) {
	claims := jwt.MapClaims{
		"principal_id": sess.PrincipalID,
		"role":         sess.Role,
		"store_id":     sess.StoreID,
		"owner_id":     sess.OwnerID,
		"exp":          sess.ExpiresAt.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(a.jwtSecret))
}
