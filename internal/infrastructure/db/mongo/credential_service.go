package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/inventory-web/internal/core/domain"
)

const defaultRefreshTTL = 30 * 24 * time.Hour

// managerSlot is the _id of the bootstrap document claimed by the first
// account. The unique _id makes the claim atomic.
const managerSlot = "first_manager"

// CredentialService is the self-hosted counterpart of the hosted credential
// service. Besides issuing sessions it creates the profile row on sign-up;
// the first account becomes manager.
type CredentialService struct {
	users      *mongo.Collection
	refresh    *mongo.Collection
	profiles   *mongo.Collection
	bootstrap  *mongo.Collection
	tokens     *Tokens
	refreshTTL time.Duration
	now        func() time.Time
}

func NewCredentialService(db *mongo.Database, tokens *Tokens) *CredentialService {
	return &CredentialService{
		users:      db.Collection(collectionUsers),
		refresh:    db.Collection(collectionRefreshTokens),
		profiles:   db.Collection(collectionProfiles),
		bootstrap:  db.Collection(collectionBootstrap),
		tokens:     tokens,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

type refreshDoc struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func (s *CredentialService) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	cred, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(ctx, domain.User{ID: cred.ID, Email: cred.Email})
}

func (s *CredentialService) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := userDoc{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if _, err := s.createProfile(ctx, doc); err != nil {
		// Without a profile the account has no role; undo it so the
		// username can be used again.
		if _, derr := s.users.DeleteOne(ctx, bson.M{"_id": doc.ID}); derr != nil {
			return nil, errors.Join(err, fmt.Errorf("remove user: %w", derr))
		}
		return nil, err
	}

	return s.issue(ctx, domain.User{ID: doc.ID, Email: doc.Email})
}

type bootstrapDoc struct {
	ID     string `bson:"_id"`
	UserID string `bson:"user_id"`
}

// createProfile mirrors the hosted backend's sign-up trigger. The account
// that claims the manager slot becomes manager; everyone else is a store
// keeper.
func (s *CredentialService) createProfile(ctx context.Context, user userDoc) (domain.Role, error) {
	role := domain.RoleStoreKeeper
	_, err := s.bootstrap.InsertOne(ctx, bootstrapDoc{ID: managerSlot, UserID: user.ID})
	switch {
	case err == nil:
		role = domain.RoleManager
	case mongo.IsDuplicateKeyError(err):
	default:
		return "", fmt.Errorf("claim manager slot: %w", err)
	}

	username, _, _ := strings.Cut(user.Email, "@")
	_, err = s.profiles.InsertOne(ctx, profileDoc{
		ID:        user.ID,
		Username:  username,
		Email:     user.Email,
		Role:      string(role),
		CreatedAt: user.CreatedAt,
	})
	if err != nil {
		if role == domain.RoleManager {
			_, _ = s.bootstrap.DeleteOne(ctx, bson.M{"_id": managerSlot, "user_id": user.ID})
		}
		return "", fmt.Errorf("insert profile: %w", err)
	}
	return role, nil
}

// SignOut revokes every refresh token of the token's user. Access tokens
// stay valid until they expire. An expired token may still sign out.
func (s *CredentialService) SignOut(ctx context.Context, accessToken string) error {
	user, err := s.tokens.Owner(accessToken)
	if err != nil {
		return err
	}
	if _, err := s.refresh.DeleteMany(ctx, bson.M{"user_id": user.ID}); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return nil
}

// Refresh rotates refreshToken into a new session.
func (s *CredentialService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	var doc refreshDoc
	err := s.refresh.FindOneAndDelete(ctx, bson.M{"_id": refreshToken}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if !doc.ExpiresAt.After(s.now()) {
		return nil, domain.ErrInvalidCredentials
	}

	var user userDoc
	if err := s.users.FindOne(ctx, bson.M{"_id": doc.UserID}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return s.issue(ctx, domain.User{ID: user.ID, Email: user.Email})
}

func (s *CredentialService) findByEmail(ctx context.Context, email string) (*userDoc, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &doc, nil
}

func (s *CredentialService) issue(ctx context.Context, user domain.User) (*domain.Session, error) {
	access, exp, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	refresh := refreshDoc{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: s.now().UTC().Add(s.refreshTTL),
	}
	if _, err := s.refresh.InsertOne(ctx, refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &domain.Session{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		ExpiresAt:    exp,
		User:         user,
	}, nil
}
