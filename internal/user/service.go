package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-order-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/apperror"
)

// PasswordHasher defines minimal hashing interface (abstract so we can swap to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", cost), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Store is the persistence the credential store needs.
type Store interface {
	Create(ctx context.Context, u *entity.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}

// UserService is the credential store: registration and password authentication.
type UserService struct {
	repo   Store
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(r Store, hasher PasswordHasher) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 10}
	}
	return &UserService{repo: r, hasher: hasher}
}

const maxPasswordBytes = 72 // bcrypt input limit

var (
	ErrMissingFields   = apperror.InvalidInput("Username and password are required.")
	ErrPasswordTooLong = apperror.InvalidInput("Password must be at most 72 bytes.")
	ErrUsernameTaken   = apperror.New(apperror.KindConflict, "Username already exists.")
	ErrUserNotFound    = apperror.New(apperror.KindUnauthorized, "Invalid credentials")
	ErrBadCredentials  = apperror.New(apperror.KindUnauthorized, "Invalid credentials")
)

// Register hashes the password and inserts the user. A taken username yields
// ErrUsernameTaken and leaves the existing row untouched.
func (s *UserService) Register(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, ErrMissingFields
	}
	if len(password) > maxPasswordBytes {
		return 0, ErrPasswordTooLong
	}
	hash, algo, err := s.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, &entity.User{Username: username, PasswordHash: hash, PasswordAlgo: algo})
	if err != nil {
		if errors.Is(err, userrepo.ErrDuplicate) {
			return 0, ErrUsernameTaken
		}
		return 0, apperror.Storage("create user", err)
	}
	return id, nil
}

// Authenticate verifies username/password. Unknown users and wrong passwords
// return distinct sentinels of the same kind and message.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*entity.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// burn a comparison so response time does not reveal unknown users
			s.hasher.Verify(s.dummy(), password)
			return nil, ErrUserNotFound
		}
		return nil, apperror.Storage("get user", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrBadCredentials
	}
	return &entity.Identity{ID: u.ID, Username: u.Username}, nil
}

func (s *UserService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _, _ = s.hasher.Hash("pitchfork-dummy-password")
	})
	return s.dummyHash
}
