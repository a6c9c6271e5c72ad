package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"trohub/app/internal/auth"
	"trohub/app/internal/config"
	"trohub/app/internal/db"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

// ErrInvalidCredentials is returned for an unknown email, a wrong password or a suspended account.
var ErrInvalidCredentials = errors.New("invalid email or password")

type UserInput struct {
	Name      string      `json:"name" binding:"required,max=100"`
	Email     string      `json:"email" binding:"required,email"`
	Phone     string      `json:"phone" binding:"omitempty,max=15"`
	Password  string      `json:"password" binding:"required"`
	Role      models.Role `json:"role" binding:"required,oneof=admin landlord staff"`
	ManagerID utils.SixID `json:"manager_id"` // Landlord a staff member works for
}

// IUserService defines the interface for staff account operations.
type IUserService interface {
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID utils.SixID) (*models.User, error)
	Create(ctx context.Context, in UserInput) (*models.User, error)
	List(ctx context.Context, page models.Page) ([]models.User, int64, error)
	SuspendUser(ctx context.Context, userIDToSuspend, adminUserID utils.SixID) error
	UnsuspendUser(ctx context.Context, userIDToUnsuspend utils.SixID) error
	// EnsureAdmin creates the bootstrap admin when no admin account exists yet.
	EnsureAdmin(ctx context.Context, email, password string) error
}

const usersCollection = "users"

type userService struct {
	db  *mongo.Database
	now Clock
}

func NewUserService(db *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: db, now: NewClock(cfg)}
}

func (s *userService) coll() *mongo.Collection {
	return s.db.Collection(usersCollection)
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.FindByEmail(ctx, email)
	if IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.Suspended || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindByEmail finds a non-deleted user by email address, case-insensitively.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	var user models.User
	err := s.coll().FindOne(ctx, bson.M{"email": email, "deleted": false}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Resource: "user", ID: email}
	}
	if err != nil {
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

func (s *userService) FindByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	var user models.User
	err := s.coll().FindOne(ctx, bson.M{"_id": userID, "deleted": false}).Decode(&user)
	if err != nil {
		return nil, lookupErr(err, "user", userID)
	}
	return &user, nil
}

func (s *userService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	hash, err := auth.HashPassword(in.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return nil, &ValidationError{Message: err.Error()}
	}
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		Phone:        in.Phone,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if in.Role == models.RoleStaff {
		if in.ManagerID.IsZero() {
			return nil, NewValidationError("manager_id is required for staff accounts")
		}
		manager, err := s.FindByID(ctx, in.ManagerID)
		if err != nil {
			return nil, err
		}
		if manager.Role != models.RoleLandlord {
			return nil, NewValidationError("manager_id must reference a landlord")
		}
		user.ManagerID = in.ManagerID
	}

	user, err = db.InsertOne(ctx, s.coll(), user, s.now())
	if err != nil {
		return nil, writeErr(err, "email already in use by another account")
	}
	zap.S().Infof("User %s (%s) created with role %s", user.ID, user.Email, user.Role)
	return user, nil
}

func (s *userService) List(ctx context.Context, page models.Page) ([]models.User, int64, error) {
	return findPage[models.User](ctx, s.coll(), bson.M{"deleted": false}, bson.D{{Key: "name", Value: 1}}, page)
}

// SuspendUser marks a user as suspended. An admin cannot suspend themselves.
func (s *userService) SuspendUser(ctx context.Context, userIDToSuspend, adminUserID utils.SixID) error {
	if userIDToSuspend == adminUserID {
		return NewValidationError("admin cannot suspend themselves")
	}
	if err := s.setSuspended(ctx, userIDToSuspend, true); err != nil {
		return err
	}
	zap.S().Infof("User %s suspended by admin %s", userIDToSuspend, adminUserID)
	return nil
}

func (s *userService) UnsuspendUser(ctx context.Context, userIDToUnsuspend utils.SixID) error {
	if err := s.setSuspended(ctx, userIDToUnsuspend, false); err != nil {
		return err
	}
	zap.S().Infof("User %s unsuspended", userIDToUnsuspend)
	return nil
}

func (s *userService) setSuspended(ctx context.Context, id utils.SixID, suspended bool) error {
	filter := bson.M{"_id": id, "deleted": false}
	update := bson.M{"$set": bson.M{"suspended": suspended, "updated_at": s.now()}}
	result, err := s.coll().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error updating user %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return notFound("user", id)
	}
	return nil
}

func (s *userService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	n, err := s.coll().CountDocuments(ctx, bson.M{"role": models.RoleAdmin, "deleted": false})
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = s.Create(ctx, UserInput{Name: "Administrator", Email: email, Password: password, Role: models.RoleAdmin})
	if err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
