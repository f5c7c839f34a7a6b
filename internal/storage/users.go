package storage

import (
	"context" // Cancellation
	"fmt"     // Error wrapping
	"strings" // Salt comparison

	"kudo/internal/db"       // Error classification
	"kudo/internal/domain"   // Persisted models
	"kudo/internal/errs"     // Error taxonomy
	"kudo/internal/security" // Validation and hashing

	"github.com/google/uuid"     // Identifiers
	"github.com/sirupsen/logrus" // Structured logging
)

const (
	loginRules    = "login must start with a letter or digit followed by 3-32 letters, digits, '_' or '-'"
	passwordRules = "password must be 5-64 characters without whitespace and contain a letter or digit"
)

// CreateUser validates the credentials, hashes the password and stores a new user.
// A login already taken fails with errs.ErrConflict.
func (r *Repository) CreateUser(ctx context.Context, login, password string) error {
	const op = "create user"
	user, err := r.newUser(login, password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	r.gw.Add(user)
	if err := r.save(ctx, op); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,    // New user ID
		"login":   user.Login, // Stored login
	}).Info("User created")
	return nil
}

// newUser builds a validated user with its password hash
func (r *Repository) newUser(login, password string) (*domain.User, error) {
	if !security.ValidateLogin(login) {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, loginRules)
	}
	if !security.ValidatePassword(password) {
		return nil, fmt.Errorf("%w: %s", errs.ErrValidation, passwordRules)
	}
	user := &domain.User{ID: uuid.New(), Login: login, CreatedAt: r.timestamp()}
	// Hash against the login exactly as it will be stored
	if err := r.gw.Truncate(user); err != nil {
		return nil, err
	}
	user.PasswordHash = security.DerivePasswordHash(password, user.Login, user.CreatedAt)
	return user, nil
}

// UpdateUser changes the login and/or password of user id; nil leaves a field
// unchanged. The salt depends on the login, so a login change that alters the
// salt also needs the password.
func (r *Repository) UpdateUser(ctx context.Context, id uuid.UUID, login, password *string) error {
	const op = "update user"
	user, err := r.GetUserByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if login == nil && password == nil {
		return nil // Nothing to change
	}
	if login != nil && !security.ValidateLogin(*login) {
		return invalid(op, loginRules)
	}
	if password != nil && !security.ValidatePassword(*password) {
		return invalid(op, passwordRules)
	}

	updated := *user
	if login != nil {
		updated.Login = *login
		if err := r.gw.Truncate(&updated); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if updated.Login != user.Login {
		// The unique index has the final say; this check gives a clear error first
		var taken int64
		if err := r.gw.Query(ctx).Model(&domain.User{}).
			Where("login = ? AND id <> ?", updated.Login, user.ID).
			Count(&taken).Error; err != nil {
			return fmt.Errorf("%s: %w", op, db.Classify(ctx, err))
		}
		if taken > 0 {
			return fmt.Errorf("%s: %w: login %q is taken", op, errs.ErrConflict, updated.Login)
		}
	}
	switch {
	case password != nil:
		updated.PasswordHash = security.DerivePasswordHash(*password, updated.Login, updated.CreatedAt)
	case !strings.EqualFold(updated.Login, user.Login):
		return invalid(op, "password is required to change the login")
	}

	r.gw.Update(&updated)
	if err := r.save(ctx, op); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":          user.ID,         // Updated user ID
		"login":            updated.Login,   // Login after the update
		"password_changed": password != nil, // Whether the hash was re-derived
	}).Info("User updated")
	return nil
}

// GetUserByID returns the user with id
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.singleUser(ctx, "get user by id", "id = ?", id)
}

// GetUserByLogin returns the user with login, compared under the store's
// primary-strength collation
func (r *Repository) GetUserByLogin(ctx context.Context, login string) (*domain.User, error) {
	return r.singleUser(ctx, "get user by login", "login = ?", login)
}

// singleUser runs a lookup that must match exactly one user. Several matches mean
// the uniqueness invariant is broken; that error matches both errs.ErrConflict
// and errs.ErrNotFound.
func (r *Repository) singleUser(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var users []domain.User
	if err := r.gw.Query(ctx).Where(query, arg).Limit(2).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, db.Classify(ctx, err))
	}
	switch len(users) {
	case 0:
		return nil, fmt.Errorf("%s: %w: no user matches %v", op, errs.ErrNotFound, arg)
	case 1:
		return &users[0], nil
	default:
		return nil, fmt.Errorf("%s: %w (%w): several users match %v", op, errs.ErrConflict, errs.ErrNotFound, arg)
	}
}
