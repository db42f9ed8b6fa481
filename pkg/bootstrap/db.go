// Package bootstrap opens the database and assembles the scanner from
// configuration. The server and kartonctl share it.
package bootstrap

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"karton/models"
	"karton/pkg/config"
)

var (
	ErrOperatorExists = errors.New("operator already exists")
	ErrBadCredentials = errors.New("invalid credentials")
)

// DefaultAdmin is seeded when no operator named admin exists.
const (
	DefaultAdmin         = "admin"
	DefaultAdminPassword = "admin123"
)

// OpenDB connects to postgres when the driver says so, sqlite otherwise.
func OpenDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "postgres", "postgresql":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, errors.New("database.driver is postgres but DB_DSN is not set")
		}
		dial = postgres.Open(cfg.DSN)
	case "", "sqlite", "sqlite3":
		dial = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}
	return db, nil
}

// Migrate runs AutoMigrate model by model; a failure is logged and the rest
// still run.
func Migrate(db *gorm.DB) {
	for _, m := range []struct {
		table string
		model any
	}{
		{"roles", &models.Role{}},
		{"operators", &models.Operator{}},
		{"refresh_tokens", &models.RefreshToken{}},
		{"detected_codes", &models.Detection{}},
	} {
		if err := db.AutoMigrate(m.model); err != nil {
			log.Printf("migration warning (%s): %v", m.table, err)
		}
	}
}

// Seed makes sure the master roles and the admin operator exist.
func Seed(db *gorm.DB) error {
	roles := []models.Role{
		{Name: models.RoleAdministrator, Description: "full access"},
		{Name: models.RoleOperator, Description: "line operator"},
	}
	for _, r := range roles {
		if err := db.Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}
	var count int64
	db.Model(&models.Operator{}).Where("username = ?", DefaultAdmin).Count(&count)
	if count > 0 {
		return nil
	}
	if _, err := CreateOperator(db, DefaultAdmin, DefaultAdminPassword, "Administrator", models.RoleAdministrator); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Printf("Seeded admin operator: username=%s password=%s", DefaultAdmin, DefaultAdminPassword)
	return nil
}

// CreateOperator stores a new operator with a bcrypt-hashed password.
func CreateOperator(db *gorm.DB, username, password, displayName, role string) (models.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Operator{}, errors.New("username required")
	}
	if len(password) < 6 {
		return models.Operator{}, errors.New("password too short (min 6)")
	}
	if role == "" {
		role = models.RoleOperator
	}
	var existing models.Operator
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return models.Operator{}, ErrOperatorExists
	}
	var r models.Role
	if err := db.Where("name = ?", role).First(&r).Error; err != nil {
		return models.Operator{}, fmt.Errorf("role %s: %w", role, err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Operator{}, err
	}
	if displayName == "" {
		displayName = username
	}
	rid := r.ID
	op := models.Operator{Username: username, DisplayName: displayName, HashedPassword: hashed, RoleID: &rid}
	if err := db.Create(&op).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.Operator{}, ErrOperatorExists
		}
		return models.Operator{}, err
	}
	op.Role = r
	return op, nil
}

// Authenticate checks a username and password and loads the operator's role.
func Authenticate(db *gorm.DB, username, password string) (models.Operator, error) {
	var op models.Operator
	if err := db.Preload("Role").Where("username = ?", strings.TrimSpace(username)).First(&op).Error; err != nil {
		return models.Operator{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(op.HashedPassword, []byte(password)); err != nil {
		return models.Operator{}, ErrBadCredentials
	}
	return op, nil
}

// SetPassword replaces an operator's password.
func SetPassword(db *gorm.DB, username, password string) error {
	if len(password) < 6 {
		return errors.New("password too short (min 6)")
	}
	var op models.Operator
	if err := db.Where("username = ?", strings.TrimSpace(username)).First(&op).Error; err != nil {
		return fmt.Errorf("operator %s: %w", username, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return db.Model(&op).Update("hashed_password", hash).Error
}

// EnsureDirs creates the upload and image directories.
func EnsureDirs(cfg config.StorageConfig) {
	for _, dir := range []string{cfg.UploadBase, cfg.ImageDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("failed to create dir %s: %v", dir, err)
		}
	}
}

func isUniqueConstraintError(err error) bool {
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint") ||
		strings.Contains(s, "UNIQUE constraint")
}
