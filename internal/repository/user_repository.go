package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/orato-labs/speechcoach/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *models.User) error {
	u.ID = uuid.New()
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.IsActive = true
	query := `INSERT INTO users (id, username, email, password_hash, device_id, role, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.db.Exec(query, u.ID, u.Username, u.Email, u.PasswordHash, u.DeviceID, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRow(`SELECT id, username, email, password_hash, device_id, role, is_active, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DeviceID, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(username string) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRow(`SELECT id, username, email, password_hash, device_id, role, is_active, created_at, updated_at
		FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DeviceID, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByDeviceID resolves the user behind a transcription device, used when
// segments arrive tagged with a device rather than a user id.
func (r *UserRepository) GetByDeviceID(deviceID string) (*models.User, error) {
	u := &models.User{}
	err := r.db.QueryRow(`SELECT id, username, email, password_hash, device_id, role, is_active, created_at, updated_at
		FROM users WHERE device_id = $1`, deviceID).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DeviceID, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) ListActive() ([]*models.User, error) {
	rows, err := r.db.Query(`SELECT id, username, email, password_hash, device_id, role, is_active, created_at, updated_at
		FROM users WHERE is_active = true ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DeviceID, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

func (r *UserRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (r *UserRepository) SetActive(id uuid.UUID, active bool) error {
	_, err := r.db.Exec(`UPDATE users SET is_active=$1, updated_at=$2 WHERE id=$3`, active, time.Now(), id)
	return err
}
