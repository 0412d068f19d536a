package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Template is a named shape gesture.
type Template struct {
	ID        string
	Name      string
	Tolerance float64
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PathPoint is one point of a template's reference path.
type PathPoint struct {
	X float64
	Y float64
}

// TemplateRepository provides CRUD operations for shape templates.
type TemplateRepository struct {
	db *sql.DB
}

// Templates returns the template repository for this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{db: s.db}
}

const templateColumns = `id, name, tolerance, samples, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (*Template, error) {
	t := &Template{}
	if err := row.Scan(&t.ID, &t.Name, &t.Tolerance, &t.Samples, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new template. An empty ID is filled with a fresh UUID.
func (r *TemplateRepository) Create(t *Template) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO templates (`+templateColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Tolerance, t.Samples, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetByID retrieves a template by its ID.
func (r *TemplateRepository) GetByID(id string) (*Template, error) {
	t, err := scanTemplate(r.db.QueryRow(`SELECT `+templateColumns+` FROM templates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// GetByName retrieves a template by its name.
func (r *TemplateRepository) GetByName(name string) (*Template, error) {
	t, err := scanTemplate(r.db.QueryRow(`SELECT `+templateColumns+` FROM templates WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// List retrieves all templates, newest first.
func (r *TemplateRepository) List() ([]*Template, error) {
	rows, err := r.db.Query(`SELECT ` + templateColumns + ` FROM templates ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Update updates an existing template.
func (r *TemplateRepository) Update(t *Template) error {
	t.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE templates SET name = ?, tolerance = ?, samples = ?, updated_at = ? WHERE id = ?`,
		t.Name, t.Tolerance, t.Samples, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// Delete removes a template together with its path and samples.
func (r *TemplateRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// SetPath replaces the reference path of a template.
func (r *TemplateRepository) SetPath(templateID string, path []PathPoint) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM templates WHERE id = ?`, templateID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM template_points WHERE template_id = ?`, templateID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO template_points (template_id, sequence, x, y) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range path {
		if _, err := stmt.Exec(templateID, i, p.X, p.Y); err != nil {
			return fmt.Errorf("insert point %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetPath returns the reference path of a template in order.
func (r *TemplateRepository) GetPath(templateID string) ([]PathPoint, error) {
	rows, err := r.db.Query(
		`SELECT x, y FROM template_points WHERE template_id = ? ORDER BY sequence`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var path []PathPoint
	for rows.Next() {
		var p PathPoint
		if err := rows.Scan(&p.X, &p.Y); err != nil {
			return nil, err
		}
		path = append(path, p)
	}
	return path, rows.Err()
}
