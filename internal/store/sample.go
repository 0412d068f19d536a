package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Sample is a recorded training path for a template.
type Sample struct {
	ID          int64           `json:"id"`
	TemplateID  string          `json:"template_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SampleRepository provides CRUD operations for template samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create replaces the samples of a template in a single transaction and
// updates the template's sample count.
func (r *SampleRepository) Create(templateID string, samples []json.RawMessage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM template_samples WHERE template_id = ?`, templateID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO template_samples (template_id, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, data := range samples {
		if _, err := stmt.Exec(templateID, i, string(data)); err != nil {
			return err
		}
	}

	result, err := tx.Exec(`UPDATE templates SET samples = ?, updated_at = ? WHERE id = ?`,
		len(samples), time.Now(), templateID)
	if err != nil {
		return err
	}
	if err := affectedOne(result); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByTemplateID retrieves all samples of a template in order.
func (r *SampleRepository) GetByTemplateID(templateID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, template_id, sample_index, data, created_at
		 FROM template_samples
		 WHERE template_id = ?
		 ORDER BY sample_index`,
		templateID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.TemplateID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	return samples, rows.Err()
}

// DeleteByTemplateID removes all samples of a template.
func (r *SampleRepository) DeleteByTemplateID(templateID string) error {
	_, err := r.db.Exec(`DELETE FROM template_samples WHERE template_id = ?`, templateID)
	return err
}
