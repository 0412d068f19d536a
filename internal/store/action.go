package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Action binds a recognized gesture model to a plugin action. An empty
// Item matches the model on any key.
type Action struct {
	ID         string
	ModelID    string
	Item       string
	PluginName string
	ActionName string
	Config     json.RawMessage
	Enabled    bool
	CreatedAt  time.Time
}

// ActionRepository provides CRUD operations for actions.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

const actionColumns = `id, model_id, item, plugin_name, action_name, config, enabled, created_at`

func scanAction(row interface{ Scan(...any) error }) (*Action, error) {
	a := &Action{}
	var config string
	var enabled int
	if err := row.Scan(&a.ID, &a.ModelID, &a.Item, &a.PluginName, &a.ActionName, &config, &enabled, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Config = json.RawMessage(config)
	a.Enabled = enabled != 0
	return a, nil
}

func configOrEmpty(config json.RawMessage) string {
	if len(config) == 0 {
		return "{}"
	}
	return string(config)
}

// Create inserts a new action. An empty ID is filled with a fresh UUID.
func (r *ActionRepository) Create(a *Action) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO actions (`+actionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ModelID, a.Item, a.PluginName, a.ActionName, configOrEmpty(a.Config), a.Enabled, a.CreatedAt,
	)
	return err
}

// GetByID retrieves an action by its ID.
func (r *ActionRepository) GetByID(id string) (*Action, error) {
	a, err := scanAction(r.db.QueryRow(`SELECT `+actionColumns+` FROM actions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// Match finds the enabled action for a recognized model and item. A binding
// for the exact item wins over one for any item. Returns nil, nil if no
// action is bound.
func (r *ActionRepository) Match(modelID, item string) (*Action, error) {
	a, err := scanAction(r.db.QueryRow(
		`SELECT `+actionColumns+` FROM actions
		 WHERE model_id = ? AND enabled = 1 AND (item = ? OR item = '')
		 ORDER BY item = '' ASC, created_at ASC
		 LIMIT 1`,
		modelID, item,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// List retrieves all actions, newest first.
func (r *ActionRepository) List() ([]*Action, error) {
	rows, err := r.db.Query(`SELECT ` + actionColumns + ` FROM actions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Update updates an existing action.
func (r *ActionRepository) Update(a *Action) error {
	result, err := r.db.Exec(
		`UPDATE actions SET model_id = ?, item = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		a.ModelID, a.Item, a.PluginName, a.ActionName, configOrEmpty(a.Config), a.Enabled, a.ID,
	)
	if err != nil {
		return err
	}
	return affectedOne(result)
}

// Delete removes an action by its ID.
func (r *ActionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOne(result)
}
