package store

import "testing"

func TestSettingRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get("enabled"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if v, err := repo.GetOr("enabled", "true"); err != nil || v != "true" {
		t.Errorf("GetOr default: got %q (%v)", v, err)
	}

	if err := repo.Set("enabled", "false"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := repo.Set("enabled", "true"); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}
	if err := repo.Set("layer", "default"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}

	v, err := repo.Get("enabled")
	if err != nil || v != "true" {
		t.Errorf("Get: got %q (%v)", v, err)
	}

	all, err := repo.All()
	if err != nil {
		t.Fatalf("failed to list settings: %v", err)
	}
	if len(all) != 2 || all["layer"] != "default" {
		t.Errorf("unexpected settings: %v", all)
	}
}
