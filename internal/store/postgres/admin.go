package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/models"
	"github.com/coffeescripttech-maker/casureco-queue-management-system-server/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateBranch(ctx context.Context, branch models.Branch) (models.Branch, error) {
	if branch.BranchID == "" {
		branch.BranchID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO branches (branch_id, name, address)
		VALUES ($1, $2, $3)
	`, branch.BranchID, branch.Name, nullIfEmpty(branch.Address))
	if err != nil {
		return models.Branch{}, err
	}
	return branch, nil
}

func (s *Store) UpdateBranch(ctx context.Context, branch models.Branch) (models.Branch, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE branches
		SET name = $1, address = $2
		WHERE branch_id = $3
	`, branch.Name, nullIfEmpty(branch.Address), branch.BranchID)
	if err != nil {
		return models.Branch{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Branch{}, store.ErrBranchNotFound
	}
	return branch, nil
}

func (s *Store) DeleteBranch(ctx context.Context, branchID string) error {
	var count int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(1)
		FROM counters
		WHERE branch_id = $1
	`, branchID)
	if err := row.Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return store.ErrBranchHasCounters
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM branches
		WHERE branch_id = $1
	`, branchID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrBranchNotFound
	}
	return nil
}

func (s *Store) ListBranches(ctx context.Context) ([]models.Branch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT branch_id, name, COALESCE(address, '')
		FROM branches
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []models.Branch
	for rows.Next() {
		var branch models.Branch
		if err := rows.Scan(&branch.BranchID, &branch.Name, &branch.Address); err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return branches, nil
}

func (s *Store) CreateService(ctx context.Context, service models.Service) (models.Service, error) {
	if service.ServiceID == "" {
		service.ServiceID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO services (service_id, name, prefix, active)
		VALUES ($1, $2, $3, $4)
	`, service.ServiceID, service.Name, service.Prefix, service.Active)
	if err != nil {
		return models.Service{}, err
	}
	return service, nil
}

func (s *Store) UpdateService(ctx context.Context, service models.Service) (models.Service, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE services
		SET name = $1, prefix = $2, active = $3
		WHERE service_id = $4
	`, service.Name, service.Prefix, service.Active, service.ServiceID)
	if err != nil {
		return models.Service{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Service{}, store.ErrServiceNotFound
	}
	return service, nil
}

func (s *Store) DeleteService(ctx context.Context, serviceID string) error {
	// Soft delete: tickets keep their service reference forever.
	tag, err := s.pool.Exec(ctx, `
		UPDATE services
		SET active = FALSE
		WHERE service_id = $1
	`, serviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrServiceNotFound
	}
	return nil
}

func (s *Store) ListServices(ctx context.Context) ([]models.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT service_id, name, prefix, active
		FROM services
		WHERE active = TRUE
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ServiceID, &svc.Name, &svc.Prefix, &svc.Active); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Store) CreateCounter(ctx context.Context, counter models.Counter) (models.Counter, error) {
	if counter.CounterID == "" {
		counter.CounterID = uuid.NewString()
	}
	var staffID interface{}
	if counter.StaffID != nil {
		staffID = *counter.StaffID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO counters (counter_id, branch_id, name, staff_id, is_active, is_paused)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, counter.CounterID, counter.BranchID, counter.Name, staffID, counter.IsActive, counter.IsPaused)
	if err != nil {
		return models.Counter{}, mapReferenceError(err)
	}
	return counter, nil
}

func (s *Store) UpdateCounter(ctx context.Context, counter models.Counter) (models.Counter, error) {
	var staffID interface{}
	if counter.StaffID != nil {
		staffID = *counter.StaffID
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE counters
		SET name = $1, staff_id = $2, is_active = $3, is_paused = $4
		WHERE counter_id = $5
	`, counter.Name, staffID, counter.IsActive, counter.IsPaused, counter.CounterID)
	if err != nil {
		return models.Counter{}, err
	}
	if tag.RowsAffected() == 0 {
		return models.Counter{}, store.ErrCounterNotFound
	}
	return counter, nil
}

func (s *Store) DeleteCounter(ctx context.Context, counterID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM counters
		WHERE counter_id = $1
	`, counterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrCounterNotFound
	}
	return nil
}

func (s *Store) ListCounters(ctx context.Context, branchID string) ([]models.Counter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT counter_id, branch_id, name, staff_id, is_active, is_paused
		FROM counters
		WHERE branch_id = $1
		ORDER BY name ASC
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counters []models.Counter
	for rows.Next() {
		var counter models.Counter
		var staffID sql.NullString
		if err := rows.Scan(&counter.CounterID, &counter.BranchID, &counter.Name, &staffID, &counter.IsActive, &counter.IsPaused); err != nil {
			return nil, err
		}
		counter.StaffID = nullStringPtr(staffID)
		counters = append(counters, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counters, nil
}

func (s *Store) CreateAnnouncement(ctx context.Context, a models.Announcement) (models.Announcement, error) {
	if a.AnnouncementID == "" {
		a.AnnouncementID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	err := s.withAnnouncementTx(ctx, store.EventAnnouncementCreated, a, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO announcements (announcement_id, branch_id, message, active, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, a.AnnouncementID, a.BranchID, a.Message, a.Active, a.CreatedAt)
		return mapReferenceError(err)
	})
	if err != nil {
		return models.Announcement{}, err
	}
	return a, nil
}

func (s *Store) UpdateAnnouncement(ctx context.Context, a models.Announcement) (models.Announcement, error) {
	err := s.withAnnouncementTx(ctx, store.EventAnnouncementUpdated, a, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE announcements
			SET message = $1, active = $2
			WHERE announcement_id = $3
		`, a.Message, a.Active, a.AnnouncementID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrAnnouncementNotFound
		}
		return nil
	})
	if err != nil {
		return models.Announcement{}, err
	}
	return a, nil
}

func (s *Store) DeleteAnnouncement(ctx context.Context, announcementID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var a models.Announcement
	row := tx.QueryRow(ctx, `
		DELETE FROM announcements
		WHERE announcement_id = $1
		RETURNING announcement_id, branch_id, message, active, created_at
	`, announcementID)
	if err = row.Scan(&a.AnnouncementID, &a.BranchID, &a.Message, &a.Active, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrAnnouncementNotFound
		}
		return err
	}
	if err = insertOutboxEvent(ctx, tx, a.BranchID, nil, store.EventAnnouncementDeleted, a); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListAnnouncements(ctx context.Context, branchID string) ([]models.Announcement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT announcement_id, branch_id, message, active, created_at
		FROM announcements
		WHERE branch_id = $1
		ORDER BY created_at DESC
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var announcements []models.Announcement
	for rows.Next() {
		var a models.Announcement
		if err := rows.Scan(&a.AnnouncementID, &a.BranchID, &a.Message, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		announcements = append(announcements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return announcements, nil
}

func (s *Store) withAnnouncementTx(ctx context.Context, eventType string, a models.Announcement, mutate func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = mutate(tx); err != nil {
		return err
	}
	if err = insertOutboxEvent(ctx, tx, a.BranchID, nil, eventType, a); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) ListSettings(ctx context.Context, branchID string) ([]models.BranchSetting, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT branch_id, key, value
		FROM branch_settings
		WHERE branch_id = $1
		ORDER BY key ASC
	`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var settings []models.BranchSetting
	for rows.Next() {
		var setting models.BranchSetting
		if err := rows.Scan(&setting.BranchID, &setting.Key, &setting.Value); err != nil {
			return nil, err
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *Store) PutSetting(ctx context.Context, setting models.BranchSetting) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO branch_settings (branch_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (branch_id, key)
		DO UPDATE SET value = EXCLUDED.value
	`, setting.BranchID, setting.Key, setting.Value)
	return mapReferenceError(err)
}
