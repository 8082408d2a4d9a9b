/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces using SQLite. In production, the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  org.Directory:           Read-only organizational topology
  astreinte.PlanningStore: Plannings with their gardes
  astreinte.HolidayStore:  Public-holiday calendar
  indispo.Store:           Unavailability declarations

INVARIANT ENFORCEMENT:
  The schema carries the two uniqueness invariants as partial unique
  indexes, so no application race can break them:
  - idx_gardes_unique_slot: one covering garde per (scope, date, creneau, slot)
  - idx_gardes_unique_user_day: one active garde per (user, date) across scopes
  A violating write fails atomically with astreinte.ErrGardeConflict.

OPTIMISTIC CONCURRENCY:
  Plannings and indisponibilites carry a version column. Updates
  compare-and-swap on it; a stale version yields
  astreinte.ErrConcurrentModification with no partial write.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/astreinte.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - astreinte/store.go: Interface definitions
  - astreinte/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/astreinte"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/indispo"
	"github.com/Mouadbouanani/Gestion-Astreinte-sub002/org"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Organizational topology (read path for the scheduling core)
	CREATE TABLE IF NOT EXISTS sites (
		id TEXT PRIMARY KEY,
		nom TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		actif BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS secteurs (
		id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL REFERENCES sites(id),
		nom TEXT NOT NULL,
		code TEXT NOT NULL,
		actif BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE(site_id, code)
	);

	CREATE TABLE IF NOT EXISTS services (
		id TEXT PRIMARY KEY,
		secteur_id TEXT NOT NULL REFERENCES secteurs(id),
		nom TEXT NOT NULL,
		code TEXT NOT NULL,
		actif BOOLEAN NOT NULL DEFAULT TRUE,
		min_personnel INTEGER NOT NULL DEFAULT 1,
		shift_model TEXT NOT NULL DEFAULT 'journee_24h',
		UNIQUE(secteur_id, code)
	);

	CREATE TABLE IF NOT EXISTS service_collaborateurs (
		service_id TEXT NOT NULL REFERENCES services(id),
		user_id TEXT NOT NULL,
		PRIMARY KEY(service_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		nom TEXT NOT NULL,
		prenom TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		actif BOOLEAN NOT NULL DEFAULT TRUE,
		embauche TEXT NOT NULL DEFAULT '',
		site_id TEXT NOT NULL,
		secteur_id TEXT,
		service_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_users_service ON users(service_id) WHERE service_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_users_secteur ON users(secteur_id) WHERE secteur_id IS NOT NULL;

	-- Plannings and their gardes
	CREATE TABLE IF NOT EXISTS plannings (
		id TEXT PRIMARY KEY,
		scope_kind TEXT NOT NULL,
		service_id TEXT,
		secteur_id TEXT,
		debut TEXT NOT NULL,
		fin TEXT NOT NULL,
		statut TEXT NOT NULL,
		gen_algorithm TEXT,
		gen_config_json TEXT,
		gen_equity_score REAL,
		gen_at TEXT,
		created_by TEXT NOT NULL,
		submitted_by TEXT NOT NULL DEFAULT '',
		approved_by TEXT NOT NULL DEFAULT '',
		rejected_by TEXT NOT NULL DEFAULT '',
		rejection_reason TEXT NOT NULL DEFAULT '',
		published_by TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plannings_statut ON plannings(statut);
	CREATE INDEX IF NOT EXISTS idx_plannings_scope ON plannings(scope_kind, service_id, secteur_id);

	CREATE TABLE IF NOT EXISTS gardes (
		id TEXT PRIMARY KEY,
		planning_id TEXT NOT NULL REFERENCES plannings(id) ON DELETE CASCADE,
		scope_key TEXT NOT NULL,
		date TEXT NOT NULL,
		creneau TEXT NOT NULL,
		slot INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		statut TEXT NOT NULL,
		remplace_par TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_gardes_planning ON gardes(planning_id);
	CREATE INDEX IF NOT EXISTS idx_gardes_user_date ON gardes(user_id, date);

	-- CRITICAL: one covering garde per concrete on-call slot. Replaced
	-- gardes step out of the slot so their replacement can take it.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_gardes_unique_slot
		ON gardes(scope_key, date, creneau, slot)
		WHERE statut != 'remplace';

	-- CRITICAL: a user holds at most one active garde per day, whatever
	-- the scope. Absent and replaced gardes release the day.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_gardes_unique_user_day
		ON gardes(user_id, date)
		WHERE statut IN ('planifie', 'confirme');

	-- Public-holiday calendar
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		nom TEXT NOT NULL,
		type TEXT NOT NULL,
		actif BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique ON holidays(date, nom);

	-- Unavailability declarations
	CREATE TABLE IF NOT EXISTS indisponibilites (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		debut TEXT NOT NULL,
		fin TEXT NOT NULL,
		motif TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		priorite TEXT NOT NULL,
		statut TEXT NOT NULL,
		decided_by TEXT NOT NULL DEFAULT '',
		refusal_reason TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_indispos_user ON indisponibilites(user_id, statut);
	CREATE INDEX IF NOT EXISTS idx_indispos_period ON indisponibilites(debut, fin);
	`

	_, err := s.db.Exec(schema)
	return err
}

func scopeKey(sc astreinte.Scope) string {
	if sc.Kind == astreinte.ScopeSecteur {
		return "secteur:" + string(sc.SecteurID)
	}
	return "service:" + string(sc.ServiceID)
}

// =============================================================================
// DIRECTORY (org.Directory interface)
// =============================================================================

// SaveUser inserts or updates a user record.
func (s *Store) SaveUser(ctx context.Context, u org.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, nom, prenom, email, role, actif, embauche, site_id, secteur_id, service_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			nom = excluded.nom,
			prenom = excluded.prenom,
			email = excluded.email,
			role = excluded.role,
			actif = excluded.actif,
			embauche = excluded.embauche,
			site_id = excluded.site_id,
			secteur_id = excluded.secteur_id,
			service_id = excluded.service_id
	`

	var secteurID, serviceID *string
	if u.SecteurID != nil {
		v := string(*u.SecteurID)
		secteurID = &v
	}
	if u.ServiceID != nil {
		v := string(*u.ServiceID)
		serviceID = &v
	}

	_, err := s.db.ExecContext(ctx, query,
		u.ID, u.Nom, u.Prenom, u.Email, u.Role, u.Actif, u.Embauche, u.SiteID, secteurID, serviceID)
	return err
}

// GetUser retrieves a user by ID, or nil if absent.
func (s *Store) GetUser(ctx context.Context, id org.UserID) (*org.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var u org.User
	var secteurID, serviceID sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT id, nom, prenom, email, role, actif, embauche, site_id, secteur_id, service_id FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Nom, &u.Prenom, &u.Email, &u.Role, &u.Actif, &u.Embauche, &u.SiteID, &secteurID, &serviceID)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if secteurID.Valid {
		v := org.SecteurID(secteurID.String)
		u.SecteurID = &v
	}
	if serviceID.Valid {
		v := org.ServiceID(serviceID.String)
		u.ServiceID = &v
	}
	return &u, nil
}

// SaveSite inserts or updates a site.
func (s *Store) SaveSite(ctx context.Context, site org.Site) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sites (id, nom, code, actif)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			nom = excluded.nom,
			code = excluded.code,
			actif = excluded.actif
	`
	_, err := s.db.ExecContext(ctx, query, site.ID, site.Nom, site.Code, site.Actif)
	return err
}

// SaveSecteur inserts or updates a secteur.
func (s *Store) SaveSecteur(ctx context.Context, sec org.Secteur) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO secteurs (id, site_id, nom, code, actif)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			site_id = excluded.site_id,
			nom = excluded.nom,
			code = excluded.code,
			actif = excluded.actif
	`
	_, err := s.db.ExecContext(ctx, query, sec.ID, sec.SiteID, sec.Nom, sec.Code, sec.Actif)
	return err
}

// GetSecteur retrieves a secteur by ID, or nil if absent.
func (s *Store) GetSecteur(ctx context.Context, id org.SecteurID) (*org.Secteur, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sec org.Secteur
	err := s.db.QueryRowContext(ctx,
		"SELECT id, site_id, nom, code, actif FROM secteurs WHERE id = ?",
		id,
	).Scan(&sec.ID, &sec.SiteID, &sec.Nom, &sec.Code, &sec.Actif)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sec, nil
}

// SaveService inserts or updates a service and rewrites its roster.
func (s *Store) SaveService(ctx context.Context, svc org.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO services (id, secteur_id, nom, code, actif, min_personnel, shift_model)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			secteur_id = excluded.secteur_id,
			nom = excluded.nom,
			code = excluded.code,
			actif = excluded.actif,
			min_personnel = excluded.min_personnel,
			shift_model = excluded.shift_model
	`
	if _, err := tx.ExecContext(ctx, query,
		svc.ID, svc.SecteurID, svc.Nom, svc.Code, svc.Actif, svc.MinPersonnel, svc.ShiftModel); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM service_collaborateurs WHERE service_id = ?", svc.ID); err != nil {
		return err
	}
	for _, uid := range svc.Collaborateurs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO service_collaborateurs (service_id, user_id) VALUES (?, ?)",
			svc.ID, uid); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetService retrieves a service with its roster, or nil if absent.
func (s *Store) GetService(ctx context.Context, id org.ServiceID) (*org.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var svc org.Service
	err := s.db.QueryRowContext(ctx,
		"SELECT id, secteur_id, nom, code, actif, min_personnel, shift_model FROM services WHERE id = ?",
		id,
	).Scan(&svc.ID, &svc.SecteurID, &svc.Nom, &svc.Code, &svc.Actif, &svc.MinPersonnel, &svc.ShiftModel)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM service_collaborateurs WHERE service_id = ? ORDER BY user_id",
		id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var uid org.UserID
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		svc.Collaborateurs = append(svc.Collaborateurs, uid)
	}
	return &svc, rows.Err()
}

// ActiveUsers returns active users matching the filter, ordered by id.
func (s *Store) ActiveUsers(ctx context.Context, f org.ScopeFilter) ([]org.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, nom, prenom, email, role, actif, embauche, site_id, secteur_id, service_id FROM users WHERE actif = TRUE"
	var args []any

	if f.ServiceID != nil {
		query += " AND service_id = ?"
		args = append(args, *f.ServiceID)
	}
	if f.SecteurID != nil {
		query += " AND secteur_id = ?"
		args = append(args, *f.SecteurID)
	}
	if len(f.Roles) > 0 {
		placeholders := make([]string, len(f.Roles))
		for i, r := range f.Roles {
			placeholders[i] = "?"
			args = append(args, r)
		}
		query += " AND role IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []org.User
	for rows.Next() {
		var u org.User
		var secteurID, serviceID sql.NullString
		if err := rows.Scan(&u.ID, &u.Nom, &u.Prenom, &u.Email, &u.Role, &u.Actif,
			&u.Embauche, &u.SiteID, &secteurID, &serviceID); err != nil {
			return nil, err
		}
		if secteurID.Valid {
			v := org.SecteurID(secteurID.String)
			u.SecteurID = &v
		}
		if serviceID.Valid {
			v := org.ServiceID(serviceID.String)
			u.ServiceID = &v
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// PLANNING STORE (astreinte.PlanningStore interface)
// =============================================================================

// SavePlanning inserts a new planning with its gardes.
func (s *Store) SavePlanning(ctx context.Context, p *astreinte.Planning) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var genAlgorithm, genConfig, genAt *string
	var genEquity *float64
	if p.Generation != nil {
		cfg, _ := json.Marshal(p.Generation.Config)
		a, c := p.Generation.Algorithm, string(cfg)
		at := p.Generation.GeneratedAt.Format(time.RFC3339)
		genAlgorithm, genConfig, genAt = &a, &c, &at
		genEquity = &p.Generation.EquityScore
	}

	query := `
		INSERT INTO plannings
		(id, scope_kind, service_id, secteur_id, debut, fin, statut,
		 gen_algorithm, gen_config_json, gen_equity_score, gen_at,
		 created_by, submitted_by, approved_by, rejected_by, rejection_reason, published_by,
		 version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		p.ID, p.Scope.Kind, nullString(string(p.Scope.ServiceID)), nullString(string(p.Scope.SecteurID)),
		p.Period.Debut.String(), p.Period.Fin.String(), p.Status,
		genAlgorithm, genConfig, genEquity, genAt,
		p.CreatedBy, p.SubmittedBy, p.ApprovedBy, p.RejectedBy, p.RejectionReason, p.PublishedBy,
		1,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert planning: %w", err)
	}

	if err := s.insertGardes(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	p.Version = 1
	return nil
}

func (s *Store) insertGardes(ctx context.Context, tx *sql.Tx, p *astreinte.Planning) error {
	key := scopeKey(p.Scope)
	query := `
		INSERT INTO gardes
		(id, planning_id, scope_key, date, creneau, slot, user_id, type, statut, remplace_par, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, g := range p.Gardes {
		var remplacePar *string
		if g.RemplacePar != nil {
			v := string(*g.RemplacePar)
			remplacePar = &v
		}
		_, err := tx.ExecContext(ctx, query,
			g.ID, p.ID, key, g.Date.String(), g.Creneau, g.Slot, g.UserID, g.Type, g.Status,
			remplacePar,
			g.CreatedAt.Format(time.RFC3339), g.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("garde %s on %s: %w", g.ID, g.Date, astreinte.ErrGardeConflict)
			}
			return fmt.Errorf("failed to insert garde: %w", err)
		}
	}
	return nil
}

// GetPlanning returns the planning with its gardes, or nil if absent.
func (s *Store) GetPlanning(ctx context.Context, id astreinte.PlanningID) (*astreinte.Planning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, scope_kind, service_id, secteur_id, debut, fin, statut,
		       gen_algorithm, gen_config_json, gen_equity_score, gen_at,
		       created_by, submitted_by, approved_by, rejected_by, rejection_reason, published_by,
		       version, created_at, updated_at
		FROM plannings WHERE id = ?
	`
	p, err := scanPlanning(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.loadGardes(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) loadGardes(ctx context.Context, p *astreinte.Planning) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, creneau, slot, user_id, type, statut, remplace_par, created_at, updated_at
		FROM gardes WHERE planning_id = ?
		ORDER BY date ASC, creneau ASC, slot ASC, id ASC
	`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var g astreinte.Garde
		var date, createdAt, updatedAt string
		var remplacePar sql.NullString
		if err := rows.Scan(&g.ID, &date, &g.Creneau, &g.Slot, &g.UserID, &g.Type, &g.Status,
			&remplacePar, &createdAt, &updatedAt); err != nil {
			return err
		}
		g.Date, _ = astreinte.ParseDate(date)
		if remplacePar.Valid {
			v := astreinte.GardeID(remplacePar.String)
			g.RemplacePar = &v
		}
		g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		g.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		p.Gardes = append(p.Gardes, g)
	}
	return rows.Err()
}

// UpdatePlanning rewrites the planning and its gardes atomically under
// the version compare-and-swap.
func (s *Store) UpdatePlanning(ctx context.Context, p *astreinte.Planning) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var genAlgorithm, genConfig, genAt *string
	var genEquity *float64
	if p.Generation != nil {
		cfg, _ := json.Marshal(p.Generation.Config)
		a, c := p.Generation.Algorithm, string(cfg)
		at := p.Generation.GeneratedAt.Format(time.RFC3339)
		genAlgorithm, genConfig, genAt = &a, &c, &at
		genEquity = &p.Generation.EquityScore
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE plannings SET
			statut = ?,
			gen_algorithm = ?, gen_config_json = ?, gen_equity_score = ?, gen_at = ?,
			submitted_by = ?, approved_by = ?, rejected_by = ?, rejection_reason = ?, published_by = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`,
		p.Status,
		genAlgorithm, genConfig, genEquity, genAt,
		p.SubmittedBy, p.ApprovedBy, p.RejectedBy, p.RejectionReason, p.PublishedBy,
		p.UpdatedAt.Format(time.RFC3339),
		p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update planning: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM plannings WHERE id = ?", p.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return astreinte.ErrNotFound
		}
		return astreinte.ErrConcurrentModification
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM gardes WHERE planning_id = ?", p.ID); err != nil {
		return err
	}
	if err := s.insertGardes(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	p.Version++
	return nil
}

// ListPlannings returns matching plannings with their gardes, ordered by id.
func (s *Store) ListPlannings(ctx context.Context, f astreinte.PlanningFilter) ([]*astreinte.Planning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, scope_kind, service_id, secteur_id, debut, fin, statut,
		       gen_algorithm, gen_config_json, gen_equity_score, gen_at,
		       created_by, submitted_by, approved_by, rejected_by, rejection_reason, published_by,
		       version, created_at, updated_at
		FROM plannings WHERE 1 = 1
	`
	var args []any
	if f.Status != nil {
		query += " AND statut = ?"
		args = append(args, *f.Status)
	}
	if f.Scope != nil {
		query += " AND scope_kind = ?"
		args = append(args, f.Scope.Kind)
		if f.Scope.Kind == astreinte.ScopeSecteur {
			query += " AND secteur_id = ?"
			args = append(args, f.Scope.SecteurID)
		} else {
			query += " AND service_id = ?"
			args = append(args, f.Scope.ServiceID)
		}
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plannings []*astreinte.Planning
	for rows.Next() {
		p, err := scanPlanning(rows)
		if err != nil {
			return nil, err
		}
		plannings = append(plannings, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range plannings {
		if err := s.loadGardes(ctx, p); err != nil {
			return nil, err
		}
	}
	return plannings, nil
}

// UserGardesOn returns the user's active gardes on the date across all
// plannings.
func (s *Store) UserGardesOn(ctx context.Context, user org.UserID, d astreinte.Date) ([]astreinte.Garde, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, date, creneau, slot, user_id, type, statut, remplace_par, created_at, updated_at
		FROM gardes
		WHERE user_id = ? AND date = ? AND statut IN ('planifie', 'confirme')
		ORDER BY id ASC
	`, user, d.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gardes []astreinte.Garde
	for rows.Next() {
		var g astreinte.Garde
		var date, createdAt, updatedAt string
		var remplacePar sql.NullString
		if err := rows.Scan(&g.ID, &date, &g.Creneau, &g.Slot, &g.UserID, &g.Type, &g.Status,
			&remplacePar, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		g.Date, _ = astreinte.ParseDate(date)
		if remplacePar.Valid {
			v := astreinte.GardeID(remplacePar.String)
			g.RemplacePar = &v
		}
		g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		g.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		gardes = append(gardes, g)
	}
	return gardes, rows.Err()
}

// GardeCounts returns per-user covering garde counts for published
// plannings of the scope up to the date.
func (s *Store) GardeCounts(ctx context.Context, scope astreinte.Scope, upTo astreinte.Date) (map[org.UserID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT g.user_id, COUNT(*)
		FROM gardes g
		JOIN plannings p ON p.id = g.planning_id
		WHERE g.scope_key = ? AND p.statut = 'publie'
		  AND g.statut != 'remplace' AND g.date <= ?
		GROUP BY g.user_id
	`, scopeKey(scope), upTo.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[org.UserID]int)
	for rows.Next() {
		var uid org.UserID
		var n int
		if err := rows.Scan(&uid, &n); err != nil {
			return nil, err
		}
		counts[uid] = n
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlanning(row rowScanner) (*astreinte.Planning, error) {
	var p astreinte.Planning
	var serviceID, secteurID, genAlgorithm, genConfig, genAt sql.NullString
	var genEquity sql.NullFloat64
	var debut, fin, createdAt, updatedAt string

	err := row.Scan(
		&p.ID, &p.Scope.Kind, &serviceID, &secteurID, &debut, &fin, &p.Status,
		&genAlgorithm, &genConfig, &genEquity, &genAt,
		&p.CreatedBy, &p.SubmittedBy, &p.ApprovedBy, &p.RejectedBy, &p.RejectionReason, &p.PublishedBy,
		&p.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Scope.ServiceID = org.ServiceID(serviceID.String)
	p.Scope.SecteurID = org.SecteurID(secteurID.String)
	p.Period.Debut, _ = astreinte.ParseDate(debut)
	p.Period.Fin, _ = astreinte.ParseDate(fin)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	if genAlgorithm.Valid {
		meta := astreinte.GenerationMeta{
			Algorithm:   genAlgorithm.String,
			EquityScore: genEquity.Float64,
		}
		if genConfig.Valid && genConfig.String != "" {
			json.Unmarshal([]byte(genConfig.String), &meta.Config)
		}
		if genAt.Valid {
			meta.GeneratedAt, _ = time.Parse(time.RFC3339, genAt.String)
		}
		p.Generation = &meta
	}
	return &p, nil
}

// =============================================================================
// HOLIDAY CALENDAR (astreinte.HolidayStore interface)
// =============================================================================

// SaveHoliday inserts or updates a holiday.
func (s *Store) SaveHoliday(ctx context.Context, h astreinte.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, date, nom, type, actif)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			nom = excluded.nom,
			type = excluded.type,
			actif = excluded.actif
	`
	_, err := s.db.ExecContext(ctx, query, h.ID, h.Date.String(), h.Nom, h.Type, h.Actif)
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// ListHolidays returns all holidays ordered by date.
func (s *Store) ListHolidays(ctx context.Context) ([]astreinte.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryHolidays(ctx,
		"SELECT id, date, nom, type, actif FROM holidays ORDER BY date ASC")
}

// IsHoliday reports whether the date is an active holiday.
func (s *Store) IsHoliday(d astreinte.Date) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM holidays WHERE date = ? AND actif = TRUE",
		d.String(),
	).Scan(&count)
	if err != nil {
		return false
	}
	return count > 0
}

// Holidays returns the active holidays of the year, ordered by date.
func (s *Store) Holidays(year int) []astreinte.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holidays, err := s.queryHolidays(context.Background(),
		"SELECT id, date, nom, type, actif FROM holidays WHERE actif = TRUE AND strftime('%Y', date) = ? ORDER BY date ASC",
		fmt.Sprintf("%d", year))
	if err != nil {
		return nil
	}
	return holidays
}

func (s *Store) queryHolidays(ctx context.Context, query string, args ...any) ([]astreinte.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []astreinte.Holiday
	for rows.Next() {
		var h astreinte.Holiday
		var date string
		if err := rows.Scan(&h.ID, &date, &h.Nom, &h.Type, &h.Actif); err != nil {
			return nil, err
		}
		h.Date, _ = astreinte.ParseDate(date)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// UNAVAILABILITY STORE (indispo.Store interface)
// =============================================================================

// Save inserts a new declaration at version 1.
func (s *Store) Save(ctx context.Context, i *indispo.Indisponibilite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO indisponibilites
		(id, user_id, debut, fin, motif, description, priorite, statut,
		 decided_by, refusal_reason, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		i.ID, i.UserID, i.Period.Debut.String(), i.Period.Fin.String(),
		i.Motif, i.Description, i.Priorite, i.Status,
		i.DecidedBy, i.RefusalReason, 1,
		i.CreatedAt.Format(time.RFC3339), i.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert indisponibilite: %w", err)
	}
	i.Version = 1
	return nil
}

// Get returns a declaration by ID, or nil if absent.
func (s *Store) Get(ctx context.Context, id indispo.IndispoID) (*indispo.Indisponibilite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, debut, fin, motif, description, priorite, statut,
		       decided_by, refusal_reason, version, created_at, updated_at
		FROM indisponibilites WHERE id = ?
	`, id)

	ind, err := scanIndispo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ind, nil
}

// Update rewrites a declaration under the version compare-and-swap.
func (s *Store) Update(ctx context.Context, i *indispo.Indisponibilite) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE indisponibilites SET
			debut = ?, fin = ?, motif = ?, description = ?, priorite = ?, statut = ?,
			decided_by = ?, refusal_reason = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?
	`,
		i.Period.Debut.String(), i.Period.Fin.String(), i.Motif, i.Description, i.Priorite, i.Status,
		i.DecidedBy, i.RefusalReason,
		i.UpdatedAt.Format(time.RFC3339),
		i.ID, i.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update indisponibilite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM indisponibilites WHERE id = ?", i.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return astreinte.ErrNotFound
		}
		return astreinte.ErrConcurrentModification
	}
	i.Version++
	return nil
}

// List returns matching declarations ordered by id.
func (s *Store) List(ctx context.Context, f indispo.Filter) ([]*indispo.Indisponibilite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, user_id, debut, fin, motif, description, priorite, statut,
		       decided_by, refusal_reason, version, created_at, updated_at
		FROM indisponibilites WHERE 1 = 1
	`
	var args []any
	if f.UserID != nil {
		query += " AND user_id = ?"
		args = append(args, *f.UserID)
	}
	if f.Status != nil {
		query += " AND statut = ?"
		args = append(args, *f.Status)
	}
	query += " ORDER BY id ASC"

	return s.queryIndispos(ctx, query, args...)
}

// ApprovedOn returns the approved declarations covering the date for
// the user.
func (s *Store) ApprovedOn(ctx context.Context, user org.UserID, d astreinte.Date) ([]*indispo.Indisponibilite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryIndispos(ctx, `
		SELECT id, user_id, debut, fin, motif, description, priorite, statut,
		       decided_by, refusal_reason, version, created_at, updated_at
		FROM indisponibilites
		WHERE user_id = ? AND statut = 'approuve' AND debut <= ? AND fin >= ?
		ORDER BY id ASC
	`, user, d.String(), d.String())
}

func (s *Store) queryIndispos(ctx context.Context, query string, args ...any) ([]*indispo.Indisponibilite, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*indispo.Indisponibilite
	for rows.Next() {
		ind, err := scanIndispo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

func scanIndispo(row rowScanner) (*indispo.Indisponibilite, error) {
	var i indispo.Indisponibilite
	var debut, fin, createdAt, updatedAt string

	err := row.Scan(
		&i.ID, &i.UserID, &debut, &fin, &i.Motif, &i.Description, &i.Priorite, &i.Status,
		&i.DecidedBy, &i.RefusalReason, &i.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	i.Period.Debut, _ = astreinte.ParseDate(debut)
	i.Period.Fin, _ = astreinte.ParseDate(fin)
	i.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	i.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &i, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"gardes", "plannings", "indisponibilites", "holidays",
		"service_collaborateurs", "users", "services", "secteurs", "sites",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
