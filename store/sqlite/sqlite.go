/*
Package sqlite provides the SQLite-backed implementation of the billing
and property storage interfaces.

PURPOSE:
  Implements billing.ObligationStore, ReadingStore, PaymentStore,
  FinanceStore, NotificationStore, and property.Store on one database.
  The same patterns apply to PostgreSQL; only dialect details differ.

KEY TABLES:
  obligations:    One row per (tenant, month); derived money fields stored
                  for query efficiency, guarded by a version column
  readings:       Electricity meter readings with merge bookkeeping
  payments:       Append-only payment events
  finance:        Append-only income/expense records
  notifications:  Admin-facing events with read tracking
  admins/plots/rooms/tenants: The ownership hierarchy

UNIQUENESS:
  idx_obligations_tenant_month enforces at most one obligation per
  (tenant, month); violations surface as billing.ErrObligationExists.

OPTIMISTIC LOCKING:
  UpdateObligation executes UPDATE ... WHERE id = ? AND version = ?.
  Zero rows affected means another writer got there first and the caller
  receives billing.ErrConcurrentModification.

MONEY:
  All amounts are stored as decimal strings, never floats.

WAL MODE:
  The database opens with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/property.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/store.go: Interface definitions
  - property/store.go: Hierarchy interface
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
	"github.com/shopspring/decimal"

	"github.com/warp/property-engine/billing"
	"github.com/warp/property-engine/property"
)

// Store implements all storage interfaces on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
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

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS admins (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plots (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		address TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_plots_owner ON plots(owner_id);

	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		plot_id TEXT NOT NULL,
		number TEXT NOT NULL,
		room_type TEXT,
		rent TEXT NOT NULL,
		deposit TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rooms_plot ON rooms(plot_id);

	CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mobile TEXT,
		email TEXT,
		room_id TEXT NOT NULL,
		plot_id TEXT NOT NULL,
		agreement_start TEXT NOT NULL,
		agreement_end TEXT NOT NULL,
		agreement_rent TEXT NOT NULL,
		agreement_deposit TEXT NOT NULL,
		monthly_rent TEXT NOT NULL,
		document_url TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tenants_plot ON tenants(plot_id);
	CREATE INDEX IF NOT EXISTS idx_tenants_room ON tenants(room_id);

	CREATE TABLE IF NOT EXISTS obligations (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		plot_id TEXT NOT NULL,
		month TEXT NOT NULL,
		due_date TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		base_rent TEXT NOT NULL,
		electricity TEXT NOT NULL,
		previous_dues TEXT NOT NULL,
		other_charges_json TEXT,
		total TEXT NOT NULL,
		paid TEXT NOT NULL,
		pending TEXT NOT NULL,
		status TEXT NOT NULL,
		payment_date TEXT,
		payment_method TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_obligations_tenant_month
		ON obligations(tenant_id, month);
	CREATE INDEX IF NOT EXISTS idx_obligations_status_due
		ON obligations(status, due_date);
	CREATE INDEX IF NOT EXISTS idx_obligations_room ON obligations(room_id);

	CREATE TABLE IF NOT EXISTS readings (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		plot_id TEXT NOT NULL,
		tenant_id TEXT,
		current_reading TEXT NOT NULL,
		previous_reading TEXT NOT NULL,
		units TEXT NOT NULL,
		rate_per_unit TEXT NOT NULL,
		total TEXT NOT NULL,
		reading_date TEXT NOT NULL,
		added_to_rent INTEGER NOT NULL DEFAULT 0,
		obligation_id TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_readings_room_created
		ON readings(room_id, created_at);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		pay_date TEXT NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_tenant ON payments(tenant_id, created_at);

	CREATE TABLE IF NOT EXISTS finance (
		id TEXT PRIMARY KEY,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT,
		entry_date TEXT NOT NULL,
		category TEXT NOT NULL,
		plot_id TEXT NOT NULL,
		room_id TEXT,
		tenant_id TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_finance_plot ON finance(plot_id, created_at);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		notif_type TEXT NOT NULL,
		message TEXT NOT NULL,
		recipient_id TEXT NOT NULL,
		notif_date TEXT NOT NULL,
		read INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_recipient
		ON notifications(recipient_id, notif_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// OBLIGATIONS (billing.ObligationStore)
// =============================================================================

const obligationCols = `id, tenant_id, room_id, plot_id, month, due_date, generated_at,
	base_rent, electricity, previous_dues, other_charges_json,
	total, paid, pending, status, payment_date, payment_method, version, created_at`

func (s *Store) InsertObligation(ctx context.Context, o *billing.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chargesJSON, err := marshalCharges(o.OtherCharges)
	if err != nil {
		return err
	}

	o.Version = 1
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO obligations (`+obligationCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.TenantID, o.RoomID, o.PlotID, o.Month.String(),
		o.DueDate.String(), o.GeneratedAt.String(),
		o.BaseRent.String(), o.Electricity.String(), o.PreviousDues.String(), chargesJSON,
		o.Total.String(), o.Paid.String(), o.Pending.String(), o.Status,
		nullDate(o.PaymentDate), nullString(string(o.PaymentMethod)),
		o.Version, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return billing.ErrObligationExists
		}
		return fmt.Errorf("failed to insert obligation: %w", err)
	}
	return nil
}

func (s *Store) UpdateObligation(ctx context.Context, o *billing.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chargesJSON, err := marshalCharges(o.OtherCharges)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE obligations
		SET due_date = ?, base_rent = ?, electricity = ?, previous_dues = ?,
		    other_charges_json = ?, total = ?, paid = ?, pending = ?, status = ?,
		    payment_date = ?, payment_method = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		o.DueDate.String(), o.BaseRent.String(), o.Electricity.String(), o.PreviousDues.String(),
		chargesJSON, o.Total.String(), o.Paid.String(), o.Pending.String(), o.Status,
		nullDate(o.PaymentDate), nullString(string(o.PaymentMethod)),
		o.ID, o.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update obligation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the row is gone or another writer bumped the version.
		var exists int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM obligations WHERE id = ?", o.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return billing.ErrObligationNotFound
		}
		return billing.ErrConcurrentModification
	}

	o.Version++
	return nil
}

func (s *Store) GetObligation(ctx context.Context, id billing.ObligationID) (*billing.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs, err := s.queryObligations(ctx,
		"SELECT "+obligationCols+" FROM obligations WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, billing.ErrObligationNotFound
	}
	return obs[0], nil
}

func (s *Store) GetObligationForMonth(ctx context.Context, tenantID billing.TenantID, m billing.Month) (*billing.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obs, err := s.queryObligations(ctx,
		"SELECT "+obligationCols+" FROM obligations WHERE tenant_id = ? AND month = ?",
		tenantID, m.String())
	if err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, billing.ErrObligationNotFound
	}
	return obs[0], nil
}

func (s *Store) ListObligations(ctx context.Context, f billing.ObligationFilter) ([]*billing.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + obligationCols + " FROM obligations WHERE 1=1"
	var args []any

	if len(f.TenantIDs) > 0 {
		query += " AND tenant_id IN (" + placeholders(len(f.TenantIDs)) + ")"
		for _, id := range f.TenantIDs {
			args = append(args, id)
		}
	}
	if len(f.RoomIDs) > 0 {
		query += " AND room_id IN (" + placeholders(len(f.RoomIDs)) + ")"
		for _, id := range f.RoomIDs {
			args = append(args, id)
		}
	}
	if len(f.PlotIDs) > 0 {
		query += " AND plot_id IN (" + placeholders(len(f.PlotIDs)) + ")"
		for _, id := range f.PlotIDs {
			args = append(args, id)
		}
	}
	if len(f.Statuses) > 0 {
		query += " AND status IN (" + placeholders(len(f.Statuses)) + ")"
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}
	if f.DueFrom != nil {
		query += " AND due_date >= ?"
		args = append(args, f.DueFrom.String())
	}
	if f.DueTo != nil {
		query += " AND due_date <= ?"
		args = append(args, f.DueTo.String())
	}

	query += " ORDER BY due_date DESC"
	return s.queryObligations(ctx, query, args...)
}

func (s *Store) queryObligations(ctx context.Context, query string, args ...any) ([]*billing.Obligation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query obligations: %w", err)
	}
	defer rows.Close()

	var result []*billing.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func scanObligation(rows *sql.Rows) (*billing.Obligation, error) {
	var (
		o             billing.Obligation
		month         string
		dueDate       string
		generatedAt   string
		baseRent      string
		electricity   string
		previousDues  string
		chargesJSON   sql.NullString
		total         string
		paid          string
		pending       string
		paymentDate   sql.NullString
		paymentMethod sql.NullString
		createdAt     string
	)

	err := rows.Scan(
		&o.ID, &o.TenantID, &o.RoomID, &o.PlotID, &month, &dueDate, &generatedAt,
		&baseRent, &electricity, &previousDues, &chargesJSON,
		&total, &paid, &pending, &o.Status, &paymentDate, &paymentMethod,
		&o.Version, &createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan obligation: %w", err)
	}

	if o.Month, err = billing.ParseMonth(month); err != nil {
		return nil, err
	}
	if o.DueDate, err = billing.ParseDate(dueDate); err != nil {
		return nil, err
	}
	if o.GeneratedAt, err = billing.ParseDate(generatedAt); err != nil {
		return nil, err
	}

	o.BaseRent = parseDecimal(baseRent)
	o.Electricity = parseDecimal(electricity)
	o.PreviousDues = parseDecimal(previousDues)
	o.Total = parseDecimal(total)
	o.Paid = parseDecimal(paid)
	o.Pending = parseDecimal(pending)

	if chargesJSON.Valid && chargesJSON.String != "" {
		if err := unmarshalCharges(chargesJSON.String, &o.OtherCharges); err != nil {
			return nil, err
		}
	}
	if paymentDate.Valid && paymentDate.String != "" {
		if o.PaymentDate, err = billing.ParseDate(paymentDate.String); err != nil {
			return nil, err
		}
	}
	o.PaymentMethod = billing.PaymentMethod(paymentMethod.String)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		o.CreatedAt = t
	}
	return &o, nil
}

// =============================================================================
// READINGS (billing.ReadingStore)
// =============================================================================

const readingCols = `id, room_id, plot_id, tenant_id, current_reading, previous_reading,
	units, rate_per_unit, total, reading_date, added_to_rent, obligation_id, created_at`

func (s *Store) InsertReading(ctx context.Context, r *billing.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (`+readingCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RoomID, r.PlotID, nullString(string(r.TenantID)),
		r.Current.String(), r.Previous.String(), r.Units.String(),
		r.RatePerUnit.String(), r.Total.String(), r.ReadingDate.String(),
		boolToInt(r.AddedToRent), nullString(string(r.ObligationID)),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

func (s *Store) UpdateReading(ctx context.Context, r *billing.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE readings SET added_to_rent = ?, obligation_id = ? WHERE id = ?`,
		boolToInt(r.AddedToRent), nullString(string(r.ObligationID)), r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reading: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return billing.ErrReadingNotFound
	}
	return nil
}

func (s *Store) GetReading(ctx context.Context, id billing.ReadingID) (*billing.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings, err := s.queryReadings(ctx,
		"SELECT "+readingCols+" FROM readings WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, billing.ErrReadingNotFound
	}
	return readings[0], nil
}

func (s *Store) LatestReading(ctx context.Context, roomID billing.RoomID) (*billing.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	readings, err := s.queryReadings(ctx,
		"SELECT "+readingCols+" FROM readings WHERE room_id = ? ORDER BY created_at DESC LIMIT 1",
		roomID)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return readings[0], nil
}

func (s *Store) ListReadings(ctx context.Context, roomID billing.RoomID) ([]*billing.Reading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryReadings(ctx,
		"SELECT "+readingCols+" FROM readings WHERE room_id = ? ORDER BY created_at DESC",
		roomID)
}

func (s *Store) queryReadings(ctx context.Context, query string, args ...any) ([]*billing.Reading, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var result []*billing.Reading
	for rows.Next() {
		var (
			r            billing.Reading
			tenantID     sql.NullString
			current      string
			previous     string
			units        string
			rate         string
			total        string
			readingDate  string
			addedToRent  int
			obligationID sql.NullString
			createdAt    string
		)
		if err := rows.Scan(
			&r.ID, &r.RoomID, &r.PlotID, &tenantID, &current, &previous,
			&units, &rate, &total, &readingDate, &addedToRent, &obligationID, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}

		r.TenantID = billing.TenantID(tenantID.String)
		r.Current = parseDecimal(current)
		r.Previous = parseDecimal(previous)
		r.Units = parseDecimal(units)
		r.RatePerUnit = parseDecimal(rate)
		r.Total = parseDecimal(total)
		if r.ReadingDate, err = billing.ParseDate(readingDate); err != nil {
			return nil, err
		}
		r.AddedToRent = addedToRent != 0
		r.ObligationID = billing.ObligationID(obligationID.String)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}

// =============================================================================
// PAYMENTS (billing.PaymentStore)
// =============================================================================

func (s *Store) AppendPayment(ctx context.Context, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, tenant_id, amount, pay_date, method, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenantID, p.Amount.String(), p.Date.String(), p.Method, p.Status,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, f billing.PaymentFilter) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, tenant_id, amount, pay_date, method, status, created_at FROM payments WHERE 1=1"
	var args []any

	if len(f.TenantIDs) > 0 {
		query += " AND tenant_id IN (" + placeholders(len(f.TenantIDs)) + ")"
		for _, id := range f.TenantIDs {
			args = append(args, id)
		}
	}
	if len(f.Statuses) > 0 {
		query += " AND status IN (" + placeholders(len(f.Statuses)) + ")"
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var result []billing.Payment
	for rows.Next() {
		var (
			p         billing.Payment
			amount    string
			payDate   string
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.TenantID, &amount, &payDate, &p.Method, &p.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = parseDecimal(amount)
		if p.Date, err = billing.ParseDate(payDate); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			p.CreatedAt = t
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// FINANCE (billing.FinanceStore)
// =============================================================================

func (s *Store) AppendFinance(ctx context.Context, e billing.FinanceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO finance (id, entry_type, amount, description, entry_date, category,
			plot_id, room_id, tenant_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Type, e.Amount.String(), e.Description, e.Date.String(), e.Category,
		e.PlotID, nullString(string(e.RoomID)), nullString(string(e.TenantID)),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append finance entry: %w", err)
	}
	return nil
}

func (s *Store) ListFinance(ctx context.Context, f billing.FinanceFilter) ([]billing.FinanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, entry_type, amount, description, entry_date, category,
		plot_id, room_id, tenant_id, created_at FROM finance WHERE 1=1`
	var args []any

	if len(f.Types) > 0 {
		query += " AND entry_type IN (" + placeholders(len(f.Types)) + ")"
		for _, t := range f.Types {
			args = append(args, t)
		}
	}
	if len(f.PlotIDs) > 0 {
		query += " AND plot_id IN (" + placeholders(len(f.PlotIDs)) + ")"
		for _, id := range f.PlotIDs {
			args = append(args, id)
		}
	}
	if len(f.TenantIDs) > 0 {
		query += " AND tenant_id IN (" + placeholders(len(f.TenantIDs)) + ")"
		for _, id := range f.TenantIDs {
			args = append(args, id)
		}
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query finance entries: %w", err)
	}
	defer rows.Close()

	var result []billing.FinanceEntry
	for rows.Next() {
		var (
			e           billing.FinanceEntry
			amount      string
			description sql.NullString
			entryDate   string
			roomID      sql.NullString
			tenantID    sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&e.ID, &e.Type, &amount, &description, &entryDate,
			&e.Category, &e.PlotID, &roomID, &tenantID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan finance entry: %w", err)
		}
		e.Amount = parseDecimal(amount)
		e.Description = description.String
		if e.Date, err = billing.ParseDate(entryDate); err != nil {
			return nil, err
		}
		e.RoomID = billing.RoomID(roomID.String)
		e.TenantID = billing.TenantID(tenantID.String)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// =============================================================================
// NOTIFICATIONS (billing.NotificationStore)
// =============================================================================

func (s *Store) AppendNotification(ctx context.Context, n billing.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, notif_type, message, recipient_id, notif_date, read)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Type, n.Message, n.RecipientID,
		n.Date.UTC().Format(time.RFC3339Nano), boolToInt(n.Read),
	)
	if err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, recipient billing.AdminID, read *bool, limit int) ([]billing.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, notif_type, message, recipient_id, notif_date, read FROM notifications WHERE recipient_id = ?"
	args := []any{recipient}
	if read != nil {
		query += " AND read = ?"
		args = append(args, boolToInt(*read))
	}
	query += " ORDER BY notif_date DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var result []billing.Notification
	for rows.Next() {
		var (
			n         billing.Notification
			notifDate string
			readInt   int
		)
		if err := rows.Scan(&n.ID, &n.Type, &n.Message, &n.RecipientID, &notifDate, &readInt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, notifDate); err == nil {
			n.Date = t
		}
		n.Read = readInt != 0
		result = append(result, n)
	}
	return result, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id string, recipient billing.AdminID, read bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = ? WHERE id = ? AND recipient_id = ?",
		boolToInt(read), id, recipient,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return billing.ErrNotificationNotFound
	}
	return nil
}

// =============================================================================
// PROPERTY HIERARCHY (property.Store)
// =============================================================================

func (s *Store) SaveAdmin(ctx context.Context, a property.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, name, email, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		a.ID, a.Name, a.Email, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetAdmin(ctx context.Context, id billing.AdminID) (*property.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		a         property.Admin
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, created_at FROM admins WHERE id = ?", id).
		Scan(&a.ID, &a.Name, &a.Email, &createdAt)
	if err == sql.ErrNoRows {
		return nil, billing.ErrNotAuthorized
	}
	if err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		a.CreatedAt = t
	}
	return &a, nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]property.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email, created_at FROM admins")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []property.Admin
	for rows.Next() {
		var (
			a         property.Admin
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &createdAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			a.CreatedAt = t
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) SavePlot(ctx context.Context, p property.Plot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plots (id, owner_id, name, address, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, address = excluded.address`,
		p.ID, p.OwnerID, p.Name, p.Address, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetPlot(ctx context.Context, id billing.PlotID) (*property.Plot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		p         property.Plot
		address   sql.NullString
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, address, created_at FROM plots WHERE id = ?", id).
		Scan(&p.ID, &p.OwnerID, &p.Name, &address, &createdAt)
	if err == sql.ErrNoRows {
		return nil, billing.ErrPlotNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Address = address.String
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = t
	}
	return &p, nil
}

func (s *Store) ListPlots(ctx context.Context, owner billing.AdminID) ([]property.Plot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, name, address, created_at FROM plots WHERE owner_id = ?", owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []property.Plot
	for rows.Next() {
		var (
			p         property.Plot
			address   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &address, &createdAt); err != nil {
			return nil, err
		}
		p.Address = address.String
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			p.CreatedAt = t
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) SaveRoom(ctx context.Context, r property.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, plot_id, number, room_type, rent, deposit, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET number = excluded.number, room_type = excluded.room_type,
			rent = excluded.rent, deposit = excluded.deposit, status = excluded.status`,
		r.ID, r.PlotID, r.Number, r.Type, r.Rent.String(), r.Deposit.String(), r.Status,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetRoom(ctx context.Context, id billing.RoomID) (*property.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms, err := s.queryRooms(ctx,
		"SELECT id, plot_id, number, room_type, rent, deposit, status, created_at FROM rooms WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, billing.ErrRoomNotFound
	}
	return &rooms[0], nil
}

func (s *Store) ListRooms(ctx context.Context, plotIDs []billing.PlotID) ([]property.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(plotIDs) == 0 {
		return nil, nil
	}
	query := "SELECT id, plot_id, number, room_type, rent, deposit, status, created_at FROM rooms WHERE plot_id IN (" +
		placeholders(len(plotIDs)) + ")"
	var args []any
	for _, id := range plotIDs {
		args = append(args, id)
	}
	return s.queryRooms(ctx, query, args...)
}

func (s *Store) queryRooms(ctx context.Context, query string, args ...any) ([]property.Room, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []property.Room
	for rows.Next() {
		var (
			r         property.Room
			roomType  sql.NullString
			rent      string
			deposit   string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.PlotID, &r.Number, &roomType, &rent, &deposit, &r.Status, &createdAt); err != nil {
			return nil, err
		}
		r.Type = roomType.String
		r.Rent = parseDecimal(rent)
		r.Deposit = parseDecimal(deposit)
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) SaveTenant(ctx context.Context, t property.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, mobile, email, room_id, plot_id,
			agreement_start, agreement_end, agreement_rent, agreement_deposit,
			monthly_rent, document_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, mobile = excluded.mobile,
			email = excluded.email, room_id = excluded.room_id, plot_id = excluded.plot_id,
			agreement_start = excluded.agreement_start, agreement_end = excluded.agreement_end,
			agreement_rent = excluded.agreement_rent, agreement_deposit = excluded.agreement_deposit,
			monthly_rent = excluded.monthly_rent, document_url = excluded.document_url`,
		t.ID, t.Name, t.Mobile, t.Email, t.RoomID, t.PlotID,
		t.Agreement.Start.String(), t.Agreement.End.String(),
		t.Agreement.Rent.String(), t.Agreement.Deposit.String(),
		t.MonthlyRent.String(), t.DocumentURL,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetTenant(ctx context.Context, id billing.TenantID) (*property.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenants, err := s.queryTenants(ctx, tenantSelect+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, billing.ErrTenantNotFound
	}
	return &tenants[0], nil
}

func (s *Store) GetTenantByRoom(ctx context.Context, roomID billing.RoomID) (*property.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenants, err := s.queryTenants(ctx, tenantSelect+" WHERE room_id = ?", roomID)
	if err != nil {
		return nil, err
	}
	if len(tenants) == 0 {
		return nil, billing.ErrTenantNotFound
	}
	return &tenants[0], nil
}

func (s *Store) ListTenants(ctx context.Context, plotIDs []billing.PlotID) ([]property.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(plotIDs) == 0 {
		return nil, nil
	}
	query := tenantSelect + " WHERE plot_id IN (" + placeholders(len(plotIDs)) + ")"
	var args []any
	for _, id := range plotIDs {
		args = append(args, id)
	}
	return s.queryTenants(ctx, query, args...)
}

const tenantSelect = `SELECT id, name, mobile, email, room_id, plot_id,
	agreement_start, agreement_end, agreement_rent, agreement_deposit,
	monthly_rent, document_url, created_at FROM tenants`

func (s *Store) queryTenants(ctx context.Context, query string, args ...any) ([]property.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []property.Tenant
	for rows.Next() {
		var (
			t           property.Tenant
			mobile      sql.NullString
			email       sql.NullString
			start       string
			end         string
			rent        string
			deposit     string
			monthlyRent string
			documentURL sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&t.ID, &t.Name, &mobile, &email, &t.RoomID, &t.PlotID,
			&start, &end, &rent, &deposit, &monthlyRent, &documentURL, &createdAt); err != nil {
			return nil, err
		}
		t.Mobile = mobile.String
		t.Email = email.String
		if t.Agreement.Start, err = billing.ParseDate(start); err != nil {
			return nil, err
		}
		if t.Agreement.End, err = billing.ParseDate(end); err != nil {
			return nil, err
		}
		t.Agreement.Rent = parseDecimal(rent)
		t.Agreement.Deposit = parseDecimal(deposit)
		t.MonthlyRent = parseDecimal(monthlyRent)
		t.DocumentURL = documentURL.String
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			t.CreatedAt = ts
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func marshalCharges(charges []billing.OtherCharge) (string, error) {
	if len(charges) == 0 {
		return "", nil
	}
	out := make([]chargeJSON, len(charges))
	for i, c := range charges {
		out[i] = chargeJSON{Description: c.Description, Amount: c.Amount.String()}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to marshal charges: %w", err)
	}
	return string(b), nil
}

func unmarshalCharges(raw string, into *[]billing.OtherCharge) error {
	var parsed []chargeJSON
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fmt.Errorf("failed to unmarshal charges: %w", err)
	}
	for _, c := range parsed {
		*into = append(*into, billing.OtherCharge{
			Description: c.Description,
			Amount:      parseDecimal(c.Amount),
		})
	}
	return nil
}

type chargeJSON struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(tp billing.TimePoint) sql.NullString {
	if tp.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: tp.String(), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
