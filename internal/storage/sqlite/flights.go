package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yegors/preflight/pkg/logger"
)

// createdAtLayout sorts lexicographically for UTC times
const createdAtLayout = "2006-01-02T15:04:05.000000Z07:00"

// ErrNotFound is returned when a flight does not exist or belongs to another user
var ErrNotFound = errors.New("flight not found")

// Flight is a saved route owned by one user
type Flight struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Departure string     `json:"departure"`
	Arrival   string     `json:"arrival"`
	Waypoints []string   `json:"waypoints"`
	PlannedAt *time.Time `json:"planned_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Airports returns departure, waypoints and arrival in flying order
func (f *Flight) Airports() []string {
	out := make([]string, 0, len(f.Waypoints)+2)
	out = append(out, f.Departure)
	out = append(out, f.Waypoints...)
	return append(out, f.Arrival)
}

// FlightStorage handles storage of saved flights
type FlightStorage struct {
	db     *sql.DB
	logger *logger.Logger
	now    func() time.Time
}

// NewFlightStorage creates the flights table if needed and returns the storage
func NewFlightStorage(db *sql.DB, log *logger.Logger) (*FlightStorage, error) {
	storage := &FlightStorage{
		db:     db,
		logger: log.Named("sqlite-flights"),
		now:    time.Now,
	}
	if err := storage.initDB(); err != nil {
		return nil, err
	}
	return storage, nil
}

// initDB initializes the database tables
func (s *FlightStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS flights (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			departure TEXT NOT NULL,
			arrival TEXT NOT NULL,
			waypoints TEXT NOT NULL DEFAULT '[]',
			planned_at TEXT,
			notes TEXT,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flights table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_flights_user_created ON flights(user_id, created_at)`)
	if err != nil {
		return fmt.Errorf("failed to create user_id index: %w", err)
	}
	return nil
}

// Create stores a new flight, assigning its ID and creation time
func (s *FlightStorage) Create(ctx context.Context, flight *Flight) error {
	flight.ID = uuid.NewString()
	flight.CreatedAt = s.now().UTC().Truncate(time.Microsecond)
	if flight.Waypoints == nil {
		flight.Waypoints = []string{}
	}

	waypoints, err := json.Marshal(flight.Waypoints)
	if err != nil {
		return fmt.Errorf("failed to encode waypoints: %w", err)
	}

	var plannedAt sql.NullString
	if flight.PlannedAt != nil {
		plannedAt = sql.NullString{String: flight.PlannedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flights (id, user_id, departure, arrival, waypoints, planned_at, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		flight.ID,
		flight.UserID,
		flight.Departure,
		flight.Arrival,
		string(waypoints),
		plannedAt,
		flight.Notes,
		flight.CreatedAt.Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert flight: %w", err)
	}

	s.logger.Info("Flight saved",
		logger.String("id", flight.ID),
		logger.String("user_id", flight.UserID),
		logger.String("departure", flight.Departure),
		logger.String("arrival", flight.Arrival))
	return nil
}

const flightColumns = `id, user_id, departure, arrival, waypoints, planned_at, notes, created_at`

// ListByUser returns the flights of one user, newest first
func (s *FlightStorage) ListByUser(ctx context.Context, userID string) ([]*Flight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+flightColumns+` FROM flights WHERE user_id = ? ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	flights := []*Flight{}
	for rows.Next() {
		flight, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, flight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate flights: %w", err)
	}
	return flights, nil
}

// Get returns one flight if it belongs to userID
func (s *FlightStorage) Get(ctx context.Context, userID, id string) (*Flight, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+flightColumns+` FROM flights WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	flight, err := scanFlight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return flight, err
}

// Delete removes one flight if it belongs to userID
func (s *FlightStorage) Delete(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM flights WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete flight: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Info("Flight deleted",
		logger.String("id", id),
		logger.String("user_id", userID))
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlight(row scanner) (*Flight, error) {
	var flight Flight
	var waypoints, createdAt string
	var plannedAt, notes sql.NullString

	if err := row.Scan(
		&flight.ID,
		&flight.UserID,
		&flight.Departure,
		&flight.Arrival,
		&waypoints,
		&plannedAt,
		&notes,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan flight: %w", err)
	}

	if err := json.Unmarshal([]byte(waypoints), &flight.Waypoints); err != nil {
		return nil, fmt.Errorf("failed to decode waypoints: %w", err)
	}

	var err error
	flight.CreatedAt, err = time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}

	if plannedAt.Valid {
		t, err := time.Parse(time.RFC3339, plannedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse planned_at: %w", err)
		}
		flight.PlannedAt = &t
	}
	if notes.Valid {
		flight.Notes = notes.String
	}
	return &flight, nil
}
