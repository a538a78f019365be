package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joss/benchsim/internal/store"
)

// Run records one simulation attempt.
type Run struct {
	ID        string
	Folder    string
	Mode      string
	Testbench string
	Stage     string // last stage reached: plan, compile, simulate, dump, savefile, viewer
	Success   bool
	StartedAt time.Time
	Duration  time.Duration
}

// Runs is the run history table.
type Runs struct {
	db *sql.DB
}

var _ store.Table[Run] = (*Runs)(nil)

// Runs returns the run history.
func (s *Store) Runs() *Runs {
	return &Runs{db: s.db}
}

// Add records a run.
func (r *Runs) Add(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("%w: empty run id", store.ErrInvalidKey)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, folder, mode, testbench, stage, success, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Folder, run.Mode, run.Testbench, run.Stage, run.Success,
		run.StartedAt.UTC(), run.Duration.Milliseconds())
	return err
}

const runColumns = `id, folder, mode, testbench, stage, success, started_at, duration_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var ms int64
	if err := row.Scan(&run.ID, &run.Folder, &run.Mode, &run.Testbench, &run.Stage,
		&run.Success, &run.StartedAt, &ms); err != nil {
		return nil, err
	}
	run.Duration = time.Duration(ms) * time.Millisecond
	return &run, nil
}

// Get returns one run by id.
func (r *Runs) Get(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NewNotFoundError("run", id)
	}
	return run, err
}

// runFilterColumns are the fields a Filter may constrain.
var runFilterColumns = map[string]string{
	"folder":  "folder",
	"mode":    "mode",
	"success": "success",
	"stage":   "stage",
}

// List returns runs matching filter, newest first when OrderDesc is set.
func (r *Runs) List(ctx context.Context, f store.Filter) ([]*Run, error) {
	clause, args, err := f.WhereSQL(runFilterColumns)
	if err != nil {
		return nil, err
	}
	page, pageArgs := f.PageSQL("started_at")
	query := `SELECT ` + runColumns + ` FROM runs` + clause + page
	args = append(args, pageArgs...)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Count returns the number of runs matching filter.
func (r *Runs) Count(ctx context.Context, f store.Filter) (int, error) {
	clause, args, err := f.WhereSQL(runFilterColumns)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+clause, args...).Scan(&n)
	return n, err
}

// Clear deletes every recorded run.
func (r *Runs) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM runs`)
	return err
}
