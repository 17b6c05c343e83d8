package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/aepbridge/internal/bridge"
	"github.com/roach88/aepbridge/internal/dyn"
)

// Entry is one journaled call. Result is nil for failed calls; the error
// columns are empty for successful ones.
type Entry struct {
	ID           string
	Seq          int64
	Module       string
	Method       string
	Args         dyn.List
	Result       dyn.Value
	ErrorKind    string
	ErrorCode    string
	ErrorMessage string
	Duration     time.Duration
}

// Op returns "Module.method".
func (e Entry) Op() string {
	return e.Module + "." + e.Method
}

// Failed reports whether the call ended in a classified error.
func (e Entry) Failed() bool {
	return e.ErrorKind != ""
}

// FromCall converts a bridge call record.
func FromCall(rec bridge.CallRecord) Entry {
	e := Entry{
		Module:   rec.Module,
		Method:   rec.Method,
		Args:     rec.Args,
		Result:   rec.Result,
		Duration: rec.Duration,
	}
	if rec.Err != nil {
		e.Result = nil
		e.ErrorKind = string(rec.Err.Kind)
		e.ErrorCode = rec.Err.Code
		e.ErrorMessage = rec.Err.Message
	}
	return e
}

// Record appends e and returns it with its id and seq filled in. An id
// already present in the journal is ignored, making retries idempotent.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = j.ids.Generate()
	}
	if e.Seq == 0 {
		e.Seq = j.clock.Next()
	}
	args := e.Args
	if args == nil {
		args = dyn.List{}
	}
	argsJSON, err := dyn.MarshalCanonical(args)
	if err != nil {
		return Entry{}, fmt.Errorf("record %s: marshal args: %w", e.Op(), err)
	}
	var result sql.NullString
	if e.Result != nil {
		data, err := dyn.MarshalCanonical(e.Result)
		if err != nil {
			return Entry{}, fmt.Errorf("record %s: marshal result: %w", e.Op(), err)
		}
		result = sql.NullString{String: string(data), Valid: true}
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO calls
		(id, seq, module, method, args, result, error_kind, error_code, error_message, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Seq,
		e.Module,
		e.Method,
		string(argsJSON),
		result,
		e.ErrorKind,
		e.ErrorCode,
		e.ErrorMessage,
		e.Duration.Microseconds(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record %s: %w", e.Op(), err)
	}
	return e, nil
}

// Recorder adapts the journal to bridge.Recorder.
func (j *Journal) Recorder() bridge.Recorder {
	return recorder{j}
}

type recorder struct{ j *Journal }

func (r recorder) Record(ctx context.Context, rec bridge.CallRecord) error {
	_, err := r.j.Record(ctx, FromCall(rec))
	return err
}

// Filter narrows List and Count. Zero fields match everything.
type Filter struct {
	Module     string
	Method     string
	ErrorKind  string
	FailedOnly bool
	AfterSeq   int64
	// Limit caps List; zero means no limit.
	Limit int
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	if f.Module != "" {
		conds = append(conds, "module = ?")
		args = append(args, f.Module)
	}
	if f.Method != "" {
		conds = append(conds, "method = ?")
		args = append(args, f.Method)
	}
	if f.ErrorKind != "" {
		conds = append(conds, "error_kind = ?")
		args = append(args, f.ErrorKind)
	}
	if f.FailedOnly {
		conds = append(conds, "error_kind != ''")
	}
	if f.AfterSeq > 0 {
		conds = append(conds, "seq > ?")
		args = append(args, f.AfterSeq)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns matching entries ordered by seq. It never returns nil.
func (j *Journal) List(ctx context.Context, f Filter) ([]Entry, error) {
	where, args := f.where()
	query := `
		SELECT id, seq, module, method, args, result, error_kind, error_code, error_message, duration_us
		FROM calls` + where + `
		ORDER BY seq ASC, id COLLATE BINARY ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return entries, nil
}

// Count returns the number of matching entries. Limit is ignored.
func (j *Journal) Count(ctx context.Context, f Filter) (int, error) {
	where, args := f.where()
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	return n, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e          Entry
		argsJSON   string
		resultJSON sql.NullString
		durationUS int64
	)
	if err := rows.Scan(&e.ID, &e.Seq, &e.Module, &e.Method, &argsJSON, &resultJSON,
		&e.ErrorKind, &e.ErrorCode, &e.ErrorMessage, &durationUS); err != nil {
		return Entry{}, fmt.Errorf("scan call: %w", err)
	}
	if err := e.Args.UnmarshalJSON([]byte(argsJSON)); err != nil {
		return Entry{}, fmt.Errorf("call %s: unmarshal args: %w", e.ID, err)
	}
	if resultJSON.Valid {
		v, err := dyn.UnmarshalValue([]byte(resultJSON.String))
		if err != nil {
			return Entry{}, fmt.Errorf("call %s: unmarshal result: %w", e.ID, err)
		}
		e.Result = v
	}
	e.Duration = time.Duration(durationUS) * time.Microsecond
	return e, nil
}
