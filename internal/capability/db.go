package capability

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"codenerd/internal/evaluator"
	"codenerd/internal/value"
)

// DBRegistry owns *sql.DB handles behind opaque Native values, the same
// handle-indirection spec.md §3 uses for "foreign resources" — Value never
// embeds a live connection, only a (TypeID, Handle) pair the registry
// resolves. A mutex guards the map the way the teacher's store package
// guards its shared *sql.DB (see migrations.go's RunMigrations callers).
type DBRegistry struct {
	mu      sync.Mutex
	next    uint64
	handles map[uint64]*sql.DB
}

// NewDBRegistry creates an empty registry.
func NewDBRegistry() *DBRegistry {
	return &DBRegistry{handles: map[uint64]*sql.DB{}}
}

const dbNativeType = "db:sqlite"

func (r *DBRegistry) store(db *sql.DB) value.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.handles[h] = db
	return value.NativeValue(dbNativeType, h)
}

func (r *DBRegistry) resolve(v value.Value) (*sql.DB, error) {
	n, ok := v.Native()
	if !ok || n.TypeID != dbNativeType {
		return nil, fmt.Errorf("value is not a db connection")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	db, ok := r.handles[n.Handle]
	if !ok {
		return nil, fmt.Errorf("db connection is closed or unknown")
	}
	return db, nil
}

// List returns the handles of every connection still open, for leak
// introspection (no finalizer closes a forgotten connection automatically).
func (r *DBRegistry) List() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, len(r.handles))
	for h := range r.handles {
		out = append(out, h)
	}
	return out
}

func (r *DBRegistry) close(v value.Value) error {
	n, ok := v.Native()
	if !ok || n.TypeID != dbNativeType {
		return fmt.Errorf("value is not a db connection")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	db, ok := r.handles[n.Handle]
	if !ok {
		return nil
	}
	delete(r.handles, n.Handle)
	return db.Close()
}

// DBBundle exposes db.connect!/query!/execute!/close! over sqlite3 (the
// teacher's store package drives the same driver via database/sql; see
// migrations.go). The trailing "!" on effectful names matches spec.md §6's
// capability surface (db.{connect!,query!,execute!,close!}).
func DBBundle(reg *DBRegistry) *Bundle {
	return &Bundle{
		Name: "db",
		Funcs: map[string]evaluator.CapabilityFunc{
			"connect!": func(args []value.Value) (value.Value, error) {
				if len(args) != 1 {
					return value.Nil, fmt.Errorf("db.connect! expects 1 argument (dsn), got %d", len(args))
				}
				db, err := sql.Open("sqlite3", args[0].String())
				if err != nil {
					return value.Nil, fmt.Errorf("db.connect!: %w", err)
				}
				if err := db.Ping(); err != nil {
					db.Close()
					return value.Nil, fmt.Errorf("db.connect!: %w", err)
				}
				return reg.store(db), nil
			},
			"query!": func(args []value.Value) (value.Value, error) {
				if len(args) < 1 {
					return value.Nil, fmt.Errorf("db.query! expects at least 1 argument (connection, [sql])")
				}
				db, err := reg.resolve(args[0])
				if err != nil {
					return value.Nil, err
				}
				return runQuery(db, args[1:])
			},
			"execute!": func(args []value.Value) (value.Value, error) {
				if len(args) < 1 {
					return value.Nil, fmt.Errorf("db.execute! expects at least 1 argument (connection, [sql])")
				}
				db, err := reg.resolve(args[0])
				if err != nil {
					return value.Nil, err
				}
				return runExec(db, args[1:])
			},
			"close!": func(args []value.Value) (value.Value, error) {
				if len(args) != 1 {
					return value.Nil, fmt.Errorf("db.close! expects 1 argument (connection), got %d", len(args))
				}
				if err := reg.close(args[0]); err != nil {
					return value.Nil, fmt.Errorf("db.close!: %w", err)
				}
				return value.Bool(true), nil
			},
		},
	}
}

func runQuery(db *sql.DB, rest []value.Value) (value.Value, error) {
	if len(rest) < 1 {
		return value.Nil, fmt.Errorf("db.query: missing sql statement")
	}
	stmt := rest[0].String()
	params := toQueryParams(rest[1:])
	rows, err := db.Query(stmt, params...)
	if err != nil {
		return value.Nil, fmt.Errorf("db.query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return value.Nil, fmt.Errorf("db.query: %w", err)
	}
	var results []value.Value
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return value.Nil, fmt.Errorf("db.query: %w", err)
		}
		fields := make(map[string]value.Value, len(cols))
		for i, c := range cols {
			fields[c] = sqlValueToValue(raw[i])
		}
		results = append(results, value.Record(fields))
	}
	return value.List(results), rows.Err()
}

func runExec(db *sql.DB, rest []value.Value) (value.Value, error) {
	if len(rest) < 1 {
		return value.Nil, fmt.Errorf("db.exec: missing sql statement")
	}
	stmt := rest[0].String()
	params := toQueryParams(rest[1:])
	res, err := db.Exec(stmt, params...)
	if err != nil {
		return value.Nil, fmt.Errorf("db.exec: %w", err)
	}
	affected, _ := res.RowsAffected()
	return value.Int(affected), nil
}

func toQueryParams(args []value.Value) []any {
	out := make([]any, len(args))
	for i, a := range args {
		n, _ := toNative(a)
		out[i] = n
	}
	return out
}

func sqlValueToValue(raw any) value.Value {
	switch x := raw.(type) {
	case nil:
		return value.Nil
	case int64:
		return value.Int(x)
	case float64:
		return value.Float(x)
	case bool:
		return value.Bool(x)
	case []byte:
		return value.String(string(x))
	case string:
		return value.String(x)
	default:
		return value.String(fmt.Sprintf("%v", x))
	}
}
