package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ahmedafzal2677/exact-sol-task/services/tasks/internal/models"
)

// Поддерживаемые драйверы database/sql
const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
)

const taskColumns = `id, title, description, status, due_date, priority, user_id, created_at, updated_at`

// SQLTaskRepository хранит задачи в SQL-базе; запросы пишутся с "?" и переписываются под диалект
type SQLTaskRepository struct {
	db     *sql.DB
	driver string
}

// OpenSQL открывает соединение и проверяет его ping-ом
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLTaskRepository, error) {
	switch driver {
	case DriverPostgres, DriverPgx, DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewSQLTaskRepository(db, driver), nil
}

func NewSQLTaskRepository(db *sql.DB, driver string) *SQLTaskRepository {
	return &SQLTaskRepository{db: db, driver: driver}
}

func (r *SQLTaskRepository) Close() error {
	return r.db.Close()
}

// PingContext нужен для readiness-проверки
func (r *SQLTaskRepository) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Migrate создаёт таблицу tasks, если её нет
func (r *SQLTaskRepository) Migrate(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS tasks (
	id          VARCHAR(64)  PRIMARY KEY,
	title       VARCHAR(255) NOT NULL,
	description TEXT         NOT NULL,
	status      VARCHAR(16)  NOT NULL,
	due_date    VARCHAR(10)  NOT NULL,
	priority    VARCHAR(8)   NOT NULL,
	user_id     VARCHAR(64)  NOT NULL,
	created_at  TIMESTAMP    NOT NULL,
	updated_at  TIMESTAMP    NOT NULL
)`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("migrate tasks: %w", err)
	}
	return nil
}

func (r *SQLTaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := r.rebind(`INSERT INTO tasks (` + taskColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, string(task.Status), task.DueDate,
		string(task.Priority), task.UserID, task.CreatedAt.UTC(), task.UpdatedAt.UTC())
	if isDuplicateKey(err) {
		return ErrDuplicateID
	}
	return err
}

func (r *SQLTaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := r.rebind(`SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`)
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *SQLTaskRepository) List(ctx context.Context, filter ListFilter) ([]*models.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.OwnerID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.TitleQuery != "" {
		where = append(where, "LOWER(title) LIKE ? ESCAPE '!'")
		args = append(args, "%"+escapeLike(strings.ToLower(filter.TitleQuery))+"%")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *SQLTaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := r.rebind(`UPDATE tasks SET title = ?, description = ?, status = ?, due_date = ?,
		priority = ?, user_id = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query,
		task.Title, task.Description, string(task.Status), task.DueDate,
		string(task.Priority), task.UserID, task.UpdatedAt.UTC(), task.ID)
	if err != nil {
		return err
	}
	if err := expectOneRow(result); !errors.Is(err, ErrNotFound) {
		return err
	}
	// MySQL без clientFoundRows не считает строку с теми же значениями затронутой
	return r.exists(ctx, task.ID)
}

func (r *SQLTaskRepository) exists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT 1 FROM tasks WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *SQLTaskRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// escapeLike экранирует шаблонные символы LIKE, чтобы поиск шёл по подстроке буквально.
// Обратный слеш в MySQL уже экранирующий в литералах, поэтому экранируем через "!".
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// rebind заменяет "?" на $1..$n для Postgres-драйверов
func (r *SQLTaskRepository) rebind(query string) string {
	if r.driver != DriverPostgres && r.driver != DriverPgx {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task     models.Task
		status   string
		priority string
	)
	err := row.Scan(&task.ID, &task.Title, &task.Description, &status, &task.DueDate,
		&priority, &task.UserID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	task.Status = models.Status(status)
	task.Priority = models.Priority(priority)
	return &task, nil
}

// expectOneRow превращает "0 строк затронуто" в ErrNotFound
func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
