package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/xaenox/threadhub/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) UpsertUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name`

	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Email, user.Name); err != nil {
		return fmt.Errorf("error upserting user: %v", err)
	}
	return nil
}

func (s *PostgresStorage) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, name
		FROM users
		WHERE lower(email) = lower($1)`

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &user.Name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error looking up user by email: %v", err)
	}
	return user, nil
}

func (s *PostgresStorage) CreateThread(ctx context.Context, thread *models.Thread) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %v", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO threads (id, title, created_by, created_at) VALUES ($1, $2, $3, $4)`,
		thread.ID, thread.Title, thread.CreatedByID, thread.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating thread: %v", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO thread_members (thread_id, user_id, joined_at) VALUES ($1, $2, $3)`,
		thread.ID, thread.CreatedByID, thread.CreatedAt)
	if err != nil {
		return fmt.Errorf("error adding creator membership: %v", err)
	}

	return tx.Commit()
}

func (s *PostgresStorage) ListThreads(ctx context.Context, userID string) ([]models.ThreadListing, error) {
	query := `
		SELECT t.id, t.title, t.created_by, t.created_at, m.last_seen_at
		FROM threads t
		JOIN thread_members m ON m.thread_id = t.id
		WHERE m.user_id = $1
		ORDER BY t.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying threads: %v", err)
	}
	defer rows.Close()

	var listings []models.ThreadListing
	for rows.Next() {
		var listing models.ThreadListing
		var lastSeen sql.NullTime
		err := rows.Scan(
			&listing.Thread.ID,
			&listing.Thread.Title,
			&listing.Thread.CreatedByID,
			&listing.Thread.CreatedAt,
			&lastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning thread: %v", err)
		}

		listing.LatestMessage, err = s.latestMessage(ctx, listing.Thread.ID)
		if err != nil {
			return nil, err
		}
		listing.UnreadCount, err = s.unreadCount(ctx, listing.Thread.ID, userID, lastSeen)
		if err != nil {
			return nil, err
		}

		listings = append(listings, listing)
	}
	return listings, rows.Err()
}

func (s *PostgresStorage) latestMessage(ctx context.Context, threadID string) (*models.Message, error) {
	query := `
		SELECT m.id, m.thread_id, COALESCE(m.parent_message_id, ''), m.author_id,
		       m.content, m.category, m.created_at, u.email, u.name
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.thread_id = $1
		ORDER BY m.created_at DESC
		LIMIT 1`

	msg := &models.Message{}
	err := s.db.QueryRowContext(ctx, query, threadID).Scan(
		&msg.ID, &msg.ThreadID, &msg.ParentMessageID, &msg.AuthorID,
		&msg.Content, &msg.Category, &msg.CreatedAt, &msg.Author.Email, &msg.Author.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying latest message: %v", err)
	}
	msg.Author.ID = msg.AuthorID
	return msg, nil
}

func (s *PostgresStorage) unreadCount(ctx context.Context, threadID, userID string, lastSeen sql.NullTime) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM messages
		WHERE thread_id = $1 AND author_id <> $2 AND created_at > $3`

	since := time.Time{}
	if lastSeen.Valid {
		since = lastSeen.Time
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, threadID, userID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting unread messages: %v", err)
	}
	return count, nil
}

func (s *PostgresStorage) IsMember(ctx context.Context, threadID, userID string) (bool, error) {
	query := `SELECT 1 FROM thread_members WHERE thread_id = $1 AND user_id = $2`

	var one int
	err := s.db.QueryRowContext(ctx, query, threadID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking membership: %v", err)
	}
	return true, nil
}

func (s *PostgresStorage) AddMember(ctx context.Context, threadID, userID string) error {
	query := `
		INSERT INTO thread_members (thread_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (thread_id, user_id) DO NOTHING`

	if _, err := s.db.ExecContext(ctx, query, threadID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("error adding member: %v", err)
	}
	return nil
}

func (s *PostgresStorage) ListMembers(ctx context.Context, threadID string) ([]models.User, error) {
	query := `
		SELECT u.id, u.email, u.name
		FROM thread_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.thread_id = $1
		ORDER BY m.joined_at ASC`

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("error querying members: %v", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name); err != nil {
			return nil, fmt.Errorf("error scanning member: %v", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStorage) TouchLastSeen(ctx context.Context, threadID, userID string, at time.Time) error {
	query := `
		UPDATE thread_members
		SET last_seen_at = $3
		WHERE thread_id = $1 AND user_id = $2`

	if _, err := s.db.ExecContext(ctx, query, threadID, userID, at); err != nil {
		return fmt.Errorf("error updating last seen: %v", err)
	}
	return nil
}

func (s *PostgresStorage) CreateMessage(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, thread_id, parent_message_id, author_id, content, category, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ThreadID, msg.ParentMessageID, msg.AuthorID,
		msg.Content, msg.Category, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating message: %v", err)
	}
	return nil
}

func (s *PostgresStorage) GetMessage(ctx context.Context, threadID, messageID string) (*models.Message, error) {
	query := `
		SELECT m.id, m.thread_id, COALESCE(m.parent_message_id, ''), m.author_id,
		       m.content, m.category, m.created_at, u.email, u.name
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.id = $1 AND m.thread_id = $2`

	msg := &models.Message{}
	err := s.db.QueryRowContext(ctx, query, messageID, threadID).Scan(
		&msg.ID, &msg.ThreadID, &msg.ParentMessageID, &msg.AuthorID,
		&msg.Content, &msg.Category, &msg.CreatedAt, &msg.Author.Email, &msg.Author.Name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying message: %v", err)
	}
	msg.Author.ID = msg.AuthorID
	return msg, nil
}

func (s *PostgresStorage) TopLevelMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	query := `
		SELECT m.id, m.thread_id, m.author_id, m.content, m.category, m.created_at,
		       u.email, u.name,
		       (SELECT COUNT(*) FROM messages r WHERE r.parent_message_id = m.id)
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.thread_id = $1 AND m.parent_message_id IS NULL
		ORDER BY m.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %v", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID, &msg.ThreadID, &msg.AuthorID, &msg.Content, &msg.Category,
			&msg.CreatedAt, &msg.Author.Email, &msg.Author.Name, &msg.ReplyCount)
		if err != nil {
			return nil, fmt.Errorf("error scanning message: %v", err)
		}
		msg.Author.ID = msg.AuthorID
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *PostgresStorage) Replies(ctx context.Context, parentMessageID string) ([]models.Message, error) {
	query := `
		SELECT m.id, m.thread_id, COALESCE(m.parent_message_id, ''), m.author_id,
		       m.content, m.category, m.created_at, u.email, u.name
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.parent_message_id = $1
		ORDER BY m.created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, parentMessageID)
	if err != nil {
		return nil, fmt.Errorf("error querying replies: %v", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID, &msg.ThreadID, &msg.ParentMessageID, &msg.AuthorID,
			&msg.Content, &msg.Category, &msg.CreatedAt, &msg.Author.Email, &msg.Author.Name)
		if err != nil {
			return nil, fmt.Errorf("error scanning reply: %v", err)
		}
		msg.Author.ID = msg.AuthorID
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *PostgresStorage) RecentMessages(ctx context.Context, threadID, category string, limit int) ([]models.Message, error) {
	query := `
		SELECT m.id, m.thread_id, COALESCE(m.parent_message_id, ''), m.author_id,
		       m.content, m.category, m.created_at, u.email, u.name
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.thread_id = $1 AND ($2 = '' OR m.category = $2)
		ORDER BY m.created_at DESC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, threadID, category, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying recent messages: %v", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID, &msg.ThreadID, &msg.ParentMessageID, &msg.AuthorID,
			&msg.Content, &msg.Category, &msg.CreatedAt, &msg.Author.Email, &msg.Author.Name)
		if err != nil {
			return nil, fmt.Errorf("error scanning recent message: %v", err)
		}
		msg.Author.ID = msg.AuthorID
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest-first from the index scan; callers want chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
