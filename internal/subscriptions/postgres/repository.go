// Package postgres provides PostgreSQL implementation of the subscriptions store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bissquit/newsletter-garden/internal/domain"
	pgutil "github.com/bissquit/newsletter-garden/internal/pkg/postgres"
	"github.com/bissquit/newsletter-garden/internal/subscriptions"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	emailUniqueConstraint = "subscriptions_email_key"
	tokenPrimaryKey       = "subscription_tokens_pkey"
)

// Repository implements the subscriptions.Store interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert stores sub and its confirmation token in one transaction.
func (r *Repository) Insert(ctx context.Context, sub *domain.Subscriber, issuer *subscriptions.TokenIssuer) (*domain.ConfirmationToken, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w: %w", subscriptions.ErrStoreUnavailable, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	query := `
		INSERT INTO subscriptions (id, email, name, status, subscribed_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = tx.Exec(ctx, query, sub.ID, sub.Email, sub.Name, string(sub.Status), sub.SubscribedAt)
	if err != nil {
		if pgutil.IsUniqueViolation(err, emailUniqueConstraint) {
			return nil, subscriptions.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert subscriber: %w: %w", subscriptions.ErrStoreUnavailable, err)
	}

	token, err := issuer.Issue(ctx, &tokenWriter{tx: tx}, sub.ID)
	if err != nil {
		if errors.Is(err, subscriptions.ErrTokenRetriesExhausted) {
			return nil, err
		}
		return nil, fmt.Errorf("insert token: %w: %w", subscriptions.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w: %w", subscriptions.ErrStoreUnavailable, err)
	}

	return token, nil
}

// GetByEmail returns the subscriber registered with email, or nil if there is none.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	query := `
		SELECT id, email, name, status, subscribed_at
		FROM subscriptions
		WHERE email = $1
	`
	var sub domain.Subscriber
	var status string
	err := r.db.QueryRow(ctx, query, email).Scan(
		&sub.ID,
		&sub.Email,
		&sub.Name,
		&status,
		&sub.SubscribedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subscriber by email: %w", err)
	}
	sub.Status = domain.SubscriberStatus(status)

	return &sub, nil
}

// GetTokens returns the confirmation tokens issued to subscriberID, oldest first.
func (r *Repository) GetTokens(ctx context.Context, subscriberID string) ([]domain.ConfirmationToken, error) {
	query := `
		SELECT subscription_token, subscriber_id, issued_at
		FROM subscription_tokens
		WHERE subscriber_id = $1
		ORDER BY issued_at
	`
	rows, err := r.db.Query(ctx, query, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.ConfirmationToken
	for rows.Next() {
		var token domain.ConfirmationToken
		if err := rows.Scan(&token.Value, &token.SubscriberID, &token.IssuedAt); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens: %w", err)
	}

	return tokens, nil
}

// tokenWriter inserts tokens inside the subscriber transaction.
// Each attempt runs in a savepoint so a key collision does not abort the outer transaction.
type tokenWriter struct {
	tx pgx.Tx
}

func (w *tokenWriter) InsertToken(ctx context.Context, token *domain.ConfirmationToken) error {
	sp, err := w.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}

	query := `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id, issued_at)
		VALUES ($1, $2, $3)
	`
	if _, err := sp.Exec(ctx, query, token.Value, token.SubscriberID, token.IssuedAt); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback savepoint: %w", rbErr)
		}
		if pgutil.IsUniqueViolation(err, tokenPrimaryKey) {
			return subscriptions.ErrTokenConflict
		}
		return err
	}

	return sp.Commit(ctx)
}
