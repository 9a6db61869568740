package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/dossier/internal/model"
	"github.com/shopspring/decimal"
)

// ReplaceRecords deletes every stored record and inserts records in one transaction.
// Readers never observe a partially replaced relation: on any failure the
// transaction rolls back and the previous records remain. Amounts are kept
// to model.AmountScale decimal places; one that does not fit, or an account
// whose total would not, fails with ErrAmountRange.
func (s *SQLiteStorage) ReplaceRecords(ctx context.Context, source string, records []model.DetailRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRecords(records); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM detail_records`); err != nil {
			return fmt.Errorf("failed to clear records: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO detail_records (
				plan_code, account_key, payer, invoice, amount_minor, record_date
			) VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, r := range records {
			_, err = stmt.ExecContext(ctx,
				r.PlanCode,
				r.AccountKey,
				r.Payer,
				r.Invoice,
				toMinor(r.Amount),
				toDateColumn(r.Date),
			)
			if err != nil {
				return fmt.Errorf("failed to insert record %d for account %s: %w", i, r.AccountKey, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO loads (source, row_count, loaded_at) VALUES (?, ?, ?)`,
			source, len(records), time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("failed to record load: %w", err)
		}

		return nil
	})
}

// Summarize groups all records by account key.
func (s *SQLiteStorage) Summarize(ctx context.Context) ([]model.AccountSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	summaries := []model.AccountSummary{}
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT account_key,
			       COUNT(*),
			       COALESCE(SUM(amount_minor), 0),
			       COALESCE(GROUP_CONCAT(plan_code, ', '), ''),
			       COALESCE(GROUP_CONCAT(payer, ', '), '')
			FROM detail_records
			GROUP BY account_key
		`)
		if err != nil {
			return fmt.Errorf("failed to summarize records: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var sum model.AccountSummary
			var totalMinor int64
			if err := rows.Scan(&sum.AccountKey, &sum.ServiceCount, &totalMinor, &sum.PlanCodes, &sum.Payers); err != nil {
				return fmt.Errorf("failed to scan summary: %w", err)
			}
			sum.TotalAmount = decimal.New(totalMinor, -model.AmountScale)
			summaries = append(summaries, sum)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return summaries, nil
}

// DetailsFor returns an account's records ordered by date descending; records
// without a date come last and ties keep insertion order.
func (s *SQLiteStorage) DetailsFor(ctx context.Context, accountKey string) ([]model.DetailRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	records := []model.DetailRecord{}
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT seq, plan_code, account_key, payer, invoice, amount_minor, record_date
			FROM detail_records
			WHERE account_key = ?
			ORDER BY record_date IS NULL, record_date DESC, seq ASC
		`, accountKey)
		if err != nil {
			return fmt.Errorf("failed to query records: %w", err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var r model.DetailRecord
			var amount sql.NullInt64
			var date sql.NullString
			if err := rows.Scan(&r.Seq, &r.PlanCode, &r.AccountKey, &r.Payer, &r.Invoice, &amount, &date); err != nil {
				return fmt.Errorf("failed to scan record: %w", err)
			}
			if amount.Valid {
				r.Amount = decimal.NewNullDecimal(decimal.New(amount.Int64, -model.AmountScale))
			}
			if date.Valid {
				d, parseErr := time.Parse(model.DateLayout, date.String)
				if parseErr != nil {
					return fmt.Errorf("corrupt date %q on record %d: %w", date.String, r.Seq, parseErr)
				}
				r.Date = &d
			}
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// RecordCount returns the number of records in the relation.
func (s *SQLiteStorage) RecordCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM detail_records`).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// LastLoad returns the most recent load, or nil when nothing was ever loaded.
func (s *SQLiteStorage) LastLoad(ctx context.Context) (*model.LoadInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var info model.LoadInfo
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx,
			`SELECT source, row_count, loaded_at FROM loads ORDER BY id DESC LIMIT 1`,
		).Scan(&info.Source, &info.Rows, &info.LoadedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last load: %w", err)
	}
	return &info, nil
}

func toMinor(amount decimal.NullDecimal) any {
	if !amount.Valid {
		return nil
	}
	return amount.Decimal.Shift(model.AmountScale).Round(0).IntPart()
}

func toDateColumn(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format(model.DateLayout)
}
