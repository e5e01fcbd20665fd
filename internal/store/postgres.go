// Package store provides the PostgreSQL claims, insurer-config, and batch
// stores consumed by the engine.
package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/gyeh/claim-batcher/internal/engine"
)

//go:embed schema.sql
var schema string

// Postgres implements engine.Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against the given connection string and pings it.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// Init creates the schema if it does not exist yet.
func (s *Postgres) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Insurers returns every configured insurer, code order.
func (s *Postgres) Insurers(ctx context.Context) ([]engine.InsurerConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, name, daily_capacity, min_batch_size, max_batch_size,
		       date_preference, specialty_costs, priority_multipliers,
		       claim_value_threshold, claim_value_multiplier
		FROM insurers
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query insurers: %w", err)
	}
	defer rows.Close()

	var out []engine.InsurerConfig
	for rows.Next() {
		var (
			cfg       engine.InsurerConfig
			costsJSON []byte
			multsJSON []byte
			threshold pgtype.Numeric
		)
		if err := rows.Scan(&cfg.Code, &cfg.Name, &cfg.DailyCapacity, &cfg.MinBatchSize,
			&cfg.MaxBatchSize, &cfg.DatePreference, &costsJSON, &multsJSON,
			&threshold, &cfg.ClaimValueMultiplier); err != nil {
			return nil, fmt.Errorf("scan insurer: %w", err)
		}

		if err := json.Unmarshal(costsJSON, &cfg.SpecialtyCosts); err != nil {
			return nil, fmt.Errorf("insurer %s: decode specialty costs: %w", cfg.Code, err)
		}
		cfg.PriorityMultipliers, err = decodePriorityMultipliers(multsJSON)
		if err != nil {
			return nil, fmt.Errorf("insurer %s: %w", cfg.Code, err)
		}
		cfg.ClaimValueThreshold = numericToDecimal(threshold)

		out = append(out, cfg)
	}
	return out, rows.Err()
}

// PendingClaims returns one insurer's unbatched pending claims, snapshot in
// id order. An empty submitter matches every submitting party.
func (s *Postgres) PendingClaims(ctx context.Context, insurerCode, submitter string) ([]engine.Claim, error) {
	q := `
		SELECT id, submitter, provider_name, specialty, priority,
		       encounter_date, submission_date, total_amount, status
		FROM claims
		WHERE insurer_code = $1 AND status = 'pending' AND NOT is_batched`
	args := []any{insurerCode}
	if submitter != "" {
		q += ` AND submitter = $2`
		args = append(args, submitter)
	}
	q += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending claims: %w", err)
	}
	defer rows.Close()

	var out []engine.Claim
	for rows.Next() {
		var (
			c      engine.Claim
			amount pgtype.Numeric
		)
		if err := rows.Scan(&c.ID, &c.Submitter, &c.ProviderName, &c.Specialty,
			&c.Priority, &c.EncounterDate, &c.SubmissionDate, &amount, &c.Status); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		c.TotalAmount = numericToDecimal(amount)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CommitBatches applies a full batch plan in one transaction: batch records
// plus every member claim's batching fields. A claim that is no longer
// pending fails the whole commit so partial plans never land.
func (s *Postgres) CommitBatches(ctx context.Context, insurerCode, runID string, batches []engine.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, b := range batches {
		if _, err := tx.Exec(ctx, `
			INSERT INTO batches (insurer_code, id, run_id, provider_name, batch_date,
			                     claim_count, total_value, processing_cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			insurerCode, b.ID, runID, b.ProviderName, b.Date,
			len(b.Claims), decimalToNumeric(b.TotalValue), b.ProcessingCost); err != nil {
			return fmt.Errorf("insert batch %q: %w", b.ID, err)
		}

		ids := make([]int64, len(b.Claims))
		for i, c := range b.Claims {
			ids[i] = c.ID
		}
		tag, err := tx.Exec(ctx, `
			UPDATE claims
			SET batch_id = $1, batch_date = $2, is_batched = TRUE, status = 'batched'
			WHERE id = ANY($3) AND insurer_code = $4
			  AND status = 'pending' AND NOT is_batched`,
			b.ID, b.Date, ids, insurerCode)
		if err != nil {
			return fmt.Errorf("assign batch %q: %w", b.ID, err)
		}
		if int(tag.RowsAffected()) != len(ids) {
			return fmt.Errorf("assign batch %q: %d of %d claims no longer pending",
				b.ID, len(ids)-int(tag.RowsAffected()), len(ids))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// InsertInsurer stores an insurer config. Used for seeding and tests.
func (s *Postgres) InsertInsurer(ctx context.Context, cfg engine.InsurerConfig) error {
	costs, err := json.Marshal(cfg.SpecialtyCosts)
	if err != nil {
		return fmt.Errorf("encode specialty costs: %w", err)
	}
	mults, err := json.Marshal(encodePriorityMultipliers(cfg.PriorityMultipliers))
	if err != nil {
		return fmt.Errorf("encode priority multipliers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO insurers (code, name, daily_capacity, min_batch_size, max_batch_size,
		                      date_preference, specialty_costs, priority_multipliers,
		                      claim_value_threshold, claim_value_multiplier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		cfg.Code, cfg.Name, cfg.DailyCapacity, cfg.MinBatchSize, cfg.MaxBatchSize,
		cfg.DatePreference, costs, mults,
		decimalToNumeric(cfg.ClaimValueThreshold), cfg.ClaimValueMultiplier)
	if err != nil {
		return fmt.Errorf("insert insurer %s: %w", cfg.Code, err)
	}
	return nil
}

// InsertClaim stores a pending claim and returns its id.
func (s *Postgres) InsertClaim(ctx context.Context, insurerCode string, c engine.Claim) (int64, error) {
	status := c.Status
	if status == "" {
		status = engine.StatusPending
	}
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO claims (insurer_code, submitter, provider_name, specialty, priority,
		                    encounter_date, submission_date, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		insurerCode, c.Submitter, c.ProviderName, c.Specialty, c.Priority,
		c.EncounterDate, c.SubmissionDate, decimalToNumeric(c.TotalAmount), status).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert claim: %w", err)
	}
	return id, nil
}

// Priority multipliers live in JSONB with string keys; convert both ways.

func decodePriorityMultipliers(raw []byte) (map[int]float64, error) {
	var byName map[string]float64
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("decode priority multipliers: %w", err)
	}
	out := make(map[int]float64, len(byName))
	for k, v := range byName {
		p, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("decode priority multipliers: bad level %q", k)
		}
		out[p] = v
	}
	return out, nil
}

func encodePriorityMultipliers(m map[int]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	return out
}

// pgtype helpers

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var num pgtype.Numeric
	num.Scan(d.String())
	return num
}
