// Package store persists remittance claims to Postgres and serves the
// denials view over them.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/edi/internal/record"
)

// DefaultDenialLimit caps Denials when the filter sets no limit.
const DefaultDenialLimit = 100

// querier abstracts over *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ClaimStore writes claims and reads denials.
type ClaimStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewClaimStore(pool *pgxpool.Pool, logger zerolog.Logger) *ClaimStore {
	return &ClaimStore{pool: pool, logger: logger.With().Str("component", "store").Logger()}
}

// SaveClaims writes claims with their lines, adjustments and remarks in one
// transaction and returns the load batch id. A claim already stored under
// the same (claim id, payer id) is replaced. Claims without a claim id are
// skipped.
func (s *ClaimStore) SaveClaims(ctx context.Context, claims []*record.ClaimRecord) (uuid.UUID, error) {
	batchID := uuid.New()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	b.Queue(`INSERT INTO load_batch (id, claim_count) VALUES ($1, 0)`, batchID)

	saved := 0
	for _, c := range claims {
		if c.ClaimID == "" {
			s.logger.Warn().Str("file", c.File).Msg("claim without claim id skipped")
			continue
		}
		queueClaim(b, batchID, c)
		saved++
	}
	b.Queue(`UPDATE load_batch SET claim_count = $2 WHERE id = $1`, batchID, saved)

	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return uuid.Nil, fmt.Errorf("store: write claims: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("store: commit: %w", err)
	}

	s.logger.Info().
		Str("batch_id", batchID.String()).
		Int("claims", saved).
		Int("skipped", len(claims)-saved).
		Msg("claims saved")
	return batchID, nil
}

func queueClaim(b *pgx.Batch, batchID uuid.UUID, c *record.ClaimRecord) {
	row := uuid.New()
	sum := summarize(c)

	b.Queue(`DELETE FROM claim WHERE claim_id = $1 AND payer_id = $2`, c.ClaimID, c.Payer.ID)
	b.Queue(`INSERT INTO claim (
		id, batch_id, source_file, practice_type, transaction_type,
		claim_id, payer_claim_id, payer_id, payer_name, payee_npi,
		patient_last, patient_first, member_id, status, status_code,
		billed, paid, patient_responsibility, adjustment_total,
		service_from, service_to, payment_date,
		first_cpt, first_group_code, first_carc, first_rarc
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
	)`,
		row, batchID, c.File, PracticeType(c.File), c.Transaction,
		c.ClaimID, nullable(c.PayerClaimID), c.Payer.ID, nullable(c.Payer.Name), nullable(c.Payee.NPI),
		nullable(c.Patient.Last), nullable(c.Patient.First), nullable(c.Patient.ID), c.Status, nullable(c.StatusCode),
		c.Billed, c.Paid, c.PatientResp, c.AdjustmentTotal,
		nullable(c.ServiceFrom), nullable(c.ServiceTo), nullable(c.PaymentDate),
		nullable(sum.CPT), nullable(sum.Group), nullable(sum.CARC), nullable(sum.RARC),
	)

	for _, a := range c.Adjustments {
		queueAdjustment(b, row, nil, a)
	}
	for _, l := range c.Lines {
		lineID := uuid.New()
		var allowed *float64
		if l.Allowed != 0 {
			allowed = &l.Allowed
		}
		b.Queue(`INSERT INTO claim_line (
			id, claim_row, line_number, procedure_code, modifiers,
			billed, paid, allowed, units, service_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			lineID, row, l.Number, nullable(l.ProcedureCode), nullable(strings.Join(l.Modifiers, ":")),
			l.Billed, l.Paid, allowed, nullable(l.Units), nullable(l.ServiceDate),
		)
		for _, a := range l.Adjustments {
			queueAdjustment(b, row, &lineID, a)
		}
		for _, r := range l.Remarks {
			b.Queue(`INSERT INTO claim_remark (claim_row, line_id, qualifier, code) VALUES ($1, $2, $3, $4)`,
				row, lineID, r.Qualifier, r.Code)
		}
	}
}

func queueAdjustment(b *pgx.Batch, row uuid.UUID, lineID *uuid.UUID, a record.Adjustment) {
	b.Queue(`INSERT INTO claim_adjustment (
		claim_row, line_id, group_code, reason_code, original_code, amount, quantity
	) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row, lineID, a.Group, a.Code, nullable(a.OriginalCode), a.Amount, nullable(a.Quantity))
}

// Summary holds the denormalized first codes of a claim.
type Summary struct {
	CPT   string
	Group string
	CARC  string
	RARC  string
}

// summarize picks the first procedure code, the first adjustment's group
// and reason, and the first remark. With no remark the second adjustment
// reason stands in as the RARC.
func summarize(c *record.ClaimRecord) Summary {
	var s Summary
	if len(c.Lines) > 0 {
		s.CPT = c.Lines[0].ProcedureCode
	}
	if a, ok := c.FirstAdjustment(); ok {
		s.Group = a.Group
		s.CARC = a.Code
	}
	s.RARC = c.FirstRemark()
	if s.RARC == "" {
		all := append([]record.Adjustment(nil), c.Adjustments...)
		for _, l := range c.Lines {
			all = append(all, l.Adjustments...)
		}
		if len(all) > 1 {
			s.RARC = all[1].Code
		}
	}
	return s
}

// PracticeType is the name of the directory the source file sits in, the
// convention for grouping remittances by practice. Files at the root have
// none.
func PracticeType(file string) string {
	dir := filepath.Base(filepath.Dir(file))
	if dir == "." || dir == string(filepath.Separator) {
		return ""
	}
	return dir
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DenialFilter narrows Denials. Empty fields match everything.
type DenialFilter struct {
	PayerID      string
	PracticeType string
	CARC         string
	Limit        int
	Offset       int
}

// Denial is one row of the denials view.
type Denial struct {
	ClaimID      string    `json:"claim_id"`
	PayerID      string    `json:"payer_id"`
	PayerName    string    `json:"payer_name,omitempty"`
	PracticeType string    `json:"practice_type,omitempty"`
	SourceFile   string    `json:"source_file"`
	CPT          string    `json:"cpt,omitempty"`
	GroupCode    string    `json:"group_code,omitempty"`
	CARC         string    `json:"carc,omitempty"`
	RARC         string    `json:"rarc,omitempty"`
	Balance      float64   `json:"balance"`
	DenialDate   string    `json:"denial_date,omitempty"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// Denials lists denied claims, most recently loaded first. The denial date
// is the end of the service period, or its start when there is no end.
func (s *ClaimStore) Denials(ctx context.Context, f DenialFilter) ([]Denial, error) {
	return denials(ctx, s.pool, f)
}

func denials(ctx context.Context, q querier, f DenialFilter) ([]Denial, error) {
	query, args := denialQuery(f)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query denials: %w", err)
	}
	defer rows.Close()

	var out []Denial
	for rows.Next() {
		var d Denial
		var payerName, practice, cpt, group, carc, rarc, date *string
		if err := rows.Scan(
			&d.ClaimID, &d.PayerID, &payerName, &practice, &d.SourceFile,
			&cpt, &group, &carc, &rarc, &d.Balance, &date, &d.LoadedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan denial: %w", err)
		}
		d.PayerName = deref(payerName)
		d.PracticeType = deref(practice)
		d.CPT = deref(cpt)
		d.GroupCode = deref(group)
		d.CARC = deref(carc)
		d.RARC = deref(rarc)
		d.DenialDate = deref(date)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate denials: %w", err)
	}
	return out, nil
}

func denialQuery(f DenialFilter) (string, []any) {
	query := `SELECT c.claim_id, c.payer_id, c.payer_name, c.practice_type, c.source_file,
		c.first_cpt, c.first_group_code, c.first_carc, c.first_rarc, c.billed,
		COALESCE(c.service_to, c.service_from), b.loaded_at
	FROM claim c JOIN load_batch b ON b.id = c.batch_id
	WHERE c.status = $1`
	args := []any{record.StatusDenied}
	idx := 2

	if f.PayerID != "" {
		query += fmt.Sprintf(" AND c.payer_id = $%d", idx)
		args = append(args, f.PayerID)
		idx++
	}
	if f.PracticeType != "" {
		query += fmt.Sprintf(" AND c.practice_type = $%d", idx)
		args = append(args, f.PracticeType)
		idx++
	}
	if f.CARC != "" {
		query += fmt.Sprintf(" AND c.first_carc = $%d", idx)
		args = append(args, f.CARC)
		idx++
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultDenialLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" ORDER BY b.loaded_at DESC, c.claim_id LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, offset)
	return query, args
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
