package reconciliation

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"crm-reconciliation-backend/internal/apperr"
	"crm-reconciliation-backend/internal/models"
	"crm-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const progressEvery = 100

var statementDateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

// statementColumns are the header names recognised in a bank statement,
// with the column used when the header does not name it.
var statementColumns = map[string]struct {
	names    []string
	fallback int
}{
	"date":        {[]string{"date", "transaction_date", "booking_date"}, 1},
	"description": {[]string{"description", "details", "narrative"}, 2},
	"amount":      {[]string{"amount", "value"}, 3},
	"reference":   {[]string{"reference", "reference_number", "ref"}, 4},
}

func (s *ReconciliationService) CreateBatch(ctx context.Context, filename string) (*models.ImportBatch, error) {
	now := time.Now().UTC()
	batch := &models.ImportBatch{
		ID:        uuid.New(),
		Filename:  filename,
		Status:    models.ImportProcessing,
		StartedAt: now,
		CreatedAt: now,
	}
	if err := s.batchRepo.Create(ctx, batch); err != nil {
		s.log.DatabaseError("import_batch.create", err)
		return nil, err
	}
	return batch, nil
}

func (s *ReconciliationService) GetBatch(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	batch, err := s.batchRepo.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		return nil, apperr.NotFound("import batch not found").WithOp("reconciliation.GetBatch")
	}
	return batch, err
}

// StartImport creates a batch for the statement and imports it in the
// background. The statement is buffered first so the caller may close r
// as soon as StartImport returns.
func (s *ReconciliationService) StartImport(ctx context.Context, filename string, r io.Reader) (*models.ImportBatch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "cannot read statement", err)
	}

	batch, err := s.CreateBatch(ctx, filename)
	if err != nil {
		return nil, err
	}

	s.imports.Add(1)
	go func() {
		defer s.imports.Done()
		if err := s.ImportStatement(context.Background(), batch.ID, bytes.NewReader(data)); err != nil {
			s.log.Error("statement import failed", "batch_id", batch.ID.String(), "error", err.Error())
		}
	}()
	return batch, nil
}

// ImportStatement reads a CSV bank statement into pending transactions of
// the batch. Unreadable rows are skipped and counted. Progress is written
// every progressEvery rows and the batch is closed when the file ends.
func (s *ReconciliationService) ImportStatement(ctx context.Context, batchID uuid.UUID, r io.Reader) error {
	log := s.log.With("batch_id", batchID.String())

	reader, err := newStatementReader(r)
	if err != nil {
		return s.failBatch(ctx, batchID, 0, 0, err)
	}

	header, err := reader.Read()
	if err != nil {
		return s.failBatch(ctx, batchID, 0, 0, fmt.Errorf("cannot read CSV header: %w", err))
	}
	columns := resolveColumns(header)

	imported, skipped := 0, 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if strings.TrimSpace(strings.Join(record, "")) == "" {
			continue
		}

		tx, err := parseStatementRow(record, columns)
		if err != nil {
			log.Debug("skipping statement row", "row", imported+skipped+1, "reason", err.Error())
			skipped++
			continue
		}
		tx.ImportBatchID = &batchID

		if err := s.transactionRepo.Create(ctx, tx); err != nil {
			s.log.DatabaseError("bank_transaction.create", err)
			return s.failBatch(ctx, batchID, imported, skipped, err)
		}
		imported++

		if imported%progressEvery == 0 {
			if err := s.batchRepo.UpdateProgress(ctx, batchID, imported, skipped); err != nil {
				s.log.DatabaseError("import_batch.progress", err)
			}
		}
	}

	log.Info("statement imported", "imported", imported, "skipped", skipped)
	return s.batchRepo.Complete(ctx, batchID, imported, skipped, "")
}

func (s *ReconciliationService) failBatch(ctx context.Context, batchID uuid.UUID, imported, skipped int, cause error) error {
	if err := s.batchRepo.Complete(ctx, batchID, imported, skipped, cause.Error()); err != nil {
		s.log.DatabaseError("import_batch.complete", err)
	}
	return cause
}

// newStatementReader sniffs the delimiter from the first line.
func newStatementReader(r io.Reader) (*csv.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	switch {
	case bytes.Contains(firstLine, []byte(",")):
		reader.Comma = ','
	case bytes.Contains(firstLine, []byte("\t")):
		reader.Comma = '\t'
	case bytes.Contains(firstLine, []byte(";")):
		reader.Comma = ';'
	}
	return reader, nil
}

func resolveColumns(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	columns := make(map[string]int, len(statementColumns))
	for field, spec := range statementColumns {
		columns[field] = spec.fallback
		for _, name := range spec.names {
			if i, ok := index[name]; ok {
				columns[field] = i
				break
			}
		}
	}
	return columns
}

func parseStatementRow(record []string, columns map[string]int) (*models.BankTransaction, error) {
	field := func(name string) string {
		i := columns[name]
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	amount, err := decimal.NewFromString(field("amount"))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", field("amount"))
	}
	if amount.IsZero() {
		return nil, errors.New("zero amount")
	}

	date, err := parseStatementDate(field("date"))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &models.BankTransaction{
		ID:              uuid.New(),
		TransactionDate: date,
		Description:     field("description"),
		Amount:          amount.Round(2),
		ReferenceNumber: field("reference"),
		Status:          models.TransactionPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func parseStatementDate(value string) (time.Time, error) {
	for _, layout := range statementDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
