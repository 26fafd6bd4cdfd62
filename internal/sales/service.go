package sales

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/enstockapp/mono-stock/internal/clients"
	"github.com/enstockapp/mono-stock/internal/currency"
	"github.com/enstockapp/mono-stock/internal/platform/httpx"
	"github.com/enstockapp/mono-stock/internal/shared"
	"github.com/enstockapp/mono-stock/internal/stock"
)

// ClientDirectory resolves tenants; the service only needs the main currency.
type ClientDirectory interface {
	Get(ctx context.Context, id uuid.UUID) (clients.Client, error)
}

// Auditor records stock-affecting operations.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates sale documents.
type Service struct {
	repo    RepositoryPort
	clients ClientDirectory
	auditor Auditor
	// allowNegative permits sales to push on-hand quantity below zero
	// (back-order support). When false an oversell is rejected.
	allowNegative bool
}

// NewService builds Service. auditor may be nil.
func NewService(repo RepositoryPort, directory ClientDirectory, auditor Auditor, allowNegative bool) *Service {
	return &Service{repo: repo, clients: directory, auditor: auditor, allowNegative: allowNegative}
}

// LineInput is one client-supplied sale position. No amount is accepted: the
// line is priced at the product's current sale price.
type LineInput struct {
	StockID  int64
	Quantity float64
}

// CreateInput describes a new sale document.
type CreateInput struct {
	CustomerID    int64
	DocumentType  string
	InvoiceNumber string
	ControlNumber string
	Date          time.Time
	Currency      currency.Code
	Exchange      currency.Exchange
	Comment       string
	Lines         []LineInput
}

// Create validates, persists and applies a sale document. Every line
// decrements its SKU on the ledger inside one transaction; cost fields are
// never touched.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (Sale, error) {
	client, err := s.clients.Get(ctx, actor.ClientID)
	if err != nil {
		return Sale{}, err
	}
	exchange, err := currency.NormalizeExchange(input.Currency, client.MainCurrency, input.Exchange)
	if err != nil {
		return Sale{}, err
	}
	if len(input.Lines) == 0 {
		return Sale{}, fmt.Errorf("%w: at least one line is required", httpx.ErrValidation)
	}
	for _, l := range input.Lines {
		if l.Quantity <= 0 {
			return Sale{}, fmt.Errorf("%w: line quantity must be positive", httpx.ErrValidation)
		}
	}

	var created Sale
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.CustomerExists(ctx, actor.ClientID, input.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: customer %d", httpx.ErrNotFound, input.CustomerID)
		}

		resolved, err := resolveAll(ctx, tx, actor.ClientID, input.Lines)
		if err != nil {
			return err
		}

		docLines := make([]stock.Line, len(input.Lines))
		for i, l := range input.Lines {
			docLines[i] = stock.Line{Quantity: l.Quantity, Amount: resolved[l.StockID].Price}
		}

		created, err = tx.InsertHeader(ctx, Sale{
			ClientID:      actor.ClientID,
			CustomerID:    input.CustomerID,
			DocumentType:  input.DocumentType,
			InvoiceNumber: input.InvoiceNumber,
			ControlNumber: input.ControlNumber,
			Date:          input.Date,
			Currency:      input.Currency,
			Exchange:      exchange,
			Total:         stock.DocumentTotal(docLines),
			Comment:       input.Comment,
		})
		if err != nil {
			return err
		}

		for _, l := range input.Lines {
			line, err := tx.InsertLine(ctx, Line{
				SaleID:   created.ID,
				StockID:  l.StockID,
				Quantity: l.Quantity,
				Amount:   resolved[l.StockID].Price,
			})
			if err != nil {
				return err
			}
			level, err := tx.Ledger().ApplyDelta(ctx, line.StockID, line.Quantity, stock.Decrement)
			if err != nil {
				return classifyStockErr(err)
			}
			if !s.allowNegative && level.Quantity < 0 {
				return fmt.Errorf("%w: insufficient stock for sku %d", httpx.ErrValidation, line.StockID)
			}
			created.Lines = append(created.Lines, line)
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	s.audit(ctx, actor, "sale.create", created.ID, map[string]any{"total": created.Total})
	return created, nil
}

// Delete soft-deletes an active sale and returns every line's quantity to
// stock, the exact inverse of Create.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) (Sale, error) {
	var deleted Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		deleted, err = tx.LoadActive(ctx, actor.ClientID, id)
		if err != nil {
			return err
		}
		if err := tx.Deactivate(ctx, actor.ClientID, id); err != nil {
			return err
		}
		for _, line := range deleted.Lines {
			if _, err := tx.Ledger().ApplyDelta(ctx, line.StockID, line.Quantity, stock.Increment); err != nil {
				return classifyStockErr(err)
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	deleted.IsActive = false
	for i := range deleted.Lines {
		deleted.Lines[i].IsActive = false
	}
	s.audit(ctx, actor, "sale.delete", id, nil)
	return deleted, nil
}

// GetByID loads one document with its lines.
func (s *Service) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Sale, error) {
	return s.repo.GetByID(ctx, clientID, id)
}

// List pages through documents, active only by default.
func (s *Service) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination, includeInactive bool) ([]Sale, error) {
	return s.repo.List(ctx, clientID, page, includeInactive)
}

func (s *Service) audit(ctx context.Context, actor shared.Actor, action string, id int64, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		ClientID: actor.ClientID.String(),
		Action:   action,
		Entity:   "sale",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}

func resolveAll(ctx context.Context, tx TxRepository, clientID uuid.UUID, lines []LineInput) (map[int64]SKU, error) {
	ids := make([]int64, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, l := range lines {
		if !seen[l.StockID] {
			seen[l.StockID] = true
			ids = append(ids, l.StockID)
		}
	}
	resolved, err := tx.ResolveSKUs(ctx, clientID, ids)
	if err != nil {
		return nil, err
	}
	if missing := len(ids) - len(resolved); missing > 0 {
		return nil, fmt.Errorf("%w: %d sku(s) could not be resolved", httpx.ErrNotFound, missing)
	}
	return resolved, nil
}

func classifyStockErr(err error) error {
	switch err {
	case stock.ErrStockNotFound, stock.ErrProductNotFound:
		return fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	}
	return err
}
