package purchases

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

// Service orchestrates purchase documents.
type Service struct {
	repo    RepositoryPort
	clients ClientDirectory
	auditor Auditor
	// allowNegative permits reversals to push on-hand quantity below zero.
	allowNegative bool
}

// NewService builds Service. auditor may be nil.
func NewService(repo RepositoryPort, directory ClientDirectory, auditor Auditor, allowNegative bool) *Service {
	return &Service{repo: repo, clients: directory, auditor: auditor, allowNegative: allowNegative}
}

// LineInput is one client-supplied purchase position.
type LineInput struct {
	StockID               int64
	Quantity              float64
	Amount                float64
	UpdateProductBaseCost bool
}

// CreateInput describes a new purchase document.
type CreateInput struct {
	SupplierID    int64
	DocumentType  string
	InvoiceNumber string
	ControlNumber string
	Date          time.Time
	Currency      currency.Code
	Exchange      currency.Exchange
	Comment       string
	Lines         []LineInput
}

// Create validates, persists and applies a purchase document. All lines are
// applied inside one transaction: each inserts its row, increments its SKU on
// the ledger and folds its converted unit cost into the product's moving
// average. Any line failure rolls back the whole document.
func (s *Service) Create(ctx context.Context, actor shared.Actor, input CreateInput) (Purchase, error) {
	client, err := s.clients.Get(ctx, actor.ClientID)
	if err != nil {
		return Purchase{}, err
	}
	exchange, err := currency.NormalizeExchange(input.Currency, client.MainCurrency, input.Exchange)
	if err != nil {
		return Purchase{}, err
	}
	if err := checkLines(input.Lines); err != nil {
		return Purchase{}, err
	}

	docLines := make([]stock.Line, len(input.Lines))
	for i, l := range input.Lines {
		docLines[i] = stock.Line{Quantity: l.Quantity, Amount: l.Amount}
	}

	var created Purchase
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.SupplierExists(ctx, actor.ClientID, input.SupplierID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: supplier %d", httpx.ErrNotFound, input.SupplierID)
		}

		resolved, err := resolveAll(ctx, tx, actor.ClientID, input.Lines)
		if err != nil {
			return err
		}

		created, err = tx.InsertHeader(ctx, Purchase{
			ClientID:      actor.ClientID,
			SupplierID:    input.SupplierID,
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
			sku := resolved[l.StockID]
			line, err := tx.InsertLine(ctx, Line{
				PurchaseID:            created.ID,
				StockID:               l.StockID,
				ProductID:             sku.ProductID,
				Quantity:              l.Quantity,
				Amount:                l.Amount,
				UpdateProductBaseCost: l.UpdateProductBaseCost,
			})
			if err != nil {
				return err
			}
			if err := s.applyLine(ctx, tx, client.MainCurrency, created.Currency, created.Exchange, line, stock.ActionCreate); err != nil {
				return err
			}
			created.Lines = append(created.Lines, line)
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}

	s.audit(ctx, actor, "purchase.create", created.ID, map[string]any{"total": created.Total})
	return created, nil
}

// Delete soft-deletes an active purchase and reverses each line's ledger and
// accountant effect exactly, using the exchange context recorded at creation.
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id int64) (Purchase, error) {
	client, err := s.clients.Get(ctx, actor.ClientID)
	if err != nil {
		return Purchase{}, err
	}

	var deleted Purchase
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		deleted, err = tx.LoadActive(ctx, actor.ClientID, id)
		if err != nil {
			return err
		}
		if err := tx.Deactivate(ctx, actor.ClientID, id); err != nil {
			return err
		}
		for _, line := range deleted.Lines {
			if err := s.applyLine(ctx, tx, client.MainCurrency, deleted.Currency, deleted.Exchange, line, stock.ActionDelete); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}

	deleted.IsActive = false
	for i := range deleted.Lines {
		deleted.Lines[i].IsActive = false
	}
	s.audit(ctx, actor, "purchase.delete", id, nil)
	return deleted, nil
}

// GetByID loads one document with its lines.
func (s *Service) GetByID(ctx context.Context, clientID uuid.UUID, id int64) (Purchase, error) {
	return s.repo.GetByID(ctx, clientID, id)
}

// List pages through documents, active only by default.
func (s *Service) List(ctx context.Context, clientID uuid.UUID, page shared.Pagination, includeInactive bool) ([]Purchase, error) {
	return s.repo.List(ctx, clientID, page, includeInactive)
}

// applyLine runs the per-line ledger and accountant updates, in the line's
// direction for creation and the inverse for reversal.
func (s *Service) applyLine(ctx context.Context, tx TxRepository, main, txCurrency currency.Code, exchange currency.Exchange, line Line, action stock.Action) error {
	dir := stock.Increment
	if action == stock.ActionDelete {
		dir = stock.Decrement
	}

	level, err := tx.Ledger().ApplyDelta(ctx, line.StockID, line.Quantity, dir)
	if err != nil {
		return classifyStockErr(err)
	}
	if !s.allowNegative && level.Quantity < 0 {
		return fmt.Errorf("%w: insufficient stock for sku %d", httpx.ErrValidation, line.StockID)
	}

	unitCostMain := currency.AmountInMain(main, txCurrency, exchange.From, exchange.Rate, line.Amount)
	cur, err := tx.Ledger().GetProductCostForUpdate(ctx, line.ProductID)
	if err != nil {
		return classifyStockErr(err)
	}
	next := stock.NextCostState(cur, line.Quantity, unitCostMain, line.UpdateProductBaseCost, action)
	if err := tx.Ledger().UpdateProductCost(ctx, line.ProductID, next); err != nil {
		return classifyStockErr(err)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, actor shared.Actor, action string, id int64, meta map[string]any) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		ClientID: actor.ClientID.String(),
		Action:   action,
		Entity:   "purchase",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}

func checkLines(lines []LineInput) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", httpx.ErrValidation)
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return fmt.Errorf("%w: line quantity must be positive", httpx.ErrValidation)
		}
		if l.Amount < 0 {
			return fmt.Errorf("%w: line amount cannot be negative", httpx.ErrValidation)
		}
	}
	return nil
}

// resolveAll maps every line's SKU id, failing with the count of ids that did
// not resolve within the tenant's active catalogue.
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
