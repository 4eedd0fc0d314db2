package product

import (
	"context"
	"fmt"

	"shoe_pos/internal/backend"

	"go.uber.org/zap"
)

// Backend is the part of the remote API product editing needs.
type Backend interface {
	CreateProduct(ctx context.Context, payload backend.ProductPayload) (string, error)
	GetProduct(ctx context.Context, id string) (backend.ProductRecord, error)
	UpdateProduct(ctx context.Context, id string, payload backend.ProductPayload) (string, error)
	RegisterBarcode(ctx context.Context, sku string) error
}

type BarcodeResult struct {
	SKU string
	Err error
}

type CreateResult struct {
	Message  string
	Barcodes []BarcodeResult
}

type Service struct {
	api    Backend
	drafts *DraftStore
	logger *zap.Logger
}

func NewService(api Backend, drafts *DraftStore, logger *zap.Logger) *Service {
	return &Service{api: api, drafts: drafts, logger: logger.Named("product")}
}

func (s *Service) Drafts() *DraftStore {
	return s.drafts
}

// Create submits the saved create draft. On success the draft is reset
// and a barcode is registered for every SKU; barcode failures are
// reported per SKU and do not fail the call.
func (s *Service) Create(ctx context.Context) (CreateResult, error) {
	d, err := s.drafts.LoadCreate()
	if err != nil {
		return CreateResult{}, err
	}
	if err := d.Validate(); err != nil {
		return CreateResult{}, err
	}

	msg, err := s.api.CreateProduct(ctx, d.Payload())
	if err != nil {
		return CreateResult{}, err
	}
	s.logger.Info("product created", zap.String("name", d.General.Name), zap.String("type", string(d.Type)))

	if err := s.drafts.ResetCreate(); err != nil {
		s.logger.Warn("failed to reset product draft", zap.Error(err))
	}

	res := CreateResult{Message: msg}
	for _, sku := range d.SKUs() {
		err := s.api.RegisterBarcode(ctx, sku)
		if err != nil {
			s.logger.Warn("barcode registration failed", zap.String("sku", sku), zap.Error(err))
		}
		res.Barcodes = append(res.Barcodes, BarcodeResult{SKU: sku, Err: err})
	}
	return res, nil
}

// BeginEdit loads a product into the edit draft, replacing any edit in
// progress.
func (s *Service) BeginEdit(ctx context.Context, id string) (EditDraft, error) {
	rec, err := s.api.GetProduct(ctx, id)
	if err != nil {
		return EditDraft{}, err
	}
	e := EditDraft{ProductID: rec.ID, Draft: FromRecord(rec)}
	if err := s.drafts.SaveEdit(e); err != nil {
		return EditDraft{}, fmt.Errorf("save edit draft: %w", err)
	}
	return e, nil
}

// SubmitEdit sends the edit draft and clears it on success.
func (s *Service) SubmitEdit(ctx context.Context) (string, error) {
	e, err := s.drafts.LoadEdit()
	if err != nil {
		return "", err
	}
	if err := e.Draft.Validate(); err != nil {
		return "", err
	}

	msg, err := s.api.UpdateProduct(ctx, e.ProductID, e.Draft.Payload())
	if err != nil {
		return "", err
	}
	s.logger.Info("product updated", zap.String("id", e.ProductID))

	if err := s.drafts.ResetEdit(); err != nil {
		s.logger.Warn("failed to reset edit draft", zap.Error(err))
	}
	return msg, nil
}
