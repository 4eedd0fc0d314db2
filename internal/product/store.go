package product

import (
	"errors"
	"fmt"

	"shoe_pos/internal/statefile"
)

const (
	createKey = "product"
	editKey   = "editProduct"
)

var ErrNoEditDraft = errors.New("no product is being edited")

// EditDraft is a draft of an existing product.
type EditDraft struct {
	ProductID string `json:"productId"`
	Draft     Draft  `json:"draft"`
}

// DraftStore keeps the create and edit drafts across runs.
type DraftStore struct {
	state *statefile.Store
}

func NewDraftStore(state *statefile.Store) *DraftStore {
	return &DraftStore{state: state}
}

// LoadCreate returns the saved create draft, or a fresh one.
func (s *DraftStore) LoadCreate() (Draft, error) {
	d := NewDraft()
	err := s.state.Load(createKey, &d)
	switch {
	case errors.Is(err, statefile.ErrNotFound):
		return NewDraft(), nil
	case err != nil:
		return Draft{}, fmt.Errorf("load product draft: %w", err)
	}
	return d, nil
}

func (s *DraftStore) SaveCreate(d Draft) error {
	return s.state.Save(createKey, d)
}

func (s *DraftStore) ResetCreate() error {
	return s.state.Delete(createKey)
}

func (s *DraftStore) LoadEdit() (EditDraft, error) {
	var e EditDraft
	err := s.state.Load(editKey, &e)
	switch {
	case errors.Is(err, statefile.ErrNotFound):
		return EditDraft{}, ErrNoEditDraft
	case err != nil:
		return EditDraft{}, fmt.Errorf("load edit draft: %w", err)
	}
	if e.ProductID == "" {
		return EditDraft{}, ErrNoEditDraft
	}
	return e, nil
}

func (s *DraftStore) SaveEdit(e EditDraft) error {
	return s.state.Save(editKey, e)
}

func (s *DraftStore) ResetEdit() error {
	return s.state.Delete(editKey)
}
