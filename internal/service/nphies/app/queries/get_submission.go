package queries

import (
	"context"

	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/ledger"
)

type GetSubmissionQuery struct {
	ID string
}

type GetSubmissionResult struct {
	Submission ledger.Submission
}

type GetSubmissionQueryHandler interface {
	Handle(ctx context.Context, query GetSubmissionQuery) (result GetSubmissionResult, err error)
}

func NewGetSubmissionQueryHandler(repo ledger.Repository) GetSubmissionQueryHandler {
	return &getSubmissionQueryHandler{repo: repo}
}

type getSubmissionQueryHandler struct {
	repo ledger.Repository
}

// Handle returns ledger.ErrNotFound for unknown ids.
func (h *getSubmissionQueryHandler) Handle(ctx context.Context, query GetSubmissionQuery) (GetSubmissionResult, error) {
	s, err := h.repo.Get(ctx, query.ID)
	if err != nil {
		return GetSubmissionResult{}, err
	}
	return GetSubmissionResult{Submission: s}, nil
}
