package cli

import (
	"context"
	"errors"

	"deckhand/internal/model"
)

type failingSource struct{}

func (failingSource) TopQuotes(context.Context) ([]model.Quote, error) {
	return nil, errors.New("quote store offline")
}
