package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/synopticspread/spread/internal/domain"
)

func TestResetSweepArrayRequiresArrayStore(t *testing.T) {
	err := Reset(context.Background(), &RelationalStore{db: nil}, nil, uuid.New(), "2024011500/", true)
	if !errors.Is(err, domain.ErrStorageFailure) {
		t.Fatalf("got %v, want ErrStorageFailure", err)
	}
}
