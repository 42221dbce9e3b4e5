package storygen

import (
	"context"
	"errors"
	"testing"

	"github.com/abhisek/kahani/internal/apperr"
	"github.com/abhisek/kahani/internal/llm"
)

func TestListAndGet(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Text: modelOutput(t, marketDoc())})
	svc, _ := newTestService(t, mock, func(c *Config) { c.Validate = false })
	ctx := context.Background()

	res, err := svc.Generate(ctx, GenerateInput{LearnerID: "ana", Topic: "market"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	open := false
	ps, err := svc.List(ctx, "ana", &open, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ps) != 1 || ps[0].ID != res.Passage.ID {
		t.Fatalf("open passages = %+v", ps)
	}

	done := true
	ps, err = svc.List(ctx, "ana", &done, 0)
	if err != nil || len(ps) != 0 {
		t.Fatalf("completed passages = %v, %v", ps, err)
	}

	got, err := svc.Get(ctx, "ana", res.Passage.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Exercises) != 2 || len(got.Characters) != 1 {
		t.Errorf("exercises=%d characters=%d", len(got.Exercises), len(got.Characters))
	}

	if _, err := svc.Get(ctx, "ravi", res.Passage.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign Get = %v, want not found", err)
	}
}
