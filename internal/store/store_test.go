package store_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"

	faker "github.com/go-faker/faker/v4"

	"github.com/zoravur/scorecast/internal/store"
	"github.com/zoravur/scorecast/pkg/pgtest"
)

func TestMain(m *testing.M) {
	if err := pgtest.BootOnce(); err != nil {
		fmt.Fprintf(os.Stderr, "pgtest boot failed: %v\n", err)
		os.Exit(1)
	}
	code := m.Run()
	_ = pgtest.Shutdown()
	os.Exit(code)
}

func TestListEntrantNamesInsertionOrder(t *testing.T) {
	ctx := context.Background()
	st := store.New(pgtest.NewSandbox(t).DB)

	id, err := st.CreateSession(ctx, "ordering")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	names := make([]string, 20)
	for i := range names {
		names[i] = fmt.Sprintf("%s-%d", faker.FirstName(), i)
	}
	if err := st.ApplyEntrantDiff(ctx, id, nil, names); err != nil {
		t.Fatalf("ApplyEntrantDiff: %v", err)
	}

	got, err := st.ListEntrantNames(ctx, id)
	if err != nil {
		t.Fatalf("ListEntrantNames: %v", err)
	}
	if !reflect.DeepEqual(got, names) {
		t.Fatalf("insertion order lost:\n got %v\nwant %v", got, names)
	}
}

func TestJudgeIDByNameOldestRowWins(t *testing.T) {
	ctx := context.Background()
	st := store.New(pgtest.NewSandbox(t).DB)

	id, _ := st.CreateSession(ctx, "judges")

	first, err := st.InsertJudge(ctx, id, "j1")
	if err != nil {
		t.Fatalf("InsertJudge: %v", err)
	}
	if _, err := st.InsertJudge(ctx, id, "j1"); err != nil {
		t.Fatalf("duplicate judge rows are allowed: %v", err)
	}

	resolved, err := st.JudgeIDByName(ctx, id, "j1")
	if err != nil {
		t.Fatalf("JudgeIDByName: %v", err)
	}
	if resolved != first {
		t.Errorf("resolution must stay stable across repeat registrations")
	}

	if _, err := st.JudgeIDByName(ctx, id, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestEntrantIDsByNameScopedToSession(t *testing.T) {
	ctx := context.Background()
	st := store.New(pgtest.NewSandbox(t).DB)

	s1, _ := st.CreateSession(ctx, "one")
	s2, _ := st.CreateSession(ctx, "two")
	st.ApplyEntrantDiff(ctx, s1, nil, []string{"A", "B"})
	st.ApplyEntrantDiff(ctx, s2, nil, []string{"A"})

	ids1, err := st.EntrantIDsByName(ctx, s1, []string{"A", "B", "ghost"})
	if err != nil {
		t.Fatalf("EntrantIDsByName: %v", err)
	}
	if len(ids1) != 2 {
		t.Fatalf("want A and B resolved, ghost dropped; got %v", ids1)
	}

	ids2, _ := st.EntrantIDsByName(ctx, s2, []string{"A"})
	if ids2["A"] == ids1["A"] {
		t.Errorf("same name in different sessions must be different rows")
	}
}
