package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/activity"
	"github.com/spigell/broker-genie/internal/catalog"
	"github.com/spigell/broker-genie/internal/clients"
	"github.com/spigell/broker-genie/internal/intake"
	"github.com/spigell/broker-genie/internal/plans"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestReadSubmission(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "intake.yaml",
			content: `full_name: Jane Roe
state: ca
date_of_birth: 1980-04-12
height: "170"
health_conditions: [Diabetes]
dependents:
  - relationship: spouse
    full_name: John Roe
`,
		},
		{
			name:    "json",
			file:    "intake.json",
			content: `{"full_name": "Jane Roe", "state": "ca", "date_of_birth": "1980-04-12", "height": 170, "health_conditions": ["Diabetes"], "dependents": [{"relationship": "spouse", "full_name": "John Roe"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := readSubmission(writeFile(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sub.FullName != "Jane Roe" || sub.DateOfBirth != "1980-04-12" {
				t.Fatalf("unexpected submission: %+v", sub)
			}
			if sub.Height == nil || *sub.Height != 170 {
				t.Fatalf("unexpected height: %v", sub.Height)
			}
			if len(sub.Dependents) != 1 || sub.Dependents[0].Relationship != "spouse" {
				t.Fatalf("unexpected dependents: %+v", sub.Dependents)
			}
		})
	}
}

func TestReadSubmissionErrors(t *testing.T) {
	if _, err := readSubmission(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}

	_, err := readSubmission(writeFile(t, "bad.yaml", "full_name: [unterminated"))
	if !errors.Is(err, clients.ErrInvalidSubmission) {
		t.Fatalf("expected ErrInvalidSubmission, got %v", err)
	}

	_, err = readSubmission(writeFile(t, "unknown.yaml", "full_name: Jane\nshoe_size: 9\n"))
	if !errors.Is(err, clients.ErrInvalidSubmission) {
		t.Fatalf("expected ErrInvalidSubmission, got %v", err)
	}
}

func TestViewFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("category", "", "")
	cmd.Flags().String("search", "", "")
	cmd.Flags().String("sort", "", "")
	cmd.Flags().Bool("desc", false, "")

	if err := cmd.Flags().Parse([]string{"--category", "Dental", "--sort", "price", "--desc"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	view := viewFromFlags(cmd)
	if view != (intake.View{Category: "Dental", Sort: "price", Desc: true}) {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestHandleMatchAction(t *testing.T) {
	ctx := context.Background()
	src := catalog.NewStatic(catalog.Document{Plans: []*plans.Plan{
		{ID: "1", CompanyName: "Acme", ProductName: "Silver", ProductCategory: "Medical", MonthlyPrice: 300},
	}})
	repo := clients.NewMemoryRepository()
	store := activity.NewMemory()
	svc := intake.New(src, repo, store, nil)

	res, err := svc.Match(ctx, "broker-1", &clients.Submission{FullName: "Jane"}, intake.View{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := handleMatchAction(ctx, PromptSave, svc, res, zap.NewNop()); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	list, _ := repo.List(ctx, "broker-1")
	if len(list) != 1 || !res.Saved {
		t.Fatalf("expected exactly one saved client, got %d", len(list))
	}

	if err := handleMatchAction(ctx, PromptReportByCategory, svc, res, zap.NewNop()); err != nil {
		t.Fatalf("report: %v", err)
	}
	if err := handleMatchAction(ctx, PromptExplain, svc, res, zap.NewNop()); err != nil {
		t.Fatalf("explain: %v", err)
	}
	if err := handleMatchAction(ctx, PromptExit, svc, res, zap.NewNop()); !errors.Is(err, errExit) {
		t.Fatalf("expected errExit, got %v", err)
	}
	if err := handleMatchAction(ctx, "dance", svc, res, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
