package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/csvtree/csvtree-api/internal/models"
)

func exportRecord(name, title string) *models.Record {
	return &models.Record{
		FileName:    name,
		Status:      models.RecordStatusCompleted,
		Title:       title,
		Keywords:    []string{"sunset", "ocean", "waves"},
		Categories:  []string{"Nature", "Travel"},
		Description: "A warm evening over the sea.",
	}
}

func TestBuildCSVAdobeStockLayout(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Platform = models.PlatformAdobeStock

	got := BuildCSV([]*models.Record{exportRecord("a.jpg", "Golden Hour")}, settings)
	want := `"Filename","Title","Keywords"` + "\n" +
		`"a.jpg","Golden Hour","sunset, ocean, waves"`
	if got != want {
		t.Errorf("BuildCSV =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildCSVShutterstockLayout(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Platform = models.PlatformShutterstock

	got := BuildCSV([]*models.Record{exportRecord("a.jpg", "Golden Hour")}, settings)
	want := `"Filename","Description","Keywords","Categories"` + "\n" +
		`"a.jpg","A warm evening over the sea.","sunset, ocean, waves","Nature, Travel"`
	if got != want {
		t.Errorf("BuildCSV =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildCSVGeneralLayout(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Platform = models.PlatformGeneral

	got := BuildCSV([]*models.Record{exportRecord("a.jpg", "Golden Hour")}, settings)
	header := `"Filename","Title","Keywords","Description","Categories"`
	if !strings.HasPrefix(got, header) {
		t.Errorf("BuildCSV header = %q, want prefix %q", got, header)
	}
}

func TestBuildCSVPromptMode(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Mode = models.ModeImageToPrompt
	// Platform must not override the prompt layout.
	settings.Platform = models.PlatformShutterstock

	rec := &models.Record{FileName: "a.jpg", Prompt: "A sunset, painterly style."}
	got := BuildCSV([]*models.Record{rec}, settings)
	want := `"Filename","Prompt"` + "\n" + `"a.jpg","A sunset, painterly style."`
	if got != want {
		t.Errorf("BuildCSV =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildCSVQuoting(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Platform = models.PlatformAdobeStock

	rec := exportRecord(`we"ird.jpg`, `Say "cheese", please`)
	got := BuildCSV([]*models.Record{rec}, settings)
	if !strings.Contains(got, `"we""ird.jpg"`) {
		t.Errorf("embedded quote in filename not doubled: %s", got)
	}
	if !strings.Contains(got, `"Say ""cheese"", please"`) {
		t.Errorf("embedded quote in title not doubled: %s", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("output must not end with a trailing newline")
	}
}

func TestExportBatch(t *testing.T) {
	ctx := context.Background()
	repos := setupTestRepos(t)
	logger := discardLogger()
	storage, err := NewStorageService(testConfig(), logger)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewExportService(repos, storage, logger)

	insertProfile(t, repos, "user-1", 10, "Free")
	batch := insertBatchWithRecords(t, repos, "batch-1", "user-1", 2, models.DefaultSettings())

	t.Run("no completed records", func(t *testing.T) {
		_, err := svc.ExportBatch(ctx, "user-1", batch.ID)
		if !errors.Is(err, ErrNoCompletedRecords) {
			t.Errorf("err = %v, want ErrNoCompletedRecords", err)
		}
	})

	records, err := repos.Records.GetByBatchID(ctx, batch.ID)
	if err != nil {
		t.Fatal(err)
	}
	records[0].Status = models.RecordStatusCompleted
	records[0].Title = "Done"
	records[0].Keywords = []string{"one", "two"}
	if err := repos.Records.Update(ctx, records[0]); err != nil {
		t.Fatal(err)
	}

	t.Run("only completed records exported", func(t *testing.T) {
		export, err := svc.ExportBatch(ctx, "user-1", batch.ID)
		if err != nil {
			t.Fatalf("ExportBatch failed: %v", err)
		}
		if export.FileName != "csvtree_batch-1.csv" {
			t.Errorf("filename = %q", export.FileName)
		}
		lines := strings.Split(string(export.Data), "\n")
		if len(lines) != 2 {
			t.Fatalf("got %d lines, want header plus one row: %q", len(lines), export.Data)
		}
		if !strings.Contains(lines[1], `"Done"`) {
			t.Errorf("row = %q, want completed record", lines[1])
		}
	})

	t.Run("wrong owner", func(t *testing.T) {
		_, err := svc.ExportBatch(ctx, "someone-else", batch.ID)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := svc.ExportBatch(ctx, "user-1", "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}
