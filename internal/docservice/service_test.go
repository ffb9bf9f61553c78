package docservice

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/mdcal/internal/apperr"
	"github.com/starford/mdcal/internal/docstore"
	"github.com/starford/mdcal/internal/index"
	"github.com/starford/mdcal/internal/models"
	"github.com/starford/mdcal/internal/query"
	"github.com/starford/mdcal/internal/settings"
)

type fakeCatalog struct {
	refreshed []string
	fail      error
}

func (f *fakeCatalog) Refresh(id string) (string, error) {
	f.refreshed = append(f.refreshed, id)
	return "", f.fail
}

func (f *fakeCatalog) Search(q string, _ int) ([]index.SearchResult, error) {
	return []index.SearchResult{{ID: "hit", Title: q}}, nil
}

func newService(t *testing.T, opts ...Option) (*Service, *settings.Store) {
	t.Helper()
	cfg := settings.New(t.TempDir())
	store := docstore.New(cfg)
	return New(store, cfg, query.New(store, time.Local), opts...), cfg
}

func ptr[T any](v T) *T { return &v }

func TestService_CreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{}
	svc, _ := newService(t, WithCatalog(cat))

	created, err := svc.CreateDocument(ctx, docstore.CreateInput{
		Title: "Trip", Content: "pack bags", StartDate: 100, EndDate: 200, Status: ptr(models.StatusReady),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Trip"}, cat.refreshed)

	got, err := svc.GetDocument(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.GetDocument(ctx, "absent")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestService_RenameRefreshesBothIDs(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{}
	svc, _ := newService(t, WithCatalog(cat))

	doc, err := svc.CreateDocument(ctx, docstore.CreateInput{Title: "Plan", Content: "keep me"})
	require.NoError(t, err)
	cat.refreshed = nil

	renamed, err := svc.UpdateDocument(ctx, doc.ID, docstore.UpdateInput{Title: ptr("Roadmap")})
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", renamed.ID)
	assert.Equal(t, "keep me", renamed.Content)
	assert.Equal(t, doc.CreatedAt, renamed.CreatedAt)
	assert.Greater(t, renamed.UpdatedAt, doc.UpdatedAt)
	assert.ElementsMatch(t, []string{"Plan", "Roadmap"}, cat.refreshed)

	_, err = svc.GetDocument(ctx, "Plan")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestService_CatalogFailureDoesNotFailMutation(t *testing.T) {
	cat := &fakeCatalog{fail: errors.New("db locked")}
	svc, _ := newService(t, WithCatalog(cat))
	_, err := svc.CreateDocument(context.Background(), docstore.CreateInput{Title: "x"})
	assert.NoError(t, err)
}

func TestService_CycleStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	doc, err := svc.CreateDocument(ctx, docstore.CreateInput{Title: "Task"})
	require.NoError(t, err)

	for _, want := range []string{models.StatusReady, models.StatusInProgress, models.StatusPaused, models.StatusCompleted, models.StatusReady} {
		doc, err = svc.CycleStatus(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, want, doc.Status)
	}

	_, err = svc.CycleStatus(ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestService_DeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	cat := &fakeCatalog{}
	svc, _ := newService(t, WithCatalog(cat))
	doc, _ := svc.CreateDocument(ctx, docstore.CreateInput{Title: "Gone"})

	for range 2 {
		ok, err := svc.DeleteDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, []string{"Gone", "Gone", "Gone"}, cat.refreshed)
}

func TestService_MonthAndSearch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	spanStart := time.Date(2024, 1, 31, 23, 0, 0, 0, time.Local).UnixMilli()
	spanEnd := time.Date(2024, 2, 1, 1, 0, 0, 0, time.Local).UnixMilli()
	_, err := svc.CreateDocument(ctx, docstore.CreateInput{Title: "My Plan", StartDate: spanStart, EndDate: spanEnd})
	require.NoError(t, err)
	march := time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local).UnixMilli()
	_, err = svc.CreateDocument(ctx, docstore.CreateInput{Title: "Other", Content: "unrelated", StartDate: march, EndDate: march})
	require.NoError(t, err)

	jan, err := svc.ListForMonth(ctx, 2024, 1)
	require.NoError(t, err)
	require.Len(t, jan, 1)
	assert.Equal(t, "My_Plan", jan[0].ID)

	feb, err := svc.ListSummariesForMonth(ctx, 2024, 2)
	require.NoError(t, err)
	require.Len(t, feb, 1)
	assert.Equal(t, "My_Plan", feb[0].ID)

	_, err = svc.ListForMonth(ctx, 2024, 13)
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	hits, err := svc.SearchDocuments(ctx, "plan")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "My Plan", hits[0].Title)

	sums, err := svc.SearchSummaries(ctx, "UNRELATED")
	require.NoError(t, err)
	assert.Empty(t, sums, "summary search only looks at titles")

	fuzzy, err := svc.FuzzySearchSummaries(ctx, "mypln")
	require.NoError(t, err)
	require.Len(t, fuzzy, 1)
	assert.Equal(t, "My_Plan", fuzzy[0].ID)

	all, err := svc.ListSummaries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_FullTextSearch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.FullTextSearch(ctx, "x", 10)
	assert.True(t, errors.Is(err, apperr.ErrUnavailable))

	svc, _ = newService(t, WithCatalog(&fakeCatalog{}))
	res, err := svc.FullTextSearch(ctx, "x", 10)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestService_SetDocumentsFolder(t *testing.T) {
	ctx := context.Background()
	var notified []string
	svc, _ := newService(t, OnFolderChange(func(dir string) { notified = append(notified, dir) }))

	_, ok, err := svc.GetDocumentsFolder(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	target := filepath.Join(t.TempDir(), "docs")
	require.NoError(t, svc.SetDocumentsFolder(ctx, target))
	assert.Equal(t, []string{target}, notified)

	got, ok, err := svc.GetDocumentsFolder(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, target, got)

	doc, err := svc.CreateDocument(ctx, docstore.CreateInput{Title: "Here"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, doc.ID+docstore.ContentExt))

	err = svc.SetDocumentsFolder(ctx, "")
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	assert.Len(t, notified, 1)
}

func TestService_ExportICS(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, WithCalendarName("Work"))
	may := time.Date(2024, 5, 2, 9, 0, 0, 0, time.Local).UnixMilli()
	june := time.Date(2024, 6, 2, 9, 0, 0, 0, time.Local).UnixMilli()
	_, _ = svc.CreateDocument(ctx, docstore.CreateInput{Title: "May thing", StartDate: may, EndDate: may})
	_, _ = svc.CreateDocument(ctx, docstore.CreateInput{Title: "June thing", StartDate: june, EndDate: june})

	all, err := svc.ExportICS(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(all, "BEGIN:VEVENT"))
	assert.Contains(t, all, "X-WR-CALNAME:Work")

	mayOnly, err := svc.ExportICS(ctx, 2024, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(mayOnly, "BEGIN:VEVENT"))
	assert.Contains(t, mayOnly, "SUMMARY:May thing")
}
