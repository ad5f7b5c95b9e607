package gamebook

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gamebook/app/internal/db"
)

func TestNewRepositoryRequiresDatabase(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(nil, nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestExampleScenario(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	first, err := repo.CreatePage(ctx)
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	if err := repo.UpdatePageBody(ctx, first.ID, "Welcome"); err != nil {
		t.Fatalf("UpdatePageBody returned error: %v", err)
	}

	link, err := repo.CreateLink(ctx, first.ID)
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if link.FromPageID != first.ID || link.ToPageID != first.ID || link.Text != "" {
		t.Fatalf("expected blank self-link on page %d, got %#v", first.ID, link)
	}

	second, err := repo.CreatePage(ctx)
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	if err := repo.UpdateLinkToPageID(ctx, link.ID, second.ID); err != nil {
		t.Fatalf("UpdateLinkToPageID returned error: %v", err)
	}
	if err := repo.UpdateLinkText(ctx, link.ID, "Continue"); err != nil {
		t.Fatalf("UpdateLinkText returned error: %v", err)
	}

	refetched, err := repo.GetPage(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetPage returned error: %v", err)
	}
	if refetched.Body != "Welcome" {
		t.Fatalf("expected body Welcome, got %q", refetched.Body)
	}
	if len(refetched.Links) != 1 {
		t.Fatalf("expected exactly one link, got %d", len(refetched.Links))
	}
	if refetched.Links[0].ToPageID != second.ID || refetched.Links[0].Text != "Continue" {
		t.Fatalf("expected link to page %d labelled Continue, got %#v", second.ID, refetched.Links[0])
	}

	if err := repo.UpdatePageIsEnding(ctx, second.ID, true); err != nil {
		t.Fatalf("UpdatePageIsEnding returned error: %v", err)
	}

	ending, err := repo.GetPage(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetPage returned error: %v", err)
	}
	if !ending.IsEnding {
		t.Fatalf("expected page %d to be an ending", second.ID)
	}
	if len(ending.Links) != 0 {
		t.Fatalf("expected no links on the ending page, got %d", len(ending.Links))
	}
}

func TestCreatePageAssignsIncreasingIDs(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 3; i++ {
		page, err := repo.CreatePage(ctx)
		if err != nil {
			t.Fatalf("CreatePage returned error: %v", err)
		}
		if page.ID <= last {
			t.Fatalf("expected id greater than %d, got %d", last, page.ID)
		}
		if page.Body != "" || page.IsEnding {
			t.Fatalf("expected blank non-ending page, got %#v", page)
		}
		last = page.ID
	}

	pages, err := repo.ListPages(ctx)
	if err != nil {
		t.Fatalf("ListPages returned error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	for i := 1; i < len(pages); i++ {
		if pages[i-1].ID >= pages[i].ID {
			t.Fatalf("expected pages ordered by id, got %d before %d", pages[i-1].ID, pages[i].ID)
		}
	}

	count, err := repo.CountPages(ctx)
	if err != nil {
		t.Fatalf("CountPages returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
}

func TestDeletePageLeavesLinksDangling(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	source := mustCreatePage(t, repo)
	target := mustCreatePage(t, repo)

	link, err := repo.CreateLink(ctx, source.ID)
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	if err := repo.UpdateLinkToPageID(ctx, link.ID, target.ID); err != nil {
		t.Fatalf("UpdateLinkToPageID returned error: %v", err)
	}

	outbound, err := repo.CreateLink(ctx, target.ID)
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}

	if err := repo.DeletePage(ctx, target.ID); err != nil {
		t.Fatalf("DeletePage returned error: %v", err)
	}

	if _, err := repo.GetPage(ctx, target.ID); !eris.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}

	stored, err := repo.GetLink(ctx, link.ID)
	if err != nil {
		t.Fatalf("expected link to survive page deletion, got %v", err)
	}
	if stored.ToPageID != target.ID {
		t.Fatalf("expected link to still target %d, got %d", target.ID, stored.ToPageID)
	}

	if _, err := repo.GetLink(ctx, outbound.ID); err != nil {
		t.Fatalf("expected outbound link of deleted page to survive, got %v", err)
	}

	dangling, err := repo.ListDanglingLinks(ctx)
	if err != nil {
		t.Fatalf("ListDanglingLinks returned error: %v", err)
	}
	if len(dangling) != 2 {
		t.Fatalf("expected 2 dangling links, got %d", len(dangling))
	}
	if dangling[0].ID != link.ID || dangling[1].ID != outbound.ID {
		t.Fatalf("expected dangling links %d and %d, got %#v", link.ID, outbound.ID, dangling)
	}
}

func TestListLinksFromOrdersByID(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	page := mustCreatePage(t, repo)
	other := mustCreatePage(t, repo)

	var ids []int64
	for i := 0; i < 3; i++ {
		link, err := repo.CreateLink(ctx, page.ID)
		if err != nil {
			t.Fatalf("CreateLink returned error: %v", err)
		}
		ids = append(ids, link.ID)
	}
	if _, err := repo.CreateLink(ctx, other.ID); err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}

	links, err := repo.ListLinksFrom(ctx, page.ID)
	if err != nil {
		t.Fatalf("ListLinksFrom returned error: %v", err)
	}
	if len(links) != len(ids) {
		t.Fatalf("expected %d links, got %d", len(ids), len(links))
	}
	for i, id := range ids {
		if links[i].ID != id {
			t.Fatalf("expected link %d at index %d, got %d", id, i, links[i].ID)
		}
	}

	empty, err := repo.ListLinksFrom(ctx, 999)
	if err != nil {
		t.Fatalf("ListLinksFrom returned error: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no links for unknown page, got %d", len(empty))
	}
}

func TestGetPageLinksMatchListLinksFrom(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	page := mustCreatePage(t, repo)
	target := mustCreatePage(t, repo)

	for _, text := range []string{"North", "", "South"} {
		link, err := repo.CreateLink(ctx, page.ID)
		if err != nil {
			t.Fatalf("CreateLink returned error: %v", err)
		}
		if err := repo.UpdateLinkText(ctx, link.ID, text); err != nil {
			t.Fatalf("UpdateLinkText returned error: %v", err)
		}
		if err := repo.UpdateLinkToPageID(ctx, link.ID, target.ID); err != nil {
			t.Fatalf("UpdateLinkToPageID returned error: %v", err)
		}
	}

	stored, err := repo.GetPage(ctx, page.ID)
	if err != nil {
		t.Fatalf("GetPage returned error: %v", err)
	}
	links, err := repo.ListLinksFrom(ctx, page.ID)
	if err != nil {
		t.Fatalf("ListLinksFrom returned error: %v", err)
	}

	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}
	if !reflect.DeepEqual(stored.Links, links) {
		t.Fatalf("expected page links %#v, got %#v", links, stored.Links)
	}
}

func TestPageUpdatesLeaveOtherPagesUntouched(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	edited := mustCreatePage(t, repo)
	other := mustCreatePage(t, repo)

	if err := repo.UpdatePageBody(ctx, edited.ID, "The bridge collapses."); err != nil {
		t.Fatalf("UpdatePageBody returned error: %v", err)
	}
	if err := repo.UpdatePageIsEnding(ctx, edited.ID, true); err != nil {
		t.Fatalf("UpdatePageIsEnding returned error: %v", err)
	}

	updated, err := repo.GetPage(ctx, edited.ID)
	if err != nil {
		t.Fatalf("GetPage returned error: %v", err)
	}
	if updated.Body != "The bridge collapses." || !updated.IsEnding {
		t.Fatalf("expected edited page to be an ending with new body, got %#v", updated)
	}

	untouched, err := repo.GetPage(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetPage returned error: %v", err)
	}
	if untouched.Body != "" || untouched.IsEnding {
		t.Fatalf("expected page %d to stay blank and non-ending, got %#v", other.ID, untouched)
	}
}

func TestMutationsReportMissingRows(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	checks := map[string]struct {
		run    func() error
		expect error
	}{
		"update body":    {run: func() error { return repo.UpdatePageBody(ctx, 42, "x") }, expect: ErrPageNotFound},
		"update ending":  {run: func() error { return repo.UpdatePageIsEnding(ctx, 42, true) }, expect: ErrPageNotFound},
		"delete page":    {run: func() error { return repo.DeletePage(ctx, 42) }, expect: ErrPageNotFound},
		"update text":    {run: func() error { return repo.UpdateLinkText(ctx, 42, "x") }, expect: ErrLinkNotFound},
		"update target":  {run: func() error { return repo.UpdateLinkToPageID(ctx, 42, 1) }, expect: ErrLinkNotFound},
		"delete link":    {run: func() error { return repo.DeleteLink(ctx, 42) }, expect: ErrLinkNotFound},
		"first page id":  {run: func() error { _, err := repo.FirstPageID(ctx); return err }, expect: ErrNoPages},
		"get link":       {run: func() error { _, err := repo.GetLink(ctx, 42); return err }, expect: ErrLinkNotFound},
		"get page":       {run: func() error { _, err := repo.GetPage(ctx, 42); return err }, expect: ErrPageNotFound},
	}

	for name, check := range checks {
		if err := check.run(); !eris.Is(err, check.expect) {
			t.Fatalf("%s: expected %v, got %v", name, check.expect, err)
		}
	}
}

func TestUpdatePageBodyAcceptsUnchangedValue(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	page := mustCreatePage(t, repo)
	if err := repo.UpdatePageBody(ctx, page.ID, ""); err != nil {
		t.Fatalf("expected rewrite of unchanged body to succeed, got %v", err)
	}
}

func TestFirstPageIDReturnsLowest(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	first := mustCreatePage(t, repo)
	second := mustCreatePage(t, repo)

	if err := repo.DeletePage(ctx, first.ID); err != nil {
		t.Fatalf("DeletePage returned error: %v", err)
	}

	id, err := repo.FirstPageID(ctx)
	if err != nil {
		t.Fatalf("FirstPageID returned error: %v", err)
	}
	if id != second.ID {
		t.Fatalf("expected first page %d, got %d", second.ID, id)
	}
}

func TestDeleteLinkRemovesOnlyThatLink(t *testing.T) {
	t.Parallel()

	repo, _ := setupRepository(t)
	ctx := context.Background()

	page := mustCreatePage(t, repo)
	keep, err := repo.CreateLink(ctx, page.ID)
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}
	drop, err := repo.CreateLink(ctx, page.ID)
	if err != nil {
		t.Fatalf("CreateLink returned error: %v", err)
	}

	if err := repo.DeleteLink(ctx, drop.ID); err != nil {
		t.Fatalf("DeleteLink returned error: %v", err)
	}

	links, err := repo.ListLinksFrom(ctx, page.ID)
	if err != nil {
		t.Fatalf("ListLinksFrom returned error: %v", err)
	}
	if len(links) != 1 || links[0].ID != keep.ID {
		t.Fatalf("expected only link %d to remain, got %#v", keep.ID, links)
	}
}

func TestStorageFailuresAreTyped(t *testing.T) {
	t.Parallel()

	repo, gormDB := setupRepository(t)
	ctx := context.Background()

	if err := db.Close(gormDB); err != nil {
		t.Fatalf("closing database failed: %v", err)
	}

	_, err := repo.ListPages(ctx)
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected *StorageError, got %T: %v", err, err)
	}
	if storageErr.Op != "list pages" {
		t.Fatalf("expected op 'list pages', got %q", storageErr.Op)
	}

	if _, err := repo.CreatePage(ctx); !errors.As(err, &storageErr) {
		t.Fatalf("expected *StorageError from CreatePage, got %v", err)
	}
}

func mustCreatePage(t *testing.T, repo *GormRepository) *Page {
	t.Helper()

	page, err := repo.CreatePage(context.Background())
	if err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}
	return page
}

func setupRepository(t *testing.T) (*GormRepository, *gorm.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repo.db")
	gormDB, err := db.Open(db.Options{Path: path})
	if err != nil {
		t.Fatalf("db.Open returned error: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(gormDB); closeErr != nil {
			t.Fatalf("closing database failed: %v", closeErr)
		}
	})

	logger := silentLogger()

	if err := Migrate(context.Background(), gormDB, logger); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}

	repo, err := NewRepository(gormDB, logger)
	if err != nil {
		t.Fatalf("NewRepository returned error: %v", err)
	}

	return repo, gormDB
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
