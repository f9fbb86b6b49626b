package handlers

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestBuildBreadcrumb_StopsAtMissingAncestor(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	h := CreateTestHandler(tc.DB, newFakeBlobStore())

	// C's parent B exists, but B's parent is gone (deleted or corrupted):
	// the walk returns what it reached.
	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, parent_id FROM file_entries`)).
		WithArgs("folder-c", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id"}).AddRow("folder-c", "C", "folder-b"))
	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, parent_id FROM file_entries`)).
		WithArgs("folder-b", "user-1").
		WillReturnError(errNoRows())

	path, err := h.buildBreadcrumb("folder-c", "user-1")
	if err != nil {
		t.Fatalf("buildBreadcrumb returned error: %v", err)
	}

	if len(path) != 1 || path[0].ID != "folder-c" {
		t.Errorf("Expected partial path [C], got %+v", path)
	}
}

func TestBuildBreadcrumb_DepthThree(t *testing.T) {
	tc := SetupTest(t)
	defer tc.Cleanup()

	h := CreateTestHandler(tc.DB, newFakeBlobStore())

	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, parent_id FROM file_entries`)).
		WithArgs("folder-c", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id"}).AddRow("folder-c", "C", "folder-b"))
	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, parent_id FROM file_entries`)).
		WithArgs("folder-b", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id"}).AddRow("folder-b", "B", "folder-a"))
	tc.Mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, parent_id FROM file_entries`)).
		WithArgs("folder-a", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "parent_id"}).AddRow("folder-a", "A", nil))

	path, err := h.buildBreadcrumb("folder-c", "user-1")
	if err != nil {
		t.Fatalf("buildBreadcrumb returned error: %v", err)
	}

	if len(path) != 3 {
		t.Fatalf("Expected depth 3, got %d", len(path))
	}
	want := []string{"A", "B", "C"}
	for i, seg := range path {
		if seg.Name != want[i] {
			t.Errorf("path[%d] = %s, want %s", i, seg.Name, want[i])
		}
	}
}
