package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheMichaelB/nextsync/internal/models"
)

func TestAllowsKeepAsIs(t *testing.T) {
	allowed := map[models.ConflictType]bool{
		models.ConflictBothChanged:               true,
		models.ConflictBothNew:                   true,
		models.ConflictBothDeleted:               false,
		models.ConflictLocalDeletedRemoteChanged: false,
		models.ConflictRemoteDeletedLocalChanged: false,
		models.ConflictLocalOnly:                 false,
		models.ConflictRemoteOnly:                false,
	}

	for ct, want := range allowed {
		t.Run(string(ct), func(t *testing.T) {
			assert.Equal(t, want, ct.AllowsKeepAsIs())
		})
	}
}

func TestNewConflictDetail(t *testing.T) {
	detail := models.NewConflictDetail("folder-1", "docs/report.docx", models.ConflictBothChanged)

	assert.NotEmpty(t, detail.ID)
	assert.Equal(t, "folder-1", detail.FolderID)
	assert.Equal(t, models.SolutionUnresolved, detail.Solution)
	assert.False(t, detail.IsError)
	assert.False(t, detail.Resolved)
	assert.False(t, detail.CreatedAt.IsZero())
}

func TestNewErrorDetail(t *testing.T) {
	detail := models.NewErrorDetail("folder-1", "docs/report.docx", "upload failed")

	assert.True(t, detail.IsError)
	assert.Equal(t, "upload failed", detail.Message)
	assert.Empty(t, detail.Type)
}

func TestFolderSyncInfoValidate(t *testing.T) {
	folder := models.NewFolderSyncInfo("/home/user/docs", "/Documents")
	assert.NoError(t, folder.Validate())

	folder.LocalPath = ""
	assert.Error(t, folder.Validate())

	folder = models.NewFolderSyncInfo("/a", "/b")
	folder.Status = "bogus"
	assert.Error(t, folder.Validate())
}
