package service

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talentflow/ats-offer-api/pkg/config"
	"github.com/talentflow/ats-offer-api/pkg/export"
)

type stubAuditExporter struct{}

func (stubAuditExporter) Export(ctx context.Context, applicationID string) (string, error) {
	return `{"applicationId":"` + applicationID + `"}`, nil
}

func (stubAuditExporter) ExportDataset(ctx context.Context, applicationID string) (export.Dataset, error) {
	return export.Dataset{
		Headers: []string{"Timestamp", "Event"},
		Rows:    []map[string]string{{"Timestamp": "2026-01-01T00:00:00Z", "Event": "offer_accepted"}},
	}, nil
}

func newTestArchive(t *testing.T) *ExportArchiveService {
	svc, err := NewExportArchiveService(stubAuditExporter{}, config.ExportsConfig{
		Dir:           t.TempDir(),
		SigningSecret: "secret",
		DownloadTTL:   time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestExportArchiveRoundTrip(t *testing.T) {
	svc := newTestArchive(t)

	archived, err := svc.Archive(context.Background(), "app-1", "json")
	require.NoError(t, err)
	assert.NotEmpty(t, archived.Token)
	assert.Contains(t, archived.Filename, "app-1")

	file, name, err := svc.Open(archived.Token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, archived.Filename, name)

	raw, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"applicationId":"app-1"`)
}

func TestExportArchiveCSV(t *testing.T) {
	svc := newTestArchive(t)

	archived, err := svc.Archive(context.Background(), "app-1", "csv")
	require.NoError(t, err)

	file, _, err := svc.Open(archived.Token)
	require.NoError(t, err)
	defer file.Close()

	raw, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Timestamp,Event")
	assert.Contains(t, string(raw), "offer_accepted")
}

func TestExportArchiveRejectsUnknownFormat(t *testing.T) {
	svc := newTestArchive(t)

	_, err := svc.Archive(context.Background(), "app-1", "xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")
}

func TestExportArchiveCleanupRemovesExpired(t *testing.T) {
	svc := newTestArchive(t)

	archived, err := svc.Archive(context.Background(), "app-1", "json")
	require.NoError(t, err)

	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(svc.store.Path(archived.Filename), stale, stale))

	removed, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, _, err = svc.Open(archived.Token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export no longer available")
}

func TestExportArchiveRejectsForgedToken(t *testing.T) {
	svc := newTestArchive(t)

	_, _, err := svc.Open("not.a.valid.token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid or expired download token")
}
