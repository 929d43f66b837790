package agent_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	"github.com/mohamedirsath07/ExpireGuard/internal/install"
	"github.com/mohamedirsath07/ExpireGuard/internal/ocr"
	"github.com/mohamedirsath07/ExpireGuard/services/agent"
)

func newAPI(t *testing.T, f *fixture, scanner *ocr.Client) http.Handler {
	t.Helper()
	api := agent.NewAPI(f.agent, f.provider, scanner, 0.5, discardLogger)
	return api.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestAPI_GetNotifications(t *testing.T) {
	f := newFixture(t, expiring("Milk", 2))
	_, err := f.agent.Evaluate(context.Background(), false)
	require.NoError(t, err)
	h := newAPI(t, f, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp agent.NotificationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Milk", resp.Records[0].ItemName)
	require.NotNil(t, resp.EvaluatedAt)
}

func TestAPI_EvaluateForceBypassesRateLimit(t *testing.T) {
	f := newFixture(t, expiring("Milk", 1))
	h := newAPI(t, f, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/notifications/evaluate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, f.surface.count())

	// Inside the window a plain evaluate does not push again...
	rec = doJSON(t, h, http.MethodPost, "/api/v1/notifications/evaluate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.surface.count())

	// ...but force does.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/notifications/evaluate?force=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, f.surface.count())
}

func TestAPI_EvaluateInventoryDown(t *testing.T) {
	f := newFixture(t)
	f.provider.err = assertableError("inventory down")
	h := newAPI(t, f, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/notifications/evaluate", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAPI_UpdateFlow(t *testing.T) {
	f := newFixture(t)
	h := newAPI(t, f, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/update", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status agent.UpdateStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.UpdateAvailable)

	// No waiting generation: activation conflicts.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/update/activate", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// A generation parks in the waiting slot; the agent sees it on mount.
	require.NoError(t, f.state.SetWaitingVersion(context.Background(), 2))
	f.agent.Notifier().Mount(context.Background())

	rec = doJSON(t, h, http.MethodGet, "/api/v1/update", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.UpdateAvailable)
	assert.Equal(t, 2, status.WaitingVersion)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/update/activate", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/update/dismiss", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAPI_InstallFlow(t *testing.T) {
	f := newFixture(t)
	h := newAPI(t, f, nil)

	// Nothing captured yet.
	rec := doJSON(t, h, http.MethodPost, "/api/v1/install/prompt", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.agent.Installer().Capture(context.Background(), &install.Prompt{
		Trigger: func(context.Context) (bool, error) { return true, nil },
	})

	rec = doJSON(t, h, http.MethodGet, "/api/v1/install", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status agent.InstallStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.CanInstall)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/install/prompt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accepted":true}`, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/v1/install", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Installed)
}

func TestAPI_ItemsCRUD(t *testing.T) {
	f := newFixture(t)
	h := newAPI(t, f, nil)

	rec := doJSON(t, h, http.MethodGet, "/api/v1/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = doJSON(t, h, http.MethodPost, "/api/v1/items",
		`{"name":"Milk","expiryDate":"2026-09-02","category":"Groceries"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.InventoryItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/items/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/v1/items/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_CreateItemValidation(t *testing.T) {
	f := newFixture(t)
	h := newAPI(t, f, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/items", `{"category":"Groceries"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/v1/items", `{"name":"Milk","category":"Weapons"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// A malformed expiry date is tolerated: the item is stored without one.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/items", `{"name":"Milk","expiryDate":"whenever"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created domain.InventoryItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.ExpiryDate.IsZero())
}

func TestAPI_Scan(t *testing.T) {
	ocrSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"expiryDate":"2026-12-01","confidence":0.3}`))
	}))
	defer ocrSrv.Close()

	f := newFixture(t)
	scanner := ocr.NewClient(ocrSrv.URL, 5*time.Second, discardLogger)
	h := newAPI(t, f, scanner)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "label.jpg")
	require.NoError(t, err)
	part.Write([]byte("jpeg-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp agent.ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.True(t, resp.NeedsVerification, "confidence 0.3 is below the 0.5 threshold")
}

func TestAPI_ScanNotConfigured(t *testing.T) {
	f := newFixture(t)
	h := newAPI(t, f, nil)

	rec := doJSON(t, h, http.MethodPost, "/api/v1/scan", "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

type assertableError string

func (e assertableError) Error() string { return string(e) }
