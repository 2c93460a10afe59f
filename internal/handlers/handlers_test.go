package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	undiscoveredrepo "github.com/Farcas-Consult/rams-sub000/internal/repositories/undiscovered"
	"github.com/Farcas-Consult/rams-sub000/internal/services/asset"
	"github.com/Farcas-Consult/rams-sub000/internal/services/ingest"
	"github.com/Farcas-Consult/rams-sub000/internal/services/undiscovered"
	"github.com/Farcas-Consult/rams-sub000/pkg/lifecycle"
	"github.com/Farcas-Consult/rams-sub000/pkg/liveview"
	"github.com/Farcas-Consult/rams-sub000/pkg/middleware"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	undiscoveredpkg "github.com/Farcas-Consult/rams-sub000/pkg/undiscovered"
)

type fakeIngest struct {
	reads    []ingest.Read
	bindings map[string]string
}

func (f *fakeIngest) Ingest(_ context.Context, read ingest.Read) (*string, error) {
	f.reads = append(f.reads, read)
	if assetID, ok := f.bindings[read.EPC]; ok {
		return &assetID, nil
	}
	return nil, nil
}

func (f *fakeIngest) Associate(_ context.Context, a ingest.Association) (*models.TagBinding, error) {
	if a.AssetID == "missing" {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "asset not found")
	}
	if _, ok := f.bindings[a.EPC]; ok {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "epc %s is already bound", a.EPC)
	}
	f.bindings[a.EPC] = a.AssetID
	return &models.TagBinding{EPC: a.EPC, AssetID: a.AssetID}, nil
}

func (f *fakeIngest) Disassociate(_ context.Context, epc string) ([]string, error) {
	if _, ok := f.bindings[epc]; !ok {
		return nil, nil
	}
	delete(f.bindings, epc)
	return []string{epc}, nil
}

func (f *fakeIngest) DisassociateAsset(_ context.Context, assetID string) ([]string, error) {
	var removed []string
	for epc, owner := range f.bindings {
		if owner == assetID {
			removed = append(removed, epc)
			delete(f.bindings, epc)
		}
	}
	return removed, nil
}

func (f *fakeIngest) GetBinding(_ context.Context, epc string) (*models.TagBinding, error) {
	assetID, ok := f.bindings[epc]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "not bound")
	}
	return &models.TagBinding{EPC: epc, AssetID: assetID}, nil
}

func (f *fakeIngest) ListBindings(_ context.Context, assetID string) ([]*models.TagBinding, error) {
	var out []*models.TagBinding
	for epc, owner := range f.bindings {
		if owner == assetID {
			out = append(out, &models.TagBinding{EPC: epc, AssetID: owner})
		}
	}
	return out, nil
}

type fakeAssets struct {
	asset   models.Asset
	patches []lifecycle.Patch
	version *int
}

func (f *fakeAssets) Create(_ context.Context, input asset.NewAsset) (*models.Asset, error) {
	a := models.Asset{ID: "asset-1", AssetNumber: input.AssetNumber, Name: input.Name, Status: models.StatusActive, State: models.StateActive, Version: 1}
	return &a, nil
}

func (f *fakeAssets) Get(_ context.Context, idOrNumber string) (*models.Asset, error) {
	if idOrNumber != f.asset.ID && idOrNumber != f.asset.AssetNumber {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "asset not found")
	}
	a := f.asset
	return &a, nil
}

func (f *fakeAssets) Patch(_ context.Context, _ string, patch lifecycle.Patch, expectedVersion *int) (*models.Asset, error) {
	f.patches = append(f.patches, patch)
	f.version = expectedVersion
	next, err := lifecycle.ApplyPatch(f.asset, patch, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		return nil, err
	}
	return &next, nil
}

func (f *fakeAssets) Decommission(_ context.Context, _ string, reason *string, _ *int) (*models.Asset, error) {
	next := lifecycle.Decommission(f.asset, reason, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	return &next, nil
}

func (f *fakeAssets) Recommission(_ context.Context, _ string, _ *int) (*models.Asset, error) {
	if !f.asset.IsDecommissioned() {
		return nil, httperror.NewHTTPError(http.StatusConflict, "asset is not decommissioned")
	}
	next := lifecycle.Recommission(f.asset, time.Now())
	return &next, nil
}

type fakeLiveView struct {
	rows []liveview.Row
}

func (f *fakeLiveView) Snapshot(context.Context) ([]liveview.Row, error) {
	return f.rows, nil
}

type fakeUndiscovered struct {
	mapping   string
	rows      []map[string]any
	workbook  []byte
	source    *string
	promotion undiscovered.Promotion
}

func (f *fakeUndiscovered) Ingest(_ context.Context, mapping string, rows []map[string]any, source *string) ([]*models.UndiscoveredAsset, error) {
	f.mapping = mapping
	f.rows = rows
	f.source = source
	return []*models.UndiscoveredAsset{{ID: "u-1"}}, nil
}

func (f *fakeUndiscovered) Import(_ context.Context, mapping string, workbook io.Reader, source *string) ([]*models.UndiscoveredAsset, error) {
	f.mapping = mapping
	f.source = source
	data, err := io.ReadAll(workbook)
	if err != nil {
		return nil, err
	}
	f.workbook = data
	return []*models.UndiscoveredAsset{{ID: "u-1"}, {ID: "u-2"}}, nil
}

func (f *fakeUndiscovered) List(_ context.Context, filter undiscoveredrepo.ListFilter) ([]undiscovered.Listing, error) {
	description := "Forklift"
	record := &models.UndiscoveredAsset{
		ID:          "u-1",
		MappingName: "sap-v1",
		Status:      models.UndiscoveredStatusOpen,
		Record:      models.UndiscoveredRecord{MaterialDescription: &description},
	}
	if filter.Status == models.UndiscoveredStatusPromoted {
		return nil, nil
	}
	return []undiscovered.Listing{{UndiscoveredAsset: record, Projection: undiscoveredpkg.Project(record.Record)}}, nil
}

func (f *fakeUndiscovered) Promote(_ context.Context, id string, promotion undiscovered.Promotion) (*models.Asset, error) {
	f.promotion = promotion
	return &models.Asset{ID: "asset-9", AssetNumber: "10001", Name: "Forklift", Origin: models.OriginDiscovered, DiscoveryStatus: models.DiscoveryPendingReview, State: models.StateActive, Status: models.StatusActive}, nil
}

type testServer struct {
	echo         *echo.Echo
	ingest       *fakeIngest
	assets       *fakeAssets
	liveView     *fakeLiveView
	undiscovered *fakeUndiscovered
}

func newTestServer() *testServer {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	s := &testServer{
		echo:   echo.New(),
		ingest: &fakeIngest{bindings: map[string]string{"E1": "asset-1"}},
		assets: &fakeAssets{asset: models.Asset{
			ID:          "asset-1",
			AssetNumber: "EQ-1",
			Name:        "Forklift",
			Status:      models.StatusActive,
			State:       models.StateActive,
			Version:     1,
		}},
		liveView:     &fakeLiveView{},
		undiscovered: &fakeUndiscovered{},
	}
	s.echo.HTTPErrorHandler = middleware.Error(logger)
	s.echo.Use(middleware.Context())

	api := s.echo.Group("/api/v1")
	NewReadHandler(s.ingest, logger).Register(api)
	NewAssetHandler(s.assets, logger).Register(api)
	NewLiveViewHandler(s.liveView, logger).Register(api)
	NewUndiscoveredHandler(s.undiscovered, logger).Register(api)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestIngestRead(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/reads", map[string]any{"epc": "E1", "gate": "G1"}, middleware.HeaderReaderID, "reader-7")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"assetId":"asset-1"}`, rec.Body.String())

	require.Len(t, s.ingest.reads, 1)
	require.NotNil(t, s.ingest.reads[0].ReaderID)
	assert.Equal(t, "reader-7", *s.ingest.reads[0].ReaderID)

	rec = s.do(t, http.MethodPost, "/api/v1/reads", map[string]any{"epc": "E2", "timestamp": "2024-05-01T10:05:00Z"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"assetId":null}`, rec.Body.String())
	require.NotNil(t, s.ingest.reads[1].Timestamp)
	assert.True(t, s.ingest.reads[1].Timestamp.Equal(time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)))
}

func TestIngestRead_MissingEPC(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/reads", map[string]any{"gate": "G1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, s.ingest.reads)
}

func TestAssociate(t *testing.T) {
	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{name: "created", body: map[string]any{"epc": "E5", "assetId": "asset-1", "locationId": "Bay 1"}, status: http.StatusCreated},
		{name: "already bound", body: map[string]any{"epc": "E1", "assetId": "asset-1"}, status: http.StatusConflict},
		{name: "unknown asset", body: map[string]any{"epc": "E6", "assetId": "missing"}, status: http.StatusNotFound},
		{name: "missing asset id", body: map[string]any{"epc": "E6"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			rec := s.do(t, http.MethodPost, "/api/v1/tag-bindings", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	s := newTestServer()
	rec := s.do(t, http.MethodPost, "/api/v1/tag-bindings", map[string]any{"epc": "E5", "assetId": "asset-1", "locationId": "Bay 1"})
	body := decode[TagBindingResponse](t, rec)
	assert.Equal(t, "E5", body.EPC)
	require.NotNil(t, body.LocationID)
	assert.Equal(t, "Bay 1", *body.LocationID)
}

func TestDisassociate(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodDelete, "/api/v1/tag-bindings/E1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":["E1"]}`, rec.Body.String())

	rec = s.do(t, http.MethodDelete, "/api/v1/tag-bindings/E1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":[]}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/tag-bindings/E1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDisassociateAsset(t *testing.T) {
	s := newTestServer()
	s.ingest.bindings["E2"] = "asset-1"

	rec := s.do(t, http.MethodGet, "/api/v1/assets/asset-1/tag-bindings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]TagBindingResponse](t, rec), 2)

	rec = s.do(t, http.MethodDelete, "/api/v1/assets/asset-1/tag-bindings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"E1", "E2"}, decode[DisassociateResponse](t, rec).Removed)
}

func TestLiveView(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodGet, "/api/v1/live-view", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assetID := "asset-1"
	s.liveView.rows = []liveview.Row{{
		AssetID:    &assetID,
		EPC:        "E1",
		LastSeenAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Direction:  models.DirectionIn,
	}}
	rec = s.do(t, http.MethodGet, "/api/v1/live-view", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rows := decode[[]map[string]any](t, rec)
	require.Len(t, rows, 1)
	assert.Equal(t, "asset-1", rows[0]["assetId"])
	assert.Equal(t, "2024-05-01T10:00:00Z", rows[0]["lastSeenAt"])
	assert.Equal(t, "in", rows[0]["direction"])
	assert.Nil(t, rows[0]["gate"])
}

func TestAssetEndpoints(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/assets", map[string]any{"assetNumber": "EQ-2", "name": "Reach truck"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "EQ-2", decode[AssetResponse](t, rec).AssetNumber)

	rec = s.do(t, http.MethodPost, "/api/v1/assets", map[string]any{"assetNumber": "EQ-3", "name": "x", "origin": "stolen"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/assets/EQ-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "asset-1", decode[AssetResponse](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/api/v1/assets/EQ-404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPatchAsset_Decommissions(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPatch, "/api/v1/assets/asset-1", map[string]any{"status": "Decommissioned", "expectedVersion": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[AssetResponse](t, rec)
	assert.True(t, body.IsDecommissioned)
	assert.Equal(t, models.StatusDecommissioned, body.Status)
	require.NotNil(t, body.DecommissionedAt)

	require.NotNil(t, s.assets.version)
	assert.Equal(t, 1, *s.assets.version)
	require.Len(t, s.assets.patches, 1)
	assert.Nil(t, s.assets.patches[0].IsDecommissioned)

	rec = s.do(t, http.MethodPatch, "/api/v1/assets/asset-1", map[string]any{"discoveryStatus": "misplaced"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecommissionAndRecommission(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/assets/asset-1/decommission", map[string]any{"reason": "scrapped"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[AssetResponse](t, rec)
	assert.True(t, body.IsDecommissioned)
	require.NotNil(t, body.DecommissionReason)
	assert.Equal(t, "scrapped", *body.DecommissionReason)

	rec = s.do(t, http.MethodPost, "/api/v1/assets/asset-1/recommission", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUndiscoveredIngestAndList(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/undiscovered-assets?mapping=sap-v1", map[string]any{
		"source": "feed-1",
		"rows":   []map[string]any{{"Equipment": "10001"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "sap-v1", s.undiscovered.mapping)
	assert.Len(t, s.undiscovered.rows, 1)
	assert.Equal(t, 1, decode[ImportResponse](t, rec).Count)

	rec = s.do(t, http.MethodPost, "/api/v1/undiscovered-assets", map[string]any{"rows": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/undiscovered-assets?status=undiscovered", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]UndiscoveredResponse](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, "Forklift", listed[0].Name)
	assert.Nil(t, listed[0].Location)

	rec = s.do(t, http.MethodGet, "/api/v1/undiscovered-assets?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUndiscoveredImport(t *testing.T) {
	s := newTestServer()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "feed.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("xlsx-bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/undiscovered-assets/import?mapping=sap-v1", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[ImportResponse](t, rec).Count)
	assert.Equal(t, "xlsx-bytes", string(s.undiscovered.workbook))
	require.NotNil(t, s.undiscovered.source)
	assert.Equal(t, "feed.xlsx", *s.undiscovered.source)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/undiscovered-assets/import", strings.NewReader(""))
	rec = httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUndiscoveredPromote(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/undiscovered-assets/u-1/promote", map[string]any{"category": "Vehicles"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode[AssetResponse](t, rec)
	assert.Equal(t, models.OriginDiscovered, body.Origin)
	assert.Equal(t, models.DiscoveryPendingReview, body.DiscoveryStatus)
	require.NotNil(t, s.undiscovered.promotion.Category)
	assert.Equal(t, "Vehicles", *s.undiscovered.promotion.Category)
}
