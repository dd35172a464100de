package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sangkips/pharmacy-invoice/internal/application/service"
	"github.com/sangkips/pharmacy-invoice/internal/config"
	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
	"github.com/sangkips/pharmacy-invoice/internal/infrastructure/repository"
	"github.com/sangkips/pharmacy-invoice/internal/infrastructure/storage"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/handler"
	"github.com/sangkips/pharmacy-invoice/internal/presentation/http/routes"
	"github.com/sangkips/pharmacy-invoice/pkg/metrics"
	"github.com/sangkips/pharmacy-invoice/pkg/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "catalog.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry, "test")
	repo := repository.NewCatalogRepository(store, zerolog.Nop(), m)
	catalog := service.NewCatalogService(repo, m, zerolog.Nop())
	invoices := service.NewInvoiceService(catalog, time.Hour, time.Hour, m, zerolog.Nop())
	exports := service.NewExportService(invoices, catalog, service.ExportConfig{
		Renderer:  pdf.NewRenderer(nil, pdf.Header{StoreName: "Pharmacy"}),
		CharWidth: 32,
		Header:    entity.ReceiptHeader{StoreName: "Pharmacy"},
	}, m, zerolog.Nop())
	backups := service.NewBackupService(store, t.TempDir(), zerolog.Nop())

	cfg := &config.Config{App: config.AppConfig{Name: "pharmacy-test"}}
	return routes.Setup(&routes.Handlers{
		Patient: handler.NewPatientHandler(catalog),
		Product: handler.NewProductHandler(catalog),
		Invoice: handler.NewInvoiceHandler(invoices),
		Export:  handler.NewExportHandler(exports),
		Backup:  handler.NewBackupHandler(backups),
	}, &routes.Deps{
		Cfg:          cfg,
		Logger:       zerolog.Nop(),
		Gatherer:     registry,
		OpenSessions: invoices.OpenCount,
	})
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "application/pdf" && w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestPatientLifecycle(t *testing.T) {
	r := setupRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/v1/patients", gin.H{"name": "  Sara  "})
	require.Equal(t, http.StatusCreated, w.Code)
	patient := decode[entity.Patient](t, env.Data)
	assert.Equal(t, "Sara", patient.Name)

	w, _ = do(t, r, http.MethodPost, "/api/v1/patients", gin.H{"name": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env = do(t, r, http.MethodPost, "/api/v1/patients", gin.H{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, string(env.Errors), "name")

	w, env = do(t, r, http.MethodPut, "/api/v1/patients/"+patient.ID, gin.H{"name": "Sara K"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sara K", decode[entity.Patient](t, env.Data).Name)

	w, env = do(t, r, http.MethodGet, "/api/v1/patients?search=sara", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []entity.Patient `json:"items"`
	}](t, env.Data)
	assert.Len(t, list.Items, 1)

	w, _ = do(t, r, http.MethodDelete, "/api/v1/patients/"+patient.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, r, http.MethodDelete, "/api/v1/patients/"+patient.ID+"?confirm=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, "/api/v1/patients/"+patient.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductValidation(t *testing.T) {
	r := setupRouter(t)

	w, _ := do(t, r, http.MethodPost, "/api/v1/products", gin.H{"name": "Panadol"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = do(t, r, http.MethodPost, "/api/v1/products", gin.H{"name": "Panadol", "price": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w, _ = do(t, r, http.MethodPost, "/api/v1/products", gin.H{"name": "Panadol", "price": 1e308})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env := do(t, r, http.MethodPost, "/api/v1/products", gin.H{"name": "Panadol", "price": 0})
	require.Equal(t, http.StatusCreated, w.Code)
	product := decode[entity.Product](t, env.Data)

	w, env = do(t, r, http.MethodPut, "/api/v1/products/"+product.ID, gin.H{"price": 12.5})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[entity.Product](t, env.Data)
	assert.Equal(t, "Panadol", updated.Name)
	assert.Equal(t, 12.5, updated.Price)

	w, _ = do(t, r, http.MethodPost, "/api/v1/products", "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceWorkflow(t *testing.T) {
	r := setupRouter(t)

	_, env := do(t, r, http.MethodPost, "/api/v1/patients", gin.H{"name": "Omar"})
	patient := decode[entity.Patient](t, env.Data)
	_, env = do(t, r, http.MethodPost, "/api/v1/products", gin.H{"name": "A", "price": 10})
	productA := decode[entity.Product](t, env.Data)
	_, env = do(t, r, http.MethodPost, "/api/v1/products", gin.H{"name": "B", "price": 20})
	productB := decode[entity.Product](t, env.Data)

	w, env := do(t, r, http.MethodPost, "/api/v1/invoices", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	inv := decode[entity.InvoiceSnapshot](t, env.Data)
	assert.Empty(t, inv.Items)
	base := "/api/v1/invoices/" + inv.ID

	// saving with no patient selected is refused
	w, _ = do(t, r, http.MethodPost, base+"/save", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, r, http.MethodPut, base+"/patient", gin.H{"patient_id": patient.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[entity.InvoiceSnapshot](t, env.Data).Items)

	w, _ = do(t, r, http.MethodPost, base+"/items", gin.H{"product_id": productA.ID})
	require.Equal(t, http.StatusOK, w.Code)

	// booleans are not numbers
	w, env = do(t, r, http.MethodPatch, base+"/items/"+productA.ID, gin.H{"quantity": true, "discount": true})
	require.Equal(t, http.StatusOK, w.Code)
	inv = decode[entity.InvoiceSnapshot](t, env.Data)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 0, inv.Items[0].Quantity)
	assert.Equal(t, 0.0, inv.Items[0].Discount)

	w, env = do(t, r, http.MethodPatch, base+"/items/"+productA.ID, gin.H{"quantity": "3", "discount": 10})
	require.Equal(t, http.StatusOK, w.Code)
	inv = decode[entity.InvoiceSnapshot](t, env.Data)
	require.Len(t, inv.Items, 1)
	assert.Equal(t, 3, inv.Items[0].Quantity)
	assert.Equal(t, 27.0, inv.Totals.GrandTotal)

	w, _ = do(t, r, http.MethodPost, base+"/save", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/v1/patients/"+patient.ID+"/medications", nil)
	require.Equal(t, http.StatusOK, w.Code)
	meds := decode[[]entity.PatientMedicationView](t, env.Data)
	require.Len(t, meds, 1)
	assert.Equal(t, productA.ID, meds[0].ProductID)
	assert.Equal(t, 3, meds[0].Quantity)

	w, env = do(t, r, http.MethodPut, base+"/patient", gin.H{"patient_id": entity.AllPatients})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[entity.InvoiceSnapshot](t, env.Data).Items, 2)

	w, env = do(t, r, http.MethodGet, base+"/totals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30.0, decode[entity.Totals](t, env.Data).Subtotal)

	w, env = do(t, r, http.MethodDelete, base+"/items/"+productB.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[entity.InvoiceSnapshot](t, env.Data).Items, 1)

	w, _ = do(t, r, http.MethodPatch, base+"/items/"+productB.ID, gin.H{"quantity": 2})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPut, base+"/patient", gin.H{"patient_id": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPut, base+"/patient", gin.H{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = do(t, r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, r, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportEndpoints(t *testing.T) {
	r := setupRouter(t)

	_, env := do(t, r, http.MethodPost, "/api/v1/products", gin.H{"name": "Vitamin C", "price": 5})
	require.NotEmpty(t, decode[entity.Product](t, env.Data).ID)
	_, env = do(t, r, http.MethodPost, "/api/v1/invoices", nil)
	inv := decode[entity.InvoiceSnapshot](t, env.Data)
	base := "/api/v1/invoices/" + inv.ID
	do(t, r, http.MethodPut, base+"/patient", gin.H{"patient_id": entity.AllPatients})

	w, _ := do(t, r, http.MethodGet, base+"/pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w, env = do(t, r, http.MethodPost, base+"/print", nil)
	require.Equal(t, http.StatusOK, w.Code)
	printed := decode[struct {
		Receipt entity.Receipt `json:"receipt"`
	}](t, env.Data)
	require.Len(t, printed.Receipt.Items, 1)
	assert.Equal(t, 5.0, printed.Receipt.Total)

	w, _ = do(t, r, http.MethodGet, "/api/v1/invoices/unknown/pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/v1/printer/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "connected")

	w, _ = do(t, r, http.MethodPost, "/api/v1/printer/test", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBackupHealthAndMetrics(t *testing.T) {
	r := setupRouter(t)

	do(t, r, http.MethodPost, "/api/v1/patients", gin.H{"name": "Lina"})
	w, env := do(t, r, http.MethodPost, "/api/v1/backups", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	result := decode[service.BackupResult](t, env.Data)
	assert.Greater(t, result.Collections["patients"], len("[]"))
	assert.Contains(t, result.Collections, "products")

	do(t, r, http.MethodPost, "/api/v1/invoices", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, float64(1), health["open_invoices"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_invoice_open_sessions")
}
