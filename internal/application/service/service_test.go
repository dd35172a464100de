package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
	"github.com/sangkips/pharmacy-invoice/internal/domain/enum"
	domainRepo "github.com/sangkips/pharmacy-invoice/internal/domain/repository"
	infraRepo "github.com/sangkips/pharmacy-invoice/internal/infrastructure/repository"
	"github.com/sangkips/pharmacy-invoice/internal/infrastructure/storage"
	"github.com/sangkips/pharmacy-invoice/pkg/apperror"
	"github.com/sangkips/pharmacy-invoice/pkg/metrics"
	"github.com/sangkips/pharmacy-invoice/pkg/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    domainRepo.CollectionStore
	repo     domainRepo.CatalogRepository
	catalog  *CatalogService
	invoices *InvoiceService
	exports  *ExportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "catalog.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return fixtureOver(store)
}

func fixtureOver(store domainRepo.CollectionStore) *fixture {
	m := metrics.NewMetrics(prometheus.NewRegistry(), "test")
	repo := infraRepo.NewCatalogRepository(store, zerolog.Nop(), m)
	catalog := NewCatalogService(repo, m, zerolog.Nop())
	invoices := NewInvoiceService(catalog, time.Hour, time.Hour, m, zerolog.Nop())
	exports := NewExportService(invoices, catalog, ExportConfig{
		Renderer:  pdf.NewRenderer(nil, pdf.Header{StoreName: "Pharmacy"}),
		CharWidth: 32,
		Header:    entity.ReceiptHeader{StoreName: "Pharmacy"},
	}, m, zerolog.Nop())

	return &fixture{store: store, repo: repo, catalog: catalog, invoices: invoices, exports: exports}
}

func code(err error) int {
	return apperror.GetAppError(err).Code
}

func (f *fixture) product(t *testing.T, name string, price float64) *entity.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), name, price)
	require.NoError(t, err)
	return p
}

func (f *fixture) patient(t *testing.T, name string) *entity.Patient {
	t.Helper()
	p, err := f.catalog.CreatePatient(context.Background(), name)
	require.NoError(t, err)
	return p
}

func TestCreatePatientTrimsAndValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreatePatient(ctx, "  Ali  ")
	require.NoError(t, err)
	assert.Equal(t, "Ali", p.Name)
	assert.NotEmpty(t, p.ID)

	_, err = f.catalog.CreatePatient(ctx, "   ")
	assert.Equal(t, http.StatusUnprocessableEntity, code(err))

	patients, err := f.repo.GetPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, patients, 1)
}

func TestProductValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.catalog.CreateProduct(ctx, "Aspirin", -1)
	assert.Equal(t, http.StatusUnprocessableEntity, code(err))
	_, err = f.catalog.CreateProduct(ctx, "", 5)
	assert.Equal(t, http.StatusUnprocessableEntity, code(err))
	// prices large enough to overflow a line total are refused
	_, err = f.catalog.CreateProduct(ctx, "Gold", 1e308)
	assert.Equal(t, http.StatusUnprocessableEntity, code(err))

	p := f.product(t, "Aspirin", 5)
	bad := -3.0
	_, err = f.catalog.UpdateProduct(ctx, &UpdateProductInput{ID: p.ID, Price: &bad})
	assert.Equal(t, http.StatusUnprocessableEntity, code(err))
	huge := 1e308
	_, err = f.catalog.UpdateProduct(ctx, &UpdateProductInput{ID: p.ID, Price: &huge})
	assert.Equal(t, http.StatusUnprocessableEntity, code(err))

	got, err := f.catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Price)

	name := " Aspirin 100 "
	updated, err := f.catalog.UpdateProduct(ctx, &UpdateProductInput{ID: p.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Aspirin 100", updated.Name)
	assert.Equal(t, 5.0, updated.Price)
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.patient(t, "Ali")

	err := f.catalog.DeletePatient(ctx, p.ID, false)
	assert.ErrorIs(t, err, apperror.ErrConfirmationRequired)
	_, err = f.catalog.GetPatient(ctx, p.ID)
	assert.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, code(f.catalog.DeleteProduct(ctx, "missing", true)))
}

func TestSearchAndPagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.patient(t, "Ali Hassan")
	f.patient(t, "Mona")
	f.patient(t, "ALIA")

	res, err := f.catalog.ListPatients(ctx, "ali", nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Ali Hassan", res.Items[0].Name)
	assert.Equal(t, "ALIA", res.Items[1].Name)
}

func TestSelectAllBuildsWholeCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "A", 10)
	f.product(t, "B", 20)

	inv := f.invoices.Open(ctx)
	assert.Empty(t, inv.Items)

	snap, err := f.invoices.SelectPatient(ctx, inv.ID, entity.AllPatients)
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, 30.0, snap.Totals.Subtotal)
	assert.Equal(t, 30.0, snap.Totals.GrandTotal)
	assert.Equal(t, 0.0, snap.Totals.DiscountTotal)
}

func TestSelectUnknownPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoices.Open(ctx)

	_, err := f.invoices.SelectPatient(ctx, inv.ID, "nobody")
	assert.Equal(t, http.StatusNotFound, code(err))

	_, err = f.invoices.Get(ctx, "no-such-invoice")
	assert.Equal(t, http.StatusNotFound, code(err))
}

func TestSaveBackAndRederive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prod := f.product(t, "Amoxicillin", 50)
	other := f.product(t, "Vitamin D", 20)
	patient := f.patient(t, "Ali")

	inv := f.invoices.Open(ctx)
	_, err := f.invoices.SelectPatient(ctx, inv.ID, patient.ID)
	require.NoError(t, err)
	_, err = f.invoices.AddProduct(ctx, inv.ID, prod.ID)
	require.NoError(t, err)
	_, err = f.invoices.UpdateItem(ctx, &UpdateItemInput{InvoiceID: inv.ID, ProductID: prod.ID, Quantity: "3", Discount: 10})
	require.NoError(t, err)
	_, err = f.invoices.SaveBack(ctx, inv.ID)
	require.NoError(t, err)

	// unsaved edit is discarded by re-selection
	_, err = f.invoices.UpdateItem(ctx, &UpdateItemInput{InvoiceID: inv.ID, ProductID: prod.ID, Quantity: 7})
	require.NoError(t, err)

	snap, err := f.invoices.SelectPatient(ctx, inv.ID, patient.ID)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 3, snap.Items[0].Quantity)
	assert.Equal(t, 10.0, snap.Items[0].Discount)
	assert.Equal(t, 135.0, snap.Totals.GrandTotal)

	// second save-back fully replaces the first
	_, err = f.invoices.RemoveItem(ctx, inv.ID, prod.ID)
	require.NoError(t, err)
	_, err = f.invoices.AddProduct(ctx, inv.ID, other.ID)
	require.NoError(t, err)
	_, err = f.invoices.SaveBack(ctx, inv.ID)
	require.NoError(t, err)

	meds, err := f.catalog.ListMedications(ctx, patient.ID)
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, other.ID, meds[0].ProductID)
	assert.Equal(t, "Vitamin D", meds[0].ProductName)
}

func TestSaveBackRequiresPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "A", 10)

	inv := f.invoices.Open(ctx)
	_, err := f.invoices.SaveBack(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrNoPatientSelected)

	_, err = f.invoices.SelectPatient(ctx, inv.ID, entity.AllPatients)
	require.NoError(t, err)
	_, err = f.invoices.SaveBack(ctx, inv.ID)
	assert.ErrorIs(t, err, apperror.ErrNoPatientSelected)

	meds, err := f.repo.GetMedications(ctx)
	require.NoError(t, err)
	assert.Empty(t, meds)
}

func TestUpdateItemCoercesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 10)

	inv := f.invoices.Open(ctx)
	_, err := f.invoices.AddProduct(ctx, inv.ID, p.ID)
	require.NoError(t, err)

	snap, err := f.invoices.UpdateItem(ctx, &UpdateItemInput{InvoiceID: inv.ID, ProductID: p.ID, Quantity: "abc", Discount: 150})
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Items[0].Quantity)
	assert.Equal(t, 100.0, snap.Items[0].Discount)

	snap, err = f.invoices.UpdateItem(ctx, &UpdateItemInput{InvoiceID: inv.ID, ProductID: p.ID, Quantity: 2.9})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.Equal(t, 100.0, snap.Items[0].Discount)

	_, err = f.invoices.UpdateItem(ctx, &UpdateItemInput{InvoiceID: inv.ID, ProductID: "other", Quantity: 1})
	assert.Equal(t, http.StatusNotFound, code(err))
}

func TestAddProductTwiceKeepsOneLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 10)

	inv := f.invoices.Open(ctx)
	_, err := f.invoices.AddProduct(ctx, inv.ID, p.ID)
	require.NoError(t, err)
	snap, err := f.invoices.AddProduct(ctx, inv.ID, p.ID)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)

	_, err = f.invoices.AddProduct(ctx, inv.ID, "missing")
	assert.Equal(t, http.StatusNotFound, code(err))
}

func TestProductDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.product(t, "Keep", 5)
	gone := f.product(t, "Gone", 8)
	patient := f.patient(t, "Ali")

	inv := f.invoices.Open(ctx)
	_, err := f.invoices.SelectPatient(ctx, inv.ID, patient.ID)
	require.NoError(t, err)
	_, err = f.invoices.AddProduct(ctx, inv.ID, keep.ID)
	require.NoError(t, err)
	_, err = f.invoices.AddProduct(ctx, inv.ID, gone.ID)
	require.NoError(t, err)
	_, err = f.invoices.SaveBack(ctx, inv.ID)
	require.NoError(t, err)

	require.NoError(t, f.catalog.DeleteProduct(ctx, gone.ID, true))

	products, err := f.repo.GetProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)

	meds, err := f.repo.GetMedications(ctx)
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, keep.ID, meds[0].ProductID)

	snap, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, keep.ID, snap.Items[0].ProductID)

	// re-derivation never resurrects it
	snap, err = f.invoices.SelectPatient(ctx, inv.ID, patient.ID)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, keep.ID, snap.Items[0].ProductID)
}

func TestPatientDeleteResetsOpenInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 10)
	patient := f.patient(t, "Ali")

	inv := f.invoices.Open(ctx)
	_, err := f.invoices.SelectPatient(ctx, inv.ID, patient.ID)
	require.NoError(t, err)
	_, err = f.invoices.AddProduct(ctx, inv.ID, p.ID)
	require.NoError(t, err)
	_, err = f.invoices.SaveBack(ctx, inv.ID)
	require.NoError(t, err)

	require.NoError(t, f.catalog.DeletePatient(ctx, patient.ID, true))

	meds, err := f.repo.GetMedications(ctx)
	require.NoError(t, err)
	assert.Empty(t, meds)

	snap, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.AllPatients, snap.SelectedPatientID)
	assert.Len(t, snap.Items, 1)
}

// failingStore fails writes to the listed collections
type failingStore struct {
	domainRepo.CollectionStore
	fail map[enum.Collection]bool
}

func (s *failingStore) Set(ctx context.Context, key enum.Collection, data []byte) error {
	if s.fail[key] {
		return errors.New("disk full")
	}
	return s.CollectionStore.Set(ctx, key, data)
}

func TestDeleteKeepsCatalogConsistentOnWriteFailure(t *testing.T) {
	cases := []struct {
		name   string
		failOn enum.Collection
		delete func(f *fixture, patientID, productID string) error
	}{
		{"patient row", enum.CollectionPatients, func(f *fixture, patientID, _ string) error {
			return f.catalog.DeletePatient(context.Background(), patientID, true)
		}},
		{"patient medications", enum.CollectionPatientMedications, func(f *fixture, patientID, _ string) error {
			return f.catalog.DeletePatient(context.Background(), patientID, true)
		}},
		{"product row", enum.CollectionProducts, func(f *fixture, _, productID string) error {
			return f.catalog.DeleteProduct(context.Background(), productID, true)
		}},
		{"product medications", enum.CollectionPatientMedications, func(f *fixture, _, productID string) error {
			return f.catalog.DeleteProduct(context.Background(), productID, true)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base := newFixture(t)
			store := &failingStore{CollectionStore: base.store, fail: map[enum.Collection]bool{}}
			f := fixtureOver(store)
			ctx := context.Background()

			p := f.product(t, "A", 10)
			patient := f.patient(t, "Ali")
			require.NoError(t, f.repo.SaveMedications(ctx, []entity.PatientMedication{
				{PatientID: patient.ID, ProductID: p.ID, Quantity: 2, Discount: 5},
			}))

			store.fail[tc.failOn] = true
			err := tc.delete(f, patient.ID, p.ID)
			require.Error(t, err)
			assert.Equal(t, http.StatusInternalServerError, code(err))
			store.fail[tc.failOn] = false

			patients, err := f.repo.GetPatients(ctx)
			require.NoError(t, err)
			assert.Len(t, patients, 1)
			products, err := f.repo.GetProducts(ctx)
			require.NoError(t, err)
			assert.Len(t, products, 1)
			meds, err := f.repo.GetMedications(ctx)
			require.NoError(t, err)
			require.Len(t, meds, 1)
			assert.Equal(t, 2, meds[0].Quantity)
		})
	}
}

func TestResyncRefreshesSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 10)

	inv := f.invoices.Open(ctx)
	_, err := f.invoices.AddProduct(ctx, inv.ID, p.ID)
	require.NoError(t, err)
	_, err = f.invoices.UpdateItem(ctx, &UpdateItemInput{InvoiceID: inv.ID, ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	price := 12.5
	_, err = f.catalog.UpdateProduct(ctx, &UpdateProductInput{ID: p.ID, Price: &price})
	require.NoError(t, err)

	snap, err := f.invoices.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, snap.Items[0].Price)

	snap, err = f.invoices.Resync(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, snap.Items[0].Price)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.Equal(t, 25.0, snap.Totals.GrandTotal)
}

func TestCloseInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := f.invoices.Open(ctx)
	assert.Equal(t, 1, f.invoices.OpenCount())

	require.NoError(t, f.invoices.Close(ctx, inv.ID))
	_, err := f.invoices.Get(ctx, inv.ID)
	assert.Equal(t, http.StatusNotFound, code(err))
	assert.Equal(t, http.StatusNotFound, code(f.invoices.Close(ctx, inv.ID)))
}

func TestListMedicationsMarksMissingProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 10)
	patient := f.patient(t, "Ali")
	require.NoError(t, f.repo.SaveMedications(ctx, []entity.PatientMedication{
		{PatientID: patient.ID, ProductID: p.ID, Quantity: 1},
		{PatientID: patient.ID, ProductID: "ghost", Quantity: 2},
	}))

	views, err := f.catalog.ListMedications(ctx, patient.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.False(t, views[0].Missing)
	assert.Equal(t, "A", views[0].ProductName)
	assert.True(t, views[1].Missing)

	_, err = f.catalog.ListMedications(ctx, "nobody")
	assert.Equal(t, http.StatusNotFound, code(err))
}

func TestRenderPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "A", 10)

	inv := f.invoices.Open(ctx)
	_, err := f.invoices.SelectPatient(ctx, inv.ID, entity.AllPatients)
	require.NoError(t, err)

	doc, err := f.exports.RenderPDF(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF")))
	assert.Contains(t, doc.Filename, inv.Reference)

	_, err = f.exports.RenderPDF(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, code(err))
}

func TestPrintReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Amoxicillin", 50)
	patient := f.patient(t, "Ali")

	inv := f.invoices.Open(ctx)
	_, err := f.invoices.SelectPatient(ctx, inv.ID, patient.ID)
	require.NoError(t, err)
	_, err = f.invoices.AddProduct(ctx, inv.ID, p.ID)
	require.NoError(t, err)
	_, err = f.invoices.UpdateItem(ctx, &UpdateItemInput{InvoiceID: inv.ID, ProductID: p.ID, Quantity: 3, Discount: 10})
	require.NoError(t, err)

	receipt, err := f.exports.PrintReceipt(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ali", receipt.Patient)
	assert.Equal(t, 135.0, receipt.Total)
	assert.Equal(t, 15.0, receipt.DiscountTotal)

	out := string(FormatReceipt(receipt, 32))
	assert.Contains(t, out, "Pharmacy")
	assert.Contains(t, out, "135.00")
	assert.Contains(t, out, inv.Reference)
}

func TestBackupRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.product(t, "A", 10)
	require.NoError(t, f.store.Set(ctx, enum.CollectionPatients, []byte("{broken")))

	svc := NewBackupService(f.store, t.TempDir(), zerolog.Nop())
	res, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"patients"}, res.Skipped)
	assert.Contains(t, res.Collections, "products")
	assert.Contains(t, res.Collections, "patient_medications")

	data, err := os.ReadFile(filepath.Join(res.Dir, "products.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name":"A"`)

	_, err = os.Stat(filepath.Join(res.Dir, "manifest.json"))
	assert.NoError(t, err)
}

func TestBackupSchedule(t *testing.T) {
	f := newFixture(t)
	svc := NewBackupService(f.store, t.TempDir(), zerolog.Nop())

	assert.NoError(t, svc.Start(""))
	assert.Error(t, svc.Start("not a schedule"))
	require.NoError(t, svc.Start("@every 1h"))
	svc.Stop()
}
