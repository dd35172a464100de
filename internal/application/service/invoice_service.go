package service

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/sangkips/pharmacy-invoice/internal/domain/entity"
	"github.com/sangkips/pharmacy-invoice/internal/domain/invoice"
	"github.com/sangkips/pharmacy-invoice/pkg/apperror"
	"github.com/sangkips/pharmacy-invoice/pkg/metrics"
	"github.com/sangkips/pharmacy-invoice/pkg/utils"
)

// session is one working invoice. All access goes through mu.
type session struct {
	mu        sync.Mutex
	id        string
	reference string
	selected  string
	items     []entity.InvoiceItem
	openedAt  time.Time
	updatedAt time.Time
	closed    bool
}

func (s *session) snapshot() *entity.InvoiceSnapshot {
	items := make([]entity.InvoiceItem, len(s.items))
	copy(items, s.items)
	return &entity.InvoiceSnapshot{
		ID:                s.id,
		Reference:         s.reference,
		SelectedPatientID: s.selected,
		Items:             items,
		Totals:            invoice.ComputeTotals(items),
		OpenedAt:          s.openedAt,
		UpdatedAt:         s.updatedAt,
	}
}

func (s *session) touch() {
	s.updatedAt = time.Now().UTC()
}

// InvoiceService manages invoice workspaces. Sessions expire after ttl
// without use. Lock order is session before catalog.
type InvoiceService struct {
	catalog  *CatalogService
	sessions *gocache.Cache
	ttl      time.Duration
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewInvoiceService creates a new invoice service and subscribes it to
// catalog deletions
func NewInvoiceService(catalog *CatalogService, ttl, cleanup time.Duration, m *metrics.Metrics, logger zerolog.Logger) *InvoiceService {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	s := &InvoiceService{
		catalog:  catalog,
		sessions: gocache.New(ttl, cleanup),
		ttl:      ttl,
		metrics:  m,
		logger:   logger,
	}
	s.sessions.OnEvicted(func(_ string, v interface{}) {
		if sess, ok := v.(*session); ok {
			sess.mu.Lock()
			sess.closed = true
			sess.mu.Unlock()
		}
		s.metrics.SetOpenSessions(s.sessions.ItemCount())
	})
	catalog.Subscribe(s)
	return s
}

// acquire looks up and locks a session, extending its lifetime. The caller
// must unlock it.
func (s *InvoiceService) acquire(id string) (*session, error) {
	v, ok := s.sessions.Get(id)
	if !ok {
		return nil, apperror.NewNotFoundError("Invoice")
	}
	sess := v.(*session)
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, apperror.NewNotFoundError("Invoice")
	}
	s.sessions.Set(id, sess, s.ttl)
	return sess, nil
}

// Open starts an empty invoice with no patient selected
func (s *InvoiceService) Open(ctx context.Context) *entity.InvoiceSnapshot {
	now := time.Now().UTC()
	sess := &session{
		id:        utils.NewID(),
		reference: utils.GenerateInvoiceNo("INV"),
		items:     []entity.InvoiceItem{},
		openedAt:  now,
		updatedAt: now,
	}
	s.sessions.Set(sess.id, sess, s.ttl)
	s.metrics.InvoiceOperation("open")
	s.metrics.SetOpenSessions(s.sessions.ItemCount())
	s.logger.Debug().Str("invoice_id", sess.id).Msg("invoice opened")
	return sess.snapshot()
}

// Get returns the current state of an invoice
func (s *InvoiceService) Get(ctx context.Context, id string) (*entity.InvoiceSnapshot, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return sess.snapshot(), nil
}

// Totals returns only the derived totals
func (s *InvoiceService) Totals(ctx context.Context, id string) (*entity.Totals, error) {
	snap, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &snap.Totals, nil
}

// Close discards an invoice without saving
func (s *InvoiceService) Close(ctx context.Context, id string) error {
	sess, err := s.acquire(id)
	if err != nil {
		return err
	}
	sess.closed = true
	sess.mu.Unlock()

	s.sessions.Delete(id)
	s.metrics.InvoiceOperation("close")
	return nil
}

// SelectPatient changes the selection and rebuilds every line from the
// catalog. Unsaved edits are discarded. patientID may be a patient id,
// entity.AllPatients or "" for no selection.
func (s *InvoiceService) SelectPatient(ctx context.Context, id, patientID string) (*entity.InvoiceSnapshot, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	catalog, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if invoice.IsConcretePatient(patientID) && indexOfPatient(catalog.Patients, patientID) < 0 {
		return nil, apperror.NewNotFoundError("Patient")
	}

	sess.selected = patientID
	sess.items = invoice.Derive(patientID, catalog.Products, catalog.Medications)
	sess.touch()
	s.metrics.InvoiceOperation("select_patient")
	return sess.snapshot(), nil
}

// AddProduct appends a line for the product with quantity 1 and no
// discount. Adding a product already on the invoice changes nothing.
func (s *InvoiceService) AddProduct(ctx context.Context, id, productID string) (*entity.InvoiceSnapshot, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	sess.items = invoice.AddItem(sess.items, *product)
	sess.touch()
	s.metrics.InvoiceOperation("add_item")
	return sess.snapshot(), nil
}

// UpdateItemInput represents a line edit. Quantity and Discount accept raw
// user input; nil keeps the current value.
type UpdateItemInput struct {
	InvoiceID string
	ProductID string
	Quantity  any
	Discount  any
}

// UpdateItem edits the quantity and/or discount of one line
func (s *InvoiceService) UpdateItem(ctx context.Context, input *UpdateItemInput) (*entity.InvoiceSnapshot, error) {
	sess, err := s.acquire(input.InvoiceID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	item, ok := invoice.FindItem(sess.items, input.ProductID)
	if !ok {
		return nil, apperror.NewNotFoundError("Invoice item")
	}
	if input.Quantity != nil {
		item.Quantity = invoice.CoerceQuantity(input.Quantity)
	}
	if input.Discount != nil {
		item.Discount = invoice.CoerceDiscount(input.Discount)
	}

	sess.items = invoice.UpdateItem(sess.items, item)
	sess.touch()
	s.metrics.InvoiceOperation("update_item")
	return sess.snapshot(), nil
}

// RemoveItem drops a line. Removing an absent line changes nothing.
func (s *InvoiceService) RemoveItem(ctx context.Context, id, productID string) (*entity.InvoiceSnapshot, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	sess.items = invoice.RemoveItem(sess.items, productID)
	sess.touch()
	s.metrics.InvoiceOperation("remove_item")
	return sess.snapshot(), nil
}

// SaveBack stores the current lines as the selected patient's standing
// order, replacing whatever was saved before. The invoice is unchanged.
func (s *InvoiceService) SaveBack(ctx context.Context, id string) (*entity.InvoiceSnapshot, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	err = s.saveBack(ctx, sess)
	s.metrics.SaveBack(err)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("invoice_id", sess.id).Str("patient_id", sess.selected).Int("items", len(sess.items)).Msg("standing order saved")
	return sess.snapshot(), nil
}

func (s *InvoiceService) saveBack(ctx context.Context, sess *session) error {
	if !invoice.IsConcretePatient(sess.selected) {
		return apperror.ErrNoPatientSelected
	}
	return s.catalog.ReplaceMedications(ctx, sess.selected, func(catalog *Catalog) ([]entity.PatientMedication, error) {
		// a product deleted since the line was added must not come back
		items := make([]entity.InvoiceItem, 0, len(sess.items))
		for _, it := range sess.items {
			if indexOfProduct(catalog.Products, it.ProductID) >= 0 {
				items = append(items, it)
			}
		}
		updated, err := invoice.SaveBack(sess.selected, items, catalog.Medications)
		if err != nil {
			return nil, apperror.ErrNoPatientSelected
		}
		return updated, nil
	})
}

// Resync refreshes every line's name and price from the catalog, keeping
// quantity and discount. Lines whose product is gone are dropped.
func (s *InvoiceService) Resync(ctx context.Context, id string) (*entity.InvoiceSnapshot, error) {
	sess, err := s.acquire(id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	catalog, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	sess.items = invoice.Resync(sess.items, catalog.Products)
	sess.touch()
	s.metrics.InvoiceOperation("resync")
	return sess.snapshot(), nil
}

// OpenCount returns the number of live sessions
func (s *InvoiceService) OpenCount() int {
	return s.sessions.ItemCount()
}

// each locks every open session in turn without extending its lifetime
func (s *InvoiceService) each(fn func(sess *session)) {
	for _, item := range s.sessions.Items() {
		sess, ok := item.Object.(*session)
		if !ok {
			continue
		}
		sess.mu.Lock()
		if !sess.closed {
			fn(sess)
		}
		sess.mu.Unlock()
	}
}

// PatientDeleted switches invoices built for the patient to the whole
// catalog and rebuilds them
func (s *InvoiceService) PatientDeleted(ctx context.Context, patientID string) {
	s.each(func(sess *session) {
		if sess.selected != patientID {
			return
		}
		catalog, err := s.catalog.Snapshot(ctx)
		if err != nil {
			s.logger.Error().Err(err).Str("invoice_id", sess.id).Msg("failed to rebuild invoice after patient deletion")
			return
		}
		sess.selected = entity.AllPatients
		sess.items = invoice.Derive(entity.AllPatients, catalog.Products, catalog.Medications)
		sess.touch()
	})
}

// ProductDeleted removes the product's line from every open invoice
func (s *InvoiceService) ProductDeleted(ctx context.Context, productID string) {
	s.each(func(sess *session) {
		if _, ok := invoice.FindItem(sess.items, productID); ok {
			sess.items = invoice.RemoveItem(sess.items, productID)
			sess.touch()
		}
	})
}
