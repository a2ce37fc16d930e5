package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/stores"
)

type txKey struct{}

// memoryTx journals the prior value of every booking it touches so a failed
// transaction or savepoint can be undone. Row locks are held by the outermost one.
type memoryTx struct {
	parent  *memoryTx
	journal map[string]*models.Booking
	held    map[string]*sync.Mutex
}

func (tx *memoryTx) root() *memoryTx {
	for tx.parent != nil {
		tx = tx.parent
	}
	return tx
}

func txFrom(ctx context.Context) *memoryTx {
	tx, _ := ctx.Value(txKey{}).(*memoryTx)
	return tx
}

// MemoryStore is an in-memory stand-in for the gorm stores. Transactions run
// concurrently; GetForUpdate style reads take a row lock held until the outermost
// transaction ends, like SELECT ... FOR UPDATE.
type MemoryStore struct {
	mu       sync.Mutex
	rowLocks map[string]*sync.Mutex

	organizations map[string]models.Organization
	vehicles      map[string]models.Vehicle
	customers     map[string]models.Customer
	locations     map[string]models.Location
	bookings      map[string]models.Booking

	// CreateBookingErr, when set, is returned by the next booking insert.
	CreateBookingErr error
	// DuplicateNumberFailures makes that many booking inserts fail with a duplicate key.
	DuplicateNumberFailures int
	// CreateBookingDelay slows booking inserts down to widen race windows.
	CreateBookingDelay time.Duration

	BookingCreates int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		organizations: make(map[string]models.Organization),
		vehicles:      make(map[string]models.Vehicle),
		customers:     make(map[string]models.Customer),
		locations:     make(map[string]models.Location),
		bookings:      make(map[string]models.Booking),
		rowLocks:      make(map[string]*sync.Mutex),
	}
}

func (m *MemoryStore) Bookings() *BookingRepo           { return &BookingRepo{m} }
func (m *MemoryStore) Vehicles() *VehicleRepo           { return &VehicleRepo{m} }
func (m *MemoryStore) Customers() *CustomerRepo         { return &CustomerRepo{m} }
func (m *MemoryStore) Locations() *LocationRepo         { return &LocationRepo{m} }
func (m *MemoryStore) Organizations() *OrganizationRepo { return &OrganizationRepo{m} }

func (m *MemoryStore) BookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

// WithTransaction runs fn in a transaction, or in a savepoint when ctx already carries one.
func (m *MemoryStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	parent := txFrom(ctx)
	tx := &memoryTx{parent: parent, journal: make(map[string]*models.Booking)}
	if parent == nil {
		tx.held = make(map[string]*sync.Mutex)
		defer m.unlockRows(tx)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		m.rollback(tx)
		return err
	}

	if parent != nil {
		for id, prev := range tx.journal {
			if _, seen := parent.journal[id]; !seen {
				parent.journal[id] = prev
			}
		}
	}
	return nil
}

func (m *MemoryStore) rollback(tx *memoryTx) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, prev := range tx.journal {
		if prev == nil {
			delete(m.bookings, id)
		} else {
			m.bookings[id] = *prev
		}
	}
}

// lockRow blocks until the row is free, then holds it for the rest of the transaction.
// Outside a transaction it is a no-op.
func (m *MemoryStore) lockRow(ctx context.Context, key string) {
	tx := txFrom(ctx)
	if tx == nil {
		return
	}
	root := tx.root()
	if _, ok := root.held[key]; ok {
		return
	}

	m.mu.Lock()
	l, ok := m.rowLocks[key]
	if !ok {
		l = &sync.Mutex{}
		m.rowLocks[key] = l
	}
	m.mu.Unlock()

	l.Lock()
	root.held[key] = l
}

func (m *MemoryStore) unlockRows(tx *memoryTx) {
	for _, l := range tx.held {
		l.Unlock()
	}
}

// journal records the booking's current value before ctx's transaction changes it. Callers hold m.mu.
func (m *MemoryStore) journal(ctx context.Context, id string) {
	tx := txFrom(ctx)
	if tx == nil {
		return
	}
	if _, seen := tx.journal[id]; seen {
		return
	}
	if b, ok := m.bookings[id]; ok {
		tx.journal[id] = &b
	} else {
		tx.journal[id] = nil
	}
}

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type BookingRepo struct{ m *MemoryStore }

func (r *BookingRepo) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return r.m.WithTransaction(ctx, fn)
}

func (r *BookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	if r.m.CreateBookingDelay > 0 {
		time.Sleep(r.m.CreateBookingDelay)
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.CreateBookingErr != nil {
		err := r.m.CreateBookingErr
		r.m.CreateBookingErr = nil
		return err
	}
	if r.m.DuplicateNumberFailures > 0 {
		r.m.DuplicateNumberFailures--
		return stores.ErrDuplicate
	}
	for _, b := range r.m.bookings {
		if b.BookingNumber == booking.BookingNumber {
			return stores.ErrDuplicate
		}
	}

	assignID(&booking.ID)
	now := time.Now()
	booking.CreatedAt, booking.UpdatedAt = now, now
	r.m.journal(ctx, booking.ID)
	r.m.bookings[booking.ID] = *booking
	r.m.BookingCreates++
	return nil
}

func (r *BookingRepo) Update(ctx context.Context, booking *models.Booking) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.bookings[booking.ID]; !ok {
		return stores.ErrNotFound
	}
	booking.UpdatedAt = time.Now()
	r.m.journal(ctx, booking.ID)
	r.m.bookings[booking.ID] = *booking
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, orgID, id string) (*models.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	b, ok := r.m.bookings[id]
	if !ok || b.OrganizationID != orgID {
		return nil, stores.ErrNotFound
	}
	return &b, nil
}

func (r *BookingRepo) GetByIDForUpdate(ctx context.Context, orgID, id string) (*models.Booking, error) {
	r.m.lockRow(ctx, "bookings:"+id)
	return r.GetByID(ctx, orgID, id)
}

func (r *BookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*models.Booking
	for _, b := range r.m.bookings {
		if b.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.VehicleID != "" && b.VehicleID != filter.VehicleID {
			continue
		}
		if filter.CustomerID != "" && b.CustomerID != filter.CustomerID {
			continue
		}
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PickupDatetime.After(out[j].PickupDatetime) })
	return page(out, filter.Limit, filter.Offset), int64(len(out)), nil
}

func (r *BookingRepo) Delete(ctx context.Context, orgID, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	b, ok := r.m.bookings[id]
	if !ok || b.OrganizationID != orgID {
		return stores.ErrNotFound
	}
	r.m.journal(ctx, id)
	delete(r.m.bookings, id)
	return nil
}

func (r *BookingRepo) FindConflicts(ctx context.Context, orgID, vehicleID string, pickup, dropoff time.Time, excludeID string) ([]*models.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*models.Booking
	for _, b := range r.m.bookings {
		if b.OrganizationID != orgID || b.VehicleID != vehicleID || b.ID == excludeID {
			continue
		}
		if b.Status.BlocksAvailability() && b.Overlaps(pickup, dropoff) {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PickupDatetime.Before(out[j].PickupDatetime) })
	return out, nil
}

func (r *BookingRepo) LastBookingNumber(ctx context.Context, prefix string) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	last := ""
	for _, b := range r.m.bookings {
		if strings.HasPrefix(b.BookingNumber, prefix) && b.BookingNumber > last {
			last = b.BookingNumber
		}
	}
	return last, nil
}

type VehicleRepo struct{ m *MemoryStore }

func (r *VehicleRepo) Create(ctx context.Context, vehicle *models.Vehicle) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, v := range r.m.vehicles {
		if v.OrganizationID == vehicle.OrganizationID && v.LicensePlate == vehicle.LicensePlate {
			return stores.ErrDuplicate
		}
	}
	assignID(&vehicle.ID)
	r.m.vehicles[vehicle.ID] = *vehicle
	return nil
}

func (r *VehicleRepo) Update(ctx context.Context, vehicle *models.Vehicle) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for id, v := range r.m.vehicles {
		if id != vehicle.ID && v.OrganizationID == vehicle.OrganizationID && v.LicensePlate == vehicle.LicensePlate {
			return stores.ErrDuplicate
		}
	}
	r.m.vehicles[vehicle.ID] = *vehicle
	return nil
}

func (r *VehicleRepo) GetByID(ctx context.Context, orgID, id string) (*models.Vehicle, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	v, ok := r.m.vehicles[id]
	if !ok || v.OrganizationID != orgID {
		return nil, stores.ErrNotFound
	}
	return &v, nil
}

func (r *VehicleRepo) GetForUpdate(ctx context.Context, orgID, id string) (*models.Vehicle, error) {
	r.m.lockRow(ctx, "vehicles:"+id)
	return r.GetByID(ctx, orgID, id)
}

func (r *VehicleRepo) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Vehicle, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*models.Vehicle
	for _, v := range r.m.vehicles {
		if v.OrganizationID == orgID {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LicensePlate < out[j].LicensePlate })
	return page(out, limit, offset), int64(len(out)), nil
}

type CustomerRepo struct{ m *MemoryStore }

func (r *CustomerRepo) Create(ctx context.Context, customer *models.Customer) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, c := range r.m.customers {
		if c.OrganizationID == customer.OrganizationID && c.Email == customer.Email {
			return stores.ErrDuplicate
		}
	}
	assignID(&customer.ID)
	r.m.customers[customer.ID] = *customer
	return nil
}

func (r *CustomerRepo) Update(ctx context.Context, customer *models.Customer) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.customers[customer.ID] = *customer
	return nil
}

func (r *CustomerRepo) GetByID(ctx context.Context, orgID, id string) (*models.Customer, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c, ok := r.m.customers[id]
	if !ok || c.OrganizationID != orgID {
		return nil, stores.ErrNotFound
	}
	return &c, nil
}

func (r *CustomerRepo) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Customer, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*models.Customer
	for _, c := range r.m.customers {
		if c.OrganizationID == orgID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return page(out, limit, offset), int64(len(out)), nil
}

type LocationRepo struct{ m *MemoryStore }

func (r *LocationRepo) Create(ctx context.Context, location *models.Location) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	assignID(&location.ID)
	r.m.locations[location.ID] = *location
	return nil
}

func (r *LocationRepo) Update(ctx context.Context, location *models.Location) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.locations[location.ID] = *location
	return nil
}

func (r *LocationRepo) GetByID(ctx context.Context, orgID, id string) (*models.Location, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	l, ok := r.m.locations[id]
	if !ok || l.OrganizationID != orgID {
		return nil, stores.ErrNotFound
	}
	return &l, nil
}

func (r *LocationRepo) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Location, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*models.Location
	for _, l := range r.m.locations {
		if l.OrganizationID == orgID {
			l := l
			out = append(out, &l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), int64(len(out)), nil
}

type OrganizationRepo struct{ m *MemoryStore }

func (r *OrganizationRepo) Create(ctx context.Context, org *models.Organization) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, o := range r.m.organizations {
		if o.Slug == org.Slug {
			return stores.ErrDuplicate
		}
	}
	assignID(&org.ID)
	r.m.organizations[org.ID] = *org
	return nil
}

func (r *OrganizationRepo) Update(ctx context.Context, org *models.Organization) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.organizations[org.ID] = *org
	return nil
}

func (r *OrganizationRepo) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	o, ok := r.m.organizations[id]
	if !ok {
		return nil, stores.ErrNotFound
	}
	return &o, nil
}

func (r *OrganizationRepo) Deactivate(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	o, ok := r.m.organizations[id]
	if !ok {
		return stores.ErrNotFound
	}
	o.IsActive = false
	r.m.organizations[id] = o
	return nil
}
