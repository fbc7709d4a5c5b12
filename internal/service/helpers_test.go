package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/waste-dispatch/internal/model"
	"github.com/nurpe/waste-dispatch/internal/testutil/memstore"
)

type stubClassifier struct {
	result model.Classification
	err    error
}

func (c stubClassifier) Classify(context.Context, []byte, string) (model.Classification, error) {
	return c.result, c.err
}

type memImages struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemImages() *memImages {
	return &memImages{objects: make(map[string][]byte)}
}

func (m *memImages) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return "", m.putErr
	}
	m.objects[name] = data
	return "http://images.local/" + name, nil
}

func (m *memImages) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *memImages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type countingMetrics struct {
	mu          sync.Mutex
	reports     map[model.ReportStatus]int
	created     map[model.DispatchMode]int
	transitions map[model.DispatchStatus]int
	redemptions map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		reports:     make(map[model.ReportStatus]int),
		created:     make(map[model.DispatchMode]int),
		transitions: make(map[model.DispatchStatus]int),
		redemptions: make(map[string]int),
	}
}

func (m *countingMetrics) ReportSubmitted(status model.ReportStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[status]++
}

func (m *countingMetrics) DispatchCreated(mode model.DispatchMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created[mode]++
}

func (m *countingMetrics) DispatchTransitioned(to model.DispatchStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[to]++
}

func (m *countingMetrics) Redemption(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redemptions[result]++
}

// mapCache is an UnreadCache kept in a map; readErr forces GetUnread to fail.
type mapCache struct {
	mu          sync.Mutex
	counts      map[uuid.UUID]int64
	invalidated []uuid.UUID
	readErr     error
}

func newMapCache() *mapCache {
	return &mapCache{counts: make(map[uuid.UUID]int64)}
}

func (c *mapCache) GetUnread(_ context.Context, userID uuid.UUID) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return 0, false, c.readErr
	}
	v, ok := c.counts[userID]
	return v, ok, nil
}

func (c *mapCache) SetUnread(_ context.Context, userID uuid.UUID, count int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[userID] = count
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, userIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.counts, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

type stubExcel struct {
	got model.DispatchRegister
}

func (e *stubExcel) DispatchRegister(register model.DispatchRegister) ([]byte, error) {
	e.got = register
	return []byte("xlsx"), nil
}

type stubPDF struct {
	got model.CollectionSheet
}

func (p *stubPDF) CollectionSheet(sheet model.CollectionSheet) ([]byte, error) {
	p.got = sheet
	return []byte("%PDF-"), nil
}

var errBoom = errors.New("boom")

type fixture struct {
	store   *memstore.Store
	cache   *mapCache
	metrics *countingMetrics
	excel   *stubExcel
	pdf     *stubPDF

	admin     model.User
	collector model.User
	citizen   model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	return &fixture{
		store:     store,
		cache:     newMapCache(),
		metrics:   newCountingMetrics(),
		excel:     &stubExcel{},
		pdf:       &stubPDF{},
		admin:     store.AddUser(model.User{Name: "Aida", Email: "aida@example.com", Role: model.UserRoleAdmin}),
		collector: store.AddUser(model.User{Name: "Bolat", Email: "bolat@example.com", Role: model.UserRoleCollector}),
		citizen:   store.AddUser(model.User{Name: "Chingis", Email: "chingis@example.com", Role: model.UserRoleUser}),
	}
}

func (f *fixture) dispatchService(completionPoints int64) *DispatchService {
	return NewDispatchService(f.store, f.store, f.store, f.store, f.excel, f.pdf, f.cache, f.metrics, completionPoints, zerolog.Nop())
}

func (f *fixture) reportService(classifier Classifier, images ImageStore, reportPoints int64) *ReportService {
	return NewReportService(f.store, f.store, images, classifier, f.cache, f.metrics,
		ReportServiceConfig{ReportPoints: reportPoints, MaxImageBytes: 1 << 20}, zerolog.Nop())
}

func (f *fixture) fleetService() *FleetService {
	return NewFleetService(f.store, f.store, f.cache, zerolog.Nop())
}

func (f *fixture) notificationService() *NotificationService {
	return NewNotificationService(f.store, f.store, f.cache, zerolog.Nop())
}

func (f *fixture) rewardService() *RewardService {
	return NewRewardService(f.store, f.cache, zerolog.Nop())
}

func (f *fixture) productService() *ProductService {
	return NewProductService(f.store, f.cache, f.metrics, zerolog.Nop())
}

func (f *fixture) userService() *UserService {
	return NewUserService(f.store, zerolog.Nop())
}

// crew seeds an active team with the collector as member and one available truck.
func (f *fixture) crew(spec model.Specialization, registration string, lat, lon float64) (model.Team, model.Truck) {
	team := f.store.AddTeam(model.Team{
		Name:           string(spec) + " crew " + registration,
		Specialization: spec,
		Members:        []uuid.UUID{f.collector.ID},
	})
	teamID := team.ID
	truck := f.store.AddTruck(model.Truck{
		RegistrationNumber: registration,
		Type:               spec,
		Capacity:           1000,
		AssignedTeamID:     &teamID,
		Latitude:           &lat,
		Longitude:          &lon,
	})
	return team, truck
}

func (f *fixture) pendingReport(material string) model.WasteReport {
	return f.store.AddReport(model.WasteReport{
		SubmitterID:       f.citizen.ID,
		ContainsWaste:     true,
		DominantWasteType: material,
		VolumeValue:       12,
		VolumeUnit:        model.VolumeUnitKg,
		Latitude:          43.2389,
		Longitude:         76.8897,
		Address:           "Abay Ave 5",
	})
}

func principalOf(u model.User) model.Principal {
	return model.Principal{UserID: u.ID, Role: u.Role}
}

func ptr[T any](v T) *T {
	return &v
}
