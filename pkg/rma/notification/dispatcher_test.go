package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"rma-engine-be/internal/dto"
	"rma-engine-be/internal/entity"
	"rma-engine-be/internal/pkg/logger"
	"rma-engine-be/internal/pkg/mailer"
	"rma-engine-be/internal/repository/memory"
	"rma-engine-be/internal/repository/unitofwork"
	pkgEvents "rma-engine-be/pkg/events"
	rmaEvents "rma-engine-be/pkg/rma/events"
	"rma-engine-be/pkg/rma/policy"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (m *capturingMailer) Send(msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *capturingMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

type capturingSink struct {
	mu     sync.Mutex
	events []dto.RMALiveEvent
}

func (s *capturingSink) PublishCompany(ctx context.Context, companyID uuid.UUID, event dto.RMALiveEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *capturingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type fixture struct {
	d        *Dispatcher
	mail     *capturingMailer
	live     *capturingSink
	factory  unitofwork.RepositoryFactory
	policies *policy.Store
	company  uuid.UUID
}

func newFixture() *fixture {
	f := &fixture{
		mail:     &capturingMailer{},
		live:     &capturingSink{},
		factory:  memory.NewRepositoryFactory(memory.NewStore()),
		policies: policy.NewStore(nil, logger.NewNopLogger()),
		company:  uuid.New(),
	}
	f.d = NewDispatcher(f.factory, f.policies, f.mail, f.live, logger.NewNopLogger())
	return f
}

func (f *fixture) event(eventType string, extra map[string]interface{}) pkgEvents.BaseEvent {
	data := map[string]interface{}{
		"company_id":     f.company.String(),
		"rma_id":         uuid.NewString(),
		"rma_number":     "RMA-20260302-00001",
		"customer_email": "jo@example.test",
		"status":         "REQUESTED",
		"reason":         "DEFECTIVE",
		"total_value":    120.0,
	}
	for k, v := range extra {
		data[k] = v
	}
	return pkgEvents.BaseEvent{Type: eventType, Data: data, OccurredAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func TestHandle_CustomerEmailAndLiveFeed(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.d.Handle(context.Background(), f.event(rmaEvents.EventStatusChanged, map[string]interface{}{
		"to_status":    "IN_TRANSIT",
		"tracking_url": "https://www.ups.com/track?tracknum=1Z",
	})))

	sent := f.mail.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"jo@example.test"}, sent[0].To)
	assert.Equal(t, "Update on return RMA-20260302-00001", sent[0].Subject)
	assert.Equal(t, "https://www.ups.com/track?tracknum=1Z", sent[0].LinkURL)

	require.Equal(t, 1, f.live.count())
	assert.Equal(t, "IN_TRANSIT", f.live.events[0].Status)
	assert.Equal(t, f.company.String(), f.live.events[0].CompanyID)
}

func TestHandle_InternalAlerts(t *testing.T) {
	f := newFixture()
	p := policy.DefaultPolicy(f.company)
	p.Notifications.Internal.Recipients = []string{"ops@example.test"}
	require.NoError(t, f.policies.SavePolicy(context.Background(), f.factory.NewUnitOfWork(context.Background()), p))

	tests := []struct {
		name      string
		eventType string
		value     float64
		internal  bool
	}{
		{"high value creation", rmaEvents.EventCreated, 650, true},
		{"low value creation", rmaEvents.EventCreated, 20, false},
		{"label failure", rmaEvents.EventLabelFailed, 20, true},
		{"approval", rmaEvents.EventApproved, 9000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.mail.sent = nil
			require.NoError(t, f.d.Handle(context.Background(), f.event(tt.eventType, map[string]interface{}{"total_value": tt.value})))

			internal := 0
			for _, m := range f.mail.messages() {
				if len(m.To) == 1 && m.To[0] == "ops@example.test" {
					internal++
				}
			}
			if tt.internal {
				assert.Equal(t, 1, internal)
			} else {
				assert.Zero(t, internal)
			}
		})
	}
}

func TestHandle_RespectsSubscribedEventsAndChannels(t *testing.T) {
	f := newFixture()
	p := policy.DefaultPolicy(f.company)
	p.Notifications.Customer.Events = []string{rmaEvents.EventResolutionComplete}
	p.Notifications.Customer.Channels = []string{policy.ChannelEmail}
	p.Notifications.Internal.Channels = nil
	require.NoError(t, f.policies.SavePolicy(context.Background(), f.factory.NewUnitOfWork(context.Background()), p))

	require.NoError(t, f.d.Handle(context.Background(), f.event(rmaEvents.EventApproved, nil)))
	assert.Empty(t, f.mail.messages())
	assert.Zero(t, f.live.count())

	require.NoError(t, f.d.Handle(context.Background(), f.event(rmaEvents.EventResolutionComplete, map[string]interface{}{"amount": 72.25})))
	sent := f.mail.messages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Lines, "Amount: 72.25")
}

func TestHandle_IgnoresEventsWithoutCompany(t *testing.T) {
	f := newFixture()

	err := f.d.Handle(context.Background(), pkgEvents.BaseEvent{Type: rmaEvents.EventCreated, Data: map[string]interface{}{}})
	require.NoError(t, err)
	assert.Empty(t, f.mail.messages())
	assert.Zero(t, f.live.count())
}

func TestDispatcher_ConsumesBus(t *testing.T) {
	f := newFixture()
	bus := pkgEvents.NewChannelBus(nil)
	defer bus.Close()
	require.NoError(t, f.d.Start(bus))

	publisher := rmaEvents.NewBusPublisher(bus, logger.NewNopLogger())
	publisher.PublishRejected(context.Background(), &entity.RMA{
		ID:            uuid.New(),
		RMANumber:     "RMA-20260302-00009",
		CompanyID:     f.company,
		CustomerEmail: "jo@example.test",
		Status:        entity.RMAStatusRejected,
	}, "outside policy")

	require.Eventually(t, func() bool { return len(f.mail.messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	msg := f.mail.messages()[0]
	assert.Equal(t, "Return RMA-20260302-00009 was not approved", msg.Subject)
	assert.Contains(t, msg.Lines, "Reason: outside policy")
}
