package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

type conversationFixture struct {
	conversation *Conversation
	transport    *recordingTransport
	notifier     *recordingNotifier
	sessions     *memSessionStore
	eventLog     *memEventLog
	clock        *fakeClock
}

func newConversationFixture(t *testing.T, config ConversationConfig) *conversationFixture {
	t.Helper()

	repo := newMemTariffRepo()
	seedTables(t, repo)
	clock := newFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	tariffs := newTestTariffStore(t, repo, clock)

	eventLog := newMemEventLog()
	sessions := newMemSessionStore()
	transport := newRecordingTransport()
	notifier := newRecordingNotifier()

	conversation := NewConversation(
		sessions,
		tariffs,
		NewAnalytics(eventLog, clock, nil),
		transport,
		notifier,
		nil,
		clock,
		nil,
		config,
	)

	return &conversationFixture{
		conversation: conversation,
		transport:    transport,
		notifier:     notifier,
		sessions:     sessions,
		eventLog:     eventLog,
		clock:        clock,
	}
}

func (f *conversationFixture) say(t *testing.T, userID, text string) {
	t.Helper()
	err := f.conversation.Handle(context.Background(), ports.InboundMessage{UserID: userID, Text: text})
	require.NoError(t, err)
}

func (f *conversationFixture) session(t *testing.T, userID string) *domain.Session {
	t.Helper()
	session, err := f.sessions.Get(context.Background(), userID)
	require.NoError(t, err)
	return session
}

func TestVolumeOnlyFlowEndToEnd(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{})

	f.say(t, "u1", "/start")
	assert.Equal(t, msgWelcome, f.transport.Last())

	f.say(t, "u1", "volume only")
	assert.Equal(t, msgPromptVolume, f.transport.Last())

	f.say(t, "u1", "2.5")
	assert.Equal(t, msgPromptCity, f.transport.Last())

	f.say(t, "u1", "Москва")
	messages := f.transport.All()
	require.GreaterOrEqual(t, len(messages), 2)
	quoteReply := messages[len(messages)-2]
	assert.Contains(t, quoteReply, "Москва")
	assert.Contains(t, quoteReply, "80.00 USD")
	assert.Contains(t, quoteReply, "up to 3")
	assert.Equal(t, msgResultActions, f.transport.Last())

	f.say(t, "u1", "request quote")
	assert.Equal(t, msgPromptName, f.transport.Last())

	f.say(t, "u1", "Иван")
	assert.Equal(t, msgPromptContact, f.transport.Last())

	f.say(t, "u1", "+79991234567")
	assert.Equal(t, msgPromptCompany, f.transport.Last())

	f.say(t, "u1", "skip")
	assert.Equal(t, msgLeadThanks, f.transport.Last())

	require.Len(t, f.eventLog.leads, 1, "exactly one lead per completed flow")
	lead := f.eventLog.leads[0]
	assert.Equal(t, "Иван", lead.Contact.Name)
	assert.Equal(t, domain.ContactPhone, lead.Contact.Point.Method)
	assert.Equal(t, "+79991234567", lead.Contact.Point.Value)
	assert.Empty(t, lead.Contact.Company)
	assert.Equal(t, "Москва", lead.Cargo.City)
	require.NotNil(t, lead.Quote)
	assert.Equal(t, 80.0, lead.Quote.Price)

	notifications := f.notifier.All()
	require.Len(t, notifications, 1)
	assert.Contains(t, notifications[0].Subject, lead.ID)
	assert.Contains(t, notifications[0].Body, "Иван")

	assert.Nil(t, f.session(t, "u1"), "session destroyed after lead submission")

	// One calculation event and one lead event on the stream.
	var calculations, leadEvents int
	for _, event := range f.eventLog.events {
		switch event.Type {
		case domain.EventCalculation:
			calculations++
			assert.Equal(t, "Москва", event.City)
			assert.Equal(t, 2.5, event.Volume)
		case domain.EventLead:
			leadEvents++
		}
	}
	assert.Equal(t, 1, calculations)
	assert.Equal(t, 1, leadEvents)
}

func TestInvalidInputRepromptsWithoutLosingProgress(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{})

	f.say(t, "u1", "volume and weight")
	f.say(t, "u1", "2.5")
	assert.Equal(t, msgPromptWeight, f.transport.Last())

	f.say(t, "u1", "heavy")
	assert.Equal(t, msgInvalidWeight, f.transport.Last())

	session := f.session(t, "u1")
	require.NotNil(t, session)
	state, ok := session.State.(domain.CollectingWeight)
	require.True(t, ok, "rejection must not move the state")
	require.NotNil(t, state.Volume)
	assert.Equal(t, 2.5, *state.Volume, "collected volume survives the rejection")

	// Comma decimal separator accepted.
	f.say(t, "u1", "400,5")
	assert.Equal(t, msgPromptCity, f.transport.Last())
}

func TestBackRestartsFromAnywhere(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{})

	f.say(t, "u1", "volume only")
	f.say(t, "u1", "2.5")
	f.say(t, "u1", "back")

	assert.Equal(t, msgWelcome, f.transport.Last())
	assert.Nil(t, f.session(t, "u1"))

	require.Len(t, f.eventLog.incomplete, 1)
	assert.Equal(t, domain.StepCity, f.eventLog.incomplete[0].Step)
}

func TestTextWithoutSessionPromptsForOptions(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{})

	f.say(t, "u1", "hello there")
	assert.Equal(t, msgUseButtons, f.transport.Last())
	assert.Nil(t, f.session(t, "u1"))
}

func TestQuoteShownUnrecognizedInputReprompts(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{})

	f.say(t, "u1", "volume only")
	f.say(t, "u1", "2.5")
	f.say(t, "u1", "Москва")

	f.say(t, "u1", "what?")
	assert.Equal(t, msgResultActions, f.transport.Last())

	session := f.session(t, "u1")
	require.NotNil(t, session)
	assert.Equal(t, domain.StepQuoteShown, session.Step())
}

func TestNewCalculationDiscardsAndRestarts(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{})

	f.say(t, "u1", "volume only")
	f.say(t, "u1", "2.5")
	f.say(t, "u1", "Москва")
	f.say(t, "u1", "new calculation")

	assert.Equal(t, msgWelcome, f.transport.Last())
	assert.Nil(t, f.session(t, "u1"))
	require.Len(t, f.eventLog.incomplete, 1)
	assert.Equal(t, domain.StepQuoteShown, f.eventLog.incomplete[0].Step)
	assert.Empty(t, f.eventLog.leads)
}

func TestDescriptionFlowGetsTextEstimate(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{})

	f.say(t, "u1", "describe cargo")
	assert.Equal(t, msgPromptDescription, f.transport.Last())

	f.say(t, "u1", "short")
	assert.Equal(t, msgInvalidDescription, f.transport.Last())

	f.say(t, "u1", "мебель и бытовая техника")
	assert.Equal(t, msgPromptCity, f.transport.Last())

	f.say(t, "u1", "Пермь")
	messages := f.transport.All()
	reply := messages[len(messages)-2]
	assert.Contains(t, reply, "мебель и бытовая техника")
	assert.Contains(t, reply, "Пермь")

	// Calculation recorded without a numeric quote.
	var found bool
	for _, event := range f.eventLog.events {
		if event.Type == domain.EventCalculation {
			found = true
			assert.Zero(t, event.Volume)
			assert.Equal(t, "мебель и бытовая техника", event.Cargo)
		}
	}
	assert.True(t, found)
}

func TestNoRatesLoadedEndsTheFlow(t *testing.T) {
	repo := newMemTariffRepo() // nothing seeded
	clock := newFakeClock(time.Now())
	tariffs := newTestTariffStore(t, repo, clock)

	eventLog := newMemEventLog()
	transport := newRecordingTransport()
	conversation := NewConversation(
		newMemSessionStore(), tariffs, NewAnalytics(eventLog, clock, nil),
		transport, newRecordingNotifier(), nil, clock, nil, ConversationConfig{},
	)

	ctx := context.Background()
	require.NoError(t, conversation.Handle(ctx, ports.InboundMessage{UserID: "u1", Text: "volume only"}))
	require.NoError(t, conversation.Handle(ctx, ports.InboundMessage{UserID: "u1", Text: "2.5"}))
	require.NoError(t, conversation.Handle(ctx, ports.InboundMessage{UserID: "u1", Text: "Москва"}))

	assert.Equal(t, msgNoRates, transport.Last())
	assert.Empty(t, eventLog.leads)
}

func TestLapsedSessionCountsAsAbandoned(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{SessionTTL: 30 * time.Minute})

	f.say(t, "u1", "volume only")
	f.say(t, "u1", "2.5")

	f.clock.Advance(31 * time.Minute)

	f.say(t, "u1", "Москва")
	assert.Equal(t, msgUseButtons, f.transport.Last(), "lapsed session means no session")

	require.Len(t, f.eventLog.incomplete, 1)
	assert.Equal(t, domain.StepCity, f.eventLog.incomplete[0].Step)
}

func TestCompanyValidationThenProvided(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{})

	f.say(t, "u1", "volume only")
	f.say(t, "u1", "2.5")
	f.say(t, "u1", "Москва")
	f.say(t, "u1", "request quote")
	f.say(t, "u1", "Иван")
	f.say(t, "u1", "ivan@example.com")

	f.say(t, "u1", "g")
	assert.Equal(t, msgInvalidCompany, f.transport.Last())

	f.say(t, "u1", "Growex")
	assert.Equal(t, msgLeadThanks, f.transport.Last())

	require.Len(t, f.eventLog.leads, 1)
	lead := f.eventLog.leads[0]
	assert.Equal(t, "Growex", lead.Contact.Company)
	assert.Equal(t, domain.ContactEmail, lead.Contact.Point.Method)
}

func TestUserLockRegistryDoesNotAccumulate(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{})

	for _, user := range []string{"u1", "u2", "u3"} {
		f.say(t, user, "/start")
		f.say(t, user, "volume only")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.conversation.Handle(context.Background(), ports.InboundMessage{UserID: "u1", Text: "2.5"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	f.conversation.lockMu.Lock()
	remaining := len(f.conversation.locks)
	f.conversation.lockMu.Unlock()
	assert.Zero(t, remaining, "idle users leave no lock behind")
}

func TestLeadRecordedEvenWhenOperatorDeliveryFails(t *testing.T) {
	f := newConversationFixture(t, ConversationConfig{})
	f.notifier.failWith = errBoom

	f.say(t, "u1", "volume only")
	f.say(t, "u1", "2.5")
	f.say(t, "u1", "Москва")
	f.say(t, "u1", "request quote")
	f.say(t, "u1", "Иван")
	f.say(t, "u1", "+79991234567")
	f.say(t, "u1", "skip")

	assert.Equal(t, msgLeadThanks, f.transport.Last(), "delivery failure never reaches the user")
	require.Len(t, f.eventLog.leads, 1)
}
