package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/growex/quotebot/internal/domain"
	"github.com/growex/quotebot/internal/ports"
)

// ConversationConfig tunes the engine. SessionTTL is the abandonment timeout;
// zero disables it. Admins may replace rate tables through the chat channel.
type ConversationConfig struct {
	SessionTTL time.Duration
	Admins     []string
}

// Conversation is the per-user state machine driving data collection. All
// operations for one user are serialized on a per-user lock; different users
// proceed fully in parallel.
type Conversation struct {
	sessions  ports.SessionStore
	tariffs   *TariffStore
	analytics *Analytics
	transport ports.Transport
	notifier  ports.OperatorNotifier
	uploads   *UploadService
	clock     ports.Clock
	logger    *slog.Logger
	config    ConversationConfig

	admins map[string]struct{}

	lockMu sync.Mutex
	locks  map[string]*userLock
}

// userLock serializes one user's events. Entries are reference-counted so the
// registry does not accumulate a lock per user ever seen in a long-lived
// process; the last releaser removes the entry.
type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewConversation(
	sessions ports.SessionStore,
	tariffs *TariffStore,
	analytics *Analytics,
	transport ports.Transport,
	notifier ports.OperatorNotifier,
	uploads *UploadService,
	clock ports.Clock,
	logger *slog.Logger,
	config ConversationConfig,
) *Conversation {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	admins := make(map[string]struct{}, len(config.Admins))
	for _, id := range config.Admins {
		admins[id] = struct{}{}
	}

	return &Conversation{
		sessions:  sessions,
		tariffs:   tariffs,
		analytics: analytics,
		transport: transport,
		notifier:  notifier,
		uploads:   uploads,
		clock:     clock,
		logger:    logger,
		config:    config,
		admins:    admins,
		locks:     map[string]*userLock{},
	}
}

// Handle processes one inbound user event. User-input problems never escape:
// they re-prompt without touching already-collected data. Only transport
// failures propagate to the caller.
func (c *Conversation) Handle(ctx context.Context, in ports.InboundMessage) error {
	lock := c.acquireUser(in.UserID)
	defer c.releaseUser(in.UserID, lock)

	if in.Document != nil {
		return c.handleDocument(ctx, in)
	}

	now := c.clock.Now()
	text := strings.TrimSpace(in.Text)

	session := c.loadSession(ctx, in.UserID, now)

	switch keyword(text) {
	case KeywordStart, KeywordBack:
		// Back returns to the absolute start, not one step. Kept for
		// behavioral compatibility; see DESIGN.md.
		c.discardSession(ctx, session)
		return c.send(ctx, in.UserID, msgWelcome)
	}

	if session == nil {
		if flow, ok := flowFromText(text); ok {
			return c.beginFlow(ctx, in.UserID, flow, now)
		}
		return c.send(ctx, in.UserID, msgUseButtons)
	}

	return c.advance(ctx, session, text, now)
}

func (c *Conversation) beginFlow(ctx context.Context, userID string, flow domain.Flow, now time.Time) error {
	state := domain.FlowSelected{Flow: flow}.Begin()
	session := domain.NewSession(userID, state, now)
	c.saveSession(ctx, session)
	return c.send(ctx, userID, promptFor(state))
}

func (c *Conversation) advance(ctx context.Context, session *domain.Session, text string, now time.Time) error {
	userID := session.UserID

	switch state := session.State.(type) {
	case domain.CollectingVolume:
		volume, err := domain.ParseQuantity(text)
		if err != nil {
			return c.send(ctx, userID, msgInvalidVolume)
		}
		var next domain.State
		if state.Flow == domain.FlowVolumeAndWeight {
			next = domain.CollectingWeight{Flow: state.Flow, Volume: &volume}
		} else {
			next = domain.CollectingCity{Flow: state.Flow, Volume: &volume}
		}
		return c.transition(ctx, session, next, now)

	case domain.CollectingWeight:
		weight, err := domain.ParseQuantity(text)
		if err != nil {
			return c.send(ctx, userID, msgInvalidWeight)
		}
		next := domain.CollectingCity{Flow: state.Flow, Volume: state.Volume, Weight: &weight}
		return c.transition(ctx, session, next, now)

	case domain.CollectingDescription:
		description, err := domain.ValidateText(text, domain.MinDescriptionLen)
		if err != nil {
			return c.send(ctx, userID, msgInvalidDescription)
		}
		next := domain.CollectingCity{Flow: state.Flow, Description: description}
		return c.transition(ctx, session, next, now)

	case domain.CollectingCity:
		city, err := domain.ValidateText(text, domain.MinCityLen)
		if err != nil {
			return c.send(ctx, userID, msgInvalidCity)
		}
		return c.showQuote(ctx, session, state, city, now)

	case domain.QuoteShown:
		switch keyword(text) {
		case KeywordRequestQuote:
			next := domain.CollectingName{Cargo: state.Cargo, Quote: state.Quote}
			return c.transition(ctx, session, next, now)
		case KeywordNewCalculation:
			c.discardSession(ctx, session)
			return c.send(ctx, userID, msgWelcome)
		default:
			return c.send(ctx, userID, msgResultActions)
		}

	case domain.CollectingName:
		name, err := domain.ValidateText(text, domain.MinNameLen)
		if err != nil {
			return c.send(ctx, userID, msgInvalidName)
		}
		next := domain.CollectingContact{Cargo: state.Cargo, Quote: state.Quote, Name: name}
		return c.transition(ctx, session, next, now)

	case domain.CollectingContact:
		point, err := domain.ParseContactPoint(text)
		if err != nil {
			return c.send(ctx, userID, msgInvalidContact)
		}
		next := domain.CollectingCompany{Cargo: state.Cargo, Quote: state.Quote, Name: state.Name, Contact: point}
		return c.transition(ctx, session, next, now)

	case domain.CollectingCompany:
		company := ""
		if keyword(text) != KeywordSkip {
			validated, err := domain.ValidateText(text, domain.MinCompanyLen)
			if err != nil {
				return c.send(ctx, userID, msgInvalidCompany)
			}
			company = validated
		}
		return c.submitLead(ctx, session, state, company, now)

	default:
		return c.send(ctx, userID, msgReplyHint)
	}
}

// showQuote resolves pricing, records the completed calculation, and moves the
// session to QuoteShown. The description flow gets no numeric price.
func (c *Conversation) showQuote(ctx context.Context, session *domain.Session, state domain.CollectingCity, city string, now time.Time) error {
	userID := session.UserID
	cargo := domain.CargoSpec{
		Flow:        state.Flow,
		Volume:      state.Volume,
		Weight:      state.Weight,
		Description: state.Description,
		City:        city,
	}

	var quote *domain.Quote
	var reply string
	if state.Flow == domain.FlowDescription {
		reply = fmt.Sprintf(msgDescriptionResult, cargo.Description, city)
	} else {
		resolved, err := c.tariffs.Resolve(state.Volume, state.Weight, city)
		if err != nil {
			if errors.Is(err, domain.ErrNoRateData) {
				c.discardSession(ctx, session)
				return c.send(ctx, userID, msgNoRates)
			}
			c.logger.Error("quote resolution failed", "user", userID, "city", city, "err", err)
			c.discardSession(ctx, session)
			return c.send(ctx, userID, msgCalculationFailure)
		}
		quote = &resolved
		reply = formatQuote(resolved)
	}

	// One CalculationRecord per shown quote, recorded best-effort so an
	// analytics hiccup never blocks the user-facing reply.
	record := domain.CalculationRecord{
		ID:        domain.NewCalculationID(),
		Timestamp: now,
		UserID:    userID,
		Step:      domain.StepCompleted,
		Cargo:     cargo,
		Quote:     quote,
	}
	if err := c.analytics.RecordCalculation(ctx, record); err != nil {
		c.logger.Warn("record calculation failed", "user", userID, "err", err)
	}

	session.Advance(domain.QuoteShown{Cargo: cargo, Quote: quote}, now)
	c.saveSession(ctx, session)

	if err := c.send(ctx, userID, reply); err != nil {
		return err
	}
	return c.send(ctx, userID, msgResultActions)
}

func (c *Conversation) submitLead(ctx context.Context, session *domain.Session, state domain.CollectingCompany, company string, now time.Time) error {
	userID := session.UserID
	lead := domain.Lead{
		ID:        domain.NewLeadID(),
		Timestamp: now,
		UserID:    userID,
		Contact: domain.Contact{
			Name:    state.Name,
			Point:   state.Contact,
			Company: company,
		},
		Cargo: state.Cargo,
		Quote: state.Quote,
	}

	if err := c.analytics.RecordLead(ctx, lead); err != nil {
		c.logger.Error("record lead failed", "user", userID, "lead", lead.ID, "err", err)
	}

	// Fire-and-forget: the user's success path does not depend on operator
	// delivery. A failure here is logged and otherwise dropped.
	if err := c.notifier.Notify(ctx, leadNotification(lead)); err != nil {
		c.logger.Error("lead delivery to operator failed", "lead", lead.ID, "err", err)
	}

	c.deleteSession(ctx, userID)
	return c.send(ctx, userID, msgLeadThanks)
}

func (c *Conversation) handleDocument(ctx context.Context, in ports.InboundMessage) error {
	if c.uploads == nil {
		return c.send(ctx, in.UserID, msgUploadUnsupported)
	}
	if _, ok := c.admins[in.UserID]; !ok {
		// Kept in the log as an audit trail of who is probing the admin path.
		c.logger.Warn("rate table upload attempt from non-admin", "user", in.UserID, "file", in.Document.Name)
		return c.send(ctx, in.UserID, msgUploadNotAllowed)
	}

	summary, err := c.uploads.Upload(ctx, in.UserID, in.Document.Name, in.Document.Path, in.Document.Size)
	if err != nil {
		return c.send(ctx, in.UserID, "Upload failed: "+err.Error())
	}
	return c.send(ctx, in.UserID, formatUpdateSummary(summary))
}

// loadSession fetches the user's session, expiring it as abandoned when the
// TTL has lapsed. Store failures degrade to "no session" rather than breaking
// the flow.
func (c *Conversation) loadSession(ctx context.Context, userID string, now time.Time) *domain.Session {
	session, err := c.sessions.Get(ctx, userID)
	if err != nil {
		c.logger.Warn("session load failed", "user", userID, "err", err)
		return nil
	}
	if session == nil {
		return nil
	}

	if c.config.SessionTTL > 0 && now.Sub(session.UpdatedAt) > c.config.SessionTTL {
		c.discardSession(ctx, session)
		return nil
	}
	return session
}

// discardSession drops a session before it reached lead submission and files
// the abandonment sample, best-effort.
func (c *Conversation) discardSession(ctx context.Context, session *domain.Session) {
	if session == nil {
		return
	}

	sample := domain.IncompleteSample{
		Timestamp: c.clock.Now(),
		UserID:    session.UserID,
		Step:      session.Step(),
	}
	if err := c.analytics.RecordIncomplete(ctx, sample); err != nil {
		c.logger.Warn("record abandonment failed", "user", session.UserID, "step", sample.Step, "err", err)
	}

	c.deleteSession(ctx, session.UserID)
}

func (c *Conversation) transition(ctx context.Context, session *domain.Session, next domain.State, now time.Time) error {
	session.Advance(next, now)
	c.saveSession(ctx, session)
	return c.send(ctx, session.UserID, promptFor(next))
}

func (c *Conversation) saveSession(ctx context.Context, session *domain.Session) {
	if err := c.sessions.Put(ctx, session); err != nil {
		c.logger.Error("session save failed", "user", session.UserID, "err", err)
	}
}

func (c *Conversation) deleteSession(ctx context.Context, userID string) {
	if err := c.sessions.Delete(ctx, userID); err != nil {
		c.logger.Warn("session delete failed", "user", userID, "err", err)
	}
}

func (c *Conversation) send(ctx context.Context, userID, text string) error {
	return c.transport.SendMessage(ctx, userID, text)
}

func (c *Conversation) acquireUser(userID string) *userLock {
	c.lockMu.Lock()
	lock, ok := c.locks[userID]
	if !ok {
		lock = &userLock{}
		c.locks[userID] = lock
	}
	lock.refs++
	c.lockMu.Unlock()

	lock.mu.Lock()
	return lock
}

func (c *Conversation) releaseUser(userID string, lock *userLock) {
	lock.mu.Unlock()

	c.lockMu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(c.locks, userID)
	}
	c.lockMu.Unlock()
}

func keyword(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func flowFromText(text string) (domain.Flow, bool) {
	switch keyword(text) {
	case KeywordVolumeWeight:
		return domain.FlowVolumeAndWeight, true
	case KeywordVolumeOnly:
		return domain.FlowVolumeOnly, true
	case KeywordWeightOnly:
		return domain.FlowWeightOnly, true
	case KeywordDescribe:
		return domain.FlowDescription, true
	default:
		return "", false
	}
}

func promptFor(state domain.State) string {
	switch state.(type) {
	case domain.CollectingVolume:
		return msgPromptVolume
	case domain.CollectingWeight:
		return msgPromptWeight
	case domain.CollectingDescription:
		return msgPromptDescription
	case domain.CollectingCity:
		return msgPromptCity
	case domain.CollectingName:
		return msgPromptName
	case domain.CollectingContact:
		return msgPromptContact
	case domain.CollectingCompany:
		return msgPromptCompany
	default:
		return msgReplyHint
	}
}

func formatQuote(quote domain.Quote) string {
	text := fmt.Sprintf(msgQuoteResult,
		quote.Destination,
		trimFloat(quote.Volume),
		trimFloat(quote.Weight),
		quote.Threshold,
		quote.Price,
		quote.Currency,
	)
	if quote.HubRouted() {
		text += "\n" + fmt.Sprintf(msgHubRoutedNote, quote.Destination, quote.RequestedCity)
	}
	if quote.ValidUntil != nil {
		text += "\n" + fmt.Sprintf(msgQuoteValidUntil, quote.ValidUntil.Format(domain.NotificationDayFormat))
	}
	return text
}

func formatUpdateSummary(summary UpdateSummary) string {
	validUntil := summary.ValidUntil
	if validUntil == "" {
		validUntil = "not specified"
	}
	return fmt.Sprintf("Rate tables updated.\nFile: %s\nKind: %s\nLocations: %d\nValid until: %s",
		summary.SourceFile, summary.Kind, len(summary.Locations), validUntil)
}

func leadNotification(lead domain.Lead) domain.Notification {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", lead.Contact.Name)
	fmt.Fprintf(&b, "%s: %s\n", lead.Contact.Point.Method, lead.Contact.Point.Value)
	company := lead.Contact.Company
	if company == "" {
		company = "not provided"
	}
	fmt.Fprintf(&b, "Company: %s\n", company)

	if lead.Cargo.Description != "" {
		fmt.Fprintf(&b, "Cargo: %s\n", lead.Cargo.Description)
	}
	if lead.Cargo.Volume != nil {
		fmt.Fprintf(&b, "Volume: %s m³\n", trimFloat(*lead.Cargo.Volume))
	}
	if lead.Cargo.Weight != nil {
		fmt.Fprintf(&b, "Weight: %s kg\n", trimFloat(*lead.Cargo.Weight))
	}
	fmt.Fprintf(&b, "City: %s\n", lead.Cargo.City)
	if lead.Quote != nil {
		fmt.Fprintf(&b, "Estimate: %.2f %s (%s)\n", lead.Quote.Price, lead.Quote.Currency, lead.Quote.Source)
	}
	fmt.Fprintf(&b, "User: %s", lead.UserID)

	return domain.Notification{
		Severity: domain.SeverityInfo,
		Subject:  "New delivery request " + lead.ID,
		Body:     b.String(),
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
