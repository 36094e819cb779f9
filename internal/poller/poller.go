// Package poller runs the fetch → dedup → render → deliver cycle. The
// cycle is a plain function so tests drive a single deterministic pass;
// Run wraps it in an interruptible fixed-interval loop.
package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohsen-hany-dev/ivasms-otp/internal/config"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/format"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/models"
	"github.com/mohsen-hany-dev/ivasms-otp/internal/store"
)

// SourceAPI is the campaign API surface the poller consumes.
type SourceAPI interface {
	Login(ctx context.Context, email, password string) (string, error)
	FetchMessages(ctx context.Context, token, startDate string, limit int) ([]models.Message, error)
}

// TokenSource hands out per-account session tokens.
type TokenSource interface {
	Token(ctx context.Context, acc models.Account) (string, bool)
	Refresh(ctx context.Context, acc models.Account) (string, bool)
	Invalidate(name string)
}

// Deliverer sends one rendered message to one group.
type Deliverer interface {
	Send(ctx context.Context, group models.Group, text, copyValue string) (int, error)
}

type Poller struct {
	cfg      *config.Config
	api      SourceAPI
	tokens   TokenSource
	sender   Deliverer
	store    *store.Store
	renderer *format.Renderer
	accounts []models.Account
	groups   []models.Group
	log      zerolog.Logger
	now      func() time.Time
}

func New(cfg *config.Config, api SourceAPI, tokens TokenSource, sender Deliverer, st *store.Store,
	renderer *format.Renderer, accounts []models.Account, groups []models.Group, log zerolog.Logger) *Poller {
	return &Poller{
		cfg:      cfg,
		api:      api,
		tokens:   tokens,
		sender:   sender,
		store:    st,
		renderer: renderer,
		accounts: accounts,
		groups:   groups,
		log:      log,
		now:      time.Now,
	}
}

// Prime warms the session cache for every configured account. Failures
// are logged and retried on the next cycle, never fatal.
func (p *Poller) Prime(ctx context.Context) {
	for _, acc := range p.accounts {
		if _, ok := p.tokens.Token(ctx, acc); ok {
			p.log.Info().Str("account", acc.Name).Msg("account ready")
		} else {
			p.log.Warn().Str("account", acc.Name).Msg("account login failed")
		}
	}
}

// Run polls until ctx is cancelled. The sleep between cycles is
// interruptible so a stop signal exits promptly.
func (p *Poller) Run(ctx context.Context) {
	p.Prime(ctx)
	p.log.Info().
		Dur("interval", p.cfg.PollInterval).
		Str("start_date", p.cfg.StartDate).
		Int("limit", p.cfg.Limit).
		Msg("started polling")

	for {
		p.RunCycle(ctx)
		select {
		case <-ctx.Done():
			p.log.Info().Msg("polling stopped")
			return
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// RunCycle executes exactly one cycle: rotate the daily store on a date
// change, fetch from every source, merge and dedup, then render and
// deliver whatever is new. Every per-source and per-group failure is
// isolated and logged.
func (p *Poller) RunCycle(ctx context.Context) {
	day := p.now().Format("2006-01-02")
	if day != p.store.Day() {
		p.store.Rotate(day)
		p.log.Info().Str("day", day).Msg("rotated daily message store")
	}

	batch := p.fetchAll(ctx)
	fresh := p.dedup(batch)
	if len(fresh) == 0 {
		p.log.Info().Msg("no new messages")
		return
	}
	p.log.Info().Int("count", len(fresh)).Msg("new messages")

	for _, msg := range fresh {
		p.deliver(ctx, msg)
	}
}

// fetchAll gathers one batch via the shared API token (when configured)
// and one per enabled account.
func (p *Poller) fetchAll(ctx context.Context) []models.Message {
	var all []models.Message

	if p.cfg.APIToken != "" {
		rows, err := p.api.FetchMessages(ctx, p.cfg.APIToken, p.cfg.StartDate, p.cfg.Limit)
		if err != nil {
			p.log.Warn().Err(err).Msg("shared token fetch failed")
		} else {
			all = append(all, rows...)
		}
	}

	for _, acc := range p.accounts {
		rows, err := p.fetchAccount(ctx, acc)
		if err != nil {
			p.log.Warn().Err(err).Str("account", acc.Name).Msg("account fetch failed")
			continue
		}
		all = append(all, rows...)
	}
	return all
}

// fetchAccount fetches with the account's managed token. A failed fetch
// discards that token and triggers exactly one forced re-login and one
// refetch within the cycle.
func (p *Poller) fetchAccount(ctx context.Context, acc models.Account) ([]models.Message, error) {
	tok, ok := p.tokens.Token(ctx, acc)
	if !ok {
		return nil, nil
	}
	rows, err := p.api.FetchMessages(ctx, tok, p.cfg.StartDate, p.cfg.Limit)
	if err == nil {
		return rows, nil
	}

	// The rejected token must not survive a failed re-login.
	p.tokens.Invalidate(acc.Name)
	tok, ok = p.tokens.Refresh(ctx, acc)
	if !ok {
		return nil, err
	}
	return p.api.FetchMessages(ctx, tok, p.cfg.StartDate, p.cfg.Limit)
}

// dedup merges batches by message key (last fetch wins on a duplicate
// key, first appearance fixes the order), truncates to the page limit,
// and drops keys already delivered today.
func (p *Poller) dedup(batch []models.Message) []models.Message {
	index := make(map[string]int, len(batch))
	var merged []models.Message
	for _, m := range batch {
		key := m.Key()
		if i, dup := index[key]; dup {
			p.log.Debug().Str("key", key).Msg("duplicate key across accounts, keeping last fetched")
			merged[i] = m
			continue
		}
		index[key] = len(merged)
		merged = append(merged, m)
	}
	if p.cfg.Limit > 0 && len(merged) > p.cfg.Limit {
		merged = merged[:p.cfg.Limit]
	}

	fresh := merged[:0]
	for _, m := range merged {
		if p.store.IsNew(m.Key()) {
			fresh = append(fresh, m)
		}
	}
	return fresh
}

// deliver sends one message to every enabled group and commits it to the
// dedup store once at least one group confirmed. A message no group
// accepted stays eligible for the next cycle.
func (p *Poller) deliver(ctx context.Context, msg models.Message) {
	text := p.renderer.Render(msg)
	code := p.renderer.Code(msg)

	var deliveries []models.GroupDelivery
	for _, grp := range p.groups {
		msgID, err := p.sender.Send(ctx, grp, text, code)
		if err != nil {
			p.log.Error().Err(err).Str("group", grp.Name).Msg("send failed")
			continue
		}
		deliveries = append(deliveries, models.GroupDelivery{
			Group:     grp.Name,
			ChatID:    grp.ChatID,
			MessageID: msgID,
		})
		p.log.Info().
			Str("group", grp.Name).
			Int("message_id", msgID).
			Str("code", code).
			Msg("sent")
	}
	if len(deliveries) == 0 {
		return
	}

	rec := models.DeliveryRecord{
		Number:      msg.Number,
		Code:        code,
		ServiceName: msg.ServiceName,
		Range:       msg.Range,
		Message:     msg.Message,
		Revenue:     msg.Revenue,
		Groups:      deliveries,
		SentAt:      p.now().Format("2006-01-02 15:04:05"),
	}
	if err := p.store.MarkSent(msg.Key(), rec); err != nil {
		p.log.Error().Err(err).Msg("failed to persist daily store")
	}
}
