// Package sync reconciles the catalog collections with the source channels'
// message history. A sync pass is idempotent: re-running it over an unchanged
// history adds nothing.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/plughub/core/internal/models"
	"github.com/plughub/core/internal/modules/catalog/index"
	"github.com/plughub/core/internal/modules/catalog/parser"
	"github.com/plughub/core/internal/modules/catalog/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Counters summarizes one sync pass.
type Counters struct {
	PluginsAdded   int `json:"plugins_added"`
	IconPacksAdded int `json:"icon_packs_added"`
	Skipped        int `json:"skipped"`
	Errors         int `json:"errors"`
}

// Added returns the total number of new entries across both collections.
func (c Counters) Added() int { return c.PluginsAdded + c.IconPacksAdded }

// Service drives the channel-to-catalog reconciliation.
type Service struct {
	source   MessageSource
	store    store.Store
	index    *index.Service
	parser   *parser.Parser
	channels []Channel
	db       *gorm.DB // sync run history; nil disables recording
	logger   *zap.Logger
}

type Option func(*Service)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger.Named("ChannelSync") }
}

// WithRunRecorder persists a SyncRunModel row per pass.
func WithRunRecorder(db *gorm.DB) Option {
	return func(s *Service) { s.db = db }
}

func NewService(source MessageSource, st store.Store, idx *index.Service, p *parser.Parser, channels []Channel, opts ...Option) *Service {
	s := &Service{
		source:   source,
		store:    st,
		index:    idx,
		parser:   p,
		channels: channels,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// item is one logical unit of channel content: a standalone message, or a
// media group collapsed to its text-bearing and file-bearing members.
type item struct {
	text *RawMessage
	file *RawMessage
}

// Sync runs one full reconciliation pass. Trigger is recorded verbatim in the
// run history ("cron", "manual").
func (s *Service) Sync(ctx context.Context, trigger string) (Counters, error) {
	run := s.beginRun(trigger)

	var counters Counters

	collections := map[string][]*models.CatalogEntryModel{}
	known := map[string]map[int64]struct{}{}
	dirty := map[string]bool{}
	for _, kind := range []string{models.CollectionPlugins, models.CollectionIconPacks} {
		entries, err := s.store.Load(ctx, kind)
		if err != nil {
			s.finishRun(run, counters, err)
			return counters, fmt.Errorf("load %s: %w", kind, err)
		}
		collections[kind] = entries
		ids := make(map[int64]struct{}, len(entries))
		for _, entry := range entries {
			if entry.ChannelMessage.MessageID != 0 {
				ids[entry.ChannelMessage.MessageID] = struct{}{}
			}
		}
		known[kind] = ids
	}

	for _, channel := range s.channels {
		messages, err := s.source.FetchHistory(ctx, channel)
		if err != nil {
			s.finishRun(run, counters, err)
			return counters, fmt.Errorf("fetch history of %s: %w", channel.Handle, err)
		}

		for _, it := range partition(messages) {
			kind, entry, err := s.processItem(it, channel)
			if err != nil {
				counters.Errors++
				s.logger.Warn("message skipped with error",
					zap.String("channel", channel.Handle),
					zap.Int64("message_id", itemID(it)),
					zap.Error(err),
				)
				continue
			}
			if entry == nil {
				counters.Skipped++
				continue
			}
			if _, dup := known[kind][entry.ChannelMessage.MessageID]; dup {
				counters.Skipped++
				continue
			}
			known[kind][entry.ChannelMessage.MessageID] = struct{}{}
			collections[kind] = append(collections[kind], entry)
			dirty[kind] = true
			if kind == models.CollectionPlugins {
				counters.PluginsAdded++
			} else {
				counters.IconPacksAdded++
			}
		}
	}

	for kind, changed := range dirty {
		if !changed {
			continue
		}
		if err := s.store.Save(ctx, kind, collections[kind]); err != nil {
			s.finishRun(run, counters, err)
			return counters, fmt.Errorf("save %s: %w", kind, err)
		}
	}
	if len(dirty) > 0 && s.index != nil {
		s.index.Invalidate()
	}

	s.logger.Info("sync pass finished",
		zap.Int("plugins_added", counters.PluginsAdded),
		zap.Int("icon_packs_added", counters.IconPacksAdded),
		zap.Int("skipped", counters.Skipped),
		zap.Int("errors", counters.Errors),
	)
	s.finishRun(run, counters, nil)
	return counters, nil
}

// processItem converts one item to an entry, or (nil, nil) when the item is
// not catalog content. A panic in conversion is contained to the item.
func (s *Service) processItem(it item, channel Channel) (kind string, entry *models.CatalogEntryModel, err error) {
	defer func() {
		if r := recover(); r != nil {
			entry = nil
			err = fmt.Errorf("panic converting message: %v", r)
		}
	}()

	if it.text == nil {
		return "", nil, nil
	}

	post := s.parser.Parse(parser.Input{
		MessageID: it.text.ID,
		Text:      it.text.Text,
		RichText:  it.text.RichText,
		Date:      it.text.Date,
	})
	if post == nil {
		return "", nil, nil
	}

	var doc *Document
	if it.file != nil {
		doc = it.file.Document
	}

	kind = ""
	if doc != nil {
		kind = classifyByExtension(doc.Name)
	}
	if kind == "" {
		if post.IsPlugin {
			kind = models.CollectionPlugins
		} else {
			kind = models.CollectionIconPacks
		}
	}

	return kind, buildEntry(post, channel, doc), nil
}

// partition collapses media groups into single items, preserving message
// order. The first text-bearing member supplies the post body; the first
// file-bearing member supplies the attachment.
func partition(messages []RawMessage) []item {
	var items []item
	groupIdx := map[string]int{}

	for i := range messages {
		msg := &messages[i]
		if msg.GroupID == "" {
			it := item{}
			if msg.Text != "" {
				it.text = msg
			}
			if msg.Document != nil {
				it.file = msg
			}
			items = append(items, it)
			continue
		}
		idx, ok := groupIdx[msg.GroupID]
		if !ok {
			items = append(items, item{})
			idx = len(items) - 1
			groupIdx[msg.GroupID] = idx
		}
		if items[idx].text == nil && msg.Text != "" {
			items[idx].text = msg
		}
		if items[idx].file == nil && msg.Document != nil {
			items[idx].file = msg
		}
	}
	return items
}

func itemID(it item) int64 {
	if it.text != nil {
		return it.text.ID
	}
	if it.file != nil {
		return it.file.ID
	}
	return 0
}

func (s *Service) beginRun(trigger string) *models.SyncRunModel {
	if s.db == nil {
		return nil
	}
	run := &models.SyncRunModel{Trigger: trigger, StartedAt: time.Now()}
	if err := s.db.Create(run).Error; err != nil {
		s.logger.Warn("failed to record sync run", zap.Error(err))
		return nil
	}
	return run
}

func (s *Service) finishRun(run *models.SyncRunModel, counters Counters, runErr error) {
	if run == nil {
		return
	}
	now := time.Now()
	run.PluginsAdded = counters.PluginsAdded
	run.IconPacksAdded = counters.IconPacksAdded
	run.Skipped = counters.Skipped
	run.Errors = counters.Errors
	run.FinishedAt = &now
	if runErr != nil {
		run.Message = runErr.Error()
	}
	if err := s.db.Save(run).Error; err != nil {
		s.logger.Warn("failed to finalize sync run", zap.Error(err))
	}
}
