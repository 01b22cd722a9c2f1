// Package builder runs the locate, assemble and render pipeline for one page.
package builder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"skinbuilder/assemble"
	"skinbuilder/render"
)

// Page is a kind of forum page the builder can restyle.
type Page string

const (
	ModTeam      Page = "mod-team"
	ActiveTopics Page = "active-topics"
	Topic        Page = "topic"
)

// Pages lists the supported pages.
func Pages() []Page {
	return []Page{ModTeam, ActiveTopics, Topic}
}

// ParsePage validates a page name.
func ParsePage(s string) (Page, error) {
	p := Page(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Pages() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown page %q (want mod-team, active-topics or topic)", s)
}

// Builder restyles forum pages.
type Builder struct {
	assembler *assemble.Assembler
	renderer  *render.Renderer
	logger    *slog.Logger
}

// New creates a new builder.
func New(assembler *assemble.Assembler, renderer *render.Renderer, logger *slog.Logger) *Builder {
	return &Builder{
		assembler: assembler,
		renderer:  renderer,
		logger:    logger,
	}
}

// Records assembles the records of a page: []forum.Moderator,
// []forum.ActiveTopic or forum.TopicHeader.
func (b *Builder) Records(root *goquery.Selection, page Page) (any, error) {
	switch page {
	case ModTeam:
		return b.assembler.Moderators(root)
	case ActiveTopics:
		return b.assembler.ActiveTopics(root)
	case Topic:
		return b.assembler.TopicHeader(root)
	default:
		return nil, fmt.Errorf("unknown page %q", page)
	}
}

// Build assembles a page and renders one fragment per record, in document order.
func (b *Builder) Build(root *goquery.Selection, page Page) ([]render.Fragment, error) {
	var fragments []render.Fragment

	switch page {
	case ModTeam:
		mods, err := b.assembler.Moderators(root)
		if err != nil {
			return nil, fmt.Errorf("assemble %s: %w", page, err)
		}
		for _, m := range mods {
			fragments = append(fragments, b.renderer.ModCard(m))
		}
	case ActiveTopics:
		topics, err := b.assembler.ActiveTopics(root)
		if err != nil {
			return nil, fmt.Errorf("assemble %s: %w", page, err)
		}
		for _, t := range topics {
			fragments = append(fragments, b.renderer.ActiveTopicRow(t))
		}
	case Topic:
		header, err := b.assembler.TopicHeader(root)
		if err != nil {
			return nil, fmt.Errorf("assemble %s: %w", page, err)
		}
		fragments = append(fragments, b.renderer.TopicHeader(header))
	default:
		return nil, fmt.Errorf("unknown page %q", page)
	}

	b.logger.Info("Page built", "page", string(page), "fragments", len(fragments))
	return fragments, nil
}
