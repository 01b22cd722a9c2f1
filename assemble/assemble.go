// Package assemble turns located regions into forum records.
package assemble

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"skinbuilder/extract"
	"skinbuilder/layout"
	"skinbuilder/pkg/forum"
)

// Policy decides what a batch assembly does with a row that fails extraction.
type Policy int

const (
	// FailFast aborts the whole call on the first bad row.
	FailFast Policy = iota
	// SkipInvalidRows logs bad rows and keeps going.
	SkipInvalidRows
)

func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case SkipInvalidRows:
		return "skip-invalid"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy parses "fail-fast" or "skip-invalid".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-fast":
		return FailFast, nil
	case "skip-invalid":
		return SkipInvalidRows, nil
	default:
		return FailFast, fmt.Errorf("unknown row policy %q (want fail-fast or skip-invalid)", s)
	}
}

// Assembler builds records from a document.
type Assembler struct {
	layout *layout.Layout
	policy Policy
	logger *slog.Logger
}

// New creates a new assembler.
func New(l *layout.Layout, policy Policy, logger *slog.Logger) *Assembler {
	return &Assembler{
		layout: l,
		policy: policy,
		logger: logger,
	}
}

// rowFailed applies the policy to a failed row. It returns the error to abort
// with, or nil when the row is skipped.
func (a *Assembler) rowFailed(kind layout.Kind, i int, err error) error {
	if a.policy == SkipInvalidRows {
		a.logger.Warn("Skipping invalid row", "region", kind.String(), "row", i, "reason", extract.Reason(err), "error", err)
		return nil
	}
	return fmt.Errorf("row %d: %w", i, err)
}

// Moderators assembles the moderating team in document order.
func (a *Assembler) Moderators(root *goquery.Selection) ([]forum.Moderator, error) {
	region, err := extract.Locate(root, layout.ModTeamTable, a.layout)
	if err != nil {
		return nil, err
	}

	mods := make([]forum.Moderator, 0, len(region.Rows))
	for i, row := range region.Rows {
		mod, ok, err := Moderator(row, a.layout.ModTeam)
		switch {
		case err != nil && extract.IsPatternMismatch(err):
			a.logger.Debug("Skipping moderator row without user link", "row", i)
			continue
		case err != nil:
			if err := a.rowFailed(region.Kind, i, err); err != nil {
				return nil, err
			}
			continue
		case !ok:
			a.logger.Debug("Skipping sub-heading row", "row", i)
			continue
		}
		mods = append(mods, mod)
	}

	a.logger.Debug("Moderators assembled", "rows", len(region.Rows), "records", len(mods))
	return mods, nil
}

// ActiveTopics assembles the active topics list in document order.
func (a *Assembler) ActiveTopics(root *goquery.Selection) ([]forum.ActiveTopic, error) {
	region, err := extract.Locate(root, layout.ActiveTopicsTable, a.layout)
	if err != nil {
		return nil, err
	}

	topics := make([]forum.ActiveTopic, 0, len(region.Rows))
	for i, row := range region.Rows {
		topic, err := ActiveTopic(row, a.layout.ActiveTopics)
		if err != nil {
			if err := a.rowFailed(region.Kind, i, err); err != nil {
				return nil, err
			}
			continue
		}
		topics = append(topics, topic)
	}

	a.logger.Debug("Active topics assembled", "rows", len(region.Rows), "records", len(topics))
	return topics, nil
}

// TopicHeader assembles the header of a topic view. There is no partial header:
// without the track link the call fails.
func (a *Assembler) TopicHeader(root *goquery.Selection) (forum.TopicHeader, error) {
	region, err := extract.Locate(root, layout.TopicHeaderBlock, a.layout)
	if err != nil {
		return forum.TopicHeader{}, err
	}
	return TopicHeader(region.Root, a.layout.TopicHeader)
}

// Moderator assembles one mod team row. ok is false for sub-heading rows,
// which carry a single cell. A row without a profile link yields a
// PatternMismatchError.
func Moderator(row *goquery.Selection, cols layout.ModTeam) (mod forum.Moderator, ok bool, err error) {
	cells := extract.Cells(row)
	if len(cells) <= 1 {
		return forum.Moderator{}, false, nil
	}

	userCell, err := extract.Column(cells, cols.User, "user")
	if err != nil {
		return forum.Moderator{}, false, err
	}
	user, err := extract.FindLink(userCell, extract.UserLink)
	if err != nil {
		return forum.Moderator{}, false, err
	}

	avatarCell, err := extract.Column(cells, cols.Avatar, "avatar")
	if err != nil {
		return forum.Moderator{}, false, err
	}
	avatar, exists := avatarCell.Find("img[src]").First().Attr("src")
	if !exists {
		return forum.Moderator{}, false, &extract.FormatMismatchError{Field: "avatar", Marker: "img[src]"}
	}

	forumCell, err := extract.Column(cells, cols.Forum, "moderated forum")
	if err != nil {
		return forum.Moderator{}, false, err
	}

	return forum.Moderator{
		AvatarImageLink: avatar,
		UserID:          user.ID,
		UserName:        user.Text,
		ModForumName:    extract.TrimmedText(forumCell),
	}, true, nil
}

// ActiveTopic assembles one active topics row.
//
// The last action cell anchors the row: replies and views count as present
// only when their column comes before it, otherwise they default to "0".
func ActiveTopic(row *goquery.Selection, cols layout.ActiveTopics) (forum.ActiveTopic, error) {
	cells := extract.Cells(row)

	readCell, err := extract.Column(cells, cols.ReadState, "read state")
	if err != nil {
		return forum.ActiveTopic{}, err
	}
	readState, err := readCell.Html()
	if err != nil {
		return forum.ActiveTopic{}, fmt.Errorf("read state markup: %w", err)
	}

	topicCell, err := extract.Column(cells, cols.Topic, "topic")
	if err != nil {
		return forum.ActiveTopic{}, err
	}
	topic, err := extract.FindLink(topicCell, extract.TopicLink)
	if err != nil {
		return forum.ActiveTopic{}, fmt.Errorf("topic: %w", err)
	}

	forumCell, err := extract.Column(cells, cols.Forum, "forum")
	if err != nil {
		return forum.ActiveTopic{}, err
	}
	forumLink, err := extract.FindLink(forumCell, extract.ForumLink)
	if err != nil {
		return forum.ActiveTopic{}, fmt.Errorf("forum: %w", err)
	}

	starterCell, err := extract.Column(cells, cols.Starter, "starter")
	if err != nil {
		return forum.ActiveTopic{}, err
	}
	starter, err := extract.AuthorOrGuest(starterCell, "")
	if err != nil {
		return forum.ActiveTopic{}, fmt.Errorf("starter: %w", err)
	}

	lastIdx := extract.ResolveColumn(cols.LastAction, len(cells))
	lastCell, err := extract.Column(cells, cols.LastAction, "last action")
	if err != nil {
		return forum.ActiveTopic{}, err
	}
	lastPostDate, err := extract.CellLeadingSegment(lastCell, extract.BreakMarker)
	if err != nil {
		return forum.ActiveTopic{}, fmt.Errorf("last post date: %w", err)
	}
	lastPoster, err := extract.AuthorOrGuest(lastCell, cols.LastPosterFallback)
	if err != nil {
		return forum.ActiveTopic{}, fmt.Errorf("last poster: %w", err)
	}

	stat := func(idx int) string {
		if extract.ResolveColumn(idx, len(cells)) >= lastIdx {
			return "0"
		}
		return extract.ColumnTextOr(cells, idx, "0")
	}

	var desc string
	if descIdx := extract.ResolveColumn(cols.Description, len(cells)); descIdx >= 0 && descIdx < len(cells) {
		desc = extract.OptionalDescription(cells[descIdx], cols.DescriptionSelector)
	}

	return forum.ActiveTopic{
		ReadState:    strings.TrimSpace(readState),
		TopicID:      topic.ID,
		TopicName:    topic.Text,
		Description:  desc,
		ForumID:      forumLink.ID,
		ForumName:    forumLink.Text,
		Starter:      starter,
		LastPoster:   lastPoster,
		Replies:      stat(cols.Replies),
		Views:        stat(cols.Views),
		LastPostDate: lastPostDate,
	}, nil
}

// TopicHeader assembles a topic header from its block. Forum and topic ids
// are two independent matches on the same track link.
func TopicHeader(block *goquery.Selection, sel layout.TopicHeader) (forum.TopicHeader, error) {
	track := block.Find(sel.Track).First()
	href, exists := track.Attr("href")
	if !exists {
		return forum.TopicHeader{}, &extract.PatternMismatchError{Pattern: sel.Track}
	}

	forumID, err := extract.IDFromHref(href, extract.ForumParam)
	if err != nil {
		return forum.TopicHeader{}, fmt.Errorf("track link forum: %w", err)
	}
	topicID, err := extract.IDFromHref(href, extract.TopicParam)
	if err != nil {
		return forum.TopicHeader{}, fmt.Errorf("track link topic: %w", err)
	}

	title := block.Find(sel.Title).First()
	if title.Length() == 0 {
		return forum.TopicHeader{}, &extract.FormatMismatchError{Field: "thread title", Marker: sel.Title}
	}

	// The description element is required; an empty one yields "".
	desc := block.Find(sel.Description).First()
	if desc.Length() == 0 {
		return forum.TopicHeader{}, &extract.FormatMismatchError{Field: "thread description", Marker: sel.Description}
	}

	canAttachPoll := false
	block.Find(sel.Poll).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		canAttachPoll = strings.Contains(href, "act=Post")
		return !canAttachPoll
	})

	return forum.TopicHeader{
		HasUnreadAffordance: block.Find(sel.Unread).Length() > 0,
		ForumID:             forumID,
		TopicID:             topicID,
		ThreadTitle:         extract.TrimmedText(title),
		ThreadDescription:   extract.TrimmedText(desc),
		CanAttachPoll:       canAttachPoll,
	}, nil
}
