package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"skinbuilder/pkg/forum"
)

// Pattern captures a numeric id from a link target.
type Pattern struct {
	name string
	re   *regexp.Regexp
}

// NewPattern compiles expr, whose first capturing group is the id.
func NewPattern(name, expr string) Pattern {
	return Pattern{name: name, re: regexp.MustCompile(expr)}
}

func (p Pattern) String() string { return p.name }

// Link target patterns of the legacy forum.
var (
	UserLink   = NewPattern("showuser=", `showuser=(\d+)`)
	TopicLink  = NewPattern("showtopic=", `showtopic=(\d+)`)
	ForumLink  = NewPattern("showforum=", `showforum=(\d+)`)
	ForumParam = NewPattern("f=", `[?&;]f=(\d+)`)
	TopicParam = NewPattern("t=", `[?&;]t=(\d+)`)
)

// BreakMarker matches a line break however the serializer wrote it.
var BreakMarker = regexp.MustCompile(`(?i)<br\s*/?>`)

// Link is an anchor whose href matched a pattern.
type Link struct {
	ID   string
	Text string
	Href string
}

// FindLink returns the first anchor under region whose href matches p.
func FindLink(region *goquery.Selection, p Pattern) (Link, error) {
	var (
		link    Link
		found   bool
		checked int
	)
	region.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		checked++
		href, _ := a.Attr("href")
		m := p.re.FindStringSubmatch(href)
		if m == nil {
			return true
		}
		link = Link{ID: m[1], Text: TrimmedText(a), Href: href}
		found = true
		return false
	})

	if !found {
		return Link{}, &PatternMismatchError{Pattern: p.name, Anchors: checked}
	}
	return link, nil
}

// IDFromLink returns the id captured from the first matching anchor under region.
func IDFromLink(region *goquery.Selection, p Pattern) (string, error) {
	link, err := FindLink(region, p)
	if err != nil {
		return "", err
	}
	return link.ID, nil
}

// IDFromHref applies p to a single link target.
func IDFromHref(href string, p Pattern) (string, error) {
	m := p.re.FindStringSubmatch(href)
	if m == nil {
		return "", &PatternMismatchError{Pattern: p.name, Anchors: 1}
	}
	return m[1], nil
}

// TrimmedText returns the visible text of a selection with whitespace runs collapsed.
func TrimmedText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// OptionalDescription returns the text of the first element matching selector, or "" if there is none.
func OptionalDescription(region *goquery.Selection, selector string) string {
	desc := region.Find(selector).First()
	if desc.Length() == 0 {
		return ""
	}
	return TrimmedText(desc)
}

// LeadingSegment returns the visible text before the first break marker in raw
// markup. Tags wrapping that text are dropped and entities decoded.
func LeadingSegment(rawMarkup string, marker *regexp.Regexp) (string, error) {
	loc := marker.FindStringIndex(rawMarkup)
	if loc == nil {
		return "", &FormatMismatchError{Field: "leading segment", Marker: marker.String()}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawMarkup[:loc[0]]))
	if err != nil {
		return "", fmt.Errorf("parse leading segment: %w", err)
	}
	return TrimmedText(doc.Find("body")), nil
}

// CellLeadingSegment is LeadingSegment over the inner markup of a cell.
func CellLeadingSegment(cell *goquery.Selection, marker *regexp.Regexp) (string, error) {
	raw, err := cell.Html()
	if err != nil {
		return "", fmt.Errorf("render cell markup: %w", err)
	}
	return LeadingSegment(strings.TrimSpace(raw), marker)
}

// AuthorOrGuest reads the author of a cell. A profile link makes a Member; without
// one the author is a Guest named by the text of the fallback element, or of the
// whole region when fallback is empty.
func AuthorOrGuest(region *goquery.Selection, fallback string) (forum.Author, error) {
	link, err := FindLink(region, UserLink)
	if err == nil {
		return forum.Member{ID: link.ID, Name: link.Text}, nil
	}
	if !IsPatternMismatch(err) {
		return nil, err
	}

	name := region
	if fallback != "" {
		name = region.Find(fallback).First()
		if name.Length() == 0 {
			return nil, &FormatMismatchError{Field: "guest name", Marker: fallback}
		}
	}
	return forum.Guest{Name: TrimmedText(name)}, nil
}

// ResolveColumn maps a column index onto a row of n cells. Negative indices
// count from the end, so -1 is the last cell.
func ResolveColumn(idx, n int) int {
	if idx < 0 {
		return n + idx
	}
	return idx
}

// Column returns a required cell.
func Column(cells []*goquery.Selection, idx int, field string) (*goquery.Selection, error) {
	idx = ResolveColumn(idx, len(cells))
	if idx < 0 || idx >= len(cells) {
		return nil, &FormatMismatchError{Field: field, Marker: fmt.Sprintf("column %d (row has %d)", idx, len(cells))}
	}
	return cells[idx], nil
}

// ColumnTextOr returns the trimmed text of an optional cell, or def when the
// row has no such column. An empty cell yields "", not def.
func ColumnTextOr(cells []*goquery.Selection, idx int, def string) string {
	idx = ResolveColumn(idx, len(cells))
	if idx < 0 || idx >= len(cells) {
		return def
	}
	return TrimmedText(cells[idx])
}
