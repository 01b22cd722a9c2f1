// Package layout describes where records live in the legacy forum markup.
//
// Every selector, header-row count and column index the extractors depend on
// is kept here, so a change to the upstream skin means editing one table.
package layout

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind identifies a region of the source document.
type Kind int

const (
	ModTeamTable Kind = iota
	ActiveTopicsTable
	TopicHeaderBlock
)

func (k Kind) String() string {
	switch k {
	case ModTeamTable:
		return "mod team table"
	case ActiveTopicsTable:
		return "active topics table"
	case TopicHeaderBlock:
		return "topic header block"
	default:
		return fmt.Sprintf("region(%d)", int(k))
	}
}

// ModTeam is the column table for the moderating team page.
type ModTeam struct {
	Selector   string `yaml:"selector"`
	HeaderRows int    `yaml:"header_rows"`
	Avatar     int    `yaml:"avatar"`
	User       int    `yaml:"user"`
	Forum      int    `yaml:"forum"`
}

// ActiveTopics is the column table for the active topics page.
type ActiveTopics struct {
	Selector            string `yaml:"selector"`
	HeaderRows          int    `yaml:"header_rows"`
	ReadState           int    `yaml:"read_state"`
	Description         int    `yaml:"description"`
	DescriptionSelector string `yaml:"description_selector"`
	Topic               int    `yaml:"topic"`
	Forum               int    `yaml:"forum"`
	Starter             int    `yaml:"starter"`
	Replies             int    `yaml:"replies"`
	Views               int    `yaml:"views"`
	LastAction          int    `yaml:"last_action"` // Negative counts from the end of the row
	LastPosterFallback  string `yaml:"last_poster_fallback"` // Holds a guest's name when there is no profile link
}

// TopicHeader holds the selectors of the topic title block.
type TopicHeader struct {
	Selector    string `yaml:"selector"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Track       string `yaml:"track"`
	Poll        string `yaml:"poll"`
	Unread      string `yaml:"unread"`
}

// Layout is the structural contract with the upstream document.
type Layout struct {
	ModTeam      ModTeam      `yaml:"mod_team"`
	ActiveTopics ActiveTopics `yaml:"active_topics"`
	TopicHeader  TopicHeader  `yaml:"topic_header"`
}

// Default returns the layout of the stock forum skin.
func Default() *Layout {
	return &Layout{
		ModTeam: ModTeam{
			Selector:   "#moderating-team table",
			HeaderRows: 2,
			Avatar:     1,
			User:       2,
			Forum:      4,
		},
		ActiveTopics: ActiveTopics{
			Selector:            "#active-topics .tablebasic",
			HeaderRows:          1,
			ReadState:           0,
			Description:         2,
			DescriptionSelector: "span.desc",
			Topic:               4,
			Forum:               5,
			Starter:             6,
			Replies:             7,
			Views:               8,
			LastAction:          -1,
			LastPosterFallback:  "b",
		},
		TopicHeader: TopicHeader{
			Selector:    "#topic-view",
			Title:       ".topic-title",
			Description: ".topic-desc",
			Track:       `a[href*="act=Track"]`,
			Poll:        `a[href*="CODE=14"]`,
			Unread:      `a[href*="view=getnewpost"]`,
		},
	}
}

// Load reads a YAML layout file. Keys missing from the file keep their default.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout file: %w", err)
	}

	l := Default()
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("unmarshal layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout %s: %w", path, err)
	}
	return l, nil
}

// Region returns the container selector and the number of leading header rows for a kind.
func (l *Layout) Region(kind Kind) (selector string, headerRows int) {
	switch kind {
	case ModTeamTable:
		return l.ModTeam.Selector, l.ModTeam.HeaderRows
	case ActiveTopicsTable:
		return l.ActiveTopics.Selector, l.ActiveTopics.HeaderRows
	case TopicHeaderBlock:
		return l.TopicHeader.Selector, 0
	default:
		return "", 0
	}
}

// Validate rejects layouts that cannot locate anything.
func (l *Layout) Validate() error {
	var errs []error

	nonEmpty := func(name, v string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s: empty selector", name))
		}
	}
	nonNegative := func(name string, v int) {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s: negative value %d", name, v))
		}
	}

	nonEmpty("mod_team.selector", l.ModTeam.Selector)
	nonNegative("mod_team.header_rows", l.ModTeam.HeaderRows)
	nonNegative("mod_team.avatar", l.ModTeam.Avatar)
	nonNegative("mod_team.user", l.ModTeam.User)
	nonNegative("mod_team.forum", l.ModTeam.Forum)

	at := l.ActiveTopics
	nonEmpty("active_topics.selector", at.Selector)
	nonEmpty("active_topics.description_selector", at.DescriptionSelector)
	nonEmpty("active_topics.last_poster_fallback", at.LastPosterFallback)
	nonNegative("active_topics.header_rows", at.HeaderRows)
	for name, v := range map[string]int{
		"read_state":  at.ReadState,
		"description": at.Description,
		"topic":       at.Topic,
		"forum":       at.Forum,
		"starter":     at.Starter,
		"replies":     at.Replies,
		"views":       at.Views,
	} {
		nonNegative("active_topics."+name, v)
	}

	th := l.TopicHeader
	nonEmpty("topic_header.selector", th.Selector)
	nonEmpty("topic_header.title", th.Title)
	nonEmpty("topic_header.description", th.Description)
	nonEmpty("topic_header.track", th.Track)
	nonEmpty("topic_header.poll", th.Poll)
	nonEmpty("topic_header.unread", th.Unread)

	return errors.Join(errs...)
}
