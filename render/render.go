package render

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"skinbuilder/pkg/forum"
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithSanitizer runs passthrough markup through a bluemonday policy before it is emitted.
func WithSanitizer(p *bluemonday.Policy) Option {
	return func(r *Renderer) {
		r.passthrough = p.Sanitize
	}
}

// Renderer turns records into fragments. It holds no per-call state.
type Renderer struct {
	passthrough func(string) string
}

// New creates a renderer. Without options passthrough markup is emitted as is.
func New(opts ...Option) *Renderer {
	r := &Renderer{passthrough: func(s string) string { return s }}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var std = New()

// ModCard renders a moderator with the default renderer.
func ModCard(m forum.Moderator) Fragment { return std.ModCard(m) }

// ActiveTopicRow renders an active topic with the default renderer.
func ActiveTopicRow(t forum.ActiveTopic) Fragment { return std.ActiveTopicRow(t) }

// TopicHeader renders a topic header with the default renderer.
func TopicHeader(h forum.TopicHeader) Fragment { return std.TopicHeader(h) }

// ModCard renders a moderator card. The user name is always lower-cased.
func (r *Renderer) ModCard(m forum.Moderator) Fragment {
	link := appendChildren(
		element("a", "href", "?showuser="+m.UserID, "title", "click to view profile"),
		wrap("h2", "Mod", "class", "title"),
		wrap("div", strings.ToLower(m.UserName), "class", "user-name"),
		element("img", "src", m.AvatarImageLink, "alt", "Avatar", "class", "avatar"),
		wrap("div", "Click to View Profile", "class", "user-info"),
	)
	card := appendChildren(element("div", "class", "mod-card"), link)
	return Fragment{Nodes: []*html.Node{card}}
}

// ActiveTopicRow renders an active topic row. The row's first child is an
// empty tag placeholder whose id is "t-<topicId> thread-tags"; skin scripts
// look it up by that exact string.
func (r *Renderer) ActiveTopicRow(t forum.ActiveTopic) Fragment {
	grid := appendChildren(element("grid"),
		appendChildren(element("macro"), markup(r.passthrough(t.ReadState))...),
		appendChildren(element("name"),
			wrap("a", t.TopicName, "href", "?showtopic="+t.TopicID, "title", t.TopicName),
		),
		appendChildren(element("stats"),
			wrap("span", t.Replies, "class", "replies"),
			text(" replies & "),
			wrap("span", t.Views, "class", "views"),
			text(" views"),
		),
		wrap("desc", t.Description),
		appendChildren(element("firstposter"),
			text("started by: "),
			author(t.Starter),
		),
		appendChildren(element("forum-posted"),
			text("in forum: "),
			wrap("a", t.ForumName, "href", "?showforum="+t.ForumID),
		),
		appendChildren(element("lastposter"),
			wrap("a", "latest reply", "href", "?showtopic="+t.TopicID+"&view=getlastpost", "title", "Go to Latest Reply"),
			text(": "),
			author(t.LastPoster),
		),
		wrap("last-post", t.LastPostDate),
	)

	row := appendChildren(element("div", "id", "t-"+t.TopicID, "class", "active-topic-row"), grid)
	// TODO: the placeholder id contains a space; switch to a data attribute once the skin's tag script stops matching on id.
	row.InsertBefore(element("div", "id", "t-"+t.TopicID+" thread-tags"), row.FirstChild)

	return Fragment{Nodes: []*html.Node{row}}
}

// author links members to their profile and prints guests as plain text.
func author(a forum.Author) *html.Node {
	switch a := a.(type) {
	case forum.Member:
		return wrap("a", a.Name, "href", "?showuser="+a.ID)
	case forum.Guest:
		return wrap("span", a.Name)
	default:
		return element("span")
	}
}

// TopicHeader renders the topic title block followed by its option buttons.
// The poll button appears only when the viewer can attach a poll, and the
// first-unread link, when present, comes before everything else.
func (r *Renderer) TopicHeader(h forum.TopicHeader) Fragment {
	query := "&f=" + h.ForumID + "&t=" + h.TopicID

	header := appendChildren(element("div", "class", "post-row-header"),
		wrap("div", "topic", "class", "ribbon"),
		wrap("h1", h.ThreadTitle, "class", "thread-title"),
		wrap("div", h.ThreadDescription, "class", "thread-desc"),
		element("div", "class", "thread-tags"),
	)

	options := appendChildren(element("div", "class", "topic-options"),
		wrap("a", "track topic", "href", "?act=Track"+query, "class", "button-54"),
		wrap("a", "print topic", "href", "?act=Print&client=printer"+query, "class", "button-54"),
	)
	if h.CanAttachPoll {
		options.AppendChild(wrap("a", "attach poll", "href", "?act=Post&CODE=14"+query, "class", "button-54"))
	}

	nodes := []*html.Node{header, options}
	if h.HasUnreadAffordance {
		unread := appendChildren(element("div", "class", "goto-firstunread"),
			wrap("a", "go to first unread post", "href", "?showtopic="+h.TopicID+"&view=getnewpost", "title", "Go to first unread post"),
		)
		nodes = append([]*html.Node{unread}, nodes...)
	}

	return Fragment{Nodes: nodes}
}
