package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"skinbuilder/pkg/forum"
)

func parse(t *testing.T, f Fragment) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.String()))
	if err != nil {
		t.Fatalf("parse rendered fragment: %v", err)
	}
	return doc
}

func TestModCard(t *testing.T) {
	f := ModCard(forum.Moderator{
		AvatarImageLink: "https://img.example/luna.png",
		UserID:          "3",
		UserName:        "LunaMora",
		ModForumName:    "The Tavern",
	})

	want := `<div class="mod-card"><a href="?showuser=3" title="click to view profile">` +
		`<h2 class="title">Mod</h2><div class="user-name">lunamora</div>` +
		`<img src="https://img.example/luna.png" alt="Avatar" class="avatar"/>` +
		`<div class="user-info">Click to View Profile</div></a></div>`
	if got := f.String(); got != want {
		t.Errorf("ModCard() =\n%s\nwant\n%s", got, want)
	}
}

func topic(starter, lastPoster forum.Author) forum.ActiveTopic {
	return forum.ActiveTopic{
		ReadState:    `<img src="f_norm.gif" alt="No New Posts"/>`,
		TopicID:      "99",
		TopicName:    "Hello World",
		Description:  "first steps",
		ForumID:      "7",
		ForumName:    "General",
		Starter:      starter,
		LastPoster:   lastPoster,
		Replies:      "0",
		Views:        "1,024",
		LastPostDate: "Jan 1, 2025",
	}
}

func TestActiveTopicRowAuthorBranches(t *testing.T) {
	alice := forum.Member{ID: "42", Name: "Alice"}
	bob := forum.Member{ID: "5", Name: "Bob"}
	guest := forum.Guest{Name: "GuestUser"}

	tests := []struct {
		name         string
		starter      forum.Author
		lastPoster   forum.Author
		wantProfiles int
		wantSpans    []string
	}{
		{name: "member/member", starter: alice, lastPoster: bob, wantProfiles: 2},
		{name: "member/guest", starter: alice, lastPoster: guest, wantProfiles: 1, wantSpans: []string{"lastposter"}},
		{name: "guest/member", starter: guest, lastPoster: bob, wantProfiles: 1, wantSpans: []string{"firstposter"}},
		{name: "guest/guest", starter: guest, lastPoster: guest, wantProfiles: 0, wantSpans: []string{"firstposter", "lastposter"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, ActiveTopicRow(topic(tt.starter, tt.lastPoster)))

			if got := doc.Find(`a[href^="?showuser="]`).Length(); got != tt.wantProfiles {
				t.Errorf("profile anchors = %d, want %d", got, tt.wantProfiles)
			}
			for _, tag := range tt.wantSpans {
				if doc.Find(tag+" > span").Length() != 1 {
					t.Errorf("%s should hold a plain span for the guest", tag)
				}
			}
			if doc.Find(`name a[href="?showtopic=99"]`).Length() != 1 {
				t.Error("topic link missing")
			}
			if doc.Find(`forum-posted a[href="?showforum=7"]`).Length() != 1 {
				t.Error("forum link missing")
			}
		})
	}
}

func TestActiveTopicRowShape(t *testing.T) {
	f := ActiveTopicRow(topic(forum.Member{ID: "42", Name: "Alice"}, forum.Guest{Name: "GuestUser"}))
	out := f.String()

	if len(f.Nodes) != 1 {
		t.Fatalf("ActiveTopicRow() produced %d top-level nodes, want 1", len(f.Nodes))
	}
	row := f.Nodes[0]
	if row.Parent != nil {
		t.Error("fragment should be detached")
	}

	// The placeholder keeps its space-separated id and is the row's first child.
	if !strings.HasPrefix(out, `<div id="t-99" class="active-topic-row"><div id="t-99 thread-tags"></div><grid>`) {
		t.Errorf("unexpected row prefix: %s", out)
	}

	for _, want := range []string{
		`<macro><img src="f_norm.gif" alt="No New Posts"/></macro>`,
		`<name><a href="?showtopic=99" title="Hello World">Hello World</a></name>`,
		`<span class="replies">0</span> replies &amp; <span class="views">1,024</span> views`,
		`<desc>first steps</desc>`,
		`started by: <a href="?showuser=42">Alice</a>`,
		`in forum: <a href="?showforum=7">General</a>`,
		`<a href="?showtopic=99&amp;view=getlastpost" title="Go to Latest Reply">latest reply</a>: <span>GuestUser</span>`,
		`<last-post>Jan 1, 2025</last-post></grid></div>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered row missing %q\n%s", want, out)
		}
	}

	var order []string
	parse(t, f).Find("grid").Children().Each(func(_ int, s *goquery.Selection) {
		order = append(order, goquery.NodeName(s))
	})
	wantOrder := "macro name stats desc firstposter forum-posted lastposter last-post"
	if got := strings.Join(order, " "); got != wantOrder {
		t.Errorf("grid children = %q, want %q", got, wantOrder)
	}
}

func TestActiveTopicRowEscapesText(t *testing.T) {
	tp := topic(forum.Guest{Name: "<script>x</script>"}, forum.Guest{Name: "a"})
	tp.TopicName = `Fish & "Chips"`

	out := ActiveTopicRow(tp).String()
	if strings.Contains(out, "<script>") {
		t.Error("guest name should be escaped")
	}
	if !strings.Contains(out, `title="Fish &amp; &#34;Chips&#34;"`) {
		t.Errorf("title attribute not escaped: %s", out)
	}
}

func TestSanitizer(t *testing.T) {
	tp := topic(forum.Guest{Name: "a"}, forum.Guest{Name: "b"})
	tp.ReadState = `<img src="f_norm.gif" onerror="alert(1)"><script>steal()</script>`

	raw := ActiveTopicRow(tp).String()
	if !strings.Contains(raw, "onerror") {
		t.Error("default renderer should pass read state through untouched")
	}

	clean := New(WithSanitizer(bluemonday.UGCPolicy())).ActiveTopicRow(tp).String()
	if strings.Contains(clean, "onerror") || strings.Contains(clean, "steal()") {
		t.Errorf("sanitized row still carries script: %s", clean)
	}
	if !strings.Contains(clean, `src="f_norm.gif"`) {
		t.Errorf("sanitized row lost the image: %s", clean)
	}
}

func TestTopicHeader(t *testing.T) {
	base := forum.TopicHeader{
		ForumID:           "3",
		TopicID:           "99",
		ThreadTitle:       "Hello World",
		ThreadDescription: "first steps",
	}

	t.Run("plain", func(t *testing.T) {
		f := TopicHeader(base)
		if len(f.Nodes) != 2 {
			t.Fatalf("TopicHeader() produced %d nodes, want 2", len(f.Nodes))
		}
		out := f.String()
		want := `<div class="post-row-header"><div class="ribbon">topic</div>` +
			`<h1 class="thread-title">Hello World</h1><div class="thread-desc">first steps</div>` +
			`<div class="thread-tags"></div></div>` +
			`<div class="topic-options">` +
			`<a href="?act=Track&amp;f=3&amp;t=99" class="button-54">track topic</a>` +
			`<a href="?act=Print&amp;client=printer&amp;f=3&amp;t=99" class="button-54">print topic</a>` +
			`</div>`
		if out != want {
			t.Errorf("TopicHeader() =\n%s\nwant\n%s", out, want)
		}
		if strings.Contains(out, "CODE=14") || strings.Contains(out, "goto-firstunread") {
			t.Error("optional affordances rendered without their flags")
		}
	})

	t.Run("unread and poll", func(t *testing.T) {
		h := base
		h.HasUnreadAffordance = true
		h.CanAttachPoll = true

		f := TopicHeader(h)
		if len(f.Nodes) != 3 {
			t.Fatalf("TopicHeader() produced %d nodes, want 3", len(f.Nodes))
		}
		out := f.String()

		if !strings.HasPrefix(out, `<div class="goto-firstunread"><a href="?showtopic=99&amp;view=getnewpost"`) {
			t.Errorf("unread affordance is not first: %s", out)
		}
		if strings.Index(out, "goto-firstunread") > strings.Index(out, "ribbon") {
			t.Error("unread affordance must precede the ribbon")
		}
		if !strings.Contains(out, `<a href="?act=Post&amp;CODE=14&amp;f=3&amp;t=99" class="button-54">attach poll</a></div>`) {
			t.Errorf("poll button missing or misplaced: %s", out)
		}
	})
}

func TestFragmentStringMatchesRender(t *testing.T) {
	f := ModCard(forum.Moderator{AvatarImageLink: "a.png", UserID: "3", UserName: "Luna", ModForumName: "Tavern"})
	var b strings.Builder
	if err := f.Render(&b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if f.String() != b.String() {
		t.Errorf("String() = %q, Render() = %q", f.String(), b.String())
	}
	if got := (Fragment{}).String(); got != "" {
		t.Errorf("empty Fragment String() = %q", got)
	}
}
