// Package forum contains the record types recovered from legacy forum pages.
package forum

import (
	"encoding/json"
	"fmt"
)

// Moderator is one row of the moderating team table.
type Moderator struct {
	AvatarImageLink string `json:"avatar_image_link"`
	UserID          string `json:"user_id"`
	UserName        string `json:"user_name"`
	ModForumName    string `json:"mod_forum_name"`
}

// Author is the person behind a topic or a reply. It is either a Member or a Guest.
type Author interface {
	// DisplayName returns the name shown for the author.
	DisplayName() string
	isAuthor()
}

// Member is a registered user with a profile.
type Member struct {
	ID   string
	Name string
}

// Guest is an anonymous poster with no profile link.
type Guest struct {
	Name string
}

// DisplayName implements Author.
func (m Member) DisplayName() string { return m.Name }

// DisplayName implements Author.
func (g Guest) DisplayName() string { return g.Name }

func (Member) isAuthor() {}
func (Guest) isAuthor()  {}

type authorJSON struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// MarshalJSON tags the member variant.
func (m Member) MarshalJSON() ([]byte, error) {
	return json.Marshal(authorJSON{Kind: "member", ID: m.ID, Name: m.Name})
}

// MarshalJSON tags the guest variant.
func (g Guest) MarshalJSON() ([]byte, error) {
	return json.Marshal(authorJSON{Kind: "guest", Name: g.Name})
}

// DecodeAuthor decodes the JSON produced by Member.MarshalJSON or Guest.MarshalJSON.
func DecodeAuthor(data []byte) (Author, error) {
	var a authorJSON
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	switch a.Kind {
	case "member":
		return Member{ID: a.ID, Name: a.Name}, nil
	case "guest":
		return Guest{Name: a.Name}, nil
	default:
		return nil, fmt.Errorf("unknown author kind %q", a.Kind)
	}
}

// ActiveTopic is one row of the active topics table.
type ActiveTopic struct {
	ReadState    string `json:"read_state"` // Raw markup, passed through untouched
	TopicID      string `json:"topic_id"`
	TopicName    string `json:"topic_name"`
	Description  string `json:"description"`
	ForumID      string `json:"forum_id"`
	ForumName    string `json:"forum_name"`
	Starter      Author `json:"starter"`
	LastPoster   Author `json:"last_poster"`
	Replies      string `json:"replies"` // Display string, "0" when the column is absent
	Views        string `json:"views"`   // Display string, "0" when the column is absent
	LastPostDate string `json:"last_post_date"`
}

// UnmarshalJSON restores the Author variants.
func (t *ActiveTopic) UnmarshalJSON(data []byte) error {
	type plain ActiveTopic
	var aux struct {
		plain
		Starter    json.RawMessage `json:"starter"`
		LastPoster json.RawMessage `json:"last_poster"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	starter, err := DecodeAuthor(aux.Starter)
	if err != nil {
		return fmt.Errorf("starter: %w", err)
	}
	lastPoster, err := DecodeAuthor(aux.LastPoster)
	if err != nil {
		return fmt.Errorf("last poster: %w", err)
	}
	*t = ActiveTopic(aux.plain)
	t.Starter = starter
	t.LastPoster = lastPoster
	return nil
}

// TopicHeader is the title block of a topic view.
type TopicHeader struct {
	HasUnreadAffordance bool   `json:"has_unread_affordance"`
	ForumID             string `json:"forum_id"`
	TopicID             string `json:"topic_id"`
	ThreadTitle         string `json:"thread_title"`
	ThreadDescription   string `json:"thread_description"`
	CanAttachPoll       bool   `json:"can_attach_poll"`
}
