package messaging

const TopicLinkCreated = "link.created"

// LinkCreated is published after a link is stored.
type LinkCreated struct {
	Code     string `json:"code"`
	ShortURL string `json:"short_url"`
	OwnerID  string `json:"owner_id"`
}
