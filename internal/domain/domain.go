package domain

// ChatSettings is the persisted per-chat preference. Cards and texts are
// never stored.
type ChatSettings struct {
	ChatID      int64
	TemplateKey string
}

// Source is text resolved from a link.
type Source struct {
	URL   string
	Title string
	Text  string
}
