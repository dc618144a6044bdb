package identity

// IsCrawler reports whether a user agent belongs to a bot.
type IsCrawler func(ua string) bool
