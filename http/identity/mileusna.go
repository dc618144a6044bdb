package identity

import "github.com/mileusna/useragent"

func NewMileusna() IsCrawler {
	return func(ua string) bool {
		if ua == "" {
			return false
		}
		return useragent.Parse(ua).Bot
	}
}
