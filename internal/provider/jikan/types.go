package jikan

import "github.com/mmcdole/anikino/internal/domain"

type animeResponse struct {
	Data animeData `json:"data"`
}

type animeData struct {
	MalID        int           `json:"mal_id"`
	Title        string        `json:"title"`
	TitleEnglish string        `json:"title_english"`
	Episodes     *int          `json:"episodes"`
	Airing       bool          `json:"airing"`
	Broadcast    broadcastData `json:"broadcast"`
}

type broadcastData struct {
	Day      string `json:"day"`      // "Saturdays"
	Time     string `json:"time"`     // "23:00"
	Timezone string `json:"timezone"` // "Asia/Tokyo"
}

func (a animeData) toDomain() *domain.AnimeRecord {
	return &domain.AnimeRecord{
		ID:           a.MalID,
		Title:        a.Title,
		EpisodeCount: a.Episodes,
		Airing:       a.Airing,
		Broadcast: domain.Broadcast{
			Weekday:   a.Broadcast.Day,
			LocalTime: a.Broadcast.Time,
			Timezone:  a.Broadcast.Timezone,
		},
	}
}
