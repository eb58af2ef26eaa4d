package hianime

import "github.com/mmcdole/anikino/internal/domain"

type envelope[T any] struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type episodesData struct {
	TotalEpisodes int `json:"totalEpisodes"`
	Episodes      []struct {
		Number    int    `json:"number"`
		Title     string `json:"title"`
		EpisodeID string `json:"episodeId"`
		IsFiller  bool   `json:"isFiller"`
	} `json:"episodes"`
}

type serverEntry struct {
	ServerID   int    `json:"serverId"`
	ServerName string `json:"serverName"`
}

type serversData struct {
	EpisodeID string        `json:"episodeId"`
	EpisodeNo int           `json:"episodeNo"`
	Sub       []serverEntry `json:"sub"`
	Dub       []serverEntry `json:"dub"`
	Raw       []serverEntry `json:"raw"`
}

type segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type sourcesData struct {
	Headers map[string]string `json:"headers"`
	Sources []struct {
		URL    string `json:"url"`
		IsM3U8 bool   `json:"isM3U8"`
		Type   string `json:"type"`
	} `json:"sources"`
	Tracks []struct {
		URL  string `json:"url"`
		File string `json:"file"`
		Lang string `json:"lang"`
	} `json:"tracks"`
	Intro     segment `json:"intro"`
	Outro     segment `json:"outro"`
	AnilistID int     `json:"anilistID"`
	MalID     int     `json:"malID"`
}

func (d sourcesData) toDomain() *domain.SourcePayload {
	p := &domain.SourcePayload{
		AnimeID: d.MalID,
		Headers: d.Headers,
		Intro:   domain.Segment{Start: d.Intro.Start, End: d.Intro.End},
		Outro:   domain.Segment{Start: d.Outro.Start, End: d.Outro.End},
	}

	for _, s := range d.Sources {
		if s.URL == "" {
			continue
		}
		kind := s.Type
		if kind == "" {
			kind = "mp4"
			if s.IsM3U8 {
				kind = "hls"
			}
		}
		p.Streams = append(p.Streams, domain.Stream{URL: s.URL, Type: kind})
	}
	// Prefer HLS for the primary stream
	for _, s := range p.Streams {
		if s.Type == "hls" {
			p.StreamURL = s.URL
			break
		}
	}
	if p.StreamURL == "" && len(p.Streams) > 0 {
		p.StreamURL = p.Streams[0].URL
	}

	for _, t := range d.Tracks {
		url := t.URL
		if url == "" {
			url = t.File
		}
		// Thumbnail sprites come back as tracks too
		if url == "" || t.Lang == "" || t.Lang == "thumbnails" {
			continue
		}
		p.Subtitles = append(p.Subtitles, domain.Subtitle{URL: url, Lang: t.Lang})
	}
	return p
}

type searchData struct {
	Animes []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"animes"`
}

type infoData struct {
	Anime struct {
		Info struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			MalID     int    `json:"malId"`
			AnilistID int    `json:"anilistId"`
		} `json:"info"`
	} `json:"anime"`
}
