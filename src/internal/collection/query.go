package collection

import (
	"sort"
	"strconv"
	"strings"
)

// pagination bounds
const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ListBandsRequest is the filter/sort/page record of the ListBands
// operation. All filters are AND-composed. Unknown fields are rejected at
// the decoding boundary.
type ListBandsRequest struct {
	Search        string `json:"search,omitempty"`
	FilterGenre   string `json:"filter_genre,omitempty"`
	HasMetadata   *bool  `json:"filter_has_metadata,omitempty"`
	HasMissing    *bool  `json:"filter_missing_albums,omitempty"`
	SortBy        string `json:"sort_by,omitempty"`
	SortOrder     string `json:"sort_order,omitempty"`
	Page          int    `json:"page,omitempty"`
	PageSize      int    `json:"page_size,omitempty"`
	IncludeAlbums bool   `json:"include_albums,omitempty"`
	AlbumDetails  string `json:"album_details_filter,omitempty"`
}

// sort keys of ListBands
const (
	SortByName        = "name"
	SortByAlbumsCount = "albums_count"
	SortByLastUpdated = "last_updated"
	SortByCompletion  = "completion"
)

// normalize applies defaults and validates the enumerated options
func (me *ListBandsRequest) normalize() *Failure {
	if me.SortBy == "" {
		me.SortBy = SortByName
	}
	switch me.SortBy {
	case SortByName, SortByAlbumsCount, SortByLastUpdated, SortByCompletion:
	default:
		return validation([]Issue{{
			Field:       "sort_by",
			Message:     "unknown sort key '" + me.SortBy + "'",
			Remediation: "use one of: name, albums_count, last_updated, completion",
		}})
	}

	if me.SortOrder == "" {
		me.SortOrder = "asc"
	}
	if me.SortOrder != "asc" && me.SortOrder != "desc" {
		return validation([]Issue{{
			Field:       "sort_order",
			Message:     "unknown sort order '" + me.SortOrder + "'",
			Remediation: "use 'asc' or 'desc'",
		}})
	}

	if me.Page == 0 {
		me.Page = 1
	}
	if me.Page < 1 {
		return validation([]Issue{{
			Field:   "page",
			Message: "page numbers are 1-based",
		}})
	}
	if me.PageSize == 0 {
		me.PageSize = defaultPageSize
	}
	if me.PageSize < 1 || me.PageSize > maxPageSize {
		return validation([]Issue{{
			Field:       "page_size",
			Message:     "page_size must be in [1, 100] - got " + strconv.Itoa(me.PageSize),
			Remediation: "pick a page size between 1 and 100",
		}})
	}

	if me.AlbumDetails == "" {
		me.AlbumDetails = "all"
	}
	switch me.AlbumDetails {
	case "all", "local", "missing":
	default:
		return validation([]Issue{{
			Field:       "album_details_filter",
			Message:     "unknown album details filter '" + me.AlbumDetails + "'",
			Remediation: "use 'all', 'local' or 'missing'",
		}})
	}
	return nil
}

// BandEntry is one band in a paged listing. The album lists are only filled
// when album details were requested.
type BandEntry struct {
	BandSummary
	CompletionRate float64 `json:"completion_rate"`
	Albums         []Album `json:"albums,omitempty"`
	AlbumsMissing  []Album `json:"albums_missing,omitempty"`
}

// PagedBandList is the response of ListBands
type PagedBandList struct {
	Bands       []BandEntry `json:"bands"`
	Total       int         `json:"total"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	TotalPages  int         `json:"total_pages"`
	HasPrevious bool        `json:"has_previous"`
	HasNext     bool        `json:"has_next"`
}

// bandLoader fetches the full record of a band. The query engine uses it for
// predicates the index summaries cannot answer.
type bandLoader func(name string) (*Band, error)

// listBands filters, sorts and paginates the band summaries of the index.
// Filters that need album titles, genres or album lists consult the band
// files through load; everything else runs on the index alone.
func listBands(idx *CollectionIndex, load bandLoader, req *ListBandsRequest) (*PagedBandList, error) {
	if f := req.normalize(); f != nil {
		return nil, f
	}

	needsRecord := req.Search != "" || req.FilterGenre != "" || req.IncludeAlbums

	entries := make([]BandEntry, 0, len(idx.Bands))
	for i := range idx.Bands {
		s := idx.Bands[i]

		if req.HasMetadata != nil && s.HasMetadata != *req.HasMetadata {
			continue
		}
		if req.HasMissing != nil && (s.MissingAlbumsCount > 0) != *req.HasMissing {
			continue
		}

		entry := BandEntry{BandSummary: s, CompletionRate: round1(s.Completion())}

		if needsRecord {
			b, err := load(s.Name)
			if err != nil {
				// index summary without a loadable band file: skip it for
				// record-level predicates, the rebuild report carries the root
				// cause
				continue
			}
			if req.Search != "" && !bandMatchesSearch(b, req.Search) {
				continue
			}
			if req.FilterGenre != "" && !containsFold(b.Genres, req.FilterGenre) {
				continue
			}
			if req.IncludeAlbums {
				if req.AlbumDetails == "all" || req.AlbumDetails == "local" {
					entry.Albums = b.Albums
				}
				if req.AlbumDetails == "all" || req.AlbumDetails == "missing" {
					entry.AlbumsMissing = b.AlbumsMissing
				}
			}
		}

		entries = append(entries, entry)
	}

	sortBands(entries, req.SortBy, req.SortOrder == "desc")

	total := len(entries)
	totalPages := (total + req.PageSize - 1) / req.PageSize
	start := (req.Page - 1) * req.PageSize
	end := start + req.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return &PagedBandList{
		Bands:       entries[start:end],
		Total:       total,
		Page:        req.Page,
		PageSize:    req.PageSize,
		TotalPages:  totalPages,
		HasPrevious: req.Page > 1,
		HasNext:     req.Page < totalPages,
	}, nil
}

// bandMatchesSearch matches the search term against the band name and every
// album title, case-insensitively
func bandMatchesSearch(b *Band, term string) bool {
	low := strings.ToLower(term)
	if strings.Contains(strings.ToLower(b.Name), low) {
		return true
	}
	for i := range b.Albums {
		if strings.Contains(strings.ToLower(b.Albums[i].Name), low) {
			return true
		}
	}
	for i := range b.AlbumsMissing {
		if strings.Contains(strings.ToLower(b.AlbumsMissing[i].Name), low) {
			return true
		}
	}
	return false
}

// sortBands orders entries by the given key with a stable secondary sort on
// the band name ascending
func sortBands(entries []BandEntry, key string, desc bool) {
	less := func(i, j int) bool { return entries[i].Name < entries[j].Name }
	switch key {
	case SortByAlbumsCount:
		less = func(i, j int) bool { return entries[i].AlbumsCount < entries[j].AlbumsCount }
	case SortByLastUpdated:
		less = func(i, j int) bool { return entries[i].LastUpdated < entries[j].LastUpdated }
	case SortByCompletion:
		less = func(i, j int) bool { return entries[i].CompletionRate < entries[j].CompletionRate }
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if less(i, j) {
			return !desc
		}
		if less(j, i) {
			return desc
		}
		return entries[i].Name < entries[j].Name
	})
}

// SearchAlbumsRequest is the composable predicate of the SearchAlbums
// operation, applied to every album across every band. All clauses are
// optional and AND-composed.
type SearchAlbumsRequest struct {
	AlbumTypes    []string `json:"album_types,omitempty"`
	YearMin       int      `json:"year_min,omitempty"`
	YearMax       int      `json:"year_max,omitempty"`
	Decades       []string `json:"decades,omitempty"`
	Editions      []string `json:"editions,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Bands         []string `json:"bands,omitempty"`
	HasRating     *bool    `json:"has_rating,omitempty"`
	RatingMin     int      `json:"rating_min,omitempty"`
	RatingMax     int      `json:"rating_max,omitempty"`
	IsLocal       *bool    `json:"is_local,omitempty"`
	TrackCountMin int      `json:"track_count_min,omitempty"`
	TrackCountMax int      `json:"track_count_max,omitempty"`
}

// AlbumHit is one album matching a search, tagged with its band and whether
// it is local
type AlbumHit struct {
	Album
	Band    string `json:"band_name"`
	IsLocal bool   `json:"is_local"`
	Rating  int    `json:"rating,omitempty"`
}

// BandAlbums groups the hits of one band
type BandAlbums struct {
	Band   string     `json:"band_name"`
	Albums []AlbumHit `json:"albums"`
}

// AlbumSearchResult is the response of SearchAlbums, grouped by band
type AlbumSearchResult struct {
	Results      []BandAlbums `json:"results"`
	TotalMatches int          `json:"total_matches"`
}

// searchAlbums evaluates the predicate over the full records of all bands
func searchAlbums(bands []*Band, req *SearchAlbumsRequest) *AlbumSearchResult {
	result := &AlbumSearchResult{Results: []BandAlbums{}}

	for _, b := range bands {
		if len(req.Bands) > 0 && !containsFold(req.Bands, b.Name) {
			continue
		}

		var hits []AlbumHit
		for i := range b.Albums {
			if hit, ok := matchAlbum(b, &b.Albums[i], true, req); ok {
				hits = append(hits, hit)
			}
		}
		for i := range b.AlbumsMissing {
			if hit, ok := matchAlbum(b, &b.AlbumsMissing[i], false, req); ok {
				hits = append(hits, hit)
			}
		}

		if len(hits) > 0 {
			result.Results = append(result.Results, BandAlbums{Band: b.Name, Albums: hits})
			result.TotalMatches += len(hits)
		}
	}
	return result
}

// matchAlbum evaluates all clauses of the predicate for one album
func matchAlbum(b *Band, a *Album, local bool, req *SearchAlbumsRequest) (AlbumHit, bool) {
	none := AlbumHit{}

	if req.IsLocal != nil && local != *req.IsLocal {
		return none, false
	}
	if len(req.AlbumTypes) > 0 && !containsFold(req.AlbumTypes, string(a.Type)) {
		return none, false
	}

	// any year or decade clause excludes albums without a year
	if req.YearMin > 0 || req.YearMax > 0 || len(req.Decades) > 0 {
		year, err := strconv.Atoi(a.Year)
		if err != nil {
			return none, false
		}
		if req.YearMin > 0 && year < req.YearMin {
			return none, false
		}
		if req.YearMax > 0 && year > req.YearMax {
			return none, false
		}
		if len(req.Decades) > 0 && !containsFold(req.Decades, a.Decade()) {
			return none, false
		}
	}

	if len(req.Editions) > 0 {
		edition := a.Edition
		if edition == "" {
			edition = "Standard"
		}
		if !containsFold(req.Editions, edition) {
			return none, false
		}
	}

	if len(req.Genres) > 0 && !intersectsFold(a.Genres, req.Genres) {
		return none, false
	}

	rating := b.Analysis.AlbumRate(a.Name)
	if req.HasRating != nil && (rating >= 1) != *req.HasRating {
		return none, false
	}
	if req.RatingMin > 0 && rating < req.RatingMin {
		return none, false
	}
	if req.RatingMax > 0 && rating > req.RatingMax {
		return none, false
	}

	if req.TrackCountMin > 0 && a.TrackCount < req.TrackCountMin {
		return none, false
	}
	if req.TrackCountMax > 0 && a.TrackCount > req.TrackCountMax {
		return none, false
	}

	return AlbumHit{Album: *a, Band: b.Name, IsLocal: local, Rating: rating}, true
}

// containsFold reports whether list contains s, ignoring case
func containsFold(list []string, s string) bool {
	for _, e := range list {
		if strings.EqualFold(e, s) {
			return true
		}
	}
	return false
}

// intersectsFold reports whether the two lists share an element, ignoring
// case
func intersectsFold(a, b []string) bool {
	for _, e := range a {
		if containsFold(b, e) {
			return true
		}
	}
	return false
}
