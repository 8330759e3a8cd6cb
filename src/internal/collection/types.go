package collection

import (
	"fmt"
	"strings"
	"time"

	l "github.com/sirupsen/logrus"
)

var log *l.Entry = l.WithFields(l.Fields{"srv": "collection"})

// AlbumType classifies a release (album, EP, live recording etc.)
type AlbumType string

// possible album types
const (
	TypeAlbum        AlbumType = "Album"
	TypeEP           AlbumType = "EP"
	TypeLive         AlbumType = "Live"
	TypeDemo         AlbumType = "Demo"
	TypeCompilation  AlbumType = "Compilation"
	TypeSingle       AlbumType = "Single"
	TypeInstrumental AlbumType = "Instrumental"
	TypeSplit        AlbumType = "Split"
)

// albumTypes contains all known album types in their canonical order
var albumTypes = []AlbumType{
	TypeAlbum,
	TypeEP,
	TypeLive,
	TypeDemo,
	TypeCompilation,
	TypeSingle,
	TypeInstrumental,
	TypeSplit,
}

// IsValid checks if the album type has a valid value
func (me AlbumType) IsValid() (err error) {
	for _, t := range albumTypes {
		if me == t {
			return
		}
	}
	err = fmt.Errorf("'%s' is no valid album type", string(me))
	return
}

// CoerceAlbumType maps s onto a known album type, ignoring case. Unknown
// strings coerce to TypeAlbum; ok reports whether s was recognized.
func CoerceAlbumType(s string) (t AlbumType, ok bool) {
	for _, at := range albumTypes {
		if strings.EqualFold(s, string(at)) {
			return at, true
		}
	}
	return TypeAlbum, false
}

// AlbumKey identifies an album within a band. Name, year and edition together
// form the identity that merge and lookup operations use.
type AlbumKey struct {
	Name    string
	Year    string
	Edition string
}

// Album is one release of a band, either present on disk (local) or known
// from enrichment only (missing). Which of the two it is follows from the
// list it sits in; the record shape is the same for both.
type Album struct {
	Name       string    `json:"album_name"`
	Year       string    `json:"year"`
	Type       AlbumType `json:"type"`
	Edition    string    `json:"edition"`
	TrackCount int       `json:"track_count"`
	Duration   string    `json:"duration,omitempty"`
	Genres     []string  `json:"genres"`
	FolderPath string    `json:"folder_path,omitempty"`
}

// Key returns the identity of the album
func (me *Album) Key() AlbumKey {
	return AlbumKey{Name: me.Name, Year: me.Year, Edition: me.Edition}
}

// Decade returns the decade label of the album ("1980s"). An empty string is
// returned if the album has no year.
func (me *Album) Decade() string {
	if len(me.Year) != 4 {
		return ""
	}
	var y int
	if _, err := fmt.Sscanf(me.Year, "%4d", &y); err != nil {
		return ""
	}
	return fmt.Sprintf("%ds", (y/10)*10)
}

// AlbumAnalysis is the per-album part of a band analysis (review and rating,
// keyed by album title)
type AlbumAnalysis struct {
	Name   string `json:"album_name"`
	Review string `json:"review"`
	Rate   int    `json:"rate"`
}

// BandAnalysis holds the durable enrichment of a band: overall review and
// rating, similar bands and per-album analyses. A rate of 0 means "unrated".
type BandAnalysis struct {
	Review       string          `json:"review"`
	Rate         int             `json:"rate"`
	SimilarBands []string        `json:"similar_bands"`
	Albums       []AlbumAnalysis `json:"albums"`
}

// AlbumRate returns the rating of the album with the given title. 0 is
// returned if no analysis for that title exists.
func (me *BandAnalysis) AlbumRate(name string) int {
	if me == nil {
		return 0
	}
	for _, a := range me.Albums {
		if a.Name == name {
			return a.Rate
		}
	}
	return 0
}

// Band is the full record of one band as stored in its sidecar file. Albums
// contains the local albums, AlbumsMissing the albums known from enrichment
// that have no folder on disk. No album key may appear in both lists.
type Band struct {
	Name          string        `json:"band_name"`
	Formed        string        `json:"formed"`
	Genres        []string      `json:"genres"`
	Origin        string        `json:"origin"`
	Members       []string      `json:"members"`
	Description   string        `json:"description"`
	Albums        []Album       `json:"albums"`
	AlbumsMissing []Album       `json:"albums_missing"`
	Analysis      *BandAnalysis `json:"analyze,omitempty"`
	FolderPath    string        `json:"folder_path,omitempty"`
	LastUpdated   string        `json:"last_updated"`
	AlbumsCount   int           `json:"albums_count"`
}

// TotalAlbums returns the number of local plus missing albums
func (me *Band) TotalAlbums() int {
	return len(me.Albums) + len(me.AlbumsMissing)
}

// Completion returns the local share of all albums as percentage. A band
// without any albums is complete by definition.
func (me *Band) Completion() float64 {
	total := me.TotalAlbums()
	if total == 0 {
		return 100.0
	}
	return 100.0 * float64(len(me.Albums)) / float64(total)
}

// HasMetadata reports whether enrichment beyond the pure scan result exists
func (me *Band) HasMetadata() bool {
	return me.Formed != "" || len(me.Genres) > 0 || me.Origin != "" ||
		len(me.Members) > 0 || me.Description != ""
}

// HasAnalysis reports whether an analysis block is present
func (me *Band) HasAnalysis() bool {
	return me.Analysis != nil
}

// localKeys returns the identity set of the local albums
func (me *Band) localKeys() map[AlbumKey]struct{} {
	keys := make(map[AlbumKey]struct{}, len(me.Albums))
	for i := range me.Albums {
		keys[me.Albums[i].Key()] = struct{}{}
	}
	return keys
}

// BandSummary is the denormalized projection of a band record that is kept in
// the collection index
type BandSummary struct {
	Name               string `json:"name"`
	FolderPath         string `json:"folder_path"`
	AlbumsCount        int    `json:"albums_count"`
	LocalAlbumsCount   int    `json:"local_albums_count"`
	MissingAlbumsCount int    `json:"missing_albums_count"`
	HasMetadata        bool   `json:"has_metadata"`
	HasAnalysis        bool   `json:"has_analysis"`
	LastUpdated        string `json:"last_updated,omitempty"`
	Checksum           string `json:"checksum,omitempty"`
}

// Completion returns the local share of all albums as percentage
func (me *BandSummary) Completion() float64 {
	if me.AlbumsCount == 0 {
		return 100.0
	}
	return 100.0 * float64(me.LocalAlbumsCount) / float64(me.AlbumsCount)
}

// CollectionStats is the aggregate statistics block of the collection index.
// All numbers are derivable from the band summaries; the summaries are
// authoritative whenever the two disagree.
type CollectionStats struct {
	TotalBands           int            `json:"total_bands"`
	TotalAlbums          int            `json:"total_albums"`
	TotalLocalAlbums     int            `json:"total_local_albums"`
	TotalMissingAlbums   int            `json:"total_missing_albums"`
	BandsWithMetadata    int            `json:"bands_with_metadata"`
	CompletionPercentage float64        `json:"completion_percentage"`
	TopGenres            map[string]int `json:"top_genres"`
	LastScan             string         `json:"last_scan,omitempty"`
}

// CollectionIndex is the root-level aggregate file summarizing the whole
// collection
type CollectionIndex struct {
	Bands       []BandSummary   `json:"bands"`
	Stats       CollectionStats `json:"stats"`
	LastUpdated string          `json:"last_updated"`
}

// summary returns the index entry for the given band name. nil is returned if
// the band is not part of the index.
func (me *CollectionIndex) summary(name string) *BandSummary {
	for i := range me.Bands {
		if me.Bands[i].Name == name {
			return &me.Bands[i]
		}
	}
	return nil
}

// timestamp returns the current time as ISO-8601 string. All persisted
// timestamps go through this function.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
