package collection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryFixture builds an index plus a loader over a fixed set of bands
func queryFixture() (*CollectionIndex, bandLoader) {
	bands := map[string]*Band{
		"Kyuss": {
			Name:   "Kyuss",
			Genres: []string{"Stoner Rock"},
			Albums: []Album{
				{Name: "Blues for the Red Sun", Year: "1992", Type: TypeAlbum, TrackCount: 13, FolderPath: "1992 - Blues for the Red Sun"},
			},
			AlbumsMissing: []Album{
				{Name: "Wretch", Year: "1991", Type: TypeAlbum},
			},
			Analysis: &BandAnalysis{
				Rate:   9,
				Albums: []AlbumAnalysis{{Name: "Blues for the Red Sun", Rate: 9}},
			},
		},
		"Pink Floyd": {
			Name:   "Pink Floyd",
			Formed: "1965",
			Genres: []string{"Progressive Rock"},
			Albums: []Album{
				{Name: "The Dark Side of the Moon", Year: "1973", Type: TypeAlbum, TrackCount: 10, FolderPath: "1973 - The Dark Side of the Moon"},
				{Name: "Pulse", Year: "1995", Type: TypeLive, Edition: "Limited Edition", TrackCount: 23, FolderPath: "1995 - Pulse (Limited Edition)"},
			},
		},
		"ZZ Top": {
			Name:   "ZZ Top",
			Albums: []Album{},
		},
	}

	idx := &CollectionIndex{}
	for _, name := range []string{"Kyuss", "Pink Floyd", "ZZ Top"} {
		b := bands[name]
		idx.Bands = append(idx.Bands, BandSummary{
			Name:               b.Name,
			AlbumsCount:        b.TotalAlbums(),
			LocalAlbumsCount:   len(b.Albums),
			MissingAlbumsCount: len(b.AlbumsMissing),
			HasMetadata:        b.HasMetadata(),
			HasAnalysis:        b.HasAnalysis(),
		})
	}

	load := func(name string) (*Band, error) {
		b, exists := bands[name]
		if !exists {
			return nil, notFoundf("no metadata stored for band '%s'", name)
		}
		return b, nil
	}
	return idx, load
}

func TestListBandsDefaults(t *testing.T) {
	idx, load := queryFixture()

	list, err := listBands(idx, load, &ListBandsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, defaultPageSize, list.PageSize)
	assert.Equal(t, 1, list.TotalPages)
	assert.False(t, list.HasPrevious)
	assert.False(t, list.HasNext)

	// sorted by name ascending by default
	assert.Equal(t, "Kyuss", list.Bands[0].Name)
	assert.Equal(t, "ZZ Top", list.Bands[2].Name)
}

func TestListBandsFilters(t *testing.T) {
	idx, load := queryFixture()
	yes, no := true, false

	list, err := listBands(idx, load, &ListBandsRequest{HasMetadata: &yes})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	list, err = listBands(idx, load, &ListBandsRequest{HasMetadata: &no})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "ZZ Top", list.Bands[0].Name)

	list, err = listBands(idx, load, &ListBandsRequest{HasMissing: &no})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)

	list, err = listBands(idx, load, &ListBandsRequest{FilterGenre: "stoner rock"})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Kyuss", list.Bands[0].Name)

	// search matches album titles too
	list, err = listBands(idx, load, &ListBandsRequest{Search: "dark side"})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Pink Floyd", list.Bands[0].Name)
}

func TestListBandsSort(t *testing.T) {
	idx, load := queryFixture()

	list, err := listBands(idx, load, &ListBandsRequest{SortBy: SortByAlbumsCount, SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "Kyuss", list.Bands[0].Name) // 2 albums, ties broken by name
	assert.Equal(t, "Pink Floyd", list.Bands[1].Name)
	assert.Equal(t, "ZZ Top", list.Bands[2].Name)

	list, err = listBands(idx, load, &ListBandsRequest{SortBy: SortByCompletion})
	require.NoError(t, err)
	assert.Equal(t, "Kyuss", list.Bands[0].Name) // 50% completion sorts first
}

func TestListBandsPagination(t *testing.T) {
	idx := &CollectionIndex{}
	for i := 0; i < 7; i++ {
		idx.Bands = append(idx.Bands, BandSummary{Name: fmt.Sprintf("Band %02d", i)})
	}
	load := func(name string) (*Band, error) { return &Band{Name: name}, nil }

	// every record appears exactly once across the pages
	seen := make(map[string]int)
	for page := 1; page <= 3; page++ {
		list, err := listBands(idx, load, &ListBandsRequest{Page: page, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, 7, list.Total)
		assert.Equal(t, 3, list.TotalPages)
		assert.Equal(t, page > 1, list.HasPrevious)
		assert.Equal(t, page < 3, list.HasNext)
		for _, e := range list.Bands {
			seen[e.Name]++
		}
	}
	assert.Len(t, seen, 7)
	for name, n := range seen {
		assert.Equal(t, 1, n, name)
	}

	// a page beyond the end is empty, not an error
	list, err := listBands(idx, load, &ListBandsRequest{Page: 9, PageSize: 3})
	require.NoError(t, err)
	assert.Empty(t, list.Bands)
}

func TestListBandsValidation(t *testing.T) {
	idx, load := queryFixture()

	for _, req := range []*ListBandsRequest{
		{SortBy: "popularity"},
		{SortOrder: "sideways"},
		{Page: -1},
		{PageSize: 1000},
		{AlbumDetails: "everything"},
	} {
		_, err := listBands(idx, load, req)
		require.Error(t, err)
		assert.Equal(t, KindValidation, AsFailure(err).Kind)
	}
}

func TestListBandsIncludeAlbums(t *testing.T) {
	idx, load := queryFixture()

	list, err := listBands(idx, load, &ListBandsRequest{
		Search: "kyuss", IncludeAlbums: true, AlbumDetails: "missing",
	})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Empty(t, list.Bands[0].Albums)
	require.Len(t, list.Bands[0].AlbumsMissing, 1)
	assert.Equal(t, "Wretch", list.Bands[0].AlbumsMissing[0].Name)
}

func loadAll(t *testing.T, load bandLoader, names ...string) []*Band {
	t.Helper()
	var bands []*Band
	for _, name := range names {
		b, err := load(name)
		require.NoError(t, err)
		bands = append(bands, b)
	}
	return bands
}

func TestSearchAlbums(t *testing.T) {
	_, load := queryFixture()
	bands := loadAll(t, load, "Kyuss", "Pink Floyd", "ZZ Top")

	// no clauses: every album matches
	res := searchAlbums(bands, &SearchAlbumsRequest{})
	assert.Equal(t, 4, res.TotalMatches)
	assert.Len(t, res.Results, 2) // ZZ Top has no albums

	// type filter
	res = searchAlbums(bands, &SearchAlbumsRequest{AlbumTypes: []string{"live"}})
	require.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, "Pulse", res.Results[0].Albums[0].Name)

	// year range excludes albums without a year and outside the range
	res = searchAlbums(bands, &SearchAlbumsRequest{YearMin: 1990, YearMax: 1994})
	assert.Equal(t, 2, res.TotalMatches)

	// decade filter
	res = searchAlbums(bands, &SearchAlbumsRequest{Decades: []string{"1970s"}})
	require.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, "The Dark Side of the Moon", res.Results[0].Albums[0].Name)

	// "Standard" matches albums without an edition
	res = searchAlbums(bands, &SearchAlbumsRequest{Editions: []string{"Standard"}})
	assert.Equal(t, 3, res.TotalMatches)

	// locality
	local := false
	res = searchAlbums(bands, &SearchAlbumsRequest{IsLocal: &local})
	require.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, "Wretch", res.Results[0].Albums[0].Name)

	// rating clauses consult the analysis
	rated := true
	res = searchAlbums(bands, &SearchAlbumsRequest{HasRating: &rated})
	require.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, 9, res.Results[0].Albums[0].Rating)

	res = searchAlbums(bands, &SearchAlbumsRequest{RatingMin: 10})
	assert.Equal(t, 0, res.TotalMatches)

	// track count range
	res = searchAlbums(bands, &SearchAlbumsRequest{TrackCountMin: 20})
	require.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, "Pulse", res.Results[0].Albums[0].Name)

	// band filter, case-insensitive
	res = searchAlbums(bands, &SearchAlbumsRequest{Bands: []string{"pink floyd"}})
	assert.Equal(t, 2, res.TotalMatches)
}

func TestSearchAlbumsConjunction(t *testing.T) {
	_, load := queryFixture()
	bands := loadAll(t, load, "Kyuss", "Pink Floyd")

	// all clauses must hold at once
	res := searchAlbums(bands, &SearchAlbumsRequest{
		AlbumTypes: []string{"Album"},
		YearMin:    1990,
		Bands:      []string{"Kyuss"},
	})
	require.Equal(t, 1, res.TotalMatches)
	assert.Equal(t, "Blues for the Red Sun", res.Results[0].Albums[0].Name)
	assert.True(t, res.Results[0].Albums[0].IsLocal)
}
