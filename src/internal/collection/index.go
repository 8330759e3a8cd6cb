package collection

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// IndexFileName is the name of the collection-wide aggregate file
const IndexFileName = ".collection_index.json"

// Index maintains the fast-path summary of the collection. It contains no
// data that cannot be recomputed from the band files; whenever the two
// disagree, the band files win and the index is rebuilt.
type Index struct {
	root string
	mu   sync.Mutex // single writer lock
}

// NewIndex creates an index over the given music root
func NewIndex(root string) *Index {
	return &Index{root: root}
}

func (me *Index) path() string {
	return filepath.Join(me.root, IndexFileName)
}

// Load reads the collection index. A KindNotFound failure is returned if no
// index exists yet, a KindCorrupt failure if it cannot be parsed.
func (me *Index) Load() (*CollectionIndex, error) {
	data, err := os.ReadFile(me.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFoundf("no collection index exists yet")
		}
		return nil, failf(KindIO, "cannot read collection index: %v", err)
	}

	idx := new(CollectionIndex)
	if err := json.Unmarshal(data, idx); err != nil {
		f := failf(KindCorrupt, "collection index failed the schema parse: %v", err)
		f.Remediation = "remove " + me.path() + " and rescan"
		return nil, f
	}
	return idx, nil
}

// Rebuild loads all band files, projects each onto a summary entry,
// recomputes the aggregate statistics and writes the index atomically.
// A corrupt band file is logged, excluded and reported; the rebuild goes on.
// lastScan is carried into the stats block; pass the previous value when the
// rebuild is not triggered by a scan.
func (me *Index) Rebuild(store *Store, lastScan string) (*CollectionIndex, []ScanError, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	names, err := store.Bands()
	if err != nil {
		return nil, nil, err
	}

	idx := &CollectionIndex{Bands: []BandSummary{}}
	var excluded []ScanError
	genres := make(map[string]int)

	for _, name := range names {
		b, err := store.Load(name)
		if err != nil {
			log.Error(errors.Wrapf(err, "band '%s' excluded from index rebuild", name))
			excluded = append(excluded, ScanError{Band: name, Message: err.Error()})
			continue
		}

		summary := BandSummary{
			Name:               b.Name,
			FolderPath:         b.FolderPath,
			AlbumsCount:        b.TotalAlbums(),
			LocalAlbumsCount:   len(b.Albums),
			MissingAlbumsCount: len(b.AlbumsMissing),
			HasMetadata:        b.HasMetadata(),
			HasAnalysis:        b.HasAnalysis(),
			LastUpdated:        b.LastUpdated,
		}
		if raw, err := store.RawBandFile(name); err == nil {
			summary.Checksum = checksumOf(raw)
		}
		idx.Bands = append(idx.Bands, summary)

		for _, g := range b.Genres {
			genres[g]++
		}
	}

	sort.Slice(idx.Bands, func(i, j int) bool { return idx.Bands[i].Name < idx.Bands[j].Name })

	idx.Stats = computeStats(idx.Bands, genres, lastScan)
	idx.LastUpdated = timestamp()

	if _, err := writeJSONAtomic(me.path(), idx); err != nil {
		log.Error(errors.Wrap(err, "cannot write collection index"))
		return nil, excluded, failf(KindIO, "cannot write collection index")
	}
	return idx, excluded, nil
}

// computeStats derives the aggregate statistics block from the band
// summaries. The summaries are authoritative.
func computeStats(bands []BandSummary, genres map[string]int, lastScan string) CollectionStats {
	stats := CollectionStats{
		TotalBands: len(bands),
		TopGenres:  topGenres(genres, 10),
		LastScan:   lastScan,
	}
	for i := range bands {
		stats.TotalAlbums += bands[i].AlbumsCount
		stats.TotalLocalAlbums += bands[i].LocalAlbumsCount
		stats.TotalMissingAlbums += bands[i].MissingAlbumsCount
		if bands[i].HasMetadata {
			stats.BandsWithMetadata++
		}
	}
	if stats.TotalAlbums > 0 {
		stats.CompletionPercentage = round1(100.0 * float64(stats.TotalLocalAlbums) / float64(stats.TotalAlbums))
	} else {
		stats.CompletionPercentage = 100.0
	}
	return stats
}

// topGenres keeps the n most frequent genres. Ties break alphabetically so
// that rebuilds from equal state are byte-identical.
func topGenres(genres map[string]int, n int) map[string]int {
	type gc struct {
		genre string
		count int
	}
	all := make([]gc, 0, len(genres))
	for g, c := range genres {
		all = append(all, gc{g, c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].count != all[j].count {
			return all[i].count > all[j].count
		}
		return all[i].genre < all[j].genre
	})
	if len(all) > n {
		all = all[:n]
	}
	top := make(map[string]int, len(all))
	for _, e := range all {
		top[e.genre] = e.count
	}
	return top
}

// round1 rounds to one decimal place
func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
