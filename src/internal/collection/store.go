package collection

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// BandFileName is the name of the per-band sidecar file
const BandFileName = ".band_metadata.json"

// Store is the single source of truth per band. It owns the sidecar files
// under the music root and serializes all writes per band; readers take no
// lock and reread on demand (atomic rename guarantees they never see a torn
// file).
type Store struct {
	root  string
	locks sync.Map // normalized band name -> *sync.Mutex
}

// NewStore creates a band metadata store over the given music root
func NewStore(root string) *Store {
	return &Store{root: root}
}

// lock returns the write lock of the given band. Locks are created lazily
// and kept in a process-wide map keyed by the normalized band name.
func (me *Store) lock(band string) *sync.Mutex {
	mu, _ := me.locks.LoadOrStore(normalizeBandKey(band), &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// BandDir returns the folder of the given band
func (me *Store) BandDir(band string) string {
	return filepath.Join(me.root, band)
}

// bandFile returns the path of the sidecar file of the given band
func (me *Store) bandFile(band string) string {
	return filepath.Join(me.BandDir(band), BandFileName)
}

// Load reads the band record from its sidecar file. A KindNotFound failure
// is returned if no file exists, a KindCorrupt failure if the file cannot be
// parsed.
func (me *Store) Load(band string) (*Band, error) {
	data, err := os.ReadFile(me.bandFile(band))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFoundf("no metadata stored for band '%s'", band)
		}
		return nil, failf(KindIO, "cannot read metadata of band '%s': %v", band, err)
	}

	b := new(Band)
	if err := json.Unmarshal(data, b); err != nil {
		f := failf(KindCorrupt, "metadata file of band '%s' failed the schema parse: %v", band, err)
		f.Remediation = "inspect or remove " + me.bandFile(band)
		return nil, f
	}
	return b, nil
}

// Save validates and writes a full band record. The last-updated timestamp
// and the derived albums_count are stamped here; validation runs before any
// file is touched.
func (me *Store) Save(band string, b *Band) (ts, checksum string, err error) {
	if normalizeBandKey(band) == "" {
		return "", "", validation([]Issue{{
			Field:       "band_name",
			Message:     "band name must not be empty",
			Remediation: "pass the name of the band folder",
		}})
	}
	if b.Name == "" {
		b.Name = band
	}
	if normalizeBandKey(b.Name) != normalizeBandKey(band) {
		return "", "", failf(KindConflict,
			"record is for band '%s' but was addressed to '%s'", b.Name, band)
	}
	if issues := ValidateBand(b); len(issues) > 0 {
		return "", "", validation(issues)
	}

	mu := me.lock(band)
	mu.Lock()
	defer mu.Unlock()

	return me.write(band, b)
}

// write stamps and persists a record. The caller must hold the band lock and
// must have validated the record.
func (me *Store) write(band string, b *Band) (ts, checksum string, err error) {
	b.LastUpdated = timestamp()
	b.AlbumsCount = b.TotalAlbums()
	if b.FolderPath == "" {
		b.FolderPath = band
	}

	// enrichment can be saved for a band without a folder on disk; the folder
	// is created so that the sidecar file has a place to live
	if err := os.MkdirAll(me.BandDir(band), 0755); err != nil {
		return "", "", failf(KindIO, "cannot create folder for band '%s': %v", band, err)
	}

	checksum, err = writeJSONAtomic(me.bandFile(band), b)
	if err != nil {
		log.Error(errors.Wrapf(err, "cannot save metadata of band '%s'", band))
		return "", "", failf(KindIO, "cannot save metadata of band '%s'", band)
	}
	return b.LastUpdated, checksum, nil
}

// ApplyScan merges a scan delta into the stored band record. This is the
// rule that preserves human work:
//
//   - albums present on disk come from the delta; their track counts, paths
//     and parsed attributes overwrite the prior values, while enrichment
//     (duration, genres) is carried over by (title, year, edition) identity
//   - albums previously local but gone from disk move to the missing list
//     with all enrichment retained
//   - albums previously missing and now on disk move to the local list
//   - albums previously missing and still absent stay verbatim, except that
//     an unknown album type is coerced to Album with a warning
//   - band-level fields are untouched
//
// changed reports whether the merge altered the record. A merge that changed
// nothing does not touch the file, so rescanning an unchanged tree leaves the
// stored bytes identical.
func (me *Store) ApplyScan(delta BandDelta) (b *Band, changed bool, err error) {
	mu := me.lock(delta.Name)
	mu.Lock()
	defer mu.Unlock()

	loaded := true
	prior, err := me.Load(delta.Name)
	if err != nil {
		f := AsFailure(err)
		if f.Kind == KindIO {
			return nil, false, err
		}
		// no usable prior state: start from an empty record. A corrupt file
		// is reported upstream by the index rebuild; the scan result must
		// still be persisted.
		if f.Kind == KindCorrupt {
			log.Warnf("overwriting corrupt metadata of band '%s' with scan result", delta.Name)
		}
		prior = &Band{Name: delta.Name}
		loaded = false
	}

	priorName := prior.Name
	priorFolder := prior.FolderPath
	priorLocal := prior.Albums
	priorMissing := prior.AlbumsMissing

	enrichment := make(map[AlbumKey]Album, len(priorLocal)+len(priorMissing))
	for _, a := range priorLocal {
		enrichment[a.Key()] = a
	}
	for _, a := range priorMissing {
		enrichment[a.Key()] = a
	}

	local := make([]Album, 0, len(delta.Albums))
	localKeys := make(map[AlbumKey]struct{}, len(delta.Albums))
	for _, a := range delta.Albums {
		if prev, exists := enrichment[a.Key()]; exists {
			if a.Duration == "" {
				a.Duration = prev.Duration
			}
			if len(a.Genres) == 0 {
				a.Genres = prev.Genres
			}
		}
		if a.Genres == nil {
			a.Genres = []string{}
		}
		local = append(local, a)
		localKeys[a.Key()] = struct{}{}
	}

	var missing []Album
	for _, a := range priorLocal {
		if _, nowLocal := localKeys[a.Key()]; nowLocal {
			continue
		}
		a.FolderPath = "" // no folder on disk anymore
		missing = append(missing, a)
	}
	for _, a := range priorMissing {
		if _, nowLocal := localKeys[a.Key()]; nowLocal {
			continue
		}
		missing = append(missing, a)
	}

	// a hand-edited file may carry a type outside the enum; coerce it so that
	// every stored type is canonical
	for i := range missing {
		if missing[i].Type == "" {
			continue
		}
		t, known := CoerceAlbumType(string(missing[i].Type))
		if !known {
			log.Warnf("band '%s': unknown album type '%s' coerced to %s", delta.Name, missing[i].Type, t)
		}
		missing[i].Type = t
	}

	changed = !loaded ||
		priorName != delta.Name ||
		priorFolder != delta.FolderPath ||
		!albumsEqual(priorLocal, local) ||
		!albumsEqual(priorMissing, missing)

	b = prior
	b.Name = delta.Name
	b.FolderPath = delta.FolderPath
	b.Albums = local
	b.AlbumsMissing = missing

	if !changed {
		return b, false, nil
	}
	if _, _, err = me.write(delta.Name, b); err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Orphan converts all local albums of a band whose folder disappeared into
// missing albums. Enrichment is never deleted by a scan. This only takes
// effect when a sidecar file survives outside the scanned folder set; a
// removed band folder usually takes its sidecar with it, in which case there
// is nothing left to convert and Load reports not-found.
func (me *Store) Orphan(band string) (*Band, error) {
	mu := me.lock(band)
	mu.Lock()
	defer mu.Unlock()

	b, err := me.Load(band)
	if err != nil {
		return nil, err
	}
	for i := range b.Albums {
		b.Albums[i].FolderPath = ""
	}
	b.AlbumsMissing = append(b.AlbumsMissing, b.Albums...)
	b.Albums = nil

	// the band folder is gone; the sidecar file is recreated under the old
	// folder path so the enrichment survives
	if _, _, err := me.write(band, b); err != nil {
		return nil, err
	}
	return b, nil
}

// SaveAnalysis stores the analysis block of a band. The band must already
// have a metadata file.
func (me *Store) SaveAnalysis(band string, a *BandAnalysis) (ts string, err error) {
	if issues := validateAnalysis(a); len(issues) > 0 {
		return "", validation(issues)
	}

	mu := me.lock(band)
	mu.Lock()
	defer mu.Unlock()

	b, err := me.Load(band)
	if err != nil {
		return "", err
	}
	b.Analysis = a

	ts, _, err = me.write(band, b)
	return ts, err
}

// Bands enumerates the names of all bands that have a sidecar file. The
// result is sorted by the directory order of the music root.
func (me *Store) Bands() ([]string, error) {
	entries, err := os.ReadDir(me.root)
	if err != nil {
		return nil, failf(KindIO, "cannot read music root '%s': %v", me.root, err)
	}

	var bands []string
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		if _, err := os.Stat(me.bandFile(e.Name())); err == nil {
			bands = append(bands, e.Name())
		}
	}
	return bands, nil
}

// RawBandFile returns the raw bytes of a band sidecar file, for checksumming
// during index rebuilds
func (me *Store) RawBandFile(band string) ([]byte, error) {
	return os.ReadFile(me.bandFile(band))
}

// albumsEqual compares two album lists field by field, folder paths included.
// A moved album folder changes the record even when identity and track count
// stay the same.
func albumsEqual(prior, current []Album) bool {
	if len(prior) != len(current) {
		return false
	}
	for i := range prior {
		if !reflect.DeepEqual(prior[i], current[i]) {
			return false
		}
	}
	return true
}

// isHidden reports whether a directory entry is internal (dot-prefixed)
func isHidden(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
