package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gitlab.com/smeitner/collserv/src/internal/config"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ScanReport is the result record of one scan run
type ScanReport struct {
	ID           string      `json:"scan_id"`
	MusicRoot    string      `json:"music_root"`
	StartedAt    string      `json:"started_at"`
	FinishedAt   string      `json:"finished_at"`
	BandsScanned int         `json:"bands_scanned"`
	TotalAlbums  int         `json:"total_albums"`
	BandsAdded   []string    `json:"bands_added"`
	BandsRemoved []string    `json:"bands_removed"`
	BandsChanged []string    `json:"bands_changed"`
	Warnings     []string    `json:"warnings,omitempty"`
	Errors       []ScanError `json:"errors,omitempty"`
}

// changed reports the number of bands the scan added, removed or changed
func (me *ScanReport) changed() int {
	return len(me.BandsAdded) + len(me.BandsRemoved) + len(me.BandsChanged)
}

// SaveReport acknowledges a successful metadata or analysis save
type SaveReport struct {
	Band         string `json:"band_name"`
	Timestamp    string `json:"last_updated"`
	Checksum     string `json:"checksum,omitempty"`
	IndexRebuilt bool   `json:"index_rebuilt"`
}

// ValidationReport is the result of a dry-run validation
type ValidationReport struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Collection is the facade over the store, the index, the scanner and the
// analytics. All exposed operations go through it.
type Collection struct {
	cfg   config.Cfg
	store *Store
	index *Index
	upd   updater

	mutScan sync.Mutex // single-flight lock for scans

	mutReport  sync.Mutex
	lastReport *ScanReport
}

// New creates a collection over the music root of the configuration
func New(cfg config.Cfg) (*Collection, error) {
	c := &Collection{
		cfg:   cfg,
		store: NewStore(cfg.MusicRoot),
		index: NewIndex(cfg.MusicRoot),
	}

	c.upd = newUpdater(cfg.UpdateMode, c.rescan)
	if c.upd == nil {
		return nil, fmt.Errorf("unknown update mode '%s'", cfg.UpdateMode)
	}
	return c, nil
}

// Scan walks the music root, merges the result into the band files and
// rebuilds the index. Only one scan runs at a time; concurrent calls wait and
// then scan the then-current state. Cancellation leaves the last consistent
// snapshot untouched.
func (me *Collection) Scan(ctx context.Context) (*ScanReport, error) {
	me.mutScan.Lock()
	defer me.mutScan.Unlock()

	log.Info("scanning music root ...")

	report := &ScanReport{
		ID:           uuid.NewString(),
		MusicRoot:    me.cfg.MusicRoot,
		StartedAt:    timestamp(),
		BandsAdded:   []string{},
		BandsRemoved: []string{},
		BandsChanged: []string{},
	}

	// the previous index tells which bands disappeared; a missing or corrupt
	// index just means there is nothing to diff against
	prev, err := me.index.Load()
	if err != nil {
		prev = nil
	}

	delta, err := scanRoot(ctx, me.cfg.MusicRoot, prev)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, failf(KindCancelled, "scan cancelled before any file was written")
	}

	known := make(map[string]struct{})
	if prev != nil {
		for i := range prev.Bands {
			known[prev.Bands[i].Name] = struct{}{}
		}
	}

	report.BandsScanned = len(delta.Bands)
	report.Warnings = delta.Warnings
	report.Errors = delta.Errors

	for _, bd := range delta.Bands {
		report.TotalAlbums += len(bd.Albums)

		_, changed, err := me.store.ApplyScan(bd)
		if err != nil {
			log.Error(errors.Wrapf(err, "cannot apply scan result for band '%s'", bd.Name))
			report.Errors = append(report.Errors, ScanError{Band: bd.Name, Message: err.Error()})
			continue
		}
		if _, exists := known[bd.Name]; !exists {
			report.BandsAdded = append(report.BandsAdded, bd.Name)
		} else if changed {
			report.BandsChanged = append(report.BandsChanged, bd.Name)
		}
	}

	for _, band := range delta.Removed {
		// a removed folder usually takes its sidecar file with it; in that
		// case there is nothing left to orphan, the removal is still reported
		if _, err := me.store.Orphan(band); err != nil && AsFailure(err).Kind != KindNotFound {
			log.Error(errors.Wrapf(err, "cannot orphan removed band '%s'", band))
			report.Errors = append(report.Errors, ScanError{Band: band, Message: err.Error()})
			continue
		}
		report.BandsRemoved = append(report.BandsRemoved, band)
	}

	report.FinishedAt = timestamp()

	// the index is only rebuilt after a scan that produced a non-empty delta;
	// rescanning an unchanged tree leaves the index bytes untouched
	if prev == nil || report.changed() > 0 || len(report.Errors) > 0 {
		_, excluded, err := me.index.Rebuild(me.store, report.FinishedAt)
		if err != nil {
			return nil, err
		}
		report.Errors = append(report.Errors, excluded...)
	}

	me.mutReport.Lock()
	me.lastReport = report
	me.mutReport.Unlock()

	log.Infof("scan done: %d bands, %d albums", report.BandsScanned, report.TotalAlbums)
	return report, nil
}

// rescan is the scan closure the background updater drives. It reports the
// number of bands the scan touched.
func (me *Collection) rescan(ctx context.Context) (int, error) {
	report, err := me.Scan(ctx)
	if err != nil {
		return 0, err
	}
	return report.changed(), nil
}

// LastScan returns the report of the most recent scan of this process, or nil
// if none ran yet
func (me *Collection) LastScan() *ScanReport {
	me.mutReport.Lock()
	defer me.mutReport.Unlock()
	return me.lastReport
}

// Run starts the background updater. It blocks until ctx is cancelled.
func (me *Collection) Run(ctx context.Context, wg *sync.WaitGroup) {
	me.upd.run(ctx, wg)
}

// Errors returns the error channel of the background updater
func (me *Collection) Errors() <-chan error {
	return me.upd.errors()
}

// UpdateNotification returns the channel on which the background updater asks
// for permission to update
func (me *Collection) UpdateNotification() <-chan UpdateNotification {
	return me.upd.updateNotification()
}

// loadIndex returns the collection index. A missing or corrupt index is
// rebuilt transparently from the band files.
func (me *Collection) loadIndex() (*CollectionIndex, error) {
	idx, err := me.index.Load()
	if err == nil {
		return idx, nil
	}
	switch AsFailure(err).Kind {
	case KindNotFound, KindCorrupt:
		log.Warn("collection index missing or corrupt: rebuilding from band files")
		idx, _, err = me.index.Rebuild(me.store, "")
		return idx, err
	}
	return nil, err
}

// Index returns the current collection index, rebuilding it if necessary
func (me *Collection) Index() (*CollectionIndex, error) {
	return me.loadIndex()
}

// allBands loads the full records of all bands that have a sidecar file.
// Unloadable records are skipped; the index rebuild reports them.
func (me *Collection) allBands() ([]*Band, error) {
	names, err := me.store.Bands()
	if err != nil {
		return nil, err
	}
	bands := make([]*Band, 0, len(names))
	for _, name := range names {
		b, err := me.store.Load(name)
		if err != nil {
			log.Error(errors.Wrapf(err, "band '%s' skipped", name))
			continue
		}
		bands = append(bands, b)
	}
	return bands, nil
}

// ListBands filters, sorts and paginates the bands of the collection
func (me *Collection) ListBands(req *ListBandsRequest) (*PagedBandList, error) {
	idx, err := me.loadIndex()
	if err != nil {
		return nil, err
	}
	return listBands(idx, me.store.Load, req)
}

// SearchAlbums evaluates an album predicate over the whole collection
func (me *Collection) SearchAlbums(req *SearchAlbumsRequest) (*AlbumSearchResult, error) {
	bands, err := me.allBands()
	if err != nil {
		return nil, err
	}
	return searchAlbums(bands, req), nil
}

// GetBand returns the full record of one band
func (me *Collection) GetBand(band string) (*Band, error) {
	return me.store.Load(band)
}

// SaveBandMetadata validates and stores a full band record given as raw JSON
// and rebuilds the index
func (me *Collection) SaveBandMetadata(band string, raw json.RawMessage) (*SaveReport, error) {
	b, issues, err := DecodeBand(raw)
	if err != nil {
		return nil, failf(KindValidation, "%v", err)
	}
	if len(issues) > 0 {
		return nil, validation(issues)
	}

	ts, checksum, err := me.store.Save(band, b)
	if err != nil {
		return nil, err
	}

	report := &SaveReport{Band: b.Name, Timestamp: ts, Checksum: checksum}
	if _, _, err := me.index.Rebuild(me.store, me.lastScanStamp()); err != nil {
		log.Error(errors.Wrap(err, "index rebuild after save failed"))
	} else {
		report.IndexRebuilt = true
	}
	return report, nil
}

// SaveBandAnalysis stores the analysis block of a band and rebuilds the index
func (me *Collection) SaveBandAnalysis(band string, a *BandAnalysis) (*SaveReport, error) {
	ts, err := me.store.SaveAnalysis(band, a)
	if err != nil {
		return nil, err
	}

	report := &SaveReport{Band: band, Timestamp: ts}
	if _, _, err := me.index.Rebuild(me.store, me.lastScanStamp()); err != nil {
		log.Error(errors.Wrap(err, "index rebuild after save failed"))
	} else {
		report.IndexRebuilt = true
	}
	return report, nil
}

// ValidateBandMetadata runs the full validation of a raw band record without
// writing anything
func (me *Collection) ValidateBandMetadata(raw json.RawMessage) (*ValidationReport, error) {
	_, issues, err := DecodeBand(raw)
	if err != nil {
		return nil, failf(KindValidation, "%v", err)
	}
	if issues == nil {
		issues = []Issue{}
	}
	return &ValidationReport{Valid: len(issues) == 0, Issues: issues}, nil
}

// Analytics derives the analytical view from the current band files
func (me *Collection) Analytics() (*CollectionInsights, error) {
	bands, err := me.allBands()
	if err != nil {
		return nil, err
	}
	return ComputeInsights(bands), nil
}

// SaveInsights persists an insights record at the music root
func (me *Collection) SaveInsights(ins *CollectionInsights) (path string, err error) {
	if ins.GeneratedAt == "" {
		ins.GeneratedAt = timestamp()
	}
	path = filepath.Join(me.cfg.MusicRoot, InsightsFileName)
	if _, err = writeJSONAtomic(path, ins); err != nil {
		return "", failf(KindIO, "cannot write collection insights: %v", err)
	}
	return path, nil
}

// lastScanStamp returns the last_scan stamp of the current index, so that
// rebuilds not triggered by a scan don't lose it
func (me *Collection) lastScanStamp() string {
	idx, err := me.index.Load()
	if err != nil {
		return ""
	}
	return idx.Stats.LastScan
}

// WriteStatus writes a human readable status summary of the collection
func (me *Collection) WriteStatus(w io.Writer) {
	idx, err := me.loadIndex()
	if err != nil {
		fmt.Fprintf(w, "no collection status available: %v\n", err)
		return
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(w, "music root:     %s\n", me.cfg.MusicRoot)
	p.Fprintf(w, "bands:          %d\n", idx.Stats.TotalBands)
	p.Fprintf(w, "albums:         %d (%d local, %d missing)\n",
		idx.Stats.TotalAlbums, idx.Stats.TotalLocalAlbums, idx.Stats.TotalMissingAlbums)
	p.Fprintf(w, "completion:     %.1f%%\n", idx.Stats.CompletionPercentage)
	p.Fprintf(w, "with metadata:  %d\n", idx.Stats.BandsWithMetadata)
	if idx.Stats.LastScan != "" {
		p.Fprintf(w, "last scan:      %s\n", idx.Stats.LastScan)
	}
}
