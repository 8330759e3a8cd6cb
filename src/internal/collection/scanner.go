package collection

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// number of bands scanned in parallel
const scanWorkers = 8

// ScanError is a per-band error that did not abort the scan
type ScanError struct {
	Band    string `json:"band"`
	Message string `json:"message"`
}

// BandDelta is the on-disk state of one band as seen by the scanner
type BandDelta struct {
	Name       string
	FolderPath string // relative to the music root
	Albums     []Album
	Structure  StructureKind
	Compliance float64
}

// ScanDelta describes how the on-disk state differs from the last recorded
// snapshot. The scanner writes nothing; the store and the index consume the
// delta.
type ScanDelta struct {
	Bands    []BandDelta
	Removed  []string // bands in the previous index whose folder is gone
	Warnings []string
	Errors   []ScanError
}

// scanRoot enumerates the music root and produces a scan delta. Bands are
// scanned in parallel with a bounded worker group; the scan streams band by
// band and never materializes the full tree. Unreadable band directories are
// skipped and reported; a permission error on the root aborts.
func scanRoot(ctx context.Context, root string, prev *CollectionIndex) (*ScanDelta, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, failf(KindIO, "cannot read music root '%s': %v", root, err)
	}

	delta := new(ScanDelta)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)

	onDisk := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}
		band := e.Name()
		onDisk[band] = struct{}{}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bd, warnings, err := scanBand(root, band)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				delta.Errors = append(delta.Errors, ScanError{Band: band, Message: err.Error()})
				return nil
			}
			delta.Bands = append(delta.Bands, bd)
			delta.Warnings = append(delta.Warnings, warnings...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// only cancellation propagates out of the group
		return nil, failf(KindCancelled, "scan interrupted: %v", err)
	}

	sort.Slice(delta.Bands, func(i, j int) bool { return delta.Bands[i].Name < delta.Bands[j].Name })
	sort.Strings(delta.Warnings)

	if prev != nil {
		for i := range prev.Bands {
			if _, exists := onDisk[prev.Bands[i].Name]; !exists {
				delta.Removed = append(delta.Removed, prev.Bands[i].Name)
			}
		}
		sort.Strings(delta.Removed)
	}

	return delta, nil
}

// scanBand enumerates the albums of one band folder. Album directories are
// either direct children of the band folder or sit one level deeper inside a
// type subfolder; they are not descended further.
func scanBand(root, band string) (bd BandDelta, warnings []string, err error) {
	bd.Name = band
	bd.FolderPath = band

	dir := filepath.Join(root, band)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return BandDelta{}, nil, err
	}

	var typed, flat int
	for _, e := range entries {
		if !e.IsDir() || isHidden(e.Name()) {
			continue
		}

		if t, ok := TypeFolder(e.Name()); ok {
			subdir := filepath.Join(dir, e.Name())
			subs, err := os.ReadDir(subdir)
			if err != nil {
				warnings = append(warnings, "cannot read type folder '"+subdir+"': "+err.Error())
				continue
			}
			for _, s := range subs {
				if !s.IsDir() || isHidden(s.Name()) {
					continue
				}
				album, isAlbum, warning := scanAlbumDir(filepath.Join(subdir, s.Name()), s.Name(), t, true)
				if warning != "" {
					warnings = append(warnings, warning)
				}
				if isAlbum {
					album.FolderPath = filepath.ToSlash(filepath.Join(e.Name(), s.Name()))
					bd.Albums = append(bd.Albums, album)
					typed++
				}
			}
			continue
		}

		album, isAlbum, warning := scanAlbumDir(filepath.Join(dir, e.Name()), e.Name(), "", false)
		if warning != "" {
			warnings = append(warnings, warning)
		}
		if isAlbum {
			album.FolderPath = e.Name()
			bd.Albums = append(bd.Albums, album)
			flat++
		}
	}

	sort.Slice(bd.Albums, func(i, j int) bool { return bd.Albums[i].FolderPath < bd.Albums[j].FolderPath })
	bd.Structure, bd.Compliance = classifyStructure(typed, flat)
	return
}

// scanAlbumDir decides whether dir is an album (>= 1 direct music file) and
// assembles its record. An I/O error degrades the album to track count 0
// with a warning instead of failing the band.
func scanAlbumDir(dir, folder string, parentType AlbumType, hasParentType bool) (album Album, isAlbum bool, warning string) {
	pa := ParseAlbumFolder(folder, parentType, hasParentType)
	album = Album{
		Name:       pa.Name,
		Year:       pa.Year,
		Type:       pa.Type,
		Edition:    pa.Edition,
		Genres:     []string{},
		TrackCount: 0,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// the directory exists but cannot be enumerated
		return album, true, "cannot read album folder '" + dir + "': " + err.Error()
	}

	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) {
			continue
		}
		if IsMusicFile(e.Name()) {
			album.TrackCount++
		}
	}
	return album, album.TrackCount > 0, ""
}
