package collection

import (
	"path"
	"regexp"
	"strings"
)

// musicExtensions contains the file extensions that count as music tracks
var musicExtensions = map[string]struct{}{
	".mp3":  {},
	".flac": {},
	".wav":  {},
	".aac":  {},
	".m4a":  {},
	".ogg":  {},
	".wma":  {},
	".mp4":  {},
	".m4p":  {},
}

// IsMusicFile returns true if p has a music file extension
func IsMusicFile(p string) bool {
	_, exists := musicExtensions[strings.ToLower(path.Ext(p))]
	return exists
}

// typeFolders maps type subfolder names (lower case, singular and plural) to
// the album type they enforce
var typeFolders = map[string]AlbumType{
	"album":         TypeAlbum,
	"albums":        TypeAlbum,
	"ep":            TypeEP,
	"eps":           TypeEP,
	"live":          TypeLive,
	"lives":         TypeLive,
	"demo":          TypeDemo,
	"demos":         TypeDemo,
	"compilation":   TypeCompilation,
	"compilations":  TypeCompilation,
	"single":        TypeSingle,
	"singles":       TypeSingle,
	"instrumental":  TypeInstrumental,
	"instrumentals": TypeInstrumental,
	"split":         TypeSplit,
	"splits":        TypeSplit,
}

// TypeFolder checks whether name is a type subfolder (case-insensitive,
// tolerating plural forms) and returns the corresponding album type
func TypeFolder(name string) (t AlbumType, ok bool) {
	t, ok = typeFolders[strings.ToLower(strings.TrimSpace(name))]
	return
}

var (
	// leading "YYYY - " prefix
	yearPrefixRe = regexp.MustCompile(`^(\d{4}) - (.+)$`)
	// trailing parenthesized clause
	parenSuffixRe = regexp.MustCompile(`^(.*?)\s*\(([^()]+)\)\s*$`)
)

// editionKeywords mark a trailing parenthesized clause as an edition. The
// comparison is case-insensitive; the stored edition string keeps the
// original casing.
var editionKeywords = []string{
	"edition",
	"remaster",
	"deluxe",
	"anniversary",
	"demo",
	"live",
	"reissue",
	"remix",
	"special",
	"limited",
	"expanded",
	"bonus",
}

// isEditionClause returns true if the parenthesized clause s qualifies as an
// edition suffix
func isEditionClause(s string) bool {
	low := strings.ToLower(s)
	for _, kw := range editionKeywords {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}

// typeKeywords maps title keywords to album types. Matching is word-bounded
// and case-insensitive. The slice order is the precedence order.
var typeKeywords = []struct {
	re *regexp.Regexp
	t  AlbumType
}{
	{regexp.MustCompile(`(?i)\blive\b`), TypeLive},
	{regexp.MustCompile(`(?i)\bdemo\b`), TypeDemo},
	{regexp.MustCompile(`(?i)\bE\.?P\.?\b`), TypeEP},
	{regexp.MustCompile(`(?i)\bcompilation\b`), TypeCompilation},
	{regexp.MustCompile(`(?i)\bbest of\b`), TypeCompilation},
	{regexp.MustCompile(`(?i)\bgreatest hits\b`), TypeCompilation},
	{regexp.MustCompile(`(?i)\bsingle\b`), TypeSingle},
}

// inferTypeFromTitle scans an album title for type keywords. TypeAlbum is
// returned if no keyword matches.
func inferTypeFromTitle(title string) AlbumType {
	for _, kw := range typeKeywords {
		if kw.re.MatchString(title) {
			return kw.t
		}
	}
	return TypeAlbum
}

// ParsedAlbum holds the structured attributes derived from an album folder
// name. Parsing is pure: the same input always yields the same result.
type ParsedAlbum struct {
	Name    string
	Year    string
	Type    AlbumType
	Edition string
}

// ParseAlbumFolder turns an album folder name into structured attributes.
// The folder name is the only information available about an album.
// parentType is the type enforced by a type subfolder; it wins over keyword
// inference when hasParentType is true.
func ParseAlbumFolder(folder string, parentType AlbumType, hasParentType bool) (pa ParsedAlbum) {
	name := strings.TrimSpace(folder)

	// rule 1: year prefix
	if m := yearPrefixRe.FindStringSubmatch(name); m != nil {
		pa.Year = m[1]
		name = strings.TrimSpace(m[2])
	}

	// rule 3: edition suffix
	if m := parenSuffixRe.FindStringSubmatch(name); m != nil && isEditionClause(m[2]) {
		name = strings.TrimSpace(m[1])
		pa.Edition = strings.TrimSpace(m[2])
	}

	pa.Name = name

	// rules 2, 4, 5: type subfolder wins, then keyword inference, then default
	if hasParentType {
		pa.Type = parentType
		return
	}
	pa.Type = inferTypeFromTitle(name)
	return
}

// StructureKind classifies how a band organizes its album folders
type StructureKind string

// possible folder structures of a band
const (
	StructureDefault StructureKind = "default" // albums directly under the band folder
	StructureTyped   StructureKind = "typed"   // albums under type subfolders
	StructureMixed   StructureKind = "mixed"   // both
	StructureNone    StructureKind = "none"    // no local albums
)

// classifyStructure derives the structure kind and the compliance score of a
// band from the number of albums under type subfolders (typed) and directly
// under the band folder (flat). The score is the fraction of albums agreeing
// with the dominant structure, as percentage.
func classifyStructure(typed, flat int) (StructureKind, float64) {
	total := typed + flat
	switch {
	case total == 0:
		return StructureNone, 100.0
	case flat == 0:
		return StructureTyped, 100.0
	case typed == 0:
		return StructureDefault, 100.0
	}
	dominant := typed
	if flat > typed {
		dominant = flat
	}
	return StructureMixed, 100.0 * float64(dominant) / float64(total)
}

// structureOf classifies the folder structure of a band from the folder paths
// of its local albums. A local album whose folder path starts with a type
// subfolder counts as typed.
func structureOf(albums []Album) (StructureKind, float64) {
	var typed, flat int
	for i := range albums {
		parts := strings.SplitN(albums[i].FolderPath, "/", 2)
		if len(parts) == 2 {
			if _, ok := TypeFolder(parts[0]); ok {
				typed++
				continue
			}
		}
		flat++
	}
	return classifyStructure(typed, flat)
}

// normalizeBandKey returns the key band names are locked and compared under.
// Band names are case-sensitive; only surrounding whitespace is ignored.
func normalizeBandKey(name string) string {
	return strings.TrimSpace(name)
}
