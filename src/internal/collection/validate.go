package collection

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var yearRe = regexp.MustCompile(`^\d{4}$`)

// ValidateBand checks a band record against the metadata schema and returns
// the list of findings. An empty list means the record is valid.
func ValidateBand(b *Band) (issues []Issue) {
	if strings.TrimSpace(b.Name) == "" {
		issues = append(issues, Issue{
			Field:       "band_name",
			Message:     "band_name is required and must not be empty",
			Remediation: "set band_name to the name of the band folder",
		})
	}

	if b.Formed != "" && !yearRe.MatchString(b.Formed) {
		issues = append(issues, Issue{
			Field:       "formed",
			Message:     fmt.Sprintf("formed must be a 4-digit year string or empty - got %q", b.Formed),
			Remediation: "send the year as string, e.g. \"1968\"",
		})
	}

	issues = append(issues, validateAlbums("albums", b.Albums)...)
	issues = append(issues, validateAlbums("albums_missing", b.AlbumsMissing)...)

	// no album key may appear twice, neither within one list nor across the
	// local/missing partition
	seen := make(map[AlbumKey]string)
	for _, pair := range []struct {
		field  string
		albums []Album
	}{{"albums", b.Albums}, {"albums_missing", b.AlbumsMissing}} {
		for i := range pair.albums {
			key := pair.albums[i].Key()
			if prev, exists := seen[key]; exists {
				issues = append(issues, Issue{
					Field:       pair.field,
					Message:     fmt.Sprintf("album %q (year %q, edition %q) appears more than once (also in %s)", key.Name, key.Year, key.Edition, prev),
					Remediation: "an album is identified by (album_name, year, edition); keep one entry per identity",
				})
				continue
			}
			seen[key] = pair.field
		}
	}

	if b.Analysis != nil {
		issues = append(issues, validateAnalysis(b.Analysis)...)
	}

	return
}

// validateAlbums checks one album list. field names the list for the issue
// reports.
func validateAlbums(field string, albums []Album) (issues []Issue) {
	for i := range albums {
		a := &albums[i]
		loc := fmt.Sprintf("%s[%d]", field, i)

		if strings.TrimSpace(a.Name) == "" {
			issues = append(issues, Issue{
				Field:       loc + ".album_name",
				Message:     "album_name is required and must not be empty",
				Remediation: "set album_name to the album title",
			})
		}
		if a.Year != "" && !yearRe.MatchString(a.Year) {
			issues = append(issues, Issue{
				Field:       loc + ".year",
				Message:     fmt.Sprintf("year must be a 4-digit string or empty - got %q", a.Year),
				Remediation: "send the year as string, e.g. \"1973\"",
			})
		}
		if a.Type != "" {
			if err := a.Type.IsValid(); err != nil {
				issues = append(issues, Issue{
					Field:       loc + ".type",
					Message:     err.Error(),
					Remediation: fmt.Sprintf("use one of: %s", knownTypeList()),
				})
			}
		}
		if a.TrackCount < 0 {
			issues = append(issues, Issue{
				Field:       loc + ".track_count",
				Message:     fmt.Sprintf("track_count must be >= 0 - got %d", a.TrackCount),
				Remediation: "use 0 if the track count is unknown",
			})
		}
	}
	return
}

// validateAnalysis checks the analyze block of a band record
func validateAnalysis(a *BandAnalysis) (issues []Issue) {
	if a.Rate < 0 || a.Rate > 10 {
		issues = append(issues, Issue{
			Field:       "analyze.rate",
			Message:     fmt.Sprintf("rate must be an integer in [0, 10] - got %d", a.Rate),
			Remediation: "use 1-10 for rated, 0 for unrated",
		})
	}
	for i := range a.Albums {
		aa := &a.Albums[i]
		if strings.TrimSpace(aa.Name) == "" {
			issues = append(issues, Issue{
				Field:       fmt.Sprintf("analyze.albums[%d].album_name", i),
				Message:     "album_name is required in per-album analyses",
				Remediation: "set album_name to the title of the analyzed album",
			})
		}
		if aa.Rate < 0 || aa.Rate > 10 {
			issues = append(issues, Issue{
				Field:       fmt.Sprintf("analyze.albums[%d].rate", i),
				Message:     fmt.Sprintf("rate must be an integer in [0, 10] - got %d", aa.Rate),
				Remediation: "use 1-10 for rated, 0 for unrated",
			})
		}
	}
	return
}

func knownTypeList() string {
	ts := make([]string, len(albumTypes))
	for i, t := range albumTypes {
		ts[i] = string(t)
	}
	return strings.Join(ts, ", ")
}

// DecodeBand parses raw JSON into a band record. Beyond the plain unmarshal
// it detects the classic shape mistakes (singular "genre" key, nested
// members object, numeric years and rates) and reports them with remediation
// hints instead of failing with a bare type error.
func DecodeBand(data []byte) (b *Band, issues []Issue, err error) {
	var raw map[string]json.RawMessage
	if err = json.Unmarshal(data, &raw); err != nil {
		err = errors.Wrap(err, "band metadata is no valid JSON object")
		return
	}

	issues = append(issues, shapeIssues(raw)...)
	if len(issues) > 0 {
		return nil, issues, nil
	}

	b = new(Band)
	if err = json.Unmarshal(data, b); err != nil {
		err = errors.Wrap(err, "band metadata does not match the schema")
		return nil, nil, err
	}

	issues = ValidateBand(b)
	if len(issues) > 0 {
		return nil, issues, nil
	}
	return b, nil, nil
}

// shapeIssues detects structural mistakes on the raw JSON level that a typed
// unmarshal would either mask or report unhelpfully
func shapeIssues(raw map[string]json.RawMessage) (issues []Issue) {
	if _, exists := raw["genre"]; exists {
		issues = append(issues, Issue{
			Field:       "genre",
			Message:     "unknown field 'genre'",
			Remediation: "use the plural field 'genres' with an array of strings",
		})
	}

	if m, exists := raw["members"]; exists && len(m) > 0 && m[0] == '{' {
		issues = append(issues, Issue{
			Field:       "members",
			Message:     "members must be a flat array of strings - got an object",
			Remediation: "flatten {\"current\": [...], \"former\": [...]} into one array",
		})
	}

	if f, exists := raw["formed"]; exists && isJSONNumber(f) {
		issues = append(issues, Issue{
			Field:       "formed",
			Message:     fmt.Sprintf("formed must be a 4-digit string - got integer %s", string(f)),
			Remediation: fmt.Sprintf("send \"%s\"", string(f)),
		})
	}

	for _, field := range []string{"albums", "albums_missing"} {
		list, exists := raw[field]
		if !exists {
			continue
		}
		var entries []map[string]json.RawMessage
		if err := json.Unmarshal(list, &entries); err != nil {
			continue
		}
		for i, entry := range entries {
			if y, ok := entry["year"]; ok && isJSONNumber(y) {
				issues = append(issues, Issue{
					Field:       fmt.Sprintf("%s[%d].year", field, i),
					Message:     fmt.Sprintf("year must be a 4-digit string - got integer %s", string(y)),
					Remediation: fmt.Sprintf("send \"%s\"", string(y)),
				})
			}
		}
	}

	return
}

// isJSONNumber reports whether the raw message encodes a bare number
func isJSONNumber(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return len(s) > 0 && (s[0] == '-' || (s[0] >= '0' && s[0] <= '9'))
}
