// pkg/backup/codec.go
//
// Converts between the flat tabular credential export format and backup
// records. The parser is quote-aware: a quote character toggles an
// "inside quoted field" mode and a delimiter inside quotes is literal.

package backup

import (
	"net/url"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/kyklos/pkg/crypto"
	cerr "github.com/cockroachdb/errors"
)

const delimiter = ','
const quote = '"'

// Header row of the accepted export format.
const Header = "name,url,username,password"

// Row is one parsed credential line.
type Row struct {
	Name     string
	URL      string
	Username string
	Password string
}

// Entry is one credential inside a backup record. SecretHash is a
// truncated one-way digest for integrity display only; SecretEncoded is
// the reversible encoding used for restore, which makes a backup file as
// sensitive as a live credential export.
type Entry struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	Username      string `json:"username"`
	SecretHash    string `json:"secret_hash"`
	SecretEncoded string `json:"secret_encoded"`
}

// Record is one backup document, written before any mutating import.
type Record struct {
	ImportedAt time.Time `json:"imported_at"`
	SourcePath string    `json:"source_path"`
	Count      int       `json:"count"`
	Entries    []Entry   `json:"entries"`
}

// NewRecord builds a record from parsed rows, maintaining the
// count == len(entries) invariant.
func NewRecord(sourcePath string, rows []Row) *Record {
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			Name:          row.Name,
			URL:           row.URL,
			Username:      row.Username,
			SecretHash:    crypto.TruncatedHash(row.Password),
			SecretEncoded: crypto.EncodeSecret([]byte(row.Password)),
		})
	}
	return &Record{
		ImportedAt: time.Now().UTC(),
		SourcePath: sourcePath,
		Count:      len(entries),
		Entries:    entries,
	}
}

// Validate checks record invariants after loading from disk.
func (r *Record) Validate() error {
	if r.Count != len(r.Entries) {
		return cerr.Newf("backup count %d does not match %d entries", r.Count, len(r.Entries))
	}
	return nil
}

// ParseTable parses the tabular export format. The first line is treated
// as a header when it looks like one. Two column orders are accepted:
// (name,url,username,password) and (url,username,password) with the
// name derived from the URL's hostname. Lines with fewer than three
// fields are skipped, not errored.
func ParseTable(text string) []Row {
	var rows []Row
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitQuoted(line)
		if i == 0 && isHeader(fields) {
			continue
		}
		row, ok := rowFromFields(fields)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// RestoreTable is the inverse of ParseTable: it reproduces the accepted
// tabular format from a backup record, re-quoting any field containing
// the delimiter. The format has no escape doubling, so a field
// containing the quote character itself cannot be represented and is
// rejected rather than emitted lossily.
func RestoreTable(record *Record) (string, error) {
	var b strings.Builder
	b.WriteString(Header)
	b.WriteByte('\n')
	for _, entry := range record.Entries {
		secret, err := crypto.DecodeSecret(entry.SecretEncoded)
		if err != nil {
			return "", cerr.Wrapf(err, "entry %q has undecodable secret", entry.Name)
		}
		fields := []string{entry.Name, entry.URL, entry.Username, string(secret)}
		for j, f := range fields {
			if strings.ContainsRune(f, rune(quote)) {
				return "", cerr.Newf("entry %q contains the quote character, which the table format cannot represent", entry.Name)
			}
			if j > 0 {
				b.WriteByte(delimiter)
			}
			b.WriteString(quoteField(f))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// Rows reverses the record's encoding back into parsed rows.
func (r *Record) Rows() ([]Row, error) {
	rows := make([]Row, 0, len(r.Entries))
	for _, entry := range r.Entries {
		secret, err := crypto.DecodeSecret(entry.SecretEncoded)
		if err != nil {
			return nil, cerr.Wrapf(err, "entry %q has undecodable secret", entry.Name)
		}
		rows = append(rows, Row{
			Name:     entry.Name,
			URL:      entry.URL,
			Username: entry.Username,
			Password: string(secret),
		})
	}
	return rows, nil
}

// splitQuoted splits one line on the delimiter with quote toggling.
func splitQuoted(line string) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		switch c := line[i]; {
		case c == quote:
			inQuotes = !inQuotes
		case c == delimiter && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}
	fields = append(fields, field.String())
	return fields
}

func quoteField(f string) string {
	if strings.ContainsRune(f, delimiter) {
		return string(quote) + f + string(quote)
	}
	return f
}

func isHeader(fields []string) bool {
	joined := strings.ToLower(strings.Join(fields, ","))
	return strings.Contains(joined, "password") &&
		strings.Contains(joined, "url") &&
		!strings.Contains(joined, "://")
}

func rowFromFields(fields []string) (Row, bool) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	switch {
	case len(fields) >= 4:
		return Row{Name: fields[0], URL: fields[1], Username: fields[2], Password: fields[3]}, true
	case len(fields) == 3:
		return Row{
			Name:     nameFromURL(fields[0]),
			URL:      fields[0],
			Username: fields[1],
			Password: fields[2],
		}, true
	default:
		// Fewer than three fields: skipped, not errored.
		return Row{}, false
	}
}

// nameFromURL derives a display name from the URL's hostname.
func nameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err == nil && u.Hostname() != "" {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	return raw
}
